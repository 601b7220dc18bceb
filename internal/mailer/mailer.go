// Package mailer sends outbound email. Delivery is a blocking, best-effort
// call; callers decide whether a failure should fail their request.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"time"

	"github.com/waiyaki/maintraq/internal/config"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer delivers mail over plain-auth SMTP.
type SMTPMailer struct {
	host   string
	port   int
	sender string
	auth   smtp.Auth
}

func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	return &SMTPMailer{
		host:   cfg.MailServer,
		port:   cfg.MailPort,
		sender: cfg.MailSender,
		auth:   smtp.PlainAuth("", cfg.MailUsername, cfg.MailPassword, cfg.MailServer),
	}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	body := fmt.Sprintf(
		"From: MainTraq Admin <%s>\r\nTo: %s\r\nSubject: %s %s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s\r\n",
		m.sender, msg.To, config.MailSubjectPrefix, msg.Subject, msg.Body,
	)

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	if err := smtp.SendMail(addr, m.auth, m.sender, []string{msg.To}, []byte(body)); err != nil {
		return fmt.Errorf("send email to %s: %w", msg.To, err)
	}

	return nil
}

// Mock records sent messages instead of delivering them, for tests.
type Mock struct {
	Sent []SentMessage
}

type SentMessage struct {
	Message
	SentAt time.Time
}

func NewMock() *Mock {
	return &Mock{Sent: make([]SentMessage, 0)}
}

func (m *Mock) Send(ctx context.Context, msg Message) error {
	m.Sent = append(m.Sent, SentMessage{Message: msg, SentAt: time.Now()})
	return nil
}

// Last returns the most recently recorded message, or nil.
func (m *Mock) Last() *SentMessage {
	if len(m.Sent) == 0 {
		return nil
	}
	return &m.Sent[len(m.Sent)-1]
}

func (m *Mock) Clear() {
	m.Sent = m.Sent[:0]
}
