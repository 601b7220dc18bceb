// Package notify maps task-state transitions and account flows to outbound
// emails. Every send is best-effort: failures are logged and never fail the
// originating request. Each successful send is recorded as a Notification row.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/waiyaki/maintraq/internal/mailer"
	"github.com/waiyaki/maintraq/internal/models"
	"github.com/waiyaki/maintraq/internal/workflow"
)

const dateFormat = "Mon Jan 2 15:04:05 2006"

type Dispatcher struct {
	mailer     mailer.Mailer
	db         *gorm.DB
	adminEmail string
	domain     string
}

func New(m mailer.Mailer, db *gorm.DB, adminEmail, domain string) *Dispatcher {
	return &Dispatcher{mailer: m, db: db, adminEmail: adminEmail, domain: domain}
}

// RejectedTask is the snapshot captured before a rejected task's row is
// deleted; the rejection notice is built from it, not from the database.
type RejectedTask struct {
	TaskID         uint      `json:"task_id"`
	Description    string    `json:"description"`
	DateRequested  time.Time `json:"date_requested"`
	FacilityName   string    `json:"facility"`
	RequesterID    uint      `json:"requester_id"`
	RequesterEmail string    `json:"requester_email"`
	RequesterName  string    `json:"requester_name"`
	Reasons        string    `json:"reasons"`
}

// TaskCreated notifies the admin of a new maintenance request. The task must
// have its Facility and RequestedBy associations loaded.
func (d *Dispatcher) TaskCreated(ctx context.Context, task *models.Task) {
	if d.adminEmail == "" {
		return
	}

	body, err := render("task/new", map[string]string{
		"Requester":     task.RequestedBy.Username,
		"Description":   task.Description,
		"Facility":      task.Facility.Name,
		"DateRequested": task.DateRequested.Format(dateFormat),
	})
	if err != nil {
		log.Printf("Failed to render created notification: %v", err)
		return
	}

	d.deliver(ctx, string(workflow.EventCreated), &task.ID, nil, mailer.Message{
		To:      d.adminEmail,
		Subject: "New Maintenance Request",
		Body:    body,
	})
}

// TaskUpdated dispatches the notifications for the events produced by a
// single update transition. The events come from diffing pre- and post-update
// state, so each fires at most once per request.
func (d *Dispatcher) TaskUpdated(ctx context.Context, events []workflow.Event, task *models.Task, actor *models.User) {
	for _, event := range events {
		switch event {
		case workflow.EventAssigned:
			if task.AssignedTo == nil {
				continue
			}
			body, err := render("task/assigned", map[string]string{
				"Assignee":      task.AssignedTo.Username,
				"Description":   task.Description,
				"Facility":      task.Facility.Name,
				"DateRequested": task.DateRequested.Format(dateFormat),
			})
			if err != nil {
				log.Printf("Failed to render assigned notification: %v", err)
				continue
			}
			d.deliver(ctx, string(event), &task.ID, task.AssignedToID, mailer.Message{
				To:      task.AssignedTo.Email,
				Subject: "New Task Assignment",
				Body:    body,
			})

		case workflow.EventConfirmed:
			body, err := render("task/confirmed", map[string]string{
				"Requester":   task.RequestedBy.Username,
				"Description": task.Description,
				"Facility":    task.Facility.Name,
			})
			if err != nil {
				log.Printf("Failed to render confirmed notification: %v", err)
				continue
			}
			d.deliver(ctx, string(event), &task.ID, &task.RequestedByID, mailer.Message{
				To:      task.RequestedBy.Email,
				Subject: "Task Request Confirmed",
				Body:    body,
			})

		case workflow.EventResolved:
			body, err := render("task/resolved", map[string]string{
				"Requester":   task.RequestedBy.Username,
				"Description": task.Description,
				"Facility":    task.Facility.Name,
			})
			if err != nil {
				log.Printf("Failed to render resolved notification: %v", err)
				continue
			}
			d.deliver(ctx, string(event), &task.ID, &task.RequestedByID, mailer.Message{
				To:      task.RequestedBy.Email,
				Subject: "Task Resolved",
				Body:    body,
			})

		case workflow.EventDone:
			if d.adminEmail == "" {
				continue
			}
			completed := "just now"
			if task.DateCompleted != nil {
				completed = task.DateCompleted.Format(dateFormat)
			}
			body, err := render("task/done", map[string]string{
				"Actor":         actor.Username,
				"Description":   task.Description,
				"Facility":      task.Facility.Name,
				"DateCompleted": completed,
			})
			if err != nil {
				log.Printf("Failed to render done notification: %v", err)
				continue
			}
			d.deliver(ctx, string(event), &task.ID, nil, mailer.Message{
				To:      d.adminEmail,
				Subject: "Task Completed",
				Body:    body,
			})
		}
	}
}

// TaskRejected notifies the requester with the pre-deletion snapshot.
func (d *Dispatcher) TaskRejected(ctx context.Context, snap RejectedTask) {
	body, err := render("task/rejected", map[string]string{
		"Requester":     snap.RequesterName,
		"Description":   snap.Description,
		"Facility":      snap.FacilityName,
		"DateRequested": snap.DateRequested.Format(dateFormat),
		"Reasons":       snap.Reasons,
	})
	if err != nil {
		log.Printf("Failed to render rejected notification: %v", err)
		return
	}

	msg := mailer.Message{
		To:      snap.RequesterEmail,
		Subject: "Task Request Rejected",
		Body:    body,
	}

	// The task row is gone, so the log row keeps the snapshot instead.
	if err := d.mailer.Send(ctx, msg); err != nil {
		log.Printf("Failed to send rejected notification: %v", err)
		return
	}
	payload, _ := json.Marshal(snap)
	d.record(string(workflow.EventRejected), nil, &snap.RequesterID, msg, payload)
}

// ConfirmAccount mails a new or unconfirmed user their confirmation link.
func (d *Dispatcher) ConfirmAccount(ctx context.Context, user *models.User, token string) {
	d.accountMail(ctx, user, "auth/confirm", "Confirm Your Account", user.Email,
		fmt.Sprintf("%s/confirm/%s", d.baseURL(), token))
}

// PasswordReset mails a user their password reset link.
func (d *Dispatcher) PasswordReset(ctx context.Context, user *models.User, token string) {
	d.accountMail(ctx, user, "auth/reset", "Reset Your Password", user.Email,
		fmt.Sprintf("%s/reset/%s", d.baseURL(), token))
}

// EmailChange mails the pending new address its confirmation link.
func (d *Dispatcher) EmailChange(ctx context.Context, user *models.User, newEmail, token string) {
	d.accountMail(ctx, user, "auth/change_email", "Confirm Your Email Address", newEmail,
		fmt.Sprintf("%s/change-email/%s", d.baseURL(), token))
}

func (d *Dispatcher) accountMail(ctx context.Context, user *models.User, template, subject, to, link string) {
	body, err := render(template, map[string]string{
		"Username": user.Username,
		"Link":     link,
	})
	if err != nil {
		log.Printf("Failed to render %s mail: %v", template, err)
		return
	}

	d.deliver(ctx, template, nil, &user.ID, mailer.Message{
		To:      to,
		Subject: subject,
		Body:    body,
	})
}

func (d *Dispatcher) baseURL() string {
	if d.domain == "" {
		return "http://localhost:3000"
	}
	return "https://" + d.domain
}

func (d *Dispatcher) deliver(ctx context.Context, event string, taskID, userID *uint, msg mailer.Message) {
	if err := d.mailer.Send(ctx, msg); err != nil {
		log.Printf("Failed to send %s notification: %v", event, err)
		return
	}
	d.record(event, taskID, userID, msg, nil)
}

func (d *Dispatcher) record(event string, taskID, userID *uint, msg mailer.Message, payload []byte) {
	if d.db == nil {
		return
	}

	row := models.Notification{
		TaskID:    taskID,
		UserID:    userID,
		Event:     event,
		Recipient: msg.To,
		Subject:   msg.Subject,
		Payload:   datatypes.JSON(payload),
		SentAt:    time.Now(),
	}

	if err := d.db.Create(&row).Error; err != nil {
		log.Printf("Failed to record %s notification: %v", event, err)
	}
}
