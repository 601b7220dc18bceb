package config

import (
	"fmt"
	"os"
	"strconv"
)

// MailSubjectPrefix is prepended to the subject of every outbound email.
const MailSubjectPrefix = "[MainTraq]"

type Config struct {
	Port        string
	DatabaseURL string
	SecretKey   string

	// AdminEmail is the designated administrator address. A user registering
	// with this email is promoted to admin at creation.
	AdminEmail string

	MailServer   string
	MailPort     int
	MailUsername string
	MailPassword string
	MailSender   string

	Domain string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:         os.Getenv("PORT"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		SecretKey:    os.Getenv("SECRET_KEY"),
		AdminEmail:   os.Getenv("MAINTRAQ_ADMIN"),
		MailServer:   os.Getenv("MAIL_SERVER"),
		MailUsername: os.Getenv("MAIL_USERNAME"),
		MailPassword: os.Getenv("MAIL_PASSWORD"),
		MailSender:   os.Getenv("MAIL_SENDER"),
		Domain:       os.Getenv("DOMAIN"),
	}

	if cfg.Port == "" {
		cfg.Port = "3000"
	}

	if cfg.MailServer == "" {
		cfg.MailServer = "smtp.googlemail.com"
	}

	if cfg.MailSender == "" {
		cfg.MailSender = cfg.MailUsername
	}

	cfg.MailPort = 587
	if portStr := os.Getenv("MAIL_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid MAIL_PORT %q: %w", portStr, err)
		}
		cfg.MailPort = port
	}

	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("SECRET_KEY environment variable is not set")
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	return cfg, nil
}
