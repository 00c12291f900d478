// Package notice sends security change notices (password changed, 2FA on or
// off) to the account's email address.
package notice

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/tendant/simple-settings/pkg/notification"
)

const (
	PasswordChanged   notification.NoticeType = "password_changed"
	TwoFactorEnabled  notification.NoticeType = "two_factor_enabled"
	TwoFactorDisabled notification.NoticeType = "two_factor_disabled"
)

//go:embed templates/*
var templateFiles embed.FS

func loadTemplate(filename string) (string, error) {
	content, err := templateFiles.ReadFile("templates/" + filename)
	if err != nil {
		return "", fmt.Errorf("failed to read template %s: %w", filename, err)
	}
	return string(content), nil
}

// Event describes a completed security change
type Event struct {
	Type    notification.NoticeType
	To      string
	Account string
	// Method is "totp" or "pgp" for 2FA events
	Method string
}

// Notifier is what the settings operations call after a successful change.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// NoopNotifier discards every event
type NoopNotifier struct{}

func (NoopNotifier) Notify(ctx context.Context, event Event) error {
	return nil
}

// Service renders security notices through a notification manager
type Service struct {
	manager *notification.NotificationManager
	appName string
	now     func() time.Time
}

// NewService registers the security notice templates on manager
func NewService(manager *notification.NotificationManager, appName string) (*Service, error) {
	templates := []struct {
		noticeType notification.NoticeType
		subject    string
		file       string
	}{
		{PasswordChanged, "Your password was changed", "password_changed.txt"},
		{TwoFactorEnabled, "Two-factor authentication switched on", "two_factor_enabled.txt"},
		{TwoFactorDisabled, "Two-factor authentication switched off", "two_factor_disabled.txt"},
	}
	for _, tmpl := range templates {
		text, err := loadTemplate(tmpl.file)
		if err != nil {
			return nil, err
		}
		err = manager.RegisterNotification(tmpl.noticeType, notification.EmailSystem, notification.NoticeTemplate{
			Subject: appName + ": " + tmpl.subject,
			Text:    text,
		})
		if err != nil {
			slog.Error("failed to register notice template", "notice", tmpl.noticeType, "error", err)
			return nil, err
		}
	}
	return &Service{manager: manager, appName: appName, now: time.Now}, nil
}

// NewSMTPService builds a Service that mails notices with the given SMTP settings
func NewSMTPService(config notification.SMTPConfig, appName string) (*Service, error) {
	manager, err := notification.NewNotificationManager(notification.WithSMTP(config))
	if err != nil {
		return nil, err
	}
	return NewService(manager, appName)
}

func (s *Service) Notify(ctx context.Context, event Event) error {
	if event.To == "" {
		return nil
	}
	return s.manager.Send(event.Type, notification.NotificationData{
		To: event.To,
		Data: map[string]string{
			"app":     s.appName,
			"account": event.Account,
			"method":  event.Method,
			"time":    s.now().UTC().Format(time.RFC1123),
		},
	})
}
