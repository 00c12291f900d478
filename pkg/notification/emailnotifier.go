package notification

import (
	"bytes"
	"crypto/tls"
	"fmt"
	htmltemplate "html/template"
	"log/slog"
	texttemplate "text/template"
	"time"

	"github.com/wneessen/go-mail"
)

type SMTPConfig struct {
	Host     string
	Port     int
	TLS      bool
	Username string
	Password string
	From     string
}

type EmailNotifier struct {
	SMTPConfig SMTPConfig
	client     *mail.Client
}

func NewEmailNotifier(config SMTPConfig) (*EmailNotifier, error) {
	opts := []mail.Option{
		mail.WithPort(config.Port),
		mail.WithTimeout(30 * time.Second),
	}

	if config.Username != "" && config.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(config.Username),
			mail.WithPassword(config.Password),
		)
	}

	if config.TLS {
		opts = append(opts,
			mail.WithTLSConfig(&tls.Config{ServerName: config.Host}),
			mail.WithTLSPolicy(mail.TLSMandatory),
		)
	} else {
		slog.Info("Using NoTLS policy", "host", config.Host)
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	client, err := mail.NewClient(config.Host, opts...)
	if err != nil {
		slog.Error("Failed to create mail client", "err", err)
		return nil, err
	}

	return &EmailNotifier{SMTPConfig: config, client: client}, nil
}

func (e *EmailNotifier) Send(noticeType NoticeType, notification NotificationData, noticeTemplate NoticeTemplate) error {
	msg, err := e.buildMessage(notification, noticeTemplate)
	if err != nil {
		return err
	}

	if err := e.client.DialAndSend(msg); err != nil {
		slog.Error("Failed to send email", "notice", noticeType, "err", err)
		return err
	}

	slog.Info("Email sent successfully", "notice", noticeType, "host", e.SMTPConfig.Host, "port", e.SMTPConfig.Port)
	return nil
}

func (e *EmailNotifier) buildMessage(notification NotificationData, noticeTemplate NoticeTemplate) (*mail.Msg, error) {
	if notification.To == "" {
		return nil, fmt.Errorf("email notification requires 'To' address")
	}

	textBody, err := renderText(noticeTemplate.Text, notification.Data)
	if err != nil {
		return nil, err
	}
	htmlBody, err := renderHTML(noticeTemplate.Html, notification.Data)
	if err != nil {
		return nil, err
	}

	msg := mail.NewMsg()
	if err := msg.From(e.SMTPConfig.From); err != nil {
		return nil, fmt.Errorf("failed to set from address: %w", err)
	}
	if err := msg.To(notification.To); err != nil {
		return nil, fmt.Errorf("failed to set to address: %w", err)
	}
	msg.Subject(noticeTemplate.Subject)

	switch {
	case textBody != "" && htmlBody != "":
		msg.SetBodyString(mail.TypeTextPlain, textBody)
		msg.AddAlternativeString(mail.TypeTextHTML, htmlBody)
	case htmlBody != "":
		msg.SetBodyString(mail.TypeTextHTML, htmlBody)
	default:
		msg.SetBodyString(mail.TypeTextPlain, textBody)
	}
	return msg, nil
}

func renderText(tmpl string, data map[string]string) (string, error) {
	if tmpl == "" {
		return "", nil
	}
	t, err := texttemplate.New("text").Option("missingkey=zero").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse text template: %w", err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute text template: %w", err)
	}
	return buf.String(), nil
}

func renderHTML(tmpl string, data map[string]string) (string, error) {
	if tmpl == "" {
		return "", nil
	}
	t, err := htmltemplate.New("html").Option("missingkey=zero").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse html template: %w", err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute html template: %w", err)
	}
	return buf.String(), nil
}
