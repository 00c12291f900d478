package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/tendant/simple-settings/pkg/notice"
	"github.com/tendant/simple-settings/pkg/notification"
)

// emailtest sends one security notice through the configured SMTP server so
// the templates and mail settings can be checked by hand.
func main() {
	host := flag.String("host", "localhost", "SMTP server host")
	port := flag.Int("port", 1025, "SMTP server port")
	username := flag.String("user", "", "SMTP username")
	password := flag.String("pass", "", "SMTP password")
	useTLS := flag.Bool("tls", false, "Require TLS")
	from := flag.String("from", "noreply@example.com", "From email address")
	to := flag.String("to", "", "To email address")
	appName := flag.String("app", "simple-settings", "Application title used in the notice")
	kind := flag.String("notice", "password", "Notice to send: password, 2fa-on, or 2fa-off")
	method := flag.String("method", "totp", "2FA method named in 2fa notices")
	flag.Parse()

	if *to == "" {
		fmt.Println("Error: to email address is required")
		os.Exit(1)
	}

	var noticeType notification.NoticeType
	switch *kind {
	case "password":
		noticeType = notice.PasswordChanged
	case "2fa-on":
		noticeType = notice.TwoFactorEnabled
	case "2fa-off":
		noticeType = notice.TwoFactorDisabled
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown notice: %s\n", *kind)
		os.Exit(1)
	}

	service, err := notice.NewSMTPService(notification.SMTPConfig{
		Host:     *host,
		Port:     *port,
		TLS:      *useTLS,
		Username: *username,
		Password: *password,
		From:     *from,
	}, *appName)
	if err != nil {
		slog.Error("Failed to create notice service", "error", err)
		os.Exit(1)
	}

	event := notice.Event{Type: noticeType, To: *to, Account: *to, Method: *method}
	if err := service.Notify(context.Background(), event); err != nil {
		slog.Error("Failed to send notice", "notice", noticeType, "error", err)
		os.Exit(1)
	}

	fmt.Printf("Sent %s notice to %s\n", noticeType, *to)
}
