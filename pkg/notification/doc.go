// Package notification delivers templated notices through pluggable
// notifiers.
//
// A NotificationManager keeps two registries: notifiers per system (only
// email today) and templates per notice type and system. Send renders the
// registered template for every system that has a notifier.
//
//	nm, err := notification.NewNotificationManager(
//	    notification.WithSMTP(notification.SMTPConfig{
//	        Host: "smtp.example.com",
//	        Port: 587,
//	        TLS:  true,
//	        From: "noreply@example.com",
//	    }),
//	    notification.WithTemplate("password_changed", notification.EmailSystem, notification.NoticeTemplate{
//	        Subject: "Your password was changed",
//	        Text:    "Hello, the password for {{.account}} was changed.",
//	    }),
//	)
//
// MockNotifier records messages instead of sending them and is meant for tests.
package notification
