package notification

// NotificationManagerOption is a function that configures a NotificationManager
type NotificationManagerOption func(*NotificationManager) error

// WithSMTP adds an email notifier with the provided SMTP configuration
func WithSMTP(config SMTPConfig) NotificationManagerOption {
	return func(nm *NotificationManager) error {
		emailNotifier, err := NewEmailNotifier(config)
		if err != nil {
			return err
		}
		nm.RegisterNotifier(EmailSystem, emailNotifier)
		return nil
	}
}

// WithNotifier registers an existing notifier, typically a MockNotifier in tests
func WithNotifier(system NotificationSystem, notifier Notifier) NotificationManagerOption {
	return func(nm *NotificationManager) error {
		nm.RegisterNotifier(system, notifier)
		return nil
	}
}

// WithTemplate registers a template for a notice type
func WithTemplate(noticeType NoticeType, system NotificationSystem, template NoticeTemplate) NotificationManagerOption {
	return func(nm *NotificationManager) error {
		return nm.RegisterNotification(noticeType, system, template)
	}
}
