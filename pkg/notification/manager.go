package notification

import (
	"errors"
	"fmt"
	"sync"
)

// NotificationSystem represents a delivery channel
type NotificationSystem string

// NoticeType names a kind of notice, e.g. "password_changed"
type NoticeType string

const (
	EmailSystem NotificationSystem = "email"
)

// NotificationManager routes notices to the notifiers registered for them.
type NotificationManager struct {
	mu                   sync.RWMutex
	notifiers            map[NotificationSystem]Notifier
	notificationRegistry map[NoticeType]map[NotificationSystem]NoticeTemplate
}

// NewNotificationManager creates a manager and applies opts in order.
func NewNotificationManager(opts ...NotificationManagerOption) (*NotificationManager, error) {
	nm := &NotificationManager{
		notifiers:            make(map[NotificationSystem]Notifier),
		notificationRegistry: make(map[NoticeType]map[NotificationSystem]NoticeTemplate),
	}
	for _, opt := range opts {
		if err := opt(nm); err != nil {
			return nil, err
		}
	}
	return nm, nil
}

// RegisterNotifier registers a notifier for a specific system.
func (nm *NotificationManager) RegisterNotifier(system NotificationSystem, notifier Notifier) {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	nm.notifiers[system] = notifier
}

// RegisterNotification adds or replaces the template for a notice type on a system.
func (nm *NotificationManager) RegisterNotification(noticeType NoticeType, system NotificationSystem, template NoticeTemplate) error {
	if noticeType == "" || system == "" {
		return fmt.Errorf("invalid input: notice type and system cannot be empty")
	}
	if template.Text == "" && template.Html == "" {
		return fmt.Errorf("invalid template for %s: text or html body required", noticeType)
	}

	nm.mu.Lock()
	defer nm.mu.Unlock()
	if _, exists := nm.notificationRegistry[noticeType]; !exists {
		nm.notificationRegistry[noticeType] = make(map[NotificationSystem]NoticeTemplate)
	}
	nm.notificationRegistry[noticeType][system] = template
	return nil
}

// Send delivers the notice on every system that has both a template and a
// notifier registered. Failures on one system do not stop the others.
func (nm *NotificationManager) Send(noticeType NoticeType, notification NotificationData) error {
	nm.mu.RLock()
	templates, exists := nm.notificationRegistry[noticeType]
	if !exists {
		nm.mu.RUnlock()
		return fmt.Errorf("no templates registered for notice type: %s", noticeType)
	}
	type delivery struct {
		notifier Notifier
		template NoticeTemplate
	}
	deliveries := make([]delivery, 0, len(templates))
	for system, template := range templates {
		if notifier, ok := nm.notifiers[system]; ok {
			deliveries = append(deliveries, delivery{notifier: notifier, template: template})
		}
	}
	nm.mu.RUnlock()

	if len(deliveries) == 0 {
		return fmt.Errorf("no notifier registered for notice type: %s", noticeType)
	}

	var errs []error
	for _, d := range deliveries {
		if err := d.notifier.Send(noticeType, notification, d.template); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
