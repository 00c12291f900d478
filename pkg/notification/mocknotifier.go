package notification

import "sync"

// MockNotifier records sent notifications. Err, when set, is returned from Send.
type MockNotifier struct {
	mu                sync.Mutex
	SentNotifications []NotificationData
	SentTypes         []NoticeType
	Err               error
}

func (m *MockNotifier) Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.SentNotifications = append(m.SentNotifications, notification)
	m.SentTypes = append(m.SentTypes, noticeType)
	return nil
}

// Sent returns a copy of the recorded notice types
func (m *MockNotifier) Sent() []NoticeType {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]NoticeType(nil), m.SentTypes...)
}
