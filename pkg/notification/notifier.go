package notification

// NotificationData is one message to one recipient
type NotificationData struct {
	To   string            // Recipient identifier, an email address for EmailSystem
	Data map[string]string // Template values
}

// NoticeTemplate holds the subject and body templates for one notice type.
// Text and Html are Go templates executed against NotificationData.Data.
type NoticeTemplate struct {
	Subject string
	Text    string
	Html    string
}

type Notifier interface {
	Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error
}
