package services

import (
	"log"
)

// StatusChangeEmail carries the fields for a status-change email notification
type StatusChangeEmail struct {
	RequestID string
	NewStatus string
	UserEmail string
	UserName  string
}

// Mailer sends status-change email notifications
type Mailer interface {
	SendStatusChange(email StatusChangeEmail) error
}

// LogMailer is the stub mailer: it logs what would have been sent and always
// succeeds. No real email dispatch is implemented.
type LogMailer struct{}

var mailerInstance Mailer = &LogMailer{}

// GetMailer returns the mailer instance
func GetMailer() Mailer {
	return mailerInstance
}

// SetMailer sets the mailer instance (primarily for testing)
func SetMailer(m Mailer) {
	mailerInstance = m
}

// SendStatusChange logs the would-be email for the status change
func (m *LogMailer) SendStatusChange(email StatusChangeEmail) error {
	log.Printf("Email notification: request %s is now %q, to %s <%s>",
		email.RequestID, email.NewStatus, email.UserName, email.UserEmail)
	return nil
}
