package ports

import "context"

// Auth event kinds published by the service.
const (
	EventLoginSucceeded = "login_succeeded"
	EventMFAEnrolled    = "mfa_enrolled"
	EventSignUpComplete = "signup_complete"
)

// EventPublisher fans auth events out to other instances.
type EventPublisher interface {
	PublishAuthEvent(ctx context.Context, kind, username string) error
}
