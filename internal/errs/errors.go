package errs

import "github.com/pkg/errors"

var (
	// transport errors
	ErrConnectionTimeout    = errors.New("connection timeout")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrSessionClosed        = errors.New("session is closed")

	// mailbox errors
	ErrFolderNotFound  = errors.New("folder not found")
	ErrMessageNotFound = errors.New("message not found")

	// delivery errors
	ErrNoProvidersConfigured = errors.New("no delivery providers configured")
	ErrConfigurationMissing  = errors.New("required configuration is missing")

	// auth errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrOwnerNotSet  = errors.New("ownerId not set on context")
)

// ItemError records a failure for a single item of a batch operation.
// Batch operations return these alongside their successful items instead
// of aborting the whole call.
type ItemError struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

func NewItemError(key string, err error) ItemError {
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	return ItemError{Key: key, Reason: reason}
}
