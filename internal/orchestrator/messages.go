package orchestrator

import "errors"

// shortMessager is implemented by errors carrying a provider-supplied
// summary, such as a decoded revert reason.
type shortMessager interface {
	ShortMessage() string
}

// FailureMessage picks the operator-facing message for a failed action:
// the short provider message, else the error text, else fallback.
func FailureMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	var sm shortMessager
	if errors.As(err, &sm) {
		if msg := sm.ShortMessage(); msg != "" {
			return msg
		}
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}
