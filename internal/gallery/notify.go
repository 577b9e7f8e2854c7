package gallery

import (
	"errors"

	"go.uber.org/zap"
)

const GenericError = "Something went wrong"

// Notifier shows non-blocking toasts.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// LogNotifier writes notifications to the log.
type LogNotifier struct {
	Log *zap.SugaredLogger
}

func (n LogNotifier) Success(msg string) { n.Log.Info(msg) }

func (n LogNotifier) Error(msg string) { n.Log.Error(msg) }

// reportError surfaces the server's message when it sent one and the generic text otherwise.
func reportError(n Notifier, err error) {
	if n == nil || err == nil {
		return
	}
	msg := GenericError
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		msg = apiErr.Message
	}
	n.Error(msg)
}
