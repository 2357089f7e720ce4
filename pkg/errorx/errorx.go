// Package errorx holds the errors shared by every remote call and the conversion of
// any error into the one-line notice shown to a user.
package errorx

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrCancelled marks an operation the user cancelled. It is never reported as a failure.
var ErrCancelled = errors.New("cancelled by user")

// GenericMessage is shown when the API did not supply a readable message
const GenericMessage = "Something went wrong. Please try again."

// RemoteError is a 4xx/5xx response from the API
type RemoteError struct {
	StatusCode int
	Endpoint   string
	// Message is the server's human-readable message, empty if none was supplied
	Message string
	// RetryAfter is set for 429 responses that carried a Retry-After header
	RetryAfter time.Duration
}

func (e *RemoteError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "no message"
	}
	return fmt.Sprintf("HTTP %d from %s: %s", e.StatusCode, e.Endpoint, msg)
}

// RateLimited reports whether the server asked the client to slow down
func (e *RemoteError) RateLimited() bool {
	return e.StatusCode == 429
}

func (e *RemoteError) UserMessage() string {
	if e.RateLimited() {
		if e.RetryAfter > 0 {
			return fmt.Sprintf("Too many requests. Please try again in %s.", humanDuration(e.RetryAfter))
		}
		return "Too many requests. Please try again later."
	}
	if e.Message != "" {
		return e.Message
	}
	return GenericMessage
}

// Cancelled converts context cancellation into ErrCancelled, keeping other errors as they are
func Cancelled(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || (ctx != nil && errors.Is(ctx.Err(), context.Canceled)) {
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	}
	return err
}

// IsCancelled reports whether err is a user cancellation
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

type userMessager interface {
	UserMessage() string
}

// Notify converts err into the notice shown to the user. Cancellation yields
// a neutral notice rather than a failure.
func Notify(err error) string {
	if err == nil {
		return ""
	}
	if IsCancelled(err) {
		return "Cancelled."
	}
	var um userMessager
	if errors.As(err, &um) {
		return um.UserMessage()
	}
	return GenericMessage
}

func humanDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	}
	minutes := int(d / time.Minute)
	seconds := int(d % time.Minute / time.Second)
	if seconds == 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dm%ds", minutes, seconds)
}
