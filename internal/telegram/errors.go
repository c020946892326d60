package telegram

import "fmt"

type (
	// FailedRequestError indicates the Bot API rejected the request; the
	// apiCode and description are Telegram's own error surface.
	FailedRequestError struct {
		httpCode    int
		apiCode     int
		description string
	}

	// UnknownRequestError covers transport failures and malformed payloads.
	UnknownRequestError struct{ reason string }
)

func (err *FailedRequestError) Error() string {
	return fmt.Sprintf("Bot API request failure (HTTP %d, code %d): %s", err.httpCode, err.apiCode, err.description)
}

func (err *UnknownRequestError) Error() string {
	return fmt.Sprintf("unknown error occurred while communicating with the Bot API: %s", err.reason)
}
