package errors

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalid         = errors.New("invalid")
	ErrTooMany         = errors.New("too many requests")
	ErrInternal        = errors.New("internal")
	ErrUnsupportedFile = errors.New("unsupported file type")
	ErrFileUnreadable  = errors.New("file unreadable")
	ErrAIUnavailable   = errors.New("ai backend unavailable")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
