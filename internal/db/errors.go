package db

import "errors"

// Sentinel errors.
var (
	ErrKeyNotFound   = errors.New("db: key not found")
	ErrIndexNotFound = errors.New("db: index not found")
)

// Error is a failed Valkey command. Key is empty for commands without one.
type Error struct {
	Cmd string
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return e.Cmd + ": " + e.Err.Error()
	}
	return e.Cmd + " " + e.Key + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }
