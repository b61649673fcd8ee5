package session

import "errors"

var (
	ErrEmptyToken = errors.New("session: token is empty")
	ErrNoSession  = errors.New("session: no session bound to request")
)
