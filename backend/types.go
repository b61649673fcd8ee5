package backend

import (
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
)

// Collaborator endpoints, relative to the API root.
const (
	ConfigPath    = "/config"
	LoginPath     = "/auth/login"
	RegisterPath  = "/auth/register"
	OTPSendPath   = "/auth/otp/send"
	OTPVerifyPath = "/auth/otp/verify"
	LogoutPath    = "/auth/logout"
	UserPath      = "/user"
)

// User represents the profile returned by UserPath.
//
// It intentionally contains identity data only; balances and transactions are
// fetched separately with DoJSONRequest.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrUnavailable is wrapped by APIError for 5xx responses.
var ErrUnavailable = errors.New("backend: unavailable")

// APIError is returned for non-success responses.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	switch {
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("backend: %s (%s)", e.Code, e.Message)
	case e.Message != "":
		return fmt.Sprintf("backend: %s (status %d)", e.Message, e.Status)
	default:
		return fmt.Sprintf("backend: unexpected status %d", e.Status)
	}
}

func (e *APIError) Unwrap() error {
	if e.Status >= 500 {
		return ErrUnavailable
	}
	return nil
}

// apiError builds an APIError from a failure body. Both the success envelope
// ({"message": ...}) and the nested form ({"error": {"code", "message"}})
// are understood; anything else yields a status-only error.
func apiError(status int, raw []byte) *APIError {
	e := &APIError{Status: status}
	if !gjson.ValidBytes(raw) {
		return e
	}

	doc := gjson.ParseBytes(raw)
	e.Code = doc.Get("error.code").String()
	e.Message = doc.Get("error.message").String()
	if e.Message == "" {
		e.Message = doc.Get("message").String()
	}
	return e
}
