package bankxmov

import (
	"errors"
	"fmt"
)

var (
	ErrInternalServer = errors.New("internal server error")
	ErrUnavailable    = errors.New("service temporarily unavailable")
)

type ErrBadRequest struct {
	Fields map[string]string `json:"fields"`
}

func (e ErrBadRequest) Error() string {
	return fmt.Sprintf("missing/invalid params: %v", e.Fields)
}

func badRequest(field, reason string) ErrBadRequest {
	return ErrBadRequest{Fields: map[string]string{field: reason}}
}

type ErrNotFound struct {
	Resource string `json:"resource"`
	Key      string `json:"key"`
}

func (e ErrNotFound) Error() string {
	if e.Resource == "" {
		return "record not found"
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.Key)
}

// ErrForbidden covers authorization failures and business-eligibility rejections,
// e.g. a card over its spending ceiling.
type ErrForbidden struct {
	Reason string `json:"reason"`
}

func (e ErrForbidden) Error() string {
	return "forbidden: " + e.Reason
}

// isRejection reports whether err is one of the typed business rejections as opposed to an
// infrastructure failure.
func isRejection(err error) bool {
	return errors.As(err, &ErrBadRequest{}) ||
		errors.As(err, &ErrNotFound{}) ||
		errors.As(err, &ErrForbidden{})
}
