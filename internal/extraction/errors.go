package extraction

import (
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/profile-cli/internal/model"
)

// Sentinel errors returned by the Manager.
var (
	ErrJobInFlight    = eris.New("extraction: a job is already running for this subject")
	ErrNoReviewResult = eris.New("extraction: no result awaiting review")
)

// Error is a failure with a taxonomy code attached.
type Error struct {
	Code model.ErrorCode
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

func coded(code model.ErrorCode, err error) error {
	return &Error{Code: code, Err: err}
}

// CodeOf returns the taxonomy code carried by err, or provider_error.
func CodeOf(err error) model.ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return model.ErrProvider
}
