package git

import (
	"errors"
	"fmt"
)

// Validation errors are detected before the engine is touched.
var (
	ErrInvalidBranchName = errors.New("invalid branch name")
	ErrNoSignature       = errors.New("no author identity configured (set user.name and user.email)")
)

// EngineError carries a failure reported by go-git verbatim, tagged with the
// operation that triggered it.
type EngineError struct {
	Op  string
	Err error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// Engine wraps err as an EngineError. A nil err stays nil.
func Engine(op string, err error) error {
	if err == nil {
		return nil
	}
	var ee *EngineError
	if errors.As(err, &ee) {
		return err
	}
	return &EngineError{Op: op, Err: err}
}

// IsEngineError reports whether err originated in the version-control engine.
func IsEngineError(err error) bool {
	var ee *EngineError
	return errors.As(err, &ee)
}
