package bolt

import (
	"fmt"

	"github.com/bozor-market/api/internal/repositories"
)

type errorKind int

const (
	errKindNotFound errorKind = iota
	errKindConflict
	errKindUnavailable
)

// storeError categorises bbolt failures for the service layer.
type storeError struct {
	kind errorKind
	msg  string
	err  error
}

func (e *storeError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *storeError) Unwrap() error       { return e.err }
func (e *storeError) IsNotFound() bool    { return e.kind == errKindNotFound }
func (e *storeError) IsConflict() bool    { return e.kind == errKindConflict }
func (e *storeError) IsUnavailable() bool { return e.kind == errKindUnavailable }

func notFoundError(msg string) error {
	return &storeError{kind: errKindNotFound, msg: msg}
}

func unavailableError(msg string, err error) error {
	return &storeError{kind: errKindUnavailable, msg: msg, err: err}
}

var _ repositories.RepositoryError = (*storeError)(nil)
