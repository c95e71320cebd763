package errors

import (
	goerrors "errors"
)

// Is, As and Join forward to the standard library so callers only import this package.

func Is(err, target error) bool {
	return goerrors.Is(err, target)
}

func As(err error, target any) bool {
	return goerrors.As(err, target)
}

func Join(errs ...error) error {
	return goerrors.Join(errs...)
}
