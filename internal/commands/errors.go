package commands

import (
	"context"
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

const (
	codeCommandInvalid   = "COMMAND_VALIDATION_FAILED"
	codeCommandCanceled  = "COMMAND_CONTEXT_CANCELED"
	codeCommandTimedOut  = "COMMAND_CONTEXT_TIMEOUT"
	codeCommandCtxFailed = "COMMAND_CONTEXT_ERROR"
	codeCommandFailed    = "COMMAND_EXECUTION_FAILED"
)

// tagged wraps err once; already-wrapped errors pass through untouched so the
// first classification wins.
func tagged(err error, category goerrors.Category, msg, code string) error {
	if err == nil {
		return nil
	}
	if goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, category, msg).WithTextCode(code)
}

func wrapValidationError(err error) error {
	return tagged(err, goerrors.CategoryValidation, "command message rejected", codeCommandInvalid)
}

func wrapContextError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return tagged(err, goerrors.CategoryCommand, "command cancelled", codeCommandCanceled)
	case errors.Is(err, context.DeadlineExceeded):
		return tagged(err, goerrors.CategoryCommand, "command deadline exceeded", codeCommandTimedOut)
	default:
		return tagged(err, goerrors.CategoryCommand, "command context failed", codeCommandCtxFailed)
	}
}

func wrapExecuteError(err error) error {
	return tagged(err, goerrors.CategoryCommand, "command execution failed", codeCommandFailed)
}
