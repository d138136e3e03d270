package saga

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

// Failure kinds surfaced to callers. Categories follow the go-errors
// extension pattern so callers can map a failure to a response without
// inspecting saga internals: validation failures reject before any side
// effect, preconditions reject before any side effect, transient failures are
// retried at the failing step, salvage failures left billable vendor state
// behind and hold enough to retry persistence alone, terminal failures mean
// compensation itself failed and a human must intervene.
const (
	CategoryPrecondition goerrors.Category = "tms_precondition"
	CategoryTransient    goerrors.Category = "tms_transient"
	CategorySalvage      goerrors.Category = "tms_salvage"
	CategoryTerminal     goerrors.Category = "tms_terminal"
)

const (
	codeRevisionMismatch   = "TRANSLATION_REVISION_MISMATCH"
	codeLocked             = "TRANSLATION_LOCKED"
	codeVendorFailed       = "TRANSLATION_VENDOR_FAILED"
	codeStorageFailed      = "TRANSLATION_STORAGE_FAILED"
	codePersistFailed      = "TRANSLATION_PERSIST_FAILED"
	codeCompensationFailed = "TRANSLATION_COMPENSATION_FAILED"
	codeRequestInvalid     = "TRANSLATION_REQUEST_INVALID"
)

func invalid(err error) error {
	if err == nil {
		return nil
	}
	return goerrors.Wrap(err, goerrors.CategoryValidation, "translation request rejected").
		WithTextCode(codeRequestInvalid)
}

func precondition(err error, msg, code string) error {
	return goerrors.Wrap(err, CategoryPrecondition, msg).WithTextCode(code)
}

func transient(err error, msg, code string) error {
	if goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, CategoryTransient, msg).WithTextCode(code)
}

func salvage(err error, msg string) error {
	return goerrors.Wrap(err, CategorySalvage, msg).WithTextCode(codePersistFailed)
}

// terminal reports a compound failure: the original error plus the failed
// compensation. Automatic recovery is no longer possible at this point.
func terminal(original, compensation error) error {
	return goerrors.Wrap(errors.Join(original, compensation), CategoryTerminal,
		"compensation failed after saga step failure").
		WithTextCode(codeCompensationFailed)
}

// IsPrecondition reports whether the failure was rejected before side effects.
func IsPrecondition(err error) bool {
	return goerrors.IsCategory(err, CategoryPrecondition)
}

// IsTransient reports whether the caller may simply retry.
func IsTransient(err error) bool {
	return goerrors.IsCategory(err, CategoryTransient)
}

// IsSalvage reports whether vendor state exists and only persistence needs a
// retry.
func IsSalvage(err error) bool {
	return goerrors.IsCategory(err, CategorySalvage)
}

// IsTerminal reports whether compensation failed and manual intervention is
// required.
func IsTerminal(err error) bool {
	return goerrors.IsCategory(err, CategoryTerminal)
}
