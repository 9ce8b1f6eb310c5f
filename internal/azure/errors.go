package azure

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
)

// Kind classifies an error from the Azure management plane into the small
// set of conditions the clone workflow branches on.
type Kind string

const (
	// KindUnauthenticated indicates no usable credential or session.
	KindUnauthenticated Kind = "Unauthenticated"
	// KindNotFound indicates a resource group, VM, disk, NIC, NSG or subnet
	// that does not exist.
	KindNotFound Kind = "NotFound"
	// KindConflict indicates a name collision with an existing resource.
	KindConflict Kind = "Conflict"
	// KindPermissionDenied indicates the caller is authenticated but not
	// authorized to read or write the resource.
	KindPermissionDenied Kind = "PermissionDenied"
	// KindProviderFailure covers every other management-plane failure,
	// including quota and size-availability errors surfaced late.
	KindProviderFailure Kind = "ProviderFailure"
)

// Error is a management-plane error tagged with a Kind. The underlying
// cause is preserved and surfaced via Unwrap.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with an explicit kind.
func NewError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Errorf builds a kinded error from a format string.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Classify maps an error returned by an ARM client to a kinded Error.
// HTTP status codes on *azcore.ResponseError drive the mapping; anything
// unrecognized is a ProviderFailure. A nil error stays nil.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	// Already classified upstream.
	var kinded *Error
	if errors.As(err, &kinded) {
		return err
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case http.StatusNotFound:
			return &Error{Kind: KindNotFound, Err: err}
		case http.StatusConflict:
			return &Error{Kind: KindConflict, Err: err}
		case http.StatusForbidden:
			return &Error{Kind: KindPermissionDenied, Err: err}
		case http.StatusUnauthorized:
			return &Error{Kind: KindUnauthenticated, Err: err}
		}
	}

	return &Error{Kind: KindProviderFailure, Err: err}
}

// KindOf returns the Kind of err, or ProviderFailure if err carries none.
func KindOf(err error) Kind {
	var kinded *Error
	if errors.As(err, &kinded) {
		return kinded.Kind
	}
	return KindProviderFailure
}

// IsNotFound reports whether err is a NotFound-kinded error. Unclassified
// errors are inspected for a 404 response as well, so callers can use this
// directly on raw client errors.
func IsNotFound(err error) bool {
	var kinded *Error
	if errors.As(err, &kinded) {
		return kinded.Kind == KindNotFound
	}
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}
