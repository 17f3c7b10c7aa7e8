package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kinds surfaced at the transport boundary. Components wrap them with
// fmt.Errorf("%w: ...") to add context, callers match with errors.Is.
var (
	ErrUnauthorized    = fmt.Errorf("unauthorized")
	ErrForbidden       = fmt.Errorf("forbidden")
	ErrNotFound        = fmt.Errorf("not found")
	ErrInvalidRequest  = fmt.Errorf("invalid request")
	ErrBadSignature    = fmt.Errorf("bad signature")
	ErrInvalidIdentity = fmt.Errorf("invalid identity")
	ErrConflict        = fmt.Errorf("already exists")
	ErrInternal        = fmt.Errorf("internal error")
)

var (
	ErrInvalidPassword    = fmt.Errorf("%w: password does not meet complexity rules", ErrInvalidRequest)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	ErrTokenGeneration    = fmt.Errorf("%w: token generation failed", ErrInternal)
	ErrUserAlreadyExists  = fmt.Errorf("%w: username or email already taken", ErrConflict)
	ErrIdentityAlreadySet = fmt.Errorf("%w: identity key is already published", ErrInvalidRequest)
	ErrNoIdentityKey      = fmt.Errorf("%w: user has no identity key", ErrBadSignature)
	ErrNoKeyPackage       = fmt.Errorf("%w: no key package available", ErrNotFound)
)

// kinds is ordered from most to least specific so that an error wrapping
// several kinds resolves to the first match.
var kinds = []struct {
	err    error
	status int
}{
	{ErrUnauthorized, http.StatusUnauthorized},
	{ErrForbidden, http.StatusForbidden},
	{ErrNotFound, http.StatusNotFound},
	{ErrBadSignature, http.StatusBadRequest},
	{ErrInvalidIdentity, http.StatusBadRequest},
	{ErrInvalidRequest, http.StatusBadRequest},
	{ErrConflict, http.StatusConflict},
	{ErrInternal, http.StatusInternalServerError},
}

// Kind returns the sentinel an error belongs to. Unknown errors are Internal.
func Kind(err error) error {
	for _, k := range kinds {
		if stderrors.Is(err, k.err) {
			return k.err
		}
	}
	return ErrInternal
}

// HTTPStatus maps an error to the status code returned to the caller.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	for _, k := range kinds {
		if stderrors.Is(err, k.err) {
			return k.status
		}
	}
	return http.StatusInternalServerError
}

// Public returns the message safe to show a caller: the kind only.
func Public(err error) string {
	return Kind(err).Error()
}

// Internalf wraps a storage or codec failure as ErrInternal.
func Internalf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInternal, fmt.Sprintf(format, args...))
}

// Is and As are re-exported so callers importing this package under the
// name "errors" keep the standard helpers.
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }
