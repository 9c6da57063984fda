package errors

import (
	"context"
	goerrors "errors"
	"reflect"
	"strings"

	domainauth "github.com/kavach-app/kavach/internal/domain/auth"
)

var sentinelClasses = []struct {
	err   error
	class string
}{
	{domainauth.ErrInvalidCredentials, "invalid_credentials"},
	{domainauth.ErrEmailInUse, "email_in_use"},
	{domainauth.ErrProfileNotFound, "profile_not_found"},
	{domainauth.ErrUnsupported, "unsupported"},
	{context.DeadlineExceeded, "timeout"},
	{context.Canceled, "canceled"},
}

// Classify returns a normalized error class suitable for tagging metrics and logs.
// Known auth sentinels and provider failures get stable names; anything else is
// named after its innermost concrete type.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	for _, s := range sentinelClasses {
		if goerrors.Is(err, s.err) {
			return s.class
		}
	}
	var pe *domainauth.ProviderError
	if goerrors.As(err, &pe) {
		return "provider_error"
	}

	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}

	name := strings.ToLower(strings.ReplaceAll(t.String(), "*", ""))
	name = strings.ReplaceAll(name, ".", "_")
	if name == "" {
		return "unknown"
	}
	return name
}
