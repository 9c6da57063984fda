package auth

import "errors"

var (
	// ErrInvalidCredentials is returned when the provider reports a wrong password or unknown user.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailInUse is returned when an account already exists for the email.
	ErrEmailInUse = errors.New("email already in use")
	// ErrProfileNotFound is returned by profile stores when no document exists for an id.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrInvalidProfile is wrapped when profile fields do not fit the requested role.
	ErrInvalidProfile = errors.New("invalid profile")
	// ErrUnsupported is wrapped by providers that do not implement an operation.
	ErrUnsupported = errors.New("not supported by identity provider")
)

// ProviderError is an opaque passthrough of an identity or profile provider failure.
// Message is the human-readable text surfaced to the user.
type ProviderError struct {
	Op      string
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	switch {
	case e.Message != "" && e.Op != "":
		return e.Op + ": " + e.Message
	case e.Message != "":
		return e.Message
	case e.Err != nil && e.Op != "":
		return e.Op + ": " + e.Err.Error()
	case e.Err != nil:
		return e.Err.Error()
	default:
		return "identity provider error"
	}
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError wraps err, taking its text as the user-facing message.
func NewProviderError(op string, err error) *ProviderError {
	pe := &ProviderError{Op: op, Err: err}
	if err != nil {
		pe.Message = err.Error()
	}
	return pe
}

// AsProviderError normalizes err into a *ProviderError unless it already is one
// or is one of the taxonomy sentinels.
func AsProviderError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrEmailInUse) {
		return err
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return NewProviderError(op, err)
}
