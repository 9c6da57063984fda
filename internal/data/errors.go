package data

import (
	"errors"

	apperrors "github.com/kavach-app/kavach/internal/errors"
)

// Shared sentinel errors for data-layer repositories. Input errors are AppErrors so the
// HTTP layer reports them as validation failures even when wrapped by the identity layer.
var (
	ErrEmailRequired     = apperrors.ValidationField("email", "email is required")
	ErrInvalidEmail      = apperrors.ValidationField("email", "email address is badly formatted")
	ErrPasswordTooShort  = apperrors.ValidationField("password", "password should be at least 6 characters")
	ErrProfileIDRequired = apperrors.Validation("profile id is required")
	// ErrResetTokenInvalid is returned by ConfirmPasswordReset for unknown, used or expired tokens.
	ErrResetTokenInvalid  = apperrors.ValidationField("token", "password reset link is invalid or has expired")
	ErrResetNotConfigured = errors.New("password reset is not configured")
)
