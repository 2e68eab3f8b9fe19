package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrInsufficientCoins   = errors.New("insufficient coins")
	ErrAlreadyUnlocked     = errors.New("level already unlocked")
	ErrAlreadyProcessed    = errors.New("referral already processed")
	ErrSelfReferral        = errors.New("cannot use your own referral code")
	ErrInvalidReferralCode = errors.New("invalid referral code")
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("validation failed")

	ErrForbidden          = errors.New("forbidden")
	ErrLevelLocked        = errors.New("level is locked, unlock it to access")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)
	ErrLevelNotFound    = fmt.Errorf("level %w", ErrNotFound)
	ErrProgressNotFound = fmt.Errorf("progress %w", ErrNotFound)
	ErrExerciseNotFound = fmt.Errorf("exercise %w", ErrNotFound)
)

// InsufficientCoinsError reports how far a balance is from an unlock price.
type InsufficientCoinsError struct {
	Required int64
	Balance  int64
}

func (e *InsufficientCoinsError) Error() string {
	return fmt.Sprintf("insufficient coins: need %d but have %d", e.Required, e.Balance)
}

func (e *InsufficientCoinsError) Is(target error) bool {
	return target == ErrInsufficientCoins
}

// Shortfall is the number of coins still missing.
func (e *InsufficientCoinsError) Shortfall() int64 {
	if e.Required <= e.Balance {
		return 0
	}
	return e.Required - e.Balance
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
