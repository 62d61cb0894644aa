package services

import "errors"

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrRequestNotFound   = errors.New("request not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrBelowMinimum      = errors.New("amount below minimum")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidBank       = errors.New("bank not supported")
	ErrInvalidAddress    = errors.New("invalid wallet address")
	ErrUnknownNetwork    = errors.New("unknown withdrawal network")
	ErrInvalidStatus     = errors.New("unknown status")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrTokenRequired     = errors.New("action token required")
	ErrTokenInvalid      = errors.New("action token invalid or already used")
	ErrDuplicateRequest  = errors.New("request already recorded")
)
