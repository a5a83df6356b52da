package core

import "errors"

var (
	ErrInsufficientFunds         = errors.New("insufficient funds")
	ErrInvalidSplitConfiguration = errors.New("invalid split configuration")
	ErrAccountNotFound           = errors.New("account not found")
	ErrTransactionNotFound       = errors.New("transaction not found")
	ErrAlreadyReviewed           = errors.New("transaction already reviewed")
	ErrNoDestinationAccount      = errors.New("no destination account for allowance")
	ErrInvalidAmount             = errors.New("invalid amount")
	ErrUserNotFound              = errors.New("user not found")
	ErrConfigNotFound            = errors.New("config not found")
	ErrNicknameTaken             = errors.New("nickname already in use")
)
