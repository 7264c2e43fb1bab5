package checkout

import "errors"

var (
	ErrNotFound          = errors.New("checkout not found")
	ErrItemNotFound      = errors.New("dose not found in checkout")
	ErrInvalidTransition = errors.New("invalid dose state transition")
	ErrNotEvaluable      = errors.New("product cannot be evaluated")
	ErrBlockingIssues    = errors.New("checkout has blocking issues")
	ErrCheckoutClosed    = errors.New("checkout is closed")
	ErrInvalidPayment    = errors.New("invalid payment mode")
	ErrInvalidRequest    = errors.New("invalid request")
)
