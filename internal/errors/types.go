package errors

import "errors"

var (
	ErrSubscriberNotFound     = errors.New("subscriber not found")
	ErrCredentialNotFound     = errors.New("credential not found")
	ErrInvalidInput           = errors.New("invalid input")
	ErrAllocationExhausted    = errors.New("no free listener port available")
	ErrProxyConfigUnavailable = errors.New("proxy config document unavailable")
	ErrReloadFailed           = errors.New("proxy daemon reload failed")
	ErrUsageRegression        = errors.New("consumed volume moved backward")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrPortInUse              = errors.New("listener port already in use")
)
