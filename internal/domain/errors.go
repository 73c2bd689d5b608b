package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrQuotaExceeded  = errors.New("quota exceeded")
	ErrConflict       = errors.New("conflict")
	ErrAdapterFailure = errors.New("adapter failure")
	ErrStorageFailure = errors.New("storage failure")
)
