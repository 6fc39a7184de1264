package document

import "errors"

var (
	ErrMissingFilename  = errors.New("filename is required")
	ErrMissingCurrency  = errors.New("currency is required")
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrDocumentNotFound = errors.New("document not found")
)
