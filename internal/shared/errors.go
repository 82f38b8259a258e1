package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Remote API errors
	ErrParse              = fmt.Errorf("malformed response")
	ErrAuthExpired        = fmt.Errorf("credential expired")
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrCollectionNotFound = fmt.Errorf("collection not found")

	// Paging errors
	ErrInvalidRange = fmt.Errorf("invalid page range")
	ErrEmptyResult  = fmt.Errorf("empty result")

	// Store errors
	ErrStoreUnavailable  = fmt.Errorf("store unavailable")
	ErrRecordNotFound    = fmt.Errorf("record not found")
	ErrDuplicate         = fmt.Errorf("record already exists")
	ErrInvalidTransition = fmt.Errorf("invalid state transition")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
