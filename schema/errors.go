package schema

import "errors"

var (
	// ErrTabNotFound indicates a requested tab could not be found.
	ErrTabNotFound = errors.New("tab not found")
	// ErrNoActiveTab indicates no tab is currently active.
	ErrNoActiveTab = errors.New("no active tab")
	// ErrEmptyInput indicates the address bar input was empty.
	ErrEmptyInput = errors.New("empty input")
	// ErrInvalidSearchEngine indicates a search template outside the offered set.
	ErrInvalidSearchEngine = errors.New("unsupported search engine")
	// ErrInvalidHomepage indicates a homepage that is not an absolute http(s) URL.
	ErrInvalidHomepage = errors.New("homepage must be an http or https URL")
	// ErrDialogClosed indicates the settings dialog was already submitted.
	ErrDialogClosed = errors.New("settings dialog closed")
	// ErrBridgeClosed indicates the bridge connection is gone.
	ErrBridgeClosed = errors.New("bridge closed")
	// ErrUnknownChannel indicates a message on a channel nobody handles.
	ErrUnknownChannel = errors.New("unknown channel")
	// ErrInvalidRequest indicates a malformed request payload.
	ErrInvalidRequest = errors.New("invalid request")
)
