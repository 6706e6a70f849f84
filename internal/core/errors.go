package core

import "errors"

var (
	// ErrClassifierFailure is returned when the model cannot produce a result
	ErrClassifierFailure = errors.New("classifier failure")
	// ErrStoreFailure is returned when a persistence collaborator fails
	ErrStoreFailure = errors.New("store failure")
	// ErrNotificationFailure is returned when a notification cannot be posted
	ErrNotificationFailure = errors.New("notification failure")
	// ErrPermissionDenied is returned when the notification permission is missing
	ErrPermissionDenied = errors.New("notification permission denied")
	// ErrMalformedInput is returned for blank senders, blank bodies or unparseable fragments
	ErrMalformedInput = errors.New("malformed input")
	// ErrDuplicate is returned when the inbox already holds the same message inside the window
	ErrDuplicate = errors.New("duplicate message")
	// ErrNoListener is returned when a live event is dropped for lack of a listener
	ErrNoListener = errors.New("no live event listener attached")
)
