package domain

import (
	"errors"
	"fmt"
)

// Failure kinds. Every one of them aborts the run.
var (
	ErrConfigMissing       = errors.New("configuration missing")
	ErrUpstreamUnavailable = errors.New("upstream metric unavailable")
	ErrResourceMissing     = errors.New("resource missing")
	ErrUploadFailed        = errors.New("upload failed")
	ErrInvalidArgument     = errors.New("invalid argument")
)

// UploadError keeps the remote payload of a rejected upload.
type UploadError struct {
	Destination Destination
	Code        int
	Payload     string
	Err         error
}

func (e *UploadError) Error() string {
	msg := fmt.Sprintf("%s upload rejected", e.Destination)
	if e.Code != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Code)
	}
	if e.Payload != "" {
		msg += ": " + e.Payload
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is lets callers match ErrUploadFailed with errors.Is.
func (e *UploadError) Is(target error) bool {
	return target == ErrUploadFailed
}

func (e *UploadError) Unwrap() error {
	return e.Err
}
