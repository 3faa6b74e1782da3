package upload

import "errors"

// ErrUploadInProgress is returned when the owner already has an upload in flight.
var ErrUploadInProgress = errors.New("an upload for this owner is already in progress")

// ValidationError rejects a candidate before any transfer.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// TransferError wraps a blob store failure.
type TransferError struct {
	Err error
}

func (e *TransferError) Error() string {
	return "Upload failed: " + e.Err.Error()
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// RegistrationError wraps a failed registry call after a successful transfer.
// StoragePath names the blob that is now orphaned.
type RegistrationError struct {
	StoragePath string
	Err         error
}

func (e *RegistrationError) Error() string {
	return "Failed to save file information: " + e.Err.Error()
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}
