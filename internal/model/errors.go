package model

import "errors"

// DataLoadError reports that a dataset could not be read or normalized.
// Callers receive it together with an empty record set.
type DataLoadError struct {
	Location string
	Err      error
}

func (e *DataLoadError) Error() string {
	if e.Location == "" {
		return "dataset load failed: " + e.Err.Error()
	}
	return "dataset load failed (" + e.Location + "): " + e.Err.Error()
}

func (e *DataLoadError) Unwrap() error {
	return e.Err
}

// NewDataLoadError wraps err as a load failure for location.
func NewDataLoadError(location string, err error) *DataLoadError {
	return &DataLoadError{Location: location, Err: err}
}

// IsDataLoadError reports whether err (or any error in its chain) is a
// DataLoadError.
func IsDataLoadError(err error) bool {
	var dle *DataLoadError
	return errors.As(err, &dle)
}
