package query

import "errors"

// RequestError reports a query that cannot be answered as submitted.
type RequestError struct {
	Err error
}

func (e *RequestError) Error() string {
	return "invalid query: " + e.Err.Error()
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// IsRequestError reports whether err (or any error in its chain) is a
// RequestError.
func IsRequestError(err error) bool {
	var re *RequestError
	return errors.As(err, &re)
}
