package core

import (
	"errors"
	"net/http"

	driver "github.com/arangodb/go-driver"
)

// Server error numbers the driver reacts to.
const (
	ErrorNumNotImplemented           = 9
	ErrorNumBadParameter             = 10
	ErrorNumConflict                 = 1200
	ErrorNumDocumentNotFound         = 1202
	ErrorNumCollectionNotFound       = 1203
	ErrorNumDocumentHandleBad        = 1205
	ErrorNumUniqueConstraintViolated = 1210
	ErrorNumIndexNotFound            = 1212
	ErrorNumIndexHandleBad           = 1214
	ErrorNumCrossCollectionRequest   = 1217
)

// ErrUsage is returned when a call is malformed locally, before anything is sent.
var ErrUsage = errors.New("usage error")

var (
	ErrMalformedHandle = driver.ArangoError{
		HasError:     true,
		Code:         http.StatusBadRequest,
		ErrorNum:     ErrorNumDocumentHandleBad,
		ErrorMessage: "illegal document handle",
	}

	ErrMalformedIndexHandle = driver.ArangoError{
		HasError:     true,
		Code:         http.StatusBadRequest,
		ErrorNum:     ErrorNumIndexHandleBad,
		ErrorMessage: "illegal index handle",
	}

	ErrCrossCollectionReference = driver.ArangoError{
		HasError:     true,
		Code:         http.StatusBadRequest,
		ErrorNum:     ErrorNumCrossCollectionRequest,
		ErrorMessage: "cross collection request not allowed",
	}

	ErrCollectionNotFound = driver.ArangoError{
		HasError:     true,
		Code:         http.StatusNotFound,
		ErrorNum:     ErrorNumCollectionNotFound,
		ErrorMessage: "collection or view not found",
	}

	ErrNotImplemented = driver.ArangoError{
		HasError:     true,
		Code:         http.StatusNotImplemented,
		ErrorNum:     ErrorNumNotImplemented,
		ErrorMessage: "not implemented",
	}

	ErrBadParameter = driver.ArangoError{
		HasError:     true,
		Code:         http.StatusBadRequest,
		ErrorNum:     ErrorNumBadParameter,
		ErrorMessage: "bad parameter",
	}
)

// AsServerError extracts the server error envelope carried by err, if any.
func AsServerError(err error) (driver.ArangoError, bool) {
	var ae driver.ArangoError
	if errors.As(err, &ae) {
		return ae, true
	}
	return driver.ArangoError{}, false
}

// IsServerError reports whether err carries an error envelope.
func IsServerError(err error) bool {
	_, ok := AsServerError(err)
	return ok
}

// HasErrorNum reports whether err carries an error envelope with one of the given error numbers.
func HasErrorNum(err error, nums ...int) bool {
	ae, ok := AsServerError(err)
	if !ok {
		return false
	}
	for _, n := range nums {
		if ae.ErrorNum == n {
			return true
		}
	}
	return false
}

// IsNotFound reports whether err is a collection, document or index lookup miss.
func IsNotFound(err error) bool {
	ae, ok := AsServerError(err)
	if !ok {
		return false
	}

	switch ae.ErrorNum {
	case ErrorNumCollectionNotFound, ErrorNumDocumentNotFound, ErrorNumIndexNotFound, http.StatusNotFound:
		return true
	}
	return ae.Code == http.StatusNotFound && ae.ErrorNum == 0
}

// IsPreconditionFailed reports whether err is a revision mismatch.
func IsPreconditionFailed(err error) bool {
	ae, ok := AsServerError(err)
	if !ok {
		return false
	}
	return ae.ErrorNum == http.StatusPreconditionFailed || ae.Code == http.StatusPreconditionFailed
}
