package naming

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPath is wrapped by NamingError when the directory layout
	// does not match .../<FormatDir>/<NodeName>/<FileName>.
	ErrInvalidPath = errors.New("invalid file path")

	// ErrInvalidFileName is wrapped by NamingError when the file name does
	// not follow the PM naming convention.
	ErrInvalidFileName = errors.New("invalid file name")
)

// NamingError reports a path or file name that cannot be rewritten.
type NamingError struct {
	Path   string // Path that failed validation
	Reason string // Human-readable reason
	Err    error  // ErrInvalidPath or ErrInvalidFileName
}

// Error implements the error interface.
func (e *NamingError) Error() string {
	return fmt.Sprintf("%v %q: %s", e.Err, e.Path, e.Reason)
}

// Unwrap returns the sentinel error.
func (e *NamingError) Unwrap() error {
	return e.Err
}

func pathError(path, reason string) *NamingError {
	return &NamingError{Path: path, Reason: reason, Err: ErrInvalidPath}
}

func fileNameError(path, reason string) *NamingError {
	return &NamingError{Path: path, Reason: reason, Err: ErrInvalidFileName}
}
