package mtp

import (
	"errors"
	"fmt"
)

// ErrDeleteIneffective reports that a backend claimed a delete succeeded
// but the entry was still present when re-checked. Surfaced instead of a
// silent success.
var ErrDeleteIneffective = errors.New("delete reported success but target still exists")

// ErrNotAFolder reports an operation that needs a folder was given a file.
var ErrNotAFolder = errors.New("not a folder")

// ErrIsAFolder reports an operation that needs a file was given a folder.
var ErrIsAFolder = errors.New("is a folder")

// PathNotFoundError reports a resolution failure. It names the single
// segment that could not be found, not the whole path.
type PathNotFoundError struct {
	Path    string // path being resolved
	Segment string // component that failed to match
}

func (e *PathNotFoundError) Error() string {
	return fmt.Sprintf("path %q: segment %q not found", e.Path, e.Segment)
}

// IsNotFound reports whether err is a resolution failure.
func IsNotFound(err error) bool {
	var nf *PathNotFoundError
	return errors.As(err, &nf)
}

// NormalizationError reports a backend property that could not be mapped
// onto the canonical schema (out-of-range timestamp, unknown type tag).
// Values are never silently truncated.
type NormalizationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("cannot normalize %s %q: %s", e.Field, e.Value, e.Reason)
}

// TransferError wraps a failed transfer, delete or size operation.
type TransferError struct {
	Op   string // "download", "upload", "remove", "size", "mkdirs"
	Path string
	Err  error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Path, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}
