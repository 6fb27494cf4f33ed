package uamodel

import "errors"

// Compile-time and construction-time failure taxonomy. Callers are expected
// to test with errors.Is; every error produced by this package wraps exactly
// one of these sentinels.
var (
	// ErrSchema indicates a malformed schema: empty or duplicate field names,
	// an unknown field category, an unresolvable built-in type. Fatal at
	// compile time.
	ErrSchema = errors.New("uamodel: malformed schema")

	// ErrConfiguration indicates a schema that is well-formed but cannot be
	// compiled into a serializable type: no binary encoding identifier could
	// be resolved, or a custom decode was supplied without a matching
	// decode-debug path. Fatal at compile time, before any instance exists.
	ErrConfiguration = errors.New("uamodel: invalid type configuration")

	// ErrValue indicates a per-instance value failure: an enumeration raw
	// value matching no declared member, an out-of-range numeric literal,
	// or an option naming no field in strict mode.
	ErrValue = errors.New("uamodel: invalid value")

	// ErrType indicates a shape mismatch at construction: a scalar where a
	// sequence is required, or a value of the wrong dynamic type.
	ErrType = errors.New("uamodel: value has wrong type")

	// ErrNotFound indicates a registry or catalog lookup miss. Callers must
	// surface this as a missing dependency, never dereference around it.
	ErrNotFound = errors.New("uamodel: definition not found")

	// ErrConflict indicates an attempt to register a divergent definition
	// under an already-registered name.
	ErrConflict = errors.New("uamodel: conflicting registration")
)

// Stream-level errors.
var (
	// ErrNilIO indicates that NewReader/NewWriter was called with a nil interface.
	ErrNilIO = errors.New("uamodel: NewReader/NewWriter called with a nil io.Reader/io.Writer")

	// ErrSizeTooSmall indicates a size conflict with bufio.
	ErrSizeTooSmall = errors.New("uamodel: NewReaderSize with a size smaller than 16 conflict with bufio")

	// ErrAlreadyBuffered indicates that NewReader/NewWriter was called with an already-buffered
	// reader/writer, which would lead to unpredictable behavior and performance issues.
	ErrAlreadyBuffered = errors.New("uamodel: reader or writer is already buffered")

	// ErrWriteToNil indicates a WriteTo operation was attempted on a nil io.Writer.
	ErrWriteToNil = errors.New("uamodel: WriteTo called with a nil io.Writer")

	// ErrReadToNil indicates a ReadTo operation was attempted on a nil io.ReaderFrom.
	ErrReadToNil = errors.New("uamodel: ReadTo called with a nil io.ReaderFrom")

	// ErrInvalidSeek indicates a seek was attempted to invalid position.
	ErrInvalidSeek = errors.New("uamodel: seek to a invalid position")

	// ErrUnsupportedNegativeSeek indicates a backward seek was attempted on a forward-only seeker.
	ErrUnsupportedNegativeSeek = errors.New("uamodel: unsupported negative offset for forward-only seeker")

	// ErrInvalidWhence indicates that an invalid 'whence' parameter was provided to a Seek operation.
	ErrInvalidWhence = errors.New("uamodel: unsupported whence for forward-only seeker")

	// ErrInvalidWrite indicates that an io.Writer returned an invalid (negative) count from Write.
	ErrInvalidWrite = errors.New("uamodel: writer returned invalid count from Write")

	// ErrInvalidRead indicates that an io.Reader returned an invalid (negative or outbound) count from Read.
	ErrInvalidRead = errors.New("uamodel: reader returned invalid count from Read")

	// ErrDiscardNegative indicates a Discard operation was attempted with a negative byte count.
	ErrDiscardNegative = errors.New("uamodel: cannot discard negative number of bytes")

	// ErrTrailingData is returned by UnmarshalBinary when bytes remain after
	// the expected end of the decoded object, indicating a layout mismatch
	// between the encoder's and decoder's schemas.
	ErrTrailingData = errors.New("uamodel: trailing data found after decoding")
)
