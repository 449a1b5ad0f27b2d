package archive

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrBadHeader        = errors.New("archive: bad header: not a valid archive document")
	ErrRegistryMismatch = errors.New("archive: document was written against a different type registry")
	ErrSessionActive    = errors.New("archive: a session of this kind is already active on the manager")
	ErrNoSession        = errors.New("archive: no active session")
	ErrPatchUnsupported = errors.New("archive: transport cannot seek back to patch a reference slot")
	ErrTooLarge         = errors.New("archive: document too large to be compressed")

	// ErrTruncated is a format fault; it matches errors.As(err, &ErrFormat{}).
	ErrTruncated = ErrFormat{"truncated archive"}
)

// ErrFormat is returned when the archive content is malformed or does not
// agree with the registry.
type ErrFormat struct{ Err string }

// internal constants used for format faults
const (
	errBadVarint          = "bad varint"
	errBadStringSize      = "bad size for string"
	errBadStringHeader    = "bad string header"
	errUnterminatedString = "unterminated chunked string"
	errBadHeaderFlags     = "bad header flags"
	errNullReference      = "null header marked as already referenced"
	errBadHandle          = "bad reference handle"
	errDuplicateHandle    = "reference handle registered twice"
	errBadShapeLength     = "bad extended type length"
	errShapeBaseMismatch  = "extended type does not start with the header tag"
	errBadTupleArity      = "bad tuple arity"
	errBadArrayLength     = "bad array length"
	errTrailingTokens     = "trailing extended type tokens"
	errMissingShape       = "generic type without extended type"
	errBadCollectionFlag  = "unsupported collection representation"
	errNoCodec            = "type has no codec"
	errTooDeep            = "object graph nested too deeply"
	errTrailingBytes      = "trailing bytes after root object"
	errUnknownDocType     = "unknown document type"
	errBadCompressedSize  = "bad size for compressed body"
	errBadCompressedBody  = "corrupt compressed body"
)

func (e ErrFormat) Error() string { return "archive: format fault: " + e.Err }

// ErrVersion is returned when an object in the stream carries a newer
// version than its registered reader supports.
type ErrVersion struct {
	Name string
	Tag  Tag
	Got  uint16
	Max  uint16
}

func (e ErrVersion) Error() string {
	return fmt.Sprintf("archive: %s (tag %d) has version %d, reader supports up to %d", e.Name, e.Tag, e.Got, e.Max)
}

// ErrNullValue is returned when a mandatory value decodes as null.
type ErrNullValue struct{ Name string }

func (e ErrNullValue) Error() string {
	return "archive: unexpected null value for " + e.Name
}

// ErrAncestorReference is returned when a back-reference names an object
// whose read routine has not yet published itself. It points at a read
// routine that reads its children before calling Reader.ConstructorDone.
type ErrAncestorReference struct {
	Name   string
	Tag    Tag
	Handle Handle
}

func (e ErrAncestorReference) Error() string {
	return fmt.Sprintf("archive: reference to ancestor %s (tag %d, handle %d) resolved before its read routine called Reader.ConstructorDone", e.Name, e.Tag, e.Handle)
}

// ErrArgument reports misuse of the API: bad registrations, invalid
// headers, or values of types the registry cannot resolve.
type ErrArgument struct{ Err string }

func (e ErrArgument) Error() string { return "archive: invalid argument: " + e.Err }

func argumentf(format string, args ...interface{}) error {
	return ErrArgument{fmt.Sprintf(format, args...)}
}

func formatf(format string, args ...interface{}) error {
	return ErrFormat{fmt.Sprintf(format, args...)}
}
