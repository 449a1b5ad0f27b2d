package archive

// Tag identifies a type within an archive. Tags are persisted, so a tag
// must never be renumbered once archives using it exist.
type Tag uint32

const (
	// TagExtendedFlag marks a shape token whose type is itself generic and
	// is followed by its own expansion.
	TagExtendedFlag Tag = 1 << 23
	LastValidTag        = TagExtendedFlag - 1
)

// built-in primitives
const (
	TagNone Tag = iota // untyped null
	TagBool
	TagInt8
	TagUint8
	TagInt16
	TagUint16
	TagInt32
	TagUint32
	TagInt64
	TagUint64
	TagFloat32
	TagFloat64
	TagString
	TagBytes

	// TagObject stands for the empty interface in shapes.
	TagObject Tag = 63
)

// built-in containers
const (
	TagList Tag = 64 + iota
	TagMap
	TagSet
	TagArray
	TagTuple      // *Tuple1 .. *Tuple7, reference semantics
	TagValueTuple // Tuple1 .. Tuple7, value semantics
	TagDelegate
)

const (
	TagTestFirst   Tag = 200
	TagTestLast    Tag = 239
	TagCustomFirst Tag = 256
)

// Handle identifies an object referenced more than once in a session.
type Handle int32

// NoHandle is reported for headers that carry no reference slot.
const NoHandle Handle = -1

const (
	MaxShapeTokens  = 64
	MaxStringLength = 1 << 30
	MaxTupleArity   = 7
	DefaultMaxDepth = 1024
)

// array limits; lengths stay clear of TagExtendedFlag in shape tokens
const (
	maxArrayLength = 1 << 20
	maxArrayBytes  = 1 << 30
)

const magicHeaderBytes = uint32(0x6372613d) // "=arc"

const formatVersion = 1

type documentType byte

const (
	docRaw documentType = iota
	docSnappy
	docZlib
	docZstd
	docLz4
)

// magic + doctype/version byte + registry fingerprint
const headerSize = 4 + 1 + 8

const compressionThreshold = 1024

// first allocation when inflating a body; the uncompressed length in the
// body is not trusted beyond this
const maxInflatePrealloc = 1 << 20

// string length field values that carry no length
const (
	nullString    = 0
	chunkedString = 2
)
