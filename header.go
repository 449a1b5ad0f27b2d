package archive

// Header precedes every object in an archive.
type Header struct {
	Tag               Tag
	CanBeReference    bool
	IsNull            bool
	AlreadyReferenced bool
	IsExtended        bool
	Version           uint16

	// Shape is the extended-type token sequence, set when IsExtended.
	Shape []Tag

	// Handle is the reference slot: the referenced object's handle when
	// AlreadyReferenced, otherwise this object's own handle (0 when it is
	// never referenced again). NoHandle when the header has no slot.
	Handle Handle
}

// header word layout: tag<<8 | flags
const (
	flagCanBeReference    = 1 << 0
	flagNull              = 1 << 1
	flagAlreadyReferenced = 1 << 2
	flagExtended          = 1 << 3
	flagReserved          = 1 << 4

	shortVersionShift = 5
	maxShortVersion   = 7
)

func (h *Header) validate() error {
	switch {
	case h.Tag > LastValidTag:
		return argumentf("tag %d is above LastValidTag", h.Tag)
	case h.Version < 1:
		return argumentf("version must be at least 1 (tag %d)", h.Tag)
	case h.IsNull && h.AlreadyReferenced:
		return argumentf("null header cannot be already referenced (tag %d)", h.Tag)
	case h.IsNull && h.IsExtended:
		return argumentf("null header cannot carry an extended type (tag %d)", h.Tag)
	case h.AlreadyReferenced && !h.CanBeReference:
		return argumentf("already referenced header must allow references (tag %d)", h.Tag)
	case h.AlreadyReferenced && h.Handle <= 0:
		return argumentf("already referenced header needs a handle (tag %d)", h.Tag)
	case h.IsExtended && (len(h.Shape) == 0 || len(h.Shape) > MaxShapeTokens):
		return argumentf("extended header needs 1 to %d shape tokens (tag %d)", MaxShapeTokens, h.Tag)
	case h.IsExtended && h.Shape[0] != h.Tag:
		return argumentf("shape %v does not start with tag %d", h.Shape, h.Tag)
	}
	return nil
}

// WriteHeader validates and writes h. When the header carries a reference
// slot, WriteHeader returns the slot position; otherwise it returns -1.
// The slot holds h.Handle for already-referenced headers and the
// placeholder 0 otherwise.
func (w *Writer) WriteHeader(h Header) (int64, error) {
	if err := h.validate(); err != nil {
		return -1, err
	}
	var flags uint32
	if h.CanBeReference {
		flags |= flagCanBeReference
	}
	if h.IsNull {
		flags |= flagNull
	}
	if h.AlreadyReferenced {
		flags |= flagAlreadyReferenced
	}
	if h.IsExtended {
		flags |= flagExtended
	}
	if h.Version <= maxShortVersion {
		flags |= uint32(h.Version) << shortVersionShift
	}
	if err := w.WriteVarUint32(uint32(h.Tag)<<8 | flags); err != nil {
		return -1, err
	}
	if h.Version > maxShortVersion && !h.IsNull {
		if err := w.WriteUint16(h.Version); err != nil {
			return -1, err
		}
	}
	if h.IsExtended {
		if err := w.WriteVarUint32(uint32(len(h.Shape))); err != nil {
			return -1, err
		}
		for _, tok := range h.Shape {
			if err := w.WriteVarUint32(uint32(tok)); err != nil {
				return -1, err
			}
		}
	}
	if !h.CanBeReference || h.IsNull {
		return -1, nil
	}
	pos := w.sink.Pos()
	var slot int32
	if h.AlreadyReferenced {
		slot = int32(h.Handle)
	}
	return pos, w.WriteInt32(slot)
}

// ReadHeader reads the next object header, its extended-type tokens and
// its reference slot.
func (r *Reader) ReadHeader() (Header, error) {
	h := Header{Handle: NoHandle}
	word, err := r.ReadVarUint32()
	if err != nil {
		return h, err
	}
	flags := word & 0xff
	h.Tag = Tag(word >> 8)
	if flags&flagReserved != 0 || h.Tag > LastValidTag {
		return h, ErrFormat{errBadHeaderFlags}
	}
	h.CanBeReference = flags&flagCanBeReference != 0
	h.IsNull = flags&flagNull != 0
	h.AlreadyReferenced = flags&flagAlreadyReferenced != 0
	h.IsExtended = flags&flagExtended != 0
	h.Version = uint16(flags >> shortVersionShift)

	if h.IsNull && (h.AlreadyReferenced || h.IsExtended) {
		return h, ErrFormat{errNullReference}
	}
	if h.AlreadyReferenced && !h.CanBeReference {
		return h, ErrFormat{errBadHeaderFlags}
	}
	if h.Version == 0 && !h.IsNull {
		if h.Version, err = r.ReadUint16(); err != nil {
			return h, err
		}
		if h.Version <= maxShortVersion {
			return h, ErrFormat{errBadHeaderFlags}
		}
	}
	if h.IsExtended {
		n, err := r.ReadVarUint32()
		if err != nil {
			return h, err
		}
		if n == 0 || n > MaxShapeTokens {
			return h, ErrFormat{errBadShapeLength}
		}
		h.Shape = make([]Tag, n)
		for i := range h.Shape {
			tok, err := r.ReadVarUint32()
			if err != nil {
				return h, err
			}
			h.Shape[i] = Tag(tok)
		}
		if h.Shape[0] != h.Tag {
			return h, ErrFormat{errShapeBaseMismatch}
		}
	}
	if h.CanBeReference && !h.IsNull {
		slot, err := r.ReadInt32()
		if err != nil {
			return h, err
		}
		if slot < 0 || (h.AlreadyReferenced && slot == 0) {
			return h, ErrFormat{errBadHandle}
		}
		h.Handle = Handle(slot)
	}
	return h, nil
}
