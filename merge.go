package archive

// A Merger collects several values into one document whose root is a
// []any holding them in order. All values share one write session, so an
// object reachable from more than one of them is stored once and keeps its
// identity when the document is read back.
//
// The Merger holds the Manager's write session from NewMerger until Finish.
type Merger struct {
	enc         *Encoder
	w           *Writer
	body        *Buffer
	numElements int
	finalized   bool
}

// NewMerger opens a write session on e.Manager for a merged document.
func NewMerger(e *Encoder) (*Merger, error) {
	if e.Manager == nil {
		return nil, argumentf("encoder without a manager")
	}
	body := NewBuffer(make([]byte, 0, 64))
	w, err := e.Manager.StartWrite(body)
	if err != nil {
		return nil, err
	}
	w.StringChunkSize = e.StringChunkSize
	return &Merger{enc: e, w: w, body: body}, nil
}

// Append adds v as the next element. After a failed Append the merged
// document is unusable; Finish still closes the session.
func (m *Merger) Append(v any) error {
	if m.finalized {
		return ErrNoSession
	}
	if err := m.w.WriteObject(v); err != nil {
		return err
	}
	m.numElements++
	return nil
}

// Len returns the number of values appended so far.
func (m *Merger) Len() int { return m.numElements }

// Finish closes the session and returns the document.
func (m *Merger) Finish() ([]byte, error) {
	if m.finalized {
		return nil, ErrNoSession
	}
	m.finalized = true
	if err := m.w.FinishWrite(); err != nil {
		return nil, err
	}

	// The list header goes in front of the already patched elements;
	// handles are not positional, so nothing needs to move.
	head := NewBuffer(make([]byte, 0, 16))
	w, err := m.enc.Manager.StartWrite(head)
	if err != nil {
		return nil, err
	}
	_, err = w.WriteHeader(Header{
		Tag:        TagList,
		Version:    1,
		IsExtended: true,
		Shape:      []Tag{TagList, TagObject},
	})
	if err == nil {
		err = w.WriteVarUint32(uint32(m.numElements))
	}
	if err == nil {
		err = w.WriteVarUint32(uint32(TagObject))
	}
	if ferr := w.FinishWrite(); err == nil {
		err = ferr
	}
	if err != nil {
		return nil, err
	}
	return m.enc.document(append(head.Bytes(), m.body.Bytes()...))
}
