package archive

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

type compression interface {
	compress(b []byte) ([]byte, error)
	decompress(b []byte) ([]byte, error)
	docType() documentType
}

// Encoder writes self-contained archive documents: a small header naming
// the format version, the compression and the registry fingerprint,
// followed by one root object.
type Encoder struct {
	Manager *Manager

	// Compression is SnappyCompressor, ZlibCompressor, ZstdCompressor,
	// Lz4Compressor or nil for none. Bodies shorter than CompressionThreshold are stored
	// uncompressed.
	Compression          compression
	CompressionThreshold int

	// StringChunkSize is passed on to the write session.
	StringChunkSize int
}

// NewEncoder returns an uncompressed Encoder for m.
func NewEncoder(m *Manager) *Encoder {
	return &Encoder{Manager: m, CompressionThreshold: compressionThreshold}
}

// NewEncoderCompressed returns an Encoder for m that compresses with c.
func NewEncoderCompressed(m *Manager, c compression) *Encoder {
	return &Encoder{Manager: m, Compression: c, CompressionThreshold: compressionThreshold}
}

func appendDocHeader(b []byte, dt documentType, fingerprint uint64) []byte {
	b = binary.LittleEndian.AppendUint32(b, magicHeaderBytes)
	b = append(b, byte(dt)<<4|formatVersion)
	return binary.LittleEndian.AppendUint64(b, fingerprint)
}

// Marshal returns the document encoding of v.
func (e *Encoder) Marshal(v any) ([]byte, error) {
	if e.Manager == nil {
		return nil, argumentf("encoder without a manager")
	}
	body := NewBuffer(make([]byte, 0, 64))
	if err := e.writeBody(body, v); err != nil {
		return nil, err
	}
	return e.document(body.Bytes())
}

// document prepends the document header to payload, compressing it first
// when configured to.
func (e *Encoder) document(payload []byte) ([]byte, error) {
	dt := docRaw
	if e.Compression != nil && len(payload) >= e.CompressionThreshold {
		compressed, err := e.Compression.compress(payload)
		switch {
		case errors.Is(err, errIncompressible):
		case err != nil:
			return nil, err
		default:
			dt, payload = e.Compression.docType(), compressed
		}
	}
	doc := appendDocHeader(make([]byte, 0, headerSize+len(payload)), dt, e.Manager.Fingerprint())
	return append(doc, payload...), nil
}

// Encode writes the document encoding of v to dst. Uncompressed documents
// are streamed straight to dst when it can seek back to patch reference
// slots; everything else is built in memory first.
func (e *Encoder) Encode(dst io.Writer, v any) error {
	if _, ok := dst.(io.WriteSeeker); !ok || e.Compression != nil {
		b, err := e.Marshal(v)
		if err != nil {
			return err
		}
		_, err = dst.Write(b)
		return err
	}
	if e.Manager == nil {
		return argumentf("encoder without a manager")
	}
	sw := NewStreamWriter(dst)
	if _, err := sw.Write(appendDocHeader(nil, docRaw, e.Manager.Fingerprint())); err != nil {
		return err
	}
	return e.writeBody(sw, v)
}

func (e *Encoder) writeBody(sink Sink, v any) (err error) {
	w, err := e.Manager.StartWrite(sink)
	if err != nil {
		return err
	}
	defer func() {
		if ferr := w.FinishWrite(); err == nil {
			err = ferr
		}
	}()
	w.StringChunkSize = e.StringChunkSize
	return w.WriteObject(v)
}

// Decoder reads documents written by Encoder.
type Decoder struct {
	Manager *Manager

	// IgnoreFingerprint accepts documents written against a different
	// registry. Tags that mean something else on this side then surface
	// as format faults or wrong values.
	IgnoreFingerprint bool
}

// NewDecoder returns a Decoder for m.
func NewDecoder(m *Manager) *Decoder {
	return &Decoder{Manager: m}
}

// Unmarshal decodes the root object of the document b. A null root
// decodes as nil.
func (d *Decoder) Unmarshal(b []byte) (v any, err error) {
	err = d.unmarshal(b, func(r *Reader) error {
		v, err = r.ReadObjectOrNull()
		return err
	})
	return v, err
}

// UnmarshalAs decodes the root object of the document b as a T.
func UnmarshalAs[T any](d *Decoder, b []byte) (v T, err error) {
	err = d.unmarshal(b, func(r *Reader) error {
		v, err = ReadObjectOrNullAs[T](r)
		return err
	})
	return v, err
}

// Decode reads one document from src. Uncompressed bodies are read
// through a buffered stream; compressed ones are read in full first.
// Decode consumes src to its end; bytes after the root object are a
// format fault.
func (d *Decoder) Decode(src io.Reader) (v any, err error) {
	sr := NewStreamReader(src)
	hdr, err := sr.Next(headerSize)
	if err != nil {
		return nil, ErrBadHeader
	}
	dt, err := d.checkHeader(hdr)
	if err != nil {
		return nil, err
	}
	if dt != docRaw {
		rest, err := io.ReadAll(sr.br)
		if err != nil {
			return nil, err
		}
		body, err := d.decompress(dt, rest)
		if err != nil {
			return nil, err
		}
		buf := NewBuffer(body)
		err = d.readBody(buf, func(r *Reader) error {
			v, err = r.ReadObjectOrNull()
			return err
		})
		if err == nil && buf.Len() != 0 {
			err = ErrFormat{errTrailingBytes}
		}
		return v, err
	}
	err = d.readBody(sr, func(r *Reader) error {
		v, err = r.ReadObjectOrNull()
		return err
	})
	if err != nil {
		return nil, err
	}
	switch _, err := sr.ReadByte(); err {
	case ErrTruncated:
		return v, nil
	case nil:
		return nil, ErrFormat{errTrailingBytes}
	default:
		return nil, err
	}
}

func (d *Decoder) unmarshal(b []byte, read func(r *Reader) error) error {
	if len(b) < headerSize {
		return ErrBadHeader
	}
	dt, err := d.checkHeader(b[:headerSize])
	if err != nil {
		return err
	}
	body, err := d.decompress(dt, b[headerSize:])
	if err != nil {
		return err
	}
	buf := NewBuffer(body)
	if err := d.readBody(buf, read); err != nil {
		return err
	}
	if buf.Len() != 0 {
		return ErrFormat{errTrailingBytes}
	}
	return nil
}

func (d *Decoder) checkHeader(hdr []byte) (documentType, error) {
	if d.Manager == nil {
		return 0, argumentf("decoder without a manager")
	}
	if binary.LittleEndian.Uint32(hdr) != magicHeaderBytes || hdr[4]&0x0f != formatVersion {
		return 0, ErrBadHeader
	}
	if !d.IgnoreFingerprint && binary.LittleEndian.Uint64(hdr[5:]) != d.Manager.Fingerprint() {
		return 0, ErrRegistryMismatch
	}
	return documentType(hdr[4] >> 4), nil
}

func (d *Decoder) decompress(dt documentType, body []byte) ([]byte, error) {
	var c compression
	switch dt {
	case docRaw:
		return body, nil
	case docSnappy:
		c = SnappyCompressor{}
	case docZlib:
		c = ZlibCompressor{}
	case docZstd:
		c = ZstdCompressor{}
	case docLz4:
		c = Lz4Compressor{}
	default:
		return nil, ErrFormat{errUnknownDocType}
	}
	out, err := c.decompress(body)
	if err != nil {
		return nil, fmt.Errorf("archive: decompressing document: %w", err)
	}
	return out, nil
}

func (d *Decoder) readBody(src Source, read func(r *Reader) error) (err error) {
	r, err := d.Manager.StartRead(src)
	if err != nil {
		return err
	}
	defer func() {
		if ferr := r.FinishRead(); err == nil {
			err = ferr
		}
	}()
	return read(r)
}
