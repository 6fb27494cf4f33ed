package uamodel

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/google/uuid"
)

// Zero is an io.Reader that reads an infinite stream of zero bytes.
var Zero io.Reader = zero{}

type zero struct{}

func (z zero) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

type reader interface {
	io.Reader
	io.WriterTo
	io.Closer
}

type readerPro interface {
	reader
	io.ByteReader
	io.Seeker
	Size() int
}

// Reader provides a buffered reader that simplifies reading binary data.
// It wraps bufio.Reader and tracks the first error. Subsequent reads become no-ops.
type Reader struct {
	r     readerPro
	count int64 // total bytes read
	err   error // first error encountered.
	order binary.ByteOrder
}

var _ readerPro = (*Reader)(nil)

// NewReaderSize creates a new Reader with a specified buffer size.
func NewReaderSize(r io.Reader, size int) (*Reader, error) {
	if r == nil {
		return nil, ErrNilIO
	}

	switch reader := r.(type) {
	// Reuse the underlying buffer if it's already a compatible Reader.
	case *Reader:
		if reader.r.Size() >= size {
			return &Reader{r: reader.r, order: Order}, nil
		}

	// prevent unpredictable double-buffering.
	case *bufio.Reader:
		if reader.Size() >= size {
			return &Reader{r: &bufioReaderAdapter{Reader: reader}, order: Order}, nil
		}
		return nil, ErrAlreadyBuffered

	// underlying is a buf so we don't need buffering
	case *BytesReader:
		return &Reader{r: reader, order: Order}, nil
	case *bytes.Reader:
		return &Reader{r: &bytesReaderAdapter{reader}, order: Order}, nil
	case *bytes.Buffer:
		return &Reader{r: &bytesBufferReaderAdapter{Buffer: reader}, order: Order}, nil
	}

	if size == 0 {
		size = BUFFER_SIZE
	}
	if size < 16 {
		return nil, ErrSizeTooSmall
	}

	// default use bufio
	return &Reader{
		r:     &bufioReaderAdapter{Reader: bufio.NewReaderSize(r, size), seeker: ForwardSeeker(r)},
		order: Order,
	}, nil
}

// NewReader creates a new Reader with a default buffer size.
func NewReader(r io.Reader) (*Reader, error) {
	return NewReaderSize(r, 0)
}

// NewUnbufferedReader creates a Reader that never reads ahead of what is
// asked for. Use it when the stream carries more than one message and
// buffered read-ahead would steal bytes from the next one.
func NewUnbufferedReader(r io.Reader) (*Reader, error) {
	if r == nil {
		return nil, ErrNilIO
	}
	switch reader := r.(type) {
	case *Reader:
		return &Reader{r: reader.r, order: Order}, nil
	case *BytesReader:
		return &Reader{r: reader, order: Order}, nil
	}
	return &Reader{r: &rawReaderAdapter{r: r}, order: Order}, nil
}

// WithByteOrder allows setting a custom byte order and returns
// the configured for chaining.
func (r *Reader) WithByteOrder(order binary.ByteOrder) *Reader {
	r.order = order
	return r
}

// Close closes the underlying reader if it implements io.Closer.
func (r *Reader) Close() error {
	return r.r.Close()
}

// Read implements the io.Reader interface.
func (r *Reader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	n, err := r.r.Read(p)
	r.count += int64(n)
	r.setError(err)
	return n, r.err
}

// Seek moves the read pointer.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	if r.err != nil {
		return r.count, r.err
	}
	newPos, err := r.r.Seek(offset, whence)
	r.count = newPos
	r.setError(err)
	return newPos, err
}

// WriteTo implements io.WriterTo for efficient copying.
func (r *Reader) WriteTo(w io.Writer) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	if w == nil {
		r.setError(ErrWriteToNil)
		return 0, r.err
	}

	n, err := r.r.WriteTo(w)
	r.count += n
	r.setError(err)
	return n, r.err
}

func (r *Reader) Size() int    { return r.r.Size() }
func (r *Reader) Count() int64 { return r.count }
func (r *Reader) Err() error   { return r.err }
func (r *Reader) IsEOF() bool  { return r.err == io.EOF }

// setError records the first non-nil error.
func (r *Reader) setError(err error) {
	if r.err == nil && err != nil {
		r.err = err
	}
}

// Result returns the total bytes read and the final error state.
func (r *Reader) Result() (int64, error) {
	return r.count, r.err
}

// ReadTo reads data from this reader into an io.ReaderFrom.
func (r *Reader) ReadTo(w io.ReaderFrom) {
	if r.err != nil {
		return
	}
	if w == nil {
		r.setError(ErrReadToNil)
		return
	}
	n, err := w.ReadFrom(r.r)
	r.count += n
	r.setError(err)
}

// readFull is an internal helper to read an exact number of bytes.
func (r *Reader) readFull(n int) []byte {
	if r.err != nil {
		return nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.EOF {
			// To provide a more specific error for callers;
			// a partial read is different from a clean end-of-stream.
			r.err = io.ErrUnexpectedEOF
		} else {
			r.err = err
		}
		return nil
	}
	return buf
}

// ReadBytes reads n bytes and returns a new byte slice.
func (r *Reader) ReadBytes(n int) []byte {
	if n <= 0 {
		return nil
	}
	return r.readFull(n)
}

func (r *Reader) ReadBytesTo(dest []byte) {
	if r.err != nil {
		return
	}
	if len(dest) == 0 {
		return
	}
	if _, err := io.ReadFull(r, dest); err != nil {
		r.err = err
	}
}

// Align discard bytes until offset algin with give n.
func (r *Reader) Align(n int) {
	if n > 1 {
		Discard(r, Roundup(r.count, int64(n))-r.count)
	}
}

// --- Primitive Read Operations ---

func (r *Reader) ReadBool(dest *bool) {
	if r.err != nil {
		return
	}
	b, err := r.r.ReadByte()
	if err == nil {
		r.count++
		*dest = b != 0
	} else {
		r.err = err
	}
}

func (r *Reader) ReadByte() (byte, error) {
	if r.err != nil {
		return 0, r.err
	}
	b, err := r.r.ReadByte()
	if err == nil {
		r.count++
	} else {
		r.err = err
	}
	return b, err
}

func (r *Reader) ReadUint8(dest *uint8) {
	if r.err != nil {
		return
	}
	b, err := r.r.ReadByte()
	if err == nil {
		r.count++
		*dest = b
	} else {
		r.err = err
	}
}

func (r *Reader) ReadUint16(dest *uint16) {
	buf := r.readFull(2)
	if r.err == nil {
		*dest = r.order.Uint16(buf)
	}
}

func (r *Reader) ReadUint32(dest *uint32) {
	buf := r.readFull(4)
	if r.err == nil {
		*dest = r.order.Uint32(buf)
	}
}

func (r *Reader) ReadUint64(dest *uint64) {
	buf := r.readFull(8)
	if r.err == nil {
		*dest = r.order.Uint64(buf)
	}
}

func (r *Reader) ReadInt8(dest *int8) {
	if r.err != nil {
		return
	}
	b, err := r.r.ReadByte()
	if err == nil {
		r.count++
		*dest = int8(b)
	} else {
		r.err = err
	}
}

func (r *Reader) ReadInt16(dest *int16) {
	buf := r.readFull(2)
	if r.err == nil {
		*dest = int16(r.order.Uint16(buf))
	}
}

func (r *Reader) ReadInt32(dest *int32) {
	buf := r.readFull(4)
	if r.err == nil {
		*dest = int32(r.order.Uint32(buf))
	}
}

func (r *Reader) ReadInt64(dest *int64) {
	buf := r.readFull(8)
	if r.err == nil {
		*dest = int64(r.order.Uint64(buf))
	}
}

func (r *Reader) ReadFloat32(dest *float32) {
	var bits uint32
	r.ReadUint32(&bits)
	if r.err == nil {
		*dest = math.Float32frombits(bits)
	}
}

func (r *Reader) ReadFloat64(dest *float64) {
	var bits uint64
	r.ReadUint64(&bits)
	if r.err == nil {
		*dest = math.Float64frombits(bits)
	}
}

// --- Protocol Scalar Read Operations ---

// ReadPrefixedString reads the protocol's String scalar. A length of -1
// (null) decodes as the empty string.
func (r *Reader) ReadPrefixedString(dest *string) {
	var n int32
	r.ReadInt32(&n)
	if r.err != nil {
		return
	}
	if n <= 0 {
		*dest = ""
		return
	}
	if n > MAX_ARRAY_LENGTH {
		r.setError(fmt.Errorf("%w: string length %d exceeds %d", ErrValue, n, MAX_ARRAY_LENGTH))
		return
	}
	buf := r.readFull(int(n))
	if r.err == nil {
		*dest = string(buf)
	}
}

// ReadPrefixedBytes reads the protocol's ByteString scalar. A length of -1
// decodes as a nil slice.
func (r *Reader) ReadPrefixedBytes(dest *[]byte) {
	var n int32
	r.ReadInt32(&n)
	if r.err != nil {
		return
	}
	if n < 0 {
		*dest = nil
		return
	}
	if n == 0 {
		*dest = []byte{}
		return
	}
	if n > MAX_ARRAY_LENGTH {
		r.setError(fmt.Errorf("%w: byte string length %d exceeds %d", ErrValue, n, MAX_ARRAY_LENGTH))
		return
	}
	*dest = r.readFull(int(n))
}

// timeFromTicks is the decode inverse of dateTimeTicks. Tick 0 is the
// wire's "no value" and becomes the zero time; negative ticks are invalid
// and collapse there too. Seconds and the sub-second remainder split with
// floor semantics so pre-1970 ticks convert exactly.
func timeFromTicks(ticks int64) time.Time {
	if ticks <= 0 {
		return time.Time{}
	}
	if ticks > maxDateTimeTicks {
		ticks = maxDateTimeTicks
	}
	delta := ticks - unixEpochTicks
	sec, rem := delta/1e7, delta%1e7
	if rem < 0 {
		sec--
		rem += 1e7
	}
	return time.Unix(sec, rem*100).UTC()
}

// ReadDateTime reads the protocol's DateTime scalar.
func (r *Reader) ReadDateTime(dest *time.Time) {
	var ticks int64
	r.ReadInt64(&ticks)
	if r.err != nil {
		return
	}
	*dest = timeFromTicks(ticks)
}

// ReadGuid reads the protocol's Guid scalar, undoing the mixed-endian
// layout written by WriteGuid.
func (r *Reader) ReadGuid(dest *uuid.UUID) {
	var d1 uint32
	var d2, d3 uint16
	r.ReadUint32(&d1)
	r.ReadUint16(&d2)
	r.ReadUint16(&d3)
	tail := r.readFull(8)
	if r.err != nil {
		return
	}
	var g uuid.UUID
	BE.PutUint32(g[0:4], d1)
	BE.PutUint16(g[4:6], d2)
	BE.PutUint16(g[6:8], d3)
	copy(g[8:16], tail)
	*dest = g
}

// ReadArrayLen reads the shared array framing written by WriteArrayLen.
// -1 denotes a nil array. Counts beyond MAX_ARRAY_LENGTH latch ErrValue.
func (r *Reader) ReadArrayLen(dest *int) {
	var n int32
	r.ReadInt32(&n)
	if r.err != nil {
		return
	}
	if n > MAX_ARRAY_LENGTH {
		r.setError(fmt.Errorf("%w: array length %d exceeds %d", ErrValue, n, MAX_ARRAY_LENGTH))
		return
	}
	if n < 0 {
		n = -1
	}
	*dest = int(n)
}
