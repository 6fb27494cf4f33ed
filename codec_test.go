package uamodel

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// --- Writer Test Suite ---

type WriterTestSuite struct {
	suite.Suite
	buf    *bytes.Buffer
	writer *Writer
}

// SetupTest runs before each test in the suite, ensuring a clean state.
func (s *WriterTestSuite) SetupTest() {
	s.buf = &bytes.Buffer{}
	s.writer, _ = NewWriter(s.buf)
}

func (s *WriterTestSuite) TestConstructors() {
	s.T().Run("ErrorsOnNilWriter", func(t *testing.T) {
		_, err := NewWriter(nil)
		assert.ErrorIs(t, err, ErrNilIO)
	})
}

func (s *WriterTestSuite) TestBasicWrites() {
	s.writer.WriteUint8(0xAA)
	s.writer.WriteUint16(0xBBCC)
	s.writer.WriteUint32(0xDDEEFF00)
	s.writer.WriteUint64(0x0102030405060708)
	s.writer.WriteBytes([]byte{5, 6, 7})
	s.writer.WriteZeros(2)

	n, err := s.writer.Result()
	s.Require().NoError(err)
	s.Assert().EqualValues(1+2+4+8+3+2, n)
	s.Assert().EqualValues(s.buf.Len(), s.writer.Count())

	expected := []byte{
		0xAA,       // WriteUint8
		0xCC, 0xBB, // WriteUint16 (little endian)
		0x00, 0xFF, 0xEE, 0xDD, // WriteUint32
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01, // WriteUint64
		5, 6, 7, // WriteBytes
		0, 0, // WriteZeros
	}
	s.Assert().Equal(expected, s.buf.Bytes())
}

func (s *WriterTestSuite) TestPrefixedWrites() {
	s.T().Run("String", func(t *testing.T) {
		buf := &bytes.Buffer{}
		w, _ := NewWriter(buf)
		w.WritePrefixedString("水boy")
		_, err := w.Result()
		require.NoError(t, err)
		assert.Equal(t, append([]byte{6, 0, 0, 0}, []byte("水boy")...), buf.Bytes())
	})

	s.T().Run("NilBytesEncodeAsMinusOne", func(t *testing.T) {
		buf := &bytes.Buffer{}
		w, _ := NewWriter(buf)
		w.WritePrefixedBytes(nil)
		_, err := w.Result()
		require.NoError(t, err)
		assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF}, buf.Bytes())
	})

	s.T().Run("EmptyBytesEncodeAsZero", func(t *testing.T) {
		buf := &bytes.Buffer{}
		w, _ := NewWriter(buf)
		w.WritePrefixedBytes([]byte{})
		_, err := w.Result()
		require.NoError(t, err)
		assert.Equal(t, []byte{0, 0, 0, 0}, buf.Bytes())
	})
}

func (s *WriterTestSuite) TestDateTime() {
	// 100 ns ticks since 1601-01-01; the Unix epoch is a known constant.
	s.writer.WriteDateTime(time.Unix(0, 0).UTC())
	_, err := s.writer.Result()
	s.Require().NoError(err)

	r, _ := NewReader(bytes.NewReader(s.buf.Bytes()))
	var ticks int64
	r.ReadInt64(&ticks)
	s.Require().NoError(r.Err())
	s.Assert().EqualValues(116444736000000000, ticks)
}

func (s *WriterTestSuite) TestGuidLayout() {
	// The first three groups are little endian, the rest big endian.
	g := uuid.MustParse("72962B91-FA75-4AE6-8D28-B404DC7DAF63")
	s.writer.WriteGuid(g)
	_, err := s.writer.Result()
	s.Require().NoError(err)

	expected := []byte{
		0x91, 0x2B, 0x96, 0x72,
		0x75, 0xFA,
		0xE6, 0x4A,
		0x8D, 0x28, 0xB4, 0x04, 0xDC, 0x7D, 0xAF, 0x63,
	}
	s.Assert().Equal(expected, s.buf.Bytes())
}

func (s *WriterTestSuite) TestErrorHandling() {
	s.T().Run("ShortBufferError", func(t *testing.T) {
		fixedBuf := make([]byte, 5)
		writer, _ := NewWriter(NewBytesWriter(fixedBuf))

		writer.WriteUint32(0x11223344)
		writer.WriteUint32(0xAABBCCDD)

		_, err := writer.Result()
		require.Error(t, err, "Error should be present after flush")
		assert.ErrorIs(t, err, io.ErrShortWrite)
	})

	s.T().Run("WriteAfterErrorIsNoOp", func(t *testing.T) {
		fixedBuf := make([]byte, 5)
		writer, _ := NewWriter(NewBytesWriter(fixedBuf))

		writer.WriteUint32(0x11223344)
		writer.WriteUint32(0xAABBCCDD)
		writer.Flush()

		firstErr := writer.Err()
		require.ErrorIs(t, firstErr, io.ErrShortWrite)

		// Latched: subsequent writes must not disturb the first error.
		writer.WriteUint8(0xFF)
		writer.Flush()
		assert.Equal(t, firstErr, writer.Err())
	})
}

func TestWriterSuite(t *testing.T) {
	suite.Run(t, new(WriterTestSuite))
}

// --- Reader Test Suite ---

type ReaderTestSuite struct {
	suite.Suite
}

func (s *ReaderTestSuite) read(data []byte) *Reader {
	r, err := NewReader(NewBytesReader(data))
	s.Require().NoError(err)
	return r
}

func (s *ReaderTestSuite) TestConstructors() {
	s.T().Run("ErrorsOnNilReader", func(t *testing.T) {
		_, err := NewReader(nil)
		assert.ErrorIs(t, err, ErrNilIO)
	})
	s.T().Run("ErrorsOnTinyBuffer", func(t *testing.T) {
		_, err := NewReaderSize(io.LimitReader(bytes.NewBufferString("x"), 1), 8)
		assert.ErrorIs(t, err, ErrSizeTooSmall)
	})
	s.T().Run("PlainReaderGetsDefaultBuffer", func(t *testing.T) {
		r, err := NewReader(bytes.NewBufferString("ok"))
		require.NoError(t, err)
		var b [2]byte
		r.ReadBytesTo(b[:])
		require.NoError(t, r.Err())
		assert.Equal(t, "ok", string(b[:]))
	})
}

func (s *ReaderTestSuite) TestBasicReads() {
	data := []byte{
		0xAA,
		0xCC, 0xBB,
		0x00, 0xFF, 0xEE, 0xDD,
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01,
	}
	r := s.read(data)

	var u8 uint8
	var u16 uint16
	var u32 uint32
	var u64 uint64
	r.ReadUint8(&u8)
	r.ReadUint16(&u16)
	r.ReadUint32(&u32)
	r.ReadUint64(&u64)

	n, err := r.Result()
	s.Require().NoError(err)
	s.Assert().EqualValues(len(data), n)
	s.Assert().EqualValues(0xAA, u8)
	s.Assert().EqualValues(0xBBCC, u16)
	s.Assert().EqualValues(0xDDEEFF00, u32)
	s.Assert().EqualValues(0x0102030405060708, u64)
}

func (s *ReaderTestSuite) TestPrefixedReads() {
	s.T().Run("String", func(t *testing.T) {
		r, _ := NewReader(NewBytesReader(append([]byte{6, 0, 0, 0}, []byte("水boy")...)))
		var str string
		r.ReadPrefixedString(&str)
		require.NoError(t, r.Err())
		assert.Equal(t, "水boy", str)
	})

	s.T().Run("NegativeLengthStringIsEmpty", func(t *testing.T) {
		r, _ := NewReader(NewBytesReader([]byte{0xFF, 0xFF, 0xFF, 0xFF}))
		var str string
		r.ReadPrefixedString(&str)
		require.NoError(t, r.Err())
		assert.Equal(t, "", str)
	})

	s.T().Run("MinusOneBytesAreNil", func(t *testing.T) {
		r, _ := NewReader(NewBytesReader([]byte{0xFF, 0xFF, 0xFF, 0xFF}))
		var b []byte
		r.ReadPrefixedBytes(&b)
		require.NoError(t, r.Err())
		assert.Nil(t, b)
	})

	s.T().Run("ZeroBytesAreEmptyNotNil", func(t *testing.T) {
		r, _ := NewReader(NewBytesReader([]byte{0, 0, 0, 0}))
		var b []byte
		r.ReadPrefixedBytes(&b)
		require.NoError(t, r.Err())
		require.NotNil(t, b)
		assert.Len(t, b, 0)
	})
}

func (s *ReaderTestSuite) TestArrayLen() {
	s.T().Run("NegativeMeansNilArray", func(t *testing.T) {
		r, _ := NewReader(NewBytesReader([]byte{0xFF, 0xFF, 0xFF, 0xFF}))
		var n int
		r.ReadArrayLen(&n)
		require.NoError(t, r.Err())
		assert.Equal(t, -1, n)
	})

	s.T().Run("HugeCountRejected", func(t *testing.T) {
		r, _ := NewReader(NewBytesReader([]byte{0xFF, 0xFF, 0xFF, 0x7F}))
		var n int
		r.ReadArrayLen(&n)
		assert.ErrorIs(t, r.Err(), ErrValue)
	})
}

func (s *ReaderTestSuite) TestDateTimeRoundTrip() {
	now := canonicalTime(time.Now())
	buf := &bytes.Buffer{}
	w, _ := NewWriter(buf)
	w.WriteDateTime(now)
	_, err := w.Result()
	s.Require().NoError(err)

	var got time.Time
	r := s.read(buf.Bytes())
	r.ReadDateTime(&got)
	s.Require().NoError(r.Err())
	s.Assert().True(now.Equal(got))
}

func (s *ReaderTestSuite) TestDateTimeWideRange() {
	// Dates outside the int64-nanosecond window (~1678-2262) must convert
	// exactly: the tick math runs on whole seconds, never on UnixNano.
	cases := []time.Time{
		time.Date(1601, 1, 2, 0, 0, 0, 0, time.UTC),
		time.Date(1611, 5, 14, 6, 30, 0, 500, time.UTC),
		time.Date(1969, 12, 31, 23, 59, 59, 999999900, time.UTC),
		time.Date(3000, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(9999, 12, 31, 23, 59, 59, 999999900, time.UTC),
	}
	for _, want := range cases {
		s.T().Run(want.Format("2006-01-02"), func(t *testing.T) {
			canonical := canonicalTime(want)
			require.True(t, want.Equal(canonical), "canonicalTime moved the instant: %v -> %v", want, canonical)

			buf := &bytes.Buffer{}
			w, _ := NewWriter(buf)
			w.WriteDateTime(want)
			_, err := w.Result()
			require.NoError(t, err)

			var got time.Time
			r, _ := NewReader(NewBytesReader(buf.Bytes()))
			r.ReadDateTime(&got)
			require.NoError(t, r.Err())
			assert.True(t, want.Equal(got), "want %v, got %v", want, got)
		})
	}
}

func (s *ReaderTestSuite) TestDateTimeRangeClamps() {
	s.T().Run("BeforeEpochIsNoValue", func(t *testing.T) {
		assert.True(t, canonicalTime(time.Date(1500, 6, 1, 0, 0, 0, 0, time.UTC)).IsZero())
	})
	s.T().Run("PastYear9999ClampsToMax", func(t *testing.T) {
		got := canonicalTime(time.Date(12000, 1, 1, 0, 0, 0, 0, time.UTC))
		assert.Equal(t, 9999, got.Year())
		assert.EqualValues(t, maxDateTimeTicks, dateTimeTicks(got))
	})
	s.T().Run("OnlyTickZeroIsZeroTime", func(t *testing.T) {
		assert.True(t, timeFromTicks(0).IsZero())
		assert.True(t, timeFromTicks(-5).IsZero())
		assert.False(t, timeFromTicks(1).IsZero(), "tick 1 is a real 1601 instant")
	})
}

func (s *ReaderTestSuite) TestTruncatedInputLatches() {
	r := s.read([]byte{1, 2})
	var u32 uint32
	r.ReadUint32(&u32)
	s.Require().ErrorIs(r.Err(), io.ErrUnexpectedEOF)

	// Latched: further reads keep the first error and touch nothing.
	var u8 uint8 = 0x7E
	r.ReadUint8(&u8)
	s.Assert().ErrorIs(r.Err(), io.ErrUnexpectedEOF)
	s.Assert().EqualValues(0x7E, u8)
}

func (s *ReaderTestSuite) TestUnbufferedReaderStopsAtLayout() {
	// Two messages back to back on one stream; the first decode must not
	// consume the second message's bytes.
	stream := bytes.NewReader([]byte{
		0x2A, 0x00, 0x00, 0x00, // first: uint32 42
		0x07, 0x00, 0x00, 0x00, // second: uint32 7
	})
	r, err := NewUnbufferedReader(stream)
	s.Require().NoError(err)

	var first uint32
	r.ReadUint32(&first)
	s.Require().NoError(r.Err())
	s.Assert().EqualValues(42, first)
	s.Assert().EqualValues(4, r.Count())

	r2, err := NewUnbufferedReader(stream)
	s.Require().NoError(err)
	var second uint32
	r2.ReadUint32(&second)
	s.Require().NoError(r2.Err())
	s.Assert().EqualValues(7, second)
}

func (s *ReaderTestSuite) TestLimitReaderFencesBody() {
	inner, _ := NewUnbufferedReader(LimitReader(bytes.NewReader([]byte{1, 2, 3, 4, 5, 6}), 4))
	var u32 uint32
	inner.ReadUint32(&u32)
	s.Require().NoError(inner.Err())

	var overflow uint16
	inner.ReadUint16(&overflow)
	s.Assert().Error(inner.Err())
}

func TestReaderSuite(t *testing.T) {
	suite.Run(t, new(ReaderTestSuite))
}

// --- BytesWriter / BytesReader ---

func TestBytesWriter(t *testing.T) {
	buf := make([]byte, 8)
	bw := NewBytesWriter(buf)

	n, err := bw.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 5, bw.Available())
	assert.Equal(t, []byte{1, 2, 3}, bw.Bytes())

	_, err = bw.Write(make([]byte, 9))
	assert.ErrorIs(t, err, io.ErrShortWrite)
}

func TestBytesReaderSeek(t *testing.T) {
	br := NewBytesReader([]byte{1, 2, 3, 4})
	pos, err := br.Seek(2, io.SeekStart)
	require.NoError(t, err)
	assert.EqualValues(t, 2, pos)

	b, err := br.ReadByte()
	require.NoError(t, err)
	assert.EqualValues(t, 3, b)
	assert.Equal(t, 1, br.Available())
}
