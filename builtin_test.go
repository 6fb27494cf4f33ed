package uamodel

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func coerceBuiltin(t *testing.T, name string, v any) (any, error) {
	t.Helper()
	b, ok := builtinFor(name)
	require.True(t, ok, "unknown built-in %q", name)
	return b.coerce(v)
}

func TestBuiltinCoercion(t *testing.T) {
	t.Run("IntegersNormalizeAcrossKinds", func(t *testing.T) {
		v, err := coerceBuiltin(t, "Int32", uint8(7))
		require.NoError(t, err)
		assert.Equal(t, int32(7), v)

		v, err = coerceBuiltin(t, "UInt16", int64(65535))
		require.NoError(t, err)
		assert.Equal(t, uint16(65535), v)
	})

	t.Run("RangeViolationsAreValueErrors", func(t *testing.T) {
		_, err := coerceBuiltin(t, "SByte", 200)
		assert.ErrorIs(t, err, ErrValue)

		_, err = coerceBuiltin(t, "UInt32", -1)
		assert.ErrorIs(t, err, ErrType, "negatives never widen into unsigned")
	})

	t.Run("KindViolationsAreTypeErrors", func(t *testing.T) {
		_, err := coerceBuiltin(t, "Int32", "12")
		assert.ErrorIs(t, err, ErrType)

		_, err = coerceBuiltin(t, "Boolean", 1)
		assert.ErrorIs(t, err, ErrType)

		_, err = coerceBuiltin(t, "String", 12)
		assert.ErrorIs(t, err, ErrType)
	})

	t.Run("DoubleAcceptsIntegers", func(t *testing.T) {
		v, err := coerceBuiltin(t, "Double", 3)
		require.NoError(t, err)
		assert.Equal(t, float64(3), v)
	})

	t.Run("GuidAcceptsStringForm", func(t *testing.T) {
		v, err := coerceBuiltin(t, "Guid", "72962b91-fa75-4ae6-8d28-b404dc7daf63")
		require.NoError(t, err)
		assert.Equal(t, uuid.MustParse("72962B91-FA75-4AE6-8D28-B404DC7DAF63"), v)

		_, err = coerceBuiltin(t, "Guid", "not-a-guid")
		assert.ErrorIs(t, err, ErrValue)
	})

	t.Run("ByteStringCopiesItsInput", func(t *testing.T) {
		src := []byte{1, 2, 3}
		v, err := coerceBuiltin(t, "ByteString", src)
		require.NoError(t, err)
		src[0] = 99
		assert.Equal(t, []byte{1, 2, 3}, v)
	})

	t.Run("DateTimeCanonicalizes", func(t *testing.T) {
		in := time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.UTC)
		v, err := coerceBuiltin(t, "DateTime", in)
		require.NoError(t, err)
		got := v.(time.Time)
		assert.Zero(t, got.UnixNano()%100, "truncated to 100 ns ticks")
	})

	t.Run("LocalizedTextAcceptsBareString", func(t *testing.T) {
		v, err := coerceBuiltin(t, "LocalizedText", "hi")
		require.NoError(t, err)
		assert.Equal(t, LocalizedText{Text: "hi"}, v)
	})

	t.Run("StatusCodeAcceptsRawUint", func(t *testing.T) {
		v, err := coerceBuiltin(t, "StatusCode", uint32(0x80000000))
		require.NoError(t, err)
		assert.False(t, v.(StatusCode).IsGood())
	})
}

func TestBuiltinTableCompleteness(t *testing.T) {
	expected := []string{
		"Boolean", "SByte", "Byte", "Int16", "UInt16", "Int32", "UInt32",
		"Int64", "UInt64", "Float", "Double", "String", "DateTime", "Guid",
		"ByteString", "NodeId", "ExpandedNodeId", "StatusCode",
		"QualifiedName", "LocalizedText",
	}
	names := BuiltinTypeNames()
	assert.Len(t, names, len(expected))
	for _, name := range expected {
		_, ok := builtinFor(name)
		assert.True(t, ok, "missing built-in %q", name)
	}
}
