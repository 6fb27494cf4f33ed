package uamodel

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func severityEnum(t *testing.T) *EnumDefinition {
	t.Helper()
	e, err := NewEnum("Severity",
		EnumMember{Name: "Low", Value: 0},
		EnumMember{Name: "Medium", Value: 10},
		EnumMember{Name: "High", Value: 20},
	)
	require.NoError(t, err)
	return e
}

func TestNewEnumValidation(t *testing.T) {
	t.Run("NoName", func(t *testing.T) {
		_, err := NewEnum("", EnumMember{Name: "A", Value: 1})
		assert.ErrorIs(t, err, ErrSchema)
	})
	t.Run("NoMembers", func(t *testing.T) {
		_, err := NewEnum("Empty")
		assert.ErrorIs(t, err, ErrSchema)
	})
	t.Run("DuplicateName", func(t *testing.T) {
		_, err := NewEnum("E", EnumMember{Name: "A", Value: 1}, EnumMember{Name: "A", Value: 2})
		assert.ErrorIs(t, err, ErrSchema)
	})
	t.Run("DuplicateValue", func(t *testing.T) {
		_, err := NewEnum("E", EnumMember{Name: "A", Value: 1}, EnumMember{Name: "B", Value: 1})
		assert.ErrorIs(t, err, ErrSchema)
	})
	t.Run("ValueOverflowsInt32", func(t *testing.T) {
		_, err := NewEnum("E", EnumMember{Name: "A", Value: 1 << 40})
		assert.ErrorIs(t, err, ErrSchema)
	})
}

func TestEnumCoerce(t *testing.T) {
	e := severityEnum(t)

	t.Run("ByName", func(t *testing.T) {
		m, err := e.Coerce("Medium")
		require.NoError(t, err)
		assert.Equal(t, EnumMember{Name: "Medium", Value: 10}, m)
	})
	t.Run("ByOrdinal", func(t *testing.T) {
		m, err := e.Coerce(20)
		require.NoError(t, err)
		assert.Equal(t, "High", m.Name)
	})
	t.Run("ByOrdinalAnyIntegerKind", func(t *testing.T) {
		m, err := e.Coerce(uint8(10))
		require.NoError(t, err)
		assert.Equal(t, "Medium", m.Name)
	})
	t.Run("ByMember", func(t *testing.T) {
		m, err := e.Coerce(EnumMember{Name: "Low", Value: 0})
		require.NoError(t, err)
		assert.Equal(t, "Low", m.Name)
	})
	t.Run("UnknownNameRejected", func(t *testing.T) {
		_, err := e.Coerce("Critical")
		assert.ErrorIs(t, err, ErrValue)
	})
	t.Run("UnknownOrdinalRejected", func(t *testing.T) {
		_, err := e.Coerce(11)
		assert.ErrorIs(t, err, ErrValue)
	})
	t.Run("ForeignMemberRejected", func(t *testing.T) {
		_, err := e.Coerce(EnumMember{Name: "Low", Value: 10})
		assert.ErrorIs(t, err, ErrValue)
	})
	t.Run("NonIntegralRejected", func(t *testing.T) {
		_, err := e.Coerce(3.5)
		assert.ErrorIs(t, err, ErrValue)
	})
}

func TestEnumWireForm(t *testing.T) {
	e := severityEnum(t)

	buf := &bytes.Buffer{}
	w, _ := NewWriter(buf)
	e.encode(w, EnumMember{Name: "High", Value: 20})
	_, err := w.Result()
	require.NoError(t, err)
	assert.Equal(t, []byte{20, 0, 0, 0}, buf.Bytes())

	t.Run("DecodeCoerces", func(t *testing.T) {
		r, _ := NewReader(NewBytesReader([]byte{10, 0, 0, 0}))
		m, err := e.decode(r)
		require.NoError(t, err)
		assert.Equal(t, "Medium", m.Name)
	})

	t.Run("UndeclaredIncomingOrdinalFails", func(t *testing.T) {
		r, _ := NewReader(NewBytesReader([]byte{99, 0, 0, 0}))
		_, err := e.decode(r)
		assert.ErrorIs(t, err, ErrValue)
	})
}

func TestRegistryEnums(t *testing.T) {
	reg := NewRegistry()
	e := severityEnum(t)

	got, err := reg.RegisterEnum(e)
	require.NoError(t, err)
	assert.Same(t, e, got)

	t.Run("ReRegisterIdenticalIsNoOp", func(t *testing.T) {
		again := severityEnum(t)
		got, err := reg.RegisterEnum(again)
		require.NoError(t, err)
		assert.Same(t, e, got, "original registration wins")
	})

	t.Run("DivergentRegistrationConflicts", func(t *testing.T) {
		other := MustEnum("Severity", EnumMember{Name: "Low", Value: 0})
		_, err := reg.RegisterEnum(other)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("LookupMiss", func(t *testing.T) {
		_, err := reg.LookupEnum("NoSuchEnum")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
