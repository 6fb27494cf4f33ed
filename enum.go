package uamodel

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// EnumMember is one declared member of an enumeration: a symbolic name
// bound to an integral ordinal.
type EnumMember struct {
	Name  string
	Value int64
}

// EnumDefinition is a named integral set. Enumeration fields store and
// return canonical members only; raw values pass through Coerce first so an
// unrecognized value is never stored, because a silently-stored invalid
// ordinal is bit-indistinguishable from a legitimate low-valued member.
type EnumDefinition struct {
	name    string
	members []EnumMember
	byName  map[string]EnumMember
	byValue map[int64]EnumMember
}

// NewEnum builds an enumeration from its declared members. Members must be
// non-empty, unique by name and by value, and fit the Int32 wire form.
func NewEnum(name string, members ...EnumMember) (*EnumDefinition, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: enumeration has no name", ErrSchema)
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("%w: enumeration %q has no members", ErrSchema, name)
	}
	e := &EnumDefinition{
		name:    name,
		members: make([]EnumMember, len(members)),
		byName:  make(map[string]EnumMember, len(members)),
		byValue: make(map[int64]EnumMember, len(members)),
	}
	copy(e.members, members)
	for _, m := range members {
		if m.Name == "" {
			return nil, fmt.Errorf("%w: enumeration %q has an unnamed member", ErrSchema, name)
		}
		if m.Value < math.MinInt32 || m.Value > math.MaxInt32 {
			return nil, fmt.Errorf("%w: enumeration %q member %q value %d does not fit Int32", ErrSchema, name, m.Name, m.Value)
		}
		if _, dup := e.byName[m.Name]; dup {
			return nil, fmt.Errorf("%w: enumeration %q duplicates member name %q", ErrSchema, name, m.Name)
		}
		if _, dup := e.byValue[m.Value]; dup {
			return nil, fmt.Errorf("%w: enumeration %q duplicates member value %d", ErrSchema, name, m.Value)
		}
		e.byName[m.Name] = m
		e.byValue[m.Value] = m
	}
	return e, nil
}

// MustEnum is NewEnum that panics on a malformed declaration. Intended for
// package-level enumeration tables.
func MustEnum(name string, members ...EnumMember) *EnumDefinition {
	e, err := NewEnum(name, members...)
	if err != nil {
		panic(err)
	}
	return e
}

func (e *EnumDefinition) Name() string { return e.name }

// Members returns the declared members in declaration order.
func (e *EnumDefinition) Members() []EnumMember {
	out := make([]EnumMember, len(e.members))
	copy(out, e.members)
	return out
}

// Coerce normalizes a raw value into a canonical member. It accepts a
// member, a symbolic name, or an integral ordinal of any Go integer kind;
// anything that matches no declared member fails with ErrValue.
func (e *EnumDefinition) Coerce(v any) (EnumMember, error) {
	switch raw := v.(type) {
	case EnumMember:
		if m, ok := e.byValue[raw.Value]; ok && m.Name == raw.Name {
			return m, nil
		}
		return EnumMember{}, fmt.Errorf("%w: %v is not a member of %s", ErrValue, raw, e.name)
	case string:
		if m, ok := e.byName[raw]; ok {
			return m, nil
		}
		return EnumMember{}, fmt.Errorf("%w: %q is not a member of %s", ErrValue, raw, e.name)
	}
	if n, ok := toInt64(v); ok {
		if m, ok := e.byValue[n]; ok {
			return m, nil
		}
		return EnumMember{}, fmt.Errorf("%w: %d is not a member of %s", ErrValue, n, e.name)
	}
	return EnumMember{}, fmt.Errorf("%w: %T cannot name a member of %s", ErrValue, v, e.name)
}

// first returns the default member for fields with no declared default.
func (e *EnumDefinition) first() EnumMember { return e.members[0] }

// encode writes the member's Int32 wire form.
func (e *EnumDefinition) encode(w *Writer, m EnumMember) {
	w.WriteInt32(int32(m.Value))
}

// decode reads an Int32 ordinal and coerces it, so an undeclared incoming
// value fails loudly instead of being stored.
func (e *EnumDefinition) decode(r *Reader) (EnumMember, error) {
	var n int32
	r.ReadInt32(&n)
	if err := r.Err(); err != nil {
		return EnumMember{}, err
	}
	return e.Coerce(int64(n))
}

// fingerprint is the canonical identity used by the registry's idempotency
// check.
func (e *EnumDefinition) fingerprint() string {
	var b strings.Builder
	b.WriteString(e.name)
	members := e.Members()
	sort.Slice(members, func(i, j int) bool { return members[i].Value < members[j].Value })
	for _, m := range members {
		fmt.Fprintf(&b, "|%s=%d", m.Name, m.Value)
	}
	return b.String()
}
