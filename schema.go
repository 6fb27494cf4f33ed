package uamodel

import (
	"fmt"
	"io"
	"strings"
)

// FieldCategory classifies what a field's type name resolves against.
type FieldCategory uint8

const (
	// FieldBasic resolves against the built-in scalar table.
	FieldBasic FieldCategory = iota
	// FieldComplex resolves against the type registry (nested user type).
	FieldComplex
	// FieldEnumeration resolves against the registry's enumeration table.
	FieldEnumeration
)

func (c FieldCategory) String() string {
	switch c {
	case FieldBasic:
		return "basic"
	case FieldComplex:
		return "complex"
	case FieldEnumeration:
		return "enumeration"
	}
	return fmt.Sprintf("FieldCategory(%d)", uint8(c))
}

// FieldDescriptor declares one field of a type schema. Declaration order
// within the schema IS wire order.
type FieldDescriptor struct {
	Name      string
	FieldType string
	Category  FieldCategory
	IsArray   bool
	// Optional marks a complex scalar field as nullable. Absent optional
	// fields stay nil and are framed on the wire with their discriminator,
	// so presence survives a round trip.
	Optional bool
	// Default is a literal default, used verbatim when the field is not
	// supplied. DefaultFunc takes precedence and is invoked fresh per
	// instance, so mutable defaults are never shared between instances.
	Default     any
	DefaultFunc func() any
	Doc         string
}

// Hook signatures a schema may use to override generated behavior.
type (
	// ConstructHook transforms the option set before any field is touched.
	ConstructHook func(opts map[string]any) (map[string]any, error)
	// EncodeFunc supersedes per-field encode generation entirely.
	EncodeFunc func(o *Object, w *Writer) error
	// DecodeFunc supersedes per-field decode generation entirely.
	DecodeFunc func(o *Object, r *Reader) error
	// DecodeDebugFunc is the human-inspectable decode path, tracing fields
	// and offsets to trace. Mandatory whenever Encode or Decode is custom.
	DecodeDebugFunc func(o *Object, r *Reader, trace io.Writer) error
	// ValidateFunc supersedes the generated validity check.
	ValidateFunc func(o *Object) error
)

// TypeSchema is the declarative input to the compiler: an ordered field
// list, an optional base type, the encoding identifiers, and optional
// override hooks. A schema must not be mutated after it is compiled.
type TypeSchema struct {
	Name     string
	BaseType string // empty means no base
	BinaryID EncodingSpec
	XMLID    EncodingSpec
	Fields   []FieldDescriptor

	ConstructHook ConstructHook
	Encode        EncodeFunc
	Decode        DecodeFunc
	DecodeDebug   DecodeDebugFunc
	IsValid       ValidateFunc

	Doc string
}

// encodingKind tags the EncodingSpec variant.
type encodingKind uint8

const (
	// encodingFromCatalog resolves "<Name>_Encoding_DefaultBinary" in the
	// node-id catalog at compile time. This is the zero value.
	encodingFromCatalog encodingKind = iota
	encodingFixed
	encodingRuntime
)

// EncodingSpec says where a type's encoding identifier comes from: a fixed
// schema-declared NodeID, a catalog lookup (the zero value), or a
// process-wide runtime counter. An explicit variant replaces the source
// convention of a magic sentinel constant.
type EncodingSpec struct {
	kind encodingKind
	id   NodeID
}

// FixedEncoding declares the identifier verbatim.
func FixedEncoding(id NodeID) EncodingSpec {
	return EncodingSpec{kind: encodingFixed, id: id}
}

// RuntimeAssigned defers the identifier to the process-wide counter. The
// value is assigned once at compile time, not per instance, so every
// instance of the type reports the same identifier for the process's
// lifetime.
func RuntimeAssigned() EncodingSpec {
	return EncodingSpec{kind: encodingRuntime}
}

// IsRuntimeAssigned reports whether the spec defers to the runtime counter.
func (s EncodingSpec) IsRuntimeAssigned() bool { return s.kind == encodingRuntime }

func (s EncodingSpec) fingerprint() string {
	switch s.kind {
	case encodingFixed:
		return "fixed:" + s.id.String()
	case encodingRuntime:
		return "runtime"
	}
	return "catalog"
}

// validate checks the declaration itself, before any resolution. All
// failures wrap ErrSchema.
func (s *TypeSchema) validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: schema has no name", ErrSchema)
	}
	if len(s.Fields) == 0 && s.BaseType == "" && s.Encode == nil {
		// A fieldless root type is legal only with a custom encode; there
		// is nothing to generate otherwise.
		return fmt.Errorf("%w: type %q declares no fields and no base", ErrSchema, s.Name)
	}
	seen := make(map[string]struct{}, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("%w: type %q has an unnamed field", ErrSchema, s.Name)
		}
		if f.FieldType == "" {
			return fmt.Errorf("%w: field %s.%s has no type", ErrSchema, s.Name, f.Name)
		}
		if f.Category > FieldEnumeration {
			return fmt.Errorf("%w: field %s.%s has unknown category %d", ErrSchema, s.Name, f.Name, f.Category)
		}
		if f.Optional && f.Category != FieldComplex {
			return fmt.Errorf("%w: field %s.%s: only complex scalar fields may be optional", ErrSchema, s.Name, f.Name)
		}
		if f.Optional && f.IsArray {
			return fmt.Errorf("%w: field %s.%s: array fields may not be optional", ErrSchema, s.Name, f.Name)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("%w: type %q duplicates field %q", ErrSchema, s.Name, f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

// fingerprint is the canonical identity of the declaration, used by the
// registry to distinguish an idempotent recompile from a conflicting one.
// Hooks contribute presence only; literal defaults contribute their
// rendered value.
func (s *TypeSchema) fingerprint() string {
	var b strings.Builder
	b.WriteString(s.Name)
	b.WriteByte('<')
	b.WriteString(s.BaseType)
	b.WriteString("|bin:")
	b.WriteString(s.BinaryID.fingerprint())
	b.WriteString("|xml:")
	b.WriteString(s.XMLID.fingerprint())
	for _, f := range s.Fields {
		fmt.Fprintf(&b, "|%s:%s:%s", f.Name, f.FieldType, f.Category)
		if f.IsArray {
			b.WriteString(":array")
		}
		if f.Optional {
			b.WriteString(":optional")
		}
		if f.DefaultFunc != nil {
			b.WriteString(":gendefault")
		} else if f.Default != nil {
			fmt.Fprintf(&b, ":default=%v", f.Default)
		}
	}
	fmt.Fprintf(&b, "|hooks:%t%t%t%t%t",
		s.ConstructHook != nil, s.Encode != nil, s.Decode != nil, s.DecodeDebug != nil, s.IsValid != nil)
	return b.String()
}
