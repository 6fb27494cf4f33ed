package uamodel

import (
	"fmt"
	"sync/atomic"
)

// Compiler turns resolved type schemas into registered TypeDefinitions.
// The zero value compiles against the process-wide DefaultRegistry and
// DefaultCatalog.
//
// Strict enables the fail-fast development path: constructors additionally
// validate the final option set against the schema before returning. The
// default fast path skips that check.
type Compiler struct {
	Registry *Registry
	Catalog  *Catalog
	Strict   bool
}

func (c *Compiler) registry() *Registry {
	if c != nil && c.Registry != nil {
		return c.Registry
	}
	return DefaultRegistry
}

func (c *Compiler) catalog() *Catalog {
	if c != nil && c.Catalog != nil {
		return c.Catalog
	}
	return DefaultCatalog
}

// Compile compiles and registers a schema against the default registry and
// catalog.
func Compile(schema *TypeSchema) (*TypeDefinition, error) {
	return (&Compiler{}).Compile(schema)
}

// Compile produces a TypeDefinition from a resolved schema and registers
// it. Compiling the identical schema again is a no-op returning the
// registered definition; compiling a divergent schema under a registered
// name fails with ErrConflict. Every failure path runs before registration,
// so a failed compile leaves the registry unchanged for that name.
func (c *Compiler) Compile(schema *TypeSchema) (*TypeDefinition, error) {
	reg := c.registry()

	if err := schema.validate(); err != nil {
		return nil, err
	}

	fp := schema.fingerprint()
	if existing, ok := reg.types.Load(schema.Name); ok {
		if existing.fp == fp {
			return existing, nil
		}
		return nil, fmt.Errorf("%w: type %q is already registered with a different definition", ErrConflict, schema.Name)
	}

	// Custom binary paths must carry a parallel human-inspectable decode,
	// because diagnostic tooling has no other way to interpret them.
	if (schema.Encode != nil || schema.Decode != nil) && schema.DecodeDebug == nil {
		return nil, fmt.Errorf("%w: type %q overrides encode/decode without a decode_debug", ErrConfiguration, schema.Name)
	}

	def := &TypeDefinition{
		schema:   schema,
		registry: reg,
		fp:       fp,
		strict:   c != nil && c.Strict,
	}

	// Base fields always precede derived fields, so the base must already
	// be compiled; only complex *field* types resolve lazily.
	if schema.BaseType != "" {
		base, err := reg.Lookup(schema.BaseType)
		if err != nil {
			return nil, fmt.Errorf("type %q: base: %w", schema.Name, err)
		}
		def.base = base
		def.allFields = append(def.allFields, base.allFields...)
		def.index = make(map[string]*compiledField, len(base.index)+len(schema.Fields))
		for name, f := range base.index {
			def.index[name] = f
		}
	} else {
		def.index = make(map[string]*compiledField, len(schema.Fields))
	}

	for i := range schema.Fields {
		fd := schema.Fields[i]
		cf := &compiledField{desc: fd, registry: reg}
		switch fd.Category {
		case FieldBasic:
			b, ok := builtinFor(fd.FieldType)
			if !ok {
				return nil, fmt.Errorf("%w: field %s.%s: unknown built-in type %q", ErrSchema, schema.Name, fd.Name, fd.FieldType)
			}
			cf.builtin = b
		case FieldEnumeration:
			e, err := reg.LookupEnum(fd.FieldType)
			if err != nil {
				return nil, fmt.Errorf("field %s.%s: %w", schema.Name, fd.Name, err)
			}
			cf.enum = e
		case FieldComplex:
			// Resolved through the registry on first use, so a schema may
			// reference itself (or a type registered later) freely.
		}
		if _, shadow := def.index[fd.Name]; shadow {
			return nil, fmt.Errorf("%w: field %s.%s redeclares an inherited field", ErrSchema, schema.Name, fd.Name)
		}
		def.fields = append(def.fields, cf)
		def.index[fd.Name] = cf
		def.allFields = append(def.allFields, fd.Name)
	}

	if err := c.resolveEncodingIDs(def); err != nil {
		return nil, err
	}

	return reg.Register(def)
}

// resolveEncodingIDs determines the wire discriminators. Every serializable
// type must end up with a stable binary identifier, because receivers
// dispatch decoding purely from this tag.
func (c *Compiler) resolveEncodingIDs(def *TypeDefinition) error {
	schema := def.schema
	switch schema.BinaryID.kind {
	case encodingFixed:
		if schema.BinaryID.id.IsNull() {
			return fmt.Errorf("%w: type %q declares a null binary encoding id", ErrConfiguration, schema.Name)
		}
		def.binaryID = schema.BinaryID.id
	case encodingRuntime:
		// Assigned inside the registry's critical section, once, at
		// registration; see Registry.registerLocked.
		def.runtimePending = true
	case encodingFromCatalog:
		id, err := c.catalog().Lookup(BinaryEncodingName(schema.Name))
		if err != nil {
			return fmt.Errorf("%w: type %q has no binary encoding id: %v", ErrConfiguration, schema.Name, err)
		}
		def.binaryID = id
	}

	switch schema.XMLID.kind {
	case encodingFixed:
		def.xmlID = schema.XMLID.id
		def.hasXMLID = true
	case encodingRuntime:
		return fmt.Errorf("%w: type %q: runtime assignment applies to binary ids only", ErrConfiguration, schema.Name)
	case encodingFromCatalog:
		// Best effort: the XML identifier is optional metadata.
		if id, err := c.catalog().Lookup(XMLEncodingName(schema.Name)); err == nil {
			def.xmlID = id
			def.hasXMLID = true
		}
	}
	return nil
}

// compiledField is one resolved field of a TypeDefinition. Exactly one of
// builtin/enum is set for basic/enumeration fields; complex fields resolve
// their nested definition lazily through the registry.
type compiledField struct {
	desc     FieldDescriptor
	registry *Registry
	builtin  *builtinType
	enum     *EnumDefinition
	resolved atomic.Pointer[TypeDefinition]
}

// nested resolves the field's complex type, caching the result. A miss is
// the caller's missing dependency.
func (f *compiledField) nested() (*TypeDefinition, error) {
	if def := f.resolved.Load(); def != nil {
		return def, nil
	}
	def, err := f.registry.Lookup(f.desc.FieldType)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", f.desc.Name, err)
	}
	f.resolved.Store(def)
	return def, nil
}

// TypeDefinition is a compiled, registered type: the resolved schema, its
// base chain, the encoding identifiers, and the generated construct,
// encode, decode, and validate procedures. Once registered under a name its
// field layout is immutable.
type TypeDefinition struct {
	schema   *TypeSchema
	registry *Registry
	base     *TypeDefinition
	fields   []*compiledField
	index    map[string]*compiledField
	// allFields is the flattened base-first field-name list, derived once
	// at compile time for introspection.
	allFields []string

	binaryID       NodeID
	xmlID          NodeID
	hasXMLID       bool
	runtimePending bool

	fp     string
	strict bool
}

// Name returns the type's registered name.
func (d *TypeDefinition) Name() string { return d.schema.Name }

// Base returns the base definition, or nil for a root type.
func (d *TypeDefinition) Base() *TypeDefinition { return d.base }

// Schema returns the schema this definition was compiled from. Treat it as
// read-only.
func (d *TypeDefinition) Schema() *TypeSchema { return d.schema }

// BinaryID returns the binary wire discriminator. For runtime-assigned
// types this is stable across every instance for the process's lifetime.
func (d *TypeDefinition) BinaryID() NodeID { return d.binaryID }

// XMLID returns the XML discriminator, if one was declared or found in the
// catalog. It is metadata only; this package never encodes XML.
func (d *TypeDefinition) XMLID() (NodeID, bool) { return d.xmlID, d.hasXMLID }

// PossibleFields returns the flattened, ordered list of all field names,
// inherited ones first.
func (d *TypeDefinition) PossibleFields() []string {
	out := make([]string, len(d.allFields))
	copy(out, d.allFields)
	return out
}

// fieldNamed finds a field anywhere in the inheritance chain.
func (d *TypeDefinition) fieldNamed(name string) (*compiledField, bool) {
	f, ok := d.index[name]
	return f, ok
}
