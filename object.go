package uamodel

import (
	"bytes"
	"fmt"
	"io"
	"reflect"
)

// Object is a runtime value of a compiled TypeDefinition. It owns its field
// values exclusively: array and nested-object fields get fresh containers
// at construction, so nothing is shared between sibling instances by
// default. The exception is a nested field supplied as a live *Object,
// which is adopted rather than copied; see nestedInstance.
type Object struct {
	def    *TypeDefinition
	values map[string]any
}

// Statically assert that Object is a complete self-serializing value.
var _ Codec = (*Object)(nil)

// Type returns the definition this object was constructed from.
func (o *Object) Type() *TypeDefinition { return o.def }

// New constructs an instance from a partial field-name to value mapping.
// Base fields initialize first, then own fields in declaration order; this
// order is also the wire order. Missing fields take their defaults:
// literals verbatim, generators invoked fresh per instance, arrays as fresh
// empty sequences, enumerations as their first member, required complex
// fields as the nested type's own zero value.
func (d *TypeDefinition) New(opts map[string]any) (*Object, error) {
	o := d.newEmpty()
	final, err := d.initInto(o, opts)
	if err != nil {
		return nil, err
	}
	if d.strict {
		for k := range final {
			if _, ok := d.index[k]; !ok {
				return nil, fmt.Errorf("%w: type %q has no field %q", ErrValue, d.Name(), k)
			}
		}
	}
	return o, nil
}

// newEmpty allocates an instance with no fields initialized. Decode fills
// every field, so the two-phase allocate-then-fill path starts here.
func (d *TypeDefinition) newEmpty() *Object {
	return &Object{def: d, values: make(map[string]any, len(d.allFields))}
}

// initInto applies the schema's construct hook, delegates to the base with
// the transformed options, then initializes own fields in declaration
// order. It returns the option set as the outermost hook left it, for the
// strict-mode check.
func (d *TypeDefinition) initInto(o *Object, opts map[string]any) (map[string]any, error) {
	if d.schema.ConstructHook != nil {
		transformed, err := d.schema.ConstructHook(opts)
		if err != nil {
			return nil, err
		}
		opts = transformed
	}
	if d.base != nil {
		if _, err := d.base.initInto(o, opts); err != nil {
			return nil, err
		}
	}
	for _, f := range d.fields {
		v, supplied := opts[f.desc.Name]
		val, err := f.initValue(v, supplied)
		if err != nil {
			return nil, fmt.Errorf("field %s.%s: %w", d.Name(), f.desc.Name, err)
		}
		o.values[f.desc.Name] = val
	}
	return opts, nil
}

// asSequence extracts the elements of any slice or array value. Strings and
// byte slices are scalars here, not sequences.
func asSequence(v any) ([]any, bool) {
	if s, ok := v.([]any); ok {
		return s, true
	}
	if _, ok := v.([]byte); ok {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// initValue normalizes a supplied (or defaulted) raw value into the field's
// canonical stored form.
func (f *compiledField) initValue(v any, supplied bool) (any, error) {
	d := &f.desc
	switch {
	case f.builtin != nil:
		if !supplied {
			switch {
			case d.DefaultFunc != nil:
				v = d.DefaultFunc()
			case d.Default != nil:
				v = d.Default
			case d.IsArray:
				return []any{}, nil
			default:
				return f.builtin.zero(), nil
			}
		}
		if d.IsArray {
			if v == nil {
				return []any(nil), nil
			}
			seq, ok := asSequence(v)
			if !ok {
				return nil, fmt.Errorf("%w: %T is not a sequence", ErrType, v)
			}
			out := make([]any, len(seq))
			for i, el := range seq {
				c, err := f.builtin.coerce(el)
				if err != nil {
					return nil, err
				}
				out[i] = c
			}
			return out, nil
		}
		return f.builtin.coerce(v)

	case f.enum != nil:
		if !supplied {
			switch {
			case d.DefaultFunc != nil:
				v = d.DefaultFunc()
			case d.Default != nil:
				v = d.Default
			case d.IsArray:
				return []EnumMember{}, nil
			default:
				return f.enum.first(), nil
			}
		}
		if d.IsArray {
			if v == nil {
				return []EnumMember(nil), nil
			}
			seq, ok := asSequence(v)
			if !ok {
				return nil, fmt.Errorf("%w: %T is not a sequence", ErrType, v)
			}
			out := make([]EnumMember, len(seq))
			for i, el := range seq {
				m, err := f.enum.Coerce(el)
				if err != nil {
					return nil, err
				}
				out[i] = m
			}
			return out, nil
		}
		return f.enum.Coerce(v)

	default: // complex
		nested, err := f.nested()
		if err != nil {
			return nil, err
		}
		if d.IsArray {
			if !supplied {
				return []*Object{}, nil
			}
			if v == nil {
				return []*Object(nil), nil
			}
			seq, ok := asSequence(v)
			if !ok {
				return nil, fmt.Errorf("%w: %T is not a sequence", ErrType, v)
			}
			out := make([]*Object, len(seq))
			for i, el := range seq {
				obj, err := nestedInstance(nested, el)
				if err != nil {
					return nil, err
				}
				out[i] = obj
			}
			return out, nil
		}
		if !supplied || v == nil {
			if d.Optional {
				return (*Object)(nil), nil
			}
			return nested.New(nil)
		}
		return nestedInstance(nested, v)
	}
}

// nestedInstance constructs a value of the nested type from an option map,
// or adopts an already-constructed instance as-is. Adoption shares the
// instance: a caller supplying the same *Object to two parents links them
// through it. Fresh-container isolation applies only to values built here
// from raw options.
func nestedInstance(nested *TypeDefinition, v any) (*Object, error) {
	switch el := v.(type) {
	case *Object:
		if el == nil {
			return nil, nil
		}
		if el.def != nested {
			return nil, fmt.Errorf("%w: object of type %q where %q is required", ErrType, el.def.Name(), nested.Name())
		}
		return el, nil
	case map[string]any:
		return nested.New(el)
	}
	return nil, fmt.Errorf("%w: %T cannot construct a %q", ErrType, v, nested.Name())
}

// Get returns a field's stored canonical value. Unknown names fail with
// ErrNotFound.
func (o *Object) Get(name string) (any, error) {
	if _, ok := o.def.fieldNamed(name); !ok {
		return nil, fmt.Errorf("%w: type %q has no field %q", ErrNotFound, o.def.Name(), name)
	}
	return o.values[name], nil
}

// Set stores a field value after normalizing it exactly as construction
// would: enumeration fields pass through member coercion, basic fields
// through the built-in coercion. An unrecognized raw value is never stored.
func (o *Object) Set(name string, v any) error {
	f, ok := o.def.fieldNamed(name)
	if !ok {
		return fmt.Errorf("%w: type %q has no field %q", ErrNotFound, o.def.Name(), name)
	}
	val, err := f.initValue(v, true)
	if err != nil {
		return fmt.Errorf("field %s.%s: %w", o.def.Name(), name, err)
	}
	o.values[name] = val
	return nil
}

// Equal reports field-for-field structural equality between two instances
// of the same type.
func (o *Object) Equal(other *Object) bool {
	if o == nil || other == nil {
		return o == other
	}
	return o.def == other.def && reflect.DeepEqual(o.values, other.values)
}

// --- Encode ---

// Encode writes the instance to the stream: base fields first, then own
// fields in declaration order. Encode never validates; any failure is a
// propagated child failure, never swallowed.
func (o *Object) Encode(w *Writer) error {
	if err := o.encodeAs(o.def, w); err != nil {
		return err
	}
	return w.Err()
}

func (o *Object) encodeAs(d *TypeDefinition, w *Writer) error {
	if d.schema.Encode != nil {
		return d.schema.Encode(o, w)
	}
	if d.base != nil {
		if err := o.encodeAs(d.base, w); err != nil {
			return err
		}
	}
	for _, f := range d.fields {
		if err := o.encodeField(f, w); err != nil {
			return fmt.Errorf("field %s.%s: %w", d.Name(), f.desc.Name, err)
		}
	}
	return nil
}

func (o *Object) encodeField(f *compiledField, w *Writer) error {
	v := o.values[f.desc.Name]
	switch {
	case f.builtin != nil:
		if f.desc.IsArray {
			vs, _ := v.([]any)
			if vs == nil {
				w.WriteArrayLen(-1)
				return w.Err()
			}
			w.WriteArrayLen(len(vs))
			for _, el := range vs {
				if err := f.builtin.encode(w, el); err != nil {
					return err
				}
			}
			return w.Err()
		}
		return f.builtin.encode(w, v)

	case f.enum != nil:
		if f.desc.IsArray {
			vs, _ := v.([]EnumMember)
			if vs == nil {
				w.WriteArrayLen(-1)
				return w.Err()
			}
			w.WriteArrayLen(len(vs))
			for _, m := range vs {
				f.enum.encode(w, m)
			}
			return w.Err()
		}
		m, ok := v.(EnumMember)
		if !ok {
			return fmt.Errorf("%w: %T is not an enumeration member", ErrType, v)
		}
		f.enum.encode(w, m)
		return w.Err()

	default:
		nested, err := f.nested()
		if err != nil {
			return err
		}
		if f.desc.IsArray {
			objs, _ := v.([]*Object)
			if objs == nil {
				w.WriteArrayLen(-1)
				return w.Err()
			}
			w.WriteArrayLen(len(objs))
			for _, obj := range objs {
				if obj == nil {
					return fmt.Errorf("%w: nil element in required object array", ErrValue)
				}
				if err := obj.Encode(w); err != nil {
					return err
				}
			}
			return w.Err()
		}
		if f.desc.Optional {
			return encodeOptional(w, nested, v)
		}
		obj, _ := v.(*Object)
		if obj == nil {
			return fmt.Errorf("%w: required field is nil", ErrValue)
		}
		return obj.Encode(w)
	}
}

// Optional nested fields are framed like extension objects: discriminator,
// a body mask, and a length-prefixed body, so absence survives a round
// trip without per-type presence bits.
const (
	optionalBodyNone   byte = 0x00
	optionalBodyBinary byte = 0x01
)

func encodeOptional(w *Writer, nested *TypeDefinition, v any) error {
	obj, _ := v.(*Object)
	if obj == nil {
		w.WriteNodeID(NodeID{})
		w.WriteUint8(optionalBodyNone)
		return w.Err()
	}
	w.WriteNodeID(nested.binaryID)
	w.WriteUint8(optionalBodyBinary)
	body, err := obj.MarshalBinary()
	if err != nil {
		return err
	}
	w.WritePrefixedBytes(body)
	return w.Err()
}

// --- Decode ---

// Decode fills the instance from the stream, mirroring Encode bit for bit:
// base first, then fields in the identical declared order.
func (o *Object) Decode(r *Reader) error {
	if err := o.decodeAs(o.def, r, nil); err != nil {
		return err
	}
	return r.Err()
}

// DecodeDebug is the human-inspectable decode path: the same walk as
// Decode, tracing every field's offset and decoded value to trace.
func (o *Object) DecodeDebug(r *Reader, trace io.Writer) error {
	if trace == nil {
		trace = io.Discard
	}
	if err := o.decodeAs(o.def, r, trace); err != nil {
		return err
	}
	return r.Err()
}

func (o *Object) decodeAs(d *TypeDefinition, r *Reader, trace io.Writer) error {
	if trace == nil {
		if d.schema.Decode != nil {
			return d.schema.Decode(o, r)
		}
	} else if d.schema.DecodeDebug != nil {
		return d.schema.DecodeDebug(o, r, trace)
	} else if d.schema.Decode != nil {
		// Unreachable for compiled types: Compile rejects a custom decode
		// without a decode_debug.
		return fmt.Errorf("%w: type %q has a custom decode but no decode_debug", ErrConfiguration, d.Name())
	}
	if d.base != nil {
		if err := o.decodeAs(d.base, r, trace); err != nil {
			return err
		}
	}
	for _, f := range d.fields {
		start := r.Count()
		v, err := o.decodeField(f, r, trace)
		if err != nil {
			return fmt.Errorf("field %s.%s: %w", d.Name(), f.desc.Name, err)
		}
		o.values[f.desc.Name] = v
		if trace != nil {
			fmt.Fprintf(trace, "%s.%s @%d = %v\n", d.Name(), f.desc.Name, start, v)
		}
	}
	return nil
}

func (o *Object) decodeField(f *compiledField, r *Reader, trace io.Writer) (any, error) {
	switch {
	case f.builtin != nil:
		if f.desc.IsArray {
			var n int
			r.ReadArrayLen(&n)
			if err := r.Err(); err != nil {
				return nil, err
			}
			if n < 0 {
				return []any(nil), nil
			}
			out := make([]any, n)
			for i := range out {
				out[i] = f.builtin.decode(r)
				if err := r.Err(); err != nil {
					return nil, err
				}
			}
			return out, nil
		}
		v := f.builtin.decode(r)
		return v, r.Err()

	case f.enum != nil:
		if f.desc.IsArray {
			var n int
			r.ReadArrayLen(&n)
			if err := r.Err(); err != nil {
				return nil, err
			}
			if n < 0 {
				return []EnumMember(nil), nil
			}
			out := make([]EnumMember, n)
			for i := range out {
				m, err := f.enum.decode(r)
				if err != nil {
					return nil, err
				}
				out[i] = m
			}
			return out, nil
		}
		return f.enum.decode(r)

	default:
		nested, err := f.nested()
		if err != nil {
			return nil, err
		}
		if f.desc.IsArray {
			var n int
			r.ReadArrayLen(&n)
			if err := r.Err(); err != nil {
				return nil, err
			}
			if n < 0 {
				return []*Object(nil), nil
			}
			out := make([]*Object, n)
			for i := range out {
				// Allocate first, then decode into the live object.
				obj := nested.newEmpty()
				if err := obj.decodeAs(nested, r, trace); err != nil {
					return nil, err
				}
				out[i] = obj
			}
			return out, nil
		}
		if f.desc.Optional {
			return decodeOptional(r, nested, trace)
		}
		obj := nested.newEmpty()
		if err := obj.decodeAs(nested, r, trace); err != nil {
			return nil, err
		}
		return obj, nil
	}
}

func decodeOptional(r *Reader, nested *TypeDefinition, trace io.Writer) (any, error) {
	var id NodeID
	r.ReadNodeID(&id)
	var mask uint8
	r.ReadUint8(&mask)
	if err := r.Err(); err != nil {
		return nil, err
	}
	if mask&optionalBodyBinary == 0 {
		return (*Object)(nil), nil
	}
	if !id.Equal(nested.binaryID) {
		return nil, fmt.Errorf("%w: discriminator %s does not identify %q (%s)", ErrValue, id, nested.Name(), nested.binaryID)
	}
	var bodyLen int32
	r.ReadInt32(&bodyLen)
	if err := r.Err(); err != nil {
		return nil, err
	}
	if bodyLen < 0 {
		return nil, fmt.Errorf("%w: optional body flagged present with length %d", ErrValue, bodyLen)
	}
	// Fence the nested decoder to the declared body so a malformed payload
	// cannot consume the parent's bytes.
	lr := LimitReader(r, int64(bodyLen))
	sub, err := NewUnbufferedReader(lr)
	if err != nil {
		return nil, err
	}
	obj := nested.newEmpty()
	if err := obj.decodeAs(nested, sub, trace); err != nil {
		return nil, err
	}
	if err := sub.Err(); err != nil {
		return nil, err
	}
	// Skip any body bytes a newer encoder appended.
	if _, err := io.Copy(io.Discard, lr); err != nil {
		return nil, err
	}
	return obj, nil
}

// --- Validity ---

// Validate runs the schema's own validity hook if one is declared, and a
// generated structural check otherwise: required nested fields must be
// present and valid, array elements likewise.
func (o *Object) Validate() error {
	return o.validateAs(o.def)
}

func (o *Object) validateAs(d *TypeDefinition) error {
	if d.schema.IsValid != nil {
		return d.schema.IsValid(o)
	}
	if d.base != nil {
		if err := o.validateAs(d.base); err != nil {
			return err
		}
	}
	for _, f := range d.fields {
		if f.builtin != nil || f.enum != nil {
			continue
		}
		v := o.values[f.desc.Name]
		if f.desc.IsArray {
			objs, _ := v.([]*Object)
			for _, obj := range objs {
				if obj == nil {
					return fmt.Errorf("%w: field %s.%s has a nil element", ErrValue, d.Name(), f.desc.Name)
				}
				if err := obj.Validate(); err != nil {
					return err
				}
			}
			continue
		}
		obj, _ := v.(*Object)
		if obj == nil {
			if !f.desc.Optional {
				return fmt.Errorf("%w: required field %s.%s is nil", ErrValue, d.Name(), f.desc.Name)
			}
			continue
		}
		if err := obj.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// --- Codec surface ---

// MarshalBinary implements encoding.BinaryMarshaler.
func (o *Object) MarshalBinary() ([]byte, error) {
	buf := bytesBufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bytesBufPool.Put(buf)

	w, err := NewWriter(buf)
	if err != nil {
		return nil, err
	}
	if err := o.Encode(w); err != nil {
		return nil, err
	}
	if _, err := w.Result(); err != nil {
		return nil, err
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. Bytes remaining
// after the object's layout fail with ErrTrailingData.
func (o *Object) UnmarshalBinary(data []byte) error {
	br := NewBytesReader(data)
	r, err := NewReader(br)
	if err != nil {
		return err
	}
	if err := o.Decode(r); err != nil {
		return err
	}
	if n := br.Available(); n > 0 {
		return fmt.Errorf("%w: %d bytes remain", ErrTrailingData, n)
	}
	return nil
}

// WriteTo implements io.WriterTo.
func (o *Object) WriteTo(dst io.Writer) (int64, error) {
	w, err := NewWriter(dst)
	if err != nil {
		return 0, err
	}
	if err := o.Encode(w); err != nil {
		return w.Count(), err
	}
	return w.Result()
}

// ReadFrom implements io.ReaderFrom. It never reads past the object's
// layout, so the stream can carry further messages.
func (o *Object) ReadFrom(src io.Reader) (int64, error) {
	r, err := NewUnbufferedReader(src)
	if err != nil {
		return 0, err
	}
	if err := o.Decode(r); err != nil {
		return r.Count(), err
	}
	return r.Result()
}

// MarshalTo encodes into a pre-allocated buffer.
func (o *Object) MarshalTo(buf []byte) (int, error) {
	bw := NewBytesWriter(buf)
	w, err := NewWriter(bw)
	if err != nil {
		return 0, err
	}
	if err := o.Encode(w); err != nil {
		return int(w.Count()), err
	}
	n, err := w.Result()
	return int(n), err
}
