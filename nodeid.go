package uamodel

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
)

// NodeIDType selects the identifier form a NodeID carries.
type NodeIDType uint8

const (
	NodeIDNumeric NodeIDType = iota
	NodeIDString
	NodeIDGuid
	NodeIDByteString
)

// Wire encoding selectors for NodeID. Numeric identifiers use one of three
// compressed forms picked by size; the upper two bits carry the
// ExpandedNodeID flags.
const (
	nodeIDEncodingTwoByte    byte = 0x00
	nodeIDEncodingFourByte   byte = 0x01
	nodeIDEncodingNumeric    byte = 0x02
	nodeIDEncodingString     byte = 0x03
	nodeIDEncodingGuid       byte = 0x04
	nodeIDEncodingByteString byte = 0x05

	nodeIDMaskEncoding     byte = 0x3F
	nodeIDFlagNamespaceURI byte = 0x80
	nodeIDFlagServerIndex  byte = 0x40
)

// NodeID identifies a type's binary layout to a decoder with no other
// context. It pairs a namespace index with one of four identifier forms.
type NodeID struct {
	Type      NodeIDType
	Namespace uint16

	Numeric uint32
	Text    string
	Guid    uuid.UUID
	Bytes   []byte
}

// NewNumericNodeID returns a numeric-form NodeID.
func NewNumericNodeID(namespace uint16, id uint32) NodeID {
	return NodeID{Type: NodeIDNumeric, Namespace: namespace, Numeric: id}
}

// NewStringNodeID returns a string-form NodeID.
func NewStringNodeID(namespace uint16, id string) NodeID {
	return NodeID{Type: NodeIDString, Namespace: namespace, Text: id}
}

// NewGuidNodeID returns a Guid-form NodeID.
func NewGuidNodeID(namespace uint16, id uuid.UUID) NodeID {
	return NodeID{Type: NodeIDGuid, Namespace: namespace, Guid: id}
}

// NewByteStringNodeID returns a byte-string-form NodeID.
func NewByteStringNodeID(namespace uint16, id []byte) NodeID {
	return NodeID{Type: NodeIDByteString, Namespace: namespace, Bytes: id}
}

// IsNull reports whether the id is the null identifier (numeric zero in
// namespace zero).
func (id NodeID) IsNull() bool {
	switch id.Type {
	case NodeIDNumeric:
		return id.Namespace == 0 && id.Numeric == 0
	case NodeIDString:
		return id.Namespace == 0 && id.Text == ""
	case NodeIDGuid:
		return id.Namespace == 0 && id.Guid == uuid.Nil
	case NodeIDByteString:
		return id.Namespace == 0 && len(id.Bytes) == 0
	}
	return false
}

// Equal reports identifier equality. NodeID is not comparable with ==
// because of the byte-string form.
func (id NodeID) Equal(other NodeID) bool {
	if id.Type != other.Type || id.Namespace != other.Namespace {
		return false
	}
	switch id.Type {
	case NodeIDNumeric:
		return id.Numeric == other.Numeric
	case NodeIDString:
		return id.Text == other.Text
	case NodeIDGuid:
		return id.Guid == other.Guid
	case NodeIDByteString:
		return bytes.Equal(id.Bytes, other.Bytes)
	}
	return false
}

func (id NodeID) String() string {
	switch id.Type {
	case NodeIDNumeric:
		return fmt.Sprintf("ns=%d;i=%d", id.Namespace, id.Numeric)
	case NodeIDString:
		return fmt.Sprintf("ns=%d;s=%s", id.Namespace, id.Text)
	case NodeIDGuid:
		return fmt.Sprintf("ns=%d;g=%s", id.Namespace, id.Guid)
	case NodeIDByteString:
		return fmt.Sprintf("ns=%d;b=%x", id.Namespace, id.Bytes)
	}
	return fmt.Sprintf("ns=%d;?", id.Namespace)
}

// WriteNodeID writes the identifier in its most compact wire form.
func (w *Writer) WriteNodeID(id NodeID) {
	w.writeNodeID(id, 0)
}

func (w *Writer) writeNodeID(id NodeID, flags byte) {
	if w.err != nil {
		return
	}
	switch id.Type {
	case NodeIDNumeric:
		switch {
		case id.Namespace == 0 && id.Numeric <= 0xFF:
			w.WriteUint8(nodeIDEncodingTwoByte | flags)
			w.WriteUint8(uint8(id.Numeric))
		case id.Namespace <= 0xFF && id.Numeric <= 0xFFFF:
			w.WriteUint8(nodeIDEncodingFourByte | flags)
			w.WriteUint8(uint8(id.Namespace))
			w.WriteUint16(uint16(id.Numeric))
		default:
			w.WriteUint8(nodeIDEncodingNumeric | flags)
			w.WriteUint16(id.Namespace)
			w.WriteUint32(id.Numeric)
		}
	case NodeIDString:
		w.WriteUint8(nodeIDEncodingString | flags)
		w.WriteUint16(id.Namespace)
		w.WritePrefixedString(id.Text)
	case NodeIDGuid:
		w.WriteUint8(nodeIDEncodingGuid | flags)
		w.WriteUint16(id.Namespace)
		w.WriteGuid(id.Guid)
	case NodeIDByteString:
		w.WriteUint8(nodeIDEncodingByteString | flags)
		w.WriteUint16(id.Namespace)
		w.WritePrefixedBytes(id.Bytes)
	default:
		w.setError(fmt.Errorf("%w: unknown node id type %d", ErrValue, id.Type))
	}
}

// ReadNodeID reads an identifier written by WriteNodeID. An unknown
// encoding selector latches ErrValue.
func (r *Reader) ReadNodeID(dest *NodeID) {
	r.readNodeID(dest, nil)
}

func (r *Reader) readNodeID(dest *NodeID, flags *byte) {
	encoding, err := r.ReadByte()
	if err != nil {
		return
	}
	if flags != nil {
		*flags = encoding &^ nodeIDMaskEncoding
	}
	var id NodeID
	switch encoding & nodeIDMaskEncoding {
	case nodeIDEncodingTwoByte:
		var n uint8
		r.ReadUint8(&n)
		id = NewNumericNodeID(0, uint32(n))
	case nodeIDEncodingFourByte:
		var ns uint8
		var n uint16
		r.ReadUint8(&ns)
		r.ReadUint16(&n)
		id = NewNumericNodeID(uint16(ns), uint32(n))
	case nodeIDEncodingNumeric:
		var ns uint16
		var n uint32
		r.ReadUint16(&ns)
		r.ReadUint32(&n)
		id = NewNumericNodeID(ns, n)
	case nodeIDEncodingString:
		id.Type = NodeIDString
		r.ReadUint16(&id.Namespace)
		r.ReadPrefixedString(&id.Text)
	case nodeIDEncodingGuid:
		id.Type = NodeIDGuid
		r.ReadUint16(&id.Namespace)
		r.ReadGuid(&id.Guid)
	case nodeIDEncodingByteString:
		id.Type = NodeIDByteString
		r.ReadUint16(&id.Namespace)
		r.ReadPrefixedBytes(&id.Bytes)
	default:
		r.setError(fmt.Errorf("%w: unknown node id encoding 0x%02x", ErrValue, encoding))
		return
	}
	if r.err == nil {
		*dest = id
	}
}

// ExpandedNodeID is the composite discriminator the surrounding protocol
// frames messages with: a NodeID plus an optional namespace URI and an
// optional server index.
type ExpandedNodeID struct {
	NodeID
	NamespaceURI string
	ServerIndex  uint32
}

// Equal reports structural equality of the two identifiers.
func (id ExpandedNodeID) Equal(other ExpandedNodeID) bool {
	return id.NodeID.Equal(other.NodeID) &&
		id.NamespaceURI == other.NamespaceURI &&
		id.ServerIndex == other.ServerIndex
}

// WriteExpandedNodeID writes the inner NodeID with the URI and server-index
// flags folded into its encoding byte, then the flagged extras.
func (w *Writer) WriteExpandedNodeID(id ExpandedNodeID) {
	var flags byte
	if id.NamespaceURI != "" {
		flags |= nodeIDFlagNamespaceURI
	}
	if id.ServerIndex > 0 {
		flags |= nodeIDFlagServerIndex
	}
	w.writeNodeID(id.NodeID, flags)
	if id.NamespaceURI != "" {
		w.WritePrefixedString(id.NamespaceURI)
	}
	if id.ServerIndex > 0 {
		w.WriteUint32(id.ServerIndex)
	}
}

// ReadExpandedNodeID reads an identifier written by WriteExpandedNodeID.
func (r *Reader) ReadExpandedNodeID(dest *ExpandedNodeID) {
	var id ExpandedNodeID
	var flags byte
	r.readNodeID(&id.NodeID, &flags)
	if flags&nodeIDFlagNamespaceURI != 0 {
		r.ReadPrefixedString(&id.NamespaceURI)
	}
	if flags&nodeIDFlagServerIndex != 0 {
		r.ReadUint32(&id.ServerIndex)
	}
	if r.err == nil {
		*dest = id
	}
}
