package uamodel

import (
	"fmt"

	"github.com/puzpuzpuz/xsync/v4"
)

// BinaryEncodingName returns the catalog convention name for a type's
// default binary encoding identifier.
func BinaryEncodingName(typeName string) string {
	return typeName + "_Encoding_DefaultBinary"
}

// XMLEncodingName returns the catalog convention name for a type's default
// XML encoding identifier. The XML identifier is tracked but never used by
// this package's codecs.
func XMLEncodingName(typeName string) string {
	return typeName + "_Encoding_DefaultXml"
}

// Catalog maps symbolic convention names to numeric encoding identifiers.
// Lookups are lock-free; registration may happen concurrently.
type Catalog struct {
	ids *xsync.Map[string, NodeID]
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{ids: xsync.NewMap[string, NodeID]()}
}

// DefaultCatalog is the process-wide catalog consulted by the zero-value
// Compiler.
var DefaultCatalog = NewCatalog()

// Register binds a symbolic name to an identifier, replacing any previous
// binding.
func (c *Catalog) Register(name string, id NodeID) {
	c.ids.Store(name, id)
}

// Lookup resolves a symbolic name. A miss fails with ErrNotFound.
func (c *Catalog) Lookup(name string) (NodeID, error) {
	if id, ok := c.ids.Load(name); ok {
		return id, nil
	}
	return NodeID{}, fmt.Errorf("%w: no catalog entry for %q", ErrNotFound, name)
}
