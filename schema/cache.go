// Package schema holds the client-side cache of OrientDB's global property
// table, used to resolve property-id header descriptors in the record
// codec (see package record) back into names and types.
package schema

import (
	"sync"

	"github.com/MyMedsAndMe/orientwire/record"
)

// Property describes one entry of the server's global property table.
type Property struct {
	ID   int
	Name string
	Type record.Type
}

// Cache maps global property ids to their declared name and type. It is
// safe for concurrent use: the owning session (see package session)
// writes to it from the goroutine of whichever caller triggered a schema
// refetch, not from its reader goroutine, while other callers may be
// decoding records against it, so every access takes the lock.
type Cache struct {
	mu   sync.RWMutex
	byID map[int]Property
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{byID: make(map[int]Property)}
}

// Property implements record.SchemaLookup.
func (c *Cache) Property(id int) (string, record.Type, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.byID[id]
	if !ok {
		return "", 0, false
	}
	return p.Name, p.Type, true
}

// Put installs or replaces a property entry.
func (c *Cache) Put(p Property) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID[p.ID] = p
}

// PutAll installs a batch of properties, as returned by a schema record
// fetch.
func (c *Cache) PutAll(ps []Property) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range ps {
		c.byID[p.ID] = p
	}
}

// Len reports how many properties are currently cached.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byID)
}

// TypeByName maps the server's textual type names (as carried in the
// globalProperties schema document, e.g. "STRING", "INTEGER") to the
// record wire type code. Unrecognized names fall back to TypeAny so a
// redecode degrades to Null rather than failing outright.
func TypeByName(name string) record.Type {
	switch name {
	case "BOOLEAN":
		return record.TypeBoolean
	case "INTEGER":
		return record.TypeInt
	case "SHORT":
		return record.TypeShort
	case "LONG":
		return record.TypeLong
	case "FLOAT":
		return record.TypeFloat
	case "DOUBLE":
		return record.TypeDouble
	case "DATETIME":
		return record.TypeDateTime
	case "STRING":
		return record.TypeString
	case "BINARY":
		return record.TypeBinary
	case "EMBEDDED":
		return record.TypeEmbedded
	case "EMBEDDEDLIST":
		return record.TypeEmbeddedList
	case "EMBEDDEDSET":
		return record.TypeEmbeddedSet
	case "EMBEDDEDMAP":
		return record.TypeEmbeddedMap
	case "LINK":
		return record.TypeLink
	case "LINKLIST":
		return record.TypeLinkList
	case "LINKSET":
		return record.TypeLinkSet
	case "LINKMAP":
		return record.TypeLinkMap
	case "BYTE":
		return record.TypeByte
	case "TRANSIENT":
		return record.TypeTransient
	case "DATE":
		return record.TypeDate
	case "CUSTOM":
		return record.TypeCustom
	case "DECIMAL":
		return record.TypeDecimal
	case "LINKBAG":
		return record.TypeLinkBag
	default:
		return record.TypeAny
	}
}

// FromDocument extracts the property list from a decoded schema document's
// "globalProperties" field (an EmbeddedList of EmbeddedDocuments with at
// least name/type/id fields).
func FromDocument(doc *record.Document) []Property {
	v, ok := doc.Get("globalProperties")
	if !ok {
		return nil
	}
	list, ok := v.(record.EmbeddedList)
	if !ok {
		return nil
	}
	out := make([]Property, 0, len(list))
	for _, item := range list {
		ed, ok := item.(record.EmbeddedDocument)
		if !ok || ed.Doc == nil {
			continue
		}
		p := Property{}
		if idv, ok := ed.Doc.Get("id"); ok {
			switch n := idv.(type) {
			case record.Int32:
				p.ID = int(n)
			case record.Int16:
				p.ID = int(n)
			}
		}
		if nv, ok := ed.Doc.Get("name"); ok {
			if s, ok := nv.(record.String); ok {
				p.Name = string(s)
			}
		}
		if tv, ok := ed.Doc.Get("type"); ok {
			if s, ok := tv.(record.String); ok {
				p.Type = TypeByName(string(s))
			}
		}
		out = append(out, p)
	}
	return out
}
