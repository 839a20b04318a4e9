package record

// SchemaLookup resolves a global property id to its declared name and wire
// type, as populated by a session's schema cache. Declared here (rather
// than imported from package schema) so the decoder has no dependency on
// the cache's own implementation - schema.Cache satisfies this interface
// structurally.
type SchemaLookup interface {
	Property(id int) (name string, typ Type, ok bool)
}

// emptyLookup is used when the caller has no schema cache at all; any
// schema-property descriptor immediately yields an unknown-property result.
type emptyLookup struct{}

func (emptyLookup) Property(id int) (string, Type, bool) { return "", 0, false }

// NoSchema is a SchemaLookup that never resolves a property id. Useful for
// decoding records that are known to use only named fields.
var NoSchema SchemaLookup = emptyLookup{}
