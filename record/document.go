package record

// Record is the sum type for anything the wire can deliver as a decoded
// record: a schemaless document, an opaque binary blob, or - when the
// header references a property id the caller's schema cache doesn't know
// about yet - an UndecodedDocument awaiting a refetch-and-retry.
type Record interface {
	isRecord()
}

// Field is one name/value pair of a Document. Fields are kept in a slice
// rather than a bare map so that encode order (and therefore header byte
// layout) is stable and caller-controlled.
type Field struct {
	Name  string
	Value Value
}

// Document is a schemaless or schemaful OrientDB record: an optional class,
// an optional version, an optional identity, and an ordered set of fields.
// Callers may mutate a Document's Fields freely before it is sent; once
// decoded off the wire it should be treated as a snapshot.
type Document struct {
	Class   *string
	Version *int32
	RID     *RID
	Fields  []Field
}

func (*Document) isRecord() {}

// NewDocument creates an empty document of the given class. Pass "" for an
// anonymous/embedded document with no class name.
func NewDocument(class string) *Document {
	return &Document{Class: &class}
}

// Get returns the value of the named field and whether it was present.
func (d *Document) Get(name string) (Value, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Set assigns a field value, updating it in place if the name already
// exists or appending it (preserving insertion order) otherwise.
func (d *Document) Set(name string, v Value) *Document {
	for i := range d.Fields {
		if d.Fields[i].Name == name {
			d.Fields[i].Value = v
			return d
		}
	}
	d.Fields = append(d.Fields, Field{Name: name, Value: v})
	return d
}

// ClassName returns the document's class, or "" if unset.
func (d *Document) ClassName() string {
	if d.Class == nil {
		return ""
	}
	return *d.Class
}

// BinaryRecord is an opaque byte blob record - OrientDB's "binary" record
// type, as opposed to a structured Document.
type BinaryRecord struct {
	Contents []byte
	RID      *RID
	Version  *int32
}

func (*BinaryRecord) isRecord() {}

// UndecodedDocument is produced when a record's header references a
// property id absent from the caller's SchemaCache. It carries the
// original bytes so the session can refetch the schema and rerun the
// decode. Callers that see one after a refetch has already been attempted
// must treat it as an opaque error: the property id is unknown even to
// a freshly-fetched schema.
type UndecodedDocument struct {
	Version *int32
	RID     *RID
	Raw     []byte
}

func (*UndecodedDocument) isRecord() {}
