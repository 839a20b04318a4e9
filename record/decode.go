package record

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrUnsupportedRidBagForm is returned when a RidBag's form byte denotes
// the tree-based (external, B-tree) representation. Only the embedded
// form is supported.
var ErrUnsupportedRidBagForm = errors.New("orientwire: tree-format RidBag is not supported")

// ErrUnsupportedRecordVersion is returned when a top-level record's
// leading format byte is not the only value this codec understands (0).
var ErrUnsupportedRecordVersion = errors.New("orientwire: unsupported record serializer version")

// unknownPropertyErr unwinds a decode when a schema-property header
// descriptor references an id the supplied SchemaLookup can't resolve.
// DecodeDocument catches it at the top level and returns an
// *UndecodedDocument instead of propagating the error to the caller.
type unknownPropertyErr struct{ id int }

func (e unknownPropertyErr) Error() string {
	return fmt.Sprintf("orientwire: unknown property id %d", e.id)
}

// UnknownPropertyID extracts the property id from a decode error, if the
// failure was due to a schema miss. DecodeDocument uses it to turn such a
// miss into an *UndecodedDocument, so its own errors never carry one.
func UnknownPropertyID(err error) (int, bool) {
	var upe unknownPropertyErr
	if errors.As(err, &upe) {
		return upe.id, true
	}
	return 0, false
}

type fieldDescriptor struct {
	name    string
	pointer int
	typ     Type
}

// DecodeDocument decodes a complete top-level record (the byte range the
// caller has already delimited via the outer response framing). On
// success it returns a *Document. If the header references a property id
// absent from cache, it returns a *UndecodedDocument carrying the original
// bytes verbatim so the session can refetch the schema and retry.
func DecodeDocument(buf []byte, cache SchemaLookup) (Record, error) {
	if cache == nil {
		cache = NoSchema
	}
	doc, _, err := decodeRecordAt(buf, 0, true, cache)
	if err != nil {
		if _, ok := UnknownPropertyID(err); ok {
			return &UndecodedDocument{Raw: append([]byte(nil), buf...)}, nil
		}
		return nil, err
	}
	return doc, nil
}

// decodeRecordAt decodes a document whose bytes begin at absolute offset
// start within buf, returning the document and the number of bytes this
// record's own serialization spans (prefix + header + body, using the
// high-water mark of every decoded field so non-contiguous encodings -
// though this codec never produces them - still measure correctly).
func decodeRecordAt(buf []byte, start int, withVersion bool, cache SchemaLookup) (*Document, int, error) {
	pos := start
	if withVersion {
		if pos >= len(buf) {
			return nil, 0, ErrIncomplete
		}
		if buf[pos] != 0 {
			return nil, 0, ErrUnsupportedRecordVersion
		}
		pos++
	}

	className, n, err := decodeRecordString(buf, pos)
	if err != nil {
		return nil, 0, err
	}
	pos += n

	var descriptors []fieldDescriptor
	for {
		lead, n, err := DecodeZigZag(buf[pos:])
		if err != nil {
			return nil, 0, err
		}
		pos += n
		if lead == 0 {
			break
		}
		if lead > 0 {
			nameLen := int(lead)
			if len(buf) < pos+nameLen {
				return nil, 0, ErrIncomplete
			}
			name := string(buf[pos : pos+nameLen])
			pos += nameLen
			ptr, rest, err := readPointer(buf[pos:])
			if err != nil {
				return nil, 0, err
			}
			pos += 4
			typ, rest2, err := readTypeByte(rest)
			if err != nil {
				return nil, 0, err
			}
			_ = rest2
			pos++
			descriptors = append(descriptors, fieldDescriptor{name: name, pointer: ptr, typ: typ})
		} else {
			propID := int(-(lead + 1))
			ptr, _, err := readPointer(buf[pos:])
			if err != nil {
				return nil, 0, err
			}
			pos += 4
			name, typ, ok := cache.Property(propID)
			if !ok {
				return nil, 0, unknownPropertyErr{id: propID}
			}
			descriptors = append(descriptors, fieldDescriptor{name: name, pointer: ptr, typ: typ})
		}
	}

	maxPos := pos
	fields := make([]Field, 0, len(descriptors))
	for _, d := range descriptors {
		if d.pointer == 0 || d.typ == TypeAny {
			fields = append(fields, Field{Name: d.name, Value: Null{}})
			continue
		}
		v, consumed, err := decodeValueAt(buf, d.pointer, d.typ, cache)
		if err != nil {
			return nil, 0, fmt.Errorf("orientwire: decode field %q: %w", d.name, err)
		}
		fields = append(fields, Field{Name: d.name, Value: v})
		if end := d.pointer + consumed; end > maxPos {
			maxPos = end
		}
	}

	doc := &Document{Fields: fields}
	if className != "" {
		doc.Class = &className
	}
	return doc, maxPos - start, nil
}

func decodeRecordString(buf []byte, pos int) (string, int, error) {
	l, n, err := DecodeZigZag(buf[pos:])
	if err != nil {
		return "", 0, err
	}
	if l < 0 {
		return "", 0, errors.New("orientwire: negative string length in record")
	}
	end := pos + n + int(l)
	if end > len(buf) {
		return "", 0, ErrIncomplete
	}
	return string(buf[pos+n : end]), n + int(l), nil
}

func readPointer(b []byte) (int, []byte, error) {
	if len(b) < 4 {
		return 0, b, ErrIncomplete
	}
	return int(int32(binary.BigEndian.Uint32(b))), b[4:], nil
}

func readTypeByte(b []byte) (Type, []byte, error) {
	if len(b) < 1 {
		return 0, b, ErrIncomplete
	}
	return Type(b[0]), b[1:], nil
}

// decodeValueAt decodes the value of type typ starting at absolute offset
// pos, returning the value and the number of bytes its own encoding spans
// (needed by inline sequence decoders - embedded lists - that lay items
// back to back rather than addressing them by pointer).
func decodeValueAt(buf []byte, pos int, typ Type, cache SchemaLookup) (Value, int, error) {
	switch typ {
	case TypeAny:
		return Null{}, 0, nil
	case TypeBoolean:
		if pos >= len(buf) {
			return nil, 0, ErrIncomplete
		}
		return Boolean(buf[pos] != 0), 1, nil
	case TypeShort:
		v, n, err := DecodeZigZag(buf[pos:])
		return Int16(v), n, err
	case TypeInt:
		v, n, err := DecodeZigZag(buf[pos:])
		return Int32(v), n, err
	case TypeLong:
		v, n, err := DecodeZigZag(buf[pos:])
		return Int64(v), n, err
	case TypeFloat:
		if len(buf) < pos+4 {
			return nil, 0, ErrIncomplete
		}
		return Float32V(math.Float32frombits(binary.BigEndian.Uint32(buf[pos:]))), 4, nil
	case TypeDouble:
		if len(buf) < pos+8 {
			return nil, 0, ErrIncomplete
		}
		return Float64V(math.Float64frombits(binary.BigEndian.Uint64(buf[pos:]))), 8, nil
	case TypeDecimal:
		return decodeDecimal(buf, pos)
	case TypeString:
		s, n, err := decodeRecordString(buf, pos)
		return String(s), n, err
	case TypeBinary:
		l, n, err := DecodeZigZag(buf[pos:])
		if err != nil {
			return nil, 0, err
		}
		end := pos + n + int(l)
		if end > len(buf) {
			return nil, 0, ErrIncomplete
		}
		out := make([]byte, l)
		copy(out, buf[pos+n:end])
		return Bytes(out), n + int(l), nil
	case TypeDate:
		v, n, err := DecodeZigZag(buf[pos:])
		return DateDays(v), n, err
	case TypeDateTime:
		v, n, err := DecodeZigZag(buf[pos:])
		return DateTimeMillis(v), n, err
	case TypeEmbedded:
		doc, n, err := decodeRecordAt(buf, pos, false, cache)
		if err != nil {
			return nil, 0, err
		}
		return EmbeddedDocument{Doc: doc}, n, nil
	case TypeEmbeddedList:
		return decodeEmbeddedSeq(buf, pos, cache, false)
	case TypeEmbeddedSet:
		return decodeEmbeddedSeq(buf, pos, cache, true)
	case TypeEmbeddedMap:
		return decodeEmbeddedMap(buf, pos, cache)
	case TypeLink:
		cl, n1, err := DecodeZigZag(buf[pos:])
		if err != nil {
			return nil, 0, err
		}
		p, n2, err := DecodeZigZag(buf[pos+n1:])
		if err != nil {
			return nil, 0, err
		}
		return Link{Cluster: int16(cl), Position: p}, n1 + n2, nil
	case TypeLinkList:
		return decodeLinkSeq(buf, pos, false)
	case TypeLinkSet:
		return decodeLinkSeq(buf, pos, true)
	case TypeLinkMap:
		return decodeLinkMap(buf, pos)
	case TypeLinkBag:
		return decodeLinkBag(buf, pos)
	default:
		return nil, 0, fmt.Errorf("orientwire: unsupported type code %d", typ)
	}
}

func decodeDecimal(buf []byte, pos int) (Value, int, error) {
	if len(buf) < pos+8 {
		return nil, 0, ErrIncomplete
	}
	scale := int32(binary.BigEndian.Uint32(buf[pos:]))
	n := int(binary.BigEndian.Uint32(buf[pos+4:]))
	end := pos + 8 + n
	if end > len(buf) {
		return nil, 0, ErrIncomplete
	}
	unscaled := bigIntFromTwosComplement(buf[pos+8 : end])
	return Decimal{Unscaled: unscaled, Scale: scale}, 8 + n, nil
}

func decodeEmbeddedSeq(buf []byte, pos int, cache SchemaLookup, asSet bool) (Value, int, error) {
	count, n, err := DecodeZigZag(buf[pos:])
	if err != nil {
		return nil, 0, err
	}
	cursor := pos + n
	if cursor >= len(buf) {
		return nil, 0, ErrIncomplete
	}
	cursor++ // element-type byte, ignored on decode
	items := make([]Value, 0, count)
	for i := int64(0); i < count; i++ {
		typ, rest, err := readTypeByte(buf[cursor:])
		if err != nil {
			return nil, 0, err
		}
		_ = rest
		v, consumed, err := decodeValueAt(buf, cursor+1, typ, cache)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, v)
		cursor += 1 + consumed
	}
	total := cursor - pos
	if asSet {
		return EmbeddedSet(items), total, nil
	}
	return EmbeddedList(items), total, nil
}

func decodeEmbeddedMap(buf []byte, pos int, cache SchemaLookup) (Value, int, error) {
	count, n, err := DecodeZigZag(buf[pos:])
	if err != nil {
		return nil, 0, err
	}
	cursor := pos + n
	type entry struct {
		key     string
		pointer int
		typ     Type
	}
	entries := make([]entry, 0, count)
	maxPos := cursor
	for i := int64(0); i < count; i++ {
		_, rest, err := readTypeByte(buf[cursor:]) // key-type byte, always string
		if err != nil {
			return nil, 0, err
		}
		_ = rest
		cursor++
		key, kn, err := decodeRecordString(buf, cursor)
		if err != nil {
			return nil, 0, err
		}
		cursor += kn
		ptr, _, err := readPointer(buf[cursor:])
		if err != nil {
			return nil, 0, err
		}
		cursor += 4
		vtyp, _, err := readTypeByte(buf[cursor:])
		if err != nil {
			return nil, 0, err
		}
		cursor++
		entries = append(entries, entry{key: key, pointer: ptr, typ: vtyp})
	}
	if cursor > maxPos {
		maxPos = cursor
	}
	out := make(EmbeddedMap, len(entries))
	for _, e := range entries {
		if e.pointer == 0 {
			out[e.key] = Null{}
			continue
		}
		v, consumed, err := decodeValueAt(buf, e.pointer, e.typ, cache)
		if err != nil {
			return nil, 0, err
		}
		out[e.key] = v
		if end := e.pointer + consumed; end > maxPos {
			maxPos = end
		}
	}
	return out, maxPos - pos, nil
}

func decodeLinkSeq(buf []byte, pos int, asSet bool) (Value, int, error) {
	count, n, err := DecodeZigZag(buf[pos:])
	if err != nil {
		return nil, 0, err
	}
	cursor := pos + n
	rids := make([]RID, 0, count)
	for i := int64(0); i < count; i++ {
		cl, n1, err := DecodeZigZag(buf[cursor:])
		if err != nil {
			return nil, 0, err
		}
		p, n2, err := DecodeZigZag(buf[cursor+n1:])
		if err != nil {
			return nil, 0, err
		}
		rids = append(rids, RID{Cluster: int16(cl), Position: p})
		cursor += n1 + n2
	}
	total := cursor - pos
	if asSet {
		return LinkSet(rids), total, nil
	}
	return LinkList(rids), total, nil
}

func decodeLinkMap(buf []byte, pos int) (Value, int, error) {
	count, n, err := DecodeZigZag(buf[pos:])
	if err != nil {
		return nil, 0, err
	}
	cursor := pos + n
	out := make(LinkMap, count)
	for i := int64(0); i < count; i++ {
		key, kn, err := decodeRecordString(buf, cursor)
		if err != nil {
			return nil, 0, err
		}
		cursor += kn
		cl, n1, err := DecodeZigZag(buf[cursor:])
		if err != nil {
			return nil, 0, err
		}
		p, n2, err := DecodeZigZag(buf[cursor+n1:])
		if err != nil {
			return nil, 0, err
		}
		cursor += n1 + n2
		out[key] = RID{Cluster: int16(cl), Position: p}
	}
	return out, cursor - pos, nil
}

func decodeLinkBag(buf []byte, pos int) (Value, int, error) {
	if pos >= len(buf) {
		return nil, 0, ErrIncomplete
	}
	form := buf[pos]
	if form != 1 {
		return nil, 0, ErrUnsupportedRidBagForm
	}
	if len(buf) < pos+5 {
		return nil, 0, ErrIncomplete
	}
	count := int(binary.BigEndian.Uint32(buf[pos+1:]))
	cursor := pos + 5
	end := cursor + count*10
	if end > len(buf) {
		return nil, 0, ErrIncomplete
	}
	rids := make([]RID, 0, count)
	for i := 0; i < count; i++ {
		cl := int16(binary.BigEndian.Uint16(buf[cursor:]))
		p := int64(binary.BigEndian.Uint64(buf[cursor+2:]))
		rids = append(rids, RID{Cluster: cl, Position: p})
		cursor += 10
	}
	return LinkBag(rids), cursor - pos, nil
}
