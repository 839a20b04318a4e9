package record

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeDocument serializes a top-level document: a version byte, the
// class name, the field header, and the field bodies. Field header
// pointers are absolute byte offsets into the returned slice, per the
// wire format's "offset from the start of the serialized record" rule.
func EncodeDocument(doc *Document) ([]byte, error) {
	return encodeRecordAt(doc, 0, true)
}

func recordString(s string) []byte {
	return append(EncodeZigZag(int64(len(s))), s...)
}

func descriptorLen(name string) int {
	return len(EncodeZigZag(int64(len(name)))) + len(name) + 4 + 1
}

// encodeRecordAt serializes doc as if its first byte will land at absolute
// offset base within the final buffer. withVersion controls whether the
// leading format-version byte is emitted - true for top-level records,
// false for embedded documents (which share the outer record's buffer).
func encodeRecordAt(doc *Document, base int, withVersion bool) ([]byte, error) {
	class := recordString(doc.ClassName())

	var prefix []byte
	if withVersion {
		prefix = append(prefix, 0)
	}
	prefix = append(prefix, class...)

	headerLen := 1 // terminator
	for _, f := range doc.Fields {
		headerLen += descriptorLen(f.Name)
	}

	bodyStart := base + len(prefix) + headerLen

	type encoded struct {
		pointer int
		typ     Type
		bytes   []byte
	}
	fields := make([]encoded, len(doc.Fields))
	cursor := bodyStart
	var body []byte
	for i, f := range doc.Fields {
		if isNullValue(f.Value) {
			fields[i] = encoded{pointer: 0, typ: TypeAny}
			continue
		}
		payload, typ, err := encodeValueAt(f.Value, cursor)
		if err != nil {
			return nil, fmt.Errorf("orientwire: encode field %q: %w", f.Name, err)
		}
		fields[i] = encoded{pointer: cursor, typ: typ, bytes: payload}
		body = append(body, payload...)
		cursor += len(payload)
	}

	header := make([]byte, 0, headerLen)
	for i, f := range doc.Fields {
		header = append(header, EncodeZigZag(int64(len(f.Name)))...)
		header = append(header, f.Name...)
		var ptr [4]byte
		binary.BigEndian.PutUint32(ptr[:], uint32(fields[i].pointer))
		header = append(header, ptr[:]...)
		header = append(header, byte(fields[i].typ))
	}
	header = append(header, EncodeZigZag(0)...) // terminator

	out := make([]byte, 0, len(prefix)+len(header)+len(body))
	out = append(out, prefix...)
	out = append(out, header...)
	out = append(out, body...)
	return out, nil
}

func isNullValue(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// encodeValueAt encodes a single field's value, assuming it will be
// spliced into the final buffer starting at absolute offset pos. Compound
// values (embedded documents, maps with pointer-addressed entries) need
// pos to compute their own internal absolute pointers.
func encodeValueAt(v Value, pos int) ([]byte, Type, error) {
	switch val := v.(type) {
	case Null:
		return nil, TypeAny, nil
	case Boolean:
		if val {
			return []byte{1}, TypeBoolean, nil
		}
		return []byte{0}, TypeBoolean, nil
	case Int16:
		return EncodeZigZag(int64(val)), TypeShort, nil
	case Int32:
		return EncodeZigZag(int64(val)), TypeInt, nil
	case Int64:
		return EncodeZigZag(int64(val)), TypeLong, nil
	case Float32V:
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], math.Float32bits(float32(val)))
		return b[:], TypeFloat, nil
	case Float64V:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], math.Float64bits(float64(val)))
		return b[:], TypeDouble, nil
	case Decimal:
		vb := bigIntToTwosComplement(val.Unscaled)
		out := make([]byte, 0, 8+len(vb))
		var scaleB, lenB [4]byte
		binary.BigEndian.PutUint32(scaleB[:], uint32(val.Scale))
		binary.BigEndian.PutUint32(lenB[:], uint32(len(vb)))
		out = append(out, scaleB[:]...)
		out = append(out, lenB[:]...)
		out = append(out, vb...)
		return out, TypeDecimal, nil
	case String:
		return recordString(string(val)), TypeString, nil
	case Bytes:
		return append(EncodeZigZag(int64(len(val))), val...), TypeBinary, nil
	case Date:
		return EncodeZigZag(val.Days()), TypeDate, nil
	case DateTime:
		return EncodeZigZag(val.Millis()), TypeDateTime, nil
	case EmbeddedDocument:
		b, err := encodeRecordAt(val.Doc, pos, false)
		return b, TypeEmbedded, err
	case EmbeddedList:
		b, err := encodeEmbeddedSeq([]Value(val), pos)
		return b, TypeEmbeddedList, err
	case EmbeddedSet:
		b, err := encodeEmbeddedSeq([]Value(val), pos)
		return b, TypeEmbeddedSet, err
	case EmbeddedMap:
		b, err := encodeEmbeddedMap(val, pos)
		return b, TypeEmbeddedMap, err
	case Link:
		b := append(EncodeZigZag(int64(val.Cluster)), EncodeZigZag(val.Position)...)
		return b, TypeLink, nil
	case LinkList:
		b, err := encodeLinkSeq([]RID(val))
		return b, TypeLinkList, err
	case LinkSet:
		b, err := encodeLinkSeq([]RID(val))
		return b, TypeLinkSet, err
	case LinkMap:
		b, err := encodeLinkMap(val)
		return b, TypeLinkMap, err
	case LinkBag:
		return encodeLinkBag([]RID(val)), TypeLinkBag, nil
	default:
		return nil, 0, fmt.Errorf("orientwire: unsupported value type %T", v)
	}
}

func encodeEmbeddedSeq(items []Value, pos int) ([]byte, error) {
	out := EncodeZigZag(int64(len(items)))
	out = append(out, byte(TypeAny)) // OrientDB only supports heterogeneous lists
	cursor := pos + len(out)
	for i, item := range items {
		if isNullValue(item) {
			out = append(out, byte(TypeAny))
			cursor++
			continue
		}
		payload, typ, err := encodeValueAt(item, cursor+1)
		if err != nil {
			return nil, fmt.Errorf("orientwire: encode list item %d: %w", i, err)
		}
		out = append(out, byte(typ))
		out = append(out, payload...)
		cursor += 1 + len(payload)
	}
	return out, nil
}

func encodeEmbeddedMap(m EmbeddedMap, pos int) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	out := EncodeZigZag(int64(len(keys)))

	headerLen := 0
	for _, k := range keys {
		headerLen += 1 + len(EncodeZigZag(int64(len(k)))) + len(k) + 4 + 1
	}
	bodyStart := pos + len(out) + headerLen

	type kv struct {
		key     string
		pointer int
		typ     Type
		bytes   []byte
	}
	entries := make([]kv, len(keys))
	cursor := bodyStart
	var body []byte
	for i, k := range keys {
		v := m[k]
		if isNullValue(v) {
			entries[i] = kv{key: k, pointer: 0, typ: TypeAny}
			continue
		}
		payload, typ, err := encodeValueAt(v, cursor)
		if err != nil {
			return nil, fmt.Errorf("orientwire: encode map key %q: %w", k, err)
		}
		entries[i] = kv{key: k, pointer: cursor, typ: typ, bytes: payload}
		body = append(body, payload...)
		cursor += len(payload)
	}

	for _, e := range entries {
		out = append(out, byte(TypeString))
		out = append(out, recordString(e.key)...)
		var ptr [4]byte
		binary.BigEndian.PutUint32(ptr[:], uint32(e.pointer))
		out = append(out, ptr[:]...)
		out = append(out, byte(e.typ))
	}
	out = append(out, body...)
	return out, nil
}

func encodeLinkSeq(rids []RID) ([]byte, error) {
	out := EncodeZigZag(int64(len(rids)))
	for _, r := range rids {
		out = append(out, EncodeZigZag(int64(r.Cluster))...)
		out = append(out, EncodeZigZag(r.Position)...)
	}
	return out, nil
}

func encodeLinkMap(m LinkMap) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	out := EncodeZigZag(int64(len(keys)))
	for _, k := range keys {
		out = append(out, recordString(k)...)
		r := m[k]
		out = append(out, EncodeZigZag(int64(r.Cluster))...)
		out = append(out, EncodeZigZag(r.Position)...)
	}
	return out, nil
}

func encodeLinkBag(rids []RID) []byte {
	out := []byte{1} // embedded form
	var cnt [4]byte
	binary.BigEndian.PutUint32(cnt[:], uint32(len(rids)))
	out = append(out, cnt[:]...)
	for _, r := range rids {
		var cl [2]byte
		binary.BigEndian.PutUint16(cl[:], uint16(r.Cluster))
		out = append(out, cl[:]...)
		var posb [8]byte
		binary.BigEndian.PutUint64(posb[:], uint64(r.Position))
		out = append(out, posb[:]...)
	}
	return out
}
