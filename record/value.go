package record

import (
	"bytes"
	"math/big"
	"slices"
	"time"
)

// Type is the one-byte wire discriminator that precedes every field value
// inside a serialized record (OrientDB "schemaless binary" format).
type Type byte

// Type codes as laid out by the wire format. The numeric values are part
// of the protocol and must not be reordered.
const (
	TypeBoolean      Type = 0
	TypeInt          Type = 1
	TypeShort        Type = 2
	TypeLong         Type = 3
	TypeFloat        Type = 4
	TypeDouble       Type = 5
	TypeDateTime     Type = 6
	TypeString       Type = 7
	TypeBinary       Type = 8
	TypeEmbedded     Type = 9
	TypeEmbeddedList Type = 10
	TypeEmbeddedSet  Type = 11
	TypeEmbeddedMap  Type = 12
	TypeLink         Type = 13
	TypeLinkList     Type = 14
	TypeLinkSet      Type = 15
	TypeLinkMap      Type = 16
	TypeByte         Type = 17
	TypeTransient    Type = 18
	TypeDate         Type = 19
	TypeCustom       Type = 20
	TypeDecimal      Type = 21
	TypeLinkBag      Type = 22
	TypeAny          Type = 23
)

// Value is the sum type for every field a Document can hold. Concrete
// variants are the unexported-marker-free structs and slices below; callers
// switch on the dynamic type or call Type() to dispatch.
type Value interface {
	Type() Type
}

// Null is the value of a field whose header pointer is 0: no bytes exist
// for it in the record body.
type Null struct{}

func (Null) Type() Type { return TypeAny }

// Boolean is a single-byte 0/1 field.
type Boolean bool

func (Boolean) Type() Type { return TypeBoolean }

// Int16 is a field tagged as "short" on the wire. Callers that want a
// specific width on encode must use the matching variant; on decode the
// width is fixed by the field's type byte.
type Int16 int16

func (Int16) Type() Type { return TypeShort }

// Int32 is a field tagged as "int" on the wire; this is also the default
// variant produced for untagged integer literals handed to the encoder.
type Int32 int32

func (Int32) Type() Type { return TypeInt }

// Int64 is a field tagged as "long" on the wire.
type Int64 int64

func (Int64) Type() Type { return TypeLong }

// Float32V is an IEEE-754 single precision field.
type Float32V float32

func (Float32V) Type() Type { return TypeFloat }

// Float64V is an IEEE-754 double precision field.
type Float64V float64

func (Float64V) Type() Type { return TypeDouble }

// Decimal holds an arbitrary precision value as unscaled*10^-scale.
type Decimal struct {
	Unscaled *big.Int
	Scale    int32
}

func (Decimal) Type() Type { return TypeDecimal }

// NewDecimal builds a Decimal, copying the supplied big.Int so later
// mutation by the caller can't alter an already-built Value.
func NewDecimal(unscaled *big.Int, scale int32) Decimal {
	return Decimal{Unscaled: new(big.Int).Set(unscaled), Scale: scale}
}

// Float returns the decimal as a big.Float, useful for display or
// arithmetic that doesn't need exact decimal semantics.
func (d Decimal) Float() *big.Float {
	f := new(big.Float).SetInt(d.Unscaled)
	if d.Scale == 0 {
		return f
	}
	den := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(d.Scale)), nil))
	return f.Quo(f, den)
}

// String is a UTF-8 text field.
type String string

func (String) Type() Type { return TypeString }

// Bytes is a raw binary blob field.
type Bytes []byte

func (Bytes) Type() Type { return TypeBinary }

// Date is a calendar day with no time-of-day component, stored on the wire
// as days since the Unix epoch (midnight UTC).
type Date struct {
	Year, Month, Day int
}

func (Date) Type() Type { return TypeDate }

// DateDays converts days-since-epoch into a Date.
func DateDays(days int64) Date {
	t := time.Unix(days*86400, 0).UTC()
	return Date{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}

// Days converts the Date back into days-since-epoch.
func (d Date) Days() int64 {
	t := time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
	return t.Unix() / 86400
}

// DateTime is a calendar timestamp with millisecond resolution, stored on
// the wire as milliseconds since the Unix epoch.
type DateTime struct {
	Year, Month, Day, Hour, Minute, Second, Millisecond int
}

func (DateTime) Type() Type { return TypeDateTime }

// DateTimeMillis converts milliseconds-since-epoch into a DateTime.
func DateTimeMillis(ms int64) DateTime {
	t := time.UnixMilli(ms).UTC()
	return DateTime{
		Year: t.Year(), Month: int(t.Month()), Day: t.Day(),
		Hour: t.Hour(), Minute: t.Minute(), Second: t.Second(),
		Millisecond: t.Nanosecond() / int(time.Millisecond),
	}
}

// Millis converts the DateTime back into milliseconds-since-epoch.
func (d DateTime) Millis() int64 {
	t := time.Date(d.Year, time.Month(d.Month), d.Day, d.Hour, d.Minute, d.Second,
		d.Millisecond*int(time.Millisecond), time.UTC)
	return t.UnixMilli()
}

// EmbeddedList is an ordered, heterogeneously-typed collection.
type EmbeddedList []Value

func (EmbeddedList) Type() Type { return TypeEmbeddedList }

// EmbeddedSet decodes to an unordered collection; equality is set equality,
// not sequence equality. The wire encoding is identical to EmbeddedList -
// OrientDB's set semantics are enforced client-side only.
type EmbeddedSet []Value

func (EmbeddedSet) Type() Type { return TypeEmbeddedSet }

// Equal compares two sets ignoring order, using each element's decoded
// representation. It is O(n*m); fine for the small collections this
// protocol typically carries.
func (s EmbeddedSet) Equal(o EmbeddedSet) bool {
	if len(s) != len(o) {
		return false
	}
	used := make([]bool, len(o))
	for _, a := range s {
		found := false
		for i, b := range o {
			if used[i] {
				continue
			}
			if valuesEqual(a, b) {
				used[i] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// EmbeddedMap is a string-keyed, heterogeneously-typed collection.
type EmbeddedMap map[string]Value

func (EmbeddedMap) Type() Type { return TypeEmbeddedMap }

// EmbeddedDocument wraps a nested Document.
type EmbeddedDocument struct {
	Doc *Document
}

func (EmbeddedDocument) Type() Type { return TypeEmbedded }

// Link is a reference to another record.
type Link RID

func (Link) Type() Type { return TypeLink }

// LinkList is an ordered collection of record references.
type LinkList []RID

func (LinkList) Type() Type { return TypeLinkList }

// LinkSet decodes to an unordered collection of record references; same
// set-vs-sequence caveat as EmbeddedSet.
type LinkSet []RID

func (LinkSet) Type() Type { return TypeLinkSet }

// LinkMap is a string-keyed collection of record references.
type LinkMap map[string]RID

func (LinkMap) Type() Type { return TypeLinkMap }

// LinkBag is the embedded (inline) form of an OrientDB RidBag. The
// tree-based external form is not supported; decoding one yields
// ErrUnsupportedRidBagForm.
type LinkBag []RID

func (LinkBag) Type() Type { return TypeLinkBag }

func valuesEqual(a, b Value) bool {
	switch av := a.(type) {
	case Link:
		bv, ok := b.(Link)
		return ok && av == bv
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Int32:
		bv, ok := b.(Int32)
		return ok && av == bv
	case Int64:
		bv, ok := b.(Int64)
		return ok && av == bv
	case Int16:
		bv, ok := b.(Int16)
		return ok && av == bv
	case Boolean:
		bv, ok := b.(Boolean)
		return ok && av == bv
	case Bytes:
		bv, ok := b.(Bytes)
		return ok && bytes.Equal(av, bv)
	case LinkBag:
		bv, ok := b.(LinkBag)
		return ok && slices.Equal(av, bv)
	default:
		return a == b
	}
}
