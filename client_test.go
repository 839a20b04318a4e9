package orientwire

import (
	"testing"

	"github.com/MyMedsAndMe/orientwire/record"
	"github.com/MyMedsAndMe/orientwire/session"
)

func TestToValue(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want record.Value
	}{
		{"nil", nil, record.Null{}},
		{"string", "hello", record.String("hello")},
		{"bool", true, record.Boolean(true)},
		{"int", 7, record.Int64(7)},
		{"int32", int32(7), record.Int32(7)},
		{"int64", int64(7), record.Int64(7)},
		{"float64", 1.5, record.Float64V(1.5)},
		{"rid", record.NewRID(1, 2), record.Link(record.NewRID(1, 2))},
		{"passthrough value", record.String("already a value"), record.String("already a value")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := toValue(tt.in)
			if err != nil {
				t.Fatalf("toValue(%#v): %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("toValue(%#v) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestToValueRejectsUnsupportedType(t *testing.T) {
	_, err := toValue(struct{ X int }{X: 1})
	if err == nil {
		t.Fatal("expected an error for an unsupported parameter type")
	}
	sErr, ok := err.(*session.Error)
	if !ok || sErr.Kind != session.ProtocolError {
		t.Fatalf("got %v, want *session.Error{Kind: ProtocolError}", err)
	}
}

func TestEncodeParamsEmpty(t *testing.T) {
	got, err := encodeParams("params", nil)
	if err != nil {
		t.Fatalf("encodeParams: %v", err)
	}
	if got != nil {
		t.Fatalf("got %v, want nil for no params", got)
	}
}

func TestEncodeParamsRoundTrip(t *testing.T) {
	enc, err := encodeParams("params", []interface{}{"a", 2})
	if err != nil {
		t.Fatalf("encodeParams: %v", err)
	}
	rec, err := record.DecodeDocument(enc, record.NoSchema)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	doc, ok := rec.(*record.Document)
	if !ok {
		t.Fatalf("got %T, want *record.Document", rec)
	}
	v, ok := doc.Get("params")
	if !ok {
		t.Fatal("missing \"params\" field")
	}
	m, ok := v.(record.EmbeddedMap)
	if !ok {
		t.Fatalf("got %T, want record.EmbeddedMap", v)
	}
	if m["0"] != record.String("a") || m["1"] != record.Int64(2) {
		t.Fatalf("got %#v", m)
	}
}
