// Package fetchplan resolves RID references carried in a response against
// the auxiliary set of linked records the server returned alongside it
// (the result of a fetch-plan directive like "*:-1").
package fetchplan

import (
	"errors"
	"fmt"

	"github.com/MyMedsAndMe/orientwire/record"
)

// ErrMissing is wrapped with the offending RID when a reference can't be
// resolved against the supplied linked-records set.
var ErrMissing = errors.New("orientwire: linked record not found")

// MissingError reports which RID failed to resolve.
type MissingError struct {
	RID record.RID
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("orientwire: missing linked record %s", e.RID)
}

func (e *MissingError) Unwrap() error { return ErrMissing }

// Linked maps RIDs to the records a fetch-plan pulled in alongside the
// primary result.
type Linked map[record.RID]record.Record

// Resolve substitutes a single RID for its linked record.
func (l Linked) Resolve(rid record.RID) (record.Record, error) {
	rec, ok := l[rid]
	if !ok {
		return nil, &MissingError{RID: rid}
	}
	return rec, nil
}

// ResolveList substitutes every RID in rids for its linked record,
// preserving order. It fails on the first unresolved RID.
func (l Linked) ResolveList(rids []record.RID) ([]record.Record, error) {
	out := make([]record.Record, len(rids))
	for i, rid := range rids {
		rec, err := l.Resolve(rid)
		if err != nil {
			return nil, err
		}
		out[i] = rec
	}
	return out, nil
}

// ResolveMap substitutes every RID value in m for its linked record,
// preserving keys.
func (l Linked) ResolveMap(m map[string]record.RID) (map[string]record.Record, error) {
	out := make(map[string]record.Record, len(m))
	for k, rid := range m {
		rec, err := l.Resolve(rid)
		if err != nil {
			return nil, err
		}
		out[k] = rec
	}
	return out, nil
}

// ResolveValue inspects a decoded Value and, if it is a Link, LinkList,
// LinkSet or LinkMap, substitutes the referenced record(s). Nested
// resolution (a resolved record that itself contains links) is not
// automatic - callers chain Resolve* calls manually for deeper traversals.
func (l Linked) ResolveValue(v record.Value) (interface{}, error) {
	switch val := v.(type) {
	case record.Link:
		return l.Resolve(record.RID(val))
	case record.LinkList:
		return l.ResolveList([]record.RID(val))
	case record.LinkSet:
		recs, err := l.ResolveList([]record.RID(val))
		if err != nil {
			return nil, err
		}
		return recs, nil
	case record.LinkMap:
		return l.ResolveMap(map[string]record.RID(val))
	default:
		return nil, fmt.Errorf("orientwire: value %T is not a link reference", v)
	}
}
