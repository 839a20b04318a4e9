package session

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/MyMedsAndMe/orientwire/proto"
	"github.com/MyMedsAndMe/orientwire/record"
	"github.com/MyMedsAndMe/orientwire/schema"
)

// schemaRecordRID is the well-known RID of OrientDB's configuration
// record, which carries the database's global property table among
// other bookkeeping fields.
var schemaRecordRID = record.NewRID(0, 1)

// decodeWithRefetch decodes a record's raw bytes against the current
// schema cache, and if decoding yields an UndecodedDocument (a header
// descriptor referenced a property id this cache hasn't seen), performs
// exactly one schema refetch-and-redecode before giving up. A second
// miss is returned to the caller as-is rather than retried, per the
// "refetch once" rule: a property id the refreshed table still doesn't
// know about isn't going to resolve by asking again.
func (s *Session) decodeWithRefetch(ctx context.Context, raw []byte) (record.Record, error) {
	rec, err := record.DecodeDocument(raw, s.schema)
	if err != nil {
		return nil, err
	}
	undecoded, ok := rec.(*record.UndecodedDocument)
	if !ok {
		return rec, nil
	}
	if _, err := s.refetchSchema(ctx); err != nil {
		return nil, err
	}
	return record.DecodeDocument(undecoded.Raw, s.schema)
}

// refetchSchema reloads the global property table from the schema
// record, deduplicating concurrent refetches triggered by simultaneous
// callers hitting the same unknown property id.
func (s *Session) refetchSchema(ctx context.Context) (interface{}, error) {
	return s.refetchSF.Do("schema", func() (interface{}, error) {
		op := mustOp("load_record")
		args := proto.EncodeRecordLoad(schemaRecordRID, "*:-1", true, false)
		parse := func(body []byte) (interface{}, error) {
			primary, _, rest, err := proto.ParseRecordLoad(body)
			if err != nil {
				return nil, err
			}
			return consumedValue{value: primary, rest: rest}, nil
		}
		val, err := s.doCall(ctx, op, args, parse)
		if err != nil {
			return nil, err
		}
		primary, _ := val.(*proto.ResultRecord)
		if primary == nil {
			return nil, nil
		}
		rec, err := record.DecodeDocument(primary.Bytes, record.NoSchema)
		if err != nil {
			return nil, err
		}
		doc, ok := rec.(*record.Document)
		if !ok {
			return nil, nil
		}
		s.schema.PutAll(schema.FromDocument(doc))
		return nil, nil
	})
}

// FetchSchema forces an immediate schema-table refresh, independent of
// any decode miss.
func (s *Session) FetchSchema(ctx context.Context) error {
	_, err := s.refetchSchema(ctx)
	return err
}
