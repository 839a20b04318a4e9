package session

import (
	"context"

	"github.com/MyMedsAndMe/orientwire/proto"
	"github.com/MyMedsAndMe/orientwire/record"
)

func mustOp(name string) proto.Operation {
	op, ok := proto.Lookup(name)
	if !ok {
		panic("orientwire: unknown operation " + name)
	}
	return op
}

// Connect establishes a server-level session (no database attached):
// the class of operation needed for db_exist, create_db and drop_db.
func (s *Session) Connect(ctx context.Context, username, password string) error {
	op := mustOp("connect")
	args := proto.EncodeConnect(clientName, clientVersion, s.clientID, username, password)
	parse := func(body []byte) (interface{}, error) {
		rest, err := proto.ParseConnect(body)
		if err != nil {
			return nil, err
		}
		return consumedValue{value: nil, rest: rest}, nil
	}
	if _, err := s.doCall(ctx, op, args, parse); err != nil {
		return err
	}
	s.mu.Lock()
	s.kind = proto.KindServer
	s.mu.Unlock()
	return nil
}

// OpenResult carries the cluster table and release string DB_OPEN
// returns alongside the new session.
type OpenResult struct {
	Clusters []proto.ClusterInfo
	Release  string
}

// Open establishes a database-level session.
func (s *Session) Open(ctx context.Context, dbName, username, password string) (OpenResult, error) {
	op := mustOp("db_open")
	args := proto.EncodeDBOpen(clientName, clientVersion, s.clientID, dbName, username, password)
	parse := func(body []byte) (interface{}, error) {
		clusters, release, rest, err := proto.ParseDBOpen(body)
		if err != nil {
			return nil, err
		}
		return consumedValue{value: OpenResult{Clusters: clusters, Release: release}, rest: rest}, nil
	}
	val, err := s.doCall(ctx, op, args, parse)
	if err != nil {
		return OpenResult{}, err
	}
	s.mu.Lock()
	s.kind = proto.KindDB
	s.mu.Unlock()
	return val.(OpenResult), nil
}

// CloseDB sends db_close, valid on either a server or a db session.
func (s *Session) CloseDB(ctx context.Context) error {
	op := mustOp("db_close")
	parse := func(body []byte) (interface{}, error) {
		return consumedValue{value: nil, rest: body}, nil
	}
	_, err := s.doCall(ctx, op, nil, parse)
	return err
}

// DBExist checks whether a database exists on the connected server.
func (s *Session) DBExist(ctx context.Context, dbName, storageType string) (bool, error) {
	op := mustOp("db_exist")
	args := proto.EncodeDBExist(dbName, storageType)
	parse := func(body []byte) (interface{}, error) {
		exists, rest, err := proto.ParseDBExist(body)
		if err != nil {
			return nil, err
		}
		return consumedValue{value: exists, rest: rest}, nil
	}
	val, err := s.doCall(ctx, op, args, parse)
	if err != nil {
		return false, err
	}
	return val.(bool), nil
}

// CreateDB creates a new database.
func (s *Session) CreateDB(ctx context.Context, dbName, dbType, storageType string) error {
	op := mustOp("create_db")
	args := proto.EncodeDBCreate(dbName, dbType, storageType)
	parse := func(body []byte) (interface{}, error) {
		return consumedValue{value: nil, rest: body}, nil
	}
	_, err := s.doCall(ctx, op, args, parse)
	return err
}

// DropDB drops a database.
func (s *Session) DropDB(ctx context.Context, dbName, storageType string) error {
	op := mustOp("drop_db")
	args := proto.EncodeDBDrop(dbName, storageType)
	parse := func(body []byte) (interface{}, error) {
		return consumedValue{value: nil, rest: body}, nil
	}
	_, err := s.doCall(ctx, op, args, parse)
	return err
}

// DBSize reports the open database's on-disk size.
func (s *Session) DBSize(ctx context.Context) (int64, error) {
	op := mustOp("db_size")
	parse := func(body []byte) (interface{}, error) {
		size, rest, err := proto.ParseDBSize(body)
		if err != nil {
			return nil, err
		}
		return consumedValue{value: size, rest: rest}, nil
	}
	val, err := s.doCall(ctx, op, nil, parse)
	if err != nil {
		return 0, err
	}
	return val.(int64), nil
}

// DBCountRecords reports the open database's total record count.
func (s *Session) DBCountRecords(ctx context.Context) (int64, error) {
	op := mustOp("db_countrecords")
	parse := func(body []byte) (interface{}, error) {
		count, rest, err := proto.ParseDBCountRecords(body)
		if err != nil {
			return nil, err
		}
		return consumedValue{value: count, rest: rest}, nil
	}
	val, err := s.doCall(ctx, op, nil, parse)
	if err != nil {
		return 0, err
	}
	return val.(int64), nil
}

// DBReload refreshes the client's view of the database's cluster table.
func (s *Session) DBReload(ctx context.Context) ([]proto.ClusterInfo, error) {
	op := mustOp("db_reload")
	parse := func(body []byte) (interface{}, error) {
		clusters, rest, err := proto.ParseDBReload(body)
		if err != nil {
			return nil, err
		}
		return consumedValue{value: clusters, rest: rest}, nil
	}
	val, err := s.doCall(ctx, op, nil, parse)
	if err != nil {
		return nil, err
	}
	return val.([]proto.ClusterInfo), nil
}

// LoadResult is what load_record returns: the primary record (possibly
// an *UndecodedDocument if its schema properties weren't cached) and
// any fetch-plan-associated linked records, keyed by RID.
type LoadResult struct {
	Primary record.Record
	Linked  map[record.RID]record.Record
}

// LoadRecord issues record_load and transparently retries once through
// the schema-refetch flow if the primary (or a linked) record carries
// property ids this client hasn't resolved yet.
func (s *Session) LoadRecord(ctx context.Context, rid record.RID, fetchPlan string, ignoreCache, loadTombstones bool) (LoadResult, error) {
	op := mustOp("load_record")
	args := proto.EncodeRecordLoad(rid, fetchPlan, ignoreCache, loadTombstones)
	parse := func(body []byte) (interface{}, error) {
		primary, linked, rest, err := proto.ParseRecordLoad(body)
		if err != nil {
			return nil, err
		}
		return consumedValue{value: rawLoadResult{primary: primary, linked: linked}, rest: rest}, nil
	}
	val, err := s.doCall(ctx, op, args, parse)
	if err != nil {
		return LoadResult{}, err
	}
	raw := val.(rawLoadResult)
	return s.decodeLoadResult(ctx, raw)
}

type rawLoadResult struct {
	primary *proto.ResultRecord
	linked  []proto.ResultRecord
}

func (s *Session) decodeLoadResult(ctx context.Context, raw rawLoadResult) (LoadResult, error) {
	var out LoadResult
	if raw.primary != nil {
		rec, err := s.decodeWithRefetch(ctx, raw.primary.Bytes)
		if err != nil {
			return LoadResult{}, err
		}
		out.Primary = rec
	}
	if len(raw.linked) > 0 {
		out.Linked = make(map[record.RID]record.Record, len(raw.linked))
		for _, rr := range raw.linked {
			rec, err := s.decodeWithRefetch(ctx, rr.Bytes)
			if err != nil {
				return LoadResult{}, err
			}
			if rr.RID != nil {
				out.Linked[*rr.RID] = rec
			}
		}
	}
	return out, nil
}

// CreateRecord issues record_create for a serialized document.
func (s *Session) CreateRecord(ctx context.Context, clusterID int16, body []byte, recordType byte, mode byte) (proto.CreatedRecord, error) {
	op := mustOp("create_record")
	args := proto.EncodeRecordCreate(clusterID, body, recordType, mode)
	parse := func(b []byte) (interface{}, error) {
		rec, rest, err := proto.ParseRecordCreate(b)
		if err != nil {
			return nil, err
		}
		return consumedValue{value: rec, rest: rest}, nil
	}
	val, err := s.doCall(ctx, op, args, parse)
	if err != nil {
		return proto.CreatedRecord{}, err
	}
	return val.(proto.CreatedRecord), nil
}

// UpdateRecord issues record_update. The caller must supply the
// record's current version; a nil-version document should never reach
// this call (see MissingVersion).
func (s *Session) UpdateRecord(ctx context.Context, rid record.RID, body []byte, recordType byte, version int32, updateContent bool, mode byte) (int32, error) {
	op := mustOp("update_record")
	args := proto.EncodeRecordUpdate(rid, body, recordType, version, updateContent, mode)
	parse := func(b []byte) (interface{}, error) {
		v, rest, err := proto.ParseRecordUpdate(b)
		if err != nil {
			return nil, err
		}
		return consumedValue{value: v, rest: rest}, nil
	}
	val, err := s.doCall(ctx, op, args, parse)
	if err != nil {
		return 0, err
	}
	return val.(int32), nil
}

// DeleteRecord issues record_delete.
func (s *Session) DeleteRecord(ctx context.Context, rid record.RID, version int32, mode byte) (bool, error) {
	op := mustOp("delete_record")
	args := proto.EncodeRecordDelete(rid, version, mode)
	parse := func(b []byte) (interface{}, error) {
		deleted, rest, err := proto.ParseRecordDelete(b)
		if err != nil {
			return nil, err
		}
		return consumedValue{value: deleted, rest: rest}, nil
	}
	val, err := s.doCall(ctx, op, args, parse)
	if err != nil {
		return false, err
	}
	return val.(bool), nil
}

// NextTxID returns the next monotonically increasing transaction id,
// starting at 1.
func (s *Session) NextTxID() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTxID++
	return s.nextTxID
}

// Commit issues transaction (TX_COMMIT) with the given staged entries,
// returning the server's real-RID remapping for every created record and
// the new version for every updated one.
func (s *Session) Commit(ctx context.Context, txID int32, useTxLog bool, entries []proto.TxEntry) (proto.CommitResult, error) {
	op := mustOp("transaction")
	args := proto.EncodeTxCommit(txID, useTxLog, entries)
	parse := func(b []byte) (interface{}, error) {
		result, rest, err := proto.ParseTxCommit(b)
		if err != nil {
			return nil, err
		}
		return consumedValue{value: result, rest: rest}, nil
	}
	val, err := s.doCall(ctx, op, args, parse)
	if err != nil {
		return proto.CommitResult{}, err
	}
	return val.(proto.CommitResult), nil
}

// MissingVersionCheck returns a MissingVersion error if doc has no
// known version, for callers about to place it in an update or delete
// position (a direct record op or a transaction entry).
func MissingVersionCheck(op string, doc *record.Document) error {
	if doc.Version == nil {
		return &Error{Kind: MissingVersion, Op: op, Message: "record has no known version"}
	}
	return nil
}

// Command classifies the command text as query or non-query and issues
// a synchronous COMMAND request with it and a pre-encoded parameters
// document.
func (s *Session) Command(ctx context.Context, text string, fetchPlan string, paramsDoc []byte) (LoadResult, error) {
	op := mustOp("command")
	isQuery := proto.ClassifyCommand(text)
	payload := proto.CommandPayload(isQuery, text, fetchPlan, paramsDoc)
	mode := proto.CommandModeSync
	args := proto.EncodeCommand(mode, payload)
	parse := func(b []byte) (interface{}, error) {
		primary, linked, rest, err := proto.ParseRecordLoad(b)
		if err != nil {
			return nil, err
		}
		return consumedValue{value: rawLoadResult{primary: primary, linked: linked}, rest: rest}, nil
	}
	val, err := s.doCall(ctx, op, args, parse)
	if err != nil {
		return LoadResult{}, err
	}
	return s.decodeLoadResult(ctx, val.(rawLoadResult))
}

// LiveQuery issues a COMMAND request in live mode and returns the
// subscription token the server assigns. Callers combine this with
// Subscribe to start receiving push batches tagged with that token.
func (s *Session) LiveQuery(ctx context.Context, text string, paramsDoc []byte) (int32, error) {
	op := mustOp("command")
	payload := proto.LiveQueryPayload(text, paramsDoc)
	args := proto.EncodeCommand(proto.CommandModeLive, payload)
	parse := func(b []byte) (interface{}, error) {
		token, rest, err := proto.ParseLiveQueryAck(b)
		if err != nil {
			return nil, err
		}
		return consumedValue{value: token, rest: rest}, nil
	}
	val, err := s.doCall(ctx, op, args, parse)
	if err != nil {
		return 0, err
	}
	return val.(int32), nil
}

// Subscribe registers a channel to receive push batches for a live
// query's subscription token, as returned by LiveQuery.
func (s *Session) Subscribe(token int32) <-chan PushRecord {
	ch := make(chan PushRecord, 16)
	s.mu.Lock()
	s.liveSubs[token] = &liveSubscription{ch: ch}
	s.mu.Unlock()
	return ch
}

// Unsubscribe stops routing push batches for a live query token and
// closes its channel.
func (s *Session) Unsubscribe(token int32) {
	s.mu.Lock()
	sub, ok := s.liveSubs[token]
	delete(s.liveSubs, token)
	s.mu.Unlock()
	if ok {
		close(sub.ch)
	}
}
