package proto

import (
	"errors"

	"github.com/MyMedsAndMe/orientwire/internal/wire"
	"github.com/MyMedsAndMe/orientwire/record"
)

func readRID(buf []byte) (record.RID, []byte, error) {
	cluster, rest, err := wire.ReadShort(buf)
	if err != nil {
		return record.RID{}, nil, err
	}
	position, rest, err := wire.ReadLong(rest)
	if err != nil {
		return record.RID{}, nil, err
	}
	return record.NewRID(cluster, position), rest, nil
}

// ErrUnsupportedCollectionChanges is returned when a CREATE/UPDATE
// response reports non-empty RidBag tree-node deltas. Only the embedded
// RidBag form is supported; a server that answers with tree deltas is
// talking about a bag this client cannot represent.
var ErrUnsupportedCollectionChanges = errors.New("orientwire: tree-based RidBag collection changes not supported")

// ClusterInfo is one entry of a cluster-name/id table, returned by
// DB_OPEN and DB_RELOAD.
type ClusterInfo struct {
	Name string
	ID   int16
}

func parseClusterList(buf []byte) ([]ClusterInfo, []byte, error) {
	n, rest, err := wire.ReadShort(buf)
	if err != nil {
		return nil, nil, err
	}
	out := make([]ClusterInfo, 0, n)
	for i := int16(0); i < n; i++ {
		name, r2, _, err := wire.ReadString(rest)
		if err != nil {
			return nil, nil, err
		}
		id, r3, err := wire.ReadShort(r2)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, ClusterInfo{Name: name, ID: id})
		rest = r3
	}
	return out, rest, nil
}

// ParseDBOpen parses the DB_OPEN response body: the session token (always
// present, even though this client never requests token-based auth and
// discards it), the cluster table, and a server-release string.
func ParseDBOpen(buf []byte) (clusters []ClusterInfo, release string, rest []byte, err error) {
	_, rest, _, err = wire.ReadBytes(buf)
	if err != nil {
		return nil, "", nil, err
	}
	clusters, rest, err = parseClusterList(rest)
	if err != nil {
		return nil, "", nil, err
	}
	release, rest, _, err = wire.ReadString(rest)
	if err != nil {
		return nil, "", nil, err
	}
	return clusters, release, rest, nil
}

// ParseConnect parses the CONNECT response body: just the session token,
// discarded for the same reason ParseDBOpen discards it.
func ParseConnect(buf []byte) (rest []byte, err error) {
	_, rest, _, err = wire.ReadBytes(buf)
	return rest, err
}

// ParseDBReload parses the DB_RELOAD response body: just the cluster
// table, no release string.
func ParseDBReload(buf []byte) (clusters []ClusterInfo, rest []byte, err error) {
	return parseClusterList(buf)
}

// ParseDBExist parses the DB_EXIST response body.
func ParseDBExist(buf []byte) (exists bool, rest []byte, err error) {
	return wire.ReadBool(buf)
}

// ParseDBSize parses the DB_SIZE response body.
func ParseDBSize(buf []byte) (size int64, rest []byte, err error) {
	return wire.ReadLong(buf)
}

// ParseDBCountRecords parses the DB_COUNTRECORDS response body.
func ParseDBCountRecords(buf []byte) (count int64, rest []byte, err error) {
	return wire.ReadLong(buf)
}

// Record-load payload-status bytes (§4.5).
const (
	payloadEnd        byte = 0
	payloadPrimary    byte = 1
	payloadAssociated byte = 2
)

// ResultRecord is one record returned inline in a response body, still
// in its undecoded wire form - callers hand Bytes to record.DecodeDocument.
// RID is nil for the primary record (the caller already knows its
// identity from the request) and set for fetch-plan-associated records,
// which carry their own identity since the caller never asked for them
// directly.
type ResultRecord struct {
	RID        *record.RID
	RecordType byte
	Version    int32
	Bytes      []byte
}

func parseResultRecord(buf []byte) (ResultRecord, []byte, error) {
	rtype, rest, err := wire.ReadByte(buf)
	if err != nil {
		return ResultRecord{}, nil, err
	}
	version, rest, err := wire.ReadInt(rest)
	if err != nil {
		return ResultRecord{}, nil, err
	}
	content, rest, _, err := wire.ReadBytes(rest)
	if err != nil {
		return ResultRecord{}, nil, err
	}
	return ResultRecord{RecordType: rtype, Version: version, Bytes: content}, rest, nil
}

// parseAssociatedRecord parses a fetch-plan-associated record: its RID
// precedes the type/version/content fields parseResultRecord reads,
// since the caller has no other way to learn which record this is.
func parseAssociatedRecord(buf []byte) (ResultRecord, []byte, error) {
	rid, rest, err := readRID(buf)
	if err != nil {
		return ResultRecord{}, nil, err
	}
	rec, rest, err := parseResultRecord(rest)
	if err != nil {
		return ResultRecord{}, nil, err
	}
	rec.RID = &rid
	return rec, rest, nil
}

// ParseRecordLoad parses the RECORD_LOAD response body: zero or one
// primary record, followed by zero or more fetch-plan-associated
// records, terminated by a payloadEnd byte.
func ParseRecordLoad(buf []byte) (primary *ResultRecord, linked []ResultRecord, rest []byte, err error) {
	rest = buf
	for {
		status, r2, err := wire.ReadByte(rest)
		if err != nil {
			return nil, nil, nil, err
		}
		rest = r2
		switch status {
		case payloadEnd:
			return primary, linked, rest, nil
		case payloadPrimary:
			rec, r3, err := parseResultRecord(rest)
			if err != nil {
				return nil, nil, nil, err
			}
			rc := rec
			primary = &rc
			rest = r3
		case payloadAssociated:
			rec, r3, err := parseAssociatedRecord(rest)
			if err != nil {
				return nil, nil, nil, err
			}
			linked = append(linked, rec)
			rest = r3
		default:
			return nil, nil, nil, errors.New("orientwire: unrecognized record-load payload status")
		}
	}
}

// CreatedRecord is the RECORD_CREATE response: the RID the server
// actually assigned plus the initial version.
type CreatedRecord struct {
	Cluster int16
	Position int64
	Version  int32
}

func parseCollectionChanges(buf []byte) ([]byte, error) {
	count, rest, err := wire.ReadInt(buf)
	if err != nil {
		return nil, err
	}
	if count != 0 {
		return nil, ErrUnsupportedCollectionChanges
	}
	return rest, nil
}

// ParseRecordCreate parses the RECORD_CREATE response body.
func ParseRecordCreate(buf []byte) (rec CreatedRecord, rest []byte, err error) {
	cluster, rest, err := wire.ReadShort(buf)
	if err != nil {
		return CreatedRecord{}, nil, err
	}
	position, rest, err := wire.ReadLong(rest)
	if err != nil {
		return CreatedRecord{}, nil, err
	}
	version, rest, err := wire.ReadInt(rest)
	if err != nil {
		return CreatedRecord{}, nil, err
	}
	rest, err = parseCollectionChanges(rest)
	if err != nil {
		return CreatedRecord{}, nil, err
	}
	return CreatedRecord{Cluster: cluster, Position: position, Version: version}, rest, nil
}

// ParseRecordUpdate parses the RECORD_UPDATE response body: the record's
// new version.
func ParseRecordUpdate(buf []byte) (version int32, rest []byte, err error) {
	version, rest, err = wire.ReadInt(buf)
	if err != nil {
		return 0, nil, err
	}
	rest, err = parseCollectionChanges(rest)
	if err != nil {
		return 0, nil, err
	}
	return version, rest, nil
}

// ParseRecordDelete parses the RECORD_DELETE response body.
func ParseRecordDelete(buf []byte) (deleted bool, rest []byte, err error) {
	return wire.ReadBool(buf)
}

// ParseLiveQueryAck parses a live-query subscribe response: the
// monitor id the server assigned, used to correlate subsequent push
// frames to this subscription.
func ParseLiveQueryAck(buf []byte) (token int32, rest []byte, err error) {
	return wire.ReadInt(buf)
}

// CreatedMapping pairs the real RID and initial version the server
// assigned a record submitted under a client-chosen placeholder RID
// inside a TX_COMMIT batch.
type CreatedMapping struct {
	RID     record.RID
	Version int32
}

// CommitResult is the TX_COMMIT response: every created record, keyed
// by the placeholder RID the client staged it under (see TxCreate.TempID),
// and every updated record's new version, keyed by its real RID.
type CommitResult struct {
	Created map[record.RID]CreatedMapping
	Updated map[record.RID]int32
}

// ParseTxCommit parses the TX_COMMIT response body: the created-record
// remapping table, the updated-record version table, and the trailing
// RidBag tree-change count (§4.5; only the embedded RidBag form is
// supported, so a non-zero count is rejected the same way RECORD_CREATE/
// RECORD_UPDATE responses are).
func ParseTxCommit(buf []byte) (result CommitResult, rest []byte, err error) {
	rest = buf
	var createdCount int32
	createdCount, rest, err = wire.ReadInt(rest)
	if err != nil {
		return CommitResult{}, nil, err
	}
	created := make(map[record.RID]CreatedMapping, createdCount)
	for i := int32(0); i < createdCount; i++ {
		oldRID, r2, err := readRID(rest)
		if err != nil {
			return CommitResult{}, nil, err
		}
		newRID, r3, err := readRID(r2)
		if err != nil {
			return CommitResult{}, nil, err
		}
		version, r4, err := wire.ReadInt(r3)
		if err != nil {
			return CommitResult{}, nil, err
		}
		created[oldRID] = CreatedMapping{RID: newRID, Version: version}
		rest = r4
	}
	var updatedCount int32
	updatedCount, rest, err = wire.ReadInt(rest)
	if err != nil {
		return CommitResult{}, nil, err
	}
	updated := make(map[record.RID]int32, updatedCount)
	for i := int32(0); i < updatedCount; i++ {
		rid, r2, err := readRID(rest)
		if err != nil {
			return CommitResult{}, nil, err
		}
		version, r3, err := wire.ReadInt(r2)
		if err != nil {
			return CommitResult{}, nil, err
		}
		updated[rid] = version
		rest = r3
	}
	rest, err = parseCollectionChanges(rest)
	if err != nil {
		return CommitResult{}, nil, err
	}
	return CommitResult{Created: created, Updated: updated}, rest, nil
}
