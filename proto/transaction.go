package proto

import (
	"github.com/MyMedsAndMe/orientwire/internal/wire"
	"github.com/MyMedsAndMe/orientwire/record"
)

// Record status codes used inside a transaction entry, per §4.5.
const (
	txStatusUpdated byte = 1
	txStatusDeleted byte = 2
	txStatusCreated byte = 3
)

// TxEntry is one operation inside a TX_COMMIT batch. Callers are
// responsible for the MissingVersion invariant: a record with no known
// version has no business in an update or delete entry - that's checked
// before any of these are built, not here.
type TxEntry interface{ isTxEntry() }

// TxCreate stages a new record. TempID is the client-assigned negative
// placeholder RID the server will echo back remapped to a real one in
// the commit response.
type TxCreate struct {
	TempID     record.RID
	ClusterID  int16
	RecordType byte
	Bytes      []byte
}

// TxUpdate stages an update to an existing, versioned record.
type TxUpdate struct {
	RID            record.RID
	Version        int32
	RecordType     byte
	Bytes          []byte
	ContentChanged bool
}

// TxDelete stages a deletion of an existing, versioned record.
type TxDelete struct {
	RID     record.RID
	Version int32
}

func (TxCreate) isTxEntry() {}
func (TxUpdate) isTxEntry() {}
func (TxDelete) isTxEntry() {}

// EncodeTxCommit builds the TX_COMMIT argument list: tx id, whether to
// use the tx log, each entry framed with a leading 1-byte continuation
// marker, a trailing 0 marker to end the batch, and an empty bytes blob
// (reserved for serialized index changes this client never produces).
func EncodeTxCommit(txID int32, useTxLog bool, entries []TxEntry) []byte {
	var buf []byte
	buf = wire.PutInt(buf, txID)
	buf = wire.PutBool(buf, useTxLog)
	for _, e := range entries {
		buf = wire.PutByte(buf, 1)
		switch entry := e.(type) {
		case TxCreate:
			buf = wire.PutByte(buf, txStatusCreated)
			buf = putRID(buf, entry.TempID)
			buf = wire.PutByte(buf, entry.RecordType)
			buf = wire.PutBytes(buf, entry.Bytes)
		case TxUpdate:
			buf = wire.PutByte(buf, txStatusUpdated)
			buf = putRID(buf, entry.RID)
			buf = wire.PutByte(buf, entry.RecordType)
			buf = wire.PutInt(buf, entry.Version)
			buf = wire.PutBytes(buf, entry.Bytes)
			buf = wire.PutBool(buf, entry.ContentChanged)
		case TxDelete:
			buf = wire.PutByte(buf, txStatusDeleted)
			buf = putRID(buf, entry.RID)
			buf = wire.PutByte(buf, RecordTypeDocument)
			buf = wire.PutInt(buf, entry.Version)
		}
	}
	buf = wire.PutByte(buf, 0)
	buf = wire.PutBytes(buf, nil)
	return buf
}
