package orientwire

import (
	"context"

	"github.com/MyMedsAndMe/orientwire/proto"
	"github.com/MyMedsAndMe/orientwire/record"
	"github.com/MyMedsAndMe/orientwire/session"
)

// Tx batches create/update/delete operations into a single TX_COMMIT.
// Entries are staged client-side and only reach the wire on Commit.
type Tx struct {
	client  *Client
	id      int32
	entries []proto.TxEntry
	temps   int16
}

// NewTransaction starts a new transaction against the client's open
// database session.
func (c *Client) NewTransaction() *Tx {
	return &Tx{client: c, id: c.sess.NextTxID()}
}

// Create stages a new record. The returned RID is a client-assigned
// placeholder (negative cluster); the server remaps it to a real RID on
// commit, reported via CommitResult.Created.
func (tx *Tx) Create(clusterID int16, doc *record.Document) (record.RID, error) {
	body, err := record.EncodeDocument(doc)
	if err != nil {
		return record.RID{}, err
	}
	tx.temps++
	// Provisional positions decrement from -2, matching how OrientDB
	// itself numbers placeholder RIDs within a single commit batch.
	temp := record.NewRID(-1, int64(-(tx.temps + 1)))
	tx.entries = append(tx.entries, proto.TxCreate{
		TempID:     temp,
		ClusterID:  clusterID,
		RecordType: proto.RecordTypeDocument,
		Bytes:      body,
	})
	return temp, nil
}

// Update stages an update to an existing, versioned record. doc.Version
// must be set.
func (tx *Tx) Update(rid record.RID, doc *record.Document) error {
	if err := session.MissingVersionCheck("transaction_update", doc); err != nil {
		return err
	}
	body, err := record.EncodeDocument(doc)
	if err != nil {
		return err
	}
	tx.entries = append(tx.entries, proto.TxUpdate{
		RID:            rid,
		Version:        *doc.Version,
		RecordType:     proto.RecordTypeDocument,
		Bytes:          body,
		ContentChanged: true,
	})
	return nil
}

// Delete stages a deletion of an existing, versioned record.
func (tx *Tx) Delete(rid record.RID, version int32) {
	tx.entries = append(tx.entries, proto.TxDelete{RID: rid, Version: version})
}

// Commit sends the staged entries as a single TX_COMMIT request. The
// result's Created map is keyed by the placeholder RIDs Tx.Create
// returned, so callers can remap them to the real RIDs the server
// assigned.
func (tx *Tx) Commit(ctx context.Context) (proto.CommitResult, error) {
	return tx.client.sess.Commit(ctx, tx.id, true, tx.entries)
}
