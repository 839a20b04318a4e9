package session

import (
	"context"
	"encoding/binary"
	"net"
	"testing"

	"github.com/MyMedsAndMe/orientwire/internal/wire"
	"github.com/MyMedsAndMe/orientwire/proto"
	"github.com/MyMedsAndMe/orientwire/record"
)

func TestCommitRemapsCreatedRIDAndReturnsUpdatedVersion(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	tempID := record.NewRID(-1, -2)
	realID := record.NewRID(4, 100)
	updatedID := record.NewRID(4, 50)

	entries := []proto.TxEntry{
		proto.TxCreate{TempID: tempID, ClusterID: 4, RecordType: proto.RecordTypeDocument, Bytes: []byte("create")},
		proto.TxUpdate{RID: updatedID, Version: 3, RecordType: proto.RecordTypeDocument, Bytes: []byte("update"), ContentChanged: true},
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- func() error {
			var vb [2]byte
			binary.BigEndian.PutUint16(vb[:], proto.AdvertisedProtocolVersion)
			if _, err := server.Write(vb[:]); err != nil {
				return err
			}

			openArgsLen := len(proto.EncodeDBOpen(clientName, clientVersion, placeholderClientID, "mydb", "root", "secret"))
			if _, _, _, err := readRequest(server, openArgsLen); err != nil {
				return err
			}
			var openResp []byte
			openResp = append(openResp, statusOK)
			openResp = putInt32(openResp, 100)
			openResp = wire.PutBytes(openResp, []byte("tok"))
			openResp = wire.PutShort(openResp, 0)
			openResp = wire.PutString(openResp, "2.2.0")
			if _, err := server.Write(openResp); err != nil {
				return err
			}

			commitArgsLen := len(proto.EncodeTxCommit(1, true, entries))
			if _, _, _, err := readRequest(server, commitArgsLen); err != nil {
				return err
			}
			var commitResp []byte
			commitResp = append(commitResp, statusOK)
			commitResp = putInt32(commitResp, 100)
			commitResp = wire.PutInt(commitResp, 1) // created count
			commitResp = wire.PutShort(commitResp, tempID.Cluster)
			commitResp = wire.PutLong(commitResp, tempID.Position)
			commitResp = wire.PutShort(commitResp, realID.Cluster)
			commitResp = wire.PutLong(commitResp, realID.Position)
			commitResp = wire.PutInt(commitResp, 0) // initial version
			commitResp = wire.PutInt(commitResp, 1) // updated count
			commitResp = wire.PutShort(commitResp, updatedID.Cluster)
			commitResp = wire.PutLong(commitResp, updatedID.Position)
			commitResp = wire.PutInt(commitResp, 4) // new version
			commitResp = wire.PutInt(commitResp, 0) // collection changes
			_, err := server.Write(commitResp)
			return err
		}()
	}()

	s := New(client, nil)
	if err := s.Handshake(context.Background()); err != nil {
		t.Fatalf("Handshake: %v", err)
	}
	if _, err := s.Open(context.Background(), "mydb", "root", "secret"); err != nil {
		t.Fatalf("Open: %v", err)
	}

	result, err := s.Commit(context.Background(), 1, true, entries)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	mapping, ok := result.Created[tempID]
	if !ok || mapping.RID != realID || mapping.Version != 0 {
		t.Fatalf("Created[%v] = %#v, ok=%v, want {%v, 0}", tempID, mapping, ok, realID)
	}
	version, ok := result.Updated[updatedID]
	if !ok || version != 4 {
		t.Fatalf("Updated[%v] = %d, ok=%v, want 4", updatedID, version, ok)
	}
	if err := <-serverErr; err != nil {
		t.Fatalf("fake server: %v", err)
	}
}
