package orientwire

import (
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/MyMedsAndMe/orientwire/internal/wire"
	"github.com/MyMedsAndMe/orientwire/proto"
	"github.com/MyMedsAndMe/orientwire/record"
	"github.com/MyMedsAndMe/orientwire/session"
)

// readOneFrame drains exactly one request frame, relying on the fact that
// Session.doCall issues a single conn.Write per call and net.Pipe hands a
// Read the entirety of one pending Write when the buffer is large enough.
// The opcode/session id are returned for sanity checks; the argument bytes
// that follow aren't decoded since these tests only assert on responses.
func readOneFrame(conn net.Conn) (opcode byte, sessionID int32, err error) {
	buf := make([]byte, 8192)
	n, err := conn.Read(buf)
	if err != nil {
		return 0, 0, err
	}
	if n < 5 {
		return 0, 0, err
	}
	return buf[0], int32(binary.BigEndian.Uint32(buf[1:5])), nil
}

func TestLiveQuerySubscribeReceivePushAndUnsubscribe(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- func() error {
			var vb [2]byte
			binary.BigEndian.PutUint16(vb[:], proto.AdvertisedProtocolVersion)
			if _, err := server.Write(vb[:]); err != nil {
				return err
			}

			if _, _, err := readOneFrame(server); err != nil {
				return err
			}
			var openResp []byte
			openResp = append(openResp, 0) // statusOK
			openResp = appendInt32(openResp, 100)
			openResp = wire.PutBytes(openResp, []byte("tok"))
			openResp = wire.PutShort(openResp, 0)
			openResp = wire.PutString(openResp, "2.2.0")
			if _, err := server.Write(openResp); err != nil {
				return err
			}

			if _, _, err := readOneFrame(server); err != nil {
				return err
			}
			var ackResp []byte
			ackResp = append(ackResp, 0)
			ackResp = appendInt32(ackResp, 100)
			ackResp = wire.PutInt(ackResp, 42) // subscription token
			if _, err := server.Write(ackResp); err != nil {
				return err
			}

			pushDoc := record.NewDocument("")
			pushDoc.Set("token", record.Int32(42))
			pushDoc.Set("unsubscribe", record.Boolean(false))
			enc, err := record.EncodeDocument(pushDoc)
			if err != nil {
				return err
			}
			var push []byte
			push = append(push, proto.PushFrameByte, 'r')
			push = wire.PutBytes(push, enc)
			if _, err := server.Write(push); err != nil {
				return err
			}

			if _, _, err := readOneFrame(server); err != nil {
				return err
			}
			var unsubResp []byte
			unsubResp = append(unsubResp, 0)
			unsubResp = appendInt32(unsubResp, 100)
			unsubResp = wire.PutByte(unsubResp, 0) // payloadEnd: no result records
			_, err = server.Write(unsubResp)
			return err
		}()
	}()

	c := &Client{sess: session.New(client, nil)}
	ctx := context.Background()
	if err := c.sess.Handshake(ctx); err != nil {
		t.Fatalf("Handshake: %v", err)
	}
	if _, err := c.Open(ctx, "mydb", "root", "secret"); err != nil {
		t.Fatalf("Open: %v", err)
	}

	lq, err := c.LiveQuery(ctx, "live select from V", nil)
	if err != nil {
		t.Fatalf("LiveQuery: %v", err)
	}
	if lq.Token != 42 {
		t.Fatalf("token = %d, want 42", lq.Token)
	}

	select {
	case evt := <-lq.Events:
		if evt.Token != 42 || evt.Removed {
			t.Fatalf("got %+v, want token 42, removed false", evt)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for push event")
	}

	if err := lq.Unsubscribe(ctx); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}

	if err := <-serverErr; err != nil {
		t.Fatalf("fake server: %v", err)
	}
}

func appendInt32(buf []byte, v int32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	return append(buf, b[:]...)
}
