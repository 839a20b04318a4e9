package session

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/MyMedsAndMe/orientwire/proto"
)

const clientName = "orientwire"
const clientVersion = "1.0"

// Handshake performs the protocol-level handshake OrientDB runs before
// any request is possible: the server unilaterally sends a 2-byte
// protocol version the instant the TCP connection is accepted. Only
// after that can the reader goroutine start treating the stream as a
// sequence of framed, FIFO-matched responses.
func (s *Session) Handshake(ctx context.Context) error {
	s.setState(Handshaking)

	if dl, ok := ctx.Deadline(); ok {
		s.conn.SetReadDeadline(dl)
	}
	var b [2]byte
	if _, err := readFull(s.conn, b[:]); err != nil {
		s.fail(TransportFailure, "handshake read failed", err)
		return &Error{Kind: TransportFailure, Op: "handshake", Err: err}
	}
	s.conn.SetReadDeadline(time.Time{})

	version := uint16(binary.BigEndian.Uint16(b[:]))
	if version < proto.MinProtocolVersion {
		err := fmt.Errorf("server protocol version %d below minimum %d", version, proto.MinProtocolVersion)
		s.fail(UnsupportedServerProtocol, "unsupported server protocol version", err)
		return &Error{Kind: UnsupportedServerProtocol, Op: "handshake", Err: err}
	}

	s.mu.Lock()
	s.protocolVersion = version
	s.mu.Unlock()

	go s.readLoop()
	s.setState(Authenticating)
	return nil
}

func readFull(r interface{ Read([]byte) (int, error) }, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
