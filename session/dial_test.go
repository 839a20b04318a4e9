package session

import (
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/MyMedsAndMe/orientwire/proto"
)

func TestDialRunsHandshakeOverRealTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	accepted := make(chan error, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			accepted <- err
			return
		}
		defer conn.Close()
		var vb [2]byte
		binary.BigEndian.PutUint16(vb[:], proto.AdvertisedProtocolVersion)
		_, err = conn.Write(vb[:])
		accepted <- err
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	s, err := Dial(ctx, ln.Addr().String(), nil, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer s.Close()

	if s.State() != Authenticating {
		t.Fatalf("state = %v, want Authenticating", s.State())
	}
	if err := <-accepted; err != nil {
		t.Fatalf("accept goroutine: %v", err)
	}
}

func TestDialFailsOnConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close() // free the port so the connection is refused

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err = Dial(ctx, addr, nil, nil)
	if err == nil {
		t.Fatal("expected a dial error against a closed port")
	}
	var sErr *Error
	if se, ok := err.(*Error); ok {
		sErr = se
	}
	if sErr == nil || sErr.Kind != TransportFailure {
		t.Fatalf("got %v, want TransportFailure", err)
	}
}
