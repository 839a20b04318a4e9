package session

import (
	"context"
	"crypto/tls"
	"net"

	"github.com/MyMedsAndMe/orientwire/orientlog"
)

// Dial opens a TCP connection to an OrientDB node, optionally upgrading
// to TLS, and runs the protocol handshake. tlsConfig may be nil for a
// plain connection.
func Dial(ctx context.Context, addr string, tlsConfig *tls.Config, log *orientlog.Logger) (*Session, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &Error{Kind: TransportFailure, Op: "dial", Err: err}
	}
	if tlsConfig != nil {
		tlsConn := tls.Client(conn, tlsConfig)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, &Error{Kind: TransportFailure, Op: "tls_handshake", Err: err}
		}
		conn = tlsConn
	}
	s := New(conn, log)
	if err := s.Handshake(ctx); err != nil {
		return nil, err
	}
	return s, nil
}
