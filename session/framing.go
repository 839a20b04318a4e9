package session

import (
	"github.com/MyMedsAndMe/orientwire/internal/wire"
	"github.com/MyMedsAndMe/orientwire/proto"
)

// frameKind distinguishes a normal request-matched reply from an
// unsolicited server push.
type frameKind int

const (
	frameStatus frameKind = iota
	framePush
)

// frameHeader is everything read before the opcode-specific body. Every
// field here is produced by fixed-width or self-terminating reads, so a
// short buffer surfaces as wire.ErrIncomplete and the caller just waits
// for more bytes and retries from the same offset.
type frameHeader struct {
	kind      frameKind
	status    byte // 0 = ok, 1 = error (frameStatus only)
	sessionID int32
	pushKind  byte // 'r' or 'd' (framePush only)
}

const (
	statusOK    byte = 0
	statusError byte = 1
)

func parseHeader(buf []byte) (frameHeader, []byte, error) {
	marker, rest, err := wire.ReadByte(buf)
	if err != nil {
		return frameHeader{}, nil, err
	}
	if marker == proto.PushFrameByte {
		kindByte, rest2, err := wire.ReadByte(rest)
		if err != nil {
			return frameHeader{}, nil, err
		}
		return frameHeader{kind: framePush, pushKind: kindByte}, rest2, nil
	}
	sessionID, rest2, err := wire.ReadInt(rest)
	if err != nil {
		return frameHeader{}, nil, err
	}
	return frameHeader{kind: frameStatus, status: marker, sessionID: sessionID}, rest2, nil
}

// serverException is one link of an error response's exception chain.
type serverException struct {
	class   string
	message string
}

// parseExceptionChain reads the repeated (class, message) pairs OrientDB
// sends for an error response, terminated by a zero continuation byte,
// followed by an optional serialized-exception blob this client ignores.
func parseExceptionChain(buf []byte) ([]serverException, []byte, error) {
	var chain []serverException
	rest := buf
	for {
		more, r2, err := wire.ReadByte(rest)
		if err != nil {
			return nil, nil, err
		}
		rest = r2
		if more == 0 {
			break
		}
		class, r3, _, err := wire.ReadString(rest)
		if err != nil {
			return nil, nil, err
		}
		msg, r4, _, err := wire.ReadString(r3)
		if err != nil {
			return nil, nil, err
		}
		chain = append(chain, serverException{class: class, message: msg})
		rest = r4
	}
	// A length-prefixed, Java-serialized exception dump follows the chain
	// terminator. ReadBytes already treats a -1 length as "absent", so no
	// separate presence flag is needed here.
	_, r5, _, err := wire.ReadBytes(rest)
	if err != nil {
		return nil, nil, err
	}
	rest = r5
	return chain, rest, nil
}

// parsePushPayload reads a push frame's single length-prefixed content
// blob. push.go decodes it according to pushKind.
func parsePushPayload(buf []byte) (payload []byte, rest []byte, err error) {
	payload, rest, _, err = wire.ReadBytes(buf)
	return payload, rest, err
}

func exceptionSummary(chain []serverException) (class, message string) {
	if len(chain) == 0 {
		return "", ""
	}
	return chain[0].class, chain[0].message
}
