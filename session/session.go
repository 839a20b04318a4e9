package session

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/MyMedsAndMe/orientwire/orientlog"
	"github.com/MyMedsAndMe/orientwire/proto"
	"github.com/MyMedsAndMe/orientwire/record"
	"github.com/MyMedsAndMe/orientwire/schema"
)

// State is where a Session sits in its lifecycle.
type State int

const (
	Disconnected State = iota
	Connecting
	Handshaking
	Authenticating
	Ready
	Draining
	Failed
)

func (st State) String() string {
	switch st {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Handshaking:
		return "handshaking"
	case Authenticating:
		return "authenticating"
	case Ready:
		return "ready"
	case Draining:
		return "draining"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// bodyParser consumes a response body and returns the decoded value. It
// must return wire/record.ErrIncomplete (via the primitives it's built
// from) rather than guessing at a partial buffer.
type bodyParser func(body []byte) (interface{}, error)

type pendingCall struct {
	op       string
	parse    bodyParser
	resultCh chan pendingResult
}

type pendingResult struct {
	val interface{}
	err error
}

// Session owns one TCP connection to an OrientDB node: the single
// reader goroutine that owns the socket's read side and demultiplexes
// replies to callers via a FIFO queue, since replies carry no
// client-assigned correlation id of their own - only a session id
// shared by every in-flight call.
type Session struct {
	conn net.Conn
	log  *orientlog.Logger

	writeMu sync.Mutex

	mu              sync.Mutex
	state           State
	kind            proto.ConnectionKind
	sessionID       int32
	protocolVersion uint16
	pending         []*pendingCall
	liveSubs        map[int32]*liveSubscription
	distributedConfig record.Record
	failed          error

	schema    *schema.Cache
	refetchSF singleflight.Group

	nextTxID int32

	closeOnce sync.Once
	clientID  string
}

// New wraps an already-dialed connection (plain TCP or TLS - Session
// doesn't care which) in Disconnected state without reading from it.
// Handshake reads the server's protocol version and starts the reader
// goroutine; Connect or Open then authenticates.
func New(conn net.Conn, log *orientlog.Logger) *Session {
	if log == nil {
		log = orientlog.Nil()
	}
	s := &Session{
		conn:      conn,
		log:       log,
		state:     Disconnected,
		sessionID: -1,
		liveSubs:  make(map[int32]*liveSubscription),
		schema:    schema.New(),
		clientID:  uuid.NewString(),
	}
	return s
}

// State reports the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Kind reports whether this session is attached to a server or a
// specific database.
func (s *Session) Kind() proto.ConnectionKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kind
}

func (s *Session) schemaCacheLookup() record.SchemaLookup {
	return s.schema
}

// Close drains any in-flight callers with ConnectionClosed and closes
// the socket. Safe to call more than once and from any goroutine.
func (s *Session) Close() error {
	s.fail(ConnectionClosed, "session closed by caller", nil)
	return nil
}

// fail transitions the session to Failed exactly once, closes the
// socket, and delivers ConnectionClosed to every queued caller. This is
// the only path that runs for a transport error, a protocol desync, or
// a caller's timeout - all three are fatal to the whole session because
// replies are matched by FIFO position, not by a per-call identifier.
func (s *Session) fail(kind Kind, message string, cause error) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.state = Failed
		s.failed = &Error{Kind: kind, Op: "session", Message: message, Err: cause}
		pending := s.pending
		s.pending = nil
		s.mu.Unlock()

		for _, p := range pending {
			p.resultCh <- pendingResult{err: &Error{Kind: ConnectionClosed, Op: p.op, Message: "session failed"}}
		}
		s.conn.Close()
		s.log.Warn(fmt.Sprintf("session failed: kind=%s message=%s", kind, message))
	})
}

// readLoop owns the socket's read side for the lifetime of the session.
// It accumulates a tail buffer across short reads, parses as many
// complete frames as are available, and either routes a push frame or
// pops the oldest pending call and delivers its parsed result.
func (s *Session) readLoop() {
	var tail []byte
	buf := make([]byte, 32*1024)
	for {
		consumedAny, err := s.drainFrames(&tail)
		if err != nil {
			s.fail(ProtocolError, "frame decode failed", err)
			return
		}
		if consumedAny {
			continue
		}
		n, err := s.conn.Read(buf)
		if n > 0 {
			tail = append(tail, buf[:n]...)
		}
		if err != nil {
			if err == io.EOF {
				s.fail(TransportFailure, "connection closed by peer", err)
			} else {
				s.fail(TransportFailure, "read error", err)
			}
			return
		}
	}
}

// drainFrames parses as many whole frames as currently sit in tail,
// returning true if at least one was consumed so the caller can retry
// before blocking on another socket read.
func (s *Session) drainFrames(tail *[]byte) (bool, error) {
	any := false
	for {
		hdr, rest, err := parseHeader(*tail)
		if err != nil {
			if err == record.ErrIncomplete {
				return any, nil
			}
			return any, err
		}
		switch hdr.kind {
		case framePush:
			payload, rest2, err := parsePushPayload(rest)
			if err != nil {
				if err == record.ErrIncomplete {
					return any, nil
				}
				return any, err
			}
			*tail = rest2
			s.routePush(hdr.pushKind, payload)
			any = true
		case frameStatus:
			s.mu.Lock()
			s.sessionID = hdr.sessionID
			s.mu.Unlock()
			call, ok := s.popPending()
			if !ok {
				return any, fmt.Errorf("orientwire: response for session %d with no pending call", hdr.sessionID)
			}
			if hdr.status == statusError {
				chain, rest2, err := parseExceptionChain(rest)
				if err != nil {
					if err == record.ErrIncomplete {
						s.requeueFront(call)
						return any, nil
					}
					return any, err
				}
				*tail = rest2
				class, message := exceptionSummary(chain)
				call.resultCh <- pendingResult{err: &Error{Kind: ServerException, Op: call.op, Class: class, Message: message}}
				any = true
				continue
			}
			val, err := call.parse(rest)
			if err != nil {
				if err == record.ErrIncomplete {
					s.requeueFront(call)
					return any, nil
				}
				return any, err
			}
			// Every bodyParser wraps its result in a consumedValue that
			// carries the unconsumed remainder of rest, so the next header
			// starts right after this frame's body. Any other return type
			// is treated as a decode failure.
			consumed, ok := val.(consumedValue)
			if !ok {
				return any, fmt.Errorf("orientwire: parser for %q did not report consumption", call.op)
			}
			*tail = consumed.rest
			call.resultCh <- pendingResult{val: consumed.value}
			any = true
		}
	}
}

// consumedValue is how a bodyParser reports both its decoded value and
// the unconsumed remainder of the buffer it was given.
type consumedValue struct {
	value interface{}
	rest  []byte
}

func (s *Session) popPending() (*pendingCall, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil, false
	}
	call := s.pending[0]
	s.pending = s.pending[1:]
	return call, true
}

func (s *Session) requeueFront(call *pendingCall) {
	s.mu.Lock()
	s.pending = append([]*pendingCall{call}, s.pending...)
	s.mu.Unlock()
}

// doCall serializes a request header (opcode + session id) plus its
// pre-built argument bytes, enqueues the matching parser, and waits for
// either the parsed result or ctx cancellation. Cancellation of an
// in-flight call always fails the whole session - see fail's doc.
func (s *Session) doCall(ctx context.Context, op proto.Operation, args []byte, parse bodyParser) (interface{}, error) {
	s.mu.Lock()
	if s.state == Failed {
		err := s.failed
		s.mu.Unlock()
		return nil, &Error{Kind: ConnectionClosed, Op: op.Name, Message: "session failed", Err: err}
	}
	if err := proto.CheckClass(op, s.kind); err != nil {
		s.mu.Unlock()
		return nil, &Error{Kind: NoConnectionType, Op: op.Name, Err: err}
	}
	if err := proto.CheckVersion(op, s.protocolVersion); err != nil {
		s.mu.Unlock()
		return nil, &Error{Kind: UnsupportedInThisVersion, Op: op.Name, Err: err}
	}
	sessionID := s.sessionID
	s.mu.Unlock()

	call := &pendingCall{op: op.Name, parse: parse, resultCh: make(chan pendingResult, 1)}

	var req []byte
	req = append(req, byte(op.Opcode))
	req = putInt32(req, sessionID)
	req = append(req, args...)

	// The pending-queue push and the socket write must happen as one
	// atomic step under the same lock: two concurrent callers enqueueing
	// in one order but writing to the socket in the other would desync
	// every reply thereafter, since responses carry no per-call id and
	// are matched purely by FIFO position.
	s.writeMu.Lock()
	s.mu.Lock()
	s.pending = append(s.pending, call)
	s.mu.Unlock()
	_, err := s.conn.Write(req)
	s.writeMu.Unlock()
	if err != nil {
		s.fail(TransportFailure, "write error", err)
		return nil, &Error{Kind: TransportFailure, Op: op.Name, Err: err}
	}

	select {
	case res := <-call.resultCh:
		return res.val, res.err
	case <-ctx.Done():
		s.fail(Timeout, "caller context done with a request in flight", ctx.Err())
		return nil, &Error{Kind: Timeout, Op: op.Name, Err: ctx.Err()}
	}
}

func putInt32(buf []byte, v int32) []byte {
	return append(buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}
