package session

import (
	"github.com/MyMedsAndMe/orientwire/proto"
	"github.com/MyMedsAndMe/orientwire/record"
)

// PushRecord is one batch delivered to a live-query subscriber.
type PushRecord struct {
	Token   int32
	Doc     record.Record
	Removed bool // this batch reports an UNSUBSCRIBE / end-of-stream
}

// liveSubscription is what Session tracks per active LIVE SELECT token.
type liveSubscription struct {
	ch chan PushRecord
}

func (s *Session) routePush(kind byte, payload []byte) {
	switch kind {
	case proto.PushFrameRecordKind():
		s.routeLiveQueryPush(payload)
	case proto.PushFrameDistribKind():
		s.routeDistributedConfigPush(payload)
	default:
		s.log.Warn("orientwire: unrecognized push frame kind")
	}
}

func (s *Session) routeLiveQueryPush(payload []byte) {
	doc, err := record.DecodeDocument(payload, s.schemaCacheLookup())
	if err != nil {
		s.log.Errorf("live-query push decode failed: %v", err)
		return
	}
	token, removed := liveQueryTokenFromDoc(doc)

	s.mu.Lock()
	sub, ok := s.liveSubs[token]
	s.mu.Unlock()
	if !ok {
		return
	}
	select {
	case sub.ch <- PushRecord{Token: token, Doc: doc, Removed: removed}:
	default:
		s.log.Warn("live-query subscriber channel full, dropping batch")
	}
}

// liveQueryTokenFromDoc pulls the subscription token and a completion
// flag out of a live-query push document. The wire shape here is a
// document with a "token" field and a "unsubscribe" boolean, matching
// how the rest of this client surfaces structured fields rather than
// raw positional bytes.
func liveQueryTokenFromDoc(rec record.Record) (int32, bool) {
	doc, ok := rec.(*record.Document)
	if !ok {
		return 0, false
	}
	var token int32
	if v, ok := doc.Get("token"); ok {
		if i, ok := v.(record.Int32); ok {
			token = int32(i)
		}
	}
	removed := false
	if v, ok := doc.Get("unsubscribe"); ok {
		if b, ok := v.(record.Boolean); ok {
			removed = bool(b)
		}
	}
	return token, removed
}

func (s *Session) routeDistributedConfigPush(payload []byte) {
	doc, err := record.DecodeDocument(payload, s.schemaCacheLookup())
	if err != nil {
		s.log.Errorf("distributed-config push decode failed: %v", err)
		return
	}
	s.mu.Lock()
	s.distributedConfig = doc
	s.mu.Unlock()
}

// DistributedConfig returns the most recent distributed-configuration
// document the server pushed, if any.
func (s *Session) DistributedConfig() (record.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.distributedConfig, s.distributedConfig != nil
}
