package session

import (
	"net"
	"testing"

	"github.com/MyMedsAndMe/orientwire/proto"
	"github.com/MyMedsAndMe/orientwire/record"
)

func TestRouteLiveQueryPushDeliversToSubscriber(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	s := New(client, nil)
	ch := make(chan PushRecord, 1)
	s.liveSubs[7] = &liveSubscription{ch: ch}

	doc := record.NewDocument("")
	doc.Set("token", record.Int32(7))
	doc.Set("unsubscribe", record.Boolean(false))
	enc, err := record.EncodeDocument(doc)
	if err != nil {
		t.Fatalf("encode push document: %v", err)
	}

	s.routePush(proto.PushFrameRecordKind(), enc)

	select {
	case got := <-ch:
		if got.Token != 7 || got.Removed {
			t.Fatalf("got %+v, want token 7, removed false", got)
		}
	default:
		t.Fatal("expected a delivered push record")
	}
}

func TestRouteLiveQueryPushUnknownTokenIsDropped(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	s := New(client, nil)

	doc := record.NewDocument("")
	doc.Set("token", record.Int32(99))
	doc.Set("unsubscribe", record.Boolean(false))
	enc, err := record.EncodeDocument(doc)
	if err != nil {
		t.Fatalf("encode push document: %v", err)
	}

	// No subscriber registered for token 99; routePush must not panic or
	// block trying to deliver anywhere.
	s.routePush(proto.PushFrameRecordKind(), enc)
}

func TestRouteLiveQueryPushUnsubscribeSetsRemoved(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	s := New(client, nil)
	ch := make(chan PushRecord, 1)
	s.liveSubs[3] = &liveSubscription{ch: ch}

	doc := record.NewDocument("")
	doc.Set("token", record.Int32(3))
	doc.Set("unsubscribe", record.Boolean(true))
	enc, err := record.EncodeDocument(doc)
	if err != nil {
		t.Fatalf("encode push document: %v", err)
	}

	s.routePush(proto.PushFrameRecordKind(), enc)

	got := <-ch
	if !got.Removed {
		t.Fatal("expected Removed = true for an unsubscribe batch")
	}
}

func TestRouteDistributedConfigPush(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	s := New(client, nil)
	if _, ok := s.DistributedConfig(); ok {
		t.Fatal("expected no distributed config before any push")
	}

	doc := record.NewDocument("cluster")
	doc.Set("name", record.String("eu-west"))
	enc, err := record.EncodeDocument(doc)
	if err != nil {
		t.Fatalf("encode push document: %v", err)
	}

	s.routePush(proto.PushFrameDistribKind(), enc)

	got, ok := s.DistributedConfig()
	if !ok {
		t.Fatal("expected a distributed config after the push")
	}
	gotDoc, ok := got.(*record.Document)
	if !ok || gotDoc.ClassName() != "cluster" {
		t.Fatalf("got %#v, want *record.Document{class: cluster}", got)
	}
}
