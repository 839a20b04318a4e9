package proto

import (
	"bytes"
	"testing"

	"github.com/MyMedsAndMe/orientwire/internal/wire"
	"github.com/MyMedsAndMe/orientwire/record"
)

func TestEncodeConnect(t *testing.T) {
	buf := EncodeConnect("orientwire", "1.0", "client-1", "root", "secret")

	name, rest, _, err := wire.ReadString(buf)
	if err != nil || name != "orientwire" {
		t.Fatalf("clientName = %q (err=%v)", name, err)
	}
	version, rest, _, err := wire.ReadString(rest)
	if err != nil || version != "1.0" {
		t.Fatalf("clientVersion = %q (err=%v)", version, err)
	}
	protoVer, rest, err := wire.ReadShort(rest)
	if err != nil || protoVer != int16(AdvertisedProtocolVersion) {
		t.Fatalf("protocolVersion = %d, want %d (err=%v)", protoVer, AdvertisedProtocolVersion, err)
	}
	clientID, rest, _, err := wire.ReadString(rest)
	if err != nil || clientID != "client-1" {
		t.Fatalf("clientID = %q (err=%v)", clientID, err)
	}
	serializer, rest, _, err := wire.ReadString(rest)
	if err != nil || serializer != RecordSerializerName {
		t.Fatalf("serializer = %q, want %q (err=%v)", serializer, RecordSerializerName, err)
	}
	useToken, rest, err := wire.ReadBool(rest)
	if err != nil || useToken {
		t.Fatalf("useToken = %v, want false (err=%v)", useToken, err)
	}
	username, rest, _, err := wire.ReadString(rest)
	if err != nil || username != "root" {
		t.Fatalf("username = %q (err=%v)", username, err)
	}
	password, rest, _, err := wire.ReadString(rest)
	if err != nil || password != "secret" {
		t.Fatalf("password = %q (err=%v)", password, err)
	}
	if len(rest) != 0 {
		t.Fatalf("trailing bytes: %v", rest)
	}
}

func TestEncodeDBOpenArgumentOrder(t *testing.T) {
	buf := EncodeDBOpen("orientwire", "1.0", "client-1", "mydb", "root", "secret")

	_, rest, _, err := wire.ReadString(buf) // clientName
	if err != nil {
		t.Fatalf("clientName: %v", err)
	}
	_, rest, _, err = wire.ReadString(rest) // clientVersion
	if err != nil {
		t.Fatalf("clientVersion: %v", err)
	}
	_, rest, err = wire.ReadShort(rest) // protocolVersion
	if err != nil {
		t.Fatalf("protocolVersion: %v", err)
	}
	_, rest, _, err = wire.ReadString(rest) // clientID
	if err != nil {
		t.Fatalf("clientID: %v", err)
	}
	_, rest, _, err = wire.ReadString(rest) // serializer name
	if err != nil {
		t.Fatalf("serializer: %v", err)
	}
	_, rest, err = wire.ReadBool(rest) // use-token
	if err != nil {
		t.Fatalf("useToken: %v", err)
	}
	// Username and password must precede the database name.
	username, rest, _, err := wire.ReadString(rest)
	if err != nil || username != "root" {
		t.Fatalf("username = %q, want root (err=%v)", username, err)
	}
	password, rest, _, err := wire.ReadString(rest)
	if err != nil || password != "secret" {
		t.Fatalf("password = %q, want secret (err=%v)", password, err)
	}
	dbName, rest, _, err := wire.ReadString(rest)
	if err != nil || dbName != "mydb" {
		t.Fatalf("dbName = %q, want mydb (err=%v)", dbName, err)
	}
	if len(rest) != 0 {
		t.Fatalf("trailing bytes: %v", rest)
	}
}

func TestEncodeRecordLoad(t *testing.T) {
	rid := record.NewRID(5, 42)
	buf := EncodeRecordLoad(rid, "*:-1", true, false)

	cluster, rest, err := wire.ReadShort(buf)
	if err != nil || cluster != 5 {
		t.Fatalf("cluster = %d, want 5 (err=%v)", cluster, err)
	}
	pos, rest, err := wire.ReadLong(rest)
	if err != nil || pos != 42 {
		t.Fatalf("position = %d, want 42 (err=%v)", pos, err)
	}
	fetchPlan, rest, _, err := wire.ReadString(rest)
	if err != nil || fetchPlan != "*:-1" {
		t.Fatalf("fetchPlan = %q, want \"*:-1\" (err=%v)", fetchPlan, err)
	}
	ignoreCache, rest, err := wire.ReadBool(rest)
	if err != nil || !ignoreCache {
		t.Fatalf("ignoreCache = %v, want true (err=%v)", ignoreCache, err)
	}
	loadTombstones, rest, err := wire.ReadBool(rest)
	if err != nil || loadTombstones {
		t.Fatalf("loadTombstones = %v, want false (err=%v)", loadTombstones, err)
	}
	if len(rest) != 0 {
		t.Fatalf("trailing bytes: %v", rest)
	}
}

func TestEncodeRecordCreateAndParseRoundTrip(t *testing.T) {
	body := []byte{0x01, 0x02, 0x03}
	buf := EncodeRecordCreate(-1, body, RecordTypeDocument, ModeSync)

	cluster, rest, err := wire.ReadShort(buf)
	if err != nil || cluster != -1 {
		t.Fatalf("cluster = %d, want -1 (err=%v)", cluster, err)
	}
	got, rest, ok, err := wire.ReadBytes(rest)
	if err != nil || !ok || !bytes.Equal(got, body) {
		t.Fatalf("body = %v, want %v (ok=%v, err=%v)", got, body, ok, err)
	}
	rtype, rest, err := wire.ReadByte(rest)
	if err != nil || rtype != RecordTypeDocument {
		t.Fatalf("recordType: %v", err)
	}
	mode, rest, err := wire.ReadByte(rest)
	if err != nil || mode != ModeSync {
		t.Fatalf("mode: %v", err)
	}
	if len(rest) != 0 {
		t.Fatalf("trailing bytes: %v", rest)
	}

	// Response side: RECORD_CREATE with zero collection changes.
	respBuf := wire.PutShort(nil, 5)
	respBuf = wire.PutLong(respBuf, 100)
	respBuf = wire.PutInt(respBuf, 1)
	respBuf = wire.PutInt(respBuf, 0) // collection changes count
	created, respRest, err := ParseRecordCreate(respBuf)
	if err != nil {
		t.Fatalf("ParseRecordCreate: %v", err)
	}
	if created.Cluster != 5 || created.Position != 100 || created.Version != 1 {
		t.Fatalf("created = %+v, want {5 100 1}", created)
	}
	if len(respRest) != 0 {
		t.Fatalf("trailing response bytes: %v", respRest)
	}
}

func TestParseRecordCreateRejectsTreeCollectionChanges(t *testing.T) {
	respBuf := wire.PutShort(nil, 5)
	respBuf = wire.PutLong(respBuf, 100)
	respBuf = wire.PutInt(respBuf, 1)
	respBuf = wire.PutInt(respBuf, 2) // non-zero tree changes: unsupported
	_, _, err := ParseRecordCreate(respBuf)
	if err != ErrUnsupportedCollectionChanges {
		t.Fatalf("got %v, want ErrUnsupportedCollectionChanges", err)
	}
}

func TestEncodeRecordUpdate(t *testing.T) {
	rid := record.NewRID(3, 9)
	body := []byte{0xFF}
	buf := EncodeRecordUpdate(rid, body, RecordTypeDocument, 4, true, ModeSync)

	cluster, rest, err := wire.ReadShort(buf)
	if err != nil || cluster != 3 {
		t.Fatalf("cluster = %d, want 3 (err=%v)", cluster, err)
	}
	pos, rest, err := wire.ReadLong(rest)
	if err != nil || pos != 9 {
		t.Fatalf("position = %d, want 9 (err=%v)", pos, err)
	}
	updated, rest, err := wire.ReadBool(rest)
	if err != nil || !updated {
		t.Fatalf("updateContent = %v, want true (err=%v)", updated, err)
	}
	got, rest, ok, err := wire.ReadBytes(rest)
	if err != nil || !ok || !bytes.Equal(got, body) {
		t.Fatalf("body = %v, want %v (ok=%v, err=%v)", got, body, ok, err)
	}
	version, rest, err := wire.ReadInt(rest)
	if err != nil || version != 4 {
		t.Fatalf("version = %d, want 4 (err=%v)", version, err)
	}
	_, rest, err = wire.ReadByte(rest) // record type
	if err != nil {
		t.Fatalf("recordType: %v", err)
	}
	_, rest, err = wire.ReadByte(rest) // mode
	if err != nil {
		t.Fatalf("mode: %v", err)
	}
	if len(rest) != 0 {
		t.Fatalf("trailing bytes: %v", rest)
	}
}

func TestEncodeRecordDelete(t *testing.T) {
	rid := record.NewRID(3, 9)
	buf := EncodeRecordDelete(rid, 7, ModeSync)

	cluster, rest, err := wire.ReadShort(buf)
	if err != nil || cluster != 3 {
		t.Fatalf("cluster: %v", err)
	}
	pos, rest, err := wire.ReadLong(rest)
	if err != nil || pos != 9 {
		t.Fatalf("position: %v", err)
	}
	version, rest, err := wire.ReadInt(rest)
	if err != nil || version != 7 {
		t.Fatalf("version = %d, want 7 (err=%v)", version, err)
	}
	_, rest, err = wire.ReadByte(rest)
	if err != nil {
		t.Fatalf("mode: %v", err)
	}
	if len(rest) != 0 {
		t.Fatalf("trailing bytes: %v", rest)
	}
}

func TestParseDBOpenConsumesTokenBeforeClusters(t *testing.T) {
	var buf []byte
	buf = wire.PutBytes(buf, []byte("opaque-token")) // session token, discarded
	buf = wire.PutShort(buf, 2)
	buf = wire.PutString(buf, "default")
	buf = wire.PutShort(buf, 0)
	buf = wire.PutString(buf, "index")
	buf = wire.PutShort(buf, 1)
	buf = wire.PutString(buf, "2.2.0")

	clusters, release, rest, err := ParseDBOpen(buf)
	if err != nil {
		t.Fatalf("ParseDBOpen: %v", err)
	}
	if len(clusters) != 2 || clusters[0].Name != "default" || clusters[1].ID != 1 {
		t.Fatalf("clusters = %+v", clusters)
	}
	if release != "2.2.0" {
		t.Fatalf("release = %q, want 2.2.0", release)
	}
	if len(rest) != 0 {
		t.Fatalf("trailing bytes: %v", rest)
	}
}

func TestParseConnectConsumesToken(t *testing.T) {
	buf := wire.PutBytes(nil, []byte("another-token"))
	rest, err := ParseConnect(buf)
	if err != nil {
		t.Fatalf("ParseConnect: %v", err)
	}
	if len(rest) != 0 {
		t.Fatalf("trailing bytes: %v", rest)
	}
}

func TestParseRecordLoadWithAssociatedRecord(t *testing.T) {
	associatedRID := record.NewRID(3, 8)

	var buf []byte
	buf = wire.PutByte(buf, payloadPrimary)
	buf = wire.PutByte(buf, RecordTypeDocument)
	buf = wire.PutInt(buf, 1) // version
	buf = wire.PutBytes(buf, []byte("primary-bytes"))
	buf = wire.PutByte(buf, payloadAssociated)
	buf = putRID(buf, associatedRID)
	buf = wire.PutByte(buf, RecordTypeDocument)
	buf = wire.PutInt(buf, 2) // version
	buf = wire.PutBytes(buf, []byte("linked-bytes"))
	buf = wire.PutByte(buf, payloadEnd)

	primary, linked, rest, err := ParseRecordLoad(buf)
	if err != nil {
		t.Fatalf("ParseRecordLoad: %v", err)
	}
	if len(rest) != 0 {
		t.Fatalf("trailing bytes left: %v", rest)
	}
	if primary == nil || primary.RID != nil || !bytes.Equal(primary.Bytes, []byte("primary-bytes")) {
		t.Fatalf("primary = %#v, want nil RID and primary-bytes", primary)
	}
	if len(linked) != 1 {
		t.Fatalf("linked = %d records, want 1", len(linked))
	}
	if linked[0].RID == nil || *linked[0].RID != associatedRID {
		t.Fatalf("linked[0].RID = %v, want %v", linked[0].RID, associatedRID)
	}
	if !bytes.Equal(linked[0].Bytes, []byte("linked-bytes")) {
		t.Fatalf("linked[0].Bytes = %q, want %q", linked[0].Bytes, "linked-bytes")
	}
}

func TestEncodeCommandPrependsMode(t *testing.T) {
	payload := []byte{0x01, 0x02}
	buf := EncodeCommand(CommandModeSync, payload)
	if buf[0] != byte(CommandModeSync) {
		t.Fatalf("mode byte = %q, want %q", buf[0], byte(CommandModeSync))
	}
	if !bytes.Equal(buf[1:], payload) {
		t.Fatalf("payload = %v, want %v", buf[1:], payload)
	}
}
