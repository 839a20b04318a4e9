package proto

import (
	"github.com/MyMedsAndMe/orientwire/internal/wire"
	"github.com/MyMedsAndMe/orientwire/record"
)

// RecordSerializerName is the literal OrientDB advertises during
// handshake to select the binary record serializer (as opposed to the
// CSV-based legacy one).
const RecordSerializerName = "ORecordSerializerBinary"

// Record type discriminator bytes (§6): precede a record's bytes whenever
// it's serialized outside of the record itself.
const (
	RecordTypeDocument byte = 'd'
	RecordTypeBinary   byte = 'b'
)

// CUD (create/update/delete) request modes (§6).
const (
	ModeSync       byte = 0
	ModeNoResponse byte = 2
)

// COMMAND request modes (§6).
const (
	CommandModeSync  Command = 's'
	CommandModeAsync Command = 'a'
	CommandModeLive  Command = 'l'
)

// Command is a COMMAND request-mode byte.
type Command byte

func putRID(buf []byte, rid record.RID) []byte {
	buf = wire.PutShort(buf, rid.Cluster)
	buf = wire.PutLong(buf, rid.Position)
	return buf
}

// EncodeConnect builds the CONNECT argument list (everything after the
// opcode + session-id the session layer prefixes).
func EncodeConnect(clientName, clientVersion, clientID, username, password string) []byte {
	var buf []byte
	buf = wire.PutString(buf, clientName)
	buf = wire.PutString(buf, clientVersion)
	buf = wire.PutShort(buf, int16(AdvertisedProtocolVersion))
	buf = wire.PutString(buf, clientID)
	buf = wire.PutString(buf, RecordSerializerName)
	buf = wire.PutBool(buf, false) // use-token: unsupported by this client
	buf = wire.PutString(buf, username)
	buf = wire.PutString(buf, password)
	return buf
}

// EncodeDBOpen builds the DB_OPEN argument list.
func EncodeDBOpen(clientName, clientVersion, clientID, dbName, username, password string) []byte {
	var buf []byte
	buf = wire.PutString(buf, clientName)
	buf = wire.PutString(buf, clientVersion)
	buf = wire.PutShort(buf, int16(AdvertisedProtocolVersion))
	buf = wire.PutString(buf, clientID)
	buf = wire.PutString(buf, RecordSerializerName)
	buf = wire.PutBool(buf, false) // use-token
	buf = wire.PutString(buf, username)
	buf = wire.PutString(buf, password)
	buf = wire.PutString(buf, dbName)
	return buf
}

// EncodeDBExist builds the DB_EXIST argument list.
func EncodeDBExist(dbName, storageType string) []byte {
	var buf []byte
	buf = wire.PutString(buf, dbName)
	buf = wire.PutString(buf, storageType)
	return buf
}

// EncodeDBCreate builds the DB_CREATE argument list.
func EncodeDBCreate(dbName, dbType, storageType string) []byte {
	var buf []byte
	buf = wire.PutString(buf, dbName)
	buf = wire.PutString(buf, dbType)
	buf = wire.PutString(buf, storageType)
	return buf
}

// EncodeDBDrop builds the DB_DROP argument list.
func EncodeDBDrop(dbName, storageType string) []byte {
	var buf []byte
	buf = wire.PutString(buf, dbName)
	buf = wire.PutString(buf, storageType)
	return buf
}

// EncodeRecordLoad builds the RECORD_LOAD argument list. Per the open
// question in the design notes, ignoreCache/loadTombstones are strict
// booleans written exactly as passed, with no defaults applied here.
func EncodeRecordLoad(rid record.RID, fetchPlan string, ignoreCache, loadTombstones bool) []byte {
	var buf []byte
	buf = putRID(buf, rid)
	buf = wire.PutString(buf, fetchPlan)
	buf = wire.PutBool(buf, ignoreCache)
	buf = wire.PutBool(buf, loadTombstones)
	return buf
}

// EncodeRecordCreate builds the RECORD_CREATE argument list. clusterID
// may be -1 to let the server pick the default cluster for the class.
func EncodeRecordCreate(clusterID int16, recordBytes []byte, recordType byte, mode byte) []byte {
	var buf []byte
	buf = wire.PutShort(buf, clusterID)
	buf = wire.PutBytes(buf, recordBytes)
	buf = wire.PutByte(buf, recordType)
	buf = wire.PutByte(buf, mode)
	return buf
}

// EncodeRecordUpdate builds the RECORD_UPDATE argument list.
func EncodeRecordUpdate(rid record.RID, recordBytes []byte, recordType byte, version int32, updateContent bool, mode byte) []byte {
	var buf []byte
	buf = putRID(buf, rid)
	buf = wire.PutBool(buf, updateContent)
	buf = wire.PutBytes(buf, recordBytes)
	buf = wire.PutInt(buf, version)
	buf = wire.PutByte(buf, recordType)
	buf = wire.PutByte(buf, mode)
	return buf
}

// EncodeRecordDelete builds the RECORD_DELETE argument list.
func EncodeRecordDelete(rid record.RID, version int32, mode byte) []byte {
	var buf []byte
	buf = putRID(buf, rid)
	buf = wire.PutInt(buf, version)
	buf = wire.PutByte(buf, mode)
	return buf
}

// EncodeCommand prepends the request-mode byte to an already-built
// command payload (see command.go's CommandPayload/LiveQueryPayload).
// The payload needs no additional length prefix - it's a self-delimiting
// sequence of length-prefixed strings, bytes blobs and fixed-width ints.
func EncodeCommand(mode Command, payload []byte) []byte {
	var buf []byte
	buf = wire.PutByte(buf, byte(mode))
	buf = wire.Raw(buf, payload)
	return buf
}
