// Package orientwire is a client for OrientDB's native binary wire
// protocol: connection/session handling, the schemaless-binary record
// codec, and schema-aware property resolution. It does not parse SQL,
// cache records client-side, or pool connections - each Client owns
// exactly one session over one socket.
package orientwire

import (
	"context"
	"crypto/tls"

	"github.com/MyMedsAndMe/orientwire/fetchplan"
	"github.com/MyMedsAndMe/orientwire/orientlog"
	"github.com/MyMedsAndMe/orientwire/proto"
	"github.com/MyMedsAndMe/orientwire/record"
	"github.com/MyMedsAndMe/orientwire/session"
)

// Options configures a new Client.
type Options struct {
	// Addr is "host:port" of the OrientDB node.
	Addr string
	// TLS, if non-nil, upgrades the connection to TLS after dialing.
	TLS *tls.Config
	// Logger receives session lifecycle events. Defaults to a discard
	// logger when nil.
	Logger *orientlog.Logger
}

// Client is a single OrientDB wire-protocol session: either attached to
// a server (for db_exist/create_db/drop_db) or to one open database
// (everything else), never both at once.
type Client struct {
	sess *session.Session
}

// Dial opens a connection and runs the handshake, returning a Client
// with no connection kind yet - call Connect or Open next.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	sess, err := session.Dial(ctx, opts.Addr, opts.TLS, opts.Logger)
	if err != nil {
		return nil, err
	}
	return &Client{sess: sess}, nil
}

// Connect authenticates a server-level session.
func (c *Client) Connect(ctx context.Context, username, password string) error {
	return c.sess.Connect(ctx, username, password)
}

// Open authenticates a database-level session.
func (c *Client) Open(ctx context.Context, dbName, username, password string) (session.OpenResult, error) {
	return c.sess.Open(ctx, dbName, username, password)
}

// Stop closes the underlying socket, failing any in-flight call with
// ConnectionClosed. It does not send db_close first; call Close for a
// graceful database-session teardown.
func (c *Client) Stop() error {
	return c.sess.Close()
}

// Close sends db_close (valid whether the session is server- or
// db-level) and then tears down the socket.
func (c *Client) Close(ctx context.Context) error {
	if err := c.sess.CloseDB(ctx); err != nil {
		c.sess.Close()
		return err
	}
	return c.sess.Close()
}

// DBExists reports whether a database exists on the connected server.
func (c *Client) DBExists(ctx context.Context, dbName, storageType string) (bool, error) {
	return c.sess.DBExist(ctx, dbName, storageType)
}

// CreateDB creates a new database.
func (c *Client) CreateDB(ctx context.Context, dbName, dbType, storageType string) error {
	return c.sess.CreateDB(ctx, dbName, dbType, storageType)
}

// DropDB drops a database.
func (c *Client) DropDB(ctx context.Context, dbName, storageType string) error {
	return c.sess.DropDB(ctx, dbName, storageType)
}

// DBSize reports the open database's on-disk size in bytes.
func (c *Client) DBSize(ctx context.Context) (int64, error) {
	return c.sess.DBSize(ctx)
}

// DBCountRecords reports the open database's total record count.
func (c *Client) DBCountRecords(ctx context.Context) (int64, error) {
	return c.sess.DBCountRecords(ctx)
}

// DBReload refreshes and returns the database's cluster table.
func (c *Client) DBReload(ctx context.Context) ([]proto.ClusterInfo, error) {
	return c.sess.DBReload(ctx)
}

// LoadOptions controls a LoadRecord call. IgnoreCache and LoadTombstones
// are sent to the server exactly as given; no default is substituted, so
// the zero value sends ignore_cache=false and load_tombstones=false (see
// DESIGN.md).
type LoadOptions struct {
	FetchPlan      string
	IgnoreCache    bool
	LoadTombstones bool
}

// LoadRecord fetches a record by RID, transparently resolving one round
// of unknown schema properties before returning.
func (c *Client) LoadRecord(ctx context.Context, rid record.RID, opts LoadOptions) (record.Record, fetchplan.Linked, error) {
	res, err := c.sess.LoadRecord(ctx, rid, opts.FetchPlan, opts.IgnoreCache, opts.LoadTombstones)
	if err != nil {
		return nil, nil, err
	}
	return res.Primary, fetchplan.Linked(res.Linked), nil
}

// CreateRecord serializes doc and stores it in clusterID (-1 lets the
// server pick the class's default cluster), returning the assigned RID
// and initial version.
func (c *Client) CreateRecord(ctx context.Context, clusterID int16, doc *record.Document) (proto.CreatedRecord, error) {
	body, err := record.EncodeDocument(doc)
	if err != nil {
		return proto.CreatedRecord{}, err
	}
	return c.sess.CreateRecord(ctx, clusterID, body, proto.RecordTypeDocument, proto.ModeSync)
}

// UpdateRecord serializes doc and stores it over rid. doc.Version must
// be set - the MissingVersion invariant is checked before anything
// touches the wire.
func (c *Client) UpdateRecord(ctx context.Context, rid record.RID, doc *record.Document) (int32, error) {
	if err := session.MissingVersionCheck("update_record", doc); err != nil {
		return 0, err
	}
	body, err := record.EncodeDocument(doc)
	if err != nil {
		return 0, err
	}
	return c.sess.UpdateRecord(ctx, rid, body, proto.RecordTypeDocument, *doc.Version, true, proto.ModeSync)
}

// DeleteRecord removes the record at rid, which must be at the given
// version.
func (c *Client) DeleteRecord(ctx context.Context, rid record.RID, version int32) (bool, error) {
	return c.sess.DeleteRecord(ctx, rid, version, proto.ModeSync)
}

// CommandResult is the outcome of Command or Script: the primary result
// record(s) plus any fetch-plan-linked records.
type CommandResult struct {
	Primary record.Record
	Linked  fetchplan.Linked
}

// Command runs a single SQL statement, classified automatically as an
// idempotent query or a general command (see proto.ClassifyCommand).
// params are converted from positional to the server's string-keyed
// form and serialized as an embedded parameters document.
func (c *Client) Command(ctx context.Context, text string, fetchPlan string, params []interface{}) (CommandResult, error) {
	isQuery := proto.ClassifyCommand(text)
	paramsDoc, err := encodeParams(proto.ParamsFieldName(isQuery), params)
	if err != nil {
		return CommandResult{}, err
	}
	res, err := c.sess.Command(ctx, text, fetchPlan, paramsDoc)
	if err != nil {
		return CommandResult{}, err
	}
	return CommandResult{Primary: res.Primary, Linked: fetchplan.Linked(res.Linked)}, nil
}

// Script runs a multi-statement server-side script. The wire envelope
// is identical to Command; only the language tag in text differs (e.g.
// a "sql" or "javascript" script body), which this client passes
// through unmodified since it does not parse scripting languages.
func (c *Client) Script(ctx context.Context, languageTag, text string, params []interface{}) (CommandResult, error) {
	paramsDoc, err := encodeParams(proto.ParamsFieldName(false), params)
	if err != nil {
		return CommandResult{}, err
	}
	res, err := c.sess.Command(ctx, languageTag+";"+text, "", paramsDoc)
	if err != nil {
		return CommandResult{}, err
	}
	return CommandResult{Primary: res.Primary, Linked: fetchplan.Linked(res.Linked)}, nil
}

// encodeParams builds the embedded parameters document a command
// payload carries: a single field (named "params" for queries,
// "parameters" for general commands) holding a map of the caller's
// positional arguments converted to string keys.
func encodeParams(fieldName string, params []interface{}) ([]byte, error) {
	if len(params) == 0 {
		return nil, nil
	}
	m := make(record.EmbeddedMap, len(params))
	for k, v := range proto.PositionalParams(params) {
		val, err := toValue(v)
		if err != nil {
			return nil, err
		}
		m[k] = val
	}
	doc := record.NewDocument("")
	doc.Set(fieldName, m)
	return record.EncodeDocument(doc)
}

func toValue(v interface{}) (record.Value, error) {
	switch x := v.(type) {
	case nil:
		return record.Null{}, nil
	case record.Value:
		return x, nil
	case string:
		return record.String(x), nil
	case bool:
		return record.Boolean(x), nil
	case int:
		return record.Int64(x), nil
	case int32:
		return record.Int32(x), nil
	case int64:
		return record.Int64(x), nil
	case float64:
		return record.Float64V(x), nil
	case record.RID:
		return record.Link(x), nil
	default:
		return nil, &session.Error{Kind: session.ProtocolError, Op: "command", Message: "unsupported parameter type"}
	}
}

// FetchSchema forces an immediate refresh of the client's global
// property table, independent of any decode miss.
func (c *Client) FetchSchema(ctx context.Context) error {
	return c.sess.FetchSchema(ctx)
}
