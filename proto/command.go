package proto

import (
	"strconv"
	"strings"

	"github.com/MyMedsAndMe/orientwire/internal/wire"
)

// idempotentVerbs classifies the first keyword of a command string.
// Beyond this one split this client does not parse query language at
// all - everything past classification is the server's job.
var idempotentVerbs = map[string]bool{
	"select":   true,
	"traverse": true,
}

// ClassifyCommand reports whether text is an idempotent query
// (select/traverse) or a general, non-idempotent command. Case
// insensitive; leading whitespace is ignored.
func ClassifyCommand(text string) (isQuery bool) {
	trimmed := strings.TrimSpace(text)
	verb, _, _ := strings.Cut(trimmed, " ")
	return idempotentVerbs[strings.ToLower(verb)]
}

// ParamsFieldName is the field a command payload's embedded parameters
// document is expected to carry its map under - "params" for queries,
// "parameters" for general commands.
func ParamsFieldName(isQuery bool) string {
	if isQuery {
		return "params"
	}
	return "parameters"
}

// PositionalParams converts a positional parameter list into the
// string-keyed map form OrientDB's command payload requires ("0", "1",
// ...), since the wire protocol has no notion of positional binding.
func PositionalParams(params []interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(params))
	for i, p := range params {
		out[strconv.Itoa(i)] = p
	}
	return out
}

// CommandPayload builds the body that follows the request-mode byte in
// a COMMAND request. paramsDoc is the pre-serialized embedded document
// (a schemaless-binary encoding built with record.EncodeDocument,
// wrapping the caller's parameters under the field ParamsFieldName
// names) - this package doesn't import record to avoid coupling wire
// shaping to the codec; callers build the document themselves.
//
// For a query: query-text, a -1 page-size sentinel (unlimited), the
// fetch-plan string, then the parameters document. For a general
// command: query-text, a has-params flag and, if set, the parameters
// document, then a trailing false (no synchronous simple-document
// override).
func CommandPayload(isQuery bool, text, fetchPlan string, paramsDoc []byte) []byte {
	var buf []byte
	buf = wire.PutString(buf, text)
	if isQuery {
		buf = wire.PutInt(buf, -1)
		buf = wire.PutString(buf, fetchPlan)
		buf = wire.PutBytes(buf, paramsDoc)
		return buf
	}
	hasParams := len(paramsDoc) > 0
	buf = wire.PutBool(buf, hasParams)
	if hasParams {
		buf = wire.PutBytes(buf, paramsDoc)
	}
	buf = wire.PutBool(buf, false)
	return buf
}

// LiveQueryPayload builds the payload for a LIVE SELECT subscription.
// Live queries reuse the sql_query envelope but the request carries
// CommandModeLive in place of the usual sync mode byte.
func LiveQueryPayload(text string, paramsDoc []byte) []byte {
	return CommandPayload(true, text, "", paramsDoc)
}
