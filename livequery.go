package orientwire

import (
	"context"
	"fmt"

	"github.com/MyMedsAndMe/orientwire/proto"
	"github.com/MyMedsAndMe/orientwire/session"
)

// LiveQuery is an active LIVE SELECT subscription: a token identifying
// it to the server and a channel of push batches.
type LiveQuery struct {
	client *Client
	Token  int32
	Events <-chan session.PushRecord
}

// LiveQuery issues a "live select" command and returns a subscription
// that receives every matching insert/update/delete as it happens,
// until Unsubscribe is called or the session fails. Query-language
// parsing beyond the idempotent/non-idempotent split is out of scope
// here - text is passed through to the server unparsed.
func (c *Client) LiveQuery(ctx context.Context, text string, params []interface{}) (*LiveQuery, error) {
	paramsDoc, err := encodeParams(proto.ParamsFieldName(true), params)
	if err != nil {
		return nil, err
	}
	token, err := c.sess.LiveQuery(ctx, text, paramsDoc)
	if err != nil {
		return nil, err
	}
	return &LiveQuery{client: c, Token: token, Events: c.sess.Subscribe(token)}, nil
}

// Unsubscribe ends a live-query subscription, both client-side
// (stopping push routing) and server-side.
func (lq *LiveQuery) Unsubscribe(ctx context.Context) error {
	lq.client.sess.Unsubscribe(lq.Token)
	_, err := lq.client.Command(ctx, fmt.Sprintf("live unsubscribe %d", lq.Token), "", nil)
	return err
}
