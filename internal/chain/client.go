package chain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"

	"lendingScope/internal/model"
)

// MaxPageSize is the largest page the fullnode serves for events and dynamic fields.
const MaxPageSize = 50

type objectOptions struct {
	ShowType    bool `json:"showType"`
	ShowContent bool `json:"showContent"`
}

type eventFilter struct {
	MoveEventType string `json:"MoveEventType"`
}

// Client wraps a JSON-RPC connection to a Sui fullnode. Every call passes
// through the Governor.
type Client struct {
	rpcClient *rpc.Client
	governor  *Governor
}

// NewClient dials the fullnode at rpcURL.
func NewClient(ctx context.Context, rpcURL string, governor *Governor) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}

	return &Client{
		rpcClient: rpcClient,
		governor:  governor,
	}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

func (c *Client) call(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	if err := c.governor.Guard(ctx); err != nil {
		return err
	}
	if err := c.rpcClient.CallContext(ctx, result, method, args...); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

// QueryEvents returns up to limit events of eventType strictly after cursor,
// in ascending order. A nil cursor starts from the beginning of the stream.
func (c *Client) QueryEvents(ctx context.Context, eventType string, cursor *model.EventID, limit int) (EventPage, error) {
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}
	var page EventPage
	err := c.call(ctx, &page, "suix_queryEvents", eventFilter{MoveEventType: eventType}, cursor, limit, false)
	return page, err
}

// GetObject returns the current state of an object with its parsed content.
func (c *Client) GetObject(ctx context.Context, objectID string) (ObjectData, error) {
	var resp ObjectResponse
	if err := c.call(ctx, &resp, "sui_getObject", objectID, objectOptions{ShowType: true, ShowContent: true}); err != nil {
		return ObjectData{}, err
	}
	if resp.Data == nil {
		return ObjectData{}, fmt.Errorf("object %s: %s", objectID, string(resp.Error))
	}
	return *resp.Data, nil
}

// MultiGetObjects fetches several objects in a single call.
func (c *Client) MultiGetObjects(ctx context.Context, objectIDs []string) ([]ObjectData, error) {
	if len(objectIDs) == 0 {
		return nil, nil
	}
	var resp []ObjectResponse
	if err := c.call(ctx, &resp, "sui_multiGetObjects", objectIDs, objectOptions{ShowType: true, ShowContent: true}); err != nil {
		return nil, err
	}

	objects := make([]ObjectData, 0, len(resp))
	for i, item := range resp {
		if item.Data == nil {
			return nil, fmt.Errorf("object %s: %s", objectIDs[i], string(item.Error))
		}
		objects = append(objects, *item.Data)
	}
	return objects, nil
}

// GetDynamicFields returns one page of the dynamic fields owned by parentID.
func (c *Client) GetDynamicFields(ctx context.Context, parentID string, cursor *string, limit int) (DynamicFieldPage, error) {
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}
	var page DynamicFieldPage
	err := c.call(ctx, &page, "suix_getDynamicFields", parentID, cursor, limit)
	return page, err
}
