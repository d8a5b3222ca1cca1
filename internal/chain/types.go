package chain

import (
	"encoding/json"

	"lendingScope/internal/model"
)

// Event is a Move event as returned by suix_queryEvents.
type Event struct {
	ID                model.EventID   `json:"id"`
	PackageID         string          `json:"packageId"`
	TransactionModule string          `json:"transactionModule"`
	Sender            string          `json:"sender"`
	Type              string          `json:"type"`
	ParsedJSON        json.RawMessage `json:"parsedJson"`
	TimestampMs       string          `json:"timestampMs"`
}

// EventPage is one page of suix_queryEvents results.
type EventPage struct {
	Data        []Event        `json:"data"`
	NextCursor  *model.EventID `json:"nextCursor"`
	HasNextPage bool           `json:"hasNextPage"`
}

// ObjectResponse wraps sui_getObject results.
type ObjectResponse struct {
	Data  *ObjectData     `json:"data"`
	Error json.RawMessage `json:"error,omitempty"`
}

// ObjectData is the on-chain state of one object.
type ObjectData struct {
	ObjectID string         `json:"objectId"`
	Version  string         `json:"version"`
	Type     string         `json:"type"`
	Content  *ObjectContent `json:"content"`
}

// ObjectContent holds the parsed Move fields of an object.
type ObjectContent struct {
	DataType string          `json:"dataType"`
	Type     string          `json:"type"`
	Fields   json.RawMessage `json:"fields"`
}

// DynamicFieldName identifies a dynamic field under a parent object.
type DynamicFieldName struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// DynamicFieldInfo describes one dynamic field entry.
type DynamicFieldInfo struct {
	Name       DynamicFieldName `json:"name"`
	ObjectID   string           `json:"objectId"`
	ObjectType string           `json:"objectType"`
}

// DynamicFieldPage is one page of suix_getDynamicFields results.
type DynamicFieldPage struct {
	Data        []DynamicFieldInfo `json:"data"`
	NextCursor  *string            `json:"nextCursor"`
	HasNextPage bool               `json:"hasNextPage"`
}
