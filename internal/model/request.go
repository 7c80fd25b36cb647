package model

import (
	"math/big"
	"time"
)

// FactCheckRequest is one on-chain fact-check request, as decoded from the
// FactCheckRequested event. The ContentURI is resolved against the blob-store
// gateway to retrieve the article body.
type FactCheckRequest struct {
	RequestID  *big.Int `json:"request_id"`
	Requester  string   `json:"requester"`   // Hex address of the account that staked the request
	ContentURI string   `json:"content_uri"` // Blob-store identifier, relative to the gateway
}

// RequestStatus tracks a request through the durable store
type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"   // Received, not yet fulfilled
	StatusFulfilled RequestStatus = "fulfilled" // Fulfillment transaction confirmed on-chain
	StatusFailed    RequestStatus = "failed"    // Retry budget exhausted, dead-lettered
)

// RequestRecord is the persisted view of a request, including retry bookkeeping.
type RequestRecord struct {
	RequestID  string        `json:"request_id"`
	Requester  string        `json:"requester"`
	ContentURI string        `json:"content_uri"`
	Status     RequestStatus `json:"status"`
	Attempts   int           `json:"attempts"`
	LastError  string        `json:"last_error,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}
