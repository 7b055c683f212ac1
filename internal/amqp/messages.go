package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Reply error codes.
const (
	CodeSelectionError = "selection_error"
	CodeBadRequest     = "bad_request"
	CodeTimeout        = "timeout"
	CodeInternal       = "internal_error"
)

// QueryRequest asks a worker to run one selection. AllPayers selects every
// payer of the dataset and overrides Payers; otherwise Payers is the exact
// set, and an empty set is valid.
type QueryRequest struct {
	RequestID  string    `json:"request_id"`
	MinOrdinal int       `json:"min_ordinal"`
	MaxOrdinal int       `json:"max_ordinal"`
	Payers     []string  `json:"payers"`
	AllPayers  bool      `json:"all_payers,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewQueryRequest creates a request stamped with the current time.
func NewQueryRequest(minOrdinal, maxOrdinal int, payers []string) *QueryRequest {
	return &QueryRequest{
		MinOrdinal: minOrdinal,
		MaxOrdinal: maxOrdinal,
		Payers:     payers,
		Timestamp:  time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *QueryRequest) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// QueryRequestFromJSON decodes a request.
func QueryRequestFromJSON(data []byte) (*QueryRequest, error) {
	var msg QueryRequest
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode query request: %w", err)
	}
	return &msg, nil
}

// ReplyError describes a failed query. Min, Max and Months are set for
// selection errors.
type ReplyError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Min     int    `json:"min_ordinal,omitempty"`
	Max     int    `json:"max_ordinal,omitempty"`
	Months  int    `json:"months,omitempty"`
}

func (e *ReplyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// QueryReply answers a QueryRequest. Result holds the encoded views and is
// only set when Error is nil.
type QueryReply struct {
	RequestID  string          `json:"request_id"`
	RangeLabel string          `json:"range_label,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      *ReplyError     `json:"error,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// Err returns the reply error, if any, as an error value.
func (m *QueryReply) Err() error {
	if m.Error == nil {
		return nil
	}
	return m.Error
}

// ToJSON converts the message to JSON bytes
func (m *QueryReply) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// QueryReplyFromJSON decodes a reply.
func QueryReplyFromJSON(data []byte) (*QueryReply, error) {
	var msg QueryReply
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode query reply: %w", err)
	}
	return &msg, nil
}

// IsReplyError reports whether err is a worker-side query failure.
func IsReplyError(err error) bool {
	var re *ReplyError
	return errors.As(err, &re)
}
