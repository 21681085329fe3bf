package rc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Batch queues requests for a single remote/batch round trip. Queued
// requests never carry the transaction flag; the server owns the
// transaction for the whole batch.
type Batch struct {
	client   *Client
	requests []batchRequest
}

type batchRequest struct {
	RequestID int    `json:"RequestId"`
	URL       string `json:"URL"`
	Verb      string `json:"Verb"`
	Body      any    `json:"Body"`
}

// BatchResult is one response out of a batch execution, in queue order.
type BatchResult struct {
	RequestID    int             `json:"RequestId"`
	ResponseCode int             `json:"ResponseCode"`
	ResponseBody json.RawMessage `json:"ResponseBody"`
}

// OK reports whether the individual request succeeded.
func (r BatchResult) OK() bool {
	return r.ResponseCode >= 200 && r.ResponseCode < 300
}

// Batch starts an empty request queue bound to this client.
func (c *Client) Batch() *Batch {
	return &Batch{client: c}
}

// Add queues one request. The route is relative, as in "remote/object/call".
func (b *Batch) Add(verb, route string, body any) {
	b.requests = append(b.requests, batchRequest{
		RequestID: len(b.requests) + 1,
		URL:       "/" + route,
		Verb:      verb,
		Body:      body,
	})
}

// CallFunction queues a function call in the batch.
func (b *Batch) CallFunction(objectPath, function string, params map[string]any) {
	body := map[string]any{
		"objectPath":   objectPath,
		"access":       "WRITE_ACCESS",
		"functionName": function,
	}
	if len(params) > 0 {
		body["parameters"] = params
	}
	b.Add(http.MethodPut, "remote/object/call", body)
}

// SetProperty queues a property write in the batch.
func (b *Batch) SetProperty(objectPath, property string, value any) {
	b.Add(http.MethodPut, "remote/object/property", map[string]any{
		"objectPath":    objectPath,
		"access":        "WRITE_ACCESS",
		"propertyName":  property,
		"propertyValue": map[string]any{property: value},
	})
}

// Len reports the number of queued requests.
func (b *Batch) Len() int {
	return len(b.requests)
}

// Execute runs the queue in one request and returns per-request results in
// queue order. The queue is kept so a failed batch can be retried.
func (b *Batch) Execute(ctx context.Context) ([]BatchResult, error) {
	res, err := b.client.do(ctx, http.MethodPut, "remote/batch", struct {
		Requests []batchRequest `json:"Requests"`
	}{Requests: b.requests})
	if err != nil {
		return nil, err
	}
	m, ok := res.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: malformed batch response", ErrInvalidRequest)
	}
	raw, err := json.Marshal(m["Responses"])
	if err != nil {
		return nil, fmt.Errorf("rc: decode batch responses: %w", err)
	}
	var results []BatchResult
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, fmt.Errorf("rc: decode batch responses: %w", err)
	}
	return results, nil
}
