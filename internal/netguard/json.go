package netguard

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ppiankov/depgate/internal/secerr"
)

// GetJSON fetches rawURL and decodes the body as a JSON object. A payload
// that is not a non-null object is a validation failure, distinct from the
// transport failures Request reports.
func (c *Client) GetJSON(ctx context.Context, rawURL string) (map[string]any, error) {
	resp, err := c.Request(ctx, rawURL, RequestOptions{})
	if err != nil {
		return nil, err
	}
	if resp.Status != 200 {
		return nil, &secerr.TransportError{Op: "get json", Err: fmt.Errorf("unexpected status %d", resp.Status)}
	}

	var payload map[string]any
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, &secerr.ValidationError{Field: "response_body", Rule: "not a JSON object"}
	}
	if payload == nil {
		return nil, &secerr.ValidationError{Field: "response_body", Rule: "null payload"}
	}
	return payload, nil
}
