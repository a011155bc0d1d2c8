package connection

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// ParseResponse reads and closes resp.Body. A non-2xx status becomes an
// *APIError carrying the body's message when there is one; otherwise
// the body is decoded into target (skipped when target is nil).
func ParseResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if !successful(resp.StatusCode) {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		msg, _ := extractMessage(body)
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if target == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// extractMessage returns the "message" field of a JSON object when it
// is a non-empty string. Anything else (invalid JSON, arrays, numbers,
// a missing or non-string field) yields false.
func extractMessage(body []byte) (string, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return "", false
	}
	return messageFrom(obj)
}

func messageFrom(obj map[string]json.RawMessage) (string, bool) {
	raw, ok := obj["message"]
	if !ok {
		return "", false
	}
	var msg string
	if err := json.Unmarshal(raw, &msg); err != nil || msg == "" {
		return "", false
	}
	return msg, true
}

func successful(status int) bool {
	return status >= 200 && status < 300
}
