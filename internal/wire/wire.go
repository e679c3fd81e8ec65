// Package wire holds the JSON conventions shared by the graph service facades.
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// EncodeJSON serialises payload without HTML escaping and without the trailing
// newline added by json.Encoder.
func EncodeJSON(payload any) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Decode unmarshals a response body into out. An empty body is rejected since
// every successful response with a payload is expected to carry JSON.
func Decode(body []byte, out any) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty response body")
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// DecodeObject is Decode for endpoints that return a single entity. A JSON
// null body is rejected rather than decoded into a zero value.
func DecodeObject(body []byte, out any) error {
	if bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		return fmt.Errorf("null response body")
	}
	return Decode(body, out)
}

// DecodeStringList accepts either a bare JSON array of strings or an object
// holding such an array under field. Any other well-formed document yields an
// empty, non-nil slice. Malformed JSON is still an error.
func DecodeStringList(body []byte, field string) ([]string, error) {
	var raw json.RawMessage
	if err := Decode(body, &raw); err != nil {
		return nil, err
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		if list == nil {
			list = []string{}
		}
		return list, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err == nil {
		if nested, ok := envelope[field]; ok {
			if err := json.Unmarshal(nested, &list); err == nil && list != nil {
				return list, nil
			}
		}
	}
	return []string{}, nil
}

// ErrorDetail extracts a human readable reason from an error response body.
// JSON bodies are searched for "detail", "message" and "error" fields; other
// bodies are returned as trimmed text. Text that is not taken from a string
// field is capped at maxDetail bytes.
func ErrorDetail(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}

	var payload map[string]any
	if err := json.Unmarshal(trimmed, &payload); err == nil {
		for _, key := range []string{"detail", "message", "error"} {
			switch v := payload[key].(type) {
			case string:
				if strings.TrimSpace(v) != "" {
					return v
				}
			case nil:
			default:
				if encoded, err := json.Marshal(v); err == nil {
					return truncate(string(encoded))
				}
			}
		}
	}
	return truncate(string(trimmed))
}

const maxDetail = 512

func truncate(text string) string {
	if len(text) > maxDetail {
		return text[:maxDetail] + "..."
	}
	return text
}
