package sandbox

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// ParseFailConfig parses a failure injection setting such as "rate=0.1,code=503".
// An empty string disables injection. The code defaults to 500.
func ParseFailConfig(raw string) (FailConfig, error) {
	if strings.TrimSpace(raw) == "" {
		return FailConfig{}, nil
	}
	cfg := FailConfig{Code: http.StatusInternalServerError}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return FailConfig{}, fmt.Errorf("invalid fail segment %q", part)
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "rate":
			rate, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return FailConfig{}, fmt.Errorf("parse rate: %w", err)
			}
			if rate < 0 || rate > 1 {
				return FailConfig{}, fmt.Errorf("rate %v out of range [0,1]", rate)
			}
			cfg.Rate = rate
		case "code":
			code, err := strconv.Atoi(value)
			if err != nil {
				return FailConfig{}, fmt.Errorf("parse code: %w", err)
			}
			if code < 100 || code > 599 {
				return FailConfig{}, fmt.Errorf("code %d is not an HTTP status", code)
			}
			cfg.Code = code
		default:
			return FailConfig{}, fmt.Errorf("unknown fail key %q", key)
		}
	}
	return cfg, nil
}
