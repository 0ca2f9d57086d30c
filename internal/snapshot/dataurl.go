package snapshot

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// DefaultMIME is assumed when a payload header names no media type.
const DefaultMIME = "application/octet-stream"

// Encode renders bytes as a base64 data URL.
func Encode(data []byte, mime string) string {
	if mime == "" {
		mime = DefaultMIME
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Decode parses a data URL produced by Encode. Non-base64 bodies are
// percent-decoded.
func Decode(dataURL string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return nil, "", fmt.Errorf("missing data: scheme")
	}
	header, body, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("missing payload separator")
	}

	params := strings.Split(header, ";")
	mime := strings.TrimSpace(params[0])
	if mime == "" {
		mime = DefaultMIME
	}
	isBase64 := false
	for _, p := range params[1:] {
		if strings.EqualFold(strings.TrimSpace(p), "base64") {
			isBase64 = true
		}
	}

	if !isBase64 {
		s, err := url.PathUnescape(body)
		if err != nil {
			return nil, "", fmt.Errorf("unescape payload: %w", err)
		}
		return []byte(s), mime, nil
	}
	data, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return nil, "", fmt.Errorf("decode base64: %w", err)
	}
	return data, mime, nil
}
