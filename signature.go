package havn

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// canonicalJSON serializes a payload in the exact byte form both sides
// sign: keys sorted, compact separators, no HTML escaping. encoding/json
// already emits map keys in sorted order, which makes two semantically
// equal maps hash identically regardless of insertion order.
func canonicalJSON(payload map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(payload); err != nil {
		return nil, fmt.Errorf("canonical json: %w", err)
	}

	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Sign computes the HMAC-SHA256 signature of the canonical JSON form of
// payload, keyed by secret, as a lowercase hex digest. A nil payload signs
// as the empty object, matching the remote verifier's treatment of GET
// requests with no body. The only possible error is a non-serializable
// payload value, which is a caller bug.
func Sign(payload map[string]any, secret string) (string, error) {
	if payload == nil {
		payload = map[string]any{}
	}

	canonical, err := canonicalJSON(payload)
	if err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(canonical)

	return hex.EncodeToString(mac.Sum(nil)), nil
}

// BuildAuthHeaders produces the authenticated header set for a request:
// content type, accept, API key, and the payload signature.
func BuildAuthHeaders(payload map[string]any, apiKey, webhookSecret string) (map[string]string, error) {
	signature, err := Sign(payload, webhookSecret)
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
		"X-API-Key":    apiKey,
		"X-Signature":  signature,
	}, nil
}
