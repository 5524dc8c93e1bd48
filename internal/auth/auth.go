// Package auth extracts identity hints from bearer credentials.
//
// Credentials are treated as opaque by everything except SubjectFromToken,
// which reads the unverified "sub" claim of a three-part dot-delimited token.
// The signature is never checked: the result is only a hint that must be
// confirmed by the backend before it is trusted.
package auth

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Errors
var (
	ErrMalformedToken = errors.New("token is not three dot-delimited parts")
	ErrNoSubject      = errors.New("token has no usable numeric subject")
)

// BearerHeader formats the Authorization header value for a credential.
func BearerHeader(credential string) string {
	return "Bearer " + credential
}

// SubjectFromToken decodes the numeric user id from the token's "sub" claim.
func SubjectFromToken(token string) (uint64, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return 0, ErrMalformedToken
	}

	payload, err := decodeSegment(parts[1])
	if err != nil {
		return 0, fmt.Errorf("decode payload: %w", err)
	}

	var claims map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(payload))
	if err := dec.Decode(&claims); err != nil {
		return 0, fmt.Errorf("parse claims: %w", err)
	}

	raw, ok := claims["sub"]
	if !ok {
		return 0, ErrNoSubject
	}

	id, err := parseSubject(raw)
	if err != nil || id == 0 {
		return 0, ErrNoSubject
	}

	return id, nil
}

// decodeSegment decodes a base64 segment, accepting URL-safe characters and
// restoring the standard padding that JWT encoders strip.
func decodeSegment(seg string) ([]byte, error) {
	seg = strings.NewReplacer("-", "+", "_", "/").Replace(seg)
	if rem := len(seg) % 4; rem != 0 {
		seg += strings.Repeat("=", 4-rem)
	}
	return base64.StdEncoding.DecodeString(seg)
}

// parseSubject accepts a JSON number or a string of digits.
func parseSubject(raw json.RawMessage) (uint64, error) {
	text := strings.TrimSpace(string(raw))
	if unquoted, err := strconv.Unquote(text); err == nil {
		text = unquoted
	}
	return strconv.ParseUint(text, 10, 64)
}
