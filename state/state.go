// Package state encodes the continuation carried through the GitHub
// redirect as the OAuth state parameter.
//
// The continuation only records where the caller wants to land after
// login and the caller's own opaque state; it is deliberately unsigned.
// Tampering can change where the browser is sent afterwards, never who
// the user is authenticated as.
package state

import (
	"encoding/base64"
	"encoding/json"
)

// Continuation describes how to resume the caller's flow once GitHub
// redirects back to the bridge.
type Continuation struct {
	// RedirectURI is the caller's desired post-login destination.
	RedirectURI string `json:"redirect_uri,omitempty"`

	// ClientState is the caller's opaque anti-forgery state, returned
	// to it verbatim on the final redirect.
	ClientState string `json:"state,omitempty"`
}

// IsZero reports whether the continuation carries no information.
func (c Continuation) IsZero() bool {
	return c.RedirectURI == "" && c.ClientState == ""
}

// Encode serializes the continuation to a URL-safe token.
func Encode(c Continuation) string {
	// Continuation marshals to a flat string map; this cannot fail.
	data, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(data)
}

// Decode parses a token produced by Encode. Decoding is best-effort:
// a malformed or missing token yields the zero continuation so a
// mangled state parameter can never block login.
func Decode(token string) Continuation {
	if token == "" {
		return Continuation{}
	}

	data, err := decodeBase64(token)
	if err != nil {
		return Continuation{}
	}

	var c Continuation
	if err := json.Unmarshal(data, &c); err != nil {
		return Continuation{}
	}
	return c
}

// decodeBase64 accepts both raw and padded URL-safe encodings. Some
// user agents re-pad query parameters in flight.
func decodeBase64(token string) ([]byte, error) {
	if data, err := base64.RawURLEncoding.DecodeString(token); err == nil {
		return data, nil
	}
	return base64.URLEncoding.DecodeString(token)
}
