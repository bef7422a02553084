package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		c    Continuation
	}{
		{
			name: "full continuation",
			c: Continuation{
				RedirectURI: "https://app.example.com/workspace",
				ClientState: "caller-csrf-token",
			},
		},
		{
			name: "redirect only",
			c:    Continuation{RedirectURI: "https://app.example.com/"},
		},
		{
			name: "state only",
			c:    Continuation{ClientState: "abc123"},
		},
		{
			name: "empty continuation",
			c:    Continuation{},
		},
		{
			name: "values needing escaping",
			c: Continuation{
				RedirectURI: "https://app.example.com/path?a=1&b=2#frag",
				ClientState: "state with spaces / slashes + plus",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decode(Encode(tt.c))
			assert.Equal(t, tt.c, got)
		})
	}
}

func TestDecode_Tolerant(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"empty string", ""},
		{"not base64", "%%%not-base64%%%"},
		{"base64 but not json", "bm90LWpzb24"},
		{"json but wrong shape", "WzEsMiwzXQ"}, // [1,2,3]
		{"truncated payload", Encode(Continuation{RedirectURI: "https://x"})[:5]},
		{"binary garbage", "\x00\x01\x02"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decode(tt.token)
			assert.True(t, got.IsZero(), "Decode(%q) = %+v, want zero continuation", tt.token, got)
		})
	}
}

func TestDecode_AcceptsPaddedEncoding(t *testing.T) {
	// A proxy or browser may re-pad the URL-safe encoding.
	c := Continuation{RedirectURI: "https://app.example.com/x", ClientState: "s"}
	token := Encode(c)
	padded := token
	for len(padded)%4 != 0 {
		padded += "="
	}

	assert.Equal(t, c, Decode(padded))
}
