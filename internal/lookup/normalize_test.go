// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package lookup

import (
	"errors"
	"testing"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Ada Lovelace", "ada lovelace"},
		{"  Ada   Lovelace ", "ada lovelace"},
		{"José García", "jose garcia"},
		{"Jürgen Schmidhuber", "jurgen schmidhuber"},
		{"ÅSA BERGSTRÖM", "asa bergstrom"},
		{"", ""},
		{"\t\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeName(tt.in); got != tt.want {
				t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestErrorIs(t *testing.T) {
	tests := []struct {
		kind                          Kind
		transport, timeout, rateLimit bool
	}{
		{KindTransport, true, false, false},
		{KindTimeout, true, true, false},
		{KindRateLimited, false, false, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := error(&Error{Kind: tt.kind, Name: "x", Err: errors.New("cause")})
			if got := errors.Is(err, ErrTransport); got != tt.transport {
				t.Errorf("Is(ErrTransport) = %v", got)
			}
			if got := errors.Is(err, ErrTimeout); got != tt.timeout {
				t.Errorf("Is(ErrTimeout) = %v", got)
			}
			if got := errors.Is(err, ErrRateLimited); got != tt.rateLimit {
				t.Errorf("Is(ErrRateLimited) = %v", got)
			}
		})
	}
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache()
	if _, ok := c.Get("a"); ok {
		t.Fatal("empty cache returned a hit")
	}
	c.Put("a", Result{Candidates: []Candidate{{Name: "A"}}})
	r, ok := c.Get("a")
	if !ok || len(r.Candidates) != 1 {
		t.Fatalf("Get(a) = %v, %v", r, ok)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len after Clear = %d", c.Len())
	}
}
