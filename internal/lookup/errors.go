// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package lookup

import (
	"errors"
	"fmt"
)

// Kind classifies a lookup failure.
type Kind string

// Failure kinds. A timeout is also a transport failure.
const (
	KindTransport   Kind = "transport"
	KindTimeout     Kind = "timeout"
	KindRateLimited Kind = "rate_limited"
)

// Sentinels matched by *Error under errors.Is.
var (
	ErrTransport   = errors.New("lookup transport error")
	ErrTimeout     = errors.New("lookup timed out")
	ErrRateLimited = errors.New("lookup rate limited")
)

// Error is returned by Client.ResolveAuthor when the service could not be
// queried. A name with no candidates is not an Error.
type Error struct {
	Kind Kind
	Name string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s looking up %q: %v", e.Kind, e.Name, e.Err)
	}
	return fmt.Sprintf("%s looking up %q", e.Kind, e.Name)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinels. A timeout is also a transport error.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == KindTransport || e.Kind == KindTimeout
	case ErrTimeout:
		return e.Kind == KindTimeout
	case ErrRateLimited:
		return e.Kind == KindRateLimited
	}
	return false
}

// ErrorKind returns the kind as a string for logging and metrics.
func (e *Error) ErrorKind() string { return string(e.Kind) }
