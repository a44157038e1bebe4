package core

import (
	"net/url"
	"strings"
	"time"

	"github.com/spsock/sp/internal/reconnect"
	"github.com/spsock/sp/transport"
)

// EndpointKind distinguishes a connect-side from a bind-side endpoint.
type EndpointKind int

const (
	EndpointDial EndpointKind = iota
	EndpointListen
)

// Endpoint is a socket's record of one URL it was told to Dial or Listen
// on. Its ID is stable across reconnects of the same logical endpoint
// (spec.md invariant 6); the pipe(s) it spawns come and go underneath it.
type Endpoint struct {
	ID      uint32
	Kind    EndpointKind
	Scheme  string
	Address string

	dialer   transport.Dialer
	listener transport.Listener

	closed     bool
	backoff    *reconnect.Schedule
	reconnTime *timerEntry // outstanding reconnect timer, if any
	pipeID     uint32      // live pipe on this endpoint, 0 if none (dial-side only binds one at a time)
}

func parseURL(raw string) (scheme, address string, err error) {
	i := strings.Index(raw, "://")
	if i < 0 {
		return "", "", &url.Error{Op: "parse", URL: raw, Err: ErrInvalidArgument}
	}
	return raw[:i], raw[i+3:], nil
}
