package drivers

import (
	"context"
)

// State is the lifecycle record of a single test environment.
//
// A zero State means nothing has been provisioned. Drivers never hold on to
// a State between calls; every operation takes the current record and returns
// the next one, which the caller is responsible for persisting.
type State struct {
	// ServerID is set once a provider instance exists.
	ServerID string `json:"server_id,omitempty"`
	// Hostname is set once the instance address has been resolved.
	Hostname string `json:"hostname,omitempty"`
	// SpotRequestID is set when the instance was obtained through a spot
	// request, so the request can be cancelled alongside the instance.
	SpotRequestID string `json:"spot_request_id,omitempty"`
}

type Provisioner interface {
	// Create provisions the environment described by the driver's
	// configuration. It is a no-op when 'state' already names a server.
	Create(ctx context.Context, state State) (State, error)
	// Destroy tears down the environment tracked by 'state'. It is a no-op
	// when 'state' names no server.
	Destroy(ctx context.Context, state State) (State, error)
}
