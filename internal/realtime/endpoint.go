package realtime

import (
	"go.uber.org/zap"
)

// Conn is a live channel that can also be read from.
type Conn interface {
	Channel
	// Receive blocks until the next client frame arrives or the connection fails.
	Receive() error
}

// Endpoint gates inbound live channels through the registry and keeps them open.
type Endpoint struct {
	registry *Registry
	logger   *zap.Logger
}

// NewEndpoint constructs the endpoint.
func NewEndpoint(registry *Registry, logger *zap.Logger) *Endpoint {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Endpoint{registry: registry, logger: logger}
}

// Serve authenticates conn and blocks until the client goes away.
// Client frames are drained and ignored; they only keep the channel alive.
func (e *Endpoint) Serve(conn Conn, token string) {
	if !e.registry.Connect(conn, token) {
		return
	}
	defer e.registry.Disconnect(conn)

	for {
		if err := conn.Receive(); err != nil {
			e.logger.Debug("live channel read ended", zap.Error(err))
			return
		}
	}
}
