package coordinator

import (
	"context"

	conf "github.com/peerdesk/peerdesk/pkg/config/coordinator"
	"github.com/peerdesk/peerdesk/pkg/logger"
	"github.com/peerdesk/peerdesk/pkg/monitoring"
	"github.com/peerdesk/peerdesk/pkg/network/httpx"
	"github.com/peerdesk/peerdesk/pkg/service"
)

// Coordinator is the session/signaling service.
type Coordinator struct {
	conf     conf.Config
	log      *logger.Logger
	services service.Group
}

func New(c conf.Config, log *logger.Logger) (*Coordinator, error) {
	coord := &Coordinator{conf: c, log: log}
	hub := NewHub(c.Coordinator, log)

	srv, err := newServer(c, hub, log)
	if err != nil {
		return nil, err
	}
	coord.services.Add(srv)
	if c.Coordinator.Monitoring.IsEnabled() {
		coord.services.Add(monitoring.New(c.Coordinator.Monitoring, "cord", log))
	}
	return coord, nil
}

func newServer(c conf.Config, hub *Hub, log *logger.Logger) (*httpx.Server, error) {
	serv := c.Coordinator.Server
	return httpx.NewServer(
		serv.GetAddr(),
		func(s *httpx.Server) httpx.Handler {
			h := s.Mux()
			h.HandleFunc("/ws", hub.handleUserConnection)
			return h
		},
		httpx.WithLogger(log),
		httpx.WithPortRoll(true),
		httpx.WithHttps(serv.Https, serv.Tls.HttpsCert, serv.Tls.HttpsKey, serv.Tls.Domain, serv.Address),
	)
}

func (c *Coordinator) Start() { c.services.Start() }

func (c *Coordinator) Shutdown(ctx context.Context) error { return c.services.Shutdown(ctx) }
