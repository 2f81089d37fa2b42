package coordinator

import (
	"net/http"

	"github.com/peerdesk/peerdesk/pkg/api"
	"github.com/peerdesk/peerdesk/pkg/com"
	conf "github.com/peerdesk/peerdesk/pkg/config/coordinator"
	"github.com/peerdesk/peerdesk/pkg/logger"
	"github.com/peerdesk/peerdesk/pkg/network"
)

// Hub owns every live connection and glues the registry, the router,
// and the broadcaster together.
type Hub struct {
	conf        conf.Coordinator
	connector   *com.Connector
	registry    *Registry
	router      *Router
	broadcaster *Broadcaster
	users       com.NetMap[network.Uid, *User]
	log         *logger.Logger
}

func NewHub(c conf.Coordinator, log *logger.Logger) *Hub {
	registry := NewRegistry()
	return &Hub{
		conf:        c,
		connector:   com.NewConnector(com.WithOrigin(c.Origin), com.WithTag("u")),
		registry:    registry,
		router:      NewRouter(registry, c.Relay.AllowUndirected),
		broadcaster: NewBroadcaster(registry),
		users:       com.NewNetMap[network.Uid, *User](),
		log:         log,
	}
}

// handleUserConnection handles all connections from hosts and guests.
func (h *Hub) handleUserConnection(w http.ResponseWriter, r *http.Request) {
	sock, err := h.connector.NewServer(w, r, h.log)
	if err != nil {
		h.log.Error().Err(err).Msg("couldn't init user connection")
		return
	}
	usr := NewUser(*sock)
	h.users.Add(usr)
	metrics.connections.Set(float64(h.users.Len()))
	defer h.disconnect(usr)

	h.HandleRequests(usr)
	<-usr.Listen()
}

// disconnect runs the transport-level cleanup: hosted sessions are
// torn down, other memberships erased, peers told once.
func (h *Hub) disconnect(usr *User) {
	h.users.Remove(usr)
	metrics.connections.Set(float64(h.users.Len()))
	ended, left := h.registry.RemoveConnection(usr.Id())
	for _, t := range ended {
		h.finishSession(t)
	}
	for _, d := range left {
		for _, p := range d.Peers {
			p.Notify(api.UserLeft, api.UserChange{SessionId: d.Session, UserId: d.User})
		}
	}
	usr.Disconnect()
	usr.Log().Debug().Msg("Disconnect from coordinator")
}

// finishSession delivers exactly one terminal notification to every
// remaining guest of a removed session.
func (h *Hub) finishSession(t Teardown) {
	for _, p := range t.Peers {
		p.Notify(t.Reason, api.SessionIdRequest{SessionId: t.Session})
	}
	metrics.sessionsEnded.WithLabelValues(t.Reason.String()).Inc()
	metrics.sessionsActive.Set(float64(h.registry.Len()))
}
