package coordinator

import (
	"github.com/goccy/go-json"
	"github.com/peerdesk/peerdesk/pkg/api"
	"github.com/peerdesk/peerdesk/pkg/network"
)

// Router forwards negotiation and input packets to their in-session
// recipients. It never parses the relayed blob and never mutates
// registry state; delivery to a gone connection is a silent no-op.
type Router struct {
	registry *Registry

	// legacy fallback: packets without a target go to every other
	// session participant (never outside the session)
	allowUndirected bool
}

func NewRouter(registry *Registry, allowUndirected bool) *Router {
	return &Router{registry: registry, allowUndirected: allowUndirected}
}

// Relay pushes an inbound signal packet to its recipients.
// Returns api.ErrMalformed when the envelope misses the session id;
// unknown targets and sessions are dropped silently — signaling
// self-heals with renegotiation above this layer.
func (r *Router) Relay(from Participant, in api.In) error {
	sig := api.Unwrap[api.Signal](in.Payload)
	if sig == nil || sig.SessionId == network.EmptyUid {
		return api.ErrMalformed
	}
	if sig.TargetId == network.EmptyUid && !r.allowUndirected {
		return nil
	}
	to, err := r.registry.resolve(sig.SessionId, from.Id(), sig.TargetId)
	if err != nil {
		return nil
	}
	// the sender identity is stamped server-side, not trusted from the wire
	out := api.Signal{
		SessionId: sig.SessionId,
		TargetId:  sig.TargetId,
		FromId:    from.Id(),
		Blob:      json.RawMessage(sig.Blob),
	}
	for _, p := range to {
		p.Notify(in.T, out)
	}
	return nil
}
