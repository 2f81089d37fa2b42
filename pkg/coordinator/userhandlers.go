package coordinator

import (
	"errors"

	"github.com/peerdesk/peerdesk/pkg/api"
	"github.com/peerdesk/peerdesk/pkg/network"
)

// HandleRequests adds all user packet routes.
func (h *Hub) HandleRequests(usr *User) {
	usr.OnPacket(func(in api.In) error {
		switch in.T {
		case api.CreateSession:
			h.handleCreateSession(usr, in)
		case api.JoinSession:
			h.handleJoinSession(usr, in)
		case api.EndSession:
			h.handleEndSession(usr, in)
		case api.Offer, api.Answer, api.IceCandidate, api.MouseEvent, api.KeyboardEvent:
			h.handleSignal(usr, in)
		case api.EnableRemoteControl:
			h.handleControl(usr, in, func(id network.Uid) error {
				return h.broadcaster.SetRemoteControl(usr, id, true)
			})
		case api.DisableRemoteControl:
			h.handleControl(usr, in, func(id network.Uid) error {
				return h.broadcaster.SetRemoteControl(usr, id, false)
			})
		case api.RequestScreenShare:
			h.handleControl(usr, in, func(id network.Uid) error {
				return h.broadcaster.RequestScreenShare(usr, id)
			})
		case api.ApproveScreenShare:
			h.handleScreenAnswer(usr, in, true)
		case api.DenyScreenShare:
			h.handleScreenAnswer(usr, in, false)
		case api.ScreenShareStarted:
			h.handleControl(usr, in, func(id network.Uid) error {
				return h.broadcaster.ScreenShareState(usr, id, true)
			})
		case api.ScreenShareStopped:
			h.handleControl(usr, in, func(id network.Uid) error {
				return h.broadcaster.ScreenShareState(usr, id, false)
			})
		default:
			usr.Log().Warn().Msgf("Unknown packet: %v", in.T)
			usr.NotifyError(api.ErrCodeMalformed, "unknown packet type")
		}
		return nil
	})
}

func (h *Hub) handleCreateSession(usr *User, in api.In) {
	s := h.registry.CreateSession(usr)
	metrics.sessionsCreated.Inc()
	metrics.sessionsActive.Set(float64(h.registry.Len()))
	usr.Log().Info().Msgf("Session %v created", s.Id().Short())
	usr.Route(in, api.SessionCreated, api.SessionCreatedResponse{SessionId: s.Id()})
}

func (h *Hub) handleJoinSession(usr *User, in api.In) {
	rq := api.Unwrap[api.SessionIdRequest](in.Payload)
	if rq == nil || rq.SessionId == network.EmptyUid {
		usr.RouteError(in, api.ErrCodeMalformed, "missing session id")
		return
	}
	host, guests, peers, err := h.registry.AddGuest(rq.SessionId, usr)
	if err != nil {
		usr.RouteError(in, api.ErrCodeSessionNotFound, "session not found")
		return
	}
	metrics.guestsJoined.Inc()
	usr.Route(in, api.SessionJoined, api.SessionJoinedResponse{
		SessionId: rq.SessionId,
		HostId:    host,
		GuestIds:  guests,
	})
	for _, p := range peers {
		p.Notify(api.UserJoined, api.UserChange{SessionId: rq.SessionId, UserId: usr.Id()})
	}
}

func (h *Hub) handleEndSession(usr *User, in api.In) {
	rq := api.Unwrap[api.SessionIdRequest](in.Payload)
	if rq == nil || rq.SessionId == network.EmptyUid {
		usr.RouteError(in, api.ErrCodeMalformed, "missing session id")
		return
	}
	t, err := h.registry.EndSession(rq.SessionId, usr.Id())
	if err != nil {
		h.routeControlError(usr, in, err)
		return
	}
	usr.Log().Info().Msgf("Session %v ended", rq.SessionId.Short())
	h.finishSession(t)
}

func (h *Hub) handleSignal(usr *User, in api.In) {
	if err := h.router.Relay(usr, in); err != nil {
		metrics.packetsDropped.Inc()
		if errors.Is(err, api.ErrMalformed) {
			usr.RouteError(in, api.ErrCodeMalformed, "missing session id")
		}
		return
	}
	metrics.packetsRelayed.WithLabelValues(in.T.String()).Inc()
}

func (h *Hub) handleControl(usr *User, in api.In, op func(id network.Uid) error) {
	rq := api.Unwrap[api.SessionIdRequest](in.Payload)
	if rq == nil || rq.SessionId == network.EmptyUid {
		usr.RouteError(in, api.ErrCodeMalformed, "missing session id")
		return
	}
	if err := op(rq.SessionId); err != nil {
		h.routeControlError(usr, in, err)
	}
}

func (h *Hub) handleScreenAnswer(usr *User, in api.In, approved bool) {
	rq := api.Unwrap[api.ScreenShareRequest](in.Payload)
	if rq == nil || rq.SessionId == network.EmptyUid || rq.RequesterId == network.EmptyUid {
		usr.RouteError(in, api.ErrCodeMalformed, "missing session or requester id")
		return
	}
	if err := h.broadcaster.AnswerScreenShare(usr, rq.SessionId, rq.RequesterId, approved); err != nil {
		h.routeControlError(usr, in, err)
	}
}

func (h *Hub) routeControlError(usr *User, in api.In, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		usr.RouteError(in, api.ErrCodeSessionNotFound, "session not found")
	case errors.Is(err, ErrNotAuthorized):
		usr.RouteError(in, api.ErrCodeNotAuthorized, "host-only operation")
	default:
		usr.RouteError(in, api.ErrCodeMalformed, err.Error())
	}
}
