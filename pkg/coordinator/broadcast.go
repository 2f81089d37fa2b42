package coordinator

import (
	"github.com/peerdesk/peerdesk/pkg/api"
	"github.com/peerdesk/peerdesk/pkg/network"
)

// Broadcaster relays session-wide control toggles and screen-share
// administration. Unlike the Router, its failures are reported back to
// the caller: these are session-level commands, not best-effort signals.
type Broadcaster struct {
	registry *Registry
}

func NewBroadcaster(registry *Registry) *Broadcaster {
	return &Broadcaster{registry: registry}
}

// SetRemoteControl flips remote control for the session. Host-only.
func (b *Broadcaster) SetRemoteControl(sender Participant, id network.Uid, enabled bool) error {
	guests, err := b.registry.SetRemoteControl(id, sender.Id(), enabled)
	if err != nil {
		return err
	}
	t := api.RemoteControlOn
	if !enabled {
		t = api.RemoteControlOff
	}
	for _, g := range guests {
		g.Notify(t, api.SessionIdRequest{SessionId: id})
	}
	return nil
}

// RequestScreenShare tells the host that a guest wants the screen.
// Only the session's own host is notified.
func (b *Broadcaster) RequestScreenShare(sender Participant, id network.Uid) error {
	host, guests, err := b.registry.Snapshot(id)
	if err != nil {
		return err
	}
	if !isGuest(guests, sender.Id()) {
		return ErrNotAuthorized
	}
	host.Notify(api.ScreenShareRequested, api.ScreenShareRequest{SessionId: id, RequesterId: sender.Id()})
	return nil
}

// AnswerScreenShare approves or denies a pending request. Host-only;
// only the requester is notified. A requester that has already left
// the session is a silent no-op.
func (b *Broadcaster) AnswerScreenShare(sender Participant, id network.Uid, requester network.Uid, approved bool) error {
	host, guests, err := b.registry.Snapshot(id)
	if err != nil {
		return err
	}
	if host.Id() != sender.Id() {
		return ErrNotAuthorized
	}
	t := api.ScreenShareApproved
	if !approved {
		t = api.ScreenShareDenied
	}
	for _, g := range guests {
		if g.Id() == requester {
			g.Notify(t, api.SessionIdRequest{SessionId: id})
			break
		}
	}
	return nil
}

// ScreenShareState tells every other participant the host started or
// stopped sharing. Host-only.
func (b *Broadcaster) ScreenShareState(sender Participant, id network.Uid, started bool) error {
	host, guests, err := b.registry.Snapshot(id)
	if err != nil {
		return err
	}
	if host.Id() != sender.Id() {
		return ErrNotAuthorized
	}
	t := api.ScreenShareStarted
	if !started {
		t = api.ScreenShareStopped
	}
	for _, g := range guests {
		g.Notify(t, api.SessionIdRequest{SessionId: id})
	}
	return nil
}

func isGuest(guests []Participant, id network.Uid) bool {
	for _, g := range guests {
		if g.Id() == id {
			return true
		}
	}
	return false
}
