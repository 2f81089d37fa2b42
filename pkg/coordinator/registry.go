package coordinator

import (
	"errors"
	"sync"
	"time"

	"github.com/peerdesk/peerdesk/pkg/api"
	"github.com/peerdesk/peerdesk/pkg/network"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNotAuthorized   = errors.New("not authorized")
)

// Participant is a live connection taking part in sessions.
type Participant interface {
	Id() network.Uid
	Notify(t api.PT, data any)
}

// Session groups one host with zero or more guests.
// All mutations go through the Registry lock.
type Session struct {
	id            network.Uid
	host          Participant
	guests        []Participant // join order
	createdAt     time.Time
	remoteControl bool
}

func (s *Session) Id() network.Uid      { return s.id }
func (s *Session) HostId() network.Uid  { return s.host.Id() }
func (s *Session) CreatedAt() time.Time { return s.createdAt }

func (s *Session) guestIds() []network.Uid {
	ids := make([]network.Uid, len(s.guests))
	for i, g := range s.guests {
		ids[i] = g.Id()
	}
	return ids
}

func (s *Session) member(id network.Uid) Participant {
	if s.host.Id() == id {
		return s.host
	}
	for _, g := range s.guests {
		if g.Id() == id {
			return g
		}
	}
	return nil
}

// others returns every participant except the one with the given id.
func (s *Session) others(id network.Uid) []Participant {
	out := make([]Participant, 0, len(s.guests)+1)
	if s.host.Id() != id {
		out = append(out, s.host)
	}
	for _, g := range s.guests {
		if g.Id() != id {
			out = append(out, g)
		}
	}
	return out
}

// Registry is the authoritative session store.
// A single lock keeps per-session mutations serialized; all operations
// are short and in-memory, so contention is not a concern at this scale.
type Registry struct {
	mu       sync.Mutex
	sessions map[network.Uid]*Session
	hosting  map[network.Uid]network.Uid // host connection id -> session id
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[network.Uid]*Session, 10),
		hosting:  make(map[network.Uid]network.Uid, 10),
	}
}

// CreateSession registers a new session hosted by the given connection.
// A connection hosts at most one session: repeated calls return the
// already existing session.
func (r *Registry) CreateSession(host Participant) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sid, ok := r.hosting[host.Id()]; ok {
		if s, ok := r.sessions[sid]; ok {
			return s
		}
	}
	s := &Session{id: network.NewUid(), host: host, createdAt: time.Now()}
	r.sessions[s.id] = s
	r.hosting[host.Id()] = s.id
	return s
}

// AddGuest appends the connection to the session guest list.
// Joining twice is a no-op, the first join order is kept.
// Returns the roster for the session-joined reply.
func (r *Registry) AddGuest(id network.Uid, guest Participant) (host network.Uid, guests []network.Uid, peers []Participant, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return "", nil, nil, ErrSessionNotFound
	}
	if s.member(guest.Id()) == nil {
		s.guests = append(s.guests, guest)
	}
	return s.HostId(), s.guestIds(), s.others(guest.Id()), nil
}

// Session finds an active session by its id.
func (r *Registry) Session(id network.Uid) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s, nil
	}
	return nil, ErrSessionNotFound
}

// HasSession says whether the session id is active.
func (r *Registry) HasSession(id network.Uid) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[id]
	return ok
}

// resolve returns the recipients for a relay decision, done under one
// lock so membership can't shift mid-route. Senders outside the session
// can't inject traffic into it, knowing the id is not enough.
func (r *Registry) resolve(id network.Uid, from network.Uid, target network.Uid) (to []Participant, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.member(from) == nil {
		return nil, ErrNotAuthorized
	}
	if target != network.EmptyUid {
		if m := s.member(target); m != nil && target != from {
			return []Participant{m}, nil
		}
		return nil, nil
	}
	return s.others(from), nil
}

// SetRemoteControl flips the session remote-control flag.
// Host-only; returns the guests to notify.
func (r *Registry) SetRemoteControl(id network.Uid, sender network.Uid, enabled bool) ([]Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.HostId() != sender {
		return nil, ErrNotAuthorized
	}
	s.remoteControl = enabled
	return append([]Participant(nil), s.guests...), nil
}

// RemoteControl reports the session remote-control flag.
func (r *Registry) RemoteControl(id network.Uid) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return false, ErrSessionNotFound
	}
	return s.remoteControl, nil
}

// Teardown describes a terminated session and the peers owed
// exactly one terminal notification.
type Teardown struct {
	Session network.Uid
	Reason  api.PT // SessionEnded or HostDisconnect
	Peers   []Participant
}

// Departure describes a guest removal and the peers to tell about it.
type Departure struct {
	Session network.Uid
	User    network.Uid
	Peers   []Participant
}

// EndSession removes the session on an explicit host request.
// Ended is terminal: the id stops resolving before any peer is notified.
func (r *Registry) EndSession(id network.Uid, sender network.Uid) (Teardown, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return Teardown{}, ErrSessionNotFound
	}
	if s.HostId() != sender {
		return Teardown{}, ErrNotAuthorized
	}
	delete(r.sessions, id)
	delete(r.hosting, s.HostId())
	return Teardown{Session: id, Reason: api.SessionEnded, Peers: append([]Participant(nil), s.guests...)}, nil
}

// RemoveConnection drops the connection from everything it takes part in:
// sessions it hosts are torn down, guest memberships are erased.
// Idempotent, an unknown id is a no-op.
func (r *Registry) RemoveConnection(id network.Uid) (ended []Teardown, left []Departure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sid, ok := r.hosting[id]; ok {
		if s, ok := r.sessions[sid]; ok {
			delete(r.sessions, sid)
			ended = append(ended, Teardown{
				Session: sid,
				Reason:  api.HostDisconnect,
				Peers:   append([]Participant(nil), s.guests...),
			})
		}
		delete(r.hosting, id)
	}
	for sid, s := range r.sessions {
		for i, g := range s.guests {
			if g.Id() == id {
				s.guests = append(s.guests[:i], s.guests[i+1:]...)
				left = append(left, Departure{Session: sid, User: id, Peers: s.others(id)})
				break
			}
		}
	}
	return
}

// Snapshot returns the host and ordered guests of a session.
func (r *Registry) Snapshot(id network.Uid) (host Participant, guests []Participant, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, nil, ErrSessionNotFound
	}
	return s.host, append([]Participant(nil), s.guests...), nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
