package coordinator

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/peerdesk/peerdesk/pkg/api"
	"github.com/peerdesk/peerdesk/pkg/network"
)

func signalPacket(t *testing.T, pt api.PT, sig api.Signal) api.In {
	t.Helper()
	raw, err := json.Marshal(sig)
	if err != nil {
		t.Fatal(err)
	}
	return api.In{T: pt, Payload: raw}
}

func TestRelayDirected(t *testing.T) {
	r := NewRegistry()
	rt := NewRouter(r, true)
	host := newFakeUser("host")
	g1, g2 := newFakeUser("g1"), newFakeUser("g2")
	s := r.CreateSession(host)
	_, _, _, _ = r.AddGuest(s.Id(), g1)
	_, _, _, _ = r.AddGuest(s.Id(), g2)

	blob := json.RawMessage(`{"sdp":"v=0"}`)
	in := signalPacket(t, api.Offer, api.Signal{SessionId: s.Id(), TargetId: g1.Id(), Blob: blob})
	if err := rt.Relay(host, in); err != nil {
		t.Fatal(err)
	}

	ev := g1.events()
	if len(ev) != 1 {
		t.Fatalf("expected 1 delivery to g1, got %v", len(ev))
	}
	if ev[0].t != api.Offer {
		t.Errorf("packet type changed in transit: %v", ev[0].t)
	}
	sig, ok := ev[0].data.(api.Signal)
	if !ok {
		t.Fatalf("unexpected payload type %T", ev[0].data)
	}
	if sig.FromId != host.Id() {
		t.Errorf("sender identity not stamped: %v", sig.FromId)
	}
	if string(sig.Blob) != string(blob) {
		t.Errorf("blob modified in transit: %s", sig.Blob)
	}
	// nobody else hears a directed packet
	if n := len(g2.events()); n != 0 {
		t.Errorf("g2 got %v stray packets", n)
	}
	if n := len(host.events()); n != 0 {
		t.Errorf("host got its own packet back")
	}
}

func TestRelaySenderSpoof(t *testing.T) {
	r := NewRegistry()
	rt := NewRouter(r, true)
	host := newFakeUser("host")
	g1 := newFakeUser("g1")
	s := r.CreateSession(host)
	_, _, _, _ = r.AddGuest(s.Id(), g1)

	// a wire-claimed sender is overwritten with the connection identity
	in := signalPacket(t, api.IceCandidate, api.Signal{SessionId: s.Id(), TargetId: host.Id(), FromId: "someone-else"})
	if err := rt.Relay(g1, in); err != nil {
		t.Fatal(err)
	}
	ev := host.events()
	if len(ev) != 1 {
		t.Fatalf("expected 1 delivery, got %v", len(ev))
	}
	if got := ev[0].data.(api.Signal).FromId; got != g1.Id() {
		t.Errorf("spoofed sender passed through: %v", got)
	}
}

func TestRelayCrossSessionIsolation(t *testing.T) {
	r := NewRegistry()
	rt := NewRouter(r, true)
	hostA, hostB := newFakeUser("hostA"), newFakeUser("hostB")
	ga, gb := newFakeUser("ga"), newFakeUser("gb")
	sa := r.CreateSession(hostA)
	sb := r.CreateSession(hostB)
	_, _, _, _ = r.AddGuest(sa.Id(), ga)
	_, _, _, _ = r.AddGuest(sb.Id(), gb)

	// target in another session: silent drop
	in := signalPacket(t, api.Offer, api.Signal{SessionId: sa.Id(), TargetId: gb.Id()})
	if err := rt.Relay(hostA, in); err != nil {
		t.Fatal(err)
	}
	// undirected stays inside the sender's session
	in = signalPacket(t, api.Answer, api.Signal{SessionId: sa.Id()})
	if err := rt.Relay(hostA, in); err != nil {
		t.Fatal(err)
	}

	if n := len(gb.events()); n != 0 {
		t.Errorf("packet leaked across sessions: %v deliveries", n)
	}
	if n := len(hostB.events()); n != 0 {
		t.Errorf("packet leaked to the other host")
	}
	if n := len(ga.events()); n != 1 {
		t.Errorf("expected the undirected packet at ga, got %v", n)
	}
}

func TestRelayUndirectedFallback(t *testing.T) {
	r := NewRegistry()
	host := newFakeUser("host")
	g1, g2 := newFakeUser("g1"), newFakeUser("g2")
	s := r.CreateSession(host)
	_, _, _, _ = r.AddGuest(s.Id(), g1)
	_, _, _, _ = r.AddGuest(s.Id(), g2)

	in := signalPacket(t, api.Offer, api.Signal{SessionId: s.Id()})

	t.Run("enabled", func(t *testing.T) {
		rt := NewRouter(r, true)
		if err := rt.Relay(g1, in); err != nil {
			t.Fatal(err)
		}
		if len(host.events()) != 1 || len(g2.events()) != 1 {
			t.Errorf("expected delivery to host and g2, got %v/%v", len(host.events()), len(g2.events()))
		}
		if len(g1.events()) != 0 {
			t.Errorf("sender echoed back")
		}
	})

	t.Run("disabled", func(t *testing.T) {
		rt := NewRouter(r, false)
		if err := rt.Relay(g1, in); err != nil {
			t.Fatal(err)
		}
		if len(host.events()) != 1 || len(g2.events()) != 1 {
			t.Errorf("disabled fallback still delivered")
		}
	})
}

func TestRelayNonMemberSender(t *testing.T) {
	r := NewRegistry()
	rt := NewRouter(r, true)
	host := newFakeUser("host")
	g1 := newFakeUser("g1")
	s := r.CreateSession(host)
	_, _, _, _ = r.AddGuest(s.Id(), g1)

	// a connection outside the session knows the id but can't inject
	outsider := newFakeUser("outsider")
	for _, sig := range []api.Signal{
		{SessionId: s.Id(), TargetId: g1.Id()},
		{SessionId: s.Id()},
	} {
		if err := rt.Relay(outsider, signalPacket(t, api.MouseEvent, sig)); err != nil {
			t.Fatal(err)
		}
	}
	if n := len(g1.events()) + len(host.events()); n != 0 {
		t.Errorf("outsider traffic delivered: %v packets", n)
	}
}

func TestRelayMalformed(t *testing.T) {
	r := NewRegistry()
	rt := NewRouter(r, true)
	host := newFakeUser("host")
	r.CreateSession(host)

	for _, payload := range []string{`{}`, `not json`, ``} {
		in := api.In{T: api.Offer, Payload: json.RawMessage(payload)}
		if err := rt.Relay(host, in); err != api.ErrMalformed {
			t.Errorf("payload %q: expected ErrMalformed, got %v", payload, err)
		}
	}
}

func TestRelayUnknownSession(t *testing.T) {
	r := NewRegistry()
	rt := NewRouter(r, true)
	host := newFakeUser("host")
	r.CreateSession(host)

	// unknown sessions and targets are dropped without an error
	in := signalPacket(t, api.Offer, api.Signal{SessionId: network.NewUid()})
	if err := rt.Relay(host, in); err != nil {
		t.Errorf("unknown session is not a silent drop: %v", err)
	}
	if n := len(host.events()); n != 0 {
		t.Errorf("unexpected delivery: %v", n)
	}
}
