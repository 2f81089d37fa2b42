package coordinator

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/peerdesk/peerdesk/pkg/api"
	"github.com/peerdesk/peerdesk/pkg/com"
	conf "github.com/peerdesk/peerdesk/pkg/config/coordinator"
	"github.com/peerdesk/peerdesk/pkg/logger"
	"github.com/peerdesk/peerdesk/pkg/network"
)

const waitFor = 3 * time.Second

type testConn struct {
	*com.Client
	packets chan api.In
}

func connectUser(t *testing.T, srv *httptest.Server) *testConn {
	t.Helper()
	addr := url.URL{Scheme: "ws", Host: strings.TrimPrefix(srv.URL, "http://"), Path: "/"}
	cl, err := com.NewConnector().NewClient(addr, logger.Default())
	if err != nil {
		t.Fatalf("couldn't connect to %v, %v", addr.String(), err)
	}
	c := &testConn{Client: cl, packets: make(chan api.In, 16)}
	c.OnPacket(func(p api.In) { c.packets <- p })
	c.Listen()
	return c
}

func (c *testConn) next(t *testing.T) api.In {
	t.Helper()
	select {
	case p := <-c.packets:
		return p
	case <-time.After(waitFor):
		t.Fatal("no packet")
		return api.In{}
	}
}

func call[T any](t *testing.T, c *testConn, pt api.PT, payload any) T {
	t.Helper()
	raw, err := c.Call(pt, payload)
	if err != nil {
		t.Fatalf("call %v failed: %v", pt, err)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("bad %v response: %v", pt, err)
	}
	return out
}

func testHub(t *testing.T) *httptest.Server {
	t.Helper()
	c := conf.Coordinator{Origin: "*", Relay: conf.Relay{AllowUndirected: true}}
	hub := NewHub(c, logger.Default())
	srv := httptest.NewServer(http.HandlerFunc(hub.handleUserConnection))
	t.Cleanup(srv.Close)
	return srv
}

func TestHubSessionFlow(t *testing.T) {
	srv := testHub(t)
	host := connectUser(t, srv)
	defer host.Close()
	guest := connectUser(t, srv)
	defer guest.Close()

	created := call[api.SessionCreatedResponse](t, host, api.CreateSession, nil)
	if created.SessionId == network.EmptyUid {
		t.Fatal("no session id")
	}
	// create is idempotent per connection
	again := call[api.SessionCreatedResponse](t, host, api.CreateSession, nil)
	if again.SessionId != created.SessionId {
		t.Errorf("second create made a new session: %v != %v", again.SessionId, created.SessionId)
	}

	joined := call[api.SessionJoinedResponse](t, guest, api.JoinSession, api.SessionIdRequest{SessionId: created.SessionId})
	if joined.HostId == network.EmptyUid {
		t.Error("no host id in the join reply")
	}
	if len(joined.GuestIds) != 1 {
		t.Errorf("expected a one guest roster, got %v", joined.GuestIds)
	}

	// the host hears about the join
	p := host.next(t)
	if p.T != api.UserJoined {
		t.Fatalf("expected UserJoined, got %v", p.T)
	}
	change := api.Unwrap[api.UserChange](p.Payload)
	if change == nil || change.UserId != joined.GuestIds[0] {
		t.Errorf("join notice names the wrong user: %v", change)
	}

	// directed signaling guest -> host
	blob := json.RawMessage(`{"sdp":"v=0"}`)
	if err := guest.Send(api.Offer, api.Signal{SessionId: created.SessionId, TargetId: joined.HostId, Blob: blob}); err != nil {
		t.Fatal(err)
	}
	p = host.next(t)
	if p.T != api.Offer {
		t.Fatalf("expected Offer, got %v", p.T)
	}
	sig := api.Unwrap[api.Signal](p.Payload)
	if sig == nil || string(sig.Blob) != string(blob) {
		t.Errorf("offer blob modified in transit")
	}
	if sig.FromId != joined.GuestIds[0] {
		t.Errorf("offer sender not stamped: %v", sig.FromId)
	}

	// guest disconnect tells the host, the session stays
	guest.Close()
	p = host.next(t)
	if p.T != api.UserLeft {
		t.Fatalf("expected UserLeft, got %v", p.T)
	}
}

func TestHubUnknownPacket(t *testing.T) {
	srv := testHub(t)
	usr := connectUser(t, srv)
	defer usr.Close()

	if err := usr.Send(99, nil); err != nil {
		t.Fatal(err)
	}
	p := usr.next(t)
	if p.T != api.SessionError {
		t.Fatalf("expected SessionError, got %v", p.T)
	}
	rez := api.Unwrap[api.SessionErrorResponse](p.Payload)
	if rez == nil || rez.Code != api.ErrCodeMalformed {
		t.Errorf("unexpected error payload: %v", rez)
	}
}

func TestHubJoinUnknownSession(t *testing.T) {
	srv := testHub(t)
	guest := connectUser(t, srv)
	defer guest.Close()

	rez := call[api.SessionErrorResponse](t, guest, api.JoinSession, api.SessionIdRequest{SessionId: network.NewUid()})
	if rez.Code != api.ErrCodeSessionNotFound {
		t.Errorf("expected %v, got %v", api.ErrCodeSessionNotFound, rez.Code)
	}
}

func TestHubHostDisconnectEndsSession(t *testing.T) {
	srv := testHub(t)
	host := connectUser(t, srv)
	guest := connectUser(t, srv)
	defer guest.Close()

	created := call[api.SessionCreatedResponse](t, host, api.CreateSession, nil)
	call[api.SessionJoinedResponse](t, guest, api.JoinSession, api.SessionIdRequest{SessionId: created.SessionId})
	host.next(t) // UserJoined

	host.Close()
	p := guest.next(t)
	if p.T != api.HostDisconnect {
		t.Fatalf("expected HostDisconnect, got %v", p.T)
	}

	// the id no longer resolves
	rez := call[api.SessionErrorResponse](t, guest, api.JoinSession, api.SessionIdRequest{SessionId: created.SessionId})
	if rez.Code != api.ErrCodeSessionNotFound {
		t.Errorf("dead session still joinable: %v", rez.Code)
	}
}

func TestHubGuestCannotEndSession(t *testing.T) {
	srv := testHub(t)
	host := connectUser(t, srv)
	defer host.Close()
	guest := connectUser(t, srv)
	defer guest.Close()

	created := call[api.SessionCreatedResponse](t, host, api.CreateSession, nil)
	call[api.SessionJoinedResponse](t, guest, api.JoinSession, api.SessionIdRequest{SessionId: created.SessionId})
	host.next(t) // UserJoined

	rez := call[api.SessionErrorResponse](t, guest, api.EndSession, api.SessionIdRequest{SessionId: created.SessionId})
	if rez.Code != api.ErrCodeNotAuthorized {
		t.Errorf("expected %v, got %v", api.ErrCodeNotAuthorized, rez.Code)
	}
}
