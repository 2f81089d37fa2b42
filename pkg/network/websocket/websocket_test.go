package websocket

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/peerdesk/peerdesk/pkg/logger"
)

// A writer backlog deeper than the send buffer must not lose packets:
// the last queued message is often the one that matters (session end,
// host disconnect).
func TestWriteBacklog(t *testing.T) {
	const n = 100
	log := logger.Default()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sock, err := NewServer(w, r, log)
		if err != nil {
			return
		}
		go func() {
			for i := 0; i < n; i++ {
				sock.Write([]byte(fmt.Sprintf("m%d", i)))
			}
		}()
		<-sock.Listen()
	}))
	defer srv.Close()

	addr := url.URL{Scheme: "ws", Host: strings.TrimPrefix(srv.URL, "http://"), Path: "/"}
	client, err := NewClient(addr, log)
	if err != nil {
		t.Fatalf("couldn't connect to %v, %v", addr.String(), err)
	}

	var mu sync.Mutex
	var got []string
	all := make(chan struct{})
	client.OnMessage = func(m []byte, err error) {
		mu.Lock()
		got = append(got, string(m))
		if len(got) == n {
			close(all)
		}
		mu.Unlock()
	}
	client.Listen()
	defer client.Close()

	select {
	case <-all:
	case <-time.After(5 * time.Second):
		mu.Lock()
		have := len(got)
		mu.Unlock()
		t.Fatalf("lost packets: got %v of %v", have, n)
	}

	mu.Lock()
	defer mu.Unlock()
	for i, m := range got {
		if m != fmt.Sprintf("m%d", i) {
			t.Fatalf("message %v out of order: %v", i, m)
		}
	}
	if got[n-1] != fmt.Sprintf("m%d", n-1) {
		t.Errorf("the last message did not arrive: %v", got[n-1])
	}
}
