package coordinator

import (
	"github.com/peerdesk/peerdesk/pkg/api"
	"github.com/peerdesk/peerdesk/pkg/com"
)

// User is one connected client, host or guest.
type User struct {
	com.SocketClient
}

func NewUser(sock com.SocketClient) *User { return &User{SocketClient: sock} }

// RouteError replies to the in packet with a session-error.
func (u *User) RouteError(in api.In, code string, message string) {
	u.Route(in, api.SessionError, api.SessionErrorResponse{Code: code, Message: message})
}

// NotifyError pushes a session-error not tied to a tracked request.
func (u *User) NotifyError(code string, message string) {
	u.Notify(api.SessionError, api.SessionErrorResponse{Code: code, Message: message})
}
