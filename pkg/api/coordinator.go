package api

import (
	"github.com/goccy/go-json"
	"github.com/peerdesk/peerdesk/pkg/network"
)

// Error codes carried by SessionError packets.
const (
	ErrCodeSessionNotFound = "session_not_found"
	ErrCodeNotAuthorized   = "not_authorized"
	ErrCodeMalformed       = "malformed"
)

type SessionIdRequest struct {
	SessionId network.Uid `json:"session_id"`
}

type SessionCreatedResponse struct {
	SessionId network.Uid `json:"session_id"`
}

type SessionJoinedResponse struct {
	SessionId network.Uid   `json:"session_id"`
	HostId    network.Uid   `json:"host_id"`
	GuestIds  []network.Uid `json:"guest_ids,omitempty"`
}

type SessionErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// Signal is the envelope of relayed negotiation and input traffic.
// Blob is never inspected by the coordinator.
type Signal struct {
	SessionId network.Uid     `json:"session_id"`
	TargetId  network.Uid     `json:"target_id,omitempty"`
	FromId    network.Uid     `json:"from_id,omitempty"`
	Blob      json.RawMessage `json:"blob,omitempty"`
}

type UserChange struct {
	SessionId network.Uid `json:"session_id"`
	UserId    network.Uid `json:"user_id"`
}

type ScreenShareRequest struct {
	SessionId   network.Uid `json:"session_id"`
	RequesterId network.Uid `json:"requester_id,omitempty"`
}
