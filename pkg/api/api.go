// Package api defines the wire API between the coordinator and its clients.
//
// Each API call (request and response) is a JSON-encoded "packet" of the following structure:
//
//	id - (optional) a globally unique packet id;
//	 t - (required) one of the predefined unique packet types;
//	 p - (optional) packet payload with arbitrary data.
//
// Packets differentiate by their predefined types with which it is possible
// to unwrap the payload into distinct request/response data structures.
// The id field is used for tracking request/response pairs through the wire.
//
// Negotiation payloads (offers, answers, ICE candidates) and input events are
// opaque to the coordinator and pass through verbatim.
package api

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/peerdesk/peerdesk/pkg/network"
)

type PT uint16

type In struct {
	Id      network.Uid     `json:"id,omitempty"`
	T       PT              `json:"t"`
	Payload json.RawMessage `json:"p,omitempty"` // 2-pass unmarshal
}

type Out struct {
	Id      string `json:"id,omitempty"`
	T       PT     `json:"t"`
	Payload any    `json:"p,omitempty"`
}

// Packet codes:
//
//	1xx - session lifecycle
//	2xx - negotiation and input relay
//	3xx - control state
const (
	CreateSession  PT = 101
	SessionCreated PT = 102
	JoinSession    PT = 103
	SessionJoined  PT = 104
	EndSession     PT = 105
	SessionEnded   PT = 106
	SessionError   PT = 107
	UserJoined     PT = 108
	UserLeft       PT = 109
	HostDisconnect PT = 110

	Offer         PT = 201
	Answer        PT = 202
	IceCandidate  PT = 203
	MouseEvent    PT = 204
	KeyboardEvent PT = 205

	EnableRemoteControl  PT = 301
	DisableRemoteControl PT = 302
	RemoteControlOn      PT = 303
	RemoteControlOff     PT = 304
	RequestScreenShare   PT = 305
	ScreenShareRequested PT = 306
	ApproveScreenShare   PT = 307
	ScreenShareApproved  PT = 308
	DenyScreenShare      PT = 309
	ScreenShareDenied    PT = 310
	ScreenShareStarted   PT = 311
	ScreenShareStopped   PT = 312
)

func (p PT) String() string {
	switch p {
	case CreateSession:
		return "CreateSession"
	case SessionCreated:
		return "SessionCreated"
	case JoinSession:
		return "JoinSession"
	case SessionJoined:
		return "SessionJoined"
	case EndSession:
		return "EndSession"
	case SessionEnded:
		return "SessionEnded"
	case SessionError:
		return "SessionError"
	case UserJoined:
		return "UserJoined"
	case UserLeft:
		return "UserLeft"
	case HostDisconnect:
		return "HostDisconnect"
	case Offer:
		return "Offer"
	case Answer:
		return "Answer"
	case IceCandidate:
		return "IceCandidate"
	case MouseEvent:
		return "MouseEvent"
	case KeyboardEvent:
		return "KeyboardEvent"
	case EnableRemoteControl:
		return "EnableRemoteControl"
	case DisableRemoteControl:
		return "DisableRemoteControl"
	case RemoteControlOn:
		return "RemoteControlOn"
	case RemoteControlOff:
		return "RemoteControlOff"
	case RequestScreenShare:
		return "RequestScreenShare"
	case ScreenShareRequested:
		return "ScreenShareRequested"
	case ApproveScreenShare:
		return "ApproveScreenShare"
	case ScreenShareApproved:
		return "ScreenShareApproved"
	case DenyScreenShare:
		return "DenyScreenShare"
	case ScreenShareDenied:
		return "ScreenShareDenied"
	case ScreenShareStarted:
		return "ScreenShareStarted"
	case ScreenShareStopped:
		return "ScreenShareStopped"
	default:
		return fmt.Sprintf("Unknown(%d)", uint16(p))
	}
}

// IsSignal says whether the packet is pass-through relay traffic.
func (p PT) IsSignal() bool { return p >= Offer && p <= KeyboardEvent }

var (
	ErrForbidden = fmt.Errorf("forbidden")
	ErrMalformed = fmt.Errorf("malformed")
)

func Unwrap[T any](data []byte) *T {
	out := new(T)
	if err := json.Unmarshal(data, out); err != nil {
		return nil
	}
	return out
}
