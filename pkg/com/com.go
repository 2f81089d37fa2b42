package com

import (
	"github.com/peerdesk/peerdesk/pkg/api"
	"github.com/peerdesk/peerdesk/pkg/logger"
	"github.com/peerdesk/peerdesk/pkg/network"
)

// SocketClient is a packet connection with an identity.
type SocketClient struct {
	id   network.Uid
	wire *Client
	log  *logger.Logger // a special logger for showing x -> y directions
}

func New(conn *Client, tag string, id network.Uid, log *logger.Logger) SocketClient {
	if id == network.EmptyUid {
		id = network.NewUid()
	}
	dir := "→"
	if conn.IsServer() {
		dir = "←"
	}
	dirClLog := log.Extend(log.With().
		Str("cid", id.Short()).
		Str("c", tag).
		Str(logger.DirectionField, dir),
	)
	dirClLog.Debug().Msg("Connect")
	return SocketClient{id: id, wire: conn, log: dirClLog}
}

func (c *SocketClient) OnPacket(fn func(in api.In) error) {
	c.wire.OnPacket(func(p api.In) {
		c.log.Debug().Str(logger.DirectionField, "←").Msgf("%v", p.T)
		if err := fn(p); err != nil {
			c.log.Error().Err(err).Send()
		}
	})
}

// Notify just sends a message and goes further.
func (c *SocketClient) Notify(t api.PT, data any) {
	c.log.Debug().Str(logger.DirectionField, "→").Msgf("%v", t)
	_ = c.wire.Send(t, data)
}

// Route replies to the in packet preserving its tracking id.
func (c *SocketClient) Route(in api.In, t api.PT, data any) {
	c.log.Debug().Str(logger.DirectionField, "→").Msgf("%v", t)
	_ = c.wire.Route(in, t, data)
}

func (c *SocketClient) Listen() chan struct{} { return c.wire.Listen() }

func (c *SocketClient) Disconnect() {
	c.wire.Close()
	c.log.Debug().Str(logger.DirectionField, "x").Msg("Close")
}

func (c *SocketClient) Id() network.Uid { return c.id }
func (c *SocketClient) String() string  { return c.id.String() }

func (c *SocketClient) Log() *logger.Logger { return c.log }
