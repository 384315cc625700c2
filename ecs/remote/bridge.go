// Package remote connects a World to a peer over websocket. Incoming frames become
// world commands, so they are applied by the update goroutine at the start of the
// next step.
package remote

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/plus3/famecs/ecs"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Conn is the transport a Bridge reads from and writes to. *websocket.Conn
// satisfies it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Bridge feeds frames read from a Conn into a World.
type Bridge struct {
	conn   Conn
	world  *ecs.World
	logger *zap.Logger

	writeMu sync.Mutex

	received atomic.Uint64
	rejected atomic.Uint64
}

// Stats counts processed frames.
type Stats struct {
	Received uint64
	Rejected uint64
}

// NewBridge creates a bridge over an established connection.
func NewBridge(conn Conn, world *ecs.World, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = world.Logger()
	}
	return &Bridge{
		conn:   conn,
		world:  world,
		logger: logger.With(zap.String("component", "remote")),
	}
}

// Dial connects to a websocket peer.
func Dial(ctx context.Context, url string, world *ecs.World, logger *zap.Logger) (*Bridge, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "dial %s", url)
	}
	return NewBridge(conn, world, logger), nil
}

// Run reads frames until ctx is cancelled or the peer closes the connection, then
// closes the connection. Malformed frames are logged and skipped.
func (b *Bridge) Run(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = b.conn.Close()
		case <-done:
		}
	}()
	defer b.conn.Close()

	for {
		messageType, data, err := b.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				b.logger.Debug("connection closed", zap.Uint64("received", b.received.Load()))
				return nil
			}
			return eris.Wrap(err, "failed to read frame")
		}
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}
		if err := b.Handle(data); err != nil {
			b.logger.Warn("frame rejected", zap.Error(err))
		}
	}
}

// Handle decodes one frame and queues it on the world. It is safe to call from any
// goroutine.
func (b *Bridge) Handle(data []byte) error {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		b.rejected.Add(1)
		return eris.Wrapf(ErrInvalidFrame, "%v", err)
	}
	if err := queue(b.world, &f); err != nil {
		b.rejected.Add(1)
		return err
	}
	b.received.Add(1)
	return nil
}

// Send writes f to the peer.
func (b *Bridge) Send(f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return eris.Wrap(err, "failed to encode frame")
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	if err := b.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return eris.Wrap(err, "failed to write frame")
	}
	return nil
}

// Stats returns the frame counters.
func (b *Bridge) Stats() Stats {
	return Stats{
		Received: b.received.Load(),
		Rejected: b.rejected.Load(),
	}
}
