package relayclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/park285/chess-relay/internal/protocol"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Conn is a player connection to the relay.
type Conn struct {
	conn *websocket.Conn
	id   string
}

// Dial opens wsURL and waits for the connect acknowledgement carrying the
// server-assigned participant id.
func Dial(ctx context.Context, wsURL string) (*Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		return nil, err
	}
	c := &Conn{conn: conn}
	env, err := c.Next(dialCtx)
	if err != nil {
		_ = conn.Close(websocket.StatusInternalError, "no ack")
		return nil, fmt.Errorf("read connect ack: %w", err)
	}
	if env.Type != protocol.TypeConnect {
		_ = conn.Close(websocket.StatusProtocolError, "unexpected first frame")
		return nil, fmt.Errorf("expected connect ack, got %q", env.Type)
	}
	var ack protocol.ConnectAck
	if err := json.Unmarshal(env.Payload, &ack); err != nil || ack.ID == "" {
		_ = conn.Close(websocket.StatusProtocolError, "bad ack")
		return nil, errors.New("connect ack without id")
	}
	c.id = ack.ID
	return c, nil
}

// ID is the participant id assigned by the server.
func (c *Conn) ID() string { return c.id }

// Send writes one request frame.
func (c *Conn) Send(ctx context.Context, t protocol.Type, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return wsjson.Write(ctx, c.conn, protocol.Envelope{Type: t, Payload: raw})
}

// SendRaw writes an arbitrary text frame.
func (c *Conn) SendRaw(ctx context.Context, frame []byte) error {
	return c.conn.Write(ctx, websocket.MessageText, frame)
}

// Next reads the next frame.
func (c *Conn) Next(ctx context.Context) (protocol.Envelope, error) {
	var env protocol.Envelope
	err := wsjson.Read(ctx, c.conn, &env)
	return env, err
}

// Expect reads frames until one of type t arrives and decodes its payload
// into out. Other frames are skipped.
func (c *Conn) Expect(ctx context.Context, t protocol.Type, out any) error {
	for {
		env, err := c.Next(ctx)
		if err != nil {
			return err
		}
		if env.Type != t {
			continue
		}
		if out == nil {
			return nil
		}
		return json.Unmarshal(env.Payload, out)
	}
}

func (c *Conn) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "bye")
}

// Raw exposes the underlying connection.
func (c *Conn) Raw() *websocket.Conn { return c.conn }
