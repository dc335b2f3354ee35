// Package netio implements the network service/client/connector
// fabric: listening sockets that accept Beast/AVR/SBS clients, outbound
// connectors that dial and reconnect to remote feeds, and the
// non-blocking, queued-write discipline both share.
//
// The connection lifecycle (dial, context-scoped read deadline,
// decode loop, Close) generalizes benburwell-firehose's Stream; the
// reconnect-on-a-ticker shape generalizes billglover-go-adsb-console's
// monitorFlights loop.
package netio

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go1090/trackserver/internal/logging"
)

// Protocol names a wire format a Client or Connector speaks.
type Protocol string

const (
	ProtoBeast Protocol = "beast"
	ProtoAVR   Protocol = "avr"
	ProtoSBS   Protocol = "sbs"
)

// sendQueueDepth is the per-client outbound queue size. A client whose
// consumer can't keep up is disconnected once the queue is full (see
// Send): slow readers never block the decode path.
const sendQueueDepth = 4096

// heartbeatInterval matches Regentag-go1090's single-threaded status tick:
// a heartbeat line is sent to idle clients so they (and any NAT/LB in
// between) don't treat the connection as dead.
const heartbeatInterval = 15 * time.Second

// writeStallTimeout disconnects a client that hasn't completed a
// successful write in this long, catching a peer that ACKs TCP but
// never drains its receive buffer (sendq_max alone wouldn't catch a
// slow-but-not-full queue).
const writeStallTimeout = 5 * time.Second

// writeStallCheckInterval is how often writeLoop checks the stall
// deadline while idle.
const writeStallCheckInterval = 1 * time.Second

// Client is one accepted or dialed connection: a read side that
// delivers framed messages via Messages, and a non-blocking write side
// fed by Send.
type Client struct {
	Name     string
	Protocol Protocol
	conn     net.Conn

	Messages chan []byte // raw frames read from the peer
	sendQ    chan []byte

	closeOnce sync.Once
	done      chan struct{}

	log *logging.Logger

	DroppedWrites int64
	GarbageBytes  int64

	lastWriteMs int64 // unix ms of last successful write; atomic
}

func newClient(name string, protocol Protocol, conn net.Conn, log *logging.Logger) *Client {
	c := &Client{
		Name:     name,
		Protocol: protocol,
		conn:     conn,
		Messages: make(chan []byte, 256),
		sendQ:    make(chan []byte, sendQueueDepth),
		done:     make(chan struct{}),
		log:      log,
	}
	atomic.StoreInt64(&c.lastWriteMs, time.Now().UnixMilli())
	go c.readLoop()
	go c.writeLoop()
	return c
}

// Send enqueues a frame for delivery without blocking. A full queue
// means the client can't keep up with its feed; rather than silently
// drop frames forever, the client is disconnected so the caller
// notices and can reconnect.
func (c *Client) Send(frame []byte) {
	select {
	case c.sendQ <- frame:
	default:
		c.DroppedWrites++
		if c.log != nil {
			c.log.Printf("%s: send queue full (%d), disconnecting", c.Name, sendQueueDepth)
		}
		c.Close()
	}
}

// Close tears down the connection and stops both loops. Safe to call
// more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

// Done returns a channel closed once the client's connection has
// been torn down, for callers that need to notice disconnects.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) readLoop() {
	defer close(c.Messages)
	defer c.Close()

	r := bufio.NewReaderSize(c.conn, 64*1024)
	buf := make([]byte, 8192)

	decoded := newFrameDecoder(c.Protocol)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			frames, garbage := decoded.feed(buf[:n])
			c.GarbageBytes += int64(garbage)
			for _, f := range frames {
				select {
				case c.Messages <- f:
				case <-c.done:
					return
				}
			}
			if decoded.shouldDisconnect() {
				if c.log != nil {
					c.log.Printf("%s: excessive garbage bytes (%d), disconnecting", c.Name, c.GarbageBytes)
				}
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	stall := time.NewTicker(writeStallCheckInterval)
	defer stall.Stop()

	for {
		select {
		case <-c.done:
			return
		case frame, ok := <-c.sendQ:
			if !ok {
				return
			}
			if _, err := c.conn.Write(frame); err != nil {
				c.Close()
				return
			}
			atomic.StoreInt64(&c.lastWriteMs, time.Now().UnixMilli())
		case <-ticker.C:
			if hb := heartbeatFrame(c.Protocol); hb != nil {
				if _, err := c.conn.Write(hb); err != nil {
					c.Close()
					return
				}
				atomic.StoreInt64(&c.lastWriteMs, time.Now().UnixMilli())
			}
		case <-stall.C:
			// Only a stalled write with a backlog behind it is a dead
			// connection; an idle client with nothing queued between
			// heartbeats is not.
			last := atomic.LoadInt64(&c.lastWriteMs)
			if len(c.sendQ) > 0 && time.Since(time.UnixMilli(last)) > writeStallTimeout {
				if c.log != nil {
					c.log.Printf("%s: no successful write in %s with a send backlog, disconnecting", c.Name, writeStallTimeout)
				}
				c.Close()
				return
			}
		}
	}
}

func heartbeatFrame(p Protocol) []byte {
	switch p {
	case ProtoAVR, ProtoSBS:
		return []byte("\n")
	default:
		return nil
	}
}

// DialConnector opens an outbound connection, retrying with backoff
// until ctx is cancelled. It resolves the
// address asynchronously the way a future would: the caller gets a
// *Client back only once the dial has actually succeeded, but dialing
// itself never blocks the caller past ctx cancellation.
func DialConnector(ctx context.Context, name, addr string, protocol Protocol, log *logging.Logger) (*Client, error) {
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		conn, err := (&net.Dialer{}).DialContext(dialCtx, "tcp", addr)
		cancel()
		if err == nil {
			if log != nil {
				log.Printf("%s: connected to %s", name, addr)
			}
			return newClient(name, protocol, conn, log), nil
		}

		if log != nil {
			log.Printf("%s: dial %s failed: %v, retrying in %s", name, addr, err, backoff)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("netio: connector %s: %w", name, ctx.Err())
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}
