package netio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/go1090/trackserver/internal/logging"
	"github.com/go1090/trackserver/internal/proto"
)

// proxyV1Prefix is the human-readable PROXY protocol v1 signature
// listeners sniff for, so a client behind a TCP proxy (e.g. HAProxy)
// is still attributed its real source address.
const proxyV1Prefix = "PROXY "

// Service listens on one address and hands every accepted connection
// to the caller as a *Client: a listening socket paired with a set of
// clients to broadcast to. Regentag-go1090 has no networking code of
// its own, so the accept-loop-plus-fan-out structure instead follows
// the same goroutine-per-task idiom it uses for its RTL reader and
// console update goroutines in main.go.
type Service struct {
	Name     string
	Protocol Protocol

	listener net.Listener
	log      *logging.Logger

	mu      sync.Mutex
	clients map[*Client]struct{}

	lastReceiverID     uint64
	haveLastReceiverID bool

	OnAccept func(*Client)
}

// Listen starts a Service bound to addr.
func Listen(name, addr string, protocol Protocol, log *logging.Logger) (*Service, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("netio: listen %s: %w", addr, err)
	}
	s := &Service{
		Name:     name,
		Protocol: protocol,
		listener: ln,
		log:      log,
		clients:  make(map[*Client]struct{}),
	}
	go s.acceptLoop()
	return s, nil
}

func (s *Service) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleAccept(conn)
	}
}

func (s *Service) handleAccept(conn net.Conn) {
	conn, realAddr, err := sniffProxyV1(conn)
	if err != nil {
		conn.Close()
		return
	}

	name := fmt.Sprintf("%s/%s", s.Name, realAddr)
	c := newClient(name, s.Protocol, conn, s.log)

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-c.Done()
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
	}()

	if s.OnAccept != nil {
		s.OnAccept(c)
	}
}

// Clients returns a snapshot of currently-connected clients.
func (s *Service) Clients() []*Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Client, 0, len(s.clients))
	for c := range s.clients {
		out = append(out, c)
	}
	return out
}

// Broadcast enqueues frame on every connected client's send queue.
func (s *Service) Broadcast(frame []byte) {
	for _, c := range s.Clients() {
		c.Send(frame)
	}
}

// BroadcastFromReceiver is Broadcast for a Beast output stream that
// attributes messages to a contributing receiver: whenever the
// receiver differs from the one last broadcast on this service, an
// 0xE3 receiver-id sub-record is sent first so downstream consumers
// (e.g. a multi-receiver aggregator) can re-attribute what follows.
func (s *Service) BroadcastFromReceiver(receiverID uint64, frame []byte) {
	s.mu.Lock()
	changed := !s.haveLastReceiverID || s.lastReceiverID != receiverID
	s.lastReceiverID = receiverID
	s.haveLastReceiverID = true
	s.mu.Unlock()

	if changed {
		var id [8]byte
		binary.BigEndian.PutUint64(id[:], receiverID)
		s.Broadcast(proto.EncodeBeastReceiverID(id))
	}
	s.Broadcast(frame)
}

// Close stops accepting new connections and closes every client.
func (s *Service) Close() error {
	err := s.listener.Close()
	for _, c := range s.Clients() {
		c.Close()
	}
	return err
}

// sniffProxyV1 peeks at the first bytes of conn; if they carry a PROXY
// protocol v1 header, it consumes the header line and returns the
// real peer address it declares. Otherwise conn and its original
// RemoteAddr are returned unchanged.
func sniffProxyV1(conn net.Conn) (net.Conn, string, error) {
	br := bufio.NewReader(conn)

	// A client that only ever reads (never sends first) must not be
	// stuck waiting on this peek forever, so it gets a short deadline;
	// if nothing arrives in time, assume no PROXY header and proceed.
	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	peeked, err := br.Peek(len(proxyV1Prefix))
	conn.SetReadDeadline(time.Time{})

	if err != nil || string(peeked) != proxyV1Prefix {
		return &bufConn{Conn: conn, r: br}, conn.RemoteAddr().String(), nil
	}

	line, err := br.ReadString('\n')
	if err != nil {
		return conn, "", fmt.Errorf("netio: malformed PROXY header: %w", err)
	}
	fields := strings.Fields(strings.TrimSpace(line))
	// PROXY TCP4 <src ip> <dst ip> <src port> <dst port>
	realAddr := conn.RemoteAddr().String()
	if len(fields) >= 6 {
		realAddr = fields[2] + ":" + fields[4]
	}
	return &bufConn{Conn: conn, r: br}, realAddr, nil
}

// bufConn lets us hand back a net.Conn whose Read goes through the
// bufio.Reader we used to peek/consume the PROXY header, so no bytes
// are lost to the sniff.
type bufConn struct {
	net.Conn
	r *bufio.Reader
}

func (b *bufConn) Read(p []byte) (int, error) { return b.r.Read(p) }
