package netio

import (
	"net"
	"testing"
	"time"
)

func TestServiceAcceptAndBroadcast(t *testing.T) {
	svc, err := Listen("test", "127.0.0.1:0", ProtoAVR, nil)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer svc.Close()

	accepted := make(chan *Client, 1)
	svc.OnAccept = func(c *Client) { accepted <- c }

	conn, err := net.Dial("tcp", svc.listener.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	select {
	case <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for accept")
	}

	svc.Broadcast([]byte("*8d4840d6;\n"))

	buf := make([]byte, 64)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(buf[:n]) != "*8d4840d6;\n" {
		t.Errorf("got %q, want broadcast frame", buf[:n])
	}
}

func TestClientSendDropsWhenQueueFull(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()

	c := newClient("test", ProtoAVR, client, nil)
	defer c.Close()

	for i := 0; i < sendQueueDepth+10; i++ {
		c.Send([]byte("x"))
	}

	if c.DroppedWrites == 0 {
		t.Errorf("DroppedWrites = 0, want > 0 after overflowing the queue")
	}
}

func TestAVRClientDecodesFrames(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	c := newClient("test", ProtoAVR, client, nil)
	defer c.Close()

	go server.Write([]byte("*8d4840d6;\n"))

	select {
	case msg := <-c.Messages:
		if string(msg) != "\x8d\x48\x40\xd6" {
			t.Errorf("got %x", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for decoded message")
	}
}
