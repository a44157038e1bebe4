package wire

import (
	"bytes"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
)

func TestPeerOKCompatibilityTable(t *testing.T) {
	cases := []struct {
		self, peer uint16
		ok         bool
	}{
		{ProtoPair, ProtoPair, true},
		{ProtoPub, ProtoSub, true},
		{ProtoSub, ProtoPub, true},
		{ProtoReq, ProtoRep, true},
		{ProtoRep, ProtoReq, true},
		{ProtoPush, ProtoPull, true},
		{ProtoPull, ProtoPush, true},
		{ProtoSurveyor, ProtoRespondent, true},
		{ProtoRespondent, ProtoSurveyor, true},
		{ProtoBus, ProtoBus, true},
		{ProtoStar, ProtoStar, true},
		{ProtoReq, ProtoReq, false},
		{ProtoPub, ProtoPub, false},
		{ProtoPair, ProtoBus, false},
	}
	for _, c := range cases {
		if got := PeerOK(c.self, c.peer); got != c.ok {
			t.Errorf("PeerOK(%s, %s) = %v, want %v", Name(c.self), Name(c.peer), got, c.ok)
		}
	}
}

func TestHandshakeSuccess(t *testing.T) {
	c1, c2 := net.Pipe()
	defer c1.Close()
	defer c2.Close()

	var wg sync.WaitGroup
	wg.Add(2)

	var peerOfClient, peerOfServer uint16
	var errClient, errServer error

	go func() {
		defer wg.Done()
		peerOfClient, errClient = Handshake(c1, ProtoReq)
	}()
	go func() {
		defer wg.Done()
		peerOfServer, errServer = Handshake(c2, ProtoRep)
	}()
	wg.Wait()

	if errClient != nil || errServer != nil {
		t.Fatalf("handshake errors: client=%v server=%v", errClient, errServer)
	}
	if peerOfClient != ProtoRep {
		t.Errorf("client saw peer proto %d, want %d", peerOfClient, ProtoRep)
	}
	if peerOfServer != ProtoReq {
		t.Errorf("server saw peer proto %d, want %d", peerOfServer, ProtoReq)
	}
}

func TestHandshakeIncompatiblePeer(t *testing.T) {
	c1, c2 := net.Pipe()
	defer c1.Close()
	defer c2.Close()

	var wg sync.WaitGroup
	wg.Add(2)
	var err1, err2 error

	go func() {
		defer wg.Done()
		_, err1 = Handshake(c1, ProtoReq)
	}()
	go func() {
		defer wg.Done()
		_, err2 = Handshake(c2, ProtoPub) // not REQ's peer
	}()
	wg.Wait()

	if err1 == nil && err2 == nil {
		t.Fatal("expected at least one side to reject an incompatible greeting")
	}
	if err1 != nil && !errors.Is(err1, ErrBadGreeting) {
		t.Errorf("err1 = %v, want wrapping ErrBadGreeting", err1)
	}
}

func TestHandshakeBadMagic(t *testing.T) {
	c1, c2 := net.Pipe()
	defer c1.Close()
	defer c2.Close()

	go func() {
		var drain [8]byte
		_, _ = io.ReadFull(c2, drain[:]) // consume c1's outbound greeting
		_, _ = c2.Write([]byte{0x01, 'X', 'X', 0x00, 0x00, 16, 0x00, 0x00})
	}()

	_, err := Handshake(c1, ProtoPair)
	if !errors.Is(err, ErrBadGreeting) {
		t.Fatalf("err = %v, want ErrBadGreeting", err)
	}
}

func TestWriteReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	header := []byte{0x80, 0x00, 0x00, 0x01}
	body := []byte("hello")

	if err := WriteFrame(&buf, header, body); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	got, err := ReadFrame(&buf, 0)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	want := append(append([]byte(nil), header...), body...)
	if !bytes.Equal(got, want) {
		t.Fatalf("ReadFrame = %q, want %q", got, want)
	}
}

func TestWriteReadFrameEmptyBody(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, nil, nil); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	got, err := ReadFrame(&buf, 0)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("ReadFrame = %q, want empty", got)
	}
}

func TestReadFrameRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, nil, make([]byte, 100)); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	_, err := ReadFrame(&buf, 10)
	if !errors.Is(err, ErrFrameTooLong) {
		t.Fatalf("err = %v, want ErrFrameTooLong", err)
	}
}
