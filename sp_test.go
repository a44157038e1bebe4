package sp

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spsock/sp/protocol/req"
	"github.com/spsock/sp/protocol/surveyor"
)

const testTimeout = 2 * time.Second

func mustSetTimeouts(t *testing.T, s *Socket) {
	t.Helper()
	if err := s.SetOption(OptionSendTimeout, testTimeout); err != nil {
		t.Fatalf("SetOption(send timeout): %v", err)
	}
	if err := s.SetOption(OptionRecvTimeout, testTimeout); err != nil {
		t.Fatalf("SetOption(recv timeout): %v", err)
	}
}

func inprocAddr(t *testing.T) string {
	return fmt.Sprintf("inproc://%s", t.Name())
}

func TestPairEcho(t *testing.T) {
	addr := inprocAddr(t)

	a := NewPairSocket()
	defer a.Close()
	b := NewPairSocket()
	defer b.Close()
	mustSetTimeouts(t, a)
	mustSetTimeouts(t, b)

	if _, err := a.Listen(addr); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if _, err := b.Dial(addr); err != nil {
		t.Fatalf("Dial: %v", err)
	}

	if err := a.Send(&Message{Body: []byte("ping")}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	msg, err := b.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if string(msg.Body) != "ping" {
		t.Fatalf("Recv body = %q, want %q", msg.Body, "ping")
	}

	if err := b.Send(&Message{Body: []byte("pong")}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	msg, err = a.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if string(msg.Body) != "pong" {
		t.Fatalf("Recv body = %q, want %q", msg.Body, "pong")
	}
}

func TestPairRejectsSecondPeer(t *testing.T) {
	addr := inprocAddr(t)

	a := NewPairSocket()
	defer a.Close()
	b := NewPairSocket()
	defer b.Close()
	c := NewPairSocket()
	defer c.Close()
	mustSetTimeouts(t, a)
	mustSetTimeouts(t, b)

	if _, err := a.Listen(addr); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if _, err := b.Dial(addr); err != nil {
		t.Fatalf("Dial: %v", err)
	}
	if err := a.Send(&Message{Body: []byte("hi")}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := b.Recv(); err != nil {
		t.Fatalf("Recv: %v", err)
	}

	// c's dial should be accepted at the transport level but rejected by
	// PAIR's OpenPipe, since a already has a peer; a should go on talking
	// only to b.
	if _, err := c.Dial(addr); err != nil {
		t.Fatalf("Dial: %v", err)
	}
	if err := a.Send(&Message{Body: []byte("still b")}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	msg, err := b.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if string(msg.Body) != "still b" {
		t.Fatalf("Recv body = %q, want %q", msg.Body, "still b")
	}
}

func TestPipelinePushPull(t *testing.T) {
	addr := inprocAddr(t)

	push := NewPushSocket()
	defer push.Close()
	pull := NewPullSocket()
	defer pull.Close()
	mustSetTimeouts(t, push)
	mustSetTimeouts(t, pull)

	if _, err := pull.Listen(addr); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if _, err := push.Dial(addr); err != nil {
		t.Fatalf("Dial: %v", err)
	}

	for i := 0; i < 5; i++ {
		body := []byte(fmt.Sprintf("job-%d", i))
		if err := push.Send(&Message{Body: body}); err != nil {
			t.Fatalf("Send: %v", err)
		}
		msg, err := pull.Recv()
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		if string(msg.Body) != string(body) {
			t.Fatalf("Recv body = %q, want %q", msg.Body, body)
		}
	}
}

func TestPipelineFanOut(t *testing.T) {
	addr := inprocAddr(t)

	push := NewPushSocket()
	defer push.Close()
	pullA := NewPullSocket()
	defer pullA.Close()
	pullB := NewPullSocket()
	defer pullB.Close()
	mustSetTimeouts(t, push)
	mustSetTimeouts(t, pullA)
	mustSetTimeouts(t, pullB)

	if _, err := push.Listen(addr); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if _, err := pullA.Dial(addr); err != nil {
		t.Fatalf("Dial: %v", err)
	}
	if _, err := pullB.Dial(addr); err != nil {
		t.Fatalf("Dial: %v", err)
	}

	results := map[string]bool{}
	// One long-lived receiver per puller: a socket allows only one pending
	// Recv at a time, so starting fresh Recv calls every round would leave
	// the previous round's call outstanding on the puller that lost.
	out := make(chan string, 4)
	for _, pull := range []*Socket{pullA, pullB} {
		go func(s *Socket) {
			for {
				m, err := s.Recv()
				if err != nil {
					return
				}
				out <- string(m.Body)
			}
		}(pull)
	}
	recvEither := func() (string, error) {
		select {
		case body := <-out:
			return body, nil
		case <-time.After(testTimeout):
			return "", fmt.Errorf("timed out waiting for either puller")
		}
	}

	for i := 0; i < 4; i++ {
		body := fmt.Sprintf("job-%d", i)
		if err := push.Send(&Message{Body: []byte(body)}); err != nil {
			t.Fatalf("Send: %v", err)
		}
		got, err := recvEither()
		if err != nil {
			t.Fatalf("recvEither: %v", err)
		}
		results[got] = true
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 distinct deliveries, got %d: %v", len(results), results)
	}
}

func TestReqRep(t *testing.T) {
	addr := inprocAddr(t)

	r := NewReqSocket()
	defer r.Close()
	rep := NewRepSocket()
	defer rep.Close()
	mustSetTimeouts(t, r)
	mustSetTimeouts(t, rep)

	if _, err := rep.Listen(addr); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if _, err := r.Dial(addr); err != nil {
		t.Fatalf("Dial: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		req, err := rep.Recv()
		if err != nil {
			done <- err
			return
		}
		if string(req.Body) != "question" {
			done <- fmt.Errorf("rep saw body %q, want %q", req.Body, "question")
			return
		}
		done <- rep.Send(&Message{Header: req.Header, Body: []byte("answer")})
	}()

	if err := r.Send(&Message{Body: []byte("question")}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	reply, err := r.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if string(reply.Body) != "answer" {
		t.Fatalf("reply body = %q, want %q", reply.Body, "answer")
	}
	if err := <-done; err != nil {
		t.Fatalf("rep goroutine: %v", err)
	}
}

func TestReqRepWithoutBacktraceFails(t *testing.T) {
	rep := NewRepSocket()
	defer rep.Close()

	err := rep.Send(&Message{Body: []byte("no header")})
	if err == nil {
		t.Fatal("expected REP.Send without a captured backtrace to fail")
	}
}

func TestReqResendOnTimeout(t *testing.T) {
	addr := inprocAddr(t)

	r := NewReqSocket()
	defer r.Close()
	rep := NewRepSocket()
	defer rep.Close()
	mustSetTimeouts(t, r)
	mustSetTimeouts(t, rep)
	if err := r.SetOption(req.OptionResendInterval, 50*time.Millisecond); err != nil {
		t.Fatalf("SetOption(resend interval): %v", err)
	}

	if _, err := rep.Listen(addr); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if _, err := r.Dial(addr); err != nil {
		t.Fatalf("Dial: %v", err)
	}

	var deliveries int32
	done := make(chan error, 1)
	go func() {
		for {
			q, err := rep.Recv()
			if err != nil {
				done <- err
				return
			}
			if atomic.AddInt32(&deliveries, 1) == 1 {
				continue // drop the first delivery so REQ has to resend
			}
			done <- rep.Send(&Message{Header: q.Header, Body: []byte("answer")})
			return
		}
	}()

	if err := r.Send(&Message{Body: []byte("question")}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	reply, err := r.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if string(reply.Body) != "answer" {
		t.Fatalf("reply body = %q, want %q", reply.Body, "answer")
	}
	if err := <-done; err != nil {
		t.Fatalf("rep goroutine: %v", err)
	}
	if got := atomic.LoadInt32(&deliveries); got < 2 {
		t.Fatalf("rep saw %d deliveries, want at least 2 (resend never fired)", got)
	}
}

func TestPubSubPrefixFiltering(t *testing.T) {
	addr := inprocAddr(t)

	pub := NewPubSocket()
	defer pub.Close()
	sub := NewSubSocket()
	defer sub.Close()
	mustSetTimeouts(t, pub)
	mustSetTimeouts(t, sub)

	if err := sub.SetOption("subscribe", []byte("weather.")); err != nil {
		t.Fatalf("SetOption(subscribe): %v", err)
	}

	if _, err := pub.Listen(addr); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if _, err := sub.Dial(addr); err != nil {
		t.Fatalf("Dial: %v", err)
	}

	if err := pub.Send(&Message{Body: []byte("sports.score 3-1")}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := pub.Send(&Message{Body: []byte("weather.sunny")}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	msg, err := sub.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if string(msg.Body) != "weather.sunny" {
		t.Fatalf("Recv body = %q, want %q (sports message should have been filtered)", msg.Body, "weather.sunny")
	}
}

func TestBusRing(t *testing.T) {
	addrAB := inprocAddr(t) + "-ab"
	addrBC := inprocAddr(t) + "-bc"
	addrCA := inprocAddr(t) + "-ca"

	a := NewBusSocket()
	defer a.Close()
	b := NewBusSocket()
	defer b.Close()
	c := NewBusSocket()
	defer c.Close()
	for _, s := range []*Socket{a, b, c} {
		mustSetTimeouts(t, s)
	}

	if _, err := a.Listen(addrAB); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if _, err := b.Dial(addrAB); err != nil {
		t.Fatalf("Dial: %v", err)
	}
	if _, err := b.Listen(addrBC); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if _, err := c.Dial(addrBC); err != nil {
		t.Fatalf("Dial: %v", err)
	}
	if _, err := c.Listen(addrCA); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if _, err := a.Dial(addrCA); err != nil {
		t.Fatalf("Dial: %v", err)
	}

	if err := a.Send(&Message{Body: []byte("hello ring")}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	msgB, err := b.Recv()
	if err != nil {
		t.Fatalf("b.Recv: %v", err)
	}
	if string(msgB.Body) != "hello ring" {
		t.Fatalf("b got %q, want %q", msgB.Body, "hello ring")
	}

	msgC, err := c.Recv()
	if err != nil {
		t.Fatalf("c.Recv: %v", err)
	}
	if string(msgC.Body) != "hello ring" {
		t.Fatalf("c got %q, want %q", msgC.Body, "hello ring")
	}
}

func TestSurveyRespondentRoundTrip(t *testing.T) {
	addr := inprocAddr(t)

	s := NewSurveyorSocket()
	defer s.Close()
	r := NewRespondentSocket()
	defer r.Close()
	mustSetTimeouts(t, s)
	mustSetTimeouts(t, r)
	if err := s.SetOption(surveyor.OptionSurveyDeadline, 500*time.Millisecond); err != nil {
		t.Fatalf("SetOption(survey deadline): %v", err)
	}

	if _, err := s.Listen(addr); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if _, err := r.Dial(addr); err != nil {
		t.Fatalf("Dial: %v", err)
	}

	respondentDone := make(chan error, 1)
	go func() {
		q, err := r.Recv()
		if err != nil {
			respondentDone <- err
			return
		}
		respondentDone <- r.Send(&Message{Header: q.Header, Body: []byte("42")})
	}()

	if err := s.Send(&Message{Body: []byte("answer?")}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	reply, err := s.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if string(reply.Body) != "42" {
		t.Fatalf("reply body = %q, want %q", reply.Body, "42")
	}
	if err := <-respondentDone; err != nil {
		t.Fatalf("respondent goroutine: %v", err)
	}
}

func TestBusRawModeExcludesOriginPipe(t *testing.T) {
	addrA := inprocAddr(t) + "-a"
	addrB := inprocAddr(t) + "-b"

	hub := NewBusSocket()
	defer hub.Close()
	spokeA := NewBusSocket()
	defer spokeA.Close()
	spokeB := NewBusSocket()
	defer spokeB.Close()
	for _, s := range []*Socket{hub, spokeA, spokeB} {
		mustSetTimeouts(t, s)
	}
	if err := hub.SetOption(OptionRaw, true); err != nil {
		t.Fatalf("SetOption(raw): %v", err)
	}

	if _, err := hub.Listen(addrA); err != nil {
		t.Fatalf("hub.Listen(a): %v", err)
	}
	if _, err := spokeA.Dial(addrA); err != nil {
		t.Fatalf("spokeA.Dial: %v", err)
	}
	if _, err := hub.Listen(addrB); err != nil {
		t.Fatalf("hub.Listen(b): %v", err)
	}
	if _, err := spokeB.Dial(addrB); err != nil {
		t.Fatalf("spokeB.Dial: %v", err)
	}

	if err := spokeA.Send(&Message{Body: []byte("from a")}); err != nil {
		t.Fatalf("spokeA.Send: %v", err)
	}
	received, err := hub.Recv()
	if err != nil {
		t.Fatalf("hub.Recv: %v", err)
	}

	// Rebroadcasting the message the hub just received, in raw mode,
	// must skip the pipe it arrived on (spokeA's) the way a device
	// relay needs to, and still reach every other pipe (spokeB's).
	if err := hub.Send(received); err != nil {
		t.Fatalf("hub.Send: %v", err)
	}

	msgB, err := spokeB.Recv()
	if err != nil {
		t.Fatalf("spokeB.Recv: %v", err)
	}
	if string(msgB.Body) != "from a" {
		t.Fatalf("spokeB got %q, want %q", msgB.Body, "from a")
	}

	if err := spokeA.SetOption(OptionRecvTimeout, 100*time.Millisecond); err != nil {
		t.Fatalf("SetOption(recv timeout) on spokeA: %v", err)
	}
	if _, err := spokeA.Recv(); err == nil {
		t.Fatal("expected spokeA to never see its own message echoed back by the raw hub")
	}
}

func TestSurveyDeadlineTimesOut(t *testing.T) {
	s := NewSurveyorSocket()
	defer s.Close()
	mustSetTimeouts(t, s)
	if err := s.SetOption(surveyor.OptionSurveyDeadline, 50*time.Millisecond); err != nil {
		t.Fatalf("SetOption(survey deadline): %v", err)
	}

	// No respondent is connected, so the survey's collection window closes
	// with nothing received.
	if err := s.Send(&Message{Body: []byte("anyone there?")}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := s.Recv(); err == nil {
		t.Fatal("expected Recv to fail once the survey deadline elapses")
	}
}
