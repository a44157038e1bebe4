package main

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestRunRequiresDialOrListen(t *testing.T) {
	err := run([]string{"-proto", "pair"}, strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected an error when neither -dial nor -listen is given")
	}
}

func TestRunRejectsUnknownProtocol(t *testing.T) {
	err := run([]string{"-proto", "nope", "-dial", "inproc://x"}, strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected an error for an unknown protocol")
	}
}

func TestRunPairRoundTrip(t *testing.T) {
	addr := "inproc://spcat-pair-roundtrip"

	listenerOut := &bytes.Buffer{}
	dialerOut := &bytes.Buffer{}
	listenerErrc := make(chan error, 1)
	dialerErrc := make(chan error, 1)

	go func() {
		listenerErrc <- run([]string{"-proto", "pair", "-listen", addr, "-recv-only"},
			strings.NewReader(""), listenerOut, &bytes.Buffer{})
	}()

	// Give the listener a moment to bind before the dialer connects.
	time.Sleep(20 * time.Millisecond)

	go func() {
		dialerErrc <- run([]string{"-proto", "pair", "-dial", addr, "-send-only"},
			strings.NewReader("hello from spcat\n"), dialerOut, &bytes.Buffer{})
	}()

	select {
	case err := <-dialerErrc:
		if err != nil {
			t.Fatalf("dialer run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the dialer side to finish sending")
	}

	deadline := time.After(2 * time.Second)
	for listenerOut.Len() == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for the listener side to receive a line")
		case <-time.After(10 * time.Millisecond):
		}
	}
	if got := strings.TrimSpace(listenerOut.String()); got != "hello from spcat" {
		t.Fatalf("listener received %q, want %q", got, "hello from spcat")
	}
}
