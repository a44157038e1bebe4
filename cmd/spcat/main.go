// Command spcat is a macat-workalike: a small command-line client that
// opens one scalability-protocol socket, dials or listens on a URL, and
// shuttles lines between the socket and stdin/stdout.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spsock/sp"
)

type protoFlag struct {
	name string
	open func() *sp.Socket
}

var protocols = []protoFlag{
	{"pair", sp.NewPairSocket},
	{"bus", sp.NewBusSocket},
	{"star", sp.NewStarSocket},
	{"pub", sp.NewPubSocket},
	{"sub", sp.NewSubSocket},
	{"push", sp.NewPushSocket},
	{"pull", sp.NewPullSocket},
	{"req", sp.NewReqSocket},
	{"rep", sp.NewRepSocket},
	{"surveyor", sp.NewSurveyorSocket},
	{"respondent", sp.NewRespondentSocket},
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "spcat:", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("spcat", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var proto string
	fs.Func("proto", "protocol name (pair, bus, star, pub, sub, push, pull, req, rep, surveyor, respondent)", func(v string) error {
		proto = v
		return nil
	})
	dial := fs.String("dial", "", "URL to dial")
	listen := fs.String("listen", "", "URL to listen on")
	interval := fs.Duration("interval", 0, "if set, pause this long after sending each line of stdin")
	recvOnly := fs.Bool("recv-only", false, "only receive, never send")
	sendOnly := fs.Bool("send-only", false, "only send, never receive")
	subscribe := fs.String("subscribe", "", "subscription prefix (SUB only)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	var open func() *sp.Socket
	for _, p := range protocols {
		if p.name == proto {
			open = p.open
			break
		}
	}
	if open == nil {
		return fmt.Errorf("unknown or missing -proto (got %q)", proto)
	}

	sock := open()
	defer sock.Close()

	if proto == "sub" {
		if err := sock.SetOption("subscribe", []byte(*subscribe)); err != nil {
			return err
		}
	}

	switch {
	case *dial != "":
		if _, err := sock.Dial(*dial); err != nil {
			return fmt.Errorf("dial %s: %w", *dial, err)
		}
	case *listen != "":
		if _, err := sock.Listen(*listen); err != nil {
			return fmt.Errorf("listen %s: %w", *listen, err)
		}
	default:
		return fmt.Errorf("one of -dial or -listen is required")
	}

	errc := make(chan error, 2)
	if !*recvOnly {
		go func() { errc <- sendLoop(sock, stdin, *interval) }()
	}
	if !*sendOnly {
		go func() { errc <- recvLoop(sock, stdout) }()
	}
	return <-errc
}

func sendLoop(sock *sp.Socket, stdin io.Reader, interval time.Duration) error {
	scanner := bufio.NewScanner(stdin)
	for scanner.Scan() {
		if err := sock.Send(&sp.Message{Body: append([]byte(nil), scanner.Bytes()...)}); err != nil {
			return err
		}
		if interval > 0 {
			time.Sleep(interval)
		}
	}
	return scanner.Err()
}

func recvLoop(sock *sp.Socket, stdout io.Writer) error {
	for {
		msg, err := sock.Recv()
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(stdout, string(msg.Body)); err != nil {
			return err
		}
	}
}
