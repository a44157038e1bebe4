package core

import (
	"fmt"
	"sync"

	"github.com/spsock/sp/internal/wire"
	"github.com/spsock/sp/transport"
)

// PipeState mirrors the state machine in spec.md §4.2.
type PipeState int

const (
	PipeInitial PipeState = iota
	PipeHandshaking
	PipeActive
	PipeSending
	PipeReceiving
	PipeDead
)

// Pipe wraps one byte stream with framing, handshake, and independent
// send/receive progress tracks. All fields below the "owned by reactor"
// line are mutated only from the reactor goroutine; the two background
// goroutines (sendLoop, recvLoop) communicate exclusively by posting
// events to the reactor's shared event channel and by receiving work over
// sendReqCh/resumeRecvCh, so no pipe state is shared-mutated across
// goroutines.
type Pipe struct {
	ID         uint32
	EndpointID uint32
	SocketID   uint32
	conn       transport.Conn
	maxRecv    int64

	sendReqCh    chan sendRequest
	resumeRecvCh chan struct{}
	stopCh       chan struct{}
	stopOnce     sync.Once

	events chan<- event

	// owned by reactor goroutine only
	State      PipeState
	LocalProto uint16
	PeerProto  uint16
	CanSend    bool
	CanRecv    bool
	Visible    bool // admitted to the protocol's dispatch structures
	UserData   interface{}
}

type sendRequest struct {
	token  uint64
	header []byte
	body   []byte
}

func newPipe(id uint32, endpointID uint32, socketID uint32, conn transport.Conn, localProto uint16, maxRecv int64, events chan<- event) *Pipe {
	return &Pipe{
		ID:           id,
		EndpointID:   endpointID,
		SocketID:     socketID,
		conn:         conn,
		maxRecv:      maxRecv,
		LocalProto:   localProto,
		sendReqCh:    make(chan sendRequest, 1),
		resumeRecvCh: make(chan struct{}, 1),
		stopCh:       make(chan struct{}),
		events:       events,
		State:        PipeInitial,
	}
}

// start spawns the handshake goroutine; on success it chains into the
// send/recv loops. Called once, from the reactor goroutine, right after
// the pipe is constructed.
func (p *Pipe) start() {
	p.State = PipeHandshaking
	go p.runHandshake()
}

func (p *Pipe) runHandshake() {
	peerProto, err := wire.Handshake(p.conn, p.LocalProto)
	select {
	case <-p.stopCh:
		return
	default:
	}
	if err != nil {
		p.postEvent(event{kind: evHandshakeError, pipeID: p.ID, err: err})
		return
	}
	p.postEvent(event{kind: evHandshakeDone, pipeID: p.ID, peerProto: peerProto})
}

// activate is called by the reactor once the handshake succeeds and the
// protocol has accepted the peer. It starts the independent send/recv
// goroutines.
func (p *Pipe) activate() {
	p.State = PipeActive
	p.CanSend = true
	p.CanRecv = false
	go p.sendLoop()
	go p.recvLoop()
	// Kick off the first receive; subsequent ones wait for ResumeRecv.
	select {
	case p.resumeRecvCh <- struct{}{}:
	default:
	}
}

// Send hands one message to the pipe's write goroutine. token is echoed
// back on completion so the caller (a protocol) can tell which send this
// completion belongs to if it issued more than one in flight — in
// practice at most one send is outstanding per pipe at a time.
func (p *Pipe) Send(token uint64, header, body []byte) {
	p.State = PipeSending
	p.CanSend = false
	select {
	case p.sendReqCh <- sendRequest{token: token, header: header, body: body}:
	case <-p.stopCh:
	}
}

// ResumeRecv tells the pipe's read goroutine it may read the next frame.
// The protocol calls this once it has consumed the previous message,
// implementing the back-pressure spec.md §4.2 describes.
func (p *Pipe) ResumeRecv() {
	select {
	case p.resumeRecvCh <- struct{}{}:
	default:
	}
}

// Kill reports a protocol-level framing error (a malformed backtrace, for
// instance) that the peer can't be trusted to recover from. It routes
// through the same evRecvError path a wire-level read failure would, so
// the reactor tears the pipe down exactly as it would for any other dead
// connection.
func (p *Pipe) Kill(err error) {
	p.postEvent(event{kind: evRecvError, pipeID: p.ID, err: err})
}

func (p *Pipe) sendLoop() {
	for {
		select {
		case req := <-p.sendReqCh:
			err := wire.WriteFrame(p.conn, req.header, req.body)
			if err != nil {
				p.postEvent(event{kind: evSendError, pipeID: p.ID, err: err, token: req.token})
				return
			}
			p.postEvent(event{kind: evSendDone, pipeID: p.ID, token: req.token})
		case <-p.stopCh:
			return
		}
	}
}

func (p *Pipe) recvLoop() {
	for {
		select {
		case <-p.resumeRecvCh:
		case <-p.stopCh:
			return
		}
		raw, err := wire.ReadFrame(p.conn, p.maxRecv)
		if err != nil {
			p.postEvent(event{kind: evRecvError, pipeID: p.ID, err: err})
			return
		}
		p.postEvent(event{kind: evRecv, pipeID: p.ID, msg: &Message{Body: raw}})
	}
}

func (p *Pipe) postEvent(e event) {
	select {
	case p.events <- e:
	case <-p.stopCh:
	}
}

// die tears down both background goroutines and closes the connection.
// Called exactly once from the reactor goroutine.
func (p *Pipe) die() {
	if p.State == PipeDead {
		return
	}
	p.State = PipeDead
	p.stopOnce.Do(func() { close(p.stopCh) })
	_ = p.conn.Close()
}

func (p *Pipe) String() string {
	return fmt.Sprintf("pipe#%d(ep=%d,state=%d)", p.ID, p.EndpointID, p.State)
}

// noToken is a sentinel token value meaning "no token requested";
// protocols that don't need to correlate completions (PAIR, PUSH, PUB)
// can pass this.
const noToken uint64 = 0
