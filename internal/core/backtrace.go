package core

import "encoding/binary"

// This file implements the 4-byte header-frame manipulation spec.md §6
// describes for REQ/REP and SURVEYOR/RESPONDENT: a correlation id (request
// id or survey id) is carried as a big-endian uint32 with its high bit set,
// acting as both an opaque token and a backtrace terminator; a device hop
// prepends its own pipe id (no high bit) ahead of that so replies retrace
// the same path the request took.

const idMark = uint32(1) << 31

// EncodeCorrelationID packs id with its terminator bit set into 4 BE
// bytes, the frame REQ.send prepends to a request's body and
// SURVEYOR.send prepends to a survey's body.
func EncodeCorrelationID(id uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], id|idMark)
	return b[:]
}

// DecodeID reads a 4-byte big-endian frame back into a uint32, masking off
// the terminator bit so callers get back the plain correlation id they
// allocated.
func DecodeID(frame []byte) uint32 {
	return binary.BigEndian.Uint32(frame) &^ idMark
}

// isTerminator reports whether a 4-byte frame's high bit is set, marking
// it as the last (and originating) frame of a backtrace.
func isTerminator(frame []byte) bool {
	return frame[0]&0x80 != 0
}

// encodePipeID packs a pipe id as a plain (non-terminating) 4-byte BE
// frame, the hop REP/RESPONDENT prepend to a captured backtrace's header
// on receive so Send later knows which pipe to reply on.
func encodePipeID(id uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], id)
	return b[:]
}

// PopBacktrace moves 4-byte frames from the front of body onto a new
// header slice until it moves one with its terminator bit set (inclusive),
// per REP/RESPONDENT's receive-side header manipulation. ok is false if
// body runs out before a terminator frame is found, meaning the peer sent
// a malformed request — the caller should kill the pipe.
func PopBacktrace(body []byte) (frames []byte, rest []byte, ok bool) {
	for len(body) >= 4 {
		frame := body[:4]
		frames = append(frames, frame...)
		body = body[4:]
		if isTerminator(frame) {
			return frames, body, true
		}
	}
	return nil, nil, false
}

// CaptureBacktrace builds the header REP/RESPONDENT retains across a
// receive: the id of the pipe the request arrived on, followed by the
// frames PopBacktrace pulled off the body.
func CaptureBacktrace(pipeID uint32, requestFrames []byte) []byte {
	header := make([]byte, 0, 4+len(requestFrames))
	header = append(header, encodePipeID(pipeID)...)
	header = append(header, requestFrames...)
	return header
}

// SplitBacktrace is the inverse CaptureBacktrace's consumer, Send, needs:
// it reads the destination pipe id back off the front of a captured
// backtrace and returns the remaining frames, which get prepended to the
// outgoing body so the frames travel back over the wire.
func SplitBacktrace(header []byte) (pipeID uint32, wireFrames []byte, ok bool) {
	if len(header) < 4 {
		return 0, nil, false
	}
	return binary.BigEndian.Uint32(header[:4]), header[4:], true
}
