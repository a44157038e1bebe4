package core

// Option names recognized directly by the socket backend; anything else
// passed to Session.SetOption/GetOption is forwarded to the socket's
// Protocol, which owns its own pattern-specific options (SUB's
// subscription list, SURVEYOR's deadline, REQ's resend interval, ...).
const (
	OptionSendTimeout       = "send-timeout"
	OptionRecvTimeout       = "recv-timeout"
	OptionRecvMaxSize       = "recv-max-size"
	OptionReconnectInterval = "reconnect-interval"
	OptionTCPNoDelay        = "tcp-nodelay"
)

// OptionRaw switches a protocol between its normal ("cooked") behavior
// and device-forwarding ("raw") behavior, per spec.md §4.3.7: a raw
// socket does not generate or consume request/survey correlation ids —
// it only appends/strips the pipe-of-origin hop a backtrace needs to
// retrace its path — so that chaining two raw sockets together with
// Device builds a transparent multi-hop request/reply or survey
// topology. REQ, SURVEYOR, BUS and STAR recognize this option; REP and
// RESPONDENT are already backtrace-transparent in both modes and accept
// it as a no-op for symmetry.
const OptionRaw = "raw"
