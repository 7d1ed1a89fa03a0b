package gdbstub

import (
	"fmt"
	"net"
	"time"
)

// NetError is Network_handler's error taxonomy (§4.14).
type NetError int

const (
	NetErrInternalFail NetError = iota
	NetErrConnectionFault
	NetErrProtocolFail
	NetErrProtocolRetry
	NetErrDecodeFail
)

const (
	maxRetryCount = 5
	networkTimeout = 5 * time.Second
	pollInterval   = 100 * time.Millisecond
)

// Handler wraps a TCP listener, a single accepted connection, packet
// framing, and command parsing behind send/receive calls that handle
// their own `+`/`-` acknowledgement (§4.14 "Network_handler").
// Grounded on original_source/lib/gdb-stub/network.cpp, restyled after
// the teacher's plain net.Listen/net.Dial usage rather than an ASIO
// io_context: Go's net.Conn deadlines take the place of the polling
// read loop the original needs for its non-blocking timeout budget.
type Handler struct {
	listener net.Listener
	conn     net.Conn
	decoder  Decoder
}

// NewHandler starts listening on port, matching the original's
// constructor-time bind (accept happens lazily on first send/receive).
func NewHandler(port uint16) (*Handler, error) {
	l, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, err
	}
	return &Handler{listener: l}, nil
}

func (h *Handler) setupSocket() error {
	if h.conn != nil {
		return nil
	}
	conn, err := h.listener.Accept()
	if err != nil {
		return err
	}
	h.conn = conn
	return nil
}

// getPacketFromDecoder blocks (bounded by networkTimeout) until a full
// packet is available, feeding raw reads into the decoder as they
// arrive.
func (h *Handler) getPacketFromDecoder() (string, NetError, bool) {
	return h.getPacketFromDecoderWithin(networkTimeout)
}

func (h *Handler) getPacketFromDecoderWithin(budget time.Duration) (string, NetError, bool) {
	deadline := time.Now().Add(budget)
	buf := make([]byte, 1024)

	step := pollInterval
	if budget < step {
		step = budget
	}

	for !h.decoder.NewPacketAvailable() {
		h.conn.SetReadDeadline(time.Now().Add(step))
		n, err := h.conn.Read(buf)
		if n > 0 {
			h.decoder.Push(string(buf[:n]))
			continue
		}
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				if time.Now().After(deadline) {
					return "", NetErrProtocolRetry, false
				}
				continue
			}
			return "", NetErrConnectionFault, false
		}
	}

	body, decErr, ok := h.decoder.Pop()
	if !ok {
		switch decErr {
		case ErrBadChecksum, ErrBadPacket:
			return "", NetErrProtocolRetry, false
		case ErrBufferOverflow:
			return "", NetErrProtocolFail, false
		default:
			return "", NetErrInternalFail, false
		}
	}
	return body, 0, true
}

// Send frames and sends response, retrying on NAK or a recoverable
// decode error up to maxRetryCount times (§4.14).
func (h *Handler) Send(response Response) NetError {
	if h.conn == nil {
		if err := h.setupSocket(); err != nil {
			h.Close()
			return NetErrConnectionFault
		}
	}
	data := Encode(response.ToString())

	for i := 0; i < maxRetryCount; i++ {
		if _, err := h.conn.Write([]byte(data)); err != nil {
			h.Close()
			return NetErrConnectionFault
		}

		body, netErr, ok := h.getPacketFromDecoder()
		if !ok {
			if netErr == NetErrProtocolRetry {
				continue
			}
			return netErr
		}

		cmd, ok := Parse(body)
		if !ok || cmd.Kind != CmdAcknowledge {
			return NetErrProtocolFail
		}
		if !cmd.AckSuccess {
			continue
		}
		return 0
	}
	return NetErrProtocolFail
}

// Receive waits for the next command, replying `+`/`-` as it goes
// (§4.14). ok is false on error; check the returned NetError.
func (h *Handler) Receive() (Command, NetError, bool) {
	if h.conn == nil {
		if err := h.setupSocket(); err != nil {
			h.Close()
			return Command{}, NetErrConnectionFault, false
		}
	}

	for i := 0; i < maxRetryCount; i++ {
		body, netErr, ok := h.getPacketFromDecoder()
		if !ok {
			if netErr == NetErrProtocolRetry {
				if _, err := h.conn.Write([]byte("-")); err != nil {
					h.Close()
					return Command{}, NetErrConnectionFault, false
				}
				continue
			}
			return Command{}, netErr, false
		}

		if _, err := h.conn.Write([]byte("+")); err != nil {
			h.Close()
			return Command{}, NetErrConnectionFault, false
		}

		cmd, ok := Parse(body)
		if !ok {
			return Command{}, NetErrDecodeFail, false
		}
		return cmd, 0, true
	}
	return Command{}, NetErrProtocolFail, false
}

// asyncPollInterval is how often async_run's outer loop checks for a
// completed worker versus an incoming packet (§5 "network poller").
const asyncPollInterval = 50 * time.Millisecond

// PollReceive makes one bounded, non-retrying attempt to read the next
// command, for use by the async run loop alongside a running worker
// (§4.15 "async_run"). Unlike Receive, a timeout is reported as
// NetErrProtocolRetry rather than exhausting a five-attempt budget --
// the caller is expected to call PollReceive again on its own cadence.
func (h *Handler) PollReceive(budget time.Duration) (Command, NetError, bool) {
	if h.conn == nil {
		if err := h.setupSocket(); err != nil {
			h.Close()
			return Command{}, NetErrConnectionFault, false
		}
	}

	body, netErr, ok := h.getPacketFromDecoderWithin(budget)
	if !ok {
		return Command{}, netErr, false
	}

	if _, err := h.conn.Write([]byte("+")); err != nil {
		h.Close()
		return Command{}, NetErrConnectionFault, false
	}

	cmd, ok := Parse(body)
	if !ok {
		return Command{}, NetErrDecodeFail, false
	}
	return cmd, 0, true
}

// Close forcefully drops the current connection, if any.
func (h *Handler) Close() {
	if h.conn == nil {
		return
	}
	h.conn.Close()
	h.conn = nil
}
