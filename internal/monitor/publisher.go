// Package monitor implements the core's half of the monitoring
// protocol from spec.md §6: the core is a pure publisher of
// length-prefixed framed messages; the TCP server that receives and
// fans them out to an operator CLI is an external collaborator and is
// not built here.
package monitor

import (
	"encoding/binary"
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/xrparb/core/internal/domain"
)

// MessageKind tags the payload that follows a frame header.
type MessageKind uint8

const (
	KindPremiumUpdate MessageKind = iota + 1
	KindDualOrderResult
	KindTransferResult
	KindAlert
	KindHeartbeat
)

// frameHeader is the fixed-size prefix before every message: a 4-byte
// big-endian payload length followed by a 1-byte kind tag.
type frameHeader struct {
	Length uint32
	Kind   MessageKind
}

const headerSize = 5 // 4-byte length + 1-byte kind

// Publisher dials the external monitoring server and writes framed JSON
// messages to it. On a write failure it closes the connection and drops
// the message; the next Publish redials, with no backoff between
// attempts. While the server is unreachable each Publish makes one dial
// attempt (up to 3 s) and drops its message if that fails; a message is
// never retried.
type Publisher struct {
	addr string
	log  zerolog.Logger

	mu   sync.Mutex
	conn net.Conn

	Dropped uint64
}

// NewPublisher builds a Publisher targeting addr. The first connection
// attempt is lazy — it happens on the first Publish call — so a
// publisher can be constructed before the monitoring server is up.
func NewPublisher(addr string, log zerolog.Logger) *Publisher {
	return &Publisher{addr: addr, log: log}
}

// Publish frames and writes one message. v is marshaled as JSON; the
// frame is [4-byte big-endian length][1-byte kind][JSON payload].
func (p *Publisher) Publish(kind MessageKind, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return domain.WrapError(domain.ErrParseError, "marshal monitor message", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil {
		if err := p.dialLocked(); err != nil {
			p.Dropped++
			return err
		}
	}

	frame := make([]byte, headerSize+len(payload))
	binary.BigEndian.PutUint32(frame[0:4], uint32(len(payload)))
	frame[4] = byte(kind)
	copy(frame[headerSize:], payload)

	if _, err := p.conn.Write(frame); err != nil {
		p.conn.Close()
		p.conn = nil
		p.Dropped++
		return domain.WrapError(domain.ErrConnectionFailed, "write monitor frame", err)
	}
	return nil
}

func (p *Publisher) dialLocked() error {
	conn, err := net.DialTimeout("tcp", p.addr, 3*time.Second)
	if err != nil {
		return domain.WrapError(domain.ErrConnectionFailed, "dial monitor server", err)
	}
	p.conn = conn
	return nil
}

// PublishPremiumUpdate reports the current best opportunity.
func (p *Publisher) PublishPremiumUpdate(opp domain.Opportunity) {
	if err := p.Publish(KindPremiumUpdate, opp); err != nil {
		p.log.Debug().Err(err).Msg("dropped premium update")
	}
}

// PublishDualOrderResult reports one dual-leg execution outcome.
func (p *Publisher) PublishDualOrderResult(result domain.DualOrderResult) {
	if err := p.Publish(KindDualOrderResult, result); err != nil {
		p.log.Debug().Err(err).Msg("dropped dual order result")
	}
}

// PublishTransferResult reports one transfer status transition.
func (p *Publisher) PublishTransferResult(result domain.TransferResult) {
	if err := p.Publish(KindTransferResult, result); err != nil {
		p.log.Debug().Err(err).Msg("dropped transfer result")
	}
}

// PublishHeartbeat reports basic liveness, sent on a fixed interval by
// the caller.
func (p *Publisher) PublishHeartbeat(uptime time.Duration) {
	if err := p.Publish(KindHeartbeat, map[string]any{"uptime_seconds": uptime.Seconds()}); err != nil {
		p.log.Debug().Err(err).Msg("dropped heartbeat")
	}
}

// Close releases the underlying connection, if any.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}
