package domain

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/ekuiter/variED-NG/contract"
	"github.com/ekuiter/variED-NG/protocol"
)

// Participant is one stable collaborating identity, independent of its
// current transport connection. It survives disconnects: the transport
// is unbound but the outgoing queue and session memberships persist
// until reconnect or process reset.
//
// Participants are only ever touched from inside the hub's
// mutual-exclusion region, so they carry no locking of their own.
type Participant struct {
	ID uuid.UUID

	name      string
	transport contract.Transport
	queue     []protocol.Encodable
	// queueLimit bounds the queue; the oldest message is dropped on
	// overflow. Any gap is healed by the full Initialize resync on the
	// next join. Zero means unbounded.
	queueLimit int
	sessions   map[*Session]struct{}
	log        *slog.Logger
}

func NewParticipant(id uuid.UUID, name string, transport contract.Transport, queueLimit int, log *slog.Logger) *Participant {
	return &Participant{
		ID:         id,
		name:       name,
		transport:  transport,
		queueLimit: queueLimit,
		sessions:   make(map[*Session]struct{}),
		log:        log,
	}
}

func (p *Participant) Name() string {
	return p.name
}

func (p *Participant) SetName(name string) {
	p.name = name
}

// Collaborator is the exposed shape of this participant for presence
// messages.
func (p *Participant) Collaborator() protocol.Collaborator {
	return protocol.Collaborator{ID: p.ID.String(), Name: p.name}
}

// Bind attaches a fresh transport after a reconnect.
func (p *Participant) Bind(transport contract.Transport) {
	p.transport = transport
}

// Unbind detaches the transport on connection close. Queue and session
// memberships stay untouched.
func (p *Participant) Unbind() {
	p.transport = nil
}

func (p *Participant) Connected() bool {
	return p.transport != nil
}

// BoundTo reports whether transport is the currently bound one. A
// reconnect replaces the binding; the replaced connection's close must
// then leave the participant untouched.
func (p *Participant) BoundTo(transport contract.Transport) bool {
	return p.transport == transport
}

// Send enqueues one message and flushes. Per-participant delivery order
// is FIFO; a failed or absent transport leaves the remainder queued for
// the next opportunity.
func (p *Participant) Send(message protocol.Encodable) {
	if p.queueLimit > 0 && len(p.queue) >= p.queueLimit {
		dropped := p.queue[0]
		p.queue = p.queue[1:]
		p.log.Warn("outgoing queue full, dropping oldest message",
			"participant", p.ID, "limit", p.queueLimit, "dropped", dropped.MessageKind())
	}
	p.queue = append(p.queue, message)
	p.FlushPending()
}

// FlushPending writes queued messages in order until the queue is empty
// or a write fails. A failure stops the flush; remaining messages are
// retried on the next enqueue or reconnect.
func (p *Participant) FlushPending() {
	for len(p.queue) > 0 {
		if p.transport == nil {
			return
		}
		frame, err := protocol.Encode(p.queue[0])
		if err != nil {
			p.log.Error("dropping unencodable message",
				"participant", p.ID, "kind", p.queue[0].MessageKind(), "err", err)
			p.queue = p.queue[1:]
			continue
		}
		if err := p.transport.Send(frame); err != nil {
			p.log.Debug("transport write failed, keeping queue",
				"participant", p.ID, "queued", len(p.queue), "err", err)
			return
		}
		p.queue = p.queue[1:]
	}
}

func (p *Participant) QueueLen() int {
	return len(p.queue)
}

// Sessions snapshots the sessions this participant has joined.
func (p *Participant) Sessions() []*Session {
	return lo.Keys(p.sessions)
}

// Member reports whether this participant has joined session.
func (p *Participant) Member(session *Session) bool {
	_, ok := p.sessions[session]
	return ok
}

// LeaveAll removes the participant from every joined session,
// broadcasting departures. Used for connection-close-triggered removal,
// which must tolerate any state.
func (p *Participant) LeaveAll() {
	for session := range p.sessions {
		session.Remove(p)
	}
}

func (p *Participant) joined(session *Session) {
	p.sessions[session] = struct{}{}
}

func (p *Participant) left(session *Session) {
	delete(p.sessions, session)
}
