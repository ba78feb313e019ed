// Package runtime wires the collaboration core to the process: the
// participant registry, the project/artifact directory, the hub that
// serializes all message handling, and the websocket adapter.
package runtime

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ekuiter/variED-NG/contract"
	"github.com/ekuiter/variED-NG/domain"
	"github.com/ekuiter/variED-NG/errors"
	"github.com/ekuiter/variED-NG/protocol"
)

// Registry is the process-wide directory of participants by identity.
// A participant record outlives its connections: disconnecting unbinds
// the transport but keeps the record, its queue and memberships for a
// later reconnect. Only an explicit reset forgets participants.
//
// All methods must be called inside the hub's mutual-exclusion region.
type Registry struct {
	log          *slog.Logger
	participants map[uuid.UUID]*domain.Participant
	queueLimit   int
}

func NewRegistry(log *slog.Logger, queueLimit int) *Registry {
	return &Registry{
		log:          log,
		participants: make(map[uuid.UUID]*domain.Participant),
		queueLimit:   queueLimit,
	}
}

// Connect binds a transport to an identity. A nil identity mints a new
// participant with a generated display name; a known identity rebinds
// the existing record and flushes whatever queued up while it was away;
// an unknown identity is rejected.
func (r *Registry) Connect(transport contract.Transport, identity *uuid.UUID) (*domain.Participant, error) {
	if identity != nil {
		participant, ok := r.participants[*identity]
		if !ok {
			return nil, fmt.Errorf("%w: %s", errors.ErrUnknownIdentity, identity)
		}
		participant.Bind(transport)
		participant.FlushPending()
		r.log.Info("participant reconnected", "participant", participant.ID)
		return participant, nil
	}

	id := uuid.New()
	participant := domain.NewParticipant(id, domain.GenerateDisplayName(), transport, r.queueLimit, r.log)
	r.participants[id] = participant
	r.log.Info("participant registered", "participant", id, "name", participant.Name())
	return participant, nil
}

// Disconnect unbinds the transport and removes the participant from
// every session it had joined, broadcasting departures. The record
// itself is retained. A close arriving for a transport that was already
// replaced by a reconnect is ignored.
func (r *Registry) Disconnect(identity uuid.UUID, transport contract.Transport) {
	participant, ok := r.participants[identity]
	if !ok {
		return
	}
	if !participant.BoundTo(transport) {
		r.log.Debug("ignoring stale disconnect", "participant", identity)
		return
	}
	participant.Unbind()
	participant.LeaveAll()
	r.log.Info("participant disconnected", "participant", identity)
}

// Participant looks up one identity, returning nil when unknown.
func (r *Registry) Participant(identity uuid.UUID) *domain.Participant {
	return r.participants[identity]
}

// Broadcast enqueues the message for every known participant, connected
// or not. Order across participants is unspecified; per-participant
// order is FIFO.
func (r *Registry) Broadcast(message protocol.Encodable) {
	for _, participant := range r.participants {
		participant.Send(message)
	}
}

// Reset forgets all participants. Open connections keep their sockets
// but route to nobody until they reconnect.
func (r *Registry) Reset() {
	r.participants = make(map[uuid.UUID]*domain.Participant)
}

func (r *Registry) Count() int {
	return len(r.participants)
}

// QueuedMessages sums undelivered messages across all participants.
func (r *Registry) QueuedMessages() int {
	total := 0
	for _, participant := range r.participants {
		total += participant.QueueLen()
	}
	return total
}
