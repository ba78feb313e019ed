package runtime

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/ekuiter/variED-NG/contract"
	"github.com/ekuiter/variED-NG/domain"
	"github.com/ekuiter/variED-NG/engine"
	"github.com/ekuiter/variED-NG/errors"
	"github.com/ekuiter/variED-NG/protocol"
)

// Policy decides who may run administrative operations.
type Policy interface {
	AllowReset(p *domain.Participant) bool
	AllowRemoveArtifact(p *domain.Participant) bool
}

// PolicyOpen allows every administrative operation. Suitable only for
// trusted deployments.
type PolicyOpen struct{}

func (PolicyOpen) AllowReset(*domain.Participant) bool          { return true }
func (PolicyOpen) AllowRemoveArtifact(*domain.Participant) bool { return true }

// Hub owns all shared collaboration state and serializes every inbound
// message's full handling (decode, dispatch, apply, broadcast, enqueue)
// under one lock. This trades throughput for the guarantee that
// document mutation and broadcast appear atomic, so no participant ever
// observes an interleaved view. Transport writes stay inside the region
// because they are bounded, best-effort enqueue-and-flush operations.
type Hub struct {
	mu        sync.Mutex
	log       *slog.Logger
	registry  *Registry
	directory *Directory
	policy    Policy
}

func NewHub(log *slog.Logger, registry *Registry, directory *Directory, policy Policy) *Hub {
	if policy == nil {
		policy = PolicyOpen{}
	}
	return &Hub{
		log:       log,
		registry:  registry,
		directory: directory,
		policy:    policy,
	}
}

// Connect registers a transport under the given identity (nil mints a
// fresh one) and resyncs: flush anything queued, announce the
// participant to itself and list all known artifact paths.
func (h *Hub) Connect(transport contract.Transport, identity *uuid.UUID) (uuid.UUID, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	participant, err := h.registry.Connect(transport, identity)
	if err != nil {
		return uuid.UUID{}, err
	}
	participant.Send(protocol.NewParticipantJoined(nil, participant.Collaborator()))
	participant.Send(protocol.NewAddArtifactListing(h.directory.ArtifactPaths()))
	return participant.ID, nil
}

// Disconnect unbinds the identity's transport and removes it from all
// sessions, provided transport is still the bound one. The participant
// record survives for a later reconnect.
func (h *Hub) Disconnect(identity uuid.UUID, transport contract.Transport) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.registry.Disconnect(identity, transport)
}

// Route handles one raw inbound frame for the given identity. Decode
// and domain failures are reported to the sender only and never close
// the connection; an unknown identity is silently dropped (the
// participant was reset away while the socket stayed open).
func (h *Hub) Route(identity uuid.UUID, frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	participant := h.registry.Participant(identity)
	if participant == nil {
		return
	}
	message, err := protocol.Decode(frame)
	if err != nil {
		h.log.Debug("rejecting frame", "participant", identity, "err", err)
		participant.Send(protocol.NewError(err))
		return
	}
	h.log.Info("received message", "participant", identity, "kind", message.MessageKind())
	if err := h.dispatch(participant, message); err != nil {
		h.log.Debug("message failed", "participant", identity, "kind", message.MessageKind(), "err", err)
		participant.Send(protocol.NewError(err))
	}
}

// dispatch is the per-participant state machine: rules are evaluated in
// order, first match wins.
func (h *Hub) dispatch(p *domain.Participant, message protocol.Decodable) error {
	switch m := message.(type) {
	case *protocol.Reset:
		if !h.policy.AllowReset(p) {
			return fmt.Errorf("%w: reset", errors.ErrNotAllowed)
		}
		h.log.Info("resetting server", "requested_by", p.ID)
		return h.reset()

	case *protocol.SetProfile:
		h.log.Info("setting profile", "participant", p.ID, "name", m.Name)
		p.SetName(m.Name)
		p.Send(protocol.NewParticipantJoined(nil, p.Collaborator()))
		for _, session := range p.Sessions() {
			path := session.Path()
			session.BroadcastToOthers(protocol.NewParticipantJoined(&path, p.Collaborator()), p)
		}
		return nil
	}

	path := message.MessagePath()
	if path == nil {
		return errors.ErrMissingArtifactPath
	}

	switch m := message.(type) {
	case *protocol.AddArtifact:
		return h.addArtifact(*path, m.Source)

	case *protocol.RemoveArtifact:
		return h.removeArtifact(p, *path)

	case *protocol.JoinRequest:
		session, err := h.session(*path)
		if err != nil {
			return err
		}
		return session.Join(p)

	case *protocol.LeaveRequest:
		session, err := h.session(*path)
		if err != nil {
			return err
		}
		return session.Leave(p)
	}

	// Document-scoped messages reach a session only through an existing
	// membership.
	key := domain.KeyOf(*path)
	for _, session := range p.Sessions() {
		if domain.KeyOf(session.Path()) == key {
			return session.HandleMessage(p, message)
		}
	}
	return fmt.Errorf("%w: %s", errors.ErrNotJoined, path)
}

func (h *Hub) addArtifact(path protocol.Path, source string) error {
	if source == "" {
		source = EmptyTemplate()
	}
	artifact, err := h.directory.AddArtifact(path, engine.FromSource(source))
	if err != nil {
		return err
	}
	h.registry.Broadcast(protocol.NewAddArtifactListing([]protocol.Path{artifact.Path()}))
	return nil
}

func (h *Hub) removeArtifact(p *domain.Participant, path protocol.Path) error {
	artifact := h.directory.Artifact(path)
	if artifact == nil {
		return fmt.Errorf("%w: %s", errors.ErrArtifactNotFound, path)
	}
	if !h.policy.AllowRemoveArtifact(p) {
		return fmt.Errorf("%w: remove artifact", errors.ErrNotAllowed)
	}
	if err := h.directory.RemoveArtifact(artifact); err != nil {
		return err
	}
	h.registry.Broadcast(protocol.NewRemoveArtifact(artifact.Path()))
	return nil
}

func (h *Hub) session(path protocol.Path) (*domain.Session, error) {
	artifact := h.directory.Artifact(path)
	if artifact == nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrArtifactNotFound, path)
	}
	return artifact.Session()
}

// reset wipes all process-wide state and reseeds default content. It is
// deliberately broadcast-free: every connected participant must notice
// the state loss on its own, which is acceptable only in trusted
// contexts.
func (h *Hub) reset() error {
	h.registry.Reset()
	return h.directory.Reset()
}

// Reset is the administrative entry point used by tests and tooling.
func (h *Hub) Reset() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reset()
}

// Stats snapshots live counters for the monitor worker and info page.
func (h *Hub) Stats() map[string]any {
	h.mu.Lock()
	defer h.mu.Unlock()
	return map[string]any{
		"participants":    h.registry.Count(),
		"artifacts":       h.directory.ArtifactCount(),
		"active_sessions": h.directory.ActiveSessionCount(),
		"queued_messages": h.registry.QueuedMessages(),
	}
}
