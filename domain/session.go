package domain

import (
	"fmt"
	"log/slog"

	"github.com/ekuiter/variED-NG/contract"
	"github.com/ekuiter/variED-NG/errors"
	"github.com/ekuiter/variED-NG/protocol"
)

// ExportFormatJSON is the engine format used for initialization
// payloads.
const ExportFormatJSON = "json"

// Session is the live collaborative context for one artifact: the set
// of currently joined participants plus the dispatch of document-scoped
// messages into the engine. Created lazily, at most once per artifact,
// and never explicitly destroyed.
type Session struct {
	path         protocol.Path
	engine       contract.Engine
	participants map[*Participant]struct{}
	log          *slog.Logger
}

func NewSession(path protocol.Path, engine contract.Engine, log *slog.Logger) *Session {
	return &Session{
		path:         path,
		engine:       engine,
		participants: make(map[*Participant]struct{}),
		log:          log,
	}
}

func (s *Session) Path() protocol.Path {
	return s.path
}

// IsActive reports whether any participant is currently joined. An
// active session blocks removal of its artifact.
func (s *Session) IsActive() bool {
	return len(s.participants) > 0
}

func (s *Session) Participants() []*Participant {
	participants := make([]*Participant, 0, len(s.participants))
	for p := range s.participants {
		participants = append(participants, p)
	}
	return participants
}

// Join inserts the participant idempotently: re-joining is explicitly
// allowed and refreshes initialization state. The joiner receives the
// full document payload, the other members learn about the joiner, and
// the joiner learns about every other member.
func (s *Session) Join(p *Participant) error {
	s.log.Info("participant joins session", "participant", p.ID, "session", s.path)

	// Membership is recorded only once the document is known to render;
	// a failed join must not leave the session active.
	document, err := s.engine.Export(ExportFormatJSON)
	if err != nil {
		return fmt.Errorf("initializing %s: %w", s.path, err)
	}
	if _, ok := s.participants[p]; !ok {
		s.participants[p] = struct{}{}
		p.joined(s)
	}
	p.Send(protocol.NewInitialize(s.path, document))

	s.BroadcastToOthers(protocol.NewParticipantJoined(&s.path, p.Collaborator()), p)
	for other := range s.participants {
		if other != p {
			p.Send(protocol.NewParticipantJoined(&s.path, other.Collaborator()))
		}
	}
	return nil
}

// Leave removes an explicit, user-initiated membership. Unlike Remove
// it fails when the participant is not a member.
func (s *Session) Leave(p *Participant) error {
	if _, ok := s.participants[p]; !ok {
		return fmt.Errorf("%w: %s", errors.ErrAlreadyLeft, s.path)
	}
	s.log.Info("participant leaves session", "participant", p.ID, "session", s.path)
	s.remove(p)
	return nil
}

// Remove is the connection-close-triggered removal; it tolerates
// participants that never joined.
func (s *Session) Remove(p *Participant) {
	if _, ok := s.participants[p]; !ok {
		return
	}
	s.log.Info("participant removed from session", "participant", p.ID, "session", s.path)
	s.remove(p)
}

func (s *Session) remove(p *Participant) {
	delete(s.participants, p)
	p.left(s)
	s.Broadcast(protocol.NewParticipantLeft(s.path, p.Collaborator()))
}

// HandleMessage dispatches one document-scoped message from a joined
// participant. Exports are answered to the requester only; every
// applied mutation broadcasts the full re-rendered document to all
// members, the originator included, so all views converge.
func (s *Session) HandleMessage(p *Participant, message protocol.Decodable) error {
	if export, ok := message.(*protocol.ExportArtifact); ok {
		data, err := s.engine.Export(export.Format)
		if err != nil {
			return err
		}
		export.Data = string(data)
		p.Send(export)
		return nil
	}

	document, err := s.engine.Apply(message)
	if err != nil {
		return err
	}
	s.Broadcast(protocol.NewInitialize(s.path, document))
	return nil
}

// Broadcast enqueues the message for every current member.
func (s *Session) Broadcast(message protocol.Encodable) {
	for p := range s.participants {
		p.Send(message)
	}
}

func (s *Session) BroadcastToOthers(message protocol.Encodable, except *Participant) {
	for p := range s.participants {
		if p != except {
			p.Send(message)
		}
	}
}
