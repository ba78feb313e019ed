package e2e

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/ekuiter/variED-NG/protocol"
)

type testCollaborationSuite struct {
	BaseSocketSuite
}

func TestCollaborationSuite(t *testing.T) {
	suite.Run(t, &testCollaborationSuite{})
}

// resetServer wipes all server state through a throwaway connection so
// every test starts from a clean slate.
func (s *testCollaborationSuite) resetServer() {
	janitor, _ := s.Handshake("Janitor resets the server", "")
	janitor.Send(`{"type":"RESET"}`)
	// The reset produces no reply; give the server a moment to apply it.
	time.Sleep(100 * time.Millisecond)
	janitor.Close()
}

func (s *testCollaborationSuite) TestFullCollaborationFlow() {
	s.resetServer()

	var alice, bob *socketClient
	var bobID string
	path := `{"project":"demo","artifact":"model"}`

	s.Run("Step 1: Alice connects and creates an artifact", func() {
		alice, _ = s.Handshake("Alice connects", "")
		alice.Send(`{"type":"ADD_ARTIFACT","artifactPath":` + path + `}`)

		listing := alice.Expect(protocol.KindAddArtifact)
		s.Require().Equal([]protocol.Path{{Project: "demo", Artifact: "model"}}, listing.Paths)
	})

	s.Run("Step 2: Bob connects and sees the artifact", func() {
		bob = s.Dial("Bob connects", "")
		joined := bob.Expect(protocol.KindParticipantJoined)
		bobID = joined.Participant.ID

		listing := bob.Expect(protocol.KindAddArtifact)
		s.Require().Contains(listing.Paths, protocol.Path{Project: "demo", Artifact: "model"})
	})

	s.Run("Step 3: Both join the session", func() {
		alice.Send(`{"type":"JOIN_REQUEST","artifactPath":` + path + `}`)
		initialize := alice.Expect(protocol.KindInitialize)
		s.Require().NotEmpty(initialize.Document)

		bob.Send(`{"type":"JOIN_REQUEST","artifactPath":` + path + `}`)
		bob.Expect(protocol.KindInitialize)

		// Presence flows both ways.
		presence := bob.Expect(protocol.KindParticipantJoined)
		s.Require().NotEqual(bobID, presence.Participant.ID)
		presence = alice.Expect(protocol.KindParticipantJoined)
		s.Require().Equal(bobID, presence.Participant.ID)
	})

	s.Run("Step 4: An applied operation converges on both clients", func() {
		alice.Send(`{"type":"FEATURE_RENAME","artifactPath":` + path + `,"featureID":"f1","name":"Converged"}`)

		aliceDoc := alice.Expect(protocol.KindInitialize).Document
		bobDoc := bob.Expect(protocol.KindInitialize).Document
		s.Require().JSONEq(string(aliceDoc), string(bobDoc))
		s.Require().Contains(string(aliceDoc), "Converged")
	})

	s.Run("Step 5: Undo converges the same way", func() {
		bob.Send(`{"type":"UNDO","artifactPath":` + path + `}`)

		aliceDoc := alice.Expect(protocol.KindInitialize).Document
		bobDoc := bob.Expect(protocol.KindInitialize).Document
		s.Require().JSONEq(string(aliceDoc), string(bobDoc))
		s.Require().NotContains(string(aliceDoc), "Converged")
	})

	s.Run("Step 6: Export answers the requester only", func() {
		alice.Send(`{"type":"EXPORT_ARTIFACT","artifactPath":` + path + `,"format":"xml"}`)
		export := alice.Expect(protocol.KindExportArtifact)
		s.Require().Contains(export.Data, "<featureModel")
	})

	s.Run("Step 7: Removal is blocked while the session is in process", func() {
		alice.Send(`{"type":"REMOVE_ARTIFACT","artifactPath":` + path + `}`)
		failure := alice.Expect(protocol.KindError)
		s.Require().Contains(failure.Error, "in process")
	})

	s.Run("Step 8: After everyone leaves the artifact can be removed", func() {
		bob.Send(`{"type":"LEAVE_REQUEST","artifactPath":` + path + `}`)
		left := alice.Expect(protocol.KindParticipantLeft)
		s.Require().Equal(bobID, left.Participant.ID)

		alice.Send(`{"type":"LEAVE_REQUEST","artifactPath":` + path + `}`)
		alice.Send(`{"type":"REMOVE_ARTIFACT","artifactPath":` + path + `}`)

		removal := alice.Expect(protocol.KindRemoveArtifact)
		s.Require().Equal(&protocol.Path{Project: "demo", Artifact: "model"}, removal.Path)
		bob.Expect(protocol.KindRemoveArtifact)
	})

	alice.Close()
	bob.Close()
}

func (s *testCollaborationSuite) TestReconnectReceivesMissedMessages() {
	s.resetServer()

	away, awayID := s.Handshake("Away client connects", "")
	active, _ := s.Handshake("Active client connects", "")

	s.Run("Step 1: Away client disconnects", func() {
		away.Close()
		// Give the server a moment to notice the closed connection.
		time.Sleep(200 * time.Millisecond)
	})

	s.Run("Step 2: Activity happens while away", func() {
		active.Send(`{"type":"ADD_ARTIFACT","artifactPath":{"project":"demo","artifact":"model"}}`)
		active.Expect(protocol.KindAddArtifact)
	})

	s.Run("Step 3: Reconnecting under the old identity flushes the queue", func() {
		reconnected := s.Dial("Away client reconnects", awayID)

		// The missed broadcast arrives first, then the usual resync pair.
		missed := reconnected.Expect(protocol.KindAddArtifact)
		s.Require().Equal([]protocol.Path{{Project: "demo", Artifact: "model"}}, missed.Paths)

		joined := reconnected.Expect(protocol.KindParticipantJoined)
		s.Require().Equal(awayID, joined.Participant.ID)
		reconnected.Expect(protocol.KindAddArtifact)
		reconnected.Close()
	})

	active.Close()
}

func (s *testCollaborationSuite) TestUnknownIdentityIsRefused() {
	s.resetServer()

	client := s.Dial("Stranger connects under a made-up identity", uuid.NewString())
	failure := client.Expect(protocol.KindError)
	s.Require().Contains(failure.Error, "unknown identity")
	client.Close()
}

func (s *testCollaborationSuite) TestMalformedIdentityIsRefused() {
	client := s.Dial("Stranger connects under a malformed identity", "not-a-uuid")
	failure := client.Expect(protocol.KindError)
	s.Require().Contains(failure.Error, "decode")
	client.Close()
}
