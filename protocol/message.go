// Package protocol defines the closed set of messages exchanged over the
// wire and their JSON codec.
//
// Every wire frame is one UTF-8 JSON object with at least a "type" field
// holding one of the Kind values and, where applicable, an "artifactPath"
// object. Messages are value objects: constructed fresh per send or
// receive and never mutated after handoff, except for an ExportArtifact
// response whose data field is filled in place before being echoed back
// to its requester.
package protocol

import "encoding/json"

// Kind discriminates the closed set of message types on the wire.
type Kind string

const (
	KindError                 Kind = "ERROR"
	KindReset                 Kind = "RESET"
	KindAddArtifact           Kind = "ADD_ARTIFACT"
	KindRemoveArtifact        Kind = "REMOVE_ARTIFACT"
	KindExportArtifact        Kind = "EXPORT_ARTIFACT"
	KindParticipantJoined     Kind = "PARTICIPANT_JOINED"
	KindParticipantLeft       Kind = "PARTICIPANT_LEFT"
	KindSetProfile            Kind = "SET_PROFILE"
	KindJoinRequest           Kind = "JOIN_REQUEST"
	KindLeaveRequest          Kind = "LEAVE_REQUEST"
	KindInitialize            Kind = "INITIALIZE"
	KindFeatureCreateBelow    Kind = "FEATURE_CREATE_BELOW"
	KindFeatureRemove         Kind = "FEATURE_REMOVE"
	KindFeatureRename         Kind = "FEATURE_RENAME"
	KindFeatureSetDescription Kind = "FEATURE_SET_DESCRIPTION"
	KindUndo                  Kind = "UNDO"
	KindRedo                  Kind = "REDO"
)

// Path identifies one artifact inside a project. Both parts are
// case-preserving here; lookups treat them case-insensitively.
type Path struct {
	Project  string `json:"project" validate:"required"`
	Artifact string `json:"artifact" validate:"required"`
}

func (p Path) String() string {
	return p.Project + "/" + p.Artifact
}

// Collaborator is the exposed shape of a participant in presence
// messages.
type Collaborator struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Message is implemented by every concrete message type.
type Message interface {
	MessageKind() Kind
	MessagePath() *Path
}

// Encodable marks messages the server may send.
type Encodable interface {
	Message
	encodable()
}

// Decodable marks messages the server may receive.
type Decodable interface {
	Message
	decodable()
}

// base carries the fields shared by every message. Each concrete type
// embeds it; constructors fill the type tag.
type base struct {
	Type Kind  `json:"type"`
	Path *Path `json:"artifactPath,omitempty"`
}

func (b base) MessageKind() Kind {
	return b.Type
}

func (b base) MessagePath() *Path {
	return b.Path
}

// Error reports a failure to the offending sender only.
type Error struct {
	base
	Error string `json:"error"`
}

func (Error) encodable() {}

func NewError(err error) *Error {
	return &Error{base: base{Type: KindError}, Error: err.Error()}
}

// Reset wipes all process-wide state and reseeds default content.
type Reset struct {
	base
}

func (Reset) decodable() {}

func NewReset() *Reset {
	return &Reset{base: base{Type: KindReset}}
}

// AddArtifact has two shapes sharing one kind: the request form carries
// the path of the artifact to create plus an optional inline source, the
// broadcast and initial-listing form carries the created paths.
type AddArtifact struct {
	base
	Source string `json:"source,omitempty"`
	Paths  []Path `json:"artifactPaths,omitempty"`
}

func (AddArtifact) encodable() {}
func (AddArtifact) decodable() {}

func NewAddArtifact(path Path, source string) *AddArtifact {
	return &AddArtifact{base: base{Type: KindAddArtifact, Path: &path}, Source: source}
}

func NewAddArtifactListing(paths []Path) *AddArtifact {
	return &AddArtifact{base: base{Type: KindAddArtifact}, Paths: paths}
}

// RemoveArtifact requests or announces the removal of one artifact.
type RemoveArtifact struct {
	base
}

func (RemoveArtifact) encodable() {}
func (RemoveArtifact) decodable() {}

func NewRemoveArtifact(path Path) *RemoveArtifact {
	return &RemoveArtifact{base: base{Type: KindRemoveArtifact, Path: &path}}
}

// ExportArtifact requests a serialized rendition of one artifact. The
// response is the same message with Data filled in, echoed to the
// requester only.
type ExportArtifact struct {
	base
	Format string `json:"format" validate:"required"`
	Data   string `json:"data,omitempty"`
}

func (ExportArtifact) encodable() {}
func (ExportArtifact) decodable() {}

func NewExportArtifact(path Path, format string) *ExportArtifact {
	return &ExportArtifact{base: base{Type: KindExportArtifact, Path: &path}, Format: format}
}

// ParticipantJoined announces presence. With a path it concerns one
// session; without it is the self announcement and profile-update shape.
type ParticipantJoined struct {
	base
	Participant Collaborator `json:"participant"`
}

func (ParticipantJoined) encodable() {}

func NewParticipantJoined(path *Path, c Collaborator) *ParticipantJoined {
	return &ParticipantJoined{base: base{Type: KindParticipantJoined, Path: path}, Participant: c}
}

// ParticipantLeft announces departure from one session.
type ParticipantLeft struct {
	base
	Participant Collaborator `json:"participant"`
}

func (ParticipantLeft) encodable() {}

func NewParticipantLeft(path Path, c Collaborator) *ParticipantLeft {
	return &ParticipantLeft{base: base{Type: KindParticipantLeft, Path: &path}, Participant: c}
}

// SetProfile renames the sender.
type SetProfile struct {
	base
	Name string `json:"name" validate:"required"`
}

func (SetProfile) decodable() {}

func NewSetProfile(name string) *SetProfile {
	return &SetProfile{base: base{Type: KindSetProfile}, Name: name}
}

// JoinRequest asks to join the session of the given artifact.
type JoinRequest struct {
	base
}

func (JoinRequest) decodable() {}

func NewJoinRequest(path Path) *JoinRequest {
	return &JoinRequest{base: base{Type: KindJoinRequest, Path: &path}}
}

// LeaveRequest asks to leave the session of the given artifact.
type LeaveRequest struct {
	base
}

func (LeaveRequest) decodable() {}

func NewLeaveRequest(path Path) *LeaveRequest {
	return &LeaveRequest{base: base{Type: KindLeaveRequest, Path: &path}}
}

// Initialize carries the full serialized document state. It is sent to a
// joining participant and broadcast to all members after every applied
// operation, so all views converge on an identical document.
type Initialize struct {
	base
	Document json.RawMessage `json:"document"`
}

func (Initialize) encodable() {}

func NewInitialize(path Path, document json.RawMessage) *Initialize {
	return &Initialize{base: base{Type: KindInitialize, Path: &path}, Document: document}
}

// FeatureCreateBelow creates a fresh feature below the given parent.
type FeatureCreateBelow struct {
	base
	ParentID string `json:"parentID" validate:"required"`
}

func (FeatureCreateBelow) decodable() {}

func NewFeatureCreateBelow(path Path, parentID string) *FeatureCreateBelow {
	return &FeatureCreateBelow{base: base{Type: KindFeatureCreateBelow, Path: &path}, ParentID: parentID}
}

// FeatureRemove removes the listed features, splicing their children
// into the respective parent. Features already removed earlier in the
// same batch are skipped.
type FeatureRemove struct {
	base
	FeatureIDs []string `json:"featureIDs" validate:"required,min=1"`
}

func (FeatureRemove) decodable() {}

func NewFeatureRemove(path Path, featureIDs ...string) *FeatureRemove {
	return &FeatureRemove{base: base{Type: KindFeatureRemove, Path: &path}, FeatureIDs: featureIDs}
}

// FeatureRename renames one feature.
type FeatureRename struct {
	base
	FeatureID string `json:"featureID" validate:"required"`
	Name      string `json:"name" validate:"required"`
}

func (FeatureRename) decodable() {}

func NewFeatureRename(path Path, featureID, name string) *FeatureRename {
	return &FeatureRename{base: base{Type: KindFeatureRename, Path: &path}, FeatureID: featureID, Name: name}
}

// FeatureSetDescription sets or clears one feature's description.
type FeatureSetDescription struct {
	base
	FeatureID   string `json:"featureID" validate:"required"`
	Description string `json:"description"`
}

func (FeatureSetDescription) decodable() {}

func NewFeatureSetDescription(path Path, featureID, description string) *FeatureSetDescription {
	return &FeatureSetDescription{base: base{Type: KindFeatureSetDescription, Path: &path}, FeatureID: featureID, Description: description}
}

// Undo reverts the most recent applied operation of the artifact.
type Undo struct {
	base
}

func (Undo) decodable() {}

func NewUndo(path Path) *Undo {
	return &Undo{base: base{Type: KindUndo, Path: &path}}
}

// Redo re-applies the most recently undone operation of the artifact.
type Redo struct {
	base
}

func (Redo) decodable() {}

func NewRedo(path Path) *Redo {
	return &Redo{base: base{Type: KindRedo, Path: &path}}
}
