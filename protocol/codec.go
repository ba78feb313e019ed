package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/ekuiter/variED-NG/errors"
)

var validate = validator.New()

// Encode serializes one server-to-client message as a UTF-8 JSON frame.
// Encoding is the identity of whatever was constructed; no normalization
// happens here.
func Encode(m Encodable) ([]byte, error) {
	return json.Marshal(m)
}

// Decode parses one client-to-server frame. The type tag is resolved
// against the closed enumeration; unknown tags, encodable-only tags,
// malformed JSON and missing required fields all fail with a DecodeError.
func Decode(data []byte) (Decodable, error) {
	var envelope struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, errors.Decode(err)
	}
	m, err := emptyDecodable(envelope.Type)
	if err != nil {
		return nil, errors.Decode(err)
	}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, errors.Decode(err)
	}
	if err := validate.Struct(m); err != nil {
		return nil, errors.Decode(err)
	}
	// The shared envelope is embedded unexported, which validator skips,
	// so a present path is checked on its own.
	if path := m.MessagePath(); path != nil {
		if err := validate.Struct(path); err != nil {
			return nil, errors.Decode(err)
		}
	}
	return m, nil
}

func emptyDecodable(kind Kind) (Decodable, error) {
	b := base{Type: kind}
	switch kind {
	case KindReset:
		return &Reset{base: b}, nil
	case KindAddArtifact:
		return &AddArtifact{base: b}, nil
	case KindRemoveArtifact:
		return &RemoveArtifact{base: b}, nil
	case KindExportArtifact:
		return &ExportArtifact{base: b}, nil
	case KindSetProfile:
		return &SetProfile{base: b}, nil
	case KindJoinRequest:
		return &JoinRequest{base: b}, nil
	case KindLeaveRequest:
		return &LeaveRequest{base: b}, nil
	case KindFeatureCreateBelow:
		return &FeatureCreateBelow{base: b}, nil
	case KindFeatureRemove:
		return &FeatureRemove{base: b}, nil
	case KindFeatureRename:
		return &FeatureRename{base: b}, nil
	case KindFeatureSetDescription:
		return &FeatureSetDescription{base: b}, nil
	case KindUndo:
		return &Undo{base: b}, nil
	case KindRedo:
		return &Redo{base: b}, nil
	case KindError, KindParticipantJoined, KindParticipantLeft, KindInitialize:
		return nil, fmt.Errorf("%w: %s may not be sent by clients", errors.ErrInvalidMessageKind, kind)
	default:
		return nil, fmt.Errorf("%w %q", errors.ErrInvalidMessageKind, kind)
	}
}
