package domain

import (
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ekuiter/variED-NG/contract"
	"github.com/ekuiter/variED-NG/errors"
	"github.com/ekuiter/variED-NG/mocks"
	"github.com/ekuiter/variED-NG/protocol"
)

func TestValidateName(t *testing.T) {
	req := require.New(t)
	req.NoError(ValidateName("FeatureIDE"))
	req.Error(ValidateName(""))
	req.Error(ValidateName("   "))
	req.Error(ValidateName("a/b"))
}

func TestKeyOf_FoldsCase(t *testing.T) {
	req := require.New(t)
	req.Equal(
		KeyOf(protocol.Path{Project: "Demo", Artifact: "CarModel"}),
		KeyOf(protocol.Path{Project: "demo", Artifact: "carmodel"}),
	)
	req.NotEqual(
		KeyOf(protocol.Path{Project: "demo", Artifact: "a"}),
		KeyOf(protocol.Path{Project: "demo", Artifact: "b"}),
	)
}

func staticLoader(ctrl *gomock.Controller) contract.EngineLoader {
	return func() (contract.Engine, error) {
		engine := mocks.NewMockEngine(ctrl)
		engine.EXPECT().Export(ExportFormatJSON).Return([]byte(`{"name":"m"}`), nil).AnyTimes()
		return engine, nil
	}
}

func TestProject_ArtifactNamesAreCaseInsensitivelyUnique(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	project, err := NewProject("Demo")
	req.NoError(err)

	artifact, err := NewArtifact(project, "CarModel", staticLoader(ctrl), slog.Default())
	req.NoError(err)
	req.NoError(project.AddArtifact(artifact))

	duplicate, err := NewArtifact(project, "carmodel", staticLoader(ctrl), slog.Default())
	req.NoError(err)
	req.ErrorIs(project.AddArtifact(duplicate), errors.ErrArtifactExists)

	// Lookup folds case, the stored name keeps its casing.
	found := project.Artifact("CARMODEL")
	req.NotNil(found)
	req.Equal("CarModel", found.Name())
	req.Equal("Demo/CarModel", found.Path().String())
}

func TestProject_RejectsForeignArtifact(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	home, err := NewProject("home")
	req.NoError(err)
	other, err := NewProject("other")
	req.NoError(err)

	artifact, err := NewArtifact(other, "model", staticLoader(ctrl), slog.Default())
	req.NoError(err)
	req.Error(home.AddArtifact(artifact))
}

func TestArtifact_SessionIsMemoized(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	project, err := NewProject("demo")
	req.NoError(err)

	loads := 0
	loader := func() (contract.Engine, error) {
		loads++
		engine := mocks.NewMockEngine(ctrl)
		return engine, nil
	}
	artifact, err := NewArtifact(project, "model", loader, slog.Default())
	req.NoError(err)
	req.False(artifact.Active())

	first, err := artifact.Session()
	req.NoError(err)
	second, err := artifact.Session()
	req.NoError(err)
	req.Same(first, second)
	req.Equal(1, loads)
}

func TestArtifact_FailedLoadIsRetried(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	project, err := NewProject("demo")
	req.NoError(err)

	loads := 0
	loader := func() (contract.Engine, error) {
		loads++
		if loads == 1 {
			return nil, fmt.Errorf("source unreachable")
		}
		return mocks.NewMockEngine(ctrl), nil
	}
	artifact, err := NewArtifact(project, "model", loader, slog.Default())
	req.NoError(err)

	_, err = artifact.Session()
	req.Error(err)
	req.False(artifact.Active())

	session, err := artifact.Session()
	req.NoError(err)
	req.NotNil(session)
	req.Equal(2, loads)
}
