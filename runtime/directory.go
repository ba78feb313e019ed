package runtime

import (
	"embed"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/lo"

	"github.com/ekuiter/variED-NG/contract"
	"github.com/ekuiter/variED-NG/domain"
	"github.com/ekuiter/variED-NG/engine"
	"github.com/ekuiter/variED-NG/errors"
	"github.com/ekuiter/variED-NG/protocol"
)

//go:embed examples/*.json
var examplesFS embed.FS

const (
	examplesProject = "Examples"
	emptyTemplate   = "Empty"
)

// Seeder populates a directory with default content. It runs once at
// construction and again on every reset.
type Seeder func(d *Directory) error

// Directory is the process-wide registry of artifacts grouped into
// named projects. Lookup is case-insensitive, storage case-preserving.
// All methods must be called inside the hub's mutual-exclusion region.
type Directory struct {
	log      *slog.Logger
	projects map[string]*domain.Project
	seed     Seeder
}

// NewDirectory creates a directory seeded by seed; a nil seed yields an
// empty directory.
func NewDirectory(log *slog.Logger, seed Seeder) (*Directory, error) {
	d := &Directory{log: log, seed: seed}
	if err := d.Reset(); err != nil {
		return nil, err
	}
	return d, nil
}

// Reset drops every project and artifact and reseeds default content.
func (d *Directory) Reset() error {
	d.projects = make(map[string]*domain.Project)
	if d.seed == nil {
		return nil
	}
	if err := d.seed(d); err != nil {
		return fmt.Errorf("seeding directory: %w", err)
	}
	return nil
}

func (d *Directory) Project(name string) *domain.Project {
	return d.projects[strings.ToLower(name)]
}

func (d *Directory) AddProject(project *domain.Project) error {
	key := strings.ToLower(project.Name())
	if _, ok := d.projects[key]; ok {
		return fmt.Errorf("another project is already named %q", project.Name())
	}
	d.log.Info("adding project", "project", project.Name())
	d.projects[key] = project
	return nil
}

// Artifact resolves a path, returning nil when either part is unknown.
func (d *Directory) Artifact(path protocol.Path) *domain.Artifact {
	project := d.Project(path.Project)
	if project == nil {
		return nil
	}
	return project.Artifact(path.Artifact)
}

// AddArtifact registers a new artifact, creating the owning project if
// absent.
func (d *Directory) AddArtifact(path protocol.Path, load contract.EngineLoader) (*domain.Artifact, error) {
	if existing := d.Artifact(path); existing != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrArtifactExists, path)
	}
	project := d.Project(path.Project)
	if project == nil {
		created, err := domain.NewProject(path.Project)
		if err != nil {
			return nil, err
		}
		if err := d.AddProject(created); err != nil {
			return nil, err
		}
		project = created
	}
	artifact, err := domain.NewArtifact(project, path.Artifact, load, d.log)
	if err != nil {
		return nil, err
	}
	if err := project.AddArtifact(artifact); err != nil {
		return nil, err
	}
	d.log.Info("adding artifact", "artifact", artifact.Path())
	return artifact, nil
}

// RemoveArtifact unregisters an artifact. An artifact whose session is
// active (has joined participants) cannot be removed.
func (d *Directory) RemoveArtifact(artifact *domain.Artifact) error {
	if artifact.Active() {
		return fmt.Errorf("%w: %s", errors.ErrSessionInProcess, artifact.Path())
	}
	d.log.Info("removing artifact", "artifact", artifact.Path())
	artifact.Project().RemoveArtifact(artifact)
	return nil
}

// ArtifactPaths lists every known artifact path.
func (d *Directory) ArtifactPaths() []protocol.Path {
	return lo.FlatMap(lo.Values(d.projects), func(project *domain.Project, _ int) []protocol.Path {
		return lo.Map(project.Artifacts(), func(artifact *domain.Artifact, _ int) protocol.Path {
			return artifact.Path()
		})
	})
}

// ArtifactCount and ActiveSessionCount feed the monitor and info page.
func (d *Directory) ArtifactCount() int {
	return len(d.ArtifactPaths())
}

func (d *Directory) ActiveSessionCount() int {
	count := 0
	for _, project := range d.projects {
		for _, artifact := range project.Artifacts() {
			if artifact.Active() {
				count++
			}
		}
	}
	return count
}

// EmptyTemplate returns the embedded default source used when an
// artifact is added without inline source.
func EmptyTemplate() string {
	source, err := examplesFS.ReadFile("examples/" + emptyTemplate + ".json")
	if err != nil {
		// The template ships inside the binary; a miss is a build defect.
		panic(err)
	}
	return string(source)
}

// ExampleSeeder populates the Examples project from the documents
// embedded in the binary.
func ExampleSeeder(d *Directory) error {
	entries, err := examplesFS.ReadDir("examples")
	if err != nil {
		return err
	}
	for _, entry := range entries {
		name := strings.TrimSuffix(entry.Name(), ".json")
		source, err := examplesFS.ReadFile("examples/" + entry.Name())
		if err != nil {
			return err
		}
		path := protocol.Path{Project: examplesProject, Artifact: name}
		if _, err := d.AddArtifact(path, engine.FromSource(string(source))); err != nil {
			return err
		}
	}
	return nil
}
