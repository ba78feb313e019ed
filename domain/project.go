package domain

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/lo"

	"github.com/ekuiter/variED-NG/contract"
	"github.com/ekuiter/variED-NG/errors"
	"github.com/ekuiter/variED-NG/protocol"
)

// Project is a named grouping of artifacts. Artifact names are unique
// within a project, compared case-insensitively and stored
// case-preserving.
type Project struct {
	name      string
	artifacts map[string]*Artifact
}

func NewProject(name string) (*Project, error) {
	if err := ValidateName(name); err != nil {
		return nil, fmt.Errorf("project: %w", err)
	}
	return &Project{
		name:      name,
		artifacts: make(map[string]*Artifact),
	}, nil
}

func (p *Project) Name() string {
	return p.name
}

func (p *Project) Artifact(name string) *Artifact {
	return p.artifacts[strings.ToLower(name)]
}

func (p *Project) AddArtifact(artifact *Artifact) error {
	if artifact.project != p {
		return fmt.Errorf("artifact %s registered with another project", artifact.Name())
	}
	key := strings.ToLower(artifact.Name())
	if _, ok := p.artifacts[key]; ok {
		return fmt.Errorf("%w: %s", errors.ErrArtifactExists, artifact.Path())
	}
	p.artifacts[key] = artifact
	return nil
}

func (p *Project) RemoveArtifact(artifact *Artifact) {
	delete(p.artifacts, strings.ToLower(artifact.Name()))
}

func (p *Project) Artifacts() []*Artifact {
	return lo.Values(p.artifacts)
}

// Artifact is a named document reference inside a project. Its session
// is created lazily on first access and memoized; an artifact belongs
// to exactly one project for its lifetime.
type Artifact struct {
	name    string
	project *Project
	load    contract.EngineLoader
	session *Session
	log     *slog.Logger
}

func NewArtifact(project *Project, name string, load contract.EngineLoader, log *slog.Logger) (*Artifact, error) {
	if err := ValidateName(name); err != nil {
		return nil, fmt.Errorf("artifact: %w", err)
	}
	if load == nil {
		return nil, fmt.Errorf("artifact %s: no engine loader given", name)
	}
	return &Artifact{
		name:    name,
		project: project,
		load:    load,
		log:     log,
	}, nil
}

func (a *Artifact) Name() string {
	return a.name
}

func (a *Artifact) Project() *Project {
	return a.project
}

func (a *Artifact) Path() protocol.Path {
	return protocol.Path{Project: a.project.Name(), Artifact: a.name}
}

// Session returns the memoized session, loading the engine on first
// access. A loading failure leaves the artifact without a session, to
// be retried on the next access.
func (a *Artifact) Session() (*Session, error) {
	if a.session == nil {
		engine, err := a.load()
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", a.Path(), err)
		}
		a.session = NewSession(a.Path(), engine, a.log)
	}
	return a.session, nil
}

// Active reports whether a session exists and has joined participants,
// without instantiating one.
func (a *Artifact) Active() bool {
	return a.session != nil && a.session.IsActive()
}
