// Package domain contains the core concepts of the collaboration
// server: projects, artifacts, participants and sessions, together with
// their invariants. No transport or process wiring lives here.
package domain

import (
	"fmt"
	"strings"

	"github.com/ekuiter/variED-NG/protocol"
)

// PathSeparator joins project and artifact names; neither part may
// contain it.
const PathSeparator = "/"

// PathKey is the case-insensitive lookup form of an artifact path.
// Storage stays case-preserving; only lookups fold case.
type PathKey struct {
	Project  string
	Artifact string
}

func KeyOf(path protocol.Path) PathKey {
	return PathKey{
		Project:  strings.ToLower(path.Project),
		Artifact: strings.ToLower(path.Artifact),
	}
}

// ValidateName rejects names unusable as a path part.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("no name given")
	}
	if strings.Contains(name, PathSeparator) {
		return fmt.Errorf("%s not allowed in name %q", PathSeparator, name)
	}
	return nil
}
