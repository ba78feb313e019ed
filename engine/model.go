// Package engine provides the default document engine: a feature-model
// tree with command-based mutation, undo/redo history and JSON/XML
// export. Sessions only ever reach it through contract.Engine, so any
// other document engine can be substituted per artifact.
package engine

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"

	"github.com/ekuiter/variED-NG/errors"
	"github.com/ekuiter/variED-NG/protocol"
)

// Feature is one node of the model tree.
type Feature struct {
	ID          string     `json:"id" xml:"id,attr"`
	Name        string     `json:"name" xml:"name,attr"`
	Description string     `json:"description,omitempty" xml:"description,omitempty"`
	Children    []*Feature `json:"children,omitempty" xml:"feature"`
}

// FeatureModel implements contract.Engine for feature-model artifacts.
// All mutation goes through command objects recorded in the history, so
// every applied operation can be undone.
type FeatureModel struct {
	name    string
	root    *Feature
	history *History
	nextID  int
}

type document struct {
	Name string   `json:"name"`
	Root *Feature `json:"root"`
}

type xmlDocument struct {
	XMLName xml.Name `xml:"featureModel"`
	Name    string   `xml:"name,attr"`
	Root    *Feature `xml:"feature"`
}

// New creates a model holding only a root feature.
func New(name string) *FeatureModel {
	m := &FeatureModel{name: name, nextID: 1}
	m.history = NewHistory(m)
	m.root = &Feature{ID: m.allocateID(), Name: name}
	return m
}

// Load parses an inline JSON source into a model, assigning IDs to
// features that lack one.
func Load(source string) (*FeatureModel, error) {
	var doc document
	if err := json.Unmarshal([]byte(source), &doc); err != nil {
		return nil, fmt.Errorf("parsing model source: %w", err)
	}
	if doc.Root == nil {
		return nil, fmt.Errorf("model source has no root feature")
	}
	m := &FeatureModel{name: doc.Name, root: doc.Root, nextID: 1}
	m.history = NewHistory(m)
	if err := m.ensureIDs(); err != nil {
		return nil, err
	}
	return m, nil
}

var numericID = regexp.MustCompile(`^f(\d+)$`)

// ensureIDs assigns IDs to blank nodes in two passes: the first raises
// nextID past every explicit numeric ID (and rejects duplicates), the
// second fills the blanks. A single interleaved walk could hand a blank
// node an ID a later sibling already carries.
func (m *FeatureModel) ensureIDs() error {
	seen := make(map[string]struct{})
	var raise func(f *Feature) error
	raise = func(f *Feature) error {
		if f.ID != "" {
			if _, ok := seen[f.ID]; ok {
				return fmt.Errorf("duplicate feature ID %q", f.ID)
			}
			seen[f.ID] = struct{}{}
			if match := numericID.FindStringSubmatch(f.ID); match != nil {
				if n, err := strconv.Atoi(match[1]); err == nil && n >= m.nextID {
					m.nextID = n + 1
				}
			}
		}
		for _, child := range f.Children {
			if err := raise(child); err != nil {
				return err
			}
		}
		return nil
	}
	if err := raise(m.root); err != nil {
		return err
	}

	var assign func(f *Feature)
	assign = func(f *Feature) {
		if f.ID == "" {
			f.ID = m.allocateID()
		}
		for _, child := range f.Children {
			assign(child)
		}
	}
	assign(m.root)
	return nil
}

func (m *FeatureModel) allocateID() string {
	id := fmt.Sprintf("f%d", m.nextID)
	m.nextID++
	return id
}

func (m *FeatureModel) Name() string {
	return m.name
}

// Feature returns the node with the given ID, or nil.
func (m *FeatureModel) Feature(id string) *Feature {
	node, _, _ := m.locate(id)
	return node
}

// locate finds a node together with its parent and its index among the
// parent's children. The root has a nil parent.
func (m *FeatureModel) locate(id string) (node, parent *Feature, index int) {
	if m.root.ID == id {
		return m.root, nil, 0
	}
	return locateIn(m.root, id)
}

func locateIn(parent *Feature, id string) (*Feature, *Feature, int) {
	for i, child := range parent.Children {
		if child.ID == id {
			return child, parent, i
		}
		if node, p, index := locateIn(child, id); node != nil {
			return node, p, index
		}
	}
	return nil, nil, 0
}

// Apply runs one operation message against the model and returns the
// full re-rendered document. Unknown message kinds fail so the caller
// can report an unhandled message.
func (m *FeatureModel) Apply(operation protocol.Decodable) (json.RawMessage, error) {
	switch op := operation.(type) {
	case *protocol.Undo:
		if err := m.history.Undo(); err != nil {
			return nil, err
		}
	case *protocol.Redo:
		if err := m.history.Redo(); err != nil {
			return nil, err
		}
	case *protocol.FeatureCreateBelow:
		if err := m.history.Execute(createBelow{parentID: op.ParentID}); err != nil {
			return nil, err
		}
	case *protocol.FeatureRemove:
		batch := make([]Command, 0, len(op.FeatureIDs))
		for _, id := range op.FeatureIDs {
			batch = append(batch, removeFeature{featureID: id})
		}
		if err := m.history.Execute(batch...); err != nil {
			return nil, err
		}
	case *protocol.FeatureRename:
		if err := m.history.Execute(renameFeature{featureID: op.FeatureID, name: op.Name}); err != nil {
			return nil, err
		}
	case *protocol.FeatureSetDescription:
		if err := m.history.Execute(describeFeature{featureID: op.FeatureID, description: op.Description}); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %s", errors.ErrUnhandled, operation.MessageKind())
	}
	return m.render()
}

// Export serializes the current document. Supported formats are "json"
// and "xml".
func (m *FeatureModel) Export(format string) ([]byte, error) {
	switch format {
	case "json":
		return m.render()
	case "xml":
		data, err := xml.MarshalIndent(xmlDocument{Name: m.name, Root: m.root}, "", "  ")
		if err != nil {
			return nil, err
		}
		return append([]byte(xml.Header), data...), nil
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

func (m *FeatureModel) render() (json.RawMessage, error) {
	return json.Marshal(document{Name: m.name, Root: m.root})
}
