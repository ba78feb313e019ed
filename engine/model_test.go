package engine

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ekuiter/variED-NG/errors"
	"github.com/ekuiter/variED-NG/protocol"
)

var opPath = protocol.Path{Project: "demo", Artifact: "model"}

// treeModel builds root(f1) -> a(f2) -> {b(f3), c(f4)} for the
// structural tests.
func treeModel(t *testing.T) *FeatureModel {
	t.Helper()
	m, err := Load(`{
		"name": "model",
		"root": {"id": "f1", "name": "model", "children": [
			{"id": "f2", "name": "a", "children": [
				{"id": "f3", "name": "b"},
				{"id": "f4", "name": "c"}
			]}
		]}
	}`)
	require.NoError(t, err)
	return m
}

func childNames(f *Feature) []string {
	names := make([]string, 0, len(f.Children))
	for _, child := range f.Children {
		names = append(names, child.Name)
	}
	return names
}

func TestLoad_AssignsMissingIDs(t *testing.T) {
	req := require.New(t)
	m, err := Load(`{"name": "m", "root": {"id": "f7", "name": "m", "children": [{"name": "anon"}]}}`)
	req.NoError(err)

	anon := m.root.Children[0]
	req.Equal("f8", anon.ID)

	// Fresh allocations continue past the highest seen numeric ID.
	req.Equal("f9", m.allocateID())
}

func TestLoad_BlankIDBeforeNumberedSibling(t *testing.T) {
	req := require.New(t)

	// The blank node must not be handed an ID its later sibling already
	// carries.
	m, err := Load(`{"name": "m", "root": {"id": "r", "name": "m", "children": [
		{"name": "a"},
		{"id": "f1", "name": "b"}
	]}}`)
	req.NoError(err)

	a, b := m.root.Children[0], m.root.Children[1]
	req.Equal("f1", b.ID)
	req.NotEqual(a.ID, b.ID)

	// The explicitly numbered feature stays addressable.
	_, err = m.Apply(protocol.NewFeatureRename(opPath, "f1", "renamed"))
	req.NoError(err)
	req.Equal("renamed", b.Name)
	req.Equal("a", a.Name)
}

func TestLoad_RejectsDuplicateIDs(t *testing.T) {
	req := require.New(t)
	_, err := Load(`{"name": "m", "root": {"id": "f1", "name": "m", "children": [
		{"id": "f1", "name": "twin"}
	]}}`)
	req.Error(err)
	req.Contains(err.Error(), "duplicate feature ID")
}

func TestLoad_RejectsBrokenSource(t *testing.T) {
	req := require.New(t)
	_, err := Load(`{not json`)
	req.Error(err)
	_, err = Load(`{"name": "m"}`)
	req.Error(err)
}

func TestApply_CreateBelow(t *testing.T) {
	req := require.New(t)
	m := treeModel(t)

	document, err := m.Apply(protocol.NewFeatureCreateBelow(opPath, "f3"))
	req.NoError(err)

	b := m.Feature("f3")
	req.Len(b.Children, 1)
	req.Equal("New Feature", b.Children[0].Name)
	req.Contains(string(document), "New Feature")

	_, err = m.Apply(protocol.NewFeatureCreateBelow(opPath, "missing"))
	req.Error(err)
}

func TestApply_RemoveSplicesChildrenUp(t *testing.T) {
	req := require.New(t)
	m := treeModel(t)

	_, err := m.Apply(protocol.NewFeatureRemove(opPath, "f2"))
	req.NoError(err)

	// b and c moved up to the root, at a's old position.
	req.Equal([]string{"b", "c"}, childNames(m.root))
	req.Nil(m.Feature("f2"))
}

func TestApply_RemoveRootFails(t *testing.T) {
	req := require.New(t)
	m := treeModel(t)
	_, err := m.Apply(protocol.NewFeatureRemove(opPath, "f1"))
	req.Error(err)
}

func TestApply_BatchSkipsAlreadyRemovedTargets(t *testing.T) {
	req := require.New(t)
	m := treeModel(t)

	// Removing f2 first makes the second f2 item a no-op instead of an
	// error; f3 is still a live target afterwards.
	_, err := m.Apply(protocol.NewFeatureRemove(opPath, "f2", "f2", "f3"))
	req.NoError(err)
	req.Equal([]string{"c"}, childNames(m.root))
}

func TestApply_BatchRollsBackOnFailure(t *testing.T) {
	req := require.New(t)
	m := treeModel(t)

	_, err := m.Apply(protocol.NewFeatureRemove(opPath, "f3", "missing"))
	req.Error(err)

	// The already-removed prefix was restored.
	req.NotNil(m.Feature("f3"))
	req.Equal([]string{"b", "c"}, childNames(m.Feature("f2")))

	// And the failed batch is not undoable.
	_, err = m.Apply(protocol.NewUndo(opPath))
	req.ErrorIs(err, errors.ErrNothingToUndo)
}

func TestApply_RenameAndDescribe(t *testing.T) {
	req := require.New(t)
	m := treeModel(t)

	_, err := m.Apply(protocol.NewFeatureRename(opPath, "f3", "base"))
	req.NoError(err)
	req.Equal("base", m.Feature("f3").Name)

	_, err = m.Apply(protocol.NewFeatureSetDescription(opPath, "f3", "the base feature"))
	req.NoError(err)
	req.Equal("the base feature", m.Feature("f3").Description)

	_, err = m.Apply(protocol.NewFeatureRename(opPath, "missing", "x"))
	req.Error(err)
}

func TestApply_UndoRedoRoundTrip(t *testing.T) {
	req := require.New(t)
	m := treeModel(t)

	_, err := m.Apply(protocol.NewFeatureRename(opPath, "f2", "renamed"))
	req.NoError(err)
	_, err = m.Apply(protocol.NewFeatureRemove(opPath, "f2"))
	req.NoError(err)
	req.Nil(m.Feature("f2"))

	_, err = m.Apply(protocol.NewUndo(opPath))
	req.NoError(err)
	req.Equal("renamed", m.Feature("f2").Name)
	req.Equal([]string{"b", "c"}, childNames(m.Feature("f2")))

	_, err = m.Apply(protocol.NewUndo(opPath))
	req.NoError(err)
	req.Equal("a", m.Feature("f2").Name)

	_, err = m.Apply(protocol.NewUndo(opPath))
	req.ErrorIs(err, errors.ErrNothingToUndo)

	_, err = m.Apply(protocol.NewRedo(opPath))
	req.NoError(err)
	req.Equal("renamed", m.Feature("f2").Name)

	_, err = m.Apply(protocol.NewRedo(opPath))
	req.NoError(err)
	req.Nil(m.Feature("f2"))

	_, err = m.Apply(protocol.NewRedo(opPath))
	req.ErrorIs(err, errors.ErrNothingToRedo)
}

func TestApply_NewOperationClearsRedo(t *testing.T) {
	req := require.New(t)
	m := treeModel(t)

	_, err := m.Apply(protocol.NewFeatureRename(opPath, "f3", "first"))
	req.NoError(err)
	_, err = m.Apply(protocol.NewUndo(opPath))
	req.NoError(err)
	_, err = m.Apply(protocol.NewFeatureRename(opPath, "f3", "second"))
	req.NoError(err)

	_, err = m.Apply(protocol.NewRedo(opPath))
	req.ErrorIs(err, errors.ErrNothingToRedo)
}

func TestApply_UnhandledKind(t *testing.T) {
	req := require.New(t)
	m := treeModel(t)
	_, err := m.Apply(protocol.NewJoinRequest(opPath))
	req.ErrorIs(err, errors.ErrUnhandled)
}

func TestExport_Formats(t *testing.T) {
	req := require.New(t)
	m := New("model")

	data, err := m.Export("json")
	req.NoError(err)
	var doc struct {
		Name string `json:"name"`
		Root *Feature
	}
	req.NoError(json.Unmarshal(data, &doc))
	req.Equal("model", doc.Name)

	xmlData, err := m.Export("xml")
	req.NoError(err)
	req.True(strings.HasPrefix(string(xmlData), "<?xml"))
	req.Contains(string(xmlData), `<featureModel name="model">`)

	_, err = m.Export("pdf")
	req.Error(err)
}
