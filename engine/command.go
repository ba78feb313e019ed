package engine

import (
	"fmt"
	"slices"

	"github.com/ekuiter/variED-NG/errors"
)

// Command mutates the model and returns the command that undoes it.
// Commands run inside a batch Context; a command whose target was
// removed earlier in the same batch is skipped by returning nil.
type Command interface {
	Apply(ctx *Context) (Command, error)
}

// Context accumulates the effects of one batch so order-dependent
// invalidation (removing a feature also invalidates later items naming
// it) is resolved once per batch, not per item.
type Context struct {
	model   *FeatureModel
	removed map[string]struct{}
}

func newContext(model *FeatureModel) *Context {
	return &Context{model: model, removed: make(map[string]struct{})}
}

func (c *Context) markRemoved(id string) {
	c.removed[id] = struct{}{}
}

func (c *Context) isRemoved(id string) bool {
	_, ok := c.removed[id]
	return ok
}

// History records applied command batches as their inverses, enabling
// undo and redo. Undoing pushes the re-inverted batch onto the redo
// stack; executing anything new clears it.
type History struct {
	model *FeatureModel
	undo  [][]Command
	redo  [][]Command
}

func NewHistory(model *FeatureModel) *History {
	return &History{model: model}
}

// Execute applies one batch atomically: on a mid-batch failure the
// already-applied prefix is rolled back and the history is untouched.
func (h *History) Execute(commands ...Command) error {
	inverses, err := h.applyBatch(commands)
	if err != nil {
		return err
	}
	if len(inverses) == 0 {
		return nil
	}
	h.undo = append(h.undo, inverses)
	h.redo = nil
	return nil
}

func (h *History) Undo() error {
	if len(h.undo) == 0 {
		return errors.ErrNothingToUndo
	}
	batch := h.undo[len(h.undo)-1]
	inverses, err := h.applyBatch(batch)
	if err != nil {
		return fmt.Errorf("undo: %w", err)
	}
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, inverses)
	return nil
}

func (h *History) Redo() error {
	if len(h.redo) == 0 {
		return errors.ErrNothingToRedo
	}
	batch := h.redo[len(h.redo)-1]
	inverses, err := h.applyBatch(batch)
	if err != nil {
		return fmt.Errorf("redo: %w", err)
	}
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, inverses)
	return nil
}

// applyBatch runs the commands in order and returns their inverses,
// already reversed so they can be replayed as a batch themselves.
func (h *History) applyBatch(commands []Command) ([]Command, error) {
	ctx := newContext(h.model)
	inverses := make([]Command, 0, len(commands))
	for _, cmd := range commands {
		inverse, err := cmd.Apply(ctx)
		if err != nil {
			rollback := newContext(h.model)
			for i := len(inverses) - 1; i >= 0; i-- {
				if _, rbErr := inverses[i].Apply(rollback); rbErr != nil {
					return nil, fmt.Errorf("%v (rollback failed: %w)", err, rbErr)
				}
			}
			return nil, err
		}
		if inverse != nil {
			inverses = append(inverses, inverse)
		}
	}
	slices.Reverse(inverses)
	return inverses, nil
}

// createBelow adds a fresh feature below the given parent.
type createBelow struct {
	parentID string
}

func (c createBelow) Apply(ctx *Context) (Command, error) {
	if ctx.isRemoved(c.parentID) {
		return nil, nil
	}
	parent := ctx.model.Feature(c.parentID)
	if parent == nil {
		return nil, fmt.Errorf("no feature %q", c.parentID)
	}
	feature := &Feature{ID: ctx.model.allocateID(), Name: "New Feature"}
	parent.Children = append(parent.Children, feature)
	return removeFeature{featureID: feature.ID}, nil
}

// removeFeature deletes one feature, splicing its children into the
// parent at the old position. The root cannot be removed.
type removeFeature struct {
	featureID string
}

func (r removeFeature) Apply(ctx *Context) (Command, error) {
	if ctx.isRemoved(r.featureID) {
		return nil, nil
	}
	node, parent, index := ctx.model.locate(r.featureID)
	if node == nil {
		return nil, fmt.Errorf("no feature %q", r.featureID)
	}
	if parent == nil {
		return nil, fmt.Errorf("cannot remove the root feature")
	}
	adopted := len(node.Children)
	parent.Children = slices.Delete(parent.Children, index, index+1)
	parent.Children = slices.Insert(parent.Children, index, node.Children...)
	ctx.markRemoved(node.ID)
	return insertFeature{node: node, parentID: parent.ID, index: index, adopted: adopted}, nil
}

// insertFeature is the inverse of removeFeature: it reclaims the
// children that were spliced up and puts the node back in place.
type insertFeature struct {
	node     *Feature
	parentID string
	index    int
	adopted  int
}

func (i insertFeature) Apply(ctx *Context) (Command, error) {
	parent := ctx.model.Feature(i.parentID)
	if parent == nil {
		return nil, fmt.Errorf("no feature %q", i.parentID)
	}
	children := slices.Clone(parent.Children[i.index : i.index+i.adopted])
	parent.Children = slices.Delete(parent.Children, i.index, i.index+i.adopted)
	i.node.Children = children
	parent.Children = slices.Insert(parent.Children, i.index, i.node)
	return removeFeature{featureID: i.node.ID}, nil
}

// renameFeature sets a feature's name; its inverse restores the old one.
type renameFeature struct {
	featureID string
	name      string
}

func (r renameFeature) Apply(ctx *Context) (Command, error) {
	if ctx.isRemoved(r.featureID) {
		return nil, nil
	}
	node := ctx.model.Feature(r.featureID)
	if node == nil {
		return nil, fmt.Errorf("no feature %q", r.featureID)
	}
	previous := node.Name
	node.Name = r.name
	return renameFeature{featureID: r.featureID, name: previous}, nil
}

// describeFeature sets or clears a feature's description.
type describeFeature struct {
	featureID   string
	description string
}

func (d describeFeature) Apply(ctx *Context) (Command, error) {
	if ctx.isRemoved(d.featureID) {
		return nil, nil
	}
	node := ctx.model.Feature(d.featureID)
	if node == nil {
		return nil, fmt.Errorf("no feature %q", d.featureID)
	}
	previous := node.Description
	node.Description = d.description
	return describeFeature{featureID: d.featureID, description: previous}, nil
}
