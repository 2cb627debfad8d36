package budget

import (
	"github.com/hupe1980/bsvm/model"
)

// WorkingSet is the ordered collection of vectors retained by one model.
// It owns its elements: Remove hands ownership back to the caller.
type WorkingSet struct {
	items []*model.Budgeted
}

// NewWorkingSet creates a working set holding items in order.
func NewWorkingSet(items ...*model.Budgeted) *WorkingSet {
	return &WorkingSet{items: append([]*model.Budgeted(nil), items...)}
}

// Len returns the number of elements.
func (s *WorkingSet) Len() int {
	return len(s.items)
}

// At returns element i.
func (s *WorkingSet) At(i int) *model.Budgeted {
	return s.items[i]
}

// Items returns the elements. The slice must not be modified.
func (s *WorkingSet) Items() []*model.Budgeted {
	return s.items
}

// Add appends b.
func (s *WorkingSet) Add(b *model.Budgeted) {
	s.items = append(s.items, b)
}

// Remove deletes element i, keeping the order of the rest, and returns it.
func (s *WorkingSet) Remove(i int) *model.Budgeted {
	b := s.items[i]
	copy(s.items[i:], s.items[i+1:])
	s.items[len(s.items)-1] = nil
	s.items = s.items[:len(s.items)-1]
	return b
}

// ExtendDimensionality grows every vector to newDim, relocating the bias
// coordinate when bias is set. It is called when a loaded chunk reveals
// more features than the model was created with.
func (s *WorkingSet) ExtendDimensionality(newDim int, bias bool) error {
	for _, b := range s.items {
		if err := b.Vector().ExtendDimensionality(newDim, bias); err != nil {
			return err
		}
	}
	return nil
}

// ExtendAlphas grows the alphas of every support vector to numClasses.
func (s *WorkingSet) ExtendAlphas(numClasses int) {
	for _, b := range s.items {
		b.ExtendAlphas(numClasses)
	}
}
