package assign

import (
	"fmt"

	"github.com/javiermolinar/examdesk/internal/exam"
)

// Proposal is a candidate binding of an entity to a slot. It is never
// written into the store until the Reconciler commits it.
type Proposal struct {
	Entity exam.Entity
	Target exam.SlotRef
}

// Resolver turns a drop into a Proposal and remembers the selected slot.
// The original requested slot is frozen on acceptance so the conflict
// dialog can keep showing it while suggestions move the working slot.
type Resolver struct {
	drag     *DragSession
	selected *exam.SlotRef
	original *exam.SlotRef
}

// NewResolver creates a resolver reading from drag.
func NewResolver(drag *DragSession) *Resolver {
	return &Resolver{drag: drag}
}

// Resolve builds a proposal for the carried entity. Without an active
// carry the drop is ignored and ErrNoActiveDrag is returned.
func (r *Resolver) Resolve(dayKey, slotDescriptor string) (Proposal, error) {
	e, ok := r.drag.Active()
	if !ok {
		return Proposal{}, ErrNoActiveDrag
	}
	target, err := exam.ParseSlotRef(dayKey, slotDescriptor)
	if err != nil {
		return Proposal{}, fmt.Errorf("%w: %w", ErrInvalidDropTarget, err)
	}
	p := Proposal{Entity: e, Target: target}
	r.Accept(p)
	return p, nil
}

// Accept records p's target as both the selected and the original slot.
func (r *Resolver) Accept(p Proposal) {
	sel, orig := p.Target, p.Target
	r.selected = &sel
	r.original = &orig
}

// Select moves the working slot, leaving the original untouched.
func (r *Resolver) Select(ref exam.SlotRef) {
	sel := ref
	r.selected = &sel
}

// Selected returns the working slot.
func (r *Resolver) Selected() (exam.SlotRef, bool) {
	if r.selected == nil {
		return exam.SlotRef{}, false
	}
	return *r.selected, true
}

// Original returns the slot the operator originally dropped on.
func (r *Resolver) Original() (exam.SlotRef, bool) {
	if r.original == nil {
		return exam.SlotRef{}, false
	}
	return *r.original, true
}

// Clear forgets both slots.
func (r *Resolver) Clear() {
	r.selected = nil
	r.original = nil
}
