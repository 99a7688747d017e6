// Package assign implements the exam assignment interaction: carrying an
// entity, dropping it on a slot, verifying the placement with the
// scheduling service, reviewing conflicts and settling the result.
package assign

import "github.com/javiermolinar/examdesk/internal/exam"

// DragSession tracks the single entity currently being carried.
type DragSession struct {
	entity *exam.Entity
}

// Begin starts carrying e. A carry that was never dropped is discarded;
// the return value reports whether that happened.
func (d *DragSession) Begin(e exam.Entity) (discarded bool) {
	discarded = d.entity != nil
	carried := e
	d.entity = &carried
	return discarded
}

// Clear ends the carry. Safe to call when nothing is carried.
func (d *DragSession) Clear() {
	d.entity = nil
}

// Active returns the carried entity.
func (d *DragSession) Active() (exam.Entity, bool) {
	if d.entity == nil {
		return exam.Entity{}, false
	}
	return *d.entity, true
}
