package store

import (
	"errors"
	"sync"

	"github.com/javiermolinar/examdesk/internal/exam"
)

// ErrProvisionSettled is returned when a provision is kept or revoked twice,
// or revoked after another write replaced it.
var ErrProvisionSettled = errors.New("provisional change already settled")

// Store publishes the current Snapshot. Reading is open to everyone;
// writing requires the Writer handed out by New.
type Store struct {
	mu       sync.RWMutex
	current  *Snapshot
	revision int64
}

// Writer is the only handle that can change a Store.
type Writer struct {
	s *Store
}

// New creates an empty store and its writer.
func New() (*Store, *Writer) {
	s := &Store{current: &Snapshot{}}
	return s, &Writer{s: s}
}

// Snapshot returns the current snapshot. Callers must treat it as read-only.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Revision increments on every published change.
func (s *Store) Revision() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// publish swaps in next if the store still holds expect.
func (s *Store) publish(expect, next *Snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if expect != nil && s.current != expect {
		return false
	}
	s.current = next
	s.revision++
	return true
}

// mutate applies fn to a clone of the current snapshot and publishes it
// only if fn succeeds.
func (w *Writer) mutate(fn func(*Snapshot) error) (before, after *Snapshot, err error) {
	before = w.s.Snapshot()
	next := before.clone()
	if err := fn(next); err != nil {
		return before, nil, err
	}
	w.s.publish(nil, next)
	return before, next, nil
}

// Store returns the store this writer controls.
func (w *Writer) Store() *Store {
	return w.s
}

// Replace publishes a fresh snapshot, e.g. after a full refetch.
func (w *Writer) Replace(next *Snapshot) {
	if next == nil {
		next = &Snapshot{}
	}
	n := next.clone()
	n.normalize()
	w.s.publish(nil, n)
}

// Place binds a group to target, taking it from the unscheduled list or
// from its old slot. examID zero keeps the existing id of a relocated exam.
func (w *Writer) Place(g exam.CourseGroup, target exam.SlotRef, examID int64, room string) error {
	_, _, err := w.mutate(func(s *Snapshot) error {
		return s.place(g, target, examID, room)
	})
	return err
}

// Unplace removes a group from the grid and returns it to the unscheduled list.
func (w *Writer) Unplace(groupID int64) (exam.ScheduledExam, error) {
	var removed exam.ScheduledExam
	_, _, err := w.mutate(func(s *Snapshot) error {
		e, err := s.unplace(groupID)
		removed = e
		return err
	})
	return removed, err
}

// SetRoom changes the room of a scheduled group.
func (w *Writer) SetRoom(groupID int64, room string) error {
	_, _, err := w.mutate(func(s *Snapshot) error {
		return s.setRoom(groupID, room)
	})
	return err
}

// Provision is a revocable change published ahead of server confirmation.
type Provision struct {
	w       *Writer
	before  *Snapshot
	after   *Snapshot
	settled bool
}

// Provisional applies fn now and returns a handle to keep or revoke it.
func (w *Writer) Provisional(fn func(*Writer) error) (*Provision, error) {
	before := w.s.Snapshot()
	if err := fn(w); err != nil {
		return nil, err
	}
	return &Provision{w: w, before: before, after: w.s.Snapshot()}, nil
}

// Keep accepts the provisional change.
func (p *Provision) Keep() error {
	if p.settled {
		return ErrProvisionSettled
	}
	p.settled = true
	return nil
}

// Revoke restores the snapshot that was current before the change.
func (p *Provision) Revoke() error {
	if p.settled {
		return ErrProvisionSettled
	}
	p.settled = true
	if !p.w.s.publish(p.after, p.before) {
		return ErrProvisionSettled
	}
	return nil
}
