package assign

import (
	"context"
	"fmt"

	"github.com/javiermolinar/examdesk/internal/exam"
	"github.com/javiermolinar/examdesk/internal/store"
)

// Gateway is the scheduling service as seen by the interaction core.
type Gateway interface {
	Verify(ctx context.Context, e exam.Entity, target exam.SlotRef) (exam.Verdict, error)
	Commit(ctx context.Context, e exam.Entity, target exam.SlotRef) (exam.Receipt, error)
	Remove(ctx context.Context, e exam.ScheduledExam) error
	ChangeSlotTime(ctx context.Context, slot exam.Slot) error
	FetchUnscheduled(ctx context.Context) ([]exam.UnscheduledCourse, error)
	FetchScheduled(ctx context.Context) ([]exam.ScheduledExam, error)
	FetchSlots(ctx context.Context) ([]exam.Slot, error)
}

// SnapshotCache keeps the last known schedule for offline display.
type SnapshotCache interface {
	SaveSnapshot(ctx context.Context, snap *store.Snapshot) error
}

// Reconciler is the only component that writes to the store. Every write
// follows a successful service call, so a failed call leaves the store as
// it was.
type Reconciler struct {
	gw         Gateway
	w          *store.Writer
	cache      SnapshotCache
	optimistic bool
	onCacheErr func(error)
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithSnapshotCache saves every published snapshot to c. Cache failures
// are reported to onErr and never fail the operation.
func WithSnapshotCache(c SnapshotCache, onErr func(error)) ReconcilerOption {
	return func(r *Reconciler) {
		r.cache = c
		r.onCacheErr = onErr
	}
}

// WithOptimistic applies placements before the commit call returns and
// revokes them if it fails.
func WithOptimistic(enabled bool) ReconcilerOption {
	return func(r *Reconciler) { r.optimistic = enabled }
}

// NewReconciler creates a reconciler writing through w.
func NewReconciler(gw Gateway, w *store.Writer, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{gw: gw, w: w}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store returns the store the reconciler writes to.
func (r *Reconciler) Store() *store.Store {
	return r.w.Store()
}

// Commit persists p at target and then applies it locally, in the room
// the service assigned. It returns the exam id reported by the service.
func (r *Reconciler) Commit(ctx context.Context, p Proposal, target exam.SlotRef) (int64, error) {
	e := p.Entity
	if e.Kind.IsRoomChange() {
		return r.commitRoom(ctx, e, target)
	}

	if r.optimistic {
		return r.commitOptimistic(ctx, e, target)
	}

	rcpt, err := r.gw.Commit(ctx, e, target)
	if err != nil {
		return 0, err
	}
	if err := r.w.Place(e.Group, target, rcpt.ExamID, rcpt.Room); err != nil {
		// The service accepted a placement the local view cannot express.
		// Resynchronise rather than guess.
		if rerr := r.Refresh(ctx); rerr != nil {
			return rcpt.ExamID, fmt.Errorf("applying placement: %w (refresh: %v)", err, rerr)
		}
		return rcpt.ExamID, nil
	}
	r.saveSnapshot(ctx)
	return rcpt.ExamID, nil
}

func (r *Reconciler) commitOptimistic(ctx context.Context, e exam.Entity, target exam.SlotRef) (int64, error) {
	prov, err := r.w.Provisional(func(w *store.Writer) error {
		return w.Place(e.Group, target, 0, "")
	})
	if err != nil {
		return 0, fmt.Errorf("applying provisional placement: %w", err)
	}

	rcpt, err := r.gw.Commit(ctx, e, target)
	if err != nil {
		if rerr := prov.Revoke(); rerr != nil {
			// Someone replaced the snapshot meanwhile; only a refetch can
			// tell what the service holds now.
			if ferr := r.Refresh(ctx); ferr != nil {
				return 0, fmt.Errorf("%w (revoke: %v; refresh: %v)", err, rerr, ferr)
			}
		}
		return 0, err
	}
	if err := prov.Keep(); err != nil {
		// The provisional placement was overtaken; the service has the
		// exam, so fetch what it holds.
		if ferr := r.Refresh(ctx); ferr != nil {
			return rcpt.ExamID, fmt.Errorf("keeping placement: %w (refresh: %v)", err, ferr)
		}
		return rcpt.ExamID, nil
	}
	if rcpt.ExamID != 0 || rcpt.Room != "" {
		if err := r.w.Place(e.Group, target, rcpt.ExamID, rcpt.Room); err != nil {
			if ferr := r.Refresh(ctx); ferr != nil {
				return rcpt.ExamID, fmt.Errorf("applying placement: %w (refresh: %v)", err, ferr)
			}
			return rcpt.ExamID, nil
		}
	}
	r.saveSnapshot(ctx)
	return rcpt.ExamID, nil
}

func (r *Reconciler) commitRoom(ctx context.Context, e exam.Entity, target exam.SlotRef) (int64, error) {
	rcpt, err := r.gw.Commit(ctx, e, target)
	if err != nil {
		return 0, err
	}
	if e.Kind == exam.KindRoomStudents {
		// Splitting students across rooms changes server-side data the
		// snapshot does not model.
		return rcpt.ExamID, r.Refresh(ctx)
	}
	if err := r.w.SetRoom(e.Group.ID, e.Room); err != nil {
		return rcpt.ExamID, r.Refresh(ctx)
	}
	r.saveSnapshot(ctx)
	return rcpt.ExamID, nil
}

// Remove takes e out of the grid and returns its group to the unscheduled
// list. It is the mirror image of Commit.
func (r *Reconciler) Remove(ctx context.Context, e exam.ScheduledExam) error {
	if err := r.gw.Remove(ctx, e); err != nil {
		return err
	}
	if _, err := r.w.Unplace(e.Group.ID); err != nil {
		return r.Refresh(ctx)
	}
	r.saveSnapshot(ctx)
	return nil
}

// Refresh replaces the store with a fresh server snapshot. Nothing is
// published unless all collections load.
func (r *Reconciler) Refresh(ctx context.Context) error {
	unscheduled, err := r.gw.FetchUnscheduled(ctx)
	if err != nil {
		return fmt.Errorf("fetching unscheduled: %w", err)
	}
	scheduled, err := r.gw.FetchScheduled(ctx)
	if err != nil {
		return fmt.Errorf("fetching scheduled: %w", err)
	}
	slots, err := r.gw.FetchSlots(ctx)
	if err != nil {
		return fmt.Errorf("fetching slots: %w", err)
	}
	r.w.Replace(store.FromCollections(unscheduled, scheduled, slots))
	r.saveSnapshot(ctx)
	return nil
}

func (r *Reconciler) saveSnapshot(ctx context.Context) {
	if r.cache == nil {
		return
	}
	if err := r.cache.SaveSnapshot(ctx, r.w.Store().Snapshot()); err != nil && r.onCacheErr != nil {
		r.onCacheErr(err)
	}
}
