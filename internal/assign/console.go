package assign

import (
	"context"
	"fmt"
	"sync"

	"github.com/javiermolinar/examdesk/internal/exam"
	"github.com/javiermolinar/examdesk/internal/store"
)

// Journal records how each flow settled.
type Journal interface {
	RecordSettlement(ctx context.Context, s Settlement) error
}

// Result is what a console operation leaves behind: either a review the
// operator must act on, or a settled flow.
type Result struct {
	Review  *Review
	Settled *Settlement
}

// Console drives the flow synchronously: every request the flow issues is
// sent through the gateway before the call returns. The console lock is
// released while a call is on the wire, so Cancel and a superseding Pick
// go through immediately; the flow decides which result still counts.
type Console struct {
	mu sync.Mutex

	gw       Gateway
	rec      *Reconciler
	editor   *TimeEditor
	drag     *DragSession
	resolver *Resolver
	flow     *Flow

	// io is set while a reload, removal or time edit runs outside a flow.
	io bool
	// stop cancels the verification carrying token stopToken.
	stop      context.CancelFunc
	stopToken uint64

	journal    Journal
	onJournErr func(error)
}

// ConsoleOption configures a Console.
type ConsoleOption func(*Console)

// WithJournal records every settlement in j. Journal failures are passed to
// onErr and never fail the operation.
func WithJournal(j Journal, onErr func(error)) ConsoleOption {
	return func(c *Console) {
		c.journal = j
		c.onJournErr = onErr
	}
}

// WithTransitionHook observes flow phase changes.
func WithTransitionHook(fn func(from, to Phase, reason string)) ConsoleOption {
	return func(c *Console) { c.flow.OnTransition(fn) }
}

// NewConsole wires a console around gw and rec.
func NewConsole(gw Gateway, rec *Reconciler, opts ...ConsoleOption) *Console {
	drag := &DragSession{}
	resolver := NewResolver(drag)
	c := &Console{
		gw:       gw,
		rec:      rec,
		editor:   NewTimeEditor(gw, rec),
		drag:     drag,
		resolver: resolver,
		flow:     NewFlow(drag, resolver),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the read side of the store.
func (c *Console) Store() *store.Store {
	return c.rec.Store()
}

// Phase returns the flow phase.
func (c *Console) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flow.Phase()
}

// Carrying returns the entity being carried, if any.
func (c *Console) Carrying() (exam.Entity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drag.Active()
}

// Selected returns the working and original slots of the current proposal.
func (c *Console) Selected() (working, original exam.SlotRef, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	working, ok = c.resolver.Selected()
	original, _ = c.resolver.Original()
	return working, original, ok
}

// lock takes the console lock. It fails with ErrBusy while a reload,
// removal or time edit is talking to the service.
func (c *Console) lock() error {
	c.mu.Lock()
	if c.io {
		c.mu.Unlock()
		return ErrBusy
	}
	return nil
}

// exclusive runs fn while no flow is in progress, keeping new flows out
// until it returns.
func (c *Console) exclusive(ctx context.Context, fn func(context.Context) error) error {
	if err := c.lock(); err != nil {
		return err
	}
	if !c.flow.Idle() {
		c.mu.Unlock()
		return ErrBusy
	}
	c.io = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.io = false
		c.mu.Unlock()
	}()
	return fn(ctx)
}

// Load fetches the full schedule into the store.
func (c *Console) Load(ctx context.Context) error {
	return c.exclusive(ctx, c.rec.Refresh)
}

// Begin starts carrying e and reports whether an undropped carry was
// discarded. Carrying is refused while a flow is in progress.
func (c *Console) Begin(e exam.Entity) (bool, error) {
	if err := c.lock(); err != nil {
		return false, err
	}
	defer c.mu.Unlock()
	if !c.flow.Idle() {
		return false, ErrBusy
	}
	return c.drag.Begin(e), nil
}

// BeginCourse carries the course with the given id.
func (c *Console) BeginCourse(courseID int64) (bool, error) {
	course, ok := c.Store().Snapshot().Course(courseID)
	if !ok {
		return false, fmt.Errorf("%w: %d", exam.ErrCourseNotFound, courseID)
	}
	e, err := exam.CourseEntity(course)
	if err != nil {
		return false, err
	}
	return c.Begin(e)
}

// BeginGroup carries a group, unscheduled or already placed.
func (c *Console) BeginGroup(groupID int64) (bool, error) {
	snap := c.Store().Snapshot()
	if g, ok := snap.UnscheduledGroup(groupID); ok {
		return c.Begin(exam.GroupEntity(g))
	}
	if e, ok := snap.ExamByGroup(groupID); ok {
		return c.Begin(exam.ScheduledEntity(e))
	}
	return false, fmt.Errorf("%w: %d", exam.ErrGroupNotFound, groupID)
}

// Drop drops the carried entity on a slot and verifies it.
func (c *Console) Drop(ctx context.Context, dayKey, slotDescriptor string) (Result, error) {
	if err := c.lock(); err != nil {
		return Result{}, err
	}
	defer c.mu.Unlock()
	req, err := c.flow.Drop(dayKey, slotDescriptor)
	if err != nil {
		return Result{}, err
	}
	return c.verify(ctx, req)
}

// ChangeRoom proposes moving a scheduled group to room. With students set
// only those students move.
func (c *Console) ChangeRoom(ctx context.Context, groupID int64, room string, students []exam.Student) (Result, error) {
	if err := c.lock(); err != nil {
		return Result{}, err
	}
	defer c.mu.Unlock()
	scheduled, ok := c.rec.Store().Snapshot().ExamByGroup(groupID)
	if !ok {
		return Result{}, fmt.Errorf("%w: group %d", exam.ErrExamNotFound, groupID)
	}
	e := exam.RoomGroupEntity(scheduled, room)
	if len(students) > 0 {
		e = exam.RoomStudentsEntity(scheduled, room, students)
	}
	req, err := c.flow.Propose(Proposal{Entity: e, Target: scheduled.Slot})
	if err != nil {
		return Result{}, err
	}
	return c.verify(ctx, req)
}

// Pick re-verifies the suggestion at index i.
func (c *Console) Pick(ctx context.Context, i int) (Result, error) {
	if err := c.lock(); err != nil {
		return Result{}, err
	}
	defer c.mu.Unlock()
	req, err := c.flow.Pick(i)
	if err != nil {
		return Result{}, err
	}
	return c.verify(ctx, req)
}

// Confirm commits the working slot of the current review.
func (c *Console) Confirm(ctx context.Context) (Result, error) {
	if err := c.lock(); err != nil {
		return Result{}, err
	}
	defer c.mu.Unlock()
	req, err := c.flow.Confirm()
	if err != nil {
		return Result{}, err
	}
	return c.commit(ctx, req)
}

// Cancel closes the review without touching the store. A verification
// still on the wire is aborted and its late result discarded.
func (c *Console) Cancel(ctx context.Context) (Settlement, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	hadProposal := !c.flow.Idle()
	s, err := c.flow.Cancel()
	if err != nil {
		return Settlement{}, err
	}
	c.abort()
	if hadProposal {
		c.record(ctx, s)
	}
	return s, nil
}

// Remove unschedules the exam of groupID.
func (c *Console) Remove(ctx context.Context, groupID int64) error {
	return c.exclusive(ctx, func(ctx context.Context) error {
		e, ok := c.rec.Store().Snapshot().ExamByGroup(groupID)
		if !ok {
			return fmt.Errorf("%w: group %d", exam.ErrExamNotFound, groupID)
		}
		return c.rec.Remove(ctx, e)
	})
}

// EditSlotTime changes a slot's window. Invalid input is rejected locally.
func (c *Console) EditSlotTime(ctx context.Context, ref exam.SlotRef, start, end string) error {
	return c.exclusive(ctx, func(ctx context.Context) error {
		return c.editor.Propose(ctx, ref, start, end)
	})
}

// abort cancels the verification in flight, if any.
func (c *Console) abort() {
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
}

// verify sends req with the lock released. Must be called with c.mu held.
func (c *Console) verify(ctx context.Context, req VerifyRequest) (Result, error) {
	// A newer request supersedes whatever is still on the wire.
	c.abort()
	vctx, stop := context.WithCancel(ctx)
	c.stop, c.stopToken = stop, req.Token

	c.mu.Unlock()
	v, verr := c.gw.Verify(vctx, req.Proposal.Entity, req.Target)
	c.mu.Lock()

	if c.stopToken == req.Token {
		c.abort()
	} else {
		stop()
	}
	step, err := c.flow.ApplyVerdict(req.Token, v, verr)
	if err != nil {
		return Result{}, err
	}
	switch {
	case step.Settled != nil:
		c.record(ctx, *step.Settled)
		return Result{Settled: step.Settled}, step.Settled.Err
	case step.Commit != nil:
		return c.commit(ctx, *step.Commit)
	}
	review, _ := c.flow.Review()
	return Result{Review: &review}, nil
}

// commit sends req with the lock released. Must be called with c.mu held.
// The flow stays in Committing meanwhile, which refuses Cancel.
func (c *Console) commit(ctx context.Context, req CommitRequest) (Result, error) {
	c.mu.Unlock()
	examID, cerr := c.rec.Commit(ctx, req.Proposal, req.Target)
	c.mu.Lock()

	s, err := c.flow.Settle(req.Token, examID, cerr)
	if err != nil {
		return Result{}, err
	}
	c.record(ctx, s)
	return Result{Settled: &s}, s.Err
}

func (c *Console) record(ctx context.Context, s Settlement) {
	if c.journal == nil {
		return
	}
	if err := c.journal.RecordSettlement(ctx, s); err != nil && c.onJournErr != nil {
		c.onJournErr(err)
	}
}
