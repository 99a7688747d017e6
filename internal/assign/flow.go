package assign

import (
	"fmt"

	"github.com/javiermolinar/examdesk/internal/exam"
)

// Phase is the state of the conflict review flow.
type Phase int

const (
	PhaseIdle         Phase = iota
	PhaseVerifying          // initial check in flight
	PhaseConflict           // conflicts and suggestions presented
	PhaseReverifying        // check of a picked suggestion in flight
	PhaseCommitting         // commit in flight
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseVerifying:
		return "Verifying"
	case PhaseConflict:
		return "ConflictPresented"
	case PhaseReverifying:
		return "Reverifying"
	case PhaseCommitting:
		return "Committing"
	default:
		return fmt.Sprintf("Unknown(%d)", int(p))
	}
}

// transitions lists the phases reachable from each phase. Every phase can
// fall back to Idle on settle, cancel or failure.
var transitions = map[Phase][]Phase{
	PhaseIdle:        {PhaseVerifying},
	PhaseVerifying:   {PhaseCommitting, PhaseConflict, PhaseIdle},
	PhaseConflict:    {PhaseReverifying, PhaseCommitting, PhaseIdle},
	PhaseReverifying: {PhaseReverifying, PhaseConflict, PhaseIdle},
	PhaseCommitting:  {PhaseIdle},
}

func canTransition(from, to Phase) bool {
	for _, p := range transitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

// Outcome is how a flow settled.
type Outcome int

const (
	OutcomeCommitted Outcome = iota
	OutcomeCancelled
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCommitted:
		return "committed"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "failed"
	}
}

// Settlement is the terminal result of one flow.
type Settlement struct {
	Outcome  Outcome
	Proposal Proposal
	Target   exam.SlotRef // slot committed to; zero unless committed
	ExamID   int64
	Err      error
}

// VerifyRequest asks the caller to run one verification.
type VerifyRequest struct {
	Token    uint64
	Proposal Proposal
	Target   exam.SlotRef
}

// CommitRequest asks the caller to run the commit.
type CommitRequest struct {
	Token    uint64
	Proposal Proposal
	Target   exam.SlotRef
}

// Step is what the caller must do after a verdict is applied: either send
// the commit, or nothing (Commit nil) because the flow is presenting a
// review or has settled.
type Step struct {
	Commit  *CommitRequest
	Settled *Settlement
}

// Review is the conflict dialog content.
type Review struct {
	Original    exam.SlotRef
	Working     exam.SlotRef
	Conflicts   []exam.ConflictRecord
	Suggestions []exam.Suggestion
	Best        *exam.Suggestion
	Pending     bool // a re-verification is in flight
}

// Flow is the conflict review state machine. It performs no I/O: each
// operation returns the request the caller must run, and results come back
// tagged with the request token. Results carrying any token other than the
// latest one are stale and are discarded.
type Flow struct {
	drag     *DragSession
	resolver *Resolver

	phase    Phase
	proposal *Proposal
	token    uint64
	review   Review

	onTransition func(from, to Phase, reason string)
}

// NewFlow creates an idle flow over the given drag session and resolver.
func NewFlow(drag *DragSession, resolver *Resolver) *Flow {
	return &Flow{drag: drag, resolver: resolver}
}

// OnTransition registers a hook called on every phase change.
func (f *Flow) OnTransition(fn func(from, to Phase, reason string)) {
	f.onTransition = fn
}

// Phase returns the current phase.
func (f *Flow) Phase() Phase {
	return f.phase
}

// Idle reports whether no flow is in progress.
func (f *Flow) Idle() bool {
	return f.phase == PhaseIdle
}

// Busy reports whether a network call is in flight.
func (f *Flow) Busy() bool {
	return f.phase == PhaseVerifying || f.phase == PhaseReverifying || f.phase == PhaseCommitting
}

// Proposal returns the placement under review.
func (f *Flow) Proposal() (Proposal, bool) {
	if f.proposal == nil {
		return Proposal{}, false
	}
	return *f.proposal, true
}

// Review returns the dialog content while a conflict is presented.
func (f *Flow) Review() (Review, bool) {
	if f.phase != PhaseConflict && f.phase != PhaseReverifying {
		return Review{}, false
	}
	return f.review, true
}

// Token returns the latest issued request token.
func (f *Flow) Token() uint64 {
	return f.token
}

func (f *Flow) to(next Phase, reason string) error {
	if next != PhaseIdle && !canTransition(f.phase, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, f.phase, next)
	}
	prev := f.phase
	f.phase = next
	if f.onTransition != nil {
		f.onTransition(prev, next, reason)
	}
	return nil
}

func (f *Flow) nextToken() uint64 {
	f.token++
	return f.token
}

// Drop resolves a drop of the carried entity and starts verification.
func (f *Flow) Drop(dayKey, slotDescriptor string) (VerifyRequest, error) {
	if !f.Idle() {
		return VerifyRequest{}, ErrBusy
	}
	p, err := f.resolver.Resolve(dayKey, slotDescriptor)
	if err != nil {
		return VerifyRequest{}, err
	}
	return f.start(p)
}

// Propose starts verification of a proposal built without a drop, such as
// a room change of an exam in its current slot.
func (f *Flow) Propose(p Proposal) (VerifyRequest, error) {
	if !f.Idle() {
		return VerifyRequest{}, ErrBusy
	}
	f.resolver.Accept(p)
	return f.start(p)
}

func (f *Flow) start(p Proposal) (VerifyRequest, error) {
	if err := f.to(PhaseVerifying, "proposal "+p.Entity.Kind.String()); err != nil {
		return VerifyRequest{}, err
	}
	f.drag.Clear()
	f.proposal = &p
	f.review = Review{}
	return VerifyRequest{Token: f.nextToken(), Proposal: p, Target: p.Target}, nil
}

// ApplyVerdict applies the result of the request with the given token.
// A failure settles the flow as failed. A clear initial verdict advances
// straight to commit. A conflict, or any verdict for a picked suggestion,
// presents the review.
func (f *Flow) ApplyVerdict(token uint64, v exam.Verdict, verr error) (Step, error) {
	if token != f.token || (f.phase != PhaseVerifying && f.phase != PhaseReverifying) {
		return Step{}, ErrStaleResponse
	}

	if verr != nil {
		s := f.settle(OutcomeFailed, exam.SlotRef{}, 0, verr)
		return Step{Settled: &s}, nil
	}

	if f.phase == PhaseVerifying && v.Kind == exam.VerdictClear {
		if err := f.to(PhaseCommitting, "clear"); err != nil {
			return Step{}, err
		}
		req := CommitRequest{Token: f.nextToken(), Proposal: *f.proposal, Target: f.proposal.Target}
		return Step{Commit: &req}, nil
	}

	initial := f.phase == PhaseVerifying
	if initial {
		f.review = Review{}
	}
	f.review.Conflicts = v.Conflicts
	if initial || len(v.Suggestions) > 0 {
		// A clear answer to a pick carries no alternatives; keep the list
		// the operator is choosing from.
		f.review.Suggestions = v.Suggestions
		f.review.Best = v.Best
	}
	f.review.Pending = false
	if initial {
		f.review.Original = f.proposal.Target
		f.review.Working = f.proposal.Target
		if v.Best != nil {
			f.review.Working = v.Best.SlotRef()
			f.applyRoom(*v.Best)
		}
		f.resolver.Select(f.review.Working)
	}
	if err := f.to(PhaseConflict, v.Kind.String()); err != nil {
		return Step{}, err
	}
	return Step{}, nil
}

// Pick selects the suggestion at index i of the review's suggestion list
// and returns exactly one verification request for it. Picking while a
// previous pick is still being verified supersedes that request.
func (f *Flow) Pick(i int) (VerifyRequest, error) {
	if f.phase != PhaseConflict && f.phase != PhaseReverifying {
		return VerifyRequest{}, ErrNoReview
	}
	if i < 0 || i >= len(f.review.Suggestions) {
		return VerifyRequest{}, ErrSuggestionNotFound
	}
	s := f.review.Suggestions[i]
	if !s.Suggested {
		return VerifyRequest{}, ErrSuggestionNotSelectable
	}
	ref := s.SlotRef()
	if ref.Equal(f.review.Working) && roomOf(s, f.proposal.Entity) == f.proposal.Entity.Room {
		return VerifyRequest{}, ErrAlreadySelected
	}

	if err := f.to(PhaseReverifying, "pick "+ref.Key()); err != nil {
		return VerifyRequest{}, err
	}
	f.review.Working = ref
	f.review.Pending = true
	f.applyRoom(s)
	f.resolver.Select(ref)
	return VerifyRequest{Token: f.nextToken(), Proposal: *f.proposal, Target: ref}, nil
}

// Confirm commits to the working slot. It is refused while a picked
// suggestion is still being verified.
func (f *Flow) Confirm() (CommitRequest, error) {
	switch f.phase {
	case PhaseReverifying:
		return CommitRequest{}, ErrVerificationPending
	case PhaseConflict:
	default:
		return CommitRequest{}, ErrNoReview
	}
	if err := f.to(PhaseCommitting, "confirm"); err != nil {
		return CommitRequest{}, err
	}
	return CommitRequest{Token: f.nextToken(), Proposal: *f.proposal, Target: f.review.Working}, nil
}

// Cancel abandons the flow and clears all transient state. Any verification
// still in flight becomes stale. A commit already sent cannot be cancelled.
func (f *Flow) Cancel() (Settlement, error) {
	if f.phase == PhaseCommitting {
		return Settlement{}, ErrCommitInFlight
	}
	if f.phase == PhaseIdle {
		f.reset()
		return Settlement{Outcome: OutcomeCancelled}, nil
	}
	f.nextToken()
	return f.settle(OutcomeCancelled, exam.SlotRef{}, 0, nil), nil
}

// Settle applies the result of a commit request.
func (f *Flow) Settle(token uint64, examID int64, cerr error) (Settlement, error) {
	if token != f.token || f.phase != PhaseCommitting {
		return Settlement{}, ErrStaleResponse
	}
	if cerr != nil {
		return f.settle(OutcomeFailed, exam.SlotRef{}, 0, cerr), nil
	}
	return f.settle(OutcomeCommitted, f.workingTarget(), examID, nil), nil
}

func (f *Flow) workingTarget() exam.SlotRef {
	if !f.review.Working.IsZero() {
		return f.review.Working
	}
	return f.proposal.Target
}

func (f *Flow) settle(o Outcome, target exam.SlotRef, examID int64, err error) Settlement {
	s := Settlement{Outcome: o, Target: target, ExamID: examID, Err: err}
	if f.proposal != nil {
		s.Proposal = *f.proposal
	}
	f.reset()
	_ = f.to(PhaseIdle, o.String())
	return s
}

// reset clears the drag session, proposal, slot selection and review.
func (f *Flow) reset() {
	f.drag.Clear()
	f.resolver.Clear()
	f.proposal = nil
	f.review = Review{}
}

// applyRoom carries a suggested room into a room-change proposal.
func (f *Flow) applyRoom(s exam.Suggestion) {
	if f.proposal.Entity.Kind.IsRoomChange() && s.Room != "" {
		f.proposal.Entity.Room = s.Room
	}
}

func roomOf(s exam.Suggestion, e exam.Entity) string {
	if e.Kind.IsRoomChange() && s.Room != "" {
		return s.Room
	}
	return e.Room
}
