package assign

import (
	"context"
	"errors"

	"github.com/javiermolinar/examdesk/internal/exam"
)

// TimeEditor changes a slot's start and end time. There is no optimistic
// update: on success the whole schedule is refetched, because a new window
// can change which exams conflict elsewhere in the day.
type TimeEditor struct {
	gw  Gateway
	rec *Reconciler
}

// NewTimeEditor creates a time editor that refreshes through rec.
func NewTimeEditor(gw Gateway, rec *Reconciler) *TimeEditor {
	return &TimeEditor{gw: gw, rec: rec}
}

// Validate checks a proposed window locally.
func (t *TimeEditor) Validate(ref exam.SlotRef, start, end string) (exam.Slot, error) {
	slot := exam.Slot{SlotRef: ref, Start: start, End: end}
	if !ref.Name.Valid() {
		return slot, &RejectedError{Reason: "unknown slot", Err: exam.ErrInvalidSlotName}
	}
	if err := exam.ValidateWindow(start, end); err != nil {
		reason := "times must be HH:MM"
		if errors.Is(err, exam.ErrEndBeforeStart) {
			reason = "end time must be after start time"
		}
		return slot, &RejectedError{Reason: reason, Err: err}
	}
	return slot, nil
}

// Propose validates and, if valid, sends exactly one change-slot-time
// call followed by a full refresh.
func (t *TimeEditor) Propose(ctx context.Context, ref exam.SlotRef, start, end string) error {
	slot, err := t.Validate(ref, start, end)
	if err != nil {
		return err
	}
	if err := t.gw.ChangeSlotTime(ctx, slot); err != nil {
		return err
	}
	return t.rec.Refresh(ctx)
}
