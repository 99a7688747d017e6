package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/javiermolinar/examdesk/internal/exam"
)

// verifyPath and commitPath pick the endpoint for an entity kind. The three
// placement kinds share one endpoint and are told apart by the kind field.
func verifyPath(k exam.EntityKind) string {
	switch k {
	case exam.KindRoomGroup:
		return PathVerifyRoom
	case exam.KindRoomStudents:
		return PathVerifyStudents
	default:
		return PathVerify
	}
}

func commitPath(k exam.EntityKind) string {
	switch k {
	case exam.KindRoomGroup:
		return PathChangeRoom
	case exam.KindRoomStudents:
		return PathChangeStudents
	default:
		return PathCommit
	}
}

func requestBody(e exam.Entity, target exam.SlotRef) any {
	if e.Kind.IsRoomChange() {
		return roomRequest(e, target)
	}
	return placementRequest(e, target)
}

// Verify asks the service whether placing e at target is conflict free.
// Nothing is persisted. A conflict is a verdict, not an error; any failure
// to obtain a verdict wraps ErrVerificationFailed.
func (c *Client) Verify(ctx context.Context, e exam.Entity, target exam.SlotRef) (exam.Verdict, error) {
	env, err := c.do(ctx, http.MethodPost, verifyPath(e.Kind), requestBody(e, target))
	if err != nil {
		return exam.Verdict{}, fmt.Errorf("%w: %w", ErrVerificationFailed, err)
	}
	if !env.Success && !env.Conflict {
		return exam.Verdict{}, fmt.Errorf("%w: %w", ErrVerificationFailed,
			&ServiceError{Op: "verify", Status: http.StatusOK, Message: env.Message})
	}
	v, err := env.verdict()
	if err != nil {
		return exam.Verdict{}, fmt.Errorf("%w: %w", ErrVerificationFailed, err)
	}
	return v, nil
}

// Commit persists the placement or room change. It returns the exam id and
// room the service assigned; either is zero when the service did not
// report it.
func (c *Client) Commit(ctx context.Context, e exam.Entity, target exam.SlotRef) (exam.Receipt, error) {
	env, err := c.call(ctx, ErrCommitFailed, http.MethodPost, commitPath(e.Kind), requestBody(e, target))
	if err != nil {
		return exam.Receipt{}, err
	}
	var data CommitData
	if len(env.Data) > 0 && string(env.Data) != "null" {
		// The payload is optional; an unexpected shape is ignored.
		_ = json.Unmarshal(env.Data, &data)
	}
	return exam.Receipt{ExamID: data.ExamID, Room: data.Room}, nil
}

// Remove takes a scheduled exam out of the grid.
func (c *Client) Remove(ctx context.Context, e exam.ScheduledExam) error {
	body := PlacementRequest{
		Day:      e.Slot.DayKey(),
		SlotName: string(e.Slot.Name),
		Kind:     exam.KindScheduledGroup.String(),
		CourseID: e.Group.CourseID,
		GroupID:  e.Group.ID,
		ExamID:   e.ID,
	}
	_, err := c.call(ctx, ErrCommitFailed, http.MethodPost, PathRemove, body)
	return err
}

// ChangeSlotTime moves a slot's start and end times.
func (c *Client) ChangeSlotTime(ctx context.Context, slot exam.Slot) error {
	body := SlotTimeRequest{
		SlotName:  string(slot.Name),
		Date:      slot.DayKey(),
		StartTime: slot.Start,
		EndTime:   slot.End,
	}
	_, err := c.call(ctx, ErrRequestFailed, http.MethodPost, PathSlotTime, body)
	return err
}

// FetchUnscheduled loads the courses with groups not yet placed.
func (c *Client) FetchUnscheduled(ctx context.Context) ([]exam.UnscheduledCourse, error) {
	env, err := c.call(ctx, ErrRequestFailed, http.MethodGet, PathUnscheduled, nil)
	if err != nil {
		return nil, err
	}
	var courses []exam.UnscheduledCourse
	if err := decodeData(env, &courses); err != nil {
		return nil, fmt.Errorf("%w: unscheduled: %w", ErrRequestFailed, err)
	}
	return courses, nil
}

// FetchScheduled loads the grid.
func (c *Client) FetchScheduled(ctx context.Context) ([]exam.ScheduledExam, error) {
	env, err := c.call(ctx, ErrRequestFailed, http.MethodGet, PathScheduled, nil)
	if err != nil {
		return nil, err
	}
	var payload ScheduledPayload
	if err := decodeData(env, &payload); err != nil {
		return nil, fmt.Errorf("%w: scheduled: %w", ErrRequestFailed, err)
	}
	exams, err := payload.exams()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	return exams, nil
}

// FetchSlots loads the start/end times of every configured slot.
func (c *Client) FetchSlots(ctx context.Context) ([]exam.Slot, error) {
	env, err := c.call(ctx, ErrRequestFailed, http.MethodGet, PathSlots, nil)
	if err != nil {
		return nil, err
	}
	var dtos []SlotDTO
	if err := decodeData(env, &dtos); err != nil {
		return nil, fmt.Errorf("%w: slots: %w", ErrRequestFailed, err)
	}
	slots := make([]exam.Slot, 0, len(dtos))
	for _, d := range dtos {
		ref, err := exam.ParseSlotRef(d.Date, d.SlotName)
		if err != nil {
			return nil, fmt.Errorf("%w: %w: slots: %v", ErrRequestFailed, ErrMalformedResponse, err)
		}
		slots = append(slots, exam.Slot{SlotRef: ref, Start: d.StartTime, End: d.EndTime})
	}
	return slots, nil
}

func decodeData(env Envelope, v any) error {
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
