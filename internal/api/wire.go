package api

import (
	"encoding/json"
	"fmt"

	"github.com/javiermolinar/examdesk/internal/exam"
)

// Envelope is the response shape shared by every endpoint.
type Envelope struct {
	Success        bool            `json:"success"`
	Conflict       bool            `json:"conflict"`
	Message        string          `json:"message"`
	Data           json.RawMessage `json:"data"`
	AllSuggestions []SuggestionDTO `json:"all_suggestions"`
	BestSuggestion *SuggestionDTO  `json:"best_suggestion"`
}

// SuggestionDTO is the wire form of a suggestion.
type SuggestionDTO struct {
	Date      string `json:"date"`
	SlotName  string `json:"slot_name"`
	Suggested bool   `json:"suggested"`
	Reason    string `json:"reason,omitempty"`
	Room      string `json:"room,omitempty"`
}

func (d SuggestionDTO) toSuggestion() (exam.Suggestion, error) {
	ref, err := exam.ParseSlotRef(d.Date, d.SlotName)
	if err != nil {
		return exam.Suggestion{}, err
	}
	return exam.Suggestion{
		Date:      ref.Day,
		SlotName:  ref.Name,
		Suggested: d.Suggested,
		Reason:    d.Reason,
		Room:      d.Room,
	}, nil
}

// NewSuggestionDTO converts a suggestion to its wire form.
func NewSuggestionDTO(s exam.Suggestion) SuggestionDTO {
	return SuggestionDTO{
		Date:      s.Date.Format(exam.DateLayout),
		SlotName:  string(s.SlotName),
		Suggested: s.Suggested,
		Reason:    s.Reason,
		Room:      s.Room,
	}
}

// PlacementRequest is the body of verify, commit and remove calls.
type PlacementRequest struct {
	Day      string `json:"day"`
	SlotName string `json:"slot_name"`
	Kind     string `json:"kind"`
	CourseID int64  `json:"course_id"`
	GroupID  int64  `json:"group_id"`
	ExamID   int64  `json:"exam_id,omitempty"`
	FromDay  string `json:"from_day,omitempty"`
	FromSlot string `json:"from_slot,omitempty"`
}

// RoomRequest is the body of room change calls.
type RoomRequest struct {
	Day        string   `json:"day"`
	SlotName   string   `json:"slot_name"`
	ExamID     int64    `json:"exam_id"`
	GroupID    int64    `json:"group_id"`
	Room       string   `json:"room"`
	StudentIDs []string `json:"student_ids,omitempty"`
}

// SlotTimeRequest is the body of a change-slot-time call.
type SlotTimeRequest struct {
	SlotName  string `json:"slot_name"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// ScheduledExamDTO is one exam in the fetch-scheduled payload.
type ScheduledExamDTO struct {
	ID    int64            `json:"id"`
	Group exam.CourseGroup `json:"group"`
	Room  string           `json:"room,omitempty"`
}

// SlotDTO is one entry of the fetch-slots payload.
type SlotDTO struct {
	Date      string `json:"date"`
	SlotName  string `json:"slot_name"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// ScheduledPayload groups exams by day, then by slot name.
type ScheduledPayload map[string]map[string][]ScheduledExamDTO

// CommitData is the optional payload of a successful commit.
type CommitData struct {
	ExamID int64  `json:"exam_id"`
	Room   string `json:"room,omitempty"`
}

func placementRequest(e exam.Entity, target exam.SlotRef) PlacementRequest {
	req := PlacementRequest{
		Day:      target.DayKey(),
		SlotName: string(target.Name),
		Kind:     e.Kind.String(),
		CourseID: e.Group.CourseID,
		GroupID:  e.Group.ID,
	}
	if e.Exam != nil {
		req.ExamID = e.Exam.ID
		req.FromDay = e.Exam.Slot.DayKey()
		req.FromSlot = string(e.Exam.Slot.Name)
	}
	return req
}

func roomRequest(e exam.Entity, target exam.SlotRef) RoomRequest {
	req := RoomRequest{
		Day:      target.DayKey(),
		SlotName: string(target.Name),
		GroupID:  e.Group.ID,
		Room:     e.Room,
	}
	if e.Exam != nil {
		req.ExamID = e.Exam.ID
	}
	for _, s := range e.Students {
		req.StudentIDs = append(req.StudentIDs, s.ID)
	}
	return req
}

// verdict classifies a verify response.
func (env Envelope) verdict() (exam.Verdict, error) {
	if !env.Conflict {
		return exam.Verdict{Kind: exam.VerdictClear}, nil
	}

	v := exam.Verdict{Kind: exam.VerdictConflict}
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &v.Conflicts); err != nil {
			return exam.Verdict{}, fmt.Errorf("%w: conflicts: %v", ErrMalformedResponse, err)
		}
	}
	for _, d := range env.AllSuggestions {
		s, err := d.toSuggestion()
		if err != nil {
			return exam.Verdict{}, fmt.Errorf("%w: suggestion: %v", ErrMalformedResponse, err)
		}
		v.Suggestions = append(v.Suggestions, s)
	}
	if env.BestSuggestion != nil {
		best, err := env.BestSuggestion.toSuggestion()
		if err != nil {
			return exam.Verdict{}, fmt.Errorf("%w: best suggestion: %v", ErrMalformedResponse, err)
		}
		v.Best = &best
	}
	return v, nil
}

func (p ScheduledPayload) exams() ([]exam.ScheduledExam, error) {
	var out []exam.ScheduledExam
	for day, slots := range p {
		for name, exams := range slots {
			ref, err := exam.ParseSlotRef(day, name)
			if err != nil {
				return nil, fmt.Errorf("%w: scheduled: %v", ErrMalformedResponse, err)
			}
			for _, e := range exams {
				out = append(out, exam.ScheduledExam{ID: e.ID, Group: e.Group, Slot: ref, Room: e.Room})
			}
		}
	}
	return out, nil
}
