package exam

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors.
var (
	ErrGroupNotFound  = errors.New("course group not found")
	ErrCourseNotFound = errors.New("course not found")
	ErrExamNotFound   = errors.New("scheduled exam not found")
	ErrNoFreeGroup    = errors.New("course has no unscheduled group")
)

// CourseGroup is one section of a course sitting the same exam.
// It is reference data: the console relocates groups but never edits them.
type CourseGroup struct {
	ID           int64  `json:"id"`
	CourseID     int64  `json:"course_id"`
	GroupName    string `json:"group_name"`
	StudentCount int    `json:"student_count"`
	CourseTitle  string `json:"course_title"`
	Department   string `json:"department,omitempty"`
	Semester     string `json:"semester,omitempty"`
}

// Label returns "Title (Group)".
func (g CourseGroup) Label() string {
	if g.GroupName == "" {
		return g.CourseTitle
	}
	return fmt.Sprintf("%s (%s)", g.CourseTitle, g.GroupName)
}

// UnscheduledCourse is a course with the groups not yet placed.
type UnscheduledCourse struct {
	CourseID   int64         `json:"course_id"`
	Title      string        `json:"title"`
	Department string        `json:"department,omitempty"`
	Semester   string        `json:"semester,omitempty"`
	Groups     []CourseGroup `json:"groups"`
}

// CourseFromGroup rebuilds the course shell a group belongs to.
func CourseFromGroup(g CourseGroup) UnscheduledCourse {
	return UnscheduledCourse{
		CourseID:   g.CourseID,
		Title:      g.CourseTitle,
		Department: g.Department,
		Semester:   g.Semester,
	}
}

// FirstGroup returns the lowest-id group, the one a whole-course placement binds.
func (c UnscheduledCourse) FirstGroup() (CourseGroup, error) {
	if len(c.Groups) == 0 {
		return CourseGroup{}, ErrNoFreeGroup
	}
	first := c.Groups[0]
	for _, g := range c.Groups[1:] {
		if g.ID < first.ID {
			first = g
		}
	}
	return first, nil
}

// StudentCount sums the students over all unscheduled groups.
func (c UnscheduledCourse) StudentCount() int {
	n := 0
	for _, g := range c.Groups {
		n += g.StudentCount
	}
	return n
}

// ScheduledExam is a course group bound to a slot.
// ID is assigned by the scheduling service on commit.
type ScheduledExam struct {
	ID    int64
	Group CourseGroup
	Slot  SlotRef
	Room  string
}

// Ref returns the compact reference used in conflict records.
func (e ScheduledExam) Ref() ExamRef {
	return ExamRef{ExamID: e.ID, GroupID: e.Group.ID, CourseID: e.Group.CourseID, Title: e.Group.Label()}
}

// ExamRef identifies a scheduled exam inside a conflict record.
type ExamRef struct {
	ExamID   int64  `json:"exam_id"`
	GroupID  int64  `json:"group_id"`
	CourseID int64  `json:"course_id"`
	Title    string `json:"title"`
}

// Student is an individual enrolled in a group.
type Student struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// ConflictRecord pairs two exams that share students.
type ConflictRecord struct {
	First    ExamRef   `json:"first"`
	Second   ExamRef   `json:"second"`
	Students []Student `json:"students"`
}

// Suggestion is an alternative slot ranked by the scheduling service.
// Only Suggested entries may be picked.
type Suggestion struct {
	Date      time.Time
	SlotName  SlotName
	Suggested bool
	Reason    string
	Room      string
}

// SlotRef returns the slot the suggestion points at.
func (s Suggestion) SlotRef() SlotRef {
	return NewSlotRef(s.Date, s.SlotName)
}

// VerdictKind classifies a verification response.
type VerdictKind int

const (
	VerdictClear VerdictKind = iota
	VerdictConflict
)

func (k VerdictKind) String() string {
	if k == VerdictConflict {
		return "conflict"
	}
	return "clear"
}

// Verdict is the classified result of a verify call.
type Verdict struct {
	Kind        VerdictKind
	Conflicts   []ConflictRecord
	Suggestions []Suggestion
	Best        *Suggestion
}

// Selectable returns the suggestions the operator may pick.
func (v Verdict) Selectable() []Suggestion {
	var out []Suggestion
	for _, s := range v.Suggestions {
		if s.Suggested {
			out = append(out, s)
		}
	}
	return out
}

// Receipt is what the service reports after a commit. Either field may be
// zero when the service omits it.
type Receipt struct {
	ExamID int64
	Room   string
}
