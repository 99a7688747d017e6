package devserver

import (
	"fmt"
	"time"

	"github.com/javiermolinar/examdesk/internal/exam"
)

type seedCourse struct {
	id     int64
	title  string
	dept   string
	groups []string
}

var seedCourses = []seedCourse{
	{1, "Linear Algebra", "Mathematics", []string{"A", "B"}},
	{2, "Calculus I", "Mathematics", []string{"A", "B", "C"}},
	{3, "Operating Systems", "Computer Science", []string{"A"}},
	{4, "Databases", "Computer Science", []string{"A", "B"}},
	{5, "Organic Chemistry", "Chemistry", []string{"A"}},
	{6, "Thermodynamics", "Physics", []string{"A"}},
	{7, "Statistics", "Mathematics", []string{"A", "B"}},
	{8, "Compilers", "Computer Science", []string{"A"}},
}

var seedRooms = []Room{
	{Name: "A-101", Capacity: 30},
	{Name: "A-102", Capacity: 30},
	{Name: "B-201", Capacity: 60},
	{Name: "Aula Magna", Capacity: 200},
}

// Seed builds a demo exam period of days weekdays starting at start.
// Students are enrolled in overlapping courses so that some placements
// clash, and a handful of groups start out scheduled.
func Seed(start time.Time, days int, windows map[exam.SlotName][2]string) *State {
	var period []time.Time
	for d := start; len(period) < days; d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		period = append(period, d)
	}

	s := NewState(period, windows)
	for _, r := range seedRooms {
		s.AddRoom(r)
	}

	// A deterministic spread of enrolments, so many course pairs share students.
	const students = 120
	groupID := int64(100)
	for _, c := range seedCourses {
		for gi, name := range c.groups {
			groupID++
			g := exam.CourseGroup{
				ID:          groupID,
				CourseID:    c.id,
				GroupName:   name,
				CourseTitle: c.title,
				Department:  c.dept,
				Semester:    "2025S",
			}
			var roster []exam.Student
			for n := 0; n < students; n++ {
				if n%len(c.groups) != gi || (n*int(c.id))%7 >= 3 {
					continue
				}
				roster = append(roster, exam.Student{ID: fmt.Sprintf("s%03d", n), Name: fmt.Sprintf("Student %d", n)})
			}
			s.AddGroup(g, roster)
		}
	}

	if len(period) > 0 {
		_, _ = s.Place(101, exam.NewSlotRef(period[0], exam.Morning), "")
		_, _ = s.Place(103, exam.NewSlotRef(period[0], exam.Afternoon), "")
	}
	if len(period) > 1 {
		_, _ = s.Place(106, exam.NewSlotRef(period[1], exam.Morning), "")
	}
	return s
}
