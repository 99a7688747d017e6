package exam

import "fmt"

// EntityKind tags what the operator is carrying.
type EntityKind int

const (
	KindCourse         EntityKind = iota // whole course, first free group
	KindCourseGroup                      // one specific unscheduled group
	KindScheduledGroup                   // a group already in the grid, being relocated
	KindRoomGroup                        // room change for a scheduled group
	KindRoomStudents                     // room change for a list of students
)

var kindNames = map[EntityKind]string{
	KindCourse:         "course",
	KindCourseGroup:    "course_group",
	KindScheduledGroup: "scheduled_group",
	KindRoomGroup:      "room_group",
	KindRoomStudents:   "room_students",
}

func (k EntityKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsPlacement reports whether the kind moves a group between the
// unscheduled list and the grid.
func (k EntityKind) IsPlacement() bool {
	return k == KindCourse || k == KindCourseGroup || k == KindScheduledGroup
}

// IsRoomChange reports whether the kind belongs to room reassignment.
func (k EntityKind) IsRoomChange() bool {
	return k == KindRoomGroup || k == KindRoomStudents
}

// Entity is whatever the operator is carrying. Group is always the group
// that will be bound; for KindCourse it is the course's first free group.
type Entity struct {
	Kind     EntityKind
	Group    CourseGroup
	Course   *UnscheduledCourse // KindCourse
	Exam     *ScheduledExam     // KindScheduledGroup and room kinds
	Students []Student          // KindRoomStudents
	Room     string             // room kinds: requested room
}

// CourseEntity carries a whole course.
func CourseEntity(c UnscheduledCourse) (Entity, error) {
	g, err := c.FirstGroup()
	if err != nil {
		return Entity{}, err
	}
	course := c
	return Entity{Kind: KindCourse, Group: g, Course: &course}, nil
}

// GroupEntity carries one unscheduled group.
func GroupEntity(g CourseGroup) Entity {
	return Entity{Kind: KindCourseGroup, Group: g}
}

// ScheduledEntity carries an exam already in the grid.
func ScheduledEntity(e ScheduledExam) Entity {
	ex := e
	return Entity{Kind: KindScheduledGroup, Group: e.Group, Exam: &ex}
}

// RoomGroupEntity requests moving a scheduled group to another room.
func RoomGroupEntity(e ScheduledExam, room string) Entity {
	ex := e
	return Entity{Kind: KindRoomGroup, Group: e.Group, Exam: &ex, Room: room}
}

// RoomStudentsEntity requests moving some students of an exam to another room.
func RoomStudentsEntity(e ScheduledExam, room string, students []Student) Entity {
	ex := e
	return Entity{Kind: KindRoomStudents, Group: e.Group, Exam: &ex, Room: room, Students: students}
}

// Source returns the slot the entity currently occupies, if any.
func (e Entity) Source() (SlotRef, bool) {
	if e.Exam == nil {
		return SlotRef{}, false
	}
	return e.Exam.Slot, true
}

// Label describes the entity for status lines.
func (e Entity) Label() string {
	switch e.Kind {
	case KindCourse:
		return e.Group.CourseTitle
	case KindRoomStudents:
		return fmt.Sprintf("%d students of %s", len(e.Students), e.Group.Label())
	default:
		return e.Group.Label()
	}
}
