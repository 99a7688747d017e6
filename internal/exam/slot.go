// Package exam defines the core domain types for examdesk.
package exam

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validation errors.
var (
	ErrInvalidSlotName   = errors.New("slot name must be Morning, Afternoon or Evening")
	ErrInvalidDateFormat = errors.New("date must be in YYYY-MM-DD format")
	ErrInvalidTimeFormat = errors.New("time must be in HH:MM format")
	ErrEndBeforeStart    = errors.New("end time must be after start time")
	ErrInvalidSlotKey    = errors.New("slot key must be YYYY-MM-DD/SlotName")
)

// DateLayout is the wire and key format for exam days.
const DateLayout = "2006-01-02"

// SlotName is a named time window within a day.
type SlotName string

const (
	Morning   SlotName = "Morning"
	Afternoon SlotName = "Afternoon"
	Evening   SlotName = "Evening"
)

// SlotNames lists slot names in day order.
var SlotNames = []SlotName{Morning, Afternoon, Evening}

// Index returns the position of the slot within the day, or -1.
func (n SlotName) Index() int {
	for i, name := range SlotNames {
		if name == n {
			return i
		}
	}
	return -1
}

// Valid returns true if n is a known slot name.
func (n SlotName) Valid() bool {
	return n.Index() >= 0
}

// ParseSlotName parses a slot name case-insensitively.
func ParseSlotName(s string) (SlotName, error) {
	s = strings.TrimSpace(s)
	for _, name := range SlotNames {
		if strings.EqualFold(string(name), s) {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSlotName, s)
}

// ParseDay parses a YYYY-MM-DD day in local time.
func ParseDay(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, s)
	}
	return d, nil
}

// SlotRef identifies a slot: a day plus a slot name.
type SlotRef struct {
	Day  time.Time
	Name SlotName
}

// NewSlotRef builds a SlotRef, dropping the time-of-day part of day.
func NewSlotRef(day time.Time, name SlotName) SlotRef {
	y, m, d := day.Date()
	return SlotRef{Day: time.Date(y, m, d, 0, 0, 0, 0, time.Local), Name: name}
}

// ParseSlotRef builds a SlotRef from a day key and a slot descriptor.
func ParseSlotRef(dayKey, slotDescriptor string) (SlotRef, error) {
	day, err := ParseDay(dayKey)
	if err != nil {
		return SlotRef{}, err
	}
	name, err := ParseSlotName(slotDescriptor)
	if err != nil {
		return SlotRef{}, err
	}
	return SlotRef{Day: day, Name: name}, nil
}

// ParseSlotKey parses the canonical "YYYY-MM-DD/Name" form returned by Key.
func ParseSlotKey(key string) (SlotRef, error) {
	day, name, ok := strings.Cut(key, "/")
	if !ok {
		return SlotRef{}, fmt.Errorf("%w: %q", ErrInvalidSlotKey, key)
	}
	return ParseSlotRef(day, name)
}

// DayKey returns the YYYY-MM-DD form of the slot's day.
func (r SlotRef) DayKey() string {
	return r.Day.Format(DateLayout)
}

// Key returns the canonical slot key.
func (r SlotRef) Key() string {
	return r.DayKey() + "/" + string(r.Name)
}

// IsZero reports whether r is unset.
func (r SlotRef) IsZero() bool {
	return r.Day.IsZero() && r.Name == ""
}

// Equal compares two refs by day and name.
func (r SlotRef) Equal(o SlotRef) bool {
	return r.Key() == o.Key()
}

// Before orders refs by day then slot position.
func (r SlotRef) Before(o SlotRef) bool {
	if dk, ok := r.DayKey(), o.DayKey(); dk != ok {
		return dk < ok
	}
	return r.Name.Index() < o.Name.Index()
}

func (r SlotRef) String() string {
	return r.Day.Format("Mon 02 Jan") + " " + string(r.Name)
}

// Slot is a SlotRef with its wall-clock window.
type Slot struct {
	SlotRef
	Start string // "HH:MM"
	End   string // "HH:MM"
}

// Validate checks the time format and that Start < End.
func (s Slot) Validate() error {
	return ValidateWindow(s.Start, s.End)
}
