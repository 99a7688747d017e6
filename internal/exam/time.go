package exam

import "fmt"

// ValidateTimeFormat checks that t is a 24h "HH:MM" string.
func ValidateTimeFormat(t string) error {
	if len(t) != 5 || t[2] != ':' {
		return ErrInvalidTimeFormat
	}
	for _, i := range []int{0, 1, 3, 4} {
		if t[i] < '0' || t[i] > '9' {
			return ErrInvalidTimeFormat
		}
	}
	if TimeToMinutes(t) >= 24*60 || t[3] > '5' {
		return ErrInvalidTimeFormat
	}
	return nil
}

// ValidateWindow checks both ends and that end is strictly after start.
// HH:MM strings order lexically, so the comparison is string-wise.
func ValidateWindow(start, end string) error {
	if err := ValidateTimeFormat(start); err != nil {
		return fmt.Errorf("start time: %w", err)
	}
	if err := ValidateTimeFormat(end); err != nil {
		return fmt.Errorf("end time: %w", err)
	}
	if end <= start {
		return ErrEndBeforeStart
	}
	return nil
}

// TimeToMinutes converts "HH:MM" to minutes since midnight.
// Returns 0 for invalid input.
func TimeToMinutes(t string) int {
	if len(t) < 5 {
		return 0
	}
	hours := int(t[0]-'0')*10 + int(t[1]-'0')
	mins := int(t[3]-'0')*10 + int(t[4]-'0')
	return hours*60 + mins
}

// Duration returns the window length in minutes.
func (s Slot) Duration() int {
	return TimeToMinutes(s.End) - TimeToMinutes(s.Start)
}
