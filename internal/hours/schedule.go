package hours

// OpenRange is a single business-hours window. Close before Open means the
// window runs past midnight; Close equal to Open means open all day.
type OpenRange struct {
	Open  TimeOfDay `json:"open"`
	Close TimeOfDay `json:"close"`
}

// Wraps reports whether the range continues past midnight.
func (r OpenRange) Wraps() bool {
	return r.Close.Minutes() < r.Open.Minutes()
}

// AllDay reports whether the range covers the whole day.
func (r OpenRange) AllDay() bool {
	return r.Close == r.Open
}

// Contains reports whether t falls inside the range.
func (r OpenRange) Contains(t TimeOfDay) bool {
	n := t.Minutes()
	switch {
	case r.AllDay():
		return true
	case r.Wraps():
		return n >= r.Open.Minutes() || n < r.Close.Minutes()
	default:
		return n >= r.Open.Minutes() && n < r.Close.Minutes()
	}
}

// MinutesUntilClose returns minutes from t to the range's close. For a
// wrapping range the close is always taken on the following day.
func (r OpenRange) MinutesUntilClose(t TimeOfDay) int {
	switch {
	case r.AllDay():
		return minutesPerDay
	case r.Wraps():
		return r.Close.Minutes() + minutesPerDay - t.Minutes()
	default:
		return r.Close.Minutes() - t.Minutes()
	}
}

// PastClose reports whether t is at or after the range's close for today.
func (r OpenRange) PastClose(t TimeOfDay) bool {
	n := t.Minutes()
	switch {
	case r.AllDay():
		return false
	case r.Wraps():
		return n >= r.Close.Minutes() && n < r.Open.Minutes()
	default:
		return n >= r.Close.Minutes()
	}
}

func (r OpenRange) String() string {
	return r.Open.String() + "-" + r.Close.String()
}

// BreakRange is a pause inside business hours, e.g. a lunch break.
type BreakRange struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// Contains reports whether t falls inside [Start, End).
func (b BreakRange) Contains(t TimeOfDay) bool {
	n := t.Minutes()
	if b.End.Minutes() < b.Start.Minutes() {
		return n >= b.Start.Minutes() || n < b.End.Minutes()
	}
	return n >= b.Start.Minutes() && n < b.End.Minutes()
}

// DaySchedule is the parsed schedule for a single day.
type DaySchedule struct {
	OpenRanges []OpenRange `json:"open_ranges"`
	Break      *BreakRange `json:"break,omitempty"`
}

// IsEmpty reports whether no open range applies.
func (s DaySchedule) IsEmpty() bool {
	return len(s.OpenRanges) == 0
}
