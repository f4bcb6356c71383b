package calendar

import "sort"

// Overlaps reports whether a and b share an instant. Touching endpoints do not count.
func Overlaps(a, b DayAndTimePeriod) bool {
	return a.StartInstant() < b.EndInstant() && b.StartInstant() < a.EndInstant()
}

// Intersects is Overlaps with touching endpoints counted as shared. Periods on
// different days never touch, so a window ending at 24:00 stays on its own day.
func Intersects(a, b DayAndTimePeriod) bool {
	if Overlaps(a, b) {
		return true
	}
	return a.Day.Equal(b.Day) && a.StartInstant() <= b.EndInstant() && b.StartInstant() <= a.EndInstant()
}

// Intersection returns the common span of a and b, if it has positive length.
func Intersection(a, b DayAndTimePeriod) (DayAndTimePeriod, bool) {
	if !a.Day.Equal(b.Day) || !Overlaps(a, b) {
		return DayAndTimePeriod{}, false
	}
	start := MaxTime24(a.Period.Start, b.Period.Start)
	end := MinTime24(a.Period.End, b.Period.End)
	return a.withPeriod(start, end), true
}

// Covers reports whether inner lies entirely within outer.
func Covers(outer, inner DayAndTimePeriod) bool {
	return outer.StartInstant() <= inner.StartInstant() && inner.EndInstant() <= outer.EndInstant()
}

// Sequential reports whether b starts exactly where a ends on the same day.
func Sequential(a, b DayAndTimePeriod) bool {
	return a.Day.Equal(b.Day) && a.Period.End.Compare(b.Period.Start) == 0
}

// SplitPeriod removes the part of period covered by cut. The result has zero
// segments when cut covers period, two when cut is strictly inside it, and one
// when cut overlaps an edge. With includeCut the covered part is returned as an
// extra segment in its place. Segments are ordered by start time. A cut that
// does not overlap period leaves it whole.
func SplitPeriod(period, cut DayAndTimePeriod, includeCut bool) []DayAndTimePeriod {
	covered, ok := Intersection(period, cut)
	if !ok {
		return []DayAndTimePeriod{period}
	}

	segments := make([]DayAndTimePeriod, 0, 3)
	if period.Period.Start.Before(covered.Period.Start) {
		segments = append(segments, period.withPeriod(period.Period.Start, covered.Period.Start))
	}
	if includeCut {
		segments = append(segments, covered)
	}
	if covered.Period.End.Before(period.Period.End) {
		segments = append(segments, period.withPeriod(covered.Period.End, period.Period.End))
	}
	return segments
}

// Subtract removes cut from every period in periods.
func Subtract(periods []DayAndTimePeriod, cut DayAndTimePeriod) []DayAndTimePeriod {
	out := make([]DayAndTimePeriod, 0, len(periods)+1)
	for _, p := range periods {
		out = append(out, SplitPeriod(p, cut, false)...)
	}
	return out
}

// SortPeriods orders periods by start, then by end.
func SortPeriods(periods []DayAndTimePeriod) {
	sort.SliceStable(periods, func(i, j int) bool {
		if periods[i].StartInstant() != periods[j].StartInstant() {
			return periods[i].StartInstant() < periods[j].StartInstant()
		}
		return periods[i].EndInstant() < periods[j].EndInstant()
	})
}

// MergePeriods sorts periods and joins any on the same day that overlap or
// touch, so 09:00-12:00 and 12:00-18:00 become 09:00-18:00.
func MergePeriods(periods []DayAndTimePeriod) []DayAndTimePeriod {
	sorted := append([]DayAndTimePeriod(nil), periods...)
	SortPeriods(sorted)

	out := make([]DayAndTimePeriod, 0, len(sorted))
	for _, p := range sorted {
		if n := len(out); n > 0 && Intersects(out[n-1], p) {
			last := out[n-1]
			out[n-1] = last.withPeriod(last.Period.Start, MaxTime24(last.Period.End, p.Period.End))
			continue
		}
		out = append(out, p)
	}
	return out
}
