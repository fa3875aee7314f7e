package scheduler

import (
	"sort"

	"github.com/samber/lo"
)

// ResolveDays returns the weekdays a teacher can be scheduled on. nil means the
// teacher never configured availability and DefaultWeekdays applies.
func ResolveDays(days []int) []int {
	if days == nil {
		return append([]int(nil), DefaultWeekdays...)
	}
	resolved := lo.Uniq(days)
	sort.Ints(resolved)
	return resolved
}

// candidateSlots lists the teacher's legal slots for the window, day ascending then hour ascending.
func candidateSlots(days []int, window ShiftWindow) []Slot {
	resolved := ResolveDays(days)
	slots := make([]Slot, 0, len(resolved)*window.Hours())
	for _, day := range resolved {
		for hour := window.HourMin; hour < window.HourMax; hour++ {
			slots = append(slots, Slot{Day: day, Hour: hour})
		}
	}
	return slots
}

func buildAvailability(teachers []Teacher, window ShiftWindow) map[string][]Slot {
	index := make(map[string][]Slot, len(teachers))
	for _, teacher := range teachers {
		index[teacher.ID] = candidateSlots(teacher.AvailableDays, window)
	}
	return index
}
