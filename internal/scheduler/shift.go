package scheduler

import "strings"

const (
	ShiftMorning = "morning"
	ShiftEvening = "evening"
)

// ShiftWindow is the half-open range [HourMin, HourMax) of legal start hours.
type ShiftWindow struct {
	Name    string `json:"name"`
	HourMin int    `json:"hourMin"`
	HourMax int    `json:"hourMax"`
}

var (
	MorningShift = ShiftWindow{Name: ShiftMorning, HourMin: 7, HourMax: 14}
	EveningShift = ShiftWindow{Name: ShiftEvening, HourMin: 14, HourMax: 22}
)

var shiftAliases = map[string]ShiftWindow{
	"morning":    MorningShift,
	"matutino":   MorningShift,
	"evening":    EveningShift,
	"vespertino": EveningShift,
}

// ParseShift maps a shift name to its hour window. Unknown names resolve to the
// evening window, matching how timetables were generated historically.
func ParseShift(name string) ShiftWindow {
	if window, ok := shiftAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return window
	}
	return EveningShift
}

// KnownShift reports whether name maps to a shift without falling back.
func KnownShift(name string) bool {
	_, ok := shiftAliases[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// Label returns the canonical shift name stored with generated timetables.
func (w ShiftWindow) Label() string {
	if w.Name == "" {
		return ShiftEvening
	}
	return w.Name
}

// Hours returns the number of start hours inside the window.
func (w ShiftWindow) Hours() int {
	if w.HourMax <= w.HourMin {
		return 0
	}
	return w.HourMax - w.HourMin
}

// Contains reports whether hour is a legal start hour.
func (w ShiftWindow) Contains(hour int) bool {
	return hour >= w.HourMin && hour < w.HourMax
}
