package scheduler

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Engine places subject hours for a single group within a shift window. An
// Engine keeps no state between runs; every Run starts from empty occupancy.
type Engine struct {
	window    ShiftWindow
	group     Group
	maxPasses int
	logger    *zap.Logger
}

// Option customises an Engine.
type Option func(*Engine)

// WithLogger attaches a logger for run summaries.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMaxPasses overrides the pass bound. Values <= 0 keep the default of
// subjects x largest required hours.
func WithMaxPasses(passes int) Option {
	return func(e *Engine) {
		e.maxPasses = passes
	}
}

// NewEngine constructs an engine for one group and shift.
func NewEngine(window ShiftWindow, group Group, opts ...Option) *Engine {
	engine := &Engine{window: window, group: group, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// GenerateSchedule returns the assignments the search could place.
func (e *Engine) GenerateSchedule(teachers []Teacher, subjects []Subject, groups []Group) ([]Assignment, error) {
	result, err := e.Run(teachers, subjects, groups)
	if err != nil {
		return nil, err
	}
	return result.Assignments, nil
}

// Run executes the search and reports coverage per subject. Infeasible input is
// not an error: unplaced hours show up as shortfall in the result.
func (e *Engine) Run(teachers []Teacher, subjects []Subject, groups []Group) (*Result, error) {
	group, err := e.resolveGroup(groups)
	if err != nil {
		return nil, err
	}
	if err := validateInput(e.window, teachers, subjects); err != nil {
		return nil, err
	}

	eligible := buildEligibility(teachers)
	result := &Result{GroupID: group.ID, Shift: e.window, Assignments: []Assignment{}}
	if len(teachers) == 0 || len(subjects) == 0 {
		result.Coverage = buildCoverage(subjects, eligible, nil)
		result.Required = totalRequired(subjects)
		return result, nil
	}

	r := &run{
		occ:       newOccupancy(teachers),
		slots:     buildAvailability(teachers, e.window),
		eligible:  eligible,
		remaining: make(map[string]int, len(subjects)),
		order:     scarcityOrder(subjects, eligible),
	}
	for _, subject := range subjects {
		r.remaining[subject.ID] = subject.RequiredHours
	}

	maxPasses := e.maxPasses
	if maxPasses <= 0 {
		maxPasses = defaultPassBound(subjects)
	}

	r.greedyPass()
	r.passes = 1
	for r.passes < maxPasses && r.short() {
		r.passes++
		if !r.repairPass() {
			break
		}
	}

	placements := r.occ.placements()
	result.Assignments = assemble(group.ID, placements)
	result.Coverage = buildCoverage(subjects, eligible, countBySubject(placements))
	result.Required = totalRequired(subjects)
	result.Placed = len(result.Assignments)
	result.Passes = r.passes

	e.logger.Debug("schedule run finished",
		zap.String("group_id", group.ID),
		zap.String("shift", e.window.Label()),
		zap.Int("required", result.Required),
		zap.Int("placed", result.Placed),
		zap.Int("passes", result.Passes),
	)
	return result, nil
}

func (e *Engine) resolveGroup(groups []Group) (Group, error) {
	switch len(groups) {
	case 0:
		if e.group.ID == "" {
			return Group{}, fmt.Errorf("%w: group is required", ErrMalformedInput)
		}
		return e.group, nil
	case 1:
		group := groups[0]
		if group.ID == "" {
			return Group{}, fmt.Errorf("%w: group id is required", ErrMalformedInput)
		}
		if e.group.ID != "" && group.ID != e.group.ID {
			return Group{}, fmt.Errorf("%w: engine built for group %s cannot schedule group %s", ErrMalformedInput, e.group.ID, group.ID)
		}
		return group, nil
	default:
		return Group{}, fmt.Errorf("%w: exactly one group per run, got %d", ErrMalformedInput, len(groups))
	}
}

func validateInput(window ShiftWindow, teachers []Teacher, subjects []Subject) error {
	if window.HourMin < 0 || window.HourMax > 24 {
		return fmt.Errorf("%w: shift window [%d,%d) outside the day", ErrMalformedInput, window.HourMin, window.HourMax)
	}
	teacherIDs := make(map[string]bool, len(teachers))
	for _, teacher := range teachers {
		if teacher.ID == "" {
			return fmt.Errorf("%w: teacher id is required", ErrMalformedInput)
		}
		if teacherIDs[teacher.ID] {
			return fmt.Errorf("%w: duplicate teacher %s", ErrMalformedInput, teacher.ID)
		}
		teacherIDs[teacher.ID] = true
		for _, day := range teacher.AvailableDays {
			if day < Monday || day > Saturday {
				return fmt.Errorf("%w: teacher %s has weekday %d outside 0-5", ErrMalformedInput, teacher.ID, day)
			}
		}
		if teacher.MaxHoursPerDay != nil && *teacher.MaxHoursPerDay < 0 {
			return fmt.Errorf("%w: teacher %s has a negative daily cap", ErrMalformedInput, teacher.ID)
		}
		if teacher.MaxHoursPerWeek != nil && *teacher.MaxHoursPerWeek < 0 {
			return fmt.Errorf("%w: teacher %s has a negative weekly cap", ErrMalformedInput, teacher.ID)
		}
	}
	subjectIDs := make(map[string]bool, len(subjects))
	for _, subject := range subjects {
		if subject.ID == "" {
			return fmt.Errorf("%w: subject id is required", ErrMalformedInput)
		}
		if subjectIDs[subject.ID] {
			return fmt.Errorf("%w: duplicate subject %s", ErrMalformedInput, subject.ID)
		}
		subjectIDs[subject.ID] = true
		if subject.RequiredHours < 0 {
			return fmt.Errorf("%w: subject %s requires %d hours", ErrMalformedInput, subject.ID, subject.RequiredHours)
		}
	}
	return nil
}

// scarcityOrder puts subjects with fewer eligible teachers first, keeping declaration order on ties.
func scarcityOrder(subjects []Subject, eligible map[string][]string) []Subject {
	order := make([]Subject, len(subjects))
	copy(order, subjects)
	sort.SliceStable(order, func(i, j int) bool {
		return len(eligible[order[i].ID]) < len(eligible[order[j].ID])
	})
	return order
}

func defaultPassBound(subjects []Subject) int {
	maxHours := lo.Max(lo.Map(subjects, func(subject Subject, _ int) int { return subject.RequiredHours }))
	if bound := len(subjects) * maxHours; bound > 1 {
		return bound
	}
	return 1
}

func totalRequired(subjects []Subject) int {
	return lo.SumBy(subjects, func(subject Subject) int { return subject.RequiredHours })
}

type run struct {
	occ       *occupancy
	slots     map[string][]Slot
	eligible  map[string][]string
	remaining map[string]int
	order     []Subject
	passes    int
}

func (r *run) short() bool {
	return lo.SomeBy(r.order, func(subject Subject) bool { return r.remaining[subject.ID] > 0 })
}

func (r *run) greedyPass() {
	for _, subject := range r.order {
		for r.remaining[subject.ID] > 0 && r.placeFirstLegal(subject.ID) {
			r.remaining[subject.ID]--
		}
	}
}

func (r *run) placeFirstLegal(subjectID string) bool {
	for _, teacherID := range r.eligible[subjectID] {
		for _, slot := range r.slots[teacherID] {
			if r.occ.legal(teacherID, slot) {
				r.occ.commit(teacherID, subjectID, slot)
				return true
			}
		}
	}
	return false
}

// repairPass retries short subjects, freeing a slot by moving the group's
// blocking placement elsewhere. It reports whether anything was placed.
func (r *run) repairPass() bool {
	progressed := false
	for _, subject := range r.order {
		for r.remaining[subject.ID] > 0 && r.placeWithMove(subject.ID) {
			r.remaining[subject.ID]--
			progressed = true
		}
	}
	return progressed
}

func (r *run) placeWithMove(subjectID string) bool {
	if r.placeFirstLegal(subjectID) {
		return true
	}
	for _, teacherID := range r.eligible[subjectID] {
		for _, slot := range r.slots[teacherID] {
			blocker := r.occ.blocking(slot)
			if blocker == nil {
				continue
			}
			if blocker.teacherID != teacherID && !r.occ.teacherFree(teacherID, slot) {
				continue
			}
			if r.relocate(blocker, teacherID, slot) {
				r.occ.commit(teacherID, subjectID, slot)
				return true
			}
		}
	}
	return false
}

// relocate moves blocker to another legal slot of its own teacher such that
// teacherID can then take freed. The move is undone when no target works.
func (r *run) relocate(blocker *placement, teacherID string, freed Slot) bool {
	origin := blocker.slot
	for _, target := range r.slots[blocker.teacherID] {
		if target == origin || !r.occ.legal(blocker.teacherID, target) {
			continue
		}
		r.occ.move(blocker, target)
		if r.occ.legal(teacherID, freed) {
			return true
		}
		r.occ.move(blocker, origin)
	}
	return false
}
