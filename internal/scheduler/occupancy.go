package scheduler

// teacherLoad tracks what one teacher has been given during a run.
type teacherLoad struct {
	maxPerDay  *int
	maxPerWeek *int
	perDay     map[int]int
	weekly     int
	busy       map[Slot]bool
}

func newTeacherLoad(teacher Teacher) *teacherLoad {
	return &teacherLoad{
		maxPerDay:  teacher.MaxHoursPerDay,
		maxPerWeek: teacher.MaxHoursPerWeek,
		perDay:     make(map[int]int),
		busy:       make(map[Slot]bool),
	}
}

func (t *teacherLoad) hasCapacity(day int) bool {
	if t.maxPerDay != nil && t.perDay[day] >= *t.maxPerDay {
		return false
	}
	if t.maxPerWeek != nil && t.weekly >= *t.maxPerWeek {
		return false
	}
	return true
}

func (t *teacherLoad) reserve(slot Slot) {
	t.busy[slot] = true
	t.perDay[slot.Day]++
	t.weekly++
}

func (t *teacherLoad) release(slot Slot) {
	if !t.busy[slot] {
		return
	}
	delete(t.busy, slot)
	t.perDay[slot.Day]--
	t.weekly--
}

// placement is a committed (teacher, subject, slot) for the run's group.
type placement struct {
	teacherID string
	subjectID string
	slot      Slot
}

// occupancy is the mutable state of a single run. It is never shared.
type occupancy struct {
	teachers map[string]*teacherLoad
	group    map[Slot]*placement
}

func newOccupancy(teachers []Teacher) *occupancy {
	loads := make(map[string]*teacherLoad, len(teachers))
	for _, teacher := range teachers {
		loads[teacher.ID] = newTeacherLoad(teacher)
	}
	return &occupancy{
		teachers: loads,
		group:    make(map[Slot]*placement),
	}
}

// legal reports whether teacherID may take slot for the group right now.
func (o *occupancy) legal(teacherID string, slot Slot) bool {
	if _, taken := o.group[slot]; taken {
		return false
	}
	return o.teacherFree(teacherID, slot)
}

// teacherFree ignores the group's own occupancy.
func (o *occupancy) teacherFree(teacherID string, slot Slot) bool {
	load := o.teachers[teacherID]
	if load == nil || load.busy[slot] {
		return false
	}
	return load.hasCapacity(slot.Day)
}

func (o *occupancy) commit(teacherID, subjectID string, slot Slot) *placement {
	p := &placement{teacherID: teacherID, subjectID: subjectID, slot: slot}
	o.group[slot] = p
	o.teachers[teacherID].reserve(slot)
	return p
}

func (o *occupancy) move(p *placement, to Slot) {
	delete(o.group, p.slot)
	o.teachers[p.teacherID].release(p.slot)
	p.slot = to
	o.group[to] = p
	o.teachers[p.teacherID].reserve(to)
}

func (o *occupancy) blocking(slot Slot) *placement {
	return o.group[slot]
}

func (o *occupancy) placements() []*placement {
	list := make([]*placement, 0, len(o.group))
	for _, p := range o.group {
		list = append(list, p)
	}
	return list
}
