package scheduler

import "sort"

// assemble converts committed placements into assignments ordered by day and hour.
func assemble(groupID string, placements []*placement) []Assignment {
	assignments := make([]Assignment, 0, len(placements))
	for _, p := range placements {
		assignments = append(assignments, Assignment{
			TeacherID: p.teacherID,
			SubjectID: p.subjectID,
			GroupID:   groupID,
			Day:       p.slot.Day,
			StartHour: p.slot.Hour,
			EndHour:   p.slot.Hour + 1,
		})
	}
	sort.Slice(assignments, func(i, j int) bool {
		if assignments[i].Day == assignments[j].Day {
			return assignments[i].StartHour < assignments[j].StartHour
		}
		return assignments[i].Day < assignments[j].Day
	})
	return assignments
}

func countBySubject(placements []*placement) map[string]int {
	counts := make(map[string]int)
	for _, p := range placements {
		counts[p.subjectID]++
	}
	return counts
}

// buildCoverage reports subjects in declaration order.
func buildCoverage(subjects []Subject, eligible map[string][]string, placed map[string]int) []SubjectCoverage {
	coverage := make([]SubjectCoverage, 0, len(subjects))
	for _, subject := range subjects {
		count := placed[subject.ID]
		coverage = append(coverage, SubjectCoverage{
			SubjectID:        subject.ID,
			SubjectName:      subject.Name,
			Required:         subject.RequiredHours,
			Placed:           count,
			Shortfall:        subject.RequiredHours - count,
			EligibleTeachers: len(eligible[subject.ID]),
		})
	}
	return coverage
}
