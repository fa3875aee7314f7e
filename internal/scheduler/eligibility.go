package scheduler

// buildEligibility maps subject id to the teachers allowed to teach it, in teacher input order.
func buildEligibility(teachers []Teacher) map[string][]string {
	index := make(map[string][]string)
	for _, teacher := range teachers {
		seen := make(map[string]bool, len(teacher.SubjectIDs))
		for _, subjectID := range teacher.SubjectIDs {
			if seen[subjectID] {
				continue
			}
			seen[subjectID] = true
			index[subjectID] = append(index[subjectID], teacher.ID)
		}
	}
	return index
}
