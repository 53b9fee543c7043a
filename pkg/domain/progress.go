package domain

var progressByStatus = map[string]int{
	string(IdeaStatusDraft):            0,
	string(ExperimentStatusPlanned):    0,
	string(IdeaStatusProposed):         50,
	string(IdeaStatusExperiment):       50,
	string(IdeaStatusOutcome):          50,
	string(ExperimentStatusInProgress): 50,
	string(ExperimentStatusCompleted):  100,
	string(IdeaStatusReflection):       100,
}

// ProgressForStatus maps an idea or experiment status to a completion
// percentage. It is derived, never stored.
func ProgressForStatus(status string) (int, bool) {
	p, ok := progressByStatus[status]
	return p, ok
}

// Progress returns the completion percentage of the experiment.
func (e Experiment) Progress() int {
	p, _ := ProgressForStatus(string(e.Status))
	return p
}

// Progress returns the completion percentage of the idea.
func (i Idea) Progress() int {
	p, _ := ProgressForStatus(string(i.Status))
	return p
}
