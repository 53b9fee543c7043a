package domain

import "sort"

// Machine is the allowed-transition table for one entity kind.
type Machine struct {
	Entity  EntityType
	Label   string
	Initial string
	edges   map[string][]string
}

func newMachine(entity EntityType, label, initial string, edges map[string][]string) Machine {
	return Machine{Entity: entity, Label: label, Initial: initial, edges: edges}
}

var machines = map[EntityType]Machine{
	EntityIdea: newMachine(EntityIdea, "idea", string(IdeaStatusDraft), map[string][]string{
		string(IdeaStatusDraft):      {string(IdeaStatusProposed)},
		string(IdeaStatusProposed):   {string(IdeaStatusExperiment)},
		string(IdeaStatusExperiment): {string(IdeaStatusOutcome)},
		string(IdeaStatusOutcome):    {string(IdeaStatusReflection)},
		string(IdeaStatusReflection): {},
	}),
	EntityExperiment: newMachine(EntityExperiment, "experiment", string(ExperimentStatusPlanned), map[string][]string{
		string(ExperimentStatusPlanned):    {string(ExperimentStatusInProgress)},
		string(ExperimentStatusInProgress): {string(ExperimentStatusCompleted)},
		string(ExperimentStatusCompleted):  {},
	}),
}

// MachineFor returns the lifecycle machine for kind.
func MachineFor(kind EntityType) (Machine, bool) {
	m, ok := machines[kind]
	return m, ok
}

// Valid reports whether status is a state of the machine.
func (m Machine) Valid(status string) bool {
	_, ok := m.edges[status]
	return ok
}

// Terminal reports whether status has no outgoing transitions.
func (m Machine) Terminal(status string) bool {
	next, ok := m.edges[status]
	return ok && len(next) == 0
}

// Allowed returns the statuses reachable in one step from status.
func (m Machine) Allowed(status string) []string {
	return append([]string(nil), m.edges[status]...)
}

// States returns every status of the machine in sorted order.
func (m Machine) States() []string {
	out := make([]string, 0, len(m.edges))
	for s := range m.edges {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Transition validates a single step from current to requested. Self
// transitions, skips and backward moves are rejected.
func (m Machine) Transition(current, requested string) (string, error) {
	for _, next := range m.edges[current] {
		if next == requested {
			return requested, nil
		}
	}
	return current, &TransitionError{Entity: m.Entity, From: current, To: requested}
}

// Transition validates a status change for kind. Kinds without a machine
// reject every transition.
func Transition(kind EntityType, current, requested string) (string, error) {
	m, ok := machines[kind]
	if !ok {
		return current, &TransitionError{Entity: kind, From: current, To: requested}
	}
	return m.Transition(current, requested)
}

// TransitionIdea is the typed form of Transition for ideas.
func TransitionIdea(current, requested IdeaStatus) (IdeaStatus, error) {
	next, err := Transition(EntityIdea, string(current), string(requested))
	return IdeaStatus(next), err
}

// TransitionExperiment is the typed form of Transition for experiments.
func TransitionExperiment(current, requested ExperimentStatus) (ExperimentStatus, error) {
	next, err := Transition(EntityExperiment, string(current), string(requested))
	return ExperimentStatus(next), err
}

// IsIdeaStatus reports whether s is a known idea status.
func IsIdeaStatus(s string) bool { return machines[EntityIdea].Valid(s) }

// IsExperimentStatus reports whether s is a known experiment status.
func IsExperimentStatus(s string) bool { return machines[EntityExperiment].Valid(s) }
