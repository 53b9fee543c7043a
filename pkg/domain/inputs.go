package domain

import "strings"

// IdeaInput carries the editable fields of an idea.
type IdeaInput struct {
	Title       string `json:"title" validate:"nonblank"`
	Description string `json:"description" validate:"nonblank"`
}

// Normalize trims surrounding whitespace.
func (in IdeaInput) Normalize() IdeaInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	return in
}

// ExperimentInput carries the fields required to create an experiment. An
// empty Status defaults to planned.
type ExperimentInput struct {
	Title          string           `json:"title" validate:"nonblank"`
	Description    string           `json:"description" validate:"nonblank"`
	Hypothesis     string           `json:"hypothesis" validate:"nonblank"`
	SuccessMetric  string           `json:"successMetric" validate:"nonblank"`
	Falsifiability string           `json:"falsifiability" validate:"nonblank"`
	Status         ExperimentStatus `json:"status" validate:"omitempty,oneof=planned in-progress completed"`
	LinkedIdeaID   *int64           `json:"linkedIdeaId,omitempty" validate:"omitempty,gt=0"`
}

// Normalize trims text fields and applies the default status.
func (in ExperimentInput) Normalize() ExperimentInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Hypothesis = strings.TrimSpace(in.Hypothesis)
	in.SuccessMetric = strings.TrimSpace(in.SuccessMetric)
	in.Falsifiability = strings.TrimSpace(in.Falsifiability)
	if in.Status == "" {
		in.Status = ExperimentStatusPlanned
	}
	return in
}

// Experiment builds the record to be created.
func (in ExperimentInput) Experiment() Experiment {
	exp := Experiment{
		Title:          in.Title,
		Description:    in.Description,
		Hypothesis:     in.Hypothesis,
		SuccessMetric:  in.SuccessMetric,
		Falsifiability: in.Falsifiability,
		Status:         in.Status,
	}
	if in.LinkedIdeaID != nil {
		id := *in.LinkedIdeaID
		exp.LinkedIdeaID = &id
	}
	return exp
}

// ExperimentPatch is a partial update. Nil fields are left untouched.
type ExperimentPatch struct {
	Title          *string           `json:"title,omitempty" validate:"omitempty,nonblank"`
	Description    *string           `json:"description,omitempty" validate:"omitempty,nonblank"`
	Hypothesis     *string           `json:"hypothesis,omitempty" validate:"omitempty,nonblank"`
	SuccessMetric  *string           `json:"successMetric,omitempty" validate:"omitempty,nonblank"`
	Falsifiability *string           `json:"falsifiability,omitempty" validate:"omitempty,nonblank"`
	Status         *ExperimentStatus `json:"status,omitempty"`
	LinkedIdeaID   *int64            `json:"linkedIdeaId,omitempty" validate:"omitempty,gt=0"`
	UnlinkIdea     bool              `json:"unlinkIdea,omitempty"`
	OutcomeResult  *OutcomeResult    `json:"outcomeResult,omitempty" validate:"omitempty,oneof=Success Failed"`
	ClearOutcome   bool              `json:"clearOutcome,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p ExperimentPatch) Empty() bool {
	return !p.touchesFields() && p.OutcomeResult == nil && !p.ClearOutcome
}

// touchesFields reports whether the patch writes anything other than the
// outcome result.
func (p ExperimentPatch) touchesFields() bool {
	return p.Title != nil || p.Description != nil || p.Hypothesis != nil ||
		p.SuccessMetric != nil || p.Falsifiability != nil || p.Status != nil ||
		p.LinkedIdeaID != nil || p.UnlinkIdea
}

// Apply validates and applies the patch to e. Completed experiments accept
// only outcome-result writes; a status change must be a single legal step.
func (p ExperimentPatch) Apply(e *Experiment) error {
	if err := Validate(p); err != nil {
		return err
	}
	if e.Status == ExperimentStatusCompleted && (p.touchesFields() || p.ClearOutcome) {
		return &ImmutableError{Entity: EntityExperiment, ID: e.ID}
	}
	if p.Status != nil {
		next, err := TransitionExperiment(e.Status, *p.Status)
		if err != nil {
			return err
		}
		e.Status = next
	}
	if p.Title != nil {
		e.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		e.Description = strings.TrimSpace(*p.Description)
	}
	if p.Hypothesis != nil {
		e.Hypothesis = strings.TrimSpace(*p.Hypothesis)
	}
	if p.SuccessMetric != nil {
		e.SuccessMetric = strings.TrimSpace(*p.SuccessMetric)
	}
	if p.Falsifiability != nil {
		e.Falsifiability = strings.TrimSpace(*p.Falsifiability)
	}
	switch {
	case p.UnlinkIdea:
		e.LinkedIdeaID = nil
	case p.LinkedIdeaID != nil:
		id := *p.LinkedIdeaID
		e.LinkedIdeaID = &id
	}
	switch {
	case p.ClearOutcome:
		e.OutcomeResult = nil
	case p.OutcomeResult != nil:
		r := *p.OutcomeResult
		e.OutcomeResult = &r
	}
	return nil
}

// OutcomeInput carries the fields of a new outcome.
type OutcomeInput struct {
	ExperimentID int64  `json:"experimentId" validate:"gt=0"`
	Result       string `json:"result" validate:"nonblank"`
	Notes        string `json:"notes"`
}

// ReflectionInput carries the structured fields of a new reflection. An empty
// Visibility defaults to private.
type ReflectionInput struct {
	OutcomeID    int64               `json:"outcomeId" validate:"gt=0"`
	Context      ReflectionContext   `json:"context"`
	Breakdown    ReflectionBreakdown `json:"breakdown"`
	Growth       ReflectionGrowth    `json:"growth"`
	Result       ReflectionResult    `json:"result"`
	Tags         []string            `json:"tags"`
	EvidenceLink string              `json:"evidenceLink" validate:"omitempty,url"`
	Visibility   Visibility          `json:"visibility" validate:"omitempty,oneof=private public"`
}

// Normalize trims text, drops blank and duplicate tags and applies the
// default visibility.
func (in ReflectionInput) Normalize() ReflectionInput {
	in.Breakdown.WhatHappened = strings.TrimSpace(in.Breakdown.WhatHappened)
	in.Breakdown.WhatWorked = strings.TrimSpace(in.Breakdown.WhatWorked)
	in.Breakdown.WhatDidntWork = strings.TrimSpace(in.Breakdown.WhatDidntWork)
	in.Breakdown.Surprises = strings.TrimSpace(in.Breakdown.Surprises)
	in.Growth.LessonLearned = strings.TrimSpace(in.Growth.LessonLearned)
	in.Growth.NextAction = strings.TrimSpace(in.Growth.NextAction)
	in.EvidenceLink = strings.TrimSpace(in.EvidenceLink)
	if in.Visibility == "" {
		in.Visibility = VisibilityPrivate
	}
	tags := make([]string, 0, len(in.Tags))
	seen := make(map[string]struct{}, len(in.Tags))
	for _, tag := range in.Tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	in.Tags = tags
	return in
}

// Reflection builds the record to be created.
func (in ReflectionInput) Reflection() Reflection {
	return Reflection{
		OutcomeID:    in.OutcomeID,
		Context:      in.Context,
		Breakdown:    in.Breakdown,
		Growth:       in.Growth,
		Result:       in.Result,
		Tags:         append([]string{}, in.Tags...),
		EvidenceLink: in.EvidenceLink,
		Visibility:   in.Visibility,
	}
}
