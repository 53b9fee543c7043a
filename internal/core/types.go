package core

import "learnloop/pkg/domain"

type (
	EntityType         = domain.EntityType
	Severity           = domain.Severity
	Base               = domain.Base
	Versioned          = domain.Versioned
	Idea               = domain.Idea
	IdeaStatus         = domain.IdeaStatus
	IdeaInput          = domain.IdeaInput
	IdeaRef            = domain.IdeaRef
	Experiment         = domain.Experiment
	ExperimentStatus   = domain.ExperimentStatus
	ExperimentInput    = domain.ExperimentInput
	ExperimentPatch    = domain.ExperimentPatch
	Outcome            = domain.Outcome
	OutcomeInput       = domain.OutcomeInput
	OutcomeResult      = domain.OutcomeResult
	Reflection         = domain.Reflection
	ReflectionInput    = domain.ReflectionInput
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	RuleViolationError = domain.RuleViolationError
	Rule               = domain.Rule
	RulesEngine        = domain.RulesEngine
	Transaction        = domain.Transaction
	TransactionView    = domain.TransactionView
	PersistentStore    = domain.PersistentStore
)

const (
	EntityIdea       = domain.EntityIdea
	EntityExperiment = domain.EntityExperiment
	EntityOutcome    = domain.EntityOutcome
	EntityReflection = domain.EntityReflection
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)

// NewRulesEngine constructs an empty rules engine.
func NewRulesEngine() *RulesEngine { return domain.NewRulesEngine() }
