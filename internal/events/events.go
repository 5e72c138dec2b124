// Package events provides the pub/sub event bus used for side effects.
//
// Core services emit fire-and-forget events on plan and requirement lifecycle
// changes; subscriber failures never abort the emitting call.
package events

import "context"

// Event names emitted by the core services.
const (
	RequirementAnalyzed = "requirement.analyzed"
	RequirementSaved    = "requirement.saved"
	RequirementDeleted  = "requirement.deleted"

	PlanCreated           = "plan.created"
	PlanUpdated           = "plan.updated"
	PlanDeleted           = "plan.deleted"
	PlanConfirmed         = "plan.confirmed"
	PlanConflictsDetected = "plan.conflicts.detected"

	ContentCreated = "content.created"

	ScheduleCreated = "schedule.created"
	ScheduleUpdated = "schedule.updated"
	ScheduleDeleted = "schedule.deleted"
	PublishReminder = "publish.reminder"

	WorkflowStarted   = "workflow.started"
	WorkflowCompleted = "workflow.completed"
	WorkflowFailed    = "workflow.failed"
)

// Handler processes one emitted event payload.
type Handler func(ctx context.Context, payload any)

// Bus is the pub/sub boundary consumed by the core services.
type Bus interface {
	// Emit publishes an event. Individual subscriber failures are isolated;
	// an error is returned only when the event could not be published at all.
	Emit(ctx context.Context, event string, payload any) error

	// Subscribe registers a handler for an event and returns an unsubscribe
	// function.
	Subscribe(event string, handler Handler) (func(), error)
}
