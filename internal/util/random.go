// Package util provides utility functions shared across contentplan components.
package util

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateID generates a unique ID in the format "{prefix}{uuid_fragment}".
// The fragment is the first 8 hex characters of a random UUID, matching the
// ID shapes used throughout the persisted records (req_, plan_, content_, ...).
func GenerateID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// GenerateRequirementID generates a unique requirement analysis ID with "req_" prefix.
func GenerateRequirementID() string {
	return GenerateID("req_")
}

// GeneratePlanID generates a unique content plan ID with "plan_" prefix.
func GeneratePlanID() string {
	return GenerateID("plan_")
}

// GenerateContentID generates a unique single-content ID with "content_" prefix.
func GenerateContentID() string {
	return GenerateID("content_")
}

// GenerateConflictID generates a unique conflict issue ID with "conflict_" prefix.
func GenerateConflictID() string {
	return GenerateID("conflict_")
}

// GenerateScheduleID generates a unique publish schedule ID with "schedule_" prefix.
func GenerateScheduleID() string {
	return GenerateID("schedule_")
}

// GenerateSessionID generates a unique wizard session ID with "session_" prefix.
func GenerateSessionID() string {
	return GenerateID("session_")
}

// GenerateWorkflowID generates a unique workflow run ID with "wf_" prefix.
func GenerateWorkflowID() string {
	return GenerateID("wf_")
}
