// Package model contains the persisted types shared by the handlers,
// the stores and the importer.
package model

import "strings"

// Exercise is one entry of the exercise catalog. It is stored keyed by
// ExerciseID; ID carries the same value and is the field exposed to
// clients, so reads never leak the table key.
type Exercise struct {
	ExerciseID  string `json:"-" dynamodbav:"exercise_id"`
	ID          string `json:"id" dynamodbav:"id"`
	Name        string `json:"name" dynamodbav:"name"`
	Instruction string `json:"instruction" dynamodbav:"instruction"`
	Sets        int    `json:"sets" dynamodbav:"sets"`

	Mindfulness string `json:"mindfulness,omitempty" dynamodbav:"mindfulness,omitempty"`
	BreakBell   string `json:"break_bell,omitempty" dynamodbav:"break_bell,omitempty"`

	// Optional durations in seconds. Pointers so a stored zero survives
	// the round trip while an absent value stays absent.
	PrepTime *int `json:"prep_time,omitempty" dynamodbav:"prep_time,omitempty"`
	Duration *int `json:"duration,omitempty" dynamodbav:"duration,omitempty"`
	RepTime  *int `json:"rep_time,omitempty" dynamodbav:"rep_time,omitempty"`
	RestTime *int `json:"rest_time,omitempty" dynamodbav:"rest_time,omitempty"`
}

// ProgressEntry records one completed exercise session. The table key is
// the pair (client_id, completed_at); entries are append-only.
type ProgressEntry struct {
	ClientID      string `json:"clientId" dynamodbav:"client_id"`
	CompletedAt   string `json:"completedAt" dynamodbav:"completed_at"`
	ExerciseID    string `json:"exerciseId" dynamodbav:"exercise_id"`
	TotalSets     int    `json:"totalSets" dynamodbav:"total_sets"`
	SetsCompleted int    `json:"setsCompleted" dynamodbav:"sets_completed"`

	ExerciseName string `json:"exerciseName,omitempty" dynamodbav:"exercise_name,omitempty"`
	DurationMs   *int   `json:"durationMs,omitempty" dynamodbav:"duration_ms,omitempty"`
	RepTimeSec   *int   `json:"repTimeSeconds,omitempty" dynamodbav:"rep_time_seconds,omitempty"`
	RestTimeSec  *int   `json:"restTimeSeconds,omitempty" dynamodbav:"rest_time_seconds,omitempty"`
	PrepTimeSec  *int   `json:"prepTimeSeconds,omitempty" dynamodbav:"prep_time_seconds,omitempty"`
	StartedAt    string `json:"startedAt,omitempty" dynamodbav:"started_at,omitempty"`
	FinishedAt   string `json:"finishedAt,omitempty" dynamodbav:"finished_at,omitempty"`
}

// reservedIDs are sentinel exercise ids used by the frontend's demo
// mode. They must never reach the catalog and are filtered from reads.
var reservedIDs = map[string]struct{}{
	"test":       {},
	"test übung": {},
	"testübung":  {},
}

// IsReservedID reports whether id is one of the reserved test exercise
// ids, compared case-insensitively after trimming.
func IsReservedID(id string) bool {
	_, ok := reservedIDs[strings.ToLower(strings.TrimSpace(id))]
	return ok
}
