// Package jobs defines the asynq task types shared between the API server
// (producer) and the worker (consumer).
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// TaskSyncActivities hydrates an athlete's activity history from Strava.
const TaskSyncActivities = "sync:athlete_activities"

// SyncActivitiesPayload identifies what to sync.
type SyncActivitiesPayload struct {
	AthleteID int64  `json:"athlete_id"`
	SyncID    string `json:"sync_id"`
}

// NewSyncActivitiesTask builds the asynq task for a sync request.
func NewSyncActivitiesTask(p SyncActivitiesPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSyncActivities, payload, asynq.Queue("sync")), nil
}
