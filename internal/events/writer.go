package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Event types written by the engine.
const (
	WorkerCreated     = "worker.created"
	WorkerUpdated     = "worker.updated"
	WorkerDeleted     = "worker.deleted"
	PatternCreated    = "pattern.created"
	PatternUpdated    = "pattern.updated"
	PatternDeleted    = "pattern.deleted"
	LeaveCreated      = "leave.created"
	LeaveUpdated      = "leave.updated"
	LeaveDeleted      = "leave.deleted"
	AssignmentCreated = "assignment.created"
	AssignmentUpdated = "assignment.updated"
	AssignmentDeleted = "assignment.deleted"
	MonthGenerated    = "month.generated"
	ConfigUpdated     = "config.updated"
)

type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

type EventPayload map[string]any

// Append writes one event inside tx so it commits or rolls back with the change it describes.
func (w Writer) Append(ctx context.Context, tx *sql.Tx, evtType, entityKind, entityID, actorID string, payload EventPayload) error {
	now := w.Now
	if now == nil {
		now = time.Now
	}
	if actorID == "" {
		actorID = "system"
	}
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO events(ts,type,entity_kind,entity_id,actor_id,payload_json) VALUES (?,?,?,?,?,?)`,
		now().UTC().Format(time.RFC3339), evtType, entityKind, nullable(entityID), actorID, string(data))
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
