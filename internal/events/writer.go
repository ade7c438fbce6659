package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"okrhub/internal/middleware"
)

// Writer appends dispatched actions to the events table.
type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

type Event struct {
	ID       int64           `json:"id"`
	TS       string          `json:"ts"`
	Type     string          `json:"type"`
	EntityID string          `json:"entity_id,omitempty"`
	ActorID  string          `json:"actor_id"`
	Payload  json.RawMessage `json:"payload"`
}

func (w Writer) Append(ctx context.Context, action middleware.Action, actorID string) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339Nano)
	data, err := middleware.MarshalAction(action)
	if err != nil {
		return fmt.Errorf("marshal action %s: %w", action.Type(), err)
	}
	_, err = w.DB.ExecContext(ctx, `INSERT INTO events(ts,type,entity_id,actor_id,payload_json) VALUES (?,?,?,?,?)`,
		ts, string(action.Type()), nullable(entityID(action)), actorID, string(data))
	return err
}

// Sink adapts the writer into a dispatch sink. Write failures go to onErr.
func (w Writer) Sink(ctx context.Context, actorID string, onErr func(error)) middleware.DispatchFunc {
	return func(a middleware.Action) {
		if err := w.Append(ctx, a, actorID); err != nil && onErr != nil {
			onErr(err)
		}
	}
}

// Tail returns the last n events, oldest first. An empty typ matches all.
func (w Writer) Tail(ctx context.Context, n int, typ string) ([]Event, error) {
	if n <= 0 {
		n = 20
	}
	query := `SELECT id,ts,type,entity_id,actor_id,payload_json FROM events`
	args := []any{}
	if typ != "" {
		query += ` WHERE type=?`
		args = append(args, typ)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, n)
	rows, err := w.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var (
			e       Event
			entity  sql.NullString
			payload string
		)
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &entity, &e.ActorID, &payload); err != nil {
			return nil, err
		}
		e.EntityID = entity.String
		e.Payload = json.RawMessage(payload)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func entityID(a middleware.Action) string {
	switch v := a.(type) {
	case middleware.RemoveOKR:
		return v.ID
	case middleware.RemoveArea:
		return v.ID
	case middleware.RemoveOKRSucceed:
		return v.ID
	case middleware.RemoveAreaSucceed:
		return v.ID
	case middleware.RemoveAreaCascadeSettled:
		return v.ID
	case middleware.EditOKR:
		return v.Objective.ID
	case middleware.EditKRStatus:
		return v.Objective.ID
	case middleware.EditArea:
		return v.Area.ID
	case middleware.EditOKRSucceed:
		return v.Payload.ID
	case middleware.CreateOKRSucceed:
		return v.Payload.ID
	case middleware.CreateAreaSucceed:
		return v.Payload.ID
	case middleware.EditAreaSucceed:
		return v.Payload.ID
	case middleware.AddWorkItems:
		return v.Data.ObjectiveID
	case middleware.DeleteWorkItems:
		return v.Data.ObjectiveID
	case middleware.AddWorkItemsSucceed:
		return v.Objective.ID
	case middleware.DeleteWorkItemsSucceed:
		return v.Payload.ID
	}
	return ""
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
