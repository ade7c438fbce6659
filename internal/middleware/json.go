package middleware

import (
	"encoding/json"
	"errors"
	"fmt"

	"okrhub/internal/docstore"
	"okrhub/internal/domain"
)

var ErrUnknownIntent = errors.New("unknown intent type")

// ErrorJSON is the wire form of an error carried by an action.
type ErrorJSON struct {
	Message     string                `json:"message"`
	ServerError *docstore.ServerError `json:"serverError,omitempty"`
}

func errorJSON(err error) ErrorJSON {
	if err == nil {
		return ErrorJSON{}
	}
	out := ErrorJSON{Message: err.Error()}
	var se *docstore.Error
	if errors.As(err, &se) {
		s := se.ServerError
		out.ServerError = &s
	}
	return out
}

// MarshalAction renders a as {"type": ..., <fields>} using the field names
// reducers destructure.
func MarshalAction(a Action) ([]byte, error) {
	fields := map[string]any{"type": a.Type()}
	switch v := a.(type) {
	case Intent:
		if p := v.payload(); p != nil {
			fields["payload"] = p
		}
	case Failure:
		fields[v.errorField()] = errorJSON(v.Cause())
	case RemoveAreaCascadeSettled:
		fields["id"] = v.ID
		if v.Err != nil {
			fields["error"] = errorJSON(v.Err)
		}
	default:
		raw, err := json.Marshal(a)
		if err != nil {
			return nil, err
		}
		var body map[string]json.RawMessage
		if err := json.Unmarshal(raw, &body); err != nil {
			return nil, err
		}
		for k, val := range body {
			fields[k] = val
		}
	}
	return json.Marshal(fields)
}

// Envelope is the wire form of an intent.
type Envelope struct {
	Type    ActionType      `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// DecodeIntent parses an intent envelope.
func DecodeIntent(data []byte) (Intent, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode intent: %w", err)
	}
	return env.Intent()
}

func (env Envelope) Intent() (Intent, error) {
	var (
		intent Intent
		err    error
	)
	switch env.Type {
	case TypeGetObjectives:
		var v GetObjectives
		err = env.decode(&v)
		intent = v
	case TypeGetAreas:
		intent = GetAreas{}
	case TypeGetTimeFrames:
		intent = GetTimeFrames{}
	case TypeGetProjectName:
		intent = GetProjectName{}
	case TypeEditTimeFrame:
		var v domain.TimeFrameSet
		err = env.decode(&v)
		intent = EditTimeFrame{Set: v}
	case TypeCreateTimeFrame:
		var v domain.TimeFrameSet
		err = env.decode(&v)
		intent = CreateTimeFrame{Set: v}
	case TypeEditOKR:
		var v domain.Objective
		err = env.decode(&v)
		intent = EditOKR{Objective: v}
	case TypeEditKRStatus:
		var v domain.Objective
		err = env.decode(&v)
		intent = EditKRStatus{Objective: v}
	case TypeCreateOKR:
		var v CreateOKR
		err = env.decode(&v)
		intent = v
	case TypeCreateFirstArea:
		var v domain.Area
		err = env.decode(&v)
		intent = CreateFirstArea{Area: v}
	case TypeCreateArea:
		var v CreateArea
		err = env.decode(&v)
		intent = v
	case TypeEditArea:
		var v domain.Area
		err = env.decode(&v)
		intent = EditArea{Area: v}
	case TypeRemoveOKR:
		var v RemoveOKR
		err = env.decode(&v)
		intent = v
	case TypeRemoveArea:
		var v RemoveArea
		err = env.decode(&v)
		intent = v
	case TypeGetWorkItems:
		var v []int
		err = env.decode(&v)
		intent = GetWorkItems{IDs: v}
	case TypeAddWorkItems:
		var v AddWorkItems
		err = env.decode(&v)
		intent = v
	case TypeDeleteWorkItems:
		var v DeleteWorkItems
		err = env.decode(&v)
		intent = v
	case TypeOpenWorkItem:
		var v int
		err = env.decode(&v)
		intent = OpenWorkItem{ID: v}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownIntent, env.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", env.Type, err)
	}
	return intent, nil
}

func (env Envelope) decode(v any) error {
	if len(env.Payload) == 0 {
		return errors.New("payload required")
	}
	return json.Unmarshal(env.Payload, v)
}
