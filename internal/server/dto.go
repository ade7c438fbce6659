package server

import (
	"encoding/json"

	"github.com/google/uuid"

	"okrhub/internal/domain"
	"okrhub/internal/events"
)

// Request payloads

type AreaRequest struct {
	Name        string `json:"Name"`
	Description string `json:"Description,omitempty"`
	Owner       string `json:"Owner,omitempty"`
}

func (r AreaRequest) area(id string) domain.Area {
	return domain.Area{ID: id, Name: r.Name, Description: r.Description, Owner: r.Owner}
}

type KeyResultRequest struct {
	ID      string `json:"id,omitempty"`
	Content string `json:"Content"`
	Status  string `json:"Status,omitempty" enum:"NotStarted,OnTrack,AtRisk,Completed,Incomplete,Canceled"`
	Comment string `json:"Comment,omitempty"`
}

type ObjectiveRequest struct {
	Name        string             `json:"Name"`
	Description string             `json:"Description,omitempty"`
	Owner       string             `json:"Owner,omitempty"`
	AreaID      *string            `json:"AreaId,omitempty"`
	Order       *int               `json:"order,omitempty"`
	KRs         []KeyResultRequest `json:"KRs,omitempty"`
	Comments    string             `json:"Comments,omitempty"`
	WorkItems   []int              `json:"WorkItems,omitempty"`
}

func (r ObjectiveRequest) objective(id string) domain.Objective {
	o := domain.Objective{
		ID:          id,
		Name:        r.Name,
		Description: r.Description,
		Owner:       r.Owner,
		AreaID:      r.AreaID,
		Comments:    r.Comments,
		WorkItems:   append([]int(nil), r.WorkItems...),
	}
	if r.Order != nil {
		o.Order = *r.Order
	}
	for _, kr := range r.KRs {
		status := domain.KRStatus(kr.Status)
		if status == "" {
			status = domain.KRNotStarted
		}
		id := kr.ID
		if id == "" {
			id = uuid.NewString()
		}
		o.KRs = append(o.KRs, domain.KeyResult{ID: id, Content: kr.Content, Status: status, Comment: kr.Comment})
	}
	return o
}

type TimeFrameRequest struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order,omitempty"`
}

type TimeFrameSetRequest struct {
	ID                 string             `json:"id,omitempty"`
	TimeFrames         []TimeFrameRequest `json:"timeFrames"`
	CurrentTimeFrameID string             `json:"currentTimeFrameId"`
}

func (r TimeFrameSetRequest) set() domain.TimeFrameSet {
	s := domain.TimeFrameSet{ID: r.ID, CurrentTimeFrameID: r.CurrentTimeFrameID}
	for _, tf := range r.TimeFrames {
		s.TimeFrames = append(s.TimeFrames, domain.TimeFrame{ID: tf.ID, Name: tf.Name, Order: tf.Order})
	}
	return s
}

type KRStatusRequest struct {
	Status string `json:"status" enum:"NotStarted,OnTrack,AtRisk,Completed,Incomplete,Canceled,Not Started,On Track,At Risk"`
}

type AddWorkItemsRequest struct {
	IDs []int `json:"ids" minItems:"1"`
}

type DispatchRequest struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type DevLoginRequest struct {
	ActorID string   `json:"actor_id"`
	Roles   []string `json:"roles,omitempty"`
}

// Response payloads

// ActionResponse is a dispatched action rendered as {"type": ..., <fields>}.
type ActionResponse map[string]any

type DispatchResponse struct {
	Actions []ActionResponse `json:"actions"`
}

type WorkItemLinkResponse struct {
	ID  int    `json:"id"`
	URL string `json:"url"`
}

type EventResponse struct {
	ID       int64  `json:"id"`
	TS       string `json:"ts"`
	Type     string `json:"type"`
	EntityID string `json:"entity_id,omitempty"`
	ActorID  string `json:"actor_id"`
	Payload  any    `json:"payload"`
}

func eventResponse(e events.Event) EventResponse {
	var payload any
	_ = json.Unmarshal(e.Payload, &payload)
	return EventResponse{ID: e.ID, TS: e.TS, Type: e.Type, EntityID: e.EntityID, ActorID: e.ActorID, Payload: payload}
}

type DevLoginResponse struct {
	Token string `json:"token"`
}
