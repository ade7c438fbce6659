package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"okrhub/internal/app"
	"okrhub/internal/docstore"
	"okrhub/internal/domain"
	"okrhub/internal/middleware"
)

type handler struct {
	app *app.App
}

type actionOutput struct {
	Body ActionResponse `json:"body"`
}

var mutationErrors = []int{
	http.StatusBadRequest,
	http.StatusNotFound,
	http.StatusConflict,
	http.StatusInternalServerError,
}

// state resolves the displayed time frame from the request header, falling
// back to the stored current time frame.
func (h handler) state(ctx context.Context, displayed string) (middleware.State, error) {
	if displayed = strings.TrimSpace(displayed); displayed != "" {
		return middleware.State{DisplayedTimeFrameID: displayed}, nil
	}
	tf, err := h.app.DisplayedTimeFrame(ctx)
	if err != nil {
		return middleware.State{}, err
	}
	return middleware.State{DisplayedTimeFrameID: tf}, nil
}

// scopedState is state for routes that read or write objectives. Objectives
// live under a time frame, so these routes need a time frame set to exist.
func (h handler) scopedState(ctx context.Context, displayed string) (middleware.State, error) {
	state, err := h.state(ctx, displayed)
	if err != nil {
		return middleware.State{}, handleError(err)
	}
	if state.DisplayedTimeFrameID == "" {
		return middleware.State{}, newAPIError(http.StatusConflict, "no_time_frame", "no time frame set exists; POST /bootstrap first", nil)
	}
	return state, nil
}

func (h handler) run(ctx context.Context, displayed string, intent middleware.Intent, extra middleware.DispatchFunc) (middleware.Outcome, error) {
	actorID, authErr := actorIDFromContext(ctx)
	if authErr != nil {
		return nil, authErr
	}
	state, err := h.state(ctx, displayed)
	if err != nil {
		return nil, handleError(err)
	}
	return h.app.Execute(ctx, actorID, state, intent, extra), nil
}

// execute runs intent and answers with its terminal action.
func (h handler) execute(ctx context.Context, displayed string, intent middleware.Intent) (*actionOutput, error) {
	out, err := h.run(ctx, displayed, intent, nil)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, newAPIError(http.StatusInternalServerError, "internal_error", "no terminal action", map[string]any{"intent": string(intent.Type())})
	}
	if f, ok := out.(middleware.Failure); ok {
		return nil, failureError(f)
	}
	body, err := actionResponse(out)
	if err != nil {
		return nil, handleError(err)
	}
	return &actionOutput{Body: body}, nil
}

func actionResponse(a middleware.Action) (ActionResponse, error) {
	raw, err := middleware.MarshalAction(a)
	if err != nil {
		return nil, err
	}
	var body ActionResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}
	return body, nil
}

// objectives lists the objectives of a time frame, empty before the first
// write.
func (h handler) objectives(ctx context.Context, tf string) ([]domain.Objective, error) {
	items, err := h.app.Objectives.GetAll(ctx, tf)
	if err != nil {
		if docstore.IsCollectionMissing(err) {
			return []domain.Objective{}, nil
		}
		return nil, err
	}
	return items, nil
}

func registerProject(api huma.API, h handler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-project-name",
		Method:      http.MethodGet,
		Path:        "/project/name",
		Summary:     "Project display name",
		Errors:      []int{http.StatusInternalServerError},
	}, func(ctx context.Context, _ *struct{}) (*actionOutput, error) {
		return h.execute(ctx, "", middleware.GetProjectName{})
	})
}

func registerAreas(api huma.API, h handler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-areas",
		Method:      http.MethodGet,
		Path:        "/areas",
		Summary:     "List areas",
	}, func(ctx context.Context, _ *struct{}) (*actionOutput, error) {
		return h.execute(ctx, "", middleware.GetAreas{})
	})

	huma.Register(api, huma.Operation{
		OperationID: "create-area",
		Method:      http.MethodPost,
		Path:        "/areas",
		Summary:     "Create area",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		Body AreaRequest `json:"body"`
	}) (*actionOutput, error) {
		return h.execute(ctx, "", middleware.CreateArea{Data: input.Body.area("")})
	})

	huma.Register(api, huma.Operation{
		OperationID: "bootstrap",
		Method:      http.MethodPost,
		Path:        "/bootstrap",
		Summary:     "Create the first area and time frame set",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		Body AreaRequest `json:"body"`
	}) (*actionOutput, error) {
		return h.execute(ctx, "", middleware.CreateFirstArea{Area: input.Body.area("")})
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-area",
		Method:      http.MethodPut,
		Path:        "/areas/{area_id}",
		Summary:     "Update area",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		AreaID string      `path:"area_id"`
		Body   AreaRequest `json:"body"`
	}) (*actionOutput, error) {
		return h.execute(ctx, "", middleware.EditArea{Area: input.Body.area(input.AreaID)})
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-area",
		Method:      http.MethodDelete,
		Path:        "/areas/{area_id}",
		Summary:     "Delete area and its objectives in the displayed time frame",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		AreaID    string `path:"area_id"`
		TimeFrame string `header:"X-Displayed-TimeFrame"`
	}) (*actionOutput, error) {
		return h.execute(ctx, input.TimeFrame, middleware.RemoveArea{ID: input.AreaID})
	})
}

func registerTimeFrames(api huma.API, h handler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-timeframes",
		Method:      http.MethodGet,
		Path:        "/timeframes",
		Summary:     "Get the time frame set",
	}, func(ctx context.Context, _ *struct{}) (*actionOutput, error) {
		return h.execute(ctx, "", middleware.GetTimeFrames{})
	})

	huma.Register(api, huma.Operation{
		OperationID: "create-timeframes",
		Method:      http.MethodPost,
		Path:        "/timeframes",
		Summary:     "Create the time frame set",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		Body TimeFrameSetRequest `json:"body"`
	}) (*actionOutput, error) {
		return h.execute(ctx, "", middleware.CreateTimeFrame{Set: input.Body.set()})
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-timeframes",
		Method:      http.MethodPut,
		Path:        "/timeframes",
		Summary:     "Save the time frame set",
		Description: "When currentTimeFrameId differs from the displayed time frame the response carries the objectives of the new current time frame.",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		TimeFrame string              `header:"X-Displayed-TimeFrame"`
		Body      TimeFrameSetRequest `json:"body"`
	}) (*actionOutput, error) {
		return h.execute(ctx, input.TimeFrame, middleware.EditTimeFrame{Set: input.Body.set()})
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-objectives",
		Method:      http.MethodGet,
		Path:        "/timeframes/{time_frame_id}/objectives",
		Summary:     "List objectives of a time frame",
	}, func(ctx context.Context, input *struct {
		TimeFrameID string `path:"time_frame_id"`
	}) (*actionOutput, error) {
		return h.execute(ctx, "", middleware.GetObjectives{TimeFrameID: input.TimeFrameID})
	})
}

func registerObjectives(api huma.API, h handler) {
	huma.Register(api, huma.Operation{
		OperationID: "create-objective",
		Method:      http.MethodPost,
		Path:        "/objectives",
		Summary:     "Create objective in the displayed time frame",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		TimeFrame string           `header:"X-Displayed-TimeFrame"`
		Body      ObjectiveRequest `json:"body"`
	}) (*actionOutput, error) {
		state, err := h.scopedState(ctx, input.TimeFrame)
		if err != nil {
			return nil, err
		}
		existing, err := h.objectives(ctx, state.DisplayedTimeFrameID)
		if err != nil {
			return nil, handleError(err)
		}
		return h.execute(ctx, state.DisplayedTimeFrameID, middleware.CreateOKR{
			Objectives: existing,
			Data:       input.Body.objective(""),
		})
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-objective",
		Method:      http.MethodPut,
		Path:        "/objectives/{objective_id}",
		Summary:     "Update objective",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		ObjectiveID string           `path:"objective_id"`
		TimeFrame   string           `header:"X-Displayed-TimeFrame"`
		Body        ObjectiveRequest `json:"body"`
	}) (*actionOutput, error) {
		state, err := h.scopedState(ctx, input.TimeFrame)
		if err != nil {
			return nil, err
		}
		return h.execute(ctx, state.DisplayedTimeFrameID, middleware.EditOKR{Objective: input.Body.objective(input.ObjectiveID)})
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-kr-status",
		Method:      http.MethodPatch,
		Path:        "/objectives/{objective_id}/krs/{kr_id}",
		Summary:     "Set key result status",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		ObjectiveID string          `path:"objective_id"`
		KRID        string          `path:"kr_id"`
		TimeFrame   string          `header:"X-Displayed-TimeFrame"`
		Body        KRStatusRequest `json:"body"`
	}) (*actionOutput, error) {
		status, err := domain.ParseKRStatus(input.Body.Status)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), map[string]any{"status": input.Body.Status})
		}
		state, err := h.scopedState(ctx, input.TimeFrame)
		if err != nil {
			return nil, err
		}
		existing, err := h.objectives(ctx, state.DisplayedTimeFrameID)
		if err != nil {
			return nil, handleError(err)
		}
		target, ok := findObjective(existing, input.ObjectiveID)
		if !ok {
			return nil, newAPIError(http.StatusNotFound, "not_found", "objective not found", map[string]any{"objective_id": input.ObjectiveID})
		}
		if err := target.SetKRStatus(input.KRID, status); err != nil {
			return nil, newAPIError(http.StatusNotFound, "not_found", err.Error(), map[string]any{"kr_id": input.KRID})
		}
		return h.execute(ctx, state.DisplayedTimeFrameID, middleware.EditKRStatus{Objective: target})
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-objective",
		Method:      http.MethodDelete,
		Path:        "/objectives/{objective_id}",
		Summary:     "Delete objective",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		ObjectiveID string `path:"objective_id"`
		TimeFrame   string `header:"X-Displayed-TimeFrame"`
	}) (*actionOutput, error) {
		state, err := h.scopedState(ctx, input.TimeFrame)
		if err != nil {
			return nil, err
		}
		return h.execute(ctx, state.DisplayedTimeFrameID, middleware.RemoveOKR{ID: input.ObjectiveID})
	})

	huma.Register(api, huma.Operation{
		OperationID: "add-objective-workitems",
		Method:      http.MethodPost,
		Path:        "/objectives/{objective_id}/workitems",
		Summary:     "Link work items to an objective",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		ObjectiveID string              `path:"objective_id"`
		TimeFrame   string              `header:"X-Displayed-TimeFrame"`
		Body        AddWorkItemsRequest `json:"body"`
	}) (*actionOutput, error) {
		state, err := h.scopedState(ctx, input.TimeFrame)
		if err != nil {
			return nil, err
		}
		existing, err := h.objectives(ctx, state.DisplayedTimeFrameID)
		if err != nil {
			return nil, handleError(err)
		}
		return h.execute(ctx, state.DisplayedTimeFrameID, middleware.AddWorkItems{
			Objectives: existing,
			Data:       middleware.AddWorkItemsData{IDs: input.Body.IDs, ObjectiveID: input.ObjectiveID},
		})
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-objective-workitem",
		Method:      http.MethodDelete,
		Path:        "/objectives/{objective_id}/workitems/{work_item_id}",
		Summary:     "Unlink a work item from an objective",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		ObjectiveID string `path:"objective_id"`
		WorkItemID  int    `path:"work_item_id"`
		TimeFrame   string `header:"X-Displayed-TimeFrame"`
	}) (*actionOutput, error) {
		state, err := h.scopedState(ctx, input.TimeFrame)
		if err != nil {
			return nil, err
		}
		existing, err := h.objectives(ctx, state.DisplayedTimeFrameID)
		if err != nil {
			return nil, handleError(err)
		}
		return h.execute(ctx, state.DisplayedTimeFrameID, middleware.DeleteWorkItems{
			Objectives: existing,
			Data:       middleware.DeleteWorkItemsData{ObjectiveID: input.ObjectiveID, ID: input.WorkItemID},
		})
	})
}

func registerWorkItems(api huma.API, h handler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-workitems",
		Method:      http.MethodGet,
		Path:        "/workitems",
		Summary:     "Batch fetch work items",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		IDs string `query:"ids" doc:"Comma separated work item ids"`
	}) (*actionOutput, error) {
		ids, err := parseIDs(input.IDs)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), map[string]any{"ids": input.IDs})
		}
		return h.execute(ctx, "", middleware.GetWorkItems{IDs: ids})
	})

	huma.Register(api, huma.Operation{
		OperationID: "open-workitem",
		Method:      http.MethodPost,
		Path:        "/workitems/{work_item_id}/open",
		Summary:     "Hand a work item link to the host navigator",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		WorkItemID int `path:"work_item_id"`
	}) (*struct {
		Body WorkItemLinkResponse `json:"body"`
	}, error) {
		if _, err := h.run(ctx, "", middleware.OpenWorkItem{ID: input.WorkItemID}, nil); err != nil {
			return nil, err
		}
		return &struct {
			Body WorkItemLinkResponse `json:"body"`
		}{Body: WorkItemLinkResponse{ID: input.WorkItemID, URL: h.app.WorkItems.Link(input.WorkItemID)}}, nil
	})
}

func registerDispatch(api huma.API, h handler) {
	huma.Register(api, huma.Operation{
		OperationID: "dispatch",
		Method:      http.MethodPost,
		Path:        "/dispatch",
		Summary:     "Dispatch an intent",
		Description: "Runs one intent and returns every action dispatched for it: the intent itself, its terminal action and any informational follow-up.",
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		TimeFrame string          `header:"X-Displayed-TimeFrame"`
		Body      DispatchRequest `json:"body"`
	}) (*struct {
		Body DispatchResponse `json:"body"`
	}, error) {
		env := middleware.Envelope{Type: middleware.ActionType(input.Body.Type)}
		if input.Body.Payload != nil {
			raw, err := json.Marshal(input.Body.Payload)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
			}
			env.Payload = raw
		}
		intent, err := env.Intent()
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), map[string]any{"type": input.Body.Type})
		}
		rec := &middleware.Recorder{}
		if _, err := h.run(ctx, input.TimeFrame, intent, rec.Dispatch); err != nil {
			return nil, err
		}
		resp := DispatchResponse{Actions: []ActionResponse{}}
		for _, a := range rec.Actions() {
			body, err := actionResponse(a)
			if err != nil {
				return nil, handleError(err)
			}
			resp.Actions = append(resp.Actions, body)
		}
		return &struct {
			Body DispatchResponse `json:"body"`
		}{Body: resp}, nil
	})
}

func registerEvents(api huma.API, h handler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "Tail the action log",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Type  string `query:"type"`
		Limit int    `query:"limit" default:"50" minimum:"1" maximum:"500"`
	}) (*struct {
		Body []EventResponse `json:"body"`
	}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		items, err := h.app.Events.Tail(ctx, input.Limit, input.Type)
		if err != nil {
			return nil, handleError(err)
		}
		resp := make([]EventResponse, 0, len(items))
		for _, e := range items {
			resp = append(resp, eventResponse(e))
		}
		return &struct {
			Body []EventResponse `json:"body"`
		}{Body: resp}, nil
	})
}

func findObjective(items []domain.Objective, id string) (domain.Objective, bool) {
	for _, o := range items {
		if o.ID == id {
			return o.Clone(), true
		}
	}
	return domain.Objective{}, false
}

func parseIDs(raw string) ([]int, error) {
	var ids []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
