package middleware

import (
	"errors"

	"okrhub/internal/domain"
)

// ActionType is the tag reducers match on.
type ActionType string

// Intent types.
const (
	TypeGetObjectives   ActionType = "getObjectives"
	TypeGetAreas        ActionType = "getAreas"
	TypeGetTimeFrames   ActionType = "getTimeFrames"
	TypeEditTimeFrame   ActionType = "editTimeFrame"
	TypeGetProjectName  ActionType = "getProjectName"
	TypeEditOKR         ActionType = "editOKR"
	TypeEditKRStatus    ActionType = "editKRStatus"
	TypeCreateOKR       ActionType = "createOKR"
	TypeCreateFirstArea ActionType = "createFirstArea"
	TypeCreateTimeFrame ActionType = "createTimeFrame"
	TypeCreateArea      ActionType = "createArea"
	TypeEditArea        ActionType = "editArea"
	TypeRemoveOKR       ActionType = "removeOKR"
	TypeRemoveArea      ActionType = "removeArea"
	TypeGetWorkItems    ActionType = "getWorkItems"
	TypeAddWorkItems    ActionType = "addWorkItems"
	TypeDeleteWorkItems ActionType = "deleteWorkItems"
	TypeOpenWorkItem    ActionType = "openWorkItem"
)

// Outcome types.
const (
	TypeGetObjectivesSucceed          ActionType = "getObjectivesSucceed"
	TypeGetObjectivesFailed           ActionType = "getObjectivesFailed"
	TypeGetAreasSucceed               ActionType = "getAreasSucceed"
	TypeAreaOperationFailed           ActionType = "areaOperationFailed"
	TypeGetTimeFramesSucceed          ActionType = "getTimeFramesSucceed"
	TypeTimeFrameOperationFail        ActionType = "timeFrameOperationFail"
	TypeUpdateCurrentTimeFrameSucceed ActionType = "updateCurrentTimeFrameSucceed"
	TypeEditTimeFrameSucceed          ActionType = "editTimeFrameSucceed"
	TypeGetProjectNameSucceed         ActionType = "getProjectNameSucceed"
	TypeGetProjectNameFailed          ActionType = "getProjectNameFailed"
	TypeEditOKRSucceed                ActionType = "editOKRSucceed"
	TypeObjectiveOperationFailed      ActionType = "objectiveOperationFailed"
	TypeCreateOKRSucceed              ActionType = "createOKRSucceed"
	TypeCreateFirstAreaSuccess        ActionType = "createFirstAreaSuccess"
	TypeCreateAreaFailed              ActionType = "createAreaFailed"
	TypeCreateTimeFrameSucceed        ActionType = "createTimeFrameSucceed"
	TypeCreateAreaSucceed             ActionType = "createAreaSucceed"
	TypeEditAreaSucceed               ActionType = "editAreaSucceed"
	TypeRemoveOKRSucceed              ActionType = "removeOKRSucceed"
	TypeRemoveAreaSucceed             ActionType = "removeAreaSucceed"
	TypeRemoveAreaCascadeSettled      ActionType = "removeAreaCascadeSettled"
	TypeGetWorkItemsSucceed           ActionType = "getWorkItemsSucceed"
	TypeAddWorkItemsSucceed           ActionType = "addWorkItemsSucceed"
	TypeDeleteWorkItemsSucceed        ActionType = "deleteWorkItemsSucceed"
)

// ErrObjectiveNotFound is reported when a work item intent names an objective
// that is not in the supplied list.
var ErrObjectiveNotFound = errors.New("objective not found")

// Action is anything that flows through dispatch.
type Action interface {
	Type() ActionType
}

// Intent is a request issued by the view. The set of intents is closed.
type Intent interface {
	Action
	payload() any
}

// Outcome is a terminal action: exactly one is dispatched per intent that
// touches the store.
type Outcome interface {
	Action
	outcome()
}

// Failure is a terminal action carrying the error that ended the intent.
type Failure interface {
	Outcome
	Cause() error
	// errorField is the JSON key the error travels under.
	errorField() string
}

// ---- intents ----

type GetObjectives struct {
	TimeFrameID string `json:"timeFrameId"`
}

type GetAreas struct{}

type GetTimeFrames struct{}

type EditTimeFrame struct {
	Set domain.TimeFrameSet
}

type GetProjectName struct{}

type EditOKR struct {
	Objective domain.Objective
}

type EditKRStatus struct {
	Objective domain.Objective
}

type CreateOKR struct {
	Objectives []domain.Objective `json:"objectives"`
	Data       domain.Objective   `json:"data"`
}

type CreateFirstArea struct {
	Area domain.Area
}

// CreateTimeFrame is only valid before any set exists. Later changes to the
// set go through EditTimeFrame.
type CreateTimeFrame struct {
	Set domain.TimeFrameSet
}

type CreateArea struct {
	Data domain.Area `json:"data"`
}

type EditArea struct {
	Area domain.Area
}

type RemoveOKR struct {
	ID string `json:"id"`
}

type RemoveArea struct {
	ID string `json:"id"`
}

type GetWorkItems struct {
	IDs []int
}

type AddWorkItemsData struct {
	IDs         []int  `json:"ids"`
	ObjectiveID string `json:"objectiveId"`
}

type AddWorkItems struct {
	Objectives []domain.Objective `json:"objectives"`
	Data       AddWorkItemsData   `json:"data"`
}

type DeleteWorkItemsData struct {
	ObjectiveID string `json:"objectiveId"`
	ID          int    `json:"id"`
}

type DeleteWorkItems struct {
	Objectives []domain.Objective  `json:"objectives"`
	Data       DeleteWorkItemsData `json:"data"`
}

type OpenWorkItem struct {
	ID int
}

func (GetObjectives) Type() ActionType   { return TypeGetObjectives }
func (GetAreas) Type() ActionType        { return TypeGetAreas }
func (GetTimeFrames) Type() ActionType   { return TypeGetTimeFrames }
func (EditTimeFrame) Type() ActionType   { return TypeEditTimeFrame }
func (GetProjectName) Type() ActionType  { return TypeGetProjectName }
func (EditOKR) Type() ActionType         { return TypeEditOKR }
func (EditKRStatus) Type() ActionType    { return TypeEditKRStatus }
func (CreateOKR) Type() ActionType       { return TypeCreateOKR }
func (CreateFirstArea) Type() ActionType { return TypeCreateFirstArea }
func (CreateTimeFrame) Type() ActionType { return TypeCreateTimeFrame }
func (CreateArea) Type() ActionType      { return TypeCreateArea }
func (EditArea) Type() ActionType        { return TypeEditArea }
func (RemoveOKR) Type() ActionType       { return TypeRemoveOKR }
func (RemoveArea) Type() ActionType      { return TypeRemoveArea }
func (GetWorkItems) Type() ActionType    { return TypeGetWorkItems }
func (AddWorkItems) Type() ActionType    { return TypeAddWorkItems }
func (DeleteWorkItems) Type() ActionType { return TypeDeleteWorkItems }
func (OpenWorkItem) Type() ActionType    { return TypeOpenWorkItem }

func (i GetObjectives) payload() any   { return i }
func (GetAreas) payload() any          { return nil }
func (GetTimeFrames) payload() any     { return nil }
func (i EditTimeFrame) payload() any   { return i.Set }
func (GetProjectName) payload() any    { return nil }
func (i EditOKR) payload() any         { return i.Objective }
func (i EditKRStatus) payload() any    { return i.Objective }
func (i CreateOKR) payload() any       { return i }
func (i CreateFirstArea) payload() any { return i.Area }
func (i CreateTimeFrame) payload() any { return i.Set }
func (i CreateArea) payload() any      { return i }
func (i EditArea) payload() any        { return i.Area }
func (i RemoveOKR) payload() any       { return i }
func (i RemoveArea) payload() any      { return i }
func (i GetWorkItems) payload() any    { return i.IDs }
func (i AddWorkItems) payload() any    { return i }
func (i DeleteWorkItems) payload() any { return i }
func (i OpenWorkItem) payload() any    { return i.ID }

// ---- outcomes ----

type GetObjectivesSucceed struct {
	Payload []domain.Objective `json:"payload"`
}

type GetObjectivesFailed struct {
	Err error `json:"-"`
}

type GetAreasSucceed struct {
	Payload []domain.Area `json:"payload"`
}

// AreaOperationFailed is shared by every area intent. Failures of the area
// listing carry the error as payload, the others as error.
type AreaOperationFailed struct {
	Err        error `json:"-"`
	FromGetAll bool  `json:"-"`
}

// GetTimeFramesSucceed carries the first stored set, or nil before the first
// set has been created.
type GetTimeFramesSucceed struct {
	Payload *domain.TimeFrameSet `json:"payload"`
}

type TimeFrameOperationFail struct {
	Err        error `json:"-"`
	FromGetAll bool  `json:"-"`
}

// UpdateCurrentTimeFrameSucceed replaces both the objective list and the set
// when the active time frame changed.
type UpdateCurrentTimeFrameSucceed struct {
	Objectives []domain.Objective  `json:"objectives"`
	TimeFrames domain.TimeFrameSet `json:"timeFrames"`
}

type EditTimeFrameSucceed struct {
	Payload domain.TimeFrameSet `json:"payload"`
}

type GetProjectNameSucceed struct {
	ProjectName string `json:"projectName"`
}

type GetProjectNameFailed struct {
	Err error `json:"-"`
}

type EditOKRSucceed struct {
	Payload domain.Objective `json:"payload"`
}

type ObjectiveOperationFailed struct {
	Err error `json:"-"`
}

type CreateOKRSucceed struct {
	Payload domain.Objective `json:"payload"`
}

type FirstArea struct {
	TimeFrameSet domain.TimeFrameSet `json:"timeFrameSet"`
	Area         domain.Area         `json:"area"`
}

type CreateFirstAreaSuccess struct {
	Payload FirstArea `json:"payload"`
}

type CreateAreaFailed struct {
	Err error `json:"-"`
}

type CreateTimeFrameSucceed struct {
	Payload domain.TimeFrameSet `json:"payload"`
}

type CreateAreaSucceed struct {
	Payload domain.Area `json:"payload"`
}

type EditAreaSucceed struct {
	Payload domain.Area `json:"payload"`
}

type RemoveOKRSucceed struct {
	ID string `json:"id"`
}

type RemoveAreaSucceed struct {
	ID string `json:"id"`
}

// RemoveAreaCascadeSettled reports the background delete of an area's
// objectives. It is informational and never terminal.
type RemoveAreaCascadeSettled struct {
	ID  string `json:"id"`
	Err error  `json:"-"`
}

type GetWorkItemsSucceed struct {
	WorkItems []domain.WorkItem `json:"workItems"`
}

type AddWorkItemsSucceed struct {
	WorkItems []domain.WorkItem `json:"workItems"`
	Objective domain.Objective  `json:"objective"`
}

type DeleteWorkItemsSucceed struct {
	Payload domain.Objective `json:"payload"`
}

func (GetObjectivesSucceed) Type() ActionType { return TypeGetObjectivesSucceed }
func (GetObjectivesFailed) Type() ActionType  { return TypeGetObjectivesFailed }
func (GetAreasSucceed) Type() ActionType      { return TypeGetAreasSucceed }
func (AreaOperationFailed) Type() ActionType  { return TypeAreaOperationFailed }
func (GetTimeFramesSucceed) Type() ActionType { return TypeGetTimeFramesSucceed }
func (TimeFrameOperationFail) Type() ActionType {
	return TypeTimeFrameOperationFail
}
func (UpdateCurrentTimeFrameSucceed) Type() ActionType {
	return TypeUpdateCurrentTimeFrameSucceed
}
func (EditTimeFrameSucceed) Type() ActionType     { return TypeEditTimeFrameSucceed }
func (GetProjectNameSucceed) Type() ActionType    { return TypeGetProjectNameSucceed }
func (GetProjectNameFailed) Type() ActionType     { return TypeGetProjectNameFailed }
func (EditOKRSucceed) Type() ActionType           { return TypeEditOKRSucceed }
func (ObjectiveOperationFailed) Type() ActionType { return TypeObjectiveOperationFailed }
func (CreateOKRSucceed) Type() ActionType         { return TypeCreateOKRSucceed }
func (CreateFirstAreaSuccess) Type() ActionType   { return TypeCreateFirstAreaSuccess }
func (CreateAreaFailed) Type() ActionType         { return TypeCreateAreaFailed }
func (CreateTimeFrameSucceed) Type() ActionType   { return TypeCreateTimeFrameSucceed }
func (CreateAreaSucceed) Type() ActionType        { return TypeCreateAreaSucceed }
func (EditAreaSucceed) Type() ActionType          { return TypeEditAreaSucceed }
func (RemoveOKRSucceed) Type() ActionType         { return TypeRemoveOKRSucceed }
func (RemoveAreaSucceed) Type() ActionType        { return TypeRemoveAreaSucceed }
func (RemoveAreaCascadeSettled) Type() ActionType { return TypeRemoveAreaCascadeSettled }
func (GetWorkItemsSucceed) Type() ActionType      { return TypeGetWorkItemsSucceed }
func (AddWorkItemsSucceed) Type() ActionType      { return TypeAddWorkItemsSucceed }
func (DeleteWorkItemsSucceed) Type() ActionType   { return TypeDeleteWorkItemsSucceed }

func (GetObjectivesSucceed) outcome()          {}
func (GetObjectivesFailed) outcome()           {}
func (GetAreasSucceed) outcome()               {}
func (AreaOperationFailed) outcome()           {}
func (GetTimeFramesSucceed) outcome()          {}
func (TimeFrameOperationFail) outcome()        {}
func (UpdateCurrentTimeFrameSucceed) outcome() {}
func (EditTimeFrameSucceed) outcome()          {}
func (GetProjectNameSucceed) outcome()         {}
func (GetProjectNameFailed) outcome()          {}
func (EditOKRSucceed) outcome()                {}
func (ObjectiveOperationFailed) outcome()      {}
func (CreateOKRSucceed) outcome()              {}
func (CreateFirstAreaSuccess) outcome()        {}
func (CreateAreaFailed) outcome()              {}
func (CreateTimeFrameSucceed) outcome()        {}
func (CreateAreaSucceed) outcome()             {}
func (EditAreaSucceed) outcome()               {}
func (RemoveOKRSucceed) outcome()              {}
func (RemoveAreaSucceed) outcome()             {}
func (GetWorkItemsSucceed) outcome()           {}
func (AddWorkItemsSucceed) outcome()           {}
func (DeleteWorkItemsSucceed) outcome()        {}

func (f GetObjectivesFailed) Cause() error      { return f.Err }
func (f AreaOperationFailed) Cause() error      { return f.Err }
func (f TimeFrameOperationFail) Cause() error   { return f.Err }
func (f GetProjectNameFailed) Cause() error     { return f.Err }
func (f ObjectiveOperationFailed) Cause() error { return f.Err }
func (f CreateAreaFailed) Cause() error         { return f.Err }

func (GetObjectivesFailed) errorField() string { return "payload" }
func (f AreaOperationFailed) errorField() string {
	if f.FromGetAll {
		return "payload"
	}
	return "error"
}
func (f TimeFrameOperationFail) errorField() string {
	if f.FromGetAll {
		return "payload"
	}
	return "error"
}
func (GetProjectNameFailed) errorField() string     { return "error" }
func (ObjectiveOperationFailed) errorField() string { return "error" }
func (CreateAreaFailed) errorField() string         { return "error" }
