package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"okrhub/internal/docstore"
	"okrhub/internal/domain"
)

var errBoom = errors.New("boom")

func collectionMissingErr(t *testing.T) error {
	t.Helper()
	_, err := docstore.NewMemoryStore().GetDocuments(context.Background(), "Nothing")
	require.True(t, docstore.IsCollectionMissing(err))
	return err
}

type fakeObjectives struct {
	mu        sync.Mutex
	items     []domain.Objective
	getAllErr error
	saveErr   error
	createErr error
	deleteErr error
	getAllTFs []string
	created   []domain.Objective
	saved     []domain.Objective
	deleted   []domain.Objective
	deleteTFs []string
}

func (f *fakeObjectives) GetAll(_ context.Context, tf string) ([]domain.Objective, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getAllTFs = append(f.getAllTFs, tf)
	if f.getAllErr != nil {
		return nil, f.getAllErr
	}
	return f.items, nil
}

func (f *fakeObjectives) Create(_ context.Context, o domain.Objective, _ string) (domain.Objective, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return domain.Objective{}, f.createErr
	}
	o.ID = "new-objective"
	f.created = append(f.created, o)
	return o, nil
}

func (f *fakeObjectives) Save(_ context.Context, o domain.Objective, _ string) (domain.Objective, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return domain.Objective{}, f.saveErr
	}
	f.saved = append(f.saved, o)
	return o, nil
}

func (f *fakeObjectives) Delete(_ context.Context, pred func(domain.Objective) bool, tf string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteTFs = append(f.deleteTFs, tf)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	var kept []domain.Objective
	for _, o := range f.items {
		if pred(o) {
			f.deleted = append(f.deleted, o)
			continue
		}
		kept = append(kept, o)
	}
	f.items = kept
	return nil
}

type fakeAreas struct {
	mu        sync.Mutex
	items     []domain.Area
	getAllErr error
	createErr error
	deleteErr error
	deleted   []string
	// onCreate runs before Create touches state; a non-nil error fails it.
	onCreate func() error
}

func (f *fakeAreas) GetAll(context.Context) ([]domain.Area, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getAllErr != nil {
		return nil, f.getAllErr
	}
	return f.items, nil
}

func (f *fakeAreas) Create(_ context.Context, a domain.Area) (domain.Area, error) {
	if f.onCreate != nil {
		if err := f.onCreate(); err != nil {
			return domain.Area{}, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return domain.Area{}, f.createErr
	}
	a.ID = "new-area"
	f.items = append(f.items, a)
	return a, nil
}

func (f *fakeAreas) Save(_ context.Context, a domain.Area) (domain.Area, error) {
	return a, nil
}

func (f *fakeAreas) Delete(_ context.Context, pred func(domain.Area) bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	var kept []domain.Area
	for _, a := range f.items {
		if pred(a) {
			f.deleted = append(f.deleted, a.ID)
			continue
		}
		kept = append(kept, a)
	}
	f.items = kept
	return nil
}

type fakeTimeFrames struct {
	mu        sync.Mutex
	sets      []domain.TimeFrameSet
	getAllErr error
	createErr error
	saveErr   error
	deleted   []string
	onCreate  func() error
}

func (f *fakeTimeFrames) GetAll(context.Context) ([]domain.TimeFrameSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getAllErr != nil {
		return nil, f.getAllErr
	}
	return f.sets, nil
}

func (f *fakeTimeFrames) Create(_ context.Context, s domain.TimeFrameSet) (domain.TimeFrameSet, error) {
	if f.onCreate != nil {
		if err := f.onCreate(); err != nil {
			return domain.TimeFrameSet{}, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return domain.TimeFrameSet{}, f.createErr
	}
	f.sets = append(f.sets, s)
	return s, nil
}

func (f *fakeTimeFrames) Save(_ context.Context, s domain.TimeFrameSet) (domain.TimeFrameSet, error) {
	if f.saveErr != nil {
		return domain.TimeFrameSet{}, f.saveErr
	}
	return s, nil
}

func (f *fakeTimeFrames) Delete(_ context.Context, pred func(domain.TimeFrameSet) bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sets {
		if pred(s) {
			f.deleted = append(f.deleted, s.ID)
		}
	}
	return nil
}

type fakeWorkItems struct {
	items   map[int]domain.WorkItem
	err     error
	opened  []int
	openErr error
}

func (f *fakeWorkItems) GetWorkItems(_ context.Context, ids []int) ([]domain.WorkItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.WorkItem, 0, len(ids))
	for _, id := range ids {
		out = append(out, f.items[id])
	}
	return out, nil
}

func (f *fakeWorkItems) OpenWorkItem(_ context.Context, id int) error {
	f.opened = append(f.opened, id)
	return f.openErr
}

type fakeProject struct {
	name string
	err  error
}

func (p fakeProject) ProjectName(context.Context) (string, error) { return p.name, p.err }

type fixture struct {
	objectives *fakeObjectives
	areas      *fakeAreas
	timeFrames *fakeTimeFrames
	workItems  *fakeWorkItems
	mw         *Middleware
	rec        *Recorder
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		objectives: &fakeObjectives{},
		areas:      &fakeAreas{},
		timeFrames: &fakeTimeFrames{},
		workItems:  &fakeWorkItems{items: map[int]domain.WorkItem{}},
		rec:        &Recorder{},
	}
	opts = append([]Option{WithLogger(zaptest.NewLogger(t).Sugar())}, opts...)
	f.mw = New(Services{
		Objectives: f.objectives,
		Areas:      f.areas,
		TimeFrames: f.timeFrames,
		WorkItems:  f.workItems,
		Project:    fakeProject{name: "Fabrikam"},
	}, opts...)
	return f
}

func (f *fixture) exec(state State, intent Intent) Outcome {
	return f.mw.Execute(context.Background(), f.rec.Dispatch, state, intent)
}

func strPtr(s string) *string { return &s }

func TestGetAllCollectionMissingSucceedsEmpty(t *testing.T) {
	missing := collectionMissingErr(t)

	f := newFixture(t)
	f.objectives.getAllErr = missing
	f.areas.getAllErr = missing
	f.timeFrames.getAllErr = missing

	out := f.exec(State{}, GetObjectives{TimeFrameID: "tf"})
	require.IsType(t, GetObjectivesSucceed{}, out)
	assert.NotNil(t, out.(GetObjectivesSucceed).Payload)
	assert.Empty(t, out.(GetObjectivesSucceed).Payload)

	out = f.exec(State{}, GetAreas{})
	require.IsType(t, GetAreasSucceed{}, out)
	assert.Empty(t, out.(GetAreasSucceed).Payload)

	out = f.exec(State{}, GetTimeFrames{})
	require.IsType(t, GetTimeFramesSucceed{}, out)
	assert.Nil(t, out.(GetTimeFramesSucceed).Payload)

	for _, o := range f.rec.Terminal() {
		_, failed := o.(Failure)
		assert.False(t, failed, "unexpected failure %s", o.Type())
	}
}

func TestGetAllOtherErrorFails(t *testing.T) {
	f := newFixture(t)
	f.objectives.getAllErr = errBoom
	f.areas.getAllErr = errBoom
	f.timeFrames.getAllErr = errBoom

	cases := []struct {
		intent Intent
		want   ActionType
	}{
		{GetObjectives{TimeFrameID: "tf"}, TypeGetObjectivesFailed},
		{GetAreas{}, TypeAreaOperationFailed},
		{GetTimeFrames{}, TypeTimeFrameOperationFail},
	}
	for _, tc := range cases {
		out := f.exec(State{}, tc.intent)
		require.Equal(t, tc.want, out.Type())
		fail, ok := out.(Failure)
		require.True(t, ok)
		assert.Same(t, errBoom, fail.Cause())

		raw, err := MarshalAction(out)
		require.NoError(t, err)
		var body map[string]any
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Contains(t, body, "payload")
	}
}

func TestGetTimeFramesReturnsFirstSet(t *testing.T) {
	f := newFixture(t)
	f.timeFrames.sets = []domain.TimeFrameSet{{ID: "a"}, {ID: "b"}}
	out := f.exec(State{}, GetTimeFrames{})
	require.IsType(t, GetTimeFramesSucceed{}, out)
	require.NotNil(t, out.(GetTimeFramesSucceed).Payload)
	assert.Equal(t, "a", out.(GetTimeFramesSucceed).Payload.ID)
}

func TestCreateOKROrder(t *testing.T) {
	f := newFixture(t)
	data := domain.Objective{Name: "Grow"}
	out := f.exec(State{DisplayedTimeFrameID: "tf"}, CreateOKR{
		Objectives: []domain.Objective{{Order: 10}, {Order: 30}, {Order: 5}},
		Data:       data,
	})
	require.IsType(t, CreateOKRSucceed{}, out)
	assert.Equal(t, 40, out.(CreateOKRSucceed).Payload.Order)
	assert.Equal(t, 0, data.Order)

	out = f.exec(State{DisplayedTimeFrameID: "tf"}, CreateOKR{Data: data})
	assert.Equal(t, 10, out.(CreateOKRSucceed).Payload.Order)

	f.objectives.createErr = errBoom
	out = f.exec(State{}, CreateOKR{Data: data})
	assert.Equal(t, TypeObjectiveOperationFailed, out.Type())
}

func TestEditTimeFrameChangedCurrent(t *testing.T) {
	f := newFixture(t)
	f.objectives.items = []domain.Objective{{ID: "o1", Name: "Ship"}}
	set := domain.TimeFrameSet{
		ID:                 "set",
		TimeFrames:         []domain.TimeFrame{{ID: "old", Name: "Q1"}, {ID: "new", Name: "Q2"}},
		CurrentTimeFrameID: "new",
	}

	f.exec(State{DisplayedTimeFrameID: "old"}, EditTimeFrame{Set: set})

	terminal := f.rec.Terminal()
	require.Len(t, terminal, 1)
	combined, ok := terminal[0].(UpdateCurrentTimeFrameSucceed)
	require.True(t, ok, "got %s", terminal[0].Type())
	assert.Equal(t, set, combined.TimeFrames)
	assert.Equal(t, f.objectives.items, combined.Objectives)
	assert.Equal(t, []string{"new"}, f.objectives.getAllTFs)
	assert.Len(t, f.rec.Actions(), 2)
}

func TestEditTimeFrameSameCurrent(t *testing.T) {
	f := newFixture(t)
	set := domain.TimeFrameSet{ID: "set", TimeFrames: []domain.TimeFrame{{ID: "tf"}}, CurrentTimeFrameID: "tf"}

	out := f.exec(State{DisplayedTimeFrameID: "tf"}, EditTimeFrame{Set: set})

	require.IsType(t, EditTimeFrameSucceed{}, out)
	assert.Empty(t, f.objectives.getAllTFs)
	assert.Len(t, f.rec.Terminal(), 1)
}

func TestEditTimeFrameInnerFetch(t *testing.T) {
	set := domain.TimeFrameSet{ID: "set", TimeFrames: []domain.TimeFrame{{ID: "b"}}, CurrentTimeFrameID: "b"}

	f := newFixture(t)
	f.objectives.getAllErr = collectionMissingErr(t)
	out := f.exec(State{DisplayedTimeFrameID: "a"}, EditTimeFrame{Set: set})
	require.IsType(t, UpdateCurrentTimeFrameSucceed{}, out)
	assert.Empty(t, out.(UpdateCurrentTimeFrameSucceed).Objectives)

	f = newFixture(t)
	f.objectives.getAllErr = errBoom
	out = f.exec(State{DisplayedTimeFrameID: "a"}, EditTimeFrame{Set: set})
	require.IsType(t, TimeFrameOperationFail{}, out)
	assert.Same(t, errBoom, out.(Failure).Cause())

	f = newFixture(t)
	f.timeFrames.saveErr = errBoom
	out = f.exec(State{DisplayedTimeFrameID: "a"}, EditTimeFrame{Set: set})
	require.IsType(t, TimeFrameOperationFail{}, out)
	assert.Empty(t, f.objectives.getAllTFs)
}

func TestAddWorkItemsDedupes(t *testing.T) {
	f := newFixture(t)
	f.workItems.items = map[int]domain.WorkItem{2: {ID: 2}, 3: {ID: 3}}
	objectives := []domain.Objective{{ID: "other"}, {ID: "o1", WorkItems: []int{1, 2}}}

	out := f.exec(State{DisplayedTimeFrameID: "tf"}, AddWorkItems{
		Objectives: objectives,
		Data:       AddWorkItemsData{IDs: []int{2, 3}, ObjectiveID: "o1"},
	})

	require.IsType(t, AddWorkItemsSucceed{}, out)
	require.Len(t, f.objectives.saved, 1)
	assert.Equal(t, []int{1, 2, 3}, f.objectives.saved[0].WorkItems)
	assert.Equal(t, []int{1, 2, 3}, out.(AddWorkItemsSucceed).Objective.WorkItems)
	assert.Len(t, out.(AddWorkItemsSucceed).WorkItems, 2)
	assert.Equal(t, []int{1, 2}, objectives[1].WorkItems)
}

func TestWorkItemsUnknownObjective(t *testing.T) {
	f := newFixture(t)
	out := f.exec(State{}, AddWorkItems{Data: AddWorkItemsData{IDs: []int{1}, ObjectiveID: "missing"}})
	require.IsType(t, ObjectiveOperationFailed{}, out)
	assert.ErrorIs(t, out.(Failure).Cause(), ErrObjectiveNotFound)

	out = f.exec(State{}, DeleteWorkItems{Data: DeleteWorkItemsData{ID: 1, ObjectiveID: "missing"}})
	assert.ErrorIs(t, out.(Failure).Cause(), ErrObjectiveNotFound)
	assert.Empty(t, f.objectives.saved)
}

func TestDeleteWorkItems(t *testing.T) {
	f := newFixture(t)
	objectives := []domain.Objective{{ID: "o1", WorkItems: []int{1, 2, 3}}}
	out := f.exec(State{}, DeleteWorkItems{
		Objectives: objectives,
		Data:       DeleteWorkItemsData{ObjectiveID: "o1", ID: 2},
	})
	require.IsType(t, DeleteWorkItemsSucceed{}, out)
	assert.Equal(t, []int{1, 3}, out.(DeleteWorkItemsSucceed).Payload.WorkItems)
	assert.Equal(t, []int{1, 2, 3}, objectives[0].WorkItems)
}

func TestGetWorkItemsFailure(t *testing.T) {
	f := newFixture(t)
	f.workItems.err = errBoom
	out := f.exec(State{}, GetWorkItems{IDs: []int{1}})
	assert.Equal(t, TypeObjectiveOperationFailed, out.Type())
}

func TestRemoveAreaCascades(t *testing.T) {
	f := newFixture(t)
	f.areas.items = []domain.Area{{ID: "a1"}, {ID: "a2"}}
	f.objectives.items = []domain.Objective{
		{ID: "o1", AreaID: strPtr("a1")},
		{ID: "o2", AreaID: strPtr("a2")},
		{ID: "o3"},
	}

	out := f.exec(State{DisplayedTimeFrameID: "tf"}, RemoveArea{ID: "a1"})

	require.Equal(t, RemoveAreaSucceed{ID: "a1"}, out)
	assert.Equal(t, []string{"a1"}, f.areas.deleted)
	require.Len(t, f.objectives.deleted, 1)
	assert.Equal(t, "o1", f.objectives.deleted[0].ID)
	assert.Equal(t, []string{"tf"}, f.objectives.deleteTFs)

	actions := f.rec.Actions()
	require.Len(t, actions, 3)
	assert.Equal(t, TypeRemoveArea, actions[0].Type())
	assert.Equal(t, TypeRemoveAreaSucceed, actions[1].Type())
	assert.Equal(t, RemoveAreaCascadeSettled{ID: "a1"}, actions[2])
	assert.Len(t, f.rec.Terminal(), 1)
}

func TestRemoveAreaCascadeFailureIsInformational(t *testing.T) {
	f := newFixture(t)
	f.areas.items = []domain.Area{{ID: "a1"}}
	f.objectives.deleteErr = errBoom

	out := f.exec(State{}, RemoveArea{ID: "a1"})

	assert.Equal(t, TypeRemoveAreaSucceed, out.Type())
	actions := f.rec.Actions()
	require.Len(t, actions, 3)
	settled, ok := actions[2].(RemoveAreaCascadeSettled)
	require.True(t, ok)
	assert.Same(t, errBoom, settled.Err)
}

func TestRemoveAreaFailureSkipsCascade(t *testing.T) {
	f := newFixture(t)
	f.areas.deleteErr = errBoom
	out := f.exec(State{}, RemoveArea{ID: "a1"})
	assert.Equal(t, TypeAreaOperationFailed, out.Type())
	assert.Empty(t, f.objectives.deleteTFs)
	assert.Len(t, f.rec.Actions(), 2)
}

func TestRemoveOKR(t *testing.T) {
	f := newFixture(t)
	f.objectives.items = []domain.Objective{{ID: "o1"}, {ID: "o2"}}
	out := f.exec(State{DisplayedTimeFrameID: "tf"}, RemoveOKR{ID: "o2"})
	assert.Equal(t, RemoveOKRSucceed{ID: "o2"}, out)
	require.Len(t, f.objectives.deleted, 1)
	assert.Equal(t, "o2", f.objectives.deleted[0].ID)
}

func TestCreateFirstArea(t *testing.T) {
	f := newFixture(t)
	out := f.exec(State{}, CreateFirstArea{Area: domain.Area{Name: "Engineering"}})

	require.IsType(t, CreateFirstAreaSuccess{}, out)
	got := out.(CreateFirstAreaSuccess).Payload
	assert.Equal(t, "Engineering", got.Area.Name)
	assert.Equal(t, "new-area", got.Area.ID)
	require.Len(t, got.TimeFrameSet.TimeFrames, 1)
	assert.Equal(t, "Current", got.TimeFrameSet.TimeFrames[0].Name)
	assert.NotEmpty(t, got.TimeFrameSet.TimeFrames[0].ID)
	assert.Equal(t, got.TimeFrameSet.TimeFrames[0].ID, got.TimeFrameSet.CurrentTimeFrameID)
	assert.Len(t, f.timeFrames.sets, 1)
}

func TestCreateFirstAreaLegFailure(t *testing.T) {
	f := newFixture(t)
	f.areas.createErr = errBoom
	out := f.exec(State{}, CreateFirstArea{Area: domain.Area{Name: "Engineering"}})
	require.IsType(t, CreateAreaFailed{}, out)
	assert.Same(t, errBoom, out.(Failure).Cause())
	require.Len(t, f.timeFrames.sets, 1)
	assert.Equal(t, []string{f.timeFrames.sets[0].ID}, f.timeFrames.deleted)

	f = newFixture(t)
	f.timeFrames.createErr = errBoom
	out = f.exec(State{}, CreateFirstArea{Area: domain.Area{Name: "Engineering"}})
	require.IsType(t, CreateAreaFailed{}, out)
	assert.Same(t, errBoom, out.(Failure).Cause())
	assert.Equal(t, []string{"new-area"}, f.areas.deleted)

	f = newFixture(t, WithCompensation(false))
	f.areas.createErr = errBoom
	f.exec(State{}, CreateFirstArea{Area: domain.Area{Name: "Engineering"}})
	assert.Empty(t, f.timeFrames.deleted)
}

func TestCreateFirstAreaRunsLegsConcurrently(t *testing.T) {
	f := newFixture(t)
	release := make(chan struct{})
	f.timeFrames.onCreate = func() error {
		select {
		case <-release:
			return nil
		case <-time.After(2 * time.Second):
			return errors.New("time frame create finished waiting without the area create starting")
		}
	}
	f.areas.onCreate = func() error {
		close(release)
		return nil
	}

	out := f.exec(State{}, CreateFirstArea{Area: domain.Area{Name: "Engineering"}})
	require.IsType(t, CreateFirstAreaSuccess{}, out)
	assert.Equal(t, "new-area", out.(CreateFirstAreaSuccess).Payload.Area.ID)
	assert.Len(t, f.timeFrames.sets, 1)
}

func TestCreateFirstAreaFailureWaitsForSlowLeg(t *testing.T) {
	f := newFixture(t)
	var areaDone atomic.Bool
	f.areas.onCreate = func() error {
		time.Sleep(50 * time.Millisecond)
		areaDone.Store(true)
		return nil
	}
	f.timeFrames.createErr = errBoom

	out := f.exec(State{}, CreateFirstArea{Area: domain.Area{Name: "Engineering"}})
	require.IsType(t, CreateAreaFailed{}, out)
	assert.Same(t, errBoom, out.(Failure).Cause())
	assert.True(t, areaDone.Load(), "failure reported before the area create returned")
	for _, a := range f.rec.Actions() {
		assert.NotEqual(t, TypeCreateFirstAreaSuccess, a.Type())
	}
	assert.Len(t, f.rec.Terminal(), 1)
	// the slow leg succeeded, so its record is compensated
	assert.Equal(t, []string{"new-area"}, f.areas.deleted)
}

func TestCreateTimeFrameAndAreas(t *testing.T) {
	f := newFixture(t)
	set := domain.NewTimeFrameSet("Q1")
	out := f.exec(State{}, CreateTimeFrame{Set: set})
	assert.Equal(t, CreateTimeFrameSucceed{Payload: set}, out)

	out = f.exec(State{}, CreateArea{Data: domain.Area{Name: "Sales"}})
	require.IsType(t, CreateAreaSucceed{}, out)

	out = f.exec(State{}, EditArea{Area: domain.Area{ID: "x", Name: "Ops"}})
	assert.Equal(t, EditAreaSucceed{Payload: domain.Area{ID: "x", Name: "Ops"}}, out)

	f.areas.createErr = errBoom
	out = f.exec(State{}, CreateArea{Data: domain.Area{Name: "Sales"}})
	assert.Equal(t, TypeCreateAreaFailed, out.Type())

	f.timeFrames.createErr = errBoom
	out = f.exec(State{}, CreateTimeFrame{Set: set})
	assert.Equal(t, TypeTimeFrameOperationFail, out.Type())
}

func TestEditOKRAndStatus(t *testing.T) {
	f := newFixture(t)
	o := domain.Objective{ID: "o1", Name: "Ship"}
	assert.Equal(t, EditOKRSucceed{Payload: o}, f.exec(State{}, EditOKR{Objective: o}))
	assert.Equal(t, EditOKRSucceed{Payload: o}, f.exec(State{}, EditKRStatus{Objective: o}))

	f.objectives.saveErr = errBoom
	assert.Equal(t, TypeObjectiveOperationFailed, f.exec(State{}, EditOKR{Objective: o}).Type())
}

func TestProjectName(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, GetProjectNameSucceed{ProjectName: "Fabrikam"}, f.exec(State{}, GetProjectName{}))

	f.mw.svc.Project = fakeProject{err: errBoom}
	out := f.exec(State{}, GetProjectName{})
	assert.Equal(t, GetProjectNameFailed{Err: errBoom}, out)
}

func TestOpenWorkItemDispatchesNothing(t *testing.T) {
	f := newFixture(t)
	f.workItems.openErr = errBoom
	out := f.exec(State{}, OpenWorkItem{ID: 7})
	assert.Nil(t, out)
	assert.Equal(t, []int{7}, f.workItems.opened)
	assert.Len(t, f.rec.Actions(), 1)
}

func TestApplyPassthroughThenAsync(t *testing.T) {
	f := newFixture(t)
	f.areas.items = []domain.Area{{ID: "a1"}}
	dispatch := f.mw.Apply(context.Background(), f.rec.Dispatch, State{})

	dispatch(GetAreasSucceed{Payload: nil})
	dispatch(GetAreas{})
	dispatch(RemoveArea{ID: "a1"})
	f.mw.Wait()

	actions := f.rec.Actions()
	require.Len(t, actions, 6)
	assert.Equal(t, TypeGetAreasSucceed, actions[0].Type())

	types := map[ActionType]int{}
	for _, a := range actions {
		types[a.Type()]++
	}
	assert.Equal(t, 2, types[TypeGetAreasSucceed])
	assert.Equal(t, 1, types[TypeRemoveAreaSucceed])
	assert.Equal(t, 1, types[TypeRemoveAreaCascadeSettled])
}

func TestMarshalAction(t *testing.T) {
	missing := collectionMissingErr(t)
	cases := []struct {
		action Action
		want   string
	}{
		{GetAreas{}, `{"type":"getAreas"}`},
		{RemoveOKR{ID: "o1"}, `{"type":"removeOKR","payload":{"id":"o1"}}`},
		{RemoveOKRSucceed{ID: "o1"}, `{"type":"removeOKRSucceed","id":"o1"}`},
		{GetProjectNameSucceed{ProjectName: "P"}, `{"type":"getProjectNameSucceed","projectName":"P"}`},
		{ObjectiveOperationFailed{Err: errBoom}, `{"type":"objectiveOperationFailed","error":{"message":"boom"}}`},
		{RemoveAreaCascadeSettled{ID: "a1"}, `{"type":"removeAreaCascadeSettled","id":"a1"}`},
		{GetTimeFramesSucceed{}, `{"type":"getTimeFramesSucceed","payload":null}`},
	}
	for _, tc := range cases {
		raw, err := MarshalAction(tc.action)
		require.NoError(t, err)
		assert.JSONEq(t, tc.want, string(raw), "action %s", tc.action.Type())
	}

	raw, err := MarshalAction(GetObjectivesFailed{Err: missing})
	require.NoError(t, err)
	var body struct {
		Payload ErrorJSON `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	require.NotNil(t, body.Payload.ServerError)
	assert.Equal(t, docstore.TypeKeyCollectionDoesNotExist, body.Payload.ServerError.TypeKey)
}

func TestDecodeIntent(t *testing.T) {
	intent, err := DecodeIntent([]byte(`{"type":"createOKR","payload":{"objectives":[{"id":"a","order":10}],"data":{"Name":"Grow"}}}`))
	require.NoError(t, err)
	create, ok := intent.(CreateOKR)
	require.True(t, ok)
	assert.Equal(t, "Grow", create.Data.Name)
	assert.Len(t, create.Objectives, 1)

	intent, err = DecodeIntent([]byte(`{"type":"getWorkItems","payload":[1,2]}`))
	require.NoError(t, err)
	assert.Equal(t, GetWorkItems{IDs: []int{1, 2}}, intent)

	intent, err = DecodeIntent([]byte(`{"type":"getAreas"}`))
	require.NoError(t, err)
	assert.Equal(t, GetAreas{}, intent)

	_, err = DecodeIntent([]byte(`{"type":"nope"}`))
	assert.ErrorIs(t, err, ErrUnknownIntent)

	_, err = DecodeIntent([]byte(`{"type":"removeArea"}`))
	assert.Error(t, err)
}
