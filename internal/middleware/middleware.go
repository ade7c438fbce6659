// Package middleware turns view intents into store orchestration and
// terminal actions. Every action is forwarded to the downstream dispatch
// first; intents then run at most one orchestration routine that ends in
// exactly one terminal action.
package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"okrhub/internal/docstore"
	"okrhub/internal/domain"
	"okrhub/internal/metrics"
)

type ObjectiveService interface {
	GetAll(ctx context.Context, timeFrameID string) ([]domain.Objective, error)
	Create(ctx context.Context, o domain.Objective, timeFrameID string) (domain.Objective, error)
	Save(ctx context.Context, o domain.Objective, timeFrameID string) (domain.Objective, error)
	Delete(ctx context.Context, pred func(domain.Objective) bool, timeFrameID string) error
}

type AreaService interface {
	GetAll(ctx context.Context) ([]domain.Area, error)
	Create(ctx context.Context, a domain.Area) (domain.Area, error)
	Save(ctx context.Context, a domain.Area) (domain.Area, error)
	Delete(ctx context.Context, pred func(domain.Area) bool) error
}

type TimeFrameService interface {
	GetAll(ctx context.Context) ([]domain.TimeFrameSet, error)
	Create(ctx context.Context, set domain.TimeFrameSet) (domain.TimeFrameSet, error)
	Save(ctx context.Context, set domain.TimeFrameSet) (domain.TimeFrameSet, error)
	Delete(ctx context.Context, pred func(domain.TimeFrameSet) bool) error
}

type WorkItemService interface {
	GetWorkItems(ctx context.Context, ids []int) ([]domain.WorkItem, error)
	OpenWorkItem(ctx context.Context, id int) error
}

type ProjectService interface {
	ProjectName(ctx context.Context) (string, error)
}

// Services bundles the domain services the middleware orchestrates.
type Services struct {
	Objectives ObjectiveService
	Areas      AreaService
	TimeFrames TimeFrameService
	WorkItems  WorkItemService
	Project    ProjectService
}

// State is the slice of view state orchestration depends on.
type State struct {
	DisplayedTimeFrameID string
}

// DispatchFunc hands an action to the next stage. Implementations must be
// safe for concurrent use.
type DispatchFunc func(Action)

type Option func(*Middleware)

func WithLogger(l *zap.SugaredLogger) Option {
	return func(m *Middleware) {
		if l != nil {
			m.log = l
		}
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Middleware) { m.metrics = mt }
}

// WithCompensation controls whether a half-finished bootstrap deletes the
// record its successful leg created.
func WithCompensation(enabled bool) Option {
	return func(m *Middleware) { m.compensate = enabled }
}

// WithTimeFrameName sets the name of the time frame created by bootstrap.
func WithTimeFrameName(name string) Option {
	return func(m *Middleware) {
		if name != "" {
			m.timeFrameName = name
		}
	}
}

type Middleware struct {
	svc           Services
	log           *zap.SugaredLogger
	metrics       *metrics.Metrics
	compensate    bool
	timeFrameName string

	wg sync.WaitGroup
}

const DefaultTimeFrameName = "Current"

func New(svc Services, opts ...Option) *Middleware {
	m := &Middleware{
		svc:           svc,
		log:           zap.NewNop().Sugar(),
		compensate:    true,
		timeFrameName: DefaultTimeFrameName,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Apply wraps dispatch. The returned function forwards each action and, for
// intents, starts the orchestration on its own goroutine.
func (m *Middleware) Apply(ctx context.Context, dispatch DispatchFunc, state State) DispatchFunc {
	return func(a Action) {
		dispatch(a)
		intent, ok := a.(Intent)
		if !ok {
			return
		}
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.run(ctx, dispatch, state, intent, &m.wg)
		}()
	}
}

// Execute forwards intent and runs its orchestration inline. It returns the
// terminal action, or nil for intents that have none. An area cascade started
// by the intent is joined before Execute returns, after the terminal action
// has been dispatched.
func (m *Middleware) Execute(ctx context.Context, dispatch DispatchFunc, state State, intent Intent) Outcome {
	dispatch(intent)
	var cascades sync.WaitGroup
	out := m.run(ctx, dispatch, state, intent, &cascades)
	cascades.Wait()
	return out
}

// Wait blocks until every routine started through Apply has finished.
func (m *Middleware) Wait() {
	m.wg.Wait()
}

func (m *Middleware) run(ctx context.Context, dispatch DispatchFunc, state State, intent Intent, cascades *sync.WaitGroup) Outcome {
	start := time.Now()
	m.metrics.Intent(string(intent.Type()))
	out := m.orchestrate(ctx, state, intent)
	if out == nil {
		return nil
	}
	f, failed := out.(Failure)
	if failed {
		m.log.Warnw("intent failed", "intent", intent.Type(), "action", out.Type(), "error", f.Cause())
	} else {
		m.log.Debugw("intent succeeded", "intent", intent.Type(), "action", out.Type())
	}
	m.metrics.Outcome(string(intent.Type()), string(out.Type()), failed, time.Since(start))
	dispatch(out)

	if removed, ok := out.(RemoveAreaSucceed); ok {
		cascades.Add(1)
		go func() {
			defer cascades.Done()
			m.cascadeArea(context.WithoutCancel(ctx), dispatch, state, removed.ID)
		}()
	}
	return out
}

// cascadeArea deletes the objectives that belonged to a removed area.
func (m *Middleware) cascadeArea(ctx context.Context, dispatch DispatchFunc, state State, areaID string) {
	err := m.svc.Objectives.Delete(ctx, func(o domain.Objective) bool {
		return o.InArea(areaID)
	}, state.DisplayedTimeFrameID)
	if err != nil && docstore.IsCollectionMissing(err) {
		err = nil
	}
	m.metrics.Cascade(err)
	if err != nil {
		m.log.Warnw("area cascade delete failed", "area_id", areaID, "error", err)
	}
	dispatch(RemoveAreaCascadeSettled{ID: areaID, Err: err})
}

func (m *Middleware) orchestrate(ctx context.Context, state State, intent Intent) Outcome {
	switch i := intent.(type) {
	case GetObjectives:
		items, err := m.svc.Objectives.GetAll(ctx, i.TimeFrameID)
		return classifyGetAll(items, err,
			func(v []domain.Objective) Outcome { return GetObjectivesSucceed{Payload: v} },
			func(err error) Outcome { return GetObjectivesFailed{Err: err} })

	case GetAreas:
		items, err := m.svc.Areas.GetAll(ctx)
		return classifyGetAll(items, err,
			func(v []domain.Area) Outcome { return GetAreasSucceed{Payload: v} },
			func(err error) Outcome { return AreaOperationFailed{Err: err, FromGetAll: true} })

	case GetTimeFrames:
		sets, err := m.svc.TimeFrames.GetAll(ctx)
		return classifyGetAll(sets, err,
			func(v []domain.TimeFrameSet) Outcome {
				if len(v) == 0 {
					return GetTimeFramesSucceed{}
				}
				first := v[0]
				return GetTimeFramesSucceed{Payload: &first}
			},
			func(err error) Outcome { return TimeFrameOperationFail{Err: err, FromGetAll: true} })

	case EditTimeFrame:
		return m.editTimeFrame(ctx, state, i.Set)

	case GetProjectName:
		name, err := m.svc.Project.ProjectName(ctx)
		if err != nil {
			return GetProjectNameFailed{Err: err}
		}
		return GetProjectNameSucceed{ProjectName: name}

	case EditOKR:
		return m.saveObjective(ctx, state, i.Objective)

	case EditKRStatus:
		return m.saveObjective(ctx, state, i.Objective)

	case CreateOKR:
		data := i.Data.Clone()
		data.Order = domain.NextObjectiveOrder(i.Objectives)
		created, err := m.svc.Objectives.Create(ctx, data, state.DisplayedTimeFrameID)
		if err != nil {
			return ObjectiveOperationFailed{Err: err}
		}
		return CreateOKRSucceed{Payload: created}

	case CreateFirstArea:
		return m.createFirstArea(ctx, i.Area)

	case CreateTimeFrame:
		created, err := m.svc.TimeFrames.Create(ctx, i.Set)
		if err != nil {
			return TimeFrameOperationFail{Err: err}
		}
		return CreateTimeFrameSucceed{Payload: created}

	case CreateArea:
		created, err := m.svc.Areas.Create(ctx, i.Data)
		if err != nil {
			return CreateAreaFailed{Err: err}
		}
		return CreateAreaSucceed{Payload: created}

	case EditArea:
		updated, err := m.svc.Areas.Save(ctx, i.Area)
		if err != nil {
			return AreaOperationFailed{Err: err}
		}
		return EditAreaSucceed{Payload: updated}

	case RemoveOKR:
		err := m.svc.Objectives.Delete(ctx, func(o domain.Objective) bool {
			return o.ID == i.ID
		}, state.DisplayedTimeFrameID)
		if err != nil {
			return ObjectiveOperationFailed{Err: err}
		}
		return RemoveOKRSucceed{ID: i.ID}

	case RemoveArea:
		err := m.svc.Areas.Delete(ctx, func(a domain.Area) bool {
			return a.ID == i.ID
		})
		if err != nil {
			return AreaOperationFailed{Err: err}
		}
		return RemoveAreaSucceed{ID: i.ID}

	case GetWorkItems:
		items, err := m.svc.WorkItems.GetWorkItems(ctx, i.IDs)
		if err != nil {
			return ObjectiveOperationFailed{Err: err}
		}
		return GetWorkItemsSucceed{WorkItems: items}

	case AddWorkItems:
		return m.addWorkItems(ctx, state, i)

	case DeleteWorkItems:
		return m.deleteWorkItems(ctx, state, i)

	case OpenWorkItem:
		if err := m.svc.WorkItems.OpenWorkItem(ctx, i.ID); err != nil {
			m.log.Warnw("open work item failed", "work_item_id", i.ID, "error", err)
		}
		return nil

	default:
		m.log.Errorw("unhandled intent", "type", intent.Type())
		return nil
	}
}

func (m *Middleware) saveObjective(ctx context.Context, state State, o domain.Objective) Outcome {
	updated, err := m.svc.Objectives.Save(ctx, o, state.DisplayedTimeFrameID)
	if err != nil {
		return ObjectiveOperationFailed{Err: err}
	}
	return EditOKRSucceed{Payload: updated}
}

func (m *Middleware) editTimeFrame(ctx context.Context, state State, set domain.TimeFrameSet) Outcome {
	saved, err := m.svc.TimeFrames.Save(ctx, set)
	if err != nil {
		return TimeFrameOperationFail{Err: err}
	}
	if set.CurrentTimeFrameID == state.DisplayedTimeFrameID {
		return EditTimeFrameSucceed{Payload: saved}
	}
	objectives, err := m.svc.Objectives.GetAll(ctx, set.CurrentTimeFrameID)
	switch {
	case err == nil:
	case docstore.IsCollectionMissing(err):
		objectives = nil
	default:
		return TimeFrameOperationFail{Err: err}
	}
	if objectives == nil {
		objectives = []domain.Objective{}
	}
	return UpdateCurrentTimeFrameSucceed{Objectives: objectives, TimeFrames: saved}
}

// createFirstArea creates the first time frame set and the first area side by
// side and reports them together.
func (m *Middleware) createFirstArea(ctx context.Context, area domain.Area) Outcome {
	set := domain.NewTimeFrameSet(m.timeFrameName)

	var (
		g               errgroup.Group
		createdSet      domain.TimeFrameSet
		createdArea     domain.Area
		setErr, areaErr error
	)
	g.Go(func() error {
		createdSet, setErr = m.svc.TimeFrames.Create(ctx, set)
		return setErr
	})
	g.Go(func() error {
		createdArea, areaErr = m.svc.Areas.Create(ctx, area)
		return areaErr
	})
	if err := g.Wait(); err != nil {
		if m.compensate {
			m.compensateBootstrap(ctx, createdSet, setErr, createdArea, areaErr)
		}
		return CreateAreaFailed{Err: err}
	}
	return CreateFirstAreaSuccess{Payload: FirstArea{TimeFrameSet: createdSet, Area: createdArea}}
}

// compensateBootstrap removes the record written by the leg that succeeded
// when the other leg failed. Errors are logged only.
func (m *Middleware) compensateBootstrap(ctx context.Context, set domain.TimeFrameSet, setErr error, area domain.Area, areaErr error) {
	ctx = context.WithoutCancel(ctx)
	switch {
	case setErr == nil && areaErr != nil:
		err := m.svc.TimeFrames.Delete(ctx, func(s domain.TimeFrameSet) bool { return s.ID == set.ID })
		m.logCompensation("time_frame_set", set.ID, err)
	case areaErr == nil && setErr != nil:
		err := m.svc.Areas.Delete(ctx, func(a domain.Area) bool { return a.ID == area.ID })
		m.logCompensation("area", area.ID, err)
	}
}

func (m *Middleware) logCompensation(kind, id string, err error) {
	if err != nil {
		m.log.Errorw("bootstrap compensation failed", "kind", kind, "id", id, "error", err)
		return
	}
	m.log.Infow("bootstrap compensated", "kind", kind, "id", id)
}

func findObjective(objectives []domain.Objective, id string) (domain.Objective, error) {
	for _, o := range objectives {
		if o.ID == id {
			return o.Clone(), nil
		}
	}
	return domain.Objective{}, fmt.Errorf("%w: %s", ErrObjectiveNotFound, id)
}

func (m *Middleware) addWorkItems(ctx context.Context, state State, i AddWorkItems) Outcome {
	target, err := findObjective(i.Objectives, i.Data.ObjectiveID)
	if err != nil {
		return ObjectiveOperationFailed{Err: err}
	}
	items, err := m.svc.WorkItems.GetWorkItems(ctx, i.Data.IDs)
	if err != nil {
		return ObjectiveOperationFailed{Err: err}
	}
	seen := make(map[int]struct{}, len(target.WorkItems)+len(items))
	for _, id := range target.WorkItems {
		seen[id] = struct{}{}
	}
	for _, w := range items {
		if _, dup := seen[w.ID]; dup {
			continue
		}
		seen[w.ID] = struct{}{}
		target.WorkItems = append(target.WorkItems, w.ID)
	}
	updated, err := m.svc.Objectives.Save(ctx, target, state.DisplayedTimeFrameID)
	if err != nil {
		return ObjectiveOperationFailed{Err: err}
	}
	return AddWorkItemsSucceed{WorkItems: items, Objective: updated}
}

func (m *Middleware) deleteWorkItems(ctx context.Context, state State, i DeleteWorkItems) Outcome {
	target, err := findObjective(i.Objectives, i.Data.ObjectiveID)
	if err != nil {
		return ObjectiveOperationFailed{Err: err}
	}
	kept := make([]int, 0, len(target.WorkItems))
	for _, id := range target.WorkItems {
		if id != i.Data.ID {
			kept = append(kept, id)
		}
	}
	target.WorkItems = kept
	updated, err := m.svc.Objectives.Save(ctx, target, state.DisplayedTimeFrameID)
	if err != nil {
		return ObjectiveOperationFailed{Err: err}
	}
	return DeleteWorkItemsSucceed{Payload: updated}
}
