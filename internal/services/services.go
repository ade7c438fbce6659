package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"okrhub/internal/docstore"
	"okrhub/internal/domain"
)

const (
	ObjectivesCollection = "Objectives"
	AreasCollection      = "Areas"
	TimeFramesCollection = "TimeFrames"
)

// Objectives stores one collection partition per time frame.
type Objectives struct {
	coll Collection[domain.Objective]
}

func NewObjectives(store docstore.Store) Objectives {
	return Objectives{coll: Collection[domain.Objective]{Store: store, Name: ObjectivesCollection}}
}

func (s Objectives) GetAll(ctx context.Context, timeFrameID string) ([]domain.Objective, error) {
	return s.coll.GetAll(ctx, timeFrameID)
}

func (s Objectives) Create(ctx context.Context, o domain.Objective, timeFrameID string) (domain.Objective, error) {
	if strings.TrimSpace(o.Name) == "" {
		return domain.Objective{}, fmt.Errorf("%w: objective name is required", ErrInvalid)
	}
	return s.coll.Create(ctx, o, timeFrameID)
}

func (s Objectives) Save(ctx context.Context, o domain.Objective, timeFrameID string) (domain.Objective, error) {
	return s.coll.Save(ctx, o, timeFrameID)
}

func (s Objectives) Delete(ctx context.Context, pred func(domain.Objective) bool, timeFrameID string) error {
	return s.coll.Delete(ctx, pred, timeFrameID)
}

type Areas struct {
	coll Collection[domain.Area]
}

func NewAreas(store docstore.Store) Areas {
	return Areas{coll: Collection[domain.Area]{Store: store, Name: AreasCollection}}
}

func (s Areas) GetAll(ctx context.Context) ([]domain.Area, error) {
	return s.coll.GetAll(ctx, "")
}

func (s Areas) Create(ctx context.Context, a domain.Area) (domain.Area, error) {
	if strings.TrimSpace(a.Name) == "" {
		return domain.Area{}, fmt.Errorf("%w: area name is required", ErrInvalid)
	}
	return s.coll.Create(ctx, a, "")
}

func (s Areas) Save(ctx context.Context, a domain.Area) (domain.Area, error) {
	return s.coll.Save(ctx, a, "")
}

func (s Areas) Delete(ctx context.Context, pred func(domain.Area) bool) error {
	return s.coll.Delete(ctx, pred, "")
}

// TimeFrames holds the singular TimeFrameSet document.
type TimeFrames struct {
	coll Collection[domain.TimeFrameSet]
}

func NewTimeFrames(store docstore.Store) TimeFrames {
	return TimeFrames{coll: Collection[domain.TimeFrameSet]{Store: store, Name: TimeFramesCollection}}
}

func (s TimeFrames) GetAll(ctx context.Context) ([]domain.TimeFrameSet, error) {
	return s.coll.GetAll(ctx, "")
}

func (s TimeFrames) Create(ctx context.Context, set domain.TimeFrameSet) (domain.TimeFrameSet, error) {
	if err := set.Validate(); err != nil {
		return domain.TimeFrameSet{}, err
	}
	return s.coll.Create(ctx, set, "")
}

func (s TimeFrames) Save(ctx context.Context, set domain.TimeFrameSet) (domain.TimeFrameSet, error) {
	if err := set.Validate(); err != nil {
		return domain.TimeFrameSet{}, err
	}
	return s.coll.Save(ctx, set, "")
}

func (s TimeFrames) Delete(ctx context.Context, pred func(domain.TimeFrameSet) bool) error {
	return s.coll.Delete(ctx, pred, "")
}

// ErrProjectNameUnset is returned when no display name is configured.
var ErrProjectNameUnset = errors.New("project name not configured")

// ProjectMetadata answers host project questions from configuration.
type ProjectMetadata struct {
	Name string
}

func (p ProjectMetadata) ProjectName(context.Context) (string, error) {
	if strings.TrimSpace(p.Name) == "" {
		return "", ErrProjectNameUnset
	}
	return p.Name, nil
}
