// Package workitems resolves work item ids against a tracker and opens them in
// the host. Objectives only keep the ids; titles and states always come from
// a Source.
package workitems

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"okrhub/internal/domain"
)

var ErrNotFound = errors.New("work item not found")

// Source batch-fetches work items by id.
type Source interface {
	GetWorkItems(ctx context.Context, ids []int) ([]domain.WorkItem, error)
}

// Navigator hands a link to whatever host is showing the panel.
type Navigator interface {
	Navigate(ctx context.Context, url string) error
}

type NavigatorFunc func(ctx context.Context, url string) error

func (f NavigatorFunc) Navigate(ctx context.Context, url string) error { return f(ctx, url) }

// LogNavigator records the link instead of opening anything.
type LogNavigator struct {
	Logger *zap.SugaredLogger
}

func (n LogNavigator) Navigate(_ context.Context, url string) error {
	if n.Logger != nil {
		n.Logger.Infow("open work item", "url", url)
	}
	return nil
}

// Service is the work item domain service consumed by the middleware.
type Service struct {
	Source    Source
	Navigator Navigator
	// BaseURL is the host project url used to build edit links.
	BaseURL string
}

// GetWorkItems rejects non-positive ids and fetches each distinct id once,
// preserving the order of first appearance.
func (s Service) GetWorkItems(ctx context.Context, ids []int) ([]domain.WorkItem, error) {
	if s.Source == nil {
		return nil, errors.New("work item source not configured")
	}
	seen := make(map[int]struct{}, len(ids))
	unique := make([]int, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return nil, fmt.Errorf("invalid work item id %d", id)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return []domain.WorkItem{}, nil
	}
	items, err := s.Source.GetWorkItems(ctx, unique)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].URL == "" {
			items[i].URL = s.Link(items[i].ID)
		}
	}
	return items, nil
}

// Link is the host edit page for a work item.
func (s Service) Link(id int) string {
	base := strings.TrimRight(s.BaseURL, "/")
	if base == "" {
		return ""
	}
	return fmt.Sprintf("%s/_workitems/edit/%d", base, id)
}

func (s Service) OpenWorkItem(ctx context.Context, id int) error {
	if id <= 0 {
		return fmt.Errorf("invalid work item id %d", id)
	}
	link := s.Link(id)
	if link == "" {
		return errors.New("project url not configured")
	}
	if s.Navigator == nil {
		return errors.New("navigator not configured")
	}
	return s.Navigator.Navigate(ctx, link)
}
