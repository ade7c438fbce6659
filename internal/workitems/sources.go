package workitems

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"okrhub/internal/docstore"
	"okrhub/internal/domain"
	"okrhub/internal/services"
)

const Collection = "WorkItems"

// StoreSource serves work items kept in the local document store.
type StoreSource struct {
	coll services.Collection[domain.WorkItem]
}

func NewStoreSource(store docstore.Store) StoreSource {
	return StoreSource{coll: services.Collection[domain.WorkItem]{Store: store, Name: Collection}}
}

func (s StoreSource) GetWorkItems(ctx context.Context, ids []int) ([]domain.WorkItem, error) {
	all, err := s.coll.GetAll(ctx, "")
	if err != nil && !docstore.IsCollectionMissing(err) {
		return nil, err
	}
	byID := make(map[int]domain.WorkItem, len(all))
	for _, w := range all {
		byID[w.ID] = w
	}
	res := make([]domain.WorkItem, 0, len(ids))
	for _, id := range ids {
		w, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		res = append(res, w)
	}
	return res, nil
}

// Import upserts work items into the local catalog.
func (s StoreSource) Import(ctx context.Context, items []domain.WorkItem) error {
	for _, w := range items {
		if w.ID <= 0 {
			return fmt.Errorf("invalid work item id %d", w.ID)
		}
		if _, err := s.coll.Save(ctx, w, ""); err != nil {
			return fmt.Errorf("import work item %d: %w", w.ID, err)
		}
	}
	return nil
}

// HTTPSource fetches work items from a tracker REST endpoint:
// GET {BaseURL}/workitems?ids=1,2,3 answering {"value":[...]}.
type HTTPSource struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// APIError wraps non-2xx tracker responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("work item tracker error: status=%d body=%s", e.StatusCode, e.Body)
}

func (s HTTPSource) client() *http.Client {
	if s.HTTPClient != nil {
		return s.HTTPClient
	}
	timeout := s.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func (s HTTPSource) GetWorkItems(ctx context.Context, ids []int) ([]domain.WorkItem, error) {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	endpoint := strings.TrimRight(s.BaseURL, "/") + "/workitems?ids=" + url.QueryEscape(strings.Join(parts, ","))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
	resp, err := s.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, strings.Join(parts, ","))
	}
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	var out struct {
		Value []domain.WorkItem `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode work items: %w", err)
	}
	if out.Value == nil {
		out.Value = []domain.WorkItem{}
	}
	return out.Value, nil
}
