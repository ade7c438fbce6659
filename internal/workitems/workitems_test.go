package workitems_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"okrhub/internal/docstore"
	"okrhub/internal/domain"
	"okrhub/internal/workitems"
)

func TestStoreSourceRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := workitems.NewStoreSource(docstore.NewMemoryStore())
	svc := workitems.Service{Source: src, BaseURL: "https://dev.example.com/fabrikam/"}

	_, err := svc.GetWorkItems(ctx, []int{1})
	assert.ErrorIs(t, err, workitems.ErrNotFound)

	require.NoError(t, src.Import(ctx, []domain.WorkItem{
		{ID: 1, Title: "Login page"},
		{ID: 2, Title: "Signup page", URL: "https://tracker/2"},
	}))
	items, err := svc.GetWorkItems(ctx, []int{2, 1, 2})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 2, items[0].ID)
	assert.Equal(t, "https://tracker/2", items[0].URL)
	assert.Equal(t, "https://dev.example.com/fabrikam/_workitems/edit/1", items[1].URL)

	_, err = svc.GetWorkItems(ctx, []int{0})
	assert.Error(t, err)
}

func TestHTTPSource(t *testing.T) {
	var gotIDs, gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIDs = r.URL.Query().Get("ids")
		gotAuth = r.Header.Get("Authorization")
		if gotIDs == "404" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"value": []domain.WorkItem{{ID: 7, Title: "Seven"}, {ID: 9, Title: "Nine"}},
		})
	}))
	defer ts.Close()

	src := workitems.HTTPSource{BaseURL: ts.URL + "/", Token: "secret"}
	items, err := src.GetWorkItems(context.Background(), []int{7, 9})
	require.NoError(t, err)
	assert.Equal(t, "7,9", gotIDs)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Len(t, items, 2)

	_, err = src.GetWorkItems(context.Background(), []int{404})
	assert.ErrorIs(t, err, workitems.ErrNotFound)
}

func TestOpenWorkItem(t *testing.T) {
	var opened string
	svc := workitems.Service{
		BaseURL: "https://dev.example.com/fabrikam",
		Navigator: workitems.NavigatorFunc(func(_ context.Context, url string) error {
			opened = url
			return nil
		}),
	}
	require.NoError(t, svc.OpenWorkItem(context.Background(), 42))
	assert.Equal(t, "https://dev.example.com/fabrikam/_workitems/edit/42", opened)

	assert.Error(t, workitems.Service{}.OpenWorkItem(context.Background(), 42))
}
