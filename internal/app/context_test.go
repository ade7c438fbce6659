package app_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"okrhub/internal/app"
	"okrhub/internal/config"
	"okrhub/internal/domain"
	"okrhub/internal/middleware"
)

func openApp(t *testing.T, driver string) *app.App {
	t.Helper()
	cfg := config.Default("Fabrikam")
	cfg.Store.Driver = driver
	a, err := app.Open(context.Background(), cfg, app.Options{
		Workspace: t.TempDir(),
		Logger:    zaptest.NewLogger(t).Sugar(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestBootstrapThroughApp(t *testing.T) {
	for _, driver := range []string{config.StoreSQLite, config.StoreMemory} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			a := openApp(t, driver)

			tf, err := a.DisplayedTimeFrame(ctx)
			require.NoError(t, err)
			assert.Empty(t, tf)

			out := a.Execute(ctx, "alice", middleware.State{}, middleware.CreateFirstArea{Area: domain.Area{Name: "Engineering"}}, nil)
			require.IsType(t, middleware.CreateFirstAreaSuccess{}, out)

			tf, err = a.DisplayedTimeFrame(ctx)
			require.NoError(t, err)
			assert.Equal(t, out.(middleware.CreateFirstAreaSuccess).Payload.TimeFrameSet.CurrentTimeFrameID, tf)

			rec := &middleware.Recorder{}
			out = a.Execute(ctx, "alice", middleware.State{DisplayedTimeFrameID: tf}, middleware.GetObjectives{TimeFrameID: tf}, rec.Dispatch)
			assert.Equal(t, middleware.GetObjectivesSucceed{Payload: []domain.Objective{}}, out)
			assert.Len(t, rec.Actions(), 2)

			log, err := a.Events.Tail(ctx, 10, "")
			require.NoError(t, err)
			require.Len(t, log, 4)
			assert.Equal(t, "createFirstArea", log[0].Type)
			assert.Equal(t, "createFirstAreaSuccess", log[1].Type)
			assert.Equal(t, "alice", log[1].ActorID)
		})
	}
}

func TestResolveConfig(t *testing.T) {
	cfg, err := app.ResolveConfig(t.TempDir(), "Override")
	require.NoError(t, err)
	assert.Equal(t, "Override", cfg.Project.Name)
	assert.Equal(t, config.StoreSQLite, cfg.Store.Driver)
}
