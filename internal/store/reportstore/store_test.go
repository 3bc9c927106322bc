package reportstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "autopilot.db"))
	assert.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndFindReport(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	report := &CycleReportModel{
		ID:         "cycle-1",
		StartedAt:  time.Now().Add(-time.Minute),
		FinishedAt: time.Now(),
		Status:     "completed",
		Detail:     datatypes.JSON(`{"orders":1}`),
	}
	assert.NoError(t, s.SaveReport(ctx, report))

	found, err := s.FindReport(ctx, "cycle-1")
	assert.NoError(t, err)
	if assert.NotNil(t, found) {
		assert.Equal(t, "completed", found.Status)
		assert.JSONEq(t, `{"orders":1}`, string(found.Detail))
	}

	missing, err := s.FindReport(ctx, "nope")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestListReportsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	base := time.Now()
	for i, id := range []string{"a", "b", "c"} {
		assert.NoError(t, s.SaveReport(ctx, &CycleReportModel{
			ID:        id,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
			Status:    "completed",
		}))
	}

	reports, err := s.ListReports(ctx, 2)
	assert.NoError(t, err)
	if assert.Len(t, reports, 2) {
		assert.Equal(t, "c", reports[0].ID)
		assert.Equal(t, "b", reports[1].ID)
	}
}

func TestStateRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	state, err := s.LoadState(ctx)
	assert.NoError(t, err)
	assert.Nil(t, state)

	assert.NoError(t, s.SaveState(ctx, &EngineStateModel{
		Running:         true,
		IntervalSeconds: 300,
		Watchlist:       datatypes.JSON(`["AAPL","MSFT"]`),
	}))
	assert.NoError(t, s.SaveState(ctx, &EngineStateModel{
		Running:         false,
		IntervalSeconds: 600,
		Watchlist:       datatypes.JSON(`["AAPL"]`),
	}))

	state, err = s.LoadState(ctx)
	assert.NoError(t, err)
	if assert.NotNil(t, state) {
		assert.False(t, state.Running)
		assert.Equal(t, 600, state.IntervalSeconds)
		assert.JSONEq(t, `["AAPL"]`, string(state.Watchlist))
	}
}
