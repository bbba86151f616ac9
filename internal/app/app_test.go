// Package app_test contains unit tests for the app package.
package app_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/JakeFAU/grossing-films-crawler/internal/app"
	"github.com/JakeFAU/grossing-films-crawler/internal/config"
	"github.com/JakeFAU/grossing-films-crawler/internal/films"
	"github.com/JakeFAU/grossing-films-crawler/internal/id/uuid"
	pubmemory "github.com/JakeFAU/grossing-films-crawler/internal/publisher/memory"
	"github.com/JakeFAU/grossing-films-crawler/internal/storage/postgres"
)

// MockTableSink mocks the pipeline.TableSink interface.
type MockTableSink struct {
	mock.Mock
}

// Replace satisfies pipeline.TableSink.
func (m *MockTableSink) Replace(ctx context.Context, records []films.Film) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

// List satisfies pipeline.TableSink.
func (m *MockTableSink) List(ctx context.Context) ([]postgres.StoredFilm, error) {
	args := m.Called(ctx)
	rows, _ := args.Get(0).([]postgres.StoredFilm)
	return rows, args.Error(1)
}

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/wiki/List", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<table class="wikitable">
<tr><th>Rank</th><th>Peak</th><th>Title</th><th>Gross</th><th>Year</th></tr>
<tr><td>1</td><td>1</td><th><a href="/wiki/Ne_Zha_2">Ne Zha 2</a></th><td>$2,200,000,000</td><td>2025</td></tr>
</table>`))
	})
	mux.HandleFunc("/wiki/Ne_Zha_2", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<table class="infobox"><tr><th>Directed by</th><td>Yu Yang</td></tr></table>`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func baseConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Output.Dir = filepath.Join(t.TempDir(), "data")
	return cfg
}

func TestAppRunWritesJSONAndTable(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	cfg := baseConfig(t)
	cfg.Source.ListingURL = srv.URL + "/wiki/List"
	cfg.Source.Origin = srv.URL

	table := &MockTableSink{}
	table.On("Replace", mock.Anything, mock.MatchedBy(func(records []films.Film) bool {
		return len(records) == 1 && records[0].Country == "China" && records[0].Director == "Jiaozi"
	})).Return(nil).Once()
	table.On("List", mock.Anything).Return([]postgres.StoredFilm{{ID: 1, Title: "Ne Zha 2"}}, nil).Once()
	notifier := pubmemory.New()

	a, err := app.New(context.Background(), cfg, zaptest.NewLogger(t),
		app.WithTableSink(table),
		app.WithNotifier(notifier),
		app.WithIDGenerator(uuid.Static("run-app")),
	)
	require.NoError(t, err)
	defer a.Close()

	summary, err := a.Run(context.Background())
	require.NoError(t, err)
	table.AssertExpectations(t)

	assert.Equal(t, "run-app", summary.RunID)
	assert.Equal(t, 1, summary.OverridesApplied)
	require.Len(t, summary.Failures, 1, "country is missing from the detail page")
	assert.Equal(t, films.FieldCountry, summary.Failures[0].Field)
	assert.Len(t, notifier.Messages(), 1)

	data, err := os.ReadFile(filepath.Join(cfg.Output.Dir, "films.json"))
	require.NoError(t, err)
	var got []map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "2025", got[0]["year"])
	assert.Equal(t, "China", got[0]["country"])
	assert.Equal(t, "Jiaozi", got[0]["director"])
	assert.EqualValues(t, 2200000000, got[0]["revenue"])
}

func TestNewFailsFast(t *testing.T) {
	t.Parallel()

	t.Run("bad dsn", func(t *testing.T) {
		t.Parallel()
		cfg := baseConfig(t)
		cfg.DB.DSN = "not a dsn ://"
		_, err := app.New(context.Background(), cfg, nil)
		require.ErrorContains(t, err, "init films table")
	})

	t.Run("output path is a file", func(t *testing.T) {
		t.Parallel()
		cfg := baseConfig(t)
		file := filepath.Join(t.TempDir(), "occupied")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
		cfg.Output.Dir = file
		_, err := app.New(context.Background(), cfg, nil, app.WithTableSink(&MockTableSink{}))
		require.ErrorContains(t, err, "init output dir")
	})
}
