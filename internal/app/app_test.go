package app_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/bracketflow/internal/app"
	"github.com/vk/bracketflow/internal/backend"
	"github.com/vk/bracketflow/internal/flowerr"
	"github.com/vk/bracketflow/internal/memorybackend"
	"github.com/vk/bracketflow/internal/model"
	"github.com/vk/bracketflow/internal/node"
	"github.com/vk/bracketflow/internal/testutil"
)

const manualConfig = `
league_id = "league-1"
canvas    = "manual"
`

const seed = `{
  "nodes": [
    {"id": "c1", "type": "category", "position": {"x": 0, "y": 0},
     "category": {"category_id": "c1", "category_name": "Open"}}
  ],
  "edges": []
}`

const bracketLayout = `
node "elim" {
  kind     = "round"
  category = "c1"
  order    = "elimination"
  position = { x = 0, y = 100 }
}
connect {
  source        = "c1"
  source_handle = "category-out"
  target        = "elim"
  target_handle = "round-in"
}

node "a" {
  kind     = "group"
  category = "c1"
}
connect {
  source        = "elim"
  source_handle = "round-out"
  target        = "a"
  target_handle = "group-in"
}

node "m1" {
  kind     = "match"
  category = "c1"
}
node "m2" {
  kind     = "match"
  category = "c1"
}
connect {
  source        = "a"
  source_handle = "group-out"
  target        = "m1"
  target_handle = "match-in"
}
connect {
  source        = "a"
  source_handle = "group-out"
  target        = "m2"
  target_handle = "match-in"
}
connect {
  source        = "m1"
  source_handle = "winner"
  target        = "m2"
  target_handle = "match-in"
}

move "m1" {
  position = { x = 40, y = 80 }
}
`

func memBackend(t *testing.T, res *harnessResult) *memorybackend.Backend {
	t.Helper()
	require.NotNil(t, res.App)
	mem, ok := res.App.Backend().(*memorybackend.Backend)
	require.True(t, ok, "offline runs use the in-memory backend")
	return mem
}

func TestRun_OfflineManualLayout(t *testing.T) {
	t.Parallel()

	// Arrange
	files := map[string]string{
		"editor.hcl":         manualConfig,
		"seed.json":          seed,
		"layout/bracket.hcl": bracketLayout,
	}
	cfg := app.Config{ConfigPath: "editor.hcl", LayoutPath: "layout", SeedPath: "seed.json", Offline: true}

	// Act
	res := runApp(t, files, cfg)

	// Assert
	require.NoError(t, res.Err, res.LogOutput)
	mem := memBackend(t, res)
	assert.Len(t, mem.CallsOf(backend.OpCreateRound), 1)
	assert.Len(t, mem.CallsOf(backend.OpCreateGroup), 1)
	assert.Len(t, mem.CallsOf(backend.OpCreateEmptyMatch), 2)
	assert.Len(t, mem.StoredEdges(), 5)

	moves := mem.CallsOf(backend.OpUpdateNodePosition)
	require.Len(t, moves, 1)
	moved, ok := mem.Entity(moves[0].ID)
	require.True(t, ok)
	assert.Equal(t, model.Position{X: 40, Y: 80}, moved.Position)
	assert.Equal(t, "Elimination - Group A - Match 1", moved.AsMatch().DisplayName)
	assert.Contains(t, res.LogOutput, "Layout replayed.")
}

func TestRun_AutomaticSave(t *testing.T) {
	t.Parallel()

	// Arrange
	files := map[string]string{
		"editor.hcl": `
			league_id = "league-1"
			canvas    = "automatic"
		`,
		"seed.json": seed,
		"layout.hcl": `
			node "final" {
			  kind     = "round"
			  category = "c1"
			  order    = "final"
			}
			connect {
			  source        = "c1"
			  source_handle = "category-out"
			  target        = "final"
			  target_handle = "round-in"
			}
			move "final" {
			  position = { x = 300, y = 0 }
			}
		`,
	}
	cfg := app.Config{ConfigPath: "editor.hcl", LayoutPath: "layout.hcl", SeedPath: "seed.json", Offline: true, Save: true}

	// Act
	res := runApp(t, files, cfg)

	// Assert
	require.NoError(t, res.Err, res.LogOutput)
	mem := memBackend(t, res)
	rounds := mem.CallsOf(backend.OpCreateRound)
	require.Len(t, rounds, 1)
	assert.Equal(t, []memorybackend.Call{{Op: backend.OpUpdateNodePosition, ID: rounds[0].ID}}, mem.CallsOf(backend.OpUpdateNodePosition))
	stored, ok := mem.Entity(rounds[0].ID)
	require.True(t, ok)
	assert.Equal(t, model.Position{X: 300, Y: 0}, stored.Position)
	assert.Contains(t, res.LogOutput, "unsaved_changes=0")
}

func TestRun_ReplayFailureNamesTheStep(t *testing.T) {
	t.Parallel()

	// Arrange
	mem := memorybackend.New("league-1")
	mem.Seed([]*node.Node{testutil.CategoryNode("c1", "Open")}, nil)
	files := map[string]string{
		"editor.hcl": manualConfig,
		"layout.hcl": `
			node "elim" {
			  kind     = "round"
			  category = "c1"
			  order    = "elimination"
			}
			connect {
			  source        = "missing"
			  source_handle = "category-out"
			  target        = "elim"
			  target_handle = "round-in"
			}
		`,
	}
	cfg := app.Config{ConfigPath: "editor.hcl", LayoutPath: "layout.hcl"}

	// Act
	res := runApp(t, files, cfg, app.WithBackend(mem))

	// Assert
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "step 2 (connect at ")
	assert.True(t, flowerr.IsKind(res.Err, flowerr.ValidationRejection), "got %v", res.Err)
	assert.Empty(t, mem.CallsOf(backend.OpCreateRound))
}

func TestRun_SecondaryFailureContinues(t *testing.T) {
	t.Parallel()

	// Arrange
	mem := memorybackend.New("league-1")
	mem.Seed([]*node.Node{testutil.CategoryNode("c1", "Open")}, nil)
	mem.Fail(backend.OpUpdateNodePosition, errors.New("boom"))
	files := map[string]string{
		"editor.hcl": manualConfig,
		"layout.hcl": `
			node "elim" {
			  kind     = "round"
			  category = "c1"
			  order    = "elimination"
			}
			connect {
			  source        = "c1"
			  source_handle = "category-out"
			  target        = "elim"
			  target_handle = "round-in"
			}
			move "elim" {
			  position = { x = 1, y = 2 }
			}
			node "a" {
			  kind     = "group"
			  category = "c1"
			}
		`,
	}
	cfg := app.Config{ConfigPath: "editor.hcl", LayoutPath: "layout.hcl"}

	// Act
	res := runApp(t, files, cfg, app.WithBackend(mem))

	// Assert
	require.NoError(t, res.Err)
	assert.Contains(t, res.LogOutput, "Layout step partially applied.")
	assert.Len(t, mem.CallsOf(backend.OpCreateRound), 1)
}

func TestNewApp_StartupErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		files   map[string]string
		cfg     app.Config
		wantErr string
	}{
		{
			name:    "invalid config",
			files:   map[string]string{"editor.hcl": `league_id = "l"` + "\n" + `canvas = "sideways"`},
			cfg:     app.Config{ConfigPath: "editor.hcl", Offline: true},
			wantErr: "failed to load configuration",
		},
		{
			name:    "online without backend block",
			files:   map[string]string{"editor.hcl": manualConfig},
			cfg:     app.Config{ConfigPath: "editor.hcl"},
			wantErr: "a backend block is required",
		},
		{
			name:    "broken seed",
			files:   map[string]string{"editor.hcl": manualConfig, "seed.json": "{"},
			cfg:     app.Config{ConfigPath: "editor.hcl", SeedPath: "seed.json", Offline: true},
			wantErr: "failed to decode seed",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			res := runApp(t, tc.files, tc.cfg)

			require.Error(t, res.Err)
			assert.Contains(t, res.Err.Error(), "application startup panicked")
			assert.Contains(t, res.Err.Error(), tc.wantErr)
		})
	}
}

func TestNewConfig(t *testing.T) {
	t.Parallel()

	_, err := app.NewConfig(app.Config{})
	assert.ErrorContains(t, err, "ConfigPath")

	_, err = app.NewConfig(app.Config{ConfigPath: "x.hcl", SeedPath: "seed.json"})
	assert.ErrorContains(t, err, "-offline")

	cfg, err := app.NewConfig(app.Config{ConfigPath: "x.hcl", SeedPath: "seed.json", Offline: true})
	require.NoError(t, err)
	assert.Equal(t, "seed.json", cfg.SeedPath)
}

func TestHandler(t *testing.T) {
	t.Parallel()

	// Arrange: run a layout so gesture metrics exist.
	files := map[string]string{
		"editor.hcl": manualConfig,
		"seed.json":  seed,
		"layout.hcl": `
			node "elim" {
			  kind     = "round"
			  category = "c1"
			  order    = "elimination"
			}
		`,
	}
	res := runApp(t, files, app.Config{ConfigPath: "editor.hcl", LayoutPath: "layout.hcl", SeedPath: "seed.json", Offline: true})
	require.NoError(t, res.Err)
	h := res.App.Handler()

	testCases := []struct {
		path     string
		contains string
	}{
		{path: "/health", contains: "OK"},
		{path: "/metrics", contains: "bracketflow_editor_gestures_total"},
	}
	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			// Act
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))

			// Assert
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.contains)
		})
	}
}
