package app_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/bracketflow/internal/app"
	"github.com/vk/bracketflow/internal/testutil"
)

// harnessResult holds the outcomes of an application run.
type harnessResult struct {
	LogOutput string
	Err       error
	App       *app.App
}

// runApp writes files into a temporary directory, builds an App from cfg
// with its paths taken relative to that directory, and runs it to
// completion. A startup panic is returned as Err.
func runApp(t *testing.T, files map[string]string, cfg app.Config, opts ...app.Option) *harnessResult {
	t.Helper()

	tmpDir := t.TempDir()
	for name, content := range files {
		filePath := filepath.Join(tmpDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0o755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0o644))
	}

	for _, p := range []*string{&cfg.ConfigPath, &cfg.LayoutPath, &cfg.SeedPath} {
		if *p != "" {
			*p = filepath.Join(tmpDir, *p)
		}
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}

	logBuffer := &testutil.SafeBuffer{}

	var testApp *app.App
	var panicErr any
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicErr = r
			}
		}()
		testApp = app.NewApp(logBuffer, &cfg, opts...)
	}()
	if panicErr != nil {
		return &harnessResult{
			LogOutput: logBuffer.String(),
			Err:       fmt.Errorf("application startup panicked | %v", panicErr),
		}
	}

	runErr := testApp.Run(context.Background())

	if os.Getenv("BRACKETFLOW_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
	}

	return &harnessResult{
		LogOutput: logBuffer.String(),
		Err:       runErr,
		App:       testApp,
	}
}
