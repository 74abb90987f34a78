package app

import (
	"os"
	"testing"

	"github.com/vk/eventflowgo/internal/registry"
	"github.com/vk/eventflowgo/internal/testutil"
)

// SetupAppTest creates a new app instance for system testing. Logs go to
// the returned buffer at debug level; set EFGO_TEST_LOGS=true to dump
// them on test completion.
func SetupAppTest(t *testing.T, cfg *Config, modules ...registry.Module) (*App, *testutil.SafeBuffer) {
	t.Helper()

	logBuffer := &testutil.SafeBuffer{}
	cfg.LogLevel = "debug"
	testApp := NewApp(logBuffer, cfg, modules...)

	t.Cleanup(func() {
		if os.Getenv("EFGO_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	return testApp, logBuffer
}
