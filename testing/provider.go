// Package e2etesting starts the full application on a loopback port for
// end to end tests and tracks which endpoints those tests reached.
package e2etesting

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/chatauth/app"
	"github.com/tech-arch1tect/chatauth/config"
	"github.com/tech-arch1tect/chatauth/testutils"
)

type E2EApp struct {
	App             *app.App
	Config          *config.Config
	BaseURL         string
	CoverageTracker *CoverageTracker
}

type TestConfig struct {
	// OverrideConfig adjusts the default test config before the app is built.
	OverrideConfig func(*config.Config)
	// ExcludePrefixes are route path prefixes left out of coverage.
	ExcludePrefixes []string
}

// Start builds and starts the application and stops it when the test ends.
func Start(t *testing.T, testConfig *TestConfig) *E2EApp {
	t.Helper()

	if testConfig == nil {
		testConfig = &TestConfig{}
	}

	cfg := testutils.GetTestConfig()
	if testConfig.OverrideConfig != nil {
		testConfig.OverrideConfig(cfg)
	}

	built, err := app.NewApp().WithConfig(cfg).Build()
	require.NoError(t, err, "failed to build test app")

	tracker := NewCoverageTracker(testConfig.ExcludePrefixes...)
	tracker.RegisterRoutes(built.Echo())
	built.Echo().Use(tracker.TrackingMiddleware())

	require.NoError(t, built.Start(context.Background()), "failed to start test app")
	t.Cleanup(func() {
		if err := built.Stop(); err != nil {
			t.Logf("failed to stop test app: %v", err)
		}
		if t.Failed() {
			var report strings.Builder
			tracker.PrintReportTo(&report)
			t.Log(report.String())
		}
	})

	return &E2EApp{
		App:             built,
		Config:          cfg,
		BaseURL:         built.BaseURL(),
		CoverageTracker: tracker,
	}
}

// AssertMinimumCoverage fails the test when fewer than minPercent of the
// registered endpoints were hit.
func (e *E2EApp) AssertMinimumCoverage(t *testing.T, minPercent float64) {
	t.Helper()

	stats := e.CoverageTracker.Stats()
	if stats.Coverage < minPercent {
		var report strings.Builder
		e.CoverageTracker.PrintReportTo(&report)
		t.Fatalf("endpoint coverage %.1f%% is below %.1f%%\n%s", stats.Coverage, minPercent, report.String())
	}
}
