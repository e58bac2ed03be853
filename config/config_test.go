package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lexcodex/mapop/search"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadFillsDefaultsForOmittedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timeout_ms: 5000\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 5000, cfg.TimeoutMs)
	require.Equal(t, NegotiationCooperative, cfg.NegotiationMode)
	require.Equal(t, SearchAStar, cfg.SearchMode)
}

func TestLoadRejectsUnknownNegotiationMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("negotiation_mode: auction\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestSolutionModeTranslation(t *testing.T) {
	cooperative := Default()
	require.Equal(t, search.Cooperative, cooperative.SolutionMode())

	borda := Default()
	borda.NegotiationMode = NegotiationBorda
	borda.MetricAcceptance = true
	require.Equal(t, search.Borda, borda.SolutionMode())

	metricOnly := Default()
	metricOnly.MetricAcceptance = true
	require.Equal(t, search.PrivateGoals, metricOnly.SolutionMode())
}

func TestSaveRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	cfg := Default()
	cfg.MaxIterations = 42

	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 42, loaded.MaxIterations)
}
