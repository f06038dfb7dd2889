package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFilesMissing(t *testing.T) {
	cfg, dcfg, err := Load(t.TempDir(), "config.json", "dataconfig.json")
	require.NoError(t, err)

	assert.Equal(t, "outputs", cfg.OutputDir)
	assert.Equal(t, Duration(2*time.Second), cfg.Schedule.Debounce)
	assert.Equal(t, 7, dcfg.Period)
	assert.Equal(t, 10, dcfg.TopN)
	assert.Equal(t, Median, dcfg.Imputation["air_time"])
	assert.Equal(t, Mean, dcfg.Imputation["taxi_out"])
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{
		"data_path": "data/flights.csv",
		"log": {"level": "debug"},
		"schedule": {"spec": "@every 1h", "debounce": "5s"}
	}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dataconfig.json"), []byte(`{
		"imputation": {"taxi_in": "median"},
		"top_n": 5,
		"thresholds": {"trend_epsilon": 0.5}
	}`), 0644))

	cfg, dcfg, err := Load(dir, "config.json", "dataconfig.json")
	require.NoError(t, err)

	assert.Equal(t, "data/flights.csv", cfg.DataPath)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "app.log", cfg.Log.Name)
	assert.Equal(t, Duration(5*time.Second), cfg.Schedule.Debounce)

	assert.Equal(t, map[string]Strategy{"taxi_in": Median}, dcfg.Imputation)
	assert.Equal(t, 5, dcfg.TopN)
	assert.Equal(t, 0.5, dcfg.Thresholds.TrendEpsilon)
	assert.Equal(t, 0.8, dcfg.Thresholds.StrongSeasonal)
}

func TestLoadRejectsBadStrategy(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dataconfig.json"),
		[]byte(`{"imputation": {"taxi_in": "mode"}}`), 0644))

	_, _, err := Load(dir, "config.json", "dataconfig.json")
	assert.Error(t, err)
}

func TestSetImputation(t *testing.T) {
	dcfg := DefaultDataConfig()
	require.NoError(t, dcfg.SetImputation("air_time", Mean))
	require.NoError(t, dcfg.SetImputation("distance", Median))
	assert.Error(t, dcfg.SetImputation("taxi_in", "mode"))

	got := dcfg.Imputations()
	assert.Equal(t, Mean, got["air_time"])
	assert.Equal(t, Median, got["distance"])
	assert.Equal(t, Mean, got["taxi_in"])

	// 返回的是副本
	got["air_time"] = Median
	assert.Equal(t, Mean, dcfg.Imputations()["air_time"])

	empty := &DataConfig{}
	require.NoError(t, empty.SetImputation("taxi_out", Median))
	assert.Equal(t, map[string]Strategy{"taxi_out": Median}, empty.Imputations())
}

func TestLoadRejectsNonWeeklyPeriod(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dataconfig.json"),
		[]byte(`{"period": 30}`), 0644))

	_, _, err := Load(dir, "config.json", "dataconfig.json")
	assert.Error(t, err)
}

func TestLoadBothFilesBroken(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dataconfig.json"), []byte(`[`), 0644))

	_, _, err := Load(dir, "config.json", "dataconfig.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Config")
	assert.Contains(t, err.Error(), "DataConfig")
}

func TestDurationJSON(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalJSON([]byte(`"1m30s"`)))
	assert.Equal(t, Duration(90*time.Second), d)

	out, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"1m30s"`, string(out))
}
