package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/phuslu/log"
	"github.com/posix4e/btc-mnav-rainbow/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rainbow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, model.DefaultModelParams(), cfg.Model)
	assert.Equal(t, "rainbow.duckdb", cfg.Database.Path)
	assert.Equal(t, "output", cfg.Output.Dir)
	assert.Equal(t, model.VariantNaive, cfg.Chart.Variant)
	assert.Equal(t, "daily", cfg.Chart.Resample)
	assert.False(t, cfg.Weekly())
	assert.Equal(t, DefaultExtendMonths, cfg.Chart.ExtendMonths)
	assert.Equal(t, "0 0 6 * * *", cfg.Schedule.Cron)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, log.InfoLevel, cfg.LogLevel())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
database:
  path: /data/a.duckdb
inputs:
  btc_csv: btc.csv
model:
  num_bands: 12
  i_decrease: 0
chart:
  extend_months: 6
  variant: advanced
custom:
  include_debt: true
  instruments: [strk, STRF]
`)
	t.Setenv("RAINBOW_DB_PATH", "/env/b.duckdb")
	t.Setenv("RAINBOW_LOG_LEVEL", "DEBUG")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/env/b.duckdb", cfg.Database.Path)
	assert.Equal(t, "btc.csv", cfg.Inputs.BtcCSV)
	assert.Equal(t, 12, cfg.Model.NumBands)
	assert.Equal(t, 0.3, cfg.Model.BandWidth)
	assert.Equal(t, 0.0, cfg.Model.IDecrease)
	assert.Equal(t, 6, cfg.Chart.ExtendMonths)
	assert.Equal(t, model.VariantAdvanced, cfg.Chart.Variant)
	assert.Equal(t, log.DebugLevel, cfg.LogLevel())

	sel := cfg.Selection()
	assert.True(t, sel.IncludeDebt)
	assert.Equal(t, []model.InstrumentKind{model.InstrumentSTRK, model.InstrumentSTRF}, sel.Instruments)
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "model: [unterminated"))
	assert.Error(t, err)
}

func TestLoad_BadWorkersEnv(t *testing.T) {
	t.Setenv("RAINBOW_WORKERS", "many")
	_, err := Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"zero band width", func(c *Config) { c.Model.BandWidth = 0 }, "BandWidth"},
		{"no bands", func(c *Config) { c.Model.NumBands = 0 }, "NumBands"},
		{"negative extension", func(c *Config) { c.Chart.ExtendMonths = -1 }, "ExtendMonths"},
		{"unknown variant", func(c *Config) { c.Chart.Variant = "fancy" }, "Variant"},
		{"unknown resample", func(c *Config) { c.Chart.Resample = "hourly" }, "Resample"},
		{"unknown level", func(c *Config) { c.Log.Level = "loud" }, "Level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.Validate()
			require.Error(t, err)

			var verrs validator.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.Equal(t, tt.field, verrs[0].Field())
		})
	}
}

func TestLoad_ExplicitZeroExtension(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
chart:
  extend_months: 0
  resample: weekly
`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 0, cfg.Chart.ExtendMonths)
	assert.True(t, cfg.Weekly())
}

func TestValidate_CustomInstruments(t *testing.T) {
	tests := []struct {
		name  string
		names []string
		ok    bool
		want  []model.InstrumentKind
	}{
		{"known", []string{"strk"}, true, []model.InstrumentKind{model.InstrumentSTRK}},
		{"new series from notional input", []string{" strx "}, true, []model.InstrumentKind{"STRX"}},
		{"blank", []string{"  "}, false, nil},
		{"empty", []string{""}, false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
			require.NoError(t, err)
			cfg.Custom.Instruments = tt.names

			err = cfg.Validate()
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Selection().Instruments)
		})
	}
}
