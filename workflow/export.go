package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/phuslu/log"
	"github.com/posix4e/btc-mnav-rainbow/calc"
	"github.com/posix4e/btc-mnav-rainbow/config"
	"github.com/posix4e/btc-mnav-rainbow/database"
	"github.com/posix4e/btc-mnav-rainbow/model"
	"github.com/posix4e/btc-mnav-rainbow/utils"
)

const (
	FileChartData = "data.json"
	FileMnav      = "mnav.parquet"
	FileBands     = "bands.parquet"
)

// Artifacts 一次导出写出的文件与图表数据
type Artifacts struct {
	DataJSON     string
	MnavParquet  string
	BandsParquet string
	Chart        model.ChartData
}

// Export 组装图表数据并写入输出目录。
// models 中缺少某条序列时, 该序列不画档位。
func Export(
	db database.DataRepository,
	cfg *config.Config,
	runID string,
	now time.Time,
	models []model.FittedModel,
) (*Artifacts, error) {
	if err := utils.EnsureOutputDir(cfg.Output.Dir); err != nil {
		return nil, err
	}

	weekly := cfg.Weekly()
	btc, err := db.QueryBtcPrices(weekly)
	if err != nil {
		return nil, err
	}
	mnav, err := db.QueryMnav()
	if err != nil {
		return nil, err
	}
	notional, err := db.QueryInstruments()
	if err != nil {
		return nil, err
	}

	var btcModel, mnavModel *model.RainbowModel
	for _, m := range models {
		switch m.Series {
		case calc.SeriesBTC:
			btcModel = m.Model()
		case calc.SeriesMNAV:
			mnavModel = m.Model()
		}
	}
	if btcModel == nil {
		log.Warn().Msg("🟡 没有 BTC 模型, 图表不含 BTC 档位")
	}

	chart := calc.BuildChart(btc, mnav, btcModel, mnavModel, calc.ChartOptions{
		RunID:        runID,
		GeneratedAt:  now,
		ExtendMonths: cfg.Chart.ExtendMonths,
		Variant:      cfg.Chart.Variant,
		Weekly:       weekly,
	})

	capital := make([]model.CapitalStructureRecord, len(mnav))
	for i, r := range mnav {
		capital[i] = r.Capital()
	}
	sel := cfg.Selection()
	chart.CustomSelection = sel
	chart.Custom = calc.CustomSeries(capital, sel, calc.NewNotionalBook(notional))

	art := &Artifacts{
		DataJSON:     filepath.Join(cfg.Output.Dir, FileChartData),
		MnavParquet:  filepath.Join(cfg.Output.Dir, FileMnav),
		BandsParquet: filepath.Join(cfg.Output.Dir, FileBands),
		Chart:        chart,
	}

	if err := writeChartJSON(art.DataJSON, chart); err != nil {
		return nil, err
	}

	mnavRows := make([]model.MnavRow, len(mnav))
	for i, r := range mnav {
		mnavRows[i] = r.Row()
	}
	if err := utils.WriteParquet(art.MnavParquet, mnavRows); err != nil {
		return nil, err
	}

	btcRows, err := calc.BandRows(calc.SeriesBTC, chart.Axis, chart.BtcBands)
	if err != nil {
		return nil, err
	}
	mnavBandRows, err := calc.BandRows(calc.SeriesMNAV, chart.Axis, chart.MnavBands)
	if err != nil {
		return nil, err
	}
	if err := utils.WriteParquet(art.BandsParquet, append(btcRows, mnavBandRows...)); err != nil {
		return nil, err
	}

	log.Info().Str("dir", cfg.Output.Dir).Int("days", len(chart.Axis)).
		Int("bands", len(chart.BtcBands)+len(chart.MnavBands)).Msg("🚀 图表数据导出成功")
	return art, nil
}

func writeChartJSON(path string, chart model.ChartData) error {
	data, err := json.MarshalIndent(chart, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal chart data: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
