package workflow

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/phuslu/log"
	"github.com/posix4e/btc-mnav-rainbow/calc"
	"github.com/posix4e/btc-mnav-rainbow/database"
	"github.com/posix4e/btc-mnav-rainbow/model"
	"github.com/posix4e/btc-mnav-rainbow/source"
	"github.com/posix4e/btc-mnav-rainbow/utils"
)

const (
	NameImportBtc         = "import_btc"
	NameImportCapital     = "import_capital"
	NameImportFilings     = "import_filings"
	NameImportInstruments = "import_instruments"
	NameComputeMnav       = "compute_mnav"
	NameFitModels         = "fit_models"
	NameExport            = "export"
)

var (
	TaskImportBtc         *Task
	TaskImportCapital     *Task
	TaskImportFilings     *Task
	TaskImportInstruments *Task
	TaskComputeMnav       *Task
	TaskFitModels         *Task
	TaskExport            *Task
)

func init() {
	TaskImportBtc = &Task{
		Name: NameImportBtc,
		SkipIf: func(ctx context.Context, db database.DataRepository, args *TaskArgs) bool {
			return args.Config.Inputs.BtcCSV == ""
		},
		Executor: executeImportBtc,
	}

	TaskImportCapital = &Task{
		Name: NameImportCapital,
		SkipIf: func(ctx context.Context, db database.DataRepository, args *TaskArgs) bool {
			return args.Config.Inputs.CapitalCSV == ""
		},
		Executor: executeImportCapital,
	}

	TaskImportFilings = &Task{
		Name: NameImportFilings,
		SkipIf: func(ctx context.Context, db database.DataRepository, args *TaskArgs) bool {
			return args.Config.Inputs.FilingsJSON == ""
		},
		Executor: executeImportFilings,
	}

	TaskImportInstruments = &Task{
		Name: NameImportInstruments,
		SkipIf: func(ctx context.Context, db database.DataRepository, args *TaskArgs) bool {
			return args.Config.Inputs.Instruments == ""
		},
		Executor: executeImportInstruments,
	}

	TaskComputeMnav = &Task{
		Name:      NameComputeMnav,
		DependsOn: []string{NameImportBtc, NameImportCapital, NameImportFilings, NameImportInstruments},
		Executor:  executeComputeMnav,
	}

	TaskFitModels = &Task{
		Name:      NameFitModels,
		DependsOn: []string{NameImportBtc, NameComputeMnav},
		Executor:  executeFitModels,
	}

	TaskExport = &Task{
		Name:      NameExport,
		DependsOn: []string{NameFitModels},
		Executor:  executeExport,
	}
}

// GetRegisteredTasks 返回所有可执行的任务
func GetRegisteredTasks() map[string]*Task {
	tasks := []*Task{
		TaskImportBtc,
		TaskImportCapital,
		TaskImportFilings,
		TaskImportInstruments,
		TaskComputeMnav,
		TaskFitModels,
		TaskExport,
	}
	m := make(map[string]*Task, len(tasks))
	for _, t := range tasks {
		m[t.Name] = t
	}
	return m
}

// GetRefreshTaskNames 一次完整刷新: 导入, 合成 MNAV, 拟合, 导出
func GetRefreshTaskNames() []string {
	return []string{
		NameImportBtc,
		NameImportCapital,
		NameImportFilings,
		NameImportInstruments,
		NameComputeMnav,
		NameFitModels,
		NameExport,
	}
}

// stageAndImport 先写成规范化 CSV, 再交给数据库导入
func stageAndImport[T any](args *TaskArgs, name string, rows []T, importFn func(string) error) error {
	path := filepath.Join(args.StagingDir, name)
	if err := utils.WriteCSV(path, rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := importFn(path); err != nil {
		return fmt.Errorf("failed to import %s: %w", name, err)
	}
	return nil
}

func executeImportBtc(ctx context.Context, db database.DataRepository, args *TaskArgs) (*TaskResult, error) {
	path := args.Config.Inputs.BtcCSV
	if err := utils.CheckInput("btc prices", path); err != nil {
		return nil, err
	}
	log.Info().Str("path", path).Msg("🐢 开始读取 BTC 价格")

	points, err := source.ReadBtcCSV(path)
	if err != nil {
		return nil, err
	}
	if err := stageAndImport(args, "btc_prices.csv", points, db.ImportBtcPrices); err != nil {
		return nil, err
	}

	log.Info().Int("rows", len(points)).Msg("📈 BTC 价格导入成功")
	return &TaskResult{State: StateCompleted, Rows: len(points), Message: "btc prices imported"}, nil
}

func executeImportCapital(ctx context.Context, db database.DataRepository, args *TaskArgs) (*TaskResult, error) {
	path := args.Config.Inputs.CapitalCSV
	if err := utils.CheckInput("capital structure", path); err != nil {
		return nil, err
	}
	log.Info().Str("path", path).Msg("🐢 开始读取资本结构")

	records, err := source.ReadCapitalCSV(path)
	if err != nil {
		return nil, err
	}
	if err := stageAndImport(args, "capital.csv", records, db.ImportCapital); err != nil {
		return nil, err
	}

	log.Info().Int("rows", len(records)).Msg("🏦 资本结构导入成功")
	return &TaskResult{State: StateCompleted, Rows: len(records), Message: "capital structure imported"}, nil
}

func executeImportFilings(ctx context.Context, db database.DataRepository, args *TaskArgs) (*TaskResult, error) {
	path := args.Config.Inputs.FilingsJSON
	if err := utils.CheckInput("share filings", path); err != nil {
		return nil, err
	}

	filings, err := source.ReadFilingsJSON(path)
	if err != nil {
		return nil, err
	}
	if err := stageAndImport(args, "filings.csv", filings, db.ImportFilings); err != nil {
		return nil, err
	}

	log.Info().Int("rows", len(filings)).Msg("📑 定期报告导入成功")
	return &TaskResult{State: StateCompleted, Rows: len(filings), Message: "filings imported"}, nil
}

func executeImportInstruments(ctx context.Context, db database.DataRepository, args *TaskArgs) (*TaskResult, error) {
	path := args.Config.Inputs.Instruments
	if err := utils.CheckInput("instrument notionals", path); err != nil {
		return nil, err
	}

	rows, err := source.ReadInstrumentsCSV(path)
	if err != nil {
		return nil, err
	}
	if err := stageAndImport(args, "instruments.csv", rows, db.ImportInstruments); err != nil {
		return nil, err
	}

	log.Info().Int("rows", len(rows)).Msg("🧾 优先股名义金额导入成功")
	return &TaskResult{State: StateCompleted, Rows: len(rows), Message: "instrument notionals imported"}, nil
}

func executeComputeMnav(ctx context.Context, db database.DataRepository, args *TaskArgs) (*TaskResult, error) {
	dense, err := db.QueryCapital()
	if err != nil {
		return nil, err
	}
	if len(dense) == 0 {
		log.Warn().Msg("🌲 没有资本结构数据, 跳过 MNAV 计算")
		return &TaskResult{State: StateSkipped, Message: "no capital structure data"}, nil
	}

	filings, err := db.QueryFilings()
	if err != nil {
		return nil, err
	}
	notional, err := db.QueryInstruments()
	if err != nil {
		return nil, err
	}
	btc, err := db.QueryBtcPrices(false)
	if err != nil {
		return nil, err
	}

	fillSpotPrice(dense, btc)

	aligned, err := calc.AlignCapital(dense, filings)
	if err != nil {
		return nil, fmt.Errorf("failed to align filings: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	records := calc.Composite(aligned, calc.NewNotionalBook(notional))
	if err := stageAndImport(args, "mnav.csv", records, db.ImportMnav); err != nil {
		return nil, err
	}

	log.Info().Int("rows", len(records)).Msg("🔢 MNAV 计算完成")
	return &TaskResult{State: StateCompleted, Rows: len(records), Message: "mnav computed"}, nil
}

// fillSpotPrice 资本结构缺少现货价时, 用同一日期的 BTC 价格补上
func fillSpotPrice(records []model.CapitalStructureRecord, btc []model.PricePoint) {
	dates := make([]time.Time, len(records))
	for i, r := range records {
		dates[i] = r.Date
	}
	spot := calc.AlignPrices(dates, btc)
	for i := range records {
		if !records[i].SpotPrice.Valid {
			records[i].SpotPrice = spot[i]
		}
	}
}

type fitJob struct {
	Series string
	Points []model.PricePoint
}

func executeFitModels(ctx context.Context, db database.DataRepository, args *TaskArgs) (*TaskResult, error) {
	cfg := args.Config

	weekly := cfg.Weekly()
	btc, err := db.QueryBtcPrices(weekly)
	if err != nil {
		return nil, err
	}
	mnav, err := db.QueryMnav()
	if err != nil {
		return nil, err
	}

	jobs := []fitJob{
		{Series: calc.SeriesBTC, Points: btc},
		{Series: calc.SeriesMNAV, Points: calc.AdjustedPriceSeries(calc.ResampleMnav(mnav, btc, weekly), cfg.Chart.Variant)},
	}

	var fitted []model.FittedModel
	pipeline := utils.NewPipeline[fitJob, model.FittedModel](utils.WithConcurrency(cfg.Workers))
	result, err := pipeline.Run(ctx, jobs,
		func(ctx context.Context, job fitJob) ([]model.FittedModel, error) {
			res := calc.FitDetailed(job.Points, cfg.Model)
			if res.Model == nil {
				log.Warn().Str("series", job.Series).Int("points", res.Points).
					Msg("🟡 有效数据点不足, 不拟合")
				return nil, nil
			}
			m := res.Model
			log.Debug().Str("series", job.Series).Float64("a", m.A).Float64("b", m.B).
				Float64("c", m.C).Float64("sse", res.SSE).Msg("model fitted")
			return []model.FittedModel{{
				RunID:     args.RunID,
				Series:    job.Series,
				FittedAt:  args.Now,
				Points:    int64(res.Points),
				SSE:       res.SSE,
				A:         m.A,
				B:         m.B,
				C:         m.C,
				BandWidth: m.BandWidth,
				NumBands:  int64(m.NumBands),
				IDecrease: m.IDecrease,
			}}, nil
		},
		func(rows []model.FittedModel) error {
			fitted = append(fitted, rows...)
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	if result.HasErrors() {
		return nil, fmt.Errorf("fit failed: %s", result.ErrorSummary())
	}

	if len(fitted) == 0 {
		return &TaskResult{State: StateSkipped, Message: "insufficient data"}, nil
	}
	if err := stageAndImport(args, "models.csv", fitted, db.ImportModels); err != nil {
		return nil, err
	}

	log.Info().Int("models", len(fitted)).Msg("🌈 彩虹模型拟合完成")
	return &TaskResult{State: StateCompleted, Rows: len(fitted), Message: "models fitted"}, nil
}

func executeExport(ctx context.Context, db database.DataRepository, args *TaskArgs) (*TaskResult, error) {
	// 只用本次刷新拟合的模型, 拟合失败的序列没有档位
	var models []model.FittedModel
	if err := db.Query(model.TableModels.TableName, map[string]interface{}{"run_id": args.RunID}, &models); err != nil {
		return nil, fmt.Errorf("failed to query models: %w", err)
	}

	artifacts, err := Export(db, args.Config, args.RunID, args.Now, models)
	if err != nil {
		return nil, err
	}
	return &TaskResult{State: StateCompleted, Rows: len(artifacts.Chart.Axis), Message: "chart data exported"}, nil
}
