package database

import (
	"time"

	"github.com/posix4e/btc-mnav-rainbow/model"
)

// DataRepository 原始输入与计算结果的存储。
// Import* 以规范化 CSV 为输入, 原始表每次整体替换; 模型表追加, 按 run_id 保留历史。
type DataRepository interface {
	Connect() error
	Close() error

	InitSchema() error

	ImportBtcPrices(csvPath string) error
	ImportCapital(csvPath string) error
	ImportFilings(csvPath string) error
	ImportInstruments(csvPath string) error
	ImportMnav(csvPath string) error
	ImportModels(csvPath string) error

	GetLatestDate(tableName string, dateCol string) (time.Time, error)
	CountRows(tableName string) (int64, error)
	Query(table string, conditions map[string]interface{}, dest interface{}) error

	QueryBtcPrices(weekly bool) ([]model.PricePoint, error)
	QueryCapital() ([]model.CapitalStructureRecord, error)
	QueryFilings() ([]model.FilingRecord, error)
	QueryInstruments() ([]model.InstrumentNotional, error)
	QueryMnav() ([]model.MnavRecord, error)
	QueryLatestModels() ([]model.FittedModel, error)

	// CopyToCSV 把整张表按 order 排序写成带表头的 CSV
	CopyToCSV(table string, order string, csvPath string) error
}
