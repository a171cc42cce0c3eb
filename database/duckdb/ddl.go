package duckdb

import (
	"fmt"
	"strings"

	"github.com/posix4e/btc-mnav-rainbow/model"
)

// mapType 将通用 DataType 转换为 DuckDB 的 SQL 类型
func (d *DuckDBDriver) mapType(dt model.DataType) string {
	switch dt {
	case model.TypeString:
		return "VARCHAR"
	case model.TypeFloat64:
		return "DOUBLE"
	case model.TypeInt64:
		return "BIGINT"
	case model.TypeDate:
		return "DATE"
	case model.TypeDateTime:
		return "TIMESTAMP"
	default:
		return "VARCHAR"
	}
}

func (d *DuckDBDriver) createTableInternal(meta *model.TableMeta) error {
	colDefs := make([]string, 0, len(meta.Columns))
	for _, col := range meta.Columns {
		colDefs = append(colDefs, fmt.Sprintf("%s %s", col.Name, d.mapType(col.Type)))
	}

	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		meta.TableName, strings.Join(colDefs, ", "))

	if _, err := d.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create table %s: %w", meta.TableName, err)
	}
	return nil
}

func (d *DuckDBDriver) registerViews() {

	// 1. BTC 周线: 每个自然周取最后一个交易日的价格
	d.viewImpls[model.ViewBtcWeekly] = func() error {
		query := fmt.Sprintf(`
			CREATE OR REPLACE VIEW %s AS
			SELECT
				max(date)              AS date,
				arg_max(price, date)   AS price
			FROM %s
			WHERE price > 0
			GROUP BY date_trunc('week', date)
		`, model.ViewBtcWeekly, model.TableBtcPrices.TableName)

		_, err := d.db.Exec(query)
		return err
	}

	// 2. 每条序列最近一次拟合的模型
	d.viewImpls[model.ViewLatestModel] = func() error {
		query := fmt.Sprintf(`
			CREATE OR REPLACE VIEW %s AS
			SELECT *
			FROM %s
			QUALIFY row_number() OVER (PARTITION BY series ORDER BY fitted_at DESC) = 1
		`, model.ViewLatestModel, model.TableModels.TableName)

		_, err := d.db.Exec(query)
		return err
	}
}
