package duckdb

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/posix4e/btc-mnav-rainbow/model"
)

// insertCSVQuery 用 read_csv 按表结构的列类型读入 CSV
func (d *DuckDBDriver) insertCSVQuery(meta *model.TableMeta, csvPath string) string {
	colMaps := make([]string, 0, len(meta.Columns))
	for _, col := range meta.Columns {
		colMaps = append(colMaps, fmt.Sprintf("'%s': '%s'", col.Name, d.mapType(col.Type)))
	}

	return fmt.Sprintf(`
		INSERT INTO %s (%s)
		SELECT * FROM read_csv('%s',
			header=true,
			columns={%s},
			dateformat='%%Y-%%m-%%d',
			timestampformat='%%Y-%%m-%%d %%H:%%M:%%S'
		)
	`,
		meta.TableName,
		strings.Join(meta.ColumnNames(), ", "),
		strings.ReplaceAll(csvPath, "'", "''"),
		strings.Join(colMaps, ", "))
}

func (d *DuckDBDriver) importCSV(meta *model.TableMeta, csvPath string) error {
	if _, err := d.db.Exec(d.insertCSVQuery(meta, csvPath)); err != nil {
		return fmt.Errorf("import %s into %s: %w", csvPath, meta.TableName, err)
	}
	return nil
}

// replaceCSV 在一个事务里清空并重新导入
func (d *DuckDBDriver) replaceCSV(meta *model.TableMeta, csvPath string) error {
	tx, err := d.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(fmt.Sprintf("DELETE FROM %s", meta.TableName)); err != nil {
		return fmt.Errorf("duckdb truncate %s failed: %w", meta.TableName, err)
	}
	if _, err := tx.Exec(d.insertCSVQuery(meta, csvPath)); err != nil {
		return fmt.Errorf("import %s into %s: %w", csvPath, meta.TableName, err)
	}
	return tx.Commit()
}

func (d *DuckDBDriver) ImportBtcPrices(path string) error {
	return d.replaceCSV(model.TableBtcPrices, path)
}

func (d *DuckDBDriver) ImportCapital(path string) error {
	return d.replaceCSV(model.TableCapital, path)
}

func (d *DuckDBDriver) ImportFilings(path string) error {
	return d.replaceCSV(model.TableFilings, path)
}

func (d *DuckDBDriver) ImportInstruments(path string) error {
	return d.replaceCSV(model.TableInstruments, path)
}

func (d *DuckDBDriver) ImportMnav(path string) error {
	return d.replaceCSV(model.TableMnav, path)
}

// ImportModels 追加, 历史模型按 run_id 区分
func (d *DuckDBDriver) ImportModels(path string) error {
	return d.importCSV(model.TableModels, path)
}

func (d *DuckDBDriver) Query(table string, conditions map[string]interface{}, dest interface{}) error {
	query := fmt.Sprintf("SELECT * FROM %s", table)
	args := []interface{}{}
	if len(conditions) > 0 {
		keys := make([]string, 0, len(conditions))
		for k := range conditions {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		whereParts := make([]string, 0, len(keys))
		for i, k := range keys {
			whereParts = append(whereParts, fmt.Sprintf("%s = $%d", k, i+1))
			args = append(args, conditions[k])
		}
		query += " WHERE " + strings.Join(whereParts, " AND ")
	}

	return d.db.Select(dest, query, args...)
}

func (d *DuckDBDriver) GetLatestDate(tableName string, dateCol string) (time.Time, error) {
	query := fmt.Sprintf("SELECT CAST(max(%s) AS DATE) AS latest FROM %s", dateCol, tableName)

	var latest sql.NullTime
	if err := d.db.Get(&latest, query); err != nil {
		return time.Time{}, err
	}
	if !latest.Valid {
		return time.Time{}, nil
	}
	return latest.Time, nil
}

func (d *DuckDBDriver) CountRows(tableName string) (int64, error) {
	var n int64
	if err := d.db.Get(&n, fmt.Sprintf("SELECT count(*) FROM %s", tableName)); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", tableName, err)
	}
	return n, nil
}

// selectOrdered 按表结构的列顺序查询, 结果按 order 排序
func selectOrdered[T any](d *DuckDBDriver, meta *model.TableMeta, from string, order string) ([]T, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(meta.ColumnNames(), ", "), from, order)

	var results []T
	if err := d.db.Select(&results, query); err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", from, err)
	}
	return results, nil
}

func (d *DuckDBDriver) QueryBtcPrices(weekly bool) ([]model.PricePoint, error) {
	from := model.TableBtcPrices.TableName
	if weekly {
		from = string(model.ViewBtcWeekly)
	}
	return selectOrdered[model.PricePoint](d, model.TableBtcPrices, from, "date ASC")
}

func (d *DuckDBDriver) QueryCapital() ([]model.CapitalStructureRecord, error) {
	return selectOrdered[model.CapitalStructureRecord](d, model.TableCapital, model.TableCapital.TableName, "date ASC")
}

func (d *DuckDBDriver) QueryFilings() ([]model.FilingRecord, error) {
	return selectOrdered[model.FilingRecord](d, model.TableFilings, model.TableFilings.TableName, "date ASC")
}

func (d *DuckDBDriver) QueryInstruments() ([]model.InstrumentNotional, error) {
	return selectOrdered[model.InstrumentNotional](d, model.TableInstruments, model.TableInstruments.TableName, "instrument ASC, date ASC")
}

func (d *DuckDBDriver) QueryMnav() ([]model.MnavRecord, error) {
	return selectOrdered[model.MnavRecord](d, model.TableMnav, model.TableMnav.TableName, "date ASC")
}

func (d *DuckDBDriver) QueryLatestModels() ([]model.FittedModel, error) {
	return selectOrdered[model.FittedModel](d, model.TableModels, string(model.ViewLatestModel), "series ASC")
}

func (d *DuckDBDriver) CopyToCSV(table string, order string, csvPath string) error {
	query := fmt.Sprintf("COPY (SELECT * FROM %s ORDER BY %s) TO '%s' (FORMAT CSV, HEADER)",
		table, order, strings.ReplaceAll(csvPath, "'", "''"))
	if _, err := d.db.Exec(query); err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", table, csvPath, err)
	}
	return nil
}
