package source

import (
	"fmt"
	"io"
	"sort"

	"github.com/guregu/null/v6"
	"github.com/posix4e/btc-mnav-rainbow/model"
)

// ReadCapitalCSV 读取公司日度数据 (MSTR.csv 格式), 原文件为倒序
func ReadCapitalCSV(path string) ([]model.CapitalStructureRecord, error) {
	t, err := openTable(path)
	if err != nil {
		return nil, err
	}
	return capitalFromTable(t)
}

func ParseCapitalCSV(r io.Reader) ([]model.CapitalStructureRecord, error) {
	t, err := readTable(r)
	if err != nil {
		return nil, err
	}
	return capitalFromTable(t)
}

func capitalFromTable(t *table) ([]model.CapitalStructureRecord, error) {
	if len(t.rows) > 0 && !t.has("timestamp") && !t.has("date") {
		return nil, fmt.Errorf("capital csv: missing timestamp column")
	}

	records := make([]model.CapitalStructureRecord, 0, len(t.rows))
	for i, row := range t.rows {
		raw := t.get(row, "timestamp", "date")
		if raw == "" {
			continue
		}
		date, err := parseDate(raw)
		if err != nil {
			return nil, fmt.Errorf("capital csv row %d: %w", i+2, err)
		}

		rec := model.CapitalStructureRecord{
			Date:            date,
			SpotPrice:       parseNullable(t.get(row, "btc_price")),
			BtcHoldings:     parseNullable(t.get(row, "btc_holdings")),
			MarketCap:       parseNullable(t.get(row, "market_cap")),
			SharePrice:      parseNullable(t.get(row, "close")),
			Debt:            parseNullable(t.get(row, "debt")),
			Preferred:       parseNullable(t.get(row, "preferred")),
			ClassAShares:    parseNullable(t.get(row, "class_a_shares")),
			ClassBShares:    parseNullable(t.get(row, "class_b_shares")),
			ClassBtoA:       parseNullable(t.get(row, "class_b_to_a")),
			EffectiveShares: parseNullable(t.get(row, "effective_shares")),
		}

		// 只给了 m_nav 时反推市值
		if !rec.MarketCap.Valid {
			mnav := parseNullable(t.get(row, "m_nav"))
			if mnav.Valid && mnav.Float64 > 0 && positive(rec.BtcHoldings) && positive(rec.SpotPrice) {
				rec.MarketCap = null.FloatFrom(mnav.Float64 * rec.BtcHoldings.Float64 * rec.SpotPrice.Float64)
			}
		}

		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date) })
	return records, nil
}

func positive(v null.Float) bool {
	return v.Valid && v.Float64 > 0
}
