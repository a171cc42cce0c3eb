package source

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/posix4e/btc-mnav-rainbow/model"
)

// ReadInstrumentsCSV 读取优先股类工具的名义金额, 列: date, instrument, notional
func ReadInstrumentsCSV(path string) ([]model.InstrumentNotional, error) {
	t, err := openTable(path)
	if err != nil {
		return nil, err
	}
	return instrumentsFromTable(t)
}

func ParseInstrumentsCSV(r io.Reader) ([]model.InstrumentNotional, error) {
	t, err := readTable(r)
	if err != nil {
		return nil, err
	}
	return instrumentsFromTable(t)
}

func instrumentsFromTable(t *table) ([]model.InstrumentNotional, error) {
	for _, col := range []string{"date", "instrument", "notional"} {
		if len(t.rows) > 0 && !t.has(col) {
			return nil, fmt.Errorf("instruments csv: missing %s column", col)
		}
	}

	out := make([]model.InstrumentNotional, 0, len(t.rows))
	for i, row := range t.rows {
		raw := t.get(row, "date")
		kind := strings.ToUpper(t.get(row, "instrument"))
		if raw == "" || kind == "" {
			continue
		}
		date, err := parseDate(raw)
		if err != nil {
			return nil, fmt.Errorf("instruments csv row %d: %w", i+2, err)
		}
		notional := parseNullable(t.get(row, "notional"))
		if !notional.Valid {
			continue
		}
		out = append(out, model.InstrumentNotional{
			Date:       date,
			Instrument: model.InstrumentKind(kind),
			Notional:   notional.Float64,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Instrument != out[j].Instrument {
			return out[i].Instrument < out[j].Instrument
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}
