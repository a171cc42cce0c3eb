package source

import (
	"fmt"
	"io"
	"sort"

	"github.com/posix4e/btc-mnav-rainbow/model"
)

// ReadBtcCSV 读取 BTC 日线价格
func ReadBtcCSV(path string) ([]model.PricePoint, error) {
	t, err := openTable(path)
	if err != nil {
		return nil, err
	}
	return btcFromTable(t)
}

func ParseBtcCSV(r io.Reader) ([]model.PricePoint, error) {
	t, err := readTable(r)
	if err != nil {
		return nil, err
	}
	return btcFromTable(t)
}

// btcFromTable 跳过空日期与非正价格; 结果按日期升序, 同一日期保留最后一行
func btcFromTable(t *table) ([]model.PricePoint, error) {
	if len(t.rows) > 0 && !t.has("date") {
		return nil, fmt.Errorf("btc csv: missing date column")
	}

	byDate := make(map[int64]model.PricePoint, len(t.rows))
	for i, row := range t.rows {
		raw := t.get(row, "date")
		if raw == "" {
			continue
		}
		date, err := parseDate(raw)
		if err != nil {
			return nil, fmt.Errorf("btc csv row %d: %w", i+2, err)
		}
		price := parseNullable(t.get(row, "btc_price_usd", "price"))
		if !price.Valid || price.Float64 <= 0 {
			continue
		}
		byDate[date.Unix()] = model.PricePoint{Date: date, Price: price.Float64}
	}

	points := make([]model.PricePoint, 0, len(byDate))
	for _, p := range byDate {
		points = append(points, p)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points, nil
}
