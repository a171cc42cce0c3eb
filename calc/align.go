package calc

import (
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/guregu/null/v6"
	"github.com/posix4e/btc-mnav-rainbow/model"
)

// ErrMisalignedInput 输入序列未按日期升序排列
var ErrMisalignedInput = errors.New("input series not sorted ascending by date")

const dateFormat = "2006-01-02"

// CheckAscending 校验日期非递减
func CheckAscending(name string, dates []time.Time) error {
	for i := 1; i < len(dates); i++ {
		if dates[i].Before(dates[i-1]) {
			return fmt.Errorf("%w: %s[%d]=%s precedes %s[%d]=%s",
				ErrMisalignedInput,
				name, i, dates[i].Format(dateFormat),
				name, i-1, dates[i-1].Format(dateFormat))
		}
	}
	return nil
}

// ForwardFill 把稀疏记录向前填充到稠密序列上, 返回新切片, 不修改输入。
// 单游标保留日期不晚于当前日期的最后一条稀疏记录, 只用这条记录填充;
// 该记录中为 null 的字段不会回退到更早的记录。
// 稠密记录上已有的值永远不会被覆盖; 早于第一条稀疏记录的日期保持 null。
// fields 为空时使用 model.FilingFields。
func ForwardFill(
	dense, sparse []model.CapitalStructureRecord,
	fields ...model.Field,
) ([]model.CapitalStructureRecord, error) {
	if err := CheckAscending("dense", capitalDates(dense)); err != nil {
		return nil, err
	}
	if err := CheckAscending("sparse", capitalDates(sparse)); err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		fields = model.FilingFields
	}

	var zero model.CapitalStructureRecord
	for _, f := range fields {
		if zero.FieldRef(f) == nil {
			return nil, fmt.Errorf("unknown field: %s", f)
		}
	}

	out := make([]model.CapitalStructureRecord, len(dense))
	copy(out, dense)

	var last *model.CapitalStructureRecord
	cursor := 0

	for i := range out {
		for cursor < len(sparse) && !sparse[cursor].Date.After(out[i].Date) {
			last = &sparse[cursor]
			cursor++
		}
		if last == nil {
			continue
		}
		for _, f := range fields {
			dst := out[i].FieldRef(f)
			if !dst.Valid {
				*dst = *last.FieldRef(f)
			}
		}
	}

	return out, nil
}

// Recompute 在输入齐备处补算有效股本与市值, 已有值不覆盖
func Recompute(records []model.CapitalStructureRecord) []model.CapitalStructureRecord {
	out := make([]model.CapitalStructureRecord, len(records))
	for i, r := range records {
		if !valid(r.EffectiveShares) && valid(r.ClassAShares) && valid(r.ClassBShares) {
			conv := 1.0
			if valid(r.ClassBtoA) {
				conv = r.ClassBtoA.Float64
			}
			r.EffectiveShares = finiteOrNull(r.ClassAShares.Float64 + r.ClassBShares.Float64*conv)
		}
		if !valid(r.MarketCap) && valid(r.SharePrice) && valid(r.EffectiveShares) {
			r.MarketCap = finiteOrNull(r.SharePrice.Float64 * r.EffectiveShares.Float64)
		}
		out[i] = r
	}
	return out
}

// AlignCapital 向前填充报告数据并补算派生字段
func AlignCapital(
	dense []model.CapitalStructureRecord,
	filings []model.FilingRecord,
	fields ...model.Field,
) ([]model.CapitalStructureRecord, error) {
	sparse := make([]model.CapitalStructureRecord, len(filings))
	for i, f := range filings {
		sparse[i] = f.Capital()
	}
	filled, err := ForwardFill(dense, sparse, fields...)
	if err != nil {
		return nil, err
	}
	return Recompute(filled), nil
}

// AlignValues 按日期精确匹配把 values 对齐到 axis, 缺失日期为 null
func AlignValues(axis, dates []time.Time, values []float64) []null.Float {
	index := make(map[civil.Date]float64, len(dates))
	for i, d := range dates {
		if i < len(values) {
			index[civil.DateOf(d)] = values[i]
		}
	}
	out := make([]null.Float, len(axis))
	for i, d := range axis {
		if v, ok := index[civil.DateOf(d)]; ok && isFinite(v) {
			out[i] = null.FloatFrom(v)
		}
	}
	return out
}

func AlignPrices(axis []time.Time, points []model.PricePoint) []null.Float {
	dates := make([]time.Time, len(points))
	values := make([]float64, len(points))
	for i, p := range points {
		dates[i] = p.Date
		values[i] = p.Price
	}
	return AlignValues(axis, dates, values)
}

// ExtendAxis 在最后一个日期之后每隔 stepDays 天追加一个日期, 覆盖 months*30 个自然日。
// stepDays <= 0 按 1 处理。
func ExtendAxis(dates []time.Time, months, stepDays int) []time.Time {
	if stepDays <= 0 {
		stepDays = 1
	}
	horizon := max(months, 0) * 30
	out := make([]time.Time, len(dates), len(dates)+horizon/stepDays)
	copy(out, dates)
	if len(dates) == 0 {
		return out
	}
	last := dates[len(dates)-1]
	for d := stepDays; d <= horizon; d += stepDays {
		out = append(out, last.AddDate(0, 0, d))
	}
	return out
}

// WeekOf 返回日期所在自然周的周一, 与 DuckDB date_trunc('week') 一致
func WeekOf(t time.Time) civil.Date {
	back := (int(t.Weekday()) + 6) % 7
	return civil.DateOf(t).AddDays(-back)
}

// WeeklyMnav 把日度 MNAV 记录按自然周取最后一条,
// 日期改成同一周的 BTC 周线日期, 使其能与周线日期轴精确对齐。
// 该周没有 BTC 数据的记录被丢弃。records 需按日期升序。
func WeeklyMnav(records []model.MnavRecord, weekly []model.PricePoint) []model.MnavRecord {
	keys := make(map[civil.Date]time.Time, len(weekly))
	for _, p := range weekly {
		keys[WeekOf(p.Date)] = p.Date
	}

	out := make([]model.MnavRecord, 0, len(records)/5+1)
	var lastWeek civil.Date
	for _, r := range records {
		wk := WeekOf(r.Date)
		d, ok := keys[wk]
		if !ok {
			continue
		}
		r.Date = d
		if len(out) > 0 && wk == lastWeek {
			out[len(out)-1] = r
			continue
		}
		out = append(out, r)
		lastWeek = wk
	}
	return out
}

func PriceDates(points []model.PricePoint) []time.Time {
	dates := make([]time.Time, len(points))
	for i, p := range points {
		dates[i] = p.Date
	}
	return dates
}

func capitalDates(records []model.CapitalStructureRecord) []time.Time {
	dates := make([]time.Time, len(records))
	for i, r := range records {
		dates[i] = r.Date
	}
	return dates
}
