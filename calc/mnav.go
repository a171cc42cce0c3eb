package calc

import (
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"github.com/guregu/null/v6"
	"github.com/posix4e/btc-mnav-rainbow/model"
)

// NotionalBook 优先股类工具在各日期的名义金额, 只按日期精确匹配
type NotionalBook map[model.InstrumentKind]map[civil.Date]float64

func NewNotionalBook(rows []model.InstrumentNotional) NotionalBook {
	book := make(NotionalBook)
	for _, r := range rows {
		if !isFinite(r.Notional) {
			continue
		}
		byDate, ok := book[r.Instrument]
		if !ok {
			byDate = make(map[civil.Date]float64)
			book[r.Instrument] = byDate
		}
		byDate[civil.DateOf(r.Date)] = r.Notional
	}
	return book
}

// NotionalAt 缺失视为尚未发行, 返回 0
func (b NotionalBook) NotionalAt(kind model.InstrumentKind, date time.Time) float64 {
	byDate, ok := b[kind]
	if !ok {
		return 0
	}
	return byDate[civil.DateOf(date)]
}

// TotalAt 所有工具在该日的名义金额之和
func (b NotionalBook) TotalAt(date time.Time) float64 {
	total := 0.0
	for _, kind := range b.Kinds() {
		total += b.NotionalAt(kind, date)
	}
	return total
}

// Kinds 按名称排序, 保证求和顺序稳定
func (b NotionalBook) Kinds() []model.InstrumentKind {
	kinds := make([]model.InstrumentKind, 0, len(b))
	for k := range b {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// ComputeMnav 企业价值 / BTC 净资产。
// btcNav <= 0 或任一必需输入缺失时返回 null。
func ComputeMnav(
	rec model.CapitalStructureRecord,
	includeDebt bool,
	instruments []model.InstrumentKind,
	book NotionalBook,
) null.Float {
	if !valid(rec.MarketCap) {
		return null.Float{}
	}
	ev := rec.MarketCap.Float64
	if includeDebt {
		if !valid(rec.Debt) {
			return null.Float{}
		}
		ev += rec.Debt.Float64
	}
	for _, kind := range instruments {
		ev += book.NotionalAt(kind, rec.Date)
	}
	return ratio(ev, btcNav(rec.BtcHoldings, rec.SpotPrice))
}

// AdjustedPrice mnav * 现货价格, 任一为 null 则为 null
func AdjustedPrice(mnav, spot null.Float) null.Float {
	if !valid(mnav) || !valid(spot) {
		return null.Float{}
	}
	return finiteOrNull(mnav.Float64 * spot.Float64)
}

// Composite 计算两个常驻变体: naive (仅市值) 与 advanced (市值+债务+优先股)。
// 记录自身没有优先股数据时, 用当日所有工具名义金额之和代替。
func Composite(records []model.CapitalStructureRecord, book NotionalBook) []model.MnavRecord {
	out := make([]model.MnavRecord, len(records))
	for i, rec := range records {
		preferred := rec.Preferred
		if !valid(preferred) {
			preferred = null.FloatFrom(book.TotalAt(rec.Date))
		}

		nav := btcNav(rec.BtcHoldings, rec.SpotPrice)
		naive := ComputeMnav(rec, false, nil, book)

		var advanced null.Float
		if valid(rec.MarketCap) && valid(rec.Debt) {
			advanced = ratio(rec.MarketCap.Float64+rec.Debt.Float64+preferred.Float64, nav)
		}

		out[i] = model.MnavRecord{
			Date:                  rec.Date,
			SpotPrice:             rec.SpotPrice,
			BtcHoldings:           rec.BtcHoldings,
			MarketCap:             rec.MarketCap,
			Debt:                  rec.Debt,
			Preferred:             preferred,
			BtcNav:                nav,
			NaiveMnav:             naive,
			AdvancedMnav:          advanced,
			NaiveAdjustedPrice:    AdjustedPrice(naive, rec.SpotPrice),
			AdvancedAdjustedPrice: AdjustedPrice(advanced, rec.SpotPrice),
		}
	}
	return out
}

// CustomSeries 按调用方选择的负债项计算自定义变体, 不改动常驻变体
func CustomSeries(
	records []model.CapitalStructureRecord,
	sel model.Selection,
	book NotionalBook,
) []model.CustomMnavPoint {
	out := make([]model.CustomMnavPoint, len(records))
	for i, rec := range records {
		mnav := ComputeMnav(rec, sel.IncludeDebt, sel.Instruments, book)
		out[i] = model.CustomMnavPoint{
			Date:          rec.Date,
			Mnav:          mnav,
			AdjustedPrice: AdjustedPrice(mnav, rec.SpotPrice),
		}
	}
	return out
}

// AdjustedPriceSeries 取出指定变体的 MNAV 调整价格, 跳过 null 与非正值
func AdjustedPriceSeries(records []model.MnavRecord, variant model.MnavVariant) []model.PricePoint {
	out := make([]model.PricePoint, 0, len(records))
	for _, r := range records {
		v := r.AdjustedPrice(variant)
		if valid(v) && v.Float64 > 0 {
			out = append(out, model.PricePoint{Date: r.Date, Price: v.Float64})
		}
	}
	return out
}

func btcNav(holdings, spot null.Float) null.Float {
	if !valid(holdings) || !valid(spot) {
		return null.Float{}
	}
	return finiteOrNull(holdings.Float64 * spot.Float64)
}

func ratio(num float64, nav null.Float) null.Float {
	if !valid(nav) || nav.Float64 <= 0 {
		return null.Float{}
	}
	return finiteOrNull(num / nav.Float64)
}

func valid(v null.Float) bool {
	return v.Valid && isFinite(v.Float64)
}

func finiteOrNull(v float64) null.Float {
	if !isFinite(v) {
		return null.Float{}
	}
	return null.FloatFrom(v)
}
