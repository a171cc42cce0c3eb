package calc

import (
	"time"

	"github.com/guregu/null/v6"
	"github.com/posix4e/btc-mnav-rainbow/model"
)

const (
	SeriesBTC  = "btc"
	SeriesMNAV = "mnav"
)

// ChartOptions 控制图表数据的组装
type ChartOptions struct {
	RunID        string
	GeneratedAt  time.Time
	ExtendMonths int
	Variant      model.MnavVariant
	// Weekly 时 btc 为周线, MNAV 记录按周重采样, 延伸部分每 7 天一个点
	Weekly bool
}

// ResampleMnav 周线模式下把 MNAV 记录重采样到 btc 的周线日期, 日线模式原样返回。
// 拟合与出图共用, 保证 MNAV 模型的序号与图上的点一一对应。
func ResampleMnav(records []model.MnavRecord, btc []model.PricePoint, weekly bool) []model.MnavRecord {
	if !weekly {
		return records
	}
	return WeeklyMnav(records, btc)
}

// BuildChart 把价格序列, MNAV 记录与两个模型对齐到同一条日期轴上。
// 日期轴为 BTC 序列日期加上向后延伸的 ExtendMonths*30 天 (周线模式按周取点)。
// 模型为 nil 时对应的档位为空。
func BuildChart(
	btc []model.PricePoint,
	mnav []model.MnavRecord,
	btcModel, mnavModel *model.RainbowModel,
	opts ChartOptions,
) model.ChartData {
	variant := opts.Variant
	if variant == "" {
		variant = model.VariantNaive
	}

	step := 1
	if opts.Weekly {
		step = 7
	}
	mnav = ResampleMnav(mnav, btc, opts.Weekly)

	axis := ExtendAxis(PriceDates(btc), opts.ExtendMonths, step)
	adjusted := AdjustedPriceSeries(mnav, variant)

	btcBands := make([]model.AlignedBand, 0)
	for _, b := range Bands(btcModel, len(axis)) {
		btcBands = append(btcBands, alignedBand(b, nullable(b.Values)))
	}

	mnavDates := PriceDates(adjusted)
	mnavBands := make([]model.AlignedBand, 0)
	for _, b := range Bands(mnavModel, len(adjusted)) {
		mnavBands = append(mnavBands, alignedBand(b, AlignValues(axis, mnavDates, b.Values)))
	}

	labels := make([]string, len(axis))
	for i, d := range axis {
		labels[i] = d.Format(dateFormat)
	}

	return model.ChartData{
		GeneratedAt:  opts.GeneratedAt.UTC().Format(time.RFC3339),
		RunID:        opts.RunID,
		Axis:         labels,
		Spot:         AlignPrices(axis, btc),
		MnavAdjusted: AlignPrices(axis, adjusted),
		BtcModel:     btcModel,
		MnavModel:    mnavModel,
		BtcBands:     btcBands,
		MnavBands:    mnavBands,
		Halvings:     model.Halvings,
		Summary:      Summarize(btc, mnav, variant),
		Mnav:         mnav,
	}
}

// Summarize 取各项最新的有效值; MNAV 溢价为 (mnav-1)*100
func Summarize(btc []model.PricePoint, mnav []model.MnavRecord, variant model.MnavVariant) model.Summary {
	var s model.Summary

	for i := len(btc) - 1; i >= 0; i-- {
		if isFinite(btc[i].Price) && btc[i].Price > 0 {
			s.LatestBtcPrice = null.FloatFrom(btc[i].Price)
			break
		}
	}

	for i := len(mnav) - 1; i >= 0; i-- {
		if v := mnav[i].AdjustedPrice(variant); valid(v) {
			s.LatestAdjusted = v
			break
		}
	}

	for i := len(mnav) - 1; i >= 0; i-- {
		if v := mnav[i].Mnav(variant); valid(v) {
			s.LatestMnav = v
			s.MnavPremiumPercent = finiteOrNull((v.Float64 - 1) * 100)
			break
		}
	}

	for i := len(mnav) - 1; i >= 0; i-- {
		if valid(mnav[i].BtcHoldings) {
			s.BtcHoldings = mnav[i].BtcHoldings
			break
		}
	}

	return s
}

// BandRows 把对齐后的档位展开成长表, 跳过 null
func BandRows(series string, axis []string, bands []model.AlignedBand) ([]model.BandRow, error) {
	var rows []model.BandRow
	for _, b := range bands {
		for i, v := range b.Values {
			if !v.Valid || i >= len(axis) {
				continue
			}
			d, err := time.Parse(dateFormat, axis[i])
			if err != nil {
				return nil, err
			}
			rows = append(rows, model.BandRow{
				Series: series,
				Kind:   string(b.Kind),
				Tier:   int64(b.Tier),
				Index:  int64(i),
				Date:   d,
				Value:  v.Float64,
			})
		}
	}
	return rows, nil
}

func alignedBand(b model.Band, values []null.Float) model.AlignedBand {
	return model.AlignedBand{
		Kind:         b.Kind,
		Tier:         b.Tier,
		PaletteIndex: b.PaletteIndex,
		Color:        b.Color,
		Values:       values,
	}
}

func nullable(values []float64) []null.Float {
	out := make([]null.Float, len(values))
	for i, v := range values {
		out[i] = finiteOrNull(v)
	}
	return out
}
