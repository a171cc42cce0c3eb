package calc

import (
	"math"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/posix4e/btc-mnav-rainbow/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildChart(t *testing.T) {
	btc := risingSeries()
	params := model.DefaultModelParams()
	btcModel := Fit(btc, params)
	require.NotNil(t, btcModel)

	mnav := []model.MnavRecord{
		{Date: btc[8].Date, NaiveMnav: null.FloatFrom(1.5), NaiveAdjustedPrice: null.FloatFrom(1350), BtcHoldings: null.FloatFrom(10)},
		{Date: btc[9].Date, NaiveMnav: null.FloatFrom(2), NaiveAdjustedPrice: null.FloatFrom(2200)},
	}

	chart := BuildChart(btc, mnav, btcModel, nil, ChartOptions{
		RunID:        "run-1",
		GeneratedAt:  time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC),
		ExtendMonths: 1,
	})

	assert.Equal(t, "run-1", chart.RunID)
	assert.Equal(t, "2024-05-01T12:00:00Z", chart.GeneratedAt)
	require.Len(t, chart.Axis, 40)
	assert.Equal(t, "2020-01-01", chart.Axis[0])
	assert.Equal(t, "2020-10-31", chart.Axis[39])

	require.Len(t, chart.Spot, 40)
	assert.Equal(t, null.FloatFrom(1100), chart.Spot[9])
	assert.False(t, chart.Spot[10].Valid)

	assert.False(t, chart.MnavAdjusted[0].Valid)
	assert.Equal(t, null.FloatFrom(2200), chart.MnavAdjusted[9])

	require.Len(t, chart.BtcBands, 10)
	for _, b := range chart.BtcBands {
		assert.Len(t, b.Values, 40)
		assert.True(t, b.Values[39].Valid)
	}
	assert.Empty(t, chart.MnavBands)
	assert.Len(t, chart.Halvings, len(model.Halvings))

	s := chart.Summary
	assert.Equal(t, null.FloatFrom(1100), s.LatestBtcPrice)
	assert.Equal(t, null.FloatFrom(2200), s.LatestAdjusted)
	assert.Equal(t, null.FloatFrom(2), s.LatestMnav)
	assert.Equal(t, null.FloatFrom(100), s.MnavPremiumPercent)
	assert.Equal(t, null.FloatFrom(10), s.BtcHoldings)
}

func TestBuildChart_MnavBandsAlignedByDate(t *testing.T) {
	btc := risingSeries()
	mnav := make([]model.MnavRecord, len(btc))
	for i, p := range btc {
		mnav[i] = model.MnavRecord{Date: p.Date, AdvancedAdjustedPrice: null.FloatFrom(p.Price * 1.2)}
	}
	adjusted := AdjustedPriceSeries(mnav, model.VariantAdvanced)
	mnavModel := Fit(adjusted, model.DefaultModelParams())
	require.NotNil(t, mnavModel)

	chart := BuildChart(btc, mnav, nil, mnavModel, ChartOptions{
		ExtendMonths: 1,
		Variant:      model.VariantAdvanced,
	})

	assert.Empty(t, chart.BtcBands)
	require.Len(t, chart.MnavBands, 10)
	for _, b := range chart.MnavBands {
		assert.True(t, b.Values[9].Valid)
		assert.False(t, b.Values[10].Valid)
	}
}

func TestBuildChart_Weekly(t *testing.T) {
	// 52 个周日收盘价, MNAV 为工作日日度记录
	first := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	btc := make([]model.PricePoint, 52)
	var mnav []model.MnavRecord
	for w := range btc {
		sunday := first.AddDate(0, 0, 7*w)
		price := 20000 * math.Exp(0.02*float64(w))
		btc[w] = model.PricePoint{Date: sunday, Price: price}
		for d := -6; d <= -2; d++ {
			mnav = append(mnav, model.MnavRecord{
				Date:                  sunday.AddDate(0, 0, d),
				AdvancedMnav:          null.FloatFrom(1.2),
				AdvancedAdjustedPrice: null.FloatFrom(price * 1.2),
			})
		}
	}

	weeklyMnav := ResampleMnav(mnav, btc, true)
	require.Len(t, weeklyMnav, 52)
	mnavModel := Fit(AdjustedPriceSeries(weeklyMnav, model.VariantAdvanced), model.DefaultModelParams())
	require.NotNil(t, mnavModel)

	chart := BuildChart(btc, mnav, Fit(btc, model.DefaultModelParams()), mnavModel, ChartOptions{
		ExtendMonths: 9,
		Variant:      model.VariantAdvanced,
		Weekly:       true,
	})

	require.Len(t, chart.Axis, 52+38)
	for i := 1; i < len(chart.Axis); i++ {
		prev, err := time.Parse(dateFormat, chart.Axis[i-1])
		require.NoError(t, err)
		cur, err := time.Parse(dateFormat, chart.Axis[i])
		require.NoError(t, err)
		assert.Equal(t, 7*24*time.Hour, cur.Sub(prev), "axis %d", i)
	}

	for i := 0; i < 52; i++ {
		assert.True(t, chart.MnavAdjusted[i].Valid, "week %d", i)
	}
	assert.False(t, chart.MnavAdjusted[52].Valid)

	require.Len(t, chart.MnavBands, 10)
	for _, b := range chart.MnavBands {
		require.Len(t, b.Values, 52+38)
		for i := 0; i < 52; i++ {
			assert.True(t, b.Values[i].Valid, "band %d week %d", b.Tier, i)
		}
	}
	for _, b := range chart.BtcBands {
		assert.True(t, b.Values[len(b.Values)-1].Valid)
	}
	assert.Len(t, chart.Mnav, 52)
	assert.Equal(t, null.FloatFrom(1.2), chart.Summary.LatestMnav)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, nil, model.VariantNaive)
	assert.False(t, s.LatestBtcPrice.Valid)
	assert.False(t, s.LatestMnav.Valid)
	assert.False(t, s.MnavPremiumPercent.Valid)
}

func TestBandRows_SkipsNull(t *testing.T) {
	bands := []model.AlignedBand{
		{Kind: model.BandKindTier, Tier: 2, Values: []null.Float{null.FloatFrom(1), {}, null.FloatFrom(3)}},
	}
	rows, err := BandRows(SeriesBTC, []string{"2024-01-01", "2024-01-02", "2024-01-03"}, bands)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(2), rows[1].Index)
	assert.Equal(t, "tier", rows[1].Kind)
	assert.Equal(t, 3.0, rows[1].Value)
}
