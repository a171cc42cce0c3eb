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

var day = time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

func sampleRecord() model.CapitalStructureRecord {
	return model.CapitalStructureRecord{
		Date:        day,
		MarketCap:   null.FloatFrom(1000),
		Debt:        null.FloatFrom(200),
		Preferred:   null.FloatFrom(50),
		BtcHoldings: null.FloatFrom(10),
		SpotPrice:   null.FloatFrom(100),
	}
}

func TestComposite_Arithmetic(t *testing.T) {
	out := Composite([]model.CapitalStructureRecord{sampleRecord()}, nil)
	require.Len(t, out, 1)

	r := out[0]
	assert.Equal(t, null.FloatFrom(1000), r.BtcNav)
	assert.Equal(t, null.FloatFrom(1.0), r.NaiveMnav)
	assert.Equal(t, null.FloatFrom(1.25), r.AdvancedMnav)
	assert.Equal(t, null.FloatFrom(100), r.NaiveAdjustedPrice)
	assert.Equal(t, null.FloatFrom(125), r.AdvancedAdjustedPrice)
}

func TestComposite_PreferredFromBook(t *testing.T) {
	rec := sampleRecord()
	rec.Preferred = null.Float{}
	book := NewNotionalBook([]model.InstrumentNotional{
		{Date: day, Instrument: model.InstrumentSTRK, Notional: 30},
		{Date: day, Instrument: model.InstrumentSTRF, Notional: 20},
		{Date: day.AddDate(0, 0, 1), Instrument: model.InstrumentSTRF, Notional: 999},
	})

	out := Composite([]model.CapitalStructureRecord{rec}, book)
	assert.Equal(t, null.FloatFrom(50), out[0].Preferred)
	assert.Equal(t, null.FloatFrom(1.25), out[0].AdvancedMnav)
}

func TestComposite_MissingDebt(t *testing.T) {
	rec := sampleRecord()
	rec.Debt = null.Float{}

	out := Composite([]model.CapitalStructureRecord{rec}, nil)
	assert.Equal(t, null.FloatFrom(1.0), out[0].NaiveMnav)
	assert.False(t, out[0].AdvancedMnav.Valid)
	assert.False(t, out[0].AdvancedAdjustedPrice.Valid)
}

func TestMnav_ZeroHoldingsIsNull(t *testing.T) {
	rec := sampleRecord()
	rec.BtcHoldings = null.FloatFrom(0)
	book := NewNotionalBook([]model.InstrumentNotional{
		{Date: day, Instrument: model.InstrumentSTRK, Notional: 30},
	})

	out := Composite([]model.CapitalStructureRecord{rec}, book)
	assert.False(t, out[0].NaiveMnav.Valid)
	assert.False(t, out[0].AdvancedMnav.Valid)
	assert.False(t, out[0].NaiveAdjustedPrice.Valid)
	assert.False(t, out[0].AdvancedAdjustedPrice.Valid)

	selections := []model.Selection{
		{},
		{IncludeDebt: true},
		{IncludeDebt: true, Instruments: model.KnownInstruments},
	}
	for _, sel := range selections {
		custom := CustomSeries([]model.CapitalStructureRecord{rec}, sel, book)
		assert.False(t, custom[0].Mnav.Valid)
		assert.False(t, custom[0].AdjustedPrice.Valid)
	}
}

func TestComputeMnav_NonFiniteInput(t *testing.T) {
	rec := sampleRecord()
	rec.SpotPrice = null.FloatFrom(math.Inf(1))
	assert.False(t, ComputeMnav(rec, false, nil, nil).Valid)

	rec = sampleRecord()
	rec.MarketCap = null.FloatFrom(math.NaN())
	assert.False(t, ComputeMnav(rec, false, nil, nil).Valid)
}

func TestCustomSeries_Selection(t *testing.T) {
	rec := sampleRecord()
	book := NewNotionalBook([]model.InstrumentNotional{
		{Date: day, Instrument: model.InstrumentSTRK, Notional: 30},
		{Date: day, Instrument: model.InstrumentSTRD, Notional: 70},
	})

	tests := []struct {
		name string
		sel  model.Selection
		want float64
	}{
		{"market cap only", model.Selection{}, 1.0},
		{"with debt", model.Selection{IncludeDebt: true}, 1.2},
		{"strk only", model.Selection{Instruments: []model.InstrumentKind{model.InstrumentSTRK}}, 1.03},
		{"everything", model.Selection{IncludeDebt: true, Instruments: model.KnownInstruments}, 1.3},
		{"unlisted instrument", model.Selection{Instruments: []model.InstrumentKind{model.InstrumentSTRC}}, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := CustomSeries([]model.CapitalStructureRecord{rec}, tt.sel, book)
			require.True(t, out[0].Mnav.Valid)
			assert.InDelta(t, tt.want, out[0].Mnav.Float64, 1e-12)
			assert.InDelta(t, tt.want*100, out[0].AdjustedPrice.Float64, 1e-9)
		})
	}
}

func TestNotionalBook(t *testing.T) {
	book := NewNotionalBook([]model.InstrumentNotional{
		{Date: day, Instrument: model.InstrumentSTRK, Notional: 30},
		{Date: day, Instrument: model.InstrumentSTRF, Notional: math.NaN()},
	})
	assert.Equal(t, 30.0, book.NotionalAt(model.InstrumentSTRK, day))
	assert.Equal(t, 0.0, book.NotionalAt(model.InstrumentSTRK, day.AddDate(0, 0, 1)))
	assert.Equal(t, 0.0, book.NotionalAt(model.InstrumentSTRC, day))
	assert.Equal(t, []model.InstrumentKind{model.InstrumentSTRK}, book.Kinds())
}

func TestAdjustedPriceSeries(t *testing.T) {
	records := []model.MnavRecord{
		{Date: day, NaiveAdjustedPrice: null.FloatFrom(10), AdvancedAdjustedPrice: null.FloatFrom(12)},
		{Date: day.AddDate(0, 0, 1), NaiveAdjustedPrice: null.FloatFrom(11)},
		{Date: day.AddDate(0, 0, 2), NaiveAdjustedPrice: null.FloatFrom(-1), AdvancedAdjustedPrice: null.FloatFrom(13)},
	}

	naive := AdjustedPriceSeries(records, model.VariantNaive)
	require.Len(t, naive, 2)
	assert.Equal(t, 11.0, naive[1].Price)

	advanced := AdjustedPriceSeries(records, model.VariantAdvanced)
	require.Len(t, advanced, 2)
	assert.Equal(t, day.AddDate(0, 0, 2), advanced[1].Date)
}
