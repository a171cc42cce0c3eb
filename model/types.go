package model

import (
	"time"

	"github.com/guregu/null/v6"
)

type PricePoint struct {
	Date  time.Time `col:"date"  parquet:"date"  type:"date"`
	Price float64   `col:"price" parquet:"price"`
}

// CapitalStructureRecord 是公司某一日的资本结构快照。
// 所有数值字段可能缺失, 缺失即 null, 不是 0。
type CapitalStructureRecord struct {
	Date            time.Time  `col:"date"             type:"date"`
	ClassAShares    null.Float `col:"class_a_shares"`
	ClassBShares    null.Float `col:"class_b_shares"`
	ClassBtoA       null.Float `col:"class_b_to_a"`
	SharePrice      null.Float `col:"share_price"`
	EffectiveShares null.Float `col:"effective_shares"`
	MarketCap       null.Float `col:"market_cap"`
	Debt            null.Float `col:"debt"`
	Preferred       null.Float `col:"preferred"`
	SpotPrice       null.Float `col:"spot_price"`
	BtcHoldings     null.Float `col:"btc_holdings"`
}

// Field 标识 CapitalStructureRecord 中可被向前填充的列
type Field string

const (
	FieldClassAShares    Field = "class_a_shares"
	FieldClassBShares    Field = "class_b_shares"
	FieldClassBtoA       Field = "class_b_to_a"
	FieldSharePrice      Field = "share_price"
	FieldEffectiveShares Field = "effective_shares"
	FieldMarketCap       Field = "market_cap"
	FieldDebt            Field = "debt"
	FieldPreferred       Field = "preferred"
	FieldSpotPrice       Field = "spot_price"
	FieldBtcHoldings     Field = "btc_holdings"
)

// FieldRef 返回字段指针, 未知字段返回 nil
func (r *CapitalStructureRecord) FieldRef(f Field) *null.Float {
	switch f {
	case FieldClassAShares:
		return &r.ClassAShares
	case FieldClassBShares:
		return &r.ClassBShares
	case FieldClassBtoA:
		return &r.ClassBtoA
	case FieldSharePrice:
		return &r.SharePrice
	case FieldEffectiveShares:
		return &r.EffectiveShares
	case FieldMarketCap:
		return &r.MarketCap
	case FieldDebt:
		return &r.Debt
	case FieldPreferred:
		return &r.Preferred
	case FieldSpotPrice:
		return &r.SpotPrice
	case FieldBtcHoldings:
		return &r.BtcHoldings
	}
	return nil
}

// FilingRecord 是定期报告披露的稀疏记录: 股本, 可选的债务, 优先股与持币数
type FilingRecord struct {
	Date         time.Time  `col:"date"           type:"date"`
	ClassAShares null.Float `col:"class_a_shares"`
	ClassBShares null.Float `col:"class_b_shares"`
	ClassBtoA    null.Float `col:"class_b_to_a"`
	Debt         null.Float `col:"debt"`
	Preferred    null.Float `col:"preferred"`
	BtcHoldings  null.Float `col:"btc_holdings"`
}

// FilingFields 是默认从报告向前填充的字段
var FilingFields = []Field{
	FieldClassAShares,
	FieldClassBShares,
	FieldClassBtoA,
	FieldDebt,
	FieldPreferred,
	FieldBtcHoldings,
}

func (f FilingRecord) Capital() CapitalStructureRecord {
	return CapitalStructureRecord{
		Date:         f.Date,
		ClassAShares: f.ClassAShares,
		ClassBShares: f.ClassBShares,
		ClassBtoA:    f.ClassBtoA,
		Debt:         f.Debt,
		Preferred:    f.Preferred,
		BtcHoldings:  f.BtcHoldings,
	}
}

type InstrumentKind string

const (
	InstrumentSTRK InstrumentKind = "STRK"
	InstrumentSTRF InstrumentKind = "STRF"
	InstrumentSTRD InstrumentKind = "STRD"
	InstrumentSTRC InstrumentKind = "STRC"
)

var KnownInstruments = []InstrumentKind{
	InstrumentSTRK,
	InstrumentSTRF,
	InstrumentSTRD,
	InstrumentSTRC,
}

type InstrumentNotional struct {
	Date       time.Time      `col:"date"       type:"date"`
	Instrument InstrumentKind `col:"instrument"`
	Notional   float64        `col:"notional"`
}

// Selection 描述自定义 MNAV 变体包含哪些负债项
type Selection struct {
	IncludeDebt bool             `json:"includeDebt"`
	Instruments []InstrumentKind `json:"instruments"`
}

type MnavVariant string

const (
	VariantNaive    MnavVariant = "naive"
	VariantAdvanced MnavVariant = "advanced"
)

type MnavRecord struct {
	Date                  time.Time  `col:"date"                    type:"date" json:"date"`
	SpotPrice             null.Float `col:"spot_price"              json:"spotPrice"`
	BtcHoldings           null.Float `col:"btc_holdings"            json:"btcHoldings"`
	MarketCap             null.Float `col:"market_cap"              json:"marketCap"`
	Debt                  null.Float `col:"debt"                    json:"debt"`
	Preferred             null.Float `col:"preferred"               json:"preferred"`
	BtcNav                null.Float `col:"btc_nav"                 json:"btcNav"`
	NaiveMnav             null.Float `col:"naive_mnav"              json:"naiveMnav"`
	AdvancedMnav          null.Float `col:"advanced_mnav"           json:"advancedMnav"`
	NaiveAdjustedPrice    null.Float `col:"naive_adjusted_price"    json:"naiveAdjustedPrice"`
	AdvancedAdjustedPrice null.Float `col:"advanced_adjusted_price" json:"advancedAdjustedPrice"`
}

func (m MnavRecord) Mnav(v MnavVariant) null.Float {
	if v == VariantAdvanced {
		return m.AdvancedMnav
	}
	return m.NaiveMnav
}

func (m MnavRecord) AdjustedPrice(v MnavVariant) null.Float {
	if v == VariantAdvanced {
		return m.AdvancedAdjustedPrice
	}
	return m.NaiveAdjustedPrice
}

// Capital 还原计算自定义变体所需的资本结构字段
func (m MnavRecord) Capital() CapitalStructureRecord {
	return CapitalStructureRecord{
		Date:        m.Date,
		MarketCap:   m.MarketCap,
		Debt:        m.Debt,
		Preferred:   m.Preferred,
		SpotPrice:   m.SpotPrice,
		BtcHoldings: m.BtcHoldings,
	}
}

// MnavRow 是 MnavRecord 的 Parquet 行, 指针字段映射为 optional 列
type MnavRow struct {
	Date                  time.Time `parquet:"date"`
	SpotPrice             *float64  `parquet:"spot_price"`
	BtcHoldings           *float64  `parquet:"btc_holdings"`
	MarketCap             *float64  `parquet:"market_cap"`
	Debt                  *float64  `parquet:"debt"`
	Preferred             *float64  `parquet:"preferred"`
	BtcNav                *float64  `parquet:"btc_nav"`
	NaiveMnav             *float64  `parquet:"naive_mnav"`
	AdvancedMnav          *float64  `parquet:"advanced_mnav"`
	NaiveAdjustedPrice    *float64  `parquet:"naive_adjusted_price"`
	AdvancedAdjustedPrice *float64  `parquet:"advanced_adjusted_price"`
}

func (m MnavRecord) Row() MnavRow {
	return MnavRow{
		Date:                  m.Date,
		SpotPrice:             m.SpotPrice.Ptr(),
		BtcHoldings:           m.BtcHoldings.Ptr(),
		MarketCap:             m.MarketCap.Ptr(),
		Debt:                  m.Debt.Ptr(),
		Preferred:             m.Preferred.Ptr(),
		BtcNav:                m.BtcNav.Ptr(),
		NaiveMnav:             m.NaiveMnav.Ptr(),
		AdvancedMnav:          m.AdvancedMnav.Ptr(),
		NaiveAdjustedPrice:    m.NaiveAdjustedPrice.Ptr(),
		AdvancedAdjustedPrice: m.AdvancedAdjustedPrice.Ptr(),
	}
}

// CustomMnavPoint 是自定义变体在某一日的结果
type CustomMnavPoint struct {
	Date          time.Time  `json:"date"`
	Mnav          null.Float `json:"mnav"`
	AdjustedPrice null.Float `json:"adjustedPrice"`
}

// RainbowModel 拟合曲线 price(x) = exp(A*ln(B+x)+C) 的参数, x 为从 1 开始的观测序号
type RainbowModel struct {
	A         float64 `json:"a"`
	B         float64 `json:"b"`
	C         float64 `json:"c"`
	BandWidth float64 `json:"bandWidth"`
	NumBands  int     `json:"numBands"`
	IDecrease float64 `json:"iDecrease"`
}

// FittedModel 是一次刷新中某条序列的拟合结果, 落库用
type FittedModel struct {
	RunID     string    `col:"run_id"`
	Series    string    `col:"series"`
	FittedAt  time.Time `col:"fitted_at"  type:"datetime"`
	Points    int64     `col:"points"`
	SSE       float64   `col:"sse"`
	A         float64   `col:"a"`
	B         float64   `col:"b"`
	C         float64   `col:"c"`
	BandWidth float64   `col:"band_width"`
	NumBands  int64     `col:"num_bands"`
	IDecrease float64   `col:"i_decrease"`
}

func (f FittedModel) Model() *RainbowModel {
	return &RainbowModel{
		A:         f.A,
		B:         f.B,
		C:         f.C,
		BandWidth: f.BandWidth,
		NumBands:  int(f.NumBands),
		IDecrease: f.IDecrease,
	}
}

type BandKind string

const (
	BandKindSeed BandKind = "seed"
	BandKindTier BandKind = "tier"
)

// Band 是某一估值档位的上边界序列; Seed 只作为最低档填充的下边界, 不着色
type Band struct {
	Kind         BandKind  `json:"kind"`
	Tier         int       `json:"tier"`
	PaletteIndex int       `json:"paletteIndex"`
	Color        string    `json:"color,omitempty"`
	Offset       float64   `json:"offset"`
	Values       []float64 `json:"values"`
}

// BandRow 是长表格式的 Parquet 行
type BandRow struct {
	Series string    `parquet:"series,dict"`
	Kind   string    `parquet:"kind,dict"`
	Tier   int64     `parquet:"tier"`
	Index  int64     `parquet:"idx"`
	Date   time.Time `parquet:"date"`
	Value  float64   `parquet:"value"`
}
