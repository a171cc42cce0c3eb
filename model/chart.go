package model

import "github.com/guregu/null/v6"

// Halving 比特币减半标记
type Halving struct {
	Date        string `json:"date"`
	Label       string `json:"label"`
	BlockReward string `json:"blockReward"`
}

var Halvings = []Halving{
	{Date: "2012-11-28", Label: "1st Halving", BlockReward: "25 BTC"},
	{Date: "2016-07-09", Label: "2nd Halving", BlockReward: "12.5 BTC"},
	{Date: "2020-05-11", Label: "3rd Halving", BlockReward: "6.25 BTC"},
	{Date: "2024-04-20", Label: "4th Halving", BlockReward: "3.125 BTC"},
	{Date: "2028-04-01", Label: "5th Halving (Est.)", BlockReward: "1.5625 BTC"},
}

type Summary struct {
	LatestBtcPrice     null.Float `json:"latestBtcPrice"`
	LatestAdjusted     null.Float `json:"latestMnavAdjustedPrice"`
	LatestMnav         null.Float `json:"latestMnav"`
	MnavPremiumPercent null.Float `json:"mnavPremiumPercent"`
	BtcHoldings        null.Float `json:"btcHoldings"`
}

// ChartData 是交给渲染层的全部数据, 所有序列与 Axis 一一对齐, null 表示该日无数据
type ChartData struct {
	GeneratedAt  string        `json:"generatedAt"`
	RunID        string        `json:"runId"`
	Axis         []string      `json:"axis"`
	Spot         []null.Float  `json:"spot"`
	MnavAdjusted []null.Float  `json:"mnavAdjusted"`
	BtcModel     *RainbowModel `json:"rainbowModelBTC"`
	MnavModel    *RainbowModel `json:"rainbowModelMNAV"`
	BtcBands     []AlignedBand `json:"btcBands"`
	MnavBands    []AlignedBand `json:"mnavBands"`
	Halvings     []Halving     `json:"halvings"`
	Summary      Summary       `json:"summary"`
	Mnav         []MnavRecord  `json:"mnav"`

	CustomSelection Selection         `json:"customSelection"`
	Custom          []CustomMnavPoint `json:"custom"`
}

// AlignedBand 是对齐到 Axis 的档位, 缺失日期为 null
type AlignedBand struct {
	Kind         BandKind     `json:"kind"`
	Tier         int          `json:"tier"`
	PaletteIndex int          `json:"paletteIndex"`
	Color        string       `json:"color,omitempty"`
	Values       []null.Float `json:"values"`
}
