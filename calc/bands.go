package calc

import (
	"math"

	"github.com/posix4e/btc-mnav-rainbow/model"
)

// Palette 彩虹档位颜色, 自下而上
var Palette = []string{
	"#4472c4", // Fire sale!
	"#54989f", // BUY!
	"#63be7b", // Accumulate
	"#b1d580", // Still cheap
	"#feeb84", // HODL!
	"#f6b45a", // Is this a bubble?
	"#ed7d31", // FOMO Intensifies
	"#d64018", // Sell. Seriously, SELL!
	"#c00200", // Maximum bubble territory
}

// Baseline 计算模型中心线, 第 i 个值对应 x = i+1
func Baseline(m *model.RainbowModel, length int) []float64 {
	if m == nil || length <= 0 {
		return nil
	}
	out := make([]float64, length)
	for i := range out {
		out[i] = Predict(m, float64(i+1))
	}
	return out
}

// Bands 生成 NumBands+1 条边界: 第一条是不着色的种子下边界, 其余为各档上边界。
// NumBands 超过调色板长度时颜色取最后一个, 不报错。
func Bands(m *model.RainbowModel, length int) []model.Band {
	baseline := Baseline(m, length)
	if len(baseline) == 0 {
		return []model.Band{}
	}

	bands := make([]model.Band, 0, m.NumBands+1)

	seedOffset := (0-m.IDecrease)*m.BandWidth - m.BandWidth
	bands = append(bands, model.Band{
		Kind:         model.BandKindSeed,
		Tier:         -1,
		PaletteIndex: -1,
		Offset:       seedOffset,
		Values:       shiftLog(baseline, seedOffset),
	})

	for k := 0; k < m.NumBands; k++ {
		offset := (float64(k) - m.IDecrease) * m.BandWidth
		idx := PaletteIndex(k)
		bands = append(bands, model.Band{
			Kind:         model.BandKindTier,
			Tier:         k,
			PaletteIndex: idx,
			Color:        Palette[idx],
			Offset:       offset,
			Values:       shiftLog(baseline, offset),
		})
	}

	return bands
}

// PaletteIndex 档位 k 对应的颜色下标
func PaletteIndex(k int) int {
	if k < 0 {
		return 0
	}
	return min(k, len(Palette)-1)
}

func shiftLog(baseline []float64, offset float64) []float64 {
	out := make([]float64, len(baseline))
	for i, v := range baseline {
		out[i] = math.Exp(math.Log(v) + offset)
	}
	return out
}
