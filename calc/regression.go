package calc

import (
	"math"

	"github.com/posix4e/btc-mnav-rainbow/model"
)

const (
	// MinFitPoints 少于该数量的有效点不拟合
	MinFitPoints = 10

	coarseSteps  = 100
	refineSteps  = 50
	refineRounds = 3
	minStep      = 1e-6
	minDenom     = 1e-12
)

// FitResult 是拟合的完整输出, 包含残差平方和与实际使用的点数
type FitResult struct {
	Model  *model.RainbowModel
	SSE    float64
	Points int
}

type candidate struct {
	a, b, c float64
	sse     float64
}

// Fit 用网格搜索最小二乘拟合 y = a*ln(b+x) + c, 其中 y = ln(price), x 为从 1 开始的序号。
// 有效点不足 MinFitPoints 时返回 nil。
func Fit(series []model.PricePoint, params model.ModelParams) *model.RainbowModel {
	return FitDetailed(series, params).Model
}

func FitDetailed(series []model.PricePoint, params model.ModelParams) FitResult {
	y := make([]float64, 0, len(series))
	for _, p := range series {
		if isFinite(p.Price) && p.Price > 0 {
			y = append(y, math.Log(p.Price))
		}
	}
	n := len(y)
	if n < MinFitPoints {
		return FitResult{Points: n}
	}

	x := make([]float64, n)
	for i := range x {
		x[i] = float64(i + 1)
	}

	bMin := 0.0
	bMax := math.Min(10000, math.Max(2000, float64(2*n)))
	best := candidate{sse: math.Inf(1)}
	lnX := make([]float64, n)

	evalB := func(b float64) {
		for i, v := range x {
			lnX[i] = math.Log(b + v)
		}
		a, c := linRegress(lnX, y)
		sse := 0.0
		for i := range y {
			e := y[i] - (a*lnX[i] + c)
			sse += e * e
		}
		if sse < best.sse {
			best = candidate{a: a, b: b, c: c, sse: sse}
		}
	}

	// 粗搜索: 101 个等距点
	step := (bMax - bMin) / coarseSteps
	for i := 0; i <= coarseSteps; i++ {
		evalB(bMin + float64(i)*step)
	}

	// 细化: 每轮在当前最优点两侧各 2*step 的窗口内取 51 个点
	for round := 0; round < refineRounds; round++ {
		span := step * 2
		left := math.Max(bMin, best.b-span)
		right := math.Min(bMax, best.b+span)
		next := (right - left) / refineSteps
		for i := 0; i <= refineSteps; i++ {
			evalB(left + float64(i)*next)
		}
		step = math.Max(next, minStep)
	}

	return FitResult{
		Model: &model.RainbowModel{
			A:         best.a,
			B:         best.b,
			C:         best.c,
			BandWidth: params.BandWidth,
			NumBands:  params.NumBands,
			IDecrease: params.IDecrease,
		},
		SSE:    best.sse,
		Points: n,
	}
}

// linRegress 普通最小二乘, 返回斜率与截距
func linRegress(xs, ys []float64) (slope, intercept float64) {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	if n == 0 {
		return 0, 0
	}
	var sumX, sumY, sumXX, sumXY float64
	for i := 0; i < n; i++ {
		sumX += xs[i]
		sumY += ys[i]
		sumXX += xs[i] * xs[i]
		sumXY += xs[i] * ys[i]
	}
	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		denom = minDenom
	}
	slope = (fn*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / fn
	return slope, intercept
}

// Predict 返回第 x 个观测 (从 1 开始) 的模型价格
func Predict(m *model.RainbowModel, x float64) float64 {
	return math.Exp(m.A*math.Log(m.B+x) + m.C)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
