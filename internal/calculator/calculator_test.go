package calculator

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WeeklyStockPrice/internal/apperr"
	"WeeklyStockPrice/internal/model"
)

var t0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func seriesOf(prices ...float64) model.TimeSeries {
	s := model.TimeSeries{Symbol: "TEST", Interval: model.Interval1d}
	for i, p := range prices {
		s.Points = append(s.Points, model.PriceObservation{
			Time:  t0.AddDate(0, 0, i),
			Price: decimal.NewFromFloat(p),
		})
	}
	return s
}

func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func TestComputeTrend_Up(t *testing.T) {
	res, err := ComputeTrend(seriesOf(100, 110), DefaultEpsilon)
	require.NoError(t, err)
	assert.Equal(t, model.DirectionUp, res.Direction)
	assert.True(t, res.PercentChange.Equal(dec(10)), "got %s", res.PercentChange)
	assert.True(t, res.AbsoluteChange.Equal(dec(10)), "got %s", res.AbsoluteChange)
	assert.Equal(t, 2, res.SampleCount)
}

func TestComputeTrend_DownAndFlat(t *testing.T) {
	res, err := ComputeTrend(seriesOf(200, 150, 100), DefaultEpsilon)
	require.NoError(t, err)
	assert.Equal(t, model.DirectionDown, res.Direction)
	assert.True(t, res.PercentChange.Equal(dec(-50)))

	// 0.005% is inside the 0.01% band.
	res, err = ComputeTrend(seriesOf(100000, 100005), DefaultEpsilon)
	require.NoError(t, err)
	assert.Equal(t, model.DirectionFlat, res.Direction)
}

func TestComputeTrend_Insufficient(t *testing.T) {
	_, err := ComputeTrend(seriesOf(), DefaultEpsilon)
	assert.ErrorIs(t, err, apperr.ErrInsufficientData)

	_, err = ComputeTrend(seriesOf(100), DefaultEpsilon)
	assert.ErrorIs(t, err, apperr.ErrInsufficientData)
}

func TestComputeTrend_DirectionMatchesSign(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		n := 2 + rng.Intn(30)
		prices := make([]float64, n)
		for j := range prices {
			prices[j] = 1 + rng.Float64()*500
		}
		s := seriesOf(prices...)
		res, err := ComputeTrend(s, DefaultEpsilon)
		require.NoError(t, err)

		diff := s.Last().Price.Sub(s.First().Price)
		pct := diff.Div(s.First().Price).Mul(decimal.NewFromInt(100))
		switch {
		case pct.GreaterThan(DefaultEpsilon):
			assert.Equal(t, model.DirectionUp, res.Direction)
		case pct.LessThan(DefaultEpsilon.Neg()):
			assert.Equal(t, model.DirectionDown, res.Direction)
		default:
			assert.Equal(t, model.DirectionFlat, res.Direction)
		}
	}
}

func TestCalculateSMA(t *testing.T) {
	prices := seriesOf(1, 2, 3, 4, 5).Prices()
	ma, err := CalculateSMA(prices, 2)
	require.NoError(t, err)
	assert.True(t, ma.Equal(dec(4.5)))

	_, err = CalculateSMA(prices, 6)
	assert.ErrorIs(t, err, apperr.ErrInsufficientData)

	_, err = CalculateSMA(prices, 0)
	assert.Error(t, err)
}

func TestMovingAverages_OmitsOversizedWindows(t *testing.T) {
	mas := MovingAverages(seriesOf(10, 20, 30), []int{5})
	assert.Empty(t, mas)

	mas = MovingAverages(seriesOf(10, 20, 30), []int{1, 3, 5})
	require.Len(t, mas, 2)
	assert.True(t, mas[1].Equal(dec(30)))
	assert.True(t, mas[3].Equal(dec(20)))
}

func TestNormalizeWindows(t *testing.T) {
	got, err := NormalizeWindows([]int{50, 5, 20, 5})
	require.NoError(t, err)
	assert.Equal(t, []int{5, 20, 50}, got)

	_, err = NormalizeWindows([]int{5, 0})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestVolatility(t *testing.T) {
	assert.True(t, Volatility(seriesOf(100)).IsZero())
	assert.True(t, Volatility(seriesOf(100, 110)).IsZero())

	// Returns +10% and -10%: sample stddev = sqrt(200).
	v := Volatility(seriesOf(100, 110, 99))
	assert.InDelta(t, 14.14213562, v.InexactFloat64(), 1e-6)

	assert.True(t, Volatility(seriesOf(50, 50, 50, 50)).IsZero())
}

func TestMomentum(t *testing.T) {
	assert.True(t, Momentum(seriesOf(100), 0.2, 2).IsZero())

	// 3 samples * 0.2 rounds up to 1, raised to the 2-sample minimum.
	m := Momentum(seriesOf(100, 100, 110), 0.2, 2)
	assert.True(t, m.Equal(dec(10)), "got %s", m)

	// 10 samples * 0.5 = last 5 samples: 104 -> 109.
	s := seriesOf(100, 101, 102, 103, 104, 105, 106, 107, 108, 109)
	m = Momentum(s, 0.5, 2)
	want := dec(4).Div(dec(105)).Mul(decimal.NewFromInt(100))
	assert.True(t, m.Equal(want), "got %s want %s", m, want)

	// Sub-window never exceeds the series.
	m = Momentum(seriesOf(100, 120), 1, 10)
	assert.True(t, m.Equal(dec(20)))
}

func TestCalculateRSI(t *testing.T) {
	rising := make([]float64, 20)
	for i := range rising {
		rising[i] = float64(100 + i)
	}
	rsi, err := CalculateRSI(seriesOf(rising...).Prices(), 14)
	require.NoError(t, err)
	assert.True(t, rsi.Equal(decimal.NewFromInt(100)))

	alternating := []float64{100, 101, 100, 101, 100, 101, 100, 101, 100, 101, 100, 101, 100, 101, 100, 101}
	rsi, err = CalculateRSI(seriesOf(alternating...).Prices(), 14)
	require.NoError(t, err)
	assert.InDelta(t, 50, rsi.InexactFloat64(), 5)

	_, err = CalculateRSI(seriesOf(1, 2, 3).Prices(), 14)
	assert.ErrorIs(t, err, apperr.ErrInsufficientData)
}

func TestHighLowAndPosition(t *testing.T) {
	high, low, err := HighLow(seriesOf(5, 9, 1, 7))
	require.NoError(t, err)
	assert.True(t, high.Equal(dec(9)))
	assert.True(t, low.Equal(dec(1)))

	_, _, err = HighLow(seriesOf())
	assert.ErrorIs(t, err, apperr.ErrInsufficientData)

	assert.True(t, Position(dec(5), dec(9), dec(1)).Equal(dec(0.5)))
	assert.True(t, Position(dec(12), dec(9), dec(1)).Equal(dec(1)))
	assert.True(t, Position(dec(0), dec(9), dec(1)).IsZero())
	assert.True(t, Position(dec(3), dec(3), dec(3)).Equal(dec(0.5)))
}

func TestComputeAnalysis(t *testing.T) {
	res := ComputeAnalysis(seriesOf(10, 20, 30), []int{5}, DefaultConfig())
	assert.Empty(t, res.MovingAverages)
	assert.Equal(t, 3, res.SampleCount)
	assert.Nil(t, res.RSI)
	assert.True(t, res.High.Equal(dec(30)))
	assert.True(t, res.Low.Equal(dec(10)))

	single := ComputeAnalysis(seriesOf(42), []int{1, 5}, DefaultConfig())
	assert.True(t, single.Volatility.IsZero())
	assert.True(t, single.Momentum.IsZero())
	assert.True(t, single.MovingAverages[1].Equal(dec(42)))

	pair := ComputeAnalysis(seriesOf(100, 110), nil, DefaultConfig())
	assert.True(t, pair.Volatility.IsZero(), "one return has no spread")
	assert.True(t, pair.Momentum.Equal(dec(10)), "got %s", pair.Momentum)
}

func TestComputeAnalysis_Deterministic(t *testing.T) {
	s := seriesOf(100, 103, 101, 105, 108, 104, 110, 111, 109, 115, 117, 116, 120, 119, 121, 125)
	a := ComputeAnalysis(s, []int{3, 5, 10}, DefaultConfig())
	b := ComputeAnalysis(s, []int{3, 5, 10}, DefaultConfig())
	assert.Equal(t, a, b)
	require.NotNil(t, a.RSI)
}

func TestFridaysBefore(t *testing.T) {
	wed := time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)
	this, last := FridaysBefore(wed)
	assert.Equal(t, "2024-05-10", this.Format(DateLayout))
	assert.Equal(t, "2024-05-03", last.Format(DateLayout))

	fri := time.Date(2024, 5, 17, 23, 0, 0, 0, time.UTC)
	this, _ = FridaysBefore(fri)
	assert.Equal(t, "2024-05-17", this.Format(DateLayout))

	sun := time.Date(2024, 5, 19, 1, 0, 0, 0, time.UTC)
	this, _ = FridaysBefore(sun)
	assert.Equal(t, "2024-05-17", this.Format(DateLayout))
}

func TestComputeWeeklyStats(t *testing.T) {
	// Weekdays from Mon 2024-04-29 to Wed 2024-05-15, with Fri 2024-05-10 missing.
	s := model.TimeSeries{Symbol: "259960.KS", Interval: model.Interval1d}
	price := 100.0
	for d := time.Date(2024, 4, 29, 0, 0, 0, 0, time.UTC); d.Before(time.Date(2024, 5, 16, 0, 0, 0, 0, time.UTC)); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		price++
		if d.Format(DateLayout) == "2024-05-10" {
			continue
		}
		s.Points = append(s.Points, model.PriceObservation{Time: d, Price: dec(price)})
	}

	stats, err := ComputeWeeklyStats(s, time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	// Fri 05-03 is the 5th weekday (105); Thu 05-09 is the 9th (109) and stands in for Fri 05-10.
	assert.True(t, stats.LastWeekClose.Equal(dec(105)), "got %s", stats.LastWeekClose)
	assert.True(t, stats.Close.Equal(dec(109)), "got %s", stats.Close)
	assert.True(t, stats.ChangeRate.Equal(dec(3.81)), "got %s", stats.ChangeRate)
	assert.True(t, stats.WeekHigh.Equal(dec(109)))
	assert.True(t, stats.WeekLow.Equal(dec(106)))

	_, err = ComputeWeeklyStats(seriesOf(), time.Now())
	assert.ErrorIs(t, err, apperr.ErrInsufficientData)
}

func TestComputeWeeklyStats_RangeExcludesPriorWeek(t *testing.T) {
	s := model.TimeSeries{Symbol: "7974.T", Interval: model.Interval1d, Points: []model.PriceObservation{
		{Time: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), Price: dec(90)},
		{Time: time.Date(2024, 5, 7, 0, 0, 0, 0, time.UTC), Price: dec(120)},
		{Time: time.Date(2024, 5, 8, 0, 0, 0, 0, time.UTC), Price: dec(110)},
	}}

	// Mon 05-06 is closed, so the week 05-06..05-10 spans 05-07 and 05-08 only.
	stats, err := ComputeWeeklyStats(s, time.Date(2024, 5, 11, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, stats.Close.Equal(dec(110)), "got %s", stats.Close)
	assert.True(t, stats.WeekHigh.Equal(dec(120)), "got %s", stats.WeekHigh)
	assert.True(t, stats.WeekLow.Equal(dec(110)), "got %s", stats.WeekLow)
}

func TestComputeWeeklyStats_ClosedWeek(t *testing.T) {
	s := model.TimeSeries{Symbol: "7974.T", Interval: model.Interval1d, Points: []model.PriceObservation{
		{Time: time.Date(2024, 4, 22, 0, 0, 0, 0, time.UTC), Price: dec(80)},
		{Time: time.Date(2024, 4, 25, 0, 0, 0, 0, time.UTC), Price: dec(95)},
	}}

	// Nothing traded in 04-29..05-03; both closes carry forward from 04-25.
	stats, err := ComputeWeeklyStats(s, time.Date(2024, 5, 4, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, stats.Close.Equal(dec(95)))
	assert.True(t, stats.WeekHigh.Equal(dec(95)), "got %s", stats.WeekHigh)
	assert.True(t, stats.WeekLow.Equal(dec(95)), "got %s", stats.WeekLow)
}
