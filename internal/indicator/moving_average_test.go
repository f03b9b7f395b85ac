package indicator

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ssl-backtest/internal/model"
)

func assertSeries(t *testing.T, label string, got, want []float64) {
	t.Helper()
	require.Len(t, got, len(want), label)
	for i := range want {
		if !model.IsDefined(want[i]) {
			assert.False(t, model.IsDefined(got[i]), "%s[%d]: want undefined, got %.6f", label, i, got[i])
			continue
		}
		assert.InDelta(t, want[i], got[i], 1e-9, "%s[%d]", label, i)
	}
}

func TestSMA_Period3(t *testing.T) {
	// (100+102+104)/3 = 102, (102+104+103)/3 = 103, (104+103+105)/3 = 104
	nan := model.Undefined()
	got, err := SMA([]float64{100, 102, 104, 103, 105}, 3)
	require.NoError(t, err)
	assertSeries(t, "SMA(3)", got, []float64{nan, nan, 102, 103, 104})
}

func TestSMA_Period5(t *testing.T) {
	nan := model.Undefined()
	got, err := SMA([]float64{10, 11, 12, 13, 14, 15, 16}, 5)
	require.NoError(t, err)
	assertSeries(t, "SMA(5)", got, []float64{nan, nan, nan, nan, 12, 13, 14})
}

func TestSMA_Period1IsIdentity(t *testing.T) {
	in := []float64{3, 1, 4, 1, 5}
	got, err := SMA(in, 1)
	require.NoError(t, err)
	assertSeries(t, "SMA(1)", got, in)
}

func TestSMA_UndefinedInputPoisonsWindow(t *testing.T) {
	nan := model.Undefined()
	// the NaN at index 2 sits inside the windows ending at 2, 3 and 4
	got, err := SMA([]float64{1, 2, nan, 4, 5, 6, 7}, 3)
	require.NoError(t, err)
	assertSeries(t, "SMA(3)", got, []float64{nan, nan, nan, nan, nan, 5, 6})
}

func TestSMA_ShorterThanWindow(t *testing.T) {
	got, err := SMA([]float64{1, 2}, 10)
	require.NoError(t, err)
	for i, v := range got {
		assert.False(t, model.IsDefined(v), "index %d", i)
	}
}

func TestSMA_LongSeriesNoDrift(t *testing.T) {
	in := make([]float64, 10000)
	for i := range in {
		in[i] = 0.1 * float64(i%7)
	}
	got, err := SMA(in, 7)
	require.NoError(t, err)
	// every full window holds one full cycle: 0.1*(0+1+...+6)/7 = 0.3
	for i := 6; i < len(got); i++ {
		if math.Abs(got[i]-0.3) > 1e-12 {
			t.Fatalf("index %d: got %.15f, want 0.3", i, got[i])
		}
	}
}

func TestSMA_InvalidLength(t *testing.T) {
	for _, length := range []int{0, -3} {
		_, err := SMA([]float64{1, 2, 3}, length)
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrInvalidParameter))

		var pe *model.InvalidParameterError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, "length", pe.Name)
	}
}
