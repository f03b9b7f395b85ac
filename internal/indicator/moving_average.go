package indicator

import "ssl-backtest/internal/model"

// window is a fixed-size circular buffer over the trailing values of a series.
type window struct {
	buf       []float64
	idx       int // next write position
	count     int // values received, capped at len(buf)
	undefined int // undefined values currently inside the buffer
}

func newWindow(length int) *window {
	return &window{buf: make([]float64, length)}
}

func (w *window) push(v float64) {
	if w.count == len(w.buf) && !model.IsDefined(w.buf[w.idx]) {
		w.undefined--
	}
	if !model.IsDefined(v) {
		w.undefined++
	}
	w.buf[w.idx] = v
	w.idx = (w.idx + 1) % len(w.buf)
	if w.count < len(w.buf) {
		w.count++
	}
}

// mean is undefined until the window is full and while it holds any undefined value.
// The sum is taken oldest-first on every call so no drift builds up over long series.
func (w *window) mean() float64 {
	if w.count < len(w.buf) || w.undefined > 0 {
		return model.Undefined()
	}
	var sum float64
	for i := 0; i < len(w.buf); i++ {
		sum += w.buf[(w.idx+i)%len(w.buf)]
	}
	return sum / float64(len(w.buf))
}

// SMA returns the simple moving average of series over a trailing window.
// out[i] is undefined for i < length-1 and for any window containing an undefined value.
func SMA(series []float64, length int) ([]float64, error) {
	if err := ValidateLength(length); err != nil {
		return nil, err
	}
	w := newWindow(length)
	out := make([]float64, len(series))
	for i, v := range series {
		w.push(v)
		out[i] = w.mean()
	}
	return out, nil
}
