// Package stats provides the numeric helpers shared by the detection,
// bucket and review pipelines. All functions are pure and tolerate empty
// input by returning zero values rather than erroring.
package stats

import (
	"math"
	"sort"
)

// Mean returns the arithmetic mean of xs, or 0 for empty input.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := 0.0
	for _, v := range xs {
		s += v
	}
	return s / float64(len(xs))
}

// Median returns the median of xs, or 0 for empty input.
// The input slice is not modified.
func Median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	cp := append([]float64(nil), xs...)
	sort.Float64s(cp)
	mid := len(cp) / 2
	if len(cp)%2 == 1 {
		return cp[mid]
	}
	return 0.5 * (cp[mid-1] + cp[mid])
}

// StdDev returns the population standard deviation of xs.
func StdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := Mean(xs)
	ss := 0.0
	for _, v := range xs {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}

// Quartiles returns the first and third quartiles of xs using the
// median-of-halves method. Returns (0, 0) for fewer than 4 samples.
func Quartiles(xs []float64) (q1, q3 float64) {
	if len(xs) < 4 {
		return 0, 0
	}
	cp := append([]float64(nil), xs...)
	sort.Float64s(cp)
	mid := len(cp) / 2
	lower := cp[:mid]
	upper := cp[mid:]
	if len(cp)%2 == 1 {
		upper = cp[mid+1:]
	}
	return Median(lower), Median(upper)
}

// Outliers returns the values of xs falling outside the 1.5*IQR fences.
// Fewer than 4 samples yields no outliers.
func Outliers(xs []float64) []float64 {
	if len(xs) < 4 {
		return nil
	}
	q1, q3 := Quartiles(xs)
	iqr := q3 - q1
	lo := q1 - 1.5*iqr
	hi := q3 + 1.5*iqr

	var out []float64
	for _, v := range xs {
		if v < lo || v > hi {
			out = append(out, v)
		}
	}
	return out
}

// Correlation returns the Pearson correlation coefficient of paired
// samples. Mismatched lengths or zero variance yield 0.
func Correlation(xs, ys []float64) float64 {
	if len(xs) != len(ys) || len(xs) < 2 {
		return 0
	}
	mx, my := Mean(xs), Mean(ys)
	var num, dx, dy float64
	for i := range xs {
		a := xs[i] - mx
		b := ys[i] - my
		num += a * b
		dx += a * a
		dy += b * b
	}
	if dx == 0 || dy == 0 {
		return 0
	}
	return num / math.Sqrt(dx*dy)
}

// RollingMean returns the trailing-window mean series of xs. Each output
// element i is the mean of xs[max(0,i-window+1)..i]. A window < 1 is
// treated as 1.
func RollingMean(xs []float64, window int) []float64 {
	if window < 1 {
		window = 1
	}
	out := make([]float64, len(xs))
	sum := 0.0
	for i, v := range xs {
		sum += v
		if i >= window {
			sum -= xs[i-window]
		}
		n := i + 1
		if n > window {
			n = window
		}
		out[i] = sum / float64(n)
	}
	return out
}

// Normalize scales xs linearly into [0,1]. A constant series maps to all
// zeros. The input slice is not modified.
func Normalize(xs []float64) []float64 {
	out := make([]float64, len(xs))
	if len(xs) == 0 {
		return out
	}
	lo, hi := xs[0], xs[0]
	for _, v := range xs {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi == lo {
		return out
	}
	for i, v := range xs {
		out[i] = (v - lo) / (hi - lo)
	}
	return out
}

// Fraction returns the fraction of xs satisfying pred, or 0 for empty input.
func Fraction(xs []float64, pred func(float64) bool) float64 {
	if len(xs) == 0 {
		return 0
	}
	n := 0
	for _, v := range xs {
		if pred(v) {
			n++
		}
	}
	return float64(n) / float64(len(xs))
}

// Clamp limits x to the [lo, hi] interval.
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Clamp01 limits x to the unit interval. Every probability, confidence
// and heuristic score in this repository passes through here before it
// is surfaced.
func Clamp01(x float64) float64 {
	return Clamp(x, 0, 1)
}
