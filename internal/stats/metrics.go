package stats

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// Mean returns the arithmetic mean of xs, or 0 for empty input.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// Std returns the population standard deviation of xs (divide by N, not N-1),
// or 0 for empty input.
func Std(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := Mean(xs)
	var sum float64
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)))
}

// Quantiles holds the median and 90th percentile of a sample.
type Quantiles struct {
	Median float64
	P90    float64
}

// Quantile computes median and P90 from an ascending-sorted sample.
// The median averages the two middle elements for even N. The P90 uses the
// nearest-rank element at floor(0.9*(N-1)), not interpolation.
// Returns zeros for empty input.
func Quantile(sorted []float64) Quantiles {
	n := len(sorted)
	if n == 0 {
		return Quantiles{}
	}

	var median float64
	if n%2 == 1 {
		median = sorted[n/2]
	} else {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	p90 := sorted[int(math.Floor(0.9*float64(n-1)))]
	return Quantiles{Median: median, P90: p90}
}

// LinearTrendSlope returns the ordinary-least-squares slope of ys against
// the index sequence 0..N-1, or 0 when N <= 1.
func LinearTrendSlope(ys []float64) float64 {
	n := len(ys)
	if n <= 1 {
		return 0
	}

	xMean := float64(n-1) / 2
	yMean := Mean(ys)

	var num, den float64
	for i, y := range ys {
		dx := float64(i) - xMean
		num += dx * (y - yMean)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// SpearmanRho returns the Spearman rank correlation between the natural
// index order 1..N and the midranks of ys, via 1 - 6*sum(d^2)/(N*(N^2-1)).
// Ties in ys receive their average rank. Returns 0 for N <= 1.
func SpearmanRho(ys []float64) float64 {
	n := len(ys)
	if n <= 1 {
		return 0
	}

	ranks := midranks(ys)
	var sumD2 float64
	for i, r := range ranks {
		d := float64(i+1) - r
		sumD2 += d * d
	}

	nf := float64(n)
	return 1 - 6*sumD2/(nf*(nf*nf-1))
}

// midranks assigns 1-based ranks to ys, averaging ranks across ties.
func midranks(ys []float64) []float64 {
	n := len(ys)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return ys[order[a]] < ys[order[b]] })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && ys[order[j+1]] == ys[order[i]] {
			j++
		}
		// positions i..j hold equal values; average of ranks i+1..j+1
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[order[k]] = avg
		}
		i = j + 1
	}
	return ranks
}

// Tokenize lowercases text, keeps latin alphanumerics, '#' and CJK
// ideographs, turns everything else into separators, and returns the
// non-empty tokens.
func Tokenize(text string) []string {
	mapped := strings.Map(func(r rune) rune {
		r = unicode.ToLower(r)
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '#':
			return r
		case unicode.Is(unicode.Han, r):
			return r
		default:
			return ' '
		}
	}, text)
	return strings.Fields(mapped)
}
