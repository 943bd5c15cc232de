package exposure

import (
	"math"
	"sort"
)

// SeriesPair names one (pollutant, mood-axis) combination to correlate
type SeriesPair struct {
	Pollutant string `json:"pollutant"`
	Axis      string `json:"axis"`
}

// PairResult is a correlation computed across windows for one pair
type PairResult struct {
	Pair   SeriesPair        `json:"pair"`
	Result CorrelationResult `json:"result"`
}

// WindowPairResult is a correlation computed inside one window for one pair
type WindowPairResult struct {
	Window WindowKey         `json:"window"`
	Pair   SeriesPair        `json:"pair"`
	Result CorrelationResult `json:"result"`
}

// PollutantMoodPairs builds the full pollutant x axis grid
func PollutantMoodPairs(pollutants, axes []string) []SeriesPair {
	pairs := make([]SeriesPair, 0, len(pollutants)*len(axes))
	for _, p := range pollutants {
		for _, a := range axes {
			pairs = append(pairs, SeriesPair{Pollutant: p, Axis: a})
		}
	}
	return pairs
}

// Correlate computes the Pearson coefficient and two-sided p-value for two
// series paired by index. Indices where either side is missing are dropped
// first (pairwise complete cases); an index beyond the shorter series has no
// partner and is likewise dropped. Fewer than 2 complete pairs or a constant
// series produce the matching explicit outcome instead of a number.
func Correlate(xs, ys []*float64) CorrelationResult {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}

	var px, py []float64
	for i := 0; i < n; i++ {
		if xs[i] == nil || ys[i] == nil {
			continue
		}
		px = append(px, *xs[i])
		py = append(py, *ys[i])
	}

	if len(px) < 2 {
		return CorrelationResult{Outcome: OutcomeInsufficientData, N: len(px)}
	}

	meanX := 0.0
	meanY := 0.0
	for i := range px {
		meanX += px[i]
		meanY += py[i]
	}
	meanX /= float64(len(px))
	meanY /= float64(len(py))

	sxx := 0.0
	syy := 0.0
	sxy := 0.0
	for i := range px {
		dx := px[i] - meanX
		dy := py[i] - meanY
		sxx += dx * dx
		syy += dy * dy
		sxy += dx * dy
	}

	if sxx == 0 || syy == 0 {
		return CorrelationResult{Outcome: OutcomeZeroVariance, N: len(px)}
	}

	r := sxy / math.Sqrt(sxx*syy)
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}

	return CorrelationResult{
		Outcome:     OutcomeDefined,
		Coefficient: r,
		PValue:      twoSidedPValue(r, len(px)),
		N:           len(px),
	}
}

// CorrelatePairs correlates each pair across the joined windows of an aligned
// table: pollutant means from the left side against mood-axis means from the
// right. Results are independent per pair.
func CorrelatePairs(rows []AlignedRow, pairs []SeriesPair) []PairResult {
	results := make([]PairResult, len(pairs))
	for i, pair := range pairs {
		xs := make([]*float64, len(rows))
		ys := make([]*float64, len(rows))
		for j, row := range rows {
			xs[j] = row.Left[pair.Pollutant]
			ys[j] = row.Right[pair.Axis]
		}
		results[i] = PairResult{Pair: pair, Result: Correlate(xs, ys)}
	}
	return results
}

// CorrelateWindowed correlates each pair within every window separately,
// pairing the pollutant and axis columns across the records that fall inside
// that window. Output is ordered by window start, then by pair declaration
// order.
func CorrelateWindowed(rows []NumericRow, pairs []SeriesPair, g Granularity) []WindowPairResult {
	buckets := make(map[WindowKey][]NumericRow)
	for _, row := range rows {
		key := WindowOf(row.Timestamp, g)
		buckets[key] = append(buckets[key], row)
	}

	keys := make([]WindowKey, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Start.Before(keys[j].Start)
	})

	var results []WindowPairResult
	for _, key := range keys {
		windowRows := buckets[key]
		for _, pair := range pairs {
			xs := make([]*float64, len(windowRows))
			ys := make([]*float64, len(windowRows))
			for j, row := range windowRows {
				xs[j] = row.Columns[pair.Pollutant]
				ys[j] = row.Columns[pair.Axis]
			}
			results = append(results, WindowPairResult{
				Window: key,
				Pair:   pair,
				Result: Correlate(xs, ys),
			})
		}
	}

	return results
}

// twoSidedPValue computes the two-sided significance of a Pearson coefficient
// under Student's t with n-2 degrees of freedom
func twoSidedPValue(r float64, n int) float64 {
	nu := float64(n - 2)
	rr := r * r
	if rr >= 1 {
		// |r| = 1 means an exact linear fit; the t statistic diverges
		return 0
	}
	if nu <= 0 {
		// Two complete pairs short of an exact fit only happens by rounding;
		// with zero degrees of freedom the test carries no information
		return 1
	}

	t := r * math.Sqrt(nu/(1-rr))
	x := nu / (nu + t*t)
	return regularizedIncompleteBeta(nu/2, 0.5, x)
}

// regularizedIncompleteBeta evaluates I_x(a, b) via the continued-fraction
// expansion, switching to the symmetric form when x is past the distribution
// bulk so the fraction converges quickly
func regularizedIncompleteBeta(a, b, x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}

	lgA, _ := math.Lgamma(a)
	lgB, _ := math.Lgamma(b)
	lgAB, _ := math.Lgamma(a + b)
	front := math.Exp(lgAB - lgA - lgB + a*math.Log(x) + b*math.Log(1-x))

	if x < (a+1)/(a+b+2) {
		return front * betaContinuedFraction(a, b, x) / a
	}
	return 1 - front*betaContinuedFraction(b, a, 1-x)/b
}

// betaContinuedFraction runs the modified Lentz iteration for the incomplete
// beta continued fraction
func betaContinuedFraction(a, b, x float64) float64 {
	const maxIterations = 200
	const epsilon = 3.0e-14
	const tiny = 1.0e-30

	qab := a + b
	qap := a + 1
	qam := a - 1

	c := 1.0
	d := 1 - qab*x/qap
	if math.Abs(d) < tiny {
		d = tiny
	}
	d = 1 / d
	h := d

	for m := 1; m <= maxIterations; m++ {
		fm := float64(m)
		m2 := 2 * fm

		aa := fm * (b - fm) * x / ((qam + m2) * (a + m2))
		d = 1 + aa*d
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = 1 + aa/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1 / d
		h *= d * c

		aa = -(a + fm) * (qab + fm) * x / ((a + m2) * (qap + m2))
		d = 1 + aa*d
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = 1 + aa/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1 / d
		del := d * c
		h *= del

		if math.Abs(del-1) < epsilon {
			break
		}
	}

	return h
}
