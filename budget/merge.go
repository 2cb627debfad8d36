package budget

import "math"

var invPhi = (math.Sqrt(5) - 1) / 2

const (
	defaultTolerance = 1e-6
	bracketSteps     = 20
)

// mergePlan describes merging element j into element i.
type mergePlan struct {
	i, j        int
	k           float64 // K(x_i, x_j)
	kMax        float64 // weight of x_i in the merged vector
	kA, kB      float64 // K(x_i, z), K(x_j, z)
	degradation float64
}

func alphaAt(a []float64, c int) float64 {
	if c < len(a) {
		return a[c]
	}
	return 0
}

// mergeObjective returns Σ_c (α_ic·k^((1−h)²) + α_jc·k^(h²))², the squared
// norm of the merged alphas for coefficient h.
func mergeObjective(ai, aj []float64, k, h float64) float64 {
	ka := math.Pow(k, (1-h)*(1-h))
	kb := math.Pow(k, h*h)
	var sum float64
	for c := range max(len(ai), len(aj)) {
		z := alphaAt(ai, c)*ka + alphaAt(aj, c)*kb
		sum += z * z
	}
	return sum
}

// goldenMax returns the argmax of f on [lo, hi], assuming f is unimodal.
func goldenMax(f func(float64) float64, lo, hi, tol float64) float64 {
	a, b := lo, hi
	c := b - invPhi*(b-a)
	d := a + invPhi*(b-a)
	fc, fd := f(c), f(d)
	for b-a > tol {
		if fc > fd {
			b, d, fd = d, c, fc
			c = b - invPhi*(b-a)
			fc = f(c)
		} else {
			a, c, fc = c, d, fd
			d = a + invPhi*(b-a)
			fd = f(d)
		}
	}
	return (a + b) / 2
}

// planMerge computes the merge coefficient and the resulting degradation
// for two support vectors with alphas ai, aj and Gaussian similarity k.
func planMerge(ai, aj []float64, k, tol float64) mergePlan {
	f := func(h float64) float64 { return mergeObjective(ai, aj, k, h) }

	// The objective has two local maxima when k is small, so a coarse scan
	// brackets every local maximum before the golden-section refinement.
	var samples [bracketSteps + 1]float64
	for s := range samples {
		samples[s] = f(float64(s) / bracketSteps)
	}

	h, best := 0.0, samples[0]
	for s, v := range samples {
		if (s > 0 && samples[s-1] > v) || (s < bracketSteps && samples[s+1] > v) {
			continue
		}
		if v > best {
			h, best = float64(s)/bracketSteps, v
		}
		lo := float64(max(s-1, 0)) / bracketSteps
		hi := float64(min(s+1, bracketSteps)) / bracketSteps
		if g := goldenMax(f, lo, hi, tol); f(g) > best {
			h, best = g, f(g)
		}
	}

	var before float64
	for c := range max(len(ai), len(aj)) {
		x, y := alphaAt(ai, c), alphaAt(aj, c)
		before += x*x + y*y + 2*x*y*k
	}

	return mergePlan{
		k:           k,
		kMax:        h,
		kA:          math.Pow(k, (1-h)*(1-h)),
		kB:          math.Pow(k, h*h),
		degradation: before - best,
	}
}
