// Package sampling implements the weighted sampler: seeded,
// probability-proportional-to-size draws without replacement over the
// sampling frame, with inclusion probabilities recorded for later
// design-weight computation.
package sampling

import (
	"math/rand"
	"sort"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/floats"

	"github.com/riklinssen/lm-sampling/internal/model"
)

// Params controls one sampling run. The same seed and frame always produce
// the same ordered sample.
type Params struct {
	Size            int
	ReplacementSize int
	Seed            int64
	Method          string // systematic | draw
}

// Draw selects the main and replacement replicates from the frame's
// eligible entries. The main replicate has exactly Size cells; the
// replacement replicate is drawn from the remaining eligible cells and is
// clamped (with the shortfall reported by the caller's logs) when fewer
// remain. Requesting a main sample larger than the eligible frame is an
// error.
func Draw(entries []model.FrameEntry, p Params) ([]model.SampledCluster, error) {
	eligible := make([]model.FrameEntry, 0, len(entries))
	for _, e := range entries {
		if e.Eligible && e.Weight > 0 {
			eligible = append(eligible, e)
		}
	}
	// Fixed ordering by cell id so the draw depends only on frame content
	// and seed, not input file ordering.
	sort.Slice(eligible, func(i, j int) bool { return eligible[i].ID < eligible[j].ID })

	if p.Size <= 0 {
		return nil, eris.New("sampling: sample size must be positive")
	}
	if p.Size > len(eligible) {
		return nil, eris.Errorf("sampling: requested %d cells but only %d are eligible", p.Size, len(eligible))
	}

	rng := rand.New(rand.NewSource(p.Seed))

	var pick func([]model.FrameEntry, int, *rand.Rand) ([]model.FrameEntry, error)
	switch p.Method {
	case "", "systematic":
		pick = systematicPPS
	case "draw":
		pick = successiveDraw
	default:
		return nil, eris.Errorf("sampling: unknown method %q", p.Method)
	}

	main, err := pick(eligible, p.Size, rng)
	if err != nil {
		return nil, err
	}

	selected := make(map[int]bool, len(main))
	for _, e := range main {
		selected[e.ID] = true
	}
	remaining := make([]model.FrameEntry, 0, len(eligible)-len(main))
	for _, e := range eligible {
		if !selected[e.ID] {
			remaining = append(remaining, e)
		}
	}

	replacementSize := p.ReplacementSize
	if replacementSize > len(remaining) {
		replacementSize = len(remaining)
	}
	var replacement []model.FrameEntry
	if replacementSize > 0 {
		replacement, err = pick(remaining, replacementSize, rng)
		if err != nil {
			return nil, err
		}
	}

	clusters := make([]model.SampledCluster, 0, len(main)+len(replacement))
	for i, e := range main {
		clusters = append(clusters, model.SampledCluster{
			FrameEntry:    e,
			Type:          model.ClusterMain,
			DrawIndex:     i,
			InclusionProb: inclusionProb(eligible, e, p.Size),
		})
	}
	for i, e := range replacement {
		clusters = append(clusters, model.SampledCluster{
			FrameEntry:    e,
			Type:          model.ClusterReplacement,
			DrawIndex:     i,
			InclusionProb: inclusionProb(remaining, e, replacementSize),
		})
	}
	return clusters, nil
}

// inclusionProb is the first-order PPS inclusion probability of the entry
// within its candidate set, capped at 1 for certainty units.
func inclusionProb(candidates []model.FrameEntry, e model.FrameEntry, n int) float64 {
	total := 0.0
	for _, c := range candidates {
		total += c.Weight
	}
	if total == 0 {
		return 0
	}
	pi := float64(n) * e.Weight / total
	if pi > 1 {
		return 1
	}
	return pi
}

// systematicPPS implements randomized systematic PPS sampling. Units whose
// scaled size n*w exceeds 1 are taken with certainty and the rest are
// sampled systematically from a single uniform start, so no unit can be
// hit twice.
func systematicPPS(candidates []model.FrameEntry, n int, rng *rand.Rand) ([]model.FrameEntry, error) {
	pool := append([]model.FrameEntry(nil), candidates...)
	var certain []model.FrameEntry

	// Peel off certainty units until all remaining scaled sizes are < 1.
	for {
		remainingN := n - len(certain)
		if remainingN <= 0 {
			return certain[:n], nil
		}
		total := 0.0
		for _, e := range pool {
			total += e.Weight
		}
		if total == 0 {
			return nil, eris.New("sampling: candidate weights sum to zero")
		}
		peeled := false
		next := pool[:0]
		for _, e := range pool {
			if float64(remainingN)*e.Weight/total >= 1 {
				certain = append(certain, e)
				peeled = true
			} else {
				next = append(next, e)
			}
		}
		pool = next
		if !peeled {
			break
		}
	}

	remainingN := n - len(certain)
	if remainingN > len(pool) {
		return nil, eris.Errorf("sampling: %d units needed but %d remain after certainty selection", remainingN, len(pool))
	}

	total := 0.0
	cum := make([]float64, len(pool))
	for i, e := range pool {
		total += e.Weight
		cum[i] = total
	}
	scale := float64(remainingN) / total

	picked := certain
	start := rng.Float64()
	idx := 0
	for k := 0; k < remainingN; k++ {
		target := (start + float64(k)) / scale
		for idx < len(cum) && cum[idx] <= target {
			idx++
		}
		if idx >= len(pool) {
			idx = len(pool) - 1
		}
		picked = append(picked, pool[idx])
		idx++
	}
	return picked, nil
}

// successiveDraw implements draw-by-draw PPS without replacement: each of
// the n draws picks one unit with probability proportional to weight among
// the units not yet selected.
func successiveDraw(candidates []model.FrameEntry, n int, rng *rand.Rand) ([]model.FrameEntry, error) {
	pool := append([]model.FrameEntry(nil), candidates...)
	picked := make([]model.FrameEntry, 0, n)
	for len(picked) < n {
		weights := make([]float64, len(pool))
		for i, e := range pool {
			weights[i] = e.Weight
		}
		total := floats.Sum(weights)
		if total <= 0 {
			return nil, eris.New("sampling: candidate weights sum to zero")
		}
		u := rng.Float64() * total
		acc := 0.0
		chosen := len(pool) - 1
		for i, w := range weights {
			acc += w
			if u < acc {
				chosen = i
				break
			}
		}
		picked = append(picked, pool[chosen])
		pool = append(pool[:chosen], pool[chosen+1:]...)
	}
	return picked, nil
}
