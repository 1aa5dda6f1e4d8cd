package signature

import (
	"math"
	"sort"

	"github.com/releasegate/riskadvisor/internal/config"
	"github.com/releasegate/riskadvisor/internal/models"
)

// Context describes the release currently under evaluation. Platform,
// Tags and SLIHealth are optional; an absent input zeroes out the
// corresponding similarity factor rather than erroring.
type Context struct {
	Service   string
	Platform  string
	Tags      []string
	SLIHealth map[string]models.SLICurrentHealth
}

// Matcher scores failure signatures against a release context using
// weighted factor matching.
type Matcher struct {
	cfg config.ScoringConfig
}

// NewMatcher constructs a Matcher with the supplied scoring constants.
func NewMatcher(cfg config.ScoringConfig) *Matcher {
	return &Matcher{cfg: cfg}
}

// Similarity computes a score in [0,1] between a historical signature and
// the current context. Each factor contributes a sub-score capped at its
// weight; the sum is rounded to 3 decimals and capped at 1.0.
func (m *Matcher) Similarity(sig models.FailureSignature, ctx Context) float64 {
	score := 0.0

	// Service match: full weight on equality, half weight when the
	// context service only appears among the signature's tags.
	if sig.Service == ctx.Service {
		score += m.cfg.ServiceWeight
	} else if containsString(sig.Tags, ctx.Service) {
		score += m.cfg.ServiceTagWeight
	}

	// Platform match, only evaluated when the context declares one.
	if ctx.Platform != "" {
		if sig.Platform == ctx.Platform || sig.Platform == "all" {
			score += m.cfg.PlatformWeight
		} else if ctx.Platform == "all" {
			score += m.cfg.PlatformLooseWeight
		}
	}

	// Tag overlap, proportional to the share of signature tags present
	// in the context.
	if len(ctx.Tags) > 0 && len(sig.Tags) > 0 {
		overlap := 0
		current := make(map[string]struct{}, len(ctx.Tags))
		for _, t := range ctx.Tags {
			current[t] = struct{}{}
		}
		seen := make(map[string]struct{}, len(sig.Tags))
		for _, t := range sig.Tags {
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			if _, ok := current[t]; ok {
				overlap++
			}
		}
		score += m.cfg.TagOverlapWeight * float64(overlap) / float64(len(seen))
	}

	// SLI overlap against currently elevated SLIs.
	if len(ctx.SLIHealth) > 0 {
		sigSLIs := sig.SLINames()
		if len(sigSLIs) > 0 {
			overlap := 0
			for name := range sigSLIs {
				health, ok := ctx.SLIHealth[name]
				if !ok {
					continue
				}
				if health.IsAnomalous || health.DeviationPct > m.cfg.ElevatedDeviationPct {
					overlap++
				}
			}
			score += m.cfg.SLIOverlapWeight * float64(overlap) / float64(len(sigSLIs))
		}
	}

	if score > 1.0 {
		score = 1.0
	}
	return math.Round(score*1000) / 1000
}

// Rank scores every signature against the context and returns the topN
// best matches, descending by similarity. The sort is stable so corpus
// order decides ties. Empty input yields empty output.
func (m *Matcher) Rank(sigs []models.FailureSignature, ctx Context, topN int) []models.RankedSignature {
	if topN <= 0 {
		topN = 5
	}

	ranked := make([]models.RankedSignature, 0, len(sigs))
	for _, sig := range sigs {
		ranked = append(ranked, models.RankedSignature{
			Signature:  sig,
			Similarity: m.Similarity(sig, ctx),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Similarity > ranked[j].Similarity
	})

	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
