package signature

import (
	"sort"

	"github.com/releasegate/riskadvisor/internal/models"
)

type serviceAggregate struct {
	count      int
	spikeSum   float64
	sliCounts  map[string]int
	tagCounts  map[string]int
	lastRevert string
}

// MineInsights aggregates the revert corpus per service: revert counts,
// prevalence within the corpus, average spike magnitude, and the SLIs and
// tags that recur most often. Output is ordered by descending prevalence,
// service name breaking ties.
func MineInsights(sigs []models.FailureSignature) []models.CorpusInsight {
	if len(sigs) == 0 {
		return nil
	}

	stats := make(map[string]*serviceAggregate)
	for _, sig := range sigs {
		agg, ok := stats[sig.Service]
		if !ok {
			agg = &serviceAggregate{
				sliCounts: make(map[string]int),
				tagCounts: make(map[string]int),
			}
			stats[sig.Service] = agg
		}
		agg.count++
		agg.spikeSum += sig.MaxSpikeRatio()
		for name := range sig.ImpactedSLIs {
			agg.sliCounts[name]++
		}
		for _, tag := range sig.Tags {
			agg.tagCounts[tag]++
		}
		if sig.Date > agg.lastRevert {
			agg.lastRevert = sig.Date
		}
	}

	insights := make([]models.CorpusInsight, 0, len(stats))
	for service, agg := range stats {
		insights = append(insights, models.CorpusInsight{
			Service:       service,
			RevertCount:   agg.count,
			Prevalence:    float64(agg.count) / float64(len(sigs)),
			AvgSpikeRatio: agg.spikeSum / float64(agg.count),
			TopSLIs:       topKeys(agg.sliCounts, 3),
			TopTags:       topKeys(agg.tagCounts, 3),
			LastRevert:    agg.lastRevert,
		})
	}

	sort.Slice(insights, func(i, j int) bool {
		if insights[i].Prevalence != insights[j].Prevalence {
			return insights[i].Prevalence > insights[j].Prevalence
		}
		return insights[i].Service < insights[j].Service
	})
	return insights
}

func topKeys(counts map[string]int, limit int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > limit {
		keys = keys[:limit]
	}
	return keys
}
