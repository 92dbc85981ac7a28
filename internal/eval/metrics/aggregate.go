package metrics

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/tourlens/internal/models"
)

// Outcome names, matching guide.Category
const (
	OutcomeOK                = "ok"
	OutcomeContractViolation = "contract_violation"
	OutcomeUnavailable       = "unavailable"
	OutcomeInvalidRequest    = "invalid_request"
)

// FrameResult is the outcome of analyzing one dataset frame
type FrameResult struct {
	ID             string        `yaml:"id"`
	Outcome        string        `yaml:"outcome"`
	Title          string        `yaml:"title,omitempty"`
	POICount       int           `yaml:"poi_count"`
	KeywordHit     bool          `yaml:"keyword_hit"`
	MatchedKeyword string        `yaml:"matched_keyword,omitempty"`
	ProcessingTime time.Duration `yaml:"processing_time"`
	Error          string        `yaml:"error,omitempty"`
}

// AggregateResults represents aggregated evaluation metrics
type AggregateResults struct {
	TotalRecords   int            `yaml:"total_records"`
	SuccessCount   int            `yaml:"success_count"`
	Outcomes       map[string]int `yaml:"outcomes"`
	SuccessRate    float64        `yaml:"success_rate"`
	KeywordHitRate float64        `yaml:"keyword_hit_rate"`
	MeanPOIs       float64        `yaml:"mean_pois"`
	MeanLatency    time.Duration  `yaml:"mean_latency"`
	P95Latency     time.Duration  `yaml:"p95_latency"`
}

// MatchKeyword reports the first expected keyword found, case-insensitively,
// in the scene's title, summary, narration or POI labels.
func MatchKeyword(scene models.SceneAnalysis, keywords []string) (string, bool) {
	fields := []string{scene.SceneTitle, scene.SceneSummary, scene.Narration}
	for _, poi := range scene.POIs {
		fields = append(fields, poi.Label)
	}
	haystack := strings.ToLower(strings.Join(fields, "\n"))

	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw != "" && strings.Contains(haystack, strings.ToLower(kw)) {
			return kw, true
		}
	}
	return "", false
}

// Aggregate computes summary metrics. Hit rate, POI mean and latencies are
// taken over successful frames only.
func Aggregate(results []FrameResult) AggregateResults {
	agg := AggregateResults{
		TotalRecords: len(results),
		Outcomes:     make(map[string]int),
	}

	var latencies []time.Duration
	var total time.Duration
	hits, pois := 0, 0
	for _, r := range results {
		agg.Outcomes[r.Outcome]++
		if r.Outcome != OutcomeOK {
			continue
		}
		agg.SuccessCount++
		pois += r.POICount
		if r.KeywordHit {
			hits++
		}
		latencies = append(latencies, r.ProcessingTime)
		total += r.ProcessingTime
	}

	if agg.TotalRecords > 0 {
		agg.SuccessRate = float64(agg.SuccessCount) / float64(agg.TotalRecords)
	}
	if agg.SuccessCount > 0 {
		agg.KeywordHitRate = float64(hits) / float64(agg.SuccessCount)
		agg.MeanPOIs = float64(pois) / float64(agg.SuccessCount)
		agg.MeanLatency = total / time.Duration(agg.SuccessCount)
		agg.P95Latency = percentile(latencies, 0.95)
	}
	return agg
}

// percentile uses the nearest-rank method
func percentile(values []time.Duration, p float64) time.Duration {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]time.Duration{}, values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	rank := int(math.Ceil(p * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}

// PrintSummary writes a human-readable summary of the evaluation
func (a AggregateResults) PrintSummary(w io.Writer, provider, model string) {
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintln(w, "TOURLENS SCENE EVALUATION SUMMARY")
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "Provider:          %s\n", provider)
	fmt.Fprintf(w, "Model:             %s\n", model)
	fmt.Fprintf(w, "Total Frames:      %d\n", a.TotalRecords)
	fmt.Fprintf(w, "Success Rate:      %.1f%%\n", a.SuccessRate*100)
	fmt.Fprintf(w, "Keyword Hit Rate:  %.1f%%\n", a.KeywordHitRate*100)
	fmt.Fprintf(w, "Mean POIs:         %.2f\n", a.MeanPOIs)
	fmt.Fprintf(w, "Mean Latency:      %s\n", a.MeanLatency.Round(time.Millisecond))
	fmt.Fprintf(w, "P95 Latency:       %s\n", a.P95Latency.Round(time.Millisecond))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Outcomes:")

	outcomes := make([]string, 0, len(a.Outcomes))
	for o := range a.Outcomes {
		outcomes = append(outcomes, o)
	}
	sort.Strings(outcomes)
	for _, o := range outcomes {
		fmt.Fprintf(w, "  %-20s %d\n", o, a.Outcomes[o])
	}
	fmt.Fprintln(w, strings.Repeat("=", 60))
}
