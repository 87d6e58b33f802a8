// Package query answers structured metric requests over a completed ride
// analysis. Evaluate is a pure function: it holds no state, never mutates
// the analysis, and is safe for concurrent callers.
//
// The request shape is the contract the natural-language agent translates
// onto; it never reaches into the pipeline itself.
package query

import (
	"fmt"

	"github.com/okian/grimpeur/internal/domain/analysis"
	"github.com/okian/grimpeur/internal/domain/climb"
	"github.com/okian/grimpeur/internal/domain/telemetry"
)

// Metric selects the aggregation applied to the selected values.
type Metric string

// Supported metrics.
const (
	MetricAvg   Metric = "avg"
	MetricMax   Metric = "max"
	MetricMin   Metric = "min"
	MetricSum   Metric = "sum"
	MetricCount Metric = "count"
)

// Channel names a telemetry channel the metric is computed over.
type Channel string

// Supported channels.
const (
	ChannelPower     Channel = "power"
	ChannelHeartRate Channel = "heart_rate"
	ChannelSpeed     Channel = "speed"
	ChannelElevation Channel = "elevation"
	ChannelGradient  Channel = "gradient"
	ChannelCadence   Channel = "cadence"
)

// Scope restricts which part of the ride the metric covers.
type Scope string

// Supported scopes. The fractional scopes answer "first half of the ride"
// style questions; ScopeZone additionally needs ZoneID.
const (
	ScopeAll        Scope = "all"
	ScopeClimbs     Scope = "climbs"
	ScopeZone       Scope = "zone"
	ScopeFirstHalf  Scope = "first_half"
	ScopeSecondHalf Scope = "second_half"
	ScopeFirstThird Scope = "first_third"
	ScopeLastThird  Scope = "last_third"
)

// Comparator is the relational operator of a filter predicate.
type Comparator string

// Supported comparators.
const (
	CompGT Comparator = ">"
	CompGE Comparator = ">="
	CompLT Comparator = "<"
	CompLE Comparator = "<="
	CompEQ Comparator = "=="
)

// Filter narrows the selection. Inside ScopeClimbs the field names a segment
// statistic (avg_gradient, max_gradient, avg_power, avg_heart_rate,
// avg_speed, length_m); in sample scopes it names a channel.
type Filter struct {
	Field      string     `json:"field"`
	Comparator Comparator `json:"comparator"`
	Value      float64    `json:"value"`
}

// Request is one structured query.
type Request struct {
	Metric  Metric  `json:"metric"`
	Channel Channel `json:"channel"`
	Scope   Scope   `json:"scope"`
	ZoneID  int     `json:"zone_id,omitempty"`
	Filter  *Filter `json:"filter,omitempty"`
}

// Response carries the computed value with its unit and how many samples
// went into it.
type Response struct {
	Value       float64 `json:"value"`
	Unit        string  `json:"unit"`
	SampleCount int     `json:"sample_count"`
}

// Evaluate answers req against a. Identical (analysis, request) pairs always
// yield identical responses. An empty selection returns ErrNoMatchingData.
func Evaluate(a *analysis.Analysis, req Request) (Response, error) {
	const op = "query.evaluate"
	if err := validate(req); err != nil {
		return Response{}, fmt.Errorf("%s: %w", op, err)
	}

	indexes, err := selectIndexes(a, req)
	if err != nil {
		return Response{}, fmt.Errorf("%s: %w", op, err)
	}

	values := channelValues(a, req, indexes)
	if len(values) == 0 {
		return Response{}, fmt.Errorf("%s: %w", op, ErrNoMatchingData)
	}

	resp := Response{SampleCount: len(values), Unit: unitFor(req)}
	switch req.Metric {
	case MetricCount:
		resp.Value = float64(len(values))
	case MetricSum:
		for _, v := range values {
			resp.Value += v
		}
	case MetricAvg:
		var sum float64
		for _, v := range values {
			sum += v
		}
		resp.Value = sum / float64(len(values))
	case MetricMax:
		resp.Value = values[0]
		for _, v := range values[1:] {
			if v > resp.Value {
				resp.Value = v
			}
		}
	case MetricMin:
		resp.Value = values[0]
		for _, v := range values[1:] {
			if v < resp.Value {
				resp.Value = v
			}
		}
	}
	return resp, nil
}

func validate(req Request) error {
	switch req.Metric {
	case MetricAvg, MetricMax, MetricMin, MetricSum, MetricCount:
	default:
		return fmt.Errorf("unknown metric %q: %w", req.Metric, ErrInvalidRequest)
	}
	switch req.Channel {
	case ChannelPower, ChannelHeartRate, ChannelSpeed, ChannelElevation, ChannelGradient, ChannelCadence:
	default:
		return fmt.Errorf("unknown channel %q: %w", req.Channel, ErrInvalidRequest)
	}
	switch req.Scope {
	case ScopeAll, ScopeClimbs, ScopeZone, ScopeFirstHalf, ScopeSecondHalf, ScopeFirstThird, ScopeLastThird:
	default:
		return fmt.Errorf("unknown scope %q: %w", req.Scope, ErrInvalidRequest)
	}
	if req.Filter != nil {
		switch req.Filter.Comparator {
		case CompGT, CompGE, CompLT, CompLE, CompEQ:
		default:
			return fmt.Errorf("unknown comparator %q: %w", req.Filter.Comparator, ErrInvalidRequest)
		}
	}
	return nil
}

// selectIndexes resolves the scope (and, for climbs, the segment filter) to
// a set of series sample indexes.
func selectIndexes(a *analysis.Analysis, req Request) ([]int, error) {
	n := a.Series().Len()

	switch req.Scope {
	case ScopeAll:
		return indexRange(0, n), nil
	case ScopeFirstHalf:
		return indexRange(0, n/2), nil
	case ScopeSecondHalf:
		return indexRange(n/2, n), nil
	case ScopeFirstThird:
		return indexRange(0, n/3), nil
	case ScopeLastThird:
		return indexRange(2*n/3, n), nil
	case ScopeZone:
		return zoneIndexes(a, req.ZoneID)
	case ScopeClimbs:
		return climbIndexes(a, req.Filter)
	}
	return nil, ErrInvalidRequest
}

func indexRange(start, end int) []int {
	if end <= start {
		return nil
	}
	out := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, i)
	}
	return out
}

func zoneIndexes(a *analysis.Analysis, zoneID int) ([]int, error) {
	var lower, upper float64
	found := false
	for _, z := range a.Zones().Zones {
		if z.ID == zoneID {
			lower, upper = z.LowerBoundW, z.UpperBoundW
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("unknown zone id %d: %w", zoneID, ErrInvalidRequest)
	}

	series := a.Series()
	var out []int
	for i := 0; i < series.Len(); i++ {
		s := series.At(i)
		if series.IsMissing(i) || !s.HasPower {
			continue
		}
		if s.PowerW >= lower && s.PowerW < upper {
			out = append(out, i)
		}
	}
	return out, nil
}

func climbIndexes(a *analysis.Analysis, filter *Filter) ([]int, error) {
	var selected []climb.Segment
	for _, seg := range a.Climbs() {
		if filter != nil {
			v, err := segmentField(seg, filter.Field)
			if err != nil {
				return nil, err
			}
			if !compare(v, filter.Comparator, filter.Value) {
				continue
			}
		}
		selected = append(selected, seg)
	}
	if len(selected) == 0 {
		return nil, ErrNoMatchingData
	}

	series := a.Series()
	var out []int
	for i := 0; i < series.Len(); i++ {
		ts := series.At(i).Timestamp
		for _, seg := range selected {
			if !ts.Before(seg.StartTime) && !ts.After(seg.EndTime) {
				out = append(out, i)
				break
			}
		}
	}
	return out, nil
}

func segmentField(seg climb.Segment, field string) (float64, error) {
	switch field {
	case "avg_gradient":
		return seg.AvgGradient, nil
	case "max_gradient":
		return seg.MaxGradient, nil
	case "avg_power":
		return seg.AvgPowerW, nil
	case "avg_heart_rate":
		return seg.AvgHeartRateBPM, nil
	case "avg_speed":
		return seg.AvgSpeedMPS, nil
	case "length_m":
		return seg.LengthM(), nil
	}
	return 0, fmt.Errorf("unknown segment field %q: %w", field, ErrInvalidRequest)
}

func compare(v float64, c Comparator, target float64) bool {
	switch c {
	case CompGT:
		return v > target
	case CompGE:
		return v >= target
	case CompLT:
		return v < target
	case CompLE:
		return v <= target
	case CompEQ:
		return v == target
	}
	return false
}

// channelValues extracts the requested channel from the selected samples,
// applying a per-sample filter in sample scopes and skipping samples without
// the channel.
func channelValues(a *analysis.Analysis, req Request, indexes []int) []float64 {
	series := a.Series()
	profile := a.Profile()

	sampleFilter := req.Filter
	if req.Scope == ScopeClimbs {
		sampleFilter = nil // already applied to segments
	}

	var out []float64
	for _, i := range indexes {
		if series.IsMissing(i) {
			continue
		}
		s := series.At(i)

		if sampleFilter != nil {
			fv, ok := sampleValue(s, profile[i].GradientPercent, Channel(sampleFilter.Field))
			if !ok || !compare(fv, sampleFilter.Comparator, sampleFilter.Value) {
				continue
			}
		}

		v, ok := sampleValue(s, profile[i].GradientPercent, req.Channel)
		if !ok {
			continue
		}
		out = append(out, v)
	}
	return out
}

// sampleValue reads one channel off a sample. The second result is false
// when the sample does not carry the channel (sensor dropout).
func sampleValue(s telemetry.Sample, gradientPct float64, ch Channel) (float64, bool) {
	switch ch {
	case ChannelPower:
		return s.PowerW, s.HasPower
	case ChannelHeartRate:
		return s.HeartRateBPM, s.HasHeartRate
	case ChannelSpeed:
		return s.SpeedMPS, true
	case ChannelElevation:
		return s.ElevationM, true
	case ChannelGradient:
		return gradientPct, true
	case ChannelCadence:
		return s.CadenceRPM, s.HasCadence
	}
	return 0, false
}

func unitFor(req Request) string {
	if req.Metric == MetricCount {
		return "samples"
	}
	switch req.Channel {
	case ChannelPower:
		return "W"
	case ChannelHeartRate:
		return "bpm"
	case ChannelSpeed:
		return "m/s"
	case ChannelElevation:
		return "m"
	case ChannelGradient:
		return "%"
	case ChannelCadence:
		return "rpm"
	}
	return ""
}
