package testrides

import (
	"context"
	"fmt"
	"log"
	"math"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// fetchAnalyses polls the service until an analysis is available for every
// submitted ride, or the poll deadline passes. Analysis is asynchronous, so
// a 404 right after submission is expected and retried.
func fetchAnalyses(ctx context.Context, config *Config, rides []Ride, stats *Stats) (map[string]*RideView, error) {
	log.Printf("📥 Fetching analyses for %d rides with %d workers...", len(rides), config.Workers)

	client := newHTTPClient(config.Timeout)
	deadline := time.Now().Add(AnalysisPollDeadline)

	var (
		mu      sync.Mutex
		views   = make(map[string]*RideView, len(rides))
		retried int64
	)

	rideChan := make(chan Ride, config.Workers*2)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for ride := range rideChan {
				view, retries, err := fetchSingleAnalysis(ctx, client, config.BaseURL, ride.RideID, deadline)
				atomic.AddInt64(&retried, retries)
				if err != nil {
					if config.Verbose {
						log.Printf("⚠️  Failed to fetch analysis for ride %s: %v", ride.RideID, err)
					}
					continue
				}

				mu.Lock()
				views[ride.RideID] = view
				mu.Unlock()
			}
		}()
	}

	go func() {
		defer close(rideChan)
		for _, ride := range rides {
			select {
			case <-ctx.Done():
				return
			case rideChan <- ride:
			}
		}
	}()

	wg.Wait()

	stats.AnalysesRetried = int(atomic.LoadInt64(&retried))

	if len(views) == 0 {
		return nil, fmt.Errorf("no analyses retrieved for %d submitted rides", len(rides))
	}

	log.Printf("✅ Retrieved %d/%d analyses (retries: %d)", len(views), len(rides), stats.AnalysesRetried)
	return views, nil
}

// fetchSingleAnalysis polls GET /rides/{id} until it returns 200 or the
// deadline passes. Returns the number of retries performed.
func fetchSingleAnalysis(ctx context.Context, client *HTTPClient, baseURL, rideID string, deadline time.Time) (*RideView, int64, error) {
	url := baseURL + "/rides/" + rideID
	var retries int64

	for {
		resp, err := client.Get(ctx, url)
		if err != nil {
			return nil, retries, fmt.Errorf("failed to fetch ride: %w", err)
		}

		body, err := readResponseBody(resp)
		if err != nil {
			return nil, retries, fmt.Errorf("failed to read response: %w", err)
		}

		switch resp.StatusCode {
		case StatusOK:
			var view RideView
			if err := unmarshalJSON(body, &view); err != nil {
				return nil, retries, fmt.Errorf("failed to parse ride view: %w", err)
			}
			return &view, retries, nil
		case http.StatusNotFound:
			// Analysis has not landed yet; retry until the deadline.
			if time.Now().After(deadline) {
				return nil, retries, fmt.Errorf("analysis not available before deadline")
			}
			retries++
			select {
			case <-ctx.Done():
				return nil, retries, ctx.Err()
			case <-time.After(AnalysisPollInterval):
			}
		default:
			return nil, retries, fmt.Errorf("unexpected status fetching ride: %d", resp.StatusCode)
		}
	}
}

// verifyAnalyses checks structural invariants of the retrieved analyses.
func verifyAnalyses(ctx context.Context, config *Config, rides []Ride, views map[string]*RideView, stats *Stats) error {
	log.Println("🔍 Verifying analyses...")

	client := newHTTPClient(config.Timeout)
	profiles := make(map[string]string, len(rides))
	for _, ride := range rides {
		profiles[ride.RideID] = ride.Profile
	}

	verified := 0
	for rideID, view := range views {
		if err := verifySingleAnalysis(ctx, client, config, rideID, profiles[rideID], view); err != nil {
			log.Printf("⚠️  Verification warning for ride %s: %v", rideID, err)
			continue
		}
		verified++
	}

	stats.AnalysesVerified = verified
	if verified == 0 {
		return fmt.Errorf("no analyses passed verification")
	}

	log.Printf("✅ Verified %d/%d analyses", verified, len(views))
	return nil
}

// verifySingleAnalysis checks one ride's summary and zone distribution.
func verifySingleAnalysis(ctx context.Context, client *HTTPClient, config *Config, rideID, profile string, view *RideView) error {
	if view.SampleCount <= 0 {
		return fmt.Errorf("sample count is %d", view.SampleCount)
	}
	if view.ClimbCount < 0 {
		return fmt.Errorf("negative climb count %d", view.ClimbCount)
	}

	avgPower, hasPower := view.Summary["avg_power_w"]
	if profile == "no_power" && hasPower && avgPower != nil {
		return fmt.Errorf("no-power ride reports average power %v", avgPower)
	}

	// Zone fractions plus the no-data fraction must account for the whole ride.
	resp, err := client.Get(ctx, config.BaseURL+"/rides/"+rideID+"/zones")
	if err != nil {
		return fmt.Errorf("failed to fetch zones: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read zones response: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("unexpected status fetching zones: %d", resp.StatusCode)
	}

	var zones ZoneView
	if err := unmarshalJSON(body, &zones); err != nil {
		return fmt.Errorf("failed to parse zones: %w", err)
	}

	sum := zones.NoDataFraction
	for _, z := range zones.Zones {
		if z.FractionOfRide < 0 || z.FractionOfRide > 1 {
			return fmt.Errorf("zone %d has fraction %.6f outside [0,1]", z.ID, z.FractionOfRide)
		}
		sum += z.FractionOfRide
	}
	if math.Abs(sum-1.0) > fractionSumTolerance {
		return fmt.Errorf("zone fractions sum to %.6f, expected 1.0", sum)
	}

	return nil
}

// runSampleQueries exercises the query endpoint against retrieved analyses.
func runSampleQueries(ctx context.Context, config *Config, views map[string]*RideView, stats *Stats) error {
	log.Println("❓ Running sample queries...")

	client := newHTTPClient(config.Timeout)
	queries := []QueryRequest{
		{Metric: "avg", Channel: "power", Scope: "all"},
		{Metric: "max", Channel: "elevation", Scope: "all"},
		{Metric: "avg", Channel: "gradient", Scope: "climbs"},
	}

	answered := 0
	for rideID := range views {
		for _, q := range queries {
			resp, err := client.Post(ctx, config.BaseURL+"/rides/"+rideID+"/query", q)
			if err != nil {
				if config.Verbose {
					log.Printf("⚠️  Query %s/%s/%s failed for ride %s: %v", q.Metric, q.Channel, q.Scope, rideID, err)
				}
				continue
			}

			body, err := readResponseBody(resp)
			if err != nil {
				continue
			}

			// 422 means the ride has no matching data for the query,
			// which is a valid answer for flat or no-power rides.
			if resp.StatusCode == http.StatusUnprocessableEntity {
				answered++
				continue
			}
			if resp.StatusCode != StatusOK {
				continue
			}

			var result QueryResult
			if err := unmarshalJSON(body, &result); err != nil {
				continue
			}
			if result.SampleCount <= 0 {
				if config.Verbose {
					log.Printf("⚠️  Query %s/%s/%s on ride %s returned %d samples", q.Metric, q.Channel, q.Scope, rideID, result.SampleCount)
				}
				continue
			}
			answered++
		}
	}

	stats.QueriesAnswered = answered
	if answered == 0 {
		return fmt.Errorf("no queries answered")
	}

	log.Printf("✅ Answered %d queries across %d rides", answered, len(views))
	return nil
}
