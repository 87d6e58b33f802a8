package testrides

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/grimpeur/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Run executes the complete ride test.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting grimpeur ride test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("rides", config.NumRides),
		logger.Int("rideSeconds", config.RideSeconds),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.String("logFile", config.LogFile),
		logger.Any("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate rides
	rides, err := generateRides(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("ride generation failed: %w", err)
	}

	// Step 3: Submit rides concurrently
	if err := submitRides(ctx, config, rides, stats); err != nil {
		return fmt.Errorf("ride submission failed: %w", err)
	}

	// Step 4: Poll for analyses (processing is asynchronous)
	views, err := fetchAnalyses(ctx, config, rides, stats)
	if err != nil {
		return fmt.Errorf("analysis retrieval failed: %w", err)
	}

	// Step 5: Verify analyses
	if err := verifyAnalyses(ctx, config, rides, views, stats); err != nil {
		return fmt.Errorf("analysis verification failed: %w", err)
	}

	// Step 6: Run sample queries
	if err := runSampleQueries(ctx, config, views, stats); err != nil {
		return fmt.Errorf("query verification failed: %w", err)
	}

	// Step 7: Save submitted ride ids to file
	if err := saveRidesToFile(ctx, config, rides); err != nil {
		logger.Get().Warn(ctx, "failed to save rides to file", logger.Error(err))
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "test completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// savedRide is the on-disk record for one submitted ride.
type savedRide struct {
	RideID      string `json:"ride_id"`
	Profile     string `json:"profile"`
	SampleCount int    `json:"sample_count"`
}

// saveRidesToFile saves the submitted ride ids and profiles to a JSON file.
// Full sample data is omitted; rides can be regenerated from the tool.
func saveRidesToFile(ctx context.Context, config *Config, rides []Ride) error {
	if len(rides) == 0 {
		return fmt.Errorf("no rides to save")
	}

	// Determine output filename
	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "submitted_rides_" + timestamp + ".json"
	}

	// Ensure the directory exists
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	// Write JSON array
	if _, err := file.WriteString("[\n"); err != nil {
		return fmt.Errorf("failed to write opening bracket: %w", err)
	}

	for i, ride := range rides {
		record := savedRide{
			RideID:      ride.RideID,
			Profile:     ride.Profile,
			SampleCount: len(ride.Samples),
		}
		jsonData, err := marshalJSON(record)
		if err != nil {
			return fmt.Errorf("failed to marshal ride %d: %w", i, err)
		}

		if _, err := file.Write(jsonData); err != nil {
			return fmt.Errorf("failed to write ride %d: %w", i, err)
		}

		// Add comma except for last ride
		if i < len(rides)-1 {
			if _, err := file.WriteString(","); err != nil {
				return fmt.Errorf("failed to write comma: %w", err)
			}
		}
		_, _ = file.WriteString("\n")
	}

	if _, err := file.WriteString("]\n"); err != nil {
		return fmt.Errorf("failed to write closing bracket: %w", err)
	}

	logger.Get().Info(ctx, "rides saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final test statistics.
func displayFinalStats(stats *Stats) {
	var successRate, ridesPerSecond float64

	if stats.RidesSubmitted > 0 {
		successRate = float64(stats.RidesSuccessful) / float64(stats.RidesSubmitted) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		ridesPerSecond = float64(stats.RidesSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("ridesGenerated", stats.RidesGenerated),
		logger.Int("ridesSubmitted", stats.RidesSubmitted),
		logger.Int("ridesSuccessful", stats.RidesSuccessful),
		logger.Int("ridesDuplicate", stats.RidesDuplicate),
		logger.Int("ridesFailed", stats.RidesFailed),
		logger.Int("analysesRetried", stats.AnalysesRetried),
		logger.Int("analysesVerified", stats.AnalysesVerified),
		logger.Int("queriesAnswered", stats.QueriesAnswered),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("ridesPerSecond", ridesPerSecond))
}
