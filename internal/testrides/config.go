package testrides

import "time"

// Config holds configuration for the ride test
type Config struct {
	BaseURL     string        // Base URL of the service
	NumRides    int           // Number of rides to generate
	RideSeconds int           // Per-second samples per ride
	Workers     int           // Number of concurrent workers
	Timeout     time.Duration // HTTP request timeout
	OutputFile  string        // Output file for ride ids
	LogFile     string        // Log file for test output
	Verbose     bool          // Enable verbose logging
}

// Sample is one telemetry record in the submission payload.
type Sample struct {
	TS           string   `json:"ts"`
	DistanceM    float64  `json:"distance_m"`
	ElevationM   float64  `json:"elevation_m"`
	SpeedMPS     float64  `json:"speed_mps"`
	PowerW       *float64 `json:"power_w,omitempty"`
	HeartRateBPM *float64 `json:"heart_rate_bpm,omitempty"`
	CadenceRPM   *float64 `json:"cadence_rpm,omitempty"`
}

// Ride is one submission payload.
type Ride struct {
	RideID  string   `json:"ride_id"`
	Samples []Sample `json:"samples"`

	// Profile names the generator shape; it is not submitted.
	Profile string `json:"-"`
}

// AckResponse represents the response from ride submission
type AckResponse struct {
	Status    string `json:"status"`
	RideID    string `json:"ride_id"`
	Duplicate bool   `json:"duplicate"`
}

// RideView is the summary read shape returned by GET /rides/{id}.
type RideView struct {
	RideID      string         `json:"ride_id"`
	SampleCount int            `json:"sample_count"`
	ClimbCount  int            `json:"climb_count"`
	Summary     map[string]any `json:"summary"`
}

// ZoneView is the distribution returned by GET /rides/{id}/zones.
type ZoneView struct {
	Zones []struct {
		ID             int     `json:"id"`
		FractionOfRide float64 `json:"fraction_of_ride"`
	} `json:"zones"`
	NoDataFraction float64 `json:"no_data_fraction"`
}

// QueryRequest is the structured query payload.
type QueryRequest struct {
	Metric  string `json:"metric"`
	Channel string `json:"channel"`
	Scope   string `json:"scope"`
}

// QueryResult is the structured query answer.
type QueryResult struct {
	Value       float64 `json:"value"`
	Unit        string  `json:"unit"`
	SampleCount int     `json:"sample_count"`
}

// Stats holds test statistics
type Stats struct {
	RidesGenerated   int
	RidesSubmitted   int
	RidesSuccessful  int
	RidesDuplicate   int
	RidesFailed      int
	AnalysesRetried  int
	AnalysesVerified int
	QueriesAnswered  int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
