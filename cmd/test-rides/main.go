package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/grimpeur/internal/testrides"
)

// Default configuration constants.
const (
	defaultNumRides    = 100
	defaultRideSeconds = 1800
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numRides    = flag.Int("rides", defaultNumRides, "Number of rides to generate and submit")
		rideSeconds = flag.Int("seconds", defaultRideSeconds, "Duration of each generated ride in seconds")
		workers     = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile  = flag.String("output", "", "Output file for submitted ride ids (default: submitted_rides_TIMESTAMP.json)")
		logFile     = flag.String("log", "", "Log file for test output (default: test_log_TIMESTAMP.log)")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testrides.ShowHelp()
		return
	}

	// Setup logging
	if err := testrides.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	// Create test configuration
	config := &testrides.Config{
		BaseURL:     *baseURL,
		NumRides:    *numRides,
		RideSeconds: *rideSeconds,
		Workers:     *workers,
		Timeout:     *timeout,
		OutputFile:  *outputFile,
		LogFile:     *logFile,
		Verbose:     *verbose,
	}

	// Run the test
	if err := testrides.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Test failed: " + err.Error() + "\n")
		return
	}
}
