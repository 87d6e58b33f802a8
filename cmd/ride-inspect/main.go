package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/okian/grimpeur/internal/adapters/fitfile"
	"github.com/okian/grimpeur/internal/demo"
	"github.com/okian/grimpeur/internal/domain/analysis"
	"github.com/okian/grimpeur/internal/domain/telemetry"
)

// Default configuration constants.
const (
	defaultDemoSeconds = 3600
	inspectTimeout     = 30 * time.Second
)

func main() {
	var (
		fitPath     = flag.String("fit", "", "Path to a FIT activity file to analyze")
		useDemo     = flag.Bool("demo", false, "Analyze a generated demo ride instead of a file")
		demoSeconds = flag.Int("seconds", defaultDemoSeconds, "Duration of the demo ride in seconds")
		ftp         = flag.Float64("ftp", 0, "Threshold power in watts (0 uses the default)")
	)
	flag.Parse()

	if *fitPath == "" && !*useDemo {
		fmt.Fprintln(os.Stderr, "usage: ride-inspect -fit <file.fit> | -demo [-seconds N] [-ftp W]")
		os.Exit(2)
	}

	samples, rideID, err := loadSamples(*fitPath, *useDemo, *demoSeconds)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load ride:", err)
		os.Exit(1)
	}

	cfg := analysis.DefaultConfig()
	if *ftp > 0 {
		cfg.ThresholdPowerW = *ftp
	}

	builder, err := analysis.NewBuilder(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid analysis configuration:", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), inspectTimeout)
	defer cancel()

	a, err := builder.Build(ctx, rideID, samples)
	if err != nil {
		fmt.Fprintln(os.Stderr, "analysis failed:", err)
		os.Exit(1)
	}

	printAnalysis(a)
}

// loadSamples reads telemetry from a FIT file or generates a demo ride.
func loadSamples(fitPath string, useDemo bool, demoSeconds int) ([]telemetry.RawSample, string, error) {
	if useDemo {
		start := time.Now().UTC().Add(-time.Duration(demoSeconds) * time.Second)
		return demo.RideN(start, demoSeconds), "demo-ride", nil
	}

	data, err := os.ReadFile(fitPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read file: %w", err)
	}

	samples, err := fitfile.Decode(data)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode FIT file: %w", err)
	}

	return samples, fitPath, nil
}

// printAnalysis writes a human-readable report to stdout.
func printAnalysis(a *analysis.Analysis) {
	s := a.Summary()

	fmt.Printf("Ride: %s\n", a.ID())
	fmt.Printf("Samples: %d (interval %s)\n\n", a.Series().Len(), a.Series().Interval())

	fmt.Println("Summary")
	fmt.Printf("  Distance:   %.1f km\n", s.TotalDistanceM/1000)
	fmt.Printf("  Elevation:  +%.0f m / -%.0f m\n", s.ElevationGainM, s.ElevationLossM)
	fmt.Printf("  Moving:     %s of %s\n", s.MovingTime.Round(time.Second), s.TotalTime.Round(time.Second))
	fmt.Printf("  Speed:      avg %.1f km/h, max %.1f km/h\n", s.AvgSpeedMPS*3.6, s.MaxSpeedMPS*3.6)
	if s.PowerValid {
		fmt.Printf("  Power:      avg %.0f W, max %.0f W (coverage %.0f%%)\n", s.AvgPowerW, s.MaxPowerW, s.PowerCoverage*100)
	} else {
		fmt.Println("  Power:      no usable data")
	}
	if s.HeartRateValid {
		fmt.Printf("  Heart rate: avg %.0f bpm, max %.0f bpm\n", s.AvgHeartRateBPM, s.MaxHeartRateBPM)
	}
	if s.TSSAvailable {
		fmt.Printf("  TSS:        %.1f\n", s.TSS)
	}

	climbs := a.Climbs()
	fmt.Printf("\nClimbs (%d)\n", len(climbs))
	for i, c := range climbs {
		fmt.Printf("  %d. %.1f km at %.1f%% (%.1f-%.1f km, max %.1f%%)",
			i+1, c.LengthM()/1000, c.AvgGradient,
			c.StartDistanceM/1000, c.EndDistanceM/1000, c.MaxGradient)
		if c.HasPower {
			fmt.Printf(", avg %.0f W", c.AvgPowerW)
		}
		fmt.Println()
	}

	dist := a.Zones()
	fmt.Println("\nPower zones")
	for _, z := range dist.Zones {
		upper := "+"
		if !math.IsInf(z.UpperBoundW, 1) {
			upper = fmt.Sprintf("-%.0f", z.UpperBoundW)
		}
		fmt.Printf("  Z%d (%.0f%s W): %s (%.1f%%)\n",
			z.ID, z.LowerBoundW, upper, z.TimeInZone.Round(time.Second), z.FractionOfRide*100)
	}
	if dist.NoData > 0 {
		fmt.Printf("  no data: %s (%.1f%%)\n", dist.NoData.Round(time.Second), dist.NoDataFraction*100)
	}
}
