package testrides

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/okian/grimpeur/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	profileDivisor     = 5
)

// Constants for ride profile cases.
const (
	caseFlatRide     = 0
	caseRollingRide  = 1
	caseMountainRide = 2
	caseIntervalRide = 3
	caseNoPowerRide  = 4
)

// Constants for sample generation.
const (
	baseSpeedMPS      = 7.0
	speedJitterMPS    = 2.0
	baseHeartRateBPM  = 140.0
	baseCadenceRPM    = 85.0
	basePowerW        = 180.0
	powerPerGrade     = 900.0
	rollingHillAmpM   = 30.0
	rollingHillPeriod = 400.0
	mountainClimbRate = 0.06
	intervalPeriodS   = 120
	intervalHighW     = 320.0
	intervalLowW      = 120.0
)

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// generateRides creates the specified number of rides with unique ride IDs.
func generateRides(ctx context.Context, config *Config, stats *Stats) ([]Ride, error) {
	logger.Get().Info(ctx, "generating rides with unique ride IDs",
		logger.Int("numRides", config.NumRides),
		logger.Int("rideSeconds", config.RideSeconds))

	rides := make([]Ride, config.NumRides)

	// Pre-allocate ride IDs to ensure uniqueness
	rideIDs := make([]string, config.NumRides)
	for i := 0; i < config.NumRides; i++ {
		rideIDs[i] = uuid.New().String()
	}

	// Generate rides concurrently
	type rideResult struct {
		index int
		ride  Ride
		err   error
	}

	resultChan := make(chan rideResult, config.NumRides)

	// Use worker pool for ride generation
	workerCount := minInt(config.Workers, config.NumRides)
	ridesPerWorker := config.NumRides / workerCount

	for worker := 0; worker < workerCount; worker++ {
		start := worker * ridesPerWorker
		end := start + ridesPerWorker
		if worker == workerCount-1 {
			end = config.NumRides // Last worker gets remaining rides
		}

		go func(start, end int) {
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					resultChan <- rideResult{index: i, err: ctx.Err()}
					return
				default:
					ride := generateSingleRide(rideIDs[i], config.RideSeconds)
					resultChan <- rideResult{index: i, ride: ride, err: nil}
				}
			}
		}(start, end)
	}

	// Collect results
	for i := 0; i < config.NumRides; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during ride generation: %w", ctx.Err())
		case result := <-resultChan:
			if result.err != nil {
				return nil, fmt.Errorf("failed to generate ride %d: %w", result.index, result.err)
			}
			rides[result.index] = result.ride
		}
	}

	stats.RidesGenerated = len(rides)
	logger.Get().Info(ctx, "generated rides successfully", logger.Int("count", len(rides)))

	return rides, nil
}

// generateSingleRide creates one ride with a randomly chosen terrain profile.
func generateSingleRide(rideID string, seconds int) Ride {
	profileNum, _ := rand.Int(rand.Reader, big.NewInt(profileDivisor))
	profile := profileName(profileNum.Int64())

	start := time.Now().UTC().Add(-time.Duration(seconds) * time.Second)
	samples := make([]Sample, 0, seconds)

	distance := 0.0
	elevation := 100.0
	withPower := profile != "no_power"

	for i := 0; i < seconds; i++ {
		speed := baseSpeedMPS + (getRandomFloat()-0.5)*speedJitterMPS
		if speed < 0 {
			speed = 0
		}

		prevElevation := elevation
		elevation = elevationFor(profile, distance, i)
		distance += speed

		grade := 0.0
		if speed > 0 {
			grade = (elevation - prevElevation) / speed
		}

		s := Sample{
			TS:         start.Add(time.Duration(i) * time.Second).Format(time.RFC3339),
			DistanceM:  distance,
			ElevationM: elevation,
			SpeedMPS:   speed,
		}

		hr := baseHeartRateBPM + grade*200 + (getRandomFloat()-0.5)*10
		hr = math.Max(90, math.Min(200, hr))
		s.HeartRateBPM = &hr

		cadence := baseCadenceRPM + (getRandomFloat()-0.5)*10
		s.CadenceRPM = &cadence

		if withPower {
			power := powerFor(profile, grade, i)
			s.PowerW = &power
		}

		samples = append(samples, s)
	}

	return Ride{RideID: rideID, Samples: samples, Profile: profile}
}

// profileName maps a random case to a terrain profile name.
func profileName(n int64) string {
	switch n {
	case caseFlatRide:
		return "flat"
	case caseRollingRide:
		return "rolling"
	case caseMountainRide:
		return "mountain"
	case caseIntervalRide:
		return "interval"
	case caseNoPowerRide:
		return "no_power"
	default:
		return "flat"
	}
}

// elevationFor returns the elevation at the given distance for a profile.
func elevationFor(profile string, distance float64, second int) float64 {
	switch profile {
	case "rolling":
		return 100 + rollingHillAmpM*math.Sin(distance/rollingHillPeriod)
	case "mountain":
		// Climb for the middle half of the ride, flat on either side.
		return 100 + mountainClimbRate*math.Max(0, distance-1000)
	case "interval", "flat", "no_power":
		return 100 + (getRandomFloat()-0.5)*0.4
	default:
		return 100
	}
}

// powerFor returns the power output at the given point for a profile.
func powerFor(profile string, grade float64, second int) float64 {
	power := basePowerW + grade*powerPerGrade + (getRandomFloat()-0.5)*30
	if profile == "interval" {
		if (second/intervalPeriodS)%2 == 0 {
			power = intervalHighW + (getRandomFloat()-0.5)*30
		} else {
			power = intervalLowW + (getRandomFloat()-0.5)*30
		}
	}
	if power < 0 {
		power = 0
	}
	return power
}

// minInt returns the minimum of two integers.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
