// Package demo generates a deterministic synthetic ride for smoke tests
// and load tooling: one hour of per-second telemetry with rolling hills, a
// sustained climb in the first third and a descent at the end.
package demo

import (
	"math"
	"math/rand"
	"time"

	"github.com/okian/grimpeur/internal/domain/telemetry"
)

// Generation constants. The seed is fixed so every run produces the same
// ride.
const (
	defaultDurationS = 3600
	demoSeed         = 42

	baseSpeedMPS  = 25.0 / 3.6
	baseElevM     = 100.0
	hillAmpM      = 50.0
	climbTotalM   = 200.0
	baseHeartRate = 150.0
	basePowerW    = 200.0
)

// Ride returns a deterministic one-hour demo ride starting at start.
func Ride(start time.Time) []telemetry.RawSample {
	return RideN(start, defaultDurationS)
}

// RideN returns a deterministic demo ride of n per-second samples.
func RideN(start time.Time, n int) []telemetry.RawSample {
	if n <= 0 {
		return nil
	}
	rng := rand.New(rand.NewSource(demoSeed))

	samples := make([]telemetry.RawSample, 0, n)
	dist := 0.0
	prevElev := elevationAt(0, n)

	for i := 0; i < n; i++ {
		speed := baseSpeedMPS + rng.NormFloat64()*2.0/3.6
		if speed < 0 {
			speed = 0
		}
		dist += speed

		elev := elevationAt(i, n)
		grade := 0.0
		if speed > 0 {
			grade = (elev - prevElev) / speed
		}
		prevElev = elev

		hr := baseHeartRate + (elev-baseElevM)*0.3 + rng.NormFloat64()*5
		hr = clamp(hr, 100, 200)

		power := basePowerW + speed*5 + grade*1000 + rng.NormFloat64()*20
		if power < 0 {
			power = 0
		}

		samples = append(samples, telemetry.RawSample{
			Timestamp:    start.Add(time.Duration(i) * time.Second),
			DistanceM:    dist,
			ElevationM:   elev,
			SpeedMPS:     speed,
			PowerW:       math.Round(power),
			HasPower:     true,
			HeartRateBPM: math.Round(hr),
			HasHeartRate: true,
		})
	}
	return samples
}

// elevationAt shapes the course: rolling hills over a climb-hold-descend
// profile.
func elevationAt(i, n int) float64 {
	t := float64(i)
	hills := math.Sin(t/float64(n)*4*math.Pi) * hillAmpM

	third := n / 3
	var course float64
	switch {
	case i < third:
		course = climbTotalM * t / float64(third)
	case i < 2*third:
		course = climbTotalM
	default:
		remain := float64(n - 2*third)
		course = climbTotalM * (1 - (t-float64(2*third))/remain)
	}
	return baseElevM + hills + course
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
