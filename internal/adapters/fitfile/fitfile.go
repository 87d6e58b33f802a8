// Package fitfile decodes Garmin FIT activity files into raw telemetry
// samples. Only record messages are consumed; laps, sessions and device
// metadata are skipped.
package fitfile

import (
	"bytes"
	"fmt"

	"github.com/muktihari/fit/decoder"
	"github.com/muktihari/fit/profile/mesgdef"
	"github.com/muktihari/fit/profile/typedef"
	"github.com/muktihari/fit/proto"

	"github.com/okian/grimpeur/internal/domain/telemetry"
)

// FIT invalid sentinels and scales per the SDK profile: distance in cm,
// speed in mm/s, altitude stored as 5*(m+500).
const (
	invalidUint8  = 0xFF
	invalidUint16 = 0xFFFF
	invalidUint32 = 0xFFFFFFFF

	distanceScale = 100.0
	speedScale    = 1000.0
	altitudeScale = 5.0
	altitudeShift = 500.0
)

// Decode parses FIT bytes and returns the record stream as raw samples.
// Records without a timestamp are dropped; records without a distance or
// altitude reading carry the previous value forward.
func Decode(data []byte) ([]telemetry.RawSample, error) {
	const op = "fitfile.decode"
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyFile)
	}

	fitDec := decoder.New(bytes.NewReader(data))

	var samples []telemetry.RawSample
	var lastDistanceM, lastElevationM float64

	for fitDec.Next() {
		fitData, err := fitDec.Decode()
		if err != nil {
			return nil, fmt.Errorf("%s: %v: %w", op, err, ErrCorruptFile)
		}

		for i := range fitData.Messages {
			msg := &fitData.Messages[i]
			if msg.Num != typedef.MesgNumRecord {
				continue
			}
			if s, ok := parseRecord(msg, &lastDistanceM, &lastElevationM); ok {
				samples = append(samples, s)
			}
		}
	}

	if len(samples) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNoRecords)
	}
	return samples, nil
}

// parseRecord extracts one raw sample from a FIT record message.
func parseRecord(msg *proto.Message, lastDistanceM, lastElevationM *float64) (telemetry.RawSample, bool) {
	rec := mesgdef.NewRecord(msg)

	ts := rec.Timestamp
	if ts.IsZero() {
		return telemetry.RawSample{}, false
	}

	s := telemetry.RawSample{Timestamp: ts.UTC()}

	if rec.Distance != invalidUint32 {
		*lastDistanceM = float64(rec.Distance) / distanceScale
	}
	s.DistanceM = *lastDistanceM

	if rec.Altitude != invalidUint16 {
		*lastElevationM = float64(rec.Altitude)/altitudeScale - altitudeShift
	}
	s.ElevationM = *lastElevationM

	if rec.Speed != invalidUint16 {
		s.SpeedMPS = float64(rec.Speed) / speedScale
	}

	if rec.Power != invalidUint16 {
		s.PowerW = float64(rec.Power)
		s.HasPower = true
	}

	if rec.HeartRate != invalidUint8 {
		s.HeartRateBPM = float64(rec.HeartRate)
		s.HasHeartRate = true
	}

	if rec.Cadence != invalidUint8 {
		s.CadenceRPM = float64(rec.Cadence)
		s.HasCadence = true
	}

	return s, true
}
