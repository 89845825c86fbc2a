package domain

import (
	"strings"
	"time"
)

// Cadence is the enumerated sync interval of a plan. Values outside the
// recognized set degrade to "unscheduled" rather than erroring.
type Cadence string

const (
	CadenceEvery2h  Cadence = "EVERY_2H"
	CadenceEvery6h  Cadence = "EVERY_6H"
	CadenceEvery12h Cadence = "EVERY_12H"
	CadenceEvery24h Cadence = "EVERY_24H"
	CadenceBiweekly Cadence = "EVERY_336H"
)

var cadenceIntervals = map[Cadence]time.Duration{
	CadenceEvery2h:  2 * time.Hour,
	CadenceEvery6h:  6 * time.Hour,
	CadenceEvery12h: 12 * time.Hour,
	CadenceEvery24h: 24 * time.Hour,
	CadenceBiweekly: 336 * time.Hour,
}

// Interval maps the cadence to a duration. The second return is false for
// unrecognized cadences.
func (c Cadence) Interval() (time.Duration, bool) {
	d, ok := cadenceIntervals[normalizeCadence(c)]
	return d, ok
}

// ParseCadence normalizes a raw cadence string; ok is false when the value
// is not in the supported set.
func ParseCadence(raw string) (Cadence, bool) {
	c := normalizeCadence(Cadence(raw))
	_, ok := cadenceIntervals[c]
	return c, ok
}

func normalizeCadence(c Cadence) Cadence {
	return Cadence(strings.ToUpper(strings.TrimSpace(string(c))))
}
