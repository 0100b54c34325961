package service

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sakif/sleepfit-stats/internal/fitbit"
	"github.com/sakif/sleepfit-stats/internal/model"
)

// stageTolerance is how far the three stage percentages may drift from 100.
const stageTolerance = 0.1

// StagePercentages are the deep, REM and light shares of time asleep.
type StagePercentages struct {
	Deep  float64
	Rem   float64
	Light float64
}

func (p StagePercentages) Sum() float64 {
	return p.Deep + p.Rem + p.Light
}

// NormalizeStages converts stage minutes to percentages of asleep minutes.
// When the shares miss 100 by more than stageTolerance they are rescaled
// proportionally. Zero asleep minutes yields all zeros.
func NormalizeStages(asleep, deep, rem, light int) StagePercentages {
	if asleep <= 0 {
		return StagePercentages{}
	}

	total := float64(asleep)
	p := StagePercentages{
		Deep:  float64(deep) / total * 100,
		Rem:   float64(rem) / total * 100,
		Light: float64(light) / total * 100,
	}

	sum := p.Sum()
	if sum > 0 && math.Abs(sum-100) > stageTolerance {
		f := 100 / sum
		p.Deep *= f
		p.Rem *= f
		p.Light *= f
	}
	return p
}

// QualityScore is a heuristic 0-10 score: round((deep*0.6 + rem*0.4) / 10),
// capped at 10. It is not a clinical measure.
func QualityScore(deepPct, remPct float64) int {
	q := int(math.Round((deepPct*0.6 + remPct*0.4) / 10))
	return max(0, min(10, q))
}

// activityKeywords is checked in order; the first match wins.
var activityKeywords = []struct {
	words []string
	typ   model.ActivityType
}{
	{[]string{"run", "jog"}, model.ActivityRunning},
	{[]string{"walk"}, model.ActivityWalking},
	{[]string{"cycl", "bike"}, model.ActivityCycling},
	{[]string{"swim"}, model.ActivitySwimming},
	{[]string{"weight", "strength"}, model.ActivityWeightlifting},
	{[]string{"yoga"}, model.ActivityYoga},
}

// MapActivityType files a free-text provider activity name under one of
// the fixed categories.
func MapActivityType(name string) model.ActivityType {
	lower := strings.ToLower(name)
	for _, k := range activityKeywords {
		for _, w := range k.words {
			if strings.Contains(lower, w) {
				return k.typ
			}
		}
	}
	return model.ActivityOther
}

// MapHeartRateZones picks the four named provider zones. Missing zones are 0.
func MapHeartRateZones(zones []fitbit.HeartRateZone) model.HeartRateZones {
	var out model.HeartRateZones
	for _, z := range zones {
		switch z.Name {
		case "Out of Range":
			out.OutOfRange = z.Minutes
		case "Fat Burn":
			out.FatBurn = z.Minutes
		case "Cardio":
			out.Cardio = z.Minutes
		case "Peak":
			out.Peak = z.Minutes
		}
	}
	return out
}

var providerTimeLayouts = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
}

// parseProviderTime reads a Fitbit timestamp. Fitbit sends local wall time
// without a zone; it is stored as if it were UTC.
func parseProviderTime(s string) (time.Time, error) {
	for _, layout := range providerTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
