package config

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// RuleParams is the flat name -> value mapping a rule set is configured with.
type RuleParams map[string]float64

// SwingRules holds the validated parameters of the swing rule set.
type SwingRules struct {
	EMAPeriod1      int
	EMAPeriod2      int
	RSIPeriod       int
	RSIRangeMin     float64
	RSIRangeMax     float64
	VolumeAvgPeriod int
	VolumeFactor    float64
	ADXPeriod       int
	ADXMin          float64
	POCPeriod       int
	DeliveryPercMin float64
}

// MomentumRules holds the validated parameters of the momentum rule set.
type MomentumRules struct {
	EMAPeriod1      int
	RSIMin          float64
	VolumeAvgPeriod int
	VolumeFactor    float64
	DeliveryPercMin float64
}

// MissingParamError reports required rule parameters absent from the config.
type MissingParamError struct {
	RuleSet string
	Keys    []string
}

func (e *MissingParamError) Error() string {
	return fmt.Sprintf("%s: missing required parameters: %s", e.RuleSet, strings.Join(e.Keys, ", "))
}

// ParseSwingRules builds SwingRules from params, failing on any missing required key.
func ParseSwingRules(params RuleParams) (SwingRules, error) {
	r := paramReader{set: "swing_rules", params: params}
	rules := SwingRules{
		EMAPeriod1:      r.period("ema_period_1"),
		EMAPeriod2:      r.period("ema_period_2"),
		RSIPeriod:       r.period("rsi_period"),
		RSIRangeMin:     r.float("rsi_range_min"),
		RSIRangeMax:     r.float("rsi_range_max"),
		VolumeAvgPeriod: r.period("volume_avg_period"),
		VolumeFactor:    r.float("volume_factor"),
		ADXPeriod:       r.period("adx_period"),
		ADXMin:          r.float("adx_min"),
		POCPeriod:       r.periodOr("poc_period", 60),
		DeliveryPercMin: r.floatOr("delivery_perc_min", 35.0),
	}
	if err := r.err(); err != nil {
		return SwingRules{}, err
	}
	if rules.RSIRangeMin > rules.RSIRangeMax {
		return SwingRules{}, fmt.Errorf("swing_rules: rsi_range_min %v exceeds rsi_range_max %v", rules.RSIRangeMin, rules.RSIRangeMax)
	}
	return rules, nil
}

// ParseMomentumRules builds MomentumRules from params, failing on any missing required key.
func ParseMomentumRules(params RuleParams) (MomentumRules, error) {
	r := paramReader{set: "momentum_rules", params: params}
	rules := MomentumRules{
		EMAPeriod1:      r.period("ema_period_1"),
		RSIMin:          r.float("rsi_min"),
		VolumeAvgPeriod: r.period("volume_avg_period"),
		VolumeFactor:    r.float("volume_factor"),
		DeliveryPercMin: r.floatOr("delivery_perc_min", 40.0),
	}
	if err := r.err(); err != nil {
		return MomentumRules{}, err
	}
	return rules, nil
}

// paramReader collects every missing or malformed key so one error names them all.
type paramReader struct {
	set     string
	params  RuleParams
	missing []string
	invalid []string
}

func (r *paramReader) float(key string) float64 {
	v, ok := r.params[key]
	if !ok {
		r.missing = append(r.missing, key)
		return 0
	}
	return v
}

func (r *paramReader) floatOr(key string, def float64) float64 {
	if v, ok := r.params[key]; ok {
		return v
	}
	return def
}

func (r *paramReader) period(key string) int {
	v, ok := r.params[key]
	if !ok {
		r.missing = append(r.missing, key)
		return 0
	}
	return r.checkPeriod(key, v)
}

func (r *paramReader) periodOr(key string, def int) int {
	v, ok := r.params[key]
	if !ok {
		return def
	}
	return r.checkPeriod(key, v)
}

func (r *paramReader) checkPeriod(key string, v float64) int {
	if v < 1 || v != math.Trunc(v) {
		r.invalid = append(r.invalid, key)
		return 0
	}
	return int(v)
}

func (r *paramReader) err() error {
	if len(r.missing) > 0 {
		sort.Strings(r.missing)
		return &MissingParamError{RuleSet: r.set, Keys: r.missing}
	}
	if len(r.invalid) > 0 {
		return fmt.Errorf("%s: parameters must be positive integers: %s", r.set, strings.Join(r.invalid, ", "))
	}
	return nil
}
