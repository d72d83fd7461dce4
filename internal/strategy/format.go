package strategy

import (
	"fmt"
	"math"
	"strconv"

	"github.com/dustin/go-humanize"

	"SignalEngine/internal/model"
)

// notAvailable is printed in place of an undefined indicator value.
const notAvailable = "n/a"

// price formats a value with two decimals.
func price(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// nullPrice formats an optional value with two decimals, "n/a" when undefined.
func nullPrice(v model.NullFloat) string {
	if !v.Valid {
		return notAvailable
	}
	return price(v.Float64)
}

// param prints a rule parameter in its shortest form: 45, 1.5, 0.25.
func param(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// volume prints a share count rounded to a whole number with thousands separators.
func volume(v float64) string {
	return humanize.Comma(int64(math.Round(v)))
}

// titleBool renders a flag as True or False.
func titleBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
