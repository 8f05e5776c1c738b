// Package format renders amounts and dates for display.
package format

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Currency renders a value as Indian rupees with Indian digit grouping,
// e.g. 100000 -> "₹1,00,000.00". Non-finite values render as zero.
func Currency(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	whole := int64(v)
	fraction := int64(math.Round((v - float64(whole)) * 100))
	if fraction >= 100 { // rounding carried over
		whole++
		fraction -= 100
	}
	return fmt.Sprintf("%s₹%s.%02d", sign, groupIndian(whole), fraction)
}

// groupIndian inserts separators in the Indian style: the last three
// digits form one group, every two digits after that form another.
func groupIndian(n int64) string {
	digits := fmt.Sprintf("%d", n)
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	return strings.Join(groups, ",") + "," + tail
}

// Date renders a date-like value as "Jan 2, 2006". Empty input renders
// as "-"; anything unparseable passes through unchanged.
func Date(value string) string {
	if value == "" {
		return "-"
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("Jan 2, 2006")
		}
	}
	return value
}
