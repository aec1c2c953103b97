package token

import (
	"math"
	"regexp"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// ErrInvalidDuration is returned for duration expressions that are not a number followed by d, h, m or s.
var ErrInvalidDuration = errors.New("invalid duration expression")

var durationPattern = regexp.MustCompile(`^(\d+)\s*([dhms])$`)

// ParseDuration converts expressions such as "7d", "12h", "30m" or "45s" into a time.Duration.
func ParseDuration(expr string) (time.Duration, error) {
	match := durationPattern.FindStringSubmatch(expr)
	if match == nil {
		return 0, errors.Wrapf(ErrInvalidDuration, "%q", expr)
	}
	value, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidDuration, "%q", expr)
	}

	var unit time.Duration
	switch match[2] {
	case "d":
		unit = 24 * time.Hour
	case "h":
		unit = time.Hour
	case "m":
		unit = time.Minute
	case "s":
		unit = time.Second
	}
	if int64(value) > math.MaxInt64/int64(unit) {
		return 0, errors.Wrapf(ErrInvalidDuration, "%q is out of range", expr)
	}
	return time.Duration(value) * unit, nil
}

// ExpiryFrom returns the absolute time expr after now.
func ExpiryFrom(now time.Time, expr string) (time.Time, error) {
	d, err := ParseDuration(expr)
	if err != nil {
		return time.Time{}, err
	}
	return now.Add(d), nil
}
