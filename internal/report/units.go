package report

import (
	"strconv"
	"strings"

	"github.com/rileyhilliard/whm/internal/errors"
)

// Gigabytes per unit suffix, as printed by lsblk.
var unitRatios = map[byte]float64{
	'K': 1.0 / (1024 * 1024),
	'M': 1.0 / 1024,
	'G': 1,
	'T': 1024,
}

// ToGigabytes converts a size such as "512M" or "465.8G" to gigabytes.
// The number must be a plain non-negative decimal; anything else, or an
// unknown suffix, is a DATA error.
func ToGigabytes(size string) (float64, error) {
	s := strings.TrimSpace(size)
	if len(s) < 2 {
		return 0, malformedUnit(size, nil)
	}

	ratio, ok := unitRatios[s[len(s)-1]]
	if !ok {
		return 0, malformedUnit(size, nil)
	}

	digits := s[:len(s)-1]
	if strings.Trim(digits, "0123456789.") != "" {
		return 0, malformedUnit(size, nil)
	}
	n, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0, malformedUnit(size, err)
	}
	return n * ratio, nil
}

func malformedUnit(size string, cause error) error {
	return errors.WrapWithCode(cause, errors.ErrData,
		"unrecognized size "+strconv.Quote(size),
		"Sizes are expected as a number followed by K, M, G or T")
}

// SizeProblem records a drive whose size could not be normalized.
type SizeProblem struct {
	Drive string
	Err   error
}

// DriveSizes returns the size in gigabytes of each top-level drive, in report
// order. Drives with a malformed size are left out and listed as problems.
func (r *Report) DriveSizes() (Values, []SizeProblem) {
	var sizes Values
	var problems []SizeProblem
	for _, d := range r.Drives {
		gb, err := ToGigabytes(d.Size)
		if err != nil {
			problems = append(problems, SizeProblem{Drive: d.Name, Err: err})
			continue
		}
		sizes = append(sizes, Field{Name: d.Name, Value: gb})
	}
	return sizes, problems
}
