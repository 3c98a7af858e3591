// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

// Package size is the exact-byte quantity used for every device and
// format capacity in the graph: current size, requested size, resize
// bounds, physical-extent accounting. It is deliberately a single
// integer type rather than a float so that repeated addition and
// subtraction across the populator and the allocator never drifts.
package size

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/blivet-go/blivet/errors"
)

// Size is an exact byte count. The zero value is zero bytes.
type Size int64

// Common unit constants, matching the teacher's HumanReadableSize scale.
const (
	B Size = 1
	K      = 1024 * B
	M      = 1024 * K
	G      = 1024 * M
	T      = 1024 * G
	P      = 1024 * T
)

var sizeExp = regexp.MustCompile(`^(-?[0-9]*(\.)?[0-9]*)([bkmgtp]{1}){0,1}$`)

// Bytes returns the size as a plain int64 byte count.
func (s Size) Bytes() int64 { return int64(s) }

// Add returns s + other.
func (s Size) Add(other Size) Size { return s + other }

// Sub returns s - other. Callers that need a non-negative result (e.g.
// free space) should check the sign themselves; Sub does not clamp.
func (s Size) Sub(other Size) Size { return s - other }

// MulScalar returns s multiplied by a non-negative scalar, rounded to
// the nearest byte.
func (s Size) MulScalar(scalar float64) Size {
	if scalar < 0 {
		panic("size: MulScalar requires a non-negative scalar")
	}
	return Size(math.Round(float64(s) * scalar))
}

// DivScalar divides s by other and returns the resulting dimensionless
// scalar (e.g. how many physical extents fit in a size). Dividing by
// zero panics, mirroring the teacher's refusal to silently swallow a
// divide-by-zero in allocation math.
func (s Size) DivScalar(other Size) float64 {
	if other == 0 {
		panic("size: DivScalar by zero Size")
	}
	return float64(s) / float64(other)
}

// Cmp returns -1, 0 or 1 as s is less than, equal to, or greater than other.
func (s Size) Cmp(other Size) int {
	switch {
	case s < other:
		return -1
	case s > other:
		return 1
	default:
		return 0
	}
}

// RoundUpTo rounds s up to the nearest multiple of unit. unit must be positive.
func (s Size) RoundUpTo(unit Size) Size {
	if unit <= 0 {
		panic("size: RoundUpTo requires a positive unit")
	}
	rem := s % unit
	if rem == 0 {
		return s
	}
	return s + (unit - rem)
}

// RoundDownTo rounds s down to the nearest multiple of unit. unit must be positive.
func (s Size) RoundDownTo(unit Size) Size {
	if unit <= 0 {
		panic("size: RoundDownTo requires a positive unit")
	}
	return s - (s % unit)
}

// Parse parses a string formatted like "1M", "10G", "2T", or a bare
// byte count, and returns the equivalent Size. Grounded on the
// teacher's ParseVolumeSize, extended to accept signed scalars so size
// deltas can be parsed the same way.
func Parse(str string) (Size, error) {
	str = strings.ToLower(strings.TrimSpace(str))

	if !sizeExp.MatchString(str) {
		n, err := strconv.ParseInt(str, 0, 64)
		if err != nil {
			return 0, errors.Errorf("invalid size %q: %v", str, err)
		}
		return Size(n), nil
	}

	unit := sizeExp.ReplaceAllString(str, `$3`)
	fsize, err := strconv.ParseFloat(sizeExp.ReplaceAllString(str, `$1`), 64)
	if err != nil {
		return 0, errors.Errorf("invalid size %q: %v", str, err)
	}

	switch unit {
	case "b", "":
		fsize *= float64(B)
	case "k":
		fsize *= float64(K)
	case "m":
		fsize *= float64(M)
	case "g":
		fsize *= float64(G)
	case "t":
		fsize *= float64(T)
	case "p":
		fsize *= float64(P)
	}

	return Size(math.Round(fsize)), nil
}

// String renders the size in the closest whole unit, e.g. "10M", "1.5G".
// Grounded on the teacher's HumanReadableSizeWithUnitAndPrecision.
func (s Size) String() string {
	str, err := HumanReadable(s, "", -1)
	if err != nil {
		return fmt.Sprintf("%dB", int64(s))
	}
	return str
}

// HumanReadable converts size into the closest human readable format,
// e.g. "10M", "1G", "2T". If unit is non-empty the value is forced into
// that unit (one of B, K, M, G, T, P); if precision is negative a
// sensible default for the chosen unit is used.
func HumanReadable(s Size, unit string, precision int) (string, error) {
	unit = strings.ToUpper(unit)

	value := float64(s)
	neg := ""
	if value < 0 {
		neg = "-"
		value = -value
	}

	if value == 0 {
		return "0", nil
	}

	units := []struct {
		suffix    string
		mask      float64
		precision int
	}{
		{"P", float64(P), 5},
		{"T", float64(T), 4},
		{"G", float64(G), 3},
		{"M", float64(M), 2},
		{"K", float64(K), 1},
		{"B", float64(B), 0},
	}

	for _, curr := range units {
		scaled := value / curr.mask

		if unit == "" {
			if scaled < 1 {
				continue
			}
		} else if unit != curr.suffix {
			continue
		}

		p := precision
		if p < 0 {
			p = curr.precision
		}

		formatted := strconv.FormatFloat(scaled, 'f', p, 64)
		if strings.Contains(formatted, ".") {
			formatted = strings.TrimRight(strings.TrimRight(formatted, "0"), ".")
		}

		suffix := curr.suffix
		if suffix == "B" {
			suffix = ""
		}

		return neg + formatted + suffix, nil
	}

	return "", errors.Errorf("could not format size %d", int64(s))
}
