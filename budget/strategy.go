package budget

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hupe1980/bsvm/model"
)

// Strategy selects how an over-budget working set is reduced.
type Strategy uint8

const (
	// Removal drops the least useful element.
	Removal Strategy = iota
	// Merging merges the pair whose merge costs the least.
	Merging
)

// String implements fmt.Stringer.
func (s Strategy) String() string {
	switch s {
	case Removal:
		return "removal"
	case Merging:
		return "merging"
	default:
		return fmt.Sprintf("Strategy(%d)", uint8(s))
	}
}

// ParseStrategy accepts "removal", "merging" or the numeric codes 0 and 1.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "removal", "remove":
		return Removal, nil
	case "merging", "merge":
		return Merging, nil
	}
	if n, err := strconv.Atoi(s); err == nil && (n == int(Removal) || n == int(Merging)) {
		return Strategy(n), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidStrategy, s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	if s > Merging {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStrategy, uint8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(text []byte) error {
	v, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Family is the algorithm family whose vectors are maintained.
type Family uint8

const (
	// FamilyWeight is the Pegasos/AMM family of per-class weights.
	FamilyWeight Family = iota
	// FamilySupport is the BSGD family of support vectors.
	FamilySupport
	// FamilyLandmark is the LLSVM family of landmark points.
	FamilyLandmark
)

// String implements fmt.Stringer.
func (f Family) String() string {
	return f.Kind().String()
}

// Kind returns the model kind of the family's vectors.
func (f Family) Kind() model.Kind {
	switch f {
	case FamilySupport:
		return model.KindSupport
	case FamilyLandmark:
		return model.KindLandmark
	default:
		return model.KindWeight
	}
}
