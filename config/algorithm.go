package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hupe1980/bsvm/budget"
)

// Algorithm identifies the training algorithm the parameters are for.
// The numeric values are the toolbox algorithm codes.
type Algorithm int

const (
	Pegasos   Algorithm = 0
	AMMBatch  Algorithm = 1
	AMMOnline Algorithm = 2
	LLSVM     Algorithm = 3
	BSGD      Algorithm = 4
)

var algorithmNames = [...]string{"pegasos", "amm-batch", "amm-online", "llsvm", "bsgd"}

// String returns the algorithm name.
func (a Algorithm) String() string {
	if a.Valid() {
		return algorithmNames[a]
	}
	return fmt.Sprintf("Algorithm(%d)", int(a))
}

// Valid reports whether a is a known algorithm.
func (a Algorithm) Valid() bool {
	return a >= Pegasos && a <= BSGD
}

// Budgeted reports whether the algorithm keeps a bounded set of vectors.
func (a Algorithm) Budgeted() bool {
	return a != Pegasos
}

// Family returns the vector family the algorithm maintains under a budget.
// Pegasos has none.
func (a Algorithm) Family() (budget.Family, bool) {
	switch a {
	case AMMBatch, AMMOnline:
		return budget.FamilyWeight, true
	case BSGD:
		return budget.FamilySupport, true
	case LLSVM:
		return budget.FamilyLandmark, true
	default:
		return 0, false
	}
}

// ParseAlgorithm accepts an algorithm name or numeric code.
func ParseAlgorithm(s string) (Algorithm, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if a := Algorithm(n); a.Valid() {
			return a, nil
		}
		return 0, &FieldError{Field: "algorithm", Value: n, Reason: "must be between 0 and 4"}
	}
	for i, name := range algorithmNames {
		if name == s || strings.ReplaceAll(name, "-", "") == s {
			return Algorithm(i), nil
		}
	}
	return 0, &FieldError{Field: "algorithm", Value: s, Reason: "unknown algorithm"}
}

// MarshalText implements encoding.TextMarshaler.
func (a Algorithm) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, &FieldError{Field: "algorithm", Value: int(a), Reason: "must be between 0 and 4"}
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Algorithm) UnmarshalText(text []byte) error {
	parsed, err := ParseAlgorithm(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
