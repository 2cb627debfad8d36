package kernel

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind selects the kernel function. The numeric values are the kernel codes
// used by model files and command-line flags.
type Kind int

const (
	Gaussian    Kind = 0
	Exponential Kind = 1
	Polynomial  Kind = 2
	Linear      Kind = 3
	Sigmoid     Kind = 4
	UserDefined Kind = 5
)

// ErrUnknownKind is returned for kernel codes outside the enumerated set.
var ErrUnknownKind = errors.New("kernel: unknown kind")

var kindNames = [...]string{"gaussian", "exponential", "polynomial", "linear", "sigmoid", "user"}

// String returns the kernel name.
func (k Kind) String() string {
	if k.Valid() {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Valid reports whether k is an enumerated kind.
func (k Kind) Valid() bool {
	return k >= Gaussian && k <= UserDefined
}

// IsDistanceBased reports whether k depends on ‖a-b‖ and therefore on γ.
func (k Kind) IsDistanceBased() bool {
	return k == Gaussian || k == Exponential
}

// ParseKind accepts a kernel name ("gaussian", "rbf", ...) or numeric code.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if k := Kind(n); k.Valid() {
			return k, nil
		}
		return 0, fmt.Errorf("%w: %d", ErrUnknownKind, n)
	}
	if s == "rbf" {
		return Gaussian, nil
	}
	for i, name := range kindNames {
		if name == s {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
