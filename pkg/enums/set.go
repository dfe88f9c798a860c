package enums

import (
	"fmt"
	"slices"
)

// parseOne matches value exactly against the known members of an enum.
func parseOne[T ~string](what string, known []T, value string) (T, error) {
	if slices.Contains(known, T(value)) {
		return T(value), nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", what, value)
}
