package domain

import (
	"errors"
	"slices"
)

var ErrInvalidSlotNumbers = errors.New("invalid slot numbers")

// NormalizeSlotNumbers returns a sorted copy of numbers. It rejects empty
// input, non-positive numbers and duplicates.
func NormalizeSlotNumbers(numbers []int) ([]int, error) {
	if len(numbers) == 0 {
		return nil, ErrInvalidSlotNumbers
	}

	out := slices.Clone(numbers)
	slices.Sort(out)

	for i, n := range out {
		if n <= 0 {
			return nil, ErrInvalidSlotNumbers
		}
		if i > 0 && out[i-1] == n {
			return nil, ErrInvalidSlotNumbers
		}
	}

	return out, nil
}
