package odds

import "fmt"

// InvalidOddsError indicates a price quote that has no defined odds conversion
type InvalidOddsError struct {
	Price int
}

func (e *InvalidOddsError) Error() string {
	return fmt.Sprintf("invalid american odds: %d", e.Price)
}

// ImpliedProbability converts American odds to implied probability.
// A zero price has no defined odds and is rejected.
func ImpliedProbability(american int) (float64, error) {
	if american == 0 {
		return 0, &InvalidOddsError{Price: american}
	}
	if american > 0 {
		return 100.0 / (float64(american) + 100.0), nil
	}
	return float64(-american) / (float64(-american) + 100.0), nil
}

// ToDecimal converts American odds to decimal odds
func ToDecimal(american int) (float64, error) {
	if american == 0 {
		return 0, &InvalidOddsError{Price: american}
	}
	if american > 0 {
		return (float64(american) / 100.0) + 1.0, nil
	}
	return (100.0 / float64(-american)) + 1.0, nil
}
