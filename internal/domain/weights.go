package domain

import (
	"fmt"
	"math"
	"sort"
)

// WeightEpsilon is the tolerance allowed when checking that weights sum to 1.0.
const WeightEpsilon = 0.01

// ValidateWeights checks that every weight is within [0,1] and that the total is 1.0
// within WeightEpsilon. It never normalizes. The computed sum is returned either way.
func ValidateWeights(owner string, weights map[string]float64) (float64, error) {
	if len(weights) == 0 {
		return 0, &InvalidWeightConfigurationError{Owner: owner, Reason: "no weights configured"}
	}

	ids := make([]string, 0, len(weights))
	for id := range weights {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	sum := 0.0
	for _, id := range ids {
		w := weights[id]
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return 0, &InvalidWeightConfigurationError{Owner: owner, Reason: fmt.Sprintf("weight for %s is not a finite number", id)}
		}
		if w < 0 {
			return 0, &InvalidWeightConfigurationError{Owner: owner, Reason: fmt.Sprintf("weight for %s is negative (%.4f)", id, w)}
		}
		if w > 1 {
			return 0, &InvalidWeightConfigurationError{Owner: owner, Reason: fmt.Sprintf("weight for %s exceeds 1.0 (%.4f)", id, w)}
		}
		sum += w
	}

	if math.Abs(sum-1.0) > WeightEpsilon {
		return sum, &InvalidWeightConfigurationError{Owner: owner, Sum: sum}
	}
	return sum, nil
}
