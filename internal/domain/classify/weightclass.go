package classify

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/okian/liftprogress/internal/domain/model"
)

// IPF upper bounds in kg, ascending, with an open-ended top class.
var ipfWeightClasses = map[string][]float64{
	"M": {59, 66, 74, 83, 93, 105, 120, math.Inf(1)},
	"F": {47, 52, 57, 63, 69, 76, 84, math.Inf(1)},
}

// ClassifyIPFWeightClass returns the IPF class label for a bodyweight: the
// smallest upper bound not below it, or "<bound>+" for the open class. Sex is
// matched on its first letter. Missing or unknown input yields "unknown".
func ClassifyIPFWeightClass(sex string, bodyweight *float64) string {
	sex = strings.TrimSpace(sex)
	if sex == "" || bodyweight == nil || math.IsNaN(*bodyweight) {
		return model.WeightClassUnknown
	}
	bounds, ok := ipfWeightClasses[strings.ToUpper(sex[:1])]
	if !ok {
		return model.WeightClassUnknown
	}
	idx := sort.SearchFloat64s(bounds, *bodyweight)
	if idx >= len(bounds) {
		idx = len(bounds) - 1
	}
	upper := bounds[idx]
	if math.IsInf(upper, 1) {
		prev := 0.0
		if idx > 0 {
			prev = bounds[idx-1]
		}
		return strconv.Itoa(int(prev)) + "+"
	}
	return strconv.Itoa(int(upper))
}
