package features

import (
	"cmp"
	"slices"

	"github.com/okian/liftprogress/internal/domain/model"
	"github.com/okian/liftprogress/internal/domain/timeline"
)

type segment struct {
	sex         string
	weightClass string
}

func segmentOf(r *model.FeatureRow) segment {
	return segment{sex: r.SexCategory, weightClass: r.IPFWeightClass}
}

// groupBySegment returns the row indexes of every (sex, weight class)
// segment that have a value for get.
func groupBySegment(rows []model.FeatureRow, get timeline.Getter) map[segment][]int {
	groups := make(map[segment][]int)
	for i := range rows {
		if get(&rows[i]) == nil {
			continue
		}
		k := segmentOf(&rows[i])
		groups[k] = append(groups[k], i)
	}
	return groups
}

// PercentileRank sets, for every row with a value, its average rank within
// its (sex, weight class) segment divided by the segment's value count, times
// 100. The lowest value ranks 1. Ties share their mean rank. The whole table
// is one snapshot, so a row is ranked against the segment's full history.
// Rows without a value get nil.
func PercentileRank(rows []model.FeatureRow, get timeline.Getter, set timeline.Setter) {
	for i := range rows {
		set(&rows[i], nil)
	}
	for _, idx := range groupBySegment(rows, get) {
		order := slices.Clone(idx)
		slices.SortStableFunc(order, func(a, b int) int { return cmp.Compare(*get(&rows[a]), *get(&rows[b])) })

		n := float64(len(order))
		for start := 0; start < len(order); {
			end := start
			v := *get(&rows[order[start]])
			for end+1 < len(order) && *get(&rows[order[end+1]]) == v {
				end++
			}
			rank := float64(start+end)/2 + 1
			for p := start; p <= end; p++ {
				set(&rows[order[p]], model.Float(rank/n*100))
			}
			start = end + 1
		}
	}
}

// SegmentMean sets every row's segment mean of get, and the ratio of the
// row's own value to it. Segments are (sex, weight class) over the whole
// table.
func SegmentMean(rows []model.FeatureRow, get timeline.Getter, setMean, setRatio timeline.Setter) {
	means := make(map[segment]float64)
	for k, idx := range groupBySegment(rows, get) {
		var sum float64
		for _, i := range idx {
			sum += *get(&rows[i])
		}
		means[k] = sum / float64(len(idx))
	}
	for i := range rows {
		m, ok := means[segmentOf(&rows[i])]
		if !ok {
			setMean(&rows[i], nil)
			setRatio(&rows[i], nil)
			continue
		}
		setMean(&rows[i], model.Float(m))
		setRatio(&rows[i], model.Div(get(&rows[i]), model.Float(m)))
	}
}
