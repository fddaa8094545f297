package stakes

import "sort"

// CapOutliers applies IQR-based capping to a raw stake map, guarding
// against a single extreme bet distorting the whole distribution. It
// is independent of team assignment. Quartiles come from the sorted
// values without interpolation; any stake above Q3 + 1.5*IQR is capped
// to that bound, truncated to an integer. When nothing exceeds the
// bound the input map is returned as is.
func CapOutliers(stakes map[string]int) map[string]int {
	if len(stakes) == 0 {
		return stakes
	}

	values := make([]int, 0, len(stakes))
	for _, v := range stakes {
		values = append(values, v)
	}
	sort.Ints(values)

	n := len(values)
	q1 := values[n/4]
	q3 := values[(3*n)/4]
	iqr := q3 - q1
	upper := float64(q3) + 1.5*float64(iqr)

	capped := false
	for _, v := range values {
		if float64(v) > upper {
			capped = true
			break
		}
	}
	if !capped {
		return stakes
	}

	out := make(map[string]int, len(stakes))
	for id, v := range stakes {
		if float64(v) > upper {
			out[id] = int(upper)
		} else {
			out[id] = v
		}
	}
	return out
}
