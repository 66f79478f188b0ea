package nutrition

// Totals holds the summed macros across all detected items.
type Totals struct {
	Calories int     `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// Analysis is the presentation payload derived from an InferenceResult.
type Analysis struct {
	IsFood bool   `json:"is_food"`
	Items  []Item `json:"items"`
	Totals Totals `json:"totals"`
}

// Aggregate sums per-item macros into totals. A not-food result yields zero
// totals and an empty item list regardless of whatever items the model
// emitted. Calories accumulate as an integer, the remaining fields as floats;
// fields the model omitted contribute zero.
func Aggregate(result InferenceResult) Analysis {
	if !result.IsFood {
		return Analysis{IsFood: false, Items: []Item{}}
	}

	items := result.Items
	if items == nil {
		items = []Item{}
	}

	var totals Totals
	for _, item := range items {
		totals.Calories += int(item.Calories)
		totals.Protein += item.Protein
		totals.Carbs += item.Carbs
		totals.Fat += item.Fat
	}

	return Analysis{IsFood: true, Items: items, Totals: totals}
}
