// Package classify assigns product categories by scoring keyword occurrences
// in free-text product descriptions.
package classify

import "strings"

// Uncategorized is returned when no keyword matches at all.
const Uncategorized = "uncategorized"

// confidenceCeiling is the score at which confidence saturates at 1.
const confidenceCeiling = 10

// Rule binds a category to the keywords that vote for it. Rules are scored
// in slice order; the order decides ties, so tables are slices rather than
// maps.
type Rule struct {
	Category string   `json:"category"`
	Keywords []string `json:"keywords"`
}

// Table is an ordered keyword table.
type Table []Rule

// Result describes the outcome of one classification.
type Result struct {
	Category string `json:"category"`
	// Confidence is a heuristic score in [0,1], not a probability.
	Confidence float64        `json:"confidence"`
	Scores     map[string]int `json:"scores"`
}

// Classifier scores text against a fixed table.
type Classifier struct {
	table Table
}

// New builds a Classifier over the given table.
func New(table Table) *Classifier {
	return &Classifier{table: table}
}

// Classify scores each category by counting case-insensitive substring
// occurrences of its keywords in the text. The first category to reach the
// maximum score wins; an all-zero scoreboard yields Uncategorized with
// confidence 0.
func (c *Classifier) Classify(text string) Result {
	lowered := strings.ToLower(text)
	scores := make(map[string]int, len(c.table))

	best := Result{Category: Uncategorized, Scores: scores}
	bestScore := 0
	for _, rule := range c.table {
		score := 0
		for _, keyword := range rule.Keywords {
			keyword = strings.ToLower(strings.TrimSpace(keyword))
			if keyword == "" {
				continue
			}
			score += strings.Count(lowered, keyword)
		}
		scores[rule.Category] = score
		if score > bestScore {
			bestScore = score
			best.Category = rule.Category
		}
	}

	if bestScore == 0 {
		return best
	}
	best.Confidence = float64(bestScore) / confidenceCeiling
	if best.Confidence > 1 {
		best.Confidence = 1
	}
	return best
}

// ClassifyFields concatenates the name, description and tags the way product
// text is stored and classifies the result.
func (c *Classifier) ClassifyFields(name, description string, tags []string) Result {
	parts := make([]string, 0, len(tags)+2)
	parts = append(parts, name, description)
	parts = append(parts, tags...)
	return c.Classify(strings.Join(parts, " "))
}

// DefaultTable covers the storefront categories shipped out of the box.
// Deployments override it through configuration.
func DefaultTable() Table {
	return Table{
		{Category: "electronics", Keywords: []string{"usb", "charger", "battery", "bluetooth", "wireless", "headphone", "speaker", "cable", "led"}},
		{Category: "clothing", Keywords: []string{"shirt", "dress", "jacket", "pants", "cotton", "sleeve", "hoodie", "sock"}},
		{Category: "skincare", Keywords: []string{"cream", "moisturizer", "serum", "cleanser", "sunscreen", "lotion", "mask"}},
		{Category: "hair", Keywords: []string{"shampoo", "conditioner", "hair", "comb", "brush"}},
		{Category: "home", Keywords: []string{"kitchen", "pillow", "blanket", "lamp", "organizer", "storage", "mug"}},
		{Category: "toys", Keywords: []string{"toy", "puzzle", "lego", "doll", "game", "plush"}},
		{Category: "sports", Keywords: []string{"yoga", "fitness", "gym", "ball", "resistance", "dumbbell"}},
	}
}
