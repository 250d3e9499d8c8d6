// Package dedup detects near-duplicate product records through identity
// fingerprints and edit-distance name similarity.
package dedup

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Record carries the identifying fields a duplicate check needs. Callers map
// their product type onto it.
type Record struct {
	ID       string
	SKU      string
	SourceID string
	Name     string
}

// Match reports the outcome of checking one candidate against a collection.
type Match struct {
	IsDuplicate bool    `json:"is_duplicate"`
	MatchID     string  `json:"match_id,omitempty"`
	Similarity  float64 `json:"similarity"`
}

// Collision links a later record to the first record sharing its fingerprint.
type Collision struct {
	Fingerprint string  `json:"fingerprint"`
	OriginalID  string  `json:"original_id"`
	DuplicateID string  `json:"duplicate_id"`
	Similarity  float64 `json:"similarity"`
}

// stripMarks removes combining marks after canonical decomposition so
// accented names fingerprint the same as their ASCII spellings.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fingerprint derives the deterministic dedup key for a record. SKU wins
// over source ID, which wins over the normalized name.
func Fingerprint(r Record) string {
	if sku := strings.TrimSpace(r.SKU); sku != "" {
		return "sku:" + sku
	}
	if sourceID := strings.TrimSpace(r.SourceID); sourceID != "" {
		return "id:" + sourceID
	}
	return "name:" + NormalizeName(r.Name)
}

// NormalizeName lowercases, strips accents and punctuation, and collapses
// whitespace so cosmetic differences do not defeat name-based matching.
func NormalizeName(name string) string {
	folded, _, err := transform.String(stripMarks, name)
	if err != nil {
		folded = name
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	lastSpace := true
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// Check tests a candidate against existing records. Fingerprint equality is
// the only condition that flags a duplicate; the similarity score is
// advisory. When nothing collides, Similarity reports the closest name in
// the collection so a reviewer can still eyeball near-misses.
func Check(candidate Record, existing []Record) Match {
	fp := Fingerprint(candidate)
	var closest float64
	for _, r := range existing {
		if Fingerprint(r) == fp {
			return Match{
				IsDuplicate: true,
				MatchID:     r.ID,
				Similarity:  Similarity(candidate.Name, r.Name),
			}
		}
		if s := Similarity(candidate.Name, r.Name); s > closest {
			closest = s
		}
	}
	return Match{Similarity: closest}
}

// Scan walks a collection once and reports every fingerprint collision. The
// first record holding a fingerprint is the original; each later record with
// the same fingerprint becomes a collision pointing back at it.
func Scan(records []Record) []Collision {
	seen := make(map[string]Record, len(records))
	var collisions []Collision
	for _, r := range records {
		fp := Fingerprint(r)
		original, ok := seen[fp]
		if !ok {
			seen[fp] = r
			continue
		}
		collisions = append(collisions, Collision{
			Fingerprint: fp,
			OriginalID:  original.ID,
			DuplicateID: r.ID,
			Similarity:  Similarity(original.Name, r.Name),
		})
	}
	return collisions
}
