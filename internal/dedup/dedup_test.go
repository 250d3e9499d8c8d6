package dedup

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFingerprintPriority(t *testing.T) {
	require.Equal(t, "sku:A1", Fingerprint(Record{SKU: "A1", SourceID: "src-9", Name: "Widget"}))
	require.Equal(t, "id:src-9", Fingerprint(Record{SourceID: "src-9", Name: "Widget"}))
	require.Equal(t, "name:widget", Fingerprint(Record{Name: "Widget"}))
}

func TestFingerprintDeterministicOnSKU(t *testing.T) {
	a := Record{ID: "1", SKU: "A1", Name: "Widget"}
	b := Record{ID: "2", SKU: "A1", Name: "Widget Pro", SourceID: "other"}
	require.Equal(t, Fingerprint(a), Fingerprint(b))
	require.Equal(t, Fingerprint(a), Fingerprint(a))
}

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"  Widget  Pro!! ":     "widget pro",
		"Crème Brûlée Candle":  "creme brulee candle",
		"USB-C Cable (2m)":     "usb c cable 2m",
		"":                     "",
		"---":                  "",
		"Wireless   Mouse 2.4": "wireless mouse 2 4",
	}
	for input, want := range cases {
		require.Equal(t, want, NormalizeName(input), "input %q", input)
	}
}

func TestCheckFlagsFingerprintCollision(t *testing.T) {
	existing := []Record{
		{ID: "p1", SKU: "A1", Name: "Widget"},
		{ID: "p2", SKU: "B2", Name: "Gadget"},
	}
	match := Check(Record{ID: "p3", SKU: "A1", Name: "Widget Pro"}, existing)

	require.True(t, match.IsDuplicate)
	require.Equal(t, "p1", match.MatchID)
	require.Greater(t, match.Similarity, float64(0))
}

func TestCheckNoCollisionReportsClosestName(t *testing.T) {
	existing := []Record{
		{ID: "p1", SKU: "A1", Name: "Widget"},
		{ID: "p2", SKU: "B2", Name: "Completely Different"},
	}
	match := Check(Record{ID: "p3", SKU: "C3", Name: "Widgets"}, existing)

	require.False(t, match.IsDuplicate)
	require.Empty(t, match.MatchID)
	require.Greater(t, match.Similarity, 0.8)
}

func TestScanFirstRecordIsOriginal(t *testing.T) {
	records := []Record{
		{ID: "p1", SKU: "A1", Name: "Widget"},
		{ID: "p2", SKU: "A1", Name: "Widget Pro"},
		{ID: "p3", Name: "Lamp"},
		{ID: "p4", Name: "  LAMP "},
		{ID: "p5", SKU: "A1", Name: "Widget Max"},
	}
	collisions := Scan(records)

	require.Len(t, collisions, 3)
	require.Equal(t, "p1", collisions[0].OriginalID)
	require.Equal(t, "p2", collisions[0].DuplicateID)
	require.Equal(t, "p3", collisions[1].OriginalID)
	require.Equal(t, "p4", collisions[1].DuplicateID)
	require.Equal(t, "p1", collisions[2].OriginalID)
	require.Equal(t, "p5", collisions[2].DuplicateID)
}

func TestScanEmpty(t *testing.T) {
	require.Empty(t, Scan(nil))
}

func TestSimilarityBounds(t *testing.T) {
	pairs := [][2]string{
		{"widget", "widget"},
		{"widget", "gadget"},
		{"", "something"},
		{"a", "b"},
		{"Grüße", "grusse"},
	}
	for _, pair := range pairs {
		s := Similarity(pair[0], pair[1])
		require.GreaterOrEqual(t, s, float64(0), "%q vs %q", pair[0], pair[1])
		require.LessOrEqual(t, s, float64(1), "%q vs %q", pair[0], pair[1])
	}
	require.Equal(t, float64(1), Similarity("widget", "widget"))
	require.Equal(t, float64(1), Similarity("", ""))
	require.Equal(t, float64(1), Similarity("Widget", "wIDGET"))
}

func TestSimilarityKnownDistance(t *testing.T) {
	// kitten -> sitting is the classic distance-3 pair.
	require.InDelta(t, 1-3.0/7.0, Similarity("kitten", "sitting"), 0.0001)
	require.Equal(t, float64(0), Similarity("abc", "xyz"))
}
