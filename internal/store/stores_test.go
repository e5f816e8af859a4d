package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"tickagent/internal/tick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONListReadNeverFails(t *testing.T) {
	dir := t.TempDir()

	missing := NewJSONList[tick.Position](filepath.Join(dir, "missing.json"))
	assert.Empty(t, missing.Read())
	assert.NotNil(t, missing.Read())

	objPath := filepath.Join(dir, "object.json")
	require.NoError(t, os.WriteFile(objPath, []byte(`{"ticker":"X"}`), 0o644))
	assert.Empty(t, NewJSONList[tick.Position](objPath).Read())

	junkPath := filepath.Join(dir, "junk.json")
	require.NoError(t, os.WriteFile(junkPath, []byte(`not json`), 0o644))
	assert.Empty(t, NewJSONList[tick.Position](junkPath).Read())

	assert.Empty(t, NewJSONList[tick.Position](dir).Read())
}

func TestJSONListWriteReplacesWholeDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "positions.json")
	list := NewJSONList[tick.Position](path)

	price := 110.0
	require.NoError(t, list.Write([]tick.Position{
		{Ticker: "X", Quantity: 10, PurchasePrice: 100, CurrentPrice: &price},
		{Ticker: "Y", Quantity: 2, PurchasePrice: 5},
	}))
	require.NoError(t, list.Write([]tick.Position{{Ticker: "Z", Quantity: 1, PurchasePrice: 1}}))

	got := list.Read()
	require.Len(t, got, 1)
	assert.Equal(t, "Z", got[0].Ticker)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\"current_price\": null")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestJSONListWriteNilAsEmptyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, NewJSONList[tick.HistoryEntry](path).Write(nil))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))
}

func TestHistoryAppendKeepsOrder(t *testing.T) {
	h := NewHistory(filepath.Join(t.TempDir(), "history.json"))
	for i := 0; i < 3; i++ {
		require.NoError(t, h.Append(tick.HistoryEntry{
			AIRecommendations: []tick.Trade{{Action: tick.ActionBuy, Ticker: "X", Quantity: i}},
			Rationale:         fmt.Sprintf("tick %d", i),
		}))
	}
	got := h.Load()
	require.Len(t, got, 3)
	for i, e := range got {
		assert.Equal(t, fmt.Sprintf("tick %d", i), e.Rationale)
		assert.Equal(t, i, e.AIRecommendations[0].Quantity)
	}
}

func TestHistoryConcurrentAppendsAreNotLost(t *testing.T) {
	h := NewHistory(filepath.Join(t.TempDir(), "history.json"))
	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, h.Append(tick.HistoryEntry{Rationale: fmt.Sprint(i)}))
		}(i)
	}
	wg.Wait()
	assert.Len(t, h.Load(), n)
}

func TestSnapshotReplace(t *testing.T) {
	s := NewSnapshot(filepath.Join(t.TempDir(), "positions.json"))
	assert.Empty(t, s.Load())
	require.NoError(t, s.Replace([]tick.Position{{Ticker: "A", Quantity: 3, PurchasePrice: 9.5}}))
	got := s.Load()
	require.Len(t, got, 1)
	assert.Equal(t, tick.Position{Ticker: "A", Quantity: 3, PurchasePrice: 9.5}, got[0])
}

func TestHistoryAppendPreservesStoredEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	stored := []string{
		`{"ai_recommendations":[{"action":"BUY","ticker":"X","quantity":"two"}],"rationale":"old 1"}`,
		`{"ai_recommendations":[{"action":"SELL","ticker":"Y","quantity":2.5}],"rationale":"old 2","note":"x"}`,
		`{"ai_recommendations":[],"rationale":"old 3"}`,
	}
	seed := "[" + strings.Join(stored, ",") + "]"
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o644))

	h := NewHistory(path)
	require.NoError(t, h.Append(tick.HistoryEntry{Rationale: "new"}))
	require.NoError(t, h.Append(tick.HistoryEntry{Rationale: "newer"}))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var elems []json.RawMessage
	require.NoError(t, json.Unmarshal(b, &elems))
	require.Len(t, elems, len(stored)+2)
	for i, want := range stored {
		assert.Equal(t, want, string(elems[i]), "entry %d rewritten", i)
	}
	assert.JSONEq(t, `{"ai_recommendations":[],"rationale":"new"}`, string(elems[3]))
	assert.JSONEq(t, `{"ai_recommendations":[],"rationale":"newer"}`, string(elems[4]))
}

func TestHistoryAppendKeepsIndentedFileStable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	h := NewHistory(path)
	require.NoError(t, h.Append(tick.HistoryEntry{
		AIRecommendations: []tick.Trade{{Action: tick.ActionStay, Ticker: "X"}},
		Rationale:         "first",
	}))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, h.Append(tick.HistoryEntry{Rationale: "second"}))
	after, err := os.ReadFile(path)
	require.NoError(t, err)

	prefix := strings.TrimSuffix(string(before), "\n]")
	assert.True(t, strings.HasPrefix(string(after), prefix), "earlier bytes changed:\n%s", after)
}

func TestHistoryLoadSkipsUndecodableEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	seed := `[{"ai_recommendations":[{"action":"BUY","ticker":"X","quantity":"two"}],"rationale":"bad"},` +
		`{"ai_recommendations":[],"rationale":"good"}]`
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o644))

	got := NewHistory(path).Load()
	require.Len(t, got, 1)
	assert.Equal(t, "good", got[0].Rationale)
}

func TestHistoryAppendOverNonArrayStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"not":"a list"}`), 0o644))

	h := NewHistory(path)
	require.NoError(t, h.Append(tick.HistoryEntry{Rationale: "only"}))
	got := h.Load()
	require.Len(t, got, 1)
	assert.Equal(t, "only", got[0].Rationale)
}
