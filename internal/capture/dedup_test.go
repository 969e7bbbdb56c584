package capture

import (
	"testing"

	"github.com/rickgao/bookdata/internal/connector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollapseAdjacent(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"adjacent only", []string{"A", "B", "B", "C", "B"}, []string{"A", "B", "C", "B"}},
		{"long run", []string{"A", "A", "A"}, []string{"A"}},
		{"run without ids", []string{"", "", ""}, []string{""}},
		{"ids around missing ids", []string{"A", "", "", "B", ""}, []string{"A", "", "B", ""}},
		{"empty", nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := make([]connector.Trade, len(tt.in))
			for i, id := range tt.in {
				in[i] = tr(id, int64(i))
			}
			assert.Equal(t, tt.want, ids(collapseAdjacent(in)))
		})
	}
}

func TestCollapseAdjacentKeepsLastOfRun(t *testing.T) {
	in := []connector.Trade{tr("A", 1), tr("A", 2)}
	out := collapseAdjacent(in)
	assert.Len(t, out, 1)
	assert.Equal(t, int64(2), out[0].Timestamp)
}

func TestCollapseAdjacentMissingIDsKeepLast(t *testing.T) {
	in := []connector.Trade{tr("", 1), tr("", 2), tr("X", 3), tr("", 4)}
	out := collapseAdjacent(in)

	require.Len(t, out, 3)
	assert.Equal(t, int64(2), out[0].Timestamp)
	assert.Equal(t, "X", out[1].ID)
	assert.Equal(t, int64(4), out[2].Timestamp)
}

func TestTrimThrough(t *testing.T) {
	page := []connector.Trade{tr("A", 1), tr("B", 2), tr("C", 3), tr("D", 4), tr("E", 5)}

	assert.Equal(t, []string{"D", "E"}, ids(trimThrough(page, "C")))
	assert.Equal(t, []string{}, ids(trimThrough(page, "E")))
	assert.Equal(t, ids(page), ids(trimThrough(page, "Z")), "unknown id keeps everything")
	assert.Equal(t, ids(page), ids(trimThrough(page, "")), "empty id keeps everything")
}
