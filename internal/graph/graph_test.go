package graph

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEdgesStoresInEdges(t *testing.T) {
	g, err := FromEdges(4, []Edge{
		{From: 0, To: 1, Weight: 0.5},
		{From: 2, To: 1, Weight: 0.25},
		{From: 1, To: 3, Weight: 1},
	})
	require.NoError(t, err)

	assert.Equal(t, 4, g.NumNodes())
	assert.Equal(t, 3, g.NumEdges())

	src, w := g.InNeighbors(1)
	assert.Equal(t, []uint32{0, 2}, src)
	assert.Equal(t, []float32{0.5, 0.25}, w)

	src, _ = g.InNeighbors(0)
	assert.Empty(t, src)
	assert.Equal(t, 1, g.InDegree(3))
}

func TestFromEdgesRejectsBadInput(t *testing.T) {
	_, err := FromEdges(2, []Edge{{From: 0, To: 2, Weight: 0.1}})
	assert.Error(t, err)

	_, err = FromEdges(2, []Edge{{From: 0, To: 1, Weight: 1.5}})
	assert.Error(t, err)
}

func TestReweightInDegree(t *testing.T) {
	g, err := FromAdjacency([][]int{{2}, {2}, {}}, func(u, v int) float32 { return 0 })
	require.NoError(t, err)

	lt, err := Reweight(g, WeightInDegree, 0)
	require.NoError(t, err)
	_, w := lt.InNeighbors(2)
	assert.Equal(t, []float32{0.5, 0.5}, w)

	ic, err := Reweight(g, WeightUniform, 0.1)
	require.NoError(t, err)
	_, w = ic.InNeighbors(2)
	assert.Equal(t, []float32{0.1, 0.1}, w)
}

func TestDecodeBinary(t *testing.T) {
	// 0 -> 1, 0 -> 2, 2 -> 1
	offsets := []uint64{0, 2, 2, 3}
	edges := []uint32{1, 2, 1}
	n, m := uint64(3), uint64(3)

	var buf bytes.Buffer
	for _, v := range []uint64{n, m, (n+1)*8 + m*4 + 3*8} {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, v))
	}
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, offsets))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, edges))

	g, err := DecodeBinary(&buf, 0.3)
	require.NoError(t, err)

	src, w := g.InNeighbors(1)
	assert.Equal(t, []uint32{0, 2}, src)
	assert.Equal(t, []float32{0.3, 0.3}, w)
}

func TestDecodeBinarySizeMismatch(t *testing.T) {
	var buf bytes.Buffer
	for _, v := range []uint64{1, 0, 999} {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, v))
	}
	_, err := DecodeBinary(&buf, 0.1)
	assert.ErrorContains(t, err, "size mismatch")
}

func TestDecodeEdgeList(t *testing.T) {
	input := `# chain
0 1
1 2 0.75

2 3
`
	g, err := DecodeEdgeList(strings.NewReader(input), 0.5)
	require.NoError(t, err)

	assert.Equal(t, 4, g.NumNodes())
	src, w := g.InNeighbors(2)
	assert.Equal(t, []uint32{1}, src)
	assert.Equal(t, []float32{0.75}, w)

	_, err = DecodeEdgeList(strings.NewReader("0 1 2 3\n"), 0.5)
	assert.Error(t, err)
}
