package graph

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ReadBinary reads an out-adjacency CSR file in the format
//
//	n (uint64)
//	m (uint64)
//	sizes (uint64)
//	offsets[0…n] ( (n+1)×uint64 )
//	edgeIDs[0…m-1] ( m×uint32 )
//
// and returns its in-edge CSR with every weight set to p.
func ReadBinary(path string, p float32) (*CSR, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return DecodeBinary(bufio.NewReader(f), p)
}

// DecodeBinary is ReadBinary over an arbitrary reader.
func DecodeBinary(r io.Reader, p float32) (*CSR, error) {
	var n, m, sizes uint64
	for _, dst := range []*uint64{&n, &m, &sizes} {
		if err := binary.Read(r, binary.LittleEndian, dst); err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
	}
	// Sanity check: bytes for offsets + edges + header should match
	expected := (n+1)*8 + m*4 + 3*8
	if sizes != expected {
		return nil, fmt.Errorf("size mismatch: got %d, expected %d", sizes, expected)
	}

	offsets := make([]uint64, n+1)
	if err := binary.Read(r, binary.LittleEndian, offsets); err != nil {
		return nil, fmt.Errorf("read offsets: %w", err)
	}
	targets := make([]uint32, m)
	if err := binary.Read(r, binary.LittleEndian, targets); err != nil {
		return nil, fmt.Errorf("read edges: %w", err)
	}
	if offsets[n] != m {
		return nil, fmt.Errorf("offsets end at %d, expected %d edges", offsets[n], m)
	}

	edges := make([]Edge, 0, m)
	for u := uint64(0); u < n; u++ {
		if offsets[u] > offsets[u+1] {
			return nil, fmt.Errorf("offsets decrease at vertex %d", u)
		}
		for idx := offsets[u]; idx < offsets[u+1]; idx++ {
			edges = append(edges, Edge{From: uint32(u), To: targets[idx], Weight: p})
		}
	}
	return FromEdges(int(n), edges)
}

// ReadEdgeList reads a text edge list, one "u v [weight]" per line. Blank
// lines and lines starting with '#' are skipped; edges without a weight
// get p. The vertex count is one past the largest id seen.
func ReadEdgeList(path string, p float32) (*CSR, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return DecodeEdgeList(f, p)
}

// DecodeEdgeList is ReadEdgeList over an arbitrary reader.
func DecodeEdgeList(r io.Reader, p float32) (*CSR, error) {
	var edges []Edge
	n := 0
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		tok := strings.Fields(sc.Text())
		if len(tok) == 0 || strings.HasPrefix(tok[0], "#") {
			continue
		}
		if len(tok) < 2 || len(tok) > 3 {
			return nil, fmt.Errorf("line %d: expected \"u v [weight]\"", line)
		}
		u, err := strconv.ParseUint(tok[0], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("line %d: source: %w", line, err)
		}
		v, err := strconv.ParseUint(tok[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("line %d: target: %w", line, err)
		}
		w := p
		if len(tok) == 3 {
			f, err := strconv.ParseFloat(tok[2], 32)
			if err != nil {
				return nil, fmt.Errorf("line %d: weight: %w", line, err)
			}
			w = float32(f)
		}
		edges = append(edges, Edge{From: uint32(u), To: uint32(v), Weight: w})
		n = max(n, int(u)+1, int(v)+1)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return FromEdges(n, edges)
}
