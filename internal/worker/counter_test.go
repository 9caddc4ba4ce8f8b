package worker

import (
	"sync"
	"testing"
)

func TestCounter_Claim(t *testing.T) {
	c := NewCounter()

	if lo := c.Claim(32); lo != 0 {
		t.Errorf("Expected first claim to start at 0, got %d", lo)
	}
	if lo := c.Claim(32); lo != 32 {
		t.Errorf("Expected second claim to start at 32, got %d", lo)
	}
	if lo := c.Claim(1); lo != 64 {
		t.Errorf("Expected third claim to start at 64, got %d", lo)
	}
	if next := c.Load(); next != 65 {
		t.Errorf("Expected next index 65, got %d", next)
	}

	c.Reset()
	if next := c.Load(); next != 0 {
		t.Errorf("Expected 0 after reset, got %d", next)
	}
}

func TestCounter_ConcurrentSafety(t *testing.T) {
	c := NewCounter()
	const numGoroutines = 100
	const claimsPerGoroutine = 1000
	const batch = 3

	var wg sync.WaitGroup
	results := make(chan []int, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			offsets := make([]int, claimsPerGoroutine)
			for j := range offsets {
				offsets[j] = c.Claim(batch)
			}
			results <- offsets
		}()
	}

	wg.Wait()
	close(results)

	seen := make(map[int]bool)
	for offsets := range results {
		for _, o := range offsets {
			if o%batch != 0 {
				t.Errorf("Offset %d is not aligned to the batch size", o)
			}
			if seen[o] {
				t.Errorf("Duplicate offset found: %d", o)
			}
			seen[o] = true
		}
	}

	expectedTotal := numGoroutines * claimsPerGoroutine
	if len(seen) != expectedTotal {
		t.Errorf("Expected %d unique offsets, got %d", expectedTotal, len(seen))
	}
	if got := c.Load(); got != expectedTotal*batch {
		t.Errorf("Expected final counter %d, got %d", expectedTotal*batch, got)
	}
}
