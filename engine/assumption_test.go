package engine

import (
	"sync"
	"testing"
)

func TestAssumption_OneWay(t *testing.T) {
	a := NewAssumption("test")
	if a.Name() != "test" {
		t.Fatalf("Name = %q", a.Name())
	}
	if !a.IsValid() {
		t.Fatal("assumption must start valid")
	}
	if !a.Invalidate() {
		t.Fatal("first Invalidate must transition")
	}
	if a.IsValid() {
		t.Fatal("assumption must stay invalid")
	}
	if a.Invalidate() {
		t.Fatal("second Invalidate must be a no-op")
	}
}

func TestAssumption_ConcurrentInvalidate(t *testing.T) {
	a := NewAssumption("race")
	var wg sync.WaitGroup
	transitions := make(chan bool, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			transitions <- a.Invalidate()
		}()
	}
	wg.Wait()
	close(transitions)

	count := 0
	for tr := range transitions {
		if tr {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("exactly one goroutine must observe the transition, got %d", count)
	}
	if a.IsValid() {
		t.Fatal("assumption must be invalid")
	}
}
