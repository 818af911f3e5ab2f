package main

import (
	"sync"

	"hashsearch/internal/search"
)

// board keeps the latest per-worker rate and the winning candidate for the
// TUI, which polls it on a tick.
type board struct {
	mu      sync.Mutex
	rates   map[int]float64
	found   string
	foundBy int
	matched bool
}

func newBoard() *board {
	return &board{rates: make(map[int]float64)}
}

func (b *board) OnProgress(p search.Progress) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rates[p.WorkerID] = p.Rate
}

func (b *board) OnMatchFound(workerID int, candidate string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.found, b.foundBy, b.matched = candidate, workerID, true
}

func (b *board) OnWorkerStopped(workerID int, _ bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rates[workerID] = 0
}

func (b *board) rate(workerID int) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rates[workerID]
}

func (b *board) match() (string, int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.found, b.foundBy, b.matched
}
