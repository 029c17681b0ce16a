package stats

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestAggregatorCounts(t *testing.T) {
	a := NewAggregator(zerolog.Nop())

	a.AddURL("http://example.com/")
	a.AddURL("http://example.com/about")
	a.AddResponse(200, 100*time.Millisecond)
	a.AddResponse(200, 300*time.Millisecond)
	a.AddResponse(404, 200*time.Millisecond)
	a.AddVulnerability("xss")
	a.AddVulnerability("xss")
	a.AddVulnerability("sql_injection")
	a.AddError("timeout")

	snap := a.Close()

	assert.Equal(t, 2, snap.URLsVisited)
	assert.Equal(t, []string{"http://example.com/", "http://example.com/about"}, snap.ScannedURLs)
	assert.Equal(t, 3, snap.TotalRequests)
	assert.Equal(t, 3, snap.TotalVulnerabilities)
	assert.Equal(t, 1, snap.TotalErrors)
	assert.Equal(t, 2, snap.VulnerabilitiesByType["xss"])
	assert.Equal(t, 1, snap.VulnerabilitiesByType["sql_injection"])
	assert.Equal(t, 1, snap.ErrorsByType["timeout"])
	assert.Equal(t, 2, snap.ResponseCodes[200])
	assert.Equal(t, 1, snap.ResponseCodes[404])

	assert.InDelta(t, 0.1, snap.MinResponseTime, 0.001)
	assert.InDelta(t, 0.2, snap.AvgResponseTime, 0.001)
	assert.InDelta(t, 0.3, snap.MaxResponseTime, 0.001)
	assert.False(t, snap.EndTime.IsZero())
}

func TestAggregatorConcurrentProducers(t *testing.T) {
	a := NewAggregator(zerolog.Nop())

	const workers = 8
	const perWorker = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				a.AddURL(fmt.Sprintf("http://example.com/%d/%d", w, i))
				a.AddResponse(200, 50*time.Millisecond)
				a.AddVulnerability("xss")
			}
		}(w)
	}
	wg.Wait()

	snap := a.Close()

	assert.Equal(t, workers*perWorker, snap.URLsVisited)
	assert.Equal(t, workers*perWorker, snap.TotalRequests)
	assert.Equal(t, workers*perWorker, snap.VulnerabilitiesByType["xss"])
}

func TestSnapshotDoesNotEndScan(t *testing.T) {
	a := NewAggregator(zerolog.Nop())
	a.AddResponse(200, 10*time.Millisecond)

	snap := a.Snapshot()
	assert.True(t, snap.EndTime.IsZero())

	// Aggregator still accepts events after a mid-scan snapshot.
	a.AddResponse(500, 10*time.Millisecond)
	final := a.Close()
	assert.Equal(t, 2, final.TotalRequests)
}

func TestEmptyAggregator(t *testing.T) {
	a := NewAggregator(zerolog.Nop())
	snap := a.Close()

	assert.Equal(t, 0, snap.TotalRequests)
	assert.Equal(t, 0.0, snap.MinResponseTime)
	assert.Equal(t, 0.0, snap.AvgResponseTime)
	assert.GreaterOrEqual(t, snap.Duration(), 0.0)
}

func TestEventsAfterCloseAreDropped(t *testing.T) {
	a := NewAggregator(zerolog.Nop())
	_ = a.Close()

	// Must not block or panic.
	a.AddURL("http://example.com/late")
	a.AddVulnerability("xss")

	snap := a.Snapshot()
	assert.Equal(t, 0, snap.URLsVisited)
}
