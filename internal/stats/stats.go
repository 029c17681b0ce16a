// Package stats aggregates scan metrics. A single goroutine owns all state
// and consumes events from a channel, so producers on any number of crawl
// workers never share memory with the aggregator.
package stats

import (
	"time"

	"github.com/rs/zerolog"
)

type eventKind int

const (
	eventURLVisited eventKind = iota
	eventResponse
	eventVulnerability
	eventError
)

type event struct {
	kind       eventKind
	url        string
	statusCode int
	elapsed    time.Duration
	name       string
}

// Snapshot is an immutable copy of the aggregator state.
type Snapshot struct {
	StartTime             time.Time
	EndTime               time.Time
	URLsVisited           int
	ScannedURLs           []string
	TotalRequests         int
	TotalErrors           int
	TotalVulnerabilities  int
	VulnerabilitiesByType map[string]int
	ErrorsByType          map[string]int
	ResponseCodes         map[int]int
	MinResponseTime       float64
	AvgResponseTime       float64
	MaxResponseTime       float64
}

// Duration returns the scan duration in seconds, using the current time if
// the aggregator has not been closed yet.
func (s Snapshot) Duration() float64 {
	end := s.EndTime
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(s.StartTime).Seconds()
}

type snapshotRequest struct {
	final bool
	reply chan Snapshot
}

// Aggregator collects metrics from concurrent scan workers.
type Aggregator struct {
	events    chan event
	snapshots chan snapshotRequest
	done      chan struct{}
	logger    zerolog.Logger

	// Everything below is owned by the run goroutine.
	startTime         time.Time
	endTime           time.Time
	scannedURLs       []string
	totalRequests     int
	totalErrors       int
	totalVulns        int
	vulnsByType       map[string]int
	errorsByType      map[string]int
	responseCodes     map[int]int
	totalResponseTime float64
	minResponseTime   float64
	maxResponseTime   float64
}

// NewAggregator creates and starts an Aggregator.
func NewAggregator(log zerolog.Logger) *Aggregator {
	a := &Aggregator{
		events:        make(chan event, 256),
		snapshots:     make(chan snapshotRequest),
		done:          make(chan struct{}),
		logger:        log.With().Str("component", "StatsAggregator").Logger(),
		startTime:     time.Now(),
		vulnsByType:   make(map[string]int),
		errorsByType:  make(map[string]int),
		responseCodes: make(map[int]int),
	}
	go a.run()
	return a
}

// AddURL records a visited URL.
func (a *Aggregator) AddURL(url string) {
	a.send(event{kind: eventURLVisited, url: url})
}

// AddResponse records a completed HTTP exchange.
func (a *Aggregator) AddResponse(statusCode int, elapsed time.Duration) {
	a.send(event{kind: eventResponse, statusCode: statusCode, elapsed: elapsed})
}

// AddVulnerability counts one finding of the given type.
func (a *Aggregator) AddVulnerability(vulnType string) {
	a.send(event{kind: eventVulnerability, name: vulnType})
}

// AddError counts one error of the given type.
func (a *Aggregator) AddError(errorType string) {
	a.send(event{kind: eventError, name: errorType})
}

func (a *Aggregator) send(ev event) {
	select {
	case a.events <- ev:
	case <-a.done:
	}
}

// Snapshot returns a consistent copy of the current state. It is answered
// by the aggregator goroutine itself, so it never observes a half-applied
// event.
func (a *Aggregator) Snapshot() Snapshot {
	req := snapshotRequest{reply: make(chan Snapshot, 1)}
	select {
	case a.snapshots <- req:
		return <-req.reply
	case <-a.done:
		return a.buildSnapshot()
	}
}

// Close marks the scan complete, stops the aggregator goroutine and returns
// the final snapshot. Events sent after Close are dropped.
func (a *Aggregator) Close() Snapshot {
	req := snapshotRequest{final: true, reply: make(chan Snapshot, 1)}
	select {
	case a.snapshots <- req:
	case <-a.done:
		return a.buildSnapshot()
	}
	snapshot := <-req.reply
	close(a.done)
	return snapshot
}

func (a *Aggregator) run() {
	for {
		select {
		case ev := <-a.events:
			a.apply(ev)
		case req := <-a.snapshots:
			if req.final {
				// Drain whatever producers already queued before the
				// coordinator decided the scan was over.
				a.drainEvents()
				a.endTime = time.Now()
			}
			req.reply <- a.buildSnapshot()
		case <-a.done:
			return
		}
	}
}

func (a *Aggregator) drainEvents() {
	for {
		select {
		case ev := <-a.events:
			a.apply(ev)
		default:
			return
		}
	}
}

func (a *Aggregator) apply(ev event) {
	switch ev.kind {
	case eventURLVisited:
		a.scannedURLs = append(a.scannedURLs, ev.url)
	case eventResponse:
		a.totalRequests++
		a.responseCodes[ev.statusCode]++
		seconds := ev.elapsed.Seconds()
		a.totalResponseTime += seconds
		if a.totalRequests == 1 || seconds < a.minResponseTime {
			a.minResponseTime = seconds
		}
		if seconds > a.maxResponseTime {
			a.maxResponseTime = seconds
		}
	case eventVulnerability:
		a.totalVulns++
		a.vulnsByType[ev.name]++
	case eventError:
		a.totalErrors++
		a.errorsByType[ev.name]++
	}
}

func (a *Aggregator) buildSnapshot() Snapshot {
	urls := make([]string, len(a.scannedURLs))
	copy(urls, a.scannedURLs)

	avg := 0.0
	if a.totalRequests > 0 {
		avg = a.totalResponseTime / float64(a.totalRequests)
	}

	return Snapshot{
		StartTime:             a.startTime,
		EndTime:               a.endTime,
		URLsVisited:           len(a.scannedURLs),
		ScannedURLs:           urls,
		TotalRequests:         a.totalRequests,
		TotalErrors:           a.totalErrors,
		TotalVulnerabilities:  a.totalVulns,
		VulnerabilitiesByType: copyStringMap(a.vulnsByType),
		ErrorsByType:          copyStringMap(a.errorsByType),
		ResponseCodes:         copyIntMap(a.responseCodes),
		MinResponseTime:       a.minResponseTime,
		AvgResponseTime:       avg,
		MaxResponseTime:       a.maxResponseTime,
	}
}

func copyStringMap(src map[string]int) map[string]int {
	dst := make(map[string]int, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func copyIntMap(src map[int]int) map[int]int {
	dst := make(map[int]int, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
