package report

import (
	"fmt"
	"io"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const maxLatencyMicros = int64(10 * time.Minute / time.Microsecond)

// Summary aggregates the results of a batch run.
type Summary struct {
	hist      *hdrhistogram.Histogram
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
}

// NewSummary creates an empty Summary.
func NewSummary() *Summary {
	return &Summary{
		hist: hdrhistogram.New(1, maxLatencyMicros, 3),
	}
}

// Add records one fetch and its latency.
func (s *Summary) Add(d time.Duration, err error) {
	s.Total++
	if err != nil {
		s.Failed++
	} else {
		s.Succeeded++
	}

	us := d.Microseconds()
	if us < 1 {
		us = 1
	}
	if us > maxLatencyMicros {
		us = maxLatencyMicros
	}
	s.hist.RecordValue(us)
}

// Skip records a fetch that never ran.
func (s *Summary) Skip() {
	s.Total++
	s.Skipped++
}

// Percentile returns the latency at quantile q (0-100).
func (s *Summary) Percentile(q float64) time.Duration {
	return time.Duration(s.hist.ValueAtQuantile(q)) * time.Microsecond
}

// Max returns the slowest recorded latency.
func (s *Summary) Max() time.Duration {
	return time.Duration(s.hist.Max()) * time.Microsecond
}

// Summary prints s.
func (p *Printer) Summary(s *Summary) {
	fmt.Fprintln(p.w, p.paint(DimStyle, Divider(40)))

	status := p.paint(SuccessStyle, CheckMark+" all fetches succeeded")
	if s.Failed > 0 {
		status = p.paint(ErrorStyle, fmt.Sprintf("%s %d of %d fetches failed", CrossMark, s.Failed, s.Total))
	}
	fmt.Fprintln(p.w, status)

	p.line("Fetched", fmt.Sprintf("%d ok, %d failed, %d skipped", s.Succeeded, s.Failed, s.Skipped))
	if s.hist.TotalCount() > 0 {
		p.line("Latency", fmt.Sprintf("p50 %s  p95 %s  max %s",
			s.Percentile(50).Round(time.Millisecond),
			s.Percentile(95).Round(time.Millisecond),
			s.Max().Round(time.Millisecond)))
	}
}

// Write is a convenience for printing a summary without a Printer.
func (s *Summary) Write(w io.Writer) {
	NewPrinter(w, Options{}).Summary(s)
}
