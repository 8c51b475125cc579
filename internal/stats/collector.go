// Package stats samples process memory, CPU and goroutine counts while a
// long running command works.
package stats

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/process"
)

type RuntimeStats struct {
	StartTime    time.Time
	EndTime      time.Time
	TotalElapsed time.Duration
	Samples      []Sample
	Summary      Summary
}

type Sample struct {
	Elapsed time.Duration

	HeapAlloc       uint64
	Sys             uint64
	NumGC           uint32
	ProcessRSSBytes uint64

	CPUPercent   float64
	SystemCPU    float64
	NumGoroutine int
}

type Summary struct {
	PeakHeapAlloc  uint64
	PeakSys        uint64
	PeakProcessRSS uint64
	PeakCPUPercent float64
	AvgCPUPercent  float64
	PeakGoroutines int
	TotalGCCycles  uint32
	SampleCount    int
}

type Collector struct {
	mu       sync.Mutex
	stats    RuntimeStats
	stopChan chan struct{}
	doneChan chan struct{}
	interval time.Duration
	proc     *process.Process
}

func NewCollector(interval time.Duration) (*Collector, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("sample interval must be positive, got %s", interval)
	}
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("failed to get process info: %w", err)
	}

	return &Collector{
		interval: interval,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
		proc:     proc,
	}, nil
}

func (c *Collector) Start() {
	c.stats.StartTime = time.Now()
	go c.collect()
}

func (c *Collector) collect() {
	defer close(c.doneChan)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.sample()
	for {
		select {
		case <-c.stopChan:
			c.sample()
			return
		case <-ticker.C:
			c.sample()
		}
	}
}

func (c *Collector) sample() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	s := Sample{
		Elapsed:      time.Since(c.stats.StartTime),
		HeapAlloc:    memStats.HeapAlloc,
		Sys:          memStats.Sys,
		NumGC:        memStats.NumGC,
		NumGoroutine: runtime.NumGoroutine(),
	}
	if memInfo, err := c.proc.MemoryInfo(); err == nil && memInfo != nil {
		s.ProcessRSSBytes = memInfo.RSS
	}
	if cpuPercent, err := c.proc.CPUPercent(); err == nil {
		s.CPUPercent = cpuPercent
	}
	if systemCPU, err := cpu.Percent(0, false); err == nil && len(systemCPU) > 0 {
		s.SystemCPU = systemCPU[0]
	}

	c.mu.Lock()
	c.stats.Samples = append(c.stats.Samples, s)
	c.mu.Unlock()
}

// Stop ends the collection and returns the samples with their summary.
func (c *Collector) Stop() RuntimeStats {
	close(c.stopChan)
	<-c.doneChan

	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.EndTime = time.Now()
	c.stats.TotalElapsed = c.stats.EndTime.Sub(c.stats.StartTime)
	c.stats.Summary = summarize(c.stats.Samples)
	return c.stats
}

func summarize(samples []Sample) Summary {
	sum := Summary{SampleCount: len(samples)}
	if len(samples) == 0 {
		return sum
	}

	var totalCPU float64
	for _, s := range samples {
		sum.PeakHeapAlloc = max(sum.PeakHeapAlloc, s.HeapAlloc)
		sum.PeakSys = max(sum.PeakSys, s.Sys)
		sum.PeakProcessRSS = max(sum.PeakProcessRSS, s.ProcessRSSBytes)
		sum.PeakCPUPercent = max(sum.PeakCPUPercent, s.CPUPercent)
		sum.PeakGoroutines = max(sum.PeakGoroutines, s.NumGoroutine)
		sum.TotalGCCycles = max(sum.TotalGCCycles, s.NumGC)
		totalCPU += s.CPUPercent
	}
	sum.AvgCPUPercent = totalCPU / float64(len(samples))
	return sum
}

// WriteReport prints the summary followed by at most maxRows evenly spread
// samples.
func (stats *RuntimeStats) WriteReport(w io.Writer, maxRows int) error {
	ew := &errWriter{w: w}

	ew.printf("Runtime statistics\n")
	ew.printf("  Duration:        %s\n", stats.TotalElapsed.Round(time.Millisecond))
	ew.printf("  Samples:         %d\n", stats.Summary.SampleCount)
	ew.printf("  Peak heap:       %s\n", humanize.Bytes(stats.Summary.PeakHeapAlloc))
	ew.printf("  Peak sys:        %s\n", humanize.Bytes(stats.Summary.PeakSys))
	ew.printf("  Peak RSS:        %s\n", humanize.Bytes(stats.Summary.PeakProcessRSS))
	ew.printf("  CPU peak / avg:  %.1f%% / %.1f%%\n", stats.Summary.PeakCPUPercent, stats.Summary.AvgCPUPercent)
	ew.printf("  Peak goroutines: %d\n", stats.Summary.PeakGoroutines)
	ew.printf("  GC cycles:       %s\n", humanize.Comma(int64(stats.Summary.TotalGCCycles)))

	rows := stats.Samples
	if maxRows > 0 && len(rows) > maxRows {
		rows = make([]Sample, 0, maxRows)
		step := float64(len(stats.Samples)-1) / float64(max(maxRows-1, 1))
		for i := range maxRows {
			rows = append(rows, stats.Samples[int(float64(i)*step)])
		}
	}
	if len(rows) == 0 {
		return ew.err
	}

	ew.printf("\n%-10s %-12s %-12s %-8s %-8s %s\n", "Elapsed", "Heap", "RSS", "CPU %", "Sys %", "Goroutines")
	for _, s := range rows {
		ew.printf("%-10s %-12s %-12s %-8.1f %-8.1f %d\n",
			s.Elapsed.Round(time.Millisecond),
			humanize.Bytes(s.HeapAlloc),
			humanize.Bytes(s.ProcessRSSBytes),
			s.CPUPercent,
			s.SystemCPU,
			s.NumGoroutine,
		)
	}
	return ew.err
}

func (stats *RuntimeStats) SaveToFile(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create stats file: %w", err)
	}
	defer f.Close()

	if err := stats.WriteReport(f, 100); err != nil {
		return fmt.Errorf("failed to write stats file: %w", err)
	}
	return f.Close()
}

type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
