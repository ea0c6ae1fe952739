// Package telemetry implements the supplemental debug-mode resource
// sampler (SPEC_FULL.md "Supplemented features" §2): CPU and RSS usage of
// the backend process, logged once per caller-chosen interval (cmd/msh
// uses 3 seconds; its bandwidth rate log runs once a second). msh has long
// reported this by shelling out to
// ps/wmic; shirou/gopsutil gets the same numbers as a library call.
package telemetry

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"github.com/sirupsen/logrus"
)

// Sampler periodically logs CPU/RSS for a backend process PID.
type Sampler struct {
	interval time.Duration
	log      *logrus.Entry
}

// New constructs a Sampler that samples once per interval.
func New(interval time.Duration) *Sampler {
	return &Sampler{
		interval: interval,
		log:      logrus.WithField("component", "telemetry"),
	}
}

// Run samples pid every interval until ctx is done. It's a no-op loop if
// the process has exited or can't be inspected — a sampling failure is
// never fatal to the proxy.
func (s *Sampler) Run(ctx context.Context, pid int32) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sampleOnce(pid)
		}
	}
}

func (s *Sampler) sampleOnce(pid int32) {
	proc, err := process.NewProcess(pid)
	if err != nil {
		return
	}

	cpuPct, err := proc.CPUPercent()
	if err != nil {
		return
	}
	mem, err := proc.MemoryInfo()
	if err != nil || mem == nil {
		return
	}

	s.log.WithField("cpu_pct", cpuPct).
		WithField("rss_mb", mem.RSS/1024/1024).
		Debug("backend resource usage")
}
