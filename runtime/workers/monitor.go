package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"

	"github.com/ekuiter/variED-NG/contract"
)

// MonitorWorker periodically logs live hub counters together with the
// process's own resource usage. It is the only observability surface
// the server carries.
type MonitorWorker struct {
	log      *slog.Logger
	stats    contract.StatsProvider
	interval time.Duration
}

func NewMonitorWorker(log *slog.Logger, stats contract.StatsProvider, interval time.Duration) *MonitorWorker {
	return &MonitorWorker{log: log, stats: stats, interval: interval}
}

// Run executes the main loop of the worker, reporting hub and process
// metrics every interval until the context is canceled.
func (w *MonitorWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	self, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			attrs := make([]any, 0, 12)
			for key, value := range w.stats() {
				attrs = append(attrs, key, value)
			}
			if rss, cpu, err := selfStats(self); err == nil {
				attrs = append(attrs, "rss_bytes", rss, "cpu_percent", cpu)
			} else {
				w.log.Debug("failed to collect self stats", "err", err)
			}
			w.log.Info("server status", attrs...)
		}
	}
}

// selfStats retrieves memory and CPU usage of the running process.
func selfStats(p *process.Process) (uint64, float64, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	return memInfo.RSS, cpuPercent, nil
}
