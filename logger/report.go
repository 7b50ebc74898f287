package logger

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// ReportRunResources emits a single end-of-run resource usage summary.
// Failures to sample any probe are logged at debug level and skipped, so
// the report never fails a run.
func ReportRunResources(l *Log, outputDir string) {
	log := l.WithComponent("resources")

	fields := Fields{"goroutines": runtime.NumGoroutine()}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		fields["cpu_percent"] = percents[0]
	} else if err != nil {
		log.WithError(err).Debug("cpu probe failed")
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		fields["memory_used_mb"] = float64(vm.Used) / 1024 / 1024
		fields["memory_percent"] = vm.UsedPercent
	} else {
		log.WithError(err).Debug("memory probe failed")
	}

	if outputDir != "" {
		if du, err := disk.Usage(outputDir); err == nil {
			fields["disk_free_mb"] = float64(du.Free) / 1024 / 1024
			fields["disk_percent"] = du.UsedPercent
		} else {
			log.WithError(err).Debug("disk probe failed")
		}
	}

	log.WithFields(fields).Info("run resource usage")
}
