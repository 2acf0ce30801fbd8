package main

import (
	"github.com/shirou/gopsutil/v4/disk"

	"github.com/jamesainslie/reclaim/pkg/reclaim/logging"
	"github.com/jamesainslie/reclaim/pkg/reclaim/output"
)

// freeBytes returns the free space on the filesystem holding path, or
// zero when it cannot be determined.
func freeBytes(path string) int64 {
	if path == "" {
		return 0
	}
	usage, err := disk.Usage(path)
	if err != nil {
		logging.Get("cli").Debug("disk usage unavailable", "path", path, "error", err)
		return 0
	}
	return int64(usage.Free)
}

// withFreeSpace annotates a pretty report with the free space under path.
func withFreeSpace(r *output.Report, path string) *output.Report {
	if isPretty() {
		r.FreeBytes = freeBytes(path)
	}
	return r
}
