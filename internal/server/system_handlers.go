package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemHandlers serves process and host introspection endpoints
type SystemHandlers struct {
	log       zerolog.Logger
	dataDir   string
	startedAt time.Time
}

// NewSystemHandlers creates system handlers
func NewSystemHandlers(log zerolog.Logger, dataDir string) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("handler", "system").Logger(),
		dataDir:   dataDir,
		startedAt: time.Now(),
	}
}

// systemInfo is the response shape for GET /api/system/info
type systemInfo struct {
	UptimeSeconds  float64 `json:"uptime_seconds"`
	GoVersion      string  `json:"go_version"`
	NumGoroutine   int     `json:"num_goroutine"`
	CPUPercent     float64 `json:"cpu_percent"`
	MemUsedPercent float64 `json:"mem_used_percent"`
	DiskFreeMB     float64 `json:"disk_free_mb"`
	DataDir        string  `json:"data_dir"`
}

// HandleSystemInfo handles GET /api/system/info
func (h *SystemHandlers) HandleSystemInfo(w http.ResponseWriter, r *http.Request) {
	cpuPct, memPct := h.systemStats()

	info := systemInfo{
		UptimeSeconds:  time.Since(h.startedAt).Seconds(),
		GoVersion:      runtime.Version(),
		NumGoroutine:   runtime.NumGoroutine(),
		CPUPercent:     cpuPct,
		MemUsedPercent: memPct,
		DataDir:        h.dataDir,
	}

	if usage, err := disk.Usage(h.dataDir); err == nil {
		info.DiskFreeMB = float64(usage.Free) / 1024 / 1024
	} else {
		h.log.Warn().Err(err).Msg("Failed to read disk usage")
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(info); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode system info")
	}
}

// systemStats samples CPU and RAM usage. The 100ms CPU window keeps the
// endpoint responsive; callers wanting trends should poll.
func (h *SystemHandlers) systemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}
	return cpuAvg, memStat.UsedPercent
}
