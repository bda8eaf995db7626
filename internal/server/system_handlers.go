package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/aristath/dividends/internal/di"
	"github.com/aristath/dividends/internal/scheduler"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemHandlers handles monitoring and maintenance endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	dataDir     string
	startupTime time.Time
	container   *di.Container
	jobs        *di.JobInstances
	scheduler   *scheduler.Scheduler
}

// NewSystemHandlers creates a new system handlers instance. jobs and sched may be nil.
func NewSystemHandlers(
	log zerolog.Logger,
	dataDir string,
	container *di.Container,
	jobs *di.JobInstances,
	sched *scheduler.Scheduler,
) *SystemHandlers {
	startupTime := time.Now()
	if !container.StartedAt.IsZero() {
		startupTime = container.StartedAt
	}
	return &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		dataDir:     dataDir,
		startupTime: startupTime,
		container:   container,
		jobs:        jobs,
		scheduler:   sched,
	}
}

// SystemStatusResponse represents the system status
type SystemStatusResponse struct {
	Status             string              `json:"status"`
	StartedAt          string              `json:"started_at"`
	UptimeSeconds      int64               `json:"uptime_seconds"`
	CPUPercent         float64             `json:"cpu_percent"`
	MemoryPercent      float64             `json:"memory_percent"`
	IdentityNamespace  string              `json:"identity_namespace"`
	NotEligiblePolicy  string              `json:"not_eligible_policy"`
	DividendTTLSeconds int64               `json:"dividend_ttl_seconds"`
	LookupCache        CacheInfo           `json:"lookup_cache"`
	ContentCache       CacheInfo           `json:"content_cache"`
	Databases          []DBInfo            `json:"databases"`
	Jobs               []scheduler.JobInfo `json:"jobs"`
}

// CacheInfo describes a cache backend
type CacheInfo struct {
	Backend  string `json:"backend"`
	Codec    string `json:"codec,omitempty"`
	Location string `json:"location,omitempty"`
}

// DBInfo represents information about a single database
type DBInfo struct {
	Name      string  `json:"name"`
	Path      string  `json:"path"`
	SizeMB    float64 `json:"size_mb"`
	WALSizeMB float64 `json:"wal_size_mb"`
	PageCount int64   `json:"page_count"`
}

// DiskUsageResponse represents disk usage statistics
type DiskUsageResponse struct {
	DataDirMB      float64 `json:"data_dir_mb"`
	ContentCacheMB float64 `json:"content_cache_mb,omitempty"`
	AvailableMB    float64 `json:"available_mb,omitempty"`
}

// PruneResponse reports the outcome of a manual cache sweep
type PruneResponse struct {
	Status string `json:"status"`
	Purged int    `json:"purged"`
}

// HandleSystemStatus returns system status
// GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	cfg := h.container.Config
	cpuPercent, memPercent := h.getSystemStats()

	response := SystemStatusResponse{
		Status:             "healthy",
		StartedAt:          h.startupTime.UTC().Format(time.RFC3339),
		UptimeSeconds:      int64(time.Since(h.startupTime).Seconds()),
		CPUPercent:         cpuPercent,
		MemoryPercent:      memPercent,
		IdentityNamespace:  h.container.IdentityResolver.Namespace(),
		NotEligiblePolicy:  h.container.Executor.Policy().String(),
		DividendTTLSeconds: int64(cfg.DividendTTL.Seconds()),
		LookupCache: CacheInfo{
			Backend: h.container.LookupCache.Backend(),
			Codec:   h.container.LookupCache.Codec(),
		},
		ContentCache: CacheInfo{
			Backend: h.container.ContentCache.Backend(),
		},
		Databases: []DBInfo{},
		Jobs:      []scheduler.JobInfo{},
	}

	switch response.ContentCache.Backend {
	case "fs":
		response.ContentCache.Location = cfg.ContentCache.Dir
	case "s3":
		response.ContentCache.Location = cfg.ContentCache.S3.Bucket + "/" + cfg.ContentCache.S3.Prefix
	}

	if db := h.container.LookupDB; db != nil {
		info := DBInfo{Name: db.Name(), Path: db.Path()}
		if stats, err := db.GetStats(); err != nil {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to get database stats")
			response.Status = "degraded"
		} else {
			info.SizeMB = float64(stats.SizeBytes) / 1024 / 1024
			info.WALSizeMB = float64(stats.WALSizeBytes) / 1024 / 1024
			info.PageCount = stats.PageCount
		}
		response.Databases = append(response.Databases, info)
	}

	if h.scheduler != nil {
		response.Jobs = h.scheduler.Jobs()
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleSuppliers returns supplier descriptors per operation
// GET /api/suppliers
func (h *SystemHandlers) HandleSuppliers(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.container.SupplierRegistry.AllDescriptors())
}

// HandlePruneCache sweeps expired units out of the content cache now
// POST /api/cache/prune
func (h *SystemHandlers) HandlePruneCache(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil || h.jobs.ContentCacheCleanup == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "message": "Cache cleanup job not registered"})
		return
	}

	h.log.Info().Msg("Manual content cache prune triggered")
	purged, err := h.jobs.ContentCacheCleanup.RunContext(r.Context())
	if err != nil {
		h.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"status": "error", "message": err.Error(), "purged": purged})
		return
	}

	if h.jobs.LookupCacheCleanup != nil {
		if err := h.jobs.LookupCacheCleanup.Run(); err != nil {
			h.log.Warn().Err(err).Msg("Lookup cache cleanup failed during manual prune")
		}
	}

	h.writeJSON(w, http.StatusOK, PruneResponse{Status: "success", Purged: purged})
}

// HandleTriggerDatabaseCheck runs the database integrity and WAL check now
// POST /api/jobs/database-check
func (h *SystemHandlers) HandleTriggerDatabaseCheck(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil || h.jobs.DatabaseCheck == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "message": "Database check job not registered"})
		return
	}

	h.log.Info().Msg("Manual database check triggered")
	var err error
	if h.scheduler != nil {
		err = h.scheduler.RunNow(h.jobs.DatabaseCheck)
	} else {
		err = h.jobs.DatabaseCheck.Run()
	}
	if err != nil {
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": err.Error()})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Database check completed"})
}

// HandleDiskUsage returns disk usage statistics
// GET /api/system/disk
func (h *SystemHandlers) HandleDiskUsage(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting disk usage")

	response := DiskUsageResponse{
		DataDirMB: h.getDirSize(h.dataDir),
	}
	if h.container.ContentCache.Backend() == "fs" {
		response.ContentCacheMB = h.getDirSize(h.container.Config.ContentCache.Dir)
	}
	if usage, err := disk.Usage(h.dataDir); err != nil {
		h.log.Warn().Err(err).Str("dir", h.dataDir).Msg("Failed to get disk usage")
	} else {
		response.AvailableMB = float64(usage.Free) / 1024 / 1024
	}

	h.writeJSON(w, http.StatusOK, response)
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})

	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

// getSystemStats calculates CPU and RAM usage percentages.
// CPU is sampled over 100ms to keep the call fast.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
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

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
