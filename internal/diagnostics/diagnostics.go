package diagnostics

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"time"

	"logbatcher/internal/config"
	"logbatcher/internal/version"
)

// SystemInfo contains diagnostic information surfaced by the `status`
// CLI subcommand: build info, runtime stats, and reachability of the
// two external collaborators (record store, archive backend).
type SystemInfo struct {
	Version   VersionInfo   `json:"version"`
	Runtime   RuntimeInfo   `json:"runtime"`
	Config    ConfigSummary `json:"config"`
	Health    HealthSummary `json:"health"`
	Timestamp string        `json:"timestamp"`
}

type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

type RuntimeInfo struct {
	OS           string `json:"os"`
	Arch         string `json:"arch"`
	NumCPU       int    `json:"num_cpu"`
	NumGoroutine int    `json:"num_goroutine"`
	MemStats     struct {
		Alloc      uint64 `json:"alloc_bytes"`
		TotalAlloc uint64 `json:"total_alloc_bytes"`
		Sys        uint64 `json:"sys_bytes"`
		NumGC      uint32 `json:"num_gc"`
	} `json:"mem_stats"`
}

type ConfigSummary struct {
	UploadProvider  string `json:"upload_provider"`
	FileFormat      string `json:"file_format"`
	Timezone        string `json:"timezone"`
	RetryAttempts   int    `json:"retry_attempts"`
	MaskingEnabled  bool   `json:"masking_enabled"`
	CompressionMode string `json:"compression_mode"`
}

// HealthSummary reports reachability of the Record Store Gateway and
// Archive Adapter, as checked by the `status` subcommand.
type HealthSummary struct {
	RecordStore HealthCheck `json:"record_store"`
	Archive     HealthCheck `json:"archive"`
}

type HealthCheck struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// GatewayPinger and ArchivePinger are the minimal capabilities
// diagnostics needs: one Ping(ctx) probe each. The store gateway has
// such a method; the archive adapter does not, so cmd/logbatcher wraps
// the engine's PingStore/PingArchive in small adapter types.
type GatewayPinger interface {
	Ping(ctx context.Context) error
}

type ArchivePinger interface {
	Ping(ctx context.Context) error
}

// Collect gathers diagnostic information, probing the gateway and
// archive adapter when provided.
func Collect(ctx context.Context, cfg *config.Config, store GatewayPinger, archive ArchivePinger) SystemInfo {
	info := SystemInfo{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	info.Version = VersionInfo{
		Version:   version.Version,
		Commit:    version.Commit,
		BuildDate: version.Date,
		GoVersion: runtime.Version(),
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	info.Runtime = RuntimeInfo{
		OS:           runtime.GOOS,
		Arch:         runtime.GOARCH,
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}
	info.Runtime.MemStats.Alloc = m.Alloc
	info.Runtime.MemStats.TotalAlloc = m.TotalAlloc
	info.Runtime.MemStats.Sys = m.Sys
	info.Runtime.MemStats.NumGC = m.NumGC

	if cfg != nil {
		compressionMode := "disabled"
		if cfg.Compression.Enabled {
			compressionMode = cfg.Compression.Format
		}
		info.Config = ConfigSummary{
			UploadProvider:  cfg.UploadProvider,
			FileFormat:      cfg.FileFormat,
			Timezone:        cfg.Timezone,
			RetryAttempts:   cfg.RetryAttempts,
			MaskingEnabled:  cfg.DataMasking.Enabled,
			CompressionMode: compressionMode,
		}
	}

	if store != nil {
		if err := store.Ping(ctx); err != nil {
			info.Health.RecordStore = HealthCheck{OK: false, Error: err.Error()}
		} else {
			info.Health.RecordStore = HealthCheck{OK: true}
		}
	}
	if archive != nil {
		if err := archive.Ping(ctx); err != nil {
			info.Health.Archive = HealthCheck{OK: false, Error: err.Error()}
		} else {
			info.Health.Archive = HealthCheck{OK: true}
		}
	}

	return info
}

// Print outputs the diagnostic information in the specified format.
func Print(info SystemInfo, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(info)

	case "text":
		fmt.Printf("logbatcher diagnostics\n")
		fmt.Printf("======================\n\n")

		fmt.Printf("Version Information:\n")
		fmt.Printf("  Version:    %s\n", info.Version.Version)
		fmt.Printf("  Commit:     %s\n", info.Version.Commit)
		fmt.Printf("  Build Date: %s\n", info.Version.BuildDate)
		fmt.Printf("  Go Version: %s\n\n", info.Version.GoVersion)

		fmt.Printf("Runtime Information:\n")
		fmt.Printf("  OS:          %s\n", info.Runtime.OS)
		fmt.Printf("  Arch:        %s\n", info.Runtime.Arch)
		fmt.Printf("  CPUs:        %d\n", info.Runtime.NumCPU)
		fmt.Printf("  Goroutines:  %d\n", info.Runtime.NumGoroutine)
		fmt.Printf("  Memory:\n")
		fmt.Printf("    Allocated: %d MB\n", info.Runtime.MemStats.Alloc/1024/1024)
		fmt.Printf("    System:    %d MB\n", info.Runtime.MemStats.Sys/1024/1024)
		fmt.Printf("    GC Cycles: %d\n\n", info.Runtime.MemStats.NumGC)

		fmt.Printf("Configuration Summary:\n")
		fmt.Printf("  Upload Provider: %s\n", info.Config.UploadProvider)
		fmt.Printf("  File Format:     %s\n", info.Config.FileFormat)
		fmt.Printf("  Timezone:        %s\n", info.Config.Timezone)
		fmt.Printf("  Retry Attempts:  %d\n", info.Config.RetryAttempts)
		fmt.Printf("  Masking:         %v\n", info.Config.MaskingEnabled)
		fmt.Printf("  Compression:     %s\n\n", info.Config.CompressionMode)

		fmt.Printf("Health:\n")
		fmt.Printf("  Record Store: ok=%v %s\n", info.Health.RecordStore.OK, info.Health.RecordStore.Error)
		fmt.Printf("  Archive:      ok=%v %s\n", info.Health.Archive.OK, info.Health.Archive.Error)

		fmt.Printf("\nTimestamp: %s\n", info.Timestamp)

		return nil

	default:
		return fmt.Errorf("unsupported format: %s (use 'json' or 'text')", format)
	}
}
