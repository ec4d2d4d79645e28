// Package hostinfo captures a point-in-time snapshot of host facts: memory,
// disk, CPU, OS, GPUs, and network reachability. The snapshot feeds the
// resource validator and installation reports.
package hostinfo

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/toolforge/toolforge/pkg/resource"
)

const (
	bytesPerGB = 1 << 30

	// networkProbeTimeout bounds each reachability dial.
	networkProbeTimeout = 2 * time.Second

	gpuQueryTimeout = 10 * time.Second
)

// networkProbeAddrs are dialed in order until one succeeds. Public DNS
// endpoints answer on both TCP ports from almost any network.
var networkProbeAddrs = []string{"1.1.1.1:443", "8.8.8.8:53"}

// Collector gathers host facts. The probe functions are swappable for tests.
type Collector struct {
	installPath string
	logger      zerolog.Logger

	lookPath func(file string) (string, error)
	runCmd   func(ctx context.Context, name string, args ...string) (string, error)
	dial     func(network, addr string, timeout time.Duration) (net.Conn, error)
}

// New creates a collector that sizes disk facts against installPath.
func New(installPath string, logger zerolog.Logger) *Collector {
	if installPath == "" {
		installPath = "/"
	}
	return &Collector{
		installPath: installPath,
		logger:      logger,
		lookPath:    exec.LookPath,
		runCmd: func(ctx context.Context, name string, args ...string) (string, error) {
			out, err := exec.CommandContext(ctx, name, args...).Output()
			return string(out), err
		},
		dial: net.DialTimeout,
	}
}

// Collect captures the snapshot. Memory, disk, and CPU facts are required;
// OS details, GPUs, and network state degrade gracefully when a probe fails.
func (c *Collector) Collect(ctx context.Context) (resource.Snapshot, error) {
	var snap resource.Snapshot

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return snap, fmt.Errorf("failed to read memory facts: %w", err)
	}
	snap.TotalRAMGB = float64(vm.Total) / bytesPerGB
	snap.AvailableRAMGB = float64(vm.Available) / bytesPerGB

	usage, err := disk.UsageWithContext(ctx, c.installPath)
	if err != nil {
		return snap, fmt.Errorf("failed to read disk facts for %s: %w", c.installPath, err)
	}
	snap.TotalDiskGB = float64(usage.Total) / bytesPerGB
	snap.FreeDiskGB = float64(usage.Free) / bytesPerGB

	cores, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return snap, fmt.Errorf("failed to count CPU cores: %w", err)
	}
	snap.CPUCores = cores

	snap.Architecture = resource.NormalizeArch(runtime.GOARCH)
	snap.OSName = runtime.GOOS
	if info, err := host.InfoWithContext(ctx); err == nil {
		if info.Platform != "" {
			snap.OSName = info.Platform
		}
		snap.OSVersion = info.PlatformVersion
	} else {
		c.logger.Warn().Err(err).Msg("Could not read OS details, using runtime defaults")
	}

	snap.GPUs = c.probeGPUs(ctx)
	snap.NetworkOnline = c.probeNetwork()

	c.logger.Debug().
		Float64("ram_gb", snap.TotalRAMGB).
		Float64("free_disk_gb", snap.FreeDiskGB).
		Int("cpu_cores", snap.CPUCores).
		Str("arch", snap.Architecture).
		Int("gpus", len(snap.GPUs)).
		Bool("network", snap.NetworkOnline).
		Msg("Captured host snapshot")
	return snap, nil
}

// probeGPUs detects GPUs through the vendor CLIs. Hosts without the tools
// simply report no GPUs.
func (c *Collector) probeGPUs(ctx context.Context) []resource.GPU {
	var gpus []resource.GPU

	queryCtx, cancel := context.WithTimeout(ctx, gpuQueryTimeout)
	defer cancel()

	if _, err := c.lookPath("nvidia-smi"); err == nil {
		out, err := c.runCmd(queryCtx, "nvidia-smi",
			"--query-gpu=name,memory.total", "--format=csv,noheader")
		if err == nil {
			gpus = append(gpus, parseNvidiaSMI(out)...)
		} else {
			c.logger.Debug().Err(err).Msg("nvidia-smi present but query failed")
		}
	}
	if _, err := c.lookPath("rocm-smi"); err == nil {
		gpus = append(gpus, resource.GPU{
			Vendor:      "amd",
			ComputeAPIs: []string{"rocm"},
		})
	}
	return gpus
}

// parseNvidiaSMI parses "name, memory" CSV lines, e.g.
// "NVIDIA GeForce RTX 3090, 24576 MiB".
func parseNvidiaSMI(out string) []resource.GPU {
	var gpus []resource.GPU
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		gpu := resource.GPU{Vendor: "nvidia", ComputeAPIs: []string{"cuda"}}
		parts := strings.SplitN(line, ",", 2)
		gpu.Model = strings.TrimSpace(parts[0])
		if len(parts) == 2 {
			memField := strings.TrimSpace(parts[1])
			if mib, ok := strings.CutSuffix(memField, " MiB"); ok {
				if v, err := strconv.ParseFloat(strings.TrimSpace(mib), 64); err == nil {
					gpu.MemoryGB = v / 1024
				}
			}
		}
		gpus = append(gpus, gpu)
	}
	return gpus
}

func (c *Collector) probeNetwork() bool {
	for _, addr := range networkProbeAddrs {
		conn, err := c.dial("tcp", addr, networkProbeTimeout)
		if err == nil {
			conn.Close()
			return true
		}
	}
	return false
}
