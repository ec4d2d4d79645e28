package resource

import (
	"fmt"
	"strings"
)

// AggregateKey is the ValidateCombined map key holding the validation of
// the combined requirement.
const AggregateKey = "aggregate"

// Margin thresholds for non-blocking warnings.
const (
	// ramMarginFraction: warn when available RAM is below this fraction
	// of the requirement, even though total RAM passes.
	ramMarginFraction = 0.5

	// diskMarginFraction: warn when free disk after the projected
	// download drops below this fraction of total disk.
	diskMarginFraction = 0.2
)

// Validate compares a requirement against a host snapshot. Every dimension
// is checked independently and failures never short-circuit, so the result
// always carries the complete list of blockers.
//
// Validate is a pure function of its inputs and safe to call concurrently.
func Validate(req Requirement, snap Snapshot) Result {
	res := Result{SafeToInstall: true}

	checkRAM(req, snap, &res)
	checkDisk(req, snap, &res)
	checkCPU(req, snap, &res)
	checkGPU(req, snap, &res)
	checkArchitecture(req, snap, &res)
	checkOSVersion(req, snap, &res)
	checkNetwork(req, snap, &res)

	return res
}

// ValidateCombined validates each named requirement individually and their
// aggregate (Combine), keyed so callers can present both per-item and
// overall gating. The aggregate entry uses AggregateKey.
func ValidateCombined(reqs map[string]Requirement, snap Snapshot) map[string]Result {
	out := make(map[string]Result, len(reqs)+1)
	all := make([]Requirement, 0, len(reqs))
	for key, req := range reqs {
		out[key] = Validate(req, snap)
		all = append(all, req)
	}
	out[AggregateKey] = Validate(Combine(all...), snap)
	return out
}

func (r *Result) block(dim Dimension, format string, args ...any) {
	r.SafeToInstall = false
	r.Blocking = append(r.Blocking, Issue{Dimension: dim, Message: fmt.Sprintf(format, args...)})
}

func (r *Result) warn(dim Dimension, format string, args ...any) {
	r.Warnings = append(r.Warnings, Issue{Dimension: dim, Message: fmt.Sprintf(format, args...)})
}

func checkRAM(req Requirement, snap Snapshot, res *Result) {
	if req.MinRAMGB <= 0 {
		return
	}
	if snap.TotalRAMGB < req.MinRAMGB {
		res.block(DimensionRAM, "insufficient RAM: %.1f GB installed, %.1f GB required", snap.TotalRAMGB, req.MinRAMGB)
		return
	}
	if snap.AvailableRAMGB < req.MinRAMGB*ramMarginFraction {
		res.warn(DimensionRAM, "low available RAM: %.1f GB free against a %.1f GB requirement; close other applications before installing", snap.AvailableRAMGB, req.MinRAMGB)
	}
}

func checkDisk(req Requirement, snap Snapshot, res *Result) {
	if req.MinDiskGB > 0 && snap.FreeDiskGB < req.MinDiskGB {
		res.block(DimensionDisk, "insufficient disk space: %.1f GB free, %.1f GB required", snap.FreeDiskGB, req.MinDiskGB)
		return
	}
	if snap.TotalDiskGB > 0 {
		afterInstall := snap.FreeDiskGB - req.DownloadSizeGB
		if afterInstall < snap.TotalDiskGB*diskMarginFraction {
			res.warn(DimensionDisk, "disk will be nearly full after install: %.1f GB of %.1f GB remaining", afterInstall, snap.TotalDiskGB)
			res.Recommendations = append(res.Recommendations, "free up disk space before installing to keep at least 20% of the volume available")
		}
	}
}

func checkCPU(req Requirement, snap Snapshot, res *Result) {
	if req.MinCPUCores > 0 && snap.CPUCores < req.MinCPUCores {
		res.block(DimensionCPU, "insufficient CPU cores: %d present, %d required", snap.CPUCores, req.MinCPUCores)
	}
}

// checkGPU validates hierarchically: presence, then vendor, then compute
// APIs. Each tier produces its own message so callers never have to
// re-derive why a host was rejected.
func checkGPU(req Requirement, snap Snapshot, res *Result) {
	if !req.GPURequired {
		return
	}
	if len(snap.GPUs) == 0 {
		res.block(DimensionGPU, "a GPU is required but none was detected")
		return
	}

	candidates := snap.GPUs
	if req.GPUVendor != "" {
		candidates = nil
		for _, gpu := range snap.GPUs {
			if strings.EqualFold(gpu.Vendor, req.GPUVendor) {
				candidates = append(candidates, gpu)
			}
		}
		if len(candidates) == 0 {
			vendors := make([]string, 0, len(snap.GPUs))
			for _, gpu := range snap.GPUs {
				vendors = append(vendors, gpu.Vendor)
			}
			res.block(DimensionGPU, "a %s GPU is required but only %s detected", req.GPUVendor, strings.Join(vendors, ", "))
			return
		}
	}

	if len(req.GPUComputeAPIs) == 0 {
		return
	}
	for _, gpu := range candidates {
		if hasAllAPIs(gpu, req.GPUComputeAPIs) {
			return
		}
	}
	res.block(DimensionGPU, "GPU present but required compute support is unavailable: %s", strings.Join(req.GPUComputeAPIs, ", "))
}

func hasAllAPIs(gpu GPU, required []string) bool {
	available := make(map[string]struct{}, len(gpu.ComputeAPIs))
	for _, api := range gpu.ComputeAPIs {
		available[strings.ToLower(api)] = struct{}{}
	}
	for _, api := range required {
		if _, ok := available[strings.ToLower(api)]; !ok {
			return false
		}
	}
	return true
}

func checkArchitecture(req Requirement, snap Snapshot, res *Result) {
	if len(req.SupportedArchitectures) == 0 {
		return
	}
	arch := NormalizeArch(snap.Architecture)
	for _, supported := range req.SupportedArchitectures {
		if NormalizeArch(supported) == arch {
			return
		}
	}
	res.block(DimensionArchitecture, "architecture %s is not supported (supported: %s)", snap.Architecture, strings.Join(req.SupportedArchitectures, ", "))
}

// checkOSVersion compares dotted version strings ordinally. An unparseable
// pair degrades to a warning: it must never silently pass as a success nor
// silently block the installation.
func checkOSVersion(req Requirement, snap Snapshot, res *Result) {
	if req.MinOSVersion == "" {
		return
	}
	cmp, err := CompareVersions(snap.OSVersion, req.MinOSVersion)
	if err != nil {
		res.warn(DimensionOSVersion, "could not compare OS version %q against minimum %q; verify compatibility manually", snap.OSVersion, req.MinOSVersion)
		return
	}
	if cmp < 0 {
		res.block(DimensionOSVersion, "OS version %s is below the required minimum %s", snap.OSVersion, req.MinOSVersion)
	}
}

func checkNetwork(req Requirement, snap Snapshot, res *Result) {
	if req.NetworkRequired && !snap.NetworkOnline {
		res.block(DimensionNetwork, "network access is required for downloads but the host appears offline")
	}
}

// NormalizeArch maps equivalent architecture spellings onto a canonical
// name so membership tests are spelling-insensitive.
func NormalizeArch(arch string) string {
	switch strings.ToLower(strings.TrimSpace(arch)) {
	case "amd64", "x86_64", "x64":
		return "x86_64"
	case "arm64", "aarch64":
		return "arm64"
	case "386", "i386", "i686", "x86":
		return "x86"
	default:
		return strings.ToLower(strings.TrimSpace(arch))
	}
}
