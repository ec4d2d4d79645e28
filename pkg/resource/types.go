// Package resource compares host capabilities against component resource
// needs. It decides whether an installation is safe to attempt and, when it
// is not, reports every blocking dimension in one pass.
package resource

// Requirement is the aggregate minimum a component set needs from a host.
type Requirement struct {
	// MinRAMGB is the minimum total memory in gigabytes.
	MinRAMGB float64 `json:"min_ram_gb,omitempty" yaml:"min_ram_gb,omitempty"`

	// MinDiskGB is the minimum free disk space in gigabytes.
	MinDiskGB float64 `json:"min_disk_gb,omitempty" yaml:"min_disk_gb,omitempty"`

	// MinCPUCores is the minimum number of logical CPU cores.
	MinCPUCores int `json:"min_cpu_cores,omitempty" yaml:"min_cpu_cores,omitempty"`

	// GPURequired indicates a GPU must be present.
	GPURequired bool `json:"gpu_required,omitempty" yaml:"gpu_required,omitempty"`

	// GPUVendor restricts the GPU vendor (e.g. "nvidia", "amd"). Empty
	// means any vendor.
	GPUVendor string `json:"gpu_vendor,omitempty" yaml:"gpu_vendor,omitempty"`

	// GPUComputeAPIs lists compute APIs the GPU must expose (e.g. "cuda").
	GPUComputeAPIs []string `json:"gpu_compute_apis,omitempty" yaml:"gpu_compute_apis,omitempty"`

	// SupportedArchitectures lists CPU architectures the component set
	// runs on. Empty means unrestricted.
	SupportedArchitectures []string `json:"supported_architectures,omitempty" yaml:"supported_architectures,omitempty"`

	// MinOSVersion is the minimum OS version as a dotted string.
	MinOSVersion string `json:"min_os_version,omitempty" yaml:"min_os_version,omitempty"`

	// NetworkRequired indicates downloads are needed during installation.
	NetworkRequired bool `json:"network_required,omitempty" yaml:"network_required,omitempty"`

	// DownloadSizeGB is the projected total download size in gigabytes.
	DownloadSizeGB float64 `json:"download_size_gb,omitempty" yaml:"download_size_gb,omitempty"`
}

// GPU describes one GPU present on the host.
type GPU struct {
	// Vendor is the normalized vendor name (e.g. "nvidia", "amd", "intel").
	Vendor string `json:"vendor"`

	// Model is the device model string.
	Model string `json:"model,omitempty"`

	// ComputeAPIs lists the compute APIs the driver stack exposes.
	ComputeAPIs []string `json:"compute_apis,omitempty"`

	// MemoryGB is the device memory in gigabytes.
	MemoryGB float64 `json:"memory_gb,omitempty"`
}

// Snapshot is a point-in-time record of host facts. It is captured once
// per invocation and treated as immutable input.
type Snapshot struct {
	// TotalRAMGB is the total physical memory in gigabytes.
	TotalRAMGB float64 `json:"total_ram_gb"`

	// AvailableRAMGB is the currently available memory in gigabytes.
	AvailableRAMGB float64 `json:"available_ram_gb"`

	// TotalDiskGB is the total size of the install volume in gigabytes.
	TotalDiskGB float64 `json:"total_disk_gb"`

	// FreeDiskGB is the free space on the install volume in gigabytes.
	FreeDiskGB float64 `json:"free_disk_gb"`

	// CPUCores is the number of logical CPU cores.
	CPUCores int `json:"cpu_cores"`

	// Architecture is the normalized CPU architecture (e.g. "x86_64").
	Architecture string `json:"architecture"`

	// OSName is the operating system name (e.g. "ubuntu", "darwin").
	OSName string `json:"os_name"`

	// OSVersion is the OS version as a dotted string.
	OSVersion string `json:"os_version"`

	// GPUs lists GPUs present on the host.
	GPUs []GPU `json:"gpus,omitempty"`

	// NetworkOnline indicates the host currently has network reachability.
	NetworkOnline bool `json:"network_online"`
}

// Dimension identifies which host dimension an issue concerns.
type Dimension string

const (
	DimensionRAM          Dimension = "ram"
	DimensionDisk         Dimension = "disk"
	DimensionCPU          Dimension = "cpu"
	DimensionGPU          Dimension = "gpu"
	DimensionArchitecture Dimension = "architecture"
	DimensionOSVersion    Dimension = "os_version"
	DimensionNetwork      Dimension = "network"
)

// Issue is one human-readable finding from validation, tagged with the
// dimension it concerns.
type Issue struct {
	Dimension Dimension `json:"dimension"`
	Message   string    `json:"message"`
}

// Result is the outcome of validating one requirement against a snapshot.
type Result struct {
	// SafeToInstall is false when any blocking issue was found.
	SafeToInstall bool `json:"safe_to_install"`

	// Blocking lists every failed dimension; checks never short-circuit.
	Blocking []Issue `json:"blocking,omitempty"`

	// Warnings lists non-blocking findings (thin margins, unparseable
	// version strings).
	Warnings []Issue `json:"warnings,omitempty"`

	// Recommendations are free-form suggestions for the caller.
	Recommendations []string `json:"recommendations,omitempty"`
}
