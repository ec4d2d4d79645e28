package resource

import "sort"

// Combine merges requirements from multiple component sets: scalar fields
// take the maximum, GPU/network become required when any input requires
// them, and supported architectures intersect. An empty architecture list
// means unrestricted and does not narrow the intersection.
func Combine(reqs ...Requirement) Requirement {
	var out Requirement
	archRestricted := false

	for _, r := range reqs {
		out.MinRAMGB = maxFloat(out.MinRAMGB, r.MinRAMGB)
		out.MinDiskGB = maxFloat(out.MinDiskGB, r.MinDiskGB)
		if r.MinCPUCores > out.MinCPUCores {
			out.MinCPUCores = r.MinCPUCores
		}
		out.DownloadSizeGB += r.DownloadSizeGB
		out.NetworkRequired = out.NetworkRequired || r.NetworkRequired

		if r.GPURequired {
			out.GPURequired = true
			if out.GPUVendor == "" {
				out.GPUVendor = r.GPUVendor
			}
			out.GPUComputeAPIs = unionStrings(out.GPUComputeAPIs, r.GPUComputeAPIs)
		}

		if len(r.SupportedArchitectures) > 0 {
			if !archRestricted {
				out.SupportedArchitectures = append([]string(nil), r.SupportedArchitectures...)
				archRestricted = true
			} else {
				out.SupportedArchitectures = intersectStrings(out.SupportedArchitectures, r.SupportedArchitectures)
			}
		}

		if r.MinOSVersion != "" {
			if out.MinOSVersion == "" || compareVersionsOrEqual(r.MinOSVersion, out.MinOSVersion) > 0 {
				out.MinOSVersion = r.MinOSVersion
			}
		}
	}

	sort.Strings(out.SupportedArchitectures)
	sort.Strings(out.GPUComputeAPIs)
	return out
}

// compareVersionsOrEqual treats unparseable pairs as equal so Combine
// still picks a deterministic winner (the already-held value).
func compareVersionsOrEqual(a, b string) int {
	cmp, err := CompareVersions(a, b)
	if err != nil {
		return 0
	}
	return cmp
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range a {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	for _, s := range b {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

func intersectStrings(a, b []string) []string {
	inB := make(map[string]struct{}, len(b))
	for _, s := range b {
		inB[s] = struct{}{}
	}
	out := make([]string, 0, len(a))
	for _, s := range a {
		if _, ok := inB[s]; ok {
			out = append(out, s)
		}
	}
	return out
}
