package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/toolforge/toolforge/pkg/catalog"
	"github.com/toolforge/toolforge/pkg/config"
	"github.com/toolforge/toolforge/pkg/resource"
	"github.com/toolforge/toolforge/pkg/telemetry"
)

// environment bundles what every command needs: configuration, a logger,
// and the optional metrics collector.
type environment struct {
	cfg     config.Config
	logger  zerolog.Logger
	metrics *telemetry.Metrics
}

func setup() (*environment, error) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	logger, err := telemetry.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	return &environment{
		cfg:     cfg,
		logger:  logger,
		metrics: telemetry.NewMetrics(cfg.Metrics),
	}, nil
}

func (e *environment) loadCatalog() (*catalog.Catalog, []catalog.Profile, error) {
	return catalog.LoadFile(e.cfg.CatalogPath)
}

// selectIDs turns the profile flag and positional arguments into the
// requested component ID list, profile components first.
func selectIDs(profiles []catalog.Profile, profileName string, args []string) ([]string, error) {
	var ids []string
	if profileName != "" {
		p, ok := catalog.FindProfile(profiles, profileName)
		if !ok {
			return nil, fmt.Errorf("unknown profile: %s", profileName)
		}
		ids = append(ids, p.Components...)
	}
	ids = append(ids, args...)
	if len(ids) == 0 {
		return nil, fmt.Errorf("no components requested: pass component IDs or --profile")
	}
	return ids, nil
}

// requirementsFor collects the resource requirements of the planned
// components, falling back to catalog cost data for download projections.
func (e *environment) requirementsFor(order []catalog.Component) map[string]resource.Requirement {
	reqs := make(map[string]resource.Requirement, len(order))
	for _, comp := range order {
		req := e.cfg.Requirements[comp.ID]
		if req.DownloadSizeGB == 0 {
			req.DownloadSizeGB = comp.Cost.DownloadGB
		}
		reqs[comp.ID] = req
	}
	return reqs
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
