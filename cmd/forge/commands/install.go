package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/toolforge/toolforge/pkg/adapters"
	"github.com/toolforge/toolforge/pkg/catalog"
	"github.com/toolforge/toolforge/pkg/engine"
	"github.com/toolforge/toolforge/pkg/history"
	"github.com/toolforge/toolforge/pkg/hostinfo"
	"github.com/toolforge/toolforge/pkg/resolver"
	"github.com/toolforge/toolforge/pkg/resource"
	"github.com/toolforge/toolforge/pkg/verify"
)

func newInstallCommand() *cobra.Command {
	var (
		profileName string
		skipCheck   bool
		skipVerify  bool
		force       bool
	)

	cmd := &cobra.Command{
		Use:   "install [component-id...]",
		Short: "Install components and their dependencies",
		Long: `Resolve the requested components into an ordered plan, validate the host
has the resources to carry it, install every component through the best
available backend, and verify the results.

Already-installed components are skipped. A failing dependency skips its
dependents. The command exits non-zero unless every non-optional component
ends up installed and verified.`,
		Example: `  # Install a profile
  forge install --profile web-backend

  # Install specific components, ignoring resource warnings
  forge install --force framework.pytorch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup()
			if err != nil {
				return err
			}
			cat, profiles, err := env.loadCatalog()
			if err != nil {
				return err
			}
			ids, err := selectIDs(profiles, profileName, args)
			if err != nil {
				return err
			}
			requested, err := cat.Select(ids)
			if err != nil {
				return err
			}
			order, err := resolver.New(cat).Resolve(requested)
			if err != nil {
				return err
			}

			ctx := cmd.Context()

			snap, err := hostinfo.New(env.cfg.InstallPath, env.logger).Collect(ctx)
			if err != nil {
				return err
			}
			if !skipCheck {
				results := resource.ValidateCombined(env.requirementsFor(order), snap)
				agg := results[resource.AggregateKey]
				for _, issue := range agg.Warnings {
					env.logger.Warn().Str("dimension", string(issue.Dimension)).Msg(issue.Message)
				}
				if !agg.SafeToInstall {
					if !force {
						if !jsonOutput {
							printCheckReport(results, agg)
						}
						return fmt.Errorf("host does not meet the combined requirements (use --force to override)")
					}
					env.logger.Warn().Msg("Resource check failed, continuing because --force is set")
				}
			}

			registry, err := adapters.NewDefaultRegistry(env.cfg.Engine.CacheRoot, env.cfg.Artifacts)
			if err != nil {
				return err
			}
			eng := engine.New(registry, env.cfg.Engine, env.logger, env.metrics)

			runID := uuid.New().String()
			store := openHistory(ctx, env, runID, profileName, snap, len(order))

			installResults := eng.InstallAll(ctx, order)

			var verifications []verify.Result
			if !skipVerify {
				verifications = verify.New(env.logger, env.metrics).All(ctx, order, installResults)
			}

			optional := make(map[string]bool, len(order))
			for _, comp := range order {
				optional[comp.ID] = comp.Optional
			}
			summary := engine.Summarize(installResults, optional)
			verifyOK := verificationsPassed(verifications, optional)

			recordRun(ctx, env, store, runID, installResults, verifications, summary)

			if jsonOutput {
				if err := printJSON(struct {
					RunID         string                      `json:"run_id"`
					Summary       engine.Summary              `json:"summary"`
					Results       []engine.InstallationResult `json:"results"`
					Verifications []verify.Result             `json:"verifications,omitempty"`
				}{runID, summary, installResults, verifications}); err != nil {
					return err
				}
			} else {
				printInstallReport(order, installResults, verifications, summary)
			}

			if ctx.Err() != nil {
				return fmt.Errorf("installation cancelled")
			}
			if !summary.OverallSuccess {
				return fmt.Errorf("installation failed: %s", strings.Join(summary.FailedRequired, ", "))
			}
			if !verifyOK {
				return fmt.Errorf("installation completed but verification failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&profileName, "profile", "p", "", "profile to install")
	cmd.Flags().BoolVar(&skipCheck, "skip-check", false, "skip the host resource check")
	cmd.Flags().BoolVar(&skipVerify, "skip-verify", false, "skip post-install verification")
	cmd.Flags().BoolVar(&force, "force", false, "install even when the resource check fails")

	return cmd
}

// openHistory opens the history store and creates the run record. History
// is best-effort: a broken database logs a warning instead of blocking the
// installation.
func openHistory(ctx context.Context, env *environment, runID, profileName string, snap resource.Snapshot, total int) *history.Store {
	store, err := history.NewStore(env.cfg.History)
	if err != nil {
		env.logger.Warn().Err(err).Msg("History disabled")
		return nil
	}
	if err := store.Open(ctx); err != nil {
		env.logger.Warn().Err(err).Msg("Could not open history database")
		return nil
	}

	host, _ := json.Marshal(snap)
	run := &history.Run{
		ID:        runID,
		Profile:   profileName,
		Status:    history.RunStatusRunning,
		Host:      string(host),
		Total:     total,
		StartedAt: time.Now(),
	}
	if err := store.CreateRun(ctx, run); err != nil {
		env.logger.Warn().Err(err).Msg("Could not record run")
		_ = store.Close()
		return nil
	}
	return store
}

func recordRun(ctx context.Context, env *environment, store *history.Store, runID string, installResults []engine.InstallationResult, verifications []verify.Result, summary engine.Summary) {
	if store == nil {
		return
	}
	defer store.Close()

	// The run may have been cancelled; recording still needs to finish.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	status := history.RunStatusCompleted
	switch {
	case ctx.Err() != nil:
		status = history.RunStatusCancelled
	case !summary.OverallSuccess:
		status = history.RunStatusFailed
	}

	skipped := summary.SkippedExisting + summary.SkippedBlocked + summary.SkippedCancelled
	if err := store.RecordComponents(recordCtx, history.RecordsFromResults(runID, installResults, verifications)); err != nil {
		env.logger.Warn().Err(err).Msg("Could not record component results")
	}
	if err := store.CompleteRun(recordCtx, runID, status, summary.Succeeded, summary.Failed, skipped); err != nil {
		env.logger.Warn().Err(err).Msg("Could not finalize run record")
	}
}

func verificationsPassed(verifications []verify.Result, optional map[string]bool) bool {
	for _, v := range verifications {
		if !v.Passed() && !optional[v.ComponentID] {
			return false
		}
	}
	return true
}

func printInstallReport(order []catalog.Component, results []engine.InstallationResult, verifications []verify.Result, summary engine.Summary) {
	verdicts := make(map[string]verify.Result, len(verifications))
	for _, v := range verifications {
		verdicts[v.ComponentID] = v
	}

	fmt.Println("Installation report:")
	for _, r := range results {
		line := fmt.Sprintf("  %-30s %s", r.ComponentID, r.Status)
		if r.Method != "" {
			line += " via " + r.Method
		}
		if r.Version != "" {
			line += " (" + r.Version + ")"
		}
		fmt.Println(line)
		if r.Error != nil {
			fmt.Printf("      error: %s\n", r.Error.Message)
		}
		for _, w := range r.Warnings {
			fmt.Printf("      warning: %s\n", w)
		}
		if v, ok := verdicts[r.ComponentID]; ok && !v.Passed() {
			fmt.Printf("      verification %s: %s\n", v.Outcome, v.Message)
		}
	}

	fmt.Printf("\n%d succeeded, %d already installed, %d failed, %d skipped of %d total\n",
		summary.Succeeded, summary.SkippedExisting, summary.Failed,
		summary.SkippedBlocked+summary.SkippedCancelled, summary.Total)
}
