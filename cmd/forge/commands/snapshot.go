package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/toolforge/toolforge/pkg/hostinfo"
)

func newSnapshotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Show the host facts used for resource validation",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup()
			if err != nil {
				return err
			}

			snap, err := hostinfo.New(env.cfg.InstallPath, env.logger).Collect(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(snap)
			}

			fmt.Printf("OS:           %s %s\n", snap.OSName, snap.OSVersion)
			fmt.Printf("Architecture: %s\n", snap.Architecture)
			fmt.Printf("CPU cores:    %d\n", snap.CPUCores)
			fmt.Printf("RAM:          %.1f GB total, %.1f GB available\n", snap.TotalRAMGB, snap.AvailableRAMGB)
			fmt.Printf("Disk (%s):    %.1f GB total, %.1f GB free\n", env.cfg.InstallPath, snap.TotalDiskGB, snap.FreeDiskGB)
			if len(snap.GPUs) == 0 {
				fmt.Println("GPUs:         none detected")
			}
			for _, gpu := range snap.GPUs {
				fmt.Printf("GPU:          %s %s (%.0f GB)\n", gpu.Vendor, gpu.Model, gpu.MemoryGB)
			}
			fmt.Printf("Network:      online=%v\n", snap.NetworkOnline)
			return nil
		},
	}

	return cmd
}
