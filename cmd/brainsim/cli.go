// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/brainsim/internal/module"
	"github.com/pdiddy/brainsim/internal/project"
	"github.com/pdiddy/brainsim/internal/sim"
	"github.com/pdiddy/brainsim/internal/uks"
)

var cliCmd = &cobra.Command{
	Use:   "cli [project_file]",
	Short: "Run the engine headless for a fixed number of ticks",
	Long: `Cli optionally loads an XML or JSON project file, then runs the engine
for --ticks iterations. Each tick fires the active modules and steps the
neural network once. The network is stopped and modules are reset before
exiting.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCLI,
}

func init() {
	cliCmd.Flags().Int("ticks", 0, "number of engine ticks to run")
	rootCmd.AddCommand(cliCmd)
}

func runCLI(cmd *cobra.Command, args []string) error {
	ticks, _ := cmd.Flags().GetInt("ticks")
	if ticks < 0 {
		return fmt.Errorf("ticks must be >= 0, got %d", ticks)
	}

	store := uks.NewStore()
	defer store.Close()
	nw := sim.NewNetwork()
	handler := module.NewHandler(store)

	if len(args) == 1 {
		p, err := project.Load(args[0])
		if err != nil {
			return err
		}
		if err := project.Apply(p, store, nw, handler); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "loaded project %s (%d things, %d active modules)\n",
			args[0], store.Len(), len(handler.Active()))
	}

	ctx := context.Background()
	for i := 0; i < ticks; i++ {
		if err := handler.FireModules(ctx); err != nil {
			return fmt.Errorf("tick %d: %w", i+1, err)
		}
		nw.Step(1.0)
	}

	nw.Stop()
	handler.ResetAll()

	fmt.Fprintf(os.Stdout, "ran %d ticks: %d things, %d neurons, simulated time %.1f\n",
		ticks, store.Len(), nw.Len(), nw.Time())
	return nil
}
