// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/brainsim/internal/archive"
	"github.com/pdiddy/brainsim/internal/gui"
	"github.com/pdiddy/brainsim/internal/module"
	"github.com/pdiddy/brainsim/internal/project"
	"github.com/pdiddy/brainsim/internal/sim"
	"github.com/pdiddy/brainsim/internal/uks"
)

var guiCmd = &cobra.Command{
	Use:   "gui [project_file]",
	Short: "Open the graphical shell",
	Long: `Gui opens a window with project controls and tabs for the knowledge
store, the module registry, and the neural network. An optional project
file is loaded before the window appears.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGUI,
}

func init() {
	rootCmd.AddCommand(guiCmd)
}

func runGUI(cmd *cobra.Command, args []string) error {
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
	}

	arch, err := archive.New(archive.Config{Dir: viper.GetString("archive.dir")})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: archive unavailable: %v\n", err)
		arch = nil
	} else {
		defer arch.Close()
	}

	gui.New(store, nw, handler, arch).Run()
	return nil
}
