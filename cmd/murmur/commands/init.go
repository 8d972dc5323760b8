package commands

import (
	"errors"
	"fmt"

	"github.com/dyluth/murmur/internal/printer"
	"github.com/dyluth/murmur/internal/scaffold"
	"github.com/spf13/cobra"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a murmur.yml with the default settings",
	Long: `Write a commented murmur.yml into the current directory.

The file holds every setting murmurd understands, preset to the built-in
defaults. Point murmurd or murmur at it with --config or MURMUR_CONFIG.

Use --force to overwrite an existing murmur.yml.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing murmur.yml")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	path, err := scaffold.Initialize(".", forceInit)
	if errors.Is(err, scaffold.ErrAlreadyInitialized) {
		return printer.Error(
			"already initialized",
			err.Error(),
			nil,
			"Reinitialize (overwrites your settings):\n     murmur init --force",
		)
	}
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	printer.Success("Created %s\n", path)
	printer.Info("\nNext steps:\n")
	printer.Info("  1. Adjust redis and namespace in %s\n", path)
	printer.Info("  2. Start a peer: murmurd --config %s\n", path)
	printer.Info("  3. List the mesh: murmur peers --config %s\n", path)
	return nil
}
