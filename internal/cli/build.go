package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"packforge/internal/config"
	"packforge/internal/gen"
	"packforge/internal/packfs"
	"packforge/internal/workflow"
)

func newBuildCommand(app *App) *cobra.Command {
	var variants int
	var seed int64
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "build <pack>",
		Short: "Generate raw image variants for a pack",
		Long: `Generate raw image variants for every screen type in the pack's
config.yaml, written to 01_raw/. Use --dry-run to produce placeholder
images without calling the image API.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			packName := args[0]
			packDir := packfs.PackDir(packName)

			cfg, err := config.LoadPack(filepath.Join(packDir, workflow.PackConfigFile))
			if err != nil {
				app.Printer.Errorf("%v", err)
				return NewExitError(1)
			}

			generator := app.imageGenerator(dryRun)
			if err := gen.BuildPack(cmd.Context(), generator, cfg, packDir, variants, seed, app.Logger); err != nil {
				app.Printer.Errorf("generation failed: %v", err)
				return NewExitError(1)
			}

			app.Printer.Successf("generated %d variant(s) per screen type for %s", variants, packName)
			return nil
		},
	}

	cmd.Flags().IntVar(&variants, "variants", 3, "variants to generate per screen type")
	cmd.Flags().Int64Var(&seed, "seed", 0, "generation seed for reproducible output (0 = random)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "write placeholder images instead of calling the API")
	return cmd
}
