package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"packforge/internal/config"
	"packforge/internal/gen"
	"packforge/internal/packfs"
	"packforge/internal/workflow"
)

func newPostprocessCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "postprocess <pack>",
		Short: "Select raw variants and finish them at deliverable resolution",
		Long: `Promote raw variants from 01_raw/ to 02_selected/, resize them to the
pack resolution under 03_final/, and render any configured mockups.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			packName := args[0]
			packDir := packfs.PackDir(packName)

			cfg, err := config.LoadPack(filepath.Join(packDir, workflow.PackConfigFile))
			if err != nil {
				app.Printer.Errorf("%v", err)
				return NewExitError(1)
			}

			selected, err := gen.AutoSelect(packDir, app.Logger)
			if err != nil {
				app.Printer.Errorf("selection failed: %v", err)
				return NewExitError(1)
			}
			if selected == 0 {
				app.Printer.Warnf("no raw images found, run \"packforge build %s\" first", packName)
				return NewExitError(1)
			}

			if err := gen.PostprocessSelected(cfg, packDir, app.Logger); err != nil {
				app.Printer.Errorf("postprocess failed: %v", err)
				return NewExitError(1)
			}

			app.Printer.Successf("finished %d image(s) at %dx%d", selected,
				cfg.Resolution.Width, cfg.Resolution.Height)
			return nil
		},
	}
}
