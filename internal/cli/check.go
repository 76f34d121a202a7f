package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"packforge/internal/packfs"
	"packforge/internal/rubric"
)

func newCheckCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "check <pack>",
		Short: "Run the automated technical checks for a pack",
		Long: `Inspect a pack's finished artifacts: overlay resolution, listing photo
constraints, and delivery archive limits. Prints the automated score and
exits non-zero when ship-blocking issues are found.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			packName := args[0]
			packDir := packfs.PackDir(packName)
			if _, err := os.Stat(packDir); err != nil {
				app.Printer.Errorf("pack directory not found: %s", packDir)
				return NewExitError(1)
			}

			score, issues := rubric.AutomatedScore(packDir)
			critical := rubric.CriticalIssues(packDir)
			_, warnings := rubric.ValidateListingPhotos(filepath.Join(packDir, packfs.ListingDir))

			app.Printer.Banner("automated checks: "+packName)
			for _, issue := range issues {
				app.Printer.Errorf("%s", issue)
			}
			for _, warning := range warnings {
				app.Printer.Warnf("%s", warning)
			}

			if len(issues) == 0 {
				app.Printer.Successf("all checks passed, score %.1f/10", score)
			} else {
				app.Printer.Infof("score %.1f/10 with %d issue(s)", score, len(issues))
			}

			if len(critical) > 0 {
				for _, issue := range critical {
					app.Printer.Errorf("%s", issue)
				}
				return NewExitError(1)
			}
			return nil
		},
	}
}
