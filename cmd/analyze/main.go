// Command analyze prints a human-readable report for maze configuration files.
// For each maze it shows dimensions, open and blocked cell counts, obstacle
// density, how many separate open regions there are, whether the config
// validates, and how far each preset robot can get on its battery and on a
// full charge.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/urfave/cli/v3"
)

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Report on maze configuration files",
		ArgsUsage: "[config.json ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "Directory scanned when no files are given", Sources: cli.EnvVars("CONFIG_DIR")},
			&cli.BoolFlag{Name: "strict", Usage: "Exit non-zero when any configuration is invalid"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			files := cmd.Args().Slice()
			if len(files) == 0 {
				found, err := filepath.Glob(filepath.Join(cmd.String("config-dir"), "*.json"))
				if err != nil {
					return fmt.Errorf("finding config files: %w", err)
				}
				files = found
			}
			if len(files) == 0 {
				return cli.Exit("no configuration files found", 1)
			}
			slices.Sort(files)

			out := cmd.Root().Writer
			invalid := 0
			for _, file := range files {
				report := analyzeFile(file)
				if !report.Valid {
					invalid++
				}
				report.Print(out)
			}

			fmt.Fprintf(out, "\n%d configurations, %d invalid\n", len(files), invalid)
			if invalid > 0 && cmd.Bool("strict") {
				return cli.Exit("some configurations have errors", 1)
			}
			return nil
		},
	}
}
