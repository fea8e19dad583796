package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var labExport bool

// labCmd groups Lab commands
var labCmd = &cobra.Command{
	Use:   "lab",
	Short: "Run Go snippets in the Lab namespace",
}

var labRunCmd = &cobra.Command{
	Use:   "run [file...]",
	Short: "Run files as consecutive cells of one namespace",
	Long: `Each file is one cell. Names defined by earlier cells are visible to later
ones, exactly as in the interactive Lab.

Example:
  gora lab run setup.go analysis.go`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLab,
}

func init() {
	labRunCmd.Flags().BoolVar(&labExport, "export", false, "Save each new file produced by a cell into the downloads directory")
	labCmd.AddCommand(labRunCmd)
}

func runLab(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	ws, err := newWorkspace()
	if err != nil {
		return err
	}

	failed := 0
	for _, path := range args {
		code, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		ws.CodeBuffer = string(code)
		res, err := ws.RunCode(ctx)
		if err != nil {
			fmt.Fprintf(out, "── %s: %v\n", path, err)
			continue
		}
		fmt.Fprintf(out, "── %s (cell %d, %s)\n%s\n", path, res.Cell, res.Duration, res.Display())
		if !res.OK() {
			failed++
		}
		for _, a := range res.Artifacts {
			if !labExport {
				fmt.Fprintf(out, "   new file: %s\n", a.Name)
				continue
			}
			saved, err := ws.ExportArtifact(a)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "   saved: %s\n", saved)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d cells failed", failed, len(args))
	}
	return nil
}
