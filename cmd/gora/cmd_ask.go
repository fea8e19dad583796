package main

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"gora/internal/attach"

	"github.com/spf13/cobra"
)

var (
	askFiles    []string
	askNoStream bool
)

// askCmd runs one turn non-interactively
var askCmd = &cobra.Command{
	Use:   "ask [prompt]",
	Short: "Ask one question and print the reply",
	Long: `Runs a single turn against a fresh session and prints the answer, the
extracted code and the follow-up suggestions.

Example:
  gora ask --file report.pdf "Summarise the findings"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringSliceVarP(&askFiles, "file", "f", nil, "Attach a file (repeatable)")
	askCmd.Flags().BoolVar(&askNoStream, "no-stream", false, "Print the reply only when complete")
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	files, err := readFiles(askFiles)
	if err != nil {
		return err
	}

	ws, err := newWorkspace()
	if err != nil {
		return err
	}
	if err := ws.Configure(ctx, cfg.LLM.APIKey); err != nil {
		return err
	}
	ws.NewSession()

	var onChunk func(string)
	streamed := cfg.LLM.Stream && !askNoStream
	if streamed {
		onChunk = func(s string) { fmt.Fprint(out, s) }
	}

	res, err := ws.Submit(ctx, joinArgs(args), files, onChunk)
	if err != nil {
		return err
	}
	if streamed {
		fmt.Fprintln(out)
		fmt.Fprintln(out, strings.Repeat("─", 40))
	}

	fmt.Fprintln(out, res.Reply.Answer)
	if res.Reply.HasCode() {
		fmt.Fprintf(out, "\n```go\n%s\n```\n", res.Reply.Code)
	}
	for i, s := range res.Reply.Suggestions {
		fmt.Fprintf(out, "%d. %s\n", i+1, s)
	}
	if len(res.Assembly.Skipped) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "skipped: %s\n", strings.Join(res.Assembly.Skipped, ", "))
	}
	return nil
}

func readFiles(paths []string) ([]attach.File, error) {
	files := make([]attach.File, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		name := filepath.Base(path)
		files = append(files, attach.File{
			Name:      name,
			MediaType: mime.TypeByExtension(filepath.Ext(name)),
			Data:      data,
		})
	}
	return files, nil
}
