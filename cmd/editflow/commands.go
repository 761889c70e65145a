package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/editflow/editflow/internal/engine"
	"github.com/editflow/editflow/internal/engine/diffsource"
	"github.com/editflow/editflow/internal/engine/transaction"
)

var (
	configPath string
	logLevel   string
	acceptAll  bool
	rejectAll  bool
	outPath    string

	rootCmd = &cobra.Command{
		Use:   "editflow",
		Short: "Review AI-proposed edits as acceptable diffs",
		Long: `editflow compares a file against a proposed revision, tracks each
change as an individually reviewable diff, and applies or discards
changes at diff, file, or workspace scope.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(configPath, logLevel)
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("editflow %s (commit %s, built %s)\n", version, commit, date)
		},
	}

	diffCmd = &cobra.Command{
		Use:   "diff <file> <proposed>",
		Short: "Show the reviewable diffs between a file and a proposed revision",
		Args:  cobra.ExactArgs(2),
		RunE:  runDiff,
	}

	reviewCmd = &cobra.Command{
		Use:   "review <file> <proposed>",
		Short: "Resolve the diffs between a file and a proposed revision",
		Long: `review opens a transaction proposing the second file's content over the
first, then resolves every diff per the --accept or --reject flag and
writes the result to the original file (or --out).`,
		Args: cobra.ExactArgs(2),
		RunE: runReview,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	reviewCmd.Flags().BoolVar(&acceptAll, "accept", false, "accept every diff")
	reviewCmd.Flags().BoolVar(&rejectAll, "reject", false, "reject every diff")
	reviewCmd.Flags().StringVarP(&outPath, "out", "o", "", "write the result here instead of the original file")

	rootCmd.AddCommand(versionCmd, diffCmd, reviewCmd)
}

// openTransaction reads both files and opens a transaction proposing the
// revised content over the original.
func openTransaction(eng *engine.Engine, originalPath, proposedPath string) (string, error) {
	original, err := os.ReadFile(originalPath)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", originalPath, err)
	}
	proposed, err := os.ReadFile(proposedPath)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", proposedPath, err)
	}

	eng.Store.Open(originalPath, string(proposed))
	return eng.Manager.CreateEditTransaction(originalPath, string(original), transaction.CreateOptions{
		Source: transaction.SourceTool,
	})
}

func runDiff(cmd *cobra.Command, args []string) error {
	eng := engine.New(cfg, log)
	defer eng.Close()

	if _, err := openTransaction(eng, args[0], args[1]); err != nil {
		return err
	}

	diffs := eng.Manager.GetDiffsForFile(args[0])
	if len(diffs) == 0 {
		fmt.Println("no changes")
		return nil
	}

	live, _ := eng.Store.Value(args[0])
	liveLines := splitLines(live)

	for _, d := range diffs {
		fmt.Printf("diff %d (%s) %s\n", d.ID, diffKind(d), describeRanges(d))
		printContext(liveLines, d.ModifiedRange.Start-cfg.Engine.DiffContextLines, d.ModifiedRange.Start-1)
		printCode(d.OriginalCode, "-")
		printCode(d.ModifiedCode, "+")
		printContext(liveLines, d.ModifiedRange.End+1, d.ModifiedRange.End+cfg.Engine.DiffContextLines)
	}
	fmt.Printf("%d diffs\n", len(diffs))
	return nil
}

func runReview(cmd *cobra.Command, args []string) error {
	if acceptAll == rejectAll {
		return fmt.Errorf("exactly one of --accept or --reject is required")
	}

	eng := engine.New(cfg, log)
	defer eng.Close()

	uri := args[0]
	if _, err := openTransaction(eng, uri, args[1]); err != nil {
		return err
	}

	if acceptAll {
		if !eng.Manager.AcceptFile(uri) {
			return fmt.Errorf("accepting diffs in %s failed", uri)
		}
	} else {
		if !eng.Manager.RejectFile(uri) {
			return fmt.Errorf("rejecting diffs in %s failed", uri)
		}
	}

	text, ok := eng.Store.Value(uri)
	if !ok {
		return fmt.Errorf("no document open for %s", uri)
	}

	dest := outPath
	if dest == "" {
		dest = uri
	}
	if err := os.WriteFile(dest, []byte(text), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", dest, err)
	}

	if summary, ok := eng.Manager.GetEditedFile(uri); ok {
		fmt.Printf("%s: %d accepted, %d rejected\n", dest, summary.AcceptedCount, summary.RejectedCount)
	}
	return nil
}

func diffKind(d *diffsource.Diff) string {
	switch {
	case d.IsInsertion():
		return "insertion"
	case d.IsDeletion():
		return "deletion"
	default:
		return "edit"
	}
}

func describeRanges(d *diffsource.Diff) string {
	return fmt.Sprintf("original %s, modified %s", d.OriginalRange, d.ModifiedRange)
}

// printContext prints unchanged live lines in the inclusive span, clamped
// to the document.
func printContext(lines []string, start, end int) {
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	for i := start; i <= end; i++ {
		fmt.Printf("  %s\n", lines[i-1])
	}
}

func printCode(code, prefix string) {
	if code == "" {
		return
	}
	for _, line := range splitLines(code) {
		fmt.Printf("%s %s\n", prefix, line)
	}
}

func splitLines(code string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(code); i++ {
		if code[i] == '\n' {
			lines = append(lines, code[start:i])
			start = i + 1
		}
	}
	return append(lines, code[start:])
}
