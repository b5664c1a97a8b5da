package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/edalens/internal/pipeline"
	"github.com/KaramelBytes/edalens/internal/report"
	"github.com/KaramelBytes/edalens/internal/utils"
)

var (
	abFlags     analysisFlags
	abOutputDir string
	abJobs      int
	abQuiet     bool
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Analyze multiple CSV/TSV/XLSX files concurrently",
	Example: `  edalens analyze-batch 'data/*.csv' --output-dir reports --jobs 4
  edalens analyze-batch a.csv b.xlsx --no-insights --format json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := abFlags.validate(); err != nil {
			return err
		}
		files, err := expandInputs(args)
		if err != nil {
			return err
		}
		opt, err := abFlags.pipelineOptions(cfg)
		if err != nil {
			return err
		}

		var outFiles []string
		if abOutputDir != "" {
			if err := utils.EnsureDir(abOutputDir); err != nil {
				return err
			}
			outFiles = outputNames(abOutputDir, files, report.Ext(abFlags.format))
		}

		jobs := abJobs
		if jobs <= 0 {
			jobs = 1
		}
		results := make([][]byte, len(files))
		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(jobs)
		total := len(files)
		for i, path := range files {
			i, path := i, path
			if !abQuiet {
				fmt.Fprintf(cmd.ErrOrStderr(), "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			g.Go(func() error {
				rep, err := pipeline.RunFile(ctx, path, abFlags.loadOptions(), opt)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				if w := insightWarning(rep); w != "" && !abQuiet {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s (%s)\n", w, filepath.Base(path))
				}
				out, err := renderReport(rep, abFlags.format)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				if outFiles == nil {
					results[i] = out
					return nil
				}
				if err := utils.SafeWriteFile(outFiles[i], out); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		for i := range files {
			if outFiles != nil {
				if !abQuiet {
					fmt.Fprintf(w, "✓ %s -> %s\n", files[i], outFiles[i])
				}
				continue
			}
			if _, err := w.Write(results[i]); err != nil {
				return err
			}
		}
		return nil
	},
}

// expandInputs resolves globs and literal paths, dropping duplicates.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matched")
	}
	sort.Strings(files)
	return files, nil
}

// outputNames maps each input to <dir>/<base><ext>. Inputs sharing a base
// name get __2, __3, ... suffixes in input order.
func outputNames(dir string, files []string, ext string) []string {
	out := make([]string, len(files))
	used := map[string]int{}
	for i, f := range files {
		base := utils.ReplaceExt(f, "")
		n := used[base] + 1
		used[base] = n
		name := base
		if n > 1 {
			name = fmt.Sprintf("%s__%d", base, n)
		}
		out[i] = filepath.Join(dir, name+ext)
	}
	return out
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	abFlags.register(analyzeBatchCmd.Flags())
	analyzeBatchCmd.Flags().StringVar(&abOutputDir, "output-dir", "", "write one report per input into this directory")
	analyzeBatchCmd.Flags().IntVarP(&abJobs, "jobs", "j", 2, "number of files analyzed concurrently")
	analyzeBatchCmd.Flags().BoolVarP(&abQuiet, "quiet", "q", false, "suppress progress output")
}
