package main

import (
	"fmt"

	"github.com/hupe1980/bsvm/budget"
	"github.com/hupe1980/bsvm/codec"
	"github.com/hupe1980/bsvm/config"
	"github.com/spf13/cobra"
)

type maintainSummary struct {
	Source      string  `json:"source"`
	Strategy    string  `json:"strategy"`
	Budget      int     `json:"budget"`
	Rows        int     `json:"rows"`
	Kept        int     `json:"kept"`
	Steps       int     `json:"steps"`
	Degradation float64 `json:"degradation"`
	Dimension   int     `json:"dimension"`
	Classes     int     `json:"classes"`
	CacheHits   int64   `json:"cache_hits"`
	CacheMisses int64   `json:"cache_misses"`
	PeakMemory  int64   `json:"peak_memory_bytes"`
}

func newMaintainCmd(a *app) *cobra.Command {
	var (
		budgetSize int
		strategy   string
		gamma      float64
		chunkSize  int
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "maintain SOURCE",
		Short: "Keep one support vector per row under a budget",
		Long: `Stream SOURCE and add every row as a support vector whose alpha is 1 for the
row's label, enforcing the budget after each row with removal or merging.
This exercises budget maintenance on real data without a trainer.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := a.params(cmd, func(p *config.Params) error {
				p.Algorithm = config.BSGD
				if cmd.Flags().Changed("budget") {
					p.Budget = budgetSize
				}
				if cmd.Flags().Changed("strategy") {
					s, err := budget.ParseStrategy(strategy)
					if err != nil {
						return err
					}
					p.Maintenance = int(s)
				}
				if cmd.Flags().Changed("gamma") {
					p.Gamma = gamma
				}
				if cmd.Flags().Changed("chunk-size") {
					p.ChunkSize = chunkSize
				}
				return nil
			})
			if err != nil {
				return err
			}
			tk, err := a.toolkit(p)
			if err != nil {
				return err
			}
			defer tk.Close()

			src, err := a.openSource(ctx, args[0])
			if err != nil {
				return err
			}
			d, err := tk.OpenDataset(src)
			if err != nil {
				return err
			}
			defer d.Close()

			m, err := tk.NewMaintainer()
			if err != nil {
				return err
			}

			set := budget.NewWorkingSet()
			s := maintainSummary{Source: src.Name(), Strategy: m.Strategy().String(), Budget: m.Budget()}
			bar := newRowBar(cmd.ErrOrStderr(), "maintain", a.quiet)
			defer bar.finish()
			for {
				more, err := tk.LoadNextChunk(ctx, d)
				if err != nil {
					return err
				}
				if err := tk.Grow(ctx, set, d); err != nil {
					return err
				}
				classes := len(d.Labels())
				set.ExtendAlphas(classes)

				for i := 0; i < d.Len(); i++ {
					sv, err := tk.NewSupportVector(d, i, classes)
					if err != nil {
						return err
					}
					sv.Alphas()[d.Label(i)] = 1
					set.Add(sv)

					r, err := tk.Maintain(ctx, m, set)
					if err != nil {
						return err
					}
					s.Steps += len(r.Steps)
					s.Degradation += r.Degradation()
				}
				s.Rows += d.Len()
				bar.add(d.Len())
				if !more {
					break
				}
			}

			s.Kept = set.Len()
			s.Dimension = tk.Params().Dimension
			s.Classes = len(d.Labels())
			s.CacheHits, s.CacheMisses = tk.CacheStats()
			s.PeakMemory = tk.Controller().PeakMemoryUsage()

			out := cmd.OutOrStdout()
			if asJSON {
				data, err := codec.Default.Marshal(s)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(data))
				return err
			}
			fmt.Fprintf(out, "%s: %d rows, kept %d of budget %d with %s (%d steps, degradation %.6g, peak memory %d bytes)\n",
				s.Source, s.Rows, s.Kept, s.Budget, s.Strategy, s.Steps, s.Degradation, s.PeakMemory)
			return nil
		},
	}
	cmd.Flags().IntVarP(&budgetSize, "budget", "B", 100, "Maximum number of support vectors")
	cmd.Flags().StringVarP(&strategy, "strategy", "m", "removal", "Maintenance strategy (removal, merging)")
	cmd.Flags().Float64VarP(&gamma, "gamma", "g", 0, "Gaussian kernel width, 0 for 1/D")
	cmd.Flags().IntVarP(&chunkSize, "chunk-size", "z", 50000, "Rows per chunk")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the summary as JSON")
	return cmd
}
