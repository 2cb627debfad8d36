package main

import (
	"fmt"
	"os"

	"github.com/hupe1980/bsvm/codec"
	"github.com/hupe1980/bsvm/config"
	"github.com/hupe1980/bsvm/dataset"
	"github.com/spf13/cobra"
)

type scanSummary struct {
	Source      string  `json:"source"`
	Rows        int64   `json:"rows"`
	NonZeros    int64   `json:"non_zeros"`
	Dimension   int     `json:"dimension"`
	Labels      []int   `json:"labels"`
	Sparsity    float64 `json:"sparsity"`
	VerySparse  bool    `json:"very_sparse"`
	Compression string  `json:"compression"`
	Chunks      int     `json:"chunks"`
	LoadTime    string  `json:"load_time"`
}

func newScanCmd(a *app) *cobra.Command {
	var (
		chunkSize int
		asJSON    bool
		labelsOut string
	)
	cmd := &cobra.Command{
		Use:   "scan SOURCE",
		Short: "Stream a dataset chunk by chunk and report its statistics",
		Long: `Stream a LIBSVM-format dataset (plain, gzip, zstd or lz4) chunk by chunk and
report rows, non-zero features, dimensionality and labels.

SOURCE is a local path, s3://bucket/key or minio://endpoint/bucket/key.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := a.params(cmd, func(p *config.Params) error {
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

			bar := newRowBar(cmd.ErrOrStderr(), "scan", a.quiet)
			chunks := 0
			for {
				more, err := tk.LoadNextChunk(ctx, d)
				if err != nil {
					bar.finish()
					return err
				}
				if d.Len() > 0 {
					chunks++
				}
				bar.add(d.Len())
				if !more {
					break
				}
			}
			bar.finish()

			st := d.Stats()
			s := scanSummary{
				Source:      src.Name(),
				Rows:        st.Rows,
				NonZeros:    st.NonZeros,
				Dimension:   d.HighestDimension(),
				Labels:      d.Labels(),
				VerySparse:  d.VerySparse(),
				Compression: string(st.Compression),
				Chunks:      chunks,
				LoadTime:    st.LoadTime.String(),
			}
			if s.Rows > 0 && s.Dimension > 0 {
				s.Sparsity = float64(s.NonZeros) / float64(s.Rows*int64(s.Dimension))
			}

			if labelsOut != "" {
				f, err := os.Create(labelsOut)
				if err != nil {
					return err
				}
				if err := dataset.SaveLabels(f, d.Labels(), codec.Default); err != nil {
					_ = f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				data, err := codec.Default.Marshal(s)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(data))
				return err
			}
			fmt.Fprintf(out, "source:      %s\n", s.Source)
			fmt.Fprintf(out, "rows:        %d\n", s.Rows)
			fmt.Fprintf(out, "non-zeros:   %d\n", s.NonZeros)
			fmt.Fprintf(out, "dimension:   %d\n", s.Dimension)
			fmt.Fprintf(out, "labels:      %v\n", s.Labels)
			fmt.Fprintf(out, "sparsity:    %.4f (very sparse: %t)\n", s.Sparsity, s.VerySparse)
			fmt.Fprintf(out, "compression: %s\n", s.Compression)
			fmt.Fprintf(out, "chunks:      %d\n", s.Chunks)
			fmt.Fprintf(out, "load time:   %s\n", s.LoadTime)
			return nil
		},
	}
	cmd.Flags().IntVarP(&chunkSize, "chunk-size", "z", 50000, "Rows per chunk")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the summary as JSON")
	cmd.Flags().StringVar(&labelsOut, "labels-out", "", "Write the label list to this file")
	return cmd
}
