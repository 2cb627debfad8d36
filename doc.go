// Package bsvm is the infrastructure core of budgeted kernel learning:
// chunked sparse vectors, kernel evaluation, streamed training data and
// budget maintenance for large-scale SVM trainers (Pegasos, AMM, LLSVM,
// BSGD).
//
// The Toolkit wires the packages together from one parameter set:
//
//	p, _ := config.Load("train.yaml")
//	tk, err := bsvm.New(p, bsvm.WithLogger(bsvm.NewJSONLogger(slog.LevelInfo)))
//	if err != nil {
//		return err
//	}
//	defer tk.Close()
//
//	data, _ := tk.OpenDataset(dataset.FileSource("a9a.txt"))
//	defer data.Close()
//
//	m, _ := tk.NewMaintainer()
//	set := budget.NewWorkingSet()
//	for {
//		more, err := data.LoadNextChunk(ctx, tk.Params().ChunkSize)
//		if err != nil {
//			return err
//		}
//		// ... train on the chunk, adding vectors to set ...
//		if _, err := m.Maintain(ctx, set); err != nil {
//			return err
//		}
//		if !more {
//			break
//		}
//	}
//
// # Packages
//
//   - vector: chunked sparse-friendly vectors with absent-means-zero chunks
//   - kernel: Gaussian, exponential, polynomial, linear, sigmoid and user kernels
//   - dataset: chunked LIBSVM-format reader with per-example assignments
//   - model: weight, support and landmark vector variants
//   - budget: removal and merging budget maintenance
//   - landmark: LLSVM landmark sampling and the low-rank kernel map
//   - config: parameters, validation and loading
//   - diag: the warning and fatal-error sink
//
// # Observability
//
// Chunk loads and maintenance runs are traced with OpenTelemetry, logged
// with log/slog and reported to a MetricsCollector (see PrometheusCollector).
package bsvm
