package config

import (
	"errors"
	"fmt"

	"github.com/hupe1980/bsvm/budget"
	"github.com/hupe1980/bsvm/diag"
	"github.com/hupe1980/bsvm/kernel"
	"github.com/hupe1980/bsvm/landmark"
)

// Params are the training parameters.
type Params struct {
	// Algorithm selects the trainer (-A).
	Algorithm Algorithm `mapstructure:"algorithm" yaml:"algorithm" json:"algorithm"`
	// Dimension is the feature dimensionality D (-D). 0 means infer from data.
	Dimension int `mapstructure:"dimension" yaml:"dimension" json:"dimension"`
	// ChunkSize is the number of rows per loaded chunk (-z).
	ChunkSize int `mapstructure:"chunk_size" yaml:"chunk_size" json:"chunk_size"`
	// ChunkWidth is the vector chunk width (-w).
	ChunkWidth int `mapstructure:"chunk_width" yaml:"chunk_width" json:"chunk_width"`
	// Budget is the maximum number of kept vectors (-B).
	Budget int `mapstructure:"budget" yaml:"budget" json:"budget"`
	// Lambda is the regularization parameter (-L).
	Lambda float64 `mapstructure:"lambda" yaml:"lambda" json:"lambda"`
	// Bias is the value of the bias coordinate, 0 to disable (-b).
	Bias float64 `mapstructure:"bias" yaml:"bias" json:"bias"`
	// Epochs is the number of passes over the data (-e).
	Epochs int `mapstructure:"epochs" yaml:"epochs" json:"epochs"`
	// SubEpochs is the number of AMM batch sub-epochs (-s).
	SubEpochs int `mapstructure:"sub_epochs" yaml:"sub_epochs" json:"sub_epochs"`
	// KParam is the AMM pruning frequency (-k).
	KParam int `mapstructure:"k_param" yaml:"k_param" json:"k_param"`
	// CParam is the AMM pruning threshold (-c).
	CParam float64 `mapstructure:"c_param" yaml:"c_param" json:"c_param"`

	Kernel kernel.Kind `mapstructure:"kernel" yaml:"kernel" json:"kernel"`
	// Gamma is the width of distance-based kernels. 0 means 1/D.
	Gamma  float64 `mapstructure:"gamma" yaml:"gamma" json:"gamma"`
	Degree float64 `mapstructure:"degree" yaml:"degree" json:"degree"`
	Coef   float64 `mapstructure:"coef" yaml:"coef" json:"coef"`

	// Maintenance is the budget maintenance strategy for BSGD (0 removal,
	// 1 merging) or the landmark sampling strategy for LLSVM (0 random,
	// 1 k-means, 2 k-medoids) (-m).
	Maintenance int `mapstructure:"maintenance" yaml:"maintenance" json:"maintenance"`
	// Randomize seeds sampling from the clock instead of a fixed seed (-r).
	Randomize bool `mapstructure:"randomize" yaml:"randomize" json:"randomize"`
	// Verbose enables progress output (-v).
	Verbose bool `mapstructure:"verbose" yaml:"verbose" json:"verbose"`
	// VerySparse forces the very-sparse data path (-S).
	VerySparse bool `mapstructure:"very_sparse" yaml:"very_sparse" json:"very_sparse"`

	MemoryLimitBytes   int64  `mapstructure:"memory_limit_bytes" yaml:"memory_limit_bytes" json:"memory_limit_bytes"`
	IOLimitBytesPerSec int64  `mapstructure:"io_limit_bytes_per_sec" yaml:"io_limit_bytes_per_sec" json:"io_limit_bytes_per_sec"`
	Parallelism        int    `mapstructure:"parallelism" yaml:"parallelism" json:"parallelism"`
	SpillDir           string `mapstructure:"spill_dir" yaml:"spill_dir" json:"spill_dir"`
	KernelCacheEntries int    `mapstructure:"kernel_cache_entries" yaml:"kernel_cache_entries" json:"kernel_cache_entries"`
}

// Default returns the toolbox defaults.
func Default() Params {
	return Params{
		Algorithm:          Pegasos,
		ChunkSize:          50000,
		ChunkWidth:         1000,
		Budget:             100,
		Lambda:             0.0001,
		Bias:               1,
		Epochs:             5,
		SubEpochs:          1,
		KParam:             10000,
		CParam:             10,
		Kernel:             kernel.Gaussian,
		Degree:             2,
		Parallelism:        1,
		KernelCacheEntries: 4096,
	}
}

// Validate checks every parameter and returns all failures joined. Each
// failure is a *FieldError wrapping ErrInvalidConfig.
func (p Params) Validate() error {
	var errs []error
	bad := func(field string, value any, reason string) {
		errs = append(errs, &FieldError{Field: field, Value: value, Reason: reason})
	}

	if !p.Algorithm.Valid() {
		bad("algorithm", int(p.Algorithm), "must be between 0 and 4")
	}
	if p.Dimension < 0 {
		bad("dimension", p.Dimension, "must not be negative")
	}
	if p.ChunkSize < 1 {
		bad("chunk_size", p.ChunkSize, "must be a positive integer")
	}
	if p.ChunkWidth < 1 {
		bad("chunk_width", p.ChunkWidth, "must be a positive integer")
	}
	if p.Budget < 1 {
		bad("budget", p.Budget, "must be a positive integer")
	}
	if !(p.Lambda > 0) {
		bad("lambda", p.Lambda, "must be a positive real number")
	}
	if p.Epochs < 1 {
		bad("epochs", p.Epochs, "must be a positive integer")
	}
	if p.SubEpochs < 1 {
		bad("sub_epochs", p.SubEpochs, "must be a positive integer")
	}
	if p.KParam < 0 {
		bad("k_param", p.KParam, "must not be negative")
	}
	if p.CParam < 0 {
		bad("c_param", p.CParam, "must be a non-negative real number")
	}
	if !p.Kernel.Valid() {
		bad("kernel", int(p.Kernel), "must be between 0 and 5")
	}
	if p.Gamma < 0 {
		bad("gamma", p.Gamma, "must be a positive real number")
	}
	if !(p.Degree > 0) {
		bad("degree", p.Degree, "must be a positive real number")
	}

	switch p.Algorithm {
	case LLSVM:
		if p.Maintenance < 0 || p.Maintenance > 2 {
			bad("maintenance", p.Maintenance, "llsvm sampling must be 0 (random), 1 (k-means) or 2 (k-medoids)")
		}
	case BSGD:
		if p.Maintenance < 0 || p.Maintenance > 1 {
			bad("maintenance", p.Maintenance, "bsgd maintenance must be 0 (removal) or 1 (merging)")
		}
	}
	if (p.Algorithm == LLSVM || p.Algorithm == BSGD) && p.Kernel.IsDistanceBased() && p.Gamma == 0 && p.Dimension == 0 {
		bad("gamma", p.Gamma, "rbf kernel in use, set either gamma or dimension")
	}

	if p.MemoryLimitBytes < 0 {
		bad("memory_limit_bytes", p.MemoryLimitBytes, "must not be negative")
	}
	if p.IOLimitBytesPerSec < 0 {
		bad("io_limit_bytes_per_sec", p.IOLimitBytesPerSec, "must not be negative")
	}
	if p.Parallelism < 0 {
		bad("parallelism", p.Parallelism, "must not be negative")
	}
	if p.KernelCacheEntries < 0 {
		bad("kernel_cache_entries", p.KernelCacheEntries, "must not be negative")
	}
	return errors.Join(errs...)
}

// Normalize returns p with the derived values filled in: BSGD with
// merging is switched to the Gaussian kernel (reported to sink), LLSVM and
// BSGD run without a bias term, and a zero gamma becomes 1/D when D is
// known. A nil sink discards the warning.
func (p Params) Normalize(sink diag.Sink) Params {
	if sink == nil {
		sink = diag.Discard
	}
	if p.Algorithm == BSGD && p.Maintenance == int(budget.Merging) && p.Kernel != kernel.Gaussian {
		sink.Warn("bsgd with merging can only use the gaussian kernel, switching", "kernel", p.Kernel)
		p.Kernel = kernel.Gaussian
	}
	if p.Algorithm == LLSVM || p.Algorithm == BSGD {
		p.Bias = 0
	}
	if p.Gamma == 0 && p.Dimension > 0 {
		p.Gamma = 1 / float64(p.Dimension)
	}
	if p.Parallelism == 0 {
		p.Parallelism = 1
	}
	return p
}

// VectorDim is the dimensionality of model vectors: D plus one trailing
// coordinate when the bias term is enabled.
func (p Params) VectorDim() int {
	if p.Bias != 0 {
		return p.Dimension + 1
	}
	return p.Dimension
}

// KernelParams returns the kernel hyperparameters.
func (p Params) KernelParams() kernel.Params {
	return kernel.Params{
		Kind:   p.Kernel,
		Gamma:  p.Gamma,
		Degree: p.Degree,
		Coef:   p.Coef,
		Bias:   p.Bias,
	}
}

// BudgetConfig returns the maintainer configuration for budgeted
// algorithms. AMM and LLSVM always use removal.
func (p Params) BudgetConfig() (budget.Config, error) {
	family, ok := p.Algorithm.Family()
	if !ok {
		return budget.Config{}, &FieldError{Field: "algorithm", Value: p.Algorithm, Reason: "has no budget"}
	}
	strategy := budget.Removal
	if p.Algorithm == BSGD {
		strategy = budget.Strategy(p.Maintenance)
	}
	cfg := budget.Config{
		Budget:   p.Budget,
		Strategy: strategy,
		Family:   family,
		Kernel:   p.KernelParams(),
	}
	if err := cfg.Validate(); err != nil {
		return budget.Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// LandmarkConfig returns the landmark sampling configuration for LLSVM.
func (p Params) LandmarkConfig(seed int64) (landmark.Config, error) {
	if p.Algorithm != LLSVM {
		return landmark.Config{}, &FieldError{Field: "algorithm", Value: p.Algorithm, Reason: "landmarks are only sampled by llsvm"}
	}
	if p.Maintenance < 0 || p.Maintenance > int(landmark.KMedoids) {
		return landmark.Config{}, &FieldError{Field: "maintenance", Value: p.Maintenance, Reason: "unknown sampling strategy"}
	}
	return landmark.Config{
		Count:      p.Budget,
		Strategy:   landmark.Strategy(p.Maintenance),
		Seed:       seed,
		ChunkWidth: p.ChunkWidth,
		Bias:       p.Bias,
	}, nil
}
