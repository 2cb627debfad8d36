package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/bsvm/budget"
	"github.com/hupe1980/bsvm/diag"
	"github.com/hupe1980/bsvm/kernel"
	"github.com/hupe1980/bsvm/landmark"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	p := Default()
	require.NoError(t, p.Validate())

	assert.Equal(t, 50000, p.ChunkSize)
	assert.Equal(t, 1000, p.ChunkWidth)
	assert.Equal(t, 100, p.Budget)
	assert.Equal(t, 0.0001, p.Lambda)
	assert.Equal(t, 1.0, p.Bias)
	assert.Equal(t, 5, p.Epochs)
	assert.Equal(t, 1, p.SubEpochs)
	assert.Equal(t, 10000, p.KParam)
	assert.Equal(t, 10.0, p.CParam)
	assert.Equal(t, 2.0, p.Degree)
	assert.Equal(t, kernel.Gaussian, p.Kernel)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		mod   func(p *Params)
		field string
	}{
		{"algorithm", func(p *Params) { p.Algorithm = 5 }, "algorithm"},
		{"chunk size", func(p *Params) { p.ChunkSize = 0 }, "chunk_size"},
		{"chunk width", func(p *Params) { p.ChunkWidth = 0 }, "chunk_width"},
		{"budget", func(p *Params) { p.Budget = 0 }, "budget"},
		{"lambda", func(p *Params) { p.Lambda = 0 }, "lambda"},
		{"c param", func(p *Params) { p.CParam = -1 }, "c_param"},
		{"kernel", func(p *Params) { p.Kernel = 6 }, "kernel"},
		{"gamma", func(p *Params) { p.Gamma = -0.5 }, "gamma"},
		{"degree", func(p *Params) { p.Degree = 0 }, "degree"},
		{"bsgd maintenance", func(p *Params) { p.Algorithm, p.Gamma, p.Maintenance = BSGD, 1, 2 }, "maintenance"},
		{"llsvm maintenance", func(p *Params) { p.Algorithm, p.Gamma, p.Maintenance = LLSVM, 1, 3 }, "maintenance"},
		{"rbf without width", func(p *Params) { p.Algorithm = BSGD }, "gamma"},
		{"memory limit", func(p *Params) { p.MemoryLimitBytes = -1 }, "memory_limit_bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Default()
			tt.mod(&p)

			err := p.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)

			var fe *FieldError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.field, fe.Field)
		})
	}
}

func TestValidate_ReportsAllFields(t *testing.T) {
	p := Default()
	p.Budget = 0
	p.Lambda = -1

	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "budget")
	assert.Contains(t, err.Error(), "lambda")
}

func TestNormalize(t *testing.T) {
	t.Run("bsgd merging forces gaussian", func(t *testing.T) {
		p := Default()
		p.Algorithm = BSGD
		p.Maintenance = 1
		p.Kernel = kernel.Polynomial
		p.Dimension = 4

		rec := &diag.Recorder{}
		n := p.Normalize(rec)
		assert.Equal(t, kernel.Gaussian, n.Kernel)
		assert.Zero(t, n.Bias)
		assert.Equal(t, 0.25, n.Gamma)
		assert.Len(t, rec.Warnings(), 1)
		assert.Equal(t, kernel.Polynomial, p.Kernel, "receiver unchanged")
	})

	t.Run("pegasos keeps bias", func(t *testing.T) {
		p := Default()
		p.Dimension = 3
		n := p.Normalize(nil)
		assert.Equal(t, 1.0, n.Bias)
		assert.Equal(t, 4, n.VectorDim())
	})

	t.Run("llsvm drops bias", func(t *testing.T) {
		p := Default()
		p.Algorithm = LLSVM
		p.Dimension = 3
		n := p.Normalize(nil)
		assert.Zero(t, n.Bias)
		assert.Equal(t, 3, n.VectorDim())
	})

	t.Run("explicit gamma kept", func(t *testing.T) {
		p := Default()
		p.Dimension = 10
		p.Gamma = 0.5
		assert.Equal(t, 0.5, p.Normalize(nil).Gamma)
	})
}

func TestBudgetConfig(t *testing.T) {
	p := Default()
	_, err := p.BudgetConfig()
	assert.ErrorIs(t, err, ErrInvalidConfig)

	p.Algorithm = BSGD
	p.Maintenance = 1
	p.Gamma = 0.5
	p = p.Normalize(nil)
	cfg, err := p.BudgetConfig()
	require.NoError(t, err)
	assert.Equal(t, budget.Merging, cfg.Strategy)
	assert.Equal(t, budget.FamilySupport, cfg.Family)
	assert.Equal(t, 100, cfg.Budget)
	assert.Equal(t, 0.5, cfg.Kernel.Gamma)

	p.Algorithm = AMMOnline
	cfg, err = p.BudgetConfig()
	require.NoError(t, err)
	assert.Equal(t, budget.Removal, cfg.Strategy)
	assert.Equal(t, budget.FamilyWeight, cfg.Family)
}

func TestLandmarkConfig(t *testing.T) {
	p := Default()
	p.Algorithm = LLSVM
	p.Maintenance = 2
	p.Budget = 7

	cfg, err := p.LandmarkConfig(3)
	require.NoError(t, err)
	assert.Equal(t, landmark.KMedoids, cfg.Strategy)
	assert.Equal(t, 7, cfg.Count)
	assert.Equal(t, int64(3), cfg.Seed)

	p.Algorithm = BSGD
	_, err = p.LandmarkConfig(0)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestParseAlgorithm(t *testing.T) {
	for in, want := range map[string]Algorithm{"0": Pegasos, "amm-batch": AMMBatch, "ammonline": AMMOnline, "LLSVM": LLSVM, "4": BSGD} {
		got, err := ParseAlgorithm(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseAlgorithm("7")
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = ParseAlgorithm("svm")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("yaml file", func(t *testing.T) {
		path := filepath.Join(dir, "train.yaml")
		require.NoError(t, os.WriteFile(path, []byte("algorithm: bsgd\nkernel: gaussian\ngamma: 0.5\nbudget: 20\nmaintenance: 1\n"), 0o600))

		p, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, BSGD, p.Algorithm)
		assert.Equal(t, 20, p.Budget)
		assert.Equal(t, 0.5, p.Gamma)
		assert.Equal(t, 1000, p.ChunkWidth, "defaults fill missing keys")
	})

	t.Run("numeric codes", func(t *testing.T) {
		path := filepath.Join(dir, "codes.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"algorithm": 1, "kernel": 3}`), 0o600))

		p, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, AMMBatch, p.Algorithm)
		assert.Equal(t, kernel.Linear, p.Kernel)
	})

	t.Run("env override", func(t *testing.T) {
		t.Setenv("BSVM_BUDGET", "7")
		t.Setenv("BSVM_CHUNK_SIZE", "12")

		p, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, 7, p.Budget)
		assert.Equal(t, 12, p.ChunkSize)
	})

	t.Run("invalid values", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("budget: 0\n"), 0o600))

		_, err := Load(path)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")

	p := Default()
	p.Algorithm = LLSVM
	p.Kernel = kernel.Polynomial
	p.Budget = 33
	p.SpillDir = "/tmp/spill"
	require.NoError(t, Save(path, p))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}
