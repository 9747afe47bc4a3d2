package modelconfig

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalDoc = `
model:
  name: tiny
  vocab_size: 10
  target_size: 2
  embedding_size: 4
  cell_type: BasicLSTM
  cells:
    - num_units: 3
  loss_func: softmax
  dataset: toy
train:
  epoch_num: 1
  num_steps: 5
  batch_size: 2
  optimizer: Adam
  learning_rate: 0.01
`

func TestLoad_SampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "imdb-tiny.yml"))
	require.NoError(t, err)

	assert.Equal(t, "IMDB-tiny", cfg.Model.Name)
	assert.Equal(t, 10000, cfg.Model.VocabSize)
	assert.Equal(t, 2, cfg.Model.TargetSize)
	assert.True(t, cfg.Model.UseLastOutput)
	assert.Equal(t, CellBasicLSTM, cfg.Model.CellType)
	require.Len(t, cfg.Model.Cells, 1)
	assert.Equal(t, 50, cfg.Model.Cells[0].NumUnits)
	require.NotNil(t, cfg.Model.Cells[0].ForgetBias)
	assert.Equal(t, 1.0, *cfg.Model.Cells[0].ForgetBias)
	assert.Equal(t, -0.05, cfg.Model.InitializerArgs["minval"])
	assert.Equal(t, ClipGlobalNorm, cfg.Train.GradientClip)
	assert.Equal(t, 5.0, cfg.Train.GradientClipArgs["clip_norm"])
	assert.Equal(t, OptimizerAdam, cfg.Train.Optimizer)
	assert.Equal(t, 0.5, cfg.Train.KeepProb)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoad_ErrorNamesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(path, []byte("model: {}\ntrain: {}\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalDoc))
	require.NoError(t, err)

	assert.Equal(t, InitRandomUniform, cfg.Model.InitializerName)
	assert.Equal(t, -DefaultInitBound, cfg.Model.InitializerArgs["minval"])
	assert.Equal(t, DefaultInitBound, cfg.Model.InitializerArgs["maxval"])
	assert.Equal(t, DefaultDtype, cfg.Model.InputDtype)
	assert.Equal(t, DefaultDtype, cfg.Model.TargetDtype)
	assert.Equal(t, DefaultKeepProb, cfg.Train.KeepProb)
	assert.Equal(t, ClipNone, cfg.Train.GradientClip)
	require.NotNil(t, cfg.Model.Cells[0].ForgetBias)
	assert.Equal(t, DefaultForgetBias, *cfg.Model.Cells[0].ForgetBias)
}

func TestParse_NoForgetBiasForGRU(t *testing.T) {
	doc := strings.Replace(minimalDoc, "cell_type: BasicLSTM", "cell_type: GRU", 1)
	cfg, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Nil(t, cfg.Model.Cells[0].ForgetBias)
}

func TestParse_EmptyDocument(t *testing.T) {
	_, err := Parse(nil)
	assert.ErrorIs(t, err, ErrEmptyDocument)

	_, err = Parse([]byte("   \n"))
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestParse_UnknownKey(t *testing.T) {
	doc := strings.Replace(minimalDoc, "  vocab_size: 10", "  vocab_size: 10\n  vocab_sise: 12", 1)
	_, err := Parse([]byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vocab_sise")
}

func TestParse_ExplicitZeroKeepProbRejected(t *testing.T) {
	doc := minimalDoc + "  keep_prob: 0\n"
	_, err := Parse([]byte(doc))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has("train.keep_prob"))
}

func TestValidate_Rules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing name", func(c *Config) { c.Model.Name = "" }, "model.name"},
		{"missing dataset", func(c *Config) { c.Model.Dataset = "" }, "model.dataset"},
		{"zero vocab", func(c *Config) { c.Model.VocabSize = 0 }, "model.vocab_size"},
		{"negative target", func(c *Config) { c.Model.TargetSize = -1 }, "model.target_size"},
		{"zero embedding", func(c *Config) { c.Model.EmbeddingSize = 0 }, "model.embedding_size"},
		{"no cells", func(c *Config) { c.Model.Cells = []Cell{} }, "model.cells"},
		{"zero units", func(c *Config) { c.Model.Cells[0].NumUnits = 0 }, "model.cells[0].num_units"},
		{"oversized vocab", func(c *Config) { c.Model.VocabSize = 10000001 }, "model.vocab_size"},
		{"oversized target", func(c *Config) { c.Model.TargetSize = 10000001 }, "model.target_size"},
		{"oversized embedding", func(c *Config) { c.Model.EmbeddingSize = 100001 }, "model.embedding_size"},
		{"oversized units", func(c *Config) { c.Model.Cells[0].NumUnits = 100001 }, "model.cells[0].num_units"},
		{"too many cells", func(c *Config) { c.Model.Cells = make([]Cell, 65) }, "model.cells"},
		{"nan forget bias", func(c *Config) {
			fb := math.NaN()
			c.Model.Cells[0].ForgetBias = &fb
		}, "model.cells[0].forget_bias"},
		{"infinite forget bias", func(c *Config) {
			fb := math.Inf(1)
			c.Model.Cells[0].ForgetBias = &fb
		}, "model.cells[0].forget_bias"},
		{"negative forget bias", func(c *Config) {
			fb := -0.5
			c.Model.Cells[0].ForgetBias = &fb
		}, "model.cells[0].forget_bias"},
		{"unknown cell", func(c *Config) { c.Model.CellType = "Transformer" }, "model.cell_type"},
		{"unknown dtype", func(c *Config) { c.Model.InputDtype = "int8" }, "model.input_dtype"},
		{"unknown loss", func(c *Config) { c.Model.LossFunc = "hinge" }, "model.loss_func"},
		{"unknown initializer", func(c *Config) { c.Model.InitializerName = "orthogonal" }, "model.initializer_name"},
		{"inverted uniform range", func(c *Config) {
			c.Model.InitializerArgs = map[string]float64{"minval": 0.1, "maxval": -0.1}
		}, "model.initializer_args"},
		{"nan minval", func(c *Config) {
			c.Model.InitializerArgs = map[string]float64{"minval": math.NaN(), "maxval": 0.1}
		}, "model.initializer_args"},
		{"nan maxval", func(c *Config) {
			c.Model.InitializerArgs = map[string]float64{"minval": -0.1, "maxval": math.NaN()}
		}, "model.initializer_args"},
		{"infinite uniform range", func(c *Config) {
			c.Model.InitializerArgs = map[string]float64{"minval": math.Inf(-1), "maxval": 0.1}
		}, "model.initializer_args"},
		{"nan stddev", func(c *Config) {
			c.Model.InitializerName = InitRandomNormal
			c.Model.InitializerArgs = map[string]float64{"stddev": math.NaN()}
		}, "model.initializer_args"},
		{"normal without stddev", func(c *Config) {
			c.Model.InitializerName = InitTruncatedNormal
			c.Model.InitializerArgs = nil
		}, "model.initializer_args"},
		{"zero epochs", func(c *Config) { c.Train.EpochNum = 0 }, "train.epoch_num"},
		{"zero steps", func(c *Config) { c.Train.NumSteps = 0 }, "train.num_steps"},
		{"zero batch", func(c *Config) { c.Train.BatchSize = 0 }, "train.batch_size"},
		{"keep prob above one", func(c *Config) { c.Train.KeepProb = 1.5 }, "train.keep_prob"},
		{"nan keep prob", func(c *Config) { c.Train.KeepProb = math.NaN() }, "train.keep_prob"},
		{"zero learning rate", func(c *Config) { c.Train.LearningRate = 0 }, "train.learning_rate"},
		{"nan learning rate", func(c *Config) { c.Train.LearningRate = math.NaN() }, "train.learning_rate"},
		{"infinite learning rate", func(c *Config) { c.Train.LearningRate = math.Inf(1) }, "train.learning_rate"},
		{"unknown optimizer", func(c *Config) { c.Train.Optimizer = "LBFGS" }, "train.optimizer"},
		{"unknown clip", func(c *Config) { c.Train.GradientClip = "clip_by_magic" }, "train.gradient_clip"},
		{"global norm without clip_norm", func(c *Config) {
			c.Train.GradientClip = ClipGlobalNorm
			c.Train.GradientClipArgs = nil
		}, "train.gradient_clip_args"},
		{"nan clip_norm", func(c *Config) {
			c.Train.GradientClip = ClipGlobalNorm
			c.Train.GradientClipArgs = map[string]float64{"clip_norm": math.NaN()}
		}, "train.gradient_clip_args"},
		{"infinite clip_norm", func(c *Config) {
			c.Train.GradientClip = ClipNorm
			c.Train.GradientClipArgs = map[string]float64{"clip_norm": math.Inf(1)}
		}, "train.gradient_clip_args"},
		{"nan clip_min", func(c *Config) {
			c.Train.GradientClip = ClipValue
			c.Train.GradientClipArgs = map[string]float64{"clip_min": math.NaN(), "clip_max": 1}
		}, "train.gradient_clip_args"},
		{"inverted value clip", func(c *Config) {
			c.Train.GradientClip = ClipValue
			c.Train.GradientClipArgs = map[string]float64{"clip_min": 1, "clip_max": -1}
		}, "train.gradient_clip_args"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(minimalDoc))
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.True(t, verr.Has(tt.field), "expected violation for %s, got %v", tt.field, verr)
		})
	}
}

func TestValidate_ReportsAllViolations(t *testing.T) {
	cfg, err := Parse([]byte(minimalDoc))
	require.NoError(t, err)

	cfg.Model.VocabSize = 0
	cfg.Train.LearningRate = -1
	cfg.Train.BatchSize = 0

	var verr *ValidationError
	require.ErrorAs(t, cfg.Validate(), &verr)
	assert.Len(t, verr.Violations, 3)
	assert.Contains(t, verr.Error(), "model.vocab_size must be greater than 0")
}

func TestParse_NonFiniteValuesRejected(t *testing.T) {
	base, err := os.ReadFile(filepath.Join("testdata", "imdb-tiny.yml"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		old   string
		new   string
		field string
	}{
		{"nan minval", "minval: -0.05", "minval: .nan", "model.initializer_args"},
		{"nan clip_norm", "clip_norm: 5.0", "clip_norm: .nan", "train.gradient_clip_args"},
		{"infinite maxval", "maxval: 0.05", "maxval: .inf", "model.initializer_args"},
		{"nan learning rate", "learning_rate: 0.001", "learning_rate: .nan", "train.learning_rate"},
		{"nan keep prob", "keep_prob: 0.5", "keep_prob: .nan", "train.keep_prob"},
		{"nan forget bias", "forget_bias: 1.0", "forget_bias: .nan", "model.cells[0].forget_bias"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Contains(t, string(base), tt.old)
			doc := strings.Replace(string(base), tt.old, tt.new, 1)

			_, err := Parse([]byte(doc))

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.True(t, verr.Has(tt.field), "expected violation for %s, got %v", tt.field, verr)
		})
	}
}

func TestParse_MultipleDocumentsRejected(t *testing.T) {
	_, err := Parse([]byte(minimalDoc + "---\nmodel:\n  name: second\n"))
	assert.ErrorIs(t, err, ErrMultipleDocuments)

	cfg, err := Parse([]byte("---\n" + minimalDoc))
	require.NoError(t, err)
	assert.Equal(t, "tiny", cfg.Model.Name)
}

func TestValidate_ValueClipAccepted(t *testing.T) {
	cfg, err := Parse([]byte(minimalDoc))
	require.NoError(t, err)

	cfg.Train.GradientClip = ClipValue
	cfg.Train.GradientClipArgs = map[string]float64{"clip_min": -1, "clip_max": 1}
	assert.NoError(t, cfg.Validate())
}

func TestMarshal_RoundTripKeepsHash(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "imdb-tiny.yml"))
	require.NoError(t, err)

	data, err := cfg.Marshal()
	require.NoError(t, err)

	again, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, cfg, again)
	assert.Equal(t, cfg.Hash(), again.Hash())
	assert.Len(t, cfg.Hash(), 32)
}

func TestHash_ChangesWithContent(t *testing.T) {
	cfg, err := Parse([]byte(minimalDoc))
	require.NoError(t, err)

	other := cfg.Clone()
	other.Train.LearningRate = 0.02
	assert.NotEqual(t, cfg.Hash(), other.Hash())
}

func TestClone_IsIndependent(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "imdb-tiny.yml"))
	require.NoError(t, err)

	c := cfg.Clone()
	assert.Equal(t, cfg, c)

	c.Model.Cells[0].NumUnits = 7
	*c.Model.Cells[0].ForgetBias = 0
	c.Model.InitializerArgs["minval"] = -9
	c.Train.GradientClipArgs["clip_norm"] = 1

	assert.Equal(t, 50, cfg.Model.Cells[0].NumUnits)
	assert.Equal(t, 1.0, *cfg.Model.Cells[0].ForgetBias)
	assert.Equal(t, -0.05, cfg.Model.InitializerArgs["minval"])
	assert.Equal(t, 5.0, cfg.Train.GradientClipArgs["clip_norm"])

	var nilCfg *Config
	assert.Nil(t, nilCfg.Clone())
}

func TestParamCount(t *testing.T) {
	cfg, err := Parse([]byte(minimalDoc))
	require.NoError(t, err)

	// embedding 10*4, lstm 4*(4+3+1)*3, output 3*2+2
	assert.Equal(t, int64(40+96+8), cfg.ParamCount())

	cfg.Model.CellType = CellGRU
	cfg.Model.Cells = []Cell{{NumUnits: 3}, {NumUnits: 2}}
	// embedding 40, gru 3*(4+3+1)*3 + 3*(3+2+1)*2, output 2*2+2
	assert.Equal(t, int64(40+72+36+6), cfg.ParamCount())

	cfg.Model.CellType = CellBasicRNN
	cfg.Model.Cells = []Cell{{NumUnits: 3}}
	assert.Equal(t, int64(40+24+8), cfg.ParamCount())
}

func TestParamCount_LargestAllowedModel(t *testing.T) {
	cfg, err := Parse([]byte(minimalDoc))
	require.NoError(t, err)

	cfg.Model.VocabSize = 10000000
	cfg.Model.TargetSize = 10000000
	cfg.Model.EmbeddingSize = 100000
	cfg.Model.Cells = make([]Cell, 64)
	for i := range cfg.Model.Cells {
		cfg.Model.Cells[i].NumUnits = 100000
	}
	require.NoError(t, cfg.Validate())

	// embedding 1e12, 64 lstm layers of 4*(2e5+1)*1e5, output 1e12+1e7
	want := int64(1e12) + 64*4*(200001*int64(100000)) + int64(1e12) + int64(1e7)
	assert.Equal(t, want, cfg.ParamCount())
	assert.Positive(t, cfg.ParamCount())
}

func TestSummary(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "imdb-tiny.yml"))
	require.NoError(t, err)

	s := cfg.Summary()
	assert.Equal(t, "IMDB-tiny", s.Name)
	assert.Equal(t, "imdb-tiny", s.Dataset)
	assert.Equal(t, 1, s.Layers)
	assert.Equal(t, []int{50}, s.Units)
	assert.Equal(t, cfg.ParamCount(), s.Params)
	assert.Equal(t, cfg.Hash(), s.Hash)
	assert.Equal(t, OptimizerAdam, s.Optimizer)
}

func TestHashTag(t *testing.T) {
	// md5("a b")
	assert.Equal(t, "0cc9cd4dd26c5137b675a0d819cb9ab0", HashTag([]string{"a", "b"}))
	assert.Equal(t, HashTag([]string{"a b"}), HashTag([]string{"a", "b"}))
	assert.NotEqual(t, HashTag([]string{"ab"}), HashTag([]string{"a", "b"}))
}
