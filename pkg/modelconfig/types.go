package modelconfig

type CellType string

const (
	CellBasicLSTM CellType = "BasicLSTM"
	CellLSTM      CellType = "LSTM"
	CellGRU       CellType = "GRU"
	CellBasicRNN  CellType = "BasicRNN"
)

// IsLSTM reports whether the cell carries a forget gate.
func (c CellType) IsLSTM() bool {
	return c == CellBasicLSTM || c == CellLSTM
}

// Gates is the number of weight blocks a single layer of this cell owns.
func (c CellType) Gates() int {
	switch c {
	case CellBasicLSTM, CellLSTM:
		return 4
	case CellGRU:
		return 3
	default:
		return 1
	}
}

type Optimizer string

const (
	OptimizerGradientDescent Optimizer = "GradientDescent"
	OptimizerAdam            Optimizer = "Adam"
	OptimizerAdagrad         Optimizer = "Adagrad"
	OptimizerRMSProp         Optimizer = "RMSProp"
	OptimizerMomentum        Optimizer = "Momentum"
)

type ClipMode string

const (
	ClipGlobalNorm ClipMode = "clip_by_global_norm"
	ClipNorm       ClipMode = "clip_by_norm"
	ClipValue      ClipMode = "clip_by_value"
	ClipNone       ClipMode = "none"
)

const (
	InitRandomUniform   = "random_uniform"
	InitRandomNormal    = "random_normal"
	InitTruncatedNormal = "truncated_normal"
	InitZeros           = "zeros"
	InitGlorotUniform   = "glorot_uniform"
)

// Config is a model training configuration. Values returned by this package
// are owned by the caller; shared values are handed out through Clone.
type Config struct {
	Model Model `yaml:"model"`
	Train Train `yaml:"train"`
}

type Model struct {
	Name            string             `yaml:"name" validate:"required"`
	InitializerName string             `yaml:"initializer_name" validate:"oneof=random_uniform random_normal truncated_normal zeros glorot_uniform"`
	InitializerArgs map[string]float64 `yaml:"initializer_args,omitempty"`
	InputDtype      string             `yaml:"input_dtype" validate:"oneof=int32 int64 float32 float64"`
	TargetDtype     string             `yaml:"target_dtype" validate:"oneof=int32 int64 float32 float64"`
	VocabSize       int                `yaml:"vocab_size" validate:"gt=0,lte=10000000"`
	TargetSize      int                `yaml:"target_size" validate:"gt=0,lte=10000000"`
	UseLastOutput   bool               `yaml:"use_last_output"`
	EmbeddingSize   int                `yaml:"embedding_size" validate:"gt=0,lte=100000"`
	CellType        CellType           `yaml:"cell_type" validate:"oneof=BasicLSTM LSTM GRU BasicRNN"`
	Cells           []Cell             `yaml:"cells" validate:"min=1,max=64,dive"`
	LossFunc        string             `yaml:"loss_func" validate:"oneof=sequence_loss softmax sigmoid"`
	Dataset         string             `yaml:"dataset" validate:"required"`
}

type Cell struct {
	NumUnits int `yaml:"num_units" validate:"gt=0,lte=100000"`
	// nil when the document omits it; LSTM cells get DefaultForgetBias.
	ForgetBias *float64 `yaml:"forget_bias,omitempty" validate:"omitempty,finite,gte=0"`
}

type Train struct {
	EpochNum         int                `yaml:"epoch_num" validate:"gt=0"`
	NumSteps         int                `yaml:"num_steps" validate:"gt=0"`
	BatchSize        int                `yaml:"batch_size" validate:"gt=0"`
	KeepProb         float64            `yaml:"keep_prob" validate:"finite,gt=0,lte=1"`
	GradientClip     ClipMode           `yaml:"gradient_clip" validate:"oneof=clip_by_global_norm clip_by_norm clip_by_value none"`
	GradientClipArgs map[string]float64 `yaml:"gradient_clip_args,omitempty"`
	Optimizer        Optimizer          `yaml:"optimizer" validate:"oneof=GradientDescent Adam Adagrad RMSProp Momentum"`
	LearningRate     float64            `yaml:"learning_rate" validate:"finite,gt=0"`
}

// Summary is the flat view of a Config used for listings and exports.
type Summary struct {
	Name         string    `json:"name"`
	Dataset      string    `json:"dataset"`
	CellType     CellType  `json:"cell_type"`
	Layers       int       `json:"layers"`
	Units        []int     `json:"units"`
	Params       int64     `json:"params"`
	Optimizer    Optimizer `json:"optimizer"`
	LearningRate float64   `json:"learning_rate"`
	BatchSize    int       `json:"batch_size"`
	EpochNum     int       `json:"epoch_num"`
	Hash         string    `json:"hash"`
}
