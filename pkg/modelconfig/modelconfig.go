package modelconfig

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultKeepProb   = 1.0
	DefaultForgetBias = 1.0
	DefaultDtype      = "int32"
	DefaultInitBound  = 0.1
)

var DebugLog func(string, ...interface{})

var (
	ErrEmptyDocument     = errors.New("empty configuration document")
	ErrMultipleDocuments = errors.New("model config must contain a single YAML document")
)

// Parse decodes a YAML document, fills defaults and validates the result.
// Keys that do not belong to the schema are rejected, as is any document
// following the first.
func Parse(data []byte) (*Config, error) {
	cfg := newWithDefaults()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyDocument
		}
		return nil, fmt.Errorf("failed to parse model config: %w", err)
	}

	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, ErrMultipleDocuments
	}

	cfg.fillDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func Load(path string) (*Config, error) {
	if DebugLog != nil {
		DebugLog("loading model config from %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model config %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// newWithDefaults returns the scalar defaults a document is decoded over.
// Fields the document sets replace these.
func newWithDefaults() *Config {
	return &Config{
		Model: Model{
			InitializerName: InitRandomUniform,
			InputDtype:      DefaultDtype,
			TargetDtype:     DefaultDtype,
		},
		Train: Train{
			KeepProb:     DefaultKeepProb,
			GradientClip: ClipNone,
		},
	}
}

func (c *Config) fillDefaults() {
	if c.Model.InitializerName == InitRandomUniform && c.Model.InitializerArgs == nil {
		c.Model.InitializerArgs = map[string]float64{
			"minval": -DefaultInitBound,
			"maxval": DefaultInitBound,
		}
	}

	if c.Model.CellType.IsLSTM() {
		for i := range c.Model.Cells {
			if c.Model.Cells[i].ForgetBias == nil {
				fb := DefaultForgetBias
				c.Model.Cells[i].ForgetBias = &fb
			}
		}
	}
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}

	out := *c
	out.Model.InitializerArgs = cloneArgs(c.Model.InitializerArgs)
	out.Train.GradientClipArgs = cloneArgs(c.Train.GradientClipArgs)

	if c.Model.Cells != nil {
		out.Model.Cells = make([]Cell, len(c.Model.Cells))
		for i, cell := range c.Model.Cells {
			out.Model.Cells[i] = Cell{NumUnits: cell.NumUnits}
			if cell.ForgetBias != nil {
				fb := *cell.ForgetBias
				out.Model.Cells[i].ForgetBias = &fb
			}
		}
	}

	return &out
}

func cloneArgs(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Marshal encodes the config as YAML. Map keys are emitted sorted, so equal
// configs produce equal bytes.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("failed to encode model config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode model config: %w", err)
	}
	return buf.Bytes(), nil
}

// Hash is the md5 hex digest of the canonical encoding.
func (c *Config) Hash() string {
	data, err := c.Marshal()
	if err != nil {
		return ""
	}
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// HashTag tags a list of texts with the md5 of their space-joined form.
func HashTag(texts []string) string {
	sum := md5.Sum([]byte(strings.Join(texts, " ")))
	return hex.EncodeToString(sum[:])
}

// ParamCount estimates the number of trainable parameters: the embedding
// table, every recurrent layer and the output projection. The size caps
// enforced by Validate keep the result within int64.
func (c *Config) ParamCount() int64 {
	m := c.Model
	total := int64(m.VocabSize) * int64(m.EmbeddingSize)

	in := int64(m.EmbeddingSize)
	gates := int64(m.CellType.Gates())
	for _, cell := range m.Cells {
		units := int64(cell.NumUnits)
		total += gates * (in + units + 1) * units
		in = units
	}

	total += in*int64(m.TargetSize) + int64(m.TargetSize)
	return total
}

func (c *Config) Summary() Summary {
	units := make([]int, len(c.Model.Cells))
	for i, cell := range c.Model.Cells {
		units[i] = cell.NumUnits
	}

	return Summary{
		Name:         c.Model.Name,
		Dataset:      c.Model.Dataset,
		CellType:     c.Model.CellType,
		Layers:       len(c.Model.Cells),
		Units:        units,
		Params:       c.ParamCount(),
		Optimizer:    c.Train.Optimizer,
		LearningRate: c.Train.LearningRate,
		BatchSize:    c.Train.BatchSize,
		EpochNum:     c.Train.EpochNum,
		Hash:         c.Hash(),
	}
}
