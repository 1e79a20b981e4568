// Package handler defines the transformation handler contract and the concrete
// handler variants, one per architecture family and sub-module shape.
//
// A handler receives an original sub-module (class name, configuration and
// weights) and returns a Fused descriptor: the weights rearranged into the
// canonical layout expected by the fused kernels, plus the parameters the
// fused forward computation needs. Handlers never execute the fused path.
package handler

// Handler converts one instance of a sub-module into its fused equivalent.
type Handler interface {
	// Name identifies the handler variant (e.g. "bert-layer").
	Name() string

	// Convert validates the sub-module and produces its fused replacement.
	// It fails with a *ConversionError when the instance does not match
	// the handler's layout or configuration assumptions.
	Convert(m *Module) (*Fused, error)
}

// FusedKind distinguishes the two fused code paths.
type FusedKind string

const (
	// KindEncoderLayer is a whole encoder layer (attention + feed-forward)
	// replaced by one fused kernel.
	KindEncoderLayer FusedKind = "encoder-layer"

	// KindAttention is an attention block whose forward is swapped for
	// scaled dot-product attention.
	KindAttention FusedKind = "attention"
)

// Config carries the configuration of the original sub-module.
type Config struct {
	HiddenSize        int     `json:"hidden_size" yaml:"hidden_size"`
	NumAttentionHeads int     `json:"num_attention_heads" yaml:"num_attention_heads"`
	IntermediateSize  int     `json:"intermediate_size,omitempty" yaml:"intermediate_size,omitempty"`
	Activation        string  `json:"activation,omitempty" yaml:"activation,omitempty"`
	LayerNormEps      float64 `json:"layer_norm_eps,omitempty" yaml:"layer_norm_eps,omitempty"`

	// FinalLayerNormEps is set when the second norm of a layer uses a
	// different epsilon than the first.
	FinalLayerNormEps float64 `json:"final_layer_norm_eps,omitempty" yaml:"final_layer_norm_eps,omitempty"`

	PositionEmbeddingType string `json:"position_embedding_type,omitempty" yaml:"position_embedding_type,omitempty"`
	IsDecoder             bool   `json:"is_decoder,omitempty" yaml:"is_decoder,omitempty"`
	CrossAttention        bool   `json:"cross_attention,omitempty" yaml:"cross_attention,omitempty"`

	// StableLayerNorm selects the pre-norm variant for families that
	// ship both placements under one handler.
	StableLayerNorm bool `json:"stable_layer_norm,omitempty" yaml:"stable_layer_norm,omitempty"`

	// RelativeAttentionBias is set on the attention block that owns the
	// relative position bias table.
	RelativeAttentionBias bool `json:"relative_attention_bias,omitempty" yaml:"relative_attention_bias,omitempty"`
}

// Module is an original sub-module instance.
type Module struct {
	// Kind is the class name of the sub-module (e.g. "BertLayer").
	Kind    string
	Config  Config
	Weights map[string]*Tensor
}

// Fused is the replacement produced by a handler.
type Fused struct {
	Kind       FusedKind
	Handler    string
	Source     string
	EmbedDim   int
	NumHeads   int
	HeadDim    int
	Activation string
	NormFirst  bool
	NormEps    float64
	Causal     bool
	Scale      float64

	// PositionBias reports that the block adds a relative position bias
	// to the attention scores.
	PositionBias bool

	// Weights are keyed by canonical names: in_proj_weight, in_proj_bias,
	// out_proj_weight, out_proj_bias and, for encoder layers, norm1_weight,
	// norm1_bias, linear1_weight, linear1_bias, linear2_weight, linear2_bias,
	// norm2_weight, norm2_bias.
	Weights map[string]*Tensor
}

// Canonical weight names of a Fused replacement.
const (
	InProjWeight  = "in_proj_weight"
	InProjBias    = "in_proj_bias"
	OutProjWeight = "out_proj_weight"
	OutProjBias   = "out_proj_bias"
	Norm1Weight   = "norm1_weight"
	Norm1Bias     = "norm1_bias"
	Linear1Weight = "linear1_weight"
	Linear1Bias   = "linear1_bias"
	Linear2Weight = "linear2_weight"
	Linear2Bias   = "linear2_bias"
	Norm2Weight   = "norm2_weight"
	Norm2Bias     = "norm2_bias"
)
