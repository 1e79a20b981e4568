package handler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filled(v float32, shape ...int) *Tensor {
	t := Zeros(shape...)
	for i := range t.Data {
		t.Data[i] = v
	}
	return t
}

// encoderModule builds a module whose projection weights are filled with
// distinct constants so packing order can be asserted.
func encoderModule(kind string, layout encoderLayout, e, heads, inter int) *Module {
	w := map[string]*Tensor{
		layout.q + ".weight":       filled(1, e, e),
		layout.q + ".bias":         filled(10, e),
		layout.k + ".weight":       filled(2, e, e),
		layout.k + ".bias":         filled(20, e),
		layout.v + ".weight":       filled(3, e, e),
		layout.v + ".bias":         filled(30, e),
		layout.out + ".weight":     filled(4, e, e),
		layout.out + ".bias":       filled(40, e),
		layout.norm1 + ".weight":   filled(1, e),
		layout.norm1 + ".bias":     filled(0, e),
		layout.linear1 + ".weight": filled(5, inter, e),
		layout.linear1 + ".bias":   filled(50, inter),
		layout.linear2 + ".weight": filled(6, e, inter),
		layout.linear2 + ".bias":   filled(60, e),
		layout.norm2 + ".weight":   filled(1, e),
		layout.norm2 + ".bias":     filled(0, e),
	}
	return &Module{
		Kind: kind,
		Config: Config{
			HiddenSize:        e,
			NumAttentionHeads: heads,
			IntermediateSize:  inter,
			Activation:        "gelu",
			LayerNormEps:      1e-12,
		},
		Weights: w,
	}
}

func bertLayout() encoderLayout {
	return NewBertLayer().(*encoderHandler).layout
}

func TestBertLayer_PacksProjections(t *testing.T) {
	m := encoderModule("BertLayer", bertLayout(), 4, 2, 8)

	fused, err := NewBertLayer().Convert(m)
	require.NoError(t, err)

	assert.Equal(t, KindEncoderLayer, fused.Kind)
	assert.Equal(t, "bert-layer", fused.Handler)
	assert.Equal(t, "BertLayer", fused.Source)
	assert.Equal(t, 4, fused.EmbedDim)
	assert.Equal(t, 2, fused.NumHeads)
	assert.Equal(t, 2, fused.HeadDim)
	assert.False(t, fused.NormFirst)
	assert.Equal(t, 1e-12, fused.NormEps)

	in := fused.Weights[InProjWeight]
	require.True(t, in.HasShape(12, 4))
	// Rows 0-3 query, 4-7 key, 8-11 value.
	assert.Equal(t, float32(1), in.Data[0])
	assert.Equal(t, float32(2), in.Data[4*4])
	assert.Equal(t, float32(3), in.Data[8*4])

	bias := fused.Weights[InProjBias]
	require.True(t, bias.HasShape(12))
	assert.Equal(t, []float32{10, 10, 10, 10, 20, 20, 20, 20, 30, 30, 30, 30}, bias.Data)

	assert.True(t, fused.Weights[Linear1Weight].HasShape(8, 4))
	assert.True(t, fused.Weights[Linear2Weight].HasShape(4, 8))
	for _, name := range []string{OutProjWeight, OutProjBias, Norm1Weight, Norm1Bias, Linear1Bias, Linear2Bias, Norm2Weight, Norm2Bias} {
		assert.NotNil(t, fused.Weights[name], name)
	}
}

func TestEncoder_InfersIntermediateSize(t *testing.T) {
	m := encoderModule("BertLayer", bertLayout(), 4, 2, 16)
	m.Config.IntermediateSize = 0

	fused, err := NewBertLayer().Convert(m)
	require.NoError(t, err)
	assert.True(t, fused.Weights[Linear1Weight].HasShape(16, 4))
}

func TestEncoder_ConversionErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m *Module)
		reason string
	}{
		{"missing weight", func(m *Module) { delete(m.Weights, "attention.self.key.weight") }, `missing weight "attention.self.key.weight"`},
		{"wrong shape", func(m *Module) { m.Weights["output.dense.weight"] = filled(1, 8, 4) }, `weight "output.dense.weight" has shape [8 4]`},
		{"unsupported activation", func(m *Module) { m.Config.Activation = "silu" }, `activation "silu" is not supported`},
		{"odd heads", func(m *Module) { m.Config.NumAttentionHeads = 1 }, "odd number of attention heads"},
		{"indivisible heads", func(m *Module) { m.Config.NumAttentionHeads = 3 }, "not divisible"},
		{"decoder layer", func(m *Module) { m.Config.IsDecoder = true }, "decoder and cross-attention"},
		{"relative positions", func(m *Module) { m.Config.PositionEmbeddingType = "relative_key" }, `position embedding type "relative_key"`},
		{"different eps", func(m *Module) { m.Config.FinalLayerNormEps = 1e-5 }, "different epsilons"},
		{"data shorter than shape", func(m *Module) {
			m.Weights["attention.self.key.weight"] = &Tensor{Shape: []int{4, 4}, Data: make([]float32, 3)}
		}, `weight "attention.self.key.weight" has 3 elements, shape [4 4] needs 16`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := encoderModule("BertLayer", bertLayout(), 4, 2, 8)
			tt.mutate(m)

			fused, err := NewBertLayer().Convert(m)
			assert.Nil(t, fused)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConversion))

			var convErr *ConversionError
			require.ErrorAs(t, err, &convErr)
			assert.Equal(t, "bert-layer", convErr.Handler)
			assert.Equal(t, "BertLayer", convErr.Kind)
			assert.Contains(t, convErr.Reason, tt.reason)
		})
	}
}

func TestWhisperEncoderLayer_KeyWithoutBias(t *testing.T) {
	h := NewWhisperEncoderLayer()
	m := encoderModule("WhisperEncoderLayer", seq2seqEncoderLayout, 4, 2, 8)
	delete(m.Weights, "self_attn.k_proj.bias")

	fused, err := h.Convert(m)
	require.NoError(t, err)
	assert.True(t, fused.NormFirst)
	assert.Equal(t, []float32{10, 10, 10, 10, 0, 0, 0, 0, 30, 30, 30, 30}, fused.Weights[InProjBias].Data)
}

func TestCLIPLayer_QuickGeluAccepted(t *testing.T) {
	h := NewCLIPLayer()
	m := encoderModule("CLIPEncoderLayer", h.(*encoderHandler).layout, 4, 2, 8)
	m.Config.Activation = "quick_gelu"

	fused, err := h.Convert(m)
	require.NoError(t, err)
	assert.True(t, fused.NormFirst)
	assert.Equal(t, "quick_gelu", fused.Activation)
}

func TestWav2Vec2EncoderLayer_NormPlacement(t *testing.T) {
	h := NewWav2Vec2EncoderLayer()
	layout := h.(*encoderHandler).layout

	m := encoderModule("Wav2Vec2EncoderLayer", layout, 4, 2, 8)
	fused, err := h.Convert(m)
	require.NoError(t, err)
	assert.False(t, fused.NormFirst)

	m = encoderModule("Wav2Vec2EncoderLayerStableLayerNorm", layout, 4, 2, 8)
	m.Config.StableLayerNorm = true
	fused, err = h.Convert(m)
	require.NoError(t, err)
	assert.True(t, fused.NormFirst)
}

func TestEncoderVariants_NormPlacement(t *testing.T) {
	tests := []struct {
		handler   Handler
		normFirst bool
	}{
		{NewBertLayer(), false},
		{NewAlbertLayer(), false},
		{NewBartEncoderLayer(), false},
		{NewMBartEncoderLayer(), true},
		{NewFSMTEncoderLayer(), false},
		{NewDistilBertLayer(), false},
		{NewViTLayer(), true},
		{NewViltLayer(), true},
		{NewCLIPLayer(), true},
		{NewProphetNetEncoderLayer(), false},
	}

	for _, tt := range tests {
		t.Run(tt.handler.Name(), func(t *testing.T) {
			layout := tt.handler.(*encoderHandler).layout
			fused, err := tt.handler.Convert(encoderModule("Layer", layout, 8, 4, 16))
			require.NoError(t, err)
			assert.Equal(t, tt.normFirst, fused.NormFirst)
			assert.True(t, fused.Weights[InProjWeight].HasShape(24, 8))
		})
	}
}
