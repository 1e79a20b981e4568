package handler

import (
	"log/slog"
	"slices"
)

// Activations the fused encoder kernel implements.
var supportedActivations = []string{"gelu", "relu", "gelu_new"}

// Activations accepted with a warning: the fused kernel substitutes gelu.
var atOwnRiskActivations = []string{"quick_gelu"}

// encoderLayout names the weight prefixes of an encoder layer. Each prefix
// holds "<prefix>.weight" and, unless listed in noBias, "<prefix>.bias".
type encoderLayout struct {
	q, k, v, out     string
	norm1, norm2     string
	linear1, linear2 string
	noBias           []string
}

// encoderHandler converts a full encoder layer into one fused layer.
type encoderHandler struct {
	name      string
	layout    encoderLayout
	normFirst func(Config) bool
}

func postNorm(Config) bool { return false }
func preNorm(Config) bool  { return true }

func stableNorm(c Config) bool { return c.StableLayerNorm }

func (h *encoderHandler) Name() string { return h.name }

func (h *encoderHandler) Convert(m *Module) (*Fused, error) {
	if err := h.validate(m); err != nil {
		return nil, err
	}

	e := m.Config.HiddenSize
	w := weightReader{handler: h.name, module: m, noBias: h.layout.noBias}

	qw, qb := w.linear(h.layout.q, e, e)
	kw, kb := w.linear(h.layout.k, e, e)
	vw, vb := w.linear(h.layout.v, e, e)
	ow, ob := w.linear(h.layout.out, e, e)
	n1w, n1b := w.norm(h.layout.norm1, e)

	inter := m.Config.IntermediateSize
	if inter == 0 {
		if t := m.Weights[h.layout.linear1+".weight"]; t != nil && len(t.Shape) == 2 {
			inter = t.Shape[0]
		}
	}
	l1w, l1b := w.linear(h.layout.linear1, inter, e)
	l2w, l2b := w.linear(h.layout.linear2, e, inter)
	n2w, n2b := w.norm(h.layout.norm2, e)
	if w.err != nil {
		return nil, w.err
	}

	return &Fused{
		Kind:       KindEncoderLayer,
		Handler:    h.name,
		Source:     m.Kind,
		EmbedDim:   e,
		NumHeads:   m.Config.NumAttentionHeads,
		HeadDim:    e / m.Config.NumAttentionHeads,
		Activation: m.Config.Activation,
		NormFirst:  h.normFirst(m.Config),
		NormEps:    m.Config.LayerNormEps,
		Weights: map[string]*Tensor{
			InProjWeight:  concatRows(qw, kw, vw),
			InProjBias:    concatRows(qb, kb, vb),
			OutProjWeight: ow,
			OutProjBias:   ob,
			Norm1Weight:   n1w,
			Norm1Bias:     n1b,
			Linear1Weight: l1w,
			Linear1Bias:   l1b,
			Linear2Weight: l2w,
			Linear2Bias:   l2b,
			Norm2Weight:   n2w,
			Norm2Bias:     n2b,
		},
	}, nil
}

func (h *encoderHandler) validate(m *Module) error {
	c := m.Config
	if err := validateHeads(h.name, m); err != nil {
		return err
	}
	if c.NumAttentionHeads%2 == 1 {
		return conversionErrorf(h.name, m, "odd number of attention heads (%d) is not supported", c.NumAttentionHeads)
	}
	if c.IsDecoder || c.CrossAttention {
		return conversionErrorf(h.name, m, "decoder and cross-attention layers are not supported")
	}
	if c.PositionEmbeddingType != "" && c.PositionEmbeddingType != "absolute" {
		return conversionErrorf(h.name, m, "position embedding type %q is not supported", c.PositionEmbeddingType)
	}
	if c.FinalLayerNormEps != 0 && c.FinalLayerNormEps != c.LayerNormEps {
		return conversionErrorf(h.name, m, "layer norms use different epsilons (%g, %g)", c.LayerNormEps, c.FinalLayerNormEps)
	}

	switch {
	case slices.Contains(supportedActivations, c.Activation):
	case slices.Contains(atOwnRiskActivations, c.Activation):
		slog.Warn("activation is approximated by the fused kernel",
			"handler", h.name,
			"module", m.Kind,
			"activation", c.Activation)
	default:
		return conversionErrorf(h.name, m, "activation %q is not supported", c.Activation)
	}
	return nil
}

func validateHeads(handler string, m *Module) error {
	c := m.Config
	if c.HiddenSize <= 0 || c.NumAttentionHeads <= 0 {
		return conversionErrorf(handler, m, "hidden size and head count must be positive")
	}
	if c.HiddenSize%c.NumAttentionHeads != 0 {
		return conversionErrorf(handler, m, "hidden size %d is not divisible by %d heads", c.HiddenSize, c.NumAttentionHeads)
	}
	return nil
}

// weightReader fetches and shape-checks weights, keeping the first error.
type weightReader struct {
	handler string
	module  *Module
	noBias  []string
	err     error
}

func (w *weightReader) get(name string, shape ...int) *Tensor {
	if w.err != nil {
		return nil
	}
	t, ok := w.module.Weights[name]
	if !ok || t == nil {
		w.err = conversionErrorf(w.handler, w.module, "missing weight %q", name)
		return nil
	}
	if !t.HasShape(shape...) {
		w.err = conversionErrorf(w.handler, w.module, "weight %q has shape %v, want %v", name, t.Shape, shape)
		return nil
	}
	if want := shapeSize(shape); t.Numel() != want {
		w.err = conversionErrorf(w.handler, w.module, "weight %q has %d elements, shape %v needs %d", name, t.Numel(), t.Shape, want)
		return nil
	}
	return t
}

// linear returns the [out, in] weight and the [out] bias of a projection.
// A prefix listed in noBias yields a zero bias.
func (w *weightReader) linear(prefix string, out, in int) (*Tensor, *Tensor) {
	weight := w.get(prefix+".weight", out, in)
	if slices.Contains(w.noBias, prefix) {
		return weight, Zeros(out)
	}
	return weight, w.get(prefix+".bias", out)
}

func (w *weightReader) norm(prefix string, dim int) (*Tensor, *Tensor) {
	return w.get(prefix+".weight", dim), w.get(prefix+".bias", dim)
}

// has reports whether every named weight is present.
func (w *weightReader) has(names ...string) bool {
	for _, n := range names {
		if w.module.Weights[n] == nil {
			return false
		}
	}
	return true
}
