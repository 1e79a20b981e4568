package handler

import "math"

// projectionLayout describes how a family stores its query/key/value
// projections.
type projectionLayout int

const (
	// separateProjections: q, k, v as three [E, E] linear layers.
	separateProjections projectionLayout = iota
	// conv1DPacked: one [E, 3E] Conv1D weight (transposed linear) holding q|k|v.
	conv1DPacked
	// headInterleaved: one [3E, E] weight grouped per head as q|k|v.
	headInterleaved
	// shardInterleaved: one [3E, E] weight split in 4 shards, each q|v|k.
	shardInterleaved
)

// codegenShards is the model-parallel shard count baked into the packed
// Codegen projection.
const codegenShards = 4

// attentionLayout names the weights of one storage variant.
type attentionLayout struct {
	kind    projectionLayout
	q, k, v string // separateProjections
	packed  string // packed layouts
	out     string
	bias    bool // q/k/v (or packed) projections carry biases
	outBias bool
}

// attentionHandler swaps an attention block's forward for scaled
// dot-product attention. Weights keep their values; only their layout is
// canonicalised.
type attentionHandler struct {
	name    string
	layouts []attentionLayout
	causal  func(Config) bool
	// unscaled families skip the 1/sqrt(head_dim) factor.
	unscaled bool
}

func alwaysCausal(Config) bool { return true }

// decoderSelfAttention is causal only for decoder self-attention; the same
// class also serves encoder and cross-attention blocks.
func decoderSelfAttention(c Config) bool { return c.IsDecoder && !c.CrossAttention }

func (h *attentionHandler) Name() string { return h.name }

func (h *attentionHandler) Convert(m *Module) (*Fused, error) {
	if err := validateHeads(h.name, m); err != nil {
		return nil, err
	}

	e := m.Config.HiddenSize
	heads := m.Config.NumAttentionHeads
	headDim := e / heads

	layout, ok := h.detect(m)
	if !ok {
		return nil, conversionErrorf(h.name, m, "weights match none of the known projection layouts")
	}

	w := weightReader{handler: h.name, module: m}
	weights := make(map[string]*Tensor, 4)

	switch layout.kind {
	case separateProjections:
		q := w.get(layout.q+".weight", e, e)
		k := w.get(layout.k+".weight", e, e)
		v := w.get(layout.v+".weight", e, e)
		if w.err == nil {
			weights[InProjWeight] = concatRows(q, k, v)
		}
		if layout.bias {
			qb := w.get(layout.q+".bias", e)
			kb := w.get(layout.k+".bias", e)
			vb := w.get(layout.v+".bias", e)
			if w.err == nil {
				weights[InProjBias] = concatRows(qb, kb, vb)
			}
		}
		if layout.outBias {
			weights[OutProjBias] = w.get(layout.out+".bias", e)
		}
		weights[OutProjWeight] = w.get(layout.out+".weight", e, e)

	case conv1DPacked:
		packed := w.get(layout.packed+".weight", e, 3*e)
		out := w.get(layout.out+".weight", e, e)
		if w.err == nil {
			weights[InProjWeight] = transpose2D(packed)
			weights[OutProjWeight] = transpose2D(out)
		}
		if layout.bias {
			weights[InProjBias] = w.get(layout.packed+".bias", 3*e)
		}
		if layout.outBias {
			weights[OutProjBias] = w.get(layout.out+".bias", e)
		}

	case headInterleaved:
		packed := w.get(layout.packed+".weight", 3*e, e)
		if w.err == nil {
			weights[InProjWeight] = deinterleave(packed, heads, []int{0, 1, 2})
		}
		if layout.bias {
			b := w.get(layout.packed+".bias", 3*e)
			if w.err == nil {
				weights[InProjBias] = deinterleave(b, heads, []int{0, 1, 2})
			}
		}
		weights[OutProjWeight] = w.get(layout.out+".weight", e, e)
		if layout.outBias {
			weights[OutProjBias] = w.get(layout.out+".bias", e)
		}

	case shardInterleaved:
		if heads%codegenShards != 0 {
			return nil, conversionErrorf(h.name, m, "%d heads cannot be split in %d shards", heads, codegenShards)
		}
		packed := w.get(layout.packed+".weight", 3*e, e)
		if w.err == nil {
			// Each shard stores query, value, key in that order.
			weights[InProjWeight] = deinterleave(packed, codegenShards, []int{0, 2, 1})
		}
		weights[OutProjWeight] = w.get(layout.out+".weight", e, e)
	}
	if w.err != nil {
		return nil, w.err
	}

	scale := 1 / math.Sqrt(float64(headDim))
	if h.unscaled {
		scale = 1
	}

	return &Fused{
		Kind:         KindAttention,
		Handler:      h.name,
		Source:       m.Kind,
		EmbedDim:     e,
		NumHeads:     heads,
		HeadDim:      headDim,
		Causal:       h.causal(m.Config),
		Scale:        scale,
		PositionBias: m.Config.RelativeAttentionBias,
		Weights:      weights,
	}, nil
}

// detect picks the first layout whose projection weights are present.
func (h *attentionHandler) detect(m *Module) (attentionLayout, bool) {
	w := weightReader{module: m}
	for _, l := range h.layouts {
		if l.kind == separateProjections {
			if w.has(l.q+".weight", l.k+".weight", l.v+".weight", l.out+".weight") {
				return l, true
			}
			continue
		}
		if w.has(l.packed+".weight", l.out+".weight") {
			return l, true
		}
	}
	return attentionLayout{}, false
}

// deinterleave regroups a packed projection stored as groups of
// [part0|part1|part2] into [q-rows of every group | k-rows | v-rows].
// order gives the position of q, k and v inside each group.
func deinterleave(t *Tensor, groups int, order []int) *Tensor {
	groupRows := t.Shape[0] / groups
	partRows := groupRows / 3
	q := rowBlocks(t, groups, groupRows, order[0]*partRows, partRows)
	k := rowBlocks(t, groups, groupRows, order[1]*partRows, partRows)
	v := rowBlocks(t, groups, groupRows, order[2]*partRows, partRows)
	return concatRows(q, k, v)
}
