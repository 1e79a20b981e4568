package plan_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/reglet-dev/fastpath/handler"
	"github.com/reglet-dev/fastpath/plan"
	"github.com/reglet-dev/fastpath/policy"
	"github.com/reglet-dev/fastpath/registry"
	"github.com/reglet-dev/fastpath/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPlanner(opts ...plan.Option) *plan.Planner {
	opts = append([]plan.Option{plan.WithSkipHandler(&policy.NopSkipHandler{})}, opts...)
	return plan.NewPlanner(registry.Default(), opts...)
}

func bertModule(kind string) *handler.Module {
	const e, inter = 4, 8
	w := map[string]*handler.Tensor{}
	for _, p := range []string{"attention.self.query", "attention.self.key", "attention.self.value", "attention.output.dense"} {
		w[p+".weight"] = handler.Zeros(e, e)
		w[p+".bias"] = handler.Zeros(e)
	}
	for _, p := range []string{"attention.output.LayerNorm", "output.LayerNorm"} {
		w[p+".weight"] = handler.Zeros(e)
		w[p+".bias"] = handler.Zeros(e)
	}
	w["intermediate.dense.weight"] = handler.Zeros(inter, e)
	w["intermediate.dense.bias"] = handler.Zeros(inter)
	w["output.dense.weight"] = handler.Zeros(e, inter)
	w["output.dense.bias"] = handler.Zeros(e)

	return &handler.Module{
		Kind: kind,
		Config: handler.Config{
			HiddenSize:        e,
			NumAttentionHeads: 2,
			IntermediateSize:  inter,
			Activation:        "gelu",
			LayerNormEps:      1e-12,
		},
		Weights: w,
	}
}

func TestPlanner_Plan_CLIP(t *testing.T) {
	t.Parallel()

	m := &plan.Model{
		Architecture: "clip",
		Modules: []plan.ModuleRef{
			{Path: "text_model.encoder.layers.0", Class: "CLIPEncoderLayer"},
			{Path: "vision_model.encoder.layers.0", Class: "CLIPEncoderLayer"},
			{Path: "vision_model.embeddings", Class: "CLIPVisionEmbeddings"},
		},
	}

	got, err := newPlanner().Plan(context.Background(), m)
	require.NoError(t, err)

	assert.True(t, got.Eligible)
	assert.True(t, got.NestedTensor)
	assert.True(t, got.StrictValidation)
	assert.Empty(t, got.MinimumRuntime)
	assert.Equal(t, []plan.Step{
		{Path: "text_model.encoder.layers.0", Class: "CLIPEncoderLayer", Action: plan.ActionSkipExcluded},
		{Path: "vision_model.encoder.layers.0", Class: "CLIPEncoderLayer", Action: plan.ActionConvert, Handler: "clip-layer"},
		{Path: "vision_model.embeddings", Class: "CLIPVisionEmbeddings", Action: plan.ActionIgnore},
	}, got.Steps)
	assert.Equal(t, 1, got.Count(plan.ActionConvert))
}

func TestPlanner_Plan_Ineligible(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		arch   string
		reason string
	}{
		{"unsupported", "deberta-v2", "DeBERTa v2 does not use a regular attention mechanism"},
		{"unregistered", "my-new-arch", "not registered"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := newPlanner().Plan(context.Background(), &plan.Model{Architecture: tt.arch})
			require.Error(t, err)
			assert.True(t, errors.Is(err, plan.ErrNotEligible))

			require.NotNil(t, got)
			assert.False(t, got.Eligible)
			assert.Contains(t, got.Reason, tt.reason)
			assert.Empty(t, got.Steps)
		})
	}
}

func TestPlanner_Plan_Runtime(t *testing.T) {
	t.Parallel()

	m := &plan.Model{
		Architecture: "opt",
		Modules:      []plan.ModuleRef{{Path: "model.decoder.layers.0.self_attn", Class: "OPTAttention"}},
	}

	t.Run("too old", func(t *testing.T) {
		got, err := newPlanner(plan.WithRuntime("1.13.1")).Plan(context.Background(), m)
		require.ErrorIs(t, err, version.ErrRuntimeTooOld)
		assert.False(t, got.Eligible)
		assert.Equal(t, "2.0.0", got.MinimumRuntime)
		assert.False(t, got.NestedTensor)
	})

	t.Run("model runtime wins", func(t *testing.T) {
		withRuntime := *m
		withRuntime.Runtime = "2.1.0+cu118"
		got, err := newPlanner(plan.WithRuntime("1.13.1")).Plan(context.Background(), &withRuntime)
		require.NoError(t, err)
		assert.True(t, got.Eligible)
		assert.Equal(t, "opt-attention", got.Steps[0].Handler)
	})

	t.Run("unknown runtime is not checked", func(t *testing.T) {
		got, err := newPlanner().Plan(context.Background(), m)
		require.NoError(t, err)
		assert.True(t, got.Eligible)
	})
}

func TestPlanner_Plan_InvalidModel(t *testing.T) {
	t.Parallel()

	p := newPlanner()
	_, err := p.Plan(context.Background(), nil)
	assert.Error(t, err)

	_, err = p.Plan(context.Background(), &plan.Model{
		Architecture: "bert",
		Modules:      []plan.ModuleRef{{Path: "a", Class: "BertLayer"}, {Path: "a", Class: "BertLayer"}},
	})
	assert.ErrorContains(t, err, "duplicate path")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Plan(ctx, &plan.Model{Architecture: "bert"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPlanner_Apply(t *testing.T) {
	t.Parallel()

	p := newPlanner()
	m := &plan.Model{
		Architecture: "bert",
		Modules: []plan.ModuleRef{
			{Path: "encoder.layer.0", Class: "BertLayer"},
			{Path: "pooler", Class: "BertPooler"},
		},
	}
	pl, err := p.Plan(context.Background(), m)
	require.NoError(t, err)

	t.Run("converts planned modules", func(t *testing.T) {
		fused, err := p.Apply(context.Background(), pl, func(path string) (*handler.Module, error) {
			return bertModule("BertLayer"), nil
		})
		require.NoError(t, err)
		require.Len(t, fused, 1)
		assert.Equal(t, "bert-layer", fused["encoder.layer.0"].Handler)
	})

	t.Run("handler errors propagate", func(t *testing.T) {
		_, err := p.Apply(context.Background(), pl, func(path string) (*handler.Module, error) {
			mod := bertModule("BertLayer")
			mod.Config.Activation = "silu"
			return mod, nil
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, handler.ErrConversion)
		assert.ErrorContains(t, err, "encoder.layer.0")
	})

	t.Run("strict validation checks the class", func(t *testing.T) {
		_, err := p.Apply(context.Background(), pl, func(path string) (*handler.Module, error) {
			return bertModule("RobertaLayer"), nil
		})
		assert.ErrorIs(t, err, handler.ErrConversion)
	})

	t.Run("lookup errors", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := p.Apply(context.Background(), pl, func(path string) (*handler.Module, error) {
			return nil, boom
		})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("lookup returns no module", func(t *testing.T) {
		var err error
		require.NotPanics(t, func() {
			_, err = p.Apply(context.Background(), pl, func(path string) (*handler.Module, error) {
				return nil, nil
			})
		})
		require.Error(t, err)
		assert.ErrorContains(t, err, "encoder.layer.0: lookup returned no module")
	})

	t.Run("ineligible plan", func(t *testing.T) {
		_, err := p.Apply(context.Background(), &plan.Plan{Architecture: "glpn"}, nil)
		assert.ErrorIs(t, err, plan.ErrNotEligible)
	})
}

func TestLoadModel(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "model.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`architecture: bert
runtime: 2.1.0
modules:
  - path: encoder.layer.0
    class: BertLayer
`), 0o600))

	m, err := plan.LoadModel(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "bert", m.Architecture)
	assert.Equal(t, "2.1.0", m.Runtime)
	assert.Equal(t, []plan.ModuleRef{{Path: "encoder.layer.0", Class: "BertLayer"}}, m.Modules)

	jsonPath := filepath.Join(dir, "model.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"architecture":"gpt2","modules":[{"path":"h.0.attn","class":"GPT2Attention"}]}`), 0o600))

	m, err = plan.LoadModel(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "gpt2", m.Architecture)

	badPath := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badPath, []byte("architecture: bert\nlayers: 12\n"), 0o600))
	_, err = plan.LoadModel(badPath)
	assert.Error(t, err)

	emptyPath := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(emptyPath, nil, 0o600))
	_, err = plan.LoadModel(emptyPath)
	assert.ErrorContains(t, err, "architecture is required")

	_, err = plan.LoadModel(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
