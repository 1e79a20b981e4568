package handler

// Encoder layer variants.

// NewBertLayer handles BertLayer and the families that reuse its layout
// (RoBERTa, ELECTRA, ERNIE, LayoutLM, ...).
func NewBertLayer() Handler {
	return &encoderHandler{
		name: "bert-layer",
		layout: encoderLayout{
			q:       "attention.self.query",
			k:       "attention.self.key",
			v:       "attention.self.value",
			out:     "attention.output.dense",
			norm1:   "attention.output.LayerNorm",
			linear1: "intermediate.dense",
			linear2: "output.dense",
			norm2:   "output.LayerNorm",
		},
		normFirst: postNorm,
	}
}

// NewAlbertLayer handles AlbertLayer.
func NewAlbertLayer() Handler {
	return &encoderHandler{
		name: "albert-layer",
		layout: encoderLayout{
			q:       "attention.query",
			k:       "attention.key",
			v:       "attention.value",
			out:     "attention.dense",
			norm1:   "attention.LayerNorm",
			linear1: "ffn",
			linear2: "ffn_output",
			norm2:   "full_layer_layer_norm",
		},
		normFirst: postNorm,
	}
}

// seq2seqEncoderLayout is shared by the BART-derived encoder layers.
var seq2seqEncoderLayout = encoderLayout{
	q:       "self_attn.q_proj",
	k:       "self_attn.k_proj",
	v:       "self_attn.v_proj",
	out:     "self_attn.out_proj",
	norm1:   "self_attn_layer_norm",
	linear1: "fc1",
	linear2: "fc2",
	norm2:   "final_layer_norm",
}

// NewBartEncoderLayer handles BartEncoderLayer and MarianEncoderLayer.
func NewBartEncoderLayer() Handler {
	return &encoderHandler{name: "bart-encoder-layer", layout: seq2seqEncoderLayout, normFirst: postNorm}
}

// NewMBartEncoderLayer handles the pre-norm MBart and M2M100 encoder layers.
func NewMBartEncoderLayer() Handler {
	return &encoderHandler{name: "mbart-encoder-layer", layout: seq2seqEncoderLayout, normFirst: preNorm}
}

// NewFSMTEncoderLayer handles the FSMT EncoderLayer.
func NewFSMTEncoderLayer() Handler {
	return &encoderHandler{name: "fsmt-encoder-layer", layout: seq2seqEncoderLayout, normFirst: postNorm}
}

// NewWhisperEncoderLayer handles WhisperEncoderLayer, whose key projection
// has no bias.
func NewWhisperEncoderLayer() Handler {
	layout := seq2seqEncoderLayout
	layout.noBias = []string{"self_attn.k_proj"}
	return &encoderHandler{name: "whisper-encoder-layer", layout: layout, normFirst: preNorm}
}

// NewDistilBertLayer handles the DistilBERT TransformerBlock.
func NewDistilBertLayer() Handler {
	return &encoderHandler{
		name: "distilbert-layer",
		layout: encoderLayout{
			q:       "attention.q_lin",
			k:       "attention.k_lin",
			v:       "attention.v_lin",
			out:     "attention.out_lin",
			norm1:   "sa_layer_norm",
			linear1: "ffn.lin1",
			linear2: "ffn.lin2",
			norm2:   "output_layer_norm",
		},
		normFirst: postNorm,
	}
}

var vitLayout = encoderLayout{
	q:       "attention.attention.query",
	k:       "attention.attention.key",
	v:       "attention.attention.value",
	out:     "attention.output.dense",
	norm1:   "layernorm_before",
	linear1: "intermediate.dense",
	linear2: "output.dense",
	norm2:   "layernorm_after",
}

// NewViTLayer handles ViTLayer and the vision families that reuse it
// (DeiT, ViT-MAE, ViT-MSN, YOLOS).
func NewViTLayer() Handler {
	return &encoderHandler{name: "vit-layer", layout: vitLayout, normFirst: preNorm}
}

// NewViltLayer handles ViltLayer.
func NewViltLayer() Handler {
	return &encoderHandler{name: "vilt-layer", layout: vitLayout, normFirst: preNorm}
}

// NewCLIPLayer handles CLIPEncoderLayer.
func NewCLIPLayer() Handler {
	return &encoderHandler{
		name: "clip-layer",
		layout: encoderLayout{
			q:       "self_attn.q_proj",
			k:       "self_attn.k_proj",
			v:       "self_attn.v_proj",
			out:     "self_attn.out_proj",
			norm1:   "layer_norm1",
			linear1: "mlp.fc1",
			linear2: "mlp.fc2",
			norm2:   "layer_norm2",
		},
		normFirst: preNorm,
	}
}

// NewProphetNetEncoderLayer handles ProphetNetEncoderLayer.
func NewProphetNetEncoderLayer() Handler {
	return &encoderHandler{
		name: "prophetnet-encoder-layer",
		layout: encoderLayout{
			q:       "self_attn.query_proj",
			k:       "self_attn.key_proj",
			v:       "self_attn.value_proj",
			out:     "self_attn.out_proj",
			norm1:   "self_attn_layer_norm",
			linear1: "feed_forward.intermediate",
			linear2: "feed_forward.output",
			norm2:   "feed_forward_layer_norm",
		},
		normFirst: postNorm,
	}
}

// NewWav2Vec2EncoderLayer handles both Wav2Vec2 encoder layer placements;
// Config.StableLayerNorm selects the pre-norm one.
func NewWav2Vec2EncoderLayer() Handler {
	return &encoderHandler{
		name: "wav2vec2-encoder-layer",
		layout: encoderLayout{
			q:       "attention.q_proj",
			k:       "attention.k_proj",
			v:       "attention.v_proj",
			out:     "attention.out_proj",
			norm1:   "layer_norm",
			linear1: "feed_forward.intermediate_dense",
			linear2: "feed_forward.output_dense",
			norm2:   "final_layer_norm",
		},
		normFirst: stableNorm,
	}
}

// Attention variants.

// NewGPT2Attention handles GPT2Attention. It also accepts the GPT-J
// separate projections and the GPT-NeoX per-head packed projection.
func NewGPT2Attention() Handler {
	return &attentionHandler{
		name: "gpt2-attention",
		layouts: []attentionLayout{
			{kind: conv1DPacked, packed: "c_attn", out: "c_proj", bias: true, outBias: true},
			{kind: separateProjections, q: "q_proj", k: "k_proj", v: "v_proj", out: "out_proj"},
			{kind: headInterleaved, packed: "query_key_value", out: "dense", bias: true, outBias: true},
		},
		causal: alwaysCausal,
	}
}

// NewGPTNeoAttention handles GPTNeoSelfAttention, which does not scale
// attention scores.
func NewGPTNeoAttention() Handler {
	return &attentionHandler{
		name: "gpt-neo-attention",
		layouts: []attentionLayout{
			{kind: separateProjections, q: "q_proj", k: "k_proj", v: "v_proj", out: "out_proj", outBias: true},
		},
		causal:   alwaysCausal,
		unscaled: true,
	}
}

// NewCodegenAttention handles CodeGenAttention and its sharded packed
// projection.
func NewCodegenAttention() Handler {
	return &attentionHandler{
		name: "codegen-attention",
		layouts: []attentionLayout{
			{kind: shardInterleaved, packed: "qkv_proj", out: "out_proj"},
		},
		causal: alwaysCausal,
	}
}

// NewOPTAttention handles OPTAttention.
func NewOPTAttention() Handler {
	return &attentionHandler{
		name: "opt-attention",
		layouts: []attentionLayout{
			{kind: separateProjections, q: "q_proj", k: "k_proj", v: "v_proj", out: "out_proj", bias: true, outBias: true},
		},
		causal: alwaysCausal,
	}
}

// NewBartAttention handles BartAttention and the attention blocks that
// copy it (Blenderbot, M2M100, Marian, Pegasus).
func NewBartAttention() Handler {
	return &attentionHandler{
		name: "bart-attention",
		layouts: []attentionLayout{
			{kind: separateProjections, q: "q_proj", k: "k_proj", v: "v_proj", out: "out_proj", bias: true, outBias: true},
		},
		causal: decoderSelfAttention,
	}
}

// NewT5Attention handles T5Attention: no biases, no score scaling.
func NewT5Attention() Handler {
	return &attentionHandler{
		name: "t5-attention",
		layouts: []attentionLayout{
			{kind: separateProjections, q: "q", k: "k", v: "v", out: "o"},
		},
		causal:   decoderSelfAttention,
		unscaled: true,
	}
}
