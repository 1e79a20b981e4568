package registry

import "github.com/reglet-dev/fastpath/handler"

// minimumRuntimeVersion is the runtime release that first shipped the fused
// attention kernels used by the architectures in minimumRuntimeTable.
const minimumRuntimeVersion = "2.0.0"

// supportTable maps each supported architecture to its handlers, keyed by
// sub-module class name.
func supportTable() map[string]map[string]handler.Handler {
	var (
		albert         = handler.NewAlbertLayer()
		bartEncoder    = handler.NewBartEncoderLayer()
		bartAttention  = handler.NewBartAttention()
		bert           = handler.NewBertLayer()
		clip           = handler.NewCLIPLayer()
		codegen        = handler.NewCodegenAttention()
		distilbert     = handler.NewDistilBertLayer()
		fsmt           = handler.NewFSMTEncoderLayer()
		gpt2           = handler.NewGPT2Attention()
		gptNeo         = handler.NewGPTNeoAttention()
		mbartEncoder   = handler.NewMBartEncoderLayer()
		opt            = handler.NewOPTAttention()
		prophetnet     = handler.NewProphetNetEncoderLayer()
		t5             = handler.NewT5Attention()
		vilt           = handler.NewViltLayer()
		vit            = handler.NewViTLayer()
		wav2vec2       = handler.NewWav2Vec2EncoderLayer()
		whisperEncoder = handler.NewWhisperEncoderLayer()
	)

	return map[string]map[string]handler.Handler{
		"albert": {"AlbertLayer": albert},
		"bart": {
			"BartEncoderLayer": bartEncoder,
			"BartAttention":    bartAttention,
		},
		"bert":            {"BertLayer": bert},
		"bert-generation": {"BertGenerationLayer": bert},
		"blenderbot":      {"BlenderbotAttention": bartAttention},
		"camembert":       {"CamembertLayer": bert},
		"clip":            {"CLIPEncoderLayer": clip},
		"codegen":         {"CodeGenAttention": codegen},
		"data2vec-text":   {"Data2VecTextLayer": bert},
		"deit":            {"DeiTLayer": vit},
		"distilbert":      {"TransformerBlock": distilbert},
		"electra":         {"ElectraLayer": bert},
		"ernie":           {"ErnieLayer": bert},
		"fsmt":            {"EncoderLayer": fsmt},
		"gpt2":            {"GPT2Attention": gpt2},
		"gptj":            {"GPTJAttention": gpt2},
		"gpt_neo":         {"GPTNeoSelfAttention": gptNeo},
		"gpt_neox":        {"GPTNeoXAttention": gpt2},
		"hubert":          {"HubertEncoderLayer": wav2vec2},
		"layoutlm":        {"LayoutLMLayer": bert},
		"m2m_100": {
			"M2M100EncoderLayer": mbartEncoder,
			"M2M100Attention":    bartAttention,
		},
		"marian": {
			"MarianEncoderLayer": bartEncoder,
			"MarianAttention":    bartAttention,
		},
		"markuplm":   {"MarkupLMLayer": bert},
		"mbart":      {"MBartEncoderLayer": mbartEncoder},
		"opt":        {"OPTAttention": opt},
		"pegasus":    {"PegasusAttention": bartAttention},
		"rembert":    {"RemBertLayer": bert},
		"prophetnet": {"ProphetNetEncoderLayer": prophetnet},
		"roberta":    {"RobertaLayer": bert},
		"roc_bert":   {"RoCBertLayer": bert},
		"roformer":   {"RoFormerLayer": bert},
		"splinter":   {"SplinterLayer": bert},
		"tapas":      {"TapasLayer": bert},
		"t5":         {"T5Attention": t5},
		"vilt":       {"ViltLayer": vilt},
		"vit":        {"ViTLayer": vit},
		"vit_mae":    {"ViTMAELayer": vit},
		"vit_msn":    {"ViTMSNLayer": vit},
		"wav2vec2": {
			"Wav2Vec2EncoderLayer":                wav2vec2,
			"Wav2Vec2EncoderLayerStableLayerNorm": wav2vec2,
		},
		"whisper":     {"WhisperEncoderLayer": whisperEncoder},
		"xlm-roberta": {"XLMRobertaLayer": bert},
		"yolos":       {"YolosLayer": vit},
	}
}

func unsupportedTable() map[string]string {
	return map[string]string{
		"deberta-v2": "DeBERTa v2 does not use a regular attention mechanism, which is not supported by the fused attention path.",
		"glpn":       "GLPN has a convolutional layer present in the FFN network, which is not supported by the fused attention path.",
	}
}

func exclusionTable() map[string][]string {
	return map[string][]string{
		// The CLIP text tower uses causal attention, which the fused
		// encoder kernel does not implement.
		"clip": {"text_model"},
	}
}

// Families whose fused path pads to a rectangular batch instead of using
// nested tensors.
func nestedTensorExemptTable() []string {
	return []string{"blenderbot", "codegen", "gpt2", "gptj", "gpt_neo", "gpt_neox", "opt", "pegasus", "t5"}
}

// Same members as nestedTensorExemptTable today. Kept as its own table so
// either axis can change without the other.
func strictValidationExemptTable() []string {
	return []string{"blenderbot", "codegen", "gpt2", "gptj", "gpt_neo", "gpt_neox", "opt", "pegasus", "t5"}
}

func minimumRuntimeTable() []string {
	return []string{
		"blenderbot",
		"bart",
		"codegen",
		"gpt2",
		"gptj",
		"gpt_neo",
		"gpt_neox",
		"m2m_100",
		"marian",
		"mbart",
		"opt",
		"pegasus",
		"t5",
	}
}
