package policy_test

import (
	"testing"

	"github.com/reglet-dev/fastpath/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type staticExclusions map[string][]string

func (s staticExclusions) Exclusions(arch string) []string { return s[arch] }

type mockSkipHandler struct {
	mock.Mock
}

func (m *mockSkipHandler) OnSkip(arch, path, reason string) {
	m.Called(arch, path, reason)
}

func TestMatchEntry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		entry string
		path  string
		want  bool
	}{
		{"exact", "text_model", "text_model", true},
		{"descendant", "text_model", "text_model.encoder.layers.0", true},
		{"sibling with shared prefix", "text_model", "text_model_proj", false},
		{"other tower", "text_model", "vision_model.encoder", false},
		{"glob on layer index", "vision_model.encoder.layers.1*", "vision_model.encoder.layers.12", true},
		{"glob descendant", "vision_model.encoder.layers.1*", "vision_model.encoder.layers.1.self_attn", true},
		{"glob miss", "vision_model.encoder.layers.1*", "vision_model.encoder.layers.2", false},
		{"double star", "**.self_attn", "encoder.layers.3.self_attn", true},
		{"empty entry", "", "anything", false},
		{"empty path", "text_model", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.MatchEntry(tt.entry, tt.path))
		})
	}
}

func TestMatcher_Check(t *testing.T) {
	t.Parallel()

	handler := new(mockSkipHandler)
	handler.On("OnSkip", "clip", "text_model.encoder", "text_model").Once()

	m := policy.NewMatcher(
		staticExclusions{"clip": {"text_model"}},
		policy.WithSkipHandler(handler),
	)

	assert.False(t, m.Check("clip", "text_model.encoder"))
	assert.True(t, m.Check("clip", "vision_model.encoder"))
	assert.True(t, m.Check("bert", "text_model"))
	handler.AssertExpectations(t)
}

func TestMatcher_ExcludedHasNoSideEffects(t *testing.T) {
	t.Parallel()

	handler := new(mockSkipHandler)
	m := policy.NewMatcher(
		staticExclusions{"clip": {"text_model"}},
		policy.WithSkipHandler(handler),
	)

	assert.True(t, m.Excluded("clip", "text_model"))
	handler.AssertNotCalled(t, "OnSkip", mock.Anything, mock.Anything, mock.Anything)
}

func TestValidateEntries(t *testing.T) {
	t.Parallel()

	assert.NoError(t, policy.ValidateEntries([]string{"text_model", "encoder.layers.{0,1}"}))
	assert.Error(t, policy.ValidateEntries([]string{"encoder.layers.[0"}))
	assert.Error(t, policy.ValidateEntries([]string{""}))
}
