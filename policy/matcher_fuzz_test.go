package policy_test

import (
	"testing"

	"github.com/reglet-dev/fastpath/policy"
)

func FuzzMatchEntry(f *testing.F) {
	f.Add("text_model", "text_model.encoder")
	f.Add("vision_model.encoder.layers.1*", "vision_model.encoder.layers.12")
	f.Add("[", "a.b")

	f.Fuzz(func(t *testing.T, entry, path string) {
		// We just ensure it doesn't panic
		policy.MatchEntry(entry, path)
	})
}
