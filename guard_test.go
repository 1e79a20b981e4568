package fastpath_test

import (
	"context"
	"errors"
	"testing"

	"github.com/reglet-dev/fastpath"
	"github.com/stretchr/testify/assert"
)

func TestGuard(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fn   func(ctx context.Context) error
	}{
		{"success", func(ctx context.Context) error { return nil }},
		{"error", func(ctx context.Context) error { return errors.New("validation failed") }},
		{"panic", func(ctx context.Context) error { panic("unexpected layout") }},
		{"panic with error", func(ctx context.Context) error { panic(errors.New("nil weight")) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ran := false
			assert.NotPanics(t, func() {
				fastpath.Guard(context.Background(), func(ctx context.Context) error {
					ran = true
					return tt.fn(ctx)
				})
			})
			assert.True(t, ran)
		})
	}
}

func TestGuard_WorkAfterGuardContinues(t *testing.T) {
	t.Parallel()

	steps := []string{}
	fastpath.Guard(context.Background(), func(ctx context.Context) error {
		steps = append(steps, "guarded")
		panic("boom")
	})
	steps = append(steps, "after")

	assert.Equal(t, []string{"guarded", "after"}, steps)
}
