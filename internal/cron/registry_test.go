package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndCopies(t *testing.T) {
	registry, err := NewRegistry(&stubJob{name: "ledger-integrity"}, nil, &stubJob{name: "outbox-retention"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ledger-integrity", "outbox-retention"}, registry.Names())

	jobs := registry.Jobs()
	jobs[0] = nil
	assert.NotNil(t, registry.Jobs()[0], "internal slice leaked")
}

func TestRegistryRejectsDuplicateAndBlankNames(t *testing.T) {
	_, err := NewRegistry(&stubJob{name: "a"}, &stubJob{name: "a"})
	require.Error(t, err)

	registry, err := NewRegistry()
	require.NoError(t, err)
	require.Error(t, registry.Register(&stubJob{name: "  "}))
	require.NoError(t, registry.Register(&stubJob{name: "b"}))
	assert.Len(t, registry.Jobs(), 1)
}
