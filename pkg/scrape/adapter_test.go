package scrape

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/thistle/pkg/models"
)

type stubAdapter struct {
	family string
}

func (s *stubAdapter) Family() string                 { return s.family }
func (s *stubAdapter) DefaultInterval() time.Duration { return time.Minute }
func (s *stubAdapter) FetchSnapshot(_ context.Context, url string) (*models.Snapshot, error) {
	return &models.Snapshot{SourceFamily: s.family, SourceURL: url}, nil
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&stubAdapter{family: "ufcstats"}))
	require.NoError(t, registry.Register(&stubAdapter{family: "sherdog"}))

	adapter, err := registry.Get("ufcstats")
	require.NoError(t, err)
	assert.Equal(t, "ufcstats", adapter.Family())

	_, err = registry.Get("espn")
	assert.Error(t, err)

	assert.Equal(t, []string{"sherdog", "ufcstats"}, registry.Families())
}

func TestRegistry_DuplicateFamily(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&stubAdapter{family: "ufcstats"}))
	assert.Error(t, registry.Register(&stubAdapter{family: "ufcstats"}))
}
