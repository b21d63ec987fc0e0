package broker

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brokerhub/internal/domain"
	brokertest "brokerhub/internal/testing"
)

func TestRegistry_ResolveUnknownBrokerFailsClosed(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	registry := NewRegistry(log)

	adapter, err := registry.Resolve("nonexistent")
	assert.Nil(t, adapter)
	assert.ErrorIs(t, err, domain.ErrUnsupportedBroker)
}

func TestRegistry_RegisterAndResolve(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	registry := NewRegistry(log)

	mock := brokertest.NewMockAdapter()
	registry.Register("alpaca", mock)

	resolved, err := registry.Resolve("alpaca")
	require.NoError(t, err)
	assert.Same(t, mock, resolved)
}

func TestRegistry_ReRegisterOverwrites(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	registry := NewRegistry(log)

	first := brokertest.NewMockAdapter()
	second := brokertest.NewMockAdapter()

	registry.Register("alpaca", first)
	registry.Register("alpaca", second)

	resolved, err := registry.Resolve("alpaca")
	require.NoError(t, err)
	assert.Same(t, second, resolved)
}

func TestRegistry_BrokerIDsSorted(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	registry := NewRegistry(log)

	registry.Register("sim", brokertest.NewMockAdapter())
	registry.Register("alpaca", brokertest.NewMockAdapter())

	assert.Equal(t, []string{"alpaca", "sim"}, registry.BrokerIDs())
}
