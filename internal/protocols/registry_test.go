package protocols

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"historyScope/internal/decoding"
	"historyScope/internal/protocols/rainbow"
)

func TestBuildRegistryForEveryChain(t *testing.T) {
	for _, chainID := range Chains() {
		registry, err := BuildRegistry(chainID)
		require.NoError(t, err, "chain %d", chainID)
		assert.True(t, registry.Frozen())
		assert.Len(t, registry.Protocols(), len(ForChain(chainID)))

		cpt, ok := registry.CounterpartyForAddress(rainbow.Router)
		assert.True(t, ok)
		assert.Equal(t, rainbow.CPTRainbow, cpt)
	}
}

func TestBuildRegistryIsDeterministic(t *testing.T) {
	first, err := BuildRegistry(1)
	require.NoError(t, err)
	second, err := BuildRegistry(1)
	require.NoError(t, err)
	assert.Equal(t, first.Protocols(), second.Protocols())
	assert.Equal(t, first.Counterparties(), second.Counterparties())
}

func TestBuildRegistryUnknownChain(t *testing.T) {
	registry, err := BuildRegistry(5)
	require.NoError(t, err)
	assert.Empty(t, registry.Protocols())

	ids := make([]string, 0)
	for _, cpt := range registry.Counterparties() {
		ids = append(ids, cpt.Identifier)
	}
	assert.Equal(t, []string{decoding.CounterpartyGas}, ids)
}

func TestChainsSorted(t *testing.T) {
	assert.Equal(t, []uint64{1, 10, 42161}, Chains())
}
