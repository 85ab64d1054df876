package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCollectorExport(t *testing.T) {
	r := NewRegistry()
	m := NewChainMetrics(r)
	m.BlocksApplied.Add(3)
	m.Head.Set(3000)
	m.BlockApplySeconds.Observe(0.25)

	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg, "plasma", r))

	expected := `
# HELP plasma_chain_blocks_applied chain.blocks_applied
# TYPE plasma_chain_blocks_applied counter
plasma_chain_blocks_applied 3
# HELP plasma_chain_head chain.head
# TYPE plasma_chain_head gauge
plasma_chain_head 3000
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"plasma_chain_blocks_applied", "plasma_chain_head"))

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	require.Equal(t, 11, count)
}

func TestCollectorPicksUpNewMetrics(t *testing.T) {
	r := NewRegistry()
	c := NewCollector("", r)
	require.Equal(t, 0, testutil.CollectAndCount(c))

	r.Counter("operator.exits").Inc()
	require.Equal(t, 1, testutil.CollectAndCount(c, "operator_exits"))
	require.Equal(t, float64(1), testutil.ToFloat64(c))
}

func TestPromName(t *testing.T) {
	require.Equal(t, "chain_block_apply_seconds", promName("chain.block_apply_seconds"))
	require.Equal(t, "a_b_c", promName("a-b c"))
}
