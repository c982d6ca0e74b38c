package indexer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	headBlockGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "contract_indexer_head_block",
		Help: "Head block number reported by the state history endpoint",
	})
	lastIrreversibleGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "contract_indexer_last_irreversible_block",
		Help: "Last irreversible block number",
	})
	committedBlockGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "contract_indexer_committed_block",
		Help: "Last committed block number",
	})
	blocksCommitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "contract_indexer_blocks_committed_total",
		Help: "Total number of committed blocks",
	})
	forksHandled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "contract_indexer_forks_total",
		Help: "Total number of forks rolled back",
	})
)
