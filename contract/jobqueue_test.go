package contract

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atomicore/eosio-contract-indexer/db"
)

func TestJobQueueDrainOrder(t *testing.T) {
	tests := []struct {
		name       string
		priorities []int
		expected   []int
	}{
		{
			name:       "higher priority runs first",
			priorities: []int{40, 100, 70},
			expected:   []int{1, 2, 0},
		},
		{
			name:       "equal priorities keep enqueue order",
			priorities: []int{50, 50, 50},
			expected:   []int{0, 1, 2},
		},
		{
			name:       "mixed",
			priorities: []int{70, 50, 70, 100, 50},
			expected:   []int{3, 0, 2, 1, 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue := NewJobQueue()
			order := []int{}
			for i, priority := range tt.priorities {
				idx := i
				queue.Add(priority, func(tx *db.ContractTx) error {
					order = append(order, idx)
					return nil
				})
			}

			require.NoError(t, queue.Drain(nil))
			require.Equal(t, tt.expected, order)
			require.Equal(t, 0, queue.Len())
		})
	}
}

func TestJobQueueErrorCarriesCallSite(t *testing.T) {
	queue := NewJobQueue()
	queue.Add(50, func(tx *db.ContractTx) error {
		return fmt.Errorf("boom")
	})

	err := queue.Drain(nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "jobqueue_test.go")
	require.Contains(t, err.Error(), "boom")
	require.Equal(t, 0, queue.Len(), "failed drain must clear remaining jobs")
}

func TestJobQueueClear(t *testing.T) {
	queue := NewJobQueue()
	ran := false
	queue.Add(10, func(tx *db.ContractTx) error {
		ran = true
		return nil
	})
	queue.Clear()

	require.NoError(t, queue.Drain(nil))
	require.False(t, ran)
}
