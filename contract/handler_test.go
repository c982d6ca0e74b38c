package contract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScopeMatchesAction(t *testing.T) {
	scope := &Scope{
		Actions: []Filter{
			{Filter: "atomicassets:logmint", Deserialize: true},
			{Filter: "atomicassets:logburnasset", Deserialize: false},
			{Filter: "delphioracle:*", Deserialize: true},
		},
	}

	tests := []struct {
		name        string
		account     string
		action      string
		matched     bool
		deserialize bool
	}{
		{"exact match", "atomicassets", "logmint", true, true},
		{"match without deserialize", "atomicassets", "logburnasset", true, false},
		{"wildcard match", "delphioracle", "anything", true, true},
		{"wrong account", "atomicmarket", "logmint", false, false},
		{"wrong action", "atomicassets", "logtransfer", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matched, deserialize := scope.MatchesAction(tt.account, tt.action)
			require.Equal(t, tt.matched, matched)
			require.Equal(t, tt.deserialize, deserialize)
		})
	}
}

func TestScopeDeserializeUnion(t *testing.T) {
	// two filters select the same action; one wants decoding
	scope := &Scope{
		Actions: []Filter{
			{Filter: "atomicassets:acceptoffer", Deserialize: false},
			{Filter: "atomicassets:*", Deserialize: true},
		},
	}

	matched, deserialize := scope.MatchesAction("atomicassets", "acceptoffer")
	require.True(t, matched)
	require.True(t, deserialize)
}

func TestFilterAccount(t *testing.T) {
	filter := Filter{Filter: "atomicmarket:lognewsale"}
	require.Equal(t, "atomicmarket", filter.Account())

	broken := Filter{Filter: "noseparator"}
	require.Equal(t, "", broken.Account())
}

func TestScopeMatchesTable(t *testing.T) {
	merged := &Scope{
		Actions: []Filter{
			{Filter: "a:x", Deserialize: true},
			{Filter: "b:*", Deserialize: false},
		},
		Tables: []Filter{
			{Filter: "a:*", Deserialize: true},
		},
	}

	matched, _ := merged.MatchesTable("a", "assets")
	require.True(t, matched)
	matched, _ = merged.MatchesTable("b", "assets")
	require.False(t, matched)
}
