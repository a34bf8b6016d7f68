package alert

import (
	"crypto-alert-bot/internal/types"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVisible(t *testing.T) {
	const (
		alice int64 = 1
		bob   int64 = 2
	)
	groupA, groupB := scope(-10), scope(-20)

	cases := []struct {
		name   string
		entry  types.AlertEntry
		chat   *int64
		caller int64
		want   bool
	}{
		{"own private alert in private chat", types.AlertEntry{Owner: alice}, nil, alice, true},
		{"own group alert in private chat", types.AlertEntry{Owner: alice, Scope: groupA}, nil, alice, false},
		{"other user's private alert in private chat", types.AlertEntry{Owner: bob}, nil, alice, false},
		{"own alert tied to this group", types.AlertEntry{Owner: alice, Scope: groupA}, groupA, alice, true},
		{"own private alert in a group", types.AlertEntry{Owner: alice}, groupA, alice, true},
		{"own alert tied to another group", types.AlertEntry{Owner: alice, Scope: groupB}, groupA, alice, false},
		{"other user's alert tied to this group", types.AlertEntry{Owner: bob, Scope: groupA}, groupA, alice, false},
		{"other user's private alert in a group", types.AlertEntry{Owner: bob}, groupA, alice, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Visible(tc.entry, tc.chat, tc.caller))
		})
	}
}

func TestVisibleToKeepsOrder(t *testing.T) {
	entries := []types.AlertEntry{
		{ID: 1, Owner: 1},
		{ID: 2, Owner: 2},
		{ID: 3, Owner: 1, Scope: scope(-10)},
		{ID: 4, Owner: 1},
	}

	assert.Equal(t, []uint64{1, 3, 4}, ids(VisibleTo(entries, scope(-10), 1)))
	assert.Equal(t, []uint64{1, 4}, ids(VisibleTo(entries, nil, 1)))
	assert.Empty(t, VisibleTo(entries, nil, 3))
}
