package telegram

import (
	"context"
	"crypto-alert-bot/internal/alert"
	"crypto-alert-bot/internal/types"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAlertSet(t *testing.T) {
	req, err := parseAlertSet([]string{"bitcoin", "usd", ">", "60,000.5"})
	require.NoError(t, err)
	assert.Equal(t, alertRequest{asset: "bitcoin", currency: "usd", operator: types.GreaterThan, threshold: 60000.5}, req)

	req, err = parseAlertSet([]string{"eth", "eur", "less_than", "1500"})
	require.NoError(t, err)
	assert.Equal(t, types.LessThan, req.operator)

	_, err = parseAlertSet([]string{"bitcoin", "usd", ">"})
	assert.True(t, errors.Is(err, errAlertUsage))

	_, err = parseAlertSet([]string{"bitcoin", "usd", ">=", "1"})
	assert.True(t, errors.Is(err, alert.ErrInvalidOperator))

	_, err = parseAlertSet([]string{"bitcoin", "usd", "<", "lots"})
	assert.True(t, errors.Is(err, errBadPrice))
}

func TestAlertSetInGroupAndPrivate(t *testing.T) {
	b, _, m := newTestBot(t, stubPrices{})

	text := b.HandleUpdate(context.Background(), command(groupChat(), alice, "/alert set Bitcoin USD > 60000"))
	assert.Equal(t, "Alert created \\(id\\=1\\): bitcoin \\> 60000 USD", text)

	text = b.HandleUpdate(context.Background(), command(privateChat(alice), alice, "/alert set eth usd < 1500.5"))
	assert.Equal(t, "Alert created \\(id\\=2\\): eth < 1500\\.5 USD", text)

	entries := b.store.List()
	require.Len(t, entries, 2)
	require.NotNil(t, entries[0].Scope)
	assert.Equal(t, group, *entries[0].Scope)
	assert.Equal(t, group, entries[0].Destination)
	assert.Equal(t, alice, entries[0].Owner)
	assert.Nil(t, entries[1].Scope)
	assert.Equal(t, alice, entries[1].Destination)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AlertsCreated))
}

func TestAlertSetRejectsBadInput(t *testing.T) {
	b, _, m := newTestBot(t, stubPrices{})

	text := b.HandleUpdate(context.Background(), command(groupChat(), alice, "/alert set bitcoin usd >= 60000"))
	assert.Equal(t, "Operator must be '\\>' or '<'\\.", text)

	text = b.HandleUpdate(context.Background(), command(groupChat(), alice, "/alert set bitcoin usd > NaN"))
	assert.Contains(t, text, "Invalid argument")

	text = b.HandleUpdate(context.Background(), command(groupChat(), alice, "/alert set bitcoin"))
	assert.Contains(t, text, "Usage: /alert set")

	assert.Zero(t, b.store.Len())
	assert.Zero(t, testutil.ToFloat64(m.AlertsCreated))
}

func TestAlertListAppliesVisibility(t *testing.T) {
	b, _, _ := newTestBot(t, stubPrices{})
	ctx := context.Background()

	b.HandleUpdate(ctx, command(groupChat(), alice, "/alert set bitcoin usd > 60000"))
	b.HandleUpdate(ctx, command(privateChat(alice), alice, "/alert set eth usd < 1500"))
	b.HandleUpdate(ctx, command(groupChat(), bob, "/alert set doge usd > 1"))
	b.HandleUpdate(ctx, command(privateChat(bob), bob, "/alert set sol usd > 500"))

	text := b.HandleUpdate(ctx, command(groupChat(), alice, "/alert list"))
	assert.Contains(t, text, "\\[1\\] bitcoin \\> `60000` USD")
	assert.Contains(t, text, "\\[2\\] eth < `1500` USD")
	assert.NotContains(t, text, "doge")
	assert.NotContains(t, text, "sol")

	text = b.HandleUpdate(ctx, command(privateChat(alice), alice, "/alert list"))
	assert.Contains(t, text, "eth")
	assert.NotContains(t, text, "bitcoin")

	text = b.HandleUpdate(ctx, command(privateChat(999), 999, "/alert list"))
	assert.Equal(t, "No alerts found for this context\\.", text)
}

func TestAlertRemoveChecksOwner(t *testing.T) {
	b, _, m := newTestBot(t, stubPrices{})
	ctx := context.Background()

	b.HandleUpdate(ctx, command(groupChat(), alice, "/alert set bitcoin usd > 60000"))

	text := b.HandleUpdate(ctx, command(groupChat(), bob, "/alert remove 1"))
	assert.Equal(t, "Alert 1 belongs to another user\\.", text)
	assert.Equal(t, 1, b.store.Len())

	text = b.HandleUpdate(ctx, command(privateChat(alice), alice, "/alert remove #1"))
	assert.Equal(t, "Removed alert 1\\.", text)
	assert.Zero(t, b.store.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AlertsRemoved))

	text = b.HandleUpdate(ctx, command(privateChat(alice), alice, "/alert remove 1"))
	assert.Equal(t, "No alert with id 1\\.", text)

	text = b.HandleUpdate(ctx, command(privateChat(alice), alice, "/alert remove one"))
	assert.Contains(t, text, "Usage: /alert remove")
}

func TestAlertClearRequiresGroupAdmin(t *testing.T) {
	b, c, m := newTestBot(t, stubPrices{})
	ctx := context.Background()

	b.HandleUpdate(ctx, command(groupChat(), alice, "/alert set bitcoin usd > 60000"))
	b.HandleUpdate(ctx, command(groupChat(), alice, "/alert set eth usd < 1000"))
	b.HandleUpdate(ctx, command(privateChat(bob), bob, "/alert set eth usd > 1"))

	text := b.HandleUpdate(ctx, command(privateChat(alice), alice, "/alert clear"))
	assert.Equal(t, "Clearing alerts is only available in groups\\.", text)

	text = b.HandleUpdate(ctx, command(groupChat(), alice, "/alert clear"))
	assert.Equal(t, "You don't have permission to use this command\\.", text)

	c.err = errors.New("Bad Request: chat not found")
	text = b.HandleUpdate(ctx, command(groupChat(), alice, "/alert clear"))
	assert.Contains(t, text, "unexpected error")
	assert.Equal(t, 3, b.store.Len())

	c.err = nil
	c.status = "administrator"
	text = b.HandleUpdate(ctx, command(groupChat(), alice, "/alert clear"))
	assert.Equal(t, "Cleared 2 alerts in this group\\.", text)
	require.Len(t, b.store.List(), 1)
	assert.Equal(t, bob, b.store.List()[0].Owner, "private alerts survive a group clear")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AlertsRemoved))
}

func TestAlertClearInOwnGroupLeavesOtherChats(t *testing.T) {
	b, c, _ := newTestBot(t, stubPrices{})
	ctx := context.Background()

	b.HandleUpdate(ctx, command(groupChat(), alice, "/alert set bitcoin usd > 60000"))
	b.HandleUpdate(ctx, command(privateChat(bob), bob, "/alert set eth usd > 1"))

	const stranger int64 = 666
	ownGroup := &tgbotapi.Chat{ID: -999, Type: "group", Title: "mine"}
	c.status = "creator"

	text := b.HandleUpdate(ctx, command(ownGroup, stranger, "/alert clear"))
	assert.Equal(t, "Cleared 0 alerts in this group\\.", text)
	assert.Equal(t, 2, b.store.Len())
}

func TestAlertClearByOperatorIsGlobal(t *testing.T) {
	b, _, m := newTestBot(t, stubPrices{})
	ctx := context.Background()
	b.Config.Operators = []int64{bob}

	b.HandleUpdate(ctx, command(groupChat(), alice, "/alert set bitcoin usd > 60000"))
	b.HandleUpdate(ctx, command(privateChat(alice), alice, "/alert set eth usd > 1"))

	text := b.HandleUpdate(ctx, command(privateChat(bob), bob, "/alert clear"))
	assert.Equal(t, "All alerts cleared\\.", text)
	assert.Zero(t, b.store.Len())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AlertsRemoved))
}

func TestAlertWithoutSubcommandShowsUsage(t *testing.T) {
	b, _, _ := newTestBot(t, stubPrices{})

	assert.Contains(t, b.HandleUpdate(context.Background(), command(groupChat(), alice, "/alert")), "Usage:")
	assert.Contains(t, b.HandleUpdate(context.Background(), command(groupChat(), alice, "/alert snooze 1")), "Usage:")
}
