package metrics

import (
	"crypto-alert-bot/internal/database"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoadRoundTrip(t *testing.T) {
	require.NoError(t, database.InitDB(filepath.Join(t.TempDir(), "bot.db")))
	t.Cleanup(func() { _ = database.CloseDB() })

	m := New(prometheus.NewRegistry())
	m.AlertsCreated.Add(5)
	m.AlertsTriggered.Add(2)
	m.Deliveries.WithLabelValues(OutcomePrimary).Add(1)
	m.Deliveries.WithLabelValues(OutcomeFailed).Inc()
	m.PriceUnavailable.WithLabelValues("rate_limited").Add(3)
	m.UpdateChannelsSet(-1001, "traders")
	m.MessagesPerChannel.WithLabelValues("-1001", "traders").Add(9)
	m.SaveToDB()

	restored := New(prometheus.NewRegistry())
	restored.LoadFromDB()

	assert.Equal(t, 5.0, testutil.ToFloat64(restored.AlertsCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(restored.AlertsTriggered))
	assert.Equal(t, 1.0, testutil.ToFloat64(restored.Deliveries.WithLabelValues(OutcomePrimary)))
	assert.Equal(t, 1.0, testutil.ToFloat64(restored.Deliveries.WithLabelValues(OutcomeFailed)))
	assert.Equal(t, 3.0, testutil.ToFloat64(restored.PriceUnavailable.WithLabelValues("rate_limited")))
	assert.Equal(t, 9.0, testutil.ToFloat64(restored.MessagesPerChannel.WithLabelValues("-1001", "traders")))
	assert.Equal(t, 1.0, testutil.ToFloat64(restored.ChannelsCount))
	assert.Equal(t, "traders", restored.ChannelsSet[-1001])
}

func TestUpdateChannelsSetCountsOnce(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.UpdateChannelsSet(42, "PrivateChat-42")
	m.UpdateChannelsSet(42, "PrivateChat-42")
	m.UpdateChannelsSet(43, "PrivateChat-43")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ChannelsCount))
}

func TestGetMetricValue(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ActiveAlerts.Set(4)
	m.CheckerTicks.Add(2)

	assert.Equal(t, 4.0, GetMetricValue(m.ActiveAlerts))
	assert.Equal(t, 2.0, GetMetricValue(m.CheckerTicks))
}
