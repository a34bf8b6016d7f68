package metrics

import (
	"crypto-alert-bot/internal/database"
	"fmt"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	log "github.com/sirupsen/logrus"
)

const (
	namespace = "crypto_alert"
	subsystem = "telegram_bot"
)

// Delivery outcomes of a fired alert.
const (
	OutcomePrimary  = "primary"
	OutcomeFallback = "fallback"
	OutcomeFailed   = "failed"
)

type Metrics struct {
	CommandsProcessed  prometheus.Counter
	MessagesHandled    prometheus.Counter
	ChannelsCount      prometheus.Gauge
	ChannelNames       *prometheus.CounterVec
	MessagesPerChannel *prometheus.CounterVec

	AlertsCreated    prometheus.Counter
	AlertsRemoved    prometheus.Counter
	AlertsTriggered  prometheus.Counter
	Deliveries       *prometheus.CounterVec
	PriceUnavailable *prometheus.CounterVec
	CheckerTicks     prometheus.Counter
	TickDuration     prometheus.Histogram
	ActiveAlerts     prometheus.Gauge

	ChannelsSet map[int64]string
	Mutex       sync.Mutex
}

func counter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	})
}

func counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

// New builds the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CommandsProcessed: counter("commands_processed", "The total number of processed commands"),
		MessagesHandled:   counter("messages_handled", "The total number of handled messages"),
		ChannelsCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "channels_count",
			Help:      "The current number of unique channels the bot is operating in",
		}),
		ChannelNames:       counterVec("channel_names", "Tracks channels the bot has interacted with", "chat_id", "chat_name"),
		MessagesPerChannel: counterVec("messages_per_channel", "The total number of messages handled per channel", "chat_id", "chat_name"),

		AlertsCreated:    counter("alerts_created", "The total number of alerts created"),
		AlertsRemoved:    counter("alerts_removed", "The total number of alerts removed by users"),
		AlertsTriggered:  counter("alerts_triggered", "The total number of alerts whose condition fired"),
		Deliveries:       counterVec("alert_deliveries", "Fired alerts by delivery outcome", "outcome"),
		PriceUnavailable: counterVec("price_unavailable", "Asset/currency groups skipped because no price was available", "reason"),
		CheckerTicks:     counter("checker_ticks", "The total number of completed alert checker ticks"),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "checker_tick_seconds",
			Help:      "Duration of alert checker ticks",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		ActiveAlerts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "active_alerts",
			Help:      "The number of alerts waiting to fire",
		}),

		ChannelsSet: make(map[int64]string),
	}

	reg.MustRegister(
		m.CommandsProcessed,
		m.MessagesHandled,
		m.ChannelsCount,
		m.ChannelNames,
		m.MessagesPerChannel,
		m.AlertsCreated,
		m.AlertsRemoved,
		m.AlertsTriggered,
		m.Deliveries,
		m.PriceUnavailable,
		m.CheckerTicks,
		m.TickDuration,
		m.ActiveAlerts,
	)

	return m
}

// UpdateChannelsSet records a chat the first time the bot sees it.
func (m *Metrics) UpdateChannelsSet(chatID int64, chatName string) {
	m.Mutex.Lock()
	defer m.Mutex.Unlock()

	if _, exists := m.ChannelsSet[chatID]; !exists {
		m.ChannelsSet[chatID] = chatName
		m.ChannelsCount.Set(float64(len(m.ChannelsSet)))

		m.ChannelNames.WithLabelValues(fmt.Sprintf("%d", chatID), chatName).Inc()
	}
}

// plain lists the unlabeled counters persisted across restarts.
func (m *Metrics) plain() map[string]prometheus.Counter {
	return map[string]prometheus.Counter{
		"commands_processed": m.CommandsProcessed,
		"messages_handled":   m.MessagesHandled,
		"alerts_created":     m.AlertsCreated,
		"alerts_removed":     m.AlertsRemoved,
		"alerts_triggered":   m.AlertsTriggered,
		"checker_ticks":      m.CheckerTicks,
	}
}

// LoadFromDB restores counters saved by SaveToDB.
func (m *Metrics) LoadFromDB() {
	m.Mutex.Lock()
	defer m.Mutex.Unlock()

	for name, c := range m.plain() {
		v, err := database.GetMetric(name)
		if err != nil {
			log.Errorf("Failed to load metric %s: %v", name, err)
			continue
		}
		c.Add(v)
	}

	loadLabeledMetrics("channel_names", func(chatIDStr, chatName string, _ float64) {
		chatID, err := strconv.ParseInt(chatIDStr, 10, 64)
		if err != nil {
			log.Errorf("Failed to parse chatID %s: %v", chatIDStr, err)
			return
		}
		m.ChannelNames.WithLabelValues(chatIDStr, chatName).Add(1)
		m.ChannelsSet[chatID] = chatName
	})
	m.ChannelsCount.Set(float64(len(m.ChannelsSet)))

	loadLabeledMetrics("messages_per_channel", func(chatID, chatName string, value float64) {
		m.MessagesPerChannel.WithLabelValues(chatID, chatName).Add(value)
	})
	loadLabeledMetrics("alert_deliveries", func(_, outcome string, value float64) {
		m.Deliveries.WithLabelValues(outcome).Add(value)
	})
	loadLabeledMetrics("price_unavailable", func(_, reason string, value float64) {
		m.PriceUnavailable.WithLabelValues(reason).Add(value)
	})

	log.Info("Metrics loaded from database.")
}

func loadLabeledMetrics(metricName string, callback func(labelKey, labelValue string, value float64)) {
	metricsWithLabels, err := database.GetMetricsWithLabels(metricName)
	if err != nil {
		log.Errorf("Failed to load metric %s: %v", metricName, err)
		return
	}
	for labelKey, labelValues := range metricsWithLabels {
		for labelValue, value := range labelValues {
			callback(labelKey, labelValue, value)
		}
	}
}

// SaveToDB snapshots counters into the metrics table in one transaction.
func (m *Metrics) SaveToDB() {
	m.Mutex.Lock()
	defer m.Mutex.Unlock()

	var rows []database.MetricRow
	for name, c := range m.plain() {
		rows = append(rows, database.MetricRow{Name: name, Value: GetMetricValue(c)})
	}

	for chatID, chatName := range m.ChannelsSet {
		rows = append(rows, database.MetricRow{
			Name:       "channel_names",
			LabelKey:   fmt.Sprintf("%d", chatID),
			LabelValue: chatName,
			Value:      float64(chatID),
		})
	}

	rows = append(rows, labeledRows("messages_per_channel", m.MessagesPerChannel, "chat_id", "chat_name")...)
	rows = append(rows, labeledRows("alert_deliveries", m.Deliveries, "", "outcome")...)
	rows = append(rows, labeledRows("price_unavailable", m.PriceUnavailable, "", "reason")...)

	if err := database.SaveMetrics(rows); err != nil {
		log.Errorf("Failed to save metrics: %v", err)
		return
	}
	log.Info("Metrics saved to database.")
}

// labeledRows reads every series of vec. An empty keyLabel stores the label
// name itself as the key column.
func labeledRows(metricName string, vec *prometheus.CounterVec, keyLabel, valueLabel string) []database.MetricRow {
	metricChan := make(chan prometheus.Metric, 1)
	go func() {
		vec.Collect(metricChan)
		close(metricChan)
	}()

	var rows []database.MetricRow
	for metric := range metricChan {
		metricProto := &dto.Metric{}
		if err := metric.Write(metricProto); err != nil {
			log.Errorf("Failed to read %s metric: %v", metricName, err)
			continue
		}
		key, value := keyLabel, ""
		if keyLabel == "" {
			key = valueLabel
		}
		for _, label := range metricProto.Label {
			if keyLabel != "" && label.GetName() == keyLabel {
				key = label.GetValue()
			}
			if label.GetName() == valueLabel {
				value = label.GetValue()
			}
		}
		rows = append(rows, database.MetricRow{
			Name:       metricName,
			LabelKey:   key,
			LabelValue: value,
			Value:      metricProto.Counter.GetValue(),
		})
	}
	return rows
}

// GetMetricValue reads the current value of a counter or gauge.
func GetMetricValue(metric prometheus.Collector) float64 {
	var metricValue float64
	metricChan := make(chan prometheus.Metric, 1)
	metric.Collect(metricChan)
	close(metricChan)

	metricProto := &dto.Metric{}
	if err := (<-metricChan).Write(metricProto); err != nil {
		log.Errorf("Failed to read metric value: %v", err)
		return 0
	}

	if metricProto.Counter != nil {
		metricValue = metricProto.Counter.GetValue()
	} else if metricProto.Gauge != nil {
		metricValue = metricProto.Gauge.GetValue()
	}
	return metricValue
}
