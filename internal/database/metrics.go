package database

import (
	"database/sql"
	"fmt"

	log "github.com/sirupsen/logrus"
)

const upsertMetric = `
	INSERT OR REPLACE INTO metrics (metric_name, label_key, label_value, metric_value)
	VALUES (?, ?, ?, ?);`

// MetricRow is one stored series. Unlabeled metrics leave both label
// columns empty.
type MetricRow struct {
	Name       string
	LabelKey   string
	LabelValue string
	Value      float64
}

// SaveMetrics writes a whole snapshot in one transaction.
func SaveMetrics(rows []MetricRow) error {
	tx, err := DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin metrics snapshot: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(upsertMetric)
	if err != nil {
		return fmt.Errorf("failed to prepare metrics snapshot: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.Exec(row.Name, row.LabelKey, row.LabelValue, row.Value); err != nil {
			return fmt.Errorf("failed to save metric %s: %w", row.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit metrics snapshot: %w", err)
	}
	log.Debugf("Saved %d metric rows", len(rows))
	return nil
}

// GetMetric returns the stored value of an unlabeled metric, or 0 when it
// was never saved.
func GetMetric(metricName string) (float64, error) {
	var value float64
	query := `
	SELECT metric_value
	FROM metrics
	WHERE metric_name = ? AND label_key = '' AND label_value = '';`
	err := DB.QueryRow(query, metricName).Scan(&value)
	if err == sql.ErrNoRows {
		log.Debugf("Metric %s not found in the database, defaulting to 0", metricName)
		return 0, nil
	} else if err != nil {
		return 0, fmt.Errorf("failed to get metric %s: %w", metricName, err)
	}
	log.Debugf("Metric loaded: %s = %f", metricName, value)
	return value, nil
}

// GetMetricsWithLabels fetches all labeled rows for a given metric name
func GetMetricsWithLabels(metricName string) (map[string]map[string]float64, error) {
	query := `
	SELECT label_key, label_value, metric_value
	FROM metrics
	WHERE metric_name = ? AND label_key <> '';`

	rows, err := DB.Query(query, metricName)
	if err != nil {
		return nil, fmt.Errorf("failed to query metrics with labels: %w", err)
	}
	defer rows.Close()

	metrics := make(map[string]map[string]float64)
	for rows.Next() {
		var labelKey, labelValue string
		var value float64
		if err := rows.Scan(&labelKey, &labelValue, &value); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		if _, exists := metrics[labelKey]; !exists {
			metrics[labelKey] = make(map[string]float64)
		}
		metrics[labelKey][labelValue] = value
	}
	return metrics, rows.Err()
}
