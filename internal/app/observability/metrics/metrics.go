package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	LoginsTotal              metric.Int64Counter
	TokenRefreshesTotal      metric.Int64Counter
	OrdersCreatedTotal       metric.Int64Counter
	CollectionsRecordedTotal metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metrics instruments only once,
// using the Meter from the globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("fieldsale")
		var err error
		m := &AppMetrics{}

		m.LoginsTotal, err = meter.Int64Counter(
			"logins_total",
			metric.WithDescription("Total number of login attempts"),
			metric.WithUnit("{login}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create logins_total: %v", err)
		}

		m.TokenRefreshesTotal, err = meter.Int64Counter(
			"token_refreshes_total",
			metric.WithDescription("Total number of refresh-token exchanges"),
			metric.WithUnit("{refresh}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create token_refreshes_total: %v", err)
		}

		m.OrdersCreatedTotal, err = meter.Int64Counter(
			"orders_created_total",
			metric.WithDescription("Total number of orders created"),
			metric.WithUnit("{order}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create orders_created_total: %v", err)
		}

		m.CollectionsRecordedTotal, err = meter.Int64Counter(
			"collections_recorded_total",
			metric.WithDescription("Total number of payment collections recorded"),
			metric.WithUnit("{collection}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create collections_recorded_total: %v", err)
		}

		appMetrics = m
	})
}

// Get returns the global metrics instance. Callers must tolerate nil before
// InitAppMetrics has run (unit tests).
func Get() *AppMetrics {
	return appMetrics
}
