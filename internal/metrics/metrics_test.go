package metrics

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAndGauges(t *testing.T) {
	m := NewMetrics()

	m.IncrementCounter("work_orders_created")
	m.IncrementCounter("work_orders_created")
	m.IncrementCounter("notifications_queued")
	m.SetGauge("inventory_low_stock_rows", 3)
	m.SetGauge("inventory_low_stock_rows", 1)

	counters := m.Counters()
	assert.EqualValues(t, 2, counters["work_orders_created"])
	assert.EqualValues(t, 1, counters["notifications_queued"])
	assert.EqualValues(t, 1, m.Gauges()["inventory_low_stock_rows"])
}

func TestOutcomesComputeErrorRate(t *testing.T) {
	m := NewMetrics()

	m.RecordSuccess("work_order_confirm")
	m.RecordSuccess("work_order_confirm")
	m.RecordError("work_order_confirm")
	m.RecordError("notification_delivery")

	outcomes := m.Outcomes()
	confirm := outcomes["work_order_confirm"]
	assert.EqualValues(t, 3, confirm.Total)
	assert.EqualValues(t, 1, confirm.Errors)
	assert.InDelta(t, 33.3, confirm.ErrorRate, 0.1)

	delivery := outcomes["notification_delivery"]
	assert.EqualValues(t, 1, delivery.Total)
	assert.InDelta(t, 100.0, delivery.ErrorRate, 0.01)
}

func TestHealthChecks(t *testing.T) {
	m := NewMetrics()

	m.SetHealth("database", true)
	m.SetHealth("cache", false)

	checks := m.HealthChecks()
	require.Len(t, checks, 2)
	assert.True(t, checks["database"])
	assert.False(t, checks["cache"])

	m.SetHealth("cache", true)
	assert.True(t, m.HealthChecks()["cache"])
}

func TestConcurrentRecording(t *testing.T) {
	m := NewMetrics()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				m.IncrementCounter("notifications_queued")
				m.RecordSuccess("notification_delivery")
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1000, m.Counters()["notifications_queued"])
	assert.EqualValues(t, 1000, m.Outcomes()["notification_delivery"].Total)
}
