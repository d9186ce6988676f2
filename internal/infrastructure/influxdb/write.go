package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteTickDuration records how long one update cycle took. Called
// every tick from the update loop; the point is queued, not sent.
func (c *Client) WriteTickDuration(tick uint64, duration time.Duration) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(
		"loop_tick",
		map[string]string{},
		map[string]interface{}{
			"tick":        int64(tick), //nolint:gosec // tick counter, wraps long after heat death
			"duration_us": duration.Microseconds(),
		},
		time.Now(),
	))
}

// WriteUpdateError records a controller update failure at a tick.
func (c *Client) WriteUpdateError(tick uint64, controller string) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(
		"update_errors",
		map[string]string{"controller": controller},
		map[string]interface{}{
			"tick":  int64(tick), //nolint:gosec // tick counter
			"count": 1,
		},
		time.Now(),
	))
}

// WriteTransition records a lifecycle state change with the reason
// that caused it (configure, switch, finalize).
func (c *Client) WriteTransition(controller, from, to, reason string) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(
		"controller_transitions",
		map[string]string{
			"controller": controller,
			"reason":     reason,
		},
		map[string]interface{}{
			"from": from,
			"to":   to,
		},
		time.Now(),
	))
}

// WriteSwitchExecution records an applied switch plan: how many
// controllers started and stopped, whether any step failed, and how
// long the application took within its tick.
func (c *Client) WriteSwitchExecution(started, stopped int, failed bool, duration time.Duration) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(
		"switch_executions",
		map[string]string{"failed": strconv.FormatBool(failed)},
		map[string]interface{}{
			"started":     started,
			"stopped":     stopped,
			"duration_us": duration.Microseconds(),
		},
		time.Now(),
	))
}
