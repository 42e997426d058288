package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"lpEngine/internal/model"
)

// Metrics holds the engine's Prometheus collectors. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	registry *prometheus.Registry

	OperationsTotal *prometheus.CounterVec
	SwapVolume      *prometheus.CounterVec
	PoolReserves    *prometheus.GaugeVec
	LPTokenSupply   *prometheus.GaugeVec
	PoolsCreated    prometheus.Counter
}

// New registers the engine collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "lpengine",
				Subsystem: "pool",
				Name:      "operations_total",
				Help:      "Pool operations by kind and outcome",
			},
			[]string{"op", "result"},
		),
		SwapVolume: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "lpengine",
				Subsystem: "pool",
				Name:      "swap_volume_total",
				Help:      "Swap input volume in base units",
			},
			[]string{"pool_id", "direction"},
		),
		PoolReserves: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "lpengine",
				Subsystem: "pool",
				Name:      "reserves",
				Help:      "Pool reserves in base units",
			},
			[]string{"pool_id", "side"},
		),
		LPTokenSupply: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "lpengine",
				Subsystem: "pool",
				Name:      "lp_supply",
				Help:      "Outstanding LP units",
			},
			[]string{"pool_id"},
		),
		PoolsCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "lpengine",
				Subsystem: "pool",
				Name:      "pools_created_total",
				Help:      "Pools initialized by this engine",
			},
		),
	}
}

// Registry exposes the private registry, e.g. for an HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveOperation counts one operation. result is "ok" or an error kind.
func (m *Metrics) ObserveOperation(op model.OpKind, result string) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(string(op), result).Inc()
}

// ObservePool publishes a committed pool state.
func (m *Metrics) ObservePool(state model.PoolState) {
	if m == nil {
		return
	}
	id := state.Config.PoolID
	m.PoolReserves.WithLabelValues(id, "x").Set(float64(state.Reserves.X))
	m.PoolReserves.WithLabelValues(id, "y").Set(float64(state.Reserves.Y))
	m.LPTokenSupply.WithLabelValues(id).Set(float64(state.LPSupply))
}

// ObserveSwap adds a swap's input amount to the volume counter.
func (m *Metrics) ObserveSwap(poolID string, xToY bool, amountIn uint64) {
	if m == nil {
		return
	}
	direction := "y_to_x"
	if xToY {
		direction = "x_to_y"
	}
	m.SwapVolume.WithLabelValues(poolID, direction).Add(float64(amountIn))
}

// PoolCreated counts one initialized pool.
func (m *Metrics) PoolCreated() {
	if m == nil {
		return
	}
	m.PoolsCreated.Inc()
}

// WriteTextfile dumps the registry in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
