package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ingestBatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "txsemantics",
		Subsystem: "ingester",
		Name:      "batches_total",
		Help:      "Count of processed block batches.",
	}, []string{"chain", "status"})
	ingestBatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "txsemantics",
		Subsystem: "ingester",
		Name:      "batch_duration_seconds",
		Help:      "Duration of block batch processing.",
		Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"chain", "status"})
	ingestRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "txsemantics",
		Subsystem: "ingester",
		Name:      "records_total",
		Help:      "Count of canonical records written, by record type.",
	}, []string{"chain", "record"})
	ingestMalformedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "txsemantics",
		Subsystem: "ingester",
		Name:      "malformed_payloads_total",
		Help:      "Count of provider payloads rejected by the normalizer.",
	}, []string{"chain", "record"})
	ingestLastBlock = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "txsemantics",
		Subsystem: "ingester",
		Name:      "last_block",
		Help:      "Last block number checkpointed by the ingester.",
	}, []string{"chain"})
)

// Ingester tracks ingestion runner progress for one chain.
type Ingester struct {
	chain string
}

// NewIngester creates an Ingester metrics collector.
func NewIngester(chainID uint64) *Ingester {
	chain := "unknown"
	if chainID != 0 {
		chain = strconv.FormatUint(chainID, 10)
	}
	return &Ingester{chain: chain}
}

// ObserveBatch records the outcome of one block batch.
func (m Ingester) ObserveBatch(err error, lastBlock uint64, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	ingestBatchTotal.WithLabelValues(m.chain, status).Inc()
	ingestBatchDuration.WithLabelValues(m.chain, status).Observe(time.Since(started).Seconds())
	if err == nil {
		ingestLastBlock.WithLabelValues(m.chain).Set(float64(lastBlock))
	}
}

// AddRecords counts canonical records of one type.
func (m Ingester) AddRecords(record string, n int) {
	if n <= 0 {
		return
	}
	ingestRecordsTotal.WithLabelValues(m.chain, record).Add(float64(n))
}

// IncMalformed counts a payload the normalizer rejected.
func (m Ingester) IncMalformed(record string) {
	ingestMalformedTotal.WithLabelValues(m.chain, record).Inc()
}
