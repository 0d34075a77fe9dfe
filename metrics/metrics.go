package metrics

import (
	"strconv"

	"github.com/fundme/meta"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 交易执行相关的 prometheus 指标
type Metrics struct {
	Deposits     *prometheus.CounterVec
	Withdrawals  *prometheus.CounterVec
	Transactions *prometheus.CounterVec
	GasUsed      *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Deposits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fundme_deposits_total",
			Help: "Total number of deposits, labeled by result",
		}, []string{"result"}),
		Withdrawals: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fundme_withdrawals_total",
			Help: "Total number of withdrawals, labeled by variant and result",
		}, []string{"variant", "result"}),
		Transactions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fundme_transactions_total",
			Help: "Total number of mined transactions, labeled by contract and status",
		}, []string{"contract", "status"}),
		GasUsed: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fundme_gas_used",
			Help:    "Gas used per transaction, labeled by method",
			Buckets: prometheus.ExponentialBuckets(21000, 2, 10),
		}, []string{"method"}),
	}
}

// Default 注册在 prometheus 默认 registry 上
var Default = newMetrics(prometheus.DefaultRegisterer)

// 测试时使用独立的 registry
func New(reg prometheus.Registerer) *Metrics {
	return newMetrics(reg)
}

// 按回执统计
func (m *Metrics) ObserveReceipt(r meta.Receipt) {
	result := "success"
	if r.Status != meta.ReceiptStatusSuccess {
		result = "failure"
	}
	m.Transactions.WithLabelValues(r.Contract, strconv.Itoa(r.Status)).Inc()
	m.GasUsed.WithLabelValues(r.Method).Observe(float64(r.GasUsed))

	switch r.Method {
	case "fund", "receive", "fallback":
		m.Deposits.WithLabelValues(result).Inc()
	case "withdraw", "cheaperWithdraw":
		m.Withdrawals.WithLabelValues(r.Method, result).Inc()
	}
}
