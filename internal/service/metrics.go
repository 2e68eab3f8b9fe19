package service

import (
	"learnjs_backend/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	LedgerOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Committed ledger operations by transaction type",
		},
		[]string{"type"},
	)
	LedgerCoins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_coins_total",
			Help: "Coins moved by committed ledger operations",
		},
		[]string{"type"},
	)
	LevelUnlocks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "level_unlocks_total",
			Help: "Level unlocks by kind (paid, free, reward)",
		},
		[]string{"kind"},
	)
	LevelCompletions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "level_completions_total",
			Help: "First-time level completions",
		},
	)
	ReferralsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "referrals_processed_total",
			Help: "Referral attempts by result",
		},
		[]string{"result"},
	)
	ReconcileDivergent = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_reconcile_divergent_users",
			Help: "Users whose balance differs from their transaction history at the last reconciliation",
		},
	)
)

func init() {
	prometheus.MustRegister(LedgerOps, LedgerCoins, LevelUnlocks, LevelCompletions, ReferralsProcessed, ReconcileDivergent)
}

func observeTransactions(txs ...*domain.Transaction) {
	for _, t := range txs {
		if t == nil {
			continue
		}
		LedgerOps.WithLabelValues(string(t.Type)).Inc()
		LedgerCoins.WithLabelValues(string(t.Type)).Add(float64(t.Amount))
	}
}
