package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	purchasesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canteen_purchases_total",
		Help: "Purchase attempts by result",
	}, []string{"result"})

	rechargesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "canteen_recharges_total",
		Help: "Successful balance recharges",
	})
)
