package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "courtline"

var (
	reservations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "seat_reservations_total",
			Help:      "Seat reservation outcomes",
		},
		[]string{"outcome"},
	)

	ticketSales = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticket_sales_total",
			Help:      "Recorded ticket sales by channel",
		},
		[]string{"channel"},
	)

	ticketsIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tickets_issued_total",
			Help:      "Issued tickets",
		},
	)

	commissionAmount = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "affiliate_commission_amount_total",
			Help:      "Commission credited to affiliates",
		},
	)

	ticketValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticket_validations_total",
			Help:      "Ticket redemption attempts",
		},
		[]string{"valid"},
	)

	payouts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "affiliate_payouts_total",
			Help:      "Affiliate payout results by status",
		},
		[]string{"status"},
	)

	inventoryConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inventory_cas_conflicts_total",
			Help:      "Inventory compare-and-swap retries",
		},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// 保留结果标签
const (
	ReservationReserved  = "reserved"
	ReservationCompleted = "completed"
	ReservationExpired   = "expired"
	ReservationRejected  = "rejected"
)

// TrackReservation 记录座位保留结果
func TrackReservation(outcome string) {
	reservations.WithLabelValues(outcome).Inc()
}

// TrackTicketSale 记录售票及出票数量
func TrackTicketSale(channel string, quantity int) {
	ticketSales.WithLabelValues(channel).Inc()
	if quantity > 0 {
		ticketsIssued.Add(float64(quantity))
	}
}

// TrackCommission 记录佣金金额
func TrackCommission(amount float64) {
	if amount > 0 {
		commissionAmount.Add(amount)
	}
}

// TrackValidation 记录核验结果
func TrackValidation(valid bool) {
	ticketValidations.WithLabelValues(strconv.FormatBool(valid)).Inc()
}

// TrackPayout 记录结算结果
func TrackPayout(status string) {
	payouts.WithLabelValues(status).Inc()
}

// TrackInventoryConflict 记录库存 CAS 冲突
func TrackInventoryConflict() {
	inventoryConflicts.Inc()
}

// ObserveHTTP 记录请求耗时
func ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
