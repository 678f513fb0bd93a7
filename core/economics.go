package core

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/signalsfoundry/orbital-energy-sim/internal/logging"
	"github.com/signalsfoundry/orbital-energy-sim/model"
)

// LedgerMirror is an optional external write-once ledger the economics
// engine offers transactions to. Implementations are best-effort: the
// core never awaits or depends on the outcome.
type LedgerMirror interface {
	Offer(ctx context.Context, txn *model.Transaction)
}

type noopMirror struct{}

func (noopMirror) Offer(context.Context, *model.Transaction) {}

// NoopMirror returns a mirror that drops everything.
func NoopMirror() LedgerMirror { return noopMirror{} }

// Economics computes scarcity-based spot prices and records immutable
// transactions whenever energy moves between a satellite (or Earth) and
// a drone.
//
// ProcessTransfer mutates participant counters, so its callers must hold
// the world lock; the ledger itself has a separate mutex so API reads do
// not contend with the tick loop.
type Economics struct {
	world  *World
	cfg    *Config
	notify Notifier
	log    logging.Logger
	mirror LedgerMirror

	mu          sync.Mutex
	ledger      []*model.Transaction
	totalVolume float64
}

// NewEconomics wires the engine against the world. A nil mirror degrades
// to a no-op.
func NewEconomics(w *World, cfg *Config, notify Notifier, log logging.Logger, mirror LedgerMirror) *Economics {
	if notify == nil {
		notify = NoopNotifier()
	}
	if log == nil {
		log = logging.Noop()
	}
	if mirror == nil {
		mirror = NoopMirror()
	}
	return &Economics{world: w, cfg: cfg, notify: notify, log: log, mirror: mirror}
}

// CalculateDynamicPrice returns the spot price per energy unit for a
// satellite: a scarcity-tiered multiplier on the base price, keyed on
// the satellite's current energy utilization.
func (e *Economics) CalculateDynamicPrice(s *model.Satellite) float64 {
	util := s.Utilization()
	var multiplier float64
	switch {
	case util < 0.2:
		multiplier = 2.5
	case util < 0.4:
		multiplier = 1.8
	case util < 0.6:
		multiplier = 1.3
	case util < 0.8:
		multiplier = 1.0
	default:
		multiplier = 0.7 // abundance discount
	}
	return e.cfg.BaseEnergyPrice * multiplier
}

// ProcessTransfer records one energy transfer. A nil satellite means the
// energy came from Earth, which is always free and leaves every
// financial counter untouched. Caller must hold the world lock.
func (e *Economics) ProcessTransfer(from *model.Satellite, to *model.Drone, amount float64, tt model.TransferType) *model.Transaction {
	txn := &model.Transaction{
		ID:           model.NewID("txn"),
		Timestamp:    time.Now(),
		ToEntityID:   to.ID,
		ToCompany:    to.CompanyName,
		ToWallet:     to.OwnerWallet,
		EnergyAmount: amount,
		Type:         tt,
		Status:       "completed",
	}

	if from == nil {
		txn.FromEntityID = model.EarthEntityID
		txn.FromCompany = "Earth Energy Authority"
		txn.FromWallet = "earth-central"
	} else {
		price := e.CalculateDynamicPrice(from)
		total := amount * price

		txn.FromEntityID = from.ID
		txn.FromCompany = from.CompanyName
		txn.FromWallet = from.OwnerWallet
		txn.PricePerUnit = price
		txn.TotalCost = total

		from.TotalRevenue += total
		from.TotalEnergySold += amount
		to.TotalSpent += total
		to.TotalEnergyBought += amount
	}

	e.mu.Lock()
	e.ledger = append(e.ledger, txn)
	if len(e.ledger) > e.cfg.LedgerCapacity {
		e.ledger = e.ledger[len(e.ledger)-e.cfg.LedgerCapacity:]
	}
	if from != nil {
		e.totalVolume += txn.TotalCost
	}
	e.mu.Unlock()

	e.notify.Notify("transaction.completed", map[string]any{
		"transaction_id": txn.ID,
		"from":           txn.FromCompany,
		"to":             txn.ToCompany,
		"amount":         amount,
		"cost":           txn.TotalCost,
		"type":           string(tt),
	})

	// Best-effort mirror offer; failure or absence never reaches the core.
	go func(t model.Transaction) {
		defer func() { _ = recover() }()
		e.mirror.Offer(context.Background(), &t)
	}(*txn)

	return txn
}

// RecentTransactions returns up to n most recent ledger entries, newest last.
func (e *Economics) RecentTransactions(n int) []*model.Transaction {
	e.mu.Lock()
	defer e.mu.Unlock()
	if n <= 0 || n > len(e.ledger) {
		n = len(e.ledger)
	}
	out := make([]*model.Transaction, n)
	copy(out, e.ledger[len(e.ledger)-n:])
	return out
}

// TotalVolume returns the global traded-volume counter.
func (e *Economics) TotalVolume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalVolume
}

// ParticipantSummary is one row of the earners/spenders leaderboards.
type ParticipantSummary struct {
	Company string  `json:"company"`
	ID      string  `json:"id"`
	Amount  float64 `json:"amount"`
	Energy  float64 `json:"energy"`
}

// EfficiencySummary describes the most or least efficient satellite,
// measured as energy sold per unit revenue.
type EfficiencySummary struct {
	Company    string  `json:"company"`
	ID         string  `json:"id"`
	Efficiency float64 `json:"efficiency"`
	Revenue    float64 `json:"revenue"`
}

// MarketMetrics is the read-only aggregate view served by the API.
type MarketMetrics struct {
	TotalVolume       float64              `json:"total_volume"`
	TotalTransactions int                  `json:"total_transactions"`
	TopEarners        []ParticipantSummary `json:"top_earning_satellites"`
	TopSpenders       []ParticipantSummary `json:"top_spending_drones"`
	MostEfficient     *EfficiencySummary   `json:"most_efficient_satellite"`
	LeastEfficient    *EfficiencySummary   `json:"least_efficient_satellite"`
	Recent            []*model.Transaction `json:"recent_transactions"`
}

// Metrics computes the system-wide economic aggregates under the world
// lock. It never mutates state.
func (e *Economics) Metrics() *MarketMetrics {
	m := &MarketMetrics{}

	e.world.WithLock(func() {
		for _, s := range e.world.satellites {
			m.TopEarners = append(m.TopEarners, ParticipantSummary{
				Company: s.CompanyName, ID: s.ID,
				Amount: s.TotalRevenue, Energy: s.TotalEnergySold,
			})
			if s.TotalRevenue > 0 {
				eff := s.TotalEnergySold / s.TotalRevenue
				if m.MostEfficient == nil || eff > m.MostEfficient.Efficiency {
					m.MostEfficient = &EfficiencySummary{
						Company: s.CompanyName, ID: s.ID,
						Efficiency: eff, Revenue: s.TotalRevenue,
					}
				}
				if m.LeastEfficient == nil || eff < m.LeastEfficient.Efficiency {
					m.LeastEfficient = &EfficiencySummary{
						Company: s.CompanyName, ID: s.ID,
						Efficiency: eff, Revenue: s.TotalRevenue,
					}
				}
			}
		}
		for _, d := range e.world.drones {
			m.TopSpenders = append(m.TopSpenders, ParticipantSummary{
				Company: d.CompanyName, ID: d.ID,
				Amount: d.TotalSpent, Energy: d.TotalEnergyBought,
			})
		}
	})

	sort.Slice(m.TopEarners, func(i, j int) bool { return m.TopEarners[i].Amount > m.TopEarners[j].Amount })
	sort.Slice(m.TopSpenders, func(i, j int) bool { return m.TopSpenders[i].Amount > m.TopSpenders[j].Amount })
	if len(m.TopEarners) > 3 {
		m.TopEarners = m.TopEarners[:3]
	}
	if len(m.TopSpenders) > 3 {
		m.TopSpenders = m.TopSpenders[:3]
	}

	e.mu.Lock()
	m.TotalVolume = e.totalVolume
	m.TotalTransactions = len(e.ledger)
	e.mu.Unlock()
	m.Recent = e.RecentTransactions(10)

	return m
}
