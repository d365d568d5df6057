package market

import (
	"sort"
	"sync"
	"time"

	"github.com/tolelom/signedledger/crypto"
	"github.com/tolelom/signedledger/ledger"
)

// Matcher holds the resting order book and matches incoming orders against
// it. It does not sign the Trade transactions it produces: a trade only
// needs the two accounts belonging to the order it fills (see Trade's
// required signatures), and those signatures belong to the order's owner,
// not the host running the matcher. AddOrder posts each Trade transaction into
// the owning accounts' inboxes; the owner's client signs it off the normal
// queue the way it signs any other pending transaction.
type Matcher struct {
	mu    sync.Mutex
	l     *ledger.Ledger
	buys  []*Order
	sells []*Order
}

// NewMatcher builds a Matcher backed by l. Trade transactions it produces
// are posted through l.PostTransaction.
func NewMatcher(l *ledger.Ledger) *Matcher {
	return &Matcher{l: l}
}

// AddOrder records a freshly-accepted Offer transaction as a resting order
// and immediately tries to match it against the opposite side of the book.
func (m *Matcher) AddOrder(trxID crypto.Hash, off *ledger.Offer, now time.Time) ([]*ledger.Transaction, error) {
	order := orderFromOffer(trxID, off)

	m.mu.Lock()
	defer m.mu.Unlock()

	if order.Type == Buy {
		trxs, err := m.matchBuy(order, now)
		if err != nil {
			return nil, err
		}
		if order.Unfilled() > 0 {
			m.buys = append(m.buys, order)
		}
		return trxs, nil
	}
	trxs, err := m.matchSell(order, now)
	if err != nil {
		return nil, err
	}
	if order.Unfilled() > 0 {
		m.sells = append(m.sells, order)
	}
	return trxs, nil
}

func inWindow(o *Order, now time.Time) bool {
	ms := uint64(now.UnixMilli())
	return ms >= o.Start && ms <= o.End
}

// matchBuy fills incoming buy order o against resting sell orders priced at
// or below o.Price, cheapest first, until o is filled or the book is
// exhausted. Grounded on the original system's market::submit_order buy
// branch; the sell branch below supplements the same logic mirrored, since
// the original left it unimplemented.
func (m *Matcher) matchBuy(o *Order, now time.Time) ([]*ledger.Transaction, error) {
	if !inWindow(o, now) {
		return nil, nil
	}
	sort.SliceStable(m.sells, func(i, j int) bool { return m.sells[i].Price < m.sells[j].Price })

	var trxs []*ledger.Transaction
	remaining := m.sells[:0]
	for _, s := range m.sells {
		if o.Unfilled() == 0 {
			remaining = append(remaining, s)
			continue
		}
		if s.Unfilled() == 0 || !inWindow(s, now) || s.Price > o.Price || o.Unfilled() < o.MinAmount {
			if s.Unfilled() > 0 {
				remaining = append(remaining, s)
			}
			continue
		}
		qty := min64(o.Unfilled(), s.Unfilled())
		trx, err := m.recordFill(o, s, qty, s.Price, now)
		if err != nil {
			return nil, err
		}
		trxs = append(trxs, trx...)
		if s.Unfilled() > 0 {
			remaining = append(remaining, s)
		}
	}
	m.sells = remaining
	return trxs, nil
}

// matchSell mirrors matchBuy: it fills against resting buy orders priced at
// or above o.Price, richest first.
func (m *Matcher) matchSell(o *Order, now time.Time) ([]*ledger.Transaction, error) {
	if !inWindow(o, now) {
		return nil, nil
	}
	sort.SliceStable(m.buys, func(i, j int) bool { return m.buys[i].Price > m.buys[j].Price })

	var trxs []*ledger.Transaction
	remaining := m.buys[:0]
	for _, b := range m.buys {
		if o.Unfilled() == 0 {
			remaining = append(remaining, b)
			continue
		}
		if b.Unfilled() == 0 || !inWindow(b, now) || b.Price < o.Price || o.Unfilled() < o.MinAmount {
			if b.Unfilled() > 0 {
				remaining = append(remaining, b)
			}
			continue
		}
		qty := min64(o.Unfilled(), b.Unfilled())
		trxs2, err := m.recordFill(b, o, qty, b.Price, now)
		if err != nil {
			return nil, err
		}
		trxs = append(trxs, trxs2...)
		if b.Unfilled() > 0 {
			remaining = append(remaining, b)
		}
	}
	m.buys = remaining
	return trxs, nil
}

// recordFill fills qty units of buy against sell at the given price,
// updating both orders' filled counters and producing one Trade transaction
// per side: the buyer receives the asset and pays currency, the seller pays
// the asset and receives currency.
func (m *Matcher) recordFill(buy, sell *Order, qty, price uint64, now time.Time) ([]*ledger.Transaction, error) {
	buy.filled += qty
	sell.filled += qty
	cost := int64(qty * price)

	nowMs := uint64(now.UnixMilli())
	buyTrade := &ledger.Trade{
		OfferTrx:        buy.TrxID,
		AssetAccount:    buy.AssetAccount,
		CurrencyAccount: buy.CurrencyAccount,
		DeltaAsset:      int64(qty),
		DeltaCurrency:   -cost,
	}
	sellTrade := &ledger.Trade{
		OfferTrx:        sell.TrxID,
		AssetAccount:    sell.AssetAccount,
		CurrencyAccount: sell.CurrencyAccount,
		DeltaAsset:      -int64(qty),
		DeltaCurrency:   cost,
	}

	buyTrx, err := ledger.New([]ledger.Action{buyTrade}, "Trade fill", nowMs)
	if err != nil {
		return nil, err
	}
	if err := m.l.PostTransaction(buyTrx); err != nil {
		return nil, err
	}
	sellTrx, err := ledger.New([]ledger.Action{sellTrade}, "Trade fill", nowMs)
	if err != nil {
		return nil, err
	}
	if err := m.l.PostTransaction(sellTrx); err != nil {
		return nil, err
	}
	return []*ledger.Transaction{buyTrx, sellTrx}, nil
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
