package ledger

import (
	"sort"
	"sync"
	"time"

	"github.com/tolelom/signedledger/crypto"
	"github.com/tolelom/signedledger/events"
	"github.com/tolelom/signedledger/ledgererr"
)

// Ledger is the per-session registry of accounts and transactions design
// note 9 calls for: cross-references between accounts and transactions go
// through content-hash lookups here rather than live object references, so
// there are no reference cycles to manage. It also owns the multi-account
// locking Account itself can't, since a single transaction's required
// signers can span several accounts.
type Ledger struct {
	mu           sync.RWMutex
	accounts     map[crypto.Hash]*Account
	transactions map[crypto.Hash]*Transaction
	emitter      *events.Emitter
}

// NewLedger returns an empty Ledger with no event subscribers.
func NewLedger() *Ledger {
	return &Ledger{
		accounts:     make(map[crypto.Hash]*Account),
		transactions: make(map[crypto.Hash]*Transaction),
	}
}

// SetEmitter attaches e so queue transitions are published as events. A
// Ledger with no emitter attached runs silently.
func (l *Ledger) SetEmitter(e *events.Emitter) {
	l.emitter = e
}

func (l *Ledger) emit(typ events.EventType, acctID, trxID crypto.Hash) {
	if l.emitter == nil {
		return
	}
	ev := events.Event{Type: typ, AccountID: acctID.String()}
	if !trxID.IsZero() {
		ev.TrxID = trxID.String()
	}
	l.emitter.Emit(ev)
}

// AddAccount registers an account. Ledger does not create accounts itself;
// that's the host daemon's job once it has validated the (host, owner,
// type) triple.
func (l *Ledger) AddAccount(a *Account) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts[a.ID()] = a
}

// Account looks up a registered account by id.
func (l *Ledger) Account(id crypto.Hash) (*Account, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.accounts[id]
	return a, ok
}

// Transaction looks up a registered transaction by id.
func (l *Ledger) Transaction(id crypto.Hash) (*Transaction, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.transactions[id]
	return t, ok
}

// lockAccountsAscending locks every account in ids, in ascending account-id
// order, and returns them in that same order together with an unlock
// function. Locking in a fixed global order is what prevents a transfer
// between A and B from deadlocking against a concurrent transfer between B
// and A.
func (l *Ledger) lockAccountsAscending(ids []crypto.Hash) ([]*Account, func(), error) {
	sorted := make([]crypto.Hash, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })

	accounts := make([]*Account, 0, len(sorted))
	l.mu.RLock()
	for _, id := range sorted {
		a, ok := l.accounts[id]
		if !ok {
			l.mu.RUnlock()
			return nil, nil, ledgererr.New(ledgererr.UnknownEntity, "unknown account %s", id)
		}
		accounts = append(accounts, a)
	}
	l.mu.RUnlock()

	for _, a := range accounts {
		a.Lock()
	}
	unlock := func() {
		for _, a := range accounts {
			a.Unlock()
		}
	}
	return accounts, unlock, nil
}

// PostTransaction inserts trx into every required signer's inbox, after
// verifying each required account exists and rejecting up front any debit
// that would drive an account's pending balance negative (unless that
// account's owner is the asset's own issuer).
func (l *Ledger) PostTransaction(trx *Transaction) error {
	required := trx.RequiredSignatures()
	if len(required) == 0 {
		return ledgererr.New(ledgererr.UnknownAction, "transaction %s requires no signatures", trx.ID())
	}
	accounts, unlock, err := l.lockAccountsAscending(required)
	if err != nil {
		return err
	}
	defer unlock()

	for _, acct := range accounts {
		delta := trx.Apply(acct.ID())
		if delta >= 0 {
			continue
		}
		if acct.Owner().ID() == acct.AssetType().IssuerID() {
			continue
		}
		if acct.PendingBalance()+delta < 0 {
			return ledgererr.New(ledgererr.InsufficientFunds, "account %s cannot cover %d", acct.ID(), -delta)
		}
	}

	l.mu.Lock()
	l.transactions[trx.ID()] = trx
	l.mu.Unlock()

	for _, acct := range accounts {
		acct.moveToInbox(trx)
		l.emit(events.EventInboxed, acct.ID(), trx.ID())
	}
	return nil
}

// SignTransaction applies one required signer's SignatureLine to trxID. An
// Accepted line moves the transaction from that account's inbox to its
// outbox; once every required signer has accepted, the host finalizes it
// with hostPriv and the transaction moves from every outbox to every
// applied queue in one step. A Rejected line drops the transaction from
// that account's inbox with no other effect.
func (l *Ledger) SignTransaction(trxID crypto.Hash, line SignatureLine, hostPriv crypto.PrivateKey) error {
	l.mu.RLock()
	trx, ok := l.transactions[trxID]
	l.mu.RUnlock()
	if !ok {
		return ledgererr.New(ledgererr.UnknownEntity, "unknown transaction %s", trxID)
	}

	accounts, unlock, err := l.lockAccountsAscending(trx.RequiredSignatures())
	if err != nil {
		return err
	}
	defer unlock()

	var signingAcct *Account
	for _, acct := range accounts {
		if acct.ID() == line.AccountID {
			signingAcct = acct
			break
		}
	}
	if signingAcct == nil {
		return ledgererr.New(ledgererr.NotRequired, "account %s is not a required signer for transaction %s", line.AccountID, trxID)
	}

	if line.State == SigAccepted {
		if err := checkSigNumAvailable(signingAcct, line.SigNum); err != nil {
			return err
		}
	}

	if err := trx.UpdateSignature(line, signingAcct.Owner().PubKey()); err != nil {
		return err
	}

	if line.State == SigRejected {
		delete(signingAcct.inbox, trxID)
		l.emit(events.EventRejected, signingAcct.ID(), trxID)
		return nil
	}

	signingAcct.moveInboxToOutbox(trx)
	l.emit(events.EventOutboxed, signingAcct.ID(), trxID)

	if trx.AllAccepted() {
		trx.SignHost(hostPriv)
		for _, acct := range accounts {
			acct.moveOutboxToApplied(trx)
			l.emit(events.EventApplied, acct.ID(), trxID)
		}
	}
	return nil
}

// HostAcceptBalance looks up acctID and delegates to Account.HostAcceptBalance
// under its lock, emitting EventBalanceAgreed on success. Call this instead
// of the Account method directly so subscribers see the transition.
func (l *Ledger) HostAcceptBalance(acctID crypto.Hash, hostPriv crypto.PrivateKey, ownerSig crypto.Signature, newBalance int64, newDate uint64, newSigNums []uint64, appliedTrxIDs []crypto.Hash, now time.Time) error {
	acct, ok := l.Account(acctID)
	if !ok {
		return ledgererr.New(ledgererr.UnknownEntity, "unknown account %s", acctID)
	}
	acct.Lock()
	defer acct.Unlock()
	if err := acct.HostAcceptBalance(hostPriv, ownerSig, newBalance, newDate, newSigNums, appliedTrxIDs, now); err != nil {
		return err
	}
	l.emit(events.EventBalanceAgreed, acctID, crypto.ZeroHash)
	return nil
}

// checkSigNumAvailable reports whether num is one of acct's currently
// unused reserved signature numbers, distinguishing "nothing is currently
// reserved" from "this particular number isn't available right now" so
// callers can surface NoSigNumbersAvailable versus AlreadySigned.
func checkSigNumAvailable(acct *Account, num uint64) error {
	for _, n := range acct.FindUnusedSigIDs() {
		if n == num {
			return nil
		}
	}
	if len(acct.ReservedSigIDs()) == 0 {
		return ledgererr.New(ledgererr.NoSigNumbersAvailable, "account %s has no reserved signature numbers", acct.ID())
	}
	return ledgererr.New(ledgererr.AlreadySigned, "signature number %d is not available for account %s", num, acct.ID())
}
