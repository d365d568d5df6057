package ledger

import (
	"encoding/binary"
	"sort"
	"sync"
	"time"

	"github.com/tolelom/signedledger/crypto"
	"github.com/tolelom/signedledger/identity"
	"github.com/tolelom/signedledger/ledgererr"
)

// balanceAgreementWindow bounds how far a proposed balance date may lag
// behind the wall clock before it's rejected as stale. A date ahead of the
// wall clock is rejected outright as FutureDate.
const balanceAgreementWindow = 5 * time.Minute

// Account holds the co-signed view of a balance in a single AssetNote
// between a host and an owner, plus the three transaction queues that feed
// it. Its id is H(host.id ‖ owner.id ‖ type.id) and never changes.
//
// All mutating methods serialize through mu, a single logical actor per
// account. Callers touching more than one account (a transfer, say) must
// acquire accounts in ascending id order — see Ledger.lockAccountsAscending.
type Account struct {
	mu sync.Mutex

	id   crypto.Hash
	host *identity.Identity
	owner *identity.Identity
	assetType assetTyper

	balance     int64
	balanceDate uint64

	reservedSigIDs []uint64 // sorted, unique
	newSigIDs      []uint64

	ownerSig crypto.Signature
	hostSig  crypto.Signature

	inbox   map[crypto.Hash]*Transaction
	outbox  map[crypto.Hash]*Transaction
	applied map[crypto.Hash]*Transaction
}

// assetTyper is the minimal surface Account needs from an asset note: its
// content id and issuer. Declared locally rather than importing the asset
// package directly to keep ledger's dependency graph leaves-first, matching
// the layering in the system overview.
type assetTyper interface {
	ID() crypto.Hash
	IssuerID() crypto.Hash
}

// NewAccount creates a fresh, zero-balance Account for (host, owner, type),
// computing its id eagerly.
func NewAccount(host, owner *identity.Identity, assetType assetTyper, initDate uint64) *Account {
	return &Account{
		id:          crypto.Sum(host.ID().Bytes(), owner.ID().Bytes(), assetType.ID().Bytes()),
		host:        host,
		owner:       owner,
		assetType:   assetType,
		balanceDate: initDate,
		inbox:       make(map[crypto.Hash]*Transaction),
		outbox:      make(map[crypto.Hash]*Transaction),
		applied:     make(map[crypto.Hash]*Transaction),
	}
}

// RestoreAccount rebuilds an Account from persisted fields, for use by a
// storage layer loading an account back from disk. It recomputes id from
// host/owner/assetType rather than trusting a stored one, the same
// not-trusted-from-the-wire discipline the codec types in this module use.
func RestoreAccount(host, owner *identity.Identity, assetType assetTyper, balance int64, balanceDate uint64, reservedSigIDs, newSigIDs []uint64, ownerSig, hostSig crypto.Signature, inbox, outbox, applied []*Transaction) *Account {
	a := &Account{
		id:             crypto.Sum(host.ID().Bytes(), owner.ID().Bytes(), assetType.ID().Bytes()),
		host:           host,
		owner:          owner,
		assetType:      assetType,
		balance:        balance,
		balanceDate:    balanceDate,
		reservedSigIDs: append([]uint64(nil), reservedSigIDs...),
		newSigIDs:      append([]uint64(nil), newSigIDs...),
		ownerSig:       ownerSig,
		hostSig:        hostSig,
		inbox:          make(map[crypto.Hash]*Transaction, len(inbox)),
		outbox:         make(map[crypto.Hash]*Transaction, len(outbox)),
		applied:        make(map[crypto.Hash]*Transaction, len(applied)),
	}
	for _, trx := range inbox {
		a.inbox[trx.ID()] = trx
	}
	for _, trx := range outbox {
		a.outbox[trx.ID()] = trx
	}
	for _, trx := range applied {
		a.applied[trx.ID()] = trx
	}
	return a
}

// ID returns H(host.id ‖ owner.id ‖ type.id).
func (a *Account) ID() crypto.Hash { return a.id }

// Host returns the account's host identity.
func (a *Account) Host() *identity.Identity { return a.host }

// Owner returns the account's owner identity.
func (a *Account) Owner() *identity.Identity { return a.owner }

// AssetType returns the account's asset note.
func (a *Account) AssetType() assetTyper { return a.assetType }

// Lock acquires the account's critical section. Exported so Ledger can
// implement canonical-order multi-account locking without ledger needing to
// know Account's internals.
func (a *Account) Lock() { a.mu.Lock() }

// Unlock releases the account's critical section.
func (a *Account) Unlock() { a.mu.Unlock() }

// Balance returns the last mutually-signed balance. Caller must hold the
// account lock for a consistent read alongside other fields.
func (a *Account) Balance() int64 { return a.balance }

// BalanceDate returns the last mutually-agreed balance date, ms since epoch.
func (a *Account) BalanceDate() uint64 { return a.balanceDate }

// AppliedBalance is balance plus the sum of every applied transaction's
// delta for this account.
func (a *Account) AppliedBalance() int64 {
	b := a.balance
	for _, trx := range a.applied {
		b += trx.Apply(a.id)
	}
	return b
}

// PendingBalance is AppliedBalance plus the sum of every outbox
// transaction's delta for this account — what the owner may still commit to.
func (a *Account) PendingBalance() int64 {
	b := a.AppliedBalance()
	for _, trx := range a.outbox {
		b += trx.Apply(a.id)
	}
	return b
}

// ReservedSigIDs returns a sorted copy of the account's currently reserved
// signature numbers.
func (a *Account) ReservedSigIDs() []uint64 {
	out := make([]uint64, len(a.reservedSigIDs))
	copy(out, a.reservedSigIDs)
	return out
}

// NewSigIDs returns a copy of the signature numbers the host has allocated
// but the owner has not yet counter-signed into ReservedSigIDs.
func (a *Account) NewSigIDs() []uint64 {
	out := make([]uint64, len(a.newSigIDs))
	copy(out, a.newSigIDs)
	return out
}

// FindUsedSigIDs returns the sig_num of every transaction sitting in the
// outbox or applied queue — numbers already spoken for by a signature.
func (a *Account) FindUsedSigIDs() []uint64 {
	var used []uint64
	for _, trx := range a.outbox {
		if n, ok := trx.GetSignatureNumFor(a.id); ok {
			used = append(used, n)
		}
	}
	for _, trx := range a.applied {
		if n, ok := trx.GetSignatureNumFor(a.id); ok {
			used = append(used, n)
		}
	}
	return used
}

// FindUnusedSigIDs returns exactly ReservedSigIDs() minus FindUsedSigIDs():
// the numbers still free to spend.
func (a *Account) FindUnusedSigIDs() []uint64 {
	used := make(map[uint64]struct{})
	for _, n := range a.FindUsedSigIDs() {
		used[n] = struct{}{}
	}
	var unused []uint64
	for _, n := range a.reservedSigIDs {
		if _, ok := used[n]; !ok {
			unused = append(unused, n)
		}
	}
	return unused
}

// OwnerSignature returns the owner's signature over the current Digest().
func (a *Account) OwnerSignature() crypto.Signature { return a.ownerSig }

// HostSignature returns the host's signature over H(owner signature).
func (a *Account) HostSignature() crypto.Signature { return a.hostSig }

// OwnerSigned reports whether OwnerSignature verifies against the account's
// current digest.
func (a *Account) OwnerSigned() bool {
	return a.owner.PubVerify(a.Digest(), a.ownerSig)
}

// HostSigned reports whether HostSignature verifies against H(owner
// signature).
func (a *Account) HostSigned() bool {
	return a.host.PubVerify(crypto.Sum(a.ownerSig), a.hostSig)
}

// Digest computes H(account_id ‖ balance_le64 ‖ balance_date_le64 ‖ for
// each sid in ReservedSigIDs: sid_le64) — the value both parties sign to
// agree on the account's current state.
func (a *Account) Digest() crypto.Hash {
	return accountDigest(a.id, a.balance, a.balanceDate, a.reservedSigIDs)
}

// AppliedDigest is the digest of the account's state as it would be after
// folding in every applied-queue transaction: it hashes AppliedBalance, not
// the stale pre-application balance.
func (a *Account) AppliedDigest() crypto.Hash {
	return accountDigest(a.id, a.AppliedBalance(), a.balanceDate, a.reservedSigIDs)
}

// SigNumsDigest hashes an ordered list of signature numbers, used both to
// authorize a fresh allocation and (by the caller generating hostSig) to
// produce it.
func SigNumsDigest(numbers []uint64) crypto.Hash {
	parts := make([][]byte, len(numbers))
	for i, n := range numbers {
		var le [8]byte
		binary.LittleEndian.PutUint64(le[:], n)
		parts[i] = le[:]
	}
	return crypto.Sum(parts...)
}

func accountDigest(id crypto.Hash, balance int64, date uint64, sigIDs []uint64) crypto.Hash {
	parts := make([][]byte, 0, 2+len(sigIDs))
	parts = append(parts, id.Bytes())
	var balLE, dateLE [8]byte
	binary.LittleEndian.PutUint64(balLE[:], uint64(balance))
	binary.LittleEndian.PutUint64(dateLE[:], date)
	parts = append(parts, balLE[:], dateLE[:])
	for _, sid := range sigIDs {
		var le [8]byte
		binary.LittleEndian.PutUint64(le[:], sid)
		parts = append(parts, le[:])
	}
	return crypto.Sum(parts...)
}

// AllocateSignatureNumbers records numbers as freshly issued by the host.
// numbers must be disjoint from FindUsedSigIDs(); hostSig must verify
// against H(numbers_le64...) and the host's public key, proving the host
// (and not some other party) issued them.
func (a *Account) AllocateSignatureNumbers(numbers []uint64, hostSig crypto.Signature) error {
	if !a.host.PubVerify(SigNumsDigest(numbers), hostSig) {
		return ledgererr.New(ledgererr.InvalidSignature, "invalid host signature over allocated signature numbers")
	}
	used := make(map[uint64]struct{})
	for _, n := range a.FindUsedSigIDs() {
		used[n] = struct{}{}
	}
	for _, n := range numbers {
		if _, ok := used[n]; ok {
			return ledgererr.New(ledgererr.SigNumInUse, "signature number %d is currently in use", n)
		}
	}
	have := make(map[uint64]struct{}, len(a.newSigIDs))
	for _, n := range a.newSigIDs {
		have[n] = struct{}{}
	}
	for _, n := range numbers {
		if _, ok := have[n]; !ok {
			a.newSigIDs = append(a.newSigIDs, n)
			have[n] = struct{}{}
		}
	}
	return nil
}

// acceptBalanceResult is the output of computing a proposed balance
// agreement: the new balance, the digest both parties must sign, and the
// reserved/new sig-id sets the agreement would commit to if accepted.
type acceptBalanceResult struct {
	newBalance    int64
	digest        crypto.Hash
	openSigIDs    []uint64 // sorted, unique
	openNewSigIDs []uint64
}

// GetAcceptBalanceDigest computes what a balance agreement dated newDate,
// consuming newSigNums from NewSigIDs and folding in appliedTrxIDs, would
// produce — without mutating the account. It implements spec step 1-6 of
// the balance-agreement protocol:
//  1. time bounds on newDate,
//  2. newSigNums must be a subset of NewSigIDs,
//  3. seed open_sig_ids with the current reserved set,
//  4. fold in each applied transaction's delta and retire its sig_num,
//  5. compute the resulting balance,
//  6. hash the result.
func (a *Account) GetAcceptBalanceDigest(newDate uint64, newSigNums []uint64, appliedTrxIDs []crypto.Hash, now time.Time) (*acceptBalanceResult, error) {
	if newDate <= a.balanceDate {
		return nil, ledgererr.New(ledgererr.StaleDate, "balance date %d is not after current balance date %d", newDate, a.balanceDate)
	}
	nowMs := uint64(now.UnixMilli())
	if newDate > nowMs {
		return nil, ledgererr.New(ledgererr.FutureDate, "balance date %d is in the future, now %d", newDate, nowMs)
	}
	if newDate < uint64(now.Add(-balanceAgreementWindow).UnixMilli()) {
		return nil, ledgererr.New(ledgererr.StaleDate, "balance date %d is more than %s in the past", newDate, balanceAgreementWindow)
	}

	availableNew := make(map[uint64]struct{}, len(a.newSigIDs))
	for _, n := range a.newSigIDs {
		availableNew[n] = struct{}{}
	}
	openSet := make(map[uint64]struct{})
	for _, n := range a.reservedSigIDs {
		openSet[n] = struct{}{}
	}
	openNew := make(map[uint64]struct{}, len(a.newSigIDs))
	for _, n := range a.newSigIDs {
		openNew[n] = struct{}{}
	}
	for _, n := range newSigNums {
		if _, ok := availableNew[n]; !ok {
			return nil, ledgererr.New(ledgererr.UnissuedSigNum, "signature number %d was not issued by host", n)
		}
		openSet[n] = struct{}{}
		delete(openNew, n)
	}

	var delta int64
	for _, trxID := range appliedTrxIDs {
		trx, ok := a.applied[trxID]
		if !ok {
			return nil, ledgererr.New(ledgererr.UnknownAppliedTrx, "unknown applied transaction %s", trxID)
		}
		if n, ok := trx.GetSignatureNumFor(a.id); ok {
			delete(openSet, n)
		}
		delta += trx.Apply(a.id)
	}

	openSigIDs := sortedKeys(openSet)
	openNewSigIDs := sortedKeys(openNew)
	newBalance := a.balance + delta
	digest := accountDigest(a.id, newBalance, newDate, openSigIDs)

	return &acceptBalanceResult{
		newBalance:    newBalance,
		digest:        digest,
		openSigIDs:    openSigIDs,
		openNewSigIDs: openNewSigIDs,
	}, nil
}

func sortedKeys(m map[uint64]struct{}) []uint64 {
	out := make([]uint64, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// HostAcceptBalance is the host-side half of the balance-agreement
// protocol: the owner proposes (ownerSig, newBalance, newDate,
// newSigNums, appliedTrxIDs); the host recomputes the digest, checks the
// owner's arithmetic and signature, countersigns, and atomically commits.
// On any failure the account is left completely unchanged.
func (a *Account) HostAcceptBalance(hostPriv crypto.PrivateKey, ownerSig crypto.Signature, newBalance int64, newDate uint64, newSigNums []uint64, appliedTrxIDs []crypto.Hash, now time.Time) error {
	result, err := a.GetAcceptBalanceDigest(newDate, newSigNums, appliedTrxIDs, now)
	if err != nil {
		return err
	}
	if result.newBalance != newBalance {
		return ledgererr.New(ledgererr.BalanceDisagreement, "host computed balance %d, owner proposed %d", result.newBalance, newBalance)
	}
	if !a.owner.PubVerify(result.digest, ownerSig) {
		return ledgererr.New(ledgererr.InvalidSignature, "invalid owner signature over balance agreement digest")
	}
	hostSig := crypto.Sign(hostPriv, crypto.Sum(ownerSig))

	a.commitBalanceAgreement(ownerSig, hostSig, result, newDate, appliedTrxIDs)
	return nil
}

// SignBalanceAgreement is the host-initiated mirror of HostAcceptBalance:
// the host proposes the same tuple itself (recomputing the digest over
// every currently-applied transaction and every current new_sig_id) and
// verifies an owner signature gathered out of band against that digest.
func (a *Account) SignBalanceAgreement(hostPriv crypto.PrivateKey, ownerSig crypto.Signature, newDate uint64, now time.Time) error {
	appliedIDs := make([]crypto.Hash, 0, len(a.applied))
	for id := range a.applied {
		appliedIDs = append(appliedIDs, id)
	}
	result, err := a.GetAcceptBalanceDigest(newDate, a.NewSigIDs(), appliedIDs, now)
	if err != nil {
		return err
	}
	if !a.owner.PubVerify(result.digest, ownerSig) {
		return ledgererr.New(ledgererr.InvalidSignature, "invalid owner signature over balance agreement digest")
	}
	hostSig := crypto.Sign(hostPriv, crypto.Sum(ownerSig))

	a.commitBalanceAgreement(ownerSig, hostSig, result, newDate, appliedIDs)
	return nil
}

func (a *Account) commitBalanceAgreement(ownerSig, hostSig crypto.Signature, result *acceptBalanceResult, newDate uint64, appliedTrxIDs []crypto.Hash) {
	for _, id := range appliedTrxIDs {
		delete(a.applied, id)
	}
	a.balance = result.newBalance
	a.balanceDate = newDate
	a.ownerSig = ownerSig
	a.hostSig = hostSig
	a.reservedSigIDs = result.openSigIDs
	a.newSigIDs = result.openNewSigIDs
}

// moveToInbox is used by Ledger when posting a transaction.
func (a *Account) moveToInbox(trx *Transaction) {
	a.inbox[trx.ID()] = trx
}

// moveInboxToOutbox records that this account has signed trx.
func (a *Account) moveInboxToOutbox(trx *Transaction) {
	delete(a.inbox, trx.ID())
	a.outbox[trx.ID()] = trx
}

// moveOutboxToApplied records that trx has been host-finalized.
func (a *Account) moveOutboxToApplied(trx *Transaction) {
	delete(a.outbox, trx.ID())
	a.applied[trx.ID()] = trx
}

// InboxTransaction returns the pending transaction with the given id, if
// it's sitting in this account's inbox.
func (a *Account) InboxTransaction(id crypto.Hash) (*Transaction, bool) {
	trx, ok := a.inbox[id]
	return trx, ok
}

// InboxIDs, OutboxIDs and AppliedIDs return the transaction ids currently
// held in each queue, for diagnostics and RPC reads.
func (a *Account) InboxIDs() []crypto.Hash   { return queueIDs(a.inbox) }
func (a *Account) OutboxIDs() []crypto.Hash  { return queueIDs(a.outbox) }
func (a *Account) AppliedIDs() []crypto.Hash { return queueIDs(a.applied) }

func queueIDs(q map[crypto.Hash]*Transaction) []crypto.Hash {
	out := make([]crypto.Hash, 0, len(q))
	for id := range q {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Summary renders a human-readable dump of the account's state, in the
// spirit of the original system's account-inspection tooling: identities,
// balances, reserved signature numbers, and each queue's contents.
func (a *Account) Summary() string {
	return summarizeAccount(a)
}
