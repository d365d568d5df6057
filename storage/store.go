package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tolelom/signedledger/asset"
	"github.com/tolelom/signedledger/crypto"
	"github.com/tolelom/signedledger/identity"
	"github.com/tolelom/signedledger/ledger"
)

// ErrNotFound is returned by DB implementations and Store lookups for a
// missing key.
var ErrNotFound = errors.New("storage: not found")

var (
	prefixIdentity = []byte("ident:")
	prefixAsset    = []byte("asset:")
	prefixAccount  = []byte("acct:")
	prefixTrx      = []byte("trx:")
	prefixSigIndex = []byte("sigidx:")
)

// Store is a content-addressed persistence layer over a generic DB: every
// entity is keyed by the hash id its own type already computes. Identities
// and asset notes never change, so putting one again rewrites identical
// bytes; accounts and transactions keep their id while their balances,
// queues and signature lines change, so Put replaces the earlier record.
// It intentionally does not specify anything about layout beyond what's
// needed to round-trip identity.Identity, asset.AssetNote, ledger.Account
// and ledger.Transaction.
type Store struct {
	db DB
}

// NewStore wraps db as a content-addressed Store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// ---- Identity ----

func (s *Store) PutIdentity(ident *identity.Identity) error {
	data, err := json.Marshal(ident)
	if err != nil {
		return fmt.Errorf("marshal identity %s: %w", ident.ID(), err)
	}
	return s.db.Set(append(append([]byte{}, prefixIdentity...), ident.ID().Bytes()...), data)
}

func (s *Store) GetIdentity(id crypto.Hash) (*identity.Identity, error) {
	data, err := s.db.Get(append(append([]byte{}, prefixIdentity...), id.Bytes()...))
	if err != nil {
		return nil, err
	}
	var ident identity.Identity
	if err := json.Unmarshal(data, &ident); err != nil {
		return nil, fmt.Errorf("unmarshal identity %s: %w", id, err)
	}
	return &ident, nil
}

// ---- AssetNote ----

func (s *Store) PutAssetNote(note *asset.AssetNote) error {
	data, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("marshal asset note %s: %w", note.ID(), err)
	}
	return s.db.Set(append(append([]byte{}, prefixAsset...), note.ID().Bytes()...), data)
}

func (s *Store) GetAssetNote(id crypto.Hash) (*asset.AssetNote, error) {
	data, err := s.db.Get(append(append([]byte{}, prefixAsset...), id.Bytes()...))
	if err != nil {
		return nil, err
	}
	var note asset.AssetNote
	if err := json.Unmarshal(data, &note); err != nil {
		return nil, fmt.Errorf("unmarshal asset note %s: %w", id, err)
	}
	return &note, nil
}

// ---- Transaction ----

func (s *Store) PutTransaction(trx *ledger.Transaction) error {
	data, err := json.Marshal(trx)
	if err != nil {
		return fmt.Errorf("marshal transaction %s: %w", trx.ID(), err)
	}
	return s.db.Set(append(append([]byte{}, prefixTrx...), trx.ID().Bytes()...), data)
}

func (s *Store) GetTransaction(id crypto.Hash) (*ledger.Transaction, error) {
	data, err := s.db.Get(append(append([]byte{}, prefixTrx...), id.Bytes()...))
	if err != nil {
		return nil, err
	}
	var trx ledger.Transaction
	if err := json.Unmarshal(data, &trx); err != nil {
		return nil, fmt.Errorf("unmarshal transaction %s: %w", id, err)
	}
	return &trx, nil
}

func (s *Store) getTransactions(ids []crypto.Hash) ([]*ledger.Transaction, error) {
	out := make([]*ledger.Transaction, 0, len(ids))
	for _, id := range ids {
		trx, err := s.GetTransaction(id)
		if err != nil {
			return nil, err
		}
		out = append(out, trx)
	}
	return out, nil
}

// ---- Account ----

// accountRecord is the wire form of an Account's own fields: host, owner
// and asset type are referenced by id and loaded from their own records,
// and the three queues are referenced by transaction id rather than
// embedded, so a transaction shared across accounts is stored once.
type accountRecord struct {
	HostID         crypto.Hash      `json:"host_id"`
	OwnerID        crypto.Hash      `json:"owner_id"`
	AssetTypeID    crypto.Hash      `json:"asset_type_id"`
	Balance        int64            `json:"balance"`
	BalanceDate    uint64           `json:"balance_date"`
	ReservedSigIDs []uint64         `json:"reserved_sig_ids"`
	NewSigIDs      []uint64         `json:"new_sig_ids"`
	OwnerSig       crypto.Signature `json:"owner_sig,omitempty"`
	HostSig        crypto.Signature `json:"host_sig,omitempty"`
	InboxIDs       []crypto.Hash    `json:"inbox_ids"`
	OutboxIDs      []crypto.Hash    `json:"outbox_ids"`
	AppliedIDs     []crypto.Hash    `json:"applied_ids"`
}

// PutAccount persists acct together with the host/owner identities, asset
// note and inbox transactions it references. Outbox and applied
// transactions are recorded by id only and are not written here; GetAccount
// can rebuild the account only if those were stored already (PutTransaction).
func (s *Store) PutAccount(acct *ledger.Account) error {
	note, ok := acct.AssetType().(*asset.AssetNote)
	if !ok {
		return fmt.Errorf("account %s: asset type is not a storable *asset.AssetNote", acct.ID())
	}
	if err := s.PutIdentity(acct.Host()); err != nil {
		return err
	}
	if err := s.PutIdentity(acct.Owner()); err != nil {
		return err
	}
	if err := s.PutAssetNote(note); err != nil {
		return err
	}
	for _, id := range acct.InboxIDs() {
		trx, _ := acct.InboxTransaction(id)
		if trx != nil {
			if err := s.PutTransaction(trx); err != nil {
				return err
			}
		}
	}

	rec := accountRecord{
		HostID:         acct.Host().ID(),
		OwnerID:        acct.Owner().ID(),
		AssetTypeID:    note.ID(),
		Balance:        acct.Balance(),
		BalanceDate:    acct.BalanceDate(),
		ReservedSigIDs: acct.ReservedSigIDs(),
		NewSigIDs:      acct.NewSigIDs(),
		OwnerSig:       acct.OwnerSignature(),
		HostSig:        acct.HostSignature(),
		InboxIDs:       acct.InboxIDs(),
		OutboxIDs:      acct.OutboxIDs(),
		AppliedIDs:     acct.AppliedIDs(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal account %s: %w", acct.ID(), err)
	}

	batch := s.db.NewBatch()
	for _, num := range rec.ReservedSigIDs {
		batch.Set(SigIndexKey(acct.ID(), num), nil)
	}
	batch.Set(append(append([]byte{}, prefixAccount...), acct.ID().Bytes()...), data)
	return batch.Write()
}

// GetAccount reloads an account and every transaction, identity and asset
// note it transitively references.
func (s *Store) GetAccount(id crypto.Hash) (*ledger.Account, error) {
	data, err := s.db.Get(append(append([]byte{}, prefixAccount...), id.Bytes()...))
	if err != nil {
		return nil, err
	}
	var rec accountRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal account %s: %w", id, err)
	}

	host, err := s.GetIdentity(rec.HostID)
	if err != nil {
		return nil, fmt.Errorf("load host for account %s: %w", id, err)
	}
	owner, err := s.GetIdentity(rec.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("load owner for account %s: %w", id, err)
	}
	note, err := s.GetAssetNote(rec.AssetTypeID)
	if err != nil {
		return nil, fmt.Errorf("load asset type for account %s: %w", id, err)
	}
	inbox, err := s.getTransactions(rec.InboxIDs)
	if err != nil {
		return nil, err
	}
	outbox, err := s.getTransactions(rec.OutboxIDs)
	if err != nil {
		return nil, err
	}
	applied, err := s.getTransactions(rec.AppliedIDs)
	if err != nil {
		return nil, err
	}

	return ledger.RestoreAccount(host, owner, note, rec.Balance, rec.BalanceDate, rec.ReservedSigIDs, rec.NewSigIDs, rec.OwnerSig, rec.HostSig, inbox, outbox, applied), nil
}

// SigIndexKey builds the scan key for accountID's reservation of sigNum.
// Signature numbers are compared numerically by the protocol (spec §6's
// "reserved range"), so the 8-byte suffix is big-endian: LevelDB's
// byte-lexicographic iteration order then happens to agree with numeric
// order, and a range scan over one account's reserved ids needs no custom
// comparator.
func SigIndexKey(accountID crypto.Hash, sigNum uint64) []byte {
	key := make([]byte, 0, len(prefixSigIndex)+crypto.HashSize+8)
	key = append(key, prefixSigIndex...)
	key = append(key, accountID.Bytes()...)
	var numBE [8]byte
	binary.BigEndian.PutUint64(numBE[:], sigNum)
	return append(key, numBE[:]...)
}

// ListSigIndex returns accountID's indexed signature numbers in ascending
// order by scanning the SigIndexKey range.
func (s *Store) ListSigIndex(accountID crypto.Hash) ([]uint64, error) {
	prefix := append(append([]byte{}, prefixSigIndex...), accountID.Bytes()...)
	it := s.db.NewIterator(prefix)
	defer it.Release()

	var nums []uint64
	for it.Next() {
		key := it.Key()
		if len(key) < 8 {
			continue
		}
		nums = append(nums, binary.BigEndian.Uint64(key[len(key)-8:]))
	}
	return nums, it.Error()
}
