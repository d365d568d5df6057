package ledger

import (
	"encoding/binary"
	"encoding/json"

	"github.com/tolelom/signedledger/crypto"
	"github.com/tolelom/signedledger/ledgererr"
)

// Transaction bundles a set of actions that must be accepted atomically. It
// moves through each required account's inbox -> outbox -> applied queues as
// signatures accumulate (see Ledger, which owns that orchestration); this
// type owns only the content, its id, and the signature bookkeeping.
type Transaction struct {
	id          crypto.Hash
	trxDate     uint64
	description string
	actions     []Action
	signatures  []SignatureLine
	hostNote    string
	hostSig     crypto.Signature
}

// New builds a Transaction and computes id = H(trx_date_le64 ‖
// canonical_json(actions)).
func New(actions []Action, description string, trxDateMs uint64) (*Transaction, error) {
	encoded, err := encodeActions(actions)
	if err != nil {
		return nil, err
	}
	var dateLE [8]byte
	binary.LittleEndian.PutUint64(dateLE[:], trxDateMs)
	return &Transaction{
		id:          crypto.Sum(dateLE[:], encoded),
		trxDate:     trxDateMs,
		description: description,
		actions:     actions,
	}, nil
}

// ID returns H(trx_date ‖ canonical_json(actions)). Stable across signature
// line additions or removals, since those aren't part of the hashed input.
func (t *Transaction) ID() crypto.Hash { return t.id }

// Date returns the transaction's declared date, ms since epoch.
func (t *Transaction) Date() uint64 { return t.trxDate }

// Description returns the human-readable description supplied at creation.
func (t *Transaction) Description() string { return t.description }

// Actions returns the transaction's action list.
func (t *Transaction) Actions() []Action { return t.actions }

// Signatures returns a copy of the transaction's current signature lines.
func (t *Transaction) Signatures() []SignatureLine {
	out := make([]SignatureLine, len(t.signatures))
	copy(out, t.signatures)
	return out
}

// HostNote returns the note the host attached when finalizing.
func (t *Transaction) HostNote() string { return t.hostNote }

// HostSignature returns the host's finalization signature, or the zero
// signature if the transaction has not yet been finalized.
func (t *Transaction) HostSignature() crypto.Signature { return t.hostSig }

// RequiredSignatures is the deduplicated, ascending-sorted union of each
// action's required signers.
func (t *Transaction) RequiredSignatures() []crypto.Hash {
	return requiredSignatures(t.actions)
}

// Apply sums each action's delta for account.
func (t *Transaction) Apply(account crypto.Hash) int64 {
	var delta int64
	for _, a := range t.actions {
		delta += a.Apply(account)
	}
	return delta
}

// GetSignatureNumFor returns the sig_num the given account's signature line
// consumed, if that account has signed.
func (t *Transaction) GetSignatureNumFor(account crypto.Hash) (uint64, bool) {
	for _, line := range t.signatures {
		if line.AccountID == account {
			return line.SigNum, true
		}
	}
	return 0, false
}

// IsAccepted reports whether account has an Accepted line on file.
func (t *Transaction) IsAccepted(account crypto.Hash) bool {
	for _, line := range t.signatures {
		if line.AccountID == account {
			return line.State == SigAccepted
		}
	}
	return false
}

// AllAccepted reports whether every required signer has an Accepted line.
func (t *Transaction) AllAccepted() bool {
	for _, id := range t.RequiredSignatures() {
		if !t.IsAccepted(id) {
			return false
		}
	}
	return true
}

// UpdateSignature validates and records line against ownerPub, the public
// key of the account line.AccountID belongs to:
//  1. line.AccountID must be a required signer.
//  2. The line's signature must verify against its canonical digest.
//  3. The line replaces any existing line for the same account, or is
//     appended.
//
// Queue movement (inbox -> outbox, and outbox -> applied once every signer
// has accepted) is the caller's responsibility, since it spans accounts this
// type has no reference to — see Ledger.SignTransaction.
func (t *Transaction) UpdateSignature(line SignatureLine, ownerPub crypto.PublicKey) error {
	required := false
	for _, id := range t.RequiredSignatures() {
		if id == line.AccountID {
			required = true
			break
		}
	}
	if !required {
		return ledgererr.New(ledgererr.NotRequired, "account %s is not a required signer for transaction %s", line.AccountID, t.id)
	}

	digest := SignatureLineDigest(t.id, line)
	if !crypto.Verify(ownerPub, digest, line.Signature) {
		return ledgererr.New(ledgererr.InvalidSignature, "invalid signature line for account %s on transaction %s", line.AccountID, t.id)
	}

	for i, existing := range t.signatures {
		if existing.AccountID == line.AccountID {
			t.signatures[i] = line
			return nil
		}
	}
	t.signatures = append(t.signatures, line)
	return nil
}

// SignHost finalizes the transaction: it signs H(concat(sig_0..sig_n) ‖
// host_note) with hostPriv and stores the result. Called once every required
// signer has an Accepted line on file.
func (t *Transaction) SignHost(hostPriv crypto.PrivateKey) {
	var sigBytes []byte
	for _, line := range t.signatures {
		sigBytes = append(sigBytes, line.Signature...)
	}
	t.hostNote = "Approved"
	digest := crypto.Sum(sigBytes, []byte(t.hostNote))
	t.hostSig = crypto.Sign(hostPriv, digest)
}

// VerifyHostSignature reports whether the stored host signature verifies
// against hostPub and the transaction's current signature lines.
func (t *Transaction) VerifyHostSignature(hostPub crypto.PublicKey) bool {
	var sigBytes []byte
	for _, line := range t.signatures {
		sigBytes = append(sigBytes, line.Signature...)
	}
	digest := crypto.Sum(sigBytes, []byte(t.hostNote))
	return crypto.Verify(hostPub, digest, t.hostSig)
}

type wireTransaction struct {
	Date        uint64          `json:"date"`
	Description string          `json:"description"`
	Actions     json.RawMessage `json:"actions"`
	Signatures  []SignatureLine `json:"signatures"`
	HostNote    string          `json:"host_note"`
	HostSig     crypto.Signature `json:"host_sig"`
}

// MarshalJSON implements json.Marshaler using the wire envelope described in
// the protocol's external-interfaces section.
func (t *Transaction) MarshalJSON() ([]byte, error) {
	actionsJSON, err := encodeActions(t.actions)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireTransaction{
		Date:        t.trxDate,
		Description: t.description,
		Actions:     actionsJSON,
		Signatures:  t.signatures,
		HostNote:    t.hostNote,
		HostSig:     t.hostSig,
	})
}

// UnmarshalJSON implements json.Unmarshaler, recomputing the id from the
// decoded fields rather than trusting a wire-supplied one.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var w wireTransaction
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	actions, err := decodeActions(w.Actions)
	if err != nil {
		return err
	}
	var dateLE [8]byte
	binary.LittleEndian.PutUint64(dateLE[:], w.Date)
	*t = Transaction{
		id:          crypto.Sum(dateLE[:], w.Actions),
		trxDate:     w.Date,
		description: w.Description,
		actions:     actions,
		signatures:  w.Signatures,
		hostNote:    w.HostNote,
		hostSig:     w.HostSig,
	}
	return nil
}
