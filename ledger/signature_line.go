package ledger

import (
	"encoding/binary"

	"github.com/tolelom/signedledger/crypto"
)

// Signing states a SignatureLine can carry.
const (
	SigAccepted = "Accepted"
	SigRejected = "Rejected"
)

// SignatureLine is one required signer's response to a Transaction: the
// signer either accepts it (consuming sig_num) or rejects it outright. A
// transaction carries at most one line per required account; resubmitting
// replaces the line rather than appending.
type SignatureLine struct {
	AccountID crypto.Hash      `json:"account_id"`
	Date      uint64           `json:"date,omitempty"`
	SigNum    uint64           `json:"sig_num,omitempty"`
	State     string           `json:"state,omitempty"`
	Note      string           `json:"note,omitempty"`
	Signature crypto.Signature `json:"sig,omitempty"`
}

// SignatureLineDigest computes H(trx_id ‖ account_id ‖ date_le64 ‖
// sig_num_le64 ‖ state ‖ note), the digest a signer's signature covers.
// Exported so collaborators outside the ledger package (the market adapter,
// RPC handlers) can produce a signature over a line before submitting it.
func SignatureLineDigest(trxID crypto.Hash, line SignatureLine) crypto.Hash {
	var dateLE, numLE [8]byte
	binary.LittleEndian.PutUint64(dateLE[:], line.Date)
	binary.LittleEndian.PutUint64(numLE[:], line.SigNum)
	return crypto.Sum(
		trxID.Bytes(),
		line.AccountID.Bytes(),
		dateLE[:],
		numLE[:],
		[]byte(line.State),
		[]byte(line.Note),
	)
}
