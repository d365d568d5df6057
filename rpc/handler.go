package rpc

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tolelom/signedledger/asset"
	"github.com/tolelom/signedledger/crypto"
	"github.com/tolelom/signedledger/identity"
	"github.com/tolelom/signedledger/ledger"
	"github.com/tolelom/signedledger/ledgererr"
	"github.com/tolelom/signedledger/storage"
)

// Handler holds all dependencies needed to serve RPC methods: the live
// in-memory Ledger that processes requests, and the Store that persists
// the entities it touches. hostPriv signs on the host's behalf wherever
// the protocol calls for a host signature (AllocateSignatureNumbers'
// authorization, HostAcceptBalance, and transaction finalization).
type Handler struct {
	l        *ledger.Ledger
	store    *storage.Store
	hostPriv crypto.PrivateKey
}

// NewHandler creates an RPC Handler.
func NewHandler(l *ledger.Ledger, store *storage.Store, hostPriv crypto.PrivateKey) *Handler {
	return &Handler{l: l, store: store, hostPriv: hostPriv}
}

// Dispatch routes an RPC request to the correct method. Every call gets a
// correlation id, which is prefixed to the messages of protocol and
// internal errors; parameter and unknown-method errors do not carry it, and
// the handler does not log it.
func (h *Handler) Dispatch(req Request) Response {
	cid := uuid.NewString()
	switch req.Method {
	case "allocateSignatureNumbers":
		return h.allocateSignatureNumbers(req, cid)
	case "confirmAccount":
		return h.confirmAccount(req, cid)
	case "postTransaction":
		return h.postTransaction(req, cid)
	case "signTransaction":
		return h.signTransaction(req, cid)
	case "balanceAgreement":
		return h.balanceAgreement(req, cid)
	case "getAccount":
		return h.getAccount(req, cid)
	case "getTransaction":
		return h.getTransaction(req, cid)
	default:
		return errResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("method %q not found", req.Method))
	}
}

// allocateSignatureNumbers issues numbers as new signature numbers
// (NewSigIDs) for an account, signing the allocation with the host's own
// key so Account.AllocateSignatureNumbers can verify it came from this host.
// The numbers join the reserved set only when a later balanceAgreement
// lists them in new_sig_nums.
func (h *Handler) allocateSignatureNumbers(req Request, cid string) Response {
	var params struct {
		AccountID crypto.Hash `json:"account_id"`
		Numbers   []uint64    `json:"numbers"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}
	acct, ok := h.l.Account(params.AccountID)
	if !ok {
		return errResponse(req.ID, CodeInvalidParams, "unknown account "+params.AccountID.String())
	}
	hostSig := crypto.Sign(h.hostPriv, ledger.SigNumsDigest(params.Numbers))
	acct.Lock()
	err := acct.AllocateSignatureNumbers(params.Numbers, hostSig)
	acct.Unlock()
	if err != nil {
		return protocolErrResponse(req.ID, cid, err)
	}
	if err := h.store.PutAccount(acct); err != nil {
		return errResponse(req.ID, CodeInternalError, cid+": persist account: "+err.Error())
	}
	return okResponse(req.ID, map[string]any{"account_id": acct.ID(), "new_sig_ids": acct.NewSigIDs()})
}

// confirmAccount registers a freshly created account with the ledger and
// persists it: the host-side counterpart to a client building a
// ledger.Account locally and asking the host to recognize it.
func (h *Handler) confirmAccount(req Request, cid string) Response {
	var params struct {
		Host      *identity.Identity `json:"host"`
		Owner     *identity.Identity `json:"owner"`
		AssetNote *asset.AssetNote   `json:"asset_note"`
		InitDate  uint64             `json:"init_date"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}
	if params.Host == nil || params.Owner == nil || params.AssetNote == nil {
		return errResponse(req.ID, CodeInvalidParams, "host, owner and asset_note are all required")
	}
	acct := ledger.NewAccount(params.Host, params.Owner, params.AssetNote, params.InitDate)
	if _, exists := h.l.Account(acct.ID()); exists {
		return errResponse(req.ID, CodeInvalidParams, "account already confirmed: "+acct.ID().String())
	}
	h.l.AddAccount(acct)
	if err := h.store.PutAccount(acct); err != nil {
		return errResponse(req.ID, CodeInternalError, cid+": persist account: "+err.Error())
	}
	return okResponse(req.ID, map[string]any{"account_id": acct.ID()})
}

// postTransaction submits a fully-built transaction into every required
// signer's inbox.
func (h *Handler) postTransaction(req Request, cid string) Response {
	var trx ledger.Transaction
	if err := json.Unmarshal(req.Params, &trx); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}
	if err := h.l.PostTransaction(&trx); err != nil {
		return protocolErrResponse(req.ID, cid, err)
	}
	if err := h.store.PutTransaction(&trx); err != nil {
		return errResponse(req.ID, CodeInternalError, cid+": persist transaction: "+err.Error())
	}
	return okResponse(req.ID, map[string]any{"trx_id": trx.ID()})
}

// signTransaction applies one required signer's SignatureLine to a posted
// transaction, finalizing it with the host's own signature once every
// required signer has accepted.
func (h *Handler) signTransaction(req Request, cid string) Response {
	var params struct {
		TrxID crypto.Hash          `json:"trx_id"`
		Line  ledger.SignatureLine `json:"line"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}
	if err := h.l.SignTransaction(params.TrxID, params.Line, h.hostPriv); err != nil {
		return protocolErrResponse(req.ID, cid, err)
	}
	if trx, ok := h.l.Transaction(params.TrxID); ok {
		if err := h.store.PutTransaction(trx); err != nil {
			return errResponse(req.ID, CodeInternalError, cid+": persist transaction: "+err.Error())
		}
	}
	return okResponse(req.ID, map[string]any{"trx_id": params.TrxID})
}

// balanceAgreement finalizes a balance agreement the owner has already
// counter-signed, under the host's own signature, and persists the
// account's post-agreement state.
func (h *Handler) balanceAgreement(req Request, cid string) Response {
	var params struct {
		AccountID     crypto.Hash      `json:"account_id"`
		OwnerSig      crypto.Signature `json:"owner_sig"`
		NewBalance    int64            `json:"new_balance"`
		NewDate       uint64           `json:"new_date"`
		NewSigNums    []uint64         `json:"new_sig_nums"`
		AppliedTrxIDs []crypto.Hash    `json:"applied_trx_ids"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}
	err := h.l.HostAcceptBalance(params.AccountID, h.hostPriv, params.OwnerSig, params.NewBalance, params.NewDate, params.NewSigNums, params.AppliedTrxIDs, time.Now())
	if err != nil {
		return protocolErrResponse(req.ID, cid, err)
	}
	acct, _ := h.l.Account(params.AccountID)
	if err := h.store.PutAccount(acct); err != nil {
		return errResponse(req.ID, CodeInternalError, cid+": persist account: "+err.Error())
	}
	return okResponse(req.ID, map[string]any{"account_id": params.AccountID, "balance": acct.Balance(), "balance_date": acct.BalanceDate()})
}

// accountRequestDigest is the digest an account's owner signs to prove
// they're entitled to read the account's current state, carried over from
// the original protocol's account_request handshake.
func accountRequestDigest(accountID crypto.Hash, date uint64) crypto.Hash {
	var dateLE [8]byte
	for i := range dateLE {
		dateLE[i] = byte(date >> (8 * i))
	}
	return crypto.Sum([]byte("account_request"), accountID.Bytes(), dateLE[:])
}

// getAccount returns an account's state. An issuer's own account is
// public; anyone else's requires a signature from the owner over
// accountRequestDigest, proving they (or someone they delegated to) is
// entitled to look.
func (h *Handler) getAccount(req Request, cid string) Response {
	var params struct {
		AccountID crypto.Hash      `json:"account_id"`
		Date      uint64           `json:"date,omitempty"`
		AuditSig  crypto.Signature `json:"audit_sig,omitempty"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}
	acct, ok := h.l.Account(params.AccountID)
	if !ok {
		return errResponse(req.ID, CodeInvalidParams, "unknown account "+params.AccountID.String())
	}
	if acct.Owner().ID() != acct.AssetType().IssuerID() {
		if params.AuditSig.IsZero() || !acct.Owner().PubVerify(accountRequestDigest(acct.ID(), params.Date), params.AuditSig) {
			return errResponse(req.ID, CodeUnauthorized, "account request requires a signed date challenge")
		}
	}
	return okResponse(req.ID, map[string]any{
		"account_id": acct.ID(),
		"balance":    acct.Balance(),
		"summary":    acct.Summary(),
	})
}

// getTransaction returns a previously posted transaction by id, checking
// the live ledger before falling back to the store for one already
// retired off the in-memory queues.
func (h *Handler) getTransaction(req Request, cid string) Response {
	var params struct {
		TrxID crypto.Hash `json:"trx_id"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}
	trx, ok := h.l.Transaction(params.TrxID)
	if !ok {
		stored, err := h.store.GetTransaction(params.TrxID)
		if err != nil {
			return errResponse(req.ID, CodeInvalidParams, "unknown transaction "+params.TrxID.String())
		}
		trx = stored
	}
	return okResponse(req.ID, trx)
}

// protocolErrResponse maps a ledgererr.Error (a rule the client's request
// violated) to CodeInvalidParams and anything else to CodeInternalError,
// tagging the message with cid for log correlation.
func protocolErrResponse(id any, cid string, err error) Response {
	if _, ok := ledgererr.Of(err); ok {
		return errResponse(id, CodeInvalidParams, cid+": "+err.Error())
	}
	return errResponse(id, CodeInternalError, cid+": "+err.Error())
}
