package market

import (
	"github.com/tolelom/signedledger/crypto"
	"github.com/tolelom/signedledger/identity"
	"github.com/tolelom/signedledger/ledger"
)

// SubmitOrder builds an Offer transaction, posts it to both accounts'
// inboxes, and signs it on behalf of both the asset and currency account
// owners. This assumes a simplified single-host setting where the host
// holds both owners' private identities; callers acting for a real
// two-party deployment would instead collect each owner's signature out
// of band and call Ledger.SignTransaction directly.
func SubmitOrder(
	l *ledger.Ledger,
	hostPriv crypto.PrivateKey,
	assetOwner, currencyOwner *identity.PrivateIdentity,
	assetAccount, currencyAccount crypto.Hash,
	orderType string,
	amount, minAmount, price, start, end, trxDate uint64,
	assetSigNum, currencySigNum uint64,
) (*ledger.Transaction, error) {
	offer := &ledger.Offer{
		OrderType:       orderType,
		AssetAccount:    assetAccount,
		CurrencyAccount: currencyAccount,
		Amount:          amount,
		MinAmount:       minAmount,
		Price:           price,
		Start:           start,
		End:             end,
	}
	trx, err := ledger.New([]ledger.Action{offer}, "Offer", trxDate)
	if err != nil {
		return nil, err
	}
	if err := l.PostTransaction(trx); err != nil {
		return nil, err
	}

	assetLine := signFor(trx, assetOwner, assetAccount, assetSigNum, trxDate)
	if err := l.SignTransaction(trx.ID(), assetLine, hostPriv); err != nil {
		return nil, err
	}
	currencyLine := signFor(trx, currencyOwner, currencyAccount, currencySigNum, trxDate)
	if err := l.SignTransaction(trx.ID(), currencyLine, hostPriv); err != nil {
		return nil, err
	}
	return trx, nil
}

func signFor(trx *ledger.Transaction, owner *identity.PrivateIdentity, accountID crypto.Hash, sigNum, date uint64) ledger.SignatureLine {
	line := ledger.SignatureLine{
		AccountID: accountID,
		Date:      date,
		SigNum:    sigNum,
		State:     ledger.SigAccepted,
	}
	line.Signature = owner.Sign(ledger.SignatureLineDigest(trx.ID(), line))
	return line
}
