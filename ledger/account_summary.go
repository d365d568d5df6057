package ledger

import (
	"fmt"
	"strings"

	"github.com/tolelom/signedledger/crypto"
)

// summarizeAccount renders the same sections the original system's
// debug dump did: identities, balances, reserved signature numbers, and
// each queue's contents with running balance.
func summarizeAccount(a *Account) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Account: %s\n", a.id)
	fmt.Fprintf(&b, "Host: %s (%s)\n", a.host.Name(), a.host.ID())
	fmt.Fprintf(&b, "Owner: %s (%s)\n", a.owner.Name(), a.owner.ID())
	fmt.Fprintf(&b, "Balance: %d signed at %d\n", a.balance, a.balanceDate)
	fmt.Fprintf(&b, "Applied Balance: %d\n", a.AppliedBalance())
	fmt.Fprintf(&b, "Pending Balance: %d\n", a.PendingBalance())
	fmt.Fprintf(&b, "Reserved Sig #s: %v\n", a.reservedSigIDs)
	fmt.Fprintf(&b, "New Sig #s: %v\n", a.newSigIDs)
	fmt.Fprintf(&b, "Owner Signed: %v\n", a.OwnerSigned())
	fmt.Fprintf(&b, "Host Signed: %v\n", a.HostSigned())

	writeQueue(&b, "Applied", a.applied, a.id, a.balance)
	writeQueue(&b, "Outbox", a.outbox, a.id, a.AppliedBalance())
	writeQueue(&b, "Inbox", a.inbox, a.id, a.PendingBalance())
	return b.String()
}

func writeQueue(b *strings.Builder, label string, q map[crypto.Hash]*Transaction, acctID crypto.Hash, runningBalance int64) {
	fmt.Fprintf(b, "-- %s --\n", label)
	balance := runningBalance
	for _, id := range queueIDs(q) {
		trx := q[id]
		delta := trx.Apply(acctID)
		balance += delta
		fmt.Fprintf(b, "%-40s delta=%-8d balance=%-8d date=%d id=%s\n",
			trx.Description(), delta, balance, trx.Date(), trx.ID())
	}
}
