package ledger

import (
	"encoding/json"
	"testing"

	"github.com/tolelom/signedledger/crypto"
	"github.com/tolelom/signedledger/ledgererr"
)

func randHash(b byte) crypto.Hash {
	var h crypto.Hash
	h[0] = b
	return h
}

func TestTransferApplyReturnsZeroForUnrelatedAccount(t *testing.T) {
	from, to, other := randHash(1), randHash(2), randHash(3)
	tr := &Transfer{From: from, To: to, Amount: 10}
	if got := tr.Apply(other); got != 0 {
		t.Errorf("Transfer.Apply(unrelated) = %d, want 0", got)
	}
	if got := tr.Apply(from); got != -10 {
		t.Errorf("Transfer.Apply(from) = %d, want -10", got)
	}
	if got := tr.Apply(to); got != 10 {
		t.Errorf("Transfer.Apply(to) = %d, want 10", got)
	}
}

func TestTransactionIDStableAcrossSignatureLines(t *testing.T) {
	from, to := randHash(1), randHash(2)
	trx, err := New([]Action{&Transfer{From: from, To: to, Amount: 5}}, "desc", 1000)
	if err != nil {
		t.Fatal(err)
	}
	id := trx.ID()
	trx.signatures = append(trx.signatures, SignatureLine{AccountID: from, SigNum: 1, State: SigAccepted})
	if trx.ID() != id {
		t.Error("transaction id must not change when signature lines are added")
	}
}

func TestTransactionJSONRoundTripThroughRegistry(t *testing.T) {
	from, to := randHash(1), randHash(2)
	trx, err := New([]Action{&Transfer{From: from, To: to, Amount: 7}}, "desc", 1000)
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(trx)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back Transaction
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.ID() != trx.ID() {
		t.Error("round-tripped transaction id mismatch")
	}
	if len(back.Actions()) != 1 {
		t.Fatalf("expected 1 action, got %d", len(back.Actions()))
	}
	got, ok := back.Actions()[0].(*Transfer)
	if !ok {
		t.Fatalf("expected *Transfer, got %T", back.Actions()[0])
	}
	if got.Amount != 7 {
		t.Errorf("Amount = %d, want 7", got.Amount)
	}
}

func TestDecodeActionsRejectsUnknownType(t *testing.T) {
	raw := []byte(`[{"type":"nonsense","data":{}}]`)
	_, err := decodeActions(raw)
	if kind, ok := ledgererr.Of(err); !ok || kind != ledgererr.UnknownAction {
		t.Errorf("got %v, want UnknownAction", err)
	}
}

func TestUpdateSignatureRejectsNonRequiredAccount(t *testing.T) {
	from, to, other := randHash(1), randHash(2), randHash(3)
	trx, err := New([]Action{&Transfer{From: from, To: to, Amount: 5}}, "desc", 1000)
	if err != nil {
		t.Fatal(err)
	}
	line := SignatureLine{AccountID: other, SigNum: 1, State: SigAccepted}
	err = trx.UpdateSignature(line, nil)
	if kind, ok := ledgererr.Of(err); !ok || kind != ledgererr.NotRequired {
		t.Errorf("got %v, want NotRequired", err)
	}
}

func TestUpdateSignatureIsIdempotent(t *testing.T) {
	owner := newTestParty(t, "dan")
	from, to := owner.Identity().ID(), randHash(2)
	trx, err := New([]Action{&Transfer{From: from, To: to, Amount: 5}}, "desc", 1000)
	if err != nil {
		t.Fatal(err)
	}
	line := signLine(t, owner, trx, from, 1, SigAccepted, 1000)

	if err := trx.UpdateSignature(line, owner.pub); err != nil {
		t.Fatalf("first UpdateSignature: %v", err)
	}
	if err := trx.UpdateSignature(line, owner.pub); err != nil {
		t.Fatalf("second UpdateSignature: %v", err)
	}
	if len(trx.Signatures()) != 1 {
		t.Errorf("expected exactly one signature line after repeating the same input, got %d", len(trx.Signatures()))
	}
}
