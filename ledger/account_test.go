package ledger

import (
	"testing"
	"time"

	"github.com/tolelom/signedledger/crypto"
	"github.com/tolelom/signedledger/ledgererr"
)

func TestAccountIDIsHashOfHostOwnerType(t *testing.T) {
	host := newTestParty(t, "host")
	owner := newTestParty(t, "dan")
	note := issuerCornNote(t, owner)
	acct := NewAccount(host.Identity(), owner.Identity(), note, 1000)

	want := crypto.Sum(host.Identity().ID().Bytes(), owner.Identity().ID().Bytes(), note.ID().Bytes())
	if acct.ID() != want {
		t.Error("account id must be H(host ‖ owner ‖ type)")
	}
}

func TestAppliedAndPendingBalance(t *testing.T) {
	host := newTestParty(t, "host")
	dan := newTestParty(t, "dan")
	scott := newTestParty(t, "scott")
	note := issuerCornNote(t, dan)

	danAcct := NewAccount(host.Identity(), dan.Identity(), note, 1000)
	scottAcct := NewAccount(host.Identity(), scott.Identity(), note, 1000)

	trx, err := New([]Action{&Transfer{From: danAcct.ID(), To: scottAcct.ID(), Amount: 10}}, "issue", 2000)
	if err != nil {
		t.Fatal(err)
	}

	danAcct.applied[trx.ID()] = trx
	if got := danAcct.AppliedBalance(); got != -10 {
		t.Errorf("AppliedBalance = %d, want -10", got)
	}

	trx2, err := New([]Action{&Transfer{From: danAcct.ID(), To: scottAcct.ID(), Amount: 5}}, "more", 3000)
	if err != nil {
		t.Fatal(err)
	}
	danAcct.outbox[trx2.ID()] = trx2
	if got := danAcct.PendingBalance(); got != -15 {
		t.Errorf("PendingBalance = %d, want -15", got)
	}
}

func TestFindUnusedSigIDsIsSetDifference(t *testing.T) {
	host := newTestParty(t, "host")
	dan := newTestParty(t, "dan")
	note := issuerCornNote(t, dan)
	acct := NewAccount(host.Identity(), dan.Identity(), note, 1000)
	allocate(t, host, acct, []uint64{100, 101, 102})

	trx, err := New([]Action{&Transfer{From: acct.ID(), To: acct.ID(), Amount: 1}}, "t", 2000)
	if err != nil {
		t.Fatal(err)
	}
	line := SignatureLine{AccountID: acct.ID(), SigNum: 101, State: SigAccepted}
	trx.signatures = append(trx.signatures, line)
	acct.outbox[trx.ID()] = trx

	unused := acct.FindUnusedSigIDs()
	if len(unused) != 2 || unused[0] != 100 || unused[1] != 102 {
		t.Errorf("FindUnusedSigIDs = %v, want [100 102]", unused)
	}
}

func TestAllocateSignatureNumbersRejectsUsed(t *testing.T) {
	host := newTestParty(t, "host")
	dan := newTestParty(t, "dan")
	note := issuerCornNote(t, dan)
	acct := NewAccount(host.Identity(), dan.Identity(), note, 1000)
	allocate(t, host, acct, []uint64{100})

	trx, err := New([]Action{&Transfer{From: acct.ID(), To: acct.ID(), Amount: 1}}, "t", 2000)
	if err != nil {
		t.Fatal(err)
	}
	trx.signatures = append(trx.signatures, SignatureLine{AccountID: acct.ID(), SigNum: 100, State: SigAccepted})
	acct.outbox[trx.ID()] = trx

	hostSig := crypto.Sign(host.priv, SigNumsDigest([]uint64{100}))
	err = acct.AllocateSignatureNumbers([]uint64{100}, hostSig)
	if kind, ok := ledgererr.Of(err); !ok || kind != ledgererr.SigNumInUse {
		t.Errorf("got %v, want SigNumInUse", err)
	}
}

func TestAppliedDigestHashesPostApplicationBalance(t *testing.T) {
	host := newTestParty(t, "host")
	dan := newTestParty(t, "dan")
	scott := newTestParty(t, "scott")
	note := issuerCornNote(t, dan)
	danAcct := NewAccount(host.Identity(), dan.Identity(), note, 1000)
	scottAcct := NewAccount(host.Identity(), scott.Identity(), note, 1000)

	trx, err := New([]Action{&Transfer{From: danAcct.ID(), To: scottAcct.ID(), Amount: 10}}, "issue", 2000)
	if err != nil {
		t.Fatal(err)
	}
	danAcct.applied[trx.ID()] = trx

	want := accountDigest(danAcct.ID(), danAcct.AppliedBalance(), danAcct.BalanceDate(), danAcct.ReservedSigIDs())
	if danAcct.AppliedDigest() != want {
		t.Error("AppliedDigest must hash the post-application balance, not the stale signed balance")
	}
	if danAcct.AppliedDigest() == accountDigest(danAcct.ID(), danAcct.Balance(), danAcct.BalanceDate(), danAcct.ReservedSigIDs()) {
		t.Error("AppliedDigest must differ from the pre-application digest once applied transactions exist")
	}
}

func TestGetAcceptBalanceDigestRejectsStaleDate(t *testing.T) {
	host := newTestParty(t, "host")
	dan := newTestParty(t, "dan")
	note := issuerCornNote(t, dan)
	acct := NewAccount(host.Identity(), dan.Identity(), note, uint64(time.Now().UnixMilli()))

	_, err := acct.GetAcceptBalanceDigest(acct.BalanceDate()-1, nil, nil, time.Now())
	if kind, ok := ledgererr.Of(err); !ok || kind != ledgererr.StaleDate {
		t.Errorf("got %v, want StaleDate", err)
	}
}

func TestGetAcceptBalanceDigestRejectsFutureDate(t *testing.T) {
	host := newTestParty(t, "host")
	dan := newTestParty(t, "dan")
	note := issuerCornNote(t, dan)
	acct := NewAccount(host.Identity(), dan.Identity(), note, 1000)

	now := time.Now()
	future := uint64(now.Add(time.Hour).UnixMilli())
	_, err := acct.GetAcceptBalanceDigest(future, nil, nil, now)
	if kind, ok := ledgererr.Of(err); !ok || kind != ledgererr.FutureDate {
		t.Errorf("got %v, want FutureDate", err)
	}
}

func TestHostAcceptBalanceCommitsAtomically(t *testing.T) {
	host := newTestParty(t, "host")
	dan := newTestParty(t, "dan")
	note := issuerCornNote(t, dan)
	acct := NewAccount(host.Identity(), dan.Identity(), note, uint64(time.Now().Add(-time.Hour).UnixMilli()))
	allocate(t, host, acct, []uint64{1, 2, 3})

	now := time.Now()
	newDate := uint64(now.UnixMilli())
	result, err := acct.GetAcceptBalanceDigest(newDate, nil, nil, now)
	if err != nil {
		t.Fatal(err)
	}
	ownerSig := dan.Sign(result.digest)

	if err := acct.HostAcceptBalance(host.priv, ownerSig, result.newBalance, newDate, nil, nil, now); err != nil {
		t.Fatalf("HostAcceptBalance: %v", err)
	}
	if !acct.OwnerSigned() || !acct.HostSigned() {
		t.Error("both signatures should verify after a successful acceptance")
	}
	if acct.BalanceDate() != newDate {
		t.Error("balance date should advance")
	}
}

func TestHostAcceptBalanceLeavesAccountUnchangedOnDisagreement(t *testing.T) {
	host := newTestParty(t, "host")
	dan := newTestParty(t, "dan")
	note := issuerCornNote(t, dan)
	acct := NewAccount(host.Identity(), dan.Identity(), note, uint64(time.Now().Add(-time.Hour).UnixMilli()))

	now := time.Now()
	newDate := uint64(now.UnixMilli())
	result, err := acct.GetAcceptBalanceDigest(newDate, nil, nil, now)
	if err != nil {
		t.Fatal(err)
	}
	ownerSig := dan.Sign(result.digest)
	before := acct.Balance()

	err = acct.HostAcceptBalance(host.priv, ownerSig, result.newBalance+1, newDate, nil, nil, now)
	if kind, ok := ledgererr.Of(err); !ok || kind != ledgererr.BalanceDisagreement {
		t.Fatalf("got %v, want BalanceDisagreement", err)
	}
	if acct.Balance() != before {
		t.Error("a rejected balance agreement must not mutate the account")
	}
}
