// Command hostd runs a ledger host daemon: it serves the JSON-RPC boundary
// collaborators use to confirm accounts, post and sign transactions, and
// reach balance agreement, backed by a LevelDB store.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/tolelom/signedledger/config"
	"github.com/tolelom/signedledger/events"
	"github.com/tolelom/signedledger/identity"
	"github.com/tolelom/signedledger/ledger"
	"github.com/tolelom/signedledger/rpc"
	"github.com/tolelom/signedledger/storage"
	"github.com/tolelom/signedledger/wallet"
)

func main() {
	cfgPath := flag.String("config", "config.json", "path to config file")
	genKey := flag.Bool("genkey", false, "generate a new host key and exit")
	flag.Parse()

	// Read keystore password from environment (not CLI flags — they leak via ps).
	password := os.Getenv("HOSTD_PASSWORD")
	if password == "" {
		log.Println("WARNING: HOSTD_PASSWORD not set — keystore will use an empty password")
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if *genKey {
		w, err := wallet.Generate()
		if err != nil {
			log.Fatal(err)
		}
		if err := wallet.SaveKey(cfg.KeystorePath, password, w.PrivKey()); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Generated host key. Public key: %s\n", w.PubKey())
		fmt.Printf("Saved to: %s\n", cfg.KeystorePath)
		return
	}

	// ---- load host key ----
	hostPriv, err := wallet.LoadKey(cfg.KeystorePath, password)
	if err != nil {
		log.Fatalf("load key: %v", err)
	}
	hostIdent, err := identity.New(hostPriv.Public(), hostPriv, "host", "", 0, 0)
	if err != nil {
		log.Fatalf("host identity: %v", err)
	}

	// ---- open store ----
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("mkdir data dir: %v", err)
	}
	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "ledger"))
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()
	store := storage.NewStore(db)
	if err := store.PutIdentity(hostIdent); err != nil {
		log.Fatalf("persist host identity: %v", err)
	}

	// ---- events ----
	emitter := events.NewEmitter()
	emitter.Subscribe(events.EventInboxed, logEvent)
	emitter.Subscribe(events.EventOutboxed, logEvent)
	emitter.Subscribe(events.EventApplied, logEvent)
	emitter.Subscribe(events.EventRejected, logEvent)
	emitter.Subscribe(events.EventBalanceAgreed, logEvent)

	// ---- ledger ----
	l := ledger.NewLedger()
	l.SetEmitter(emitter)

	// ---- TLS ----
	tlsCfg, err := config.LoadTLSConfig(cfg.TLS)
	if err != nil {
		log.Fatalf("tls: %v", err)
	}
	if tlsCfg != nil {
		log.Println("mTLS enabled for RPC")
	}

	// ---- RPC ----
	rpcHandler := rpc.NewHandler(l, store, hostPriv)
	rpcServer := rpc.NewServer(cfg.RPCAddr, rpcHandler, cfg.RPCAuthToken, tlsCfg)
	if err := rpcServer.Start(); err != nil {
		log.Fatalf("rpc start: %v", err)
	}
	defer rpcServer.Stop()
	log.Printf("RPC listening on %s", cfg.RPCAddr)
	if cfg.RPCAuthToken != "" {
		log.Println("RPC Bearer token authentication enabled")
	}
	log.Printf("Host identity: %s", hostIdent.ID())

	// ---- graceful shutdown ----
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Println("Shutting down...")
	// Deferred calls run in LIFO: rpcServer.Stop → db.Close
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("Config file not found at %s, using defaults.", path)
			return config.DefaultConfig(), nil
		}
		return nil, err
	}
	return cfg, nil
}

func logEvent(ev events.Event) {
	log.Printf("[ledger] %s account=%s trx=%s", ev.Type, ev.AccountID, ev.TrxID)
}
