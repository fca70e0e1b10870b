package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/cloudx-io/auctionhouse/auctionhouse"
	"github.com/cloudx-io/auctionhouse/config"
	"github.com/cloudx-io/auctionhouse/exchange"
	"github.com/cloudx-io/auctionhouse/journal"
	"github.com/cloudx-io/auctionhouse/receipt"
	"github.com/cloudx-io/auctionhouse/server"
	"github.com/cloudx-io/auctionhouse/token"
)

func main() {
	configPath := flag.String("config", "auctionhouse.toml", "Path to the TOML configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("ERROR: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	books := buildBooks(cfg)
	settlement := books[cfg.Engine.SettlementToken]

	var mirror journal.Mirror
	if cfg.Journal.PostgresDSN != "" {
		store, err := journal.OpenPostgres(ctx, cfg.Journal.PostgresDSN, cfg.Journal.PoolSize)
		if err != nil {
			return fmt.Errorf("failed to open journal mirror: %w", err)
		}
		defer store.Close()
		mirror = store
	}
	j, err := journal.New(mirror)
	if err != nil {
		return err
	}
	log.Printf("INFO: Journal run %s started", j.RunID())

	sinks := []auctionhouse.EventSink{j}
	var issuer *receipt.Issuer
	if cfg.Receipts.Enabled {
		signer, err := loadSigner(cfg.Receipts.KeyFile)
		if err != nil {
			return err
		}
		issuer = receipt.NewIssuer(signer, j)
		sinks = append(sinks, issuer)
		log.Printf("INFO: Receipt signing enabled (key id %s)", signer.KeyID())
	}

	var extra []token.Ledger
	for symbol, book := range books {
		if symbol != cfg.Engine.SettlementToken {
			extra = append(extra, book)
		}
	}
	sort.Slice(extra, func(a, b int) bool { return extra[a].Symbol() < extra[b].Symbol() })

	house, err := auctionhouse.New(auctionhouse.Config{
		Owner:       cfg.Engine.Owner,
		Account:     cfg.Engine.Account,
		FeeReceiver: cfg.Engine.FeeReceiver,
		FeePercent:  cfg.FeePercent(),
		Defaults:    cfg.HouseDefaults(),
		Settlement:  settlement,
		Ledgers:     extra,
		Sinks:       sinks,
	})
	if err != nil {
		return fmt.Errorf("failed to create auction house: %w", err)
	}
	if err := bootstrap(cfg, house, books); err != nil {
		return err
	}

	srv, err := server.New(cfg.ServerConfig(), house, issuer, j)
	if err != nil {
		return err
	}
	return srv.ListenAndServe(ctx)
}

// buildBooks creates one in-memory book per configured currency and applies genesis balances.
func buildBooks(cfg *config.Config) map[string]*token.Book {
	books := map[string]*token.Book{cfg.Engine.SettlementToken: token.NewBook(cfg.Engine.SettlementToken)}
	book := func(symbol string) *token.Book {
		if _, ok := books[symbol]; !ok {
			books[symbol] = token.NewBook(symbol)
		}
		return books[symbol]
	}
	for _, x := range cfg.Ledger.Exchanges {
		book(x.Token)
	}
	for _, g := range cfg.Ledger.Genesis {
		book(g.Token).Mint(g.Account, g.Amount)
	}
	return books
}

// bootstrap applies the owner settings the configuration carries.
func bootstrap(cfg *config.Config, house *auctionhouse.House, books map[string]*token.Book) error {
	owner := cfg.Engine.Owner
	for _, m := range cfg.Engine.Managers {
		if err := house.SetAuctionManager(owner, m, true); err != nil {
			return fmt.Errorf("failed to enable manager %s: %w", m, err)
		}
	}
	if !cfg.Engine.TrustedRouter.IsZero() {
		if err := house.SetTrustedRouter(owner, cfg.Engine.TrustedRouter); err != nil {
			return fmt.Errorf("failed to set trusted router: %w", err)
		}
	}

	settlement := books[cfg.Engine.SettlementToken]
	for _, x := range cfg.Ledger.Exchanges {
		adapter, err := exchange.NewFixedRateAdapter(books[x.Token], settlement, x.Pool, x.Rate)
		if err != nil {
			return fmt.Errorf("failed to create %s exchange: %w", x.Token, err)
		}
		cached, err := exchange.NewCachedQuoter(adapter, x.CacheSize)
		if err != nil {
			return err
		}
		if err := house.SetTokenSupport(owner, x.Token, cached); err != nil {
			return fmt.Errorf("failed to enable %s: %w", x.Token, err)
		}
	}
	return nil
}

// loadSigner reads the receipt key, creating and persisting one on first start.
// An empty path yields an ephemeral key.
func loadSigner(path string) (*receipt.Signer, error) {
	if path == "" {
		log.Printf("WARNING: receipts.key_file not set, receipts are signed with an ephemeral key")
		return receipt.NewSigner()
	}

	data, err := os.ReadFile(path)
	if err == nil {
		return receipt.LoadSigner(data)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read receipt key: %w", err)
	}

	signer, err := receipt.NewSigner()
	if err != nil {
		return nil, err
	}
	keyPEM, err := signer.PrivateKeyPEM()
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, []byte(keyPEM), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write receipt key: %w", err)
	}
	log.Printf("INFO: Generated receipt key at %s", path)
	return signer, nil
}
