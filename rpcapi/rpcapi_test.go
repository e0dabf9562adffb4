package rpcapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/paynet-xyz/paynet-mint/cashierclient"
	"github.com/paynet-xyz/paynet-mint/config"
	"github.com/paynet-xyz/paynet-mint/keyset"
	"github.com/paynet-xyz/paynet-mint/ledger"
	"github.com/paynet-xyz/paynet-mint/node"
	"github.com/paynet-xyz/paynet-mint/nut/nut01"
	"github.com/paynet-xyz/paynet-mint/nut/nut04"
	"github.com/paynet-xyz/paynet-mint/quote/meltquote"
	"github.com/paynet-xyz/paynet-mint/quote/mintquote"
	"github.com/paynet-xyz/paynet-mint/quote/swap"
	"github.com/paynet-xyz/paynet-mint/signerclient"
	"github.com/paynet-xyz/paynet-mint/store/sqlite"
)

func newTestServer(t *testing.T) (*Server, *sqlite.DB) {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	signer := signerclient.NewFake(nil)
	km, err := keyset.NewManager(signer, sqlite.NewKeysetStore(db), nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if _, err := km.EnsureActive(context.Background(), "sat", 10, 0); err != nil {
		t.Fatalf("EnsureActive: %v", err)
	}

	ldg := ledger.New(sqlite.NewLedgerStore(db))
	mintQ := mintquote.NewEngine(sqlite.NewMintQuoteStore(db), km, signer, ldg, func(unit string) (string, error) { return "addr-" + unit, nil })
	cashier := cashierclient.NewFake()
	meltQ := meltquote.NewEngine(sqlite.NewMeltQuoteStore(db), func(unit string) (cashierclient.Client, error) { return cashier, nil }, ldg, km, signer, func(unit, dest string, amount uint64) (uint64, error) { return 0, nil })
	swapEngine := swap.NewEngine(km, signer, ldg)

	n := &node.Node{
		Config: config.Config{
			Name: "test-node",
			Units: map[string]config.UnitBackend{
				"sat": {Unit: "sat"},
			},
		},
		Keysets:    km,
		Ledger:     ldg,
		MintQuotes: mintQ,
		MeltQuotes: meltQ,
		Swap:       swapEngine,
	}

	return New(n, "unused:0", nil), db
}

func TestGetKeysReturnsActiveKeyset(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s.httpServer.Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/keys")
	if err != nil {
		t.Fatalf("GET /v1/keys: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body nut01.GetKeysResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(body.Keysets) != 1 || body.Keysets[0].Unit != "sat" {
		t.Fatalf("expected one sat keyset, got %+v", body.Keysets)
	}
}

func TestPostMintQuoteAndGetState(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s.httpServer.Handler)
	defer srv.Close()

	reqBody, _ := json.Marshal(nut04.PostMintQuoteRequest{Unit: "sat", Amount: 10})
	resp, err := http.Post(srv.URL+"/v1/mint/quote", "application/json", bytes.NewReader(reqBody))
	if err != nil {
		t.Fatalf("POST /v1/mint/quote: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var quote nut04.PostMintQuoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if quote.State != "UNPAID" {
		t.Fatalf("expected fresh quote to be UNPAID, got %s", quote.State)
	}

	getResp, err := http.Get(srv.URL + "/v1/mint/quote/" + quote.Quote)
	if err != nil {
		t.Fatalf("GET /v1/mint/quote/{id}: %v", err)
	}
	defer getResp.Body.Close()
	if getResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", getResp.StatusCode)
	}
}

func TestPostMintQuoteRejectsUnsupportedUnit(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s.httpServer.Handler)
	defer srv.Close()

	reqBody, _ := json.Marshal(nut04.PostMintQuoteRequest{Unit: "eur", Amount: 10})
	resp, err := http.Post(srv.URL+"/v1/mint/quote", "application/json", bytes.NewReader(reqBody))
	if err != nil {
		t.Fatalf("POST /v1/mint/quote: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsupported unit, got %d", resp.StatusCode)
	}
}

func TestGetInfoReturnsOK(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s.httpServer.Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/info")
	if err != nil {
		t.Fatalf("GET /v1/info: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestPostMintRejectsMalformedBody(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s.httpServer.Handler)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/mint", "application/json", bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatalf("POST /v1/mint: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", resp.StatusCode)
	}
}
