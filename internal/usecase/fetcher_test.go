package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mr-tron/base58"

	"PoolWatch/internal/domain/models"
	"PoolWatch/internal/service/breaker"
	"PoolWatch/internal/service/parser"
	"PoolWatch/internal/service/rpcpool"
	"PoolWatch/internal/service/solana"
)

var (
	sigGood  = strings.Repeat("1", 88)
	sigBad   = strings.Repeat("2", 88)
	sigGood2 = strings.Repeat("4", 88)
)

// fakeRPC serves getSignaturesForAddress and getTransaction. Transactions for
// sigBad return an RPC error to exercise partial-failure tolerance.
func fakeRPC(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
			Params []any  `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}

		switch req.Method {
		case "getSignaturesForAddress":
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":1,"result":[
				{"signature":%q,"slot":100,"err":null},
				{"signature":%q,"slot":101,"err":null},
				{"signature":%q,"slot":102,"err":null},
				{"signature":"tooShort","slot":103,"err":null},
				{"signature":%q,"slot":104,"err":{"InstructionError":[0,"Custom"]}}
			]}`, sigGood, sigGood2, sigBad, strings.Repeat("3", 88))
		case "getTransaction":
			sig, _ := req.Params[0].(string)
			if sig == sigBad {
				fmt.Fprint(w, `{"jsonrpc":"2.0","id":1,"error":{"code":-32005,"message":"node is behind"}}`)
				return
			}
			data := base58.Encode([]byte{0xe7, 0x00})
			keys := []string{parser.RaydiumAMMProgramID}
			for i := 1; i < 20; i++ {
				keys = append(keys, fmt.Sprintf("Key%040d", i))
			}
			accounts := make([]int, 19)
			for i := range accounts {
				accounts[i] = (i + 1) % 20
			}
			result := map[string]any{
				"slot":      100,
				"blockTime": 1700000000,
				"transaction": map[string]any{
					"signatures": []string{sig},
					"message": map[string]any{
						"accountKeys": keys,
						"instructions": []map[string]any{
							{"programIdIndex": 0, "accounts": accounts, "data": data},
						},
					},
				},
			}
			b, _ := json.Marshal(result)
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":1,"result":%s}`, b)
		default:
			t.Errorf("unexpected method %s", req.Method)
		}
	}))
}

func newTestFetcher(t *testing.T, url string) (*Fetcher, *breaker.Breaker) {
	t.Helper()
	pool := rpcpool.New([]*rpcpool.Endpoint{rpcpool.NewEndpoint("test", url, 1, 100, 150)}, noopMetrics{})
	client := solana.NewClient(pool, solana.WithMetrics(noopMetrics{}))
	brk := breaker.New()
	f := NewFetcher(client, brk, []Exchange{
		{Name: "raydium", ProgramID: parser.RaydiumAMMProgramID, SignatureLimit: 25},
	}, noopMetrics{}, testLogger(t))
	return f, brk
}

func TestPollExchangePartialFailure(t *testing.T) {
	srv := fakeRPC(t)
	defer srv.Close()
	f, _ := newTestFetcher(t, srv.URL)

	txs, err := f.PollExchange(context.Background(), "raydium")
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	// five signatures served: one failed on-chain, one too short, one with an
	// RPC-erroring body; two resolve
	if len(txs) != 2 {
		t.Fatalf("transactions = %d, want 2 survivors", len(txs))
	}
	for _, tx := range txs {
		if tx.Signature == sigBad {
			t.Fatalf("failed signature resolved: %s", tx.Signature)
		}
		if len(tx.AccountKeys) != 20 {
			t.Fatalf("account keys = %d, want 20", len(tx.AccountKeys))
		}
		if len(tx.Instructions) != 1 || tx.Instructions[0].Data[0] != 0xe7 {
			t.Fatalf("instruction data not decoded: %+v", tx.Instructions)
		}
	}
}

func TestPollUnknownExchange(t *testing.T) {
	srv := fakeRPC(t)
	defer srv.Close()
	f, _ := newTestFetcher(t, srv.URL)

	if _, err := f.PollExchange(context.Background(), "orca"); err == nil {
		t.Fatalf("unknown exchange accepted")
	}
}

func TestIsHealthyTracksCircuits(t *testing.T) {
	srv := fakeRPC(t)
	defer srv.Close()
	f, brk := newTestFetcher(t, srv.URL)

	if !f.IsHealthy() {
		t.Fatalf("fresh fetcher unhealthy")
	}
	for i := 0; i < 3; i++ {
		brk.Execute(context.Background(), OpTransaction, func(context.Context) (any, error) {
			return nil, fmt.Errorf("down")
		})
	}
	if f.IsHealthy() {
		t.Fatalf("fetcher healthy with transaction circuit open")
	}
}

func TestFetchBatchOpenCircuitServesFallback(t *testing.T) {
	srv := fakeRPC(t)
	defer srv.Close()
	f, brk := newTestFetcher(t, srv.URL)
	brk.RegisterCritical(OpTransaction, func() any { return (*models.RawTransaction)(nil) })

	for i := 0; i < 3; i++ {
		brk.Execute(context.Background(), OpTransaction, func(context.Context) (any, error) {
			return nil, fmt.Errorf("down")
		})
	}
	if txs := f.FetchBatch(context.Background(), []string{sigGood}); len(txs) != 0 {
		t.Fatalf("open transaction circuit resolved %d transactions, want none", len(txs))
	}
}

func TestFetchBatchEmpty(t *testing.T) {
	srv := fakeRPC(t)
	defer srv.Close()
	f, _ := newTestFetcher(t, srv.URL)

	if txs := f.FetchBatch(context.Background(), nil); txs != nil {
		t.Fatalf("got %v for empty batch, want nil", txs)
	}
}
