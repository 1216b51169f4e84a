package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"txsemantics/internal/chain"
	"txsemantics/internal/model"
	"txsemantics/internal/payload"
)

const (
	fakeSender    = "0x1111111111111111111111111111111111111111"
	fakeRecipient = "0x2222222222222222222222222222222222222222"
	transferTopic = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"
)

func blockHash(n uint64) string { return fmt.Sprintf("0x%064x", 0xb000+n) }
func txHash(n uint64) string { return fmt.Sprintf("0x%064x", 0x7000+n) }

func rawTx(n uint64) string {
	return fmt.Sprintf(`{"hash":%q,"blockHash":%q,"blockNumber":"0x%x","transactionIndex":"0x0",
		"from":%q,"to":%q,"value":"0x0","gas":"0x5208","gasPrice":"0x1","nonce":"0x%x",
		"input":"0x","v":"0x1b","r":"0x1","s":"0x2"}`,
		txHash(n), blockHash(n), n, fakeSender, fakeRecipient, n)
}

func rawBlock(n uint64) string {
	return fmt.Sprintf(`{"number":"0x%x","hash":%q,"parentHash":%q,"timestamp":"0x6553f100",
		"difficulty":"0x0","gasLimit":"0x1c9c380","gasUsed":"0x5208","miner":%q,"size":"0x220",
		"stateRoot":"0x01","receiptsRoot":"0x02","transactionsRoot":"0x03","sha3Uncles":"0x04",
		"logsBloom":"0x00","nonce":"0x0000000000000000","transactions":[%s],"uncles":[]}`,
		n, blockHash(n), blockHash(n-1), fakeSender, rawTx(n))
}

func rawReceipt(n uint64, status string) string {
	return fmt.Sprintf(`{"transactionHash":%q,"transactionIndex":"0x0","blockHash":%q,"blockNumber":"0x%x",
		"from":%q,"to":%q,"cumulativeGasUsed":"0x5208","gasUsed":"0x5208","contractAddress":null,
		"status":%q,"logsBloom":"0x00","logs":[{"address":%q,"topics":[%q],"data":"0x","blockNumber":"0x%x",
		"transactionHash":%q,"transactionIndex":"0x0","blockHash":%q,"logIndex":"0x0","removed":false}]}`,
		txHash(n), blockHash(n), n, fakeSender, fakeRecipient, status, fakeRecipient, transferTopic, n, txHash(n), blockHash(n))
}

type fakeProvider struct {
	mu         sync.Mutex
	head       uint64
	badReceipt map[uint64]bool
	blockFails int
	blockCalls int
	fetched    []uint64
}

func (p *fakeProvider) ChainID(context.Context) (*big.Int, error) { return big.NewInt(1), nil }

func (p *fakeProvider) LatestBlockNumber(context.Context) (uint64, error) { return p.head, nil }

func (p *fakeProvider) Block(_ context.Context, number uint64, fullTx bool) (payload.Map, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.blockCalls++
	if p.blockFails > 0 {
		p.blockFails--
		return payload.Map{}, errors.New("connection refused")
	}
	if number > p.head {
		return payload.Map{}, chain.ErrNotFound
	}
	if !fullTx {
		return payload.Map{}, errors.New("expected full transactions")
	}
	p.fetched = append(p.fetched, number)
	return payload.Parse([]byte(rawBlock(number)))
}

func (p *fakeProvider) TransactionReceipt(_ context.Context, hash common.Hash) (payload.Map, error) {
	for n := uint64(0); n <= p.head; n++ {
		if hash == common.HexToHash(txHash(n)) {
			status := "0x1"
			if p.badReceipt[n] {
				status = "0x7"
			}
			return payload.Parse([]byte(rawReceipt(n, status)))
		}
	}
	return payload.Map{}, chain.ErrNotFound
}

type memorySink struct {
	records []model.Record
	errs    []model.NormalizeError
}

func (s *memorySink) PutRecords(records []model.Record) error {
	s.records = append(s.records, records...)
	return nil
}

func (s *memorySink) PutErrors(errs []model.NormalizeError) error {
	s.errs = append(s.errs, errs...)
	return nil
}

func (s *memorySink) count(typ model.RecordType) int {
	n := 0
	for _, r := range s.records {
		if r.Type == typ {
			n++
		}
	}
	return n
}

func TestRunnerWritesCanonicalRecords(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{head: 12, badReceipt: map[uint64]bool{11: true}}
	sink := &memorySink{}
	cp := NewCheckpointStore(filepath.Join(t.TempDir(), "cp.json"), true)

	runner := NewRunner(RunConfig{FromBlock: 10, ToBlock: 12, BatchSize: 2, Workers: 2}, provider, sink, cp, nil)
	if err := runner.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	if got := sink.count(model.RecordBlock); got != 3 {
		t.Fatalf("expected 3 blocks, got %d", got)
	}
	if got := sink.count(model.RecordTransaction); got != 3 {
		t.Fatalf("expected 3 transactions, got %d", got)
	}
	if got := sink.count(model.RecordReceipt); got != 2 {
		t.Fatalf("expected 2 receipts, got %d", got)
	}
	if len(sink.errs) != 1 {
		t.Fatalf("expected 1 normalize error, got %d", len(sink.errs))
	}
	if e := sink.errs[0]; e.Record != "receipt" || e.Field != "status" || e.ID != common.HexToHash(txHash(11)).Hex() {
		t.Fatalf("unexpected normalize error %+v", e)
	}

	var receipt model.Receipt
	for _, r := range sink.records {
		if r.Type == model.RecordReceipt {
			if err := r.Decode(&receipt); err != nil {
				t.Fatalf("decode receipt: %v", err)
			}
			break
		}
	}
	if len(receipt.Logs) != 1 || !receipt.Succeeded() {
		t.Fatalf("unexpected receipt %+v", receipt)
	}

	last, ok, err := cp.Load(ctx)
	if err != nil || !ok || last != 12 {
		t.Fatalf("unexpected checkpoint %d ok=%v err=%v", last, ok, err)
	}
}

func TestRunnerResumesFromCheckpoint(t *testing.T) {
	ctx := context.Background()
	cp := NewCheckpointStore(filepath.Join(t.TempDir(), "cp.json"), true)
	if err := cp.Save(ctx, 11); err != nil {
		t.Fatalf("save: %v", err)
	}
	provider := &fakeProvider{head: 13}
	sink := &memorySink{}

	runner := NewRunner(RunConfig{FromBlock: 10, BatchSize: 10}, provider, sink, cp, nil)
	if err := runner.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(provider.fetched) != 2 || provider.fetched[0] != 12 || provider.fetched[1] != 13 {
		t.Fatalf("unexpected fetched blocks %v", provider.fetched)
	}
}

func TestRunnerRetriesProvider(t *testing.T) {
	provider := &fakeProvider{head: 5, blockFails: 2}
	sink := &memorySink{}

	runner := NewRunner(RunConfig{FromBlock: 5, ToBlock: 5, BatchSize: 1, MaxRetries: 2, RetryBackoff: time.Millisecond}, provider, sink, nil, nil)
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if provider.blockCalls != 3 {
		t.Fatalf("expected 3 block calls, got %d", provider.blockCalls)
	}
}

func TestRunnerFailsWithoutCheckpointAdvance(t *testing.T) {
	ctx := context.Background()
	cp := NewCheckpointStore(filepath.Join(t.TempDir(), "cp.json"), true)
	provider := &fakeProvider{head: 5}
	sink := &memorySink{}

	runner := NewRunner(RunConfig{FromBlock: 5, ToBlock: 6, BatchSize: 2, RetryBackoff: time.Millisecond}, provider, sink, cp, nil)
	err := runner.Run(ctx)
	if !errors.Is(err, chain.ErrNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
	if _, ok, _ := cp.Load(ctx); ok {
		t.Fatalf("checkpoint must not advance on failure")
	}
	if len(sink.records) != 0 {
		t.Fatalf("failed batch must not be written, got %d records", len(sink.records))
	}
}

type fakeState struct {
	blocks map[string]uint64
}

func (f *fakeState) LoadState(_ context.Context, name string) (uint64, bool, error) {
	b, ok := f.blocks[name]
	return b, ok, nil
}

func (f *fakeState) SaveState(_ context.Context, name string, block uint64) error {
	f.blocks[name] = block
	return nil
}

func TestStateCheckpoint(t *testing.T) {
	ctx := context.Background()
	state := &fakeState{blocks: map[string]uint64{}}
	cp := StateCheckpoint{Store: state, Name: "ingest-1"}

	provider := &fakeProvider{head: 3}
	runner := NewRunner(RunConfig{FromBlock: 1, ToBlock: 3, BatchSize: 2}, provider, &memorySink{}, cp, nil)
	if err := runner.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if state.blocks["ingest-1"] != 3 {
		t.Fatalf("unexpected state %v", state.blocks)
	}
}

func TestParseBlockNumber(t *testing.T) {
	for input, want := range map[string]uint64{"100": 100, "0x64": 100, " 7 ": 7} {
		got, err := ParseBlockNumber(input)
		if err != nil || got != want {
			t.Fatalf("ParseBlockNumber(%q) = %d, %v", input, got, err)
		}
	}
	if _, err := ParseBlockNumber("latest"); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := ParseHash("0x1234"); err == nil {
		t.Fatalf("expected length error")
	}
}

// newNode serves blocks 1..2 over JSON-RPC. The receipt of block 1 reports a
// fractional gasUsed that the payload adapter cannot classify.
func newNode(t *testing.T, receiptCalls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage   `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		result := "null"
		switch req.Method {
		case "eth_chainId":
			result = `"0x1"`
		case "eth_blockNumber":
			result = `"0x2"`
		case "eth_getBlockByNumber":
			var tag string
			_ = json.Unmarshal(req.Params[0], &tag)
			if n, err := hexutil.DecodeUint64(tag); err == nil {
				result = rawBlock(n)
			}
		case "eth_getTransactionReceipt":
			receiptCalls.Add(1)
			var hash string
			_ = json.Unmarshal(req.Params[0], &hash)
			for n := uint64(1); n <= 2; n++ {
				if common.HexToHash(hash) == common.HexToHash(txHash(n)) {
					result = rawReceipt(n, "0x1")
					if n == 1 {
						result = strings.Replace(result, `"gasUsed":"0x5208"`, `"gasUsed":1.5`, 1)
					}
				}
			}
		}
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":%s}`, req.ID, result)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunnerRecordsUnclassifiablePayload(t *testing.T) {
	ctx := context.Background()
	var receiptCalls atomic.Int32
	node := newNode(t, &receiptCalls)

	client, err := chain.NewClient(ctx, node.URL, chain.Options{})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	sink := &memorySink{}
	cfg := RunConfig{FromBlock: 1, ToBlock: 2, BatchSize: 2, Workers: 2, MaxRetries: 3, RetryBackoff: time.Millisecond}
	if err := NewRunner(cfg, client, sink, nil, nil).Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	if got := sink.count(model.RecordReceipt); got != 1 {
		t.Fatalf("expected 1 receipt, got %d", got)
	}
	if got := sink.count(model.RecordBlock); got != 2 {
		t.Fatalf("expected 2 blocks, got %d", got)
	}
	if len(sink.errs) != 1 {
		t.Fatalf("expected 1 normalize error, got %d", len(sink.errs))
	}
	if e := sink.errs[0]; e.Record != "receipt" || e.Field != "gasUsed" || e.ID != common.HexToHash(txHash(1)).Hex() {
		t.Fatalf("unexpected normalize error %+v", e)
	}
	if got := receiptCalls.Load(); got != 2 {
		t.Fatalf("malformed receipt was refetched: %d receipt calls", got)
	}
}

func TestWithRetryStopsOnMalformedPayload(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), 5, time.Millisecond, func(context.Context) error {
		calls++
		_, err := payload.Parse([]byte(`{"gas": 0.5}`))
		return fmt.Errorf("eth_getTransactionReceipt: %w", err)
	})
	if !errors.Is(err, payload.ErrMalformed) {
		t.Fatalf("expected malformed payload error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}
