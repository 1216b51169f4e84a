package registry_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"txsemantics/internal/model"
	"txsemantics/internal/registry"
	"txsemantics/internal/storage/memory"
)

type recordedOp struct {
	operation string
	kind      string
	err       error
}

type fakeMetrics struct {
	mu  sync.Mutex
	ops []recordedOp
}

func (m *fakeMetrics) Observe(operation string, kind string, err error, _ time.Time) {
	m.mu.Lock()
	m.ops = append(m.ops, recordedOp{operation: operation, kind: kind, err: err})
	m.mu.Unlock()
}

type RegistrySuite struct {
	suite.Suite
	ctx     context.Context
	store   *memory.Store
	metrics *fakeMetrics
	reg     *registry.Registry
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.NewStore()
	s.metrics = &fakeMetrics{}
	s.reg = registry.New(s.store, s.metrics, nil)
}

func tokenContract(name string) model.Contract {
	return model.Contract{
		ContractHash: "0xabc",
		Name:         name,
		Events: map[string]model.EventSemantics{
			"0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef": {
				Signature: "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef",
				Name:      "Transfer",
				Parameters: []model.ParameterSemantics{
					{Name: "from", Type: "address", Indexed: true},
					{Name: "to", Type: "address", Indexed: true},
					{Name: "value", Type: "uint256"},
				},
			},
		},
	}
}

func (s *RegistrySuite) TestStrictInsertIsIdempotent() {
	s.Require().NoError(s.reg.InsertContractStrict(s.ctx, tokenContract("Token")))

	err := s.reg.InsertContractStrict(s.ctx, tokenContract("Other"))
	s.Require().Error(err)
	s.True(errors.Is(err, registry.ErrDuplicateKey))

	got, found, err := s.reg.Contract(s.ctx, "0xabc")
	s.Require().NoError(err)
	s.Require().True(found)
	s.Equal(tokenContract("Token"), got)
}

func (s *RegistrySuite) TestUpsertConverges() {
	s.Require().NoError(s.reg.InsertOrReplaceContract(s.ctx, tokenContract("Token")))
	s.Require().NoError(s.reg.InsertOrReplaceContract(s.ctx, model.Contract{ContractHash: "0xabc", Name: "Renamed"}))

	got, found, err := s.reg.Contract(s.ctx, "0xabc")
	s.Require().NoError(err)
	s.Require().True(found)
	s.Equal("Renamed", got.Name)
	s.Empty(got.Events, "replace must not merge fields of the previous entry")
	s.Equal(1, s.store.Len(registry.CollectionContracts))
}

func (s *RegistrySuite) TestAddressCompositeKey() {
	addr := "0x1111111111111111111111111111111111111111"
	s.Require().NoError(s.reg.InsertAddressStrict(s.ctx, model.AddressLabel{Network: "mainnet", Address: addr, Label: "Main"}))
	s.Require().NoError(s.reg.InsertAddressStrict(s.ctx, model.AddressLabel{Network: "goerli", Address: addr, Label: "Test"}))

	main, found, err := s.reg.Address(s.ctx, "mainnet", addr)
	s.Require().NoError(err)
	s.Require().True(found)
	s.Equal("Main", main.Label)

	test, found, err := s.reg.Address(s.ctx, "goerli", addr)
	s.Require().NoError(err)
	s.Require().True(found)
	s.Equal("Test", test.Label)

	s.Equal("mainnet-"+addr, registry.AddressKey("mainnet", addr))
}

func (s *RegistrySuite) TestAddressRelabel() {
	addr := "0x1111111111111111111111111111111111111111"
	s.Require().NoError(s.reg.InsertOrReplaceAddress(s.ctx, model.AddressLabel{Network: "1", Address: addr, Label: "Proxy", ContractHash: "0x01"}))
	s.Require().NoError(s.reg.InsertOrReplaceAddress(s.ctx, model.AddressLabel{Network: "1", Address: addr, Label: "Proxy v2", ContractHash: "0x02"}))

	got, found, err := s.reg.Address(s.ctx, "1", addr)
	s.Require().NoError(err)
	s.Require().True(found)
	s.Equal("Proxy v2", got.Label)
	s.Equal("0x02", got.ContractHash)
}

func (s *RegistrySuite) TestKeysIgnoreHexCase() {
	s.Require().NoError(s.reg.InsertSignatureStrict(s.ctx, model.Signature{Hash: "0xA9059CBB", Kind: model.SignatureFunction, Name: "transfer"}))

	got, found, err := s.reg.Signature(s.ctx, "0xa9059cbb")
	s.Require().NoError(err)
	s.Require().True(found)
	s.Equal("transfer", got.Name)

	err = s.reg.InsertSignatureStrict(s.ctx, model.Signature{Hash: "0xa9059cbb", Kind: model.SignatureFunction, Name: "dup"})
	s.True(errors.Is(err, registry.ErrDuplicateKey))
}

func (s *RegistrySuite) TestNotFoundIsNotAnError() {
	_, found, err := s.reg.Contract(s.ctx, "0xmissing")
	s.NoError(err)
	s.False(found)

	_, found, err = s.reg.Address(s.ctx, "mainnet", "0x00")
	s.NoError(err)
	s.False(found)

	_, found, err = s.reg.Signature(s.ctx, "0x00000000")
	s.NoError(err)
	s.False(found)
}

func (s *RegistrySuite) TestInvalidRecords() {
	s.True(errors.Is(s.reg.InsertContractStrict(s.ctx, model.Contract{Name: "x"}), registry.ErrInvalidRecord))
	s.True(errors.Is(s.reg.InsertOrReplaceAddress(s.ctx, model.AddressLabel{Address: "0x01"}), registry.ErrInvalidRecord))
	s.True(errors.Is(s.reg.InsertSignatureStrict(s.ctx, model.Signature{Name: "x"}), registry.ErrInvalidRecord))
}

func (s *RegistrySuite) TestConcurrentStrictInsertHasOneWinner() {
	const writers = 32
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		successes  int
		duplicates int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.reg.InsertContractStrict(s.ctx, tokenContract(fmt.Sprintf("Token%d", i)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, registry.ErrDuplicateKey):
				duplicates++
			}
		}(i)
	}
	wg.Wait()

	s.Equal(1, successes)
	s.Equal(writers-1, duplicates)
}

func (s *RegistrySuite) TestConcurrentUpsertKeepsOneWrite() {
	const writers = 16
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.NoError(s.reg.InsertOrReplaceContract(s.ctx, tokenContract(fmt.Sprintf("Token%d", i))))
		}(i)
	}
	wg.Wait()

	got, found, err := s.reg.Contract(s.ctx, "0xabc")
	s.Require().NoError(err)
	s.Require().True(found)
	s.Regexp(`^Token\d+$`, got.Name)
	s.Len(got.Events, 1)
}

func (s *RegistrySuite) TestCancelledWriteLeavesNothing() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	err := s.reg.InsertOrReplaceContract(ctx, tokenContract("Token"))
	s.True(errors.Is(err, context.Canceled))

	_, found, err := s.reg.Contract(s.ctx, "0xabc")
	s.NoError(err)
	s.False(found)
}

func (s *RegistrySuite) TestMetricsObserved() {
	s.Require().NoError(s.reg.InsertContractStrict(s.ctx, tokenContract("Token")))
	_ = s.reg.InsertContractStrict(s.ctx, tokenContract("Token"))
	_, _, _ = s.reg.Contract(s.ctx, "0xabc")

	s.Require().Len(s.metrics.ops, 3)
	s.Equal("insert_contract", s.metrics.ops[0].operation)
	s.NoError(s.metrics.ops[0].err)
	s.True(errors.Is(s.metrics.ops[1].err, registry.ErrDuplicateKey))
	s.Equal("get_contract", s.metrics.ops[2].operation)
}

type failingStore struct{ err error }

func (f failingStore) Collection(string) registry.Collection { return failingCollection(f) }

type failingCollection struct{ err error }

func (f failingCollection) InsertOne(context.Context, string, []byte) error  { return f.err }
func (f failingCollection) ReplaceOne(context.Context, string, []byte) error { return f.err }
func (f failingCollection) FindByID(context.Context, string) ([]byte, bool, error) {
	return nil, false, f.err
}

func (s *RegistrySuite) TestPersistenceFailurePropagates() {
	boom := errors.New("connection reset")
	reg := registry.New(failingStore{err: boom}, nil, nil)

	err := reg.InsertContractStrict(s.ctx, tokenContract("Token"))
	s.True(errors.Is(err, boom))
	s.False(errors.Is(err, registry.ErrDuplicateKey))

	_, found, err := reg.Signature(s.ctx, "0x01")
	s.True(errors.Is(err, boom))
	s.False(found)
}
