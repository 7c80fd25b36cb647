package chain

import (
	"context"
	"errors"
	"math/big"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRequest(t *testing.T) {
	event := factCheckABI.Events[eventFactCheckRequested]

	data, err := event.Inputs.NonIndexed().Pack("blob123")
	require.NoError(t, err)

	requester := common.HexToAddress("0x0000000000000000000000000000000000000abc")
	log := types.Log{
		Topics: []common.Hash{
			event.ID,
			common.BigToHash(big.NewInt(7)),
			common.BytesToHash(requester.Bytes()),
		},
		Data: data,
	}

	req, err := DecodeRequest(log)
	require.NoError(t, err)
	assert.Equal(t, "7", req.RequestID.String())
	assert.Equal(t, requester.Hex(), req.Requester)
	assert.Equal(t, "blob123", req.ContentURI)
}

func TestDecodeRequest_WrongTopic(t *testing.T) {
	log := types.Log{
		Topics: []common.Hash{common.HexToHash("0xdead")},
	}
	_, err := DecodeRequest(log)
	assert.Error(t, err)
}

// fakeBackend records sent transactions and serves immediate receipts
type fakeBackend struct {
	mu           sync.Mutex
	pendingNonce uint64
	sent         []*types.Transaction
	sendErr      error
	reverted     bool
}

func (f *fakeBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pendingNonce, nil
}

func (f *fakeBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (f *fakeBackend) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	return 100_000, nil
}

func (f *fakeBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		err := f.sendErr
		f.sendErr = nil
		return err
	}
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	status := types.ReceiptStatusSuccessful
	if f.reverted {
		status = types.ReceiptStatusFailed
	}
	return &types.Receipt{Status: status, TxHash: txHash}, nil
}

func newTestSubmitter(t *testing.T, backend *fakeBackend) *Submitter {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return NewSubmitter(
		backend,
		common.HexToAddress("0x00000000000000000000000000000000000000cc"),
		big.NewInt(1337),
		key,
		10*time.Second,
		nil,
	)
}

func TestFulfill_SubmitsDecodableCalldata(t *testing.T) {
	backend := &fakeBackend{}
	s := newTestSubmitter(t, backend)

	err := s.Fulfill(context.Background(), big.NewInt(7), "97.00%", `{"claims":[]}`)
	require.NoError(t, err)
	require.Len(t, backend.sent, 1)

	tx := backend.sent[0]
	method := factCheckABI.Methods[methodFulfillFactCheck]
	assert.Equal(t, method.ID, tx.Data()[:4])

	args, err := method.Inputs.Unpack(tx.Data()[4:])
	require.NoError(t, err)
	assert.Equal(t, "7", args[0].(*big.Int).String())
	assert.Equal(t, "97.00%", args[1].(string))
	assert.Equal(t, `{"claims":[]}`, args[2].(string))
}

func TestFulfill_SerializesNonces(t *testing.T) {
	backend := &fakeBackend{pendingNonce: 3}
	s := newTestSubmitter(t, backend)

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.Fulfill(context.Background(), big.NewInt(int64(i)), "50.00%", "{}")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	require.Len(t, backend.sent, n)
	nonces := make([]uint64, 0, n)
	for _, tx := range backend.sent {
		nonces = append(nonces, tx.Nonce())
	}
	sort.Slice(nonces, func(i, j int) bool { return nonces[i] < nonces[j] })
	for i, nonce := range nonces {
		assert.Equal(t, uint64(3+i), nonce, "nonces must be gapless and unique")
	}
}

func TestFulfill_RevertedTransaction(t *testing.T) {
	backend := &fakeBackend{reverted: true}
	s := newTestSubmitter(t, backend)

	err := s.Fulfill(context.Background(), big.NewInt(1), "10.00%", "{}")
	assert.Error(t, err)
}

func TestFulfill_SendFailureRefetchesNonce(t *testing.T) {
	backend := &fakeBackend{sendErr: errors.New("nonce too low")}
	s := newTestSubmitter(t, backend)

	err := s.Fulfill(context.Background(), big.NewInt(1), "10.00%", "{}")
	require.Error(t, err)

	// The chain moved on while we were failing
	backend.mu.Lock()
	backend.pendingNonce = 42
	backend.mu.Unlock()

	err = s.Fulfill(context.Background(), big.NewInt(2), "10.00%", "{}")
	require.NoError(t, err)
	require.Len(t, backend.sent, 1)
	assert.Equal(t, uint64(42), backend.sent[0].Nonce())
}
