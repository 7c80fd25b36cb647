package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

const fallbackGasLimit = 500_000

// txBackend is the slice of the RPC client the submitter needs. ethclient
// satisfies it; tests substitute a fake.
type txBackend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Submitter writes fulfillment transactions. All in-flight request handlers
// share one signing wallet, so nonce acquisition and send are serialized
// under a mutex; without it concurrent handlers race the pending nonce and
// replace each other's transactions.
type Submitter struct {
	backend        txBackend
	contract       common.Address
	chainID        *big.Int
	key            *ecdsa.PrivateKey
	from           common.Address
	confirmTimeout time.Duration
	logger         *zap.Logger

	mu        sync.Mutex
	nonce     uint64
	nonceInit bool
}

// NewSubmitter creates a submitter bound to the client's contract and signer
func (c *Client) NewSubmitter(confirmTimeout time.Duration) *Submitter {
	return NewSubmitter(c.eth, c.contract, c.chainID, c.key, confirmTimeout, c.logger)
}

// NewSubmitter creates a submitter over an explicit backend
func NewSubmitter(backend txBackend, contract common.Address, chainID *big.Int, key *ecdsa.PrivateKey, confirmTimeout time.Duration, logger *zap.Logger) *Submitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Submitter{
		backend:        backend,
		contract:       contract,
		chainID:        chainID,
		key:            key,
		from:           crypto.PubkeyToAddress(key.PublicKey),
		confirmTimeout: confirmTimeout,
		logger:         logger,
	}
}

// Fulfill submits fulfillFactCheck(requestId, verdict, explanation) and
// waits for on-chain confirmation.
func (s *Submitter) Fulfill(ctx context.Context, requestID *big.Int, verdict, explanation string) error {
	data, err := factCheckABI.Pack(methodFulfillFactCheck, requestID, verdict, explanation)
	if err != nil {
		return fmt.Errorf("pack calldata: %w", err)
	}

	signed, err := s.send(ctx, data)
	if err != nil {
		return err
	}

	s.logger.Info("fulfillment submitted",
		zap.String("request_id", requestID.String()),
		zap.String("verdict", verdict),
		zap.String("tx", signed.Hash().Hex()))

	return s.waitMined(ctx, signed.Hash())
}

// send builds, signs, and broadcasts one transaction under the wallet lock
func (s *Submitter) send(ctx context.Context, data []byte) (*types.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.nonceInit {
		nonce, err := s.backend.PendingNonceAt(ctx, s.from)
		if err != nil {
			return nil, fmt.Errorf("query nonce: %w", err)
		}
		s.nonce = nonce
		s.nonceInit = true
	}

	gasPrice, err := s.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas price: %w", err)
	}

	gasLimit, err := s.backend.EstimateGas(ctx, ethereum.CallMsg{
		From: s.from,
		To:   &s.contract,
		Data: data,
	})
	if err != nil {
		gasLimit = fallbackGasLimit
	}

	tx := types.NewTransaction(s.nonce, s.contract, big.NewInt(0), gasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.key)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}

	if err := s.backend.SendTransaction(ctx, signed); err != nil {
		// Local nonce may be stale (another process, dropped tx); refetch
		// on the next send rather than compounding the error.
		s.nonceInit = false
		return nil, fmt.Errorf("send transaction: %w", err)
	}

	s.nonce++
	return signed, nil
}

// waitMined polls for the receipt until confirmation or timeout
func (s *Submitter) waitMined(ctx context.Context, txHash common.Hash) error {
	waitCtx, cancel := context.WithTimeout(ctx, s.confirmTimeout)
	defer cancel()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		receipt, err := s.backend.TransactionReceipt(waitCtx, txHash)
		if err == nil && receipt != nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return fmt.Errorf("transaction %s reverted", txHash.Hex())
			}
			return nil
		}

		select {
		case <-waitCtx.Done():
			return fmt.Errorf("confirmation of %s: %w", txHash.Hex(), waitCtx.Err())
		case <-ticker.C:
		}
	}
}
