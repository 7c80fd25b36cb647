package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/verinews/relayer/internal/config"
	"github.com/verinews/relayer/internal/model"
)

// Client wraps the RPC connection, signer key, and contract address. It is
// constructed once at startup and shared for the process lifetime.
type Client struct {
	eth      *ethclient.Client
	contract common.Address
	chainID  *big.Int
	key      *ecdsa.PrivateKey
	logger   *zap.Logger
}

// Dial connects to the RPC endpoint and verifies the signer key
func Dial(ctx context.Context, cfg config.ChainConfig, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("query chain id: %w", err)
	}

	key, err := crypto.HexToECDSA(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("parse relayer key: %w", err)
	}

	logger.Info("connected to chain",
		zap.String("chain_id", chainID.String()),
		zap.String("contract", cfg.ContractAddress),
		zap.String("signer", crypto.PubkeyToAddress(key.PublicKey).Hex()))

	return &Client{
		eth:      eth,
		contract: common.HexToAddress(cfg.ContractAddress),
		chainID:  chainID,
		key:      key,
		logger:   logger,
	}, nil
}

// Close tears down the RPC connection
func (c *Client) Close() {
	c.eth.Close()
}

// DecodeRequest decodes a FactCheckRequested log into a request. requestId
// and requester are indexed topics; the URI rides in the data segment.
func DecodeRequest(log types.Log) (model.FactCheckRequest, error) {
	event := factCheckABI.Events[eventFactCheckRequested]

	if len(log.Topics) != 3 || log.Topics[0] != event.ID {
		return model.FactCheckRequest{}, fmt.Errorf("log is not a %s event", eventFactCheckRequested)
	}

	unpacked, err := factCheckABI.Unpack(eventFactCheckRequested, log.Data)
	if err != nil {
		return model.FactCheckRequest{}, fmt.Errorf("unpack event data: %w", err)
	}
	uri, ok := unpacked[0].(string)
	if !ok {
		return model.FactCheckRequest{}, fmt.Errorf("event uri field is not a string")
	}

	return model.FactCheckRequest{
		RequestID:  new(big.Int).SetBytes(log.Topics[1].Bytes()),
		Requester:  common.BytesToAddress(log.Topics[2].Bytes()).Hex(),
		ContentURI: uri,
	}, nil
}

// Listen delivers decoded fact-check requests to handler until ctx ends.
// It prefers a live log subscription; RPC endpoints without subscription
// support (plain HTTP) fall back to interval polling.
func (c *Client) Listen(ctx context.Context, pollInterval time.Duration, handler func(model.FactCheckRequest)) error {
	query := ethereum.FilterQuery{
		Addresses: []common.Address{c.contract},
		Topics:    [][]common.Hash{{factCheckABI.Events[eventFactCheckRequested].ID}},
	}

	logs := make(chan types.Log, 16)
	sub, err := c.eth.SubscribeFilterLogs(ctx, query, logs)
	if err != nil {
		c.logger.Info("log subscription unavailable, falling back to polling",
			zap.Error(err), zap.Duration("interval", pollInterval))
		return c.poll(ctx, query, pollInterval, handler)
	}
	defer sub.Unsubscribe()

	c.logger.Info("subscribed to fact-check requests")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			return fmt.Errorf("log subscription: %w", err)
		case log := <-logs:
			c.dispatch(log, handler)
		}
	}
}

// poll filters new logs every interval, advancing a block cursor
func (c *Client) poll(ctx context.Context, query ethereum.FilterQuery, interval time.Duration, handler func(model.FactCheckRequest)) error {
	head, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("query head block: %w", err)
	}
	cursor := head

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		head, err := c.eth.BlockNumber(ctx)
		if err != nil {
			c.logger.Warn("head block query failed", zap.Error(err))
			continue
		}
		if head <= cursor {
			continue
		}

		q := query
		q.FromBlock = new(big.Int).SetUint64(cursor + 1)
		q.ToBlock = new(big.Int).SetUint64(head)

		logs, err := c.eth.FilterLogs(ctx, q)
		if err != nil {
			c.logger.Warn("log filter failed", zap.Error(err),
				zap.Uint64("from", cursor+1), zap.Uint64("to", head))
			continue
		}

		for _, log := range logs {
			c.dispatch(log, handler)
		}
		cursor = head
	}
}

func (c *Client) dispatch(log types.Log, handler func(model.FactCheckRequest)) {
	if log.Removed {
		return
	}
	req, err := DecodeRequest(log)
	if err != nil {
		c.logger.Warn("undecodable log",
			zap.String("tx", log.TxHash.Hex()), zap.Error(err))
		return
	}
	handler(req)
}
