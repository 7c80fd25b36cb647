// Package chain integrates with the fact-check registry contract: it
// decodes FactCheckRequested events and submits fulfillFactCheck
// transactions under a single serialized signer.
package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// The relayer only touches two members of the registry contract; the rest
// of its surface (staking, article CRUD, vote tallies) belongs to the
// frontend.
const factCheckABIJSON = `[
  {
    "type": "event",
    "name": "FactCheckRequested",
    "anonymous": false,
    "inputs": [
      {"name": "requestId", "type": "uint256", "indexed": true},
      {"name": "requester", "type": "address", "indexed": true},
      {"name": "uri", "type": "string", "indexed": false}
    ]
  },
  {
    "type": "function",
    "name": "fulfillFactCheck",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "requestId", "type": "uint256"},
      {"name": "verdict", "type": "string"},
      {"name": "explanation", "type": "string"}
    ],
    "outputs": []
  }
]`

const (
	eventFactCheckRequested = "FactCheckRequested"
	methodFulfillFactCheck  = "fulfillFactCheck"
)

var factCheckABI = mustParseABI(factCheckABIJSON)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("invalid embedded ABI: " + err.Error())
	}
	return parsed
}
