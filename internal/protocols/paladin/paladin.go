// Package paladin decodes reward claims from Paladin Quest distributors.
package paladin

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"historyScope/internal/decoding"
	"historyScope/internal/merkle"
	"historyScope/internal/model"
)

const CPTPaladin = "paladin"

var (
	details = model.CounterpartyDetails{Identifier: CPTPaladin, Label: "Paladin", Image: "paladin.svg"}

	// ClaimedTopic is Claimed(uint256 indexed questID, uint256 indexed period,
	// uint256 index, uint256 amount, address rewardToken, address indexed account).
	ClaimedTopic = crypto.Keccak256Hash([]byte("Claimed(uint256,uint256,uint256,uint256,address,address)"))

	questLayout = merkle.Layout{ClaimantTopic: 3, AmountWord: 1, TokenFromLog: true, TokenWord: 2}
)

// Quest distributors per gauge system.
var distributors = map[uint64][]common.Address{
	1: {
		common.HexToAddress("0x999881aA6D2c4B2F2fCfE2ed2D33CdE7FaC7AF17"),
		common.HexToAddress("0x1FF78d6aa5BeE9e3b63C1ce91Bd02F1fDB8Dfd9c"),
	},
}

// New builds the Paladin protocol for a chain.
func New(chainID uint64) decoding.Protocol {
	addrs := distributors[chainID]
	p := decoding.Protocol{
		Name:     "paladin",
		Handlers: make(map[common.Address]decoding.LogHandler, len(addrs)),
	}
	if len(addrs) == 0 {
		return p
	}
	p.Counterparties = []model.CounterpartyDetails{details}
	p.Products = map[string][]model.Product{CPTPaladin: {model.ProductBribe}}
	for _, addr := range addrs {
		p.Handlers[addr] = decodeClaim
	}
	return p
}

func decodeClaim(ctx *decoding.DecoderContext) (decoding.DecodingOutput, error) {
	layout := questLayout
	return merkle.DecodeMerkleClaim(ctx, merkle.ClaimConfig{
		Topic:        ClaimedTopic,
		Counterparty: CPTPaladin,
		Layout:       &layout,
		NotesSuffix:  "from Paladin veCRV bribes",
		Product:      model.ProductBribe,
	})
}
