// Package airdrops decodes token airdrop claims from Merkle distributors.
package airdrops

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"historyScope/internal/decoding"
	"historyScope/internal/merkle"
	"historyScope/internal/model"
)

const (
	CPTUniswap  = "uniswap"
	CPTENS      = "ens"
	CPTArbitrum = "arbitrum_one"
)

var (
	uniswapDetails  = model.CounterpartyDetails{Identifier: CPTUniswap, Label: "Uniswap", Image: "uniswap.svg"}
	ensDetails      = model.CounterpartyDetails{Identifier: CPTENS, Label: "ENS", Image: "ens.svg"}
	arbitrumDetails = model.CounterpartyDetails{Identifier: CPTArbitrum, Label: "Arbitrum One", Image: "arbitrum_one.svg"}

	distributorClaimed = crypto.Keccak256Hash([]byte("Claimed(uint256,address,uint256)"))
	ensClaim           = crypto.Keccak256Hash([]byte("Claim(address,uint256)"))
	arbHasClaimed      = crypto.Keccak256Hash([]byte("HasClaimed(address,uint256)"))

	ensClaimTokens = selector("claimTokens(uint256,address,bytes32[])")
)

func selector(signature string) [4]byte {
	var out [4]byte
	copy(out[:], crypto.Keccak256([]byte(signature)))
	return out
}

type distributor struct {
	address      common.Address
	counterparty model.CounterpartyDetails
	topic        common.Hash
	token        model.Token
	layout       merkle.Layout
	notesSuffix  string
	// claimMethod is set when the distributor is also the token. The claim is
	// then matched by the called method so the token's own logs keep the
	// generic decoding.
	claimMethod *[4]byte
}

func distributors(chainID uint64) []distributor {
	switch chainID {
	case 1:
		uni := common.HexToAddress("0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984")
		ens := common.HexToAddress("0xC18360217D8F7Ab5e7c516566761Ea12Ce7F9D72")
		return []distributor{
			{
				address:      common.HexToAddress("0x090D4613473dEE047c3f2706764f49E0821D256e"),
				counterparty: uniswapDetails,
				topic:        distributorClaimed,
				token:        model.NewToken(chainID, uni, 18, "UNI", "Uniswap"),
				layout:       merkle.DistributorLayout,
				notesSuffix:  "from uniswap airdrop",
			},
			{
				address:      ens,
				counterparty: ensDetails,
				topic:        ensClaim,
				token:        model.NewToken(chainID, ens, 18, "ENS", "Ethereum Name Service"),
				layout:       merkle.DefaultLayout,
				notesSuffix:  "from ENS airdrop",
				claimMethod:  &ensClaimTokens,
			},
		}
	case 42161:
		arb := common.HexToAddress("0x912CE59144191C1204E64559FE8253a0e49E6548")
		return []distributor{{
			address:      common.HexToAddress("0x67a24CE4321aB3aF51c2D0a4801c3E111D88C9d9"),
			counterparty: arbitrumDetails,
			topic:        arbHasClaimed,
			token:        model.NewToken(chainID, arb, 18, "ARB", "Arbitrum"),
			layout:       merkle.DefaultLayout,
			notesSuffix:  "from arbitrum airdrop",
		}}
	default:
		return nil
	}
}

// New builds the airdrop protocol for a chain.
func New(chainID uint64) decoding.Protocol {
	p := decoding.Protocol{
		Name:     "airdrops",
		Handlers: make(map[common.Address]decoding.LogHandler),
	}
	for _, d := range distributors(chainID) {
		p.Counterparties = append(p.Counterparties, d.counterparty)
		if d.claimMethod == nil {
			p.Handlers[d.address] = claimHandler(d)
			continue
		}
		if p.InputDataRules == nil {
			p.InputDataRules = make(map[[4]byte]map[common.Hash]decoding.LogHandler)
		}
		p.InputDataRules[*d.claimMethod] = map[common.Hash]decoding.LogHandler{d.topic: claimHandler(d)}
	}
	return p
}

func claimHandler(d distributor) decoding.LogHandler {
	token := d.token
	layout := d.layout
	cfg := merkle.ClaimConfig{
		Topic:        d.topic,
		Counterparty: d.counterparty.Identifier,
		Token:        &token,
		Layout:       &layout,
		NotesSuffix:  d.notesSuffix,
		Subtype:      model.EventSubtypeAirdrop,
	}
	address := d.address
	return func(ctx *decoding.DecoderContext) (decoding.DecodingOutput, error) {
		if ctx.Log.Address != address {
			return decoding.DecodingOutput{}, nil
		}
		return merkle.DecodeMerkleClaim(ctx, cfg)
	}
}
