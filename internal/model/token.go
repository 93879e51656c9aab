package model

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// NativeAssetETH identifies ether on every EVM chain that uses it as gas token.
const NativeAssetETH = "ETH"

// Token captures ERC20 metadata together with its asset identifier.
type Token struct {
	Identifier string         `json:"identifier"`
	Address    common.Address `json:"address"`
	ChainID    uint64         `json:"chain_id"`
	Decimals   uint8          `json:"decimals"`
	Symbol     string         `json:"symbol"`
	Name       string         `json:"name"`
}

// EvmTokenIdentifier builds the CAIP-19 style identifier of an ERC20 token.
func EvmTokenIdentifier(chainID uint64, address common.Address) string {
	return fmt.Sprintf("eip155:%d/erc20:%s", chainID, address.Hex())
}

// NewToken builds a Token with its identifier filled in.
func NewToken(chainID uint64, address common.Address, decimals uint8, symbol, name string) Token {
	return Token{
		Identifier: EvmTokenIdentifier(chainID, address),
		Address:    address,
		ChainID:    chainID,
		Decimals:   decimals,
		Symbol:     symbol,
		Name:       name,
	}
}

// DisplaySymbol returns the symbol, falling back to the identifier.
func (t Token) DisplaySymbol() string {
	if s := strings.TrimSpace(t.Symbol); s != "" {
		return s
	}
	return t.Identifier
}
