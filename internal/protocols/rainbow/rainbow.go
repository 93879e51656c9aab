// Package rainbow decodes swaps routed through the Rainbow router. The router
// emits no log of its own so swaps are recognized from the transaction input
// after all logs were decoded.
package rainbow

import (
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"historyScope/internal/amount"
	"historyScope/internal/decoding"
	"historyScope/internal/model"
)

const CPTRainbow = "rainbow"

// Router is the Rainbow router, deployed at the same address on every chain.
var Router = common.HexToAddress("0x00000000009726632680FB29d3F7A9734E3010E2")

var details = model.CounterpartyDetails{Identifier: CPTRainbow, Label: "Rainbow", Image: "rainbow.svg"}

const routerABIJSON = `[
  {"type":"function","name":"fillQuoteEthToToken","stateMutability":"payable","outputs":[],"inputs":[
    {"name":"buyTokenAddress","type":"address"},
    {"name":"target","type":"address"},
    {"name":"swapCallData","type":"bytes"},
    {"name":"feeAmount","type":"uint256"}
  ]},
  {"type":"function","name":"fillQuoteTokenToToken","stateMutability":"payable","outputs":[],"inputs":[
    {"name":"sellTokenAddress","type":"address"},
    {"name":"buyTokenAddress","type":"address"},
    {"name":"target","type":"address"},
    {"name":"swapCallData","type":"bytes"},
    {"name":"sellAmount","type":"uint256"},
    {"name":"feeAmount","type":"uint256"}
  ]}
]`

var (
	routerABI     abi.ABI
	routerABIErr  error
	routerABIOnce sync.Once
)

func parsedRouterABI() (abi.ABI, error) {
	routerABIOnce.Do(func() {
		routerABI, routerABIErr = abi.JSON(strings.NewReader(routerABIJSON))
	})
	return routerABI, routerABIErr
}

// New builds the Rainbow protocol. The router address is the same on every chain.
func New(chainID uint64) decoding.Protocol {
	return decoding.Protocol{
		Name:                  "rainbow",
		Counterparties:        []model.CounterpartyDetails{details},
		AddressCounterparties: map[common.Address]string{Router: CPTRainbow},
		PostRules: []decoding.PostRule{{
			Counterparty: CPTRainbow,
			Priority:     0,
			Rule:         decodeSwap,
		}},
	}
}

// swap is a router call reduced to what the events need.
type swap struct {
	sell *common.Address // nil for the native asset
	buy  common.Address
	fee  *big.Int
}

func parseSwap(tx model.Transaction) (swap, bool, error) {
	selector, ok := tx.Selector()
	if !ok {
		return swap{}, false, nil
	}
	parsed, err := parsedRouterABI()
	if err != nil {
		return swap{}, false, err
	}
	method, err := parsed.MethodById(selector[:])
	if err != nil {
		return swap{}, false, nil
	}
	args, err := method.Inputs.Unpack(tx.Input[4:])
	if err != nil {
		return swap{}, false, fmt.Errorf("unpack %s: %w", method.Name, err)
	}

	switch method.Name {
	case "fillQuoteEthToToken":
		return swap{buy: args[0].(common.Address), fee: args[3].(*big.Int)}, true, nil
	case "fillQuoteTokenToToken":
		sell := args[0].(common.Address)
		return swap{sell: &sell, buy: args[1].(common.Address), fee: args[5].(*big.Int)}, true, nil
	default:
		return swap{}, false, nil
	}
}

type asset struct {
	identifier string
	symbol     string
	decimals   int
}

func resolveAsset(ctx *decoding.PostDecodingContext, address *common.Address) (asset, error) {
	if address == nil {
		return asset{identifier: ctx.Tools.NativeAsset, symbol: ctx.Tools.NativeAsset, decimals: amount.DefaultDecimals}, nil
	}
	token, err := ctx.Tools.Token(ctx.Context, *address)
	if err != nil {
		return asset{}, err
	}
	return asset{identifier: token.Identifier, symbol: token.DisplaySymbol(), decimals: int(token.Decimals)}, nil
}

// decodeSwap turns the sender's spend and receive into a trade pair and books
// the amount kept by the router as a separate fee.
func decodeSwap(ctx *decoding.PostDecodingContext) error {
	tx := ctx.Transaction
	if tx.To == nil || *tx.To != Router || !ctx.Tools.IsTracked(tx.From) {
		return nil
	}
	s, ok, err := parseSwap(tx)
	if err != nil || !ok {
		return err
	}

	sold, err := resolveAsset(ctx, s.sell)
	if err != nil {
		return fmt.Errorf("sold asset: %w", err)
	}
	bought, err := resolveAsset(ctx, &s.buy)
	if err != nil {
		return fmt.Errorf("bought asset: %w", err)
	}
	fee, err := amount.Normalize(s.fee, sold.decimals)
	if err != nil {
		return err
	}

	sender := tx.From.Hex()
	spends := ctx.Events.Find(func(e model.HistoryEvent) bool {
		return e.EventType == model.EventTypeSpend &&
			e.EventSubtype == model.EventSubtypeNone &&
			e.Asset == sold.identifier &&
			e.LocationLabel == sender
	})
	receives := ctx.Events.Find(func(e model.HistoryEvent) bool {
		return e.EventType == model.EventTypeReceive &&
			e.EventSubtype == model.EventSubtypeNone &&
			e.Asset == bought.identifier &&
			e.LocationLabel == sender
	})
	if len(spends) == 0 || len(receives) == 0 {
		ctx.Logger.Debug("rainbow swap without spend and receive pair",
			zap.Int("spends", len(spends)),
			zap.Int("receives", len(receives)),
		)
		return nil
	}

	spent := ctx.Events.At(spends[0]).Amount
	if fee.IsPositive() && fee.LessThan(spent) {
		spent = spent.Sub(fee)
	} else {
		fee = decimal.Zero
	}
	err = ctx.Events.Update(spends[0], func(e *model.HistoryEvent) {
		e.EventType = model.EventTypeTrade
		e.EventSubtype = model.EventSubtypeSpend
		e.Counterparty = CPTRainbow
		e.Amount = spent
		e.Notes = fmt.Sprintf("Swap %s %s in %s", spent.String(), sold.symbol, details.Label)
	})
	if err != nil {
		return err
	}
	err = ctx.Events.Update(receives[0], func(e *model.HistoryEvent) {
		e.EventType = model.EventTypeTrade
		e.EventSubtype = model.EventSubtypeReceive
		e.Counterparty = CPTRainbow
		e.Notes = fmt.Sprintf("Receive %s %s as the result of a swap in %s", e.Amount.String(), bought.symbol, details.Label)
	})
	if err != nil {
		return err
	}

	if fee.IsZero() {
		return nil
	}
	router := Router
	_, err = ctx.InsertEventAfter(receives[0], decoding.EventParams{
		EventType:     model.EventTypeTrade,
		EventSubtype:  model.EventSubtypeFee,
		Asset:         sold.identifier,
		Amount:        fee,
		LocationLabel: sender,
		Counterparty:  CPTRainbow,
		Notes:         fmt.Sprintf("Spend %s %s as a %s fee", fee.String(), sold.symbol, details.Label),
		Address:       &router,
	})
	return err
}
