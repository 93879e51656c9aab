package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventTypeTrade         EventType = "trade"
	EventTypeStaking       EventType = "staking"
	EventTypeDeposit       EventType = "deposit"
	EventTypeWithdrawal    EventType = "withdrawal"
	EventTypeTransfer      EventType = "transfer"
	EventTypeSpend         EventType = "spend"
	EventTypeReceive       EventType = "receive"
	EventTypeAdjustment    EventType = "adjustment"
	EventTypeUnknown       EventType = "unknown"
	EventTypeInformational EventType = "informational"
	EventTypeMigrate       EventType = "migrate"
	EventTypeRenew         EventType = "renew"
)

type EventSubtype string

const (
	EventSubtypeNone           EventSubtype = "none"
	EventSubtypeReward         EventSubtype = "reward"
	EventSubtypeDepositAsset   EventSubtype = "deposit asset"
	EventSubtypeRemoveAsset    EventSubtype = "remove asset"
	EventSubtypeFee            EventSubtype = "fee"
	EventSubtypeSpend          EventSubtype = "spend"
	EventSubtypeReceive        EventSubtype = "receive"
	EventSubtypeApprove        EventSubtype = "approve"
	EventSubtypeDeploy         EventSubtype = "deploy"
	EventSubtypeAirdrop        EventSubtype = "airdrop"
	EventSubtypeBridge         EventSubtype = "bridge"
	EventSubtypeGovernance     EventSubtype = "governance"
	EventSubtypeGenerateDebt   EventSubtype = "generate debt"
	EventSubtypePaybackDebt    EventSubtype = "payback debt"
	EventSubtypeReceiveWrapped EventSubtype = "receive wrapped"
	EventSubtypeReturnWrapped  EventSubtype = "return wrapped"
	EventSubtypeDonate         EventSubtype = "donate"
	EventSubtypeNFT            EventSubtype = "nft"
	EventSubtypePlaceOrder     EventSubtype = "place order"
)

// Product tags the protocol product an event belongs to. Empty means none.
type Product string

const (
	ProductNone    Product = ""
	ProductBribe   Product = "bribe"
	ProductGauge   Product = "gauge"
	ProductPool    Product = "pool"
	ProductStaking Product = "staking"
	ProductBridge  Product = "bridge"
)

// HistoryEvent is one normalized event decoded from a transaction.
// Amount is always decimal-normalized with the asset's precision.
type HistoryEvent struct {
	TxHash        common.Hash     `json:"tx_hash"`
	SequenceIndex int             `json:"sequence_index"`
	Timestamp     uint64          `json:"timestamp"`
	Location      string          `json:"location"`
	EventType     EventType       `json:"event_type"`
	EventSubtype  EventSubtype    `json:"event_subtype"`
	Asset         string          `json:"asset"`
	Amount        decimal.Decimal `json:"amount"`
	LocationLabel string          `json:"location_label,omitempty"`
	Counterparty  string          `json:"counterparty,omitempty"`
	Product       Product         `json:"product,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	Address       *common.Address `json:"address,omitempty"`
	ExtraData     map[string]any  `json:"extra_data,omitempty"`
}

// Clone returns a copy that shares no mutable state with e.
func (e HistoryEvent) Clone() HistoryEvent {
	out := e
	if e.Address != nil {
		addr := *e.Address
		out.Address = &addr
	}
	if e.ExtraData != nil {
		out.ExtraData = make(map[string]any, len(e.ExtraData))
		for k, v := range e.ExtraData {
			out.ExtraData[k] = v
		}
	}
	return out
}
