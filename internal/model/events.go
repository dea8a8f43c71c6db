package model

import (
	"encoding/json"
	"fmt"
	"math/big"
)

// EventEnvelope is the JSON representation of one delivered on-chain event.
// Params stays raw until the event name selects a payload type.
type EventEnvelope struct {
	ChainID     uint64          `json:"chain_id"`
	BlockNumber uint64          `json:"block_number"`
	Timestamp   uint64          `json:"timestamp"`
	TxHash      string          `json:"tx_hash"`
	LogIndex    uint64          `json:"log_index"`
	SrcAddress  string          `json:"src_address"`
	EventName   string          `json:"event_name"`
	Params      json.RawMessage `json:"params"`
}

// InitializeEventData is the decoded pool-creation payload.
type InitializeEventData struct {
	PoolID       string `json:"pool_id"`
	Currency0    string `json:"currency0"`
	Currency1    string `json:"currency1"`
	Fee          uint32 `json:"fee"`
	TickSpacing  int32  `json:"tick_spacing"`
	Hooks        string `json:"hooks"`
	SqrtPriceX96 string `json:"sqrt_price_x96"`
	Tick         int32  `json:"tick"`
}

// SwapEventData is the decoded swap payload. Amounts are signed 256-bit
// integers carried as decimal strings.
type SwapEventData struct {
	PoolID       string `json:"pool_id"`
	Sender       string `json:"sender"`
	Amount0      string `json:"amount0"`
	Amount1      string `json:"amount1"`
	SqrtPriceX96 string `json:"sqrt_price_x96"`
	Liquidity    string `json:"liquidity"`
	Tick         int32  `json:"tick"`
}

// ModifyLiquidityEventData is the decoded liquidity-change payload.
type ModifyLiquidityEventData struct {
	PoolID         string `json:"pool_id"`
	Sender         string `json:"sender"`
	TickLower      int32  `json:"tick_lower"`
	TickUpper      int32  `json:"tick_upper"`
	LiquidityDelta string `json:"liquidity_delta"`
	Salt           string `json:"salt"`
}

// EventMeta carries the chain/block coordinates shared by every event kind.
type EventMeta struct {
	ChainID     uint64
	BlockNumber uint64
	Timestamp   uint64
	TxHash      string
	LogIndex    uint64
	SrcAddress  string
}

// InitializeEvent is a parsed pool-creation event.
type InitializeEvent struct {
	EventMeta
	PoolID       string
	Currency0    string
	Currency1    string
	Fee          uint32
	TickSpacing  int32
	Hooks        string
	SqrtPriceX96 *big.Int
	Tick         int32
}

// SwapEvent is a parsed swap event.
type SwapEvent struct {
	EventMeta
	PoolID       string
	Sender       string
	Amount0      *big.Int
	Amount1      *big.Int
	SqrtPriceX96 *big.Int
	Liquidity    *big.Int
	Tick         int32
}

// ModifyLiquidityEvent is a parsed liquidity-change event.
type ModifyLiquidityEvent struct {
	EventMeta
	PoolID         string
	Sender         string
	TickLower      int32
	TickUpper      int32
	LiquidityDelta *big.Int
}

func (e EventEnvelope) meta() EventMeta {
	return EventMeta{
		ChainID:     e.ChainID,
		BlockNumber: e.BlockNumber,
		Timestamp:   e.Timestamp,
		TxHash:      e.TxHash,
		LogIndex:    e.LogIndex,
		SrcAddress:  e.SrcAddress,
	}
}

// ParseInitialize decodes the envelope as a pool-creation event.
func (e EventEnvelope) ParseInitialize() (InitializeEvent, error) {
	var data InitializeEventData
	if err := json.Unmarshal(e.Params, &data); err != nil {
		return InitializeEvent{}, fmt.Errorf("decode initialize params: %w", err)
	}
	sqrtPrice, err := ParseBigInt(data.SqrtPriceX96)
	if err != nil {
		return InitializeEvent{}, fmt.Errorf("sqrt price: %w", err)
	}
	return InitializeEvent{
		EventMeta:    e.meta(),
		PoolID:       data.PoolID,
		Currency0:    data.Currency0,
		Currency1:    data.Currency1,
		Fee:          data.Fee,
		TickSpacing:  data.TickSpacing,
		Hooks:        data.Hooks,
		SqrtPriceX96: sqrtPrice,
		Tick:         data.Tick,
	}, nil
}

// ParseSwap decodes the envelope as a swap event.
func (e EventEnvelope) ParseSwap() (SwapEvent, error) {
	var data SwapEventData
	if err := json.Unmarshal(e.Params, &data); err != nil {
		return SwapEvent{}, fmt.Errorf("decode swap params: %w", err)
	}
	amount0, err := ParseBigInt(data.Amount0)
	if err != nil {
		return SwapEvent{}, fmt.Errorf("amount0: %w", err)
	}
	amount1, err := ParseBigInt(data.Amount1)
	if err != nil {
		return SwapEvent{}, fmt.Errorf("amount1: %w", err)
	}
	sqrtPrice, err := ParseBigInt(data.SqrtPriceX96)
	if err != nil {
		return SwapEvent{}, fmt.Errorf("sqrt price: %w", err)
	}
	liquidity, err := ParseBigInt(data.Liquidity)
	if err != nil {
		return SwapEvent{}, fmt.Errorf("liquidity: %w", err)
	}
	return SwapEvent{
		EventMeta:    e.meta(),
		PoolID:       data.PoolID,
		Sender:       data.Sender,
		Amount0:      amount0,
		Amount1:      amount1,
		SqrtPriceX96: sqrtPrice,
		Liquidity:    liquidity,
		Tick:         data.Tick,
	}, nil
}

// ParseModifyLiquidity decodes the envelope as a liquidity-change event.
func (e EventEnvelope) ParseModifyLiquidity() (ModifyLiquidityEvent, error) {
	var data ModifyLiquidityEventData
	if err := json.Unmarshal(e.Params, &data); err != nil {
		return ModifyLiquidityEvent{}, fmt.Errorf("decode modify liquidity params: %w", err)
	}
	delta, err := ParseBigInt(data.LiquidityDelta)
	if err != nil {
		return ModifyLiquidityEvent{}, fmt.Errorf("liquidity delta: %w", err)
	}
	return ModifyLiquidityEvent{
		EventMeta:      e.meta(),
		PoolID:         data.PoolID,
		Sender:         data.Sender,
		TickLower:      data.TickLower,
		TickUpper:      data.TickUpper,
		LiquidityDelta: delta,
	}, nil
}

// ParseBigInt reads a decimal string into a big integer; empty means zero.
func ParseBigInt(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid int: %s", value)
	}
	return parsed, nil
}

// RecordID builds the write-once key for an event record.
func RecordID(chainID uint64, txHash string, logIndex uint64) string {
	return fmt.Sprintf("%d:%s#%d", chainID, txHash, logIndex)
}
