package aggregate

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"poolscope/internal/chaincfg"
	"poolscope/internal/model"
	"poolscope/internal/numeric"
	"poolscope/internal/storage"
)

const (
	nativeAddr = "0x0000000000000000000000000000000000000000"
	usdcAddr   = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
	tokenAAddr = "0x1111111111111111111111111111111111111111"
	tokenBAddr = "0x2222222222222222222222222222222222222222"
	hookAddr   = "0x3333333333333333333333333333333333333333"

	refPoolID  = "0x21c67e77068de97969ba93d4aab21826d33ca12bb9f565d8496e8fda8a82ca27"
	testPoolID = "0xaaaa000000000000000000000000000000000000000000000000000000000001"
)

// stubResolver serves token metadata from a fixture map without RPC.
type stubResolver struct {
	metadata map[string]model.TokenMetadata
}

func (r *stubResolver) Resolve(_ context.Context, _ uint64, address string) (model.TokenMetadata, error) {
	if meta, ok := r.metadata[strings.ToLower(address)]; ok {
		return meta, nil
	}
	return model.TokenMetadata{Name: "Test Token", Symbol: "TEST", Decimals: 18}, nil
}

type testHarness struct {
	engine *Engine
	store  *storage.MemoryStore
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	registry, err := chaincfg.NewRegistry(chaincfg.DefaultChains())
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	store := storage.NewMemoryStore()
	resolver := &stubResolver{metadata: map[string]model.TokenMetadata{
		usdcAddr:   {Name: "USD Coin", Symbol: "USDC", Decimals: 6},
		tokenAAddr: {Name: "Token A", Symbol: "TKA", Decimals: 18},
		tokenBAddr: {Name: "Token B", Symbol: "TKB", Decimals: 6},
	}}
	return &testHarness{
		engine: New(store, registry, resolver, nil),
		store:  store,
	}
}

// sqrtPriceQ96 returns floor(2^96 * num / den), a sqrt price whose raw ratio
// is num/den.
func sqrtPriceQ96(num, den int64) *big.Int {
	v := new(big.Int).Lsh(big.NewInt(num), 96)
	return v.Quo(v, big.NewInt(den))
}

func initializeEvent(poolID, currency0, currency1, hooks string, sqrtPrice *big.Int, tick int32, logIndex uint64) model.InitializeEvent {
	return model.InitializeEvent{
		EventMeta: model.EventMeta{
			ChainID:     1,
			BlockNumber: 100,
			Timestamp:   1700000000,
			TxHash:      fmt.Sprintf("0xinit%d", logIndex),
			LogIndex:    logIndex,
		},
		PoolID:       poolID,
		Currency0:    currency0,
		Currency1:    currency1,
		Fee:          3000,
		TickSpacing:  60,
		Hooks:        hooks,
		SqrtPriceX96: sqrtPrice,
		Tick:         tick,
	}
}

func swapEvent(poolID, amount0, amount1 string, sqrtPrice *big.Int, liquidity int64, tick int32, logIndex uint64) model.SwapEvent {
	a0, _ := new(big.Int).SetString(amount0, 10)
	a1, _ := new(big.Int).SetString(amount1, 10)
	return model.SwapEvent{
		EventMeta: model.EventMeta{
			ChainID:     1,
			BlockNumber: 101,
			Timestamp:   1700000100,
			TxHash:      fmt.Sprintf("0xswap%d", logIndex),
			LogIndex:    logIndex,
		},
		PoolID:       poolID,
		Sender:       "0x4444444444444444444444444444444444444444",
		Amount0:      a0,
		Amount1:      a1,
		SqrtPriceX96: sqrtPrice,
		Liquidity:    big.NewInt(liquidity),
		Tick:         tick,
	}
}

func liquidityEvent(poolID string, tickLower, tickUpper int32, delta *big.Int, logIndex uint64) model.ModifyLiquidityEvent {
	return model.ModifyLiquidityEvent{
		EventMeta: model.EventMeta{
			ChainID:     1,
			BlockNumber: 102,
			Timestamp:   1700000200,
			TxHash:      fmt.Sprintf("0xliq%d", logIndex),
			LogIndex:    logIndex,
		},
		PoolID:         poolID,
		Sender:         "0x4444444444444444444444444444444444444444",
		TickLower:      tickLower,
		TickUpper:      tickUpper,
		LiquidityDelta: delta,
	}
}

func (h *testHarness) mustPool(t *testing.T, poolID string) *model.Pool {
	t.Helper()
	pool, err := h.store.Pool(context.Background(), poolEntityID(1, poolID))
	if err != nil {
		t.Fatalf("load pool: %v", err)
	}
	if pool == nil {
		t.Fatalf("pool %s not stored", poolID)
	}
	return pool
}

func (h *testHarness) mustManager(t *testing.T) *model.PoolManager {
	t.Helper()
	cfg, _ := h.engine.chains.Lookup(1)
	manager, err := h.store.PoolManager(context.Background(), tokenEntityID(1, cfg.PoolManagerAddress))
	if err != nil {
		t.Fatalf("load manager: %v", err)
	}
	if manager == nil {
		t.Fatalf("manager not stored")
	}
	return manager
}

func TestInitializeCreatesEntities(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	ev := initializeEvent(refPoolID, nativeAddr, usdcAddr, nativeAddr, sqrtPriceQ96(1, 500000), 0, 1)
	if err := h.engine.HandleInitialize(ctx, ev, false); err != nil {
		t.Fatalf("HandleInitialize: %v", err)
	}

	pool := h.mustPool(t, refPoolID)
	if pool.FeeTierPpm != 3000 {
		t.Fatalf("fee tier = %d, want 3000", pool.FeeTierPpm)
	}
	if !pool.Tick.IsSet() {
		t.Fatalf("pool tick should be set from the event")
	}
	if pool.Token0Price.IsZero() {
		t.Fatalf("token0 price not derived from sqrt price")
	}

	native, err := h.store.Token(ctx, tokenEntityID(1, nativeAddr))
	if err != nil || native == nil {
		t.Fatalf("native token not stored: %v", err)
	}
	if native.Symbol != "ETH" || native.Decimals != 18 {
		t.Fatalf("native token from config: got %s/%d", native.Symbol, native.Decimals)
	}
	if !native.DerivedNative.Equal(numeric.One()) {
		t.Fatalf("native derived price = %s, want 1", native.DerivedNative)
	}

	usdc, err := h.store.Token(ctx, tokenEntityID(1, usdcAddr))
	if err != nil || usdc == nil {
		t.Fatalf("usdc token not stored: %v", err)
	}
	if usdc.Symbol != "USDC" || usdc.Decimals != 6 {
		t.Fatalf("usdc metadata: got %s/%d", usdc.Symbol, usdc.Decimals)
	}
	// Both sides are whitelisted, so each token gains the pool as an edge.
	if len(native.WhitelistPools) != 1 || len(usdc.WhitelistPools) != 1 {
		t.Fatalf("whitelist edges: native=%d usdc=%d, want 1 each",
			len(native.WhitelistPools), len(usdc.WhitelistPools))
	}

	manager := h.mustManager(t)
	if manager.PoolCount.Int64() != 1 {
		t.Fatalf("manager pool count = %s, want 1", manager.PoolCount)
	}
	if manager.HookedPools.Int64() != 0 {
		t.Fatalf("hooked pools = %s, want 0 for zero hook address", manager.HookedPools)
	}
}

func TestInitializeHookedPool(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	ev := initializeEvent(testPoolID, tokenAAddr, tokenBAddr, hookAddr, sqrtPriceQ96(1, 1), 0, 1)
	if err := h.engine.HandleInitialize(ctx, ev, false); err != nil {
		t.Fatalf("HandleInitialize: %v", err)
	}

	hook, err := h.store.HookStats(ctx, tokenEntityID(1, hookAddr))
	if err != nil || hook == nil {
		t.Fatalf("hook stats not stored: %v", err)
	}
	if hook.NumberOfPools.Int64() != 1 {
		t.Fatalf("hook pool count = %s, want 1", hook.NumberOfPools)
	}
	if hook.FirstPoolCreatedAt != 1700000000 {
		t.Fatalf("first pool created at = %d", hook.FirstPoolCreatedAt)
	}
	if h.mustManager(t).HookedPools.Int64() != 1 {
		t.Fatalf("manager hooked pools != 1")
	}
}

func TestInitializeRedeliveryIsNoop(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	ev := initializeEvent(testPoolID, tokenAAddr, tokenBAddr, nativeAddr, sqrtPriceQ96(1, 1), 0, 1)
	if err := h.engine.HandleInitialize(ctx, ev, false); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := h.engine.HandleInitialize(ctx, ev, false); err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if got := h.mustManager(t).PoolCount.Int64(); got != 1 {
		t.Fatalf("pool count after redelivery = %d, want 1", got)
	}
}

func TestSkipListedPoolWritesNothing(t *testing.T) {
	chains := chaincfg.DefaultChains()
	chains[0].SkipPools = []string{testPoolID}
	registry, err := chaincfg.NewRegistry(chains)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	store := storage.NewMemoryStore()
	engine := New(store, registry, &stubResolver{}, nil)
	ctx := context.Background()

	ev := initializeEvent(testPoolID, tokenAAddr, tokenBAddr, nativeAddr, sqrtPriceQ96(1, 1), 0, 1)
	if err := engine.HandleInitialize(ctx, ev, false); err != nil {
		t.Fatalf("HandleInitialize: %v", err)
	}
	pool, err := store.Pool(ctx, poolEntityID(1, testPoolID))
	if err != nil {
		t.Fatalf("load pool: %v", err)
	}
	if pool != nil {
		t.Fatalf("skip-listed pool was stored")
	}
}

func TestPreloadIssuesNoWrites(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	ev := initializeEvent(testPoolID, tokenAAddr, tokenBAddr, nativeAddr, sqrtPriceQ96(1, 1), 0, 1)
	if err := h.engine.HandleInitialize(ctx, ev, true); err != nil {
		t.Fatalf("preload initialize: %v", err)
	}
	pool, err := h.store.Pool(ctx, poolEntityID(1, testPoolID))
	if err != nil {
		t.Fatalf("load pool: %v", err)
	}
	if pool != nil {
		t.Fatalf("preload pass must not write")
	}
}

func TestProcessEnvelopeDispatch(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	env := model.EventEnvelope{
		ChainID:     1,
		BlockNumber: 100,
		Timestamp:   1700000000,
		TxHash:      "0xabc",
		LogIndex:    7,
		EventName:   "Initialize",
		Params: []byte(fmt.Sprintf(
			`{"pool_id":%q,"currency0":%q,"currency1":%q,"fee":500,"tick_spacing":10,"hooks":%q,"sqrt_price_x96":"79228162514264337593543950336","tick":0}`,
			testPoolID, tokenAAddr, tokenBAddr, nativeAddr)),
	}
	if err := h.engine.ProcessEnvelope(ctx, env, false); err != nil {
		t.Fatalf("ProcessEnvelope: %v", err)
	}
	pool := h.mustPool(t, testPoolID)
	if pool.FeeTierPpm != 500 {
		t.Fatalf("fee tier = %d, want 500", pool.FeeTierPpm)
	}

	// Unknown event kinds are skipped without error.
	env.EventName = "Donate"
	env.LogIndex = 8
	if err := h.engine.ProcessEnvelope(ctx, env, false); err != nil {
		t.Fatalf("unknown event should be skipped: %v", err)
	}
}
