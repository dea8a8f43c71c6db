package storage

import (
	"context"
	"math/big"
	"testing"

	"poolscope/internal/model"
	"poolscope/internal/numeric"
)

func TestMemoryStoreAbsentEntitiesAreNil(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	bundle, err := store.Bundle(ctx, 1)
	if err != nil {
		t.Fatalf("Bundle: %v", err)
	}
	if bundle != nil {
		t.Fatalf("absent bundle = %+v, want nil", bundle)
	}
	pool, err := store.Pool(ctx, "1:0xabc")
	if err != nil {
		t.Fatalf("Pool: %v", err)
	}
	if pool != nil {
		t.Fatalf("absent pool = %+v, want nil", pool)
	}
	token, err := store.Token(ctx, "1:0xabc")
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if token != nil {
		t.Fatalf("absent token = %+v, want nil", token)
	}
}

func TestMemoryStoreApplyAndReadBack(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	batch := &Batch{
		Bundles: []*model.Bundle{{ChainID: 1, NativePriceUSD: numeric.FromInt64(2000)}},
		Tokens:  []*model.Token{{ID: "1:0xaaa", Symbol: "AAA", WhitelistPools: []string{"1:0xp"}}},
		Pools:   []*model.Pool{{ID: "1:0xp", ChainID: 1, TxCount: big.NewInt(3)}},
	}
	if err := store.Apply(ctx, batch); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	bundle, _ := store.Bundle(ctx, 1)
	if bundle == nil || !bundle.NativePriceUSD.Equal(numeric.FromInt64(2000)) {
		t.Fatalf("bundle = %+v", bundle)
	}
	pool, _ := store.Pool(ctx, "1:0xp")
	if pool == nil || pool.TxCount.Int64() != 3 {
		t.Fatalf("pool = %+v", pool)
	}
	token, _ := store.Token(ctx, "1:0xaaa")
	if token == nil || token.Symbol != "AAA" {
		t.Fatalf("token = %+v", token)
	}
}

func TestMemoryStoreReadsDoNotAliasState(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	original := &model.Token{ID: "1:0xaaa", Symbol: "AAA", WhitelistPools: []string{"1:0xp"}}
	if err := store.Apply(ctx, &Batch{Tokens: []*model.Token{original}}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	// Mutating the value handed to Apply must not leak into the store.
	original.Symbol = "MUTATED"
	original.WhitelistPools[0] = "1:0xevil"

	first, _ := store.Token(ctx, "1:0xaaa")
	if first.Symbol != "AAA" || first.WhitelistPools[0] != "1:0xp" {
		t.Fatalf("store aliased the caller's value: %+v", first)
	}

	// Nor must mutating a read result affect later reads.
	first.Symbol = "SCRIBBLED"
	first.WhitelistPools[0] = "1:0xother"
	second, _ := store.Token(ctx, "1:0xaaa")
	if second.Symbol != "AAA" || second.WhitelistPools[0] != "1:0xp" {
		t.Fatalf("reads alias each other: %+v", second)
	}
}

func TestMemoryStoreLastWriteWins(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	batch := &Batch{Pools: []*model.Pool{
		{ID: "1:0xp", TxCount: big.NewInt(1)},
		{ID: "1:0xp", TxCount: big.NewInt(2)},
	}}
	if err := store.Apply(ctx, batch); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	pool, _ := store.Pool(ctx, "1:0xp")
	if pool.TxCount.Int64() != 2 {
		t.Fatalf("TxCount = %s, want 2", pool.TxCount)
	}
}

func TestBatchEmptyAndSize(t *testing.T) {
	var nilBatch *Batch
	if !nilBatch.Empty() || nilBatch.Size() != 0 {
		t.Fatalf("nil batch should be empty")
	}
	batch := &Batch{}
	if !batch.Empty() {
		t.Fatalf("zero batch should be empty")
	}
	batch.Ticks = append(batch.Ticks, &model.Tick{ID: "1:0xp#0"})
	batch.Swaps = append(batch.Swaps, &model.SwapRecord{ID: "1:0xh#0"})
	if batch.Empty() || batch.Size() != 2 {
		t.Fatalf("Empty=%v Size=%d", batch.Empty(), batch.Size())
	}
}
