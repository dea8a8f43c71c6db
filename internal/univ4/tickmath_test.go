package univ4

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
)

func TestSqrtRatioAtTickZero(t *testing.T) {
	got := SqrtRatioAtTick(0)
	want := new(uint256.Int).Lsh(uint256.NewInt(1), 96)
	if !got.Eq(want) {
		t.Fatalf("sqrt ratio at tick 0 = %s, want 2^96 = %s", got, want)
	}
}

func TestSqrtRatioAtTickBounds(t *testing.T) {
	minRatio := SqrtRatioAtTick(MinTick)
	if minRatio.String() != "4295128739" {
		t.Fatalf("sqrt ratio at min tick = %s, want 4295128739", minRatio)
	}

	maxRatio := SqrtRatioAtTick(MaxTick)
	want := "1461446703485210103287273052203988822378723970342"
	if maxRatio.Dec() != want {
		t.Fatalf("sqrt ratio at max tick = %s, want %s", maxRatio.Dec(), want)
	}
}

func TestSqrtRatioAtTickMonotonic(t *testing.T) {
	ticks := []int32{-887272, -100000, -60, -1, 0, 1, 60, 100000, 887272}
	previous := SqrtRatioAtTick(ticks[0])
	for _, tick := range ticks[1:] {
		current := SqrtRatioAtTick(tick)
		if current.Cmp(previous) <= 0 {
			t.Fatalf("sqrt ratio not increasing at tick %d: %s <= %s", tick, current, previous)
		}
		previous = current
	}
}

func TestSqrtRatioSymmetry(t *testing.T) {
	// ratio(t) * ratio(-t) should be close to 2^192 (exact inversion is
	// lost to fixed-point rounding, but the product must stay within a
	// tiny relative error).
	for _, tick := range []int32{1, 60, 1000, 887272} {
		up := SqrtRatioAtTick(tick).ToBig()
		down := SqrtRatioAtTick(-tick).ToBig()
		product := new(big.Int).Mul(up, down)

		diff := new(big.Int).Sub(product, Q192)
		diff.Abs(diff)
		// The extreme ticks carry only ~32 significant bits, so allow
		// one part in 2^28 of the target.
		limit := new(big.Int).Rsh(Q192, 28)
		if diff.Cmp(limit) > 0 {
			t.Fatalf("tick %d: ratio product drifts from 2^192 by %s", tick, diff)
		}
	}
}
