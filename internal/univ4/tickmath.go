package univ4

import (
	"math/big"

	"github.com/holiman/uint256"
)

// MinTick and MaxTick bound the usable tick range of the protocol.
const (
	MinTick int32 = -887272
	MaxTick int32 = 887272
)

var (
	uint256Max     = new(uint256.Int).SetAllOne()
	oneShiftLeft32 = new(uint256.Int).Lsh(uint256.NewInt(1), 32)
	uint160Max     = uint256.MustFromHex("0xffffffffffffffffffffffffffffffffffffffff")

	// Q96 is the fixed-point scale of sqrt prices (2^96).
	Q96 = new(big.Int).Lsh(big.NewInt(1), 96)
	// Q192 is Q96 squared, the denominator of the squared price ratio.
	Q192 = new(big.Int).Lsh(big.NewInt(1), 192)

	sqrtRatioSeedOdd  = uint256.MustFromHex("0xfffcb933bd6fad37aa2d162d1a594001")
	sqrtRatioSeedEven = uint256.MustFromHex("0x100000000000000000000000000000000")

	// One multiplier per tick bit, applied in ascending bit order.
	sqrtRatioMultipliers = [19]*uint256.Int{
		uint256.MustFromHex("0xfff97272373d413259a46990580e213a"),
		uint256.MustFromHex("0xfff2e50f5f656932ef12357cf3c7fdcc"),
		uint256.MustFromHex("0xffe5caca7e10e4e61c3624eaa0941cd0"),
		uint256.MustFromHex("0xffcb9843d60f6159c9db58835c926644"),
		uint256.MustFromHex("0xff973b41fa98c081472e6896dfb254c0"),
		uint256.MustFromHex("0xff2ea16466c96a3843ec78b326b52861"),
		uint256.MustFromHex("0xfe5dee046a99a2a811c461f1969c3053"),
		uint256.MustFromHex("0xfcbe86c7900a88aedcffc83b479aa3a4"),
		uint256.MustFromHex("0xf987a7253ac413176f2b074cf7815e54"),
		uint256.MustFromHex("0xf3392b0822b70005940c7a398e4b70f3"),
		uint256.MustFromHex("0xe7159475a2c29b7443b29c7fa6e889d9"),
		uint256.MustFromHex("0xd097f3bdfd2022b8845ad8f792aa5825"),
		uint256.MustFromHex("0xa9f746462d870fdf8a65dc1f90e061e5"),
		uint256.MustFromHex("0x70d869a156d2a1b890bb3df62baf32f7"),
		uint256.MustFromHex("0x31be135f97d08fd981231505542fcfa6"),
		uint256.MustFromHex("0x9aa508b5b7a84e1c677de54f3e99bc9"),
		uint256.MustFromHex("0x5d6af8dedb81196699c329225ee604"),
		uint256.MustFromHex("0x2216e584f5fa1ea926041bedfe98"),
		uint256.MustFromHex("0x48a170391f7dc42444e8fa2"),
	}
)

// SqrtRatioAtTick returns sqrt(1.0001^tick) as a Q96 fixed-point value.
// The bit ladder mirrors the protocol's on-chain TickMath implementation.
func SqrtRatioAtTick(tick int32) *uint256.Int {
	var absTick uint64
	if tick < 0 {
		absTick = uint64(-int64(tick))
	} else {
		absTick = uint64(tick)
	}

	ratio := new(uint256.Int)
	if absTick&1 != 0 {
		ratio.Set(sqrtRatioSeedOdd)
	} else {
		ratio.Set(sqrtRatioSeedEven)
	}
	for i, multiplier := range sqrtRatioMultipliers {
		if absTick&(1<<uint(i+1)) != 0 {
			ratio.Mul(ratio, multiplier)
			ratio.Rsh(ratio, 128)
		}
	}

	if tick > 0 {
		ratio.Div(uint256Max, ratio)
	}

	// Round up from Q128.128 to Q128.96, matching the contract.
	var adjust uint64
	rem := new(uint256.Int).Mod(ratio, oneShiftLeft32)
	if !rem.IsZero() {
		adjust = 1
	}
	ratio.Rsh(ratio, 32)
	ratio.AddUint64(ratio, adjust)
	ratio.And(ratio, uint160Max)
	return ratio
}
