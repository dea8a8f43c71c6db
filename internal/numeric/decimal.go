package numeric

import (
	"fmt"
	"math/big"
	"strings"
	"sync"
)

// Decimal is an exact arbitrary-precision decimal value. The zero value is
// zero and ready to use. All aggregation math goes through this type; binary
// floating point is never used on the monetary path.
type Decimal struct {
	rat big.Rat
}

// Zero returns the zero decimal.
func Zero() Decimal {
	return Decimal{}
}

// One returns the decimal 1.
func One() Decimal {
	return FromInt64(1)
}

// FromInt64 converts an int64 into a Decimal.
func FromInt64(v int64) Decimal {
	var d Decimal
	d.rat.SetInt64(v)
	return d
}

// FromBigInt converts a big integer into a Decimal.
func FromBigInt(v *big.Int) Decimal {
	var d Decimal
	if v != nil {
		d.rat.SetInt(v)
	}
	return d
}

// FromRaw converts a raw signed on-chain quantity into its decimal token
// amount by dividing by 10^decimals. The conversion is exact.
func FromRaw(raw *big.Int, decimals uint8) Decimal {
	var d Decimal
	if raw == nil {
		return d
	}
	d.rat.SetFrac(new(big.Int).Set(raw), Pow10(int(decimals)))
	return d
}

// Parse reads a decimal from its text form. Both exact rational strings
// ("3/40") and plain decimal strings ("0.075") are accepted.
func Parse(input string) (Decimal, error) {
	var d Decimal
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return d, nil
	}
	if _, ok := d.rat.SetString(trimmed); !ok {
		return Decimal{}, fmt.Errorf("invalid decimal: %s", input)
	}
	return d, nil
}

// Add returns d + other.
func (d Decimal) Add(other Decimal) Decimal {
	var out Decimal
	out.rat.Add(&d.rat, &other.rat)
	return out
}

// Sub returns d - other.
func (d Decimal) Sub(other Decimal) Decimal {
	var out Decimal
	out.rat.Sub(&d.rat, &other.rat)
	return out
}

// Mul returns d * other.
func (d Decimal) Mul(other Decimal) Decimal {
	var out Decimal
	out.rat.Mul(&d.rat, &other.rat)
	return out
}

// SafeDiv returns d / other, or zero when other is zero. Unset reference
// prices are a normal early-chain state, so division by zero is not an error.
func (d Decimal) SafeDiv(other Decimal) Decimal {
	if other.rat.Sign() == 0 {
		return Decimal{}
	}
	var out Decimal
	out.rat.Quo(&d.rat, &other.rat)
	return out
}

// Neg returns -d.
func (d Decimal) Neg() Decimal {
	var out Decimal
	out.rat.Neg(&d.rat)
	return out
}

// Abs returns |d|.
func (d Decimal) Abs() Decimal {
	var out Decimal
	out.rat.Abs(&d.rat)
	return out
}

// Sign returns -1, 0 or +1.
func (d Decimal) Sign() int {
	return d.rat.Sign()
}

// IsZero reports whether d is exactly zero.
func (d Decimal) IsZero() bool {
	return d.rat.Sign() == 0
}

// Cmp compares d and other, returning -1, 0 or +1.
func (d Decimal) Cmp(other Decimal) int {
	return d.rat.Cmp(&other.rat)
}

// Equal reports exact equality.
func (d Decimal) Equal(other Decimal) bool {
	return d.rat.Cmp(&other.rat) == 0
}

// Rat returns a copy of the underlying rational.
func (d Decimal) Rat() *big.Rat {
	return new(big.Rat).Set(&d.rat)
}

// String renders the exact value: integers without a denominator, everything
// else as num/den so no precision is lost in round trips.
func (d Decimal) String() string {
	return d.rat.RatString()
}

// Display renders a fixed-point approximation for human-facing output.
func (d Decimal) Display(places int) string {
	return d.rat.FloatString(places)
}

// MarshalText encodes the exact value.
func (d Decimal) MarshalText() ([]byte, error) {
	return []byte(d.rat.RatString()), nil
}

// UnmarshalText decodes a value produced by MarshalText or any decimal string.
func (d *Decimal) UnmarshalText(data []byte) error {
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

var (
	pow10Mu    sync.Mutex
	pow10Cache = map[int]*big.Int{
		0: big.NewInt(1),
	}
)

// Pow10 returns 10^exp for exp >= 0, cached across calls.
func Pow10(exp int) *big.Int {
	if exp < 0 {
		exp = 0
	}
	pow10Mu.Lock()
	defer pow10Mu.Unlock()
	if val, ok := pow10Cache[exp]; ok {
		return val
	}
	result := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil)
	pow10Cache[exp] = result
	return result
}
