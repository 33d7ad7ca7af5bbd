package entities

import (
	"math/big"
	"strings"

	"github.com/pkg/errors"
)

// TokenDecimals is the fixed number of implied decimals of the token.
const TokenDecimals = 6

// ToAtomic converts a human readable decimal string into the atomic integer
// representation, scaled by 10^decimals. The fractional part is padded or
// truncated to exactly `decimals` digits before parsing.
func ToAtomic(amount string, decimals int) (*big.Int, error) {
	integer, fraction, _ := strings.Cut(amount, ".")
	if len(integer) == 0 {
		return nil, errors.Wrapf(ErrInvalidAmount, "missing integer part in [%s]", amount)
	}
	if len(fraction) > decimals {
		fraction = fraction[:decimals]
	} else {
		fraction = fraction + strings.Repeat("0", decimals-len(fraction))
	}

	digits := integer + fraction
	for _, r := range digits {
		if r < '0' || r > '9' {
			return nil, errors.Wrapf(ErrInvalidAmount, "not a non-negative number: [%s]", amount)
		}
	}

	value, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidAmount, "parsing [%s]", amount)
	}
	return value, nil
}

// ToDecimalString renders an atomic amount as a decimal string, trimming
// trailing fractional zeros. ToAtomic(ToDecimalString(x)) == x for all valid x.
func ToDecimalString(amount *big.Int, decimals int) string {
	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	integer, remainder := new(big.Int).QuoRem(amount, divisor, new(big.Int))
	if remainder.Sign() == 0 {
		return integer.String()
	}

	fraction := remainder.String()
	for len(fraction) < decimals {
		fraction = "0" + fraction
	}
	fraction = strings.TrimRight(fraction, "0")
	return integer.String() + "." + fraction
}
