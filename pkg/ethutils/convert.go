// pkg/ethutils/convert.go
package ethutils

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/uracles/mini-wallet-application/internal/apperr"
)

const weiPerEtherExp = 18

// ValidateAddress checks the 0x-prefixed hex account address format.
func ValidateAddress(address string) error {
	if !common.IsHexAddress(address) {
		return apperr.Newf(apperr.CodeInvalidAddress, "invalid address %q", address)
	}
	return nil
}

// EtherToWei converts a decimal ether string into integer wei. Amounts must
// be positive and carry at most 18 fractional digits.
func EtherToWei(amount string) (*big.Int, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, apperr.Newf(apperr.CodeValidation, "invalid amount %q", amount)
	}
	if !d.IsPositive() {
		return nil, apperr.Newf(apperr.CodeValidation, "amount must be positive, got %q", amount)
	}

	wei := d.Shift(weiPerEtherExp)
	if !wei.IsInteger() {
		return nil, apperr.Newf(apperr.CodeValidation, "amount %q is below 1 wei precision", amount)
	}
	return wei.BigInt(), nil
}

// WeiToEther renders integer wei as a decimal ether string with at least
// one fractional digit, so a zero balance reads "0.0".
func WeiToEther(wei *big.Int) string {
	s := decimal.NewFromBigInt(wei, -weiPerEtherExp).String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
