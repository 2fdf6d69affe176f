package stripe

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// 无小数位币种，金额直接以主单位提交
var zeroDecimalCurrencies = map[string]bool{
	"BIF": true, "CLP": true, "DJF": true, "GNF": true, "JPY": true, "KMF": true, "KRW": true, "MGA": true,
	"PYG": true, "RWF": true, "UGX": true, "VND": true, "VUV": true, "XAF": true, "XOF": true, "XPF": true,
}

func normalizeCurrency(currency, fallback string) string {
	if currency = strings.ToUpper(strings.TrimSpace(currency)); currency != "" {
		return currency
	}
	return fallback
}

func minorUnitExponent(currency string) int32 {
	if zeroDecimalCurrencies[strings.ToUpper(currency)] {
		return 0
	}
	return 2
}

// toMinorAmount "12.34" USD -> 1234；超出币种精度或非正数时报错
func toMinorAmount(amount string, currency string) (int64, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q is invalid", ErrConfigInvalid, amount)
	}
	if !value.IsPositive() {
		return 0, fmt.Errorf("%w: amount must be positive", ErrConfigInvalid)
	}
	minor := value.Shift(minorUnitExponent(currency))
	if !minor.IsInteger() {
		return 0, fmt.Errorf("%w: amount %s exceeds %s precision", ErrConfigInvalid, amount, currency)
	}
	return minor.IntPart(), nil
}

func fromMinorAmount(minor int64, currency string) string {
	exp := minorUnitExponent(currency)
	return decimal.New(minor, -exp).StringFixed(exp)
}
