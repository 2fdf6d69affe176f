package models

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// moneyScale 金额统一保留的小数位
const moneyScale = 2

// Money 金额，读写数据库与 JSON 时都按两位小数四舍五入
type Money struct {
	decimal.Decimal
}

// NewMoneyFromDecimal 从 decimal 创建金额
func NewMoneyFromDecimal(amount decimal.Decimal) Money {
	return Money{Decimal: amount.Round(moneyScale)}
}

// NewMoneyFromString 从字符串创建金额
func NewMoneyFromString(raw string) (Money, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return Money{}, err
	}
	return NewMoneyFromDecimal(amount), nil
}

// ZeroMoney 零金额
func ZeroMoney() Money {
	return Money{}
}

// Times 单价乘以数量
func (m Money) Times(quantity int) Money {
	return NewMoneyFromDecimal(m.Decimal.Mul(decimal.NewFromInt(int64(quantity))))
}

// String 固定两位小数，如 "15.00"
func (m Money) String() string {
	return m.Decimal.StringFixed(moneyScale)
}

// MarshalJSON 以字符串输出，避免前端浮点误差
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON 同时接受 "12.5" 与 12.5
func (m *Money) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var amount decimal.Decimal
	if err := amount.UnmarshalJSON(b); err != nil {
		return err
	}
	*m = NewMoneyFromDecimal(amount)
	return nil
}

// Value 实现 driver.Valuer
func (m Money) Value() (driver.Value, error) {
	return m.Decimal.Round(moneyScale).String(), nil
}

// Scan 实现 sql.Scanner
func (m *Money) Scan(value interface{}) error {
	var amount decimal.Decimal
	if err := amount.Scan(value); err != nil {
		return err
	}
	*m = NewMoneyFromDecimal(amount)
	return nil
}
