package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Numeric 统一数值类型（保留 2 位小数），用于折扣值
type Numeric struct {
	decimal.Decimal
}

// NewNumeric 从 decimal 创建数值
func NewNumeric(value decimal.Decimal) Numeric {
	return Numeric{Decimal: value.Round(2)}
}

// NewNumericFromInt 从整数创建数值
func NewNumericFromInt(value int64) Numeric {
	return Numeric{Decimal: decimal.NewFromInt(value)}
}

// MarshalJSON 统一输出 2 位小数的字符串
func (n Numeric) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.Decimal.Round(2).StringFixed(2))
}

// UnmarshalJSON 解析数值（字符串或数字）
func (n *Numeric) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return fmt.Errorf("invalid numeric %q: %w", s, err)
		}
		n.Decimal = d.Round(2)
		return nil
	}
	d, err := decimal.NewFromString(string(b))
	if err != nil {
		return fmt.Errorf("invalid numeric %s: %w", string(b), err)
	}
	n.Decimal = d.Round(2)
	return nil
}

// Value 用于数据库写入
func (n Numeric) Value() (driver.Value, error) {
	return n.Decimal.Round(2).Value()
}

// Scan 用于数据库读取
func (n *Numeric) Scan(value interface{}) error {
	if err := n.Decimal.Scan(value); err != nil {
		return err
	}
	n.Decimal = n.Decimal.Round(2)
	return nil
}

// String 返回 2 位小数格式
func (n Numeric) String() string {
	return n.Decimal.Round(2).StringFixed(2)
}
