package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// StringArray 字符串数组类型，用于存储座位号列表
type StringArray []string

// Value 实现 driver.Valuer 接口
func (s StringArray) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	raw, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan 实现 sql.Scanner 接口
func (s *StringArray) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*s = StringArray{}
		return nil
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("unsupported string array value: %T", value)
	}
}

// Contains 是否包含指定值
func (s StringArray) Contains(value string) bool {
	for _, item := range s {
		if item == value {
			return true
		}
	}
	return false
}

// Without 返回去掉 values 后的新数组，保持原有顺序
func (s StringArray) Without(values []string) StringArray {
	drop := make(map[string]struct{}, len(values))
	for _, v := range values {
		drop[v] = struct{}{}
	}
	result := make(StringArray, 0, len(s))
	for _, item := range s {
		if _, ok := drop[item]; ok {
			continue
		}
		result = append(result, item)
	}
	return result
}

// NormalizeSeatNumbers 去空白、去重，保持输入顺序
func NormalizeSeatNumbers(seats []string) StringArray {
	if len(seats) == 0 {
		return StringArray{}
	}
	seen := make(map[string]struct{}, len(seats))
	result := make(StringArray, 0, len(seats))
	for _, seat := range seats {
		seat = strings.TrimSpace(seat)
		if seat == "" {
			continue
		}
		if _, ok := seen[seat]; ok {
			continue
		}
		seen[seat] = struct{}{}
		result = append(result, seat)
	}
	return result
}
