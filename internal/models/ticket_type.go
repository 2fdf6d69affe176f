package models

import (
	"time"
)

// TicketType 票种表
type TicketType struct {
	ID                uint        `gorm:"primarykey" json:"id"`                                          // 主键
	EventID           uint        `gorm:"not null;index" json:"event_id"`                                // 赛事ID
	Name              string      `gorm:"type:varchar(120);not null" json:"name"`                        // 票种名称
	Description       string      `gorm:"type:text" json:"description"`                                  // 描述
	Price             Money       `gorm:"type:decimal(20,2);not null;default:0" json:"price"`            // 单价
	QuantityAvailable int         `gorm:"not null;default:0" json:"quantity_available"`                  // 总票数
	QuantitySold      int         `gorm:"not null;default:0" json:"quantity_sold"`                       // 已售数量
	QuantityReserved  int         `gorm:"not null;default:0" json:"quantity_reserved"`                   // 保留中数量
	SeatNumbers       StringArray `gorm:"type:json" json:"seat_numbers,omitempty"`                       // 固定座位号
	AvailableSeats    StringArray `gorm:"type:json" json:"available_seats,omitempty"`                    // 可售座位号
	Status            string      `gorm:"type:varchar(20);not null;index" json:"status"`                 // 状态
	SaleStartAt       *time.Time  `json:"sale_start_at,omitempty"`                                       // 开售时间
	SaleEndAt         *time.Time  `json:"sale_end_at,omitempty"`                                         // 停售时间
	MaxPerOrder       int         `gorm:"not null;default:0" json:"max_per_order"`                       // 单笔限购，0 表示使用默认值
	InventoryVersion  uint64      `gorm:"not null;default:0" json:"-"`                                   // 库存版本号
	CreatedAt         time.Time   `gorm:"index" json:"created_at"`                                       // 创建时间
	UpdatedAt         time.Time   `json:"updated_at"`                                                    // 更新时间
}

// TableName 指定表名
func (TicketType) TableName() string {
	return "ticket_types"
}

// IsSeated 是否对号入座
func (t *TicketType) IsSeated() bool {
	return t != nil && len(t.SeatNumbers) > 0
}

// Remaining 剩余可售数量（扣除已售与保留）
func (t *TicketType) Remaining() int {
	if t == nil {
		return 0
	}
	remaining := t.QuantityAvailable - t.QuantitySold - t.QuantityReserved
	if remaining < 0 {
		return 0
	}
	return remaining
}

// OnSale 判断当前时间是否在售卖窗口内
func (t *TicketType) OnSale(now time.Time) bool {
	if t == nil {
		return false
	}
	if t.SaleStartAt != nil && now.Before(*t.SaleStartAt) {
		return false
	}
	if t.SaleEndAt != nil && !now.Before(*t.SaleEndAt) {
		return false
	}
	return true
}
