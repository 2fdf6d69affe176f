package models

import (
	"time"
)

// Ticket 单张门票
type Ticket struct {
	ID             uint       `gorm:"primarykey" json:"id"`                                          // 主键
	TicketSaleID   uint       `gorm:"not null;index" json:"ticket_sale_id"`                          // 售票记录ID
	TicketTypeID   uint       `gorm:"not null;index" json:"ticket_type_id"`                          // 票种ID
	EventID        uint       `gorm:"not null;index" json:"event_id"`                                // 赛事ID
	SeatNumber     string     `gorm:"type:varchar(32)" json:"seat_number,omitempty"`                 // 座位号
	ValidationCode string     `gorm:"type:varchar(64);not null;uniqueIndex" json:"validation_code"`  // 核验码
	Status         string     `gorm:"type:varchar(20);not null;index" json:"status"`                 // 状态
	UsedAt         *time.Time `json:"used_at,omitempty"`                                             // 核验时间
	UsedBy         *uint      `json:"used_by,omitempty"`                                             // 核验管理员
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`                                       // 创建时间
	UpdatedAt      time.Time  `json:"updated_at"`                                                    // 更新时间
}

// TableName 指定表名
func (Ticket) TableName() string {
	return "tickets"
}
