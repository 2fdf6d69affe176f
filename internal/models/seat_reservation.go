package models

import (
	"time"
)

// SeatReservation 下单过程中的座位/数量保留
type SeatReservation struct {
	ID                uint        `gorm:"primarykey" json:"id"`                                           // 主键
	ReservationNo     string      `gorm:"type:varchar(64);not null;uniqueIndex" json:"reservation_no"`    // 保留单号
	TicketTypeID      uint        `gorm:"not null;index" json:"ticket_type_id"`                           // 票种ID
	Quantity          int         `gorm:"not null;default:0" json:"quantity"`                             // 保留数量
	SeatNumbers       StringArray `gorm:"type:json" json:"seat_numbers,omitempty"`                        // 保留座位号
	Status            string      `gorm:"type:varchar(20);not null;index" json:"status"`                  // 状态
	ExpiresAt         time.Time   `gorm:"not null;index" json:"expires_at"`                               // 过期时间
	BuyerName         string      `gorm:"type:varchar(120)" json:"buyer_name"`                            // 购票人
	BuyerEmail        string      `gorm:"type:varchar(255);index" json:"buyer_email"`                     // 购票人邮箱
	ReferralCode      string      `gorm:"type:varchar(32)" json:"referral_code,omitempty"`                // 推广码
	AffiliateID       *uint       `gorm:"index" json:"affiliate_id,omitempty"`                            // 推广者ID
	UnitPrice         Money       `gorm:"type:decimal(20,2);not null;default:0" json:"unit_price"`        // 单价快照
	TotalAmount       Money       `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`      // 总金额
	CheckoutSessionID string      `gorm:"type:varchar(255);index" json:"checkout_session_id,omitempty"`   // 收银台会话ID
	CompletedAt       *time.Time  `json:"completed_at,omitempty"`                                         // 完成时间
	ExpiredAt         *time.Time  `json:"expired_at,omitempty"`                                           // 释放时间
	CreatedAt         time.Time   `gorm:"index" json:"created_at"`                                        // 创建时间
	UpdatedAt         time.Time   `json:"updated_at"`                                                     // 更新时间
}

// TableName 指定表名
func (SeatReservation) TableName() string {
	return "seat_reservations"
}
