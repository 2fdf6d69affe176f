package models

import (
	"time"
)

// TicketSale 售票记录，创建后只允许状态流转
type TicketSale struct {
	ID               uint        `gorm:"primarykey" json:"id"`                                            // 主键
	SaleNo           string      `gorm:"type:varchar(64);not null;uniqueIndex" json:"sale_no"`            // 售票单号
	TicketTypeID     uint        `gorm:"not null;index" json:"ticket_type_id"`                            // 票种ID
	EventID          uint        `gorm:"not null;index" json:"event_id"`                                  // 赛事ID
	BuyerName        string      `gorm:"type:varchar(120)" json:"buyer_name"`                             // 购票人
	BuyerEmail       string      `gorm:"type:varchar(255);index" json:"buyer_email"`                      // 购票人邮箱
	Quantity         int         `gorm:"not null" json:"quantity"`                                        // 数量
	SeatNumbers      StringArray `gorm:"type:json" json:"seat_numbers,omitempty"`                         // 座位号
	UnitPrice        Money       `gorm:"type:decimal(20,2);not null;default:0" json:"unit_price"`         // 单价
	TotalAmount      Money       `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`       // 总金额
	ReferralCode     string      `gorm:"type:varchar(32);index" json:"referral_code,omitempty"`           // 推广码
	AffiliateID      *uint       `gorm:"index" json:"affiliate_id,omitempty"`                             // 推广者ID
	CommissionAmount Money       `gorm:"type:decimal(20,2);not null;default:0" json:"commission_amount"`  // 佣金
	CommissionPosted bool        `gorm:"not null;default:false" json:"commission_posted"`                 // 佣金是否已计入推广者余额
	PaymentRef       *string     `gorm:"type:varchar(255);uniqueIndex" json:"payment_ref,omitempty"`      // 外部支付流水
	ReservationNo    string      `gorm:"type:varchar(64);index" json:"reservation_no,omitempty"`          // 关联保留单号
	Channel          string      `gorm:"type:varchar(20);not null;default:'online'" json:"channel"`       // 售票渠道
	Status           string      `gorm:"type:varchar(20);not null;index" json:"status"`                   // 状态
	RefundedAt       *time.Time  `json:"refunded_at,omitempty"`                                           // 退款/取消时间
	CreatedAt        time.Time   `gorm:"index" json:"created_at"`                                         // 创建时间
	UpdatedAt        time.Time   `json:"updated_at"`                                                      // 更新时间

	Tickets []Ticket `gorm:"foreignKey:TicketSaleID" json:"tickets,omitempty"` // 已出票
}

// TableName 指定表名
func (TicketSale) TableName() string {
	return "ticket_sales"
}
