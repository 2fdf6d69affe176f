package models

import (
	"time"
)

// AffiliatePayout 推广佣金结算记录
type AffiliatePayout struct {
	ID              uint       `gorm:"primarykey" json:"id"`                                      // 主键
	AffiliateID     uint       `gorm:"not null;index" json:"affiliate_id"`                        // 推广者ID
	Amount          Money      `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`       // 结算金额
	Status          string     `gorm:"type:varchar(20);not null;index" json:"status"`             // 状态
	PeriodStart     time.Time  `gorm:"not null;index" json:"period_start"`                        // 结算周期开始
	PeriodEnd       time.Time  `gorm:"not null" json:"period_end"`                                // 结算周期结束
	PayoutAccountID string     `gorm:"type:varchar(255)" json:"payout_account_id"`                // 收款账户快照
	TransferRef     string     `gorm:"type:varchar(255)" json:"transfer_ref,omitempty"`           // 转账流水
	FailReason      string     `gorm:"type:varchar(255)" json:"fail_reason,omitempty"`            // 失败原因
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`                                    // 处理完成时间
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt       time.Time  `json:"updated_at"`                                                // 更新时间

	Affiliate *Affiliate `gorm:"foreignKey:AffiliateID" json:"affiliate,omitempty"` // 推广者
}

// TableName 指定表名
func (AffiliatePayout) TableName() string {
	return "affiliate_payouts"
}
