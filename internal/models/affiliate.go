package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Affiliate 推广者，由审核通过的申请生成，只做状态停用不删除
type Affiliate struct {
	ID              uint            `gorm:"primarykey" json:"id"`                                           // 主键
	ApplicationID   uint            `gorm:"not null;uniqueIndex" json:"application_id"`                     // 来源申请ID
	Name            string          `gorm:"type:varchar(120);not null" json:"name"`                         // 名称
	Email           string          `gorm:"type:varchar(255);index" json:"email"`                           // 邮箱
	ReferralCode    string          `gorm:"type:varchar(32);not null;uniqueIndex" json:"referral_code"`     // 推广码
	CommissionRate  decimal.Decimal `gorm:"type:decimal(6,4);not null;default:0" json:"commission_rate"`    // 佣金比例（0-1）
	Status          string          `gorm:"type:varchar(20);not null;index" json:"status"`                  // 状态
	TotalSales      int64           `gorm:"not null;default:0" json:"total_sales"`                          // 累计推广单数
	TotalEarnings   Money           `gorm:"type:decimal(20,2);not null;default:0" json:"total_earnings"`    // 累计佣金
	PendingEarnings Money           `gorm:"type:decimal(20,2);not null;default:0" json:"pending_earnings"`  // 待结算佣金
	PaidEarnings    Money           `gorm:"type:decimal(20,2);not null;default:0" json:"paid_earnings"`     // 已结算佣金
	PayoutAccountID string          `gorm:"type:varchar(255)" json:"payout_account_id,omitempty"`           // 收款账户（Stripe Connect）
	ApprovedBy      uint            `json:"approved_by"`                                                    // 审核管理员
	ApprovedAt      *time.Time      `json:"approved_at,omitempty"`                                          // 审核时间
	CreatedAt       time.Time       `gorm:"index" json:"created_at"`                                        // 创建时间
	UpdatedAt       time.Time       `json:"updated_at"`                                                     // 更新时间
}

// TableName 指定表名
func (Affiliate) TableName() string {
	return "affiliates"
}
