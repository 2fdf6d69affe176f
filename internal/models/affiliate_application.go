package models

import (
	"time"
)

// AffiliateApplication 推广者申请
type AffiliateApplication struct {
	ID           uint       `gorm:"primarykey" json:"id"`                           // 主键
	Name         string     `gorm:"type:varchar(120);not null" json:"name"`         // 申请人
	Email        string     `gorm:"type:varchar(255);not null;index" json:"email"`  // 邮箱
	Phone        string     `gorm:"type:varchar(40)" json:"phone"`                  // 电话
	Website      string     `gorm:"type:varchar(255)" json:"website"`               // 网站/社媒
	Message      string     `gorm:"type:text" json:"message"`                       // 申请说明
	Status       string     `gorm:"type:varchar(20);not null;index" json:"status"`  // 状态
	RejectReason string     `gorm:"type:varchar(255)" json:"reject_reason"`         // 驳回原因
	ReviewedBy   *uint      `json:"reviewed_by,omitempty"`                          // 审核管理员
	ReviewedAt   *time.Time `json:"reviewed_at,omitempty"`                          // 审核时间
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`                        // 创建时间
	UpdatedAt    time.Time  `json:"updated_at"`                                     // 更新时间
}

// TableName 指定表名
func (AffiliateApplication) TableName() string {
	return "affiliate_applications"
}
