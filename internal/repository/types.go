package repository

import "time"

// TicketTypeListFilter 查询票种列表的过滤条件
type TicketTypeListFilter struct {
	Page            int
	PageSize        int
	EventID         uint
	Status          string
	ExcludeInactive bool
}

// SeatReservationListFilter 查询座位保留的过滤条件
type SeatReservationListFilter struct {
	Page         int
	PageSize     int
	TicketTypeID uint
	Status       string
}

// TicketSaleListFilter 查询售票记录的过滤条件
type TicketSaleListFilter struct {
	Page         int
	PageSize     int
	EventID      uint
	TicketTypeID uint
	AffiliateID  uint
	Status       string
	BuyerEmail   string
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
}

// AffiliateApplicationListFilter 推广申请列表过滤
type AffiliateApplicationListFilter struct {
	Page     int
	PageSize int
	Status   string
	Keyword  string
}

// AffiliateListFilter 推广者列表过滤
type AffiliateListFilter struct {
	Page     int
	PageSize int
	Status   string
	Code     string
	Keyword  string
}

// AffiliatePayoutListFilter 结算记录列表过滤
type AffiliatePayoutListFilter struct {
	Page        int
	PageSize    int
	AffiliateID uint
	Status      string
}

// AuthzAuditLogListFilter 权限审计日志列表过滤
type AuthzAuditLogListFilter struct {
	Page            int
	PageSize        int
	OperatorAdminID uint
	TargetAdminID   uint
	Action          string
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
}
