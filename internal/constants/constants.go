package constants

// 票种状态常量
const (
	TicketTypeStatusActive   = "active"
	TicketTypeStatusSoldOut  = "sold_out"
	TicketTypeStatusInactive = "inactive"
)

// 座位保留状态常量
const (
	SeatReservationStatusActive    = "active"
	SeatReservationStatusCompleted = "completed"
	SeatReservationStatusExpired   = "expired"
)

// 售票记录状态常量
const (
	TicketSaleStatusCompleted = "completed"
	TicketSaleStatusRefunded  = "refunded"
	TicketSaleStatusCancelled = "cancelled"
)

// 售票渠道常量
const (
	TicketSaleChannelOnline    = "online"
	TicketSaleChannelBoxOffice = "box_office"
)

// 门票状态常量
const (
	TicketStatusActive    = "active"
	TicketStatusUsed      = "used"
	TicketStatusRefunded  = "refunded"
	TicketStatusCancelled = "cancelled"
)

// 推广者状态常量
const (
	AffiliateStatusActive    = "active"
	AffiliateStatusSuspended = "suspended"
	AffiliateStatusInactive  = "inactive"
)

// 推广申请状态常量
const (
	AffiliateApplicationStatusPending  = "pending"
	AffiliateApplicationStatusApproved = "approved"
	AffiliateApplicationStatusRejected = "rejected"
)

// 推广结算状态常量
const (
	AffiliatePayoutStatusPending    = "pending"
	AffiliatePayoutStatusProcessing = "processing"
	AffiliatePayoutStatusCompleted  = "completed"
	AffiliatePayoutStatusFailed     = "failed"
)

// 结算批处理结果常量
const (
	PayoutResultSuccess = "success"
	PayoutResultError   = "error"
)

// 门票核验结果文案
const (
	TicketValidationOK          = "Ticket validated"
	TicketValidationInvalid     = "Invalid ticket"
	TicketValidationAlreadyUsed = "Ticket already used"
	TicketValidationNotActive   = "Ticket is not active"
)

// 管理端角色常量
const (
	RoleBoxOffice        = "box_office"
	RoleTicketing        = "ticketing"
	RoleAffiliateManager = "affiliate_manager"
	RoleReadonlyAuditor  = "readonly_auditor"
)

// 权限审计动作常量
const (
	AuthzAuditActionAdminCreate  = "admin_create"
	AuthzAuditActionRolesUpdate  = "admin_roles_update"
	AuthzAuditActionTokensRevoke = "admin_tokens_revoke"
)

// 队列名称常量
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// 异步任务类型常量
const (
	TaskReservationExpire       = "reservation:expire"
	TaskAffiliatePayoutTransfer = "affiliate:payout_transfer"
)
