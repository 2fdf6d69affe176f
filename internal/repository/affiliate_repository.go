package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/courtline/internal/constants"
	"github.com/courtline/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// payableThreshold 结算最小金额，低于该值的尾差不参与结算
var payableThreshold = decimal.NewFromFloat(0.01)

// AffiliateRepository 推广者、申请与结算数据访问接口
type AffiliateRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) AffiliateRepository

	CreateApplication(app *models.AffiliateApplication) error
	GetApplicationByID(id uint) (*models.AffiliateApplication, error)
	GetApplicationByIDForUpdate(id uint) (*models.AffiliateApplication, error)
	HasPendingApplication(email string) (bool, error)
	ListApplications(filter AffiliateApplicationListFilter) ([]models.AffiliateApplication, int64, error)
	ReviewApplication(id uint, status string, adminID uint, reason string, at time.Time) (int64, error)

	CreateAffiliate(affiliate *models.Affiliate) error
	GetAffiliateByID(id uint) (*models.Affiliate, error)
	GetAffiliateByIDForUpdate(id uint) (*models.Affiliate, error)
	GetAffiliateByCode(code string) (*models.Affiliate, error)
	ExistsByReferralCode(code string) (bool, error)
	ListAffiliates(filter AffiliateListFilter) ([]models.Affiliate, int64, error)
	ListPayableAffiliates(limit int) ([]models.Affiliate, error)
	UpdateAffiliateFields(id uint, updates map[string]interface{}) (int64, error)
	CreditCommission(id uint, amount decimal.Decimal) (int64, error)
	ReverseCommission(id uint, amount decimal.Decimal) (int64, error)
	SettlePending(id uint, amount decimal.Decimal) (int64, error)
	RestorePending(id uint, amount decimal.Decimal) (int64, error)

	CreatePayout(payout *models.AffiliatePayout) error
	GetPayoutByID(id uint) (*models.AffiliatePayout, error)
	ListPayouts(filter AffiliatePayoutListFilter) ([]models.AffiliatePayout, int64, error)
	TransitionPayout(id uint, from, to string, updates map[string]interface{}) (int64, error)
}

// GormAffiliateRepository GORM 推广仓储
type GormAffiliateRepository struct {
	db *gorm.DB
}

// NewAffiliateRepository 创建推广仓储
func NewAffiliateRepository(db *gorm.DB) *GormAffiliateRepository {
	return &GormAffiliateRepository{db: db}
}

// WithTx 绑定事务
func (r *GormAffiliateRepository) WithTx(tx *gorm.DB) AffiliateRepository {
	if tx == nil {
		return r
	}
	return &GormAffiliateRepository{db: tx}
}

// Transaction 执行事务
func (r *GormAffiliateRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// CreateApplication 创建推广申请
func (r *GormAffiliateRepository) CreateApplication(app *models.AffiliateApplication) error {
	if app == nil {
		return errors.New("application is nil")
	}
	return r.db.Create(app).Error
}

// GetApplicationByID 按ID获取申请
func (r *GormAffiliateRepository) GetApplicationByID(id uint) (*models.AffiliateApplication, error) {
	return r.getApplication(r.db, id)
}

// GetApplicationByIDForUpdate 按ID获取并锁定申请
func (r *GormAffiliateRepository) GetApplicationByIDForUpdate(id uint) (*models.AffiliateApplication, error) {
	return r.getApplication(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormAffiliateRepository) getApplication(db *gorm.DB, id uint) (*models.AffiliateApplication, error) {
	if id == 0 {
		return nil, nil
	}
	var row models.AffiliateApplication
	if err := db.First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// HasPendingApplication 邮箱是否已有待审核申请
func (r *GormAffiliateRepository) HasPendingApplication(email string) (bool, error) {
	var count int64
	if err := r.db.Model(&models.AffiliateApplication{}).
		Where("email = ? AND status = ?", strings.ToLower(strings.TrimSpace(email)), constants.AffiliateApplicationStatusPending).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListApplications 查询申请列表
func (r *GormAffiliateRepository) ListApplications(filter AffiliateApplicationListFilter) ([]models.AffiliateApplication, int64, error) {
	query := r.db.Model(&models.AffiliateApplication{})
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	query = query.Scopes(matchKeyword(filter.Keyword, "name", "email"))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = query.Scopes(paginate(filter.Page, filter.PageSize))

	var rows []models.AffiliateApplication
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ReviewApplication 审核待处理申请，非 pending 状态不会被修改
func (r *GormAffiliateRepository) ReviewApplication(id uint, status string, adminID uint, reason string, at time.Time) (int64, error) {
	result := r.db.Model(&models.AffiliateApplication{}).
		Where("id = ? AND status = ?", id, constants.AffiliateApplicationStatusPending).
		Updates(map[string]interface{}{
			"status":        status,
			"reviewed_by":   adminID,
			"reviewed_at":   at,
			"reject_reason": strings.TrimSpace(reason),
			"updated_at":    at,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// CreateAffiliate 创建推广者
func (r *GormAffiliateRepository) CreateAffiliate(affiliate *models.Affiliate) error {
	if affiliate == nil {
		return errors.New("affiliate is nil")
	}
	return r.db.Create(affiliate).Error
}

// GetAffiliateByID 按ID获取推广者
func (r *GormAffiliateRepository) GetAffiliateByID(id uint) (*models.Affiliate, error) {
	return r.getAffiliate(r.db, id)
}

// GetAffiliateByIDForUpdate 按ID获取并锁定推广者
func (r *GormAffiliateRepository) GetAffiliateByIDForUpdate(id uint) (*models.Affiliate, error) {
	return r.getAffiliate(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormAffiliateRepository) getAffiliate(db *gorm.DB, id uint) (*models.Affiliate, error) {
	if id == 0 {
		return nil, nil
	}
	var row models.Affiliate
	if err := db.First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// GetAffiliateByCode 按推广码获取推广者
func (r *GormAffiliateRepository) GetAffiliateByCode(code string) (*models.Affiliate, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, nil
	}
	var row models.Affiliate
	if err := r.db.Where("referral_code = ?", code).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// ExistsByReferralCode 推广码是否已被占用
func (r *GormAffiliateRepository) ExistsByReferralCode(code string) (bool, error) {
	var count int64
	if err := r.db.Model(&models.Affiliate{}).Where("referral_code = ?", code).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListAffiliates 查询推广者列表
func (r *GormAffiliateRepository) ListAffiliates(filter AffiliateListFilter) ([]models.Affiliate, int64, error) {
	query := r.db.Model(&models.Affiliate{})
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if code := strings.TrimSpace(filter.Code); code != "" {
		query = query.Where("referral_code = ?", strings.ToUpper(code))
	}
	query = query.Scopes(matchKeyword(filter.Keyword, "name", "email", "referral_code"))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = query.Scopes(paginate(filter.Page, filter.PageSize))

	var rows []models.Affiliate
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListPayableAffiliates 查询有待结算余额且已绑定收款账户的推广者
func (r *GormAffiliateRepository) ListPayableAffiliates(limit int) ([]models.Affiliate, error) {
	query := r.db.
		Where("pending_earnings >= ?", payableThreshold).
		Where("payout_account_id IS NOT NULL AND payout_account_id <> ''").
		Order("id asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.Affiliate
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateAffiliateFields 更新推广者字段
func (r *GormAffiliateRepository) UpdateAffiliateFields(id uint, updates map[string]interface{}) (int64, error) {
	if id == 0 || len(updates) == 0 {
		return 0, nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	result := r.db.Model(&models.Affiliate{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// CreditCommission 单条 UPDATE 累加推广单数与佣金
func (r *GormAffiliateRepository) CreditCommission(id uint, amount decimal.Decimal) (int64, error) {
	result := r.db.Model(&models.Affiliate{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"total_sales":      gorm.Expr("total_sales + 1"),
			"total_earnings":   gorm.Expr("total_earnings + ?", amount.Round(2)),
			"pending_earnings": gorm.Expr("pending_earnings + ?", amount.Round(2)),
			"updated_at":       time.Now(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ReverseCommission 退款时回冲佣金，待结算余额允许为负以便后续抵扣
func (r *GormAffiliateRepository) ReverseCommission(id uint, amount decimal.Decimal) (int64, error) {
	result := r.db.Model(&models.Affiliate{}).
		Where("id = ? AND total_sales > 0", id).
		Updates(map[string]interface{}{
			"total_sales":      gorm.Expr("total_sales - 1"),
			"total_earnings":   gorm.Expr("total_earnings - ?", amount.Round(2)),
			"pending_earnings": gorm.Expr("pending_earnings - ?", amount.Round(2)),
			"updated_at":       time.Now(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// SettlePending 将 amount 从待结算转入已结算，余额不足时不更新
func (r *GormAffiliateRepository) SettlePending(id uint, amount decimal.Decimal) (int64, error) {
	result := r.db.Model(&models.Affiliate{}).
		Where("id = ? AND pending_earnings >= ?", id, amount.Round(2)).
		Updates(map[string]interface{}{
			"pending_earnings": gorm.Expr("pending_earnings - ?", amount.Round(2)),
			"paid_earnings":    gorm.Expr("paid_earnings + ?", amount.Round(2)),
			"updated_at":       time.Now(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// RestorePending 结算失败时退回待结算余额
func (r *GormAffiliateRepository) RestorePending(id uint, amount decimal.Decimal) (int64, error) {
	result := r.db.Model(&models.Affiliate{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"pending_earnings": gorm.Expr("pending_earnings + ?", amount.Round(2)),
			"paid_earnings":    gorm.Expr("paid_earnings - ?", amount.Round(2)),
			"updated_at":       time.Now(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// CreatePayout 创建结算记录
func (r *GormAffiliateRepository) CreatePayout(payout *models.AffiliatePayout) error {
	if payout == nil {
		return errors.New("payout is nil")
	}
	return r.db.Omit("Affiliate").Create(payout).Error
}

// GetPayoutByID 按ID获取结算记录
func (r *GormAffiliateRepository) GetPayoutByID(id uint) (*models.AffiliatePayout, error) {
	if id == 0 {
		return nil, nil
	}
	var row models.AffiliatePayout
	if err := r.db.Preload("Affiliate").First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// ListPayouts 查询结算记录
func (r *GormAffiliateRepository) ListPayouts(filter AffiliatePayoutListFilter) ([]models.AffiliatePayout, int64, error) {
	query := r.db.Model(&models.AffiliatePayout{})
	if filter.AffiliateID != 0 {
		query = query.Where("affiliate_id = ?", filter.AffiliateID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = query.Scopes(paginate(filter.Page, filter.PageSize))

	var rows []models.AffiliatePayout
	if err := query.Preload("Affiliate").Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// TransitionPayout 条件状态流转
func (r *GormAffiliateRepository) TransitionPayout(id uint, from, to string, updates map[string]interface{}) (int64, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to
	updates["updated_at"] = time.Now()
	result := r.db.Model(&models.AffiliatePayout{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
