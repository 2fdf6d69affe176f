package service

import (
	"net/mail"
	"strings"
	"time"

	"github.com/courtline/internal/config"
	"github.com/courtline/internal/constants"
	"github.com/courtline/internal/logger"
	"github.com/courtline/internal/models"
	"github.com/courtline/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	defaultReferralCodeLength = 8
	referralCodeMaxRetry      = 16
	defaultCommissionRate     = 0.15
)

// AffiliateService 推广申请与推广者服务
type AffiliateService struct {
	repo repository.AffiliateRepository
	cfg  config.AffiliateConfig
}

// NewAffiliateService 创建推广服务
func NewAffiliateService(repo repository.AffiliateRepository, cfg config.AffiliateConfig) *AffiliateService {
	return &AffiliateService{
		repo: repo,
		cfg:  cfg,
	}
}

// AffiliateApplicationInput 推广申请输入
type AffiliateApplicationInput struct {
	Name    string
	Email   string
	Phone   string
	Website string
	Message string
}

// ReferralInfo 推广码公开信息
type ReferralInfo struct {
	ReferralCode string `json:"referral_code"`
	Name         string `json:"name"`
}

// SubmitApplication 提交推广申请，同一邮箱只允许一条待审核申请
func (s *AffiliateService) SubmitApplication(input AffiliateApplicationInput) (*models.AffiliateApplication, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if name == "" || email == "" {
		return nil, ErrApplicationInvalid
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrApplicationInvalid
	}
	pending, err := s.repo.HasPendingApplication(email)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, ErrApplicationDuplicate
	}
	app := &models.AffiliateApplication{
		Name:    name,
		Email:   email,
		Phone:   strings.TrimSpace(input.Phone),
		Website: strings.TrimSpace(input.Website),
		Message: strings.TrimSpace(input.Message),
		Status:  constants.AffiliateApplicationStatusPending,
	}
	if err := s.repo.CreateApplication(app); err != nil {
		return nil, err
	}
	return app, nil
}

// ListApplications 查询推广申请
func (s *AffiliateService) ListApplications(filter repository.AffiliateApplicationListFilter) ([]models.AffiliateApplication, int64, error) {
	return s.repo.ListApplications(filter)
}

// ApproveAffiliate 审核通过申请并生成推广者，申请状态与推广者写入同一事务
func (s *AffiliateService) ApproveAffiliate(applicationID uint, adminID uint) (*models.Affiliate, error) {
	var created *models.Affiliate
	err := s.repo.Transaction(func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		app, err := txRepo.GetApplicationByIDForUpdate(applicationID)
		if err != nil {
			return err
		}
		if app == nil {
			return ErrApplicationNotFound
		}
		if err := applicationReviewable(app.Status); err != nil {
			return err
		}

		now := time.Now()
		affected, err := txRepo.ReviewApplication(app.ID, constants.AffiliateApplicationStatusApproved, adminID, "", now)
		if err != nil {
			return err
		}
		if affected == 0 {
			current, err := txRepo.GetApplicationByID(app.ID)
			if err != nil {
				return err
			}
			if current == nil {
				return ErrApplicationNotFound
			}
			if err := applicationReviewable(current.Status); err != nil {
				return err
			}
			return ErrApplicationAlreadyApproved
		}

		affiliate, err := s.createAffiliateWithUniqueCode(txRepo, app, adminID, now)
		if err != nil {
			return err
		}
		created = affiliate
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("affiliate_approved", "application_id", applicationID, "affiliate_id", created.ID, "admin_id", adminID)
	return created, nil
}

// RejectApplication 驳回推广申请
func (s *AffiliateService) RejectApplication(applicationID uint, adminID uint, reason string) (*models.AffiliateApplication, error) {
	app, err := s.repo.GetApplicationByID(applicationID)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, ErrApplicationNotFound
	}
	if err := applicationReviewable(app.Status); err != nil {
		return nil, err
	}
	affected, err := s.repo.ReviewApplication(app.ID, constants.AffiliateApplicationStatusRejected, adminID, strings.TrimSpace(reason), time.Now())
	if err != nil {
		return nil, err
	}
	current, err := s.repo.GetApplicationByID(app.ID)
	if err != nil {
		return nil, err
	}
	if affected == 0 && current != nil {
		if err := applicationReviewable(current.Status); err != nil {
			return nil, err
		}
	}
	return current, nil
}

// ListAffiliates 查询推广者
func (s *AffiliateService) ListAffiliates(filter repository.AffiliateListFilter) ([]models.Affiliate, int64, error) {
	filter.Code = normalizeReferralCode(filter.Code)
	return s.repo.ListAffiliates(filter)
}

// GetAffiliate 获取推广者
func (s *AffiliateService) GetAffiliate(id uint) (*models.Affiliate, error) {
	affiliate, err := s.repo.GetAffiliateByID(id)
	if err != nil {
		return nil, err
	}
	if affiliate == nil {
		return nil, ErrAffiliateNotFound
	}
	return affiliate, nil
}

// GetAffiliateByCode 公开查询推广码，仅返回 active 推广者
func (s *AffiliateService) GetAffiliateByCode(code string) (*ReferralInfo, error) {
	affiliate, err := s.ResolveReferral(code)
	if err != nil {
		return nil, err
	}
	if affiliate == nil {
		return nil, ErrAffiliateNotFound
	}
	return &ReferralInfo{
		ReferralCode: affiliate.ReferralCode,
		Name:         affiliate.Name,
	}, nil
}

// ResolveReferral 解析推广码，未知或非 active 时返回 nil
func (s *AffiliateService) ResolveReferral(code string) (*models.Affiliate, error) {
	code = normalizeReferralCode(code)
	if code == "" {
		return nil, nil
	}
	affiliate, err := s.repo.GetAffiliateByCode(code)
	if err != nil {
		return nil, err
	}
	if affiliate == nil || affiliate.Status != constants.AffiliateStatusActive {
		return nil, nil
	}
	return affiliate, nil
}

// UpdateCommissionRate 更新佣金比例，取值范围 [0,1]
func (s *AffiliateService) UpdateCommissionRate(id uint, rate decimal.Decimal) (*models.Affiliate, error) {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, ErrInvalidCommissionRate
	}
	return s.updateAffiliate(id, map[string]interface{}{"commission_rate": rate.Round(4)})
}

// UpdateAffiliateStatus 启用、暂停或停用推广者
func (s *AffiliateService) UpdateAffiliateStatus(id uint, status string) (*models.Affiliate, error) {
	status = strings.TrimSpace(status)
	switch status {
	case constants.AffiliateStatusActive, constants.AffiliateStatusSuspended, constants.AffiliateStatusInactive:
	default:
		return nil, ErrAffiliateStatusInvalid
	}
	return s.updateAffiliate(id, map[string]interface{}{"status": status})
}

// UpdatePayoutAccount 绑定或清除收款账户
func (s *AffiliateService) UpdatePayoutAccount(id uint, account string) (*models.Affiliate, error) {
	account = strings.TrimSpace(account)
	if len(account) > 255 || strings.ContainsAny(account, " \t\r\n") {
		return nil, ErrPayoutAccountInvalid
	}
	return s.updateAffiliate(id, map[string]interface{}{"payout_account_id": account})
}

func (s *AffiliateService) updateAffiliate(id uint, updates map[string]interface{}) (*models.Affiliate, error) {
	affected, err := s.repo.UpdateAffiliateFields(id, updates)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrAffiliateNotFound
	}
	return s.GetAffiliate(id)
}

// createAffiliateWithUniqueCode 拒绝采样生成推广码，每次创建在保存点内执行，唯一约束冲突时重试
func (s *AffiliateService) createAffiliateWithUniqueCode(
	repo repository.AffiliateRepository,
	app *models.AffiliateApplication,
	adminID uint,
	now time.Time,
) (*models.Affiliate, error) {
	length := s.cfg.CodeLength
	if length <= 0 {
		length = defaultReferralCodeLength
	}
	rate := s.cfg.DefaultCommissionRate
	if rate <= 0 || rate > 1 {
		rate = defaultCommissionRate
	}

	for i := 0; i < referralCodeMaxRetry; i++ {
		code, err := generateReferralCode(repo, length)
		if err != nil {
			return nil, err
		}
		affiliate := &models.Affiliate{
			ApplicationID:   app.ID,
			Name:            app.Name,
			Email:           app.Email,
			ReferralCode:    code,
			CommissionRate:  decimal.NewFromFloat(rate).Round(4),
			Status:          constants.AffiliateStatusActive,
			TotalEarnings:   models.ZeroMoney(),
			PendingEarnings: models.ZeroMoney(),
			PaidEarnings:    models.ZeroMoney(),
			ApprovedBy:      adminID,
			ApprovedAt:      &now,
		}
		err = repo.Transaction(func(sp *gorm.DB) error {
			return repo.WithTx(sp).CreateAffiliate(affiliate)
		})
		if err == nil {
			return affiliate, nil
		}
		if !isUniqueViolation(err) {
			return nil, err
		}
		logger.Debugw("affiliate_referral_code_conflict", "application_id", app.ID, "attempt", i+1)
	}
	return nil, ErrReferralCodeExhausted
}

// generateReferralCode 生成当前不存在的推广码
func generateReferralCode(repo repository.AffiliateRepository, length int) (string, error) {
	for i := 0; i < referralCodeMaxRetry; i++ {
		code, err := randomCode(length)
		if err != nil {
			return "", err
		}
		exists, err := repo.ExistsByReferralCode(code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", ErrReferralCodeExhausted
}

func applicationReviewable(status string) error {
	switch status {
	case constants.AffiliateApplicationStatusApproved:
		return ErrApplicationAlreadyApproved
	case constants.AffiliateApplicationStatusRejected:
		return ErrApplicationRejected
	}
	return nil
}

func normalizeReferralCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
