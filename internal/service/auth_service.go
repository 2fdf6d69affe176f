package service

import (
	"errors"
	"strings"
	"time"

	"github.com/courtline/internal/config"
	"github.com/courtline/internal/models"
	"github.com/courtline/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const defaultTokenTTL = 24 * time.Hour

// JWTClaims 管理端 Token 声明，TokenVersion 与账号不一致即视为已吊销
type JWTClaims struct {
	AdminID      uint   `json:"admin_id"`
	Username     string `json:"username"`
	TokenVersion uint64 `json:"token_version"`
	jwt.RegisteredClaims
}

// LoginResult 登录结果
type LoginResult struct {
	Admin     *models.Admin
	Token     string
	ExpiresAt time.Time
}

// AuthService 管理员登录、签发与吊销 Token
type AuthService struct {
	cfg       *config.Config
	adminRepo repository.AdminRepository
	now       func() time.Time
}

// NewAuthService 创建认证服务
func NewAuthService(cfg *config.Config, adminRepo repository.AdminRepository) *AuthService {
	return &AuthService{cfg: cfg, adminRepo: adminRepo, now: time.Now}
}

// ParseAdminToken 校验 HS256 签名与有效期并返回声明
func ParseAdminToken(secret, raw string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.AdminID == 0 {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// HashPassword bcrypt 哈希
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

// ValidatePassword 按配置的密码策略校验
func (s *AuthService) ValidatePassword(password string) error {
	return validatePassword(s.cfg.Security.PasswordPolicy, password)
}

func (s *AuthService) tokenTTL() time.Duration {
	if h := s.cfg.JWT.ExpireHours; h > 0 {
		return time.Duration(h) * time.Hour
	}
	return defaultTokenTTL
}

// GenerateJWT 为管理员签发 Token，返回过期时间
func (s *AuthService) GenerateJWT(admin *models.Admin) (string, time.Time, error) {
	issued := s.now()
	expires := issued.Add(s.tokenTTL())
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{
		AdminID:      admin.ID,
		Username:     admin.Username,
		TokenVersion: admin.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issued),
			NotBefore: jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := token.SignedString([]byte(s.cfg.JWT.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// ParseJWT 使用当前密钥解析 Token
func (s *AuthService) ParseJWT(raw string) (*JWTClaims, error) {
	return ParseAdminToken(s.cfg.JWT.SecretKey, raw)
}

// Login 校验用户名密码并签发 Token；用户不存在与密码错误返回同一错误
func (s *AuthService) Login(username, password string) (*LoginResult, error) {
	admin, err := s.adminRepo.GetByUsername(strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if admin == nil || bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	token, expiresAt, err := s.GenerateJWT(admin)
	if err != nil {
		return nil, err
	}
	at := s.now()
	if err := s.adminRepo.TouchLogin(admin.ID, at); err != nil {
		return nil, err
	}
	admin.LastLoginAt = &at
	return &LoginResult{Admin: admin, Token: token, ExpiresAt: expiresAt}, nil
}

// GetAdmin 按 ID 查询管理员
func (s *AuthService) GetAdmin(id uint) (*models.Admin, error) {
	admin, err := s.adminRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, ErrAdminNotFound
	}
	return admin, nil
}

// RevokeTokens 吊销管理员已签发的全部 Token
func (s *AuthService) RevokeTokens(adminID uint) error {
	return s.adminRepo.RevokeTokens(adminID, s.now())
}
