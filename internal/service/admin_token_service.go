package service

import (
	"errors"
	"strings"
	"time"

	"github.com/storefront/coupon-engine/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenSecretMissing = errors.New("jwt secret missing")
	ErrTokenInvalid       = errors.New("token invalid")
)

// JWTClaims 管理端 JWT 声明
type JWTClaims struct {
	AdminID  uint   `json:"admin_id"`
	Username string `json:"username"`
	IsSuper  bool   `json:"is_super"`
	jwt.RegisteredClaims
}

// AdminTokenService 管理端令牌服务（签发仅供本地开发与测试）
type AdminTokenService struct {
	cfg config.JWTConfig
}

// NewAdminTokenService 创建令牌服务
func NewAdminTokenService(cfg config.JWTConfig) *AdminTokenService {
	return &AdminTokenService{cfg: cfg}
}

// GenerateJWT 生成 JWT Token
func (s *AdminTokenService) GenerateJWT(adminID uint, username string, isSuper bool) (string, time.Time, error) {
	if strings.TrimSpace(s.cfg.SecretKey) == "" {
		return "", time.Time{}, ErrTokenSecretMissing
	}
	expireHours := s.cfg.ExpireHours
	if expireHours <= 0 {
		expireHours = 24
	}
	now := time.Now()
	expiresAt := now.Add(time.Duration(expireHours) * time.Hour)

	claims := JWTClaims{
		AdminID:  adminID,
		Username: username,
		IsSuper:  isSuper,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseJWT 解析并校验 JWT Token
func (s *AdminTokenService) ParseJWT(tokenString string) (*JWTClaims, error) {
	if strings.TrimSpace(s.cfg.SecretKey) == "" {
		return nil, ErrTokenSecretMissing
	}
	options := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(s.cfg.Issuer))
	}
	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid && claims.AdminID != 0 {
		return claims, nil
	}
	return nil, ErrTokenInvalid
}
