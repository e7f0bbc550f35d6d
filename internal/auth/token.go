package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/issuedesk/internal/model"
)

// トークン検証の失敗種別。詳細な内部情報はエラーに含めない。
var (
	// ErrTokenInvalid はトークンの形式不正または署名不一致を表す。
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired はトークンの有効期限切れを表す。
	ErrTokenExpired = errors.New("token expired")
)

// TokenClaims はセッショントークンに埋め込む最小限のアイデンティティクレーム。
// ロールはキャッシュヒントであり、認可判定時には必ずストアから再読込する。
type TokenClaims struct {
	UserID int        `json:"uid"`
	Role   model.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenService は署名付きセッショントークンの発行・検証を提供する。
// トークンはステートレスであり、サーバー側に保存しない。
// 失効はTTL満了のみで、取り消しリストは持たない。
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService はTokenServiceを生成する。
// secretはHMAC-SHA256の署名鍵。ttlは発行時点から固定の有効期間。
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// TTL はトークンの有効期間を返す。Cookie MaxAgeの算出に使用する。
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue はユーザーIDとロールを埋め込んだ署名付きトークンを発行する。
// ユーザーレコード全体は埋め込まない。
func (s *TokenService) Issue(userID int, role model.Role) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify はトークンの署名と有効期限を検証し、クレームを返す。
// 形式不正・署名不一致はErrTokenInvalid、期限切れはErrTokenExpiredを返す。
func (s *TokenService) Verify(tokenString string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
