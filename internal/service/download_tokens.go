package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	appErrors "github.com/elo-edu/secretaria-api/pkg/errors"
)

const downloadTokenType = "document_download"

// DownloadTokenService issues short-lived tokens that authorize downloading
// a rendered PDF without an operator session.
type DownloadTokenService struct {
	secret []byte
	ttl    time.Duration
	clock  func() time.Time
}

// NewDownloadTokenService constructs the token service.
func NewDownloadTokenService(secret string, ttl time.Duration, clock func() time.Time) *DownloadTokenService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if clock == nil {
		clock = time.Now
	}
	return &DownloadTokenService{secret: []byte(secret), ttl: ttl, clock: clock}
}

// Generate returns a signed token for the given verification code and its
// expiry.
func (s *DownloadTokenService) Generate(code string) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, appErrors.Clone(appErrors.ErrInternal, "download token secret missing")
	}

	now := s.clock()
	expiresAt := now.Add(s.ttl)
	claims := jwt.MapClaims{
		"sub": code,
		"typ": downloadTokenType,
		"iat": now.Unix(),
		"exp": expiresAt.Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "sign download token")
	}
	return token, expiresAt, nil
}

// Parse validates a token and returns the verification code it authorizes.
func (s *DownloadTokenService) Parse(raw string) (string, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, appErrors.ErrUnauthorized
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.clock))
	if err != nil || !token.Valid {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["typ"] != downloadTokenType {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid download token")
	}
	code, _ := claims["sub"].(string)
	if code == "" {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid download token")
	}
	return code, nil
}
