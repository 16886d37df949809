package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"dayly-backend/internal/apperr"
	"dayly-backend/internal/models"
	"dayly-backend/internal/sms"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// OTPTTL is how long a verification code stays valid
	OTPTTL = 5 * time.Minute

	otpLength  = 6
	jwtExpDays = 365
)

// AuthService handles phone verification and token issuance. A User row
// is created on the first successful verification of a phone number.
type AuthService struct {
	users     UserStore
	otps      OTPStore
	sms       sms.Sender
	jwtSecret string
}

// NewAuthService creates a new auth service
func NewAuthService(users UserStore, otps OTPStore, sender sms.Sender, jwtSecret string) *AuthService {
	return &AuthService{
		users:     users,
		otps:      otps,
		sms:       sender,
		jwtSecret: jwtSecret,
	}
}

// RequestVerification issues a 6-digit code to the phone number and
// returns how long it stays valid. Previously issued codes for the number
// are invalidated so only the latest one verifies.
func (s *AuthService) RequestVerification(ctx context.Context, phone string, now time.Time) (time.Duration, error) {
	if err := ValidatePhone(phone); err != nil {
		return 0, err
	}

	if err := s.otps.InvalidatePending(ctx, phone, now); err != nil {
		return 0, fmt.Errorf("failed to invalidate previous codes: %w", err)
	}

	code := randomOTP()
	otp := &models.OTPCode{
		ID:          uuid.New().String(),
		PhoneNumber: phone,
		Code:        code,
		ExpiresAt:   now.Add(OTPTTL),
		CreatedAt:   now,
	}
	if err := s.otps.Create(ctx, otp); err != nil {
		return 0, fmt.Errorf("failed to persist code: %w", err)
	}

	text := fmt.Sprintf("Your Dayly verification code is: %s\n\nThis code expires in %d minutes.", code, int(OTPTTL.Minutes()))
	smsCtx, cancel := context.WithTimeout(ctx, smsTimeout)
	defer cancel()
	if _, err := s.sms.Send(smsCtx, phone, text); err != nil {
		// Unlike invite texts, the caller cannot proceed without this one
		return 0, apperr.Wrap(apperr.Upstream, "failed to send verification code", err)
	}

	return OTPTTL, nil
}

func randomOTP() string {
	code := make([]byte, otpLength)
	for i := range code {
		n, _ := rand.Int(rand.Reader, big.NewInt(10))
		code[i] = byte('0' + n.Int64())
	}
	return string(code)
}

// Verify checks the code, creates the user on first verification and
// returns a signed access token.
func (s *AuthService) Verify(ctx context.Context, phone, code, displayName string, now time.Time) (string, *models.User, error) {
	if err := ValidatePhone(phone); err != nil {
		return "", nil, err
	}
	if err := validateOTP(code); err != nil {
		return "", nil, err
	}

	otp, err := s.otps.FindValid(ctx, phone, code, now)
	if err != nil {
		return "", nil, fmt.Errorf("failed to look up code: %w", err)
	}
	if otp == nil {
		return "", nil, apperr.New(apperr.NotFound, "verification code is invalid or expired")
	}

	user, err := s.users.UpsertByPhone(ctx, phone, displayName, now)
	if err != nil {
		// The code stays unused so the caller can retry with it
		return "", nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	if err := s.otps.MarkUsed(ctx, otp.ID, now); err != nil {
		return "", nil, fmt.Errorf("failed to consume code: %w", err)
	}

	token, err := s.GenerateToken(user.ID)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// GenerateToken mints a signed access token for a user
func (s *AuthService) GenerateToken(userID string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().AddDate(0, 0, jwtExpDays).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken resolves a bearer token to a user ID
func (s *AuthService) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return "", apperr.Wrap(apperr.InvalidInput, "failed to parse token", err)
	}
	if !token.Valid {
		return "", apperr.New(apperr.InvalidInput, "invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", apperr.New(apperr.InvalidInput, "invalid token claims")
	}
	userID, ok := claims["user_id"].(string)
	if !ok {
		return "", apperr.New(apperr.InvalidInput, "user_id not found in token")
	}
	return userID, nil
}
