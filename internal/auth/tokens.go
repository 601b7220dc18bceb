package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Purpose tags a signed action token so a token issued for one flow can never
// be redeemed in another.
type Purpose string

const (
	PurposeConfirm     Purpose = "confirm"
	PurposeReset       Purpose = "reset"
	PurposeChangeEmail Purpose = "change_email"
)

// ActionTokenTTL is the default validity window for action tokens.
const ActionTokenTTL = time.Hour

var (
	ErrTokenInvalid  = errors.New("token is invalid or has expired")
	ErrTokenPurpose  = errors.New("token was issued for a different purpose")
	ErrTokenMismatch = errors.New("token was issued for a different user")
)

type actionClaims struct {
	Purpose  Purpose `json:"purpose"`
	NewEmail string  `json:"new_email,omitempty"`
	jwt.RegisteredClaims
}

// GenerateActionToken issues a signed, time-limited token binding a purpose to
// a user id. newEmail is only meaningful for the email-change purpose.
func GenerateActionToken(purpose Purpose, userID uint, newEmail string, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := actionClaims{
		Purpose:  purpose,
		NewEmail: newEmail,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

// VerifyActionToken checks signature, expiry, purpose and the embedded user
// id, failing closed on any mismatch. It returns the pending new email for
// email-change tokens.
func VerifyActionToken(tokenString string, purpose Purpose, userID uint) (string, error) {
	var claims actionClaims

	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})

	if err != nil || !token.Valid {
		return "", ErrTokenInvalid
	}

	if claims.Purpose != purpose {
		return "", ErrTokenPurpose
	}

	subject, err := strconv.ParseUint(claims.Subject, 10, 32)
	if err != nil {
		return "", fmt.Errorf("%w: bad subject", ErrTokenInvalid)
	}

	if uint(subject) != userID {
		return "", ErrTokenMismatch
	}

	return claims.NewEmail, nil
}

// SubjectOfActionToken extracts the user id from a token without an expected
// user, for flows that start from the token alone (password reset links).
func SubjectOfActionToken(tokenString string, purpose Purpose) (uint, error) {
	var claims actionClaims

	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})

	if err != nil || !token.Valid {
		return 0, ErrTokenInvalid
	}

	if claims.Purpose != purpose {
		return 0, ErrTokenPurpose
	}

	subject, err := strconv.ParseUint(claims.Subject, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: bad subject", ErrTokenInvalid)
	}

	return uint(subject), nil
}
