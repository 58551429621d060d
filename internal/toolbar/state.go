package toolbar

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidState covers tampered signatures, malformed tokens and expired
// states alike; callers must not be able to distinguish why verification
// failed.
var ErrInvalidState = errors.New("invalid state")

// StateClaims binds an authorization state to the user and team that
// started the flow, plus the PKCE challenge the exchange must match.
// The jti is the single-use marker consumed by the replay guard.
type StateClaims struct {
	UserID        uuid.UUID `json:"user_id"`
	TeamID        int64     `json:"team_id"`
	CodeChallenge string    `json:"code_challenge"`
	jwt.RegisteredClaims
}

// StateService mints and verifies signed, single-use authorization states.
type StateService struct {
	secret []byte
	ttl    time.Duration
}

// NewStateService creates a state service. TTL bounds state freshness.
func NewStateService(secret string, ttl time.Duration) *StateService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &StateService{secret: []byte(secret), ttl: ttl}
}

// TTL returns the state lifetime (shared with the replay guard so consumed
// markers outlive the states they block).
func (s *StateService) TTL() time.Duration {
	return s.ttl
}

// Mint creates a signed state bound to the requesting user and team.
func (s *StateService) Mint(userID uuid.UUID, teamID int64, codeChallenge string) (string, error) {
	now := time.Now()
	claims := StateClaims{
		UserID:        userID,
		TeamID:        teamID,
		CodeChallenge: codeChallenge,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.New().String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify checks signature and freshness, returning the embedded claims.
func (s *StateService) Verify(state string) (*StateClaims, error) {
	token, err := jwt.ParseWithClaims(state, &StateClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidState
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidState
	}
	claims, ok := token.Claims.(*StateClaims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, ErrInvalidState
	}
	return claims, nil
}
