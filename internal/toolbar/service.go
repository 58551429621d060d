package toolbar

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pulsedeck/backend/internal/models"
)

// CallbackPath is the fixed redirect path registered with the authorization
// server for every deployment base URL.
const CallbackPath = "/toolbar_oauth/callback"

// ExchangeError maps a token-endpoint failure to a stable code and status.
type ExchangeError struct {
	Code   string
	Status int
	Err    error
}

func (e *ExchangeError) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code
}

func (e *ExchangeError) Unwrap() error { return e.Err }

// ExchangeService performs the server-to-server authorization-code exchange.
type ExchangeService struct {
	authServerURL string
	http          *http.Client
	logger        *zap.Logger
}

// NewExchangeService creates a token exchange service.
func NewExchangeService(authServerURL string, logger *zap.Logger) *ExchangeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExchangeService{
		authServerURL: authServerURL,
		http:          &http.Client{Timeout: 15 * time.Second},
		logger:        logger,
	}
}

// AuthorizationURL builds the URL the toolbar opens to authorize.
func (s *ExchangeService) AuthorizationURL(app *models.OAuthApplication, redirectURI, state, codeChallenge, challengeMethod string) string {
	params := url.Values{
		"client_id":             {app.ClientID},
		"redirect_uri":          {redirectURI},
		"response_type":         {"code"},
		"scope":                 {"openid"},
		"state":                 {state},
		"code_challenge":        {codeChallenge},
		"code_challenge_method": {challengeMethod},
	}
	return s.authServerURL + "/oauth/authorize?" + params.Encode()
}

// ExchangeCode trades code + verifier for a token payload. Transport
// failures and unusable responses surface as *ExchangeError with distinct
// codes rather than raw transport errors; any other upstream status is
// relayed with its payload.
func (s *ExchangeService) ExchangeCode(ctx context.Context, app *models.OAuthApplication, code, codeVerifier, redirectURI string) (json.RawMessage, int, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"code_verifier": {codeVerifier},
		"redirect_uri":  {redirectURI},
		"client_id":     {app.ClientID},
		"client_secret": {app.ClientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.authServerURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, 0, &ExchangeError{Code: CodeTokenExchangeUnavailable, Status: http.StatusServiceUnavailable, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.http.Do(req)
	if err != nil {
		s.logger.Warn("token endpoint unreachable", zap.Error(err))
		return nil, 0, &ExchangeError{Code: CodeTokenExchangeUnavailable, Status: http.StatusServiceUnavailable, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, &ExchangeError{Code: CodeTokenExchangeInvalidResponse, Status: http.StatusBadGateway, Err: err}
	}
	if !json.Valid(body) {
		s.logger.Warn("token endpoint returned non-JSON response", zap.Int("status", resp.StatusCode))
		return nil, 0, &ExchangeError{Code: CodeTokenExchangeInvalidResponse, Status: http.StatusBadGateway}
	}
	return body, resp.StatusCode, nil
}
