package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/fitbit"
)

// FitbitScopes are requested on every connect.
var FitbitScopes = []string{"activity", "heartrate", "profile", "sleep", "settings"}

// FitbitProfile is the portion of /1/user/-/profile.json we keep.
type FitbitProfile struct {
	ID          string `json:"encodedId"`
	DisplayName string `json:"displayName"`
	FullName    string `json:"fullName"`
}

// Name returns the best available display name.
func (p *FitbitProfile) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	if p.FullName != "" {
		return p.FullName
	}
	return "Fitbit User"
}

// FitbitConfig holds the OAuth application settings. Empty URLs fall back
// to Fitbit's production endpoints.
type FitbitConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	AuthURL      string
	TokenURL     string
	APIURL       string
	// HTTPClient is used for token and profile calls when set.
	HTTPClient *http.Client
}

// FitbitProvider wraps golang.org/x/oauth2 for the Fitbit Authorization
// Code flow and the refresh_token grant.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW:
//  1. Redirect the user to Fitbit's consent page with our ClientID and scopes.
//  2. Fitbit redirects back to CallbackURL with a short-lived "code".
//  3. Exchange the code for an access/refresh token pair (server-to-server,
//     HTTP Basic client authentication).
//  4. Call the API with "Authorization: Bearer <access token>".
type FitbitProvider struct {
	config     *oauth2.Config
	apiURL     string
	httpClient *http.Client
}

func NewFitbitProvider(cfg FitbitConfig) *FitbitProvider {
	endpoint := fitbit.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	endpoint.AuthStyle = oauth2.AuthStyleInHeader

	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = "https://api.fitbit.com"
	}

	return &FitbitProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       FitbitScopes,
			Endpoint:     endpoint,
		},
		apiURL:     strings.TrimRight(apiURL, "/"),
		httpClient: cfg.HTTPClient,
	}
}

// AuthURL returns the consent page URL. state must be echoed back by the
// callback and compared with the value stored in the state cookie.
func (p *FitbitProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token pair and fetches the
// profile of the account that granted it.
func (p *FitbitProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, *FitbitProfile, error) {
	ctx = p.clientContext(ctx)

	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	client := p.config.Client(ctx, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiURL+"/1/user/-/profile.json", nil)
	if err != nil {
		return nil, nil, fmt.Errorf("auth: building profile request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("auth: calling Fitbit profile API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("auth: Fitbit profile API returned status %d", resp.StatusCode)
	}

	var body struct {
		User FitbitProfile `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, nil, fmt.Errorf("auth: decoding Fitbit profile: %w", err)
	}
	if body.User.ID == "" {
		return nil, nil, errors.New("auth: Fitbit returned a profile without an id")
	}

	return token, &body.User, nil
}

// Refresh redeems a refresh token for a new token pair
// (grant_type=refresh_token). Fitbit rotates refresh tokens, so callers
// must persist both returned values.
func (p *FitbitProvider) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, errors.New("auth: no refresh token stored")
	}

	src := p.config.TokenSource(p.clientContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("auth: refreshing Fitbit token: %w", err)
	}
	return token, nil
}

func (p *FitbitProvider) clientContext(ctx context.Context) context.Context {
	if p.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}
