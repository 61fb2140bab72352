package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	googleoauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"drawcal/api/internal/config"
)

const StateCookie = "oauth_state"

type UserInfo struct {
	Email string
	Name  string
}

type userInfoFunc func(ctx context.Context, ts oauth2.TokenSource) (UserInfo, error)

// Google runs the authorization-code flow against Google and resolves the
// signed-in user's email and name.
type Google struct {
	oauth    *oauth2.Config
	userInfo userInfoFunc
}

func NewGoogle(cfg config.GoogleConfig) *Google {
	return &Google{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes: []string{
				"openid",
				googleoauth2.UserinfoEmailScope,
				googleoauth2.UserinfoProfileScope,
			},
			Endpoint: google.Endpoint,
		},
		userInfo: fetchUserInfo,
	}
}

func (g *Google) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
}

func (g *Google) Exchange(ctx context.Context, code string) (UserInfo, error) {
	if code == "" {
		return UserInfo{}, errors.New("missing authorization code")
	}
	tok, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return UserInfo{}, fmt.Errorf("exchange code: %w", err)
	}
	info, err := g.userInfo(ctx, g.oauth.TokenSource(ctx, tok))
	if err != nil {
		return UserInfo{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	if info.Email == "" {
		return UserInfo{}, errors.New("userinfo has no email")
	}
	if info.Name == "" {
		info.Name = info.Email
	}
	return info, nil
}

func fetchUserInfo(ctx context.Context, ts oauth2.TokenSource) (UserInfo, error) {
	svc, err := googleoauth2.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return UserInfo{}, err
	}
	u, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return UserInfo{}, err
	}
	return UserInfo{Email: u.Email, Name: u.Name}, nil
}

// NewState returns a random URL-safe value for the state parameter.
func NewState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
