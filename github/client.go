package github

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v74/github"
	"github.com/jferrl/go-githubauth"
	"golang.org/x/oauth2"
)

// NewTokenClient authenticates with a personal access token.
func NewTokenClient(ctx context.Context, token string, timeout time.Duration) *github.Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return github.NewClient(withTimeout(oauth2.NewClient(ctx, ts), timeout))
}

// CreateGithubClient authenticates as a GitHub App installation.
func CreateGithubClient(ctx context.Context, privateKey []byte, clientID string, installationID int64, timeout time.Duration) (*github.Client, error) {
	appTokenSource, err := githubauth.NewApplicationTokenSource(clientID, privateKey)
	if err != nil {
		return nil, fmt.Errorf("github app token source: %w", err)
	}
	installationTokenSource := githubauth.NewInstallationTokenSource(installationID, appTokenSource)
	return github.NewClient(withTimeout(oauth2.NewClient(ctx, installationTokenSource), timeout)), nil
}

func withTimeout(hc *http.Client, timeout time.Duration) *http.Client {
	if timeout > 0 {
		hc.Timeout = timeout
	}
	return hc
}
