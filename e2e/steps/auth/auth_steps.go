package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GetLastStatus() int
	GetResponseField(field string) (any, error)
	GetAdminCredentials() (string, string)
	SetAccessToken(token string)
	Expand(s string) string
}

// RegisterSteps registers authentication-related step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &authSteps{tc: tc}

	ctx.Step(`^I am logged in as the admin$`, steps.loginAsAdmin)
	ctx.Step(`^I am logged in as "([^"]*)" with password "([^"]*)"$`, steps.loginAs)
	ctx.Step(`^I log in with email "([^"]*)" and password "([^"]*)"$`, steps.attemptLogin)
	ctx.Step(`^I am not logged in$`, steps.logout)
}

type authSteps struct {
	tc TestContext
}

func (s *authSteps) loginAsAdmin(ctx context.Context) error {
	email, password := s.tc.GetAdminCredentials()
	if email == "" || password == "" {
		return fmt.Errorf("E2E_ADMIN_EMAIL and E2E_ADMIN_PASSWORD must be set")
	}
	return s.loginAs(ctx, email, password)
}

func (s *authSteps) loginAs(ctx context.Context, email, password string) error {
	if err := s.attemptLogin(ctx, email, password); err != nil {
		return err
	}
	if status := s.tc.GetLastStatus(); status != http.StatusOK {
		return fmt.Errorf("login as %s failed with status %d", s.tc.Expand(email), status)
	}
	token, err := s.tc.GetResponseField("access_token")
	if err != nil {
		return err
	}
	s.tc.SetAccessToken(token.(string))
	return nil
}

func (s *authSteps) attemptLogin(_ context.Context, email, password string) error {
	s.tc.SetAccessToken("")
	return s.tc.POST("/auth/login", map[string]string{
		"email":    s.tc.Expand(email),
		"password": password,
	})
}

func (s *authSteps) logout(context.Context) error {
	s.tc.SetAccessToken("")
	return nil
}
