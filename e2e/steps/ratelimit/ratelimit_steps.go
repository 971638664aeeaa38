package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GetLastStatus() int
	Set(name, value string)
	Expand(s string) string
}

// RegisterSteps registers login lockout steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &rateLimitSteps{tc: tc}

	ctx.Step(`^a fresh email saved as "([^"]*)"$`, steps.freshEmail)
	ctx.Step(`^I fail to log in (\d+) times as "([^"]*)"$`, steps.failLogins)
}

type rateLimitSteps struct {
	tc TestContext
}

func (s *rateLimitSteps) freshEmail(_ context.Context, name string) error {
	s.tc.Set(name, fmt.Sprintf("lockout-%d@example.com", time.Now().UnixNano()))
	return nil
}

func (s *rateLimitSteps) failLogins(_ context.Context, n int, email string) error {
	for i := range n {
		if err := s.tc.POST("/auth/login", map[string]string{
			"email":    s.tc.Expand(email),
			"password": "definitely-wrong",
		}); err != nil {
			return err
		}
		if status := s.tc.GetLastStatus(); status != 401 {
			return fmt.Errorf("attempt %d: expected 401, got %d", i+1, status)
		}
	}
	return nil
}
