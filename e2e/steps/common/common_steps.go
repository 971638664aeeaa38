package common

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext is what the generic request and assertion steps need.
type TestContext interface {
	Do(method, path string, body any) error
	GetLastStatus() int
	GetLastBody() []byte
	GetResponseField(path string) (any, error)
	Set(name, value string)
	Expand(s string) string
}

// RegisterSteps registers generic request and assertion steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^I (GET|DELETE) "([^"]*)"$`, steps.request)
	ctx.Step(`^I (POST|PATCH) "([^"]*)" with:$`, steps.requestWithBody)
	ctx.Step(`^the response status should be (\d+)$`, steps.statusShouldBe)
	ctx.Step(`^the error code should be "([^"]*)"$`, steps.errorCodeShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, steps.fieldShouldBe)
	ctx.Step(`^I save the response field "([^"]*)" as "([^"]*)"$`, steps.saveField)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) request(_ context.Context, method, path string) error {
	return s.tc.Do(method, path, nil)
}

func (s *commonSteps) requestWithBody(_ context.Context, method, path string, body *godog.DocString) error {
	return s.tc.Do(method, path, body.Content)
}

func (s *commonSteps) statusShouldBe(_ context.Context, want int) error {
	if got := s.tc.GetLastStatus(); got != want {
		return fmt.Errorf("expected status %d, got %d: %s", want, got, s.tc.GetLastBody())
	}
	return nil
}

func (s *commonSteps) errorCodeShouldBe(ctx context.Context, code string) error {
	return s.fieldShouldBe(ctx, "error", code)
}

func (s *commonSteps) fieldShouldBe(_ context.Context, field, want string) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != s.tc.Expand(want) {
		return fmt.Errorf("field %q: expected %q, got %q", field, s.tc.Expand(want), got)
	}
	return nil
}

func (s *commonSteps) saveField(_ context.Context, field, name string) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	s.tc.Set(name, fmt.Sprint(v))
	return nil
}
