package e2e

import (
	"github.com/cucumber/godog"

	"idbcrm/e2e/steps/auth"
	"idbcrm/e2e/steps/common"
	"idbcrm/e2e/steps/leads"
	"idbcrm/e2e/steps/ratelimit"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (generic requests, assertions)
	common.RegisterSteps(ctx, tc)

	// Register authentication-specific steps
	auth.RegisterSteps(ctx, tc)

	leads.RegisterSteps(ctx, tc)
	ratelimit.RegisterSteps(ctx, tc)
}
