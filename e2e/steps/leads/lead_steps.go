package leads

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string) error
	GetLastStatus() int
	GetResponseField(field string) (any, error)
}

// RegisterSteps registers timeline assertions for leads.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &leadSteps{tc: tc}

	ctx.Step(`^the timeline of "([^"]*)" should read newest first:$`, steps.timelineShouldRead)
}

type leadSteps struct {
	tc TestContext
}

// timelineShouldRead compares event types top to bottom against the table's
// single column.
func (s *leadSteps) timelineShouldRead(_ context.Context, leadRef string, table *godog.Table) error {
	if err := s.tc.GET("/leads/" + leadRef + "/timeline"); err != nil {
		return err
	}
	if s.tc.GetLastStatus() != 200 {
		return fmt.Errorf("timeline request failed with status %d", s.tc.GetLastStatus())
	}
	raw, err := s.tc.GetResponseField("events")
	if err != nil {
		return err
	}
	events, _ := raw.([]any)
	if len(events) != len(table.Rows) {
		return fmt.Errorf("expected %d events, got %d", len(table.Rows), len(events))
	}
	for i, row := range table.Rows {
		ev, _ := events[i].(map[string]any)
		if got, want := fmt.Sprint(ev["event_type"]), row.Cells[0].Value; got != want {
			return fmt.Errorf("event %d: expected %s, got %s", i, want, got)
		}
	}
	return nil
}
