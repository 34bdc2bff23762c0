package pipeline

import (
	"fmt"

	"github.com/deepak-highbeam/calsift/internal/event"
	"github.com/deepak-highbeam/calsift/internal/heatmap"
	"github.com/deepak-highbeam/calsift/internal/log"
	"github.com/deepak-highbeam/calsift/internal/normalize"
	"github.com/deepak-highbeam/calsift/internal/rules"
	"github.com/deepak-highbeam/calsift/internal/stats"
)

// ApplyResult reports a rule application.
type ApplyResult struct {
	Rules   int
	Matched int
	Total   int
}

func (r ApplyResult) String() string {
	return fmt.Sprintf("Events cleaned: %d out of %d", r.Matched, r.Total)
}

// RuleText returns the active rule text.
func (c *Controller) RuleText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ruleText
}

// SetRuleText stores text as the active rule text without reporting
// results. Text with no valid rule is rejected with rules.ErrNoRules.
func (c *Controller) SetRuleText(text string) error {
	_, err := c.Apply(text)
	return err
}

// Apply parses text, persists it with its derived pattern map and
// renormalizes the working set. Text with no valid rule returns
// rules.ErrNoRules and changes nothing.
func (c *Controller) Apply(text string) (ApplyResult, error) {
	rs, err := rules.ParseStrict(text)
	if err != nil {
		return ApplyResult{}, err
	}
	if err := c.store.SaveRules(text, rules.Map(rs)); err != nil {
		return ApplyResult{}, fmt.Errorf("save rules: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.ruleText = text
	res := c.renormalize()

	out := ApplyResult{Rules: len(rs), Matched: res.Matched, Total: len(res.Rows)}
	log.Info("rules applied", "rules", out.Rules, "matched", out.Matched, "rows", out.Total)
	return out, nil
}

// Test previews text against the working set without storing anything.
func (c *Controller) Test(text string) (normalize.Preview, error) {
	rs, err := rules.ParseStrict(text)
	if err != nil {
		return normalize.Preview{}, err
	}
	c.mu.Lock()
	raw := c.raw
	c.mu.Unlock()
	return normalize.BuildPreview(raw, rs), nil
}

// Preview summarizes the working set under the active rule text.
func (c *Controller) Preview() normalize.Preview {
	c.mu.Lock()
	defer c.mu.Unlock()
	return normalize.BuildPreview(c.raw, c.cache.Rules(c.ruleText))
}

// Stats aggregates the working set.
func (c *Controller) Stats() (stats.Summary, error) {
	rows, err := c.nonEmpty()
	if err != nil {
		return stats.Summary{}, err
	}
	return stats.Aggregate(rows), nil
}

// Heatmap builds the day by hour grid of the working set.
func (c *Controller) Heatmap() (*heatmap.Heatmap, error) {
	rows, err := c.nonEmpty()
	if err != nil {
		return nil, err
	}
	return heatmap.Build(rows), nil
}

// ExportRows returns the event export lines of the working set.
func (c *Controller) ExportRows() ([]stats.ExportRow, error) {
	rows, err := c.nonEmpty()
	if err != nil {
		return nil, err
	}
	return stats.ExportRows(rows), nil
}

func (c *Controller) nonEmpty() ([]event.Row, error) {
	rows := c.Rows()
	if len(rows) == 0 {
		return nil, ErrEmptyWorkingSet
	}
	return rows, nil
}
