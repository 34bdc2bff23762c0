// Package pipeline owns the working set and the active rule text, and runs
// the parse, enrich, normalize and aggregate stages over them.
package pipeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/deepak-highbeam/calsift/internal/csvparse"
	"github.com/deepak-highbeam/calsift/internal/event"
	"github.com/deepak-highbeam/calsift/internal/ics"
	"github.com/deepak-highbeam/calsift/internal/log"
	"github.com/deepak-highbeam/calsift/internal/normalize"
	"github.com/deepak-highbeam/calsift/internal/rules"
	"github.com/deepak-highbeam/calsift/internal/store"
)

// ErrEmptyWorkingSet is returned by operations that need rows when none
// are loaded.
var ErrEmptyWorkingSet = errors.New("working set is empty")

// Store is the persistence the controller needs. *store.Store implements it.
type Store interface {
	InsertBatch(b store.Batch, rows []event.Row) error
	ListBatches() ([]store.Batch, error)
	HasFingerprint(fp string) (bool, error)
	LoadRows() ([]event.Row, error)
	Clear() error

	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
	SaveRules(text string, patternMap map[string]string) error
	RulesMap() (map[string]string, error)
}

// Options tune a Controller.
type Options struct {
	// Concurrency bounds parallel file reads. Zero means 4.
	Concurrency int

	// ICSHorizonDays is passed to the iCalendar decoder.
	ICSHorizonDays int
}

// Controller holds the working set. Its methods are safe for concurrent use.
type Controller struct {
	store    Store
	enricher *event.Enricher
	parser   *csvparse.Parser
	decoder  *ics.Decoder
	cache    rules.Cache
	limit    int

	mu       sync.Mutex
	raw      []event.Row
	rows     []event.Row
	ruleText string
}

// New creates a Controller. Call Init before use.
func New(st Store, enr *event.Enricher, opts Options) *Controller {
	limit := opts.Concurrency
	if limit <= 0 {
		limit = 4
	}
	return &Controller{
		store:    st,
		enricher: enr,
		parser:   csvparse.NewParser(enr),
		decoder:  ics.NewDecoder(enr, opts.ICSHorizonDays),
		limit:    limit,
	}
}

// Init loads the persisted working set and rule text and normalizes the
// rows with it. Stored rule text is preferred; without it the stored
// pattern map is rendered back into rule text.
func (c *Controller) Init() error {
	raw, err := c.store.LoadRows()
	if err != nil {
		return fmt.Errorf("load working set: %w", err)
	}
	for i := range raw {
		c.enricher.Enrich(&raw[i])
	}

	text, err := c.storedRuleText()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.raw = raw
	c.ruleText = text
	c.renormalize()

	log.Debug("working set loaded", "rows", len(raw), "rules", len(c.cache.Rules(text)))
	return nil
}

func (c *Controller) storedRuleText() (string, error) {
	text, err := c.store.GetSetting(store.KeyRulesText)
	if err == nil {
		return text, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("load rule text: %w", err)
	}

	m, err := c.store.RulesMap()
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load rule map: %w", err)
	}
	return rules.TextFromMap(m), nil
}

// renormalize recomputes rows from raw under the current rule text.
// Callers hold mu.
func (c *Controller) renormalize() normalize.Result {
	res := normalize.Apply(c.raw, c.cache.Rules(c.ruleText))
	c.rows = res.Rows
	return res
}

// Rows returns the normalized working set. The slice must not be modified.
func (c *Controller) Rows() []event.Row {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rows
}

// Len returns the number of rows in the working set.
func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.raw)
}

// Batches lists the loaded files.
func (c *Controller) Batches() ([]store.Batch, error) {
	return c.store.ListBatches()
}

// Clear empties the working set. Rules and notes are kept.
func (c *Controller) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Clear(); err != nil {
		return fmt.Errorf("clear working set: %w", err)
	}
	c.raw = nil
	c.rows = nil
	log.Info("working set cleared")
	return nil
}

// Notes returns the stored free-text notes.
func (c *Controller) Notes() (string, error) {
	notes, err := c.store.GetSetting(store.KeyNotes)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	return notes, err
}

// SetNotes replaces the stored notes.
func (c *Controller) SetNotes(text string) error {
	return c.store.SetSetting(store.KeyNotes, text)
}
