// Package formfill replays validated attendance records into a web
// time-tracking form through a headless browser.
package formfill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/attendance-tracker/internal/common"
	"github.com/joseph-ayodele/attendance-tracker/internal/entity"
	"github.com/joseph-ayodele/attendance-tracker/internal/normalize"
	"github.com/joseph-ayodele/attendance-tracker/internal/validate"
)

// ErrLoginFailed is returned once every login attempt has failed.
var ErrLoginFailed = errors.New("login failed")

// Failure is one record the form rejected.
type Failure struct {
	Date   string                  `json:"date"`
	Reason string                  `json:"reason"`
	Record entity.AttendanceRecord `json:"record"`
}

// Result summarizes a submission. Success holds the dates that were saved.
type Result struct {
	Total   int       `json:"total"`
	Success []string  `json:"success"`
	Failed  []Failure `json:"failed"`
	Skipped int       `json:"skipped"`
}

type Client struct {
	cfg       common.FormConfig
	driver    Driver
	validator *validate.Validator
	now       func() time.Time
	logger    *slog.Logger
	sleep     func(ctx context.Context, d time.Duration) error

	current string
}

type Option func(*Client)

// WithClock sets the month used for records that carry only a day.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

func WithValidator(v *validate.Validator) Option {
	return func(c *Client) {
		if v != nil {
			c.validator = v
		}
	}
}

func NewClient(cfg common.FormConfig, driver Driver, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RetryCount < 1 {
		cfg.RetryCount = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	c := &Client{
		cfg:       cfg,
		driver:    driver,
		validator: validate.New(),
		now:       time.Now,
		logger:    logger,
		sleep:     sleepCtx,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Login tries RetryCount times, waiting RetryInterval between attempts.
func (c *Client) Login(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.RetryCount; attempt++ {
		err := c.attemptLogin(ctx)
		if err == nil {
			c.logger.Info("form.login.ok", "attempt", attempt)
			return nil
		}
		lastErr = err
		c.logger.Warn("form.login.failed", "attempt", attempt, "of", c.cfg.RetryCount, "error", err)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt < c.cfg.RetryCount {
			if err := c.sleep(ctx, c.cfg.RetryInterval); err != nil {
				return err
			}
		}
	}
	return common.NewAppError("LOGIN_FAILED", fmt.Sprintf("%d attempts", c.cfg.RetryCount), errors.Join(ErrLoginFailed, common.ErrExternalTool, lastErr))
}

func (c *Client) attemptLogin(ctx context.Context) error {
	s := c.cfg.Selectors
	loginURL := c.cfg.LoginURL
	if loginURL == "" {
		loginURL = c.cfg.BaseURL
	}
	if err := c.navigate(ctx, loginURL); err != nil {
		return err
	}
	// a saved browser profile may already hold a session
	if ok, err := c.driver.Exists(ctx, s.LoggedIn, time.Second); err == nil && ok {
		return nil
	}

	fields := []struct{ selector, value string }{
		{s.ContractID, c.cfg.ContractID},
		{s.LoginID, c.cfg.LoginID},
		{s.Password, c.cfg.Password},
	}
	for _, f := range fields {
		if f.selector == "" || f.value == "" {
			continue
		}
		if err := c.driver.Fill(ctx, f.selector, f.value); err != nil {
			return err
		}
	}
	if err := c.driver.Click(ctx, s.LoginBtn); err != nil {
		return err
	}
	c.current = ""

	ok, err := c.driver.Exists(ctx, s.LoggedIn, c.cfg.Timeout)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no %q after login", s.LoggedIn)
	}
	return nil
}

func (c *Client) navigate(ctx context.Context, url string) error {
	if url == "" {
		return common.NewAppError("CONFIG_ERROR", "form url not configured", common.ErrInvalidInput)
	}
	if url == c.current {
		return nil
	}
	if err := c.driver.Navigate(ctx, url); err != nil {
		c.current = ""
		return err
	}
	c.current = url
	return nil
}

// Plan returns the records that would be submitted: validator-approved and not off.
// skipped counts the rest.
func (c *Client) Plan(recs []entity.AttendanceRecord) (submit []entity.AttendanceRecord, skipped int) {
	res := c.validator.ValidateRecords(recs)
	submit = make([]entity.AttendanceRecord, 0, len(res.ValidRecords))
	for _, r := range res.ValidRecords {
		if r.Status == entity.StatusOff {
			continue
		}
		submit = append(submit, r)
	}
	return submit, len(recs) - len(submit)
}

// Submit fills one entry per planned record. A record that fails is reported in
// Result.Failed and the rest are still attempted. Login must have succeeded.
func (c *Client) Submit(ctx context.Context, recs []entity.AttendanceRecord) (Result, error) {
	plan, skipped := c.Plan(recs)
	res := Result{Total: len(plan), Success: []string{}, Failed: []Failure{}, Skipped: skipped}
	now := c.now()

	for i, rec := range plan {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		date, ok := normalize.BuildDate(rec, now)
		if !ok {
			res.Failed = append(res.Failed, Failure{Reason: "no date", Record: rec})
			continue
		}
		if err := c.InputRecord(ctx, rec, date); err != nil {
			c.logger.Warn("form.record.failed", "index", i, "date", date, "error", err)
			res.Failed = append(res.Failed, Failure{Date: date, Reason: err.Error(), Record: rec})
			continue
		}
		c.logger.Info("form.record.ok", "index", i, "date", date)
		res.Success = append(res.Success, date)
	}

	c.logger.Info("form.submit.done", "total", res.Total, "success", len(res.Success), "failed", len(res.Failed), "skipped", res.Skipped)
	return res, nil
}

// InputRecord opens the entry page for date and saves the record's times.
func (c *Client) InputRecord(ctx context.Context, rec entity.AttendanceRecord, date string) error {
	s := c.cfg.Selectors
	url := s.EntryURL
	if url == "" {
		url = c.cfg.BaseURL
	}
	if err := c.navigate(ctx, expand(url, date)); err != nil {
		return err
	}

	if rec.StartTime != nil {
		if err := c.driver.Fill(ctx, expand(s.StartTime, date), *rec.StartTime); err != nil {
			return err
		}
	}
	if rec.EndTime != nil {
		if err := c.driver.Fill(ctx, expand(s.EndTime, date), *rec.EndTime); err != nil {
			return err
		}
	}
	if rec.BreakTime != nil && s.BreakTime != "" {
		if err := c.driver.Fill(ctx, expand(s.BreakTime, date), *rec.BreakTime); err != nil {
			return err
		}
	}
	if err := c.driver.Click(ctx, expand(s.SaveBtn, date)); err != nil {
		return err
	}
	// saving usually reloads the page
	c.current = ""
	return nil
}

// expand fills {date} and {ymd} placeholders.
func expand(tmpl, date string) string {
	if !strings.Contains(tmpl, "{") {
		return tmpl
	}
	return strings.NewReplacer("{date}", date, "{ymd}", strings.ReplaceAll(date, "-", "")).Replace(tmpl)
}

// Close releases the browser.
func (c *Client) Close() error {
	if c.driver == nil {
		return nil
	}
	return c.driver.Close()
}
