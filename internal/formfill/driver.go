package formfill

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"

	"github.com/joseph-ayodele/attendance-tracker/internal/common"
)

// Driver is the slice of browser control the form client needs.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	Fill(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	// Exists waits up to wait for selector and reports whether it appeared.
	Exists(ctx context.Context, selector string, wait time.Duration) (bool, error)
	Close() error
}

// RodDriver drives one Chrome tab over the DevTools protocol.
type RodDriver struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	timeout  time.Duration
}

// LaunchRod starts (or reuses the profile of) a local Chrome and opens a blank tab.
func LaunchRod(ctx context.Context, cfg common.FormConfig) (*RodDriver, error) {
	l := launcher.New().Headless(cfg.Headless).Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.ProfileDir != "" {
		l = l.UserDataDir(cfg.ProfileDir)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: launch chrome: %v", common.ErrExternalTool, err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("%w: connect to chrome: %v", common.ErrExternalTool, err)
	}
	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, fmt.Errorf("%w: create page: %v", common.ErrExternalTool, err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RodDriver{launcher: l, browser: browser, page: page, timeout: timeout}, nil
}

func (d *RodDriver) Navigate(ctx context.Context, url string) error {
	p := d.page.Context(ctx).Timeout(d.timeout)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return p.WaitLoad()
}

func (d *RodDriver) element(ctx context.Context, selector string) (*rod.Element, error) {
	el, err := d.page.Context(ctx).Timeout(d.timeout).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("element %q: %w", selector, err)
	}
	return el, nil
}

func (d *RodDriver) Fill(ctx context.Context, selector, value string) error {
	el, err := d.element(ctx, selector)
	if err != nil {
		return err
	}
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("clear %q: %w", selector, err)
	}
	return el.Input(value)
}

func (d *RodDriver) Click(ctx context.Context, selector string) error {
	el, err := d.element(ctx, selector)
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (d *RodDriver) Exists(ctx context.Context, selector string, wait time.Duration) (bool, error) {
	_, err := d.page.Context(ctx).Timeout(wait).Element(selector)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		return false, nil
	default:
		return false, err
	}
}

func (d *RodDriver) Close() error {
	err := d.browser.Close()
	d.launcher.Kill()
	return err
}
