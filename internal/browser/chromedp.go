package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

const typeKeyDelay = 100 * time.Millisecond

// Session owns one Chrome instance and the tab the workflow drives.
type Session struct {
	allocCancel context.CancelFunc
	tabCancel   context.CancelFunc
	ctx         context.Context
}

// NewSession launches Chrome. With headless false the browser window is
// shown, which helps when debugging a workflow against the live site.
func NewSession(ctx context.Context, headless bool) (*Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.NoSandbox,
		chromedp.WindowSize(1366, 768),
		chromedp.UserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// Force the browser process to start now so a missing Chrome binary
	// surfaces here instead of mid-login.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	return &Session{allocCancel: allocCancel, tabCancel: tabCancel, ctx: tabCtx}, nil
}

// Page returns the session's tab.
func (s *Session) Page() Page {
	return &chromePage{ctx: s.ctx}
}

// Close shuts the browser down.
func (s *Session) Close() {
	s.tabCancel()
	s.allocCancel()
}

// chromePage implements Page over a chromedp tab context.
type chromePage struct {
	ctx context.Context
}

// run executes actions against the tab, giving up when the caller's
// context is cancelled.
func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	return p.run(ctx, chromedp.Navigate(url))
}

func (p *chromePage) WaitVisible(ctx context.Context, sel string) error {
	return p.run(ctx, chromedp.WaitVisible(sel, chromedp.ByQuery))
}

func (p *chromePage) Click(ctx context.Context, sel string) error {
	return p.run(ctx, chromedp.Click(sel, chromedp.ByQuery))
}

func (p *chromePage) Type(ctx context.Context, sel, text string) error {
	actions := []chromedp.Action{chromedp.Focus(sel, chromedp.ByQuery)}
	for _, r := range text {
		actions = append(actions,
			chromedp.SendKeys(sel, string(r), chromedp.ByQuery),
			chromedp.Sleep(typeKeyDelay),
		)
	}
	return p.run(ctx, actions...)
}

func (p *chromePage) SetValue(ctx context.Context, sel, value string) error {
	return p.run(ctx, chromedp.SetValue(sel, value, chromedp.ByQuery))
}

func (p *chromePage) PressEnter(ctx context.Context) error {
	return p.run(ctx, chromedp.KeyEvent(kb.Enter))
}

func (p *chromePage) Eval(ctx context.Context, expr string, result any) error {
	return p.run(ctx, chromedp.Evaluate(expr, result))
}

func (p *chromePage) SessionStorageItem(ctx context.Context, key string) (string, error) {
	var value string
	expr := fmt.Sprintf(`window.sessionStorage.getItem(%q) || ""`, key)
	if err := p.Eval(ctx, expr, &value); err != nil {
		return "", err
	}
	return value, nil
}

func (p *chromePage) WaitNavigation(ctx context.Context) error {
	loaded := make(chan struct{}, 1)

	listenCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	chromedp.ListenTarget(listenCtx, func(ev any) {
		if _, ok := ev.(*page.EventLoadEventFired); ok {
			select {
			case loaded <- struct{}{}:
			default:
			}
		}
	})

	select {
	case <-loaded:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
