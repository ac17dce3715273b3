package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/90.0.4430.212 Safari/537.36"

// Options parameterise the rendering session pool.
type Options struct {
	Headless          bool
	NoSandbox         bool
	UserAgent         string
	PoolSize          int
	NavigationTimeout time.Duration
}

// Session wraps one independent headless browser. A session must never be
// used by two fetches at the same time; the pool enforces that.
type Session struct {
	browser    *rod.Browser
	cleanup    func()
	userAgent  string
	navTimeout time.Duration
}

// Pool hands out exclusive rendering sessions. Each session owns its own
// browser process, so concurrent holders never share mutable browser state.
type Pool struct {
	slots  chan *Session
	all    []*Session
	logger zerolog.Logger

	closeOnce sync.Once
}

// NewPool launches the configured number of browsers. A launch failure is
// fatal: without a renderer no fetch can proceed.
func NewPool(opts Options, logger zerolog.Logger) (*Pool, error) {
	size := opts.PoolSize
	if size <= 0 {
		size = 1
	}
	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = defaultUserAgent
	}

	p := &Pool{
		slots:  make(chan *Session, size),
		logger: logger.With().Str("component", "browser_pool").Logger(),
	}

	for i := 0; i < size; i++ {
		session, err := newSession(opts, ua)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("launch browser session: %w", err)
		}
		p.all = append(p.all, session)
		p.slots <- session
	}

	p.logger.Info().Int("sessions", size).Bool("headless", opts.Headless).Msg("browser pool ready")
	return p, nil
}

func newSession(opts Options, userAgent string) (*Session, error) {
	l := launcher.New().Headless(opts.Headless)
	if opts.NoSandbox {
		l = l.NoSandbox(true)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect to chromium: %w", err)
	}

	return &Session{
		browser: b,
		cleanup: func() {
			_ = b.Close()
			l.Kill()
		},
		userAgent:  userAgent,
		navTimeout: opts.NavigationTimeout,
	}, nil
}

// Acquire blocks until a session is free and returns it together with a
// release func. Release is idempotent and must be called on every exit path.
func (p *Pool) Acquire(ctx context.Context) (*Session, func(), error) {
	select {
	case session := <-p.slots:
		var once sync.Once
		release := func() {
			once.Do(func() { p.slots <- session })
		}
		return session, release, nil
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}

// Close tears down every browser in the pool. Sessions still held by callers
// are closed as well, so Close must only run after all work has finished.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		for _, session := range p.all {
			session.cleanup()
		}
	})
}

// PageText navigates to the URL, waits the fixed settle delay for client-side
// rendering, and returns the rendered body text. The settle wait is a
// deliberate wall-clock bound rather than a DOM-ready signal; the target
// sites hydrate their result lists well after the load event.
func (s *Session) PageText(ctx context.Context, url string, settle time.Duration) (string, error) {
	page, err := s.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return "", fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: s.userAgent}); err != nil {
		return "", fmt.Errorf("set user agent: %w", err)
	}

	page = page.Context(ctx)
	if s.navTimeout > 0 {
		page = page.Timeout(s.navTimeout)
	}

	if err := page.Navigate(url); err != nil {
		return "", fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("wait for load: %w", err)
	}

	if settle > 0 {
		timer := time.NewTimer(settle)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	body, err := page.Element("body")
	if err != nil {
		return "", fmt.Errorf("locate body: %w", err)
	}
	text, err := body.Text()
	if err != nil {
		return "", fmt.Errorf("read body text: %w", err)
	}
	return text, nil
}
