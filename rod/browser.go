package rod

import (
	"sync"

	"github.com/fwojciec/docchat"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// DefaultMaxPages is the number of pages a browser serves before it is
// relaunched. Chrome's resident memory grows with every page it renders
// and never returns to its baseline.
const DefaultMaxPages = 75

// BrowserManager owns a headless Chrome instance and leases it to fetches.
// A browser that has served MaxPages is relaunched on the next lease once
// no page is in flight, so recycling never closes a page in use.
//
// BrowserManager is safe for concurrent use.
type BrowserManager struct {
	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
	maxPages int
	served   int
	inFlight int
	closed   bool
}

// ManagerOption configures a BrowserManager.
type ManagerOption func(*BrowserManager)

// WithMaxPages sets the number of pages served before the browser is
// relaunched.
func WithMaxPages(n int) ManagerOption {
	return func(m *BrowserManager) {
		m.maxPages = n
	}
}

// NewBrowserManager launches a headless browser.
// Returns EFETCH when Chrome cannot be launched.
func NewBrowserManager(opts ...ManagerOption) (*BrowserManager, error) {
	m := &BrowserManager{maxPages: DefaultMaxPages}
	for _, opt := range opts {
		opt(m)
	}

	b, l, err := launch()
	if err != nil {
		return nil, err
	}
	m.browser, m.launcher = b, l
	return m, nil
}

// Acquire leases the browser for one page. The returned release func must
// be called once the page is closed.
// Returns EINVALID after Close.
func (m *BrowserManager) Acquire() (*rod.Browser, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, nil, docchat.Errorf(docchat.EINVALID, "browser manager is closed")
	}
	if m.served >= m.maxPages && m.inFlight == 0 {
		m.relaunch()
	}

	m.served++
	m.inFlight++
	var once sync.Once
	release := func() {
		once.Do(func() {
			m.mu.Lock()
			m.inFlight--
			m.mu.Unlock()
		})
	}
	return m.browser, release, nil
}

// relaunch replaces the browser. The old one is kept when the new launch
// fails. Must be called with mu held.
func (m *BrowserManager) relaunch() {
	b, l, err := launch()
	if err != nil {
		return
	}
	_ = m.browser.Close()
	m.launcher.Kill()
	m.browser, m.launcher = b, l
	m.served = 0
}

// Close shuts the browser down and kills its process. Close is safe to
// call multiple times.
func (m *BrowserManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	err := m.browser.Close()
	m.launcher.Kill()
	return err
}

// LauncherPID returns the process ID of the browser launcher, or 0 after
// Close.
func (m *BrowserManager) LauncherPID() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0
	}
	return m.launcher.PID()
}

func launch() (*rod.Browser, *launcher.Launcher, error) {
	l := launcher.New().
		Set("disable-background-timer-throttling").
		Set("disable-renderer-backgrounding").
		Set("disable-dev-shm-usage").
		Leakless(true).
		Headless(true)

	u, err := l.Launch()
	if err != nil {
		return nil, nil, docchat.WrapError(docchat.EFETCH, err, "failed to launch browser")
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, nil, docchat.WrapError(docchat.EFETCH, err, "failed to connect to browser")
	}
	return b, l, nil
}
