package browser

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"sei/dom"
)

// Options controls browser session.
type Options struct {
	Headless     bool
	Bin          string
	ControlURL   string
	ExcludedTags []string
	EditableAttr string
}

// Session is an opened page in a launched or already running browser.
type Session struct {
	launched bool
	browser  *rod.Browser
	page     *rod.Page
	log      *zap.Logger
}

// Open connects to browser (launching one unless ControlURL is set) and
// opens url in a new tab.
func Open(ctx context.Context, url string, opts Options, log *zap.Logger) (*Session, error) {
	s := &Session{log: log}

	controlURL := opts.ControlURL
	if len(controlURL) == 0 {
		l := launcher.New().Context(ctx).Headless(opts.Headless)
		if len(opts.Bin) > 0 {
			l = l.Bin(opts.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("unable to launch browser: %w", err)
		}
		controlURL, s.launched = u, true
		log.Debug("Browser launched", zap.String("control", controlURL))
	}

	s.browser = rod.New().ControlURL(controlURL).Context(ctx)
	if err := s.browser.Connect(); err != nil {
		return nil, fmt.Errorf("unable to connect to browser at %s: %w", controlURL, err)
	}

	page, err := s.browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("unable to open %s: %w", url, err), s.Close())
	}
	s.page = page
	if err := page.WaitLoad(); err != nil {
		return nil, multierr.Append(fmt.Errorf("unable to load %s: %w", url, err), s.Close())
	}
	return s, nil
}

// Close closes opened tab and browser if it was launched by us.
func (s *Session) Close() (err error) {
	if s.page != nil {
		err = multierr.Append(err, s.page.Close())
	}
	if s.launched && s.browser != nil {
		err = multierr.Append(err, s.browser.Close())
	}
	return err
}

// Watch keeps page at url rewritten until ctx is cancelled.
func Watch(ctx context.Context, url string, rw dom.Rewriter, opts Options, log *zap.Logger) (err error) {
	s, err := Open(ctx, url, opts, log)
	if err != nil {
		return err
	}
	defer func() {
		// ctx is likely done by now
		if cerr := s.Close(); cerr != nil && ctx.Err() == nil {
			err = multierr.Append(err, cerr)
		}
	}()

	page, err := Attach(ctx, s.page, log)
	if err != nil {
		return err
	}
	defer page.Close()

	walker := dom.NewWalker(page, rw, dom.NewFilter(page, opts.ExcludedTags, opts.EditableAttr), log)
	log.Info("Watching page", zap.String("url", url))

	err = dom.NewWatcher(page, page, walker, log).Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Attach builds DOM mirror of page and subscribes to its DOM events. Mirror
// stops delivering changes when ctx is done.
func Attach(ctx context.Context, page *rod.Page, log *zap.Logger) (*Page, error) {
	page = page.Context(ctx)
	p := newPage(rodClient{page: page}, log)

	wait := page.EachEvent(
		p.onSetChildNodes,
		p.onChildNodeInserted,
		p.onChildNodeRemoved,
		p.onCharacterDataModified,
		p.onAttributeModified,
		p.onAttributeRemoved,
		p.onDocumentUpdated,
	)
	go func() {
		wait()
		p.Close()
	}()

	if err := (proto.DOMEnable{}).Call(page); err != nil {
		return nil, fmt.Errorf("unable to enable DOM domain: %w", err)
	}
	doc, err := p.cdp.document()
	if err != nil {
		return nil, fmt.Errorf("unable to get document: %w", err)
	}
	p.reset(doc)
	return p, nil
}
