// Package settingsui implements the settings dialog: it loads the settings
// record when opened and sends the edited record back on submit.
package settingsui

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/webshell/schema"
)

// Backend is the slice of the bridge the dialog talks to.
type Backend interface {
	GetSettings(ctx context.Context) (schema.Settings, error)
	SaveSettings(ctx context.Context, settings schema.Settings) error
}

// Form holds the dialog fields.
type Form struct {
	Homepage     string                      `json:"homepage"`
	SearchEngine string                      `json:"searchEngine"`
	Options      []schema.SearchEngineOption `json:"options,omitempty"`
}

// Dialog is one open settings window.
type Dialog struct {
	backend Backend

	mu     sync.Mutex
	form   Form
	closed bool
}

// New constructs a dialog bound to the backend.
func New(backend Backend) *Dialog {
	return &Dialog{backend: backend}
}

// Open loads the current settings and returns the populated form. Empty
// fields are filled with the defaults.
func (d *Dialog) Open(ctx context.Context) (Form, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return Form{}, schema.ErrDialogClosed
	}
	d.mu.Unlock()

	settings, err := d.backend.GetSettings(ctx)
	if err != nil {
		return Form{}, fmt.Errorf("load settings: %w", err)
	}
	form := Form{
		Homepage:     settings.Homepage,
		SearchEngine: settings.SearchEngine,
		Options:      append([]schema.SearchEngineOption(nil), schema.SearchEngineOptions...),
	}
	if form.Homepage == "" {
		form.Homepage = schema.DefaultHomepage
	}
	if form.SearchEngine == "" {
		form.SearchEngine = schema.DefaultSearchEngine
	}

	d.mu.Lock()
	d.form = form
	d.mu.Unlock()
	pslog.Ctx(ctx).Debug("settings dialog opened", "homepage", form.Homepage, "search_engine", form.SearchEngine)
	return form, nil
}

// Form returns the fields loaded by Open.
func (d *Dialog) Form() Form {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.form
}

// Submit trims the homepage, requires it to be an absolute http(s) URL (an
// empty homepage means the default), checks the search engine against the
// offered options, sends the record and closes the dialog. The returned record
// is exactly what the host stores.
func (d *Dialog) Submit(ctx context.Context, form Form) (schema.Settings, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return schema.Settings{}, schema.ErrDialogClosed
	}
	d.mu.Unlock()

	settings := schema.Settings{
		Homepage:     strings.TrimSpace(form.Homepage),
		SearchEngine: form.SearchEngine,
	}
	if settings.Homepage == "" {
		settings.Homepage = schema.DefaultHomepage
	}
	if !schema.IsHTTPURL(settings.Homepage) {
		return schema.Settings{}, fmt.Errorf("%w: %q", schema.ErrInvalidHomepage, settings.Homepage)
	}
	if !schema.IsOfferedSearchEngine(settings.SearchEngine) {
		return schema.Settings{}, fmt.Errorf("%w: %q", schema.ErrInvalidSearchEngine, settings.SearchEngine)
	}
	if err := d.backend.SaveSettings(ctx, settings); err != nil {
		return schema.Settings{}, fmt.Errorf("save settings: %w", err)
	}
	d.Close()
	pslog.Ctx(ctx).Info("settings dialog saved", "homepage", settings.Homepage, "search_engine", settings.SearchEngine)
	return settings, nil
}

// Close dismisses the dialog without saving.
func (d *Dialog) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
}

// Closed reports whether the dialog has been dismissed.
func (d *Dialog) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
