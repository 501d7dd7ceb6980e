// Package themejs runs community theme bundles in an embedded JavaScript VM.
//
// A bundle is a script that calls a globally registered function with the
// theme payload. The runner fetches the script, evaluates it in goja with
// that function installed, and returns the payload. Evaluation is bounded by
// a timeout and by ctx; a bundle that never calls back is an error, never a
// hang.
package themejs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dop251/goja"
	"github.com/tidwall/gjson"

	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain/theme"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/port/themebundle"
)

// maxTimers bounds how many deferred callbacks a bundle may schedule.
const maxTimers = 64

// Runner implements themebundle.Runner.
type Runner struct {
	httpClient   *http.Client
	callbackName string
	timeout      time.Duration
	maxBytes     int64
}

var _ themebundle.Runner = (*Runner)(nil)

// NewRunner creates a bundle runner. callbackName is the global function the
// bundle invokes; timeout bounds fetch plus evaluation.
func NewRunner(httpClient *http.Client, callbackName string, timeout time.Duration, maxBytes int64) *Runner {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Runner{
		httpClient:   httpClient,
		callbackName: callbackName,
		timeout:      timeout,
		maxBytes:     maxBytes,
	}
}

// Run fetches bundleURL and evaluates it.
func (r *Runner) Run(ctx context.Context, bundleURL string) (*theme.Theme, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	src, err := r.fetch(ctx, bundleURL)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("fetch %s: %w", bundleURL, domain.ErrThemeTimeout)
		}
		return nil, fmt.Errorf("fetch %s: %w", bundleURL, err)
	}
	return r.Eval(ctx, bundleURL, src)
}

func (r *Runner) fetch(ctx context.Context, bundleURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, bundleURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bundle status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read bundle: %w", err)
	}
	if int64(len(data)) > r.maxBytes {
		return "", fmt.Errorf("bundle exceeds %d bytes", r.maxBytes)
	}
	return string(data), nil
}

// Eval runs src with the callback installed and returns the first payload
// it reports. Timers scheduled with setTimeout run after the script body,
// in order, until the payload arrives.
func (r *Runner) Eval(ctx context.Context, name, src string) (*theme.Theme, error) {
	vm := goja.New()

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt(domain.ErrThemeTimeout)
		case <-done:
		}
	}()
	defer close(done)

	var payload goja.Value
	if err := vm.Set(r.callbackName, func(call goja.FunctionCall) goja.Value {
		if payload == nil {
			payload = call.Argument(0)
		}
		return goja.Undefined()
	}); err != nil {
		return nil, fmt.Errorf("install callback: %w", err)
	}

	var timers []goja.Callable
	_ = vm.Set("setTimeout", func(call goja.FunctionCall) goja.Value {
		if fn, ok := goja.AssertFunction(call.Argument(0)); ok && len(timers) < maxTimers {
			timers = append(timers, fn)
		}
		return vm.ToValue(len(timers))
	})
	_ = vm.Set("window", vm.GlobalObject())
	console := vm.NewObject()
	_ = console.Set("log", func(call goja.FunctionCall) goja.Value {
		args := make([]any, len(call.Arguments))
		for i, a := range call.Arguments {
			args[i] = a.Export()
		}
		slog.Debug("theme bundle console", "bundle", name, "args", args)
		return goja.Undefined()
	})
	_ = vm.Set("console", console)

	if _, err := vm.RunScript(name, src); err != nil {
		return nil, evalError(err)
	}
	for i := 0; payload == nil && i < len(timers); i++ {
		if _, err := timers[i](goja.Undefined()); err != nil {
			return nil, evalError(err)
		}
	}

	if payload == nil || goja.IsUndefined(payload) || goja.IsNull(payload) {
		return nil, domain.ErrThemeCallbackMissing
	}
	return decodePayload(payload.Export())
}

func evalError(err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return domain.ErrThemeTimeout
	}
	return fmt.Errorf("evaluate bundle: %w", err)
}

// decodePayload tolerates string versions and a few key spellings.
func decodePayload(v any) (*theme.Theme, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	r := gjson.ParseBytes(raw)
	if !r.IsObject() {
		return nil, fmt.Errorf("theme payload is not an object: %s", raw)
	}
	t := &theme.Theme{
		Slug:    r.Get("slug").String(),
		Version: int(r.Get("version").Int()),
		Assets: theme.Assets{
			Logo:    r.Get("assets.logo").String(),
			Favicon: r.Get("assets.favicon").String(),
		},
		CustomCSS:    firstString(r, "customCss", "customCSS", "custom_css"),
		CustomJS:     firstString(r, "customJs", "customJS", "custom_js"),
		I18nOverride: firstString(r, "i18nOverride", "i18n", "i18n_override"),
	}
	if t.Slug == "" {
		return nil, errors.New("theme payload has no slug")
	}
	return t, nil
}

func firstString(r gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := r.Get(p); v.Exists() {
			return v.String()
		}
	}
	return ""
}
