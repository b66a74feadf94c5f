// Package fetch installs a browser-style fetch() global backed by net/http.
//
// Requests run on their own goroutine; the returned Promise is settled back
// on the event loop through a Scheduler. Response bodies are read in full
// before the Promise resolves, there is no streaming.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/dop251/goja"
)

// DefaultTimeout bounds a request when the caller gives no timeout option.
const DefaultTimeout = 30 * time.Second

// DefaultMaxBodySize caps how much of a response body is buffered.
const DefaultMaxBodySize = 16 << 20

// ErrBodyTooLarge is returned when a response exceeds the body size cap.
var ErrBodyTooLarge = errors.New("response body too large")

// Scheduler runs callbacks on the goroutine that owns the goja runtime.
// scripting.Runtime satisfies it.
type Scheduler interface {
	RunOnLoop(fn func(*goja.Runtime)) bool
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient sets the HTTP client used for requests.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithLogger sets the logger for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithTimeout sets the per-request timeout used when the script gives none.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithContext ties in-flight requests to ctx.
func WithContext(ctx context.Context) Option {
	return func(f *Fetcher) {
		if ctx != nil {
			f.ctx = ctx
		}
	}
}

// WithMaxBodySize overrides DefaultMaxBodySize.
func WithMaxBodySize(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBody = n
		}
	}
}

// Fetcher performs fetch() calls for one runtime.
type Fetcher struct {
	sched   Scheduler
	client  *http.Client
	logger  *slog.Logger
	timeout time.Duration
	maxBody int64
	ctx     context.Context
}

// New returns a Fetcher that settles its promises through sched.
func New(sched Scheduler, opts ...Option) *Fetcher {
	f := &Fetcher{
		sched:   sched,
		client:  http.DefaultClient,
		logger:  slog.New(slog.DiscardHandler),
		timeout: DefaultTimeout,
		maxBody: DefaultMaxBodySize,
		ctx:     context.Background(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Install defines the fetch global on vm. It must be called on the loop.
func (f *Fetcher) Install(vm *goja.Runtime) error {
	if err := vm.Set("fetch", f.fetchFunc(vm)); err != nil {
		return fmt.Errorf("fetch: install global: %w", err)
	}
	return nil
}

// request is the Go side of a fetch(url, options) call.
type request struct {
	method  string
	url     string
	headers http.Header
	body    string
	hasBody bool
	timeout time.Duration
}

// result is what the request goroutine hands back to the loop.
type result struct {
	status     int
	statusText string
	url        string
	redirected bool
	headers    http.Header
	body       []byte
}

func (f *Fetcher) fetchFunc(vm *goja.Runtime) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		promise, resolve, reject := vm.NewPromise()

		req, err := f.parseRequest(call)
		if err != nil {
			_ = reject(vm.NewTypeError(err.Error()))
			return vm.ToValue(promise)
		}

		go func() {
			res, err := f.do(req)
			if err != nil {
				f.logger.Debug("fetch failed", "method", req.method, "url", req.url, "error", err)
			} else {
				f.logger.Debug("fetch completed", "method", req.method, "url", req.url, "status", res.status)
			}
			ok := f.sched.RunOnLoop(func(vm *goja.Runtime) {
				if err != nil {
					_ = reject(vm.NewTypeError("fetch failed: " + err.Error()))
					return
				}
				_ = resolve(newResponse(vm, res))
			})
			if !ok {
				f.logger.Debug("fetch result dropped, loop stopped", "url", req.url)
			}
		}()

		return vm.ToValue(promise)
	}
}

func (f *Fetcher) parseRequest(call goja.FunctionCall) (*request, error) {
	arg := call.Argument(0)
	if goja.IsUndefined(arg) || goja.IsNull(arg) {
		return nil, errors.New("fetch requires a URL")
	}
	req := &request{
		method:  http.MethodGet,
		url:     arg.String(),
		headers: make(http.Header),
		timeout: f.timeout,
	}

	opts, ok := call.Argument(1).Export().(map[string]any)
	if !ok {
		return req, nil
	}
	if m, ok := opts["method"].(string); ok && m != "" {
		req.method = strings.ToUpper(m)
	}
	switch v := opts["timeout"].(type) {
	case int64:
		if v > 0 {
			req.timeout = time.Duration(v) * time.Second
		}
	case float64:
		if v > 0 {
			req.timeout = time.Duration(v * float64(time.Second))
		}
	}
	switch b := opts["body"].(type) {
	case nil:
	case string:
		req.body, req.hasBody = b, true
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("unsupported body: %w", err)
		}
		req.body, req.hasBody = string(raw), true
		req.headers.Set("Content-Type", "application/json")
	}
	if h, ok := opts["headers"].(map[string]any); ok {
		for k, v := range h {
			req.headers.Set(k, fmt.Sprint(v))
		}
	}
	if req.hasBody && (req.method == http.MethodGet || req.method == http.MethodHead) {
		return nil, fmt.Errorf("request with %s method cannot have body", req.method)
	}
	return req, nil
}

func (f *Fetcher) do(r *request) (*result, error) {
	ctx, cancel := context.WithTimeout(f.ctx, r.timeout)
	defer cancel()

	var body io.Reader
	if r.hasBody {
		body = strings.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, r.url, body)
	if err != nil {
		return nil, err
	}
	req.Header = r.headers

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > f.maxBody {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, f.maxBody)
	}

	return &result{
		status:     resp.StatusCode,
		statusText: strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprint(resp.StatusCode))),
		url:        resp.Request.URL.String(),
		redirected: resp.Request.URL.String() != req.URL.String(),
		headers:    resp.Header,
		body:       data,
	}, nil
}

// newResponse builds a Response. Data fields are own properties; methods
// live on a prototype so previews show only the data.
func newResponse(vm *goja.Runtime, res *result) *goja.Object {
	proto := vm.NewObject()
	obj := vm.NewObject()
	_ = obj.SetPrototype(proto)

	_ = obj.Set("status", res.status)
	_ = obj.Set("statusText", res.statusText)
	_ = obj.Set("ok", res.status >= 200 && res.status < 300)
	_ = obj.Set("redirected", res.redirected)
	_ = obj.Set("type", "basic")
	_ = obj.Set("url", res.url)
	_ = obj.Set("headers", newHeaders(vm, res.headers))
	_ = obj.Set("bodyUsed", false)
	tag(vm, obj, "Response")

	// consume marks the body used; a second read rejects like a browser does.
	consume := func(decode func() (goja.Value, goja.Value)) goja.Value {
		promise, resolve, reject := vm.NewPromise()
		if obj.Get("bodyUsed").ToBoolean() {
			_ = reject(vm.NewTypeError("body stream already read"))
			return vm.ToValue(promise)
		}
		_ = obj.Set("bodyUsed", true)
		v, reason := decode()
		if reason != nil {
			_ = reject(reason)
		} else {
			_ = resolve(v)
		}
		return vm.ToValue(promise)
	}

	_ = proto.Set("text", func() goja.Value {
		return consume(func() (goja.Value, goja.Value) {
			return vm.ToValue(string(res.body)), nil
		})
	})
	_ = proto.Set("json", func() goja.Value {
		return consume(func() (goja.Value, goja.Value) {
			var parsed any
			if err := json.Unmarshal(res.body, &parsed); err != nil {
				return nil, vm.NewTypeError("invalid JSON body: " + err.Error())
			}
			return vm.ToValue(parsed), nil
		})
	})
	return obj
}

// newHeaders builds a read-only Headers object with lowercase names. Like
// Response its methods sit on a prototype.
func newHeaders(vm *goja.Runtime, h http.Header) *goja.Object {
	names := make([]string, 0, len(h))
	values := make(map[string]string, len(h))
	for k, v := range h {
		name := strings.ToLower(k)
		names = append(names, name)
		values[name] = strings.Join(v, ", ")
	}
	slices.Sort(names)

	proto := vm.NewObject()
	obj := vm.NewObject()
	_ = obj.SetPrototype(proto)
	tag(vm, obj, "Headers")

	iterate := func(items []any) goja.Value {
		arr := vm.NewArray(items...)
		fn, ok := goja.AssertFunction(arr.GetSymbol(goja.SymIterator))
		if !ok {
			return arr
		}
		it, err := fn(arr)
		if err != nil {
			panic(err)
		}
		return it
	}

	_ = proto.Set("get", func(name string) goja.Value {
		if v, ok := values[strings.ToLower(name)]; ok {
			return vm.ToValue(v)
		}
		return goja.Null()
	})
	_ = proto.Set("has", func(name string) bool {
		_, ok := values[strings.ToLower(name)]
		return ok
	})
	_ = proto.Set("forEach", func(call goja.FunctionCall) goja.Value {
		cb, ok := goja.AssertFunction(call.Argument(0))
		if !ok {
			panic(vm.NewTypeError("forEach callback is not a function"))
		}
		for _, name := range names {
			if _, err := cb(call.Argument(1), vm.ToValue(values[name]), vm.ToValue(name), obj); err != nil {
				panic(err)
			}
		}
		return goja.Undefined()
	})
	_ = proto.Set("entries", func() goja.Value {
		items := make([]any, len(names))
		for i, name := range names {
			items[i] = vm.NewArray(name, values[name])
		}
		return iterate(items)
	})
	_ = proto.Set("keys", func() goja.Value {
		items := make([]any, len(names))
		for i, name := range names {
			items[i] = name
		}
		return iterate(items)
	})
	_ = proto.Set("values", func() goja.Value {
		items := make([]any, len(names))
		for i, name := range names {
			items[i] = values[name]
		}
		return iterate(items)
	})
	return obj
}

func tag(vm *goja.Runtime, obj *goja.Object, name string) {
	_ = obj.DefineDataPropertySymbol(goja.SymToStringTag, vm.ToValue(name), goja.FLAG_FALSE, goja.FLAG_TRUE, goja.FLAG_FALSE)
}
