package dess

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dessmon/dessmon-core/internal/infrastructure/config"
)

// Application identity sent with authSource. The platform requires these
// fields but does not validate their content.
const (
	appClient  = "web"
	appID      = "dessmon-core"
	appVersion = "1.0.0"
)

// maxResponseSize bounds response bodies read into memory.
const maxResponseSize = 4 << 20 // 4MB

// errUnauthorized marks an HTTP 401; it triggers one transparent re-login.
var errUnauthorized = errors.New("dess: unauthorized")

// Logger is the minimal logging interface the client needs.
// Compatible with logging.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger discards all log output. Used when no logger is configured.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Client is an authenticated DessMonitor API client.
//
// Thread Safety: all methods are safe for concurrent use. Session refresh is
// single-flight; concurrent callers share one authSource request.
type Client struct {
	cfg        config.DessConfig
	httpClient *http.Client
	store      SessionStore
	logger     Logger

	mu      sync.RWMutex
	session *Session

	sf singleflight.Group

	// now is replaceable for tests.
	now func() time.Time
}

// New creates a DessMonitor client.
//
// The store may be nil, in which case sessions live only in memory and every
// process start re-authenticates. A persisted session inside its validity
// window is picked up automatically on first use.
func New(cfg config.DessConfig, store SessionStore) (*Client, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrAuth)
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("dess: base URL is required")
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout(),
		},
		store:  store,
		logger: noopLogger{},
		now:    time.Now,
	}, nil
}

// SetLogger sets a logger for request and session lifecycle logging.
func (c *Client) SetLogger(logger Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// Session returns a copy of the current session, or nil if none is held.
func (c *Client) Session() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

// Authenticate performs authSource and installs the resulting session.
//
// It is called automatically by the query methods; explicit calls are only
// needed to validate credentials up front.
func (c *Client) Authenticate(ctx context.Context) error {
	params := []Param{
		{Key: "usr", Value: c.cfg.Username},
		{Key: "company-key", Value: c.cfg.CompanyKey},
		{Key: "source", Value: "1"},
		{Key: "_app_client_", Value: appClient},
		{Key: "_app_id_", Value: appID},
		{Key: "_app_version_", Value: appVersion},
	}

	dat, err := c.doRequest(ctx, actionAuthSource, params, nil)
	if err != nil {
		return err
	}

	var auth authDat
	if err := json.Unmarshal(dat, &auth); err != nil {
		return fmt.Errorf("%w: decoding authSource response: %w", ErrTransient, err)
	}
	if auth.Token == "" || auth.Secret == "" {
		return fmt.Errorf("%w: authSource returned no session", ErrAuth)
	}

	now := c.now()
	session := &Session{
		Token:     auth.Token,
		Secret:    auth.Secret,
		ExpiresAt: now.Add(time.Duration(auth.Expire) * time.Second),
		CreatedAt: now,
	}

	c.mu.Lock()
	c.session = session
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Save(ctx, *session); err != nil {
			c.logger.Warn("failed to persist session", "error", err)
		}
	}

	c.logger.Info("authenticated with DessMonitor",
		"expires_at", session.ExpiresAt.Format(time.RFC3339),
	)
	return nil
}

// ensureSession guarantees a valid session, loading a persisted one or
// re-authenticating as needed. Concurrent refreshes collapse into one.
func (c *Client) ensureSession(ctx context.Context) (*Session, error) {
	c.mu.RLock()
	session := c.session
	c.mu.RUnlock()

	if session.Valid(c.now()) {
		return session, nil
	}

	_, err, _ := c.sf.Do("session", func() (interface{}, error) {
		// Re-check under the flight: another caller may have refreshed.
		c.mu.RLock()
		current := c.session
		c.mu.RUnlock()
		if current.Valid(c.now()) {
			return nil, nil
		}

		// Try the persisted session before logging in again.
		if current == nil && c.store != nil {
			stored, err := c.store.Load(ctx)
			if err != nil {
				c.logger.Warn("failed to load persisted session", "error", err)
			} else if stored.Valid(c.now()) {
				c.mu.Lock()
				c.session = stored
				c.mu.Unlock()
				c.logger.Info("resumed persisted session",
					"expires_at", stored.ExpiresAt.Format(time.RFC3339),
				)
				return nil, nil
			}
		}

		return nil, c.Authenticate(ctx)
	})
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.session.Valid(c.now()) {
		return nil, ErrNoSession
	}
	return c.session, nil
}

// invalidateSession drops the current session so the next call re-logins.
func (c *Client) invalidateSession(ctx context.Context) {
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Clear(ctx); err != nil {
			c.logger.Warn("failed to clear persisted session", "error", err)
		}
	}
}

// call performs an authenticated action. A 401 or a token-related API error
// triggers exactly one transparent re-login and retry.
func (c *Client) call(ctx context.Context, action string, params []Param) (json.RawMessage, error) {
	session, err := c.ensureSession(ctx)
	if err != nil {
		return nil, err
	}

	dat, err := c.doRequest(ctx, action, params, session)
	if err == nil {
		return dat, nil
	}
	if !isSessionRejection(err) {
		return nil, err
	}

	c.logger.Info("session rejected, re-authenticating", "action", action)
	c.invalidateSession(ctx)

	session, err = c.ensureSession(ctx)
	if err != nil {
		return nil, err
	}
	return c.doRequest(ctx, action, params, session)
}

// isSessionRejection reports whether an error means the session is no longer
// accepted by the platform.
func isSessionRejection(err error) bool {
	if errors.Is(err, errUnauthorized) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		desc := strings.ToLower(apiErr.Desc)
		return strings.Contains(desc, "token") || strings.Contains(desc, "expire")
	}
	return false
}

// doRequest performs one signed GET. A nil session signs with the password
// digest (pre-auth); otherwise the session secret and token are used.
func (c *Client) doRequest(ctx context.Context, action string, params []Param, session *Session) (json.RawMessage, error) {
	salt := newSalt(c.now())
	actionString := buildActionString(action, params)

	var sign string
	if session != nil {
		sign = signWithSession(salt, session.Secret, session.Token, actionString)
	} else {
		sign = signPreAuth(salt, c.cfg.Password, actionString)
	}

	url := c.cfg.BaseURL + "?sign=" + sign + "&salt=" + salt
	if session != nil {
		url += "&token=" + session.Token
	}
	url += actionString

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %w", ErrTransient, err)
	}

	c.logger.Debug("API request", "action", action, "params", len(params))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrTransient, action, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Best effort

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("%w: %s", errUnauthorized, action)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned HTTP %d", ErrTransient, action, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s response: %w", ErrTransient, action, err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: decoding %s response: %w", ErrTransient, action, err)
	}

	if env.Err != 0 {
		return nil, newAPIError(action, env.Err, env.Desc)
	}

	return env.Dat, nil
}

// QueryPlants returns the projects (sites) on the account.
func (c *Client) QueryPlants(ctx context.Context) ([]Plant, error) {
	dat, err := c.call(ctx, actionQueryPlants, []Param{
		IntParam("pagesize", c.cfg.PageSize),
	})
	if err != nil {
		return nil, err
	}

	var out plantsDat
	if err := json.Unmarshal(dat, &out); err != nil {
		return nil, fmt.Errorf("%w: decoding plants: %w", ErrTransient, err)
	}
	return out.Plant, nil
}

// QueryCollectors returns all collectors of a project, walking the
// platform's pagination until the reported total is reached.
func (c *Client) QueryCollectors(ctx context.Context, pid int) ([]Collector, error) {
	var collectors []Collector

	for page := 0; ; page++ {
		dat, err := c.call(ctx, actionQueryCollectors, []Param{
			IntParam("pid", pid),
			IntParam("page", page),
			IntParam("pagesize", c.cfg.PageSize),
		})
		if err != nil {
			return nil, err
		}

		var out collectorsDat
		if err := json.Unmarshal(dat, &out); err != nil {
			return nil, fmt.Errorf("%w: decoding collectors: %w", ErrTransient, err)
		}

		for i := range out.Collector {
			out.Collector[i].ProjectID = pid
		}
		collectors = append(collectors, out.Collector...)

		if len(out.Collector) == 0 ||
			len(collectors) >= out.Total ||
			len(out.Collector) < c.cfg.PageSize {
			break
		}
	}

	return collectors, nil
}

// QueryCollectorDevices returns the inverter devices under a collector PN.
func (c *Client) QueryCollectorDevices(ctx context.Context, pn string) ([]Device, error) {
	dat, err := c.call(ctx, actionCollectorDevices, []Param{
		{Key: "pn", Value: pn},
	})
	if err != nil {
		return nil, err
	}

	var out collectorDevicesDat
	if err := json.Unmarshal(dat, &out); err != nil {
		return nil, fmt.Errorf("%w: decoding collector devices: %w", ErrTransient, err)
	}

	for i := range out.Dev {
		out.Dev[i].PN = pn
	}
	return out.Dev, nil
}

// QueryDeviceLastData returns the latest telemetry fields for one device.
func (c *Client) QueryDeviceLastData(ctx context.Context, pn string, devcode, devaddr int, sn string) ([]RawField, error) {
	dat, err := c.call(ctx, actionDeviceLastData, []Param{
		{Key: "pn", Value: pn},
		IntParam("devcode", devcode),
		IntParam("devaddr", devaddr),
		{Key: "sn", Value: sn},
		{Key: "i18n", Value: "en"},
	})
	if err != nil {
		return nil, err
	}

	var fields []RawField
	if err := json.Unmarshal(dat, &fields); err != nil {
		return nil, fmt.Errorf("%w: decoding device data: %w", ErrTransient, err)
	}
	return fields, nil
}

// QueryDeviceSummary returns per-device headline figures for a project:
// output power, today's energy and lifetime energy, synthesized as raw
// fields so they merge into the normalization pipeline.
func (c *Client) QueryDeviceSummary(ctx context.Context, pid int) ([]DeviceSummary, error) {
	dat, err := c.call(ctx, actionDeviceSummary, []Param{
		IntParam("pid", pid),
		IntParam("pagesize", c.cfg.PageSize),
	})
	if err != nil {
		return nil, err
	}

	var out summaryDat
	if err := json.Unmarshal(dat, &out); err != nil {
		return nil, fmt.Errorf("%w: decoding device summary: %w", ErrTransient, err)
	}

	summaries := make([]DeviceSummary, 0, len(out.Device))
	for _, dev := range out.Device {
		if dev.SN == "" {
			continue
		}

		var fields []RawField
		if dev.OutPower != nil {
			fields = append(fields, RawField{Title: "outpower", Val: *dev.OutPower, Unit: "kW"})
		}
		if dev.EnergyToday != nil {
			fields = append(fields, RawField{Title: "energyToday", Val: *dev.EnergyToday, Unit: "kWh"})
		}
		if dev.EnergyTotal != nil {
			fields = append(fields, RawField{Title: "energyTotal", Val: *dev.EnergyTotal, Unit: "kWh"})
		}

		summaries = append(summaries, DeviceSummary{
			SN:     dev.SN,
			Alias:  dev.Alias,
			Status: dev.Status,
			Fields: fields,
		})
	}

	return summaries, nil
}
