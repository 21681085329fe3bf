// Package rc is a client for the editor's Remote Control web server, the
// HTTP peer of the multicast command transport. It covers object property
// access, function calls, asset search, presets and batched requests.
package rc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultHost    = "127.0.0.1"
	DefaultPort    = 30010
	DefaultTimeout = 10 * time.Second
)

// Well-known editor subsystem object paths.
const (
	EditorActorSubsystem = "/Script/UnrealEd.Default__EditorActorSubsystem"
	EditorAssetLibrary   = "/Script/EditorScriptingUtilities.Default__EditorAssetLibrary"
)

var (
	// ErrRouteNotFound maps the server's 404 responses: unknown route,
	// missing object or preset.
	ErrRouteNotFound = errors.New("rc: route not found")
	// ErrInvalidRequest maps every other non-2xx response.
	ErrInvalidRequest = errors.New("rc: invalid request")
	ErrUnreachable    = errors.New("rc: server unreachable")
)

// Options configure a Client. Zero values take the package defaults.
type Options struct {
	Host    string
	Port    int
	Timeout time.Duration
	// NoTransactions stops the client from requesting an editor
	// transaction per mutating call, which disables undo for them.
	NoTransactions bool
}

// Client talks to one Remote Control server. Safe for concurrent use.
type Client struct {
	base        string
	http        *http.Client
	transaction bool
}

func NewClient(opts Options) *Client {
	if opts.Host == "" {
		opts.Host = DefaultHost
	}
	if opts.Port == 0 {
		opts.Port = DefaultPort
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Client{
		base:        "http://" + opts.Host + ":" + strconv.Itoa(opts.Port),
		http:        &http.Client{Timeout: opts.Timeout},
		transaction: !opts.NoTransactions,
	}
}

// Info returns the server's route catalog from remote/info.
func (c *Client) Info(ctx context.Context) (map[string]any, error) {
	return c.doObject(ctx, http.MethodGet, "remote/info", nil)
}

// Query filters an asset search. Field names follow the server's wire
// format.
type Query struct {
	Query  string `json:"Query"`
	Filter struct {
		PackageNames                 []string `json:"PackageNames"`
		ClassNames                   []string `json:"ClassNames"`
		PackagePaths                 []string `json:"PackagePaths"`
		RecursiveClassesExclusionSet []string `json:"RecursiveClassesExclusionSet"`
		RecursivePaths               bool     `json:"RecursivePaths"`
		RecursiveClasses             bool     `json:"RecursiveClasses"`
	} `json:"Filter"`
}

// SearchAssets runs an asset registry query. An empty query string matches
// every asset within the filter.
func (c *Client) SearchAssets(ctx context.Context, q Query) ([]map[string]any, error) {
	res, err := c.doObject(ctx, http.MethodPut, "remote/search/assets", q)
	if err != nil {
		return nil, err
	}
	raw, ok := res["Assets"].([]any)
	if !ok {
		return nil, nil
	}
	assets := make([]map[string]any, 0, len(raw))
	for _, a := range raw {
		if m, ok := a.(map[string]any); ok {
			assets = append(assets, m)
		}
	}
	return assets, nil
}

// CallFunction invokes a function on a remote object and returns its
// ReturnValue, or the whole response when the function has multiple or
// named outputs.
func (c *Client) CallFunction(ctx context.Context, objectPath, function string, params map[string]any) (any, error) {
	body := map[string]any{
		"objectPath":   objectPath,
		"access":       "WRITE_ACCESS",
		"functionName": function,
	}
	if len(params) > 0 {
		body["parameters"] = params
	}
	res, err := c.doObject(ctx, http.MethodPut, "remote/object/call", body)
	if err != nil {
		return nil, err
	}
	if v, ok := res["ReturnValue"]; ok {
		return v, nil
	}
	return res, nil
}

// GetProperty reads one property of a remote object.
func (c *Client) GetProperty(ctx context.Context, objectPath, property string) (any, error) {
	body := map[string]any{
		"objectPath":   objectPath,
		"access":       "READ_ACCESS",
		"propertyName": property,
	}
	res, err := c.doObject(ctx, http.MethodPut, "remote/object/property", body)
	if err != nil {
		return nil, err
	}
	if v, ok := res[property]; ok {
		return v, nil
	}
	return res, nil
}

// GetAllProperties reads every readable property of a remote object.
func (c *Client) GetAllProperties(ctx context.Context, objectPath string) (map[string]any, error) {
	body := map[string]any{
		"objectPath": objectPath,
		"access":     "READ_ACCESS",
	}
	return c.doObject(ctx, http.MethodPut, "remote/object/property", body)
}

// SetProperty writes one property of a remote object.
func (c *Client) SetProperty(ctx context.Context, objectPath, property string, value any) error {
	body := map[string]any{
		"objectPath":    objectPath,
		"access":        "WRITE_ACCESS",
		"propertyName":  property,
		"propertyValue": map[string]any{property: value},
	}
	_, err := c.doObject(ctx, http.MethodPut, "remote/object/property", body)
	return err
}

// Describe returns the class, property and function shape of a remote
// object.
func (c *Client) Describe(ctx context.Context, objectPath string) (map[string]any, error) {
	return c.doObject(ctx, http.MethodPut, "remote/object/describe", map[string]any{
		"objectPath": objectPath,
	})
}

// Presets lists the exposed remote presets.
func (c *Client) Presets(ctx context.Context) ([]map[string]any, error) {
	res, err := c.doObject(ctx, http.MethodGet, "remote/presets", nil)
	if err != nil {
		return nil, err
	}
	raw, ok := res["Presets"].([]any)
	if !ok {
		return nil, nil
	}
	presets := make([]map[string]any, 0, len(raw))
	for _, p := range raw {
		if m, ok := p.(map[string]any); ok {
			presets = append(presets, m)
		}
	}
	return presets, nil
}

// Preset fetches a single preset description by name.
func (c *Client) Preset(ctx context.Context, name string) (map[string]any, error) {
	return c.doObject(ctx, http.MethodGet, "remote/preset/"+name, nil)
}

// PresetProperty reads a property exposed on a preset.
func (c *Client) PresetProperty(ctx context.Context, preset, property string) (map[string]any, error) {
	return c.doObject(ctx, http.MethodGet, "remote/preset/"+preset+"/property/"+property, nil)
}

// SetPresetProperty writes a property exposed on a preset.
func (c *Client) SetPresetProperty(ctx context.Context, preset, property string, value any) error {
	_, err := c.doObject(ctx, http.MethodPut, "remote/preset/"+preset+"/property/"+property, map[string]any{
		"PropertyValue": value,
	})
	return err
}

// RunPresetFunction invokes a function exposed on a preset.
func (c *Client) RunPresetFunction(ctx context.Context, preset, function string, params map[string]any) (map[string]any, error) {
	body := map[string]any{}
	if len(params) > 0 {
		body["Parameters"] = params
	}
	return c.doObject(ctx, http.MethodPut, "remote/preset/"+preset+"/function/"+function, body)
}

func (c *Client) doObject(ctx context.Context, method, route string, body any) (map[string]any, error) {
	res, err := c.do(ctx, method, route, body)
	if err != nil {
		return nil, err
	}
	m, _ := res.(map[string]any)
	return m, nil
}

func (c *Client) do(ctx context.Context, method, route string, body any) (any, error) {
	var reader io.Reader
	if body != nil {
		payload, err := injectTransaction(body, c.transaction)
		if err != nil {
			return nil, fmt.Errorf("rc: encode body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+"/"+route, reader)
	if err != nil {
		return nil, fmt.Errorf("rc: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	log.Debug().Str("method", method).Str("route", route).Msg("remote control request")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreachable, c.base, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("rc: read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrRouteNotFound, errorMessage(raw))
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if len(raw) == 0 {
			return nil, nil
		}
		var res any
		if err := json.Unmarshal(raw, &res); err != nil {
			// Some routes return raw bytes, thumbnails for one.
			return raw, nil
		}
		return res, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, errorMessage(raw))
	}
}

// injectTransaction adds the generateTransaction flag to map-shaped bodies
// without mutating the caller's value.
func injectTransaction(body any, transaction bool) ([]byte, error) {
	if m, ok := body.(map[string]any); ok {
		out := make(map[string]any, len(m)+1)
		for k, v := range m {
			out[k] = v
		}
		out["generateTransaction"] = transaction
		return json.Marshal(out)
	}
	return json.Marshal(body)
}

func errorMessage(raw []byte) string {
	var body struct {
		ErrorMessage string `json:"errorMessage"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.ErrorMessage != "" {
		return body.ErrorMessage
	}
	return "unknown error"
}
