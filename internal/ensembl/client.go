// Package ensembl provides a client for the Ensembl REST endpoints used to
// annotate variants: gene overlap and VEP region annotation.
package ensembl

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Default endpoint settings.
const (
	DefaultServer  = "https://grch37.rest.ensembl.org"
	DefaultSpecies = "homo_sapiens"
)

// DefaultVEPOptions are sent with every VEP request unless overridden.
func DefaultVEPOptions() map[string]any {
	return map[string]any{
		"hgvs":     1,
		"distance": 0,
	}
}

// Config holds client settings.
type Config struct {
	Server     string
	Species    string
	Timeout    time.Duration  // zero disables the timeout
	VEPOptions map[string]any // extra keys for the VEP request body
	Debug      bool
}

// Client queries the Ensembl REST API.
type Client struct {
	http       *resty.Client
	species    string
	vepOptions map[string]any
}

// NewClient creates a client for cfg, filling unset fields with defaults.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Server == "" {
		cfg.Server = DefaultServer
	}
	if cfg.Species == "" {
		cfg.Species = DefaultSpecies
	}
	if cfg.VEPOptions == nil {
		cfg.VEPOptions = DefaultVEPOptions()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	h := resty.New().
		SetBaseURL(cfg.Server).
		SetHeader("Accept", "application/json").
		SetLogger(NewZapAdapter(logger)).
		SetDebug(cfg.Debug).
		SetTimeout(cfg.Timeout)

	return &Client{
		http:       h,
		species:    cfg.Species,
		vepOptions: cfg.VEPOptions,
	}
}

// LookupError reports a non-success response from the API.
type LookupError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("ensembl %s returned %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

func checkResponse(endpoint string, resp *resty.Response) error {
	if resp.IsError() {
		return &LookupError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode(),
			Body:       string(resp.Body()),
		}
	}
	return nil
}
