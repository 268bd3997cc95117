package types

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// SiteID identifies a storefront
type SiteID string

const (
	SiteDLsite     SiteID = "dlsite"
	SiteFanza      SiteID = "fanza"
	SiteBooth      SiteID = "booth"
	SiteToranoana  SiteID = "toranoana"
	SiteMelonbooks SiteID = "melonbooks"
	SiteAlicebooks SiteID = "alicebooks"
)

// KnownSites lists every storefront an adapter exists for
var KnownSites = []SiteID{SiteDLsite, SiteFanza, SiteBooth, SiteToranoana, SiteMelonbooks, SiteAlicebooks}

// IsKnownSite reports whether id names a supported storefront
func IsKnownSite(id SiteID) bool {
	for _, s := range KnownSites {
		if s == id {
			return true
		}
	}
	return false
}

// ProductRecord is the common metadata schema extracted from one product page.
// An empty string means the field is absent; adapters never store whitespace-only values.
type ProductRecord struct {
	Title       string `json:"title,omitempty" yaml:"title,omitempty"`
	Circle      string `json:"circle,omitempty" yaml:"circle,omitempty"`
	Author      string `json:"author,omitempty" yaml:"author,omitempty"`
	ReleaseDate string `json:"release_date,omitempty" yaml:"release_date,omitempty"`
	EventName   string `json:"event_name,omitempty" yaml:"event_name,omitempty"`
}

// IsEmpty reports whether no field is present
func (r *ProductRecord) IsEmpty() bool {
	return r == nil || (r.Title == "" && r.Circle == "" && r.Author == "" && r.ReleaseDate == "" && r.EventName == "")
}

// SiteResult is the outcome of one adapter invocation for one item
type SiteResult struct {
	Site     SiteID
	Location string // absolute URL, empty when not found
	Record   *ProductRecord
	Err      error
}

// Found reports whether the storefront yielded a product location
func (r SiteResult) Found() bool {
	return r.Location != ""
}

// Row is the reconciled output for one input item
type Row struct {
	Input      string            `json:"input"`
	Circle     string            `json:"circle"`
	Author     string            `json:"author"`
	Title      string            `json:"title"`
	Date       string            `json:"date"`
	Event      string            `json:"event"`
	Locations  map[SiteID]string `json:"locations"`
	CleanedURL string            `json:"cleaned_url,omitempty"`
	Resolved   bool              `json:"resolved"`

	// Failures holds storefronts that failed (transport, gate) rather than had no match
	Failures map[SiteID]string `json:"failures,omitempty"`
}

// Config holds the configuration for the resolver
type Config struct {
	RequestDelay          time.Duration `yaml:"request_delay"`
	Timeout               time.Duration `yaml:"timeout"`
	MaxConcurrentRequests int           `yaml:"max_concurrent_requests"`
	Workers               int           `yaml:"workers"`
	UserAgent             string        `yaml:"user_agent"`

	// PrimaryOrder picks which discovered location seeds a free-text item.
	PrimaryOrder []SiteID `yaml:"primary_order"`
	// MergeOrder decides which storefront supplies each consensus field.
	MergeOrder []SiteID `yaml:"merge_order"`
	// FanOutOrder lists storefronts searched for a free-text item.
	FanOutOrder []SiteID `yaml:"fan_out_order"`
	// LastResortSites are searched only when the fan-out found nothing.
	LastResortSites []SiteID `yaml:"last_resort_sites"`

	OutputEncoding  string `yaml:"output_encoding"`
	NonePlaceholder string `yaml:"none_placeholder"`
	URLPlaceholder  string `yaml:"url_placeholder"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		RequestDelay:          200 * time.Millisecond,
		Timeout:               10 * time.Second,
		MaxConcurrentRequests: 5,
		Workers:               1,
		UserAgent:             "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		PrimaryOrder:          []SiteID{SiteDLsite, SiteBooth, SiteMelonbooks, SiteToranoana, SiteFanza},
		MergeOrder:            []SiteID{SiteMelonbooks, SiteToranoana, SiteDLsite, SiteFanza, SiteBooth},
		FanOutOrder:           []SiteID{SiteMelonbooks, SiteToranoana, SiteDLsite, SiteBooth},
		LastResortSites:       []SiteID{SiteFanza},
		OutputEncoding:        "utf-8",
		NonePlaceholder:       "(なし)",
		URLPlaceholder:        "N/A",
	}
}

// SiteAdapter defines the interface for storefront-specific search and extraction
type SiteAdapter interface {
	// Site returns the storefront identifier
	Site() SiteID

	// Matches reports whether a product URL belongs to this storefront
	Matches(productURL string) bool

	// Search returns the best-matching product location, or ErrNotFound
	Search(ctx context.Context, query string) (string, error)

	// Extract fetches a product page and returns whatever fields it could locate
	Extract(ctx context.Context, productURL string) (*ProductRecord, error)
}

// Logger defines the logging interface
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	WithField(key string, value interface{}) *logrus.Entry
	WithError(err error) *logrus.Entry
}
