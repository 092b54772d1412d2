package services

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"refsync/internal/models"

	"golang.org/x/net/proxy"
)

// NormalizedReference is the provider-agnostic record shape every adapter
// produces and consumes. It is the sole boundary between the engine and
// provider wire formats.
type NormalizedReference struct {
	ExternalID string   `json:"external_id,omitempty"`
	Title      string   `json:"title"`
	Abstract   string   `json:"abstract,omitempty"`
	Authors    []string `json:"authors,omitempty"` // ordered
	Year       int      `json:"year,omitempty"`
	Journal    string   `json:"journal,omitempty"`
	DOI        string   `json:"doi,omitempty"`
	URL        string   `json:"url,omitempty"`
	Type       string   `json:"type,omitempty"`
	Keywords   []string `json:"keywords,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Notes      string   `json:"notes,omitempty"`
}

// Collection is one syncable grouping (folder/library) on a provider.
type Collection struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ServiceAdapter is the capability set the engine depends on. The engine
// never branches on provider type; providers are added by registering a
// factory, never by branching here.
type ServiceAdapter interface {
	// Authenticate verifies stored credentials are usable. It must not
	// mutate sync state.
	Authenticate(ctx context.Context) error

	// GetCollections enumerates the account's syncable groupings.
	GetCollections(ctx context.Context) ([]Collection, error)

	// GetReferences fetches one page of records from a collection. It must
	// tolerate partial or missing optional fields.
	GetReferences(ctx context.Context, collectionID string, limit, offset int) ([]NormalizedReference, error)

	// CreateReference pushes a new record; the returned payload carries the
	// provider-assigned external id. Callers re-derive the remote hash from
	// the returned payload, never from the input echoed back.
	CreateReference(ctx context.Context, ref NormalizedReference) (*NormalizedReference, error)

	// UpdateReference pushes field changes to an existing remote record.
	UpdateReference(ctx context.Context, externalID string, ref NormalizedReference) (*NormalizedReference, error)
}

// ReadOnlyAdapter is an optional marker for providers that cannot accept
// writes. The push phase skips accounts whose adapter implements it.
type ReadOnlyAdapter interface {
	ReadOnly() bool
}

// AdapterFactory builds a ServiceAdapter for one account.
type AdapterFactory func(account models.ReferenceManagerAccount, timeout time.Duration) (ServiceAdapter, error)

var (
	adapterFactoriesMu sync.RWMutex
	adapterFactories   = make(map[models.ServiceProvider]AdapterFactory)
)

// RegisterAdapterFactory registers the constructor for one provider.
// Later registrations for the same provider replace earlier ones.
func RegisterAdapterFactory(provider models.ServiceProvider, factory AdapterFactory) {
	adapterFactoriesMu.Lock()
	defer adapterFactoriesMu.Unlock()
	adapterFactories[provider] = factory
}

// RegisteredProviders lists providers with a registered factory, sorted.
func RegisteredProviders() []models.ServiceProvider {
	adapterFactoriesMu.RLock()
	defer adapterFactoriesMu.RUnlock()
	providers := make([]models.ServiceProvider, 0, len(adapterFactories))
	for p := range adapterFactories {
		providers = append(providers, p)
	}
	sort.Slice(providers, func(i, j int) bool { return providers[i] < providers[j] })
	return providers
}

// NewServiceAdapter builds the adapter for an account's provider.
func NewServiceAdapter(account models.ReferenceManagerAccount, timeout time.Duration) (ServiceAdapter, error) {
	adapterFactoriesMu.RLock()
	factory, ok := adapterFactories[account.Provider]
	adapterFactoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no adapter registered for provider %q", account.Provider)
	}
	return factory(account, timeout)
}

// httpClientForAccount builds the HTTP client adapters share: per-call
// timeout plus the account's SOCKS5 proxy when one is configured.
func httpClientForAccount(account models.ReferenceManagerAccount, timeout time.Duration) (*http.Client, error) {
	client := &http.Client{Timeout: timeout}
	if account.Proxy == "" {
		return client, nil
	}

	proxyURL, err := url.Parse(account.Proxy)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL: %w", err)
	}
	if proxyURL.Scheme != "socks5" {
		return nil, fmt.Errorf("unsupported proxy scheme: %s", proxyURL.Scheme)
	}

	var auth *proxy.Auth
	if proxyURL.User != nil {
		auth = &proxy.Auth{User: proxyURL.User.Username()}
		if password, ok := proxyURL.User.Password(); ok {
			auth.Password = password
		}
	}

	dialer, err := proxy.SOCKS5("tcp", proxyURL.Host, auth, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create proxy dialer: %w", err)
	}

	client.Transport = &http.Transport{
		Dial: func(network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		},
	}
	return client, nil
}
