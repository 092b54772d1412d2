package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"refsync/internal/models"

	books "google.golang.org/api/books/v1"
	"google.golang.org/api/option"
)

func init() {
	RegisterAdapterFactory(models.ProviderGoogleBooks, newGoogleBooksAdapter)
}

// googleBooksAdapter imports from a user's public Google Books bookshelves.
// The Books API offers no write path for external clients, so the adapter
// is read-only and the push phase skips accounts using it.
type googleBooksAdapter struct {
	account models.ReferenceManagerAccount
	service *books.Service
}

func newGoogleBooksAdapter(account models.ReferenceManagerAccount, timeout time.Duration) (ServiceAdapter, error) {
	if account.APIKey == "" {
		return nil, fmt.Errorf("no API key stored for google books account %d", account.ID)
	}
	if account.ExternalUserID == "" {
		return nil, fmt.Errorf("no external user id stored for google books account %d", account.ID)
	}

	client, err := httpClientForAccount(account, timeout)
	if err != nil {
		return nil, err
	}

	svc, err := books.NewService(context.Background(),
		option.WithAPIKey(account.APIKey),
		option.WithHTTPClient(client),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build books service: %w", err)
	}

	return &googleBooksAdapter{account: account, service: svc}, nil
}

// ReadOnly marks the adapter as import-only.
func (a *googleBooksAdapter) ReadOnly() bool { return true }

func (a *googleBooksAdapter) Authenticate(ctx context.Context) error {
	_, err := a.service.Bookshelves.List(a.account.ExternalUserID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("google books authentication failed: %w", err)
	}
	return nil
}

func (a *googleBooksAdapter) GetCollections(ctx context.Context) ([]Collection, error) {
	shelves, err := a.service.Bookshelves.List(a.account.ExternalUserID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list bookshelves: %w", err)
	}
	collections := make([]Collection, 0, len(shelves.Items))
	for _, shelf := range shelves.Items {
		collections = append(collections, Collection{
			ID:   strconv.FormatInt(shelf.Id, 10),
			Name: shelf.Title,
		})
	}
	return collections, nil
}

func (a *googleBooksAdapter) GetReferences(ctx context.Context, collectionID string, limit, offset int) ([]NormalizedReference, error) {
	call := a.service.Bookshelves.Volumes.List(a.account.ExternalUserID, collectionID).
		MaxResults(int64(limit)).
		StartIndex(int64(offset)).
		Context(ctx)
	volumes, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bookshelf volumes: %w", err)
	}

	refs := make([]NormalizedReference, 0, len(volumes.Items))
	for _, vol := range volumes.Items {
		if vol == nil || vol.VolumeInfo == nil {
			continue
		}
		info := vol.VolumeInfo
		refs = append(refs, NormalizedReference{
			ExternalID: vol.Id,
			Title:      info.Title,
			Abstract:   info.Description,
			Authors:    info.Authors,
			Year:       yearFromDateString(info.PublishedDate),
			Journal:    info.Publisher,
			URL:        info.CanonicalVolumeLink,
			Type:       "book",
			Keywords:   info.Categories,
		})
	}
	return refs, nil
}

func (a *googleBooksAdapter) CreateReference(ctx context.Context, ref NormalizedReference) (*NormalizedReference, error) {
	return nil, fmt.Errorf("google books is a read-only provider")
}

func (a *googleBooksAdapter) UpdateReference(ctx context.Context, externalID string, ref NormalizedReference) (*NormalizedReference, error) {
	return nil, fmt.Errorf("google books is a read-only provider")
}
