package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"refsync/internal/models"
)

const zoteroAPIBase = "https://api.zotero.org"

func init() {
	RegisterAdapterFactory(models.ProviderZotero, newZoteroAdapter)
}

// zoteroAdapter talks to a Zotero-style REST API with key-based auth and
// versioned library writes.
type zoteroAdapter struct {
	account models.ReferenceManagerAccount
	client  *http.Client
	baseURL string
}

func newZoteroAdapter(account models.ReferenceManagerAccount, timeout time.Duration) (ServiceAdapter, error) {
	if account.APIKey == "" {
		return nil, fmt.Errorf("no API key stored for zotero account %d", account.ID)
	}
	if account.LibraryID == "" {
		return nil, fmt.Errorf("no library id stored for zotero account %d", account.ID)
	}

	client, err := httpClientForAccount(account, timeout)
	if err != nil {
		return nil, err
	}

	base := zoteroAPIBase
	if override := os.Getenv("ZOTERO_API_BASE"); override != "" {
		base = override
	}

	return &zoteroAdapter{
		account: account,
		client:  client,
		baseURL: base,
	}, nil
}

// zoteroItem is the provider wire format for one library item.
type zoteroItem struct {
	Key     string         `json:"key,omitempty"`
	Version int            `json:"version,omitempty"`
	Data    zoteroItemData `json:"data"`
}

type zoteroItemData struct {
	Key              string          `json:"key,omitempty"`
	Version          int             `json:"version,omitempty"`
	ItemType         string          `json:"itemType"`
	Title            string          `json:"title,omitempty"`
	AbstractNote     string          `json:"abstractNote,omitempty"`
	Creators         []zoteroCreator `json:"creators,omitempty"`
	Date             string          `json:"date,omitempty"`
	PublicationTitle string          `json:"publicationTitle,omitempty"`
	DOI              string          `json:"DOI,omitempty"`
	URL              string          `json:"url,omitempty"`
	Tags             []zoteroTag     `json:"tags,omitempty"`
	Extra            string          `json:"extra,omitempty"`
}

type zoteroCreator struct {
	CreatorType string `json:"creatorType"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	Name        string `json:"name,omitempty"`
}

type zoteroTag struct {
	Tag  string `json:"tag"`
	Type int    `json:"type,omitempty"`
}

type zoteroCollection struct {
	Key  string `json:"key"`
	Data struct {
		Name string `json:"name"`
	} `json:"data"`
}

func (a *zoteroAdapter) libraryPath(suffix string) string {
	return fmt.Sprintf("%s/users/%s%s", a.baseURL, url.PathEscape(a.account.LibraryID), suffix)
}

func (a *zoteroAdapter) newRequest(ctx context.Context, method, endpoint string, body []byte) (*http.Request, error) {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Zotero-API-Key", a.account.APIKey)
	req.Header.Set("Zotero-API-Version", "3")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (a *zoteroAdapter) Authenticate(ctx context.Context) error {
	req, err := a.newRequest(ctx, http.MethodGet, fmt.Sprintf("%s/keys/%s", a.baseURL, url.PathEscape(a.account.APIKey)), nil)
	if err != nil {
		return err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("zotero authentication request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("zotero authentication failed with status %d", resp.StatusCode)
	}
	return nil
}

func (a *zoteroAdapter) GetCollections(ctx context.Context) ([]Collection, error) {
	req, err := a.newRequest(ctx, http.MethodGet, a.libraryPath("/collections"), nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list zotero collections: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("zotero collections request failed with status %d", resp.StatusCode)
	}

	var raw []zoteroCollection
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode zotero collections: %w", err)
	}
	collections := make([]Collection, 0, len(raw))
	for _, c := range raw {
		collections = append(collections, Collection{ID: c.Key, Name: c.Data.Name})
	}
	return collections, nil
}

func (a *zoteroAdapter) GetReferences(ctx context.Context, collectionID string, limit, offset int) ([]NormalizedReference, error) {
	path := "/items"
	if collectionID != "" {
		path = "/collections/" + url.PathEscape(collectionID) + "/items"
	}
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("start", strconv.Itoa(offset))
	params.Set("format", "json")
	params.Set("itemType", "-attachment")

	req, err := a.newRequest(ctx, http.MethodGet, a.libraryPath(path)+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch zotero items: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("zotero items request failed with status %d", resp.StatusCode)
	}

	var items []zoteroItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to decode zotero items: %w", err)
	}
	refs := make([]NormalizedReference, 0, len(items))
	for _, item := range items {
		refs = append(refs, item.normalize())
	}
	return refs, nil
}

func (a *zoteroAdapter) CreateReference(ctx context.Context, ref NormalizedReference) (*NormalizedReference, error) {
	data := zoteroItemDataFrom(ref)
	body, err := json.Marshal([]zoteroItemData{data})
	if err != nil {
		return nil, err
	}

	req, err := a.newRequest(ctx, http.MethodPost, a.libraryPath("/items"), body)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("zotero create request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("zotero create failed with status %d: %s", resp.StatusCode, readBodySnippet(resp.Body))
	}

	// Zotero's write API answers with a per-index result envelope.
	var result struct {
		Successful map[string]zoteroItem `json:"successful"`
		Failed     map[string]struct {
			Message string `json:"message"`
		} `json:"failed"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode zotero create response: %w", err)
	}
	if failure, ok := result.Failed["0"]; ok {
		return nil, fmt.Errorf("zotero rejected item: %s", failure.Message)
	}
	created, ok := result.Successful["0"]
	if !ok {
		return nil, fmt.Errorf("zotero create response missing item")
	}
	normalized := created.normalize()
	return &normalized, nil
}

func (a *zoteroAdapter) UpdateReference(ctx context.Context, externalID string, ref NormalizedReference) (*NormalizedReference, error) {
	// Writes are versioned; fetch the item first to learn its current
	// version, then send the patch conditioned on it.
	current, err := a.getItem(ctx, externalID)
	if err != nil {
		return nil, err
	}

	data := zoteroItemDataFrom(ref)
	data.Key = externalID
	data.Version = current.Version
	body, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	req, err := a.newRequest(ctx, http.MethodPatch, a.libraryPath("/items/"+url.PathEscape(externalID)), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("If-Unmodified-Since-Version", strconv.Itoa(current.Version))

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("zotero update request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("zotero update failed with status %d: %s", resp.StatusCode, readBodySnippet(resp.Body))
	}

	// PATCH answers 204; re-fetch so the caller hashes what the server
	// actually stored.
	updated, err := a.getItem(ctx, externalID)
	if err != nil {
		return nil, err
	}
	normalized := updated.normalize()
	return &normalized, nil
}

func (a *zoteroAdapter) getItem(ctx context.Context, key string) (*zoteroItem, error) {
	req, err := a.newRequest(ctx, http.MethodGet, a.libraryPath("/items/"+url.PathEscape(key)), nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch zotero item %s: %w", key, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("zotero item request failed with status %d", resp.StatusCode)
	}
	var item zoteroItem
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return nil, fmt.Errorf("failed to decode zotero item: %w", err)
	}
	return &item, nil
}

func (i zoteroItem) normalize() NormalizedReference {
	d := i.Data
	key := i.Key
	if key == "" {
		key = d.Key
	}
	ref := NormalizedReference{
		ExternalID: key,
		Title:      d.Title,
		Abstract:   d.AbstractNote,
		Year:       yearFromDateString(d.Date),
		Journal:    d.PublicationTitle,
		DOI:        d.DOI,
		URL:        d.URL,
		Type:       d.ItemType,
		Notes:      d.Extra,
	}
	for _, creator := range d.Creators {
		name := creator.Name
		if name == "" {
			name = creator.FirstName
			if creator.LastName != "" {
				if name != "" {
					name += " "
				}
				name += creator.LastName
			}
		}
		if name != "" {
			ref.Authors = append(ref.Authors, name)
		}
	}
	for _, tag := range d.Tags {
		// Zotero folds keywords and user tags into one list; automatic
		// tags (type 1) map to keywords.
		if tag.Type == 1 {
			ref.Keywords = append(ref.Keywords, tag.Tag)
		} else {
			ref.Tags = append(ref.Tags, tag.Tag)
		}
	}
	return ref
}

func zoteroItemDataFrom(ref NormalizedReference) zoteroItemData {
	itemType := ref.Type
	if itemType == "" || itemType == "journal_article" {
		itemType = "journalArticle"
	}
	data := zoteroItemData{
		ItemType:         itemType,
		Title:            ref.Title,
		AbstractNote:     ref.Abstract,
		PublicationTitle: ref.Journal,
		DOI:              ref.DOI,
		URL:              ref.URL,
		Extra:            ref.Notes,
	}
	if ref.Year > 0 {
		data.Date = strconv.Itoa(ref.Year)
	}
	for _, name := range ref.Authors {
		person := splitPersonName(name)
		data.Creators = append(data.Creators, zoteroCreator{
			CreatorType: "author",
			FirstName:   person.FirstName,
			LastName:    person.LastName,
		})
	}
	for _, kw := range ref.Keywords {
		data.Tags = append(data.Tags, zoteroTag{Tag: kw, Type: 1})
	}
	for _, tag := range ref.Tags {
		data.Tags = append(data.Tags, zoteroTag{Tag: tag})
	}
	return data
}
