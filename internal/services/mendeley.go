package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"refsync/internal/models"

	"golang.org/x/oauth2"
)

const (
	mendeleyAPIBase      = "https://api.mendeley.com"
	mendeleyTokenURL     = "https://api.mendeley.com/oauth/token"
	mendeleyDocumentMIME = "application/vnd.mendeley-document.1+json"
)

func init() {
	RegisterAdapterFactory(models.ProviderMendeley, newMendeleyAdapter)
}

// mendeleyAdapter talks to a Mendeley-style OAuth2 REST API.
type mendeleyAdapter struct {
	account models.ReferenceManagerAccount
	client  *http.Client
	baseURL string
}

func newMendeleyAdapter(account models.ReferenceManagerAccount, timeout time.Duration) (ServiceAdapter, error) {
	if account.TokenExpired() && account.RefreshToken == "" {
		return nil, fmt.Errorf("access token expired and no refresh token stored for account %d", account.ID)
	}

	baseClient, err := httpClientForAccount(account, timeout)
	if err != nil {
		return nil, err
	}

	token := &oauth2.Token{
		AccessToken:  account.AccessToken,
		RefreshToken: account.RefreshToken,
	}
	if account.TokenExpiresAt != nil {
		token.Expiry = *account.TokenExpiresAt
	}

	conf := &oauth2.Config{
		ClientID:     os.Getenv("MENDELEY_CLIENT_ID"),
		ClientSecret: os.Getenv("MENDELEY_CLIENT_SECRET"),
		Endpoint:     oauth2.Endpoint{TokenURL: mendeleyTokenURL},
	}

	// Route token refreshes and API calls through the same proxied client.
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, baseClient)
	client := oauth2.NewClient(ctx, conf.TokenSource(ctx, token))
	client.Timeout = timeout

	base := mendeleyAPIBase
	if override := os.Getenv("MENDELEY_API_BASE"); override != "" {
		base = override
	}

	return &mendeleyAdapter{
		account: account,
		client:  client,
		baseURL: base,
	}, nil
}

// mendeleyDocument is the provider wire format for one document.
type mendeleyDocument struct {
	ID          string            `json:"id,omitempty"`
	Title       string            `json:"title"`
	Abstract    string            `json:"abstract,omitempty"`
	Authors     []mendeleyPerson  `json:"authors,omitempty"`
	Year        int               `json:"year,omitempty"`
	Source      string            `json:"source,omitempty"`
	Identifiers map[string]string `json:"identifiers,omitempty"`
	Websites    []string          `json:"websites,omitempty"`
	Type        string            `json:"type,omitempty"`
	Keywords    []string          `json:"keywords,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Notes       string            `json:"notes,omitempty"`
}

type mendeleyPerson struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type mendeleyFolder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (a *mendeleyAdapter) Authenticate(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/profiles/me", nil)
	if err != nil {
		return err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("mendeley authentication request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mendeley authentication failed with status %d", resp.StatusCode)
	}
	return nil
}

func (a *mendeleyAdapter) GetCollections(ctx context.Context) ([]Collection, error) {
	var folders []mendeleyFolder
	if err := a.getJSON(ctx, "/folders", nil, &folders); err != nil {
		return nil, fmt.Errorf("failed to list mendeley folders: %w", err)
	}
	collections := make([]Collection, 0, len(folders))
	for _, f := range folders {
		collections = append(collections, Collection{ID: f.ID, Name: f.Name})
	}
	return collections, nil
}

func (a *mendeleyAdapter) GetReferences(ctx context.Context, collectionID string, limit, offset int) ([]NormalizedReference, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	params.Set("view", "all")
	if collectionID != "" {
		params.Set("folder_id", collectionID)
	}

	var docs []mendeleyDocument
	if err := a.getJSON(ctx, "/documents", params, &docs); err != nil {
		return nil, fmt.Errorf("failed to fetch mendeley documents: %w", err)
	}

	refs := make([]NormalizedReference, 0, len(docs))
	for _, doc := range docs {
		refs = append(refs, doc.normalize())
	}
	return refs, nil
}

func (a *mendeleyAdapter) CreateReference(ctx context.Context, ref NormalizedReference) (*NormalizedReference, error) {
	doc := mendeleyDocumentFrom(ref)
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/documents", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mendeleyDocumentMIME)
	req.Header.Set("Accept", mendeleyDocumentMIME)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mendeley create request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mendeley create failed with status %d: %s", resp.StatusCode, readBodySnippet(resp.Body))
	}

	var created mendeleyDocument
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("failed to decode mendeley create response: %w", err)
	}
	normalized := created.normalize()
	return &normalized, nil
}

func (a *mendeleyAdapter) UpdateReference(ctx context.Context, externalID string, ref NormalizedReference) (*NormalizedReference, error) {
	doc := mendeleyDocumentFrom(ref)
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, a.baseURL+"/documents/"+url.PathEscape(externalID), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mendeleyDocumentMIME)
	req.Header.Set("Accept", mendeleyDocumentMIME)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mendeley update request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mendeley update failed with status %d: %s", resp.StatusCode, readBodySnippet(resp.Body))
	}

	var updated mendeleyDocument
	if err := json.NewDecoder(resp.Body).Decode(&updated); err != nil {
		return nil, fmt.Errorf("failed to decode mendeley update response: %w", err)
	}
	normalized := updated.normalize()
	return &normalized, nil
}

func (a *mendeleyAdapter) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	endpoint := a.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, readBodySnippet(resp.Body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (d mendeleyDocument) normalize() NormalizedReference {
	ref := NormalizedReference{
		ExternalID: d.ID,
		Title:      d.Title,
		Abstract:   d.Abstract,
		Year:       d.Year,
		Journal:    d.Source,
		Type:       d.Type,
		Keywords:   d.Keywords,
		Tags:       d.Tags,
		Notes:      d.Notes,
	}
	for _, author := range d.Authors {
		name := author.FirstName
		if author.LastName != "" {
			if name != "" {
				name += " "
			}
			name += author.LastName
		}
		if name != "" {
			ref.Authors = append(ref.Authors, name)
		}
	}
	if d.Identifiers != nil {
		ref.DOI = d.Identifiers["doi"]
	}
	if len(d.Websites) > 0 {
		ref.URL = d.Websites[0]
	}
	return ref
}

func mendeleyDocumentFrom(ref NormalizedReference) mendeleyDocument {
	doc := mendeleyDocument{
		Title:    ref.Title,
		Abstract: ref.Abstract,
		Year:     ref.Year,
		Source:   ref.Journal,
		Type:     ref.Type,
		Keywords: ref.Keywords,
		Tags:     ref.Tags,
		Notes:    ref.Notes,
	}
	if doc.Type == "" {
		doc.Type = "journal_article"
	}
	for _, name := range ref.Authors {
		doc.Authors = append(doc.Authors, splitPersonName(name))
	}
	if ref.DOI != "" {
		doc.Identifiers = map[string]string{"doi": ref.DOI}
	}
	if ref.URL != "" {
		doc.Websites = []string{ref.URL}
	}
	return doc
}

func readBodySnippet(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil {
		return ""
	}
	return string(body)
}
