package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"refsync/internal/models"
)

// ChangeDetector computes a stable, order-independent fingerprint of a
// record's meaningful content. Equal content on either side of a sync
// yields equal digests, which is what makes cross-system equality checks
// cheap on the fast path.
type ChangeDetector struct{}

// NewChangeDetector creates a new ChangeDetector
func NewChangeDetector() *ChangeDetector {
	return &ChangeDetector{}
}

// HashRemote fingerprints a normalized remote record.
func (d *ChangeDetector) HashRemote(ref NormalizedReference) string {
	return d.hash(ref.Title, ref.Authors, ref.Year, ref.DOI, ref.Abstract)
}

// HashLocal fingerprints a local record. Authors must be loaded.
func (d *ChangeDetector) HashLocal(ref *models.Reference) string {
	return d.hash(ref.Title, ref.AuthorNames(), ref.PublicationYear, ref.DOI, ref.Abstract)
}

// hash builds the canonical content mapping, serializes it with
// deterministic key order and no incidental whitespace, and digests it.
// encoding/json sorts map keys, which gives the determinism for free.
func (d *ChangeDetector) hash(title string, authors []string, year int, doi, abstract string) string {
	sortedAuthors := make([]string, 0, len(authors))
	for _, a := range authors {
		a = strings.TrimSpace(a)
		if a != "" {
			sortedAuthors = append(sortedAuthors, a)
		}
	}
	sort.Strings(sortedAuthors)

	canonical := map[string]interface{}{
		"title":    strings.TrimSpace(title),
		"authors":  sortedAuthors,
		"year":     year,
		"doi":      strings.TrimSpace(doi),
		"abstract": strings.TrimSpace(abstract),
	}

	payload, err := json.Marshal(canonical)
	if err != nil {
		// Marshalling a map of strings and ints cannot fail; keep the
		// signature digest-only.
		return ""
	}
	digest := sha256.Sum256(payload)
	return hex.EncodeToString(digest[:])
}
