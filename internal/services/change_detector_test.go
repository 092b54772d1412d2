package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashRemoteStable(t *testing.T) {
	detector := NewChangeDetector()
	ref := NormalizedReference{
		Title:    "Attention Is All You Need",
		Authors:  []string{"Ashish Vaswani", "Noam Shazeer"},
		Year:     2017,
		DOI:      "10.1000/example",
		Abstract: "The dominant sequence transduction models...",
	}

	first := detector.HashRemote(ref)
	second := detector.HashRemote(ref)
	require.NotEmpty(t, first)
	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}

func TestHashRemoteAuthorOrderIndependent(t *testing.T) {
	detector := NewChangeDetector()
	a := NormalizedReference{Title: "T", Authors: []string{"Alice Smith", "Bob Jones"}, Year: 2020}
	b := NormalizedReference{Title: "T", Authors: []string{"Bob Jones", "Alice Smith"}, Year: 2020}

	assert.Equal(t, detector.HashRemote(a), detector.HashRemote(b))
}

func TestHashTrimsIncidentalWhitespace(t *testing.T) {
	detector := NewChangeDetector()
	a := NormalizedReference{Title: "  Deep Learning ", DOI: "10.1/x ", Abstract: " text "}
	b := NormalizedReference{Title: "Deep Learning", DOI: "10.1/x", Abstract: "text"}

	assert.Equal(t, detector.HashRemote(a), detector.HashRemote(b))
}

func TestHashDetectsContentChanges(t *testing.T) {
	detector := NewChangeDetector()
	base := NormalizedReference{Title: "T", Year: 2020, DOI: "10.1/x"}

	changedTitle := base
	changedTitle.Title = "T2"
	changedYear := base
	changedYear.Year = 2021
	changedDOI := base
	changedDOI.DOI = "10.1/y"

	baseHash := detector.HashRemote(base)
	assert.NotEqual(t, baseHash, detector.HashRemote(changedTitle))
	assert.NotEqual(t, baseHash, detector.HashRemote(changedYear))
	assert.NotEqual(t, baseHash, detector.HashRemote(changedDOI))
}

func TestHashLocalMatchesEquivalentRemote(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db)
	local := createTestReference(t, db, user.ID, "Shared Title", []string{"Carol White", "Dan Black"})
	local.PublicationYear = 2019
	local.DOI = "10.5555/shared"

	remote := NormalizedReference{
		Title:   "Shared Title",
		Authors: []string{"Dan Black", "Carol White"},
		Year:    2019,
		DOI:     "10.5555/shared",
	}

	detector := NewChangeDetector()
	assert.Equal(t, detector.HashRemote(remote), detector.HashLocal(local))
}
