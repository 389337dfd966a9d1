package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuqa/backend/internal/storage/models"
	"github.com/docuqa/backend/internal/storage/sqlite"
)

const noticeHTML = `<html><body>
<h1>Notice S 6490</h1>
<p>Le produit S 6490 est dosé à 5 mg par comprimé.</p>
<h2>Posologie</h2>
<p>Prendre 5 mg le matin et 10 mg le soir. Péremption: 31/01/2027.</p>
</body></html>`

func newTestProcessor(t *testing.T) (*Processor, *sqlite.Client) {
	t.Helper()

	store, err := sqlite.NewClient(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.InitSchema())

	return NewProcessor(store), store
}

func TestImportHTML(t *testing.T) {
	processor, store := newTestProcessor(t)

	result, err := processor.ImportHTML("Notice S 6490", noticeHTML, "fr", "importer")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Pages, "one page per h1/h2 section")
	assert.NotEmpty(t, result.Document.ID)
	assert.Equal(t, "html_import", result.Document.Source)

	annotations, err := store.GetAnnotationsByDocument(result.Document.ID)
	require.NoError(t, err)

	byType := map[string][]string{}
	for _, a := range annotations {
		byType[a.EntityType] = append(byType[a.EntityType], a.Value)
	}

	assert.Contains(t, byType["Dosage"], "5 mg")
	assert.Contains(t, byType["Dosage"], "10 mg")
	assert.Contains(t, byType["ProductCode"], "S 6490")
	assert.Contains(t, byType["Date"], "31/01/2027")
}

func TestImportSeedsSnapshotEntities(t *testing.T) {
	processor, store := newTestProcessor(t)

	result, err := processor.ImportHTML("Notice S 6490", noticeHTML, "fr", "importer")
	require.NoError(t, err)

	snap, err := store.LoadSnapshot(result.Document.ID)
	require.NoError(t, err)

	assert.Equal(t, "Notice S 6490", snap.Document["title"])
	assert.Equal(t, "fr", snap.Document["language"])
	assert.Contains(t, snap.Entities["Dosage"], "5 mg")
	assert.Contains(t, snap.Entities["ProductCode"], "S 6490")
	assert.Empty(t, snap.Relations, "a fresh import has nothing validated")
}

// The same dosage mentioned twice on one page yields one annotation.
func TestImportDeduplicatesPerPage(t *testing.T) {
	processor, store := newTestProcessor(t)

	html := `<html><body><p>Dosage: 5 mg. Encore 5 mg.</p></body></html>`
	result, err := processor.ImportHTML("Doublons", html, "fr", "importer")
	require.NoError(t, err)

	annotations, err := store.GetAnnotationsByDocument(result.Document.ID)
	require.NoError(t, err)
	require.Len(t, annotations, 1)
	assert.Equal(t, "5 mg", annotations[0].Value)
}

func TestImportBodyWithoutHeadings(t *testing.T) {
	processor, _ := newTestProcessor(t)

	result, err := processor.ImportHTML("Sans titre", `<html><body><p>Texte simple.</p></body></html>`, "fr", "importer")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Pages)
}

func TestImportRejectsEmptyInput(t *testing.T) {
	processor, _ := newTestProcessor(t)

	_, err := processor.ImportHTML("", "<html></html>", "fr", "importer")
	assert.Error(t, err)

	_, err = processor.ImportHTML("Titre", "   ", "fr", "importer")
	assert.Error(t, err)
}

func TestSeedExtractors(t *testing.T) {
	page := &models.Page{ID: "page-1", Number: 1, Text: "Produit AB-1234, 2,5 mg, exp 01.02.2026"}

	annotations := NewProcessor(nil).seedAnnotations("doc-1", page, "importer")

	values := map[string]string{}
	for _, a := range annotations {
		values[a.EntityType] = a.Value
	}

	assert.Equal(t, "2,5 mg", values["Dosage"])
	assert.Equal(t, "AB-1234", values["ProductCode"])
	assert.Equal(t, "01.02.2026", values["Date"])
}
