package corpus

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/medcoderd/internal/config"
	"github.com/fyrsmithlabs/medcoderd/internal/vectorstore"
)

const cptCSV = `HCPCS/CPT Code,Short Descriptor,Effective Date
99213,"Office visit, established patient",01/01/2024
99214,"Office visit, moderate complexity",01/01/2024
`

const icdCSV = `CODE,LONG DESCRIPTION (VALID ICD-10 FY2024)
S52.501A,"Unspecified fracture of the lower end of right radius, initial encounter"
J02.9,"Acute pharyngitis, unspecified"
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFileCPT(t *testing.T) {
	path := writeFile(t, t.TempDir(), "cpt.csv", cptCSV)

	records, err := LoadFile(path, SourceCPT)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "99213", records[0].Code)
	assert.Equal(t, "Office visit, established patient", records[0].Description)
	assert.Equal(t, SourceCPT, records[0].Source)
	assert.Contains(t, records[0].Text, "HCPCS/CPT Code: 99213")
	assert.Contains(t, records[0].Text, "Short Descriptor: Office visit, established patient")
}

func TestLoadFileICD(t *testing.T) {
	path := writeFile(t, t.TempDir(), "icd.csv", icdCSV)

	records, err := LoadFile(path, SourceICD)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "S52.501A", records[0].Code)
	assert.Contains(t, records[0].Description, "fracture")
	assert.Equal(t, SourceICD, records[0].Source)
}

func TestLoadFileSkipsEmptyCodes(t *testing.T) {
	csv := "code,description\n,orphaned description\n99213,kept\n"
	path := writeFile(t, t.TempDir(), "sparse.csv", csv)

	records, err := LoadFile(path, SourceCPT)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "99213", records[0].Code)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.csv"), SourceCPT)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLoadFailure)
}

func TestDetectColumnsFallback(t *testing.T) {
	codeCol, descCol := detectColumns([]string{"a", "b", "c"})
	assert.Equal(t, 0, codeCol)
	assert.Equal(t, 1, descCol)

	codeCol, descCol = detectColumns([]string{"Effective Date", "CODE", "LONG DESCRIPTION"})
	assert.Equal(t, 1, codeCol)
	assert.Equal(t, 2, descCol)
}

// recordingStore captures added documents for assertions. It is locked
// because the watcher test appends from another goroutine.
type recordingStore struct {
	mu      sync.Mutex
	docs    []vectorstore.Document
	deleted []string
}

func (s *recordingStore) AddDocuments(_ context.Context, docs []vectorstore.Document) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, docs...)
	ids := make([]string, len(docs))
	for i, doc := range docs {
		ids[i] = doc.ID
	}
	return ids, nil
}

func (s *recordingStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

func (s *recordingStore) Search(context.Context, string, int) ([]vectorstore.SearchResult, error) {
	return nil, nil
}

func (s *recordingStore) Delete(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, ids...)
	return nil
}

func (s *recordingStore) Close() error { return nil }

func TestReindex(t *testing.T) {
	dir := t.TempDir()
	cfg := config.CorpusConfig{
		CPTPath: writeFile(t, dir, "cpt.csv", cptCSV),
		ICDPath: writeFile(t, dir, "icd.csv", icdCSV),
	}

	store := &recordingStore{}
	indexer := NewIndexer(cfg, store, nil)

	n, err := indexer.Reindex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	require.Len(t, store.docs, 4)

	assert.Equal(t, "cpt-000001", store.docs[0].ID)
	assert.Equal(t, "99213", store.docs[0].Metadata["code"])
	assert.Equal(t, "cpt", store.docs[0].Metadata["source"])
	assert.Equal(t, "icd-000001", store.docs[2].ID)
	assert.Equal(t, "icd", store.docs[2].Metadata["source"])
}

func TestReindexPrunesShrunkTable(t *testing.T) {
	dir := t.TempDir()
	cfg := config.CorpusConfig{
		CPTPath: writeFile(t, dir, "cpt.csv", cptCSV),
		ICDPath: writeFile(t, dir, "icd.csv", icdCSV),
	}

	store := &recordingStore{}
	indexer := NewIndexer(cfg, store, nil)

	n, err := indexer.Reindex(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, n)

	// Shrink the CPT table to one row and reindex: the second row's
	// document must be deleted, not left behind to match queries.
	shrunk := "HCPCS/CPT Code,Short Descriptor,Effective Date\n99213,\"Office visit, established patient\",01/01/2024\n"
	writeFile(t, dir, "cpt.csv", shrunk)

	n, err = indexer.Reindex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"cpt-000002"}, store.deleted)
}

func TestReindexDoesNotPruneSkippedTable(t *testing.T) {
	dir := t.TempDir()
	cptPath := writeFile(t, dir, "cpt.csv", cptCSV)
	cfg := config.CorpusConfig{
		CPTPath: cptPath,
		ICDPath: writeFile(t, dir, "icd.csv", icdCSV),
	}

	store := &recordingStore{}
	indexer := NewIndexer(cfg, store, nil)

	_, err := indexer.Reindex(context.Background())
	require.NoError(t, err)

	// A table that fails to load keeps its documents; only loaded tables
	// are compared against the previous run.
	require.NoError(t, os.Remove(cptPath))
	_, err = indexer.Reindex(context.Background())
	require.NoError(t, err)
	assert.Empty(t, store.deleted)
}

func TestReindexPartialCorpus(t *testing.T) {
	dir := t.TempDir()
	cfg := config.CorpusConfig{
		CPTPath: filepath.Join(dir, "missing.csv"),
		ICDPath: writeFile(t, dir, "icd.csv", icdCSV),
	}

	store := &recordingStore{}
	indexer := NewIndexer(cfg, store, nil)

	n, err := indexer.Reindex(context.Background())
	require.NoError(t, err, "a missing table is tolerated")
	assert.Equal(t, 2, n)
}

func TestReindexEmptyCorpus(t *testing.T) {
	dir := t.TempDir()
	cfg := config.CorpusConfig{
		CPTPath: filepath.Join(dir, "a.csv"),
		ICDPath: filepath.Join(dir, "b.csv"),
	}

	indexer := NewIndexer(cfg, &recordingStore{}, nil)
	_, err := indexer.Reindex(context.Background())
	assert.ErrorIs(t, err, ErrEmptyCorpus)
}

func TestWatcherReindexesOnChange(t *testing.T) {
	dir := t.TempDir()
	cptPath := writeFile(t, dir, "cpt.csv", cptCSV)
	icdPath := writeFile(t, dir, "icd.csv", icdCSV)

	store := &recordingStore{}
	indexer := NewIndexer(config.CorpusConfig{CPTPath: cptPath, ICDPath: icdPath}, store, nil)

	watcher, err := NewWatcher(indexer, nil)
	require.NoError(t, err)
	watcher.debounce = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = watcher.Run(ctx)
	}()

	// Give the watcher a moment to register, then touch one table.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, dir, "cpt.csv", cptCSV)

	require.Eventually(t, func() bool {
		return store.count() >= 4
	}, 5*time.Second, 50*time.Millisecond, "watcher should reindex after a table changes")

	cancel()
	<-done
}
