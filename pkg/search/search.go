// Package search maintains a full-text index over dream transcripts so a
// user can find an old dream by what they remember of it.
package search

import (
	"fmt"
	"os"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
)

// dreamDoc is the indexed shape of a dream.
type dreamDoc struct {
	UserID        string `json:"user_id"`
	Transcription string `json:"transcription"`
	Prompt        string `json:"prompt"`
}

// Engine wraps the bleve index.
type Engine struct {
	index bleve.Index
}

// NewEngine opens the index at path, creating it when absent. An empty
// path builds an in-memory index, which the tests use.
func NewEngine(path string) (*Engine, error) {
	mapping := buildMapping()

	if path == "" {
		idx, err := bleve.NewMemOnly(mapping)
		if err != nil {
			return nil, fmt.Errorf("creating in-memory index: %w", err)
		}
		return &Engine{index: idx}, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		idx, err := bleve.New(path, mapping)
		if err != nil {
			return nil, fmt.Errorf("creating index at %s: %w", path, err)
		}
		return &Engine{index: idx}, nil
	}

	idx, err := bleve.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening index at %s: %w", path, err)
	}
	return &Engine{index: idx}, nil
}

func buildMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	userField := bleve.NewTextFieldMapping()
	userField.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("user_id", userField)
	docMapping.AddFieldMappingsAt("transcription", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("prompt", bleve.NewTextFieldMapping())

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// IndexDream adds or replaces a dream in the index.
func (e *Engine) IndexDream(dreamID, userID uint, transcription, prompt string) error {
	return e.index.Index(strconv.FormatUint(uint64(dreamID), 10), dreamDoc{
		UserID:        strconv.FormatUint(uint64(userID), 10),
		Transcription: transcription,
		Prompt:        prompt,
	})
}

// Delete removes a dream from the index.
func (e *Engine) Delete(dreamID uint) error {
	return e.index.Delete(strconv.FormatUint(uint64(dreamID), 10))
}

// Search returns the ids of the user's dreams matching the query, best
// first.
func (e *Engine) Search(userID uint, q string, limit int) ([]uint, error) {
	if limit <= 0 {
		limit = 20
	}

	owner := bleve.NewTermQuery(strconv.FormatUint(uint64(userID), 10))
	owner.SetField("user_id")
	match := bleve.NewMatchQuery(q)

	req := bleve.NewSearchRequestOptions(bleve.NewConjunctionQuery(owner, match), limit, 0, false)
	res, err := e.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("searching dreams: %w", err)
	}

	ids := make([]uint, 0, len(res.Hits))
	for _, hit := range res.Hits {
		id, err := strconv.ParseUint(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

// Close releases the index.
func (e *Engine) Close() error {
	return e.index.Close()
}
