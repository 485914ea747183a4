package file

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driven"
)

// Ensure ListLoader implements the interface.
var _ driven.ListLoader = (*ListLoader)(nil)

// ListLoader reads YAML word lists from disk.
//
// Alias files are either a plain mapping or have the mapping under "aliases":
//
//	aliases:
//	  S.F.: San Francisco
//	  NYC: New York
//
// Stopword files are either a plain sequence or have it under "stopwords".
type ListLoader struct{}

// NewListLoader creates a list loader.
func NewListLoader() *ListLoader {
	return &ListLoader{}
}

// Aliases reads a geocode alias table.
func (l *ListLoader) Aliases(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading aliases: %w", err)
	}

	doc, err := decodeNode(data)
	if err != nil {
		return nil, fmt.Errorf("parsing aliases %s: %w", path, err)
	}
	node := unwrap(doc, "aliases")
	if node == nil {
		return map[string]string{}, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parsing aliases %s: line %d: expected a mapping", path, node.Line)
	}

	aliases := make(map[string]string, len(node.Content)/2)
	if err := node.Decode(&aliases); err != nil {
		return nil, fmt.Errorf("parsing aliases %s: %w", path, err)
	}
	return aliases, nil
}

// Stopwords reads a stopword list. Words are trimmed and lowercased.
func (l *ListLoader) Stopwords(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading stopwords: %w", err)
	}

	doc, err := decodeNode(data)
	if err != nil {
		return nil, fmt.Errorf("parsing stopwords %s: %w", path, err)
	}
	node := unwrap(doc, "stopwords")
	if node == nil {
		return nil, nil
	}
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("parsing stopwords %s: line %d: expected a list", path, node.Line)
	}

	var words []string
	if err := node.Decode(&words); err != nil {
		return nil, fmt.Errorf("parsing stopwords %s: %w", path, err)
	}
	out := words[:0]
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			out = append(out, w)
		}
	}
	return out, nil
}

// decodeNode parses data into a node tree. An empty file is an empty document.
func decodeNode(data []byte) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &doc, nil
}

// unwrap returns the document's root node, or the value under key when the
// root is a mapping holding only that key. A nil return means an empty document.
func unwrap(doc *yaml.Node, key string) *yaml.Node {
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil
	}
	root := doc.Content[0]
	if root.Kind == yaml.MappingNode && len(root.Content) == 2 && root.Content[0].Value == key {
		return root.Content[1]
	}
	return root
}
