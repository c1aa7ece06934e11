// Package itemsio imports and exports wheel item lists as plain text,
// JSON or YAML.
package itemsio

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/randomtoy/wheel-go/internal/domain"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var ErrUnknownFormat = errors.New("unknown item list format")

// maxImportBytes caps how much of an upload is read.
const maxImportBytes = 1 << 20

// Document is the exported shape for JSON and YAML.
type Document struct {
	Name  string   `json:"name,omitempty" yaml:"name,omitempty"`
	Items []string `json:"items" yaml:"items"`
}

// ParseFormat accepts a format name, a MIME type or a file name.
func ParseFormat(s string) (Format, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if ext := filepath.Ext(v); ext != "" && !strings.Contains(v, "/") {
		v = strings.TrimPrefix(ext, ".")
	}
	switch v {
	case "", "text", "txt", "text/plain":
		return FormatText, nil
	case "json", "application/json":
		return FormatJSON, nil
	case "yaml", "yml", "application/yaml", "application/x-yaml", "text/yaml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// ContentType is the MIME type used when serving an export.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatYAML:
		return "application/yaml"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Extension is the file extension used for download names.
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	default:
		return "txt"
	}
}

func Export(w io.Writer, f Format, doc Document) error {
	switch f {
	case FormatText:
		bw := bufio.NewWriter(w)
		for _, it := range doc.Items {
			if _, err := fmt.Fprintln(bw, it); err != nil {
				return fmt.Errorf("write text: %w", err)
			}
		}
		return bw.Flush()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

// Import reads an item list. JSON and YAML accept either a Document or a
// bare list of strings. Entries are normalized.
func Import(r io.Reader, f Format) (Document, error) {
	raw, err := io.ReadAll(io.LimitReader(r, maxImportBytes))
	if err != nil {
		return Document{}, fmt.Errorf("read import: %w", err)
	}

	var doc Document
	switch f {
	case FormatText:
		sc := bufio.NewScanner(bytes.NewReader(raw))
		for sc.Scan() {
			doc.Items = append(doc.Items, sc.Text())
		}
		if err := sc.Err(); err != nil {
			return Document{}, fmt.Errorf("scan text: %w", err)
		}
	case FormatJSON:
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			err = json.Unmarshal(trimmed, &doc.Items)
		} else {
			err = json.Unmarshal(trimmed, &doc)
		}
		if err != nil {
			return Document{}, fmt.Errorf("%w: decode json: %w", domain.ErrInvalidItems, err)
		}
	case FormatYAML:
		var node yaml.Node
		if err := yaml.Unmarshal(raw, &node); err != nil {
			return Document{}, fmt.Errorf("%w: decode yaml: %w", domain.ErrInvalidItems, err)
		}
		switch {
		case len(node.Content) == 0:
		case node.Content[0].Kind == yaml.SequenceNode:
			err = node.Content[0].Decode(&doc.Items)
		default:
			err = node.Content[0].Decode(&doc)
		}
		if err != nil {
			return Document{}, fmt.Errorf("%w: decode yaml: %w", domain.ErrInvalidItems, err)
		}
	default:
		return Document{}, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}

	doc.Items = domain.NormalizeItems(doc.Items)
	return doc, nil
}
