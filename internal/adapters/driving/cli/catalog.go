package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/vinhhap/airbyte-custom-connectors/internal/core/domain"
)

// maxCatalogLine bounds a single line of a JSONL catalog file.
const maxCatalogLine = 16 << 20

// catalogStream accepts both a discovered stream ({"name": ...}) and a
// configured stream ({"stream": {"name": ...}, "sync_mode": ...}).
type catalogStream struct {
	Name   string `json:"name"`
	Stream *struct {
		Name string `json:"name"`
	} `json:"stream"`
}

func (s catalogStream) name() string {
	if s.Stream != nil {
		return s.Stream.Name
	}
	return s.Name
}

type catalogBody struct {
	Streams []catalogStream `json:"streams"`
}

// catalogDocument is either a bare catalog or a CATALOG message.
type catalogDocument struct {
	Type    domain.MessageType `json:"type"`
	Catalog *catalogBody       `json:"catalog"`
	Streams []catalogStream    `json:"streams"`
}

func (d catalogDocument) catalog() (*catalogBody, bool) {
	if d.Type == domain.MessageTypeCatalog && d.Catalog != nil {
		return d.Catalog, true
	}
	if d.Streams != nil {
		return &catalogBody{Streams: d.Streams}, true
	}
	return nil, false
}

// loadCatalogStreams returns the stream names selected by a catalog file.
//
// The file may hold a configured catalog, a discovered catalog, or the JSONL
// output of discover. In JSONL the last CATALOG message wins.
func loadCatalogStreams(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	body, err := parseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}

	names := make([]string, 0, len(body.Streams))
	for i, s := range body.Streams {
		name := s.name()
		if name == "" {
			return nil, fmt.Errorf("catalog %s: stream %d has no name", path, i)
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("catalog %s: no streams selected", path)
	}
	return names, nil
}

func parseCatalog(data []byte) (*catalogBody, error) {
	var doc catalogDocument
	if err := json.Unmarshal(data, &doc); err == nil {
		if body, ok := doc.catalog(); ok {
			return body, nil
		}
		return nil, errors.New("missing streams")
	}

	var last *catalogBody
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), maxCatalogLine)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var msg catalogDocument
		if json.Unmarshal(line, &msg) != nil {
			continue
		}
		if msg.Type == domain.MessageTypeCatalog && msg.Catalog != nil {
			last = msg.Catalog
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if last == nil {
		return nil, errors.New("not a JSON catalog or JSONL containing a CATALOG message")
	}
	return last, nil
}
