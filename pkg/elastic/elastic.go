package elastic

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/rnnvis/rnnvis/pkg/modelconfig"

	es8 "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"
)

const DefaultIndex = "rnnvis_configs"

var DebugLog func(string, ...interface{})

type Config struct {
	URL      string
	Username string
	Password string
	Index    string
}

type Client struct {
	es    *es8.Client
	index string
}

func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("elasticsearch URL is required")
	}

	es, err := es8.NewClient(es8.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	res, err := es.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to elasticsearch: %w", err)
	}
	res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("failed to connect to elasticsearch: %s", res.Status())
	}

	return &Client{es: es, index: indexName(cfg.Index)}, nil
}

func indexName(index string) string {
	if strings.TrimSpace(index) == "" {
		return DefaultIndex
	}
	return index
}

// DocumentID keys a summary by model name and content hash, so re-exporting
// an unchanged config overwrites the same document.
func DocumentID(s modelconfig.Summary) string {
	return s.Name + "-" + s.Hash
}

// IndexSummaries bulk-indexes config summaries. It fails if any document
// was rejected.
func (c *Client) IndexSummaries(ctx context.Context, summaries []modelconfig.Summary) error {
	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:     c.es,
		Index:      c.index,
		NumWorkers: 4,
	})
	if err != nil {
		return fmt.Errorf("failed to create bulk indexer: %w", err)
	}

	var failed atomic.Int64
	for _, s := range summaries {
		body, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("failed to encode summary %s: %w", s.Name, err)
		}

		item := esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: DocumentID(s),
			Body:       bytes.NewReader(body),
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, resp esutil.BulkIndexerResponseItem, err error) {
				failed.Add(1)
				if DebugLog != nil {
					if err != nil {
						DebugLog("indexing %s failed: %v", item.DocumentID, err)
					} else {
						DebugLog("indexing %s failed: %s: %s", item.DocumentID, resp.Error.Type, resp.Error.Reason)
					}
				}
			},
		}
		if err := bi.Add(ctx, item); err != nil {
			return fmt.Errorf("bulk add failed: %w", err)
		}
	}

	if err := bi.Close(ctx); err != nil {
		return fmt.Errorf("bulk indexer close failed: %w", err)
	}

	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d of %d summaries failed to index", n, len(summaries))
	}
	return nil
}

// ReadSummaries decodes a JSON lines export. Blank lines and lines starting
// with '#' are skipped.
func ReadSummaries(r io.Reader) ([]modelconfig.Summary, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 8*1024*1024)

	var out []modelconfig.Summary
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var s modelconfig.Summary
		if err := json.Unmarshal([]byte(line), &s); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if s.Name == "" || s.Hash == "" {
			return nil, fmt.Errorf("line %d: summary needs name and hash", lineNo)
		}
		out = append(out, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %w", err)
	}

	return out, nil
}
