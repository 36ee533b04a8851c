package embedding

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/thebtf/issuecluster/internal/dataset"
)

// Cache holds the embedding set of the most recent (dataset, selection)
// pair. Embedding is the one slow step of the pipeline, so re-clustering
// the same data at a new threshold must never re-invoke the model.
//
// The cache is a single slot keyed by the dataset content fingerprint plus
// the canonical selection. A failed embedding call leaves the previous
// entry untouched. Concurrent requests for the same key share one model
// call; requests for different keys race and the last writer wins, which
// is an accepted limitation of the single-slot design.
type Cache struct {
	model Model

	mu   sync.Mutex
	key  string
	vecs [][]float32

	group singleflight.Group

	// dir, when set, spills each computed embedding set to one file per
	// dataset so a worker restart does not redo the model call.
	dir string
}

// NewCache creates a cache in front of the given model. spillDir may be
// empty to keep embeddings in memory only.
func NewCache(model Model, spillDir string) *Cache {
	return &Cache{model: model, dir: spillDir}
}

// Key derives the cache key for a dataset and selection.
func Key(ds *dataset.Dataset, sel dataset.Selection) string {
	return ds.Fingerprint() + "|" + sel.Key()
}

// Embeddings returns the embedding set for the dataset and selection,
// computing it with one model call on a key miss. embeddings[i] always
// corresponds to documents[i]; the mapping is purely positional.
func (c *Cache) Embeddings(ctx context.Context, ds *dataset.Dataset, sel dataset.Selection) ([][]float32, error) {
	key := Key(ds, sel)

	c.mu.Lock()
	if c.key == key {
		vecs := c.vecs
		c.mu.Unlock()
		return vecs, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if vecs, ok := c.loadSpill(key); ok {
			c.store(key, vecs)
			return vecs, nil
		}

		docs := dataset.BuildDocuments(ds, sel)
		log.Info().
			Int("documents", len(docs)).
			Str("model", c.model.Name()).
			Msg("Computing embeddings, this might take a while")

		vecs, err := c.model.EmbedBatch(ctx, docs)
		if err != nil {
			return nil, err
		}
		if len(vecs) != len(docs) {
			return nil, fmt.Errorf("embedding count %d does not match document count %d", len(vecs), len(docs))
		}

		c.store(key, vecs)
		c.writeSpill(key, vecs)
		return vecs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([][]float32), nil
}

// store replaces the cache slot.
func (c *Cache) store(key string, vecs [][]float32) {
	c.mu.Lock()
	c.key = key
	c.vecs = vecs
	c.mu.Unlock()
}

// spillEntry is the on-disk cache file payload.
type spillEntry struct {
	Key     string      `json:"key"`
	Model   string      `json:"model"`
	Vectors [][]float32 `json:"vectors"`
}

// spillPath places one cache file per dataset fingerprint. A new upload of
// the same file lands on the same path and overwrites the old entry.
func (c *Cache) spillPath(key string) string {
	if len(key) < 16 {
		return filepath.Join(c.dir, "embeddings-"+key+".json.zst")
	}
	return filepath.Join(c.dir, "embeddings-"+key[:16]+".json.zst")
}

func (c *Cache) loadSpill(key string) ([][]float32, bool) {
	if c.dir == "" {
		return nil, false
	}
	f, err := os.Open(c.spillPath(key))
	if err != nil {
		return nil, false
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, false
	}
	defer zr.Close()

	var entry spillEntry
	if err := json.NewDecoder(zr).Decode(&entry); err != nil {
		log.Warn().Err(err).Msg("Discarding unreadable embedding cache file")
		return nil, false
	}
	// The truncated filename can collide; the full key inside cannot.
	if entry.Key != key || entry.Model != c.model.Name() {
		return nil, false
	}
	return entry.Vectors, true
}

func (c *Cache) writeSpill(key string, vecs [][]float32) {
	if c.dir == "" {
		return
	}
	if err := os.MkdirAll(c.dir, 0o750); err != nil {
		log.Warn().Err(err).Msg("Failed to create embedding cache dir")
		return
	}

	path := c.spillPath(key)
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to write embedding cache file")
		return
	}

	zw, err := zstd.NewWriter(f)
	if err == nil {
		err = json.NewEncoder(zw).Encode(spillEntry{Key: key, Model: c.model.Name(), Vectors: vecs})
		if cerr := zw.Close(); err == nil {
			err = cerr
		}
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp, path)
	}
	if err != nil {
		os.Remove(tmp)
		log.Warn().Err(err).Str("path", path).Msg("Failed to write embedding cache file")
	}
}
