package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FileRecord describes one upload attempt
type FileRecord struct {
	LocalPath  string    `json:"local_path"`
	Name       string    `json:"name"`
	Checksum   string    `json:"checksum,omitempty"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
	Error      string    `json:"error,omitempty"`
}

// Run is the report of one release publication
type Run struct {
	ID        string                `json:"id"`
	Release   string                `json:"release"`
	Projects  []string              `json:"projects"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
	Files     map[string]FileRecord `json:"files"` // key is uploaded name
	Deleted   []string              `json:"deleted,omitempty"`
}

// Manifest records what a build uploaded and deleted and writes it to a JSON
// file. It is safe for concurrent use by upload workers.
type Manifest struct {
	path string
	run  *Run
	mu   sync.RWMutex
}

// New creates a manifest that Save writes to path.
func New(path, release string, projects []string) *Manifest {
	now := time.Now()
	return &Manifest{
		path: path,
		run: &Run{
			ID:        uuid.NewString(),
			Release:   release,
			Projects:  projects,
			CreatedAt: now,
			UpdatedAt: now,
			Files:     make(map[string]FileRecord),
		},
	}
}

// AddFile records an upload attempt
func (m *Manifest) AddFile(rec FileRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.run.Files[rec.Name] = rec
	m.run.UpdatedAt = time.Now()
}

// AddDeleted records locally deleted files
func (m *Manifest) AddDeleted(paths ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.run.Deleted = append(m.run.Deleted, paths...)
	sort.Strings(m.run.Deleted)
	m.run.UpdatedAt = time.Now()
}

// Files returns the recorded uploads sorted by name
func (m *Manifest) Files() []FileRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	files := make([]FileRecord, 0, len(m.run.Files))
	for _, rec := range m.run.Files {
		files = append(files, rec)
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})
	return files
}

// Save writes the manifest to its file
func (m *Manifest) Save() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, err := json.MarshalIndent(m.run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.WriteFile(m.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// Load reads a manifest written by Save
func Load(path string) (*Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return &run, nil
}
