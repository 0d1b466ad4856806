// ABOUTME: Markdown-based local history of successfully posted tweets.
// ABOUTME: Stores one file per post with YAML frontmatter, listed most recent first.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/2389-research/tern/internal/models"
)

// HistoryStore defines operations for the local post history.
type HistoryStore interface {
	// Append persists a record of a posted tweet.
	Append(rec *models.PostRecord) error

	// List returns up to limit records, most recent first.
	List(limit int) ([]*models.PostRecord, error)

	// Close releases any resources held by the store.
	Close() error
}

// HistoryMDStore stores post records as markdown files in a data directory.
type HistoryMDStore struct {
	dataDir string
}

// historyFrontmatter is the YAML frontmatter for post record files.
type historyFrontmatter struct {
	ID        string `yaml:"id"`
	TweetID   string `yaml:"tweet_id"`
	URL       string `yaml:"url,omitempty"`
	UserID    string `yaml:"user_id,omitempty"`
	ServerID  string `yaml:"server_id,omitempty"`
	ReplyToID string `yaml:"reply_to_id,omitempty"`
	CreatedAt string `yaml:"created_at"`
}

// NewHistoryMDStore creates a history store rooted at dataDir.
func NewHistoryMDStore(dataDir string) (*HistoryMDStore, error) {
	return &HistoryMDStore{dataDir: dataDir}, nil
}

// Append persists a post record to disk.
func (s *HistoryMDStore) Append(rec *models.PostRecord) error {
	dateDir := rec.CreatedAt.Format("2006-01-02")
	timeStr := rec.CreatedAt.Format("15-04-05-000000")
	shortID := rec.ID.String()[:8]
	dir := filepath.Join(s.dataDir, "posts", dateDir)
	path := filepath.Join(dir, timeStr+"-"+shortID+".md")

	fm := historyFrontmatter{
		ID:        rec.ID.String(),
		TweetID:   rec.TweetID,
		URL:       rec.URL,
		UserID:    rec.UserID,
		ServerID:  rec.ServerID,
		ReplyToID: rec.ReplyToID,
		CreatedAt: rec.CreatedAt.Format(time.RFC3339),
	}

	content, err := renderFrontmatter(fm, rec.Text+"\n")
	if err != nil {
		return fmt.Errorf("failed to render post record: %w", err)
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create history dir: %w", err)
	}

	// Write to a temp file first so readers never see a partial record.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write post record: %w", err)
	}
	return os.Rename(tmp, path)
}

// List returns up to limit records, most recent first.
func (s *HistoryMDStore) List(limit int) ([]*models.PostRecord, error) {
	postsDir := filepath.Join(s.dataDir, "posts")
	if _, err := os.Stat(postsDir); os.IsNotExist(err) {
		return nil, nil
	}

	dateDirs, err := os.ReadDir(postsDir)
	if err != nil {
		return nil, err
	}

	var all []*models.PostRecord
	for _, dateDir := range dateDirs {
		if !dateDir.IsDir() {
			continue
		}
		dirPath := filepath.Join(postsDir, dateDir.Name())
		files, err := os.ReadDir(dirPath)
		if err != nil {
			continue
		}
		for _, file := range files {
			if file.IsDir() || !strings.HasSuffix(file.Name(), ".md") {
				continue
			}
			data, err := os.ReadFile(filepath.Join(dirPath, file.Name()))
			if err != nil {
				continue
			}
			rec, err := parsePostRecord(string(data))
			if err != nil {
				continue
			}
			all = append(all, rec)
		}
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if limit <= 0 {
		limit = 10
	}
	if limit > len(all) {
		limit = len(all)
	}
	return all[:limit], nil
}

// Close releases any resources held by the store.
func (s *HistoryMDStore) Close() error {
	return nil
}

// renderFrontmatter produces a markdown document with YAML frontmatter.
func renderFrontmatter(fm interface{}, body string) (string, error) {
	data, err := yaml.Marshal(fm)
	if err != nil {
		return "", err
	}
	return "---\n" + string(data) + "---\n\n" + body, nil
}

// parseFrontmatter splits a markdown document into frontmatter YAML and body.
func parseFrontmatter(content string) (string, string) {
	if !strings.HasPrefix(content, "---\n") {
		return "", content
	}
	rest := content[len("---\n"):]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return "", content
	}
	yamlStr := rest[:end+1]
	body := rest[end+len("\n---"):]
	body = strings.TrimPrefix(body, "\n")
	body = strings.TrimPrefix(body, "\n")
	return yamlStr, body
}

// parsePostRecord parses a markdown file into a PostRecord.
func parsePostRecord(content string) (*models.PostRecord, error) {
	yamlStr, body := parseFrontmatter(content)
	if yamlStr == "" {
		return nil, fmt.Errorf("no frontmatter found")
	}

	var fm historyFrontmatter
	if err := yaml.Unmarshal([]byte(yamlStr), &fm); err != nil {
		return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
	}

	id, err := uuid.Parse(fm.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid UUID: %w", err)
	}

	createdAt, err := time.Parse(time.RFC3339, fm.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid date: %w", err)
	}

	return &models.PostRecord{
		ID:        id,
		TweetID:   fm.TweetID,
		URL:       fm.URL,
		UserID:    fm.UserID,
		ServerID:  fm.ServerID,
		Text:      strings.TrimSpace(body),
		ReplyToID: fm.ReplyToID,
		CreatedAt: createdAt,
	}, nil
}
