package tmpstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Store is a filesystem blob store scoped by user and conversation. The
// indexer stages uploads here between ingestion and extraction; blobs are
// addressed by name only, never by caller-supplied paths.
type Store struct {
	root string
}

// New creates a store rooted at the given directory.
func New(root string) *Store {
	return &Store{root: root}
}

// Write stages a blob under the conversation's area and returns its path.
func (s *Store) Write(user, conversationID, name string, content []byte) (string, error) {
	dir, err := s.dir(user, conversationID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create temp area: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write blob %s: %w", name, err)
	}
	return path, nil
}

// Read returns a staged blob's content.
func (s *Store) Read(user, conversationID, name string) ([]byte, error) {
	dir, err := s.dir(user, conversationID)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", name, err)
	}
	return content, nil
}

// Remove deletes one staged blob.
func (s *Store) Remove(user, conversationID, name string) error {
	dir, err := s.dir(user, conversationID)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(dir, name)); err != nil {
		return fmt.Errorf("failed to remove blob %s: %w", name, err)
	}
	return nil
}

// List returns the names of all staged blobs in the conversation's area,
// sorted for deterministic processing order. A missing area lists as empty.
func (s *Store) List(user, conversationID string) ([]string, error) {
	dir, err := s.dir(user, conversationID)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list temp area: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Purge removes the conversation's entire temp area.
func (s *Store) Purge(user, conversationID string) error {
	dir, err := s.dir(user, conversationID)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to purge temp area: %w", err)
	}
	return nil
}

// dir resolves the conversation's area, rejecting path traversal in either
// scope component.
func (s *Store) dir(user, conversationID string) (string, error) {
	for _, part := range []string{user, conversationID} {
		if part == "" || strings.ContainsAny(part, `/\`) || strings.Contains(part, "..") {
			return "", fmt.Errorf("invalid temp store scope %q", part)
		}
	}
	return filepath.Join(s.root, user, conversationID), nil
}
