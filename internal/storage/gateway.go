package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"kmchat/internal/contextutil"
)

// Gateway is the single entry point for durable storage across the two
// tiers: one sqlite file per user (authoritative for session reconstruction)
// and one shared audit store (best-effort diagnostic data).
//
// Different users' stores are fully independent and may be used concurrently.
// Within one user's store, writes are serialized by a per-user mutex because
// delete-and-renumber reads then rewrites multiple rows.
type Gateway struct {
	userDBDir string
	audit     *AuditRepo
	auditDB   *sql.DB

	mu    sync.Mutex
	users map[string]*userHandle
}

type userHandle struct {
	db      *sql.DB
	turns   *TurnRepo
	uploads *UploadRepo
	writeMu sync.Mutex
}

// NewGateway opens the shared audit store and prepares lazy per-user stores
// under userDBDir.
func NewGateway(userDBDir, auditDBPath string) (*Gateway, error) {
	auditDB, err := New(auditDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit store: %w", err)
	}
	if err := MigrateAudit(auditDB); err != nil {
		_ = auditDB.Close()
		return nil, fmt.Errorf("failed to migrate audit store: %w", err)
	}

	return &Gateway{
		userDBDir: userDBDir,
		audit:     NewAuditRepo(auditDB),
		auditDB:   auditDB,
		users:     make(map[string]*userHandle),
	}, nil
}

// Close closes the audit store and every opened per-user store.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	var firstErr error
	for _, h := range g.users {
		if err := h.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	g.users = make(map[string]*userHandle)
	if err := g.auditDB.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// handleFor lazily opens and migrates the store for one user.
func (g *Gateway) handleFor(user string) (*userHandle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if h, ok := g.users[user]; ok {
		return h, nil
	}

	if err := os.MkdirAll(g.userDBDir, 0755); err != nil {
		return nil, &PersistenceError{Store: "user", Op: "open", Err: err}
	}
	db, err := New(filepath.Join(g.userDBDir, sanitizeUser(user)+".db"))
	if err != nil {
		return nil, &PersistenceError{Store: "user", Op: "open", Err: err}
	}
	if err := MigrateUser(db); err != nil {
		_ = db.Close()
		return nil, &PersistenceError{Store: "user", Op: "migrate", Err: err}
	}

	h := &userHandle{
		db:      db,
		turns:   NewTurnRepo(db),
		uploads: NewUploadRepo(db),
	}
	g.users[user] = h
	return h, nil
}

// sanitizeUser keeps user identities safe as filesystem names.
func sanitizeUser(user string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, user)
}

// SaveTurn writes one turn to both tiers. The per-user write is
// authoritative and its failure is returned; the audit write is independent
// and its failure is only logged.
func (g *Gateway) SaveTurn(ctx context.Context, user string, turn *TurnRecord, setup *WindowSetup) error {
	logger := contextutil.LoggerFromContext(ctx)

	h, err := g.handleFor(user)
	if err != nil {
		return err
	}

	h.writeMu.Lock()
	userErr := h.turns.Insert(ctx, turn, setup)
	h.writeMu.Unlock()

	if auditErr := g.audit.InsertTurn(ctx, user, turn, setup); auditErr != nil {
		logger.ErrorContext(ctx, "audit store write failed", "user", user, "error", auditErr)
	}

	if userErr != nil {
		return &PersistenceError{Store: "user", Op: "save turn", Err: userErr}
	}
	return nil
}

// SaveUploads persists the temp-name provenance mapping for one ingestion
// batch. Same dual-write policy as SaveTurn.
func (g *Gateway) SaveUploads(ctx context.Context, user, conversationID string, nameMap map[string]string) error {
	logger := contextutil.LoggerFromContext(ctx)

	h, err := g.handleFor(user)
	if err != nil {
		return err
	}

	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	for tempName, originalName := range nameMap {
		if err := h.uploads.Insert(ctx, conversationID, tempName, originalName); err != nil {
			return &PersistenceError{Store: "user", Op: "save upload", Err: err}
		}
		if auditErr := g.audit.InsertUpload(ctx, user, conversationID, tempName, originalName); auditErr != nil {
			logger.ErrorContext(ctx, "audit store write failed", "user", user, "error", auditErr)
		}
	}
	return nil
}

// WindowIndexes returns the distinct persisted window indexes for a user.
func (g *Gateway) WindowIndexes(ctx context.Context, user string) ([]int, error) {
	h, err := g.handleFor(user)
	if err != nil {
		return nil, err
	}
	return h.turns.WindowIndexes(ctx)
}

// WindowSetup returns the last-persisted scalar fields for one window.
func (g *Gateway) WindowSetup(ctx context.Context, user string, index int) (*WindowSetup, error) {
	h, err := g.handleFor(user)
	if err != nil {
		return nil, err
	}
	return h.turns.WindowSetup(ctx, index)
}

// History returns all turns for one window in insertion order.
func (g *Gateway) History(ctx context.Context, user string, index int) ([]TurnRecord, error) {
	h, err := g.handleFor(user)
	if err != nil {
		return nil, err
	}
	return h.turns.History(ctx, index)
}

// LastTitle returns the last persisted title for one window, or ErrNotFound.
func (g *Gateway) LastTitle(ctx context.Context, user string, index int) (string, error) {
	h, err := g.handleFor(user)
	if err != nil {
		return "", err
	}
	return h.turns.LastTitle(ctx, index)
}

// Uploads returns the provenance records for one conversation.
func (g *Gateway) Uploads(ctx context.Context, user, conversationID string) ([]UploadRecord, error) {
	h, err := g.handleFor(user)
	if err != nil {
		return nil, err
	}
	return h.uploads.ListByConversation(ctx, conversationID)
}

// DeleteAndRenumber removes one window's turns and shifts higher indexes
// down, transactionally within the user's store.
func (g *Gateway) DeleteAndRenumber(ctx context.Context, user string, index int) error {
	h, err := g.handleFor(user)
	if err != nil {
		return err
	}

	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	if err := h.turns.DeleteAndRenumber(ctx, index); err != nil {
		return &PersistenceError{Store: "user", Op: "delete window", Err: err}
	}
	return nil
}
