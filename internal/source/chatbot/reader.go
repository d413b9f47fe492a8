package chatbot

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"gorm.io/gorm"

	"github.com/activity-collector/internal/models"
	"github.com/activity-collector/internal/storage/sqlite"
	"github.com/activity-collector/pkg/logger"
)

// ClientChatWise is the only chat client currently understood
const ClientChatWise = "chatwise"

// DefaultDBPath returns where client keeps its database on goos
func DefaultDBPath(client, home, goos string) string {
	if client != ClientChatWise {
		return ""
	}
	switch goos {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "app.chatwise", "app.db")
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", "app.chatwise", "app.db")
	default:
		return filepath.Join(home, ".local", "share", "app.chatwise", "app.db")
	}
}

// readOptions control which parts of a conversation are emitted
type readOptions struct {
	IncludeContent bool
	MaxMessages    int
	ExcludeModels  []string
}

// excludedModel matches model against the exclusion substrings, ignoring case
func (o readOptions) excludedModel(model string) bool {
	if model == "" {
		return false
	}
	lower := strings.ToLower(model)
	for _, ex := range o.ExcludeModels {
		ex = strings.ToLower(strings.TrimSpace(ex))
		if ex != "" && strings.Contains(lower, ex) {
			return true
		}
	}
	return false
}

type sessionRow struct {
	ID          string         `gorm:"column:id"`
	Title       sql.NullString `gorm:"column:title"`
	Model       sql.NullString `gorm:"column:model"`
	CreatedAt   int64          `gorm:"column:created_at"`
	LastReplyAt int64          `gorm:"column:last_reply_at"`
}

type messageRow struct {
	ID               string         `gorm:"column:id"`
	ChatID           string         `gorm:"column:chat_id"`
	Role             string         `gorm:"column:role"`
	Content          sql.NullString `gorm:"column:content"`
	Model            sql.NullString `gorm:"column:model"`
	CreatedAt        int64          `gorm:"column:created_at"`
	Files            sql.NullString `gorm:"column:files"`
	ReasoningContent sql.NullString `gorm:"column:reasoning_content"`
}

// ChatWise stores millisecond epochs.
const sessionQuery = `
SELECT id, title, model,
       COALESCE(createdAt, 0) AS created_at,
       COALESCE(lastReplyAt, updatedAt, createdAt, 0) AS last_reply_at
FROM chat
WHERE COALESCE(lastReplyAt, updatedAt, createdAt, 0) > ?
  AND COALESCE(lastReplyAt, updatedAt, createdAt, 0) <= ?
ORDER BY last_reply_at DESC`

const messageQuery = `
SELECT id, chatId AS chat_id, role, content, model,
       COALESCE(createdAt, 0) AS created_at, files, reasoningContent AS reasoning_content
FROM message
WHERE chatId = ?
ORDER BY createdAt ASC`

// readChatWise reads the sessions active inside window from a copy of the
// database at path. A session whose messages cannot be read is skipped.
func readChatWise(ctx context.Context, path string, window models.Window, opts readOptions, log *logger.Logger) ([]models.ChatHistoryItem, error) {
	var items []models.ChatHistoryItem

	err := sqlite.WithSnapshot(ctx, path, func(db *gorm.DB) error {
		var sessions []sessionRow
		if err := db.Raw(sessionQuery, window.Since.UnixMilli(), window.Until.UnixMilli()).Scan(&sessions).Error; err != nil {
			return fmt.Errorf("failed to query chats: %w", err)
		}

		for _, s := range sessions {
			if opts.excludedModel(s.Model.String) {
				log.Debug().Str("chat_id", s.ID).Str("model", s.Model.String).Msg("Skipping chat with excluded model")
				continue
			}

			messages, err := readMessages(db, s.ID, opts)
			if err != nil {
				log.Warn().Err(err).Str("operation", "read").Str("chat_id", s.ID).Msg("Failed to read chat messages, skipping")
				continue
			}

			count := len(messages)
			if opts.MaxMessages > 0 && len(messages) > opts.MaxMessages {
				messages = messages[len(messages)-opts.MaxMessages:]
			}

			items = append(items, models.ChatHistoryItem{
				Client: ClientChatWise,
				Session: models.ChatSession{
					ID:           s.ID,
					Title:        s.Title.String,
					Model:        s.Model.String,
					CreatedAt:    time.UnixMilli(s.CreatedAt).UTC(),
					LastReplyAt:  time.UnixMilli(s.LastReplyAt).UTC(),
					MessageCount: count,
				},
				Messages: messages,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// readMessages returns the chat's messages oldest first, with excluded models
// removed and content blanked when content is not wanted
func readMessages(db *gorm.DB, chatID string, opts readOptions) ([]models.ChatMessage, error) {
	var rows []messageRow
	if err := db.Raw(messageQuery, chatID).Scan(&rows).Error; err != nil {
		return nil, err
	}

	messages := make([]models.ChatMessage, 0, len(rows))
	for _, r := range rows {
		if opts.excludedModel(r.Model.String) {
			continue
		}
		msg := models.ChatMessage{
			ID:               r.ID,
			ChatID:           r.ChatID,
			Role:             r.Role,
			Content:          r.Content.String,
			Model:            r.Model.String,
			CreatedAt:        time.UnixMilli(r.CreatedAt).UTC(),
			Files:            parseFiles(r.Files.String),
			ReasoningContent: r.ReasoningContent.String,
		}
		if !opts.IncludeContent {
			msg.Content = ""
			msg.ReasoningContent = ""
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// parseFiles accepts either a JSON array of strings or of objects carrying a
// name or path
func parseFiles(raw string) []string {
	if raw == "" || !gjson.Valid(raw) {
		return nil
	}

	var files []string
	gjson.Parse(raw).ForEach(func(_, value gjson.Result) bool {
		switch {
		case value.Type == gjson.String:
			files = append(files, value.String())
		case value.Get("name").Exists():
			files = append(files, value.Get("name").String())
		case value.Get("path").Exists():
			files = append(files, value.Get("path").String())
		}
		return true
	})
	return files
}
