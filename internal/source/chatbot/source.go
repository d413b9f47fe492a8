package chatbot

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/activity-collector/internal/config"
	"github.com/activity-collector/internal/models"
	"github.com/activity-collector/internal/source"
	"github.com/activity-collector/pkg/logger"
)

// Source implements source.Source for a local AI chat client
type Source struct {
	cfg    config.ChatbotConfig
	dbPath string
	now    func() time.Time
	log    *logger.Logger
}

// New creates a chatbot source. An empty db_path resolves to the client's
// default location.
func New(cfg config.ChatbotConfig, log *logger.Logger) *Source {
	path := cfg.DBPath
	if path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			path = DefaultDBPath(cfg.Client, home, runtime.GOOS)
		}
	}

	return &Source{
		cfg:    cfg,
		dbPath: path,
		now:    time.Now,
		log:    log.WithSource(string(models.SourceTypeChatbot), cfg.Client),
	}
}

// Factory adapts New to source.Factory
func Factory(cfg config.SourcesConfig, log *logger.Logger) source.Source {
	return New(cfg.Chatbot, log)
}

// Type returns "chatbot"
func (s *Source) Type() models.SourceType {
	return models.SourceTypeChatbot
}

// Validate checks the client is supported and its database exists
func (s *Source) Validate(_ context.Context) error {
	if s.cfg.Client != ClientChatWise {
		return models.NewSourceError(models.SourceTypeChatbot, "validate",
			fmt.Errorf("unsupported chat client %q", s.cfg.Client))
	}
	if s.dbPath == "" {
		return models.NewSourceError(models.SourceTypeChatbot, "validate", fmt.Errorf("no database path for %s", s.cfg.Client))
	}
	info, err := os.Stat(s.dbPath)
	if err != nil {
		return models.NewSourceError(models.SourceTypeChatbot, "validate", fmt.Errorf("chat database not found: %w", err))
	}
	if info.IsDir() {
		return models.NewSourceError(models.SourceTypeChatbot, "validate", fmt.Errorf("%s is a directory", s.dbPath))
	}

	s.log.Info().Str("db_path", s.dbPath).Msg("Chatbot source validated")
	return nil
}

// Collect reads the conversations active inside the window
func (s *Source) Collect(ctx context.Context) *models.CollectionResult {
	now := s.now()
	window := models.NewWindow(now, s.cfg.SinceDays)

	chats, err := readChatWise(ctx, s.dbPath, window, readOptions{
		IncludeContent: s.cfg.IncludeContent,
		MaxMessages:    s.cfg.MaxMessagesPerChat,
		ExcludeModels:  s.cfg.ExcludeModels,
	}, s.log)
	if err != nil {
		s.log.Error().Err(err).Str("operation", "read").Str("db_path", s.dbPath).Msg("Failed to read chat history")
		return models.NewFailureResult(models.SourceTypeChatbot, err, now)
	}

	items := make([]models.CollectedItem, 0, len(chats))
	messages := 0
	for _, chat := range chats {
		messages += len(chat.Messages)
		items = append(items, models.CollectedItem{
			SourceType: models.SourceTypeChatbot,
			Timestamp:  chat.Session.LastReplyAt,
			Data:       chat,
		})
	}

	s.log.Info().
		Int("chats", len(items)).
		Int("messages", messages).
		Msg("Collected chat history")

	return models.NewSuccessResult(models.SourceTypeChatbot, items, now)
}

// Ensure Source implements source.Source
var _ source.Source = (*Source)(nil)
