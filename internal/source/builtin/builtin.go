// Package builtin wires the bundled source implementations into a registry.
package builtin

import (
	"github.com/activity-collector/internal/models"
	"github.com/activity-collector/internal/source"
	"github.com/activity-collector/internal/source/browser"
	"github.com/activity-collector/internal/source/chatbot"
	"github.com/activity-collector/internal/source/filesystem"
	"github.com/activity-collector/internal/source/git"
)

// NewRegistry returns a registry holding every bundled source type
func NewRegistry() *source.Registry {
	r := source.NewRegistry()
	r.Register(models.SourceTypeGit, git.Factory)
	r.Register(models.SourceTypeBrowser, browser.Factory)
	r.Register(models.SourceTypeFilesystem, filesystem.Factory)
	r.Register(models.SourceTypeChatbot, chatbot.Factory)
	return r
}
