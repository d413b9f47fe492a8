package models

import "time"

// CommitStats summarizes what a commit changed
type CommitStats struct {
	FilesChanged int      `json:"filesChanged" yaml:"filesChanged"`
	Insertions   int      `json:"insertions" yaml:"insertions"`
	Deletions    int      `json:"deletions" yaml:"deletions"`
	Files        []string `json:"files" yaml:"files"`
}

// GitCommit is a single commit found in a local repository
type GitCommit struct {
	Hash        string      `json:"hash" yaml:"hash"`
	Repository  string      `json:"repository" yaml:"repository"`
	Branch      string      `json:"branch,omitempty" yaml:"branch,omitempty"`
	AuthorName  string      `json:"authorName" yaml:"authorName"`
	AuthorEmail string      `json:"authorEmail" yaml:"authorEmail"`
	Date        time.Time   `json:"date" yaml:"date"`
	Message     string      `json:"message" yaml:"message"`
	Stats       CommitStats `json:"stats" yaml:"stats"`
}

// BrowserHistoryItem is one page visit
type BrowserHistoryItem struct {
	URL        string    `json:"url" yaml:"url"`
	Title      string    `json:"title" yaml:"title"`
	VisitTime  time.Time `json:"visitTime" yaml:"visitTime"`
	VisitCount int       `json:"visitCount" yaml:"visitCount"`
	Browser    string    `json:"browser" yaml:"browser"`
	Profile    string    `json:"profile,omitempty" yaml:"profile,omitempty"`
}

// FileEventModify is the only event type a periodic scanner can observe
const FileEventModify = "modify"

// FileChangeItem is a recently modified file
type FileChangeItem struct {
	FilePath        string    `json:"filePath" yaml:"filePath"`
	FileName        string    `json:"fileName" yaml:"fileName"`
	EventType       string    `json:"eventType" yaml:"eventType"`
	ModifiedAt      time.Time `json:"modifiedAt" yaml:"modifiedAt"`
	FileSize        int64     `json:"fileSize" yaml:"fileSize"`
	Extension       string    `json:"extension" yaml:"extension"`
	MimeType        string    `json:"mimeType,omitempty" yaml:"mimeType,omitempty"`
	ContentPreview  string    `json:"contentPreview,omitempty" yaml:"contentPreview,omitempty"`
	ParentDirectory string    `json:"parentDirectory" yaml:"parentDirectory"`
}

// ChatSession describes one conversation in an AI chat client
type ChatSession struct {
	ID           string    `json:"id" yaml:"id"`
	Title        string    `json:"title" yaml:"title"`
	Model        string    `json:"model,omitempty" yaml:"model,omitempty"`
	CreatedAt    time.Time `json:"createdAt" yaml:"createdAt"`
	LastReplyAt  time.Time `json:"lastReplyAt" yaml:"lastReplyAt"`
	MessageCount int       `json:"messageCount" yaml:"messageCount"`
}

// ChatMessage is one message of a ChatSession
type ChatMessage struct {
	ID               string    `json:"id" yaml:"id"`
	ChatID           string    `json:"chatId" yaml:"chatId"`
	Role             string    `json:"role" yaml:"role"`
	Content          string    `json:"content" yaml:"content"`
	Model            string    `json:"model,omitempty" yaml:"model,omitempty"`
	CreatedAt        time.Time `json:"createdAt" yaml:"createdAt"`
	Files            []string  `json:"files,omitempty" yaml:"files,omitempty"`
	ReasoningContent string    `json:"reasoningContent,omitempty" yaml:"reasoningContent,omitempty"`
}

// ChatHistoryItem is a session together with its messages
type ChatHistoryItem struct {
	Client   string        `json:"client" yaml:"client"`
	Session  ChatSession   `json:"session" yaml:"session"`
	Messages []ChatMessage `json:"messages" yaml:"messages"`
}
