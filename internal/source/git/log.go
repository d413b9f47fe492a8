package git

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// logFormat emits hash, author name, author email, author epoch seconds and
// the raw body, each terminated by NUL, with a second NUL closing the record.
// Commit messages cannot contain NUL, so arbitrary message text cannot break
// the framing.
const logFormat = "--pretty=format:%H%x00%an%x00%ae%x00%at%x00%B%x00%x00"

// rawCommit is one record of the log output before stats are attached
type rawCommit struct {
	Hash        string
	AuthorName  string
	AuthorEmail string
	Date        time.Time
	Message     string
}

// logArgs builds the git log invocation for a repository
func logArgs(since time.Time, author string) []string {
	args := []string{
		"log",
		logFormat,
		"--since=" + since.Format(time.RFC3339),
	}
	if author != "" {
		args = append(args, "--author="+author)
	}
	return args
}

// parseLog decodes the output of logFormat. Malformed trailing records are dropped.
func parseLog(data []byte) ([]rawCommit, error) {
	var commits []rawCommit

	for {
		// format: separates records with a newline
		data = bytes.TrimLeft(data, "\r\n")
		if len(data) == 0 {
			break
		}

		var fields [4]string
		for i := range fields {
			idx := bytes.IndexByte(data, 0)
			if idx < 0 {
				return commits, fmt.Errorf("truncated log record after %d commits", len(commits))
			}
			fields[i] = string(data[:idx])
			data = data[idx+1:]
		}

		var body []byte
		end := bytes.Index(data, []byte{0, 0})
		if end < 0 {
			body = data
			data = nil
		} else {
			body = data[:end]
			data = data[end+2:]
		}

		secs, err := strconv.ParseInt(strings.TrimSpace(fields[3]), 10, 64)
		if err != nil {
			return commits, fmt.Errorf("invalid timestamp %q for commit %s: %w", fields[3], fields[0], err)
		}

		commits = append(commits, rawCommit{
			Hash:        strings.TrimSpace(fields[0]),
			AuthorName:  fields[1],
			AuthorEmail: fields[2],
			Date:        time.Unix(secs, 0).UTC(),
			Message:     strings.TrimRight(string(body), "\r\n"),
		})
	}

	return commits, nil
}

var (
	filesChangedRe = regexp.MustCompile(`(\d+) files? changed`)
	insertionsRe   = regexp.MustCompile(`(\d+) insertions?\(\+\)`)
	deletionsRe    = regexp.MustCompile(`(\d+) deletions?\(-\)`)
)

// parseStatSummary extracts the counters from a --stat summary such as
// " 2 files changed, 10 insertions(+), 2 deletions(-)". Missing parts are zero.
func parseStatSummary(output string) (files, insertions, deletions int) {
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := lines[i]
		if !filesChangedRe.MatchString(line) {
			continue
		}
		files = firstInt(filesChangedRe, line)
		insertions = firstInt(insertionsRe, line)
		deletions = firstInt(deletionsRe, line)
		return files, insertions, deletions
	}
	return 0, 0, 0
}

func firstInt(re *regexp.Regexp, s string) int {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// parseNameList splits diff-tree --name-only output into paths
func parseNameList(output string) []string {
	files := []string{}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			files = append(files, line)
		}
	}
	return files
}
