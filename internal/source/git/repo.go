package git

import (
	gogit "github.com/go-git/go-git/v5"
)

// currentBranch returns the short name of the branch HEAD points at, or an
// empty string for detached heads and unreadable repositories.
func currentBranch(repoPath string) string {
	repo, err := gogit.PlainOpen(repoPath)
	if err != nil {
		return ""
	}
	head, err := repo.Head()
	if err != nil || !head.Name().IsBranch() {
		return ""
	}
	return head.Name().Short()
}
