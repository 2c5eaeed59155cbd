package worktree

import (
	"strconv"
	"strings"
	"time"

	"github.com/autobuild/autobuild/internal/gitrun"
)

func (m *Manager) statsFor(path, branch, specName string) (*Info, error) {
	wtGit := gitrun.NewRunner(path, m.execs)

	info := &Info{
		Path:       path,
		Branch:     branch,
		SpecName:   specName,
		BaseBranch: m.baseBranch,
		IsActive:   true,
	}

	currentBranch, err := wtGit.CurrentBranch()
	if err == nil && currentBranch == "HEAD" {
		// Detached HEAD: recover the registered branch, or fall back to expected.
		info.Branch = m.CurrentRegisteredBranch(path, branch)
	}

	if count, err := wtGit.CommitCount(m.baseBranch, "HEAD"); err == nil {
		info.Stats.CommitsAheadOfBase = count
	}
	if files, err := wtGit.ChangedFiles(m.baseBranch); err == nil {
		info.Stats.FilesChanged = len(files)
	}
	if add, del, err := diffStat(wtGit, m.baseBranch); err == nil {
		info.Stats.Additions = add
		info.Stats.Deletions = del
	}
	if t, err := wtGit.LastCommitTime(); err == nil {
		info.Stats.LastCommitAt = t
		info.Stats.DaysSinceLastCommit = int(time.Since(t).Hours() / 24)
	}

	return info, nil
}

func diffStat(git *gitrun.ExecRunner, base string) (additions, deletions int, err error) {
	out, err := git.Run("diff", "--shortstat", base)
	if err != nil {
		return 0, 0, err
	}
	// e.g. "3 files changed, 42 insertions(+), 7 deletions(-)"
	for _, part := range strings.Split(out, ",") {
		part = strings.TrimSpace(part)
		fields := strings.Fields(part)
		if len(fields) < 2 {
			continue
		}
		n, convErr := strconv.Atoi(fields[0])
		if convErr != nil {
			continue
		}
		switch {
		case strings.Contains(part, "insertion"):
			additions = n
		case strings.Contains(part, "deletion"):
			deletions = n
		}
	}
	return additions, deletions, nil
}
