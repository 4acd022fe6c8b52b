package engine

import (
	"fmt"
	"strings"

	"go.gitsync.dev/gitsync/internal/branchsync"
	"go.gitsync.dev/gitsync/internal/tagsync"
)

func dirtyTargetMessage(dir string) string {
	return fmt.Sprintf("Target repository %q has uncommitted changes, please commit or remove changes before syncing.", dir)
}

func developBranchCheckedOutMessage(name string) string {
	return fmt.Sprintf("Cannot delete develop branch %q checked out in target repository.", name)
}

const errorRecoveryHeader = "Sorry, an error occurred during sync."

const verboseRetryHint = "To retry your command with verbose logs, add the --verbose flag and run it again."

func resetRecoveryHint(initHash string, initHashKnown bool) string {
	if initHashKnown {
		return "To reset to previous HEAD, run:\n\n    git reset --hard " + initHash
	}
	return "To reset to previous HEAD, run:\n\n    git rm --cached -r *\n    git update-ref -d HEAD"
}

// ConflictSummary renders the bit-exact conflict-recovery message from
// spec.md §6, listing every branch diverted to a conflict branch this
// run and the manual steps to resolve them.
func ConflictSummary(targetDir, targetSubdir string, conflicts []ConflictPair) string {
	var b strings.Builder
	b.WriteString("The target repository contains conflict branch(es), which need to be resolved manually.\n\n")
	b.WriteString("The conflict branch(es):\n\n")
	for _, c := range conflicts {
		fmt.Fprintf(&b, "    %s conflict with %s\n", c.Branch, c.ConflictBranch)
	}
	b.WriteString("\nPlease follow the steps to resolve the conflicts:\n\n")

	dir := targetDir
	if targetSubdir != "" {
		dir = targetDir + "/" + targetSubdir
	}

	fmt.Fprintf(&b, "    1. cd %s\n", dir)
	b.WriteString("    2. git checkout BRANCH-NAME // Replace BRANCH-NAME to your branch name\n")
	b.WriteString("    3. git merge BRANCH-NAME-gitsync-conflict\n")
	b.WriteString("    4. // Follow the tips to resolve the conflicts\n")
	b.WriteString("    5. git branch -d BRANCH-NAME-gitsync-conflict // Remove temp branch\n")
	b.WriteString(`    6. "gitsync ..." to sync changes back to current repository`)
	b.WriteString("\n")
	return b.String()
}

// ErrorRecovery renders the bit-exact error-recovery message from
// spec.md §6.
func ErrorRecovery(verbose bool, initHash string, initHashKnown bool) string {
	var b strings.Builder
	b.WriteString(errorRecoveryHeader)
	b.WriteString("\n\n")
	if !verbose {
		b.WriteString(verboseRetryHint)
		b.WriteString("\n\n")
	}
	b.WriteString(resetRecoveryHint(initHash, initHashKnown))
	b.WriteString("\n")
	return b.String()
}

// CountLine formats the bit-exact commit-count summary line from
// spec.md §6.
func CountLine(newCount, existsCount, sourceCount, targetCount int) string {
	return fmt.Sprintf("Commits: new: %d, exists: %d, source: %d, target: %d", newCount, existsCount, sourceCount, targetCount)
}

var branchActionOrder = []string{
	"created", "fast-forwarded", "up to date", "ahead", "diverged", "even", "skipped",
}

var tagActionOrder = []string{"created", "skipped"}

// BranchCountLine formats the per-action branch-reconciliation count
// line from spec.md §6, which "follows the same format" as CountLine.
func BranchCountLine(summary branchsync.Summary) string {
	actions := make([]string, len(summary.Results))
	for i, r := range summary.Results {
		actions[i] = r.Action
	}
	return actionCountLine("Branches", branchActionOrder, actions)
}

// TagCountLine formats the per-action tag-reconciliation count line
// from spec.md §6, which "follows the same format" as CountLine.
func TagCountLine(summary tagsync.Summary) string {
	actions := make([]string, len(summary.Results))
	for i, r := range summary.Results {
		actions[i] = r.Action
	}
	return actionCountLine("Tags", tagActionOrder, actions)
}

func actionCountLine(label string, order, actions []string) string {
	counts := make(map[string]int, len(order))
	for _, action := range actions {
		counts[action]++
	}

	parts := make([]string, len(order))
	for i, action := range order {
		parts[i] = fmt.Sprintf("%s: %d", action, counts[action])
	}
	return label + ": " + strings.Join(parts, ", ")
}
