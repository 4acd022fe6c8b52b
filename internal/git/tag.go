package git

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// TagRef is a tag known to the repository, as reported by `show-ref --tags`.
type TagRef struct {
	// Name is the tag's short name, e.g. "v1.0.0".
	Name string

	// Hash is the object the tag points to. For an annotated tag this
	// is the peeled commit hash, not the tag object hash.
	Hash Hash

	// Annotated reports whether the tag is an annotated tag object,
	// as opposed to a lightweight tag.
	Annotated bool
}

// ListTags enumerates every tag in the repository, resolving annotated
// tags to the commit they point at.
func (r *Repository) ListTags(ctx context.Context) ([]TagRef, error) {
	cmd := r.gitCmd(ctx, "show-ref", "--tags", "-d")
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("pipe: %w", err)
	}
	if err := cmd.Start(r.exec); err != nil {
		return nil, fmt.Errorf("start show-ref: %w", err)
	}

	byName := make(map[string]*TagRef)
	var order []string
	scanner := bufio.NewScanner(out)
	for scanner.Scan() {
		line := scanner.Text()
		hash, ref, ok := strings.Cut(line, " ")
		if !ok {
			continue
		}

		const prefix = "refs/tags/"
		if !strings.HasPrefix(ref, prefix) {
			continue
		}
		ref = ref[len(prefix):]

		// The "^{}" suffix identifies the peeled (dereferenced)
		// entry of an annotated tag, pointing at the commit itself.
		if name, ok := strings.CutSuffix(ref, "^{}"); ok {
			if t, ok := byName[name]; ok {
				t.Hash = Hash(hash)
				t.Annotated = true
			}
			continue
		}

		t := &TagRef{Name: ref, Hash: Hash(hash)}
		byName[ref] = t
		order = append(order, ref)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	// show-ref returns "no such ref" style failures as a non-zero exit
	// when there are no tags at all; that's not an error for us.
	_ = cmd.Wait(r.exec)

	tags := make([]TagRef, 0, len(order))
	for _, name := range order {
		tags = append(tags, *byName[name])
	}
	return tags, nil
}

// TagAnnotation returns the body of an annotated tag's message.
func (r *Repository) TagAnnotation(ctx context.Context, name string) (string, error) {
	out, err := r.gitCmd(ctx, "tag", "-l", "--format=%(contents)", name).
		OutputString(r.exec)
	if err != nil {
		return "", fmt.Errorf("git tag -l: %w", err)
	}
	return out, nil
}

// CreateTagRequest describes a new tag to create.
type CreateTagRequest struct {
	// Name of the new tag.
	Name string // required

	// Hash is the object the tag should point to.
	Hash Hash // required

	// Annotation, if non-empty, creates an annotated tag with this
	// message. If empty, a lightweight tag is created.
	Annotation string
}

// CreateTag creates a new tag in the repository.
func (r *Repository) CreateTag(ctx context.Context, req CreateTagRequest) error {
	args := []string{"tag", req.Name, req.Hash.String()}
	if req.Annotation != "" {
		args = append(args, "-m", req.Annotation)
	}

	if err := r.gitCmd(ctx, args...).Run(r.exec); err != nil {
		return fmt.Errorf("git tag: %w", err)
	}
	return nil
}
