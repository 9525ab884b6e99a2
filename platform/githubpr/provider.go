/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package githubpr reviews GitHub pull requests: it lists their changed
// files and posts the review back as comments.
//
//	client, err := githubpr.NewClient(ctx, githubpr.Config{Token: token})
//	ref, err := githubpr.ParseRef("octo/widgets#42")
//	pr := githubpr.New(client, ref, nil)
//	files, err := pr.ChangedFiles(ctx)
package githubpr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"sync"

	"github.com/chainguard-dev/clog"
	"github.com/glittering-universe/CoStrict-CodeReview-sub000/platform"
	"github.com/google/go-github/v84/github"
)

const (
	// maxContentBytes skips fetching files larger than this.
	maxContentBytes = 200_000
	perPage         = 100

	// OptionPostUsage set to "true" posts the usage table as a comment.
	OptionPostUsage = "post_usage"
)

// Ref names a pull request.
type Ref struct {
	Owner  string
	Repo   string
	Number int
}

func (r Ref) String() string { return fmt.Sprintf("%s/%s#%d", r.Owner, r.Repo, r.Number) }

var (
	shortRef = regexp.MustCompile(`^([\w.-]+)/([\w.-]+)#(\d+)$`)
	urlRef   = regexp.MustCompile(`^https?://[^/]+/([\w.-]+)/([\w.-]+)/pull/(\d+)(?:[/?#].*)?$`)
)

// ParseRef accepts "owner/repo#42" and pull request URLs.
func ParseRef(s string) (Ref, error) {
	m := shortRef.FindStringSubmatch(s)
	if m == nil {
		m = urlRef.FindStringSubmatch(s)
	}
	if m == nil {
		return Ref{}, fmt.Errorf("pull request %q: want owner/repo#number or a pull request URL", s)
	}
	n, err := strconv.Atoi(m[3])
	if err != nil || n <= 0 {
		return Ref{}, fmt.Errorf("pull request %q: bad number", s)
	}
	return Ref{Owner: m[1], Repo: m[2], Number: n}, nil
}

// PullRequest is a platform.Provider and platform.ChangedFilesProvider
// for one pull request.
type PullRequest struct {
	client  *github.Client
	ref     Ref
	options map[string]string

	mu      sync.Mutex
	headSHA string
	hunks   map[string][]platform.Hunk
}

var (
	_ platform.Provider             = (*PullRequest)(nil)
	_ platform.ChangedFilesProvider = (*PullRequest)(nil)
)

// New returns the provider for ref. options are returned by Option.
func New(client *github.Client, ref Ref, options map[string]string) *PullRequest {
	return &PullRequest{client: client, ref: ref, options: options, hunks: map[string][]platform.Hunk{}}
}

// head returns the head commit of the pull request, fetched once.
func (p *PullRequest) head(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.headSHA != "" {
		return p.headSHA, nil
	}
	pr, _, err := p.client.PullRequests.Get(ctx, p.ref.Owner, p.ref.Repo, p.ref.Number)
	if err != nil {
		return "", fmt.Errorf("getting %s: %w", p.ref, err)
	}
	p.headSHA = pr.GetHead().GetSHA()
	if p.headSHA == "" {
		return "", fmt.Errorf("%s has no head commit", p.ref)
	}
	return p.headSHA, nil
}

// ChangedFiles implements platform.ChangedFilesProvider.
func (p *PullRequest) ChangedFiles(ctx context.Context) ([]platform.File, error) {
	log := clog.FromContext(ctx).With("pull_request", p.ref.String())
	sha, err := p.head(ctx)
	if err != nil {
		return nil, err
	}

	var commitFiles []*github.CommitFile
	opts := &github.ListOptions{PerPage: perPage}
	for {
		page, resp, err := p.client.PullRequests.ListFiles(ctx, p.ref.Owner, p.ref.Repo, p.ref.Number, opts)
		if err != nil {
			return nil, fmt.Errorf("listing files of %s: %w", p.ref, err)
		}
		commitFiles = append(commitFiles, page...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	files := make([]platform.File, 0, len(commitFiles))
	for _, cf := range commitFiles {
		f := platform.File{
			Name:      cf.GetFilename(),
			Status:    cf.GetStatus(),
			Additions: cf.GetAdditions(),
			Deletions: cf.GetDeletions(),
		}
		f.Diff = platform.FilePatch(f.Name, f.Status, cf.GetPatch())
		f.Hunks = platform.ParseHunks(f.Diff)
		if f.Status != "removed" {
			f.Content, err = p.content(ctx, f.Name, sha)
			if err != nil {
				return nil, err
			}
		}
		files = append(files, f)
	}

	p.mu.Lock()
	for _, f := range files {
		p.hunks[f.Name] = f.Hunks
	}
	p.mu.Unlock()

	log.With("files", len(files)).With("head", sha).Info("Collected pull request changes")
	return files, nil
}

// content fetches name at sha. Missing, oversized and non-file entries
// yield no content.
func (p *PullRequest) content(ctx context.Context, name, sha string) (string, error) {
	fc, _, resp, err := p.client.Repositories.GetContents(ctx, p.ref.Owner, p.ref.Repo, name, &github.RepositoryContentGetOptions{Ref: sha})
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		clog.FromContext(ctx).With("path", name).Warn("File not found at head")
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("fetching %s at %s: %w", name, sha, err)
	}
	if fc == nil || fc.GetType() != "file" || fc.GetSize() > maxContentBytes {
		return "", nil
	}
	content, err := fc.GetContent()
	if err != nil {
		return "", fmt.Errorf("decoding %s: %w", name, err)
	}
	return content, nil
}

// PostReviewComment implements platform.Provider.
func (p *PullRequest) PostReviewComment(ctx context.Context, body string) error {
	_, _, err := p.client.Issues.CreateComment(ctx, p.ref.Owner, p.ref.Repo, p.ref.Number, &github.IssueComment{Body: github.Ptr(body)})
	if err != nil {
		return fmt.Errorf("commenting on %s: %w", p.ref, err)
	}
	clog.FromContext(ctx).With("pull_request", p.ref.String()).Info("Posted review comment")
	return nil
}

// PostThreadComment implements platform.Provider. Comments whose line is
// outside the diff are posted on the conversation instead, since GitHub
// rejects review comments there.
func (p *PullRequest) PostThreadComment(ctx context.Context, c platform.ThreadComment) error {
	p.mu.Lock()
	hunks, known := p.hunks[c.Path]
	p.mu.Unlock()
	if c.Line <= 0 || !known || !platform.InHunk(hunks, c.Line) {
		return p.PostReviewComment(ctx, fmt.Sprintf("`%s`\n\n%s", location(c), c.Body))
	}

	sha, err := p.head(ctx)
	if err != nil {
		return err
	}
	_, _, err = p.client.PullRequests.CreateComment(ctx, p.ref.Owner, p.ref.Repo, p.ref.Number, &github.PullRequestComment{
		Body:     github.Ptr(c.Body),
		Path:     github.Ptr(c.Path),
		Line:     github.Ptr(c.Line),
		Side:     github.Ptr("RIGHT"),
		CommitID: github.Ptr(sha),
	})
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusUnprocessableEntity {
		clog.FromContext(ctx).With("path", c.Path).With("line", c.Line).Warnf("Line comment rejected, posting on the conversation: %v", err)
		return p.PostReviewComment(ctx, fmt.Sprintf("`%s`\n\n%s", location(c), c.Body))
	}
	if err != nil {
		return fmt.Errorf("commenting on %s:%d: %w", c.Path, c.Line, err)
	}
	return nil
}

func location(c platform.ThreadComment) string {
	if c.Line > 0 {
		return fmt.Sprintf("%s:%d", c.Path, c.Line)
	}
	return c.Path
}

// SubmitUsage implements platform.Provider. Usage is logged, and posted
// as a comment when OptionPostUsage is "true".
func (p *PullRequest) SubmitUsage(ctx context.Context, u platform.Usage) error {
	clog.FromContext(ctx).With("pull_request", p.ref.String()).
		With("input_tokens", u.InputTokens).With("output_tokens", u.OutputTokens).Info("Review usage")
	if v, _ := p.Option(OptionPostUsage); v != "true" {
		return nil
	}
	var buf bytes.Buffer
	if err := platform.RenderUsage(&buf, u); err != nil {
		return err
	}
	return p.PostReviewComment(ctx, "<details><summary>Review usage</summary>\n\n"+buf.String()+"\n</details>")
}

// Option implements platform.Provider.
func (p *PullRequest) Option(key string) (string, bool) {
	v, ok := p.options[key]
	return v, ok
}

// RepoID implements platform.Provider.
func (p *PullRequest) RepoID() string { return p.ref.Owner + "/" + p.ref.Repo }
