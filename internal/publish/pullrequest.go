package publish

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/yungbote/repodoc-backend/internal/clients/github"
	"github.com/yungbote/repodoc-backend/internal/docgen"
	"github.com/yungbote/repodoc-backend/internal/pkg/faults"
	"github.com/yungbote/repodoc-backend/internal/pkg/logger"
	"github.com/yungbote/repodoc-backend/internal/workspace"
)

const (
	fallbackIdentityName  = "AI Code Documenter"
	fallbackIdentityEmail = "noreply@ai-code-documenter.com"

	pullRequestTitle = "Add AI-generated inline code comments"
)

const pullRequestBody = `## AI-Generated Code Comments

This pull request adds comprehensive inline comments to improve code readability and understanding.

### What was added:
- Function and method documentation
- Inline comments explaining complex logic
- Parameter and return value descriptions

### Review Notes:
Please review the comments to ensure they accurately describe the code's functionality. Feel free to modify or remove any comments as needed.
`

// BranchName returns the generated branch name for an annotation run.
func BranchName(now time.Time) string {
	return "ai-comments-" + now.Format("20060102-150405")
}

// PullRequestPublisher pushes annotated files as a new branch and opens a
// pull request against the repository's default branch.
type PullRequestPublisher interface {
	Publish(ctx context.Context, ws *workspace.Workspace, branchName string, files []docgen.AnnotatedFile, token, sourceURL string) (string, error)
}

type prPublisher struct {
	gh  github.Client
	log *logger.Logger
}

func NewPullRequestPublisher(gh github.Client, log *logger.Logger) PullRequestPublisher {
	return &prPublisher{
		gh:  gh,
		log: log.With("service", "PullRequestPublisher"),
	}
}

// Publish runs the full delivery sequence: identity, branch, file writes,
// commit, push, PR. The failing sub-step is named in the returned
// PublishError; nothing is pushed without the failure being reported.
func (p *prPublisher) Publish(ctx context.Context, ws *workspace.Workspace, branchName string, files []docgen.AnnotatedFile, token, sourceURL string) (string, error) {
	if ws == nil {
		return "", &faults.PublishError{Op: "branch", Err: fmt.Errorf("no workspace")}
	}
	if token == "" {
		return "", &faults.PublishError{Op: "auth", Err: fmt.Errorf("no credential available")}
	}

	owner, repo, err := github.ParseRepoURL(sourceURL)
	if err != nil {
		return "", &faults.PublishError{Op: "parse url", Err: err}
	}

	p.configureIdentity(ctx, ws.Path, token)

	if out, err := p.git(ctx, ws.Path, token, "checkout", "-b", branchName); err != nil {
		return "", &faults.PublishError{Op: "branch", Err: fmt.Errorf("%w: %s", err, out)}
	}

	for _, f := range files {
		if f.Error != "" || f.CommentedCode == "" {
			continue
		}
		target := filepath.Join(ws.Path, f.Path)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return "", &faults.PublishError{Op: "write files", Err: err}
		}
		if err := os.WriteFile(target, []byte(f.CommentedCode), 0o644); err != nil {
			return "", &faults.PublishError{Op: "write files", Err: err}
		}
	}

	if out, err := p.git(ctx, ws.Path, token, "add", "-A"); err != nil {
		return "", &faults.PublishError{Op: "stage", Err: fmt.Errorf("%w: %s", err, out)}
	}

	commitMessage := pullRequestTitle + "\n\nAutomatically generated code comments to improve readability."
	if out, err := p.git(ctx, ws.Path, token, "commit", "-m", commitMessage); err != nil {
		return "", &faults.PublishError{Op: "commit", Err: fmt.Errorf("%w: %s", err, out)}
	}

	authURL := fmt.Sprintf("https://x-access-token:%s@github.com/%s/%s.git", token, owner, repo)
	_, _ = p.git(ctx, ws.Path, token, "remote", "remove", "auth_origin")
	if out, err := p.git(ctx, ws.Path, token, "remote", "add", "auth_origin", authURL); err != nil {
		return "", &faults.PublishError{Op: "remote", Err: fmt.Errorf("%w: %s", err, out)}
	}
	if out, err := p.git(ctx, ws.Path, token, "push", "-u", "auth_origin", branchName); err != nil {
		return "", &faults.PublishError{Op: "push", Err: fmt.Errorf("%w: %s", err, out)}
	}

	repoInfo, err := p.gh.Repository(ctx, token, owner, repo)
	if err != nil {
		return "", &faults.PublishError{Op: "default branch lookup", Err: err}
	}
	base := repoInfo.DefaultBranch
	if base == "" {
		base = "main"
	}

	pr, err := p.gh.CreatePullRequest(ctx, token, owner, repo, github.PullRequestInput{
		Title: pullRequestTitle,
		Body:  pullRequestBody,
		Head:  branchName,
		Base:  base,
	})
	if err != nil {
		return "", &faults.PublishError{Op: "create pull request", Err: err}
	}

	p.log.Info("Opened pull request",
		"repo", owner+"/"+repo,
		"branch", branchName,
		"pr", pr.HTMLURL,
	)
	return pr.HTMLURL, nil
}

// configureIdentity sets the commit identity from the credential owner's
// profile, falling back to the fixed service identity when the lookup
// fails. Identity failures never abort the publish.
func (p *prPublisher) configureIdentity(ctx context.Context, dir, token string) {
	name := fallbackIdentityName
	email := fallbackIdentityEmail

	if user, err := p.gh.AuthenticatedUser(ctx, token); err == nil {
		if user.Name != "" {
			name = user.Name
		} else if user.Login != "" {
			name = user.Login
		}
		if user.Email != "" {
			email = user.Email
		} else if user.Login != "" {
			email = fmt.Sprintf("%d+%s@users.noreply.github.com", user.ID, user.Login)
		}
	} else {
		p.log.Warn("Failed to fetch GitHub profile, using fallback identity", "error", err)
	}

	_, _ = p.git(ctx, dir, token, "config", "user.name", name)
	_, _ = p.git(ctx, dir, token, "config", "user.email", email)
}

func (p *prPublisher) git(ctx context.Context, dir, token string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	out, err := cmd.CombinedOutput()
	scrubbed := strings.TrimSpace(strings.ReplaceAll(string(out), token, "********"))
	if err != nil {
		return scrubbed, fmt.Errorf("git %s: %w", args[0], err)
	}
	return scrubbed, nil
}
