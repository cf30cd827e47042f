package github

import (
	"fmt"
	"net/url"
	"strings"
)

// ParseRepoURL extracts owner and repo from a github.com HTTPS URL.
// Accepts an optional trailing ".git" and extra path segments are rejected.
func ParseRepoURL(raw string) (owner, repo string, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", fmt.Errorf("parse repo url: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return "", "", fmt.Errorf("repo url must be http(s): %s", raw)
	}
	host := strings.ToLower(u.Hostname())
	if host != "github.com" && host != "www.github.com" {
		return "", "", fmt.Errorf("repo url must be on github.com: %s", raw)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("repo url must look like https://github.com/{owner}/{repo}: %s", raw)
	}
	owner = parts[0]
	repo = strings.TrimSuffix(parts[1], ".git")
	if repo == "" {
		return "", "", fmt.Errorf("repo url missing repository name: %s", raw)
	}
	return owner, repo, nil
}
