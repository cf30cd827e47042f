package github

import "testing"

func TestParseRepoURL(t *testing.T) {
	cases := []struct {
		in        string
		owner     string
		repo      string
		expectErr bool
	}{
		{in: "https://github.com/acme/widget", owner: "acme", repo: "widget"},
		{in: "https://github.com/acme/widget.git", owner: "acme", repo: "widget"},
		{in: "https://www.github.com/acme/widget", owner: "acme", repo: "widget"},
		{in: "https://github.com/acme/widget/tree/main", expectErr: true},
		{in: "https://gitlab.com/acme/widget", expectErr: true},
		{in: "git@github.com:acme/widget.git", expectErr: true},
		{in: "https://github.com/acme", expectErr: true},
		{in: "", expectErr: true},
	}
	for _, tc := range cases {
		owner, repo, err := ParseRepoURL(tc.in)
		if tc.expectErr {
			if err == nil {
				t.Errorf("ParseRepoURL(%q) expected error, got %s/%s", tc.in, owner, repo)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseRepoURL(%q): %v", tc.in, err)
			continue
		}
		if owner != tc.owner || repo != tc.repo {
			t.Errorf("ParseRepoURL(%q) = %s/%s, want %s/%s", tc.in, owner, repo, tc.owner, tc.repo)
		}
	}
}
