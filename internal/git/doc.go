// Package git clones and updates source repositories for the git-clone and
// git-pull builtins. It uses go-git so no git binary is required on the host.
package git
