package project_test

import (
	"testing"

	"github.com/ganot/forge-registry/internal/domain/project"
	"github.com/stretchr/testify/require"
)

func TestParseRepositoryURL(t *testing.T) {
	ref, err := project.ParseRepositoryURL("https://github.com/acme/rocket-launcher")
	require.NoError(t, err)
	require.Equal(t, project.RepoRef{Owner: "acme", Name: "rocket-launcher", Kind: project.KindRepo}, ref)
	require.Equal(t, "acme/rocket-launcher", ref.FullName())

	ref, err = project.ParseRepositoryURL("https://www.github.com/acme/rocket/pull/42/")
	require.NoError(t, err)
	require.Equal(t, project.KindPR, ref.Kind)
	require.Equal(t, 42, ref.Number)

	ref, err = project.ParseRepositoryURL("https://github.com/acme/rocket/issues/7")
	require.NoError(t, err)
	require.Equal(t, project.KindIssue, ref.Kind)

	ref, err = project.ParseRepositoryURL("https://github.com/acme/rocket.git")
	require.NoError(t, err)
	require.Equal(t, "rocket", ref.Name)
}

func TestParseRepositoryURL_Invalid(t *testing.T) {
	for _, raw := range []string{
		"",
		"ftp://github.com/a/b",
		"https://gitlab.com/a/b",
		"https://github.com/onlyowner",
		"https://github.com/a/b/issues/zero",
		"https://github.com/a/b/tree/main",
	} {
		_, err := project.ParseRepositoryURL(raw)
		require.ErrorIs(t, err, project.ErrInvalidInput, raw)
	}
}
