package document

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	mocheerrors "moche.dev/moche/internal/errors"
)

type testFile struct {
	Url             string
	FolderToExtract string
}

type testMethod struct {
	Name    string
	Version string
	Binary  *testFile
}

type testRepo struct {
	Name      string
	Types     []string
	Build     []string
	Retrieval []*testMethod
	Arguments Map[string, string]
	Url       Map[string, *testFile]
	Index     int
	Mandatory bool
}

type testCatalog struct {
	Repo Map[string, *testRepo]
}

var (
	testFileSchema = NewSchema("RemoteFile",
		String("Url", func(f *testFile) *string { return &f.Url }),
		String("FolderToExtract", func(f *testFile) *string { return &f.FolderToExtract }),
	)
	testMethodSchema = NewSchema("RetrievalMethod",
		String("Name", func(m *testMethod) *string { return &m.Name }),
		String("Version", func(m *testMethod) *string { return &m.Version }),
		Object("Binary", func(m *testMethod) **testFile { return &m.Binary }, testFileSchema),
	)
	testRepoSchema = NewSchema("Repo",
		String("Name", func(r *testRepo) *string { return &r.Name }),
		StringList("RetrievalType", func(r *testRepo) *[]string { return &r.Types }).ClearOnMerge(),
		StringList("Build", func(r *testRepo) *[]string { return &r.Build }),
		ObjectList("Retrieval", func(r *testRepo) *[]*testMethod { return &r.Retrieval }, testMethodSchema),
		StringMap("Arguments", func(r *testRepo) *Map[string, string] { return &r.Arguments }),
		KeyedMap("Url", func(r *testRepo) *Map[string, *testFile] { return &r.Url },
			func(s string) (string, error) { return strings.ToLower(s), nil },
			func(s string) string { return s },
			testFileSchema),
		Int("Index", func(r *testRepo) *int { return &r.Index }),
		Bool("Mandatory", func(r *testRepo) *bool { return &r.Mandatory }),
	).WithDefaults(func(r *testRepo) { r.Index = 1 })
	testCatalogSchema = NewSchema("Catalog",
		EmbeddedMap("Repo", func(c *testCatalog) *Map[string, *testRepo] { return &c.Repo },
			func(r *testRepo) string { return r.Name }, testRepoSchema),
	)
)

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("nests lines under brackets by indentation", func(t *testing.T) {
		t.Parallel()
		nodes, err := Parse("[Repo]\n  Name cmake\n\n  # comment\n  [Retrieval]\n    Name path\nTop value with spaces\n")
		require.NoError(t, err)
		require.Len(t, nodes, 2)
		require.Equal(t, "Repo", nodes[0].Name)
		require.True(t, nodes[0].Block)
		require.Len(t, nodes[0].Children, 2)
		require.Equal(t, "cmake", nodes[0].Children[0].Value)
		require.Equal(t, "Retrieval", nodes[0].Children[1].Name)
		require.Equal(t, "path", nodes[0].Children[1].Children[0].Value)
		require.Equal(t, "value with spaces", nodes[1].Value)
		require.Equal(t, 7, nodes[1].Line)
	})

	t.Run("less indented sibling still belongs to the open block", func(t *testing.T) {
		t.Parallel()
		nodes, err := Parse("[Repo]\n    Name a\n  Index 2\n")
		require.NoError(t, err)
		require.Len(t, nodes, 1)
		require.Len(t, nodes[0].Children, 2)
	})

	t.Run("bracket without closing bracket", func(t *testing.T) {
		t.Parallel()
		_, err := Parse("[Repo\n  Name a\n")
		require.ErrorIs(t, err, mocheerrors.ErrParse)
		require.Contains(t, err.Error(), "line 1")
	})

	t.Run("line indented under a scalar", func(t *testing.T) {
		t.Parallel()
		_, err := Parse("[Repo]\n  Name a\n    Index 2\n")
		require.ErrorIs(t, err, mocheerrors.ErrParse)
		require.Contains(t, err.Error(), "line 3")
	})
}

func TestMergeScalarsAndLists(t *testing.T) {
	t.Parallel()

	repo := testRepoSchema.New()
	require.Equal(t, 1, repo.Index)

	require.NoError(t, Merge("Name a\nIndex 3\nBuild one\nBuild two\n", repo, testRepoSchema))
	require.NoError(t, Merge("Name b\nBuild three\nMandatory true\n", repo, testRepoSchema))

	require.Equal(t, "b", repo.Name)
	require.Equal(t, 3, repo.Index)
	require.True(t, repo.Mandatory)
	require.Equal(t, []string{"one", "two", "three"}, repo.Build)

	require.NoError(t, Merge("Name\nIndex\nMandatory\n", repo, testRepoSchema))
	require.Equal(t, "b", repo.Name)
	require.Equal(t, 3, repo.Index)
	require.True(t, repo.Mandatory)
}

func TestMergeClearOnMerge(t *testing.T) {
	t.Parallel()

	catalog := testCatalogSchema.New()
	require.NoError(t, Merge("[Repo]\n  Name x\n  RetrievalType Path\n", catalog, testCatalogSchema))
	require.NoError(t, Merge("[Repo]\n  Name x\n  RetrievalType Binary\n  RetrievalType Source\n", catalog, testCatalogSchema))

	repo, ok := catalog.Repo.Get("x")
	require.True(t, ok)
	require.Equal(t, []string{"Binary", "Source"}, repo.Types)
}

func TestMergeEmbeddedMap(t *testing.T) {
	t.Parallel()

	catalog := testCatalogSchema.New()
	first := `[Repo]
  Name cmake
  Build configure
[Repo]
  Name ninja
`
	second := `[Repo]
  Name zlib
[Repo]
  Name cmake
  Build install
  [Retrieval]
    Name binary
    [Binary]
      Url https://example.com/cmake.tgz
`
	require.NoError(t, Merge(first, catalog, testCatalogSchema))
	require.NoError(t, Merge(second, catalog, testCatalogSchema))

	require.Equal(t, []string{"cmake", "ninja", "zlib"}, catalog.Repo.Keys())
	cmake, _ := catalog.Repo.Get("cmake")
	require.Equal(t, []string{"configure", "install"}, cmake.Build)
	require.Len(t, cmake.Retrieval, 1)
	require.Equal(t, "https://example.com/cmake.tgz", cmake.Retrieval[0].Binary.Url)
}

func TestMergeMaps(t *testing.T) {
	t.Parallel()

	repo := testRepoSchema.New()
	text := `[Arguments]
  Dest {SourcePath}
  Empty
[Url]
  [Linux-x64]
    Url https://example.com/a.zip
`
	require.NoError(t, Merge(text, repo, testRepoSchema))
	require.NoError(t, Merge("[Url]\n  [linux-x64]\n    FolderToExtract a\n[Arguments]\n  Dest other\n", repo, testRepoSchema))

	dest, _ := repo.Arguments.Get("Dest")
	require.Equal(t, "other", dest)
	empty, ok := repo.Arguments.Get("Empty")
	require.True(t, ok)
	require.Empty(t, empty)

	file, ok := repo.Url.Get("linux-x64")
	require.True(t, ok)
	require.Equal(t, "https://example.com/a.zip", file.Url)
	require.Equal(t, "a", file.FolderToExtract)
}

func TestMergeSchemaErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want string
	}{
		{"unknown member", "Name a\nColour red\n", "line 2: Repo.Colour: unknown member"},
		{"bad int", "Index many\n", "Repo.Index: cannot convert"},
		{"bad bool", "Mandatory maybe\n", "Repo.Mandatory: cannot convert"},
		{"nested unknown", "[Retrieval]\n  Nope 1\n", "RetrievalMethod.Nope: unknown member"},
		{"scalar with block", "[Name]\n  x\n", "is a value, not a block"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Merge(tt.text, testRepoSchema.New(), testRepoSchema)
			require.ErrorIs(t, err, mocheerrors.ErrSchema)
			require.Contains(t, err.Error(), tt.want)
		})
	}

	t.Run("embedded block without key", func(t *testing.T) {
		t.Parallel()
		err := Merge("[Repo]\n  Index 2\n", testCatalogSchema.New(), testCatalogSchema)
		require.ErrorIs(t, err, mocheerrors.ErrSchema)
	})
}

func TestWriteRoundTrip(t *testing.T) {
	t.Parallel()

	repo := testRepoSchema.New()
	repo.Name = "cmake"
	repo.Index = 2
	repo.Types = []string{"Binary"}
	repo.Retrieval = []*testMethod{{Name: "binary", Version: "3.30", Binary: &testFile{Url: "https://example.com"}}}
	repo.Arguments.Set("Dest", "{SourcePath}")
	repo.Url.Set("linux-x64", &testFile{Url: "https://example.com/l.tgz"})

	out := string(Marshal(repo, testRepoSchema))
	require.Contains(t, out, "Name"+strings.Repeat(" ", valueColumn-len("Name"))+"cmake\n")
	require.Contains(t, out, "[Retrieval]\n  Name")
	require.NotContains(t, out, "Mandatory")

	back := &testRepo{}
	require.NoError(t, Merge(out, back, testRepoSchema))
	require.Equal(t, repo.Name, back.Name)
	require.Equal(t, repo.Index, back.Index)
	require.Equal(t, repo.Types, back.Types)
	require.Equal(t, "3.30", back.Retrieval[0].Version)
	require.Equal(t, "https://example.com", back.Retrieval[0].Binary.Url)
	dest, _ := back.Arguments.Get("Dest")
	require.Equal(t, "{SourcePath}", dest)
	file, _ := back.Url.Get("linux-x64")
	require.Equal(t, "https://example.com/l.tgz", file.Url)
}

func TestFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := filepath.Join(dir, "a.moche")
	b := filepath.Join(dir, "nested", "b.moche")

	require.NoError(t, WriteFile(a, &testRepo{Name: "a", Build: []string{"x"}}, testRepoSchema))
	require.NoError(t, WriteFile(b, &testRepo{Build: []string{"y"}}, testRepoSchema))

	repo, err := Load(testRepoSchema, a, b)
	require.NoError(t, err)
	require.Equal(t, "a", repo.Name)
	require.Equal(t, []string{"x", "y"}, repo.Build)

	require.NoError(t, os.WriteFile(b, []byte("Index x\n"), 0600))
	_, err = Load(testRepoSchema, a, b)
	require.ErrorIs(t, err, mocheerrors.ErrSchema)
	require.Contains(t, err.Error(), b)

	_, err = Load(testRepoSchema, filepath.Join(dir, "missing"))
	require.Error(t, err)
}

func TestMap(t *testing.T) {
	t.Parallel()

	var m Map[string, int]
	m.Set("b", 1)
	m.Set("a", 2)
	m.Set("b", 3)
	require.Equal(t, []string{"b", "a"}, m.Keys())
	require.Equal(t, []int{3, 2}, m.Values())

	m.Delete("b")
	require.Equal(t, 1, m.Len())
	require.False(t, m.Has("b"))

	var seen []string
	for k, v := range m.All() {
		seen = append(seen, fmt.Sprintf("%s=%d", k, v))
	}
	require.Equal(t, []string{"a=2"}, seen)

	m.Clear()
	require.Zero(t, m.Len())
}
