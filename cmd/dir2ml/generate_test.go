package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/dir2ml/pkg/dir2ml/config"
	"github.com/jamesainslie/dir2ml/pkg/dir2ml/dedup"
	"github.com/jamesainslie/dir2ml/pkg/dir2ml/hasher"
	"github.com/jamesainslie/dir2ml/pkg/dir2ml/locator"
	"github.com/jamesainslie/dir2ml/pkg/dir2ml/manifest"
	"github.com/jamesainslie/dir2ml/pkg/dir2ml/output"
	"github.com/jamesainslie/dir2ml/pkg/dir2ml/types"
)

func baseConfig(dir string) *config.Config {
	return &config.Config{
		Directory:  dir,
		Format:     "metalink",
		BaseURL:    []string{"http://mirror.example.com/pub"},
		HashType:   []string{"sha256"},
		Dedup:      "off",
		Collisions: "warn",
		Recursive:  true,
		MinSize:    "0",
	}
}

func TestBuildScanOptions(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		mutate  func(c *config.Config)
		wantErr error
		check   func(t *testing.T, c *config.Config)
	}{
		{
			name: "defaults",
		},
		{
			name:    "missing directory",
			mutate:  func(c *config.Config) { c.Directory = "" },
			wantErr: errDirectoryRequired,
		},
		{
			name: "no locators",
			mutate: func(c *config.Config) {
				c.BaseURL = nil
			},
			wantErr: locator.ErrNoLocators,
		},
		{
			name:    "unknown hash",
			mutate:  func(c *config.Config) { c.HashType = []string{"crc32"} },
			wantErr: hasher.ErrUnknownAlgorithm,
		},
		{
			name:    "bad dedup",
			mutate:  func(c *config.Config) { c.Dedup = "sometimes" },
			wantErr: dedup.ErrInvalidMode,
		},
		{
			name:    "bad collisions",
			mutate:  func(c *config.Config) { c.Collisions = "panic" },
			wantErr: dedup.ErrInvalidPolicy,
		},
		{
			name:    "bad min size",
			mutate:  func(c *config.Config) { c.MinSize = "big" },
			wantErr: types.ErrInvalidSize,
		},
		{
			name: "everything set",
			mutate: func(c *config.Config) {
				c.HashType = []string{"md5,sha-1", "sha256"}
				c.Dedup = "consolidate"
				c.Collisions = "fail"
				c.IgnoreMtime = true
				c.MinSize = "1K"
				c.Exclude = []string{"*.tmp"}
				c.MaxDepth = 2
				c.Recursive = false
				c.Strict = true
				c.Estimate = true
				c.Country = "de"
				c.NIURL = true
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig(dir)
			if tt.mutate != nil {
				tt.mutate(cfg)
			}

			opts, err := buildScanOptions(cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, dir, opts.Root)
			assert.Equal(t, cfg.Recursive, opts.Recursive)
			assert.Equal(t, cfg.Strict, opts.Strict)
			assert.Equal(t, cfg.Exclude, opts.Exclude)
			assert.Equal(t, cfg.BaseURL, opts.Locators.BaseURLs)
		})
	}

	t.Run("mapping", func(t *testing.T) {
		cfg := baseConfig(dir)
		cfg.HashType = []string{"sha256,md5"}
		cfg.Dedup = "find"
		cfg.Collisions = "ignore"
		cfg.MinSize = "2K"
		cfg.MagnetURL = true

		opts, err := buildScanOptions(cfg)
		require.NoError(t, err)
		assert.Equal(t, hasher.NewSet(hasher.MD5, hasher.SHA256), opts.Algorithms)
		assert.Equal(t, dedup.FindDuplicates, opts.Dedup)
		assert.Equal(t, dedup.PolicyIgnore, opts.Collisions)
		assert.Equal(t, int64(2048), opts.MinSize)
		assert.True(t, opts.Locators.Magnet)
	})
}

func TestBuildFormatter(t *testing.T) {
	cfg := baseConfig("")

	cfg.Format = ""
	f, err := buildFormatter(cfg)
	require.NoError(t, err)
	assert.IsType(t, &output.MetalinkFormatter{}, f)

	cfg.Format = "json"
	f, err = buildFormatter(cfg)
	require.NoError(t, err)
	assert.IsType(t, &output.JSONFormatter{}, f)

	cfg.Format = "template"
	cfg.Template = "{{len .Files}}"
	f, err = buildFormatter(cfg)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, f.Format(&buf, &output.Result{Files: make([]types.FileRecord, 3)}))
	assert.Equal(t, "3", buf.String())

	cfg.Template = "{{len .Files"
	_, err = buildFormatter(cfg)
	assert.ErrorContains(t, err, "invalid template")

	cfg.Format = "nope"
	_, err = buildFormatter(cfg)
	assert.ErrorContains(t, err, "available formats")
}

func newJob(t *testing.T, cfg *config.Config) *job {
	t.Helper()
	opts, err := buildScanOptions(cfg)
	require.NoError(t, err)
	formatter, err := buildFormatter(cfg)
	require.NoError(t, err)
	return &job{cfg: cfg, opts: opts, formatter: formatter, format: cfg.Format}
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestJobRunWritesDocument(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.txt":     "alpha",
		"sub/b.txt": "bravo",
	})
	outDir := t.TempDir()
	histDir := t.TempDir()

	cfg := baseConfig(root)
	cfg.Country = "US"
	cfg.Output = filepath.Join(outDir, "tree.meta4")
	cfg.ShowStatistics = true
	cfg.History = config.HistoryConfig{Enabled: true, Dir: histDir, RetentionDays: 30}

	var stdout, stderr bytes.Buffer
	res, err := newJob(t, cfg).run(context.Background(), manifest.OpGenerate, &stdout, &stderr)
	require.NoError(t, err)
	assert.Len(t, res.Files, 2)
	assert.Zero(t, stdout.Len())
	assert.Contains(t, stderr.String(), "Statistics")

	data, err := os.ReadFile(cfg.Output)
	require.NoError(t, err)
	doc := string(data)
	assert.Contains(t, doc, `<metalink xmlns="urn:ietf:params:xml:ns:metalink">`)
	assert.Contains(t, doc, "<generator>dir2ml/"+version+"</generator>")
	assert.Contains(t, doc, "<updated>")
	assert.Contains(t, doc, `<file name="sub/b.txt">`)
	assert.Contains(t, doc, `<url location="us">http://mirror.example.com/pub/sub/b.txt</url>`)
	assert.Less(t, strings.Index(doc, `name="a.txt"`), strings.Index(doc, `name="sub/b.txt"`))

	m, err := manifest.New(histDir)
	require.NoError(t, err)
	entries, err := m.List(0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, res.RunID, entries[0].ID)
	assert.Equal(t, manifest.OpGenerate, entries[0].Operation)
	assert.Equal(t, int64(2), entries[0].Summary.Survivors)
	assert.Equal(t, []string{"sha256"}, entries[0].Algorithms)
}

func TestJobRunStdoutSparse(t *testing.T) {
	root := writeTree(t, map[string]string{"a": "x", "b": "x"})

	cfg := baseConfig(root)
	cfg.BaseURL = nil
	cfg.FileURL = true
	cfg.Dedup = "consolidate"
	cfg.IgnoreMtime = true
	cfg.NoGenerator = true
	cfg.NoDate = true

	var stdout, stderr bytes.Buffer
	res, err := newJob(t, cfg).run(context.Background(), manifest.OpGenerate, &stdout, &stderr)
	require.NoError(t, err)
	assert.Len(t, res.Files, 1)
	assert.Equal(t, int64(1), res.Stats.Merges)

	doc := stdout.String()
	assert.NotContains(t, doc, "<generator>")
	assert.NotContains(t, doc, "<updated>")
	assert.Contains(t, doc, "file://")
	assert.Equal(t, 2, strings.Count(doc, "<url>"), "consolidated record carries both locations")
}

func TestJobRunCancelled(t *testing.T) {
	root := writeTree(t, map[string]string{"a": "x"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stdout, stderr bytes.Buffer
	_, err := newJob(t, baseConfig(root)).run(ctx, manifest.OpGenerate, &stdout, &stderr)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, stdout.Len())
}

func TestOutputMatcher(t *testing.T) {
	assert.Nil(t, outputMatcher(""))
	assert.Nil(t, outputMatcher("-"))

	dir := t.TempDir()
	out := filepath.Join(dir, "tree.meta4")
	match := outputMatcher(out)
	require.NotNil(t, match)

	assert.True(t, match(out))
	assert.True(t, match(filepath.Join(dir, ".tree.meta4.123.tmp")))
	assert.False(t, match(filepath.Join(dir, "tree.txt")))
	assert.False(t, match(filepath.Join(dir, "sub", "tree.meta4")))
}

func TestLoadConfigFromViper(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("DIR2ML_COUNTRY", "fr")

	require.NoError(t, config.Setup(viper.GetViper(), ""))
	viper.Set("dedup", "consolidate")
	viper.Set("sparse_output", true)

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "consolidate", cfg.Dedup)
	assert.Equal(t, "fr", cfg.Country)
	assert.Equal(t, []string{"sha256"}, cfg.HashType)
	assert.True(t, cfg.NoGenerator)
	assert.True(t, cfg.NoDate)
}

func TestRunVersion(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	runVersion(cmd, nil)

	assert.Contains(t, buf.String(), "dir2ml "+version)
	assert.Equal(t, "dir2ml/"+version, generator())
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "abc", shortID("abc"))
	assert.Equal(t, "12345678", shortID("1234567890"))
}
