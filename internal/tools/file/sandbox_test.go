package file

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSandbox_Resolve(t *testing.T) {
	root := t.TempDir()
	extra := t.TempDir()
	sb := NewSandbox(root, []string{extra}, nil)

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr string
	}{
		{name: "relative", path: "notes/a.txt", want: filepath.Join(root, "notes/a.txt")},
		{name: "dot", path: ".", want: root},
		{name: "inner dotdot", path: "notes/../a.txt", want: filepath.Join(root, "a.txt")},
		{name: "escape", path: "../etc/passwd", wantErr: "escape"},
		{name: "absolute in root", path: filepath.Join(root, "x"), want: filepath.Join(root, "x")},
		{name: "absolute in whitelist", path: filepath.Join(extra, "y"), want: filepath.Join(extra, "y")},
		{name: "absolute outside", path: "/etc/passwd", wantErr: "whitelist_dirs"},
		{name: "empty", path: "  ", wantErr: "required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sb.Resolve(tt.path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSandbox_ResolveWritable(t *testing.T) {
	root := t.TempDir()
	ro := filepath.Join(root, "ro")
	sb := NewSandbox(root, nil, []string{ro})

	_, err := sb.ResolveWritable("ro/file.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read-only")

	p, err := sb.ResolveWritable("rw/file.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "rw/file.txt"), p)

	// чтение из read-only разрешено
	_, err = sb.Resolve("ro/file.txt")
	assert.NoError(t, err)
}

func TestSplitLines(t *testing.T) {
	assert.Nil(t, splitLines(""))
	assert.Equal(t, []string{"a", "b"}, splitLines("a\nb"))
	assert.Equal(t, []string{"a", "b"}, splitLines("a\r\nb\n"))
	assert.Equal(t, []string{"", "x"}, splitLines("\nx"))
}
