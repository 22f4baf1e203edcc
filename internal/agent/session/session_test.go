package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/microbot/internal/llm"
)

func fixedNow() time.Time {
	return time.Date(2024, 3, 4, 9, 5, 0, 0, time.UTC)
}

func newTestManager(t *testing.T, maxHistory int, persist bool) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	mgr, err := NewManager(Config{DataDir: dir, MaxHistory: maxHistory, Persist: persist, Now: fixedNow})
	require.NoError(t, err)
	return mgr, dir
}

func TestNewManager_EmptyDir(t *testing.T) {
	_, err := NewManager(Config{})
	assert.Error(t, err)
}

func TestLimit(t *testing.T) {
	tests := []struct {
		maxHistory int
		want       int
	}{
		{0, 4},
		{1, 4},
		{2, 4},
		{3, 6},
		{10, 20},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.maxHistory), func(t *testing.T) {
			assert.Equal(t, tt.want, Limit(tt.maxHistory))
		})
	}
}

func TestAppend_BoundsHistoryAndSummarizes(t *testing.T) {
	mgr, _ := newTestManager(t, 2, false)

	for i := 1; i <= 6; i++ {
		require.NoError(t, mgr.Append("555", llm.RoleUser, fmt.Sprintf("msg %d", i)))
	}

	history := mgr.History("555")
	require.Len(t, history, 4)
	assert.Equal(t, "msg 3", history[0].Content)
	assert.Equal(t, "msg 6", history[3].Content)

	tail, err := mgr.SummaryTail("555", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"- [2024-03-04 09:05] user: msg 1",
		"- [2024-03-04 09:05] user: msg 2",
	}, tail)
}

func TestHistory_IsACopy(t *testing.T) {
	mgr, _ := newTestManager(t, 2, false)
	require.NoError(t, mgr.Append("1", llm.RoleUser, "hello"))

	h := mgr.History("1")
	h[0].Content = "changed"
	assert.Equal(t, "hello", mgr.History("1")[0].Content)
	assert.Empty(t, mgr.History("other"))
}

func TestSummaryContent(t *testing.T) {
	assert.Equal(t, "line one line two", SummaryContent("line one\n\nline   two"))

	long := strings.Repeat("a", 200)
	got := SummaryContent(long)
	assert.Equal(t, strings.Repeat("a", 160)+"...", got)

	exact := strings.Repeat("b", 160)
	assert.Equal(t, exact, SummaryContent(exact))
}

func TestSummary_TrimmedWhenLarge(t *testing.T) {
	mgr, _ := newTestManager(t, 2, false)

	big := strings.Repeat("x", 150)
	for i := 0; i < 400; i++ {
		require.NoError(t, mgr.Append("9", llm.RoleAssistant, big))
	}

	info, err := os.Stat(mgr.SummaryPath("9"))
	require.NoError(t, err)
	assert.LessOrEqual(t, info.Size(), int64(summaryMaxBytes))

	tail, err := mgr.SummaryTail("9", 0)
	require.NoError(t, err)
	assert.Less(t, len(tail), 396)
	assert.GreaterOrEqual(t, len(tail), summaryKeepLines)
	assert.True(t, strings.HasPrefix(tail[0], "- [2024-03-04 09:05] assistant: xxx"))
}

func TestClear(t *testing.T) {
	mgr, _ := newTestManager(t, 2, false)
	require.NoError(t, mgr.Append("1", llm.RoleUser, "hi"))
	require.NoError(t, mgr.Clear("1"))
	assert.Empty(t, mgr.History("1"))
}

func TestSummaryTail_Missing(t *testing.T) {
	mgr, _ := newTestManager(t, 2, false)
	tail, err := mgr.SummaryTail("nobody", 5)
	require.NoError(t, err)
	assert.Empty(t, tail)
}

func TestPersistence(t *testing.T) {
	mgr, dir := newTestManager(t, 2, true)
	require.NoError(t, mgr.Append("-100", llm.RoleUser, "first"))
	require.NoError(t, mgr.Append("-100", llm.RoleAssistant, "second"))

	_, err := os.Stat(filepath.Join(dir, "sessions", "-100.json"))
	require.NoError(t, err)

	reopened, err := NewManager(Config{DataDir: dir, MaxHistory: 2, Persist: true, Now: fixedNow})
	require.NoError(t, err)
	history := reopened.History("-100")
	require.Len(t, history, 2)
	assert.Equal(t, llm.RoleAssistant, history[1].Role)
	assert.Equal(t, "second", history[1].Content)

	require.NoError(t, reopened.Clear("-100"))
	_, err = os.Stat(filepath.Join(dir, "sessions", "-100.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestPersistence_CorruptFileIgnored(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sessions"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sessions", "7.json"), []byte("{not json"), 0644))

	mgr, err := NewManager(Config{DataDir: dir, MaxHistory: 2, Persist: true})
	require.NoError(t, err)
	assert.Empty(t, mgr.History("7"))
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "default", safeName(""))
	assert.Equal(t, "-100123", safeName("-100123"))
	assert.Equal(t, "a_b_c", safeName("a/b.c"))
}
