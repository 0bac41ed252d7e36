package action

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_ValidLine(t *testing.T) {
	report := Parse([]string{"1001;2001,2002;ping;;网络测试"}, 5*time.Second)
	require.Len(t, report.Actions, 1)
	require.Empty(t, report.Failures)

	a := report.Actions[0]
	assert.Equal(t, int64(1001), a.BotID)
	assert.Equal(t, []int64{2001, 2002}, a.Groups)
	assert.Equal(t, "ping", a.Command)
	assert.Equal(t, "", a.ReturnMode)
	assert.Equal(t, "网络测试", a.Desc)
	assert.Equal(t, 5*time.Second, a.Timeout)
	_, err := uuid.Parse(a.ID)
	assert.NoError(t, err)
	assert.False(t, a.RequiresMention())
}

func TestParse_TrimsModeAndDesc(t *testing.T) {
	report := Parse([]string{"1001;2001; /weather 北京 ; @ ;  天气查询 "}, time.Second)
	require.Len(t, report.Actions, 1)
	a := report.Actions[0]
	assert.Equal(t, " /weather 北京 ", a.Command)
	assert.Equal(t, "@", a.ReturnMode)
	assert.Equal(t, "天气查询", a.Desc)
	assert.True(t, a.RequiresMention())
}

func TestParse_DescMayContainSeparator(t *testing.T) {
	report := Parse([]string{"1001;2001;ping;;a;b"}, time.Second)
	require.Len(t, report.Actions, 1)
	assert.Equal(t, "a;b", report.Actions[0].Desc)
}

func TestParse_EmptyGroups(t *testing.T) {
	report := Parse([]string{"1001;;ping;;孤岛"}, time.Second)
	require.Len(t, report.Actions, 1)
	assert.Empty(t, report.Actions[0].Groups)

	report = Parse([]string{"1001;2001,,2002,;ping;;x"}, time.Second)
	require.Len(t, report.Actions, 1)
	assert.Equal(t, []int64{2001, 2002}, report.Actions[0].Groups)
}

func TestParse_BadLinesAreSkipped(t *testing.T) {
	lines := []string{
		"1001;2001;ping;;first",
		"too;few;fields",
		"abc;2001;ping;;bad bot",
		"1001;20x1;ping;;bad group",
		"",
		"# comment",
		"1002;2003;pong;@;last",
	}
	report := Parse(lines, time.Second)

	require.Len(t, report.Actions, 2)
	assert.Equal(t, "first", report.Actions[0].Desc)
	assert.Equal(t, "last", report.Actions[1].Desc)

	require.Len(t, report.Failures, 3)
	assert.Equal(t, 2, report.Failures[0].LineNo)
	assert.True(t, errors.Is(report.Failures[0].Err, ErrFieldCount))
	assert.True(t, errors.Is(report.Failures[1].Err, ErrBadID))
	assert.Contains(t, report.Failures[1].Reason, "bot id")
	assert.True(t, errors.Is(report.Failures[2].Err, ErrBadID))
	assert.Contains(t, report.Failures[2].Reason, "group")
}

func TestParse_UniqueIDs(t *testing.T) {
	report := Parse([]string{"1;2;a;;x", "1;2;a;;x"}, time.Second)
	require.Len(t, report.Actions, 2)
	assert.NotEqual(t, report.Actions[0].ID, report.Actions[1].ID)
}

func TestCatalog_FindFirstMatchInOrder(t *testing.T) {
	cat := Parse([]string{
		"1;10;a;;网络测试 ping",
		"2;20;b;;网络测试 traceroute",
		"3;30;c;;Weather",
	}, time.Second).Catalog()

	a, ok := cat.Find("网络测试")
	require.True(t, ok)
	assert.Equal(t, int64(1), a.BotID)

	a, ok = cat.Find("traceroute")
	require.True(t, ok)
	assert.Equal(t, int64(2), a.BotID)

	_, ok = cat.Find("weather")
	assert.False(t, ok, "lookup is case-sensitive")

	_, ok = cat.Find("翻译")
	assert.False(t, ok)

	assert.Equal(t, 3, cat.Len())
}

func TestCatalog_IsImmutable(t *testing.T) {
	src := []Action{{BotID: 1, Desc: "x"}}
	cat := NewCatalog(src)
	src[0].Desc = "changed"

	all := cat.All()
	all[0].Desc = "also changed"

	a, ok := cat.Find("x")
	require.True(t, ok)
	assert.Equal(t, "x", a.Desc)
}

func TestCatalog_Nil(t *testing.T) {
	var cat *Catalog
	_, ok := cat.Find("x")
	assert.False(t, ok)
	assert.Zero(t, cat.Len())
	assert.Nil(t, cat.All())
}
