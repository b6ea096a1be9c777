package clusters

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWithHeader(t *testing.T) {
	input := "cluster_rep\tcluster_member\tscore\n" +
		"a\ta\t1.0\n" +
		"a\tb\t0.9\n" +
		"cluster_rep\tcluster_member\tscore\n" +
		"c\tc\t1.0\n"

	set, err := Parse(strings.NewReader(input), nil)
	require.NoError(t, err)

	assert.Equal(t, 2, set.Len())
	assert.Equal(t, 3, set.TotalMembers())
	assert.Equal(t, []string{"a", "c"}, set.Reps())
	assert.Equal(t, []string{"cluster_rep", "cluster_member", "score"}, set.Fields)

	a, ok := set.Get("a")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, a.MemberNames())
	assert.Equal(t, "0.9", a.Members[1].Extra["score"])
	assert.True(t, a.Contains("b"))
	assert.False(t, a.Contains("c"))

	rep, ok := set.RepOf("b")
	assert.True(t, ok)
	assert.Equal(t, "a", rep)
}

func TestParseExplicitFields(t *testing.T) {
	input := "x\trep1\n" + "y\trep1\n"

	set, err := Parse(strings.NewReader(input), []string{"cluster_member", "cluster_rep"})
	require.NoError(t, err)

	c, ok := set.Get("rep1")
	require.True(t, ok)
	assert.Equal(t, []string{"x", "y"}, c.MemberNames())
	assert.Nil(t, c.Members[0].Extra)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		fields []string
		err    error
	}{
		{"duplicate member", "cluster_rep\tcluster_member\na\tx\nb\tx\n", nil, ErrDuplicateMember},
		{"duplicate within cluster", "cluster_rep\tcluster_member\na\tx\na\tx\n", nil, ErrDuplicateMember},
		{"field count", "cluster_rep\tcluster_member\na\tx\tz\n", nil, ErrFieldCount},
		{"no header", "a\tx\n", nil, ErrMissingHeader},
		{"empty input", "", nil, ErrMissingHeader},
		{"missing member field", "cluster_rep\tother\na\tx\n", nil, ErrMissingField},
		{"missing rep field", "x\n", []string{"cluster_member"}, ErrMissingField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input), tt.fields)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestParseFileMissing(t *testing.T) {
	_, err := ParseFile("/nonexistent/clusters.tsv", nil)
	assert.Error(t, err)
}
