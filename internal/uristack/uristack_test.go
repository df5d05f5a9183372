package uristack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_Simple(t *testing.T) {
	assert.Equal(t, []string{"list", "screen"}, Decode("list/screen"))
}

func TestDecode_EmptyPath(t *testing.T) {
	assert.Empty(t, Decode(""))
}

func TestDecode_SearchTermWithSlashes(t *testing.T) {
	stack := Decode("list/screen/search/small molecule/project_phase/rpp/50")
	require.Equal(t,
		[]string{"list", "screen", "search", "small molecule/project_phase", "rpp", "50"},
		stack)
}

func TestDecode_SearchAsLastSegment(t *testing.T) {
	// "search" with no following term decodes to an empty term entry.
	stack := Decode("list/screen/search")
	assert.Equal(t, []string{"list", "screen", "search", ""}, stack)
}

func TestDecode_MultipleSearchGroups(t *testing.T) {
	stack := Decode("list/well/search/plate=1/page/2/search/vendor a/vendor b/rpp/24")
	assert.Equal(t, []string{
		"list", "well",
		"search", "plate=1",
		"page", "2",
		"search", "vendor a/vendor b",
		"rpp", "24",
	}, stack)
}

func TestDecode_NoSearch(t *testing.T) {
	stack := Decode("screen/1000/summary/rpp/25/order/-date")
	assert.Equal(t, []string{"screen", "1000", "summary", "rpp", "25", "order", "-date"}, stack)
}

func TestEncode_RoundTrip(t *testing.T) {
	paths := []string{
		"list/screen/search/small molecule/project_phase/rpp/50",
		"list/library",
		"screensaveruser/sde4/groups",
		"list/well/search/plate/1/page/2",
	}
	for _, path := range paths {
		stack := Decode(path)
		assert.Equal(t, path, Encode(stack), "path %q", path)
		// Decoding an already-decoded stack's encoding is stable.
		assert.Equal(t, stack, Decode(Encode(stack)), "path %q", path)
	}
}

func TestEncode_TrailingEmptySearchTermIsStable(t *testing.T) {
	// A trailing "search" re-encodes with the empty term; further round
	// trips do not change the stack.
	stack := Decode("list/screen/search")
	assert.Equal(t, "list/screen/search/", Encode(stack))
	assert.Equal(t, stack, Decode(Encode(stack)))
}

func TestIsListArg(t *testing.T) {
	for _, a := range []string{"rpp", "page", "includes", "order", "log", "children", "search"} {
		assert.True(t, IsListArg(a), a)
	}
	assert.False(t, IsListArg("screen"))
	assert.False(t, IsListArg(""))
}
