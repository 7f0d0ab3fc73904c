package devstack

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aisocialapp/appcore/internal/platform"
	"github.com/aisocialapp/appcore/internal/platform/rest"
)

func TestParseQueryTopLevelConditions(t *testing.T) {
	values := url.Values{
		"username":        {"eq.ann"},
		"is_ai_generated": {"eq.false"},
		"order":           {"id.desc"},
		"limit":           {"20"},
		"offset":          {"40"},
	}

	q, err := ParseQuery("posts", values)
	require.NoError(t, err)
	assert.Equal(t, "posts", q.Collection)
	assert.Equal(t, int64(20), q.Limit)
	assert.Equal(t, int64(40), q.Offset)
	require.Len(t, q.Order, 1)
	assert.True(t, q.Order[0].Descending)

	and, ok := q.Filter.(platform.And)
	require.True(t, ok, "multiple top-level conditions combine with AND")
	require.Len(t, and, 2)
}

func TestParseQueryCoercesConditionValues(t *testing.T) {
	q, err := ParseQuery("posts", url.Values{"id": {"eq.10"}})
	require.NoError(t, err)
	eq, ok := q.Filter.(platform.Eq)
	require.True(t, ok)
	assert.Equal(t, int64(10), eq.Value)

	q, err = ParseQuery("posts", url.Values{"is_ai_generated": {"eq.true"}})
	require.NoError(t, err)
	eq = q.Filter.(platform.Eq)
	assert.Equal(t, true, eq.Value)
}

func TestParseQueryILikeTranslatesWildcards(t *testing.T) {
	q, err := ParseQuery("profiles", url.Values{"username": {"ilike.*bo*"}})
	require.NoError(t, err)

	ilike, ok := q.Filter.(platform.ILike)
	require.True(t, ok)
	assert.Equal(t, "username", ilike.Column)
	assert.Equal(t, "%bo%", ilike.Pattern)
}

func TestParseQueryInList(t *testing.T) {
	q, err := ParseQuery("posts", url.Values{"username": {"in.(ann,bob)"}})
	require.NoError(t, err)

	in, ok := q.Filter.(platform.In)
	require.True(t, ok)
	assert.Equal(t, []any{"ann", "bob"}, in.Values)
}

func TestParseQueryNestedBooleanGroups(t *testing.T) {
	values := url.Values{
		"or": {"(and(sender_username.eq.ann,receiver_username.eq.bob),and(sender_username.eq.bob,receiver_username.eq.ann))"},
	}

	q, err := ParseQuery("messages", values)
	require.NoError(t, err)

	or, ok := q.Filter.(platform.Or)
	require.True(t, ok)
	require.Len(t, or, 2)

	first, ok := or[0].(platform.And)
	require.True(t, ok)
	require.Len(t, first, 2)
	assert.Equal(t, platform.Eq{Column: "sender_username", Value: "ann"}, first[0])
	assert.Equal(t, platform.Eq{Column: "receiver_username", Value: "bob"}, first[1])
}

func TestParseQuerySelectProjection(t *testing.T) {
	q, err := ParseQuery("likes", url.Values{"select": {"id,post_id"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "post_id"}, q.Columns)
}

func TestParseQueryRejectsMalformedInput(t *testing.T) {
	cases := map[string]url.Values{
		"missing operator":   {"username": {"ann"}},
		"unknown operator":   {"username": {"gt.ann"}},
		"bad column name":    {"User-Name": {"eq.ann"}},
		"negative limit":     {"limit": {"-1"}},
		"non-numeric offset": {"offset": {"ten"}},
		"bad order dir":      {"order": {"id.sideways"}},
		"unparenthesized or": {"or": {"a.eq.1,b.eq.2"}},
		"empty group":        {"and": {"()"}},
	}
	for name, values := range cases {
		_, err := ParseQuery("posts", values)
		assert.Error(t, err, name)
	}
}

// Everything the client encoder emits must come back out of the parser
// with the same meaning.
func TestParseQueryRoundTripsClientEncoding(t *testing.T) {
	queries := []platform.Query{
		{
			Collection: "posts",
			// Conditions listed in the parser's sorted-key order so the
			// shapes compare equal.
			Filter: platform.And{
				platform.Eq{Column: "is_ai_generated", Value: false},
				platform.Eq{Column: "username", Value: "ann"},
			},
			Order: []platform.OrderBy{{Column: "id", Descending: true}},
			Limit: 20,
		},
		{
			Collection: "profiles",
			Filter:     platform.ILike{Column: "username", Pattern: "%bo%"},
		},
		{
			Collection: "messages",
			Filter: platform.Or{
				platform.And{
					platform.Eq{Column: "sender_username", Value: "ann"},
					platform.Eq{Column: "receiver_username", Value: "bob"},
				},
				platform.And{
					platform.Eq{Column: "sender_username", Value: "bob"},
					platform.Eq{Column: "receiver_username", Value: "ann"},
				},
			},
			Order: []platform.OrderBy{{Column: "created_at"}},
		},
		{
			Collection: "posts",
			Filter:     platform.In{Column: "username", Values: []any{"ann", "bob", "cal"}},
		},
	}

	for _, want := range queries {
		got, err := ParseQuery(want.Collection, rest.EncodeQuery(want))
		require.NoError(t, err, want.Collection)
		assert.Equal(t, want.Order, got.Order)
		assert.Equal(t, want.Limit, got.Limit)
		assertFilterEquivalent(t, want.Filter, got.Filter)
	}
}

// assertFilterEquivalent compares filters while tolerating the one place
// the round trip changes shape: a single-element And collapses to its
// only condition.
func assertFilterEquivalent(t *testing.T, want, got platform.Filter) {
	t.Helper()
	if and, ok := want.(platform.And); ok && len(and) == 1 {
		want = and[0]
	}
	assert.Equal(t, want, got)
}
