package cms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestPlural(t *testing.T) {
	assert.Equal(t, "articles", Plural("article"))
	assert.Equal(t, "stores", Plural("store"))
	assert.Equal(t, "categories", Plural("category"))
	assert.Equal(t, "news", Plural("news"))
}

func TestFetchBuildsQuery(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Write([]byte(`{"data":[
			{"id":7,"documentId":"doc-b","Title":"Second"},
			{"id":8,"documentId":"doc-a","Title":"First"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "secret", 0)
	items, err := c.Fetch(context.Background(), Query{
		ContentType: "article",
		Filter:      "filters[store][slug][$eq]=shop",
		Populate:    []string{"SEO.socialImage", "Tags"},
		Sort:        "createdAt:DESC",
		Limit:       100,
	})
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, "/api/articles", got.URL.Path)
	q := got.URL.Query()
	assert.Equal(t, "shop", q.Get("filters[store][slug][$eq]"))
	assert.Equal(t, "SEO.socialImage,Tags", q.Get("populate"))
	assert.Equal(t, "createdAt:DESC", q.Get("sort"))
	assert.Equal(t, "100", q.Get("pagination[limit]"))
	assert.Equal(t, "Bearer secret", got.Header.Get("Authorization"))

	require.Len(t, items, 2)
	assert.Equal(t, "doc-b", items[0].ID)
	assert.Equal(t, "doc-a", items[1].ID)
	assert.Equal(t, "First", gjson.GetBytes(items[1].Data, "Title").String())
}

func TestFetchPagesThroughCollection(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		page, _ := strconv.Atoi(r.URL.Query().Get("pagination[page]"))
		w.Write([]byte(`{"data":[{"id":` + strconv.Itoa(page) + `}],"meta":{"pagination":{"page":` +
			strconv.Itoa(page) + `,"pageCount":3}}}`))
	}))
	defer srv.Close()

	items, err := NewClient(srv.URL, "", 0).Fetch(context.Background(), Query{ContentType: "product"})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	require.Len(t, items, 3)
	assert.Equal(t, "1", items[0].ID)
	assert.Equal(t, "3", items[2].ID)
}

func TestFetchSingleObjectAndMissingIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"title":"no id"},{"id":1},{"id":1,"dup":true}]}`))
	}))
	defer srv.Close()

	items, err := NewClient(srv.URL, "", 0).Fetch(context.Background(), Query{ContentType: "page", Limit: 10})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "1", items[0].ID)
}

func TestFetchErrors(t *testing.T) {
	t.Run("non-200", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL, "", 0).Fetch(context.Background(), Query{ContentType: "page"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "502")
	})

	t.Run("invalid json", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>`))
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL, "", 0).Fetch(context.Background(), Query{ContentType: "page"})
		assert.Error(t, err)
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewClient("http://127.0.0.1:1", "", 0).Fetch(ctx, Query{ContentType: "page"})
		assert.Error(t, err)
	})
}

func TestFlattenV4Envelopes(t *testing.T) {
	raw := `{
		"id": 3,
		"attributes": {
			"Title": "Hello",
			"cover": {"data": {"id": 9, "attributes": {"url": "/c.png"}}},
			"Tags": {"data": [{"id": 1, "attributes": {"name": "Shoes"}}]},
			"store": {"data": null},
			"SEO": {"metaDescription": "desc"}
		}
	}`
	flat := gjson.ParseBytes(Flatten(gjson.Parse(raw)))

	assert.Equal(t, int64(3), flat.Get("id").Int())
	assert.Equal(t, "Hello", flat.Get("Title").String())
	assert.Equal(t, "/c.png", flat.Get("cover.url").String())
	assert.Equal(t, int64(9), flat.Get("cover.id").Int())
	assert.Equal(t, "Shoes", flat.Get("Tags.0.name").String())
	assert.Equal(t, gjson.Null, flat.Get("store").Type)
	assert.Equal(t, "desc", flat.Get("SEO.metaDescription").String())
	assert.False(t, flat.Get("attributes").Exists())
}

func TestFlattenKeepsV5RecordsAndOddKeys(t *testing.T) {
	raw := `{"documentId":"x","a.b":1,"list":[1,"two",{"k":null}]}`
	flat := gjson.ParseBytes(Flatten(gjson.Parse(raw)))
	assert.JSONEq(t, raw, flat.Raw)
}
