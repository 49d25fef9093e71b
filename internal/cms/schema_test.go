package cms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productAttributes = `{
	"Name": {"type": "string", "required": true},
	"slug": {"type": "uid"},
	"quantity": {"type": "integer"},
	"active": {"type": "boolean"},
	"kind": {"type": "enumeration", "enum": ["digital", "physical"]},
	"Thumbnail": {"type": "media"},
	"stores": {"type": "relation", "relation": "manyToMany"}
}`

func TestSchemaFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/content-type-builder/content-types/api::product.product", r.URL.Path)
		w.Write([]byte(`{"data":{"uid":"api::product.product","schema":{"attributes":` + productAttributes + `}}}`))
	}))
	defer srv.Close()

	attrs, err := NewClient(srv.URL, "", 0).Schema(context.Background(), "product")
	require.NoError(t, err)
	assert.JSONEq(t, productAttributes, string(attrs))
}

func TestSchemaFetchWithoutAttributes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", 0).Schema(context.Background(), "product")
	assert.Error(t, err)
}

func TestCompiledSchemaValidates(t *testing.T) {
	doc, err := JSONSchema([]byte(productAttributes))
	require.NoError(t, err)

	v, err := CompileSchema("product", doc)
	require.NoError(t, err)

	tests := []struct {
		name  string
		data  string
		valid bool
	}{
		{"complete", `{"Name":"Mug","slug":"mug","quantity":2,"active":true,"kind":"physical","Thumbnail":{"url":"/m.png"}}`, true},
		{"nulls allowed", `{"Name":"Mug","quantity":null,"kind":null}`, true},
		{"missing required", `{"slug":"mug"}`, false},
		{"wrong type", `{"Name":"Mug","quantity":"two"}`, false},
		{"fractional integer", `{"Name":"Mug","quantity":1.5}`, false},
		{"unknown enum", `{"Name":"Mug","kind":"service"}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate([]byte(tt.data))
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestJSONSchemaRejectsNonObject(t *testing.T) {
	_, err := JSONSchema([]byte(`[]`))
	assert.Error(t, err)
}
