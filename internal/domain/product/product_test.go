package product

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/db"
)

func TestImage_WithBaseURL(t *testing.T) {
	img := Image{
		Thumbnail: "serum-thumb.jpg",
		Mobile:    "/serum-mobile.jpg",
		Tablet:    "https://cdn.other.example/serum-tablet.jpg",
	}

	got := img.WithBaseURL("https://cdn.example.com/images/")

	assert.Equal(t, "https://cdn.example.com/images/serum-thumb.jpg", got.Thumbnail)
	assert.Equal(t, "https://cdn.example.com/images/serum-mobile.jpg", got.Mobile)
	assert.Equal(t, "https://cdn.other.example/serum-tablet.jpg", got.Tablet)
	assert.Empty(t, got.Desktop)
	assert.Equal(t, img, img.WithBaseURL(""))
}

func TestDecodeCatalog(t *testing.T) {
	data := []byte(`[
		{"id": "serum", "name": "Sérum", "price": "129.90", "category": "skincare",
		 "image": {"thumbnail": "t.webp", "desktop": "d.webp", "extra": 1}},
		{"id": "oleo", "name": "Óleo", "price": 59.5, "category": "cabelo", "stock": 3}
	]`)

	got, err := DecodeCatalog(data)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "serum", got[0].ID)
	assert.Equal(t, "129.9", got[0].Price.String())
	assert.Equal(t, "t.webp", got[0].Image.Thumbnail)
	assert.Equal(t, "d.webp", got[0].Image.Desktop)
	assert.Equal(t, "59.5", got[1].Price.String())
	assert.Equal(t, "cabelo", got[1].Category)
}

func TestDecodeCatalog_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not an array", data: `{"id": "x"}`},
		{name: "missing id", data: `[{"name": "x", "price": 1}]`},
		{name: "bad price", data: `[{"id": "x", "price": "abc"}]`},
		{name: "price type", data: `[{"id": "x", "price": true}]`},
		{name: "negative price", data: `[{"id": "x", "price": -1}]`},
		{name: "truncated", data: `[{"id": "x"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCatalog([]byte(tt.data))
			require.Error(t, err)
		})
	}
}

func TestDecodeCatalog_Embedded(t *testing.T) {
	got, err := DecodeCatalog(db.SeedProducts)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	for _, p := range got {
		assert.NotEmpty(t, p.ID)
		assert.True(t, p.Price.IsPositive(), p.ID)
	}
}
