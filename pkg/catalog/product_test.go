package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProduct_UnmarshalJSON(t *testing.T) {
	var p Product
	err := json.Unmarshal([]byte(`{
		"id":"x1","name":"Kurta","price":"1299","originalPrice":1599,
		"color":"blue","image":"k.jpg","reviewCount":"12","createdAt":"2024-05-01T10:00:00.000Z"
	}`), &p)
	require.NoError(t, err)

	assert.Equal(t, "x1", p.ID)
	assert.InDelta(t, 1299.0, p.Price, 0.001)
	assert.Equal(t, []string{"blue"}, p.Colors)
	assert.Equal(t, "k.jpg", p.Cover())
	assert.Equal(t, 12, p.ReviewCount)
	assert.Equal(t, 19, p.Discount())
	assert.Equal(t, 2024, p.CreatedAt.Year())
}

func TestDecodeEnvelopes(t *testing.T) {
	for _, body := range []string{
		`[{"_id":"a"}]`,
		`{"products":[{"_id":"a"}]}`,
		`{"items":[{"_id":"a"}]}`,
		`{"data":[{"_id":"a"}]}`,
	} {
		items, err := decodeList(json.RawMessage(body))
		require.NoError(t, err, body)
		require.Len(t, items, 1, body)
		assert.Equal(t, "a", items[0].ID)
	}

	_, err := decodeList(json.RawMessage(`{"total":3}`))
	assert.ErrorIs(t, err, ErrMalformedResponse)

	for _, body := range []string{`{"_id":"b"}`, `{"product":{"_id":"b"}}`, `{"data":{"_id":"b"}}`} {
		p, err := decodeItem(json.RawMessage(body))
		require.NoError(t, err, body)
		assert.Equal(t, "b", p.ID)
	}

	_, err = decodeItem(json.RawMessage(`{"message":"ok"}`))
	assert.ErrorIs(t, err, ErrMalformedResponse)
}
