package ordering

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/profilemedia-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/profilemedia-backend/pkg/errors"
)

var (
	idA = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	idB = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	idC = uuid.MustParse("33333333-3333-3333-3333-333333333333")
)

func raw(s string) json.RawMessage { return json.RawMessage(s) }

func TestDecodeFlatList(t *testing.T) {
	in, err := DecodeInput(raw(`["`+idB.String()+`", {"id":"`+idA.String()+`"}, "`+idB.String()+`"]`), nil)
	require.NoError(t, err)
	assert.Equal(t, ShapeFlat, in.Shape)
	assert.Equal(t, []uuid.UUID{idB, idA, idB}, in.IDs)

	steps := in.Steps()
	require.Len(t, steps, 2)
	assert.Equal(t, idB, steps[0].ID)
	assert.Nil(t, steps[0].Category)
	assert.Equal(t, idA, steps[1].ID)
}

func TestDecodeGroupedKeepsWireOrder(t *testing.T) {
	body := `{"vehicle":["` + idC.String() + `"],"gallery":[{"id":"` + idA.String() + `"},"` + idB.String() + `"]}`
	in, err := DecodeInput(raw(body), nil)
	require.NoError(t, err)
	require.Equal(t, ShapeGrouped, in.Shape)
	require.Len(t, in.Groups, 2)
	assert.Equal(t, enums.CategoryVehicle, in.Groups[0].Category)
	assert.Equal(t, enums.CategoryGallery, in.Groups[1].Category)

	steps := in.Steps()
	require.Len(t, steps, 3)
	assert.Equal(t, []uuid.UUID{idC, idA, idB}, []uuid.UUID{steps[0].ID, steps[1].ID, steps[2].ID})
	assert.Equal(t, enums.CategoryVehicle, *steps[0].Category)
	assert.Equal(t, enums.CategoryGallery, *steps[2].Category)
}

func TestDecodeExplicitCategoriesOverrideGroupKey(t *testing.T) {
	body := `{"gallery":["` + idA.String() + `","` + idB.String() + `"]}`
	cats := `{"` + idB.String() + `":"featured_image"}`
	in, err := DecodeInput(raw(body), raw(cats))
	require.NoError(t, err)

	steps := in.Steps()
	require.Len(t, steps, 2)
	assert.Equal(t, enums.CategoryGallery, *steps[0].Category)
	assert.Equal(t, enums.CategoryFeatured, *steps[1].Category)
}

func TestDecodeEmptyPayloads(t *testing.T) {
	for _, body := range []string{"", "null", `""`, "   "} {
		in, err := DecodeInput(raw(body), raw("null"))
		require.NoError(t, err, "body %q", body)
		assert.Equal(t, ShapeFlat, in.Shape)
		assert.Empty(t, in.Steps())
	}
}

func TestDecodeRejectsBadInput(t *testing.T) {
	cases := map[string][2]string{
		"scalar order":      {`42`, ""},
		"numeric id":        {`[5, 3]`, ""},
		"malformed uuid":    {`["not-an-id"]`, ""},
		"unknown group":     {`{"selfies":[]}`, ""},
		"group not a list":  {`{"gallery":"` + idA.String() + `"}`, ""},
		"bad assignment":    {`[]`, `{"` + idA.String() + `":"selfies"}`},
		"assignment not id": {`[]`, `{"x":"gallery"}`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeInput(raw(tc[0]), raw(tc[1]))
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
}
