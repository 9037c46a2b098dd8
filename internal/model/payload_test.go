package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserPayload_NumericStrings(t *testing.T) {
	var p UserPayload
	err := json.Unmarshal([]byte(`{"first_name":"John","role":"3","latitude":" 40.7128 ","longitude":"-74.006"}`), &p)
	require.NoError(t, err)

	require.NotNil(t, p.FirstName)
	assert.Equal(t, "John", *p.FirstName)
	require.NotNil(t, p.Role)
	assert.Equal(t, 3, *p.Role)
	require.NotNil(t, p.Latitude)
	assert.Equal(t, 40.7128, *p.Latitude)
	require.NotNil(t, p.Longitude)
	assert.Equal(t, -74.006, *p.Longitude)
}

func TestUserPayload_Numbers(t *testing.T) {
	var p UserPayload
	require.NoError(t, json.Unmarshal([]byte(`{"role":2,"latitude":-90,"longitude":180.0}`), &p))

	assert.Equal(t, 2, *p.Role)
	assert.Equal(t, -90.0, *p.Latitude)
	assert.Equal(t, 180.0, *p.Longitude)
	assert.Nil(t, p.Email)
}

func TestUserPayload_AbsentAndNull(t *testing.T) {
	var p UserPayload
	require.NoError(t, json.Unmarshal([]byte(`{"role":null,"email":"a@b.co"}`), &p))

	assert.Nil(t, p.Role)
	assert.Nil(t, p.Latitude)
	assert.Equal(t, "a@b.co", *p.Email)

	var empty UserPayload
	require.NoError(t, json.Unmarshal([]byte(`null`), &empty))
	assert.Nil(t, empty.FirstName)
}

func TestUserPayload_RejectsNonNumeric(t *testing.T) {
	cases := map[string]string{
		`{"role":"admin"}`:       "role",
		`{"role":3.5}`:           "role",
		`{"role":true}`:          "role",
		`{"latitude":"north"}`:   "latitude",
		`{"latitude":"NaN"}`:     "latitude",
		`{"longitude":"0x1p-2"}`: "longitude",
		`{"longitude":[1]}`:      "longitude",
		`{"first_name":12}`:      "first_name",
	}
	for body, field := range cases {
		var p UserPayload
		err := json.Unmarshal([]byte(body), &p)

		var typeErr *json.UnmarshalTypeError
		require.True(t, errors.As(err, &typeErr), "%s: got %v", body, err)
		assert.Equal(t, field, typeErr.Field, body)
	}
}
