package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Email  string `json:"email" validate:"required,email"`
	Name   string `json:"firstName" validate:"required,max=5"`
	Photo  string `json:"photo" validate:"omitempty,url"`
	Hidden string `json:"-" validate:"omitempty"`
}

func TestStruct(t *testing.T) {
	require.NoError(t, Struct(signup{Email: "a@b.co", Name: "Ada"}, nil))

	err := Struct(signup{Email: "nope", Name: "Adalovelace", Photo: "not a url"}, Messages{
		"photo.url": "Profile photo must be a valid URL",
	})
	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "email must be a valid email address", verr.Fields["email"])
	assert.Equal(t, "firstName must be at most 5 characters", verr.Fields["firstName"])
	assert.Equal(t, "Profile photo must be a valid URL", verr.Fields["photo"])
	assert.Equal(t, verr.Fields, verr.FieldErrors())
}

func TestStructFieldMessageOverride(t *testing.T) {
	err := Struct(signup{}, Messages{"email": "Email is required"})
	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Email is required", verr.Fields["email"])
	assert.Equal(t, "firstName is required", verr.Fields["firstName"])
	assert.Equal(t, "Email is required; firstName is required", verr.Error())
}

func TestMerge(t *testing.T) {
	err := Merge(nil, map[string]string{"salesData": "bad"})
	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "bad", verr.Fields["salesData"])

	err = Merge(Struct(signup{}, nil), map[string]string{"email": "ignored", "extra": "x"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "email is required", verr.Fields["email"])
	assert.Equal(t, "x", verr.Fields["extra"])

	assert.NoError(t, Merge(nil, nil))

	plain := errors.New("boom")
	assert.Equal(t, plain, Merge(plain, map[string]string{"a": "b"}))
}
