package errors_test

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	arborerr "github.com/roach88/arbor/pkg/errors"
)

func TestNewIncludesCodeAndFields(t *testing.T) {
	err := arborerr.New(
		arborerr.CodeSchemaEntityNotFound,
		"unknown entity",
		arborerr.FieldEntity("Category"),
		arborerr.Field("dir", "schemas"),
		arborerr.Field("", "dropped"),
	)

	require.Error(t, err)
	assert.Equal(t, arborerr.CodeSchemaEntityNotFound, arborerr.CodeOf(err))
	assert.True(t, arborerr.HasCode(err, arborerr.CodeSchemaEntityNotFound))
	assert.Contains(t, err.Error(), "unknown entity")

	fields := arborerr.FieldsOf(err)
	assert.Equal(t, "Category", fields["entity"])
	assert.Equal(t, "schemas", fields["dir"])
	assert.NotContains(t, fields, "")
}

func TestErrorfWrapsInnerError(t *testing.T) {
	inner := stderrors.New("disk full")
	err := arborerr.Errorf(arborerr.CodeStoreOpenFailure, "open %s: %w", "arbor.db", inner)

	require.Error(t, err)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, arborerr.CodeStoreOpenFailure, arborerr.CodeOf(err))
	assert.Contains(t, err.Error(), "open arbor.db: disk full")
}

func TestWrap(t *testing.T) {
	inner := stderrors.New("no such table")

	err := arborerr.Wrap(inner, arborerr.CodeCLIQueryFailure, "find roots", arborerr.FieldEntity("PathCategory"))
	require.Error(t, err)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, arborerr.CodeCLIQueryFailure, arborerr.CodeOf(err))
	assert.Equal(t, "PathCategory", arborerr.FieldsOf(err)["entity"])

	err = arborerr.Wrapf(inner, arborerr.CodeStoreMigrateFailure, "migrate %s", "sqlite3")
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "migrate sqlite3")

	assert.NoError(t, arborerr.Wrap(nil, arborerr.CodeCLIQueryFailure, "nothing"))
	assert.NoError(t, arborerr.Wrapf(nil, arborerr.CodeCLIQueryFailure, "nothing"))
}

func TestClassification(t *testing.T) {
	testCases := []struct {
		code         arborerr.Code
		notFound     bool
		invalidInput bool
	}{
		{arborerr.CodeSchemaEntityNotFound, true, false},
		{arborerr.CodeCLINodeNotFound, true, false},
		{arborerr.CodeConfigValidateInvalidValue, false, true},
		{arborerr.CodeConfigParseInvalidFormat, false, true},
		{arborerr.CodeSchemaCompileInvalid, false, true},
		{arborerr.CodeCLIInputInvalid, false, true},
		{arborerr.CodeStoreOpenFailure, false, false},
	}

	for _, tc := range testCases {
		t.Run(string(tc.code), func(t *testing.T) {
			err := arborerr.New(tc.code, "boom")
			assert.Equal(t, tc.notFound, arborerr.IsNotFound(err))
			assert.Equal(t, tc.invalidInput, arborerr.IsInvalidInput(err))
		})
	}
}

func TestPlainErrorsHaveNoCode(t *testing.T) {
	plain := stderrors.New("plain")

	assert.Equal(t, arborerr.Code(""), arborerr.CodeOf(plain))
	assert.Equal(t, arborerr.Code(""), arborerr.CodeOf(nil))
	assert.Nil(t, arborerr.FieldsOf(plain))
	assert.Nil(t, arborerr.FieldsOf(nil))
	assert.False(t, arborerr.HasCode(nil, arborerr.CodeStoreOpenFailure))
	assert.False(t, arborerr.IsNotFound(plain))
}
