package data

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndGetRun(t *testing.T) {
	db := setupTestDB(t)

	r := &Run{Input: "bcab", Output: "b", Steps: 3, Valid: true, Source: SourceServer}
	id, err := SaveRun(db, r)
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))
	assert.Equal(t, id, r.ID)

	got, err := GetRun(db, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "bcab", got.Input)
	assert.Equal(t, "b", got.Output)
	assert.Equal(t, 3, got.Steps)
	assert.True(t, got.Valid)
	assert.Empty(t, got.Error)
	assert.Equal(t, SourceServer, got.Source)
	assert.WithinDuration(t, time.Now(), got.CreatedAt, time.Minute)
}

func TestSaveRun_Defaults(t *testing.T) {
	db := setupTestDB(t)

	r := &Run{Input: "zabce", Error: "string is not valid"}
	_, err := SaveRun(db, r)
	require.NoError(t, err)
	assert.Equal(t, SourceCLI, r.Source)
	assert.False(t, r.CreatedAt.IsZero())

	got, err := GetRun(db, r.ID)
	require.NoError(t, err)
	assert.False(t, got.Valid)
	assert.Equal(t, "string is not valid", got.Error)
}

func TestSaveRun_Nil(t *testing.T) {
	db := setupTestDB(t)
	_, err := SaveRun(db, nil)
	assert.Error(t, err)

	_, err = SaveRun(nil, &Run{})
	assert.ErrorIs(t, err, ErrDBNotInitialized)
}

func TestGetRun_NotFound(t *testing.T) {
	db := setupTestDB(t)
	got, err := GetRun(db, 42)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListRuns_NewestFirst(t *testing.T) {
	db := setupTestDB(t)
	base := time.Now().UTC().Add(-time.Hour)

	for i, in := range []string{"a", "ab", "abc"} {
		_, err := SaveRun(db, &Run{
			Input:     in,
			Valid:     true,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	list, err := ListRuns(db, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "abc", list[0].Input)
	assert.Equal(t, "ab", list[1].Input)

	all, err := ListRuns(db, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSaveRuns(t *testing.T) {
	db := setupTestDB(t)

	runs := []*Run{
		{Input: "aba", Output: "b", Steps: 2, Valid: true},
		{Input: "x", Error: "string is not valid"},
	}
	require.NoError(t, SaveRuns(db, runs))

	list, err := ListRuns(db, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, r := range list {
		assert.Equal(t, SourceBatch, r.Source)
	}
}

func TestDeleteRuns(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, SaveRuns(db, []*Run{{Input: "a"}, {Input: "b"}}))

	n, err := DeleteRuns(db)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	list, err := ListRuns(db, 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRuns_NilDB(t *testing.T) {
	_, err := ListRuns(nil, 1)
	assert.ErrorIs(t, err, ErrDBNotInitialized)
	_, err = GetRun(nil, 1)
	assert.ErrorIs(t, err, ErrDBNotInitialized)
	_, err = DeleteRuns(nil)
	assert.ErrorIs(t, err, ErrDBNotInitialized)
	assert.ErrorIs(t, SaveRuns(nil, nil), ErrDBNotInitialized)
}
