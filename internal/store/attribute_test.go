package store

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/recipeapp/apiserver/types"
	"github.com/stretchr/testify/require"
)

func TestAttributeList_ScopedAndOrdered(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAttributeRepository(db)

	q := `(?s)FROM\s+tags\s+a\s+WHERE\s+a\.user_id\s*=\s*\$1\s+ORDER\s+BY\s+a\.name\s+DESC,\s*a\.id\s+DESC`
	mock.ExpectQuery(q).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "user_id"}).
			AddRow(2, "Vegan", 7).
			AddRow(1, "Dessert", 7))

	got, err := repo.List(context.Background(), types.AttributeTag, 7, false)
	require.NoError(t, err)
	require.Equal(t, []types.Attribute{
		{ID: 2, Name: "Vegan", UserID: 7},
		{ID: 1, Name: "Dessert", UserID: 7},
	}, got)
	expectationsMet(t, mock)
}

func TestAttributeList_AssignedOnly(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAttributeRepository(db)

	q := `(?s)FROM\s+ingredients\s+a.*AND\s+EXISTS\s*\(.*FROM\s+recipe_ingredients\s+l\s+JOIN\s+recipes\s+r.*l\.ingredient_id\s*=\s*a\.id\s+AND\s+r\.user_id\s*=\s*\$1`
	mock.ExpectQuery(q).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "user_id"}).AddRow(3, "Eggs", 7))

	got, err := repo.List(context.Background(), types.AttributeIngredient, 7, true)
	require.NoError(t, err)
	require.Len(t, got, 1)
	expectationsMet(t, mock)
}

func TestAttributeList_UnknownKind(t *testing.T) {
	db, _ := newMock(t)
	repo := NewAttributeRepository(db)

	_, err := repo.List(context.Background(), types.AttributeKind("colour"), 1, false)
	require.Error(t, err)
}

func TestAttributeCreate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAttributeRepository(db)

	mock.ExpectQuery(`(?s)INSERT\s+INTO\s+tags\s*\(name,\s*user_id\)`).
		WithArgs("Breakfast", 7).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

	got, err := repo.Create(context.Background(), types.AttributeTag, types.Attribute{Name: "Breakfast", UserID: 7})
	require.NoError(t, err)
	require.Equal(t, types.Attribute{ID: 11, Name: "Breakfast", UserID: 7}, got)
	expectationsMet(t, mock)
}

func TestAttributeCountOwned(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAttributeRepository(db)

	mock.ExpectQuery(`(?s)SELECT\s+COUNT\(\*\)\s+FROM\s+tags\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+id\s*=\s*ANY\(\$2\)`).
		WithArgs(7, pq.Array([]int64{1, 2})).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	got, err := repo.CountOwned(context.Background(), types.AttributeTag, 7, []int{1, 2})
	require.NoError(t, err)
	require.Equal(t, 1, got)

	got, err = repo.CountOwned(context.Background(), types.AttributeTag, 7, nil)
	require.NoError(t, err)
	require.Zero(t, got)
	expectationsMet(t, mock)
}
