package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/recipeapp/apiserver/internal/services"
	"github.com/recipeapp/apiserver/internal/store"
	"github.com/stretchr/testify/require"
)

func TestParseIDList(t *testing.T) {
	ids, err := parseIDList("")
	require.NoError(t, err)
	require.Nil(t, ids)

	ids, err = parseIDList("3, 1,2")
	require.NoError(t, err)
	require.Equal(t, []int{3, 1, 2}, ids)

	for _, raw := range []string{"1,,2", "a", "0", "-4", "1.5"} {
		_, err := parseIDList(raw)
		require.Error(t, err, raw)
	}
}

func TestUserIDFromContext(t *testing.T) {
	id, err := userIDFromContext(context.WithValue(context.Background(), contextSubjectKey, "12"))
	require.NoError(t, err)
	require.Equal(t, 12, id)

	_, err = userIDFromContext(context.WithValue(context.Background(), contextSubjectKey, "0"))
	require.Error(t, err)

	_, err = userIDFromContext(context.Background())
	require.Error(t, err)
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		body   string
	}{
		{err: store.ErrNotFound, status: http.StatusNotFound, body: `{"error":"not found"}`},
		{
			err:    &services.UnknownReferenceError{Field: "tags"},
			status: http.StatusBadRequest,
			body:   `{"error":"validation failed","fields":{"tags":"invalid id, object does not exist"}}`,
		},
		{
			err:    services.ErrInvalidImage,
			status: http.StatusBadRequest,
			body:   `{"error":"validation failed","fields":{"image":"` + services.ErrInvalidImage.Error() + `"}}`,
		},
		{err: errors.New("connection reset"), status: http.StatusInternalServerError, body: `{"error":"boom"}`},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		respondError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err, "boom")
		require.Equal(t, tt.status, rec.Code)
		require.JSONEq(t, tt.body, rec.Body.String())
	}
}

func TestSanitizeText(t *testing.T) {
	require.Equal(t, "Fish & Chips", sanitizeText("  <script>alert(1)</script>Fish &amp; <b>Chips</b> "))
	require.Equal(t, "plain", sanitizeText("plain"))
}

func TestValidatorMessages(t *testing.T) {
	fields := validate.Struct(CreateUserRequest{Email: "nope", Password: "123"})
	require.Equal(t, "enter a valid email address", fields["email"])
	require.Equal(t, "ensure this field has at least 6 characters", fields["password"])

	require.Nil(t, validate.Struct(CreateUserRequest{Email: "a@b.co", Password: "123456"}))

	fields = validate.Struct(RecipeRequest{})
	require.Equal(t, "this field is required", fields["title"])
	require.Contains(t, fields, "time_minutes")
	require.Contains(t, fields, "price")
	require.NotContains(t, fields, "link")
}

func TestValidatorRejectsBlankTitle(t *testing.T) {
	blank := ""
	fields := validate.Struct(PatchRecipeRequest{Title: &blank})
	require.Equal(t, "this field may not be blank", fields["title"])

	require.Nil(t, validate.Struct(PatchRecipeRequest{}))
}

func TestValidLink(t *testing.T) {
	for _, ok := range []string{"", "https://example.com/recipe", "http://example.com"} {
		require.True(t, validLink(ok), ok)
	}
	for _, bad := range []string{"not a url", "example.com", "javascript:alert(1)", "/relative"} {
		require.False(t, validLink(bad), bad)
	}
}
