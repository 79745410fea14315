package httpx

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	domainauth "github.com/applyflow/applyflow-api/internal/domain/auth"
	"github.com/applyflow/applyflow-api/internal/domain/model"
	apperrors "github.com/applyflow/applyflow-api/internal/errors"
	"github.com/applyflow/applyflow-api/internal/mocks"
)

func newAuthEnv(t *testing.T, ctrl *gomock.Controller) *testEnv {
	t.Helper()
	return newRouterForTest(t,
		mocks.NewMockApplicationRepository(ctrl),
		mocks.NewMockUserRepository(ctrl),
		mocks.NewMockSessionStore(ctrl),
		&fakeQueue{},
	)
}

func TestRegister_Created(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	env := newAuthEnv(t, ctrl)

	env.Users.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ any, req *model.RegisterRequest, hash string) (*model.User, error) {
			assert.NotEqual(t, "hunter22!", hash)
			return &model.User{ID: testUserID, Username: req.Name, Email: req.Email}, nil
		})

	req := httptest.NewRequest(http.MethodPost, "/api/register",
		strings.NewReader(`{"name":"ada","email":"ada@example.com","password":"hunter22!"}`))
	rec := env.do(req)

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, testUserID, body["id"])
	assert.NotContains(t, rec.Body.String(), "hunter22!")
}

func TestRegister_ValidationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	env := newAuthEnv(t, ctrl)

	req := httptest.NewRequest(http.MethodPost, "/api/register",
		strings.NewReader(`{"name":"ada","email":"ada@example.com","password":"short"}`))
	rec := env.do(req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "validation", body["error"])
	assert.Equal(t, "password", body["field"])
}

func TestRegister_DuplicateEmail(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	env := newAuthEnv(t, ctrl)

	env.Users.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, apperrors.Conflict("email already registered"))

	req := httptest.NewRequest(http.MethodPost, "/api/register",
		strings.NewReader(`{"name":"ada","email":"ada@example.com","password":"hunter22!"}`))
	rec := env.do(req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLogin_SetsSessionCookie(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	env := newAuthEnv(t, ctrl)

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22!"), bcrypt.MinCost)
	require.NoError(t, err)

	env.Users.EXPECT().GetByEmail(gomock.Any(), "ada@example.com").Return(&model.User{
		ID:           testUserID,
		Username:     "ada",
		Email:        "ada@example.com",
		PasswordHash: string(hash),
	}, nil)
	env.Sessions.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/login",
		strings.NewReader(`{"email":"ada@example.com","password":"hunter22!"}`))
	rec := env.do(req)

	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "session_id", cookies[0].Name)
	assert.NotEmpty(t, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestLogin_WrongPassword(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	env := newAuthEnv(t, ctrl)

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22!"), bcrypt.MinCost)
	require.NoError(t, err)

	env.Users.EXPECT().GetByEmail(gomock.Any(), "ada@example.com").Return(&model.User{
		ID:           testUserID,
		PasswordHash: string(hash),
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/login",
		strings.NewReader(`{"email":"ada@example.com","password":"wrong-password"}`))
	rec := env.do(req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogin_UnknownEmail_SameResponseAsWrongPassword(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	env := newAuthEnv(t, ctrl)

	env.Users.EXPECT().GetByEmail(gomock.Any(), "ghost@example.com").
		Return(nil, apperrors.NotFound("user not found"))

	req := httptest.NewRequest(http.MethodPost, "/api/login",
		strings.NewReader(`{"email":"ghost@example.com","password":"whatever1"}`))
	rec := env.do(req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "invalid email or password", body["message"])
}

func TestLogout_ClearsCookie(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	env := newAuthEnv(t, ctrl)

	env.Sessions.EXPECT().Delete(gomock.Any(), testSessionID).Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/logout", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: testSessionID})
	rec := env.do(req)

	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestLogout_WithoutSessionIsIdempotent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	env := newAuthEnv(t, ctrl)

	rec := env.do(httptest.NewRequest(http.MethodPost, "/api/logout", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuth_ExpiredSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	env := newAuthEnv(t, ctrl)

	env.Sessions.EXPECT().Get(gomock.Any(), testSessionID).Return(domainauth.Session{
		ID:        testSessionID,
		UserID:    testUserID,
		ExpiresAt: timeInPast(),
	}, nil)
	env.Sessions.EXPECT().Delete(gomock.Any(), testSessionID).Return(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: testSessionID})
	rec := env.do(req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
