package httpx

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/applyflow/applyflow-api/internal/domain/model"
	"github.com/applyflow/applyflow-api/internal/mocks"
)

func newProfileEnv(t *testing.T, ctrl *gomock.Controller) *testEnv {
	t.Helper()
	return newRouterForTest(t,
		mocks.NewMockApplicationRepository(ctrl),
		mocks.NewMockUserRepository(ctrl),
		mocks.NewMockSessionStore(ctrl),
		&fakeQueue{},
	)
}

func TestGetProfile_OK(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	env := newProfileEnv(t, ctrl)

	env.Users.EXPECT().GetByID(gomock.Any(), testUserID).Return(&model.User{
		ID:       testUserID,
		Username: "ada",
		Email:    "ada@example.com",
		Profile:  model.Profile{FullName: "Ada Lovelace", Skills: "Go, SQL"},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	rec := env.do(env.authedRequest(req, testUserID))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	profile, ok := body["profile"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Ada Lovelace", profile["full_name"])
}

func TestGetProfile_RequiresAuth(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	env := newProfileEnv(t, ctrl)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/profile", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpdateProfile_OK(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	env := newProfileEnv(t, ctrl)

	env.Users.EXPECT().GetByID(gomock.Any(), testUserID).
		Return(&model.User{ID: testUserID, Username: "ada"}, nil).Times(2)
	env.Users.EXPECT().UpdateProfile(gomock.Any(), testUserID, gomock.Any()).DoAndReturn(
		func(_ any, _ string, p model.Profile) error {
			assert.Equal(t, "Ada Lovelace", p.FullName)
			return nil
		})

	req := httptest.NewRequest(http.MethodPost, "/api/profile",
		strings.NewReader(`{"profile":{"full_name":"Ada Lovelace"}}`))
	rec := env.do(env.authedRequest(req, testUserID))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateProfile_WithCredentials_NeverEchoed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	env := newProfileEnv(t, ctrl)

	var stored string
	env.Users.EXPECT().GetByID(gomock.Any(), testUserID).DoAndReturn(
		func(any, string) (*model.User, error) {
			return &model.User{ID: testUserID, Credentials: stored}, nil
		}).Times(2)
	env.Users.EXPECT().UpdateProfile(gomock.Any(), testUserID, gomock.Any()).Return(nil)
	env.Users.EXPECT().UpdateCredentials(gomock.Any(), testUserID, gomock.Any()).DoAndReturn(
		func(_ any, _ string, encrypted string) error {
			stored = encrypted
			return nil
		})

	req := httptest.NewRequest(http.MethodPost, "/api/profile",
		strings.NewReader(`{"profile":{},"credentials":{"linkedin_password":"s3cret"}}`))
	rec := env.do(env.authedRequest(req, testUserID))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "s3cret")
	body := decodeBody(t, rec)
	keys, ok := body["credential_keys"].([]any)
	require.True(t, ok)
	assert.Equal(t, []any{"linkedin_password"}, keys)
}

func TestUploadResume_OK(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	env := newProfileEnv(t, ctrl)

	env.Users.EXPECT().GetByID(gomock.Any(), testUserID).Return(&model.User{ID: testUserID}, nil)
	env.Users.EXPECT().UpdateResumePath(gomock.Any(), testUserID, gomock.Any()).Return(nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("resume", "resume.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.7 fake"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload_resume", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := env.do(env.authedRequest(req, testUserID))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Contains(t, body["resume_path"], testUserID+".pdf")
}

func TestUploadResume_RejectsNonPDF(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	env := newProfileEnv(t, ctrl)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("resume", "resume.exe")
	require.NoError(t, err)
	_, err = part.Write([]byte("MZ"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload_resume", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := env.do(env.authedRequest(req, testUserID))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "resume", body["field"])
}

func TestUploadResume_MissingFile(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	env := newProfileEnv(t, ctrl)

	req := httptest.NewRequest(http.MethodPost, "/api/upload_resume", strings.NewReader("not multipart"))
	rec := env.do(env.authedRequest(req, testUserID))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
