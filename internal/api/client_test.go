package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamaolink/excalidraw/internal/api"
	"github.com/bamaolink/excalidraw/internal/api/apitest"
)

type staticCreds struct {
	token, user string
	err         error
}

func (s *staticCreds) Credentials(context.Context) (string, string, error) {
	return s.token, s.user, s.err
}

func newClient(t *testing.T, creds api.CredentialSource) (*api.Client, *apitest.Server) {
	t.Helper()
	srv := apitest.New()
	t.Cleanup(srv.Close)
	return api.New(srv.BaseURL(), creds), srv
}

func TestDo_SendsCredentialHeaders(t *testing.T) {
	c, srv := newClient(t, &staticCreds{token: "tok-1", user: "ada"})

	env, err := c.ListDocuments(context.Background())
	require.NoError(t, err)
	require.NoError(t, env.Err())

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodGet, reqs[0].Method)
	assert.Equal(t, "/excalidraw/all", reqs[0].Path)
	assert.Equal(t, "tok-1", reqs[0].Token)
	assert.Equal(t, "ada", reqs[0].User)
	assert.NotEmpty(t, reqs[0].RequestID)
	assert.Empty(t, reqs[0].Body)
}

func TestDo_AbsentCredentialsSendEmptyHeaders(t *testing.T) {
	c, srv := newClient(t, nil)

	_, err := c.ListDocuments(context.Background())
	require.NoError(t, err)

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "", reqs[0].Token)
	assert.Equal(t, "", reqs[0].User)
}

func TestDo_CredentialsReadPerRequest(t *testing.T) {
	creds := &staticCreds{}
	c, srv := newClient(t, creds)

	_, err := c.ListDocuments(context.Background())
	require.NoError(t, err)
	creds.token, creds.user = "tok-2", "bob"
	_, err = c.ListDocuments(context.Background())
	require.NoError(t, err)

	reqs := srv.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "", reqs[0].Token)
	assert.Equal(t, "tok-2", reqs[1].Token)
	assert.Equal(t, "bob", reqs[1].User)
	assert.NotEqual(t, reqs[0].RequestID, reqs[1].RequestID)
}

func TestDo_CredentialErrorAbortsRequest(t *testing.T) {
	c, srv := newClient(t, &staticCreds{err: errors.New("db locked")})

	_, err := c.ListDocuments(context.Background())
	require.Error(t, err)
	assert.Empty(t, srv.Requests())
}

func TestDo_NonSuccessStatusIsHTTPError(t *testing.T) {
	c, srv := newClient(t, nil)
	srv.FailStatus("/excalidraw/all", http.StatusBadGateway)

	_, err := c.ListDocuments(context.Background())
	var he *api.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadGateway, he.Status)
	assert.Equal(t, "/excalidraw/all", he.Path)
}

func TestDo_AppCodeIsNotTransportError(t *testing.T) {
	c, srv := newClient(t, nil)
	srv.FailCode("/excalidraw/create", 40001, "标题过长")

	env, err := c.CreateDocument(context.Background(), "x", "{}")
	require.NoError(t, err)
	assert.False(t, env.OK())

	var ae *api.AppError
	require.ErrorAs(t, env.Err(), &ae)
	assert.Equal(t, 40001, ae.Code)
	assert.Equal(t, "标题过长", ae.Msg)
}

func TestDo_FailureDataOfAnyShapeKeepsAppError(t *testing.T) {
	c, srv := newClient(t, nil)
	srv.RespondRaw("/excalidraw/update", `{"code":1,"msg":"标题不能为空","data":""}`)
	srv.RespondRaw("/excalidraw/all", `{"code":"3","msg":"登录过期","data":[1,"x"]}`)

	env, err := c.UpdateDocument(context.Background(), 1, "", "{}")
	require.NoError(t, err)
	var ae *api.AppError
	require.ErrorAs(t, env.Err(), &ae)
	assert.Equal(t, 1, ae.Code)
	assert.Equal(t, "标题不能为空", ae.Msg)

	list, err := c.ListDocuments(context.Background())
	require.NoError(t, err)
	require.ErrorAs(t, list.Err(), &ae)
	assert.Equal(t, "登录过期", ae.Msg)
	assert.Empty(t, list.Data)
}

func TestDo_MalformedSuccessDataIsError(t *testing.T) {
	c, srv := newClient(t, nil)
	srv.RespondRaw("/excalidraw/create", `{"code":0,"msg":"","data":"oops"}`)

	_, err := c.CreateDocument(context.Background(), "x", "{}")
	require.Error(t, err)
	var ae *api.AppError
	assert.False(t, errors.As(err, &ae))
}

func TestNew_TimeoutIndependentOfOptionOrder(t *testing.T) {
	hc := &http.Client{}
	a := api.New("http://example.invalid", nil, api.WithTimeout(2*time.Second), api.WithHTTPClient(hc))
	b := api.New("http://example.invalid", nil, api.WithHTTPClient(hc), api.WithTimeout(2*time.Second))

	assert.Equal(t, 2*time.Second, a.HTTP.Timeout)
	assert.Equal(t, 2*time.Second, b.HTTP.Timeout)
	assert.Zero(t, hc.Timeout, "caller's client must not be modified")
}

func TestDo_MalformedBodyIsError(t *testing.T) {
	c, srv := newClient(t, nil)
	srv.RespondRaw("/excalidraw/all", `{"code":0,"data":[`)

	_, err := c.ListDocuments(context.Background())
	require.Error(t, err)

	var he *api.HTTPError
	assert.False(t, errors.As(err, &he))
}

func TestDo_BodyRejectedOnGet(t *testing.T) {
	c, srv := newClient(t, nil)

	_, err := api.Do[json.RawMessage](context.Background(), c, http.MethodGet, "/excalidraw/all", map[string]string{"a": "b"})
	require.Error(t, err)
	assert.Empty(t, srv.Requests())
}

func TestEnvelope_StringCode(t *testing.T) {
	var env api.Envelope[json.RawMessage]
	require.NoError(t, json.Unmarshal([]byte(`{"code":"0","msg":"ok","data":null}`), &env))
	assert.True(t, env.OK())

	require.NoError(t, json.Unmarshal([]byte(`{"code":"7","msg":"bad"}`), &env))
	assert.False(t, env.OK())
	assert.EqualError(t, env.Err(), "api error code 7: bad")
}

func TestRepository_DocumentLifecycle(t *testing.T) {
	c, srv := newClient(t, &staticCreds{token: "tok-1", user: "ada"})
	ctx := context.Background()

	created, err := c.CreateDocument(ctx, "plan", `{"elements":[]}`)
	require.NoError(t, err)
	require.NoError(t, created.Err())
	assert.Positive(t, created.Data.ID)
	assert.Equal(t, "plan", created.Data.Title)

	updated, err := c.UpdateDocument(ctx, created.Data.ID, "plan v2", `{"elements":[1]}`)
	require.NoError(t, err)
	require.NoError(t, updated.Err())
	assert.Equal(t, "plan v2", updated.Data.Title)

	list, err := c.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, list.Data, 1)
	assert.False(t, list.Data[0].IsEditing)
	assert.False(t, list.Data[0].Disabled)

	deleted, err := c.DeleteDocument(ctx, created.Data.ID)
	require.NoError(t, err)
	require.NoError(t, deleted.Err())
	assert.Empty(t, srv.Documents())

	reqs := srv.Requests()
	require.Len(t, reqs, 4)
	assert.Equal(t, http.MethodPut, reqs[1].Method)
	assert.Equal(t, "/excalidraw/update/1", reqs[1].Path)
	assert.JSONEq(t, `{"title":"plan v2","content":"{\"elements\":[1]}"}`, reqs[1].Body)
	assert.Equal(t, http.MethodDelete, reqs[3].Method)
	assert.Empty(t, reqs[3].Body)
}

func TestRepository_SignIn(t *testing.T) {
	c, srv := newClient(t, nil)

	env, err := c.SignIn(context.Background(), srv.Email, srv.Password)
	require.NoError(t, err)
	require.NoError(t, env.Err())
	assert.Equal(t, srv.Token, env.Data.Token)
	assert.Equal(t, srv.Name, env.Data.Name)

	env, err = c.SignIn(context.Background(), srv.Email, "nope")
	require.NoError(t, err)
	assert.Error(t, env.Err())
}

func TestRepository_UserInfoCachedPerToken(t *testing.T) {
	creds := &staticCreds{token: "tok-1", user: "ada"}
	c, srv := newClient(t, creds)
	ctx := context.Background()

	for range 3 {
		env, err := c.UserInfo(ctx)
		require.NoError(t, err)
		require.NoError(t, env.Err())
		assert.Equal(t, "ada", env.Data.Name)
	}
	assert.Len(t, srv.Requests(), 1)

	// Sign-out drops the cache.
	_, err := c.SignOut(ctx)
	require.NoError(t, err)
	_, err = c.UserInfo(ctx)
	require.NoError(t, err)
	assert.Len(t, srv.Requests(), 3)
}

func TestRepository_UserInfoFailureNotCached(t *testing.T) {
	creds := &staticCreds{token: "wrong"}
	c, srv := newClient(t, creds)
	ctx := context.Background()

	env, err := c.UserInfo(ctx)
	require.NoError(t, err)
	require.Error(t, env.Err())

	creds.token = srv.Token
	env, err = c.UserInfo(ctx)
	require.NoError(t, err)
	require.NoError(t, env.Err())
}
