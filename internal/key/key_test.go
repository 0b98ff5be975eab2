package key

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjoart/go-invest-ledger/internal/testutil"
	"github.com/zjoart/go-invest-ledger/internal/user"
	"github.com/zjoart/go-invest-ledger/pkg/utils"
)

func TestRepositoryRoundTrip(t *testing.T) {
	repo := NewRepository(testutil.NewTestDB(t, &APIKey{}))
	ctx := context.Background()
	owner := uuid.New()

	k := &APIKey{
		UserID:      owner,
		Name:        "reviewer bot",
		Key:         hashKey("ik_live_secret"),
		MaskedKey:   maskKey("ik_live_secret"),
		Permissions: PermissionList{"READ", "REVIEW"},
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	require.NoError(t, repo.CreateKey(ctx, k))

	found, err := repo.FindByKey(ctx, "ik_live_secret")
	require.NoError(t, err)
	assert.Equal(t, k.ID, found.ID)
	assert.Equal(t, PermissionList{"READ", "REVIEW"}, found.Permissions)

	count, err := repo.CountActiveKeys(ctx, owner)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	assert.ErrorIs(t, repo.RevokeKey(ctx, k.ID.String(), uuid.New()), ErrKeyNotFound)
	require.NoError(t, repo.RevokeKey(ctx, k.ID.String(), owner))

	count, err = repo.CountActiveKeys(ctx, owner)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	_, err = repo.FindByKey(ctx, "ik_live_other")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestCreateAPIKey(t *testing.T) {
	h := NewHandler(NewService(NewRepository(testutil.NewTestDB(t, &APIKey{})), 1))

	create := func(u user.User, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/keys", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req = req.WithContext(context.WithValue(req.Context(), utils.UserKey, u))
		rec := httptest.NewRecorder()
		h.CreateAPIKey(rec, req)
		return rec
	}

	agent := user.User{ID: uuid.New(), Role: user.RoleAgent}
	rec := create(agent, `{"name":"bot","permissions":["adjust"],"expiry":"1D"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = create(agent, `{"name":"bot","permissions":["transfer"],"expiry":"1D"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = create(agent, `{"name":"bot","permissions":["review"],"expiry":"1D"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp utils.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	data := resp.Data.(map[string]interface{})
	assert.True(t, strings.HasPrefix(data["apiKey"].(string), "ik_live_"))

	rec = create(agent, `{"name":"bot2","permissions":["read"],"expiry":"1D"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code, "active key limit")

	admin := user.User{ID: uuid.New(), Role: user.RoleAdmin}
	rec = create(admin, `{"name":"ops","permissions":["read","adjust"],"expiry":"1Y"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestRollover(t *testing.T) {
	repo := NewRepository(testutil.NewTestDB(t, &APIKey{}))
	svc := NewService(repo, 2)
	ctx := context.Background()
	agent := user.User{ID: uuid.New(), Role: user.RoleAgent}

	issued, err := svc.Issue(ctx, agent, "bot", []string{"review", "REVIEW"}, "1h")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(issued.MaskedKey, keyPrefix))

	_, err = svc.Rollover(ctx, agent, issued.APIKey, "1D")
	assert.ErrorIs(t, err, ErrKeyNotExpired)

	svc.Now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	fresh, err := svc.Rollover(ctx, agent, issued.APIKey, "1D")
	require.NoError(t, err)
	assert.NotEqual(t, issued.APIKey, fresh.APIKey)

	k, err := repo.FindByKey(ctx, fresh.APIKey)
	require.NoError(t, err)
	assert.Equal(t, PermissionList{"REVIEW"}, k.Permissions)
	assert.Equal(t, "bot", k.Name)

	_, err = svc.Rollover(ctx, agent, "ik_live_unknown", "1D")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestRolloverRechecksRole(t *testing.T) {
	repo := NewRepository(testutil.NewTestDB(t, &APIKey{}))
	svc := NewService(repo, 5)
	ctx := context.Background()
	owner := user.User{ID: uuid.New(), Role: user.RoleAdmin}

	issued, err := svc.Issue(ctx, owner, "ops", []string{"adjust"}, "1H")
	require.NoError(t, err)

	svc.Now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	owner.Role = user.RoleAgent
	_, err = svc.Rollover(ctx, owner, issued.APIKey, "1D")
	assert.ErrorIs(t, err, ErrAdjustAdminOnly)
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "****", maskKey("short"))
	assert.Equal(t, "ik_live_...cdef", maskKey("ik_live_0123456789abcdef"))
}
