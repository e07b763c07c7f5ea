package smstoken

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	user42 = NewSubject("user", 42)
	user43 = NewSubject("user", 43)
	order7 = NewSubject("order", 7)
)

func setupRepo(t *testing.T) (*Repository, *fakeClock) {
	clock := newFakeClock()
	return NewRepository(setupTestDB(t)).WithClock(clock.Now), clock
}

// createWithKey 创建并分配 Key
func createWithKey(t *testing.T, repo *Repository, subject Subject, slug *string, key string) uint {
	t.Helper()
	ctx := context.Background()

	token, err := repo.Create(ctx, subject, "+420777000111", slug)
	require.NoError(t, err)
	require.NoError(t, repo.AssignKey(ctx, token.ID, key))
	return token.ID
}

// TestRepository_Create 测试创建 Token
func TestRepository_Create(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	token, err := repo.Create(ctx, user42, "+420777000111", Slug(""))
	require.NoError(t, err)

	assert.NotZero(t, token.ID)
	assert.Nil(t, token.Key, "分配前 Key 为 NULL")
	assert.True(t, token.IsActive)
	assert.Nil(t, token.Slug, "空用途应存为 NULL")
	assert.Equal(t, baseTime, token.CreatedAt)
	assert.Equal(t, "user", token.SubjectType)
	assert.Equal(t, "42", token.SubjectID)

	found, err := repo.FindByID(ctx, token.ID)
	require.NoError(t, err)
	assert.Equal(t, "+420777000111", found.PhoneNumber)
	assert.True(t, found.CreatedAt.Equal(baseTime))
}

// TestRepository_AssignKey 测试分配 Key
func TestRepository_AssignKey(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	id := createWithKey(t, repo, user42, nil, "123456")

	exists, err := repo.ExistsByKey(ctx, "123456")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByKey(ctx, "654321")
	require.NoError(t, err)
	assert.False(t, exists)

	found, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "123456", found.KeyValue())

	assert.ErrorIs(t, repo.AssignKey(ctx, 9999, "111111"), ErrTokenNotFound)
}

// TestRepository_AssignKey_Duplicate 同一 Key 不能分配给两个 Token
func TestRepository_AssignKey_Duplicate(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	first, err := repo.Create(ctx, user42, "+420777000111", nil)
	require.NoError(t, err)
	second, err := repo.Create(ctx, user43, "+420777000222", nil)
	require.NoError(t, err)

	require.NoError(t, repo.AssignKey(ctx, first.ID, "123456"))
	assert.ErrorIs(t, repo.AssignKey(ctx, second.ID, "123456"), ErrDuplicateKey)

	stored, err := repo.FindByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Key)

	_, err = repo.FindLastActive(ctx, user43, nil)
	assert.ErrorIs(t, err, ErrTokenNotFound, "未分配 Key 的 Token 不可见")
}

// TestRepository_FindLastActive 测试查找最近有效 Token
func TestRepository_FindLastActive(t *testing.T) {
	repo, clock := setupRepo(t)
	ctx := context.Background()

	createWithKey(t, repo, user42, nil, "111111")
	clock.Advance(time.Second)
	latest := createWithKey(t, repo, user42, nil, "222222")
	clock.Advance(time.Second)
	createWithKey(t, repo, user42, Slug("login"), "333333")

	token, err := repo.FindLastActive(ctx, user42, nil)
	require.NoError(t, err)
	assert.Equal(t, latest, token.ID)
	assert.Equal(t, "222222", token.KeyValue())

	token, err = repo.FindLastActive(ctx, user42, Slug("login"))
	require.NoError(t, err)
	assert.Equal(t, "333333", token.KeyValue())

	_, err = repo.FindLastActive(ctx, user42, Slug("reset"))
	assert.ErrorIs(t, err, ErrTokenNotFound)

	_, err = repo.FindLastActive(ctx, user43, nil)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

// TestRepository_FindLastActive_SameTimestamp 创建时间相同时按 ID 决定先后
func TestRepository_FindLastActive_SameTimestamp(t *testing.T) {
	repo, _ := setupRepo(t)

	createWithKey(t, repo, user42, nil, "111111")
	second := createWithKey(t, repo, user42, nil, "222222")

	token, err := repo.FindLastActive(context.Background(), user42, nil)
	require.NoError(t, err)
	assert.Equal(t, second, token.ID)
}

// TestRepository_FindLastActive_SkipsKeyless 尚未分配 Key 的 Token 不可见
func TestRepository_FindLastActive_SkipsKeyless(t *testing.T) {
	repo, clock := setupRepo(t)
	ctx := context.Background()

	createWithKey(t, repo, user42, nil, "111111")
	clock.Advance(time.Second)
	_, err := repo.Create(ctx, user42, "+420777000111", nil)
	require.NoError(t, err)

	token, err := repo.FindLastActive(ctx, user42, nil)
	require.NoError(t, err)
	assert.Equal(t, "111111", token.KeyValue())
}

// TestRepository_DeactivateAllActiveExcept 测试停用其他 Token
func TestRepository_DeactivateAllActiveExcept(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	createWithKey(t, repo, user42, nil, "111111")
	createWithKey(t, repo, user42, Slug("login"), "222222")
	keep := createWithKey(t, repo, user42, nil, "333333")
	other := createWithKey(t, repo, user43, nil, "444444")

	n, err := repo.DeactivateAllActiveExcept(ctx, user42, keep)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	kept, err := repo.FindByID(ctx, keep)
	require.NoError(t, err)
	assert.True(t, kept.IsActive)

	_, err = repo.FindLastActive(ctx, user42, Slug("login"))
	assert.ErrorIs(t, err, ErrTokenNotFound, "停用不区分用途")

	untouched, err := repo.FindByID(ctx, other)
	require.NoError(t, err)
	assert.True(t, untouched.IsActive)
}

// TestRepository_Deactivate 测试停用单个 Token
func TestRepository_Deactivate(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	id := createWithKey(t, repo, user42, nil, "111111")
	require.NoError(t, repo.Deactivate(ctx, id))

	_, err := repo.FindLastActive(ctx, user42, nil)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	assert.ErrorIs(t, repo.Deactivate(ctx, 9999), ErrTokenNotFound)
}

// TestRepository_CountRecent 测试时间窗口计数
func TestRepository_CountRecent(t *testing.T) {
	repo, clock := setupRepo(t)
	ctx := context.Background()

	createWithKey(t, repo, user42, nil, "111111")
	clock.Advance(30 * time.Minute)
	createWithKey(t, repo, user42, nil, "222222")
	createWithKey(t, repo, user42, Slug("login"), "333333")
	createWithKey(t, repo, order7, nil, "444444")
	clock.Advance(30 * time.Minute)

	n, err := repo.CountRecent(ctx, user42, nil, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n, "窗口边界包含在内")

	n, err = repo.CountRecent(ctx, user42, nil, 59*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.CountRecent(ctx, user42, Slug("login"), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.CountRecent(ctx, user43, nil, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// TestRepository_CountAndList 测试计数与列表
func TestRepository_CountAndList(t *testing.T) {
	repo, clock := setupRepo(t)
	ctx := context.Background()

	first := createWithKey(t, repo, user42, nil, "111111")
	clock.Advance(time.Second)
	second := createWithKey(t, repo, user42, Slug("login"), "222222")
	createWithKey(t, repo, user43, nil, "333333")

	n, err := repo.Count(ctx, user42)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	tokens, err := repo.ListBySubject(ctx, user42, 0)
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, second, tokens[0].ID)
	assert.Equal(t, first, tokens[1].ID)

	tokens, err = repo.ListBySubject(ctx, user42, 1)
	require.NoError(t, err)
	assert.Len(t, tokens, 1)
}

// TestRepository_DeleteOlderThan 测试按保留期删除
func TestRepository_DeleteOlderThan(t *testing.T) {
	repo, clock := setupRepo(t)
	ctx := context.Background()
	retention := 30 * 24 * time.Hour

	clock.Set(baseTime.Add(-time.Second))
	old := createWithKey(t, repo, user42, nil, "111111")
	require.NoError(t, repo.Deactivate(ctx, old))
	oldActive := createWithKey(t, repo, user43, nil, "222222")

	clock.Set(baseTime)
	boundary := createWithKey(t, repo, user42, nil, "333333")
	clock.Set(baseTime.Add(time.Second))
	fresh := createWithKey(t, repo, user42, nil, "444444")

	clock.Set(baseTime.Add(retention))
	removed, err := repo.DeleteOlderThan(ctx, retention)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	for _, id := range []uint{old, oldActive} {
		_, err := repo.FindByID(ctx, id)
		assert.ErrorIs(t, err, ErrTokenNotFound)
	}
	for _, id := range []uint{boundary, fresh} {
		_, err := repo.FindByID(ctx, id)
		assert.NoError(t, err)
	}
}

// TestRepository_Delete 测试删除
func TestRepository_Delete(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	id := createWithKey(t, repo, user42, nil, "111111")
	require.NoError(t, repo.Delete(ctx, id))

	_, err := repo.FindByID(ctx, id)
	assert.ErrorIs(t, err, ErrTokenNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, id), ErrTokenNotFound)
}
