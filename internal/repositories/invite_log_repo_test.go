package repositories

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Gopher0727/DomainHub/internal/models"
)

func seedLogFixtures(t *testing.T, db *gorm.DB) *InviteRepository {
	t.Helper()
	repo := NewInviteRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&models.Client{ID: 1, Email: "inviter@example.com"}).Error)
	require.NoError(t, db.Create(&models.Client{ID: 2, Email: "friend@example.com"}).Error)

	for i := 0; i < 5; i++ {
		invitee := uint(100 + i)
		domain := "example.com"
		if i >= 3 {
			domain = "other.com"
		}
		require.NoError(t, repo.CreateLog(ctx, &models.InviteLog{
			InviteCodeID:  1,
			Code:          "ABCDEFGHJK",
			InviterUserID: 1,
			InviteeUserID: &invitee,
			InviteeEmail:  fmt.Sprintf("guest%d@mail.com", i),
			RootDomain:    domain,
			Subdomain:     fmt.Sprintf("site%d", i),
		}))
	}

	invitee := uint(2)
	require.NoError(t, repo.CreateLog(ctx, &models.InviteLog{
		InviteCodeID:  2,
		Code:          "ZZZZZZZZZZ",
		InviterUserID: 1,
		InviteeUserID: &invitee,
		InviteeEmail:  "friend-signup@mail.com",
		RootDomain:    "third.com",
		Subdomain:     "home",
	}))
	return repo
}

func TestSearchLogsPagination(t *testing.T) {
	repo := seedLogFixtures(t, newTestDB(t))
	ctx := context.Background()

	logs, total, err := repo.SearchLogs(ctx, LogFilter{}, 1, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(6), total)
	require.Len(t, logs, 4)
	// 按时间倒序，最新的在前
	assert.Equal(t, "ZZZZZZZZZZ", logs[0].Code)

	logs, total, err = repo.SearchLogs(ctx, LogFilter{}, 2, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(6), total)
	assert.Len(t, logs, 2)

	// 越界的分页参数被修正
	logs, _, err = repo.SearchLogs(ctx, LogFilter{}, 0, 500)
	require.NoError(t, err)
	assert.Len(t, logs, 6)
}

func TestSearchLogsFilters(t *testing.T) {
	repo := seedLogFixtures(t, newTestDB(t))
	ctx := context.Background()

	// 码前缀匹配
	logs, total, err := repo.SearchLogs(ctx, LogFilter{Code: "ABCDE"}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, logs, 5)

	// 根域名模糊匹配
	_, total, err = repo.SearchLogs(ctx, LogFilter{RootDomain: "other"}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	// 注册时填写的邮箱
	_, total, err = repo.SearchLogs(ctx, LogFilter{InviteeEmail: "guest0"}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	// 被邀请人的账户邮箱也能搜到
	logs, total, err = repo.SearchLogs(ctx, LogFilter{InviteeEmail: "friend@example.com"}, 1, 20)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, "third.com", logs[0].RootDomain)

	_, total, err = repo.SearchLogs(ctx, LogFilter{InviterUserID: 99}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestSearchLogsJoinsClientEmails(t *testing.T) {
	repo := seedLogFixtures(t, newTestDB(t))

	logs, _, err := repo.SearchLogs(context.Background(), LogFilter{Code: "ZZZZZ"}, 1, 20)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "inviter@example.com", logs[0].InviterEmail)
	assert.Equal(t, "friend@example.com", logs[0].InviteeAccountEmail)
}

func TestUserInviteLogs(t *testing.T) {
	repo := seedLogFixtures(t, newTestDB(t))
	ctx := context.Background()

	logs, total, err := repo.UserInviteLogs(ctx, 1, "example.com", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, logs, 3)

	logs, total, err = repo.UserInviteLogs(ctx, 1, "", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(6), total)
	assert.Len(t, logs, 2)

	_, total, err = repo.UserInviteLogs(ctx, 999, "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestStatsByInviter(t *testing.T) {
	repo := seedLogFixtures(t, newTestDB(t))
	ctx := context.Background()

	total, byDomain, err := repo.StatsByInviter(ctx, 1, "")
	require.NoError(t, err)
	assert.Equal(t, int64(6), total)
	require.Len(t, byDomain, 3)

	counts := make(map[string]int64)
	for _, dc := range byDomain {
		counts[dc.RootDomain] = dc.Count
	}
	assert.Equal(t, int64(3), counts["example.com"])
	assert.Equal(t, int64(2), counts["other.com"])
	assert.Equal(t, int64(1), counts["third.com"])

	total, _, err = repo.StatsByInviter(ctx, 1, "other.com")
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}
