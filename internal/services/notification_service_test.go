package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"famledger/internal/models"
	"famledger/internal/pagination"
	"famledger/internal/testutil"
)

func TestNotificationCreate(t *testing.T) {
	t.Run("stores_and_publishes", func(t *testing.T) {
		env := newTestEnv(t)
		n := &models.Notification{UserID: &env.user.ID, FamilyID: &env.family.ID, Title: "Hello", Message: "World"}

		require.NoError(t, env.notifications.Create(context.Background(), n))

		assert.NotEmpty(t, n.ID)
		assert.Equal(t, models.NotificationStatusUnread, n.Status)
		assert.False(t, n.CreatedAt.IsZero())
		require.Equal(t, 1, env.publisher.count())
		assert.Equal(t, n.ID, env.publisher.messages[0].NotificationID)
	})

	t.Run("publish_failure_keeps_row", func(t *testing.T) {
		env := newTestEnv(t)
		env.publisher.fail = true
		n := &models.Notification{UserID: &env.user.ID, Title: "Hello", Message: "World"}

		require.NoError(t, env.notifications.Create(context.Background(), n))

		var count int64
		require.NoError(t, env.db.Model(&models.Notification{}).Where("id = ?", n.ID).Count(&count).Error)
		assert.EqualValues(t, 1, count)
	})

	t.Run("requires_title_and_message", func(t *testing.T) {
		env := newTestEnv(t)

		err := env.notifications.Create(context.Background(), &models.Notification{Title: " ", Message: "x"})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
		err = env.notifications.Create(context.Background(), &models.Notification{Title: "x"})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
		assert.Equal(t, 0, env.publisher.count())
	})
}

// seedInbox stores one notification of each audience and returns the ids of
// those the env user can see.
func seedInbox(t *testing.T, env *testEnv) []string {
	t.Helper()
	ctx := context.Background()
	stranger := testutil.CreateTestUser(t, env.db)
	strangerFamily := testutil.CreateTestFamily(t, env.db, stranger.ID)

	mine := &models.Notification{UserID: &env.user.ID, Title: "personal", Message: "m", CreatedAt: time.Now().UTC().Add(-3 * time.Minute)}
	family := &models.Notification{FamilyID: &env.family.ID, Title: "family", Message: "m", CreatedAt: time.Now().UTC().Add(-2 * time.Minute)}
	global := &models.Notification{Title: "global", Message: "m", CreatedAt: time.Now().UTC().Add(-1 * time.Minute)}
	for _, n := range []*models.Notification{mine, family, global} {
		require.NoError(t, env.notifications.Create(ctx, n))
	}

	require.NoError(t, env.notifications.Create(ctx, &models.Notification{UserID: &stranger.ID, Title: "theirs", Message: "m"}))
	require.NoError(t, env.notifications.Create(ctx, &models.Notification{FamilyID: &strangerFamily.ID, Title: "their family", Message: "m"}))

	return []string{global.ID, family.ID, mine.ID}
}

func TestGetUserNotifications(t *testing.T) {
	t.Run("visibility_and_order", func(t *testing.T) {
		env := newTestEnv(t)
		want := seedInbox(t, env)

		page, err := env.notifications.GetUserNotifications(env.user.ID, pagination.PageRequest{}, NotificationFilter{})
		require.NoError(t, err)

		got := make([]string, 0, len(page.Data))
		for _, n := range page.Data {
			got = append(got, n.ID)
		}
		assert.Equal(t, want, got)
		assert.EqualValues(t, 3, page.TotalItems)
		assert.EqualValues(t, 3, page.UnreadCount)
	})

	t.Run("status_filter", func(t *testing.T) {
		env := newTestEnv(t)
		ids := seedInbox(t, env)
		require.NoError(t, env.notifications.MarkRead(env.user.ID, ids[0]))
		read := models.NotificationStatusRead

		page, err := env.notifications.GetUserNotifications(env.user.ID, pagination.PageRequest{}, NotificationFilter{Status: &read})
		require.NoError(t, err)
		assert.EqualValues(t, 1, page.TotalItems)
		assert.EqualValues(t, 2, page.UnreadCount)
	})

	t.Run("former_member_loses_family_broadcasts", func(t *testing.T) {
		env := newTestEnv(t)
		kid := testutil.CreateTestUser(t, env.db)
		testutil.AddTestMember(t, env.db, env.family.ID, kid.ID, models.MemberRoleMember)
		seedInbox(t, env)
		require.NoError(t, env.families.LeaveFamily(kid.ID, env.family.ID))

		page, err := env.notifications.GetUserNotifications(kid.ID, pagination.PageRequest{}, NotificationFilter{})
		require.NoError(t, err)
		require.Len(t, page.Data, 1)
		assert.Equal(t, "global", page.Data[0].Title)
	})
}

func TestMarkRead(t *testing.T) {
	t.Run("visible", func(t *testing.T) {
		env := newTestEnv(t)
		ids := seedInbox(t, env)

		require.NoError(t, env.notifications.MarkRead(env.user.ID, ids[1]))
		require.NoError(t, env.notifications.MarkRead(env.user.ID, ids[1]))

		var n models.Notification
		require.NoError(t, env.db.Where("id = ?", ids[1]).First(&n).Error)
		assert.Equal(t, models.NotificationStatusRead, n.Status)
	})

	t.Run("not_visible", func(t *testing.T) {
		env := newTestEnv(t)
		ids := seedInbox(t, env)
		stranger := testutil.CreateTestUser(t, env.db)

		err := env.notifications.MarkRead(stranger.ID, ids[2])
		testutil.AssertAppError(t, err, "NOTIFICATION_NOT_FOUND")
	})
}

func TestMarkAllRead(t *testing.T) {
	env := newTestEnv(t)
	seedInbox(t, env)

	changed, err := env.notifications.MarkAllRead(env.user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, changed)

	changed, err = env.notifications.MarkAllRead(env.user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, changed)

	var unread int64
	require.NoError(t, env.db.Model(&models.Notification{}).Where("status = ?", models.NotificationStatusUnread).Count(&unread).Error)
	assert.EqualValues(t, 2, unread, "other users' notifications stay unread")
}
