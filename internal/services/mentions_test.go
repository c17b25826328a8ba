package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anonwork/anonwork/internal/models"
)

func TestExtractMentions(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "single mention",
			text: "hey @quiet_walrus what do you think?",
			want: []string{"quiet_walrus"},
		},
		{
			name: "multiple mentions keep order",
			text: "@alice and @bob_2 should see this",
			want: []string{"alice", "bob_2"},
		},
		{
			name: "duplicates collapse to first occurrence",
			text: "@bob check this @bob",
			want: []string{"bob"},
		},
		{
			name: "too short is ignored",
			text: "email me @ab or @a",
			want: nil,
		},
		{
			name: "must start with a letter",
			text: "ping @1abc and @_abc",
			want: nil,
		},
		{
			name: "mid-sentence punctuation terminates the token",
			text: "thanks @carol_x, appreciated",
			want: []string{"carol_x"},
		},
		{
			name: "no mentions",
			text: "plain text without handles",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ExtractMentions(tt.text))
		})
	}
}

func TestNotifyMentionsResolvedOnce(t *testing.T) {
	db, svc := newNotificationFixture(t)
	actor := createUser(t, db, "anon_poster1")
	bob := createUser(t, db, "bob")

	ctx := context.Background()
	svc.NotifyMentions(ctx, "@bob check this @bob", actor.ID, actor.AnonUsername, "p1", "title", "post")

	require.EqualValues(t, 1, countNotifications(t, db, bob.ID, models.NotificationMention))
}

func TestNotifyMentionsDropsUnresolved(t *testing.T) {
	db, svc := newNotificationFixture(t)
	actor := createUser(t, db, "anon_poster2")
	carol := createUser(t, db, "carol_x")

	ctx := context.Background()
	svc.NotifyMentions(ctx, "cc @carol_x and @nobody_here", actor.ID, actor.AnonUsername, "p1", "title", "comment")

	require.EqualValues(t, 1, countNotifications(t, db, carol.ID, models.NotificationMention))

	var total int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&total).Error)
	require.EqualValues(t, 1, total)
}

func TestNotifyMentionsIsCaseSensitive(t *testing.T) {
	db, svc := newNotificationFixture(t)
	actor := createUser(t, db, "anon_poster3")
	dave := createUser(t, db, "dave_ops")

	ctx := context.Background()
	svc.NotifyMentions(ctx, "thanks @Dave_ops", actor.ID, actor.AnonUsername, "p1", "title", "post")

	require.EqualValues(t, 0, countNotifications(t, db, dave.ID, models.NotificationMention))
}

func TestNotifyMentionsSkipsSelf(t *testing.T) {
	db, svc := newNotificationFixture(t)
	actor := createUser(t, db, "anon_selfref")

	ctx := context.Background()
	svc.NotifyMentions(ctx, "as @anon_selfref I disagree", actor.ID, actor.AnonUsername, "p1", "title", "post")

	require.EqualValues(t, 0, countNotifications(t, db, actor.ID, models.NotificationMention))
}
