package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/anonwork/anonwork/internal/database/testutil"
	"github.com/anonwork/anonwork/internal/models"
	apperrors "github.com/anonwork/anonwork/pkg/errors"
)

func newConversationFixture(t *testing.T) (*gorm.DB, *ConversationService) {
	t.Helper()

	db := testutil.MustOpenTestDB(t)
	svc, err := NewConversationService(db)
	require.NoError(t, err)
	return db, svc
}

func TestFindOrCreateDirectIsOrderInsensitive(t *testing.T) {
	db, svc := newConversationFixture(t)
	alice := createUser(t, db, "anon_dm_a001")
	bob := createUser(t, db, "anon_dm_b001")

	ctx := context.Background()

	first, err := svc.FindOrCreateDirect(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := svc.FindOrCreateDirect(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	require.Equal(t, first, second)

	var count int64
	require.NoError(t, db.Model(&models.Conversation{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	var participants int64
	require.NoError(t, db.Model(&models.ConversationParticipant{}).
		Where("conversation_id = ?", first).
		Count(&participants).Error)
	require.EqualValues(t, 2, participants)
}

func TestFindOrCreateDirectRejectsSelf(t *testing.T) {
	db, svc := newConversationFixture(t)
	alice := createUser(t, db, "anon_dm_a002")

	_, err := svc.FindOrCreateDirect(context.Background(), alice.ID, alice.ID)
	require.Error(t, err)
	require.Equal(t, 400, apperrors.FromError(err).StatusCode)
}

func TestFindOrCreateDirectConcurrentCallersConverge(t *testing.T) {
	db, svc := newConversationFixture(t)
	alice := createUser(t, db, "anon_dm_a003")
	bob := createUser(t, db, "anon_dm_b003")

	const callers = 8
	ids := make([]string, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				ids[i], errs[i] = svc.FindOrCreateDirect(context.Background(), alice.ID, bob.ID)
			} else {
				ids[i], errs[i] = svc.FindOrCreateDirect(context.Background(), bob.ID, alice.ID)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, ids[0], ids[i])
	}

	var count int64
	require.NoError(t, db.Model(&models.Conversation{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestSendDirectCreatesThreadAndMessage(t *testing.T) {
	db, svc := newConversationFixture(t)
	alice := createUser(t, db, "anon_dm_a004")
	bob := createUser(t, db, "anon_dm_b004")

	ctx := context.Background()
	result, err := svc.SendDirect(ctx, alice.ID, bob.ID, "hey, saw your comp post")
	require.NoError(t, err)
	require.NotEmpty(t, result.ConversationID)
	require.Equal(t, alice.ID, result.Message.SenderID)

	// A second message reuses the same thread.
	again, err := svc.SendDirect(ctx, bob.ID, alice.ID, "happy to share numbers")
	require.NoError(t, err)
	require.Equal(t, result.ConversationID, again.ConversationID)

	messages, err := svc.ListMessages(ctx, result.ConversationID, alice.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, "hey, saw your comp post", messages[0].Body)
	require.Equal(t, "anon_dm_b004", messages[1].SenderUsername)
}

func TestSendDirectUnknownRecipient(t *testing.T) {
	db, svc := newConversationFixture(t)
	alice := createUser(t, db, "anon_dm_a005")

	_, err := svc.SendDirect(context.Background(), alice.ID, "missing-user", "hello?")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAppendMessageRequiresParticipant(t *testing.T) {
	db, svc := newConversationFixture(t)
	alice := createUser(t, db, "anon_dm_a006")
	bob := createUser(t, db, "anon_dm_b006")
	eve := createUser(t, db, "anon_dm_e006")

	ctx := context.Background()
	conversationID, err := svc.FindOrCreateDirect(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = svc.AppendMessage(ctx, conversationID, eve.ID, "let me in")
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = svc.AppendMessage(ctx, "missing-conversation", alice.ID, "anyone?")
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = svc.AppendMessage(ctx, conversationID, alice.ID, "")
	require.Error(t, err)
	require.Equal(t, 400, apperrors.FromError(err).StatusCode)
}

func TestAppendMessageBumpsThreadRecency(t *testing.T) {
	db, svc := newConversationFixture(t)
	alice := createUser(t, db, "anon_dm_a007")
	bob := createUser(t, db, "anon_dm_b007")

	ctx := context.Background()
	conversationID, err := svc.FindOrCreateDirect(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	var before models.Conversation
	require.NoError(t, db.Take(&before, "id = ?", conversationID).Error)

	time.Sleep(5 * time.Millisecond)
	_, err = svc.AppendMessage(ctx, conversationID, alice.ID, "bump")
	require.NoError(t, err)

	var after models.Conversation
	require.NoError(t, db.Take(&after, "id = ?", conversationID).Error)
	require.True(t, after.UpdatedAt.After(before.UpdatedAt))
}

func TestInboxUnreadFlag(t *testing.T) {
	db, svc := newConversationFixture(t)
	alice := createUser(t, db, "anon_dm_a008")
	bob := createUser(t, db, "anon_dm_b008")

	ctx := context.Background()
	result, err := svc.SendDirect(ctx, alice.ID, bob.ID, "ping")
	require.NoError(t, err)

	inbox, err := svc.ListForUser(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	require.True(t, inbox[0].Unread)
	require.Len(t, inbox[0].OtherParticipants, 1)
	require.Equal(t, "anon_dm_a008", inbox[0].OtherParticipants[0].AnonUsername)

	// Opening the thread marks it read for bob.
	_, err = svc.ListMessages(ctx, result.ConversationID, bob.ID)
	require.NoError(t, err)

	inbox, err = svc.ListForUser(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	require.False(t, inbox[0].Unread)
	require.NotNil(t, inbox[0].LastReadAt)
}

func TestInboxOrderedByRecency(t *testing.T) {
	db, svc := newConversationFixture(t)
	alice := createUser(t, db, "anon_dm_a009")
	bob := createUser(t, db, "anon_dm_b009")
	carl := createUser(t, db, "anon_dm_c009")

	ctx := context.Background()
	withBob, err := svc.SendDirect(ctx, alice.ID, bob.ID, "first thread")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	withCarl, err := svc.SendDirect(ctx, alice.ID, carl.ID, "second thread")
	require.NoError(t, err)

	inbox, err := svc.ListForUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, inbox, 2)
	require.Equal(t, withCarl.ConversationID, inbox[0].ID)
	require.Equal(t, withBob.ConversationID, inbox[1].ID)

	// A new message in the older thread moves it back to the top.
	time.Sleep(5 * time.Millisecond)
	_, err = svc.AppendMessage(ctx, withBob.ConversationID, bob.ID, "reviving this")
	require.NoError(t, err)

	inbox, err = svc.ListForUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, withBob.ConversationID, inbox[0].ID)
}
