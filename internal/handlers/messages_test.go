package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/anonwork/anonwork/internal/services"
	"github.com/anonwork/anonwork/pkg/response"
)

func TestMessageHandlerSendAndInbox(t *testing.T) {
	db := openHandlerDB(t)
	handler, err := NewMessageHandler(db)
	require.NoError(t, err)

	alice := seedUser(t, db, "anon_mh00001")
	bob := seedUser(t, db, "anon_mh00002")

	c, recorder := testRequest(t, http.MethodPost, "/api/messages",
		`{"recipient_id":"`+bob.ID+`","body":"hello there"}`, alice.ID)
	handler.Send(c)
	require.Equal(t, http.StatusCreated, recorder.Code)

	var payload response.Response
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	dataBytes, err := json.Marshal(payload.Data)
	require.NoError(t, err)
	var sent services.SendDirectResult
	require.NoError(t, json.Unmarshal(dataBytes, &sent))
	require.NotEmpty(t, sent.ConversationID)

	c, recorder = testRequest(t, http.MethodGet, "/api/conversations", "", bob.ID)
	handler.Inbox(c)
	require.Equal(t, http.StatusOK, recorder.Code)

	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	dataBytes, err = json.Marshal(payload.Data)
	require.NoError(t, err)
	var inbox []services.ConversationDTO
	require.NoError(t, json.Unmarshal(dataBytes, &inbox))
	require.Len(t, inbox, 1)
	require.True(t, inbox[0].Unread)

	c, recorder = testRequest(t, http.MethodGet, "/api/conversations/"+sent.ConversationID+"/messages", "", bob.ID)
	c.Params = gin.Params{gin.Param{Key: "id", Value: sent.ConversationID}}
	handler.Messages(c)
	require.Equal(t, http.StatusOK, recorder.Code)

	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	dataBytes, err = json.Marshal(payload.Data)
	require.NoError(t, err)
	var messages []services.MessageDTO
	require.NoError(t, json.Unmarshal(dataBytes, &messages))
	require.Len(t, messages, 1)
	require.Equal(t, "hello there", messages[0].Body)
}

func TestMessageHandlerSendUnknownRecipient(t *testing.T) {
	db := openHandlerDB(t)
	handler, err := NewMessageHandler(db)
	require.NoError(t, err)

	alice := seedUser(t, db, "anon_mh00003")

	c, recorder := testRequest(t, http.MethodPost, "/api/messages",
		`{"recipient_id":"missing","body":"anyone home?"}`, alice.ID)
	handler.Send(c)
	require.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestMessageHandlerForbiddenOutsideThread(t *testing.T) {
	db := openHandlerDB(t)
	handler, err := NewMessageHandler(db)
	require.NoError(t, err)

	alice := seedUser(t, db, "anon_mh00004")
	bob := seedUser(t, db, "anon_mh00005")
	eve := seedUser(t, db, "anon_mh00006")

	conversations, err := services.NewConversationService(db)
	require.NoError(t, err)
	conversationID, err := conversations.FindOrCreateDirect(t.Context(), alice.ID, bob.ID)
	require.NoError(t, err)

	c, recorder := testRequest(t, http.MethodPost, "/api/conversations/"+conversationID+"/messages",
		`{"body":"let me in"}`, eve.ID)
	c.Params = gin.Params{gin.Param{Key: "id", Value: conversationID}}
	handler.Append(c)
	require.Equal(t, http.StatusForbidden, recorder.Code)
}
