package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/anonwork/anonwork/internal/database/testutil"
	"github.com/anonwork/anonwork/internal/middleware"
	"github.com/anonwork/anonwork/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testRequest builds a recorder-backed gin context carrying an optional JSON
// body and an authenticated user id.
func testRequest(t *testing.T, method, target, body, userID string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	c.Request = req

	if userID != "" {
		c.Set(middleware.CtxUserIDKey, userID)
	}
	return c, recorder
}

func seedUser(t *testing.T, db *gorm.DB, anonUsername string) models.User {
	t.Helper()

	user := models.User{
		Email:        anonUsername + "@example.com",
		Password:     "hashed",
		AnonUsername: anonUsername,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedPost(t *testing.T, db *gorm.DB, authorID, title string) models.Post {
	t.Helper()

	post := models.Post{AuthorID: authorID, Title: title, Body: "body"}
	require.NoError(t, db.Create(&post).Error)
	return post
}

func openHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.MustOpenTestDB(t)
}
