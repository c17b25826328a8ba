package services

import (
	"context"
	"errors"
	"regexp"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/anonwork/anonwork/internal/models"
)

// mentionPattern matches an @ immediately followed by a letter and at least two
// more word characters, e.g. @quiet_walrus. Shorter tokens are ignored.
var mentionPattern = regexp.MustCompile(`@([A-Za-z][A-Za-z0-9_]{2,})`)

// ExtractMentions returns the candidate usernames mentioned in free text,
// deduplicated in first-seen order. Candidates are not checked against
// registered accounts here.
func ExtractMentions(text string) []string {
	matches := mentionPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, match := range matches {
		name := match[1]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// NotifyMentions scans free text for @mentions and notifies each mentioned
// registered user once. Candidates that resolve to no account are dropped
// silently; free text is full of @strings that are not usernames. The actor is
// never notified about mentioning themselves.
func (s *NotificationService) NotifyMentions(ctx context.Context, text, actorID, actorName, postID, postTitle, contextKind string) {
	candidates := ExtractMentions(text)
	if len(candidates) == 0 {
		return
	}

	ctx = ensureContext(ctx)
	for _, candidate := range candidates {
		var user models.User
		err := s.db.WithContext(ctx).
			Select("id").
			Take(&user, "anon_username = ?", candidate).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			s.log.Warn("resolve mention", zap.String("candidate", candidate), zap.Error(err))
			continue
		}
		if user.ID == actorID {
			continue
		}

		s.deliver(ctx, CreateNotificationInput{
			UserID: user.ID,
			Type:   models.NotificationMention,
			Title:  actorName + " mentioned you in a " + contextKind,
			Body:   previewText(text),
			Data: map[string]any{
				"post_id":    postID,
				"post_title": postTitle,
				"user_id":    actorID,
				"username":   actorName,
			},
		})
	}
}
