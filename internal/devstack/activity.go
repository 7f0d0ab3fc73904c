package devstack

import (
	"fmt"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/aisocialapp/appcore/internal/models"
	"github.com/aisocialapp/appcore/internal/platform"
)

// fanOutActivity turns like and comment inserts into notification rows
// for the post author. Failures here never fail the triggering write.
func (h *RestHandler) fanOutActivity(c echo.Context, collection string, rec platform.Record) {
	var kind models.NotificationKind
	switch collection {
	case "likes":
		kind = models.NotificationLike
	case "comments":
		kind = models.NotificationComment
	default:
		return
	}

	actor := h.requestUsername(c)
	if collection == "comments" {
		actor = rec.String("username")
	}

	post, ok := h.lookupPost(c, rec.Int64("post_id"))
	if !ok {
		return
	}
	author := post.String("username")
	if author == "" || author == actor {
		return
	}
	authorID, ok := h.lookupProfileID(c, author)
	if !ok {
		return
	}

	verb := "liked"
	if kind == models.NotificationComment {
		verb = "commented on"
	}
	notification := platform.Record{
		"user_id":        authorID,
		"actor_username": actor,
		"kind":           string(kind),
		"message":        fmt.Sprintf("%s %s your post", actor, verb),
	}

	notifications, registered := h.tables["notifications"]
	if !registered {
		return
	}
	stored, err := notifications.Insert(c.Request().Context(), notification)
	if err != nil {
		h.log.Warn("notification fan-out failed", zap.Error(err))
		return
	}
	h.hub.Broadcast("notifications", string(platform.ChangeInsert), stored)
}

// requestUsername derives the acting username from the verified token.
func (h *RestHandler) requestUsername(c echo.Context) string {
	claims, ok := c.Get("user").(*sessionClaims)
	if !ok {
		return ""
	}
	return models.UsernameFromEmail(claims.Email)
}

func (h *RestHandler) lookupPost(c echo.Context, postID int64) (platform.Record, bool) {
	posts, registered := h.tables["posts"]
	if !registered || postID == 0 {
		return nil, false
	}
	records, err := posts.Select(c.Request().Context(), platform.Query{
		Collection: "posts",
		Filter:     platform.Eq{Column: "id", Value: postID},
		Limit:      1,
	})
	if err != nil || len(records) == 0 {
		return nil, false
	}
	return records[0], true
}

func (h *RestHandler) lookupProfileID(c echo.Context, username string) (string, bool) {
	profiles, registered := h.tables["profiles"]
	if !registered {
		return "", false
	}
	records, err := profiles.Select(c.Request().Context(), platform.Query{
		Collection: "profiles",
		Filter:     platform.Eq{Column: "username", Value: username},
		Limit:      1,
	})
	if err != nil || len(records) == 0 {
		return "", false
	}
	return records[0].String("id"), true
}
