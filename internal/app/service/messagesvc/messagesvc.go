// internal/app/service/messagesvc/messagesvc.go
package messagesvc

import (
	"context"
	"fmt"
	"strings"

	messagestore "github.com/dalemusser/corix/internal/app/store/messages"
	membershipstore "github.com/dalemusser/corix/internal/app/store/memberships"
	userstore "github.com/dalemusser/corix/internal/app/store/users"
	"github.com/dalemusser/corix/internal/app/system/apperr"
	"github.com/dalemusser/corix/internal/app/system/authz"
	"github.com/dalemusser/corix/internal/app/system/limits"
	"github.com/dalemusser/corix/internal/domain/models"
	"github.com/microcosm-cc/bluemonday"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Service posts and reads group messages. Messages are immutable plain
// text; content is sanitized before the length rules apply so markup can't
// smuggle past the 500-char cap.
type Service struct {
	messages    *messagestore.Store
	memberships *membershipstore.Store
	users       *userstore.Store
	sanitizer   *bluemonday.Policy
	logger      *zap.Logger
}

func New(messages *messagestore.Store, memberships *membershipstore.Store, users *userstore.Store, logger *zap.Logger) *Service {
	return &Service{
		messages:    messages,
		memberships: memberships,
		users:       users,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger,
	}
}

// Create posts a message. Admins and editors only; viewers read.
func (s *Service) Create(ctx context.Context, actorID, groupID primitive.ObjectID, content string) (models.Message, error) {
	res, err := authz.CheckAction(ctx, s.memberships, actorID, groupID, authz.ActionPostMessages)
	if err != nil {
		return models.Message{}, apperr.Internal("check permission", err)
	}
	if !res.Allowed {
		return models.Message{}, apperr.PermissionDenied(res.Reason)
	}

	content = strings.TrimSpace(s.sanitizer.Sanitize(content))
	if content == "" {
		return models.Message{}, apperr.InvalidInput("message cannot be empty")
	}
	if len([]rune(content)) > limits.MaxMessageLen {
		return models.Message{}, apperr.InvalidInput(
			fmt.Sprintf("message cannot exceed %d characters", limits.MaxMessageLen))
	}

	msg, err := s.messages.Insert(ctx, groupID, actorID, content)
	if err != nil {
		return models.Message{}, apperr.Internal("insert message", err)
	}
	return msg, nil
}

// MessageView is one message with the author display resolved at read time
// (email, scrub placeholder, or "Unknown User" after a hard delete).
type MessageView struct {
	Message models.Message `json:"message"`
	Author  string         `json:"author"`
}

// ListRecent returns the newest messages in the group. Any view-capable
// role may read; a caller whose membership is removed gets an empty list,
// not an error.
func (s *Service) ListRecent(ctx context.Context, actorID, groupID primitive.ObjectID, limit int64) ([]MessageView, error) {
	res, err := authz.CheckAction(ctx, s.memberships, actorID, groupID, authz.ActionViewMessages)
	if err != nil {
		return nil, apperr.Internal("check permission", err)
	}
	if !res.Allowed {
		if res.Membership != nil && authz.Role(res.Membership.Role) == authz.RoleRemoved {
			return []MessageView{}, nil
		}
		return nil, apperr.PermissionDenied(res.Reason)
	}
	if limit <= 0 || limit > limits.DefaultMessagePageSize {
		limit = limits.DefaultMessagePageSize
	}

	msgs, err := s.messages.ListRecentByGroup(ctx, groupID, limit)
	if err != nil {
		return nil, apperr.Internal("list messages", err)
	}

	// Author documents are fetched once per distinct author, not per message.
	authors := map[primitive.ObjectID]string{}
	out := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		display, ok := authors[m.AuthorID]
		if !ok {
			display = models.UnknownUserDisplay
			if u, err := s.users.FindByID(ctx, m.AuthorID); err != nil {
				return nil, apperr.Internal("load author", err)
			} else if u != nil {
				display = u.DisplayName()
			}
			authors[m.AuthorID] = display
		}
		out = append(out, MessageView{Message: m, Author: display})
	}
	return out, nil
}
