package sla

import (
	"context"
	"time"

	"github.com/dukex/opsdesk/pkg/models"
	"github.com/dukex/opsdesk/pkg/persistence"
)

// EntityTypeChatUnanswered is the entity type key for the idle conversation
// breach predicate.
const EntityTypeChatUnanswered = "chat.unanswered"

// UnansweredChatChecker flags conversations whose most recent message is
// older than the target's threshold.
type UnansweredChatChecker struct {
	entities persistence.EntityRepository
}

// NewUnansweredChatChecker creates a new UnansweredChatChecker.
func NewUnansweredChatChecker(entities persistence.EntityRepository) *UnansweredChatChecker {
	return &UnansweredChatChecker{entities: entities}
}

func (*UnansweredChatChecker) EntityType() string {
	return EntityTypeChatUnanswered
}

func (c *UnansweredChatChecker) BreachingEntities(ctx context.Context, target *models.SlaTarget, now time.Time) ([]string, error) {
	cutoff := now.Add(-target.Threshold())

	conversations, err := c.entities.IdleConversations(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(conversations))
	for _, conversation := range conversations {
		ids = append(ids, conversation.ID)
	}

	return ids, nil
}
