// Package extractor defines the contract with the external AI collaborator
// that distills new personal/financial facts out of a conversation.
//
// The production implementation prompts a language model and lives outside
// this module. The Profile Manager treats any failure at this boundary as
// "no new information": errors never corrupt stored state.
package extractor

import (
	"context"

	"github.com/avoskan/profilevault/internal/models"
)

// Extractor returns an updated profile text incorporating facts found in the
// conversation, or the existing text unchanged when nothing new was found.
// The existing text is always the original (non-anonymized) profile.
type Extractor interface {
	ExtractAndUpdateProfile(ctx context.Context, userID string, conversation *models.Conversation, existingProfileText string) (string, error)
}

// Func adapts a plain function to the Extractor interface.
type Func func(ctx context.Context, userID string, conversation *models.Conversation, existingProfileText string) (string, error)

func (f Func) ExtractAndUpdateProfile(ctx context.Context, userID string, conversation *models.Conversation, existingProfileText string) (string, error) {
	return f(ctx, userID, conversation, existingProfileText)
}
