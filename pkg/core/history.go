package core

import (
	"context"

	"github.com/oneconcern/podbundle/pkg/core/status"
	"github.com/oneconcern/podbundle/pkg/registry"
	"github.com/oneconcern/podbundle/pkg/wal"
	"go.uber.org/zap"
)

// History lists the publishes recorded after some token, oldest first.
// The returned token, when not empty, continues the listing.
func (s *Service) History(ctx context.Context, fromToken string, max int) ([]wal.Entry, string, error) {
	if s.history == nil {
		return nil, "", status.ErrNotFound.WrapMessage("publish history is disabled")
	}
	return s.history.ListEntries(ctx, fromToken, max)
}

// recordFeed appends a feed publish to the history. A failure to record does not fail the publish.
func (s *Service) recordFeed(ctx context.Context, event registry.FeedEvent) error {
	if _, err := s.history.Add(ctx, wal.Entry{
		Kind:     wal.KindFeed,
		Type:     event.Type,
		Tag:      event.Tag,
		Feed:     event.FeedID,
		Previous: event.Previous,
	}); err != nil {
		s.l.Warn("could not record feed publish", zap.String("tag", event.Tag), zap.Stringer("type", event.Type), zap.Error(err))
	}
	return nil
}

func (s *Service) recordInstruction(ctx context.Context, event registry.InstructionEvent) error {
	if _, err := s.history.Add(ctx, wal.Entry{
		Kind:   wal.KindInstruction,
		Type:   event.Instruction.Type,
		Layout: event.Instruction.Layout,
		Tags:   event.Instruction.Tags,
	}); err != nil {
		s.l.Warn("could not record instruction publish", zap.String("layout", event.Instruction.Layout), zap.Stringer("type", event.Instruction.Type), zap.Error(err))
	}
	return nil
}
