package core

import (
	"context"
	"strings"

	"github.com/oneconcern/podbundle/pkg/core/status"
	"github.com/oneconcern/podbundle/pkg/join"
	"github.com/oneconcern/podbundle/pkg/model"
	"github.com/oneconcern/podbundle/pkg/storage"
	"go.uber.org/zap"
)

// UploadFeed stores a feed, without publishing it. The tag is optional.
//
// Uploading the same content twice yields the same feed.
func (s *Service) UploadFeed(ctx context.Context, tag string, typ model.AssetType, files []model.SourceFile) (model.Feed, error) {
	feed, err := model.NewFeed(strings.TrimSpace(tag), typ, files)
	if err != nil {
		return model.Feed{}, err
	}
	if err := s.writeOnce(ctx, model.GetArchivePathToFeed(feed.ID), feed); err != nil {
		return model.Feed{}, err
	}
	s.l.Info("feed uploaded", zap.String("feed", feed.ID), zap.String("tag", feed.Tag), zap.Stringer("type", feed.Type), zap.Int("files", len(feed.Files)))
	return feed, nil
}

// PublishAssets stores a feed and makes it the latest feed of its tag
func (s *Service) PublishAssets(ctx context.Context, tag string, typ model.AssetType, files []model.SourceFile) (model.Feed, error) {
	if strings.TrimSpace(tag) == "" {
		return model.Feed{}, status.ErrValidation.WrapMessage("a tag is required to publish assets")
	}
	feed, err := s.UploadFeed(ctx, tag, typ, files)
	if err != nil {
		return model.Feed{}, err
	}
	if err := s.feeds.PublishFeed(ctx, feed.Tag, feed.Type, feed.ID); err != nil {
		return model.Feed{}, err
	}
	return feed, nil
}

// PublishFeed makes a previously uploaded feed the latest feed of a tag
func (s *Service) PublishFeed(ctx context.Context, tag string, typ model.AssetType, feedID string) error {
	typ, err := model.ParseAssetType(string(typ))
	if err != nil {
		return err
	}
	feed, err := s.loadFeed(ctx, feedID)
	if err != nil {
		return err
	}
	if feed.Type != typ {
		return status.ErrValidation.WrapMessage("feed %s holds %s assets, not %s", feed.ID, feed.Type, typ)
	}
	return s.feeds.PublishFeed(ctx, tag, typ, feed.ID)
}

// CurrentFeed returns the latest feed published for a tag
func (s *Service) CurrentFeed(tag string, typ model.AssetType) (string, bool) {
	return s.feeds.CurrentFeed(tag, typ)
}

// FetchFeed returns the stored JSON descriptor of a feed, from its id or file name
func (s *Service) FetchFeed(ctx context.Context, file string) ([]byte, error) {
	id, err := model.ParseFeedFile(file)
	if err != nil {
		return nil, err
	}
	data, err := storage.ReadAll(ctx, s.store, model.GetArchivePathToFeed(id))
	if err != nil {
		return nil, storageError(err, "feed "+id)
	}
	return data, nil
}

// PublishInstruction replaces the instruction of a layout and reports how it joins with the feeds
func (s *Service) PublishInstruction(ctx context.Context, layout string, typ model.AssetType, tags []string) (join.Status, error) {
	instruction, err := s.instructions.PublishInstruction(ctx, layout, typ, tags)
	if err != nil {
		return join.Status{}, err
	}
	return s.join.Status(instruction.Layout, instruction.Type), nil
}

// InstructionStatus reports how the instruction of a layout joins with the feeds
func (s *Service) InstructionStatus(layout string, typ model.AssetType) (join.Status, error) {
	typ, err := model.ParseAssetType(string(typ))
	if err != nil {
		return join.Status{}, err
	}
	st := s.join.Status(layout, typ)
	if st.State == join.Unknown {
		return st, status.ErrNotFound.WrapMessage("no instruction for layout %q (%s)", layout, typ)
	}
	return st, nil
}

// loadFeed reads a feed descriptor. Feeds are immutable, so they are cached.
func (s *Service) loadFeed(ctx context.Context, id string) (model.Feed, error) {
	if !model.IsHash(id) {
		return model.Feed{}, status.ErrValidation.WrapMessage("invalid feed id %q", id)
	}
	if v, ok := s.feedCache.Get(id); ok {
		return v.(model.Feed), nil
	}

	var feed model.Feed
	if err := s.readJSON(ctx, model.GetArchivePathToFeed(id), "feed "+id, &feed); err != nil {
		return model.Feed{}, err
	}
	s.feedCache.Add(id, feed)
	return feed, nil
}
