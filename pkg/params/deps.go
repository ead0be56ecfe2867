package params

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/keepmind9/botparams/internal/logger"
	"github.com/keepmind9/botparams/pkg/adapters"
	"github.com/keepmind9/botparams/pkg/adapters/feishu"
	"github.com/keepmind9/botparams/pkg/adapters/onebot"
	"github.com/keepmind9/botparams/pkg/adapters/qqguild"
	"github.com/keepmind9/botparams/pkg/adapters/telegram"
	"github.com/keepmind9/botparams/pkg/constants"
	"github.com/keepmind9/botparams/pkg/message"
	"github.com/sirupsen/logrus"
)

// builtinSegments are the factories resolved without asking the adapter
var builtinSegments = map[string]message.Factory{
	constants.OneBot:  onebot.Segments,
	constants.Feishu:  feishu.Segments,
	constants.QQGuild: qqguild.Segments,
}

var segmentCache = newSegmentCache()

func newSegmentCache() *lru.Cache[string, message.Factory] {
	cache, err := lru.New[string, message.Factory](constants.SegmentFactoryCacheSize)
	if err != nil {
		panic(err)
	}
	return cache
}

// ImageFunc builds an image segment for the live adapter
type ImageFunc func(ctx context.Context, file any) (message.Segment, error)

// EventName returns the name of the current event
func EventName(ctx context.Context, s *State) (string, error) {
	if err := s.validate(); err != nil {
		return "", err
	}
	return s.Event.EventName(), nil
}

// AdapterName returns the name of the adapter the bot belongs to
func AdapterName(ctx context.Context, s *State) (string, error) {
	if err := s.validate(); err != nil {
		return "", err
	}
	return s.Bot.Adapter().Name(), nil
}

// MessageSegmentClass returns the segment factory of the live adapter. OneBot,
// Feishu and QQ Guild are resolved from the built-in table; other adapters must
// implement adapters.SegmentProvider.
func MessageSegmentClass(ctx context.Context, s *State) (message.Factory, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	adapter := s.Bot.Adapter()
	name := adapter.Name()

	if factory, ok := segmentCache.Get(name); ok {
		return factory, nil
	}

	factory, ok := builtinSegments[name]
	if !ok {
		provider, isProvider := adapter.(adapters.SegmentProvider)
		if !isProvider {
			return nil, notSupported(name, "message segments")
		}
		factory = provider.MessageSegments()
		if factory == nil {
			return nil, notSupported(name, "message segments")
		}
	}

	segmentCache.Add(name, factory)
	logger.WithFields(logrus.Fields{
		"adapter": name,
		"builtin": ok,
	}).Debug("segment-factory-resolved")
	return factory, nil
}

// ImageSegmentMethod returns a function that turns a file value into an image
// segment the live adapter can send.
//
// OneBot passes the value to its factory. Feishu reads the file, uploads it and
// builds the segment from the returned image_key. Telegram wraps the value as a
// Bot API file. QQ Guild takes URL strings only. Other adapters use the Image
// method of their factory when it has one.
func ImageSegmentMethod(ctx context.Context, s *State) (ImageFunc, error) {
	name, err := AdapterName(ctx, s)
	if err != nil {
		return nil, err
	}
	bot := s.Bot

	switch name {
	case constants.OneBot:
		return func(ctx context.Context, file any) (message.Segment, error) {
			return onebot.Segments.Image(file)
		}, nil

	case constants.Feishu:
		return func(ctx context.Context, file any) (message.Segment, error) {
			return uploadFeishuImage(ctx, bot, file)
		}, nil

	case constants.Telegram:
		return func(ctx context.Context, file any) (message.Segment, error) {
			norm, err := message.Normalize(file)
			if err != nil {
				return message.Segment{}, err
			}
			return telegram.File.Photo(norm)
		}, nil

	case constants.QQGuild:
		return func(ctx context.Context, file any) (message.Segment, error) {
			return qqguild.Segments.Image(file)
		}, nil
	}

	factory, err := MessageSegmentClass(ctx, s)
	if err != nil {
		return nil, err
	}
	images, ok := factory.(message.ImageFactory)
	if !ok {
		return nil, notSupported(name, "image segments")
	}
	return func(ctx context.Context, file any) (message.Segment, error) {
		return images.Image(file)
	}, nil
}

func uploadFeishuImage(ctx context.Context, bot adapters.Bot, file any) (message.Segment, error) {
	data, err := message.ReadAll(file)
	if err != nil {
		return message.Segment{}, err
	}

	resp, err := bot.CallAPI(ctx, feishu.APIUploadImage, map[string]any{
		"image_type": "message",
		"image":      data,
	})
	if err != nil {
		return message.Segment{}, fmt.Errorf("failed to upload image: %w", err)
	}

	key, _ := resp["image_key"].(string)
	if key == "" {
		return message.Segment{}, fmt.Errorf("image upload returned no image_key")
	}
	return feishu.Segments.Image(key)
}
