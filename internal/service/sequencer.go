package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/driftsocial/skiff"
	"github.com/driftsocial/skiff/internal/domain"
	"github.com/driftsocial/skiff/repo"
)

const (
	firehoseStream = "firehose"
	sequenceKey    = "firehose:seq"

	// old frames are trimmed; a subscriber further behind than this misses
	// them and has to resync some other way
	streamMaxLen = 8192

	tailBlock = 5 * time.Second
)

// SequencerService appends registration and repo events to the firehose
// stream. Sequence numbers come from a shared counter and double as stream
// entry IDs, so a consumer can resume from the last Seq it saw and every
// consumer observes the same total order.
type SequencerService struct {
	rdb *redis.Client

	now func() time.Time
}

func NewSequencerService(rdb *redis.Client) *SequencerService {
	return &SequencerService{rdb: rdb, now: time.Now}
}

func (s *SequencerService) SequenceIdentity(ctx context.Context, did, handle string) error {
	return s.publish(ctx, skiff.Event{Kind: domain.EventIdentity, Did: did, Handle: handle})
}

func (s *SequencerService) SequenceAccount(ctx context.Context, did string, active bool) error {
	return s.publish(ctx, skiff.Event{Kind: domain.EventAccount, Did: did, Active: &active})
}

func (s *SequencerService) SequenceCommit(ctx context.Context, data repo.CommitData) error {
	commit := skiff.CommitInfo{Cid: data.Cid, Rev: data.Rev}
	return s.publish(ctx, skiff.Event{Kind: domain.EventCommit, Did: data.Did, Commit: &commit})
}

func (s *SequencerService) publish(ctx context.Context, event skiff.Event) error {
	seq, err := s.rdb.Incr(ctx, sequenceKey).Result()
	if err != nil {
		return errors.Wrap(err, "advance sequence counter")
	}
	event.Seq = seq
	event.Time = s.now().UTC()

	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "encode event")
	}
	err = s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: firehoseStream,
		MaxLen: streamMaxLen,
		Approx: true,
		ID:     fmt.Sprintf("%d-0", seq),
		Values: map[string]any{"event": payload},
	}).Err()
	if err != nil {
		return errors.Wrap(err, "append event")
	}
	return nil
}

// Tail streams every event with Seq greater than cursor to out until ctx
// ends. Cursor zero skips history and follows the live tail. A frame that
// fails to decode is dropped rather than ending the stream.
func (s *SequencerService) Tail(ctx context.Context, cursor int64, out chan<- skiff.Event) error {
	lastID := "$"
	if cursor > 0 {
		lastID = strconv.FormatInt(cursor, 10) + "-0"
	}
	for {
		res, err := s.rdb.XRead(ctx, &redis.XReadArgs{
			Streams: []string{firehoseStream, lastID},
			Count:   64,
			Block:   tailBlock,
		}).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, redis.Nil) {
				// block window elapsed without new entries
				continue
			}
			return errors.Wrap(err, "read firehose stream")
		}
		for _, stream := range res {
			for _, msg := range stream.Messages {
				lastID = msg.ID
				raw, ok := msg.Values["event"].(string)
				if !ok {
					slog.Error(
						"dropping malformed firehose entry",
						slog.String("id", msg.ID),
						slog.String("module", "sequencer"),
					)
					continue
				}
				var event skiff.Event
				if err := json.Unmarshal([]byte(raw), &event); err != nil {
					slog.Error(
						"dropping undecodable firehose frame",
						slog.String("error", err.Error()),
						slog.String("module", "sequencer"),
					)
					continue
				}
				select {
				case <-ctx.Done():
					return nil
				case out <- event:
				}
			}
		}
	}
}
