package service

import (
	"context"
	"strings"
	"time"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
)

// StreamingDataTTL is how long reported streams stay valid.
const StreamingDataTTL = 5 * time.Minute

// StreamingDataKey is the cache key of the streams of a wallet.
func StreamingDataKey(wallet string) string {
	return "streaming_data_" + strings.ToLower(wallet)
}

// StreamingService implements port.StreamingService.
type StreamingService struct {
	cache  port.Cache
	logger port.Logger
}

func NewStreamingService(cache port.Cache, l port.Logger) *StreamingService {
	return &StreamingService{cache: cache, logger: l}
}

func (s *StreamingService) SaveStreams(ctx context.Context, wallet string, streams []entity.StreamData) error {
	if streams == nil {
		streams = []entity.StreamData{}
	}
	return s.cache.Put(ctx, StreamingDataKey(wallet), streams)
}

// GetStreams returns the streams saved less than StreamingDataTTL ago.
func (s *StreamingService) GetStreams(ctx context.Context, wallet string) ([]entity.StreamData, bool) {
	var streams []entity.StreamData
	ok, err := s.cache.GetFresh(ctx, StreamingDataKey(wallet), StreamingDataTTL, &streams)
	if err != nil {
		s.logger.Warn("Failed to read cached streams", "wallet", wallet, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	if streams == nil {
		streams = []entity.StreamData{}
	}
	return streams, true
}
