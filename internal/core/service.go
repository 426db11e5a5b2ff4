package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/mikey/spam-classifier/internal/utils"
	"github.com/mikey/spam-classifier/internal/whitelist"
	"go.uber.org/zap"
)

// SpamFilterService is the core service for mail filtering
type SpamFilterService struct {
	classifier    Classifier
	cache         CacheRepository
	logger        *zap.Logger
	cacheEnabled  bool
	cacheTTL      time.Duration
	threshold     float64
	whitelist     *whitelist.Checker
	textProcessor *utils.TextProcessor
	maxBodySize   int
}

// NewSpamFilterService creates a new spam filter service
func NewSpamFilterService(
	classifier Classifier,
	cache CacheRepository,
	logger *zap.Logger,
	cacheEnabled bool,
	cacheTTL time.Duration,
	threshold float64,
	whitelist *whitelist.Checker,
	textProcessor *utils.TextProcessor,
	maxBodySize int,
) *SpamFilterService {
	return &SpamFilterService{
		classifier:    classifier,
		cache:         cache,
		logger:        logger,
		cacheEnabled:  cacheEnabled && cache != nil,
		cacheTTL:      cacheTTL,
		threshold:     threshold,
		whitelist:     whitelist,
		textProcessor: textProcessor,
		maxBodySize:   maxBodySize,
	}
}

// cacheKey derives the cache key from the model in use and the message text
func cacheKey(modelID, text string) string {
	sum := sha256.Sum256([]byte(text))
	return modelID + ":" + hex.EncodeToString(sum[:])
}

// AnalyzeEmail checks if an email is spam
func (s *SpamFilterService) AnalyzeEmail(ctx context.Context, email *Email) (*SpamAnalysisResult, error) {
	// Check whitelist first
	if s.whitelist != nil && s.whitelist.IsWhitelisted(email.From) {
		s.logger.Info("Skipping spam check for whitelisted domain",
			zap.String("sender", email.From),
			zap.String("action", "whitelist_bypass"))

		return &SpamAnalysisResult{
			IsSpam:      false,
			Score:       0.0,
			Explanation: "Sender domain is whitelisted",
			AnalyzedAt:  time.Now(),
			ModelUsed:   "whitelist",
		}, nil
	}

	text := email.Body
	if s.textProcessor != nil {
		text = s.textProcessor.ProcessText(text, s.maxBodySize)
	}

	key := cacheKey(s.classifier.ModelID(), text)

	// Check cache if enabled
	if s.cacheEnabled {
		if entry, err := s.cache.Get(ctx, key); err == nil {
			s.logger.Debug("Cache hit for message", zap.String("sender", email.From))
			return &SpamAnalysisResult{
				IsSpam:      entry.Score >= s.threshold,
				Score:       entry.Score,
				Explanation: "Result from cache",
				AnalyzedAt:  time.Now(),
				ModelUsed:   entry.ModelID,
			}, nil
		}
	}

	result, err := s.classifier.Classify(ctx, text)
	if err != nil {
		return nil, err
	}
	result.IsSpam = s.IsSpam(result)

	// Update cache with result if enabled
	if s.cacheEnabled {
		now := time.Now()
		// the model may have been swapped between key derivation and scoring
		entry := &CacheEntry{
			Key:       cacheKey(result.ModelUsed, text),
			ModelID:   result.ModelUsed,
			IsSpam:    result.IsSpam,
			Score:     result.Score,
			LastSeen:  now,
			ExpiresAt: now.Add(s.cacheTTL),
		}
		if err := s.cache.Set(ctx, entry); err != nil {
			s.logger.Error("Failed to update cache", zap.Error(err))
		}
	}

	return result, nil
}

// IsSpam determines if a result is spam based on the decision threshold
func (s *SpamFilterService) IsSpam(result *SpamAnalysisResult) bool {
	if result.ModelUsed == "whitelist" {
		return false
	}
	return result.Score >= s.threshold
}
