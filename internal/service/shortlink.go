package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/sakif/foodgram/internal/apperror"
	"github.com/sakif/foodgram/internal/metrics"
	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/repository"
)

const shortCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// ShortLinkOptions configures ShortLinkService.
type ShortLinkOptions struct {
	// BaseURL is prefixed to every code; links have the form BaseURL+code+"/".
	BaseURL     string
	TokenLength int
	MaxAttempts int
}

// ShortLinkService gives each recipe one stable, globally unique short code.
type ShortLinkService struct {
	repo     repository.ShortLinkRepository
	opts     ShortLinkOptions
	generate func(n int) (string, error)
	logger   *slog.Logger
}

func NewShortLinkService(repo repository.ShortLinkRepository, opts ShortLinkOptions, logger *slog.Logger) *ShortLinkService {
	if opts.TokenLength <= 0 {
		opts.TokenLength = 10
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 10
	}
	return &ShortLinkService{
		repo:     repo,
		opts:     opts,
		generate: randomCode,
		logger:   logger,
	}
}

// Allocate returns the recipe's short link, creating one on first use.
//
// A fresh code is checked against existing codes before it is written, and
// the repository's unique index rejects any code that was taken in the
// meantime. Both cases count as a collision and a new code is tried. After
// MaxAttempts collisions the allocation fails with apperror.ErrGeneration.
func (s *ShortLinkService) Allocate(ctx context.Context, recipeID string) (string, error) {
	code, err := s.repo.ShortCode(ctx, recipeID)
	if err != nil {
		return "", err
	}
	if code != "" {
		return s.Link(code), nil
	}

	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		candidate, err := s.generate(s.opts.TokenLength)
		if err != nil {
			return "", fmt.Errorf("service/shortlink: generating code: %w", err)
		}

		taken, err := s.repo.ShortCodeExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if taken {
			metrics.ShortLinkCollisions.Inc()
			continue
		}

		assigned, err := s.repo.AssignShortCode(ctx, recipeID, candidate)
		if errors.Is(err, apperror.ErrConflict) {
			metrics.ShortLinkCollisions.Inc()
			continue
		}
		if err != nil {
			return "", err
		}

		if assigned == candidate {
			metrics.ShortLinksAllocated.Inc()
			s.logger.Info("short link allocated",
				slog.String("recipeID", recipeID),
				slog.String("code", assigned),
				slog.Int("attempt", attempt),
			)
		}
		return s.Link(assigned), nil
	}

	metrics.ShortLinkExhausted.Inc()
	s.logger.Error("short link allocation exhausted",
		slog.String("recipeID", recipeID),
		slog.Int("attempts", s.opts.MaxAttempts),
	)
	return "", apperror.GenerationFailed("short link", s.opts.MaxAttempts)
}

// Link formats code as a full short link.
func (s *ShortLinkService) Link(code string) string {
	return s.opts.BaseURL + code + "/"
}

// Resolve returns the recipe a short link points to. It accepts the full
// link or the bare code, with or without the trailing slash.
func (s *ShortLinkService) Resolve(ctx context.Context, link string) (*model.Recipe, error) {
	code := strings.TrimPrefix(link, s.opts.BaseURL)
	code = strings.TrimSuffix(code, "/")
	if code == "" || strings.Contains(code, "/") {
		return nil, apperror.NotFound("short link", link)
	}
	return s.repo.GetRecipeByShortCode(ctx, code)
}

// randomCode returns n characters drawn uniformly from shortCodeAlphabet.
func randomCode(n int) (string, error) {
	n62 := big.NewInt(int64(len(shortCodeAlphabet)))
	var b strings.Builder
	b.Grow(n)
	for range n {
		i, err := rand.Int(rand.Reader, n62)
		if err != nil {
			return "", err
		}
		b.WriteByte(shortCodeAlphabet[i.Int64()])
	}
	return b.String(), nil
}
