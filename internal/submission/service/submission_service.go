package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"runpad/internal/common/cache"
	"runpad/internal/judge0"
	"runpad/internal/submission/repository"
	appErr "runpad/pkg/errors"
	"runpad/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	submissionCacheKeyPrefix = "submissions:"
	rowsCountKey             = "rows_count"
	defaultCacheTTL          = 300 * time.Second
)

// Judge statuses before the job finished. Rows in these states carry a token
// that gets re-polled; any other status is terminal and never touched again.
const (
	StatusInQueue    = "In Queue"
	StatusProcessing = "Processing"
)

var nonTerminalStatuses = []string{StatusInQueue, StatusProcessing}

// IsTerminal reports whether a status will no longer change.
func IsTerminal(status string) bool {
	return status != StatusInQueue && status != StatusProcessing
}

// JudgeClient abstracts the external judge collaborator.
type JudgeClient interface {
	Create(ctx context.Context, languageID int, sourceB64, stdinB64 string) (string, error)
	Read(ctx context.Context, token string) (judge0.Result, error)
}

// Config holds submission service dependencies and settings.
type Config struct {
	Repo     repository.SubmissionRepository
	Cache    cache.Cache
	Judge    JudgeClient
	CacheTTL time.Duration
}

// SubmissionService orchestrates the submission lifecycle: create through the
// judge, reconcile pending rows against it, and keep the Redis mirror of the
// store in sync.
type SubmissionService struct {
	repo     repository.SubmissionRepository
	cache    cache.Cache
	judge    JudgeClient
	cacheTTL time.Duration
}

// CreateInput describes a new submission request. Source and stdin arrive
// base64-encoded from the client and stay encoded end to end.
type CreateInput struct {
	Username   string
	LanguageID int
	SourceCode string
	Stdin      string
}

// NewSubmissionService creates a new submission service.
func NewSubmissionService(cfg Config) (*SubmissionService, error) {
	if cfg.Repo == nil {
		return nil, fmt.Errorf("submission repository is required")
	}
	if cfg.Cache == nil {
		return nil, fmt.Errorf("cache is required")
	}
	if cfg.Judge == nil {
		return nil, fmt.Errorf("judge client is required")
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	return &SubmissionService{
		repo:     cfg.Repo,
		cache:    cfg.Cache,
		judge:    cfg.Judge,
		cacheTTL: cfg.CacheTTL,
	}, nil
}

// Create submits code to the judge, persists the resulting row and mirrors it
// into the cache.
func (s *SubmissionService) Create(ctx context.Context, input CreateInput) (*repository.Submission, error) {
	token, err := s.judge.Create(ctx, input.LanguageID, input.SourceCode, input.Stdin)
	if err != nil {
		return nil, err
	}

	// One immediate fetch for the initial snapshot; the status is usually
	// still "In Queue" at this point.
	snapshot, err := s.judge.Read(ctx, token)
	if err != nil {
		return nil, err
	}

	status := snapshot.Status.Description
	if status == "" {
		status = StatusInQueue
	}

	submission := &repository.Submission{
		ID:          uuid.NewString(),
		Username:    input.Username,
		LanguageID:  input.LanguageID,
		SourceCode:  input.SourceCode,
		Stdin:       input.Stdin,
		Stdout:      snapshot.Stdout,
		Time:        snapshot.Time,
		Memory:      snapshot.Memory,
		Status:      status,
		Token:       token,
		SubmittedAt: parseJudgeTime(snapshot.CreatedAt),
	}

	if err := s.repo.Create(ctx, submission); err != nil {
		return nil, appErr.Wrapf(err, appErr.SubmissionCreateFailed, "create submission failed")
	}

	s.writeCache(ctx, submission)
	if _, err := s.cache.Incr(ctx, rowsCountKey); err != nil {
		logger.Warn(ctx, "increment rows_count failed", zap.Error(err))
	}
	return submission, nil
}

// Get returns one submission, cache first, store on miss. A store miss is
// returned as SubmissionNotFound without caching anything.
func (s *SubmissionService) Get(ctx context.Context, id string) (*repository.Submission, error) {
	if id == "" {
		return nil, appErr.ValidationError("id", "required")
	}

	key := submissionCacheKey(id)
	cached, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.Warn(ctx, "read submission cache failed", zap.String("id", id), zap.Error(err))
	} else if cached != "" {
		if submission, err := unmarshalSubmission(cached); err == nil {
			return submission, nil
		}
	}

	submission, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrSubmissionNotFound) {
			return nil, appErr.New(appErr.SubmissionNotFound)
		}
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "get submission failed")
	}

	s.writeCache(ctx, submission)
	return submission, nil
}

// List returns all submissions ordered by submission time ascending.
//
// Before serving, every non-terminal row is re-polled against the judge so
// stale "In Queue"/"Processing" results get refreshed; Judge0 workers finish
// jobs after the create call returned, so rows go stale between requests.
// The listing is then served from the cache when it fully mirrors the store
// (key count matches rows_count), otherwise rebuilt from the store with the
// cache rewritten wholesale.
func (s *SubmissionService) List(ctx context.Context) ([]*repository.Submission, error) {
	s.refreshPending(ctx)

	keys, err := s.cache.Keys(ctx, submissionCacheKeyPrefix+"*")
	if err != nil {
		logger.Warn(ctx, "list submission cache keys failed", zap.Error(err))
		keys = nil
	}

	if len(keys) > 0 && int64(len(keys)) == s.rowsCount(ctx) {
		if submissions, ok := s.readCachedListing(ctx, keys); ok {
			logger.Debug(ctx, "submission listing served from cache", zap.Int("rows", len(submissions)))
			return submissions, nil
		}
	}

	// Cache is empty, incomplete or undecodable: resync it from the store.
	submissions, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "list submissions failed")
	}
	for _, submission := range submissions {
		s.writeCache(ctx, submission)
	}
	if err := s.cache.Set(ctx, rowsCountKey, len(submissions), 0); err != nil {
		logger.Warn(ctx, "reset rows_count failed", zap.Error(err))
	}
	return submissions, nil
}

// Delete removes a submission from the store, then from the cache. Cache
// cleanup only happens after the store delete succeeded, so a NotFound leaves
// any cached entry to expire on its own.
func (s *SubmissionService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return appErr.ValidationError("id", "required")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrSubmissionNotFound) {
			return appErr.New(appErr.SubmissionNotFound)
		}
		return appErr.Wrapf(err, appErr.SubmissionDeleteFailed, "delete submission failed")
	}

	if err := s.cache.Del(ctx, submissionCacheKey(id)); err != nil {
		logger.Warn(ctx, "delete submission cache key failed", zap.String("id", id), zap.Error(err))
	}
	if _, err := s.cache.Decr(ctx, rowsCountKey); err != nil {
		logger.Warn(ctx, "decrement rows_count failed", zap.Error(err))
	}
	return nil
}

// refreshPending re-polls every non-terminal row with a token, in parallel,
// capturing a per-row result. A failed row is logged and skipped; it never
// blocks the rest of the pass.
func (s *SubmissionService) refreshPending(ctx context.Context) {
	pending, err := s.repo.ListByStatuses(ctx, nonTerminalStatuses)
	if err != nil {
		logger.Warn(ctx, "load pending submissions failed", zap.Error(err))
		return
	}
	if len(pending) == 0 {
		return
	}

	results := make([]error, len(pending))
	var wg sync.WaitGroup
	for i, submission := range pending {
		if submission.Token == "" {
			continue
		}
		wg.Add(1)
		go func(i int, submission *repository.Submission) {
			defer wg.Done()
			results[i] = s.refreshOne(ctx, submission)
		}(i, submission)
	}
	wg.Wait()

	failed := 0
	for i, err := range results {
		if err == nil {
			continue
		}
		failed++
		logger.Warn(ctx, "refresh submission failed",
			zap.String("id", pending[i].ID),
			zap.Error(err),
		)
	}
	if failed > 0 {
		logger.Warn(ctx, "reconciliation pass finished with failures",
			zap.Int("failed", failed),
			zap.Int("pending", len(pending)),
		)
	}
}

func (s *SubmissionService) refreshOne(ctx context.Context, submission *repository.Submission) error {
	result, err := s.judge.Read(ctx, submission.Token)
	if err != nil {
		return err
	}
	updated, err := s.repo.UpdateResult(ctx, submission.ID, repository.ResultUpdate{
		Stdout: result.Stdout,
		Time:   result.Time,
		Memory: result.Memory,
		Status: result.Status.Description,
	})
	if err != nil {
		return err
	}
	s.writeCache(ctx, updated)
	return nil
}

// readCachedListing bulk-reads and decodes the cached rows. Returns false
// when any value is missing or undecodable, forcing a full resync: entries
// can expire between the KEYS and MGET calls.
func (s *SubmissionService) readCachedListing(ctx context.Context, keys []string) ([]*repository.Submission, bool) {
	values, err := s.cache.MGet(ctx, keys...)
	if err != nil {
		logger.Warn(ctx, "bulk read submission cache failed", zap.Error(err))
		return nil, false
	}

	submissions := make([]*repository.Submission, 0, len(values))
	for _, value := range values {
		if value == "" {
			return nil, false
		}
		submission, err := unmarshalSubmission(value)
		if err != nil {
			return nil, false
		}
		submissions = append(submissions, submission)
	}

	// Redis key enumeration order is unspecified; restore store ordering.
	sort.Slice(submissions, func(i, j int) bool {
		if submissions[i].SubmittedAt.Equal(submissions[j].SubmittedAt) {
			return submissions[i].ID < submissions[j].ID
		}
		return submissions[i].SubmittedAt.Before(submissions[j].SubmittedAt)
	})
	return submissions, true
}

func (s *SubmissionService) rowsCount(ctx context.Context) int64 {
	value, err := s.cache.Get(ctx, rowsCountKey)
	if err != nil {
		logger.Warn(ctx, "read rows_count failed", zap.Error(err))
		return -1
	}
	if value == "" {
		return 0
	}
	count, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return -1
	}
	return count
}

func (s *SubmissionService) writeCache(ctx context.Context, submission *repository.Submission) {
	payload := marshalSubmission(submission)
	if payload == "" {
		return
	}
	if err := s.cache.Set(ctx, submissionCacheKey(submission.ID), payload, s.cacheTTL); err != nil {
		logger.Warn(ctx, "write submission cache failed", zap.String("id", submission.ID), zap.Error(err))
	}
}

func submissionCacheKey(id string) string {
	return submissionCacheKeyPrefix + id
}

func marshalSubmission(submission *repository.Submission) string {
	if submission == nil {
		return ""
	}
	data, err := json.Marshal(submission)
	if err != nil {
		return ""
	}
	return string(data)
}

func unmarshalSubmission(data string) (*repository.Submission, error) {
	var submission repository.Submission
	if err := json.Unmarshal([]byte(data), &submission); err != nil {
		return nil, err
	}
	return &submission, nil
}

// parseJudgeTime parses the judge's created_at timestamp, falling back to the
// current time when it is absent or malformed.
func parseJudgeTime(value string) time.Time {
	if value == "" {
		return time.Now().UTC()
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed.UTC()
	}
	return time.Now().UTC()
}
