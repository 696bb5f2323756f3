package mongodb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/adapters/source"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/apperrors"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/config"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/logging"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/models"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/retry"
)

// Sample modes.
const (
	ModeRandom = "random"
	ModeHead   = "head"
)

// Server error codes treated as transient. 16500 is the Cosmos DB Mongo API
// "request rate is large" code.
var transientCodes = []int{16500, 50, 89, 91, 189, 262, 11600, 11602, 13435, 13436}

// Source samples collections of a MongoDB database, including Cosmos DB
// accounts exposed through the Mongo API.
type Source struct {
	client   *mongo.Client
	db       *mongo.Database
	mode     string
	timeout  time.Duration
	retryCfg *retry.Config
	logger   *zap.Logger
}

var _ source.SampleSource = (*Source)(nil)

// NewSource connects to cfg.URI and pings the server.
func NewSource(ctx context.Context, cfg config.SourceConfig, logger *zap.Logger) (*Source, error) {
	logger = logger.Named("source.mongo")

	mode := cfg.SampleMode
	if mode == "" {
		mode = ModeRandom
	}
	if mode != ModeRandom && mode != ModeHead {
		return nil, &apperrors.ConfigurationError{Field: "source.sample_mode", Reason: fmt.Sprintf("unknown sample mode %q", mode)}
	}

	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(cfg.URI).
		SetAppName("container-assessor").
		SetServerSelectionTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", logging.SanitizeConnectionString(cfg.URI), err)
	}

	s := &Source{
		client:   client,
		db:       client.Database(cfg.Database),
		mode:     mode,
		timeout:  timeout,
		retryCfg: retry.WithMaxRetries(cfg.MaxRetries),
		logger:   logger,
	}

	err = retry.DoIfRetryable(ctx, s.retryCfg, func() error {
		return classify(client.Ping(ctx, nil))
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping %s: %w: %w", logging.SanitizeConnectionString(cfg.URI), apperrors.ErrSourceUnavailable, err)
	}

	logger.Info("Connected to document store",
		zap.String("uri", logging.SanitizeConnectionString(cfg.URI)),
		zap.String("database", cfg.Database),
		zap.String("sample_mode", mode))
	return s, nil
}

// FetchSample draws up to maxCount documents with a $sample stage, or the
// first maxCount in natural order in head mode. Transient failures retry
// the whole fetch.
func (s *Source) FetchSample(ctx context.Context, container string, maxCount int) ([]models.SampledDocument, error) {
	if maxCount <= 0 {
		return nil, nil
	}
	coll := s.db.Collection(container)

	docs, err := retry.DoWithResultIfRetryable(ctx, s.retryCfg, func() ([]models.SampledDocument, error) {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		cursor, err := s.open(ctx, coll, maxCount)
		if err != nil {
			return nil, classify(err)
		}
		defer cursor.Close(ctx)

		var out []models.SampledDocument
		for cursor.Next(ctx) {
			root, err := DocumentFromRaw(cursor.Current)
			if err != nil {
				s.logger.Debug("Undecodable document",
					zap.String("container", container),
					zap.Error(err))
				root = models.Null()
			}
			out = append(out, models.SampledDocument{ID: source.DocumentID(container, root, len(out)), Root: root})
		}
		if err := cursor.Err(); err != nil {
			return nil, classify(err)
		}
		return out, nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || (errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil) {
			return nil, fmt.Errorf("sampling %s cancelled: %w", container, err)
		}
		return nil, &apperrors.InputError{Container: container, Err: fmt.Errorf("%w: %w", apperrors.ErrSourceUnavailable, err)}
	}

	s.logger.Debug("Sampled container",
		zap.String("container", container),
		zap.String("mode", s.mode),
		zap.Int("documents", len(docs)))
	return docs, nil
}

func (s *Source) open(ctx context.Context, coll *mongo.Collection, maxCount int) (*mongo.Cursor, error) {
	if s.mode == ModeHead {
		return coll.Find(ctx, bson.D{}, options.Find().SetLimit(int64(maxCount)))
	}
	pipeline := mongo.Pipeline{
		{{Key: "$sample", Value: bson.D{{Key: "size", Value: maxCount}}}},
	}
	return coll.Aggregate(ctx, pipeline)
}

// ListContainers lists collections with their estimated document counts and
// storage size. Shard keys are reported as partition key paths when the
// store exposes them.
func (s *Source) ListContainers(ctx context.Context) ([]models.ContainerMetadata, error) {
	names, err := retry.DoWithResultIfRetryable(ctx, s.retryCfg, func() ([]string, error) {
		names, err := s.db.ListCollectionNames(ctx, bson.D{})
		return names, classify(err)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	sort.Strings(names)

	out := make([]models.ContainerMetadata, 0, len(names))
	for _, name := range names {
		m := models.ContainerMetadata{Name: name}

		count, err := s.db.Collection(name).EstimatedDocumentCount(ctx)
		if err != nil {
			s.logger.Warn("Failed to estimate document count",
				zap.String("container", name),
				zap.Error(err))
		} else {
			m.DocumentCount = count
		}

		var stats struct {
			Size     int64          `bson:"size"`
			ShardKey map[string]any `bson:"shardKey"`
		}
		err = s.db.RunCommand(ctx, bson.D{{Key: "collStats", Value: name}}).Decode(&stats)
		if err != nil {
			s.logger.Debug("collStats unavailable",
				zap.String("container", name),
				zap.Error(err))
		} else {
			m.StorageBytes = stats.Size
			m.PartitionKeyPath = shardKeyPath(stats.ShardKey)
		}

		out = append(out, m)
	}
	return out, nil
}

// shardKeyPath renders a single-field shard key as "/field".
func shardKeyPath(key map[string]any) string {
	if len(key) != 1 {
		return ""
	}
	for field := range key {
		return "/" + field
	}
	return ""
}

// Close disconnects the client.
func (s *Source) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// ============================================================================
// Error classification
// ============================================================================

// storeError marks driver errors with their retryability.
type storeError struct {
	err       error
	retryable bool
}

func (e *storeError) Error() string     { return e.err.Error() }
func (e *storeError) Unwrap() error     { return e.err }
func (e *storeError) IsRetryable() bool { return e.retryable }

func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &storeError{err: err, retryable: isTransient(err)}
}

func isTransient(err error) bool {
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return true
	}
	var se mongo.ServerError
	if errors.As(err, &se) {
		for _, code := range transientCodes {
			if se.HasErrorCode(code) {
				return true
			}
		}
		return se.HasErrorLabel("RetryableWriteError") || se.HasErrorLabel("TransientTransactionError")
	}
	return retry.IsRetryable(err)
}
