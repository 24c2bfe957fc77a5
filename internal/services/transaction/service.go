package transaction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "fraudguard/internal/errors"
	"fraudguard/internal/lock"
	"fraudguard/internal/models"
	"fraudguard/internal/repositories"
	"fraudguard/internal/services/ledger"
	"fraudguard/internal/services/risk"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type service struct {
	store     repositories.Store
	locker    lock.Locker
	scorer    risk.Scorer
	processor *processor
	config    Config
	logger    *zap.Logger
	tracer    trace.Tracer

	now          func() time.Time
	newReference func() string
}

// NewService creates a new transaction service
func NewService(
	store repositories.Store,
	locker lock.Locker,
	engine *risk.Engine,
	scorer risk.Scorer,
	config Config,
	logger *zap.Logger,
) Service {
	if store == nil {
		panic("store is required")
	}
	if locker == nil {
		panic("locker is required")
	}
	if engine == nil {
		panic("risk engine is required")
	}
	if scorer == nil {
		panic("risk scorer is required")
	}
	if config.DefaultCurrency == "" {
		config.DefaultCurrency = "IDR"
	}
	if config.Metrics == nil {
		config.Metrics = NoopMetricsCollector{}
	}
	if config.TracerProvider == nil {
		config.TracerProvider = otel.GetTracerProvider()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &service{
		store:        store,
		locker:       locker,
		scorer:       scorer,
		config:       config,
		logger:       logger,
		tracer:       config.TracerProvider.Tracer(tracerName),
		now:          time.Now,
		newReference: newReference,
	}
	s.processor = &processor{
		engine: engine,
		config: ledger.Config{MinBalance: config.MinBalance},
		svc:    s,
	}
	return s
}

func (s *service) CreateTransaction(ctx context.Context, req CreateRequest) (result *Result, err error) {
	ctx, span := s.tracer.Start(ctx, "transaction.create", trace.WithAttributes(
		attribute.Int64("user_id", int64(req.UserID)),
		attribute.String("type", string(req.Type)),
	))
	defer func() { endSpan(span, err) }()

	start := s.now()
	defer func() {
		s.config.Metrics.RecordOperationDuration(ctx, "create_transaction", s.now().Sub(start))
		if err != nil {
			s.config.Metrics.RecordError(ctx, "create_transaction", errorKind(err))
		}
	}()

	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = s.now()
	}

	// Scoring happens outside the lock; the model may be slow.
	score, reason := s.score(ctx, req)
	span.SetAttributes(attribute.Bool("scored", score.IsScored()))

	var out *processed
	err = s.locker.WithLock(ctx, lock.AccountKey(req.UserID), func() error {
		return s.store.ExecuteInTransaction(ctx, func(store repositories.Store) error {
			var err error
			out, err = s.processor.process(ctx, store, req, score, reason)
			return err
		})
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrInsufficientBalance) {
			s.logger.Info("transaction rejected below balance floor",
				zap.Uint("user_id", req.UserID),
				zap.String("amount", req.Amount.StringFixed(AmountPlaces)))
		}
		return nil, normalizeError("create transaction", err)
	}

	s.config.Metrics.RecordDecision(ctx, string(out.decision.Disposition), out.decision.Reason)
	span.SetAttributes(
		attribute.String("disposition", string(out.decision.Disposition)),
		attribute.String("reference", out.tx.Reference),
	)
	s.logger.Info("transaction recorded",
		zap.Uint("user_id", req.UserID),
		zap.String("reference", out.tx.Reference),
		zap.String("type", string(req.Type)),
		zap.String("disposition", string(out.decision.Disposition)),
		zap.String("reason", out.decision.Reason),
		zap.Stringer("risk_score", out.decision.Score))

	return &Result{
		Transaction: out.tx,
		Disposition: out.decision.Disposition,
		Reason:      out.decision.Reason,
		Balance:     out.balance,
	}, nil
}

// score asks the scorer and falls back to unscored when it fails. The
// returned reason overrides the engine's when non-empty.
func (s *service) score(ctx context.Context, req CreateRequest) (risk.Score, string) {
	score, err := s.scorer.Score(ctx, risk.ScoreRequest{
		UserID:      req.UserID,
		Amount:      req.Amount,
		Type:        req.Type,
		Description: req.Description,
		Timestamp:   req.Timestamp,
	})
	if err != nil {
		s.logger.Warn("risk scoring failed, holding transaction for review",
			zap.Uint("user_id", req.UserID), zap.Error(err))
		return risk.Unscored(), risk.ReasonScorerUnavailable
	}
	return score, ""
}

func (s *service) GetBalance(ctx context.Context, userID uint) (view *BalanceView, err error) {
	ctx, span := s.tracer.Start(ctx, "transaction.get_balance", trace.WithAttributes(
		attribute.Int64("user_id", int64(userID)),
	))
	defer func() { endSpan(span, err) }()

	start := s.now()
	defer func() {
		s.config.Metrics.RecordOperationDuration(ctx, "get_balance", s.now().Sub(start))
		if err != nil {
			s.config.Metrics.RecordError(ctx, "get_balance", errorKind(err))
		}
	}()

	err = s.locker.WithLock(ctx, lock.AccountKey(userID), func() error {
		return s.store.ExecuteInTransaction(ctx, func(store repositories.Store) error {
			account, err := store.Accounts().GetByUserIDForUpdate(ctx, userID)
			if err != nil {
				if errors.Is(err, repositories.ErrAccountNotFound) {
					return fmt.Errorf("%w: user %d", apperrors.ErrAccountNotFound, userID)
				}
				return apperrors.NewPersistenceError("lock account", err)
			}

			rec := ledger.NewReconciler(store.Accounts(), store.Transactions(), s.processor.config, s.logger)
			res, err := rec.Reconcile(ctx, userID)
			if err != nil {
				return err
			}

			view = &BalanceView{
				UserID:   userID,
				Balance:  res.Balance,
				Currency: account.Currency,
				IsSynced: res.IsSynced,
			}
			return nil
		})
	})
	if err != nil {
		return nil, normalizeError("get balance", err)
	}
	span.SetAttributes(attribute.Bool("is_synced", view.IsSynced))
	return view, nil
}

func (s *service) CreateAccount(ctx context.Context, userID uint, currency string) (*models.Account, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = s.config.DefaultCurrency
	}
	if len(currency) != 3 {
		return nil, apperrors.NewValidationError("currency", "must be a 3-letter code")
	}

	if _, err := s.store.Users().GetByID(ctx, userID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: %d", apperrors.ErrUserNotFound, userID)
		}
		return nil, apperrors.NewPersistenceError("load user", err)
	}

	account := &models.Account{UserID: userID, Currency: currency}
	if err := s.store.Accounts().Create(ctx, account); err != nil {
		if errors.Is(err, repositories.ErrDuplicateAccount) {
			return nil, fmt.Errorf("%w: user %d", apperrors.ErrAccountExists, userID)
		}
		return nil, apperrors.NewPersistenceError("create account", err)
	}

	s.logger.Info("account opened", zap.Uint("user_id", userID), zap.String("currency", currency))
	return account, nil
}

func (s *service) ListTransactions(ctx context.Context, userID uint, q HistoryQuery) ([]models.Transaction, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultHistoryLimit
	}
	if q.Limit > MaxHistoryLimit {
		q.Limit = MaxHistoryLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	for _, st := range q.Statuses {
		if !st.Valid() {
			return nil, apperrors.NewValidationError("status", "must be one of PENDING, COMPLETED, FAILED")
		}
	}

	txs, err := s.store.Transactions().List(ctx, repositories.TransactionFilter{
		UserID:   userID,
		Statuses: q.Statuses,
		Limit:    q.Limit,
		Offset:   q.Offset,
	})
	if err != nil {
		return nil, apperrors.NewPersistenceError("list transactions", err)
	}
	return txs, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
