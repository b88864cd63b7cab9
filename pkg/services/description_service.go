package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/catalog"
	"github.com/ekaya-inc/ekaya-catalog/pkg/config"
	"github.com/ekaya-inc/ekaya-catalog/pkg/llm"
	"github.com/ekaya-inc/ekaya-catalog/pkg/logging"
	"github.com/ekaya-inc/ekaya-catalog/pkg/metrics"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
	"github.com/ekaya-inc/ekaya-catalog/pkg/prompts"
)

// DescriptionService asks the description model to explain a table.
// Every call is independent; no conversation is retained.
type DescriptionService interface {
	// Describe generates the analysis of one table in the given locale
	// ("" uses the configured default).
	Describe(ctx context.Context, ds string, table models.QualifiedName, locale string) (*models.TableDescription, error)

	// IsAvailable reports whether a model is configured.
	IsAvailable() bool
}

type descriptionService struct {
	catalog CatalogService
	client  llm.LLMClient
	cfg     config.LLMConfig
	now     func() time.Time
	logger  *zap.Logger
}

// NewDescriptionService creates a description service. A nil client makes
// Describe fail with apperrors.ErrLLMNotConfigured.
func NewDescriptionService(catalogService CatalogService, client llm.LLMClient, cfg config.LLMConfig, logger *zap.Logger) DescriptionService {
	return &descriptionService{
		catalog: catalogService,
		client:  client,
		cfg:     cfg,
		now:     time.Now,
		logger:  logger.Named("description"),
	}
}

var _ DescriptionService = (*descriptionService)(nil)

func (s *descriptionService) IsAvailable() bool {
	return s.client != nil
}

func (s *descriptionService) Describe(ctx context.Context, ds string, table models.QualifiedName, locale string) (*models.TableDescription, error) {
	if s.client == nil {
		return nil, llm.ErrNotConfigured
	}
	if locale == "" {
		locale = s.cfg.Locale
	}

	tableCtx, err := s.tableContext(ctx, ds, table)
	if err != nil {
		return nil, err
	}

	prompt := prompts.BuildTableDescriptionPrompt(locale, tableCtx)
	systemMessage := prompts.BuildTableDescriptionSystemMessage(locale)

	start := s.now()
	result, err := s.client.GenerateResponse(ctx, prompt, systemMessage, s.cfg.Temperature)
	metrics.RecordLLMCall(s.cfg.Provider, s.client.GetModel(), s.now().Sub(start), err)
	if err != nil {
		s.logger.Error("Table description failed",
			zap.String("table", table.String()),
			zap.String("error", logging.SanitizeError(err)))
		return nil, fmt.Errorf("describe %s: %w", table, err)
	}

	s.logger.Debug("Generated table description",
		zap.String("table", table.String()),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("completion_tokens", result.CompletionTokens))

	return &models.TableDescription{
		Table:       table.String(),
		Content:     strings.TrimSpace(llm.StripThinking(result.Content)),
		Model:       s.client.GetModel(),
		GeneratedAt: s.now(),
	}, nil
}

func (s *descriptionService) tableContext(ctx context.Context, ds string, table models.QualifiedName) (prompts.TableContext, error) {
	tables, err := s.catalog.ListTables(ctx, ds, table.Catalog)
	if err != nil {
		return prompts.TableContext{}, err
	}
	descriptor, ok := catalog.IndexByName(tables)[table.String()]
	if !ok {
		return prompts.TableContext{}, fmt.Errorf("table %s: %w", table, apperrors.ErrNotFound)
	}

	columns, err := s.catalog.GetColumns(ctx, ds, table)
	if err != nil {
		return prompts.TableContext{}, err
	}

	tc := prompts.TableContext{
		FullName: table.String(),
		Comment:  descriptor.CommentText(),
		RowCount: descriptor.RowCount,
		Columns:  make([]prompts.ColumnContext, 0, len(columns)),
	}
	for _, c := range columns {
		cc := prompts.ColumnContext{Name: c.ColumnName, DataType: c.DataType}
		if c.Comment != nil {
			cc.Comment = *c.Comment
		}
		tc.Columns = append(tc.Columns, cc)
	}
	return tc, nil
}
