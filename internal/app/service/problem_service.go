package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/mmiddlezong/problem-database/internal/common"
	"github.com/mmiddlezong/problem-database/internal/domain/model"
	"github.com/mmiddlezong/problem-database/internal/domain/repository"
	"github.com/mmiddlezong/problem-database/internal/platform/content"
	"github.com/mmiddlezong/problem-database/internal/platform/logger"
	"github.com/mmiddlezong/problem-database/internal/platform/metrics"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type ProblemService struct {
	problemRepo repository.ProblemRepository
	tx          repository.Transactor
	content     content.Source
	metrics     *metrics.Metrics
	log         *logger.Logger
}

func NewProblemService(
	problemRepo repository.ProblemRepository,
	tx repository.Transactor,
	contentSource content.Source,
	m *metrics.Metrics,
	log *logger.Logger,
) *ProblemService {
	return &ProblemService{
		problemRepo: problemRepo,
		tx:          tx,
		content:     contentSource,
		metrics:     m,
		log:         log.With("component", "problem_service"),
	}
}

type CreateProblemRequest struct {
	Source      string              `json:"source" yaml:"source"`
	Hyperlink   string              `json:"hyperlink" yaml:"hyperlink"`
	Keyphrase   string              `json:"keyphrase" yaml:"keyphrase"`
	ContentPath string              `json:"content_path" yaml:"content_path"`
	Format      model.ProblemFormat `json:"format" yaml:"format"`
	Answer      *string             `json:"answer" yaml:"answer"`
	Rating      *int                `json:"rating" yaml:"rating"`
	Author      string              `json:"author" yaml:"author"`
}

type ProblemListResponse struct {
	Problems []model.Problem `json:"problems"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

type ProblemDetailResponse struct {
	Problem          *model.Problem `json:"problem"`
	ProblemStatement string         `json:"problem_statement"`
}

func buildProblem(req CreateProblemRequest) (*model.Problem, error) {
	source := strings.TrimSpace(req.Source)
	contentPath := strings.Trim(strings.TrimSpace(req.ContentPath), "/")
	if contentPath == "" {
		contentPath = slug.Make(source)
	}
	if contentPath == "" {
		return nil, fmt.Errorf("%w: content_path or source is required", common.ErrValidation)
	}

	format := req.Format
	if format == "" {
		format = model.FormatShortAnswer
	}
	if !format.Valid() {
		return nil, fmt.Errorf("%w: unknown format %q", common.ErrValidation, req.Format)
	}

	problemRating := req.Rating
	if problemRating == nil {
		v := model.DefaultRating
		problemRating = &v
	}

	return &model.Problem{
		ID:          uuid.NewString(),
		Source:      source,
		Hyperlink:   strings.TrimSpace(req.Hyperlink),
		Keyphrase:   strings.TrimSpace(req.Keyphrase),
		ContentPath: contentPath,
		Format:      format,
		Answer:      req.Answer,
		Rating:      problemRating,
		Author:      strings.TrimSpace(req.Author),
	}, nil
}

// CreateProblem stores a single problem. The content path defaults to a slug of the source.
func (s *ProblemService) CreateProblem(ctx context.Context, req CreateProblemRequest) (*model.Problem, error) {
	problem, err := buildProblem(req)
	if err != nil {
		return nil, err
	}
	if err := s.problemRepo.CreateProblem(ctx, nil, problem); err != nil {
		return nil, err
	}
	s.log.Info("problem created", "problem_id", problem.ID, "content_path", problem.ContentPath)
	return problem, nil
}

// ImportProblems inserts all problems in one transaction, optionally
// deleting every existing problem first. Either all rows land or none do.
func (s *ProblemService) ImportProblems(ctx context.Context, reqs []CreateProblemRequest, reset bool) (int, error) {
	problems := make([]*model.Problem, 0, len(reqs))
	for i, req := range reqs {
		p, err := buildProblem(req)
		if err != nil {
			return 0, fmt.Errorf("problem %d: %w", i+1, err)
		}
		problems = append(problems, p)
	}

	err := s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		if reset {
			deleted, err := s.problemRepo.DeleteAllProblems(ctx, tx)
			if err != nil {
				return err
			}
			s.log.Info("existing problems cleared", "count", deleted)
		}
		for _, p := range problems {
			if err := s.problemRepo.CreateProblem(ctx, tx, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("problems imported", "count", len(problems), "reset", reset)
	return len(problems), nil
}

func (s *ProblemService) ListProblems(ctx context.Context, page, pageSize int) (*ProblemListResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	problems, total, err := s.problemRepo.ListProblems(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	return &ProblemListResponse{Problems: problems, Total: total, Page: page, PageSize: pageSize}, nil
}

func (s *ProblemService) GetProblem(ctx context.Context, problemID string) (*ProblemDetailResponse, error) {
	if _, err := uuid.Parse(problemID); err != nil {
		return nil, common.ErrNotFound
	}
	problem, err := s.problemRepo.FindProblemByID(ctx, problemID)
	if err != nil {
		return nil, err
	}
	return &ProblemDetailResponse{
		Problem:          problem,
		ProblemStatement: fetchStatement(ctx, s.content, s.metrics, s.log, problem),
	}, nil
}

// fetchStatement loads the statement text for p. Content failures degrade
// to an empty statement.
func fetchStatement(ctx context.Context, src content.Source, m *metrics.Metrics, log *logger.Logger, p *model.Problem) string {
	statement, err := src.Statement(ctx, p.ContentPath)
	if err != nil {
		kind := "statement"
		if errors.Is(err, content.ErrNotFound) {
			kind = "statement_missing"
		}
		m.ContentFetchFailures.WithLabelValues(kind).Inc()
		log.Warn("could not load problem statement", "problem_id", p.ID, "content_path", p.ContentPath, "error", err)
		return ""
	}
	return statement
}
