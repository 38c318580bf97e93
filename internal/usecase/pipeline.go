package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"CrawlPipe/internal/domain"
	"CrawlPipe/internal/filestore"
	"CrawlPipe/internal/infrastructure/llm"
	"CrawlPipe/internal/ports"
	"CrawlPipe/internal/tagging"
)

const defaultSummarizeConcurrency = 5

// promptPlaceholder is the token in the summarization prompt template that
// gets replaced with the article body.
const promptPlaceholder = "(article)"

// PipelineDeps wires all collaborators into the pipeline.
type PipelineDeps struct {
	Candidates     ports.CandidateSource
	URLs           *filestore.URLStore
	Records        *filestore.RecordStore
	Sources        *filestore.SourceRegistry
	Fetcher        ports.BatchFetcher
	Chat           ports.ChatClient
	Tagger         *tagging.Tagger
	Repository     ports.ArticleRepository
	Notifier       ports.Notifier
	PromptTemplate string
	SummarizeConc  int
	Logger         *slog.Logger
	Now            func() time.Time
}

// Pipeline runs the incremental crawl-and-merge flow for each source:
// discover candidates, reconcile against the cumulative URL set, allocate
// indices for the delta, drive the fetch/summarize/tag/persist stages, and
// fold the delta back into cumulative state. Every stage skips work a
// previous (possibly interrupted) run already finished, so replaying a run
// is safe.
type Pipeline struct {
	candidates     ports.CandidateSource
	urls           *filestore.URLStore
	records        *filestore.RecordStore
	sources        *filestore.SourceRegistry
	fetcher        ports.BatchFetcher
	chat           ports.ChatClient
	tagger         *tagging.Tagger
	repository     ports.ArticleRepository
	notifier       ports.Notifier
	promptTemplate string
	summarizeConc  int
	logger         *slog.Logger
	now            func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	conc := deps.SummarizeConc
	if conc <= 0 {
		conc = defaultSummarizeConcurrency
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		candidates:     deps.Candidates,
		urls:           deps.URLs,
		records:        deps.Records,
		sources:        deps.Sources,
		fetcher:        deps.Fetcher,
		chat:           deps.Chat,
		tagger:         deps.Tagger,
		repository:     deps.Repository,
		notifier:       deps.Notifier,
		promptTemplate: deps.PromptTemplate,
		summarizeConc:  conc,
		logger:         deps.Logger,
		now:            now,
	}
}

// ProcessAll runs every configured source in order. A source whose run
// fails (configuration or discovery error) is logged and skipped; the
// remaining sources still run. The aggregated digest, if a notifier is
// wired, is published at the end.
func (p *Pipeline) ProcessAll(ctx context.Context) error {
	sources, err := p.sources.Load()
	if err != nil {
		return fmt.Errorf("load sources: %w", err)
	}

	var reports []domain.RunReport
	for _, src := range sources {
		report, err := p.ProcessSource(ctx, src)
		if err != nil {
			p.log().Error("source run failed", "source", src.ID, "error", err)
			continue
		}
		reports = append(reports, report)
	}

	if p.notifier != nil && len(reports) > 0 {
		if err := p.notifier.PublishDigest(ctx, reports); err != nil {
			p.log().Warn("publish digest failed", "error", err)
		}
	}
	return nil
}

// ProcessSource runs the full pipeline for one source. Only configuration
// and commit errors propagate; per-article failures land in the report.
func (p *Pipeline) ProcessSource(ctx context.Context, src domain.Source) (domain.RunReport, error) {
	report := domain.RunReport{
		RunID:     uuid.NewString(),
		SourceID:  src.ID,
		StartedAt: p.now(),
	}

	candidates, err := p.candidates.Discover(ctx, src)
	if err != nil {
		return report, fmt.Errorf("discover %s: %w", src.ID, err)
	}
	report.Candidates = len(candidates)

	delta, err := p.urls.Reconcile(src.ID, candidates)
	if err != nil {
		return report, fmt.Errorf("reconcile %s: %w", src.ID, err)
	}
	report.DeltaSize = len(delta)

	allocations := Allocate(src.ArticleCnt, delta)
	p.log().Info("run started", "run", report.RunID, "source", src.ID,
		"candidates", len(candidates), "new", len(delta))

	failed := map[string]domain.ItemFailure{}

	p.fetchStage(ctx, src.ID, allocations, failed)
	p.summarizeStage(ctx, src.ID, allocations, failed)
	p.tagStage(ctx, src.ID, allocations, failed)
	p.persistStage(ctx, src.ID, allocations, failed)

	if err := p.commit(src.ID); err != nil {
		return report, fmt.Errorf("commit %s: %w", src.ID, err)
	}

	if p.repository != nil {
		if n, err := p.repository.DeleteDuplicates(ctx); err != nil {
			p.log().Warn("dedup failed", "source", src.ID, "error", err)
		} else if n > 0 {
			p.log().Info("duplicates removed", "source", src.ID, "rows", n)
		}
	}

	for _, alloc := range allocations {
		pos := domain.Pos(src.ID, alloc.Index)
		if _, ok := failed[pos]; !ok {
			report.Succeeded = append(report.Succeeded, pos)
		}
	}
	for _, f := range failed {
		report.Failed = append(report.Failed, f)
	}
	report.FinishedAt = p.now()

	p.log().Info("run finished", "run", report.RunID, "source", src.ID,
		"succeeded", len(report.Succeeded), "failed", len(report.Failed))
	return report, nil
}

// fetchStage downloads every allocated article that does not already carry
// content. One bad URL never aborts the batch.
func (p *Pipeline) fetchStage(ctx context.Context, sourceID string, allocations []domain.Allocation, failed map[string]domain.ItemFailure) {
	var pending []domain.Allocation
	for _, alloc := range allocations {
		pos := domain.Pos(sourceID, alloc.Index)
		rec, ok, err := p.records.Load(pos)
		if err != nil {
			failed[pos] = domain.ItemFailure{Pos: pos, URL: alloc.URL, Stage: domain.StageFetched, Err: err}
			continue
		}
		if ok && rec.Fetched() {
			p.log().Debug("fetch skipped, content present", "pos", pos)
			continue
		}
		pending = append(pending, alloc)
	}
	if len(pending) == 0 {
		return
	}

	urls := make([]string, len(pending))
	for i, alloc := range pending {
		urls[i] = alloc.URL
	}

	results := p.fetcher.FetchMany(ctx, urls)
	date := p.now().Format("2006-01-02")
	for i, res := range results {
		alloc := pending[i]
		pos := domain.Pos(sourceID, alloc.Index)
		if res.Err != nil {
			p.log().Warn("fetch failed", "pos", pos, "url", alloc.URL, "error", res.Err)
			failed[pos] = domain.ItemFailure{Pos: pos, URL: alloc.URL, Stage: domain.StageFetched, Err: res.Err}
			continue
		}

		rec := domain.ArticleRecord{
			URL:  alloc.URL,
			HTML: res.Content,
			Path: pos,
			Date: date,
		}
		if err := p.records.Save(pos, rec); err != nil {
			failed[pos] = domain.ItemFailure{Pos: pos, URL: alloc.URL, Stage: domain.StageFetched, Err: err}
		}
	}
}

// summarizeStage runs the LLM over every fetched record, gated by a fixed
// semaphore. All tasks are scheduled together and the stage completes when
// all have settled; no task's failure cancels siblings.
func (p *Pipeline) summarizeStage(ctx context.Context, sourceID string, allocations []domain.Allocation, failed map[string]domain.ItemFailure) {
	if p.chat == nil {
		return
	}

	sem := make(chan struct{}, p.summarizeConc)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, alloc := range allocations {
		pos := domain.Pos(sourceID, alloc.Index)
		rec, ok, err := p.records.Load(pos)
		if err != nil || !ok {
			continue // fetch already failed; nothing to summarize
		}
		if rec.Summarized() {
			p.log().Debug("summary exists, skipping", "pos", pos)
			continue
		}
		if strings.TrimSpace(rec.HTML) == "" {
			p.log().Debug("no content to summarize", "pos", pos)
			continue
		}

		wg.Add(1)
		go func(pos string, rec domain.ArticleRecord) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()

			if err := p.summarizeOne(ctx, pos, rec); err != nil {
				p.log().Warn("summarize failed", "pos", pos, "error", err)
				mu.Lock()
				failed[pos] = domain.ItemFailure{Pos: pos, URL: rec.URL, Stage: domain.StageSummarized, Err: err}
				mu.Unlock()
			}
		}(pos, rec)
	}

	wg.Wait()
}

// summarizeOne calls the LLM and, on a parseable response, stores the
// summary and drops the raw content. A parse failure leaves the record in
// its fetched state so the next run retries it.
func (p *Pipeline) summarizeOne(ctx context.Context, pos string, rec domain.ArticleRecord) error {
	prompt := strings.ReplaceAll(p.promptTemplate, promptPlaceholder, rec.HTML)

	completion, err := p.chat.Complete(ctx, prompt)
	if err != nil {
		return fmt.Errorf("llm call: %w", err)
	}

	summary, err := llm.ParseSummary(completion)
	if err != nil {
		return err
	}

	rec.Title = summary.Title
	rec.Summary = summary.Summary
	rec.Keywords = summary.Keywords
	rec.HTML = ""

	return p.records.Save(pos, rec)
}

// tagStage matches each summarized record against the taxonomy. Embedding
// calls are batched per article inside the tagger.
func (p *Pipeline) tagStage(ctx context.Context, sourceID string, allocations []domain.Allocation, failed map[string]domain.ItemFailure) {
	if p.tagger == nil {
		return
	}

	for _, alloc := range allocations {
		pos := domain.Pos(sourceID, alloc.Index)
		rec, ok, err := p.records.Load(pos)
		if err != nil || !ok {
			continue
		}
		if !rec.Summarized() {
			continue
		}

		tags, subtags, err := p.tagger.Tag(ctx, rec.Summary)
		if err != nil {
			p.log().Warn("tagging failed", "pos", pos, "error", err)
			failed[pos] = domain.ItemFailure{Pos: pos, URL: rec.URL, Stage: domain.StageTagged, Err: err}
			continue
		}

		rec.Tags = tags
		rec.Subtags = subtags
		if err := p.records.Save(pos, rec); err != nil {
			failed[pos] = domain.ItemFailure{Pos: pos, URL: rec.URL, Stage: domain.StageTagged, Err: err}
		}
	}
}

// persistStage upserts every existing record into the relational store.
// Records without a pos field are logged and skipped.
func (p *Pipeline) persistStage(ctx context.Context, sourceID string, allocations []domain.Allocation, failed map[string]domain.ItemFailure) {
	if p.repository == nil {
		return
	}

	for _, alloc := range allocations {
		pos := domain.Pos(sourceID, alloc.Index)
		rec, ok, err := p.records.Load(pos)
		if err != nil || !ok {
			continue
		}
		if rec.Path == "" {
			p.log().Warn("record missing pos, skipping", "file", pos)
			continue
		}

		if err := p.repository.InsertArticle(ctx, rec.Path, rec.URL, rec.Tags, rec.Subtags); err != nil {
			p.log().Warn("persist failed", "pos", pos, "error", err)
			failed[pos] = domain.ItemFailure{Pos: pos, URL: rec.URL, Stage: domain.StagePersisted, Err: err}
		}
	}
}

// commit folds the on-disk delta into the cumulative state and advances the
// source's article count by the delta size. Until this runs a replayed run
// re-derives the same delta and the same indices.
func (p *Pipeline) commit(sourceID string) error {
	deltaSize, err := p.urls.FoldDelta(sourceID)
	if err != nil {
		return err
	}
	if deltaSize == 0 {
		return nil
	}
	return p.sources.AdvanceCount(sourceID, deltaSize)
}

func (p *Pipeline) log() *slog.Logger {
	if p.logger != nil {
		return p.logger
	}
	return slog.Default()
}
