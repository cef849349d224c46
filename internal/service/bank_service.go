package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/formbank-backend/internal/codec"
	"github.com/stemsi/formbank-backend/internal/model"
	"github.com/stemsi/formbank-backend/internal/repository"
	"golang.org/x/sync/errgroup"
)

var (
	ErrBankNotFound       = errors.New("question bank not found")
	ErrDuplicateContentID = repository.ErrDuplicateContentID
)

// prewarmConcurrency bounds parallel tree loads during PrewarmCache.
const prewarmConcurrency = 4

// BankCache stores reconstructed bank trees. Get returns nil, nil on a miss.
//
// Every Invalidate advances the bank's generation. Set stores a tree only
// while the generation still equals the one read before the tree was loaded,
// so a tree loaded before a committed write is never cached after it.
type BankCache interface {
	Get(ctx context.Context, id string) (*model.QuestionBank, error)
	Generation(ctx context.Context, id string) (int64, error)
	Set(ctx context.Context, bank *model.QuestionBank, generation int64) error
	Invalidate(ctx context.Context, id string) error
	ScheduleWarm(ctx context.Context, id string) error
}

// BankService owns the transaction boundary for writing and reading whole
// bank trees. Every write happens in one transaction; reads use one
// connection so a tree is never assembled from interleaved writes.
type BankService struct {
	db          *sql.DB
	bankRepo    *repository.BankRepository
	pageRepo    *repository.PageRepository
	cardRepo    *repository.CardRepository
	contentRepo *repository.ContentRepository
	cache       BankCache
	log         zerolog.Logger
	now         func() time.Time
}

// NewBankService creates a new BankService. cache may be nil.
func NewBankService(
	db *sql.DB,
	bankRepo *repository.BankRepository,
	pageRepo *repository.PageRepository,
	cardRepo *repository.CardRepository,
	contentRepo *repository.ContentRepository,
	cache BankCache,
	log zerolog.Logger,
) *BankService {
	if cache == nil {
		cache = nopCache{}
	}
	return &BankService{
		db:          db,
		bankRepo:    bankRepo,
		pageRepo:    pageRepo,
		cardRepo:    cardRepo,
		contentRepo: contentRepo,
		cache:       cache,
		log:         log.With().Str("component", "bank_service").Logger(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new bank under a freshly generated ID and returns it.
// Nothing is persisted if any part of the tree fails to write.
func (s *BankService) Create(ctx context.Context, bank *model.QuestionBank) (string, error) {
	now := s.now()
	bank.ID = uuid.NewString()
	bank.CreatedAt = &now
	bank.UpdatedAt = &now
	if err := s.prepare(bank, now); err != nil {
		return "", err
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return s.writeTree(ctx, tx, bank)
	})
	if err != nil {
		return "", err
	}

	s.log.Info().
		Str("questionbank_id", bank.ID).
		Int("pages", len(bank.Pages)).
		Msg("Question bank created")
	s.afterWrite(ctx, bank)
	return bank.ID, nil
}

// Get reconstructs a bank tree. It returns nil, nil when the bank does not exist.
func (s *BankService) Get(ctx context.Context, id string) (*model.QuestionBank, error) {
	if cached, err := s.cache.Get(ctx, id); err != nil {
		s.log.Warn().Err(err).Str("questionbank_id", id).Msg("Cache read failed, falling back to database")
	} else if cached != nil {
		return cached, nil
	}

	generation, genErr := s.cache.Generation(ctx, id)
	if genErr != nil {
		s.log.Warn().Err(genErr).Str("questionbank_id", id).Msg("Cache generation read failed")
	}

	bank, err := s.load(ctx, id)
	if err != nil || bank == nil {
		return bank, err
	}

	if genErr == nil {
		if err := s.cache.Set(ctx, bank, generation); err != nil {
			s.log.Warn().Err(err).Str("questionbank_id", id).Msg("Cache write failed")
		}
	}
	return bank, nil
}

// List returns bank summaries, most recently updated first.
func (s *BankService) List(ctx context.Context, status model.BankStatus) ([]model.BankSummary, error) {
	summaries, err := s.bankRepo.List(ctx, s.db, status)
	if err != nil {
		return nil, fmt.Errorf("list banks: %w", err)
	}
	return summaries, nil
}

// Delete removes a bank and its whole tree in one transaction.
func (s *BankService) Delete(ctx context.Context, id string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		existed, err := s.deleteTree(ctx, tx, id)
		if err != nil {
			return err
		}
		if !existed {
			return ErrBankNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info().Str("questionbank_id", id).Msg("Question bank deleted")
	s.invalidate(ctx, id)
	return nil
}

// WarmCache loads a bank from the database into the cache.
func (s *BankService) WarmCache(ctx context.Context, id string) error {
	generation, err := s.cache.Generation(ctx, id)
	if err != nil {
		return fmt.Errorf("read cache generation: %w", err)
	}
	bank, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if bank == nil {
		return ErrBankNotFound
	}
	return s.cache.Set(ctx, bank, generation)
}

// PrewarmCache loads every published bank into the cache on startup.
func (s *BankService) PrewarmCache(ctx context.Context) error {
	ids, err := s.bankRepo.ListIDsByStatus(ctx, s.db, model.BankStatusPublished)
	if err != nil {
		return fmt.Errorf("list published banks: %w", err)
	}

	if len(ids) == 0 {
		s.log.Info().Msg("No published banks to prewarm")
		return nil
	}

	s.log.Info().Int("count", len(ids)).Msg("Prewarming published banks...")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(prewarmConcurrency)

	warmed := make([]bool, len(ids))
	for i, id := range ids {
		g.Go(func() error {
			if err := s.WarmCache(gctx, id); err != nil {
				s.log.Warn().
					Err(err).
					Str("questionbank_id", id).
					Msg("Failed to warm bank, skipping")
				return nil
			}
			warmed[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	count := 0
	for _, ok := range warmed {
		if ok {
			count++
		}
	}
	s.log.Info().
		Int("warmed", count).
		Int("total", len(ids)).
		Msg("Prewarming complete")
	return nil
}

// ────────────────────────────────────────────────────────────────────────────
// Transaction helpers
// ────────────────────────────────────────────────────────────────────────────

// withTx runs fn in a transaction, committing only if fn succeeds.
func (s *BankService) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// writeTree inserts the bank row, then every page, card and content item.
func (s *BankService) writeTree(ctx context.Context, tx *sql.Tx, bank *model.QuestionBank) error {
	if err := s.bankRepo.Insert(ctx, tx, bank); err != nil {
		return fmt.Errorf("insert bank: %w", err)
	}

	for pi := range bank.Pages {
		page := &bank.Pages[pi]
		pageID, err := s.pageRepo.Insert(ctx, tx, bank.ID, page)
		if err != nil {
			return fmt.Errorf("insert page %d: %w", page.PageIndex, err)
		}
		page.ID = pageID

		for ci := range page.Cards {
			card := &page.Cards[ci]
			if !card.CardType.Valid() {
				return fmt.Errorf("page %d card %d: %w: %q", page.PageIndex, card.Position, codec.ErrUnknownCardType, card.CardType)
			}
			cardID, err := s.cardRepo.Insert(ctx, tx, pageID, card.CardType, card.Position)
			if err != nil {
				return fmt.Errorf("insert card %d on page %d: %w", card.Position, page.PageIndex, err)
			}
			card.ID = cardID

			for _, item := range card.Contents {
				row, err := codec.Encode(cardID, card.CardType, item.Content)
				if err != nil {
					s.log.Warn().
						Err(err).
						Str("questionbank_id", bank.ID).
						Int("page_index", page.PageIndex).
						Int("card_position", card.Position).
						Msg("Rejected content item, aborting write")
					return fmt.Errorf("page %d card %d: %w", page.PageIndex, card.Position, err)
				}
				if err := s.contentRepo.Insert(ctx, tx, bank.ID, cardID, row); err != nil {
					return fmt.Errorf("page %d card %d: %w", page.PageIndex, card.Position, err)
				}
			}
		}
	}
	return nil
}

// deleteTree removes content rows, cards, pages and the bank row, children first.
func (s *BankService) deleteTree(ctx context.Context, tx *sql.Tx, id string) (bool, error) {
	if err := s.contentRepo.DeleteByBank(ctx, tx, id); err != nil {
		return false, fmt.Errorf("delete contents: %w", err)
	}
	if err := s.cardRepo.DeleteByBank(ctx, tx, id); err != nil {
		return false, fmt.Errorf("delete cards: %w", err)
	}
	if err := s.pageRepo.DeleteByBank(ctx, tx, id); err != nil {
		return false, fmt.Errorf("delete pages: %w", err)
	}
	existed, err := s.bankRepo.Delete(ctx, tx, id)
	if err != nil {
		return false, fmt.Errorf("delete bank: %w", err)
	}
	return existed, nil
}

// load reads a bank tree through a single connection.
func (s *BankService) load(ctx context.Context, id string) (*model.QuestionBank, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	bank, err := s.bankRepo.GetByID(ctx, conn, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get bank: %w", err)
	}

	pages, err := s.pageRepo.ListByBank(ctx, conn, id)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}

	for pi := range pages {
		cards, err := s.cardRepo.ListByPage(ctx, conn, pages[pi].ID)
		if err != nil {
			return nil, fmt.Errorf("list cards of page %d: %w", pages[pi].PageIndex, err)
		}
		for ci := range cards {
			contents, err := s.contentRepo.ListByCard(ctx, conn, cards[ci].ID, cards[ci].CardType)
			if err != nil {
				return nil, fmt.Errorf("list contents of card %d: %w", cards[ci].Position, err)
			}
			cards[ci].Contents = contents
		}
		pages[pi].Cards = cards
	}
	bank.Pages = pages
	return bank, nil
}

// ────────────────────────────────────────────────────────────────────────────
// Payload normalization
// ────────────────────────────────────────────────────────────────────────────

// prepare fills bank defaults, resolves page languages, makes page indexes
// unique and rejects duplicate content IDs before anything is written.
func (s *BankService) prepare(bank *model.QuestionBank, now time.Time) error {
	if strings.TrimSpace(bank.Title) == "" {
		bank.Title = model.DefaultBankTitle
	}
	if bank.ExportDate == "" {
		bank.ExportDate = now.Format(time.RFC3339)
	}
	if bank.Status == "" {
		bank.Status = model.BankStatusDraft
	}
	if bank.Version <= 0 {
		bank.Version = model.DefaultBankVersion
	}

	NormalizePageIndexes(bank.Pages)
	for i := range bank.Pages {
		page := &bank.Pages[i]
		lang := page.ExamCategories.ExamLanguage
		if lang == "" {
			lang = page.ExamLanguage
		}
		if lang == "" {
			lang = model.DefaultExamLanguage
		}
		page.ExamCategories.ExamLanguage = lang
		page.ExamLanguage = lang
	}

	if dups := DuplicateContentIDs(bank); len(dups) > 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateContentID, strings.Join(dups, ", "))
	}
	return nil
}

// NormalizePageIndexes reassigns a page_index already used by an earlier
// page to the first free index from the page's one-based position.
func NormalizePageIndexes(pages []model.Page) {
	used := make(map[int]bool, len(pages))
	for i := range pages {
		idx := pages[i].PageIndex
		if used[idx] {
			idx = i + 1
			for used[idx] {
				idx++
			}
			pages[i].PageIndex = idx
		}
		used[idx] = true
	}
}

// DuplicateContentIDs returns the sorted content IDs that occur more than once in a bank.
func DuplicateContentIDs(bank *model.QuestionBank) []string {
	seen := make(map[string]int)
	for _, page := range bank.Pages {
		for _, card := range page.Cards {
			for _, item := range card.Contents {
				if item.Content == nil {
					continue
				}
				if id := item.Base().ID; id != "" {
					seen[id]++
				}
			}
		}
	}

	var dups []string
	for id, n := range seen {
		if n > 1 {
			dups = append(dups, id)
		}
	}
	sort.Strings(dups)
	return dups
}

// ────────────────────────────────────────────────────────────────────────────
// Cache maintenance
// ────────────────────────────────────────────────────────────────────────────

// afterWrite drops any stale cached tree and queues published banks for warming.
func (s *BankService) afterWrite(ctx context.Context, bank *model.QuestionBank) {
	s.invalidate(ctx, bank.ID)
	if bank.Status != model.BankStatusPublished {
		return
	}
	if err := s.cache.ScheduleWarm(ctx, bank.ID); err != nil {
		s.log.Warn().Err(err).Str("questionbank_id", bank.ID).Msg("Failed to schedule cache warm")
	}
}

func (s *BankService) invalidate(ctx context.Context, id string) {
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.log.Warn().Err(err).Str("questionbank_id", id).Msg("Cache invalidation failed")
	}
}

type nopCache struct{}

func (nopCache) Get(context.Context, string) (*model.QuestionBank, error) { return nil, nil }
func (nopCache) Generation(context.Context, string) (int64, error)        { return 0, nil }
func (nopCache) Set(context.Context, *model.QuestionBank, int64) error    { return nil }
func (nopCache) Invalidate(context.Context, string) error                 { return nil }
func (nopCache) ScheduleWarm(context.Context, string) error               { return nil }
