package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"heroQuestAPI/internal/apperr"
	"heroQuestAPI/internal/badge"
	"heroQuestAPI/internal/completion"
	"heroQuestAPI/internal/hero"
	"heroQuestAPI/internal/quest"
	"heroQuestAPI/internal/task"
)

//go:embed schema.sql
var schemaSQL string

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type scanner interface {
	Scan(dest ...any) error
}

type PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}
}

type Postgres struct {
	pgQueries
	pool *pgxpool.Pool
}

var _ Store = (*Postgres)(nil)

func NewPostgres(ctx context.Context, databaseURL string, cfg PoolConfig, retry RetryPolicy) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Postgres{pgQueries: pgQueries{q: pool, retry: retry}, pool: pool}, nil
}

// Migrate creates any missing tables. The statements are idempotent.
func (s *Postgres) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return classify("migrate schema", err)
	}
	return nil
}

func (s *Postgres) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Postgres) Close() {
	s.pool.Close()
}

// Pool exposes the connection pool for seeding rows the engine does not own.
func (s *Postgres) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *Postgres) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return classify("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{pgQueries: pgQueries{q: tx, retry: noRetry}}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return classify("commit transaction", err)
	}
	return nil
}

// SyncBadges upserts the catalog and deactivates rows that left it.
func (s *Postgres) SyncBadges(ctx context.Context, defs []badge.Definition) error {
	return s.WithTx(ctx, func(tx Tx) error {
		q := tx.(*pgTx).q
		ids := make([]string, 0, len(defs))
		for _, d := range defs {
			ids = append(ids, d.ID)
			_, err := q.Exec(ctx, `
				INSERT INTO badges (id, name, description, emoji, kind, threshold, is_active)
				VALUES ($1, $2, $3, $4, $5, $6, TRUE)
				ON CONFLICT (id) DO UPDATE SET
					name = EXCLUDED.name,
					description = EXCLUDED.description,
					emoji = EXCLUDED.emoji,
					kind = EXCLUDED.kind,
					threshold = EXCLUDED.threshold,
					is_active = TRUE
			`, d.ID, d.Name, d.Description, d.Emoji, d.Requirement.Kind.String(), d.Requirement.Threshold)
			if err != nil {
				return classify("upsert badge "+d.ID, err)
			}
		}

		if _, err := q.Exec(ctx, `UPDATE badges SET is_active = FALSE WHERE NOT (id = ANY($1))`, ids); err != nil {
			return classify("deactivate badges", err)
		}
		return nil
	})
}

// classify maps driver errors onto apperr kinds. Connection loss, timeouts,
// serialization failures and deadlocks are reported as unavailable.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505":
			return fmt.Errorf("%s: %s: %w", op, pgErr.ConstraintName, apperr.ErrConflict)
		case pgErr.Code == "23503":
			return fmt.Errorf("%s: %s: %w", op, pgErr.ConstraintName, apperr.ErrNotFound)
		case pgErr.Code == "23514":
			return fmt.Errorf("%s: %s: %w", op, pgErr.ConstraintName, apperr.ErrValidation)
		case pgErr.Code == "40001", pgErr.Code == "40P01", strings.HasPrefix(pgErr.Code, "08"), strings.HasPrefix(pgErr.Code, "57P"):
			return apperr.Unavailable(op, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	var netErr net.Error
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) || errors.As(err, &netErr) {
		return apperr.Unavailable(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

type pgQueries struct {
	q     querier
	retry RetryPolicy
}

func (p pgQueries) read(ctx context.Context, fn func() error) error {
	return p.retry.Do(ctx, fn)
}

const heroColumns = `id, family_id, hero_name, total_xp, current_streak, longest_streak,
	last_activity_date, created_at, updated_at`

func scanHero(row scanner) (*hero.Hero, error) {
	h := &hero.Hero{}
	err := row.Scan(
		&h.ID,
		&h.FamilyID,
		&h.HeroName,
		&h.TotalXP,
		&h.CurrentStreak,
		&h.LongestStreak,
		&h.LastActivityDate,
		&h.CreatedAt,
		&h.UpdatedAt,
	)
	return h, err
}

func (p pgQueries) GetHero(ctx context.Context, heroID uuid.UUID) (*hero.Hero, error) {
	var h *hero.Hero
	err := p.read(ctx, func() error {
		var err error
		h, err = scanHero(p.q.QueryRow(ctx, `SELECT `+heroColumns+` FROM heroes WHERE id = $1`, heroID))
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("hero %s", heroID)
		}
		return classify("get hero", err)
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (p pgQueries) ListFamilyHeroes(ctx context.Context, familyID uuid.UUID) ([]*hero.Hero, error) {
	var heroes []*hero.Hero
	err := p.read(ctx, func() error {
		heroes = nil
		rows, err := p.q.Query(ctx, `
			SELECT `+heroColumns+`
			FROM heroes
			WHERE family_id = $1
			ORDER BY total_xp DESC, hero_name
		`, familyID)
		if err != nil {
			return classify("list family heroes", err)
		}
		defer rows.Close()

		for rows.Next() {
			h, err := scanHero(rows)
			if err != nil {
				return fmt.Errorf("failed to scan hero: %w", err)
			}
			heroes = append(heroes, h)
		}
		return classify("list family heroes", rows.Err())
	})
	return heroes, err
}

const taskColumns = `id, family_id, title, description, xp_reward, frequency,
	is_active, created_by_member_id, created_at, updated_at`

func scanTask(row scanner) (*task.Task, error) {
	t := &task.Task{}
	var freq string
	err := row.Scan(&t.ID, &t.FamilyID, &t.Title, &t.Description, &t.XPReward, &freq,
		&t.IsActive, &t.CreatedByMemberID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Frequency = task.Frequency(freq)
	return t, nil
}

func (p pgQueries) GetTask(ctx context.Context, taskID uuid.UUID) (*task.Task, error) {
	var t *task.Task
	err := p.read(ctx, func() error {
		var err error
		t, err = scanTask(p.q.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, taskID))
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("task %s", taskID)
		}
		return classify("get task", err)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (p pgQueries) ListFamilyTasks(ctx context.Context, familyID uuid.UUID) ([]task.Task, error) {
	var out []task.Task
	err := p.read(ctx, func() error {
		out = nil
		rows, err := p.q.Query(ctx, `
			SELECT `+taskColumns+`
			FROM tasks
			WHERE family_id = $1 AND is_active
			ORDER BY created_at DESC
		`, familyID)
		if err != nil {
			return classify("list family tasks", err)
		}
		defer rows.Close()

		for rows.Next() {
			t, err := scanTask(rows)
			if err != nil {
				return fmt.Errorf("failed to scan task: %w", err)
			}
			out = append(out, *t)
		}
		return classify("list family tasks", rows.Err())
	})
	return out, err
}

const questColumns = `id, family_id, title, description, xp_reward_per_participant,
	min_participants, max_participants, is_completed, completed_at, expires_at,
	created_by_member_id, created_at, updated_at`

func scanQuest(row scanner) (*quest.Quest, error) {
	q := &quest.Quest{}
	err := row.Scan(
		&q.ID,
		&q.FamilyID,
		&q.Title,
		&q.Description,
		&q.XPRewardPerParticipant,
		&q.MinParticipants,
		&q.MaxParticipants,
		&q.IsCompleted,
		&q.CompletedAt,
		&q.ExpiresAt,
		&q.CreatedByMemberID,
		&q.CreatedAt,
		&q.UpdatedAt,
	)
	return q, err
}

func (p pgQueries) getQuest(ctx context.Context, questID uuid.UUID, forUpdate bool) (*quest.Quest, error) {
	query := `SELECT ` + questColumns + ` FROM quests WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var q *quest.Quest
	err := p.read(ctx, func() error {
		var err error
		q, err = scanQuest(p.q.QueryRow(ctx, query, questID))
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("quest %s", questID)
		}
		return classify("get quest", err)
	})
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (p pgQueries) GetQuest(ctx context.Context, questID uuid.UUID) (*quest.Quest, error) {
	return p.getQuest(ctx, questID, false)
}

func (p pgQueries) ListFamilyQuests(ctx context.Context, familyID uuid.UUID) ([]*quest.Quest, error) {
	var quests []*quest.Quest
	err := p.read(ctx, func() error {
		quests = nil
		rows, err := p.q.Query(ctx, `
			SELECT `+questColumns+`
			FROM quests
			WHERE family_id = $1
			ORDER BY is_completed, created_at DESC
		`, familyID)
		if err != nil {
			return classify("list family quests", err)
		}
		defer rows.Close()

		for rows.Next() {
			q, err := scanQuest(rows)
			if err != nil {
				return fmt.Errorf("failed to scan quest: %w", err)
			}
			quests = append(quests, q)
		}
		return classify("list family quests", rows.Err())
	})
	return quests, err
}

const participantColumns = `id, quest_id, hero_id, has_completed, completed_at, created_at`

func scanParticipant(row scanner) (quest.Participant, error) {
	var pt quest.Participant
	err := row.Scan(&pt.ID, &pt.QuestID, &pt.HeroID, &pt.HasCompleted, &pt.CompletedAt, &pt.CreatedAt)
	return pt, err
}

func (p pgQueries) ListParticipants(ctx context.Context, questID uuid.UUID) ([]quest.Participant, error) {
	var participants []quest.Participant
	err := p.read(ctx, func() error {
		participants = nil
		rows, err := p.q.Query(ctx, `
			SELECT `+participantColumns+`
			FROM quest_participants
			WHERE quest_id = $1
			ORDER BY created_at
		`, questID)
		if err != nil {
			return classify("list participants", err)
		}
		defer rows.Close()

		for rows.Next() {
			pt, err := scanParticipant(rows)
			if err != nil {
				return fmt.Errorf("failed to scan participant: %w", err)
			}
			participants = append(participants, pt)
		}
		return classify("list participants", rows.Err())
	})
	return participants, err
}

func (p pgQueries) GetParticipant(ctx context.Context, questID, heroID uuid.UUID) (*quest.Participant, error) {
	var out *quest.Participant
	err := p.read(ctx, func() error {
		pt, err := scanParticipant(p.q.QueryRow(ctx, `
			SELECT `+participantColumns+`
			FROM quest_participants
			WHERE quest_id = $1 AND hero_id = $2
		`, questID, heroID))
		if errors.Is(err, pgx.ErrNoRows) {
			out = nil
			return nil
		}
		if err != nil {
			return classify("get participant", err)
		}
		out = &pt
		return nil
	})
	return out, err
}

func (p pgQueries) HeroQuestStats(ctx context.Context, heroID uuid.UUID) (*quest.HeroStats, error) {
	stats := &quest.HeroStats{}
	err := p.read(ctx, func() error {
		err := p.q.QueryRow(ctx, `
			SELECT
				(SELECT COUNT(*) FROM quest_participants WHERE hero_id = $1),
				(SELECT COUNT(*) FROM quest_participants WHERE hero_id = $1 AND has_completed),
				(SELECT COALESCE(SUM(xp_amount), 0) FROM xp_log WHERE hero_id = $1 AND source_type = 'quest')
		`, heroID).Scan(&stats.TotalJoined, &stats.TotalCompleted, &stats.TotalXPFromQuests)
		return classify("hero quest stats", err)
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (p pgQueries) CountCompletions(ctx context.Context, heroID uuid.UUID, source completion.SourceType) (int, error) {
	var n int
	err := p.read(ctx, func() error {
		err := p.q.QueryRow(ctx, `
			SELECT COUNT(*) FROM completions WHERE hero_id = $1 AND source_type = $2
		`, heroID, string(source)).Scan(&n)
		return classify("count completions", err)
	})
	return n, err
}

const completionColumns = `id, hero_id, source_type, source_id, xp_earned, idempotency_key, result, completed_at`

func scanCompletion(row scanner) (*completion.Completion, error) {
	c := &completion.Completion{}
	var source string
	var result []byte
	err := row.Scan(&c.ID, &c.HeroID, &source, &c.SourceID, &c.XPEarned, &c.IdempotencyKey, &result, &c.CompletedAt)
	if err != nil {
		return nil, err
	}
	c.SourceType = completion.SourceType(source)
	if len(result) > 0 {
		c.Result = &completion.Result{}
		if err := json.Unmarshal(result, c.Result); err != nil {
			return nil, fmt.Errorf("failed to decode completion result: %w", err)
		}
	}
	return c, nil
}

func (p pgQueries) ListCompletionsSince(ctx context.Context, heroID uuid.UUID, since time.Time) ([]completion.Completion, error) {
	var out []completion.Completion
	err := p.read(ctx, func() error {
		out = nil
		rows, err := p.q.Query(ctx, `
			SELECT `+completionColumns+`
			FROM completions
			WHERE hero_id = $1 AND completed_at >= $2
			ORDER BY completed_at DESC
		`, heroID, since)
		if err != nil {
			return classify("list completions", err)
		}
		defer rows.Close()

		for rows.Next() {
			c, err := scanCompletion(rows)
			if err != nil {
				return fmt.Errorf("failed to scan completion: %w", err)
			}
			out = append(out, *c)
		}
		return classify("list completions", rows.Err())
	})
	return out, err
}

func (p pgQueries) ListCompletions(ctx context.Context, heroID uuid.UUID, limit int) ([]completion.Completion, error) {
	var out []completion.Completion
	err := p.read(ctx, func() error {
		out = nil
		rows, err := p.q.Query(ctx, `
			SELECT `+completionColumns+`
			FROM completions
			WHERE hero_id = $1
			ORDER BY completed_at DESC
			LIMIT $2
		`, heroID, limit)
		if err != nil {
			return classify("list completion history", err)
		}
		defer rows.Close()

		for rows.Next() {
			c, err := scanCompletion(rows)
			if err != nil {
				return fmt.Errorf("failed to scan completion: %w", err)
			}
			out = append(out, *c)
		}
		return classify("list completion history", rows.Err())
	})
	return out, err
}

func (p pgQueries) FindCompletionByKey(ctx context.Context, heroID uuid.UUID, key string) (*completion.Completion, error) {
	var out *completion.Completion
	err := p.read(ctx, func() error {
		c, err := scanCompletion(p.q.QueryRow(ctx, `
			SELECT `+completionColumns+`
			FROM completions
			WHERE hero_id = $1 AND idempotency_key = $2
		`, heroID, key))
		if errors.Is(err, pgx.ErrNoRows) {
			out = nil
			return nil
		}
		if err != nil {
			return classify("find completion by key", err)
		}
		out = c
		return nil
	})
	return out, err
}

func (p pgQueries) ListXPLog(ctx context.Context, heroID uuid.UUID, limit int) ([]completion.XPLogEntry, error) {
	var out []completion.XPLogEntry
	err := p.read(ctx, func() error {
		out = nil
		rows, err := p.q.Query(ctx, `
			SELECT id, hero_id, xp_amount, source_type, source_id, reason, created_at
			FROM xp_log
			WHERE hero_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		`, heroID, limit)
		if err != nil {
			return classify("list xp log", err)
		}
		defer rows.Close()

		for rows.Next() {
			var e completion.XPLogEntry
			var source string
			if err := rows.Scan(&e.ID, &e.HeroID, &e.Amount, &source, &e.SourceID, &e.Reason, &e.CreatedAt); err != nil {
				return fmt.Errorf("failed to scan xp log entry: %w", err)
			}
			e.SourceType = completion.SourceType(source)
			out = append(out, e)
		}
		return classify("list xp log", rows.Err())
	})
	return out, err
}

func (p pgQueries) ListHeroBadges(ctx context.Context, heroID uuid.UUID) ([]badge.Award, error) {
	var out []badge.Award
	err := p.read(ctx, func() error {
		out = nil
		rows, err := p.q.Query(ctx, `
			SELECT hero_id, badge_id, earned_at
			FROM hero_badges
			WHERE hero_id = $1
			ORDER BY earned_at, badge_id
		`, heroID)
		if err != nil {
			return classify("list hero badges", err)
		}
		defer rows.Close()

		for rows.Next() {
			var a badge.Award
			if err := rows.Scan(&a.HeroID, &a.BadgeID, &a.EarnedAt); err != nil {
				return fmt.Errorf("failed to scan hero badge: %w", err)
			}
			out = append(out, a)
		}
		return classify("list hero badges", rows.Err())
	})
	return out, err
}

func (p pgQueries) ListActiveBadges(ctx context.Context) ([]badge.Definition, error) {
	var out []badge.Definition
	err := p.read(ctx, func() error {
		out = nil
		rows, err := p.q.Query(ctx, `
			SELECT id, name, description, emoji, kind, threshold
			FROM badges
			WHERE is_active
			ORDER BY id
		`)
		if err != nil {
			return classify("list active badges", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				d    badge.Definition
				kind string
			)
			if err := rows.Scan(&d.ID, &d.Name, &d.Description, &d.Emoji, &kind, &d.Requirement.Threshold); err != nil {
				return fmt.Errorf("failed to scan badge: %w", err)
			}
			if d.Requirement.Kind, err = badge.ParseKind(kind); err != nil {
				return fmt.Errorf("badge %s: %w", d.ID, err)
			}
			out = append(out, d)
		}
		return classify("list active badges", rows.Err())
	})
	return out, err
}

type pgTx struct {
	pgQueries
}

func (t *pgTx) LockHero(ctx context.Context, heroID uuid.UUID) (*hero.Hero, error) {
	h, err := scanHero(t.q.QueryRow(ctx, `SELECT `+heroColumns+` FROM heroes WHERE id = $1 FOR UPDATE`, heroID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("hero %s", heroID)
	}
	if err != nil {
		return nil, classify("lock hero", err)
	}
	return h, nil
}

func (t *pgTx) UpdateHeroProgress(ctx context.Context, h *hero.Hero) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE heroes
		SET total_xp = $2,
			current_streak = $3,
			longest_streak = $4,
			last_activity_date = $5,
			updated_at = $6
		WHERE id = $1
	`, h.ID, h.TotalXP, h.CurrentStreak, h.LongestStreak, h.LastActivityDate, h.UpdatedAt)
	if err != nil {
		return classify("update hero progress", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("hero %s", h.ID)
	}
	return nil
}

func (t *pgTx) InsertCompletion(ctx context.Context, c *completion.Completion) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO completions (id, hero_id, source_type, source_id, xp_earned, idempotency_key, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, c.ID, c.HeroID, string(c.SourceType), c.SourceID, c.XPEarned, c.IdempotencyKey, c.CompletedAt)
	return classify("insert completion", err)
}

func (t *pgTx) SetCompletionResult(ctx context.Context, completionID uuid.UUID, r *completion.Result) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode completion result: %w", err)
	}
	_, err = t.q.Exec(ctx, `UPDATE completions SET result = $2 WHERE id = $1`, completionID, payload)
	return classify("store completion result", err)
}

func (t *pgTx) InsertXPLog(ctx context.Context, e *completion.XPLogEntry) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO xp_log (id, hero_id, xp_amount, source_type, source_id, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, e.ID, e.HeroID, e.Amount, string(e.SourceType), e.SourceID, e.Reason, e.CreatedAt)
	return classify("insert xp log", err)
}

func (t *pgTx) AwardBadge(ctx context.Context, heroID uuid.UUID, badgeID string, at time.Time) (bool, error) {
	tag, err := t.q.Exec(ctx, `
		INSERT INTO hero_badges (hero_id, badge_id, earned_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (hero_id, badge_id) DO NOTHING
	`, heroID, badgeID, at)
	if err != nil {
		return false, classify("award badge", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (t *pgTx) LockQuest(ctx context.Context, questID uuid.UUID) (*quest.Quest, error) {
	return t.getQuest(ctx, questID, true)
}

func (t *pgTx) InsertTask(ctx context.Context, tk *task.Task) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, tk.ID, tk.FamilyID, tk.Title, tk.Description, tk.XPReward, string(tk.Frequency),
		tk.IsActive, tk.CreatedByMemberID, tk.CreatedAt, tk.UpdatedAt)
	return classify("insert task", err)
}

func (t *pgTx) UpdateTask(ctx context.Context, tk *task.Task) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE tasks
		SET title = $2, description = $3, xp_reward = $4, frequency = $5,
			is_active = $6, updated_at = $7
		WHERE id = $1
	`, tk.ID, tk.Title, tk.Description, tk.XPReward, string(tk.Frequency), tk.IsActive, tk.UpdatedAt)
	if err != nil {
		return classify("update task", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("task %s", tk.ID)
	}
	return nil
}

func (t *pgTx) InsertQuest(ctx context.Context, q *quest.Quest) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO quests (`+questColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, q.ID, q.FamilyID, q.Title, q.Description, q.XPRewardPerParticipant,
		q.MinParticipants, q.MaxParticipants, q.IsCompleted, q.CompletedAt, q.ExpiresAt,
		q.CreatedByMemberID, q.CreatedAt, q.UpdatedAt)
	return classify("insert quest", err)
}

func (t *pgTx) DeleteQuest(ctx context.Context, questID uuid.UUID) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM quests WHERE id = $1`, questID)
	if err != nil {
		return classify("delete quest", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("quest %s", questID)
	}
	return nil
}

func (t *pgTx) AddParticipant(ctx context.Context, pt *quest.Participant) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO quest_participants (`+participantColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (quest_id, hero_id) DO NOTHING
	`, pt.ID, pt.QuestID, pt.HeroID, pt.HasCompleted, pt.CompletedAt, pt.CreatedAt)
	return classify("add participant", err)
}

func (t *pgTx) RemoveParticipant(ctx context.Context, questID, heroID uuid.UUID) error {
	tag, err := t.q.Exec(ctx, `
		DELETE FROM quest_participants WHERE quest_id = $1 AND hero_id = $2
	`, questID, heroID)
	if err != nil {
		return classify("remove participant", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("hero %s is not a participant of quest %s", heroID, questID)
	}
	return nil
}

func (t *pgTx) MarkParticipantCompleted(ctx context.Context, questID, heroID uuid.UUID, at time.Time) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE quest_participants
		SET has_completed = TRUE, completed_at = $3
		WHERE quest_id = $1 AND hero_id = $2 AND NOT has_completed
	`, questID, heroID, at)
	if err != nil {
		return classify("mark participant completed", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("hero %s cannot complete quest %s", heroID, questID)
	}
	return nil
}

func (t *pgTx) CountQuestCompleted(ctx context.Context, questID uuid.UUID) (int, error) {
	var n int
	err := t.q.QueryRow(ctx, `
		SELECT COUNT(*) FROM quest_participants WHERE quest_id = $1 AND has_completed
	`, questID).Scan(&n)
	return n, classify("count quest completions", err)
}

func (t *pgTx) MarkQuestCompleted(ctx context.Context, questID uuid.UUID, at time.Time) (bool, error) {
	tag, err := t.q.Exec(ctx, `
		UPDATE quests
		SET is_completed = TRUE, completed_at = $2, updated_at = $2
		WHERE id = $1 AND NOT is_completed
	`, questID, at)
	if err != nil {
		return false, classify("mark quest completed", err)
	}
	return tag.RowsAffected() == 1, nil
}
