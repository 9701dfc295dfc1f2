package store

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"heroQuestAPI/internal/apperr"
	"heroQuestAPI/internal/badge"
	"heroQuestAPI/internal/completion"
	"heroQuestAPI/internal/hero"
	"heroQuestAPI/internal/quest"
	"heroQuestAPI/internal/task"
)

type participantKey struct {
	questID uuid.UUID
	heroID  uuid.UUID
}

type badgeKey struct {
	heroID  uuid.UUID
	badgeID string
}

type idempotencyKey struct {
	heroID uuid.UUID
	key    string
}

// memData is copied by value on every transaction so a failed transaction can
// be rolled back by restoring the copy. Records are stored by value.
type memData struct {
	heroes       map[uuid.UUID]hero.Hero
	tasks        map[uuid.UUID]task.Task
	quests       map[uuid.UUID]quest.Quest
	participants map[participantKey]quest.Participant
	completions  []completion.Completion
	byKey        map[idempotencyKey]int
	xpLog        []completion.XPLogEntry
	badges       map[string]storedBadge
	heroBadges   map[badgeKey]badge.Award
}

func newMemData() memData {
	return memData{
		heroes:       map[uuid.UUID]hero.Hero{},
		tasks:        map[uuid.UUID]task.Task{},
		quests:       map[uuid.UUID]quest.Quest{},
		participants: map[participantKey]quest.Participant{},
		byKey:        map[idempotencyKey]int{},
		badges:       map[string]storedBadge{},
		heroBadges:   map[badgeKey]badge.Award{},
	}
}

func (d memData) clone() memData {
	return memData{
		heroes:       maps.Clone(d.heroes),
		tasks:        maps.Clone(d.tasks),
		quests:       maps.Clone(d.quests),
		participants: maps.Clone(d.participants),
		completions:  slices.Clone(d.completions),
		byKey:        maps.Clone(d.byKey),
		xpLog:        slices.Clone(d.xpLog),
		badges:       maps.Clone(d.badges),
		heroBadges:   maps.Clone(d.heroBadges),
	}
}

type storedBadge struct {
	def    badge.Definition
	active bool
}

// Memory is an in-process Store. Transactions are serialized behind one
// mutex, which gives them the isolation the Postgres row locks provide.
type Memory struct {
	mu     sync.RWMutex
	data   memData
	faults map[string]error
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{data: newMemData(), faults: map[string]error{}}
}

// PutHero inserts or replaces a hero. Hero and task management live outside
// the engine, so this is how they reach the memory store.
func (m *Memory) PutHero(h hero.Hero) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.heroes[h.ID] = h
}

func (m *Memory) PutTask(t task.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.tasks[t.ID] = t
}

// FailOn makes the named Tx operation return err until cleared with a nil
// error. Used to exercise rollback paths.
func (m *Memory) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.faults, op)
		return
	}
	m.faults[op] = err
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() {}

func (m *Memory) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return apperr.Unavailable("begin transaction", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.data.clone()
	tx := &memTx{memView: memView{data: &m.data}, faults: m.faults}
	if err := fn(tx); err != nil {
		m.data = snapshot
		return err
	}
	return nil
}

func (m *Memory) SyncBadges(ctx context.Context, defs []badge.Definition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, b := range m.data.badges {
		b.active = false
		m.data.badges[id] = b
	}
	for _, d := range defs {
		m.data.badges[d.ID] = storedBadge{def: d, active: true}
	}
	return nil
}

func (m *Memory) view() (memView, func()) {
	m.mu.RLock()
	return memView{data: &m.data}, m.mu.RUnlock
}

func (m *Memory) GetHero(ctx context.Context, heroID uuid.UUID) (*hero.Hero, error) {
	v, done := m.view()
	defer done()
	return v.GetHero(ctx, heroID)
}

func (m *Memory) ListFamilyHeroes(ctx context.Context, familyID uuid.UUID) ([]*hero.Hero, error) {
	v, done := m.view()
	defer done()
	return v.ListFamilyHeroes(ctx, familyID)
}

func (m *Memory) GetTask(ctx context.Context, taskID uuid.UUID) (*task.Task, error) {
	v, done := m.view()
	defer done()
	return v.GetTask(ctx, taskID)
}

func (m *Memory) GetQuest(ctx context.Context, questID uuid.UUID) (*quest.Quest, error) {
	v, done := m.view()
	defer done()
	return v.GetQuest(ctx, questID)
}

func (m *Memory) ListFamilyQuests(ctx context.Context, familyID uuid.UUID) ([]*quest.Quest, error) {
	v, done := m.view()
	defer done()
	return v.ListFamilyQuests(ctx, familyID)
}

func (m *Memory) ListParticipants(ctx context.Context, questID uuid.UUID) ([]quest.Participant, error) {
	v, done := m.view()
	defer done()
	return v.ListParticipants(ctx, questID)
}

func (m *Memory) GetParticipant(ctx context.Context, questID, heroID uuid.UUID) (*quest.Participant, error) {
	v, done := m.view()
	defer done()
	return v.GetParticipant(ctx, questID, heroID)
}

func (m *Memory) HeroQuestStats(ctx context.Context, heroID uuid.UUID) (*quest.HeroStats, error) {
	v, done := m.view()
	defer done()
	return v.HeroQuestStats(ctx, heroID)
}

func (m *Memory) CountCompletions(ctx context.Context, heroID uuid.UUID, source completion.SourceType) (int, error) {
	v, done := m.view()
	defer done()
	return v.CountCompletions(ctx, heroID, source)
}

func (m *Memory) ListFamilyTasks(ctx context.Context, familyID uuid.UUID) ([]task.Task, error) {
	v, done := m.view()
	defer done()
	return v.ListFamilyTasks(ctx, familyID)
}

func (m *Memory) ListCompletions(ctx context.Context, heroID uuid.UUID, limit int) ([]completion.Completion, error) {
	v, done := m.view()
	defer done()
	return v.ListCompletions(ctx, heroID, limit)
}

func (m *Memory) ListCompletionsSince(ctx context.Context, heroID uuid.UUID, since time.Time) ([]completion.Completion, error) {
	v, done := m.view()
	defer done()
	return v.ListCompletionsSince(ctx, heroID, since)
}

func (m *Memory) FindCompletionByKey(ctx context.Context, heroID uuid.UUID, key string) (*completion.Completion, error) {
	v, done := m.view()
	defer done()
	return v.FindCompletionByKey(ctx, heroID, key)
}

func (m *Memory) ListXPLog(ctx context.Context, heroID uuid.UUID, limit int) ([]completion.XPLogEntry, error) {
	v, done := m.view()
	defer done()
	return v.ListXPLog(ctx, heroID, limit)
}

func (m *Memory) ListHeroBadges(ctx context.Context, heroID uuid.UUID) ([]badge.Award, error) {
	v, done := m.view()
	defer done()
	return v.ListHeroBadges(ctx, heroID)
}

func (m *Memory) ListActiveBadges(ctx context.Context) ([]badge.Definition, error) {
	v, done := m.view()
	defer done()
	return v.ListActiveBadges(ctx)
}

// memView implements Reader over data the caller has already locked.
type memView struct {
	data *memData
}

func (v memView) GetHero(_ context.Context, heroID uuid.UUID) (*hero.Hero, error) {
	h, ok := v.data.heroes[heroID]
	if !ok {
		return nil, apperr.NotFound("hero %s", heroID)
	}
	return &h, nil
}

func (v memView) ListFamilyHeroes(_ context.Context, familyID uuid.UUID) ([]*hero.Hero, error) {
	var out []*hero.Hero
	for _, h := range v.data.heroes {
		if h.FamilyID == familyID {
			out = append(out, &h)
		}
	}
	slices.SortFunc(out, func(a, b *hero.Hero) int {
		if a.TotalXP != b.TotalXP {
			return b.TotalXP - a.TotalXP
		}
		return cmp.Compare(a.HeroName, b.HeroName)
	})
	return out, nil
}

func (v memView) GetTask(_ context.Context, taskID uuid.UUID) (*task.Task, error) {
	t, ok := v.data.tasks[taskID]
	if !ok {
		return nil, apperr.NotFound("task %s", taskID)
	}
	return &t, nil
}

func (v memView) ListFamilyTasks(_ context.Context, familyID uuid.UUID) ([]task.Task, error) {
	var out []task.Task
	for _, t := range v.data.tasks {
		if t.FamilyID == familyID && t.IsActive {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b task.Task) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Title, b.Title)
	})
	return out, nil
}

func (v memView) GetQuest(_ context.Context, questID uuid.UUID) (*quest.Quest, error) {
	q, ok := v.data.quests[questID]
	if !ok {
		return nil, apperr.NotFound("quest %s", questID)
	}
	return &q, nil
}

func (v memView) ListFamilyQuests(_ context.Context, familyID uuid.UUID) ([]*quest.Quest, error) {
	var out []*quest.Quest
	for _, q := range v.data.quests {
		if q.FamilyID == familyID {
			out = append(out, &q)
		}
	}
	slices.SortFunc(out, func(a, b *quest.Quest) int {
		if a.IsCompleted != b.IsCompleted {
			if a.IsCompleted {
				return 1
			}
			return -1
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (v memView) ListParticipants(_ context.Context, questID uuid.UUID) ([]quest.Participant, error) {
	var out []quest.Participant
	for k, p := range v.data.participants {
		if k.questID == questID {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b quest.Participant) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

func (v memView) GetParticipant(_ context.Context, questID, heroID uuid.UUID) (*quest.Participant, error) {
	p, ok := v.data.participants[participantKey{questID, heroID}]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (v memView) HeroQuestStats(_ context.Context, heroID uuid.UUID) (*quest.HeroStats, error) {
	stats := &quest.HeroStats{}
	for k, p := range v.data.participants {
		if k.heroID != heroID {
			continue
		}
		stats.TotalJoined++
		if p.HasCompleted {
			stats.TotalCompleted++
		}
	}
	for _, e := range v.data.xpLog {
		if e.HeroID == heroID && e.SourceType == completion.SourceQuest {
			stats.TotalXPFromQuests += e.Amount
		}
	}
	return stats, nil
}

func (v memView) CountCompletions(_ context.Context, heroID uuid.UUID, source completion.SourceType) (int, error) {
	n := 0
	for _, c := range v.data.completions {
		if c.HeroID == heroID && c.SourceType == source {
			n++
		}
	}
	return n, nil
}

func (v memView) ListCompletionsSince(_ context.Context, heroID uuid.UUID, since time.Time) ([]completion.Completion, error) {
	var out []completion.Completion
	for i := len(v.data.completions) - 1; i >= 0; i-- {
		c := v.data.completions[i]
		if c.HeroID == heroID && !c.CompletedAt.Before(since) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (v memView) ListCompletions(_ context.Context, heroID uuid.UUID, limit int) ([]completion.Completion, error) {
	var out []completion.Completion
	for i := len(v.data.completions) - 1; i >= 0 && len(out) < limit; i-- {
		if c := v.data.completions[i]; c.HeroID == heroID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (v memView) FindCompletionByKey(_ context.Context, heroID uuid.UUID, key string) (*completion.Completion, error) {
	i, ok := v.data.byKey[idempotencyKey{heroID, key}]
	if !ok {
		return nil, nil
	}
	c := v.data.completions[i]
	return &c, nil
}

func (v memView) ListXPLog(_ context.Context, heroID uuid.UUID, limit int) ([]completion.XPLogEntry, error) {
	var out []completion.XPLogEntry
	for i := len(v.data.xpLog) - 1; i >= 0 && len(out) < limit; i-- {
		if e := v.data.xpLog[i]; e.HeroID == heroID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (v memView) ListHeroBadges(_ context.Context, heroID uuid.UUID) ([]badge.Award, error) {
	var out []badge.Award
	for k, a := range v.data.heroBadges {
		if k.heroID == heroID {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b badge.Award) int {
		if c := a.EarnedAt.Compare(b.EarnedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.BadgeID, b.BadgeID)
	})
	return out, nil
}

func (v memView) ListActiveBadges(context.Context) ([]badge.Definition, error) {
	var out []badge.Definition
	for _, b := range v.data.badges {
		if b.active {
			out = append(out, b.def)
		}
	}
	slices.SortFunc(out, func(a, b badge.Definition) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

type memTx struct {
	memView
	faults map[string]error
}

func (t *memTx) fault(op string) error {
	if err, ok := t.faults[op]; ok {
		return err
	}
	return nil
}

func (t *memTx) LockHero(ctx context.Context, heroID uuid.UUID) (*hero.Hero, error) {
	if err := t.fault("LockHero"); err != nil {
		return nil, err
	}
	return t.GetHero(ctx, heroID)
}

func (t *memTx) UpdateHeroProgress(_ context.Context, h *hero.Hero) error {
	if err := t.fault("UpdateHeroProgress"); err != nil {
		return err
	}
	if _, ok := t.data.heroes[h.ID]; !ok {
		return apperr.NotFound("hero %s", h.ID)
	}
	t.data.heroes[h.ID] = *h
	return nil
}

func (t *memTx) InsertCompletion(_ context.Context, c *completion.Completion) error {
	if err := t.fault("InsertCompletion"); err != nil {
		return err
	}
	if c.IdempotencyKey != nil {
		k := idempotencyKey{c.HeroID, *c.IdempotencyKey}
		if _, dup := t.data.byKey[k]; dup {
			return apperr.Conflict("idempotency key %q already used", *c.IdempotencyKey)
		}
		t.data.byKey[k] = len(t.data.completions)
	}
	t.data.completions = append(t.data.completions, *c)
	return nil
}

func (t *memTx) SetCompletionResult(_ context.Context, completionID uuid.UUID, r *completion.Result) error {
	if err := t.fault("SetCompletionResult"); err != nil {
		return err
	}
	for i := range t.data.completions {
		if t.data.completions[i].ID == completionID {
			res := *r
			t.data.completions[i].Result = &res
			return nil
		}
	}
	return apperr.NotFound("completion %s", completionID)
}

func (t *memTx) InsertXPLog(_ context.Context, e *completion.XPLogEntry) error {
	if err := t.fault("InsertXPLog"); err != nil {
		return err
	}
	t.data.xpLog = append(t.data.xpLog, *e)
	return nil
}

func (t *memTx) AwardBadge(_ context.Context, heroID uuid.UUID, badgeID string, at time.Time) (bool, error) {
	if err := t.fault("AwardBadge"); err != nil {
		return false, err
	}
	k := badgeKey{heroID, badgeID}
	if _, ok := t.data.heroBadges[k]; ok {
		return false, nil
	}
	t.data.heroBadges[k] = badge.Award{HeroID: heroID, BadgeID: badgeID, EarnedAt: at}
	return true, nil
}

func (t *memTx) LockQuest(ctx context.Context, questID uuid.UUID) (*quest.Quest, error) {
	if err := t.fault("LockQuest"); err != nil {
		return nil, err
	}
	return t.GetQuest(ctx, questID)
}

func (t *memTx) InsertTask(_ context.Context, tk *task.Task) error {
	if err := t.fault("InsertTask"); err != nil {
		return err
	}
	if _, ok := t.data.tasks[tk.ID]; ok {
		return apperr.Conflict("task %s already exists", tk.ID)
	}
	t.data.tasks[tk.ID] = *tk
	return nil
}

func (t *memTx) UpdateTask(_ context.Context, tk *task.Task) error {
	if err := t.fault("UpdateTask"); err != nil {
		return err
	}
	if _, ok := t.data.tasks[tk.ID]; !ok {
		return apperr.NotFound("task %s", tk.ID)
	}
	t.data.tasks[tk.ID] = *tk
	return nil
}

func (t *memTx) InsertQuest(_ context.Context, q *quest.Quest) error {
	if err := t.fault("InsertQuest"); err != nil {
		return err
	}
	if _, ok := t.data.quests[q.ID]; ok {
		return apperr.Conflict("quest %s already exists", q.ID)
	}
	t.data.quests[q.ID] = *q
	return nil
}

func (t *memTx) DeleteQuest(_ context.Context, questID uuid.UUID) error {
	if _, ok := t.data.quests[questID]; !ok {
		return apperr.NotFound("quest %s", questID)
	}
	delete(t.data.quests, questID)
	for k := range t.data.participants {
		if k.questID == questID {
			delete(t.data.participants, k)
		}
	}
	return nil
}

func (t *memTx) AddParticipant(_ context.Context, p *quest.Participant) error {
	if err := t.fault("AddParticipant"); err != nil {
		return err
	}
	if _, ok := t.data.heroes[p.HeroID]; !ok {
		return apperr.NotFound("hero %s", p.HeroID)
	}
	k := participantKey{p.QuestID, p.HeroID}
	if _, ok := t.data.participants[k]; !ok {
		t.data.participants[k] = *p
	}
	return nil
}

func (t *memTx) RemoveParticipant(_ context.Context, questID, heroID uuid.UUID) error {
	k := participantKey{questID, heroID}
	if _, ok := t.data.participants[k]; !ok {
		return apperr.Conflict("hero %s is not a participant of quest %s", heroID, questID)
	}
	delete(t.data.participants, k)
	return nil
}

func (t *memTx) MarkParticipantCompleted(_ context.Context, questID, heroID uuid.UUID, at time.Time) error {
	if err := t.fault("MarkParticipantCompleted"); err != nil {
		return err
	}
	k := participantKey{questID, heroID}
	p, ok := t.data.participants[k]
	if !ok || p.HasCompleted {
		return apperr.Conflict("hero %s cannot complete quest %s", heroID, questID)
	}
	p.HasCompleted = true
	p.CompletedAt = &at
	t.data.participants[k] = p
	return nil
}

func (t *memTx) CountQuestCompleted(_ context.Context, questID uuid.UUID) (int, error) {
	n := 0
	for k, p := range t.data.participants {
		if k.questID == questID && p.HasCompleted {
			n++
		}
	}
	return n, nil
}

func (t *memTx) MarkQuestCompleted(_ context.Context, questID uuid.UUID, at time.Time) (bool, error) {
	if err := t.fault("MarkQuestCompleted"); err != nil {
		return false, err
	}
	q, ok := t.data.quests[questID]
	if !ok {
		return false, apperr.NotFound("quest %s", questID)
	}
	if q.IsCompleted {
		return false, nil
	}
	q.IsCompleted = true
	q.CompletedAt = &at
	q.UpdatedAt = at
	t.data.quests[questID] = q
	return true, nil
}
