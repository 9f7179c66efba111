package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ujione-id/ujione-backend/internal/broadcast"
	"github.com/ujione-id/ujione-backend/internal/model"
	"github.com/ujione-id/ujione-backend/internal/repository"
)

// In-memory fakes for the store contracts. They mimic the pgx repositories'
// observable behavior, including pgx.ErrNoRows on missing rows and on
// conflicting inserts.

type fakeExamStore struct {
	exams  map[uuid.UUID]*model.Exam
	manual map[uuid.UUID][]model.ManualAssignment
	rules  map[uuid.UUID][]model.RandomizationRule
}

func newFakeExamStore() *fakeExamStore {
	return &fakeExamStore{
		exams:  make(map[uuid.UUID]*model.Exam),
		manual: make(map[uuid.UUID][]model.ManualAssignment),
		rules:  make(map[uuid.UUID][]model.RandomizationRule),
	}
}

func (f *fakeExamStore) GetByCode(_ context.Context, code string) (*model.Exam, error) {
	for _, e := range f.exams {
		if e.Code == code {
			cp := *e
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeExamStore) GetByID(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	e, ok := f.exams[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (f *fakeExamStore) ListManualAssignments(_ context.Context, examID uuid.UUID) ([]model.ManualAssignment, error) {
	return f.manual[examID], nil
}

func (f *fakeExamStore) ListRandomizationRules(_ context.Context, examID uuid.UUID) ([]model.RandomizationRule, error) {
	rules := append([]model.RandomizationRule(nil), f.rules[examID]...)
	sort.Slice(rules, func(i, j int) bool { return rules[i].RuleOrder < rules[j].RuleOrder })
	return rules, nil
}

type fakeQuestionStore struct {
	questions map[uuid.UUID]model.Question
	banks     map[uuid.UUID][]uuid.UUID
}

func newFakeQuestionStore() *fakeQuestionStore {
	return &fakeQuestionStore{
		questions: make(map[uuid.UUID]model.Question),
		banks:     make(map[uuid.UUID][]uuid.UUID),
	}
}

func (f *fakeQuestionStore) addToBank(bankID uuid.UUID, q model.Question) {
	q.BankID = bankID
	f.questions[q.ID] = q
	f.banks[bankID] = append(f.banks[bankID], q.ID)
}

func (f *fakeQuestionStore) ListBankQuestionIDs(_ context.Context, bankID uuid.UUID, excludeIDs []uuid.UUID) ([]uuid.UUID, error) {
	excluded := make(map[uuid.UUID]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = struct{}{}
	}
	var out []uuid.UUID
	for _, id := range f.banks[bankID] {
		if _, skip := excluded[id]; !skip {
			out = append(out, id)
		}
	}
	return out, nil
}

func (f *fakeQuestionStore) GetByIDs(_ context.Context, ids []uuid.UUID) ([]model.Question, error) {
	var out []model.Question
	for _, id := range ids {
		if q, ok := f.questions[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

type fakeExamineeStore struct {
	examinees map[int]*model.Examinee
}

func newFakeExamineeStore() *fakeExamineeStore {
	return &fakeExamineeStore{examinees: make(map[int]*model.Examinee)}
}

func (f *fakeExamineeStore) GetByID(_ context.Context, id int) (*model.Examinee, error) {
	e, ok := f.examinees[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

type fakeAttemptStore struct {
	mu       sync.Mutex
	attempts map[uuid.UUID]*model.Attempt
}

func newFakeAttemptStore() *fakeAttemptStore {
	return &fakeAttemptStore{attempts: make(map[uuid.UUID]*model.Attempt)}
}

func (f *fakeAttemptStore) put(a *model.Attempt) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *a
	f.attempts[a.ID] = &cp
}

func (f *fakeAttemptStore) GetByID(_ context.Context, id uuid.UUID) (*model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attempts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAttemptStore) GetLatest(_ context.Context, examineeID int, examID uuid.UUID) (*model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *model.Attempt
	for _, a := range f.attempts {
		if a.ExamineeID != examineeID || a.ExamID != examID {
			continue
		}
		if latest == nil || a.AttemptNumber > latest.AttemptNumber {
			latest = a
		}
	}
	if latest == nil {
		return nil, pgx.ErrNoRows
	}
	cp := *latest
	return &cp, nil
}

func (f *fakeAttemptStore) Create(_ context.Context, a *model.Attempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.attempts {
		if existing.ExamineeID == a.ExamineeID && existing.ExamID == a.ExamID &&
			existing.AttemptNumber == a.AttemptNumber {
			return pgx.ErrNoRows
		}
	}
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	cp := *a
	f.attempts[a.ID] = &cp
	return nil
}

func (f *fakeAttemptStore) MarkStarted(_ context.Context, id uuid.UUID, startTime time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attempts[id]
	if !ok || a.StartTime != nil {
		return false, nil
	}
	st := startTime
	a.StartTime = &st
	return true, nil
}

func (f *fakeAttemptStore) FinishIfStarted(_ context.Context, id uuid.UUID, finalScore float64, finishedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attempts[id]
	if !ok || a.Status != model.AttemptStatusStarted {
		return false, nil
	}
	a.Status = model.AttemptStatusFinished
	score := finalScore
	at := finishedAt
	a.FinalScore = &score
	a.FinishedAt = &at
	return true, nil
}

func (f *fakeAttemptStore) ListByExam(_ context.Context, examID uuid.UUID, page, perPage int) ([]repository.AttemptOverview, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.AttemptOverview
	for _, a := range f.attempts {
		if a.ExamID != examID {
			continue
		}
		out = append(out, repository.AttemptOverview{
			AttemptID:     a.ID,
			ExamineeID:    a.ExamineeID,
			AttemptNumber: a.AttemptNumber,
			Status:        a.Status,
			StartTime:     a.StartTime,
			FinishedAt:    a.FinishedAt,
			FinalScore:    a.FinalScore,
			IsRetake:      a.IsRetake,
		})
	}
	return out, int64(len(out)), nil
}

func (f *fakeAttemptStore) UpdateNotes(_ context.Context, id uuid.UUID, notes string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attempts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	n := notes
	a.AdminNotes = &n
	return nil
}

type fakeSnapshotStore struct {
	mu      sync.Mutex
	entries map[uuid.UUID][]model.SnapshotEntry // by attempt id

	// questions backs GetEntryWithAnswer and ListQuestionsForAttempt.
	questions *fakeQuestionStore

	batchErr error

	// batchHook runs inside CreateBatch before the conflict check, letting
	// tests interleave a concurrent writer at the race point.
	batchHook func()
}

func newFakeSnapshotStore(questions *fakeQuestionStore) *fakeSnapshotStore {
	return &fakeSnapshotStore{
		entries:   make(map[uuid.UUID][]model.SnapshotEntry),
		questions: questions,
	}
}

func (f *fakeSnapshotStore) ListByAttempt(_ context.Context, attemptID uuid.UUID) ([]model.SnapshotEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.SnapshotEntry(nil), f.entries[attemptID]...), nil
}

func (f *fakeSnapshotStore) CreateBatch(_ context.Context, entries []model.SnapshotEntry) error {
	if f.batchErr != nil {
		return f.batchErr
	}
	if len(entries) == 0 {
		return nil
	}
	if f.batchHook != nil {
		f.batchHook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	attemptID := entries[0].AttemptID
	if len(f.entries[attemptID]) > 0 {
		// Mirrors UNIQUE (attempt_id, question_id).
		return &pgconn.PgError{
			Code:           "23505",
			ConstraintName: "attempt_snapshot_entries_attempt_id_question_id_key",
		}
	}
	f.entries[attemptID] = append(f.entries[attemptID], entries...)
	return nil
}

func (f *fakeSnapshotStore) ListQuestionsForAttempt(_ context.Context, attemptID uuid.UUID) ([]model.QuestionForParticipant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.QuestionForParticipant
	for _, e := range f.entries[attemptID] {
		q := f.questions.questions[e.QuestionID]
		out = append(out, model.QuestionForParticipant{
			RefID:        e.ID,
			QuestionText: q.QuestionText,
			Options:      q.Options,
			Point:        e.Point,
		})
	}
	return out, nil
}

func (f *fakeSnapshotStore) GetEntryWithAnswer(_ context.Context, attemptID, entryID uuid.UUID) (*model.SnapshotEntry, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries[attemptID] {
		if e.ID == entryID {
			cp := e
			return &cp, f.questions.questions[e.QuestionID].CorrectAnswer, nil
		}
	}
	return nil, "", pgx.ErrNoRows
}

type fakeAnswerStore struct {
	mu        sync.Mutex
	records   map[uuid.UUID]map[uuid.UUID]model.AnswerRecord // attempt -> entry
	snapshots *fakeSnapshotStore
}

func newFakeAnswerStore(snapshots *fakeSnapshotStore) *fakeAnswerStore {
	return &fakeAnswerStore{
		records:   make(map[uuid.UUID]map[uuid.UUID]model.AnswerRecord),
		snapshots: snapshots,
	}
}

func (f *fakeAnswerStore) Upsert(_ context.Context, rec *model.AnswerRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.records[rec.AttemptID] == nil {
		f.records[rec.AttemptID] = make(map[uuid.UUID]model.AnswerRecord)
	}
	rec.UpdatedAt = time.Now()
	f.records[rec.AttemptID][rec.SnapshotEntryID] = *rec
	return nil
}

func (f *fakeAnswerStore) SumCorrectPoints(_ context.Context, attemptID uuid.UUID) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pointByEntry := make(map[uuid.UUID]float64)
	f.snapshots.mu.Lock()
	for _, e := range f.snapshots.entries[attemptID] {
		pointByEntry[e.ID] = e.Point
	}
	f.snapshots.mu.Unlock()

	var sum float64
	for entryID, rec := range f.records[attemptID] {
		if rec.IsCorrect {
			sum += pointByEntry[entryID]
		}
	}
	return sum, nil
}

type boardRecord struct {
	examID    uuid.UUID
	attemptID uuid.UUID
	score     float64
}

type fakeBoard struct {
	mu      sync.Mutex
	records []boardRecord
	err     error
}

func (f *fakeBoard) Record(_ context.Context, examID, attemptID uuid.UUID, score float64) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, boardRecord{examID: examID, attemptID: attemptID, score: score})
	return nil
}

type capturePublisher struct {
	mu     sync.Mutex
	events []broadcast.Event
}

func (p *capturePublisher) Publish(_ context.Context, ev broadcast.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *capturePublisher) byType(t broadcast.EventType) []broadcast.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []broadcast.Event
	for _, ev := range p.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

type fakeTokens struct{}

func (fakeTokens) IssueParticipantToken(a *model.Attempt) (string, error) {
	return fmt.Sprintf("token-%s", a.ID), nil
}
