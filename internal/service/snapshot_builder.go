package service

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ujione-id/ujione-backend/internal/model"
)

// SnapshotBuilder materializes the immutable question set for one attempt:
// every manual assignment verbatim, then each randomization rule's draw in
// definition order, with no question id ever used twice.
type SnapshotBuilder struct {
	exams     ExamStore
	questions QuestionStore
	snapshots SnapshotStore

	// rng is guarded by mu; builds for different attempts run concurrently.
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSnapshotBuilder creates a SnapshotBuilder. A nil rng gets a time-seeded
// source; tests inject a seeded one for reproducible draws.
func NewSnapshotBuilder(exams ExamStore, questions QuestionStore, snapshots SnapshotStore, rng *rand.Rand) *SnapshotBuilder {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &SnapshotBuilder{
		exams:     exams,
		questions: questions,
		snapshots: snapshots,
		rng:       rng,
	}
}

type pickedQuestion struct {
	questionID uuid.UUID
	point      float64
}

// Build assembles and persists the snapshot for one attempt. Invoked at most
// once per attempt (the caller checks no snapshot rows exist yet). The
// persistence is atomic: either all entries land or none do.
func (b *SnapshotBuilder) Build(ctx context.Context, attemptID, examID uuid.UUID) ([]model.SnapshotEntry, error) {
	manual, err := b.exams.ListManualAssignments(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list manual assignments: %w", err)
	}
	rules, err := b.exams.ListRandomizationRules(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list randomization rules: %w", err)
	}

	used := make(map[uuid.UUID]struct{}, len(manual))
	usedList := make([]uuid.UUID, 0, len(manual))
	picked := make([]pickedQuestion, 0, len(manual))

	for _, m := range manual {
		if _, dup := used[m.QuestionID]; dup {
			continue
		}
		used[m.QuestionID] = struct{}{}
		usedList = append(usedList, m.QuestionID)
		picked = append(picked, pickedQuestion{questionID: m.QuestionID, point: m.Point})
	}

	// Rules draw in definition order; ids claimed by an earlier rule are
	// excluded from later draws. A bank with fewer questions than requested
	// yields a partial draw, never an error.
	for _, rule := range rules {
		candidates, err := b.questions.ListBankQuestionIDs(ctx, rule.QuestionBankID, usedList)
		if err != nil {
			return nil, fmt.Errorf("list bank %s candidates: %w", rule.QuestionBankID, err)
		}
		if len(candidates) == 0 {
			continue
		}

		b.shuffleIDs(candidates)

		take := rule.NumberOfQuestions
		if take > len(candidates) {
			take = len(candidates)
		}
		for _, id := range candidates[:take] {
			used[id] = struct{}{}
			usedList = append(usedList, id)
			picked = append(picked, pickedQuestion{questionID: id, point: rule.PointPerQuestion})
		}
	}

	if len(picked) == 0 {
		return nil, nil
	}

	// Verify the chosen ids still resolve to real questions; a manual
	// assignment pointing at a deleted question must not poison the whole
	// atomic insert.
	bodies, err := b.questions.GetByIDs(ctx, usedList)
	if err != nil {
		return nil, fmt.Errorf("fetch question bodies: %w", err)
	}
	existing := make(map[uuid.UUID]struct{}, len(bodies))
	for _, q := range bodies {
		existing[q.ID] = struct{}{}
	}

	final := picked[:0]
	for _, p := range picked {
		if _, ok := existing[p.questionID]; ok {
			final = append(final, p)
		}
	}

	// One more shuffle for presentation order. Cosmetic only, scoring is
	// unaffected.
	b.shufflePicked(final)

	entries := make([]model.SnapshotEntry, len(final))
	for i, p := range final {
		entries[i] = model.SnapshotEntry{
			ID:         uuid.New(),
			AttemptID:  attemptID,
			QuestionID: p.questionID,
			Point:      p.point,
			Position:   i,
		}
	}

	if err := b.snapshots.CreateBatch(ctx, entries); err != nil {
		return nil, fmt.Errorf("persist snapshot: %w", err)
	}
	return entries, nil
}

func (b *SnapshotBuilder) shuffleIDs(ids []uuid.UUID) {
	b.mu.Lock()
	b.rng.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
	b.mu.Unlock()
}

func (b *SnapshotBuilder) shufflePicked(picked []pickedQuestion) {
	b.mu.Lock()
	b.rng.Shuffle(len(picked), func(i, j int) {
		picked[i], picked[j] = picked[j], picked[i]
	})
	b.mu.Unlock()
}
