package workflow_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"docflow/internal/actor"
	"docflow/internal/logging"
	"docflow/internal/stage"
	"docflow/internal/store"
	"docflow/internal/testsupport"
	"docflow/internal/workflow"
)

var (
	author    = workflow.Actor{Role: actor.RoleAuthor, Identity: "opr@example.mil"}
	reviewer  = workflow.Actor{Role: actor.RoleTechnicalReviewer, Identity: "icu@example.mil"}
	legal     = workflow.Actor{Role: actor.RoleLegalReviewer, Identity: "legal@example.mil"}
	publisher = workflow.Actor{Role: actor.RolePublisher, Identity: "afdpo@example.mil"}
	admin     = workflow.Actor{Role: actor.RoleAdmin, Identity: "admin@example.mil"}
)

func newEngine(t *testing.T) *workflow.Engine {
	t.Helper()
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	return workflow.New(st, logging.NewNop())
}

func mustStart(t *testing.T, engine *workflow.Engine, documentID string) *store.Instance {
	t.Helper()
	result, err := engine.Start(context.Background(), documentID, author)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return result.Instance
}

func TestEndToEndScenario(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t)
	instance := mustStart(t, engine, "doc-1")

	if instance.CurrentStage != stage.DraftCreation {
		t.Fatalf("start stage = %s", instance.CurrentStage)
	}

	// Author hands off to 1st coordination.
	result, err := engine.Advance(ctx, instance.ID, author, nil)
	if err != nil {
		t.Fatalf("advance to coordination: %v", err)
	}
	if result.Instance.CurrentStage != stage.InternalCoordination {
		t.Fatalf("stage = %s", result.Instance.CurrentStage)
	}

	// Author no longer owns the current stage.
	if _, err := engine.Advance(ctx, instance.ID, author, nil); !errors.Is(err, workflow.ErrUnauthorized) {
		t.Fatalf("author advance at coordination err = %v", err)
	} else if !strings.Contains(err.Error(), string(actor.RoleTechnicalReviewer)) {
		t.Fatalf("denial should name the required role: %v", err)
	}

	result, err = engine.Advance(ctx, instance.ID, reviewer, nil)
	if err != nil {
		t.Fatalf("reviewer advance: %v", err)
	}
	if result.Instance.CurrentStage != stage.OPRRevisions {
		t.Fatalf("stage = %s", result.Instance.CurrentStage)
	}

	// Backward is an admin override.
	if _, err := engine.MoveBackward(ctx, instance.ID, author, "1st Coordination", "needs rework", nil); !errors.Is(err, workflow.ErrUnauthorized) {
		t.Fatalf("author backward err = %v", err)
	}
	result, err = engine.MoveBackward(ctx, instance.ID, admin, "1st Coordination", "needs rework", nil)
	if err != nil {
		t.Fatalf("admin backward: %v", err)
	}
	if result.Instance.CurrentStage != stage.InternalCoordination {
		t.Fatalf("stage after backward = %s", result.Instance.CurrentStage)
	}

	history, err := engine.History(ctx, instance.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	wantStages := []stage.ID{stage.DraftCreation, stage.InternalCoordination, stage.OPRRevisions, stage.InternalCoordination}
	wantKinds := []store.EntryKind{store.KindStart, store.KindAdvance, store.KindAdvance, store.KindBackward}
	if len(history) != len(wantStages) {
		t.Fatalf("history has %d entries, want %d", len(history), len(wantStages))
	}
	for i, entry := range history {
		if entry.ToStage != wantStages[i] || entry.Kind != wantKinds[i] {
			t.Fatalf("entry %d = %s→%s (%s), want →%s (%s)", i, entry.FromStage, entry.ToStage, entry.Kind, wantStages[i], wantKinds[i])
		}
	}
	if history[3].Reason != "needs rework" {
		t.Fatalf("backward entry reason = %q", history[3].Reason)
	}

	// Audit consistency: folding the trail reproduces the materialized stage.
	folded, ok := store.FoldStage(history)
	if !ok || folded != result.Instance.CurrentStage {
		t.Fatalf("folded stage %s != materialized %s", folded, result.Instance.CurrentStage)
	}
}

func TestFullPipelineToPublished(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t)
	instance := mustStart(t, engine, "doc-1")

	actors := []workflow.Actor{author, reviewer, author, reviewer, author, legal, author, publisher}
	var last workflow.Result
	var err error
	for i, act := range actors {
		last, err = engine.Advance(ctx, instance.ID, act, nil)
		if err != nil {
			t.Fatalf("advance %d as %s: %v", i+1, act.Role, err)
		}
	}

	if last.Instance.CurrentStage != stage.Published {
		t.Fatalf("final stage = %s", last.Instance.CurrentStage)
	}
	if last.Instance.IsActive {
		t.Fatal("published instance should be inactive")
	}

	// Nothing moves a published workflow; the denial is the not-started kind.
	if _, err := engine.Advance(ctx, instance.ID, admin, nil); !errors.Is(err, workflow.ErrNotStarted) {
		t.Fatalf("advance after publish err = %v", err)
	}

	// The document may begin an amendment cycle with a fresh instance.
	fresh := mustStart(t, engine, "doc-1")
	if fresh.ID == instance.ID {
		t.Fatal("amendment cycle should create a new instance")
	}
	if fresh.CurrentStage != stage.DraftCreation {
		t.Fatalf("fresh instance stage = %s", fresh.CurrentStage)
	}

	// The published instance and its trail survive.
	history, err := engine.History(ctx, instance.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 9 {
		t.Fatalf("published instance history has %d entries, want 9", len(history))
	}
}

func TestStartValidation(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t)
	mustStart(t, engine, "doc-1")

	if _, err := engine.Start(ctx, "doc-1", author); !errors.Is(err, workflow.ErrActiveInstanceExists) {
		t.Fatalf("duplicate start err = %v", err)
	}
	if _, err := engine.Start(ctx, "doc-2", legal); !errors.Is(err, workflow.ErrUnauthorized) {
		t.Fatalf("legal start err = %v", err)
	}
	if _, err := engine.Start(ctx, "  ", author); !errors.Is(err, workflow.ErrInvalidTarget) {
		t.Fatalf("empty document start err = %v", err)
	}
}

func TestConcurrentAdvanceRace(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t)
	instance := mustStart(t, engine, "doc-1")

	var (
		ready sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, 2)
		done  sync.WaitGroup
	)
	for i := 0; i < 2; i++ {
		ready.Add(1)
		done.Add(1)
		go func(i int) {
			defer done.Done()
			ready.Done()
			<-start
			_, errs[i] = engine.Advance(ctx, instance.ID, author, nil)
		}(i)
	}
	ready.Wait()
	close(start)
	done.Wait()

	var successes, failures int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, workflow.ErrConcurrentModification) || errors.Is(err, workflow.ErrUnauthorized):
			// The loser either validated against the stale snapshot (CAS
			// conflict) or loaded after the winner committed (role denial at
			// the new stage). Both are single-increment outcomes.
			failures++
		default:
			t.Fatalf("unexpected race error: %v", err)
		}
	}
	if successes != 1 || failures != 1 {
		t.Fatalf("race outcome: %d successes, %d failures; errs = %v", successes, failures, errs)
	}

	current, err := engine.Status(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if current.CurrentStage != stage.InternalCoordination {
		t.Fatalf("final stage = %s, want exactly one increment", current.CurrentStage)
	}
	history, err := engine.History(ctx, instance.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history has %d entries, want 2", len(history))
	}
}

func TestAdminJump(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t)
	instance := mustStart(t, engine, "doc-1")

	if _, err := engine.AdminJump(ctx, instance.ID, publisher, "Legal Review", "expedite"); !errors.Is(err, workflow.ErrUnauthorized) {
		t.Fatalf("publisher jump err = %v", err)
	}

	// An override without a stated reason never reaches the audit trail.
	if _, err := engine.AdminJump(ctx, instance.ID, admin, "Legal Review", ""); !errors.Is(err, workflow.ErrUnauthorized) {
		t.Fatalf("jump without reason err = %v", err)
	}
	history, err := engine.History(ctx, instance.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 || history[0].Kind != store.KindStart {
		t.Fatalf("history after denied jump = %+v", history)
	}

	result, err := engine.AdminJump(ctx, instance.ID, admin, "Legal Review", "expedite")
	if err != nil {
		t.Fatalf("admin jump: %v", err)
	}
	if result.Instance.CurrentStage != stage.LegalReview {
		t.Fatalf("stage after jump = %s", result.Instance.CurrentStage)
	}
	if result.Entry.Kind != store.KindAdminJump {
		t.Fatalf("entry kind = %s", result.Entry.Kind)
	}

	// Jump targets must resolve through the catalog.
	if _, err := engine.AdminJump(ctx, instance.ID, admin, "stage 99", "oops"); !errors.Is(err, workflow.ErrInvalidTarget) {
		t.Fatalf("bad target err = %v", err)
	}
	if _, err := engine.AdminJump(ctx, instance.ID, admin, "PUBLISHED", "skip ahead"); !errors.Is(err, workflow.ErrInvalidTarget) {
		t.Fatalf("jump to terminal marker err = %v", err)
	}

	// Backward jumps past earlier stages are fine for admin.
	result, err = engine.AdminJump(ctx, instance.ID, admin, "OPR Creates", "restart review")
	if err != nil {
		t.Fatalf("jump back to draft: %v", err)
	}
	if result.Instance.CurrentStage != stage.DraftCreation {
		t.Fatalf("stage = %s", result.Instance.CurrentStage)
	}
}

func TestMoveBackwardTargetValidation(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t)
	instance := mustStart(t, engine, "doc-1")

	if _, err := engine.Advance(ctx, instance.ID, author, nil); err != nil {
		t.Fatalf("advance: %v", err)
	}

	// Same stage and forward stages are not backward targets.
	if _, err := engine.MoveBackward(ctx, instance.ID, admin, "1st Coordination", "why", nil); !errors.Is(err, workflow.ErrInvalidTarget) {
		t.Fatalf("backward to current err = %v", err)
	}
	if _, err := engine.MoveBackward(ctx, instance.ID, admin, "Legal Review", "why", nil); !errors.Is(err, workflow.ErrInvalidTarget) {
		t.Fatalf("backward to later stage err = %v", err)
	}
	if _, err := engine.MoveBackward(ctx, instance.ID, admin, "no such stage", "why", nil); !errors.Is(err, workflow.ErrInvalidTarget) {
		t.Fatalf("backward to unknown stage err = %v", err)
	}

	result, err := engine.MoveBackward(ctx, instance.ID, admin, "OPR Creates", "start over", nil)
	if err != nil {
		t.Fatalf("backward: %v", err)
	}
	if result.Instance.CurrentStage != stage.DraftCreation {
		t.Fatalf("stage = %s", result.Instance.CurrentStage)
	}
}

func TestResetRetainsHistoryAndFeedback(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t)
	instance := mustStart(t, engine, "doc-1")

	if _, err := engine.Advance(ctx, instance.ID, author, nil); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if _, err := engine.SubmitFeedback(ctx, instance.ID, reviewer, "1st Coordination", "coordination notes", ""); err != nil {
		t.Fatalf("SubmitFeedback: %v", err)
	}

	if _, err := engine.Reset(ctx, instance.ID, admin, ""); !errors.Is(err, workflow.ErrUnauthorized) {
		t.Fatalf("reset without confirmation err = %v", err)
	}
	if _, err := engine.Reset(ctx, instance.ID, author, "confirm-reset"); !errors.Is(err, workflow.ErrUnauthorized) {
		t.Fatalf("author reset err = %v", err)
	}

	result, err := engine.Reset(ctx, instance.ID, admin, "confirm-reset")
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if result.Instance.CurrentStage != stage.DraftCreation {
		t.Fatalf("stage after reset = %s", result.Instance.CurrentStage)
	}
	if result.Instance.ID != instance.ID {
		t.Fatal("reset must preserve instance identity")
	}

	history, err := engine.History(ctx, instance.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("history has %d entries after reset, want 3 (start, advance, reset)", len(history))
	}
	if history[2].Kind != store.KindReset {
		t.Fatalf("last entry kind = %s", history[2].Kind)
	}

	feedback, err := engine.Feedback(ctx, instance.ID, "1st Coordination")
	if err != nil {
		t.Fatalf("Feedback: %v", err)
	}
	if feedback == nil || feedback.Content != "coordination notes" {
		t.Fatalf("feedback lost across reset: %+v", feedback)
	}
}

func TestAdvanceCarriesFeedbackPayload(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t)
	instance := mustStart(t, engine, "doc-1")

	if _, err := engine.Advance(ctx, instance.ID, author, nil); err != nil {
		t.Fatalf("advance: %v", err)
	}

	result, err := engine.Advance(ctx, instance.ID, reviewer, &workflow.TransitionData{
		Notes: "coordination round complete",
		Feedback: &workflow.FeedbackPayload{
			Stage:    "1st Coordination",
			Content:  "two comment threads unresolved",
			Comments: "see sections 2 and 4",
		},
	})
	if err != nil {
		t.Fatalf("advance with payload: %v", err)
	}
	if !strings.Contains(result.Entry.TransitionData, "coordination round complete") {
		t.Fatalf("transition data not recorded: %q", result.Entry.TransitionData)
	}

	feedback, err := engine.Feedback(ctx, instance.ID, "INTERNAL_COORDINATION")
	if err != nil {
		t.Fatalf("Feedback: %v", err)
	}
	if feedback == nil || feedback.Content != "two comment threads unresolved" {
		t.Fatalf("feedback slot not written: %+v", feedback)
	}
	if feedback.AuthorIdentity != reviewer.Identity {
		t.Fatalf("feedback author = %q", feedback.AuthorIdentity)
	}
}

func TestFeedbackValidation(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t)
	instance := mustStart(t, engine, "doc-1")

	if _, err := engine.SubmitFeedback(ctx, instance.ID, reviewer, "no such stage", "content", ""); !errors.Is(err, stage.ErrUnknown) {
		t.Fatalf("unknown stage err = %v", err)
	}
	if _, err := engine.SubmitFeedback(ctx, instance.ID, reviewer, "1st Coordination", "  ", ""); !errors.Is(err, workflow.ErrInvalidTarget) {
		t.Fatalf("empty content err = %v", err)
	}
	if _, err := engine.SubmitFeedback(ctx, "missing", reviewer, "1st Coordination", "content", ""); !errors.Is(err, workflow.ErrInstanceNotFound) {
		t.Fatalf("missing instance err = %v", err)
	}
}

func TestLookupsOnMissingState(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t)

	status, err := engine.Status(ctx, "never-started")
	if err != nil || status != nil {
		t.Fatalf("Status(missing) = %+v, %v", status, err)
	}
	if _, err := engine.History(ctx, "missing"); !errors.Is(err, workflow.ErrInstanceNotFound) {
		t.Fatalf("History(missing) err = %v", err)
	}
	if _, err := engine.Advance(ctx, "missing", author, nil); !errors.Is(err, workflow.ErrInstanceNotFound) {
		t.Fatalf("Advance(missing) err = %v", err)
	}
}

func TestPermissions(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t)
	instance := mustStart(t, engine, "doc-1")

	authorIntents, err := engine.Permissions(ctx, instance.ID, actor.RoleAuthor)
	if err != nil {
		t.Fatalf("Permissions: %v", err)
	}
	if len(authorIntents) != 1 || authorIntents[0] != workflow.IntentAdvance {
		t.Fatalf("author intents = %v", authorIntents)
	}

	legalIntents, err := engine.Permissions(ctx, instance.ID, actor.RoleLegalReviewer)
	if err != nil {
		t.Fatalf("Permissions: %v", err)
	}
	if len(legalIntents) != 0 {
		t.Fatalf("legal intents at draft = %v", legalIntents)
	}
}
