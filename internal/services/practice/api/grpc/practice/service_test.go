package practice

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/SingularTensor/Mathly/internal/platform/requestctx"
	"github.com/SingularTensor/Mathly/internal/services/practice/domain/sector"
	"github.com/SingularTensor/Mathly/internal/services/practice/play"
	practicesqlite "github.com/SingularTensor/Mathly/internal/services/practice/storage/sqlite"
)

type apiHarness struct {
	svc   *Service
	store *practicesqlite.Store
}

func newAPIHarness(t *testing.T) apiHarness {
	t.Helper()
	store, err := practicesqlite.Open(context.Background(), filepath.Join(t.TempDir(), "practice.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	engine, err := play.NewService(play.Config{Store: store})
	if err != nil {
		t.Fatalf("new play service: %v", err)
	}
	return apiHarness{svc: NewService(engine), store: store}
}

func playerContext(userID string) context.Context {
	return requestctx.WithUserID(context.Background(), userID)
}

func request(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	in, err := structpb.NewStruct(fields)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	return in
}

func errorInfo(t *testing.T, err error) (*errdetails.ErrorInfo, *errdetails.LocalizedMessage) {
	t.Helper()
	st, ok := status.FromError(err)
	if !ok {
		t.Fatalf("not a status error: %v", err)
	}
	var info *errdetails.ErrorInfo
	var localized *errdetails.LocalizedMessage
	for _, detail := range st.Details() {
		switch d := detail.(type) {
		case *errdetails.ErrorInfo:
			info = d
		case *errdetails.LocalizedMessage:
			localized = d
		}
	}
	if info == nil {
		t.Fatalf("status %v has no ErrorInfo", st)
	}
	return info, localized
}

func assertReason(t *testing.T, err error, code codes.Code, reason string) {
	t.Helper()
	if status.Code(err) != code {
		t.Fatalf("code = %v (%v), want %v", status.Code(err), err, code)
	}
	info, _ := errorInfo(t, err)
	if info.GetReason() != reason {
		t.Fatalf("reason = %q, want %q", info.GetReason(), reason)
	}
}

func TestFetchProblemHidesAnswer(t *testing.T) {
	h := newAPIHarness(t)
	out, err := h.svc.FetchProblem(playerContext("p1"), request(t, map[string]any{"sector": "addition"}))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	doc := out.AsMap()
	p := doc["problem"].(map[string]any)
	if _, ok := p["answer"]; ok {
		t.Fatal("problem document leaks the answer")
	}
	if _, ok := p["seed"]; ok {
		t.Fatal("problem document leaks the seed")
	}
	if got := len(p["candidates"].([]any)); got != 4 {
		t.Fatalf("candidates = %d, want 4", got)
	}
	run := doc["run"].(map[string]any)
	if run["index"] != float64(1) || run["lives"] != float64(3) || run["status"] != "in_progress" {
		t.Fatalf("run = %v", run)
	}
	if doc["fresh_run"] != true || doc["label"] != "Beginner" {
		t.Fatalf("doc = %v", doc)
	}
}

func TestSubmitAnswerRoundTrip(t *testing.T) {
	h := newAPIHarness(t)
	ctx := playerContext("p1")
	fetched, err := h.svc.FetchProblem(ctx, request(t, map[string]any{"sector": "multiplication", "level": 1}))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	problemID := fetched.AsMap()["problem"].(map[string]any)["id"].(string)

	session, err := h.store.GetPlaySession(context.Background(), "p1", time.Now())
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	out, err := h.svc.SubmitAnswer(ctx, request(t, map[string]any{
		"problem_id": problemID,
		"answer":     session.Problem.Answer,
	}))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	doc := out.AsMap()
	if doc["correct"] != true || doc["result"] != "correct" || doc["committed"] != false {
		t.Fatalf("doc = %v", doc)
	}
	if doc["exp_gained"] != float64(4) {
		t.Fatalf("exp_gained = %v, want 4", doc["exp_gained"])
	}
	if run := doc["run"].(map[string]any); run["index"] != float64(2) {
		t.Fatalf("run = %v", run)
	}

	_, err = h.svc.SubmitAnswer(ctx, request(t, map[string]any{"answer": 1}))
	assertReason(t, err, codes.FailedPrecondition, "NO_ACTIVE_PROBLEM")
}

func TestRequestValidation(t *testing.T) {
	h := newAPIHarness(t)
	ctx := playerContext("p1")

	_, err := h.svc.FetchProblem(ctx, request(t, map[string]any{"sector": "addition", "level": 0}))
	assertReason(t, err, codes.InvalidArgument, "INVALID_LEVEL")

	_, err = h.svc.FetchProblem(ctx, request(t, map[string]any{"sector": "addition", "level": 1.5}))
	assertReason(t, err, codes.InvalidArgument, "INVALID_LEVEL")

	_, err = h.svc.FetchProblem(ctx, request(t, map[string]any{"sector": "addition", "level": 3}))
	assertReason(t, err, codes.InvalidArgument, "INVALID_LEVEL")

	_, err = h.svc.FetchProblem(ctx, request(t, map[string]any{"sector": "decimals"}))
	assertReason(t, err, codes.InvalidArgument, "INVALID_SECTOR")

	_, err = h.svc.FetchProblem(ctx, request(t, map[string]any{"sector": 7}))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %v, want %v", status.Code(err), codes.InvalidArgument)
	}

	_, err = h.svc.SubmitAnswer(ctx, request(t, map[string]any{}))
	assertReason(t, err, codes.InvalidArgument, "INVALID_ANSWER")

	_, err = h.svc.SubmitAnswer(ctx, request(t, map[string]any{"answer": "twelve"}))
	assertReason(t, err, codes.InvalidArgument, "INVALID_ANSWER")

	_, err = h.svc.SubmitAnswer(ctx, request(t, map[string]any{"answer": 12}))
	assertReason(t, err, codes.FailedPrecondition, "NO_ACTIVE_RUN")
}

func TestAnonymousCallsAreRejected(t *testing.T) {
	h := newAPIHarness(t)
	_, err := h.svc.GetProgress(context.Background(), nil)
	assertReason(t, err, codes.Unauthenticated, "USER_REQUIRED")
}

func TestErrorsAreLocalized(t *testing.T) {
	h := newAPIHarness(t)
	ctx := requestctx.WithLocale(playerContext("p1"), "pt-BR")
	_, err := h.svc.UpgradeSector(ctx, request(t, map[string]any{"sector": "division"}))
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("code = %v, want %v", status.Code(err), codes.FailedPrecondition)
	}
	info, localized := errorInfo(t, err)
	if info.GetReason() != "INSUFFICIENT_FUNDS" || info.GetMetadata()["Cost"] != "50" {
		t.Fatalf("info = %v", info)
	}
	if localized == nil || localized.GetLocale() != "pt-BR" || localized.GetMessage() == "" {
		t.Fatalf("localized = %v", localized)
	}
}

func TestProgressSectorsAndLeaderboard(t *testing.T) {
	h := newAPIHarness(t)
	ctx := playerContext("p1")

	sectors, err := h.svc.ListSectors(context.Background(), nil)
	if err != nil {
		t.Fatalf("list sectors: %v", err)
	}
	list := sectors.AsMap()["sectors"].([]any)
	if len(list) != len(sector.Keys) {
		t.Fatalf("sectors = %d, want %d", len(list), len(sector.Keys))
	}
	first := list[0].(map[string]any)
	if first["key"] != "addition" || first["available"] != true || first["base_exp"] != float64(5) {
		t.Fatalf("first sector = %v", first)
	}

	if _, err := h.svc.FetchProblem(ctx, request(t, map[string]any{"sector": "division"})); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	progress, err := h.svc.GetProgress(ctx, nil)
	if err != nil {
		t.Fatalf("get progress: %v", err)
	}
	doc := progress.AsMap()
	if doc["user_id"] != "p1" || doc["wallet"] != float64(0) {
		t.Fatalf("progress = %v", doc)
	}
	if got := len(doc["sectors"].([]any)); got != 6 {
		t.Fatalf("sectors = %d, want 6", got)
	}
	if run, ok := doc["run"].(map[string]any); !ok || run["sector"] != "division" {
		t.Fatalf("run = %v", doc["run"])
	}

	board, err := h.svc.ListLeaderboard(ctx, request(t, map[string]any{"sector": "division", "page_size": 5}))
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	entries := board.AsMap()["entries"].([]any)
	if len(entries) != 1 || entries[0].(map[string]any)["rank"] != float64(1) {
		t.Fatalf("entries = %v", entries)
	}

	_, err = h.svc.ListLeaderboard(ctx, request(t, map[string]any{"sector": "division", "filter": "level >>"}))
	assertReason(t, err, codes.InvalidArgument, "INVALID_FILTER")
}

func TestNilServiceIsInternal(t *testing.T) {
	var svc *Service
	_, err := svc.ListSectors(context.Background(), nil)
	if status.Code(err) != codes.Internal {
		t.Fatalf("code = %v, want %v", status.Code(err), codes.Internal)
	}
}

func TestServiceDescRunsInterceptor(t *testing.T) {
	h := newAPIHarness(t)
	if len(ServiceDesc.Methods) != 6 {
		t.Fatalf("methods = %d, want 6", len(ServiceDesc.Methods))
	}
	var listSectors grpc.MethodDesc
	for _, method := range ServiceDesc.Methods {
		if method.MethodName == MethodListSectors {
			listSectors = method
		}
	}
	dec := func(target any) error {
		target.(*structpb.Struct).Fields = map[string]*structpb.Value{}
		return nil
	}
	var seen string
	interceptor := func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		seen = info.FullMethod
		return handler(ctx, req)
	}
	out, err := listSectors.Handler(h.svc, context.Background(), dec, interceptor)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if seen != "/mathly.practice.v1.PracticeService/ListSectors" {
		t.Fatalf("full method = %q", seen)
	}
	if _, ok := out.(*structpb.Struct); !ok {
		t.Fatalf("response type = %T", out)
	}
}
